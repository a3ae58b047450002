package wallet

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"evmwallet/pkg/models"
	"evmwallet/pkg/provider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testAddr = "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"

var oneEth = big.NewInt(1000000000000000000)
var twoEth = big.NewInt(2000000000000000000)

// MockTransport implements provider.Transport for driving the synchronizer.
type MockTransport struct {
	mock.Mock
	available bool
	notif     chan provider.Notification
}

func newMockTransport() *MockTransport {
	return &MockTransport{
		available: true,
		notif:     make(chan provider.Notification, 4),
	}
}

func (m *MockTransport) Available() bool { return m.available }

func (m *MockTransport) RequestAccounts(ctx context.Context) ([]string, error) {
	args := m.Called()
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockTransport) Accounts(ctx context.Context) ([]string, error) {
	args := m.Called()
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockTransport) ChainID(ctx context.Context) (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTransport) BalanceAt(ctx context.Context, address string) (*big.Int, error) {
	args := m.Called(address)
	return args.Get(0).(*big.Int), args.Error(1)
}

func (m *MockTransport) EstimateGas(ctx context.Context, from, to string, value *big.Int) (uint64, error) {
	args := m.Called(from, to, value)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockTransport) GasPrice(ctx context.Context) (*big.Int, error) {
	args := m.Called()
	return args.Get(0).(*big.Int), args.Error(1)
}

func (m *MockTransport) SwitchChain(ctx context.Context, chainIDHex string) error {
	args := m.Called(chainIDHex)
	return args.Error(0)
}

func (m *MockTransport) AddChain(ctx context.Context, params provider.AddChainParams) error {
	args := m.Called(params)
	return args.Error(0)
}

func (m *MockTransport) SendTransaction(ctx context.Context, from, to string, value *big.Int) (string, error) {
	args := m.Called(from, to, value)
	return args.String(0), args.Error(1)
}

func (m *MockTransport) TransactionReceipt(ctx context.Context, txHash string) (*models.Receipt, bool, error) {
	args := m.Called(txHash)
	rec, _ := args.Get(0).(*models.Receipt)
	return rec, args.Bool(1), args.Error(2)
}

func (m *MockTransport) Notifications() <-chan provider.Notification { return m.notif }

func (m *MockTransport) Close() {}

func nextEvent(t *testing.T, sub Subscriber) Event {
	t.Helper()
	select {
	case e := <-sub:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func startSynchronizer(t *testing.T, tr *MockTransport, heartbeat time.Duration) (*Synchronizer, Subscriber) {
	t.Helper()
	s := NewSynchronizer(provider.New(tr), heartbeat)
	sub := s.Subscribe()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	t.Cleanup(s.Stop)
	s.Start(ctx)
	return s, sub
}

func TestConnectSuccess(t *testing.T) {
	tr := newMockTransport()
	tr.On("Accounts").Return([]string{}, nil).Once() // startup restore finds no grant
	tr.On("RequestAccounts").Return([]string{testAddr}, nil)
	tr.On("ChainID").Return(int64(11155111), nil)
	tr.On("BalanceAt", testAddr).Return(twoEth, nil)

	s, sub := startSynchronizer(t, tr, time.Minute)

	e := nextEvent(t, sub) // restore settles into Disconnected
	assert.Equal(t, StatusDisconnected, e.Status)

	s.Connect()

	e = nextEvent(t, sub)
	assert.Equal(t, StatusConnecting, e.Status)

	e = nextEvent(t, sub)
	require.Equal(t, StatusConnected, e.Status)
	assert.True(t, e.State.Connected)
	assert.Equal(t, testAddr, e.State.Address)
	assert.Equal(t, int64(11155111), e.State.ChainID)
	assert.Equal(t, "2.0000", e.State.Balance)

	assert.NotNil(t, s.Session())
	assert.False(t, s.IsConnecting())
}

func TestConnectRejected(t *testing.T) {
	tr := newMockTransport()
	tr.On("Accounts").Return([]string{}, nil).Once()
	tr.On("RequestAccounts").Return([]string{}, errors.New("user rejected the request"))

	s, sub := startSynchronizer(t, tr, time.Minute)
	nextEvent(t, sub) // restore -> Disconnected

	s.Connect()
	nextEvent(t, sub) // Connecting

	e := nextEvent(t, sub)
	assert.Equal(t, StatusDisconnected, e.Status)
	assert.Empty(t, e.State.Address)
	assert.Zero(t, e.State.ChainID)
	assert.Equal(t, models.ZeroBalance, e.State.Balance)
	assert.Nil(t, s.Session())
}

func TestConnect_NoTransport(t *testing.T) {
	tr := newMockTransport()
	tr.available = false

	s, sub := startSynchronizer(t, tr, time.Minute)
	e := nextEvent(t, sub)
	assert.Equal(t, StatusDisconnected, e.Status)

	s.Connect()

	// Still disconnected, and the prompt was never issued.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, StatusDisconnected, s.Status())
	tr.AssertNotCalled(t, "RequestAccounts")
}

func TestSessionRestoreOnStartup(t *testing.T) {
	tr := newMockTransport()
	tr.On("Accounts").Return([]string{testAddr}, nil)
	tr.On("ChainID").Return(int64(1), nil)
	tr.On("BalanceAt", testAddr).Return(oneEth, nil)

	_, sub := startSynchronizer(t, tr, time.Minute)

	e := nextEvent(t, sub)
	require.Equal(t, StatusConnected, e.Status)
	assert.Equal(t, testAddr, e.State.Address)
	assert.Equal(t, "1.0000", e.State.Balance)
	tr.AssertNotCalled(t, "RequestAccounts")
}

func TestAccountsChangedEmpty_Disconnects(t *testing.T) {
	tr := newMockTransport()
	tr.On("Accounts").Return([]string{testAddr}, nil)
	tr.On("ChainID").Return(int64(1), nil)
	tr.On("BalanceAt", testAddr).Return(oneEth, nil)

	s, sub := startSynchronizer(t, tr, time.Minute)
	nextEvent(t, sub) // Connected via restore

	tr.notif <- provider.Notification{Type: provider.AccountsChanged}

	e := nextEvent(t, sub)
	assert.Equal(t, StatusDisconnected, e.Status)
	assert.Empty(t, e.State.Address)
	assert.Zero(t, e.State.ChainID)
	assert.Equal(t, models.ZeroBalance, e.State.Balance)
	assert.Nil(t, s.Session())
}

func TestAccountsChanged_NewAddressRebuilds(t *testing.T) {
	other := "0x00000000219ab540356cBB839Cbe05303d7705Fa"

	tr := newMockTransport()
	tr.On("Accounts").Return([]string{testAddr}, nil)
	tr.On("ChainID").Return(int64(1), nil)
	tr.On("BalanceAt", testAddr).Return(oneEth, nil)
	tr.On("BalanceAt", other).Return(twoEth, nil)

	_, sub := startSynchronizer(t, tr, time.Minute)
	nextEvent(t, sub) // Connected as testAddr

	tr.notif <- provider.Notification{Type: provider.AccountsChanged, Accounts: []string{other}}

	e := nextEvent(t, sub)
	require.Equal(t, StatusConnected, e.Status)
	assert.Equal(t, other, e.State.Address)
	assert.Equal(t, "2.0000", e.State.Balance)
}

func TestChainChanged_RebuildsSnapshot(t *testing.T) {
	tr := newMockTransport()
	tr.On("Accounts").Return([]string{testAddr}, nil)
	tr.On("ChainID").Return(int64(1), nil).Once()
	tr.On("ChainID").Return(int64(11155111), nil)
	tr.On("BalanceAt", testAddr).Return(oneEth, nil)

	_, sub := startSynchronizer(t, tr, time.Minute)
	e := nextEvent(t, sub)
	require.Equal(t, int64(1), e.State.ChainID)

	tr.notif <- provider.Notification{Type: provider.ChainChanged, ChainID: 11155111}

	e = nextEvent(t, sub)
	require.Equal(t, StatusConnected, e.Status)
	assert.Equal(t, int64(11155111), e.State.ChainID)
}

func TestHeartbeat_PublishesOnlyOnBalanceChange(t *testing.T) {
	tr := newMockTransport()
	tr.On("Accounts").Return([]string{testAddr}, nil)
	tr.On("ChainID").Return(int64(1), nil)
	tr.On("BalanceAt", testAddr).Return(oneEth, nil).Times(3)
	tr.On("BalanceAt", testAddr).Return(twoEth, nil)

	_, sub := startSynchronizer(t, tr, 30*time.Millisecond)

	e := nextEvent(t, sub)
	require.Equal(t, "1.0000", e.State.Balance)

	// Identical heartbeat reads publish nothing; the next event must be the
	// changed value.
	e = nextEvent(t, sub)
	assert.Equal(t, "2.0000", e.State.Balance)
}

func TestHeartbeat_EmptyAccountsDisconnects(t *testing.T) {
	tr := newMockTransport()
	tr.On("Accounts").Return([]string{testAddr}, nil).Once()
	tr.On("Accounts").Return([]string{}, nil)
	tr.On("ChainID").Return(int64(1), nil)
	tr.On("BalanceAt", testAddr).Return(oneEth, nil)

	s, sub := startSynchronizer(t, tr, 30*time.Millisecond)
	nextEvent(t, sub) // Connected via restore

	e := nextEvent(t, sub)
	assert.Equal(t, StatusDisconnected, e.Status)
	assert.Equal(t, models.ZeroBalance, e.State.Balance)
	assert.Nil(t, s.Session())
}

func TestRefreshBalance_UpdateIfChanged(t *testing.T) {
	tr := newMockTransport()
	tr.On("Accounts").Return([]string{testAddr}, nil)
	tr.On("ChainID").Return(int64(1), nil)
	tr.On("BalanceAt", testAddr).Return(oneEth, nil).Times(2)
	tr.On("BalanceAt", testAddr).Return(twoEth, nil)

	s, sub := startSynchronizer(t, tr, time.Minute)
	nextEvent(t, sub) // Connected, balance 1.0000

	s.RefreshBalance() // same value, no event
	s.RefreshBalance() // changed value

	e := nextEvent(t, sub)
	assert.Equal(t, "2.0000", e.State.Balance)
}

func TestSnapshotFailure_CollapsesToDisconnected(t *testing.T) {
	tr := newMockTransport()
	tr.On("Accounts").Return([]string{testAddr}, nil)
	tr.On("ChainID").Return(int64(0), errors.New("endpoint gone"))

	s, sub := startSynchronizer(t, tr, time.Minute)

	e := nextEvent(t, sub)
	assert.Equal(t, StatusDisconnected, e.Status)
	assert.Nil(t, s.Session())
}

func TestSwitchNetwork_Delegates(t *testing.T) {
	tr := newMockTransport()
	tr.On("Accounts").Return([]string{testAddr}, nil)
	tr.On("ChainID").Return(int64(1), nil)
	tr.On("BalanceAt", testAddr).Return(oneEth, nil)
	tr.On("SwitchChain", "0xaa36a7").Return(nil)

	s, sub := startSynchronizer(t, tr, time.Minute)
	nextEvent(t, sub)

	assert.NoError(t, s.SwitchNetwork(11155111))
	tr.AssertCalled(t, "SwitchChain", "0xaa36a7")
}

func TestSubscribeUnsubscribe(t *testing.T) {
	s := NewSynchronizer(provider.New(newMockTransport()), time.Minute)
	sub := s.Subscribe()
	assert.NotNil(t, sub)

	s.mu.RLock()
	assert.Equal(t, 1, len(s.subscribers))
	s.mu.RUnlock()

	s.Unsubscribe(sub)
	s.mu.RLock()
	assert.Equal(t, 0, len(s.subscribers))
	s.mu.RUnlock()
}
