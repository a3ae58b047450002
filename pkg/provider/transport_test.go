package provider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialFastPoll(t *testing.T, m *mockWallet) *RPCTransport {
	old := defaultPollInterval
	defaultPollInterval = 20 * time.Millisecond
	t.Cleanup(func() { defaultPollInterval = old })

	transport, err := DialTransport(context.Background(), m.server.URL)
	require.NoError(t, err)
	t.Cleanup(transport.Close)
	return transport
}

func TestDriftPollSeedsBaselineQuietly(t *testing.T) {
	m := newMockWallet(t)
	m.set("eth_accounts", []string{testAddr})

	transport := dialFastPoll(t, m)

	// Several polls with nothing changing must stay silent; the first
	// observation only establishes the baseline.
	select {
	case n := <-transport.Notifications():
		t.Fatalf("unexpected notification with no drift: %+v", n)
	case <-time.After(150 * time.Millisecond):
	}
	assert.True(t, m.called("eth_accounts"))
}

func TestDriftPollAccountChange(t *testing.T) {
	m := newMockWallet(t)
	m.set("eth_accounts", []string{testAddr})

	transport := dialFastPoll(t, m)

	// Let the baseline settle before drifting.
	time.Sleep(100 * time.Millisecond)

	other := "0x00000000219ab540356cBB839Cbe05303d7705Fa"
	m.set("eth_accounts", []string{other})

	select {
	case n := <-transport.Notifications():
		assert.Equal(t, AccountsChanged, n.Type)
		require.Len(t, n.Accounts, 1)
		assert.Equal(t, other, n.Accounts[0])
	case <-time.After(2 * time.Second):
		t.Fatal("no notification after account drift")
	}
}

func TestDriftPollChainChange(t *testing.T) {
	m := newMockWallet(t)
	m.set("eth_accounts", []string{testAddr})

	transport := dialFastPoll(t, m)

	time.Sleep(100 * time.Millisecond)

	m.set("eth_chainId", "0x1")

	select {
	case n := <-transport.Notifications():
		assert.Equal(t, ChainChanged, n.Type)
		assert.Equal(t, int64(1), n.ChainID)
	case <-time.After(2 * time.Second):
		t.Fatal("no notification after chain drift")
	}
}
