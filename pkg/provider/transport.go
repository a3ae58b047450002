package provider

import (
	"context"
	"math/big"
	"strings"
	"time"

	"evmwallet/pkg/models"
	"evmwallet/pkg/networks"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// NotificationType identifies an externally-triggered wallet event.
type NotificationType string

const (
	AccountsChanged NotificationType = "accountsChanged"
	ChainChanged    NotificationType = "chainChanged"
)

// Notification is one accountsChanged/chainChanged event from the wallet
// endpoint.
type Notification struct {
	Type     NotificationType
	Accounts []string
	ChainID  int64
}

// AddChainParams is the wallet_addEthereumChain request payload.
type AddChainParams struct {
	ChainID        string             `json:"chainId"`
	ChainName      string             `json:"chainName"`
	RPCURLs        []string           `json:"rpcUrls"`
	NativeCurrency *networks.Currency `json:"nativeCurrency,omitempty"`
	ExplorerURLs   []string           `json:"blockExplorerUrls,omitempty"`
}

// Transport is the injected-provider surface the adapter runs against. The
// real implementation speaks JSON-RPC to a local wallet endpoint; tests
// substitute a mock.
type Transport interface {
	Available() bool
	RequestAccounts(ctx context.Context) ([]string, error)
	Accounts(ctx context.Context) ([]string, error)
	ChainID(ctx context.Context) (int64, error)
	BalanceAt(ctx context.Context, address string) (*big.Int, error)
	EstimateGas(ctx context.Context, from, to string, value *big.Int) (uint64, error)
	GasPrice(ctx context.Context) (*big.Int, error)
	SwitchChain(ctx context.Context, chainIDHex string) error
	AddChain(ctx context.Context, params AddChainParams) error
	SendTransaction(ctx context.Context, from, to string, value *big.Int) (string, error)
	TransactionReceipt(ctx context.Context, txHash string) (*models.Receipt, bool, error)
	Notifications() <-chan Notification
	Close()
}

// RPCTransport talks to a wallet endpoint (a Frame-style local signer or any
// node exposing the wallet_* method set) over go-ethereum's rpc client.
// Wallet endpoints reached this way have no push channel for account or
// chain changes, so the transport synthesizes accountsChanged/chainChanged
// notifications from a short poll.
type RPCTransport struct {
	client       *rpc.Client
	notif        chan Notification
	stop         chan struct{}
	pollInterval time.Duration

	accountsSeeded bool
	lastAccounts   []string
	lastChainID    int64
}

var defaultPollInterval = 2 * time.Second

func DialTransport(ctx context.Context, url string) (*RPCTransport, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	t := &RPCTransport{
		client:       client,
		notif:        make(chan Notification, 16),
		stop:         make(chan struct{}),
		pollInterval: defaultPollInterval,
	}
	go t.watchForDrift()
	return t, nil
}

func (t *RPCTransport) Available() bool {
	return t.client != nil
}

func (t *RPCTransport) RequestAccounts(ctx context.Context) ([]string, error) {
	var accounts []string
	err := t.client.CallContext(ctx, &accounts, "eth_requestAccounts")
	return accounts, err
}

func (t *RPCTransport) Accounts(ctx context.Context) ([]string, error) {
	var accounts []string
	err := t.client.CallContext(ctx, &accounts, "eth_accounts")
	return accounts, err
}

func (t *RPCTransport) ChainID(ctx context.Context) (int64, error) {
	var id hexutil.Big
	if err := t.client.CallContext(ctx, &id, "eth_chainId"); err != nil {
		return 0, err
	}
	return id.ToInt().Int64(), nil
}

func (t *RPCTransport) BalanceAt(ctx context.Context, address string) (*big.Int, error) {
	var bal hexutil.Big
	err := t.client.CallContext(ctx, &bal, "eth_getBalance", common.HexToAddress(address), "latest")
	if err != nil {
		return nil, err
	}
	return bal.ToInt(), nil
}

func (t *RPCTransport) EstimateGas(ctx context.Context, from, to string, value *big.Int) (uint64, error) {
	arg := map[string]interface{}{
		"from":  common.HexToAddress(from),
		"to":    common.HexToAddress(to),
		"value": (*hexutil.Big)(value),
	}
	var gas hexutil.Uint64
	if err := t.client.CallContext(ctx, &gas, "eth_estimateGas", arg); err != nil {
		return 0, err
	}
	return uint64(gas), nil
}

func (t *RPCTransport) GasPrice(ctx context.Context) (*big.Int, error) {
	var price hexutil.Big
	if err := t.client.CallContext(ctx, &price, "eth_gasPrice"); err != nil {
		return nil, err
	}
	return price.ToInt(), nil
}

func (t *RPCTransport) SwitchChain(ctx context.Context, chainIDHex string) error {
	param := map[string]string{"chainId": chainIDHex}
	return t.client.CallContext(ctx, nil, "wallet_switchEthereumChain", param)
}

func (t *RPCTransport) AddChain(ctx context.Context, params AddChainParams) error {
	return t.client.CallContext(ctx, nil, "wallet_addEthereumChain", params)
}

func (t *RPCTransport) SendTransaction(ctx context.Context, from, to string, value *big.Int) (string, error) {
	arg := map[string]interface{}{
		"from":  common.HexToAddress(from),
		"to":    common.HexToAddress(to),
		"value": (*hexutil.Big)(value),
	}
	var hash common.Hash
	if err := t.client.CallContext(ctx, &hash, "eth_sendTransaction", arg); err != nil {
		return "", err
	}
	return hash.Hex(), nil
}

// rpcReceipt is the subset of eth_getTransactionReceipt a wallet front-end
// needs.
type rpcReceipt struct {
	TransactionHash common.Hash    `json:"transactionHash"`
	Status          hexutil.Uint64 `json:"status"`
	BlockNumber     *hexutil.Big   `json:"blockNumber"`
}

func (t *RPCTransport) TransactionReceipt(ctx context.Context, txHash string) (*models.Receipt, bool, error) {
	var raw *rpcReceipt
	err := t.client.CallContext(ctx, &raw, "eth_getTransactionReceipt", common.HexToHash(txHash))
	if err != nil {
		return nil, false, err
	}
	if raw == nil {
		// Still pending.
		return nil, false, nil
	}
	rec := &models.Receipt{
		TxHash: raw.TransactionHash.Hex(),
		Status: uint64(raw.Status),
	}
	if raw.BlockNumber != nil {
		rec.BlockNumber = raw.BlockNumber.ToInt().Uint64()
	}
	return rec, true, nil
}

func (t *RPCTransport) Notifications() <-chan Notification {
	return t.notif
}

func (t *RPCTransport) Close() {
	close(t.stop)
	t.client.Close()
}

func (t *RPCTransport) watchForDrift() {
	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.pollOnce()
		case <-t.stop:
			return
		}
	}
}

func (t *RPCTransport) pollOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), t.pollInterval)
	defer cancel()

	accounts, err := t.Accounts(ctx)
	if err == nil {
		// The first successful read seeds the baseline without notifying.
		if t.accountsSeeded && !equalAccounts(accounts, t.lastAccounts) {
			t.emit(Notification{Type: AccountsChanged, Accounts: accounts})
		}
		t.lastAccounts = accounts
		t.accountsSeeded = true
	}

	chainID, err := t.ChainID(ctx)
	if err == nil && chainID != t.lastChainID {
		prev := t.lastChainID
		t.lastChainID = chainID
		if prev != 0 {
			t.emit(Notification{Type: ChainChanged, ChainID: chainID})
		}
	}
}

func (t *RPCTransport) emit(n Notification) {
	select {
	case t.notif <- n:
	default:
		// Consumer is behind; the synchronizer re-derives full state on the
		// next event anyway.
	}
}

func equalAccounts(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}
