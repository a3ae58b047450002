package provider

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"sync"
	"time"

	"evmwallet/pkg/models"
	"evmwallet/pkg/networks"
	"evmwallet/pkg/utils"

	"github.com/ethereum/go-ethereum/common"
)

// Adapter presents a uniform surface over the wallet transport and owns
// session lifecycles. Exactly one session is current at a time; minting a
// new one atomically supersedes the previous one.
type Adapter struct {
	transport Transport

	mu      sync.Mutex
	epoch   uint64
	current *Session
}

func New(transport Transport) *Adapter {
	return &Adapter{transport: transport}
}

// Available reports whether a wallet endpoint is reachable at all. False
// disables every connect action upstream.
func (a *Adapter) Available() bool {
	return a.transport != nil && a.transport.Available()
}

// RequestAccounts triggers the wallet's permission prompt.
func (a *Adapter) RequestAccounts(ctx context.Context) ([]string, error) {
	if !a.Available() {
		return nil, ErrNotInstalled
	}
	accounts, err := a.transport.RequestAccounts(ctx)
	if err != nil {
		if errorCode(err) == codeUserRejected {
			return nil, fmt.Errorf("%w: %v", ErrUserRejected, err)
		}
		return nil, err
	}
	return accounts, nil
}

// QueryAccounts reads the granted account list without prompting. An empty
// list means no prior grant (or a locked wallet).
func (a *Adapter) QueryAccounts(ctx context.Context) ([]string, error) {
	if !a.Available() {
		return nil, ErrNotInstalled
	}
	return a.transport.Accounts(ctx)
}

// Notifications exposes the transport's accountsChanged/chainChanged stream.
// Without a transport it returns nil, which never delivers.
func (a *Adapter) Notifications() <-chan Notification {
	if a.transport == nil {
		return nil
	}
	return a.transport.Notifications()
}

// SwitchNetwork asks the wallet to change its active chain. When the wallet
// does not know the chain, an add-chain request is assembled from registry
// metadata before the original failure is reported back; without metadata
// the call fails as a configuration problem instead.
func (a *Adapter) SwitchNetwork(ctx context.Context, chainID int64) error {
	if !a.Available() {
		return ErrNotInstalled
	}
	err := a.transport.SwitchChain(ctx, networks.HexChainID(chainID))
	if err == nil {
		return nil
	}
	if errorCode(err) != codeChainNotAdded {
		return err
	}

	desc, ok := networks.Lookup(chainID)
	if !ok || !desc.CanAdd() {
		return fmt.Errorf("%w: chain %d", ErrNetworkNotConfigured, chainID)
	}
	if addErr := a.transport.AddChain(ctx, AddChainParams{
		ChainID:        desc.ChainIDHex,
		ChainName:      desc.Name,
		RPCURLs:        desc.RPCURLs,
		NativeCurrency: desc.Native,
		ExplorerURLs:   desc.ExplorerURLs,
	}); addErr != nil {
		log.Printf("add chain %d failed: %v", chainID, addErr)
	}
	return fmt.Errorf("%w: chain %d: %v", ErrNetworkNotRecognized, chainID, err)
}

// NewSession mints a session bound to the given account, superseding any
// previous session. Results from a superseded session's in-flight reads are
// discarded by callers via Current and Epoch.
func (a *Adapter) NewSession(address string) *Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.epoch++
	s := &Session{
		adapter: a,
		epoch:   a.epoch,
		address: common.HexToAddress(address).Hex(),
	}
	a.current = s
	return s
}

// DropSession invalidates the current session without minting a new one.
func (a *Adapter) DropSession() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = nil
}

// Session is the provider handle: a read-only delegate bound to one account
// and one epoch. The synchronizer owns it exclusively.
type Session struct {
	adapter *Adapter
	epoch   uint64
	address string
}

func (s *Session) Address() string { return s.address }
func (s *Session) Epoch() uint64   { return s.epoch }

// Current reports whether this session is still the live one.
func (s *Session) Current() bool {
	s.adapter.mu.Lock()
	defer s.adapter.mu.Unlock()
	return s.adapter.current == s
}

// Snapshot reads the full {address, chainId, balance} triple from the
// transport.
func (s *Session) Snapshot(ctx context.Context) (models.WalletState, error) {
	chainID, err := s.adapter.transport.ChainID(ctx)
	if err != nil {
		return models.WalletState{}, fmt.Errorf("read chain id: %w", err)
	}
	return models.WalletState{
		Address:   s.address,
		Connected: true,
		ChainID:   chainID,
		Balance:   s.Balance(ctx),
	}, nil
}

// Balance reads and formats the account balance. It fails soft: a
// network-changed hiccup yields the unavailable marker, any other failure
// the zero display value. Callers never see an error.
func (s *Session) Balance(ctx context.Context) string {
	wei, err := s.adapter.transport.BalanceAt(ctx, s.address)
	if err != nil {
		if isNetworkChanged(err) {
			return models.BalanceUnavailable
		}
		log.Printf("balance read for %s failed: %v", utils.ShortenAddress(s.address), err)
		return models.ZeroBalance
	}
	return utils.FormatBalance(utils.WeiToEth(wei))
}

// FeeEstimate returns the projected cost in wei of transferring amount ether
// to the given recipient, or nil when either input is not yet valid.
// Transport failures propagate; the caller decides how to surface them.
func (s *Session) FeeEstimate(ctx context.Context, to, amount string) (*big.Int, error) {
	if !common.IsHexAddress(to) {
		return nil, nil
	}
	wei, ok := utils.EthToWei(amount)
	if !ok || wei.Sign() <= 0 {
		return nil, nil
	}

	gas, err := s.adapter.transport.EstimateGas(ctx, s.address, to, wei)
	if err != nil {
		return nil, fmt.Errorf("estimate gas: %w", err)
	}
	price, err := s.adapter.transport.GasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("gas price: %w", err)
	}
	if price == nil {
		// Some L2 endpoints report no gas price at all.
		price = big.NewInt(0)
	}
	return new(big.Int).Mul(new(big.Int).SetUint64(gas), price), nil
}

// SendTransfer validates inputs, submits a native transfer and returns a
// handle for the confirmation wait. Malformed input fails before the
// transport is ever contacted.
func (s *Session) SendTransfer(ctx context.Context, to, amount string) (*PendingTx, error) {
	if !common.IsHexAddress(to) {
		return nil, ErrInvalidAddress
	}
	wei, ok := utils.EthToWei(amount)
	if !ok || wei.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	hash, err := s.adapter.transport.SendTransaction(ctx, s.address, common.HexToAddress(to).Hex(), wei)
	if err != nil {
		if errorCode(err) == codeUserRejected {
			return nil, fmt.Errorf("%w: %v", ErrUserRejected, err)
		}
		return nil, err
	}
	return &PendingTx{hash: hash, session: s}, nil
}

// PendingTx is a submitted transfer awaiting its receipt.
type PendingTx struct {
	hash    string
	session *Session
}

func (p *PendingTx) Hash() string { return p.hash }

var receiptPollInterval = 2 * time.Second

// Wait blocks until the transfer is mined, the context expires, or the
// transaction reverts.
func (p *PendingTx) Wait(ctx context.Context) (*models.Receipt, error) {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		rec, found, err := p.session.adapter.transport.TransactionReceipt(ctx, p.hash)
		if err == nil && found {
			if rec.Status == 0 {
				return rec, fmt.Errorf("%w: %s", ErrReverted, p.hash)
			}
			return rec, nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
