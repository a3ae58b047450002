package provider

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"
)

var (
	// ErrNotInstalled means no wallet endpoint is reachable at all.
	ErrNotInstalled = errors.New("wallet endpoint not available")

	// ErrUserRejected means the user declined the request in the wallet.
	ErrUserRejected = errors.New("request rejected in wallet")

	ErrInvalidAddress = errors.New("invalid recipient address")
	ErrInvalidAmount  = errors.New("invalid amount")

	// ErrNetworkNotRecognized is returned when the wallet refused a chain
	// switch because it does not know the chain, after an add-chain attempt
	// was already made.
	ErrNetworkNotRecognized = errors.New("chain not recognized by wallet")

	// ErrNetworkNotConfigured means the registry has no add-chain metadata
	// for the target chain, so no add request could even be assembled.
	ErrNetworkNotConfigured = errors.New("no add-chain metadata for target chain")

	// ErrReverted means the transfer was mined but failed on chain.
	ErrReverted = errors.New("transaction reverted")
)

// EIP-1193 provider error codes.
const (
	codeUserRejected  = 4001
	codeChainNotAdded = 4902
)

func errorCode(err error) int {
	var re rpc.Error
	if errors.As(err, &re) {
		return re.ErrorCode()
	}
	return 0
}

// isNetworkChanged recognizes the transient failure a wallet reports when
// the active chain switched while a read was in flight. Balance reads treat
// it as "value unknown right now" rather than an error.
func isNetworkChanged(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "network changed")
}
