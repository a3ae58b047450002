package transfer

import (
	"context"
	"errors"
	"math"
	"math/big"
	"math/rand"
	"strings"
	"sync"
	"time"

	"evmwallet/pkg/models"
	"evmwallet/pkg/provider"
	"evmwallet/pkg/utils"

	"github.com/ethereum/go-ethereum/common"
)

// Pending is a submitted transfer awaiting confirmation.
type Pending interface {
	Hash() string
	Wait(ctx context.Context) (*models.Receipt, error)
}

// Wallet is the slice of the provider session the flow needs.
type Wallet interface {
	FeeEstimate(ctx context.Context, to, amount string) (*big.Int, error)
	SendTransfer(ctx context.Context, to, amount string) (Pending, error)
}

type sessionWallet struct {
	s *provider.Session
}

func (w sessionWallet) FeeEstimate(ctx context.Context, to, amount string) (*big.Int, error) {
	return w.s.FeeEstimate(ctx, to, amount)
}

func (w sessionWallet) SendTransfer(ctx context.Context, to, amount string) (Pending, error) {
	p, err := w.s.SendTransfer(ctx, to, amount)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// WrapSession adapts a provider session to the Wallet interface.
func WrapSession(s *provider.Session) Wallet {
	return sessionWallet{s: s}
}

// FailureKind buckets a failed transfer into the categories shown to the
// user.
type FailureKind string

const (
	FailNone         FailureKind = ""
	FailInsufficient FailureKind = "insufficient_funds"
	FailRejected     FailureKind = "rejected"
	FailBadAddress   FailureKind = "bad_address"
	FailBadAmount    FailureKind = "bad_amount"
	FailNetwork      FailureKind = "network"
	FailGeneric      FailureKind = "generic"
)

// Classify maps a transfer error to a user-facing category and message. No
// retry is attempted; the user resubmits with the form contents intact.
func Classify(err error) (FailureKind, string) {
	switch {
	case err == nil:
		return FailNone, ""
	case errors.Is(err, provider.ErrInvalidAddress):
		return FailBadAddress, "Recipient is not a valid address"
	case errors.Is(err, provider.ErrInvalidAmount):
		return FailBadAmount, "Amount must be a positive number"
	case errors.Is(err, provider.ErrUserRejected):
		return FailRejected, "Transaction rejected in wallet"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "insufficient funds"):
		return FailInsufficient, "Insufficient balance to cover value + gas"
	case strings.Contains(msg, "network") || strings.Contains(msg, "connection") ||
		strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return FailNetwork, "Network error, check your connection and chain"
	default:
		return FailGeneric, "Transaction failed"
	}
}

// Result is the terminal outcome of a submission.
type Result struct {
	Hash    string
	Receipt *models.Receipt
	Err     error
	Kind    FailureKind
	Message string
}

func (r Result) Success() bool { return r.Err == nil }

// Estimate is one debounced fee estimation outcome. Cost is nil when the
// inputs were not estimable (empty or invalid fields).
type Estimate struct {
	Cost *big.Int
	Eth  string
	Err  error
}

// ValidateInputs is the quick local check used to enable or disable
// submission before the adapter re-validates.
func ValidateInputs(to, amount string) error {
	if !common.IsHexAddress(to) {
		return provider.ErrInvalidAddress
	}
	wei, ok := utils.EthToWei(amount)
	if !ok || wei.Sign() <= 0 {
		return provider.ErrInvalidAmount
	}
	return nil
}

const (
	progressCap  = 90.0
	progressTick = 500 * time.Millisecond
	estimateWait = 10 * time.Second
)

// Flow drives one transfer form: debounced gas estimates while the user
// types, then submission with a synthetic progress feed.
type Flow struct {
	wallet   Wallet
	debounce time.Duration
	tick     time.Duration

	mu        sync.Mutex
	timer     *time.Timer
	to        string
	amount    string
	estimates chan Estimate
}

func NewFlow(wallet Wallet, debounce time.Duration) *Flow {
	return &Flow{
		wallet:    wallet,
		debounce:  debounce,
		tick:      progressTick,
		estimates: make(chan Estimate, 4),
	}
}

// Estimates delivers the outcome of each debounced estimation.
func (f *Flow) Estimates() <-chan Estimate {
	return f.estimates
}

// NoteEdit records a keystroke in either field and (re)arms the quiet-period
// timer. However many edits land inside the window, at most one estimate
// request goes out after it closes.
func (f *Flow) NoteEdit(to, amount string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.to = strings.TrimSpace(to)
	f.amount = strings.TrimSpace(amount)
	if f.timer != nil {
		f.timer.Stop()
	}
	f.timer = time.AfterFunc(f.debounce, f.runEstimate)
}

// Cancel stops any armed estimate timer, for form teardown.
func (f *Flow) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
}

func (f *Flow) runEstimate() {
	f.mu.Lock()
	to, amount := f.to, f.amount
	f.mu.Unlock()

	if to == "" || amount == "" {
		f.emit(Estimate{})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), estimateWait)
	defer cancel()

	cost, err := f.wallet.FeeEstimate(ctx, to, amount)
	if err != nil {
		f.emit(Estimate{Err: err})
		return
	}
	if cost == nil {
		f.emit(Estimate{})
		return
	}
	f.emit(Estimate{Cost: cost, Eth: utils.FormatSmartEthBig(utils.WeiToEth(cost))})
}

func (f *Flow) emit(e Estimate) {
	select {
	case f.estimates <- e:
	default:
	}
}

// Submit validates, sends and awaits confirmation. Progress values stream on
// the first channel while the receipt is pending: they creep pseudo-randomly
// toward a cap and snap to 100 on confirmation. The indicator is cosmetic
// and carries no information about confirmation depth. Exactly one Result
// arrives on the second channel.
func (f *Flow) Submit(ctx context.Context, to, amount string) (<-chan float64, <-chan Result) {
	progress := make(chan float64, 32)
	result := make(chan Result, 1)

	go func() {
		defer close(progress)
		defer close(result)

		if err := ValidateInputs(to, amount); err != nil {
			kind, msg := Classify(err)
			result <- Result{Err: err, Kind: kind, Message: msg}
			return
		}

		pending, err := f.wallet.SendTransfer(ctx, to, amount)
		if err != nil {
			kind, msg := Classify(err)
			result <- Result{Err: err, Kind: kind, Message: msg}
			return
		}

		emit := func(v float64) {
			select {
			case progress <- v:
			default:
			}
		}
		emit(10)

		done := make(chan struct{})
		var rec *models.Receipt
		var waitErr error
		go func() {
			rec, waitErr = pending.Wait(ctx)
			close(done)
		}()

		ticker := time.NewTicker(f.tick)
		defer ticker.Stop()
		value := 10.0
	waiting:
		for {
			select {
			case <-ticker.C:
				value = math.Min(value+rand.Float64()*10, progressCap)
				emit(value)
			case <-done:
				break waiting
			}
		}

		if waitErr != nil {
			kind, msg := Classify(waitErr)
			result <- Result{Hash: pending.Hash(), Err: waitErr, Kind: kind, Message: msg}
			return
		}
		emit(100)
		result <- Result{Hash: pending.Hash(), Receipt: rec}
	}()

	return progress, result
}
