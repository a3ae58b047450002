package tui

import (
	"context"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"evmwallet/pkg/models"
	"evmwallet/pkg/transfer"
	"evmwallet/pkg/wallet"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingWallet struct {
	estimates int64
}

func (w *countingWallet) FeeEstimate(ctx context.Context, to, amount string) (*big.Int, error) {
	atomic.AddInt64(&w.estimates, 1)
	return big.NewInt(21000000000000), nil
}

func (w *countingWallet) SendTransfer(ctx context.Context, to, amount string) (transfer.Pending, error) {
	return nil, nil
}

func TestDisconnectCancelsArmedFlow(t *testing.T) {
	cw := &countingWallet{}
	flow := transfer.NewFlow(cw, 50*time.Millisecond)

	m := model{sending: true, flow: flow}
	flow.NoteEdit("0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B", "1.0")

	next, _ := m.Update(wallet.Event{
		Type:   wallet.EventStateUpdated,
		Status: wallet.StatusDisconnected,
		State:  models.DisconnectedState(),
	})
	got, ok := next.(model)
	require.True(t, ok)
	assert.Nil(t, got.flow)
	assert.False(t, got.sending)

	// The pending debounce must not fire against the dead session.
	time.Sleep(120 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt64(&cw.estimates))
}
