package tui

import (
	"testing"
	"time"

	"evmwallet/pkg/models"

	"github.com/stretchr/testify/assert"
)

func TestCounterparty(t *testing.T) {
	own := "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"

	sent := models.HistoryEntry{From: own, To: "0xdef", Direction: models.DirectionSend}
	assert.Equal(t, "0xdef", counterparty(sent, own))

	received := models.HistoryEntry{From: "0xabc", To: own, Direction: models.DirectionReceive}
	assert.Equal(t, "0xabc", counterparty(received, own))

	self := models.HistoryEntry{From: own, To: own, Direction: models.DirectionSelf}
	assert.Equal(t, own, counterparty(self, own))
}

func TestDirectionArrow(t *testing.T) {
	assert.Equal(t, "↑", directionArrow(models.DirectionSend))
	assert.Equal(t, "↓", directionArrow(models.DirectionReceive))
	assert.Equal(t, "↔", directionArrow(models.DirectionSelf))
}

func TestFormatAge(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "just now", formatAge(now.Add(-30*time.Second), now))
	assert.Equal(t, "5m ago", formatAge(now.Add(-5*time.Minute), now))
	assert.Equal(t, "3h ago", formatAge(now.Add(-3*time.Hour), now))
	assert.Equal(t, "2d ago", formatAge(now.Add(-49*time.Hour), now))
	assert.Equal(t, "?", formatAge(time.Time{}, now))
}

func TestNativeSymbol(t *testing.T) {
	assert.Equal(t, "ETH", nativeSymbol(1))
	assert.Equal(t, "ETH", nativeSymbol(11155111))
	assert.Equal(t, "MATIC", nativeSymbol(80002))
	assert.Equal(t, "ETH", nativeSymbol(424242))
}

func TestRecordBalanceSampleSkipsPlaceholders(t *testing.T) {
	m := model{state: models.WalletState{Connected: true, Balance: "1.5000"}}
	m.recordBalanceSample()
	assert.Equal(t, []float64{1.5}, m.balanceHistory)

	m.state.Balance = models.BalanceUnavailable
	m.recordBalanceSample()
	assert.Len(t, m.balanceHistory, 1)

	m.state.Connected = false
	m.state.Balance = "2.0000"
	m.recordBalanceSample()
	assert.Len(t, m.balanceHistory, 1)
}

func TestRecordBalanceSampleBounded(t *testing.T) {
	m := model{state: models.WalletState{Connected: true, Balance: "1.0000"}}
	for i := 0; i < maxBalanceSamples+10; i++ {
		m.recordBalanceSample()
	}
	assert.Len(t, m.balanceHistory, maxBalanceSamples)
}
