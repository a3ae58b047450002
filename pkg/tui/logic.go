package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"evmwallet/pkg/history"
	"evmwallet/pkg/models"
	"evmwallet/pkg/networks"
	"evmwallet/pkg/transfer"
	"evmwallet/pkg/wallet"

	tea "github.com/charmbracelet/bubbletea"
)

func listenForWallet(sub wallet.Subscriber) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-sub
		if !ok {
			return nil
		}
		return ev
	}
}

func waitForEstimate(ch <-chan transfer.Estimate) tea.Cmd {
	return func() tea.Msg {
		return estimateMsg(<-ch)
	}
}

func waitForProgress(ch <-chan float64) tea.Cmd {
	return func() tea.Msg {
		v, ok := <-ch
		if !ok {
			return progressDoneMsg{}
		}
		return progressFrameMsg(v)
	}
}

func waitForResult(ch <-chan transfer.Result) tea.Cmd {
	return func() tea.Msg {
		r, ok := <-ch
		if !ok {
			return nil
		}
		return submitResultMsg(r)
	}
}

func fetchHistory(hist *history.Client, address string, chainID int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return historyMsg{
			address: address,
			chainID: chainID,
			entries: hist.Fetch(ctx, address, chainID),
		}
	}
}

func doSwitchNetwork(s *wallet.Synchronizer, chainID int64) tea.Cmd {
	return func() tea.Msg {
		return switchDoneMsg{chainID: chainID, err: s.SwitchNetwork(chainID)}
	}
}

// recordBalanceSample appends the current balance to the sparkline buffer
// when it parses as a number. "..." and other placeholders are skipped.
func (m *model) recordBalanceSample() {
	if !m.state.Connected {
		return
	}
	v, err := strconv.ParseFloat(m.state.Balance, 64)
	if err != nil {
		return
	}
	m.balanceHistory = append(m.balanceHistory, v)
	if len(m.balanceHistory) > maxBalanceSamples {
		m.balanceHistory = m.balanceHistory[len(m.balanceHistory)-maxBalanceSamples:]
	}
}

// nativeSymbol gives the ticker shown next to balances and amounts.
func nativeSymbol(chainID int64) string {
	if d, ok := networks.Lookup(chainID); ok && d.Native != nil {
		return d.Native.Symbol
	}
	return "ETH"
}

// counterparty picks the address worth displaying for a history row.
func counterparty(e models.HistoryEntry, own string) string {
	switch e.Direction {
	case models.DirectionSend:
		return e.To
	case models.DirectionReceive:
		return e.From
	default:
		return own
	}
}

func directionArrow(d models.Direction) string {
	switch d {
	case models.DirectionSend:
		return "↑"
	case models.DirectionReceive:
		return "↓"
	default:
		return "↔"
	}
}

// formatAge renders a transaction timestamp relative to now.
func formatAge(ts time.Time, now time.Time) string {
	if ts.IsZero() {
		return "?"
	}
	d := now.Sub(ts)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

func explorerTxURL(base, hash string) string {
	return history.ExplorerTxURL(base, hash)
}

func explorerAddressURL(chainID int64, address string) string {
	base := networks.ExplorerBase(chainID)
	if base == "" {
		return ""
	}
	return fmt.Sprintf("%s/address/%s", strings.TrimRight(base, "/"), address)
}
