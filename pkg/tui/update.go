package tui

import (
	"context"
	"fmt"
	"time"

	"evmwallet/pkg/networks"
	"evmwallet/pkg/transfer"
	"evmwallet/pkg/wallet"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
)

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		w := msg.Width - 20
		if w > 60 {
			w = 60
		}
		if w > 10 {
			m.bar.Width = w
		}

	case wallet.Event:
		cmds = append(cmds, listenForWallet(m.sub))
		m.status = msg.Status
		m.state = msg.State
		m.lastUpdate = time.Now()
		m.recordBalanceSample()
		if !m.state.Connected {
			// A collapsed session invalidates everything derived from it.
			m.histEntries = nil
			if m.flow != nil {
				m.flow.Cancel()
				m.flow = nil
			}
			if m.sending && !m.submitting {
				m.sending = false
			}
		}

	case estimateMsg:
		if m.sending {
			est := transfer.Estimate(msg)
			m.estimate = &est
			if m.flow != nil {
				cmds = append(cmds, waitForEstimate(m.flow.Estimates()))
			}
		}

	case progressFrameMsg:
		m.progressVal = float64(msg)
		if m.progressCh != nil {
			cmds = append(cmds, waitForProgress(m.progressCh))
		}

	case progressDoneMsg:
		m.progressCh = nil

	case submitResultMsg:
		res := transfer.Result(msg)
		m.submitting = false
		m.lastResult = &res
		m.resultCh = nil
		if res.Success() {
			// Clear the form and pick the new balance up right away.
			for i := range m.sendInputs {
				m.sendInputs[i].SetValue("")
			}
			m.estimate = nil
			m.sending = false
			m.sync.RefreshBalance()
		}

	case switchDoneMsg:
		m.switching = false
		if msg.err != nil {
			m.statusMessage = fmt.Sprintf("Network switch failed: %v", msg.err)
		} else {
			m.statusMessage = fmt.Sprintf("Switched to %s", networks.Name(msg.chainID))
		}
		cmds = append(cmds, clearStatusAfter(2*time.Second))

	case historyMsg:
		m.histLoading = false
		// Drop stale responses for a superseded address or chain.
		if msg.address == m.state.Address && msg.chainID == m.state.ChainID {
			m.histEntries = msg.entries
			if m.histIdx >= len(m.histEntries) {
				m.histIdx = 0
			}
		}

	case tea.KeyMsg:
		return m.handleKey(msg)

	case uiTickMsg:
		cmds = append(cmds, tea.Tick(time.Second, func(t time.Time) tea.Msg { return uiTickMsg(t) }))

	case clearStatusMsg:
		m.statusMessage = ""
	}

	if m.status == wallet.StatusConnecting || m.submitting || m.histLoading || m.switching {
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.showHelp {
		switch msg.String() {
		case "q", "esc", "?":
			m.showHelp = false
		}
		return m, nil
	}

	if m.lastResult != nil {
		switch msg.String() {
		case "o":
			if base := networks.ExplorerBase(m.state.ChainID); base != "" && m.lastResult.Hash != "" {
				url := explorerTxURL(base, m.lastResult.Hash)
				if err := openBrowser(url); err != nil {
					m.statusMessage = fmt.Sprintf("Failed to open browser: %v", err)
				} else {
					m.statusMessage = "Opened in browser"
				}
				cmds = append(cmds, clearStatusAfter(2*time.Second))
			}
		default:
			m.lastResult = nil
		}
		return m, tea.Batch(cmds...)
	}

	if m.submitting {
		// Confirmation wait is not cancellable from the UI.
		return m, nil
	}

	if m.sending {
		return m.handleSendKey(msg)
	}

	if m.pickingNetwork {
		return m.handleNetworkKey(msg)
	}

	if m.showHistory {
		return m.handleHistoryKey(msg)
	}

	switch msg.String() {
	case "?":
		m.showHelp = true
	case "q":
		return m, tea.Quit
	case "c":
		if !m.state.Connected {
			m.sync.Connect()
		}
	case "d":
		if m.state.Connected {
			m.sync.Disconnect()
			m.balanceHistory = nil
		}
	case "r":
		if m.state.Connected {
			m.sync.RefreshBalance()
			m.statusMessage = "Refreshing balance..."
			cmds = append(cmds, clearStatusAfter(2*time.Second))
		}
	case "n":
		if m.state.Connected {
			m.pickingNetwork = true
			m.networkIdx = 0
			for i, d := range m.networkList {
				if d.ChainID == m.state.ChainID {
					m.networkIdx = i
					break
				}
			}
		}
	case "s":
		if !m.state.Connected {
			m.statusMessage = "Connect a wallet first"
			cmds = append(cmds, clearStatusAfter(2*time.Second))
			break
		}
		sess := m.sync.Session()
		if sess == nil {
			break
		}
		m.sending = true
		m.focusIdx = fieldRecipient
		m.estimate = nil
		m.flow = transfer.NewFlow(transfer.WrapSession(sess),
			time.Duration(m.cfg.EstimateDebounceMs)*time.Millisecond)
		for i := range m.sendInputs {
			m.sendInputs[i].Blur()
		}
		cmds = append(cmds, m.sendInputs[fieldRecipient].Focus())
		cmds = append(cmds, waitForEstimate(m.flow.Estimates()))
	case "t":
		if m.state.Connected {
			m.showHistory = true
			m.histIdx = 0
			m.histLoading = true
			cmds = append(cmds, fetchHistory(m.hist, m.state.Address, m.state.ChainID))
		}
	case "y":
		if m.state.Connected {
			if err := clipboard.WriteAll(m.state.Address); err != nil {
				m.statusMessage = "Failed to copy to clipboard"
			} else {
				m.statusMessage = "Address copied to clipboard!"
			}
			cmds = append(cmds, clearStatusAfter(2*time.Second))
		}
	case "o":
		if m.state.Connected {
			if url := explorerAddressURL(m.state.ChainID, m.state.Address); url != "" {
				if err := openBrowser(url); err != nil {
					m.statusMessage = fmt.Sprintf("Failed to open browser: %v", err)
				} else {
					m.statusMessage = "Opened in browser"
				}
				cmds = append(cmds, clearStatusAfter(2*time.Second))
			}
		}
	case "g":
		m.showGraph = !m.showGraph
	}

	return m, tea.Batch(cmds...)
}

func (m model) handleSendKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg.String() {
	case "esc":
		m.sending = false
		m.estimate = nil
		if m.flow != nil {
			m.flow.Cancel()
		}
		return m, nil

	case "tab", "shift+tab", "up", "down":
		if msg.String() == "shift+tab" || msg.String() == "up" {
			m.focusIdx--
		} else {
			m.focusIdx++
		}
		if m.focusIdx < 0 {
			m.focusIdx = len(m.sendInputs) - 1
		}
		if m.focusIdx >= len(m.sendInputs) {
			m.focusIdx = 0
		}
		for i := range m.sendInputs {
			if i == m.focusIdx {
				cmds = append(cmds, m.sendInputs[i].Focus())
			} else {
				m.sendInputs[i].Blur()
			}
		}
		return m, tea.Batch(cmds...)

	case "enter":
		if m.focusIdx < len(m.sendInputs)-1 {
			m.sendInputs[m.focusIdx].Blur()
			m.focusIdx++
			cmds = append(cmds, m.sendInputs[m.focusIdx].Focus())
			return m, tea.Batch(cmds...)
		}
		to := m.sendInputs[fieldRecipient].Value()
		amount := m.sendInputs[fieldAmount].Value()
		if err := transfer.ValidateInputs(to, amount); err != nil {
			_, msg := transfer.Classify(err)
			m.statusMessage = msg
			cmds = append(cmds, clearStatusAfter(2*time.Second))
			return m, tea.Batch(cmds...)
		}
		m.submitting = true
		m.progressVal = 0
		m.flow.Cancel()
		ctx, cancel := context.WithTimeout(context.Background(),
			time.Duration(m.cfg.ConfirmTimeoutSeconds)*time.Second)
		progressCh, resultCh := m.flow.Submit(ctx, to, amount)
		m.progressCh = progressCh
		m.resultCh = watchResult(resultCh, cancel)
		cmds = append(cmds, waitForProgress(m.progressCh))
		cmds = append(cmds, waitForResult(m.resultCh))
		cmds = append(cmds, m.spinner.Tick)
		return m, tea.Batch(cmds...)
	}

	var cmd tea.Cmd
	m.sendInputs[m.focusIdx], cmd = m.sendInputs[m.focusIdx].Update(msg)
	cmds = append(cmds, cmd)
	if m.flow != nil {
		m.flow.NoteEdit(m.sendInputs[fieldRecipient].Value(), m.sendInputs[fieldAmount].Value())
	}
	return m, tea.Batch(cmds...)
}

func (m model) handleNetworkKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		m.pickingNetwork = false
	case "up", "k":
		if m.networkIdx > 0 {
			m.networkIdx--
		}
	case "down", "j":
		if m.networkIdx < len(m.networkList)-1 {
			m.networkIdx++
		}
	case "enter":
		target := m.networkList[m.networkIdx]
		m.pickingNetwork = false
		if target.ChainID == m.state.ChainID {
			return m, nil
		}
		m.switching = true
		return m, tea.Batch(doSwitchNetwork(m.sync, target.ChainID), m.spinner.Tick)
	}
	return m, nil
}

func (m model) handleHistoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg.String() {
	case "q", "esc":
		m.showHistory = false
	case "up", "k":
		if m.histIdx > 0 {
			m.histIdx--
		}
	case "down", "j":
		if m.histIdx < len(m.histEntries)-1 {
			m.histIdx++
		}
	case "r":
		if m.state.Connected {
			m.histLoading = true
			cmds = append(cmds, fetchHistory(m.hist, m.state.Address, m.state.ChainID), m.spinner.Tick)
		}
	case "o":
		if len(m.histEntries) > m.histIdx {
			base := networks.ExplorerBase(m.state.ChainID)
			if base == "" {
				m.statusMessage = "No explorer known for this chain"
				cmds = append(cmds, clearStatusAfter(2*time.Second))
				break
			}
			url := explorerTxURL(base, m.histEntries[m.histIdx].Hash)
			if err := openBrowser(url); err != nil {
				m.statusMessage = fmt.Sprintf("Failed to open browser: %v", err)
			} else {
				m.statusMessage = "Opened in browser"
			}
			cmds = append(cmds, clearStatusAfter(2*time.Second))
		}
	}
	return m, tea.Batch(cmds...)
}

func clearStatusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}

// watchResult forwards the single terminal result and releases the
// confirmation timeout once it lands.
func watchResult(in <-chan transfer.Result, done func()) <-chan transfer.Result {
	out := make(chan transfer.Result, 1)
	go func() {
		defer close(out)
		defer done()
		for r := range in {
			out <- r
		}
	}()
	return out
}
