package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"evmwallet/pkg/models"
	"evmwallet/pkg/networks"
	"evmwallet/pkg/utils"
	"evmwallet/pkg/wallet"

	"time"
)

func (m model) View() string {
	if m.showHelp {
		return m.viewHelp()
	}

	if m.lastResult != nil {
		return m.viewResult()
	}

	if m.submitting {
		return m.viewSubmitting()
	}

	if m.sending {
		return m.viewSend()
	}

	if m.pickingNetwork {
		return m.viewNetworks()
	}

	if m.showHistory {
		return m.viewHistory()
	}

	return m.viewMain()
}

func (m model) viewMain() string {
	netName := networks.Name(m.state.ChainID)
	title := "EVM Wallet"
	if m.state.Connected {
		title = fmt.Sprintf("EVM Wallet - %s", netName)
	}
	header := titleStyle.Render(title)

	var statusLine string
	switch m.status {
	case wallet.StatusConnected:
		badge := infoStyle.Render("● Connected")
		if networks.IsTestnet(m.state.ChainID) {
			badge += warnStyle.Render("  [testnet]")
		}
		statusLine = badge
	case wallet.StatusConnecting:
		statusLine = m.spinner.View() + " Connecting..."
	default:
		statusLine = subtleStyle.Render("○ Disconnected")
	}

	var body string
	if m.state.Connected {
		netStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(networks.Color(m.state.ChainID)))
		addr := fmt.Sprintf("Address: %s", utils.ShortenAddress(m.state.Address))
		chain := fmt.Sprintf("Network: %s", netStyle.Render(netName))

		balStr := fmt.Sprintf("%s %s", m.state.Balance, nativeSymbol(m.state.ChainID))
		balance := balanceStyle.Render(balStr)

		parts := []string{addr, chain, "", balance}
		if m.showGraph {
			parts = append(parts, "", m.viewBalanceGraph())
		}
		body = lipgloss.JoinVertical(lipgloss.Center, parts...)
	} else {
		body = subtleStyle.Render("No wallet connected. Press c to connect.")
	}

	footer := subtleStyle.Render(m.footerHints())
	lastUpd := subtleStyle.Render(fmt.Sprintf("Last updated: %s", m.lastUpdate.Format("15:04:05")))

	sections := []string{header, statusLine, "", body, "", lastUpd, footer}
	if m.statusMessage != "" {
		sections = append(sections, infoStyle.Render(m.statusMessage))
	}
	block := lipgloss.JoinVertical(lipgloss.Center, sections...)

	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, boxStyle.Render(block))
	}
	return boxStyle.Render(block)
}

func (m model) footerHints() string {
	if !m.state.Connected {
		return "c: connect • ?: help • q: quit"
	}
	return "s: send • t: history • n: network • r: refresh • d: disconnect • ?: help • q: quit"
}

func (m model) viewBalanceGraph() string {
	if len(m.balanceHistory) < 2 {
		return subtleStyle.Render("Not enough data to draw graph.")
	}
	width := m.width - 20
	if width < 10 {
		width = 10
	}
	if width > 70 {
		width = 70
	}
	return asciigraph.Plot(m.balanceHistory,
		asciigraph.Height(8),
		asciigraph.Width(width),
		asciigraph.Caption(fmt.Sprintf("Balance (%s)", nativeSymbol(m.state.ChainID))),
	)
}

func (m model) viewNetworks() string {
	header := titleStyle.Render("Switch Network")
	rows := ""
	for i, d := range m.networkList {
		cursor := "  "
		if i == m.networkIdx {
			cursor = "> "
		}
		name := lipgloss.NewStyle().Foreground(lipgloss.Color(d.Color)).Render(d.Name)
		marker := ""
		if d.ChainID == m.state.ChainID {
			marker = infoStyle.Render(" (current)")
		}
		if d.Testnet {
			marker += subtleStyle.Render(" [testnet]")
		}
		rows += fmt.Sprintf("%s%s%s\n", cursor, name, marker)
	}
	content := boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, header, "\n", rows))
	footer := subtleStyle.Render("enter: switch • q/esc: back")
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center, content, "\n", footer))
}

func (m model) viewSend() string {
	labels := []string{"Recipient", "Amount"}
	var inputs []string
	for i, label := range labels {
		inputs = append(inputs, fmt.Sprintf("%-10s %s", label, m.sendInputs[i].View()))
	}

	estLine := subtleStyle.Render("Est. fee: —")
	if m.estimate != nil {
		switch {
		case m.estimate.Err != nil:
			estLine = errStyle.Render("Est. fee: unavailable")
		case m.estimate.Cost != nil:
			estLine = fmt.Sprintf("Est. fee: %s %s", m.estimate.Eth, nativeSymbol(m.state.ChainID))
		}
	}

	return lipgloss.Place(
		m.width, m.height, lipgloss.Center, lipgloss.Center,
		boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render(fmt.Sprintf("Send %s", nativeSymbol(m.state.ChainID))),
			"\n",
			strings.Join(inputs, "\n"),
			"\n",
			estLine,
			"\n",
			subtleStyle.Render("Enter to next/send • Esc to cancel"),
		)),
	)
}

func (m model) viewSubmitting() string {
	return lipgloss.Place(
		m.width, m.height, lipgloss.Center, lipgloss.Center,
		boxStyle.Render(lipgloss.JoinVertical(lipgloss.Center,
			titleStyle.Render("Broadcasting Transaction"),
			"\n",
			m.spinner.View()+" Waiting for confirmation...",
			"\n",
			m.bar.ViewAs(m.progressVal/100),
		)),
	)
}

func (m model) viewResult() string {
	res := m.lastResult
	var lines []string
	if res.Success() {
		lines = append(lines,
			titleStyle.Render("Transaction Confirmed"),
			"\n",
			infoStyle.Render(fmt.Sprintf("Included in block %s", utils.AddCommas(fmt.Sprintf("%d", res.Receipt.BlockNumber)))),
			fmt.Sprintf("Hash: %s", utils.TruncateString(res.Hash, 24)),
		)
	} else {
		lines = append(lines,
			titleStyle.Render("Transaction Failed"),
			"\n",
			errStyle.Render(res.Message),
		)
		if res.Hash != "" {
			lines = append(lines, fmt.Sprintf("Hash: %s", utils.TruncateString(res.Hash, 24)))
		}
	}
	footer := "any key: close"
	if res.Hash != "" && networks.ExplorerBase(m.state.ChainID) != "" {
		footer = "o: view on explorer • any key: close"
	}
	lines = append(lines, "\n", subtleStyle.Render(footer))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
		boxStyle.Render(lipgloss.JoinVertical(lipgloss.Center, lines...)))
}

func (m model) viewHistory() string {
	header := titleStyle.Render(fmt.Sprintf("Recent Transactions - %s", networks.Name(m.state.ChainID)))

	var body string
	switch {
	case m.histLoading:
		body = m.spinner.View() + " Fetching history..."
	case len(m.histEntries) == 0:
		body = subtleStyle.Render("No transactions found")
	default:
		headers := tableHeaderStyle.Render(fmt.Sprintf("%-3s %-14s %-14s %-10s %s", "", "VALUE", "WITH", "AGE", ""))
		rows := ""
		now := time.Now()
		for i, e := range m.histEntries {
			cursor := "  "
			if i == m.histIdx {
				cursor = "> "
			}
			rows += cursor + m.historyRow(e, now) + "\n"
		}
		body = lipgloss.JoinVertical(lipgloss.Left, headers, rows)
	}

	content := boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, header, "\n", body))
	footer := subtleStyle.Render("o: open in explorer • r: refresh • q/esc: back")
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center, content, "\n", footer))
}

func (m model) historyRow(e models.HistoryEntry, now time.Time) string {
	arrow := directionArrow(e.Direction)
	style := infoStyle
	if e.Direction == models.DirectionSend {
		style = warnStyle
	}
	value := fmt.Sprintf("%s %s", e.Value, nativeSymbol(m.state.ChainID))
	with := utils.ShortenAddress(counterparty(e, m.state.Address))
	failed := ""
	if e.Failed {
		failed = errStyle.Render(" FAILED")
	}
	return fmt.Sprintf("%s %-14s %-14s %-10s%s",
		style.Render(arrow), value, with, formatAge(e.Timestamp, now), failed)
}

func (m model) viewHelp() string {
	rows := []string{
		"c        Connect wallet",
		"d        Disconnect",
		"r        Refresh balance",
		"s        Send transaction",
		"t        Transaction history",
		"n        Switch network",
		"y        Copy address to clipboard",
		"o        Open address in explorer",
		"g        Toggle balance graph",
		"?        Toggle this help",
		"q        Quit",
	}
	content := boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(fmt.Sprintf("EVM Wallet %s - Keys", Version)),
		"\n",
		strings.Join(rows, "\n"),
	))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}
