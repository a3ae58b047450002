package tui

import (
	"time"

	"evmwallet/pkg/config"
	"evmwallet/pkg/history"
	"evmwallet/pkg/models"
	"evmwallet/pkg/networks"
	"evmwallet/pkg/transfer"
	"evmwallet/pkg/wallet"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Version is set by Start()
var Version = "dev"

// --- Messages ---

type clearStatusMsg struct{}
type uiTickMsg time.Time
type estimateMsg transfer.Estimate
type progressFrameMsg float64
type progressDoneMsg struct{}
type submitResultMsg transfer.Result
type switchDoneMsg struct {
	chainID int64
	err     error
}
type historyMsg struct {
	address string
	chainID int64
	entries []models.HistoryEntry
}

const (
	fieldRecipient = iota
	fieldAmount
)

// maxBalanceSamples bounds the sparkline buffer; one heartbeat per sample.
const maxBalanceSamples = 120

// --- Model ---

type model struct {
	sync *wallet.Synchronizer
	sub  wallet.Subscriber
	hist *history.Client
	cfg  config.Config

	width  int
	height int

	status        wallet.Status
	state         models.WalletState
	lastUpdate    time.Time
	statusMessage string
	spinner       spinner.Model

	balanceHistory []float64
	showGraph      bool

	pickingNetwork bool
	networkIdx     int
	networkList    []networks.Descriptor
	switching      bool

	sending    bool
	sendInputs []textinput.Model
	focusIdx   int
	flow       *transfer.Flow
	estimate   *transfer.Estimate

	submitting  bool
	bar         progress.Model
	progressVal float64
	resultCh    <-chan transfer.Result
	progressCh  <-chan float64
	lastResult  *transfer.Result

	showHistory bool
	histLoading bool
	histEntries []models.HistoryEntry
	histIdx     int

	showHelp bool
}

func initialModel(s *wallet.Synchronizer, hist *history.Client, cfg config.Config) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	inputs := make([]textinput.Model, 2)
	for i := range inputs {
		inputs[i] = textinput.New()
		inputs[i].Width = 46
	}
	inputs[fieldRecipient].Placeholder = "0x..."
	inputs[fieldAmount].Placeholder = "Amount (ETH)"

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 40

	return model{
		sync:        s,
		sub:         s.Subscribe(),
		hist:        hist,
		cfg:         cfg,
		status:      s.Status(),
		state:       s.State(),
		spinner:     sp,
		sendInputs:  inputs,
		bar:         bar,
		networkList: networks.All(),
		lastUpdate:  time.Now(),
	}
}

func (m model) Init() tea.Cmd {
	var cmds []tea.Cmd

	// Subscribe to wallet events
	cmds = append(cmds, listenForWallet(m.sub))

	m.spinner.Tick()
	cmds = append(cmds, m.spinner.Tick)

	cmds = append(cmds, tea.Tick(time.Second, func(t time.Time) tea.Msg { return uiTickMsg(t) }))
	return tea.Batch(cmds...)
}
