package tui

import (
	"fmt"
	"os"

	"evmwallet/pkg/config"
	"evmwallet/pkg/history"
	"evmwallet/pkg/wallet"

	tea "github.com/charmbracelet/bubbletea"
)

func Start(s *wallet.Synchronizer, hist *history.Client, cfg config.Config, version string) {
	Version = version
	p := tea.NewProgram(
		initialModel(s, hist, cfg),
		tea.WithAltScreen(),
	)

	if _, err := p.Run(); err != nil {
		fmt.Printf("Alas, there's been an error: %v", err)
		os.Exit(1)
	}
}
