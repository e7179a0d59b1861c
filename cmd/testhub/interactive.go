package main

import (
	"fmt"

	"testhub/cmd/testhub/ui"
	"testhub/internal/logging"
	"testhub/internal/upload"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var (
	startPath string
	startDir  string
)

// runInteractive starts the terminal interface.
func runInteractive(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	styles := ui.DefaultStyles()
	if cfg.IsDark() {
		styles = ui.NewStyles(ui.DarkTheme())
	}

	client := upload.NewClient(cfg.EndpointURL())
	shell := ui.NewShell(cfg, client, styles, startPath)
	shell.SetStartDir(startDir)

	logging.Boot("starting interactive session against %s", client.Endpoint())
	timer := logging.StartTimer(logging.CategoryBoot, "interactive session")
	defer timer.Stop()

	p := tea.NewProgram(shell, tea.WithAltScreen())
	final, err := p.Run()
	if s, ok := final.(ui.Shell); ok {
		s.Close()
	} else {
		shell.Close()
	}
	if err != nil {
		return fmt.Errorf("interactive session failed: %w", err)
	}
	return nil
}
