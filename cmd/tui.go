package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/librec/internal/engine"
	"github.com/desertthunder/librec/internal/shared"
	"github.com/desertthunder/librec/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive reconciliation UI.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if err := r.restoreSession(); err != nil {
		return err
	}

	library, err := r.loadLibrary()
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/librec-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	notifier := ui.NewNotifier()
	eng := engine.New(r.client, library, notifier, fileLogger)
	r.gateway.OnLogout(eng.HandleLogout)

	model := ui.NewModel(ctx, eng, notifier)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return r.saveLibrary(library)
}
