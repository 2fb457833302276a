package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/studyflow/internal/shared"
	"github.com/desertthunder/studyflow/internal/ui"
)

// TUI launches the interactive feed browser.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Logs go to a file so they don't tear the terminal rendering.
	fileLogger, err := shared.NewFileLogger(r.config.Log.TUIFile)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, shared.ParseLogLevel(r.config.Log.Level))
	r.SetLogger(fileLogger)

	svc, err := r.connect()
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, svc.Posts, svc.Posts, cmd.String("community"), fileLogger)
	if _, err := tea.NewProgram(model, tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
