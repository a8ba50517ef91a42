package main

import (
	"fmt"
	"os"

	"github.com/fentz26/tasklet/internal/logging"
	"github.com/fentz26/tasklet/internal/tui"
	"github.com/spf13/cobra"
)

func tuiCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Launch the interactive TUI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, e)
		},
	}
}

func runTUI(cmd *cobra.Command, e *env) error {
	if !isInteractive(os.Stdin) {
		return fmt.Errorf("the TUI needs an interactive terminal; see 'tasklet --help' for commands")
	}

	// Logs would corrupt the screen, so they go to a file while the TUI runs.
	if err := os.MkdirAll(e.cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	logFile, err := os.OpenFile(e.cfg.LogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	if err := logging.Init(e.cfg.Log.Level, "json", logFile); err != nil {
		return err
	}

	app := tui.New(cmd.Context(), e.tasks, tui.Options{
		ExportDir:    e.cfg.Export.Dir,
		ExportFormat: e.cfg.Export.Format,
	})
	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
