package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kirillkom/knowledge-assistant/internal/adapters/tui"
	"github.com/kirillkom/knowledge-assistant/internal/bootstrap"
	"github.com/kirillkom/knowledge-assistant/internal/config"
	"github.com/kirillkom/knowledge-assistant/internal/observability/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "assistant: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// stdout belongs to the terminal UI.
	logger, closer := logging.NewFileLogger("assistant", cfg.LogLevel, cfg.LogFile)
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prompter := tui.NewPrompter()
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		Logger:    logger,
		Confirmer: prompter,
		Service:   "assistant",
	})
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()

	if err := tui.Run(ctx, app.Shell, app.Files, app.Backend, prompter); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}
