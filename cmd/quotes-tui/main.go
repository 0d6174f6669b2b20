// Package main runs the quote widget in the terminal.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jsamuelsen/quotesync/internal/adapters/tui"
	"github.com/jsamuelsen/quotesync/internal/platform/config"
	"github.com/jsamuelsen/quotesync/internal/wire"
)

// statusBuffer bounds how many feed messages wait for the UI.
const statusBuffer = 16

// defaultLogPath is used when no log file is configured.
const defaultLogPath = "./logs/quotes-tui.log"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The terminal belongs to the UI, so logs only go to a file.
	cfg, err := config.FromEnvironment(config.WithOverrides(map[string]any{"log.format": "json"}))
	if err != nil {
		return err
	}

	cfg.App.Name += "-tui"
	if !cfg.Log.File.Enabled || cfg.Log.File.Path == "" {
		cfg.Log.File.Enabled = true
		cfg.Log.File.Path = defaultLogPath
	}

	logger := wire.NewLogger(cfg, io.Discard)
	slog.SetDefault(logger)

	widget, err := wire.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := widget.Close(); closeErr != nil {
			logger.Error("widget shutdown error", slog.Any("error", closeErr))
		}
	}()

	status, unsubscribe := widget.Feed.Subscribe(statusBuffer)
	defer unsubscribe()

	if err := widget.Start(ctx); err != nil {
		return err
	}

	logger.Info("terminal UI started", slog.String("storage", widget.Storage.Name()))

	return tui.Run(tui.Options{
		Context: ctx,
		Service: widget.Service,
		Status:  status,
	})
}
