// Command service serves the quote widget page and its JSON API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jsamuelsen/quotesync/internal/adapters/http"
	"github.com/jsamuelsen/quotesync/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotesync/internal/platform/config"
	"github.com/jsamuelsen/quotesync/internal/platform/telemetry"
	"github.com/jsamuelsen/quotesync/internal/ports"
	"github.com/jsamuelsen/quotesync/internal/wire"
)

// Set with -ldflags "-X main.Version=... -X main.Commit=... -X main.BuildTime=...".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.FromEnvironment()
	if err != nil {
		return err
	}

	logger := wire.NewLogger(cfg, os.Stdout)
	slog.SetDefault(logger)

	logger.Info("starting quote widget",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
	)

	tel, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer logOnError(logger, "flushing telemetry", func() error { return tel.Shutdown(ctx) })

	widget, err := wire.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer logOnError(logger, "closing widget", widget.Close)

	health := ports.NewHealthRegistry()
	if err := widget.RegisterHealth(health); err != nil {
		return err
	}

	if err := widget.Start(ctx); err != nil {
		return err
	}

	server := http.New(&cfg.Server, logger)
	http.SetupRouter(server.Engine(), http.NewDefaultRouterConfig(
		logger,
		&cfg.App,
		handlers.NewHealthHandler(health, handlers.NewBuildInfo(Version, Commit, BuildTime)).WithSync(widget.Engine),
		handlers.NewQuoteHandler(widget.Service, widget.Feed),
	))

	serveErr := server.Start()

	// A bind failure is already waiting on the channel.
	select {
	case err := <-serveErr:
		return err
	default:
	}

	logger.Info("widget ready",
		slog.String("addr", server.Addr()),
		slog.String("storage", widget.Storage.Name()),
		slog.Bool("sync", cfg.Sync.Enabled),
		slog.String("remote", cfg.Services.Remote.BaseURL),
	)

	select {
	case err, ok := <-serveErr:
		if ok && err != nil {
			return err
		}

		return errors.New("server stopped unexpectedly")
	case <-ctx.Done():
	}

	logger.Info("shutting down", slog.Duration("grace", cfg.Server.ShutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("draining requests: %w", err)
	}

	return nil
}

func logOnError(logger *slog.Logger, what string, fn func() error) {
	if err := fn(); err != nil {
		logger.Error(what+" failed", slog.Any("error", err))
	}
}
