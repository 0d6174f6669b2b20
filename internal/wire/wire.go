// Package wire assembles the quote widget from configuration. Both the HTTP
// service and the terminal UI start from Build.
package wire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jsamuelsen/quotesync/internal/adapters/clients"
	"github.com/jsamuelsen/quotesync/internal/adapters/clients/acl"
	"github.com/jsamuelsen/quotesync/internal/adapters/storage"
	"github.com/jsamuelsen/quotesync/internal/app"
	"github.com/jsamuelsen/quotesync/internal/platform/config"
	"github.com/jsamuelsen/quotesync/internal/platform/metrics"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// Widget holds the wired application components.
type Widget struct {
	Storage   storage.Store
	Remote    *acl.QuoteClient
	Feed      *app.StatusFeed
	Engine    *app.SyncEngine
	Service   *app.QuoteService
	Scheduler *app.Scheduler

	logger *slog.Logger
}

// Build opens storage, creates the remote client and wires the application
// layer. The caller owns the result and must call Close.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Widget, error) {
	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	httpClient, err := clients.New(&clients.Config{
		BaseURL:     cfg.Services.Remote.BaseURL,
		ServiceName: cfg.Services.Remote.Name,
		Timeout:     cfg.Client.Timeout,
		Retry:       cfg.Client.Retry,
		Circuit:     cfg.Client.CircuitBreaker,
		Transport:   cfg.Client.Transport,
		Logger:      logger,
	})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("creating HTTP client: %w", err), store.Close())
	}

	remote := acl.NewQuoteClient(acl.QuoteClientConfig{
		Client:    httpClient,
		ReadPath:  cfg.Services.Remote.ReadPath,
		WritePath: cfg.Services.Remote.WritePath,
		Logger:    logger,
	})

	syncMetrics, err := metrics.NewSyncMetrics(nil)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("registering sync metrics: %w", err), store.Close())
	}

	feed := app.NewStatusFeed(0, logger)

	quotes := app.NewQuoteStore(app.QuoteStoreConfig{Storage: store, Logger: logger})
	categories := app.NewCategoryIndex(app.CategoryIndexConfig{Store: quotes, Storage: store, Logger: logger})

	// The last shown quote only lives for the process, like a browser session.
	selection := app.NewSelectionPolicy(app.SelectionPolicyConfig{Session: storage.NewMemory(), Logger: logger})

	engine := app.NewSyncEngine(app.SyncEngineConfig{
		Store:      quotes,
		Categories: categories,
		Remote:     remote,
		Notifier:   feed,
		Observer:   syncMetrics,
		Limit:      cfg.Services.Remote.Limit,
		Logger:     logger,
	})

	service := app.NewQuoteService(app.QuoteServiceConfig{
		Store:      quotes,
		Categories: categories,
		Selection:  selection,
		Sync:       engine,
		Remote:     remote,
		Notifier:   feed,
		Logger:     logger,
	})

	w := &Widget{
		Storage: store,
		Remote:  remote,
		Feed:    feed,
		Engine:  engine,
		Service: service,
		logger:  logger,
	}

	if cfg.Sync.Enabled {
		w.Scheduler = app.NewScheduler(engine, cfg.Sync.Interval, logger)
	}

	return w, nil
}

// Start loads persisted state and, when enabled, begins scheduled syncing.
func (w *Widget) Start(ctx context.Context) error {
	if _, _, err := w.Service.Bootstrap(ctx); err != nil {
		return fmt.Errorf("loading quotes: %w", err)
	}

	if w.Scheduler != nil {
		w.Scheduler.Start(ctx)
	}

	return nil
}

// RegisterHealth adds the storage backend as a critical check and the remote
// source as an optional one, since the widget keeps working offline.
func (w *Widget) RegisterHealth(registry ports.HealthRegistry) error {
	if err := registry.Register(w.Storage); err != nil {
		return fmt.Errorf("registering storage health check: %w", err)
	}

	if err := registry.RegisterOptional(w.Remote); err != nil {
		return fmt.Errorf("registering remote health check: %w", err)
	}

	return nil
}

// Close stops syncing, waits for background publishes and closes storage.
func (w *Widget) Close() error {
	if w.Scheduler != nil {
		w.Scheduler.Stop()
	}

	w.Service.Wait()

	if err := w.Storage.Close(); err != nil {
		return fmt.Errorf("closing storage: %w", err)
	}

	w.logger.Debug("widget closed")

	return nil
}
