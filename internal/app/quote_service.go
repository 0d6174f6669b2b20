// Package app contains the stateful components of the quote widget and the
// QuoteService facade the transports talk to.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// defaultPublishTimeout bounds the background post of a newly added quote.
const defaultPublishTimeout = 10 * time.Second

// QuoteService orchestrates the widget use cases. Transports hold only this type.
type QuoteService struct {
	store      *QuoteStore
	categories *CategoryIndex
	selection  *SelectionPolicy
	codec      Codec
	sync       *SyncEngine
	remote     ports.RemoteQuoteSource
	notifier   ports.StatusNotifier
	logger     *slog.Logger

	publishTimeout time.Duration
	publishing     sync.WaitGroup
}

// QuoteServiceConfig contains dependencies for the quote service.
type QuoteServiceConfig struct {
	Store      *QuoteStore
	Categories *CategoryIndex
	Selection  *SelectionPolicy
	Sync       *SyncEngine

	// Remote receives newly added quotes. Optional.
	Remote ports.RemoteQuoteSource

	Notifier ports.StatusNotifier
	Logger   *slog.Logger

	PublishTimeout time.Duration
}

// NewQuoteService creates the facade.
func NewQuoteService(cfg QuoteServiceConfig) *QuoteService {
	if cfg.Store == nil || cfg.Categories == nil || cfg.Selection == nil || cfg.Sync == nil {
		panic("app: QuoteService requires Store, Categories, Selection and Sync")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	timeout := cfg.PublishTimeout
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}

	return &QuoteService{
		store:          cfg.Store,
		categories:     cfg.Categories,
		selection:      cfg.Selection,
		sync:           cfg.Sync,
		remote:         cfg.Remote,
		notifier:       cfg.Notifier,
		logger:         logger.With(slog.String("component", "app.QuoteService")),
		publishTimeout: timeout,
	}
}

// Bootstrap loads the collection and the persisted filter concurrently.
func (s *QuoteService) Bootstrap(ctx context.Context) (domain.Collection, string, error) {
	collection, selected, err := loadPair(ctx,
		func(ctx context.Context) (domain.Collection, error) {
			return s.store.Load(ctx), nil
		},
		func(ctx context.Context) (string, error) {
			return s.categories.Restore(ctx), nil
		},
	)
	if err != nil {
		return domain.Collection{}, "", err
	}

	s.logger.InfoContext(ctx, "quotes loaded",
		slog.Int("size", collection.Len()),
		slog.String("filter", selected),
	)

	return collection, selected, nil
}

// Random picks a fresh quote under the active filter.
func (s *QuoteService) Random(ctx context.Context) (domain.Quote, bool) {
	return s.selection.PickQuote(ctx, s.store.Snapshot().Items, s.categories.Selected())
}

// Current returns the last shown quote while it is still in the collection
// and visible under the active filter, otherwise a fresh pick.
func (s *QuoteService) Current(ctx context.Context) (domain.Quote, bool) {
	filter := s.categories.Selected()

	if last, ok := s.selection.LastShown(ctx); ok && last.Matches(filter) {
		for _, q := range s.store.Snapshot().Items {
			if q == last {
				return last, true
			}
		}
	}

	return s.Random(ctx)
}

// List returns the collection in display order.
func (s *QuoteService) List() []domain.Quote {
	return s.store.Snapshot().Items
}

// Categories returns the category list and the active filter.
func (s *QuoteService) Categories() ([]string, string) {
	return s.categories.Categories(), s.categories.Selected()
}

// SetFilter persists the active filter. Unknown categories are accepted and
// simply match nothing.
func (s *QuoteService) SetFilter(ctx context.Context, category string) error {
	return s.categories.SetSelection(ctx, category)
}

// Add validates, stores and publishes a quote. Publishing happens in the
// background and its outcome never changes local state.
func (s *QuoteService) Add(ctx context.Context, text, category string) (domain.Quote, error) {
	q, err := s.store.Add(ctx, domain.Quote{Text: text, Category: category})
	if err != nil {
		s.notify(ctx, ports.StatusAdd, ports.StatusError, addFailureMessage(err))

		return domain.Quote{}, err
	}

	s.notify(ctx, ports.StatusAdd, ports.StatusSuccess, "Quote added.")
	s.publish(ctx, q)

	return q, nil
}

func addFailureMessage(err error) string {
	if domain.IsValidation(err) {
		return "Please enter both a quote and a category."
	}

	return "Could not save the quote."
}

func (s *QuoteService) publish(ctx context.Context, q domain.Quote) {
	if s.remote == nil {
		return
	}

	ctx = context.WithoutCancel(ctx)

	s.publishing.Go(func() {
		ctx, cancel := context.WithTimeout(ctx, s.publishTimeout)
		defer cancel()

		if err := s.remote.PublishQuote(ctx, q); err != nil {
			s.logger.WarnContext(ctx, "publishing quote failed", slog.Any("error", err))

			return
		}

		s.logger.DebugContext(ctx, "quote published", slog.String("category", q.Category))
	})
}

// Wait blocks until background publishes have finished.
func (s *QuoteService) Wait() {
	s.publishing.Wait()
}

// Export renders the collection as the portable document.
func (s *QuoteService) Export(ctx context.Context) ([]byte, error) {
	raw, err := s.codec.Export(s.store.Snapshot().Items)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, ports.StatusExport, ports.StatusSuccess, "Quotes exported.")

	return raw, nil
}

// Import parses raw and appends every valid entry. It returns how many were added.
func (s *QuoteService) Import(ctx context.Context, raw []byte) (int, error) {
	quotes, err := s.codec.Import(raw)
	if err != nil {
		s.notify(ctx, ports.StatusImport, ports.StatusError, importFailureMessage(err))

		return 0, err
	}

	if _, err := s.store.Append(ctx, quotes); err != nil {
		s.notify(ctx, ports.StatusImport, ports.StatusError, "Could not save the imported quotes.")

		return 0, err
	}

	s.notify(ctx, ports.StatusImport, ports.StatusSuccess, fmt.Sprintf("Imported %d quote(s).", len(quotes)))

	return len(quotes), nil
}

func importFailureMessage(err error) string {
	switch {
	case domain.IsDecode(err):
		return "Import failed: the file is not valid JSON."
	case domain.IsValidation(err):
		return "Import failed: no quotes with text and category were found."
	default:
		return "Import failed."
	}
}

// SyncNow runs a cycle immediately. It fails with a conflict when one is running.
func (s *QuoteService) SyncNow(ctx context.Context) (SyncReport, error) {
	return s.sync.RunCycle(ctx)
}

// SyncStatus returns the engine state and the last report, if any.
func (s *QuoteService) SyncStatus() (SyncState, SyncReport, bool) {
	report, ok := s.sync.LastReport()

	return s.sync.State(), report, ok
}

func (s *QuoteService) notify(ctx context.Context, kind ports.StatusKind, level ports.StatusLevel, message string) {
	if s.notifier == nil {
		return
	}

	s.notifier.Notify(ctx, ports.Status{Kind: kind, Level: level, Message: message, At: time.Now()})
}
