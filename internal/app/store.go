package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// QuoteStore owns the quote collection and mirrors it to persistent storage.
// Every mutation is persisted before it becomes visible, so a failed write
// leaves both the memory copy and the stored copy unchanged.
type QuoteStore struct {
	mu         sync.RWMutex
	storage    ports.KeyValueStore
	logger     *slog.Logger
	collection domain.Collection
}

// QuoteStoreConfig contains dependencies for the quote store.
type QuoteStoreConfig struct {
	// Storage is required.
	Storage ports.KeyValueStore
	Logger  *slog.Logger
}

// NewQuoteStore creates an empty store. Call Load before serving reads.
func NewQuoteStore(cfg QuoteStoreConfig) *QuoteStore {
	if cfg.Storage == nil {
		panic("app: QuoteStore requires Storage")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &QuoteStore{
		storage: cfg.Storage,
		logger:  logger.With(slog.String("component", "app.QuoteStore")),
	}
}

// Load replaces the in-memory collection with the persisted one.
// A missing, unreadable or corrupt value yields the seed collection; Load never fails.
func (s *QuoteStore) Load(ctx context.Context) domain.Collection {
	items := s.readPersisted(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.collection = s.collection.WithItems(items)

	return s.collection.Clone()
}

func (s *QuoteStore) readPersisted(ctx context.Context) []domain.Quote {
	raw, err := s.storage.Get(ctx, ports.KeyQuotes)
	if domain.IsNotFound(err) {
		s.logger.DebugContext(ctx, "no persisted quotes, using seed collection")

		return domain.SeedQuotes()
	}

	if err != nil {
		s.logger.WarnContext(ctx, "reading persisted quotes failed, using seed collection", slog.Any("error", err))

		return domain.SeedQuotes()
	}

	var items []domain.Quote
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.logger.WarnContext(ctx, "persisted quotes are corrupt, using seed collection",
			slog.Any("error", domain.NewDecodeError(ports.KeyQuotes, err)),
		)

		return domain.SeedQuotes()
	}

	if items == nil {
		return domain.SeedQuotes()
	}

	return items
}

// Save serializes c and overwrites the persisted collection.
// It does not touch the in-memory collection.
func (s *QuoteStore) Save(ctx context.Context, c domain.Collection) error {
	items := c.Items
	if items == nil {
		items = []domain.Quote{}
	}

	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encoding quotes: %w", err)
	}

	if err := s.storage.Set(ctx, ports.KeyQuotes, string(raw)); err != nil {
		return fmt.Errorf("saving quotes: %w", err)
	}

	return nil
}

// Snapshot returns a copy of the current collection.
func (s *QuoteStore) Snapshot() domain.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collection.Clone()
}

// Version returns the version of the current collection.
func (s *QuoteStore) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collection.Version
}

// Add validates and trims q, then appends it. The stored quote is returned.
func (s *QuoteStore) Add(ctx context.Context, q domain.Quote) (domain.Quote, error) {
	valid, err := domain.NewQuote(q.Text, q.Category)
	if err != nil {
		return domain.Quote{}, err
	}

	if _, err := s.Append(ctx, []domain.Quote{valid}); err != nil {
		return domain.Quote{}, err
	}

	return valid, nil
}

// Append adds quotes at the end without deduplication.
func (s *QuoteStore) Append(ctx context.Context, quotes []domain.Quote) (domain.Collection, error) {
	return s.Update(ctx, func(c domain.Collection) (domain.Collection, error) {
		return c.Append(quotes...), nil
	})
}

// Replace swaps the whole collection for c's items.
func (s *QuoteStore) Replace(ctx context.Context, items []domain.Quote) (domain.Collection, error) {
	return s.Update(ctx, func(c domain.Collection) (domain.Collection, error) {
		return c.WithItems(items), nil
	})
}

// Update runs fn against the current collection while holding the write lock,
// persists the result and only then makes it current. fn receives a copy.
func (s *QuoteStore) Update(
	ctx context.Context,
	fn func(domain.Collection) (domain.Collection, error),
) (domain.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.collection.Clone())
	if err != nil {
		return s.collection.Clone(), err
	}

	if next.Version <= s.collection.Version {
		next.Version = s.collection.Version + 1
	}

	if err := s.Save(ctx, next); err != nil {
		return s.collection.Clone(), err
	}

	s.collection = next

	s.logger.DebugContext(ctx, "collection updated",
		slog.Int("size", next.Len()),
		slog.Uint64("version", next.Version),
	)

	return next.Clone(), nil
}
