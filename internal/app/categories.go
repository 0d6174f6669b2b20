package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// CategoryIndex tracks the active category filter and caches the category
// list derived from the store, rebuilding it when the collection version moves.
type CategoryIndex struct {
	store   *QuoteStore
	storage ports.KeyValueStore
	logger  *slog.Logger

	mu         sync.Mutex
	selected   string
	categories []string
	version    uint64
	built      bool
}

// CategoryIndexConfig contains dependencies for the category index.
type CategoryIndexConfig struct {
	Store   *QuoteStore
	Storage ports.KeyValueStore
	Logger  *slog.Logger
}

// NewCategoryIndex creates an index with the "all" filter selected.
func NewCategoryIndex(cfg CategoryIndexConfig) *CategoryIndex {
	if cfg.Store == nil || cfg.Storage == nil {
		panic("app: CategoryIndex requires Store and Storage")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &CategoryIndex{
		store:    cfg.Store,
		storage:  cfg.Storage,
		logger:   logger.With(slog.String("component", "app.CategoryIndex")),
		selected: domain.FilterAll,
	}
}

// Restore reads the persisted selection. Stale values are kept as they are.
func (c *CategoryIndex) Restore(ctx context.Context) string {
	persisted, err := c.storage.Get(ctx, ports.KeySelectedCategory)

	present := err == nil
	if err != nil && !domain.IsNotFound(err) {
		c.logger.WarnContext(ctx, "reading selected category failed", slog.Any("error", err))
	}

	selected := domain.RestoreSelection(persisted, present)

	c.mu.Lock()
	c.selected = selected
	c.mu.Unlock()

	return selected
}

// Selected returns the active filter.
func (c *CategoryIndex) Selected() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.selected
}

// SetSelection persists value and makes it the active filter.
func (c *CategoryIndex) SetSelection(ctx context.Context, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return domain.NewValidationError("category", "must not be empty")
	}

	if err := c.storage.Set(ctx, ports.KeySelectedCategory, value); err != nil {
		return fmt.Errorf("saving selected category: %w", err)
	}

	c.mu.Lock()
	c.selected = value
	c.mu.Unlock()

	return nil
}

// Categories returns "all" followed by the distinct categories of the current collection.
func (c *CategoryIndex) Categories() []string {
	snapshot := c.store.Snapshot()

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.built || c.version != snapshot.Version {
		c.categories = domain.DeriveCategories(snapshot.Items)
		c.version = snapshot.Version
		c.built = true
	}

	out := make([]string, len(c.categories))
	copy(out, c.categories)

	return out
}

// Refresh forces the category list to be rebuilt from the store.
func (c *CategoryIndex) Refresh() []string {
	c.mu.Lock()
	c.built = false
	c.mu.Unlock()

	return c.Categories()
}
