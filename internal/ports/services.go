// Package ports defines interfaces for external dependencies.
// Ports are contracts that adapters implement, allowing the application layer
// to depend on abstractions rather than concrete implementations.
//
// Port Design Principles:
//   - Context as first parameter for cancellation and deadlines
//   - Return domain types, never external DTOs or infrastructure types
//   - Error returns use domain error types (ErrNotFound, ErrTransport, etc.)
//   - Keep interfaces small and focused
package ports

import (
	"context"
	"time"

	"github.com/jsamuelsen/quotesync/internal/domain"
)

// Storage keys shared by every KeyValueStore implementation.
const (
	// KeyQuotes holds the JSON array of the quote collection.
	KeyQuotes = "quotes"

	// KeySelectedCategory holds the active category filter as a plain string.
	KeySelectedCategory = "selectedCategory"

	// KeyLastShownQuote holds the JSON of the last displayed quote, or null.
	KeyLastShownQuote = "lastShownQuote"
)

// KeyValueStore persists string values by key.
// Both the durable store and the per-session store implement it.
type KeyValueStore interface {
	// Get returns the value stored under key.
	// Returns domain.ErrNotFound if the key has never been set or was removed.
	Get(ctx context.Context, key string) (string, error)

	// Set overwrites the value stored under key.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
}

// RemoteQuoteSource is the remote collection the sync engine reconciles with.
type RemoteQuoteSource interface {
	// FetchQuotes returns at most limit quotes from the remote snapshot,
	// already mapped to domain quotes in the remote category.
	// Returns domain.ErrTransport or domain.ErrDecode on failure.
	FetchQuotes(ctx context.Context, limit int) ([]domain.Quote, error)

	// PublishQuote sends a locally added quote to the remote source.
	// The remote response never changes local state.
	PublishQuote(ctx context.Context, quote domain.Quote) error
}

// StatusLevel classifies a status message for presentation.
type StatusLevel string

// Status levels.
const (
	StatusInfo    StatusLevel = "info"
	StatusSuccess StatusLevel = "success"
	StatusError   StatusLevel = "error"
)

// StatusKind names the user action or background task a status refers to.
type StatusKind string

// Status kinds emitted by the application layer.
const (
	StatusAdd    StatusKind = "add"
	StatusExport StatusKind = "export"
	StatusImport StatusKind = "import"
	StatusSync   StatusKind = "sync"
)

// Status is a transient user-facing message.
type Status struct {
	Kind    StatusKind  `json:"kind"`
	Level   StatusLevel `json:"level"`
	Message string      `json:"message"`
	At      time.Time   `json:"at"`
}

// StatusNotifier receives status messages as a side channel.
// Implementations must not block the caller for long.
type StatusNotifier interface {
	Notify(ctx context.Context, status Status)
}
