package dto

import (
	"time"

	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// NoQuotesMessage is shown in place of a quote when the filter matches nothing.
const NoQuotesMessage = "No quotes available for this category."

// AddQuoteRequest is the body of POST /api/v1/quotes.
// Fields are trimmed and checked by the application layer.
type AddQuoteRequest struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

// SetFilterRequest is the body of PUT /api/v1/categories/selected.
type SetFilterRequest struct {
	Category string `json:"category" validate:"notempty,printable"`
}

// QuoteResponse is a quote as rendered by the API.
type QuoteResponse struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

// NewQuoteResponse converts a domain quote.
func NewQuoteResponse(q domain.Quote) QuoteResponse {
	return QuoteResponse{Text: q.Text, Category: q.Category}
}

// NewQuoteResponses converts a slice of domain quotes, never returning nil.
func NewQuoteResponses(items []domain.Quote) []QuoteResponse {
	out := make([]QuoteResponse, 0, len(items))
	for _, q := range items {
		out = append(out, NewQuoteResponse(q))
	}

	return out
}

// RandomQuoteResponse carries either a quote or the placeholder message.
type RandomQuoteResponse struct {
	Quote   *QuoteResponse `json:"quote"`
	Message string         `json:"message,omitempty"`
}

// CategoriesResponse lists the filter choices and the active one.
type CategoriesResponse struct {
	Categories []string `json:"categories"`
	Selected   string   `json:"selected"`
}

// ImportResponse reports how many quotes an import appended.
type ImportResponse struct {
	Imported int `json:"imported"`
}

// SyncResponse describes the sync engine and its most recent cycle.
type SyncResponse struct {
	State  string      `json:"state"`
	Report *SyncReport `json:"report"`
}

// SyncReport is the API view of one sync cycle.
type SyncReport struct {
	CycleID        string          `json:"cycleId"`
	Trigger        string          `json:"trigger"`
	StartedAt      time.Time       `json:"startedAt"`
	FinishedAt     time.Time       `json:"finishedAt"`
	RemoteCount    int             `json:"remoteCount"`
	Conflicts      []QuoteResponse `json:"conflicts"`
	CollectionSize int             `json:"collectionSize"`
	Message        string          `json:"message"`
	Error          string          `json:"error,omitempty"`
	RemoteError    string          `json:"remoteError,omitempty"`
}

// StatusResponse is the recent status message log, oldest first.
type StatusResponse struct {
	Messages []StatusMessage `json:"messages"`
}

// StatusMessage is one transient user-facing message.
type StatusMessage struct {
	Kind    string    `json:"kind"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// NewStatusResponse converts status history.
func NewStatusResponse(history []ports.Status) StatusResponse {
	out := make([]StatusMessage, 0, len(history))
	for _, s := range history {
		out = append(out, StatusMessage{
			Kind:    string(s.Kind),
			Level:   string(s.Level),
			Message: s.Message,
			At:      s.At,
		})
	}

	return StatusResponse{Messages: out}
}

// StatusQuery selects how much status history to return.
type StatusQuery struct {
	Limit int `form:"limit" validate:"omitempty,gte=1,lte=100"`
}
