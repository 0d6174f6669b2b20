// Package domain holds the quote collection, its categories and the rules
// for merging it with the remote quote server.
package domain

import "strings"

// FilterAll is the category filter sentinel that matches every quote.
const FilterAll = "all"

// RemoteCategory is the category assigned to every quote obtained from the remote source.
const RemoteCategory = "Server"

// Quote is a short text tagged with a category.
// This is a domain entity - it has no knowledge of external systems.
// Two quotes share an identity when their Text is exactly equal.
type Quote struct {
	// Text is the body of the quote and its merge identity.
	Text string `json:"text"`

	// Category groups quotes for filtering.
	Category string `json:"category"`
}

// NewQuote trims text and category and rejects either being empty.
func NewQuote(text, category string) (Quote, error) {
	q := Quote{
		Text:     strings.TrimSpace(text),
		Category: strings.TrimSpace(category),
	}

	if q.Text == "" {
		return Quote{}, NewValidationError("text", "must not be empty")
	}

	if q.Category == "" {
		return Quote{}, NewValidationError("category", "must not be empty")
	}

	return q, nil
}

// Matches reports whether the quote is visible under filter.
func (q Quote) Matches(filter string) bool {
	return filter == FilterAll || q.Category == filter
}

// Collection is the ordered list of quotes owned by a single store.
// Insertion order is display and export order. Version is bumped on every mutation.
type Collection struct {
	Items   []Quote
	Version uint64
}

// Len returns the number of quotes.
func (c Collection) Len() int {
	return len(c.Items)
}

// Clone returns a copy whose Items can be modified without touching c.
func (c Collection) Clone() Collection {
	items := make([]Quote, len(c.Items))
	copy(items, c.Items)

	return Collection{Items: items, Version: c.Version}
}

// Append returns a new collection with quotes added at the end.
// Duplicates by text are kept.
func (c Collection) Append(quotes ...Quote) Collection {
	items := make([]Quote, 0, len(c.Items)+len(quotes))
	items = append(items, c.Items...)
	items = append(items, quotes...)

	return Collection{Items: items, Version: c.Version + 1}
}

// WithItems returns a collection that replaces all items and bumps the version.
func (c Collection) WithItems(items []Quote) Collection {
	cp := make([]Quote, len(items))
	copy(cp, items)

	return Collection{Items: cp, Version: c.Version + 1}
}

// Filter returns the quotes visible under filter, in collection order.
func (c Collection) Filter(filter string) []Quote {
	if filter == FilterAll {
		return c.Clone().Items
	}

	var out []Quote

	for _, q := range c.Items {
		if q.Category == filter {
			out = append(out, q)
		}
	}

	return out
}

// SeedQuotes returns the built-in collection used when nothing usable is persisted.
func SeedQuotes() []Quote {
	return []Quote{
		{Text: "The only way to do great work is to love what you do.", Category: "Motivation"},
		{Text: "In the middle of difficulty lies opportunity.", Category: "Inspiration"},
		{Text: "Life is what happens when you're busy making other plans.", Category: "Life"},
		{Text: "Simplicity is the soul of efficiency.", Category: "Productivity"},
	}
}

// SeedCollection wraps SeedQuotes in a fresh collection.
func SeedCollection() Collection {
	return Collection{Items: SeedQuotes()}
}
