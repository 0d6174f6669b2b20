package app

import (
	"encoding/json"
	"fmt"

	"github.com/jsamuelsen/quotesync/internal/domain"
)

// ExportFilename is the suggested name for exported documents.
const ExportFilename = "quotes.json"

// Codec converts between the collection and the portable JSON document.
type Codec struct{}

// Export renders items as a two-space indented JSON array in collection order.
func (Codec) Export(items []domain.Quote) ([]byte, error) {
	if items == nil {
		items = []domain.Quote{}
	}

	raw, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding export: %w", err)
	}

	return raw, nil
}

// Import parses a document and keeps entries whose text and category are both
// truthy. String values are kept exactly as written; other truthy values
// (numbers, true, objects) are kept in their compact JSON form.
func (Codec) Import(raw []byte) ([]domain.Quote, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, domain.NewDecodeError("import document", err)
	}

	entries, ok := doc.([]any)
	if !ok {
		return nil, domain.NewValidationError("document", "must be a JSON array")
	}

	quotes := make([]domain.Quote, 0, len(entries))

	for _, e := range entries {
		obj, ok := e.(map[string]any)
		if !ok {
			continue
		}

		text, ok := truthyText(obj["text"])
		if !ok {
			continue
		}

		category, ok := truthyText(obj["category"])
		if !ok {
			continue
		}

		quotes = append(quotes, domain.Quote{Text: text, Category: category})
	}

	if len(quotes) == 0 {
		return nil, domain.NewValidationError("document", "contains no quotes with both text and category")
	}

	return quotes, nil
}

// truthyText reports false for missing, null, false, zero and empty string
// values.
func truthyText(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, t != ""
	case bool:
		if !t {
			return "", false
		}
	case float64:
		if t == 0 {
			return "", false
		}
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return "", false
	}

	return string(raw), true
}
