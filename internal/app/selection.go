package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand/v2"

	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// SelectionPolicy picks the quote to show.
type SelectionPolicy struct {
	session ports.KeyValueStore
	intN    func(n int) int
	logger  *slog.Logger
}

// SelectionPolicyConfig contains dependencies for the selection policy.
type SelectionPolicyConfig struct {
	// Session receives the last shown quote. Required.
	Session ports.KeyValueStore

	// IntN returns a number in [0, n). Defaults to math/rand/v2.IntN.
	IntN func(n int) int

	Logger *slog.Logger
}

// NewSelectionPolicy creates a selection policy.
func NewSelectionPolicy(cfg SelectionPolicyConfig) *SelectionPolicy {
	if cfg.Session == nil {
		panic("app: SelectionPolicy requires Session")
	}

	intN := cfg.IntN
	if intN == nil {
		intN = rand.IntN
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &SelectionPolicy{
		session: cfg.Session,
		intN:    intN,
		logger:  logger.With(slog.String("component", "app.SelectionPolicy")),
	}
}

// PickQuote returns a uniformly random quote visible under filter.
// It reports false when nothing matches, which callers render as a placeholder.
// The outcome is recorded as the last shown quote.
func (p *SelectionPolicy) PickQuote(ctx context.Context, items []domain.Quote, filter string) (domain.Quote, bool) {
	var candidates []domain.Quote

	for _, q := range items {
		if q.Matches(filter) {
			candidates = append(candidates, q)
		}
	}

	if len(candidates) == 0 {
		p.record(ctx, nil)

		return domain.Quote{}, false
	}

	chosen := candidates[p.intN(len(candidates))]
	p.record(ctx, &chosen)

	return chosen, true
}

func (p *SelectionPolicy) record(ctx context.Context, q *domain.Quote) {
	raw, err := json.Marshal(q)
	if err != nil {
		p.logger.WarnContext(ctx, "encoding last shown quote failed", slog.Any("error", err))

		return
	}

	if err := p.session.Set(ctx, ports.KeyLastShownQuote, string(raw)); err != nil {
		p.logger.WarnContext(ctx, "recording last shown quote failed", slog.Any("error", err))
	}
}

// LastShown returns the quote recorded by the most recent pick, if any.
func (p *SelectionPolicy) LastShown(ctx context.Context) (domain.Quote, bool) {
	raw, err := p.session.Get(ctx, ports.KeyLastShownQuote)
	if err != nil {
		return domain.Quote{}, false
	}

	var q *domain.Quote
	if err := json.Unmarshal([]byte(raw), &q); err != nil || q == nil {
		return domain.Quote{}, false
	}

	return *q, true
}
