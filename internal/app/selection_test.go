package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/mocks"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

var mixed = []domain.Quote{
	{Text: "A", Category: "X"},
	{Text: "B", Category: "Y"},
	{Text: "C", Category: "X"},
	{Text: "D", Category: "Z"},
	{Text: "E", Category: "X"},
}

func TestNewSelectionPolicy_PanicsWithoutSession(t *testing.T) {
	assert.Panics(t, func() {
		NewSelectionPolicy(SelectionPolicyConfig{})
	})
}

func TestPickQuote_FilterReturnsOnlyThatCategory(t *testing.T) {
	policy := NewSelectionPolicy(SelectionPolicyConfig{Session: newFakeKV(), Logger: discardLogger()})

	for _, category := range []string{"X", "Y", "Z"} {
		for range 200 {
			q, ok := policy.PickQuote(context.Background(), mixed, category)

			require.True(t, ok)
			assert.Equal(t, category, q.Category)
		}
	}
}

func TestPickQuote_AllReachesEveryItem(t *testing.T) {
	policy := NewSelectionPolicy(SelectionPolicyConfig{Session: newFakeKV(), Logger: discardLogger()})
	seen := map[domain.Quote]int{}

	for range 2000 {
		q, ok := policy.PickQuote(context.Background(), mixed, domain.FilterAll)
		require.True(t, ok)

		seen[q]++
	}

	assert.Len(t, seen, len(mixed))
}

func TestPickQuote_UsesInjectedRandom(t *testing.T) {
	policy := NewSelectionPolicy(SelectionPolicyConfig{
		Session: newFakeKV(),
		IntN:    func(n int) int { return n - 1 },
		Logger:  discardLogger(),
	})

	q, ok := policy.PickQuote(context.Background(), mixed, "X")

	require.True(t, ok)
	assert.Equal(t, domain.Quote{Text: "E", Category: "X"}, q)
}

func TestPickQuote_NoCandidates(t *testing.T) {
	tests := []struct {
		name   string
		items  []domain.Quote
		filter string
	}{
		{"empty collection", nil, domain.FilterAll},
		{"unknown category", mixed, "Nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := newFakeKV()
			policy := NewSelectionPolicy(SelectionPolicyConfig{Session: session, Logger: discardLogger()})

			q, ok := policy.PickQuote(context.Background(), tt.items, tt.filter)

			assert.False(t, ok)
			assert.Equal(t, domain.Quote{}, q)

			raw, recorded := session.raw(ports.KeyLastShownQuote)
			require.True(t, recorded)
			assert.Equal(t, "null", raw)
		})
	}
}

func TestPickQuote_RecordsLastShown(t *testing.T) {
	session := newFakeKV()
	policy := NewSelectionPolicy(SelectionPolicyConfig{Session: session, Logger: discardLogger()})

	q, ok := policy.PickQuote(context.Background(), mixed, "Y")
	require.True(t, ok)

	raw, _ := session.raw(ports.KeyLastShownQuote)
	assert.JSONEq(t, `{"text":"B","category":"Y"}`, raw)

	last, ok := policy.LastShown(context.Background())
	require.True(t, ok)
	assert.Equal(t, q, last)
}

func TestPickQuote_SessionWriteFailureIsIgnored(t *testing.T) {
	session := mocks.NewMockKeyValueStore(t)
	session.EXPECT().Set(mock.Anything, ports.KeyLastShownQuote, mock.Anything).Return(errors.New("quota"))

	policy := NewSelectionPolicy(SelectionPolicyConfig{Session: session, Logger: discardLogger()})

	q, ok := policy.PickQuote(context.Background(), mixed, "Z")

	assert.True(t, ok)
	assert.Equal(t, "D", q.Text)
}

func TestLastShown(t *testing.T) {
	tests := []struct {
		name   string
		stored *string
		want   bool
	}{
		{"never recorded", nil, false},
		{"null", ptr("null"), false},
		{"garbage", ptr("{"), false},
		{"quote", ptr(`{"text":"A","category":"X"}`), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := newFakeKV()
			if tt.stored != nil {
				session.values[ports.KeyLastShownQuote] = *tt.stored
			}

			policy := NewSelectionPolicy(SelectionPolicyConfig{Session: session, Logger: discardLogger()})

			_, ok := policy.LastShown(context.Background())

			assert.Equal(t, tt.want, ok)
		})
	}
}
