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

func TestNewQuoteStore_PanicsWithoutStorage(t *testing.T) {
	assert.Panics(t, func() {
		NewQuoteStore(QuoteStoreConfig{})
	})
}

func TestQuoteStore_Load(t *testing.T) {
	tests := []struct {
		name      string
		persisted *string
		want      []domain.Quote
	}{
		{name: "absent", persisted: nil, want: domain.SeedQuotes()},
		{name: "corrupt", persisted: ptr(`[{"text":`), want: domain.SeedQuotes()},
		{name: "not an array", persisted: ptr(`{"text":"a"}`), want: domain.SeedQuotes()},
		{name: "null", persisted: ptr(`null`), want: domain.SeedQuotes()},
		{name: "empty array", persisted: ptr(`[]`), want: []domain.Quote{}},
		{
			name:      "valid",
			persisted: ptr(`[{"text":"A","category":"X"},{"text":"B","category":"Y"}]`),
			want:      []domain.Quote{{Text: "A", Category: "X"}, {Text: "B", Category: "Y"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := newFakeKV()
			if tt.persisted != nil {
				kv.values[ports.KeyQuotes] = *tt.persisted
			}

			store := NewQuoteStore(QuoteStoreConfig{Storage: kv, Logger: discardLogger()})

			got := store.Load(context.Background())

			assert.Equal(t, tt.want, got.Items)
			assert.Equal(t, got, store.Snapshot())
		})
	}
}

func TestQuoteStore_LoadReadErrorFallsBackToSeed(t *testing.T) {
	kv := mocks.NewMockKeyValueStore(t)
	kv.EXPECT().Get(mock.Anything, ports.KeyQuotes).Return("", errors.New("disk gone"))

	store := NewQuoteStore(QuoteStoreConfig{Storage: kv, Logger: discardLogger()})

	assert.Equal(t, domain.SeedQuotes(), store.Load(context.Background()).Items)
}

func TestQuoteStore_Add(t *testing.T) {
	kv := newFakeKV()
	store := NewQuoteStore(QuoteStoreConfig{Storage: kv, Logger: discardLogger()})
	store.Load(context.Background())
	before := store.Snapshot()

	added, err := store.Add(context.Background(), domain.Quote{Text: "  Stay curious.  ", Category: " Life "})

	require.NoError(t, err)
	assert.Equal(t, domain.Quote{Text: "Stay curious.", Category: "Life"}, added)

	after := store.Snapshot()
	assert.Equal(t, before.Len()+1, after.Len())
	assert.Equal(t, added, after.Items[after.Len()-1])
	assert.Greater(t, after.Version, before.Version)

	raw, ok := kv.raw(ports.KeyQuotes)
	require.True(t, ok)
	assert.Contains(t, raw, `"text":"Stay curious."`)
}

func TestQuoteStore_AddRejectsBlankFields(t *testing.T) {
	tests := []struct {
		name  string
		quote domain.Quote
		field string
	}{
		{"blank text", domain.Quote{Text: "   ", Category: "Life"}, "text"},
		{"blank category", domain.Quote{Text: "Hello", Category: "\t"}, "category"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := newFakeKV()
			store := NewQuoteStore(QuoteStoreConfig{Storage: kv, Logger: discardLogger()})
			store.Load(context.Background())
			before := store.Snapshot()

			_, err := store.Add(context.Background(), tt.quote)

			require.Error(t, err)
			assert.True(t, domain.IsValidation(err))

			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)

			assert.Equal(t, before, store.Snapshot())
			_, persisted := kv.raw(ports.KeyQuotes)
			assert.False(t, persisted)
		})
	}
}

func TestQuoteStore_FailedWriteLeavesCollectionUntouched(t *testing.T) {
	kv := newFakeKV()
	store := NewQuoteStore(QuoteStoreConfig{Storage: kv, Logger: discardLogger()})
	store.Load(context.Background())
	before := store.Snapshot()

	kv.failWrites(errors.New("read-only"))

	_, err := store.Add(context.Background(), domain.Quote{Text: "A", Category: "B"})

	require.Error(t, err)
	assert.Equal(t, before, store.Snapshot())
}

func TestQuoteStore_AppendKeepsDuplicates(t *testing.T) {
	store := NewQuoteStore(QuoteStoreConfig{Storage: newFakeKV(), Logger: discardLogger()})
	store.Load(context.Background())

	q := domain.Quote{Text: "Same", Category: "X"}

	got, err := store.Append(context.Background(), []domain.Quote{q, q})

	require.NoError(t, err)
	assert.Equal(t, []domain.Quote{q, q}, got.Items[len(got.Items)-2:])
}

func TestQuoteStore_Replace(t *testing.T) {
	store := NewQuoteStore(QuoteStoreConfig{Storage: newFakeKV(), Logger: discardLogger()})
	store.Load(context.Background())

	items := []domain.Quote{{Text: "Only", Category: "One"}}

	got, err := store.Replace(context.Background(), items)

	require.NoError(t, err)
	assert.Equal(t, items, got.Items)
	assert.Equal(t, items, store.Snapshot().Items)
}

func TestQuoteStore_UpdateErrorKeepsState(t *testing.T) {
	store := NewQuoteStore(QuoteStoreConfig{Storage: newFakeKV(), Logger: discardLogger()})
	store.Load(context.Background())
	before := store.Snapshot()

	boom := errors.New("boom")
	_, err := store.Update(context.Background(), func(c domain.Collection) (domain.Collection, error) {
		return c.Append(domain.Quote{Text: "x", Category: "y"}), boom
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, before, store.Snapshot())
}

func TestQuoteStore_SaveEmptyCollectionWritesArray(t *testing.T) {
	kv := newFakeKV()
	store := NewQuoteStore(QuoteStoreConfig{Storage: kv, Logger: discardLogger()})

	require.NoError(t, store.Save(context.Background(), domain.Collection{}))

	raw, _ := kv.raw(ports.KeyQuotes)
	assert.Equal(t, `[]`, raw)
}

func ptr(s string) *string {
	return &s
}
