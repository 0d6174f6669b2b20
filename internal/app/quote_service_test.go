package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

func TestNewQuoteService_PanicsWithoutDependencies(t *testing.T) {
	assert.Panics(t, func() {
		NewQuoteService(QuoteServiceConfig{})
	})
}

func TestQuoteService_Bootstrap(t *testing.T) {
	f := newFixture(t, []domain.Quote{{Text: "A", Category: "X"}})
	f.storage.values[ports.KeySelectedCategory] = "X"

	collection, selected, err := f.service.Bootstrap(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []domain.Quote{{Text: "A", Category: "X"}}, collection.Items)
	assert.Equal(t, "X", selected)
}

func TestQuoteService_BootstrapEmptyStorageUsesSeed(t *testing.T) {
	f := newFixture(t, nil)

	collection, selected, err := f.service.Bootstrap(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.SeedQuotes(), collection.Items)
	assert.Equal(t, domain.FilterAll, selected)
}

func TestQuoteService_AddPublishes(t *testing.T) {
	f := newFixture(t, []domain.Quote{})

	want := domain.Quote{Text: "Ship it.", Category: "Work"}
	f.remote.EXPECT().PublishQuote(mock.Anything, want).Return(nil).Once()

	got, err := f.service.Add(context.Background(), " Ship it. ", "Work")
	f.service.Wait()

	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, []domain.Quote{want}, f.service.List())
	assert.Equal(t, []string{"Quote added."}, f.messages(ports.StatusAdd))
}

func TestQuoteService_AddPublishFailureKeepsQuote(t *testing.T) {
	f := newFixture(t, []domain.Quote{})

	f.remote.EXPECT().PublishQuote(mock.Anything, mock.Anything).
		Return(domain.NewTransportError("quote-remote", "publish quote", errors.New("503"))).Once()

	_, err := f.service.Add(context.Background(), "Kept", "Local")
	f.service.Wait()

	require.NoError(t, err)
	assert.Len(t, f.service.List(), 1)
}

func TestQuoteService_AddValidationFailure(t *testing.T) {
	f := newFixture(t, []domain.Quote{})

	_, err := f.service.Add(context.Background(), "", "Work")
	f.service.Wait()

	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	assert.Empty(t, f.service.List())
	assert.Equal(t, []string{"Please enter both a quote and a category."}, f.messages(ports.StatusAdd))
}

func TestQuoteService_RandomHonoursFilter(t *testing.T) {
	f := newFixture(t, []domain.Quote{{Text: "A", Category: "X"}, {Text: "B", Category: "Y"}})

	require.NoError(t, f.service.SetFilter(context.Background(), "Y"))

	for range 20 {
		q, ok := f.service.Random(context.Background())
		require.True(t, ok)
		assert.Equal(t, "B", q.Text)
	}

	require.NoError(t, f.service.SetFilter(context.Background(), "Missing"))

	_, ok := f.service.Random(context.Background())
	assert.False(t, ok)
}

func TestQuoteService_CurrentRestoresLastShown(t *testing.T) {
	f := newFixture(t, []domain.Quote{{Text: "A", Category: "X"}, {Text: "B", Category: "X"}, {Text: "C", Category: "X"}})
	f.session.values[ports.KeyLastShownQuote] = `{"text":"B","category":"X"}`

	for range 10 {
		q, ok := f.service.Current(context.Background())
		require.True(t, ok)
		assert.Equal(t, "B", q.Text)
	}
}

func TestQuoteService_CurrentPicksAnewWhenLastShownIsGone(t *testing.T) {
	f := newFixture(t, []domain.Quote{{Text: "A", Category: "X"}})
	f.session.values[ports.KeyLastShownQuote] = `{"text":"Deleted","category":"X"}`

	q, ok := f.service.Current(context.Background())

	require.True(t, ok)
	assert.Equal(t, "A", q.Text)
}

func TestQuoteService_CurrentPicksAnewWhenFilterChanged(t *testing.T) {
	f := newFixture(t, []domain.Quote{{Text: "A", Category: "X"}, {Text: "B", Category: "Y"}})
	f.session.values[ports.KeyLastShownQuote] = `{"text":"A","category":"X"}`

	require.NoError(t, f.service.SetFilter(context.Background(), "Y"))

	q, ok := f.service.Current(context.Background())

	require.True(t, ok)
	assert.Equal(t, "B", q.Text)
}

func TestQuoteService_Categories(t *testing.T) {
	f := newFixture(t, []domain.Quote{{Text: "A", Category: "X"}, {Text: "B", Category: "Y"}})

	categories, selected := f.service.Categories()

	assert.Equal(t, []string{"all", "X", "Y"}, categories)
	assert.Equal(t, domain.FilterAll, selected)
}

func TestQuoteService_ExportImportRoundTrip(t *testing.T) {
	items := []domain.Quote{{Text: "A", Category: "X"}, {Text: "B", Category: "Y"}}
	source := newFixture(t, items)

	raw, err := source.service.Export(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Quotes exported."}, source.messages(ports.StatusExport))

	target := newFixture(t, []domain.Quote{})

	n, err := target.service.Import(context.Background(), raw)

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, items, target.service.List())
	assert.Equal(t, []string{"Imported 2 quote(s)."}, target.messages(ports.StatusImport))
}

func TestQuoteService_ImportAppendsWithoutDedup(t *testing.T) {
	f := newFixture(t, []domain.Quote{{Text: "A", Category: "X"}})

	_, err := f.service.Import(context.Background(), []byte(`[{"text":"A","category":"X"}]`))

	require.NoError(t, err)
	assert.Len(t, f.service.List(), 2)
}

func TestQuoteService_ImportFailures(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		errType func(error) bool
		message string
	}{
		{"not json", "not json", domain.IsDecode, "Import failed: the file is not valid JSON."},
		{"empty", "[]", domain.IsValidation, "Import failed: no quotes with text and category were found."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, []domain.Quote{{Text: "A", Category: "X"}})

			n, err := f.service.Import(context.Background(), []byte(tt.raw))

			require.Error(t, err)
			assert.True(t, tt.errType(err))
			assert.Zero(t, n)
			assert.Len(t, f.service.List(), 1)
			assert.Equal(t, []string{tt.message}, f.messages(ports.StatusImport))
		})
	}
}

func TestQuoteService_SyncNowAndStatus(t *testing.T) {
	f := newFixture(t, []domain.Quote{{Text: "A", Category: "X"}})

	state, _, ok := f.service.SyncStatus()
	assert.Equal(t, SyncIdle, state)
	assert.False(t, ok)

	f.remote.EXPECT().FetchQuotes(mock.Anything, 5).Return([]domain.Quote{{Text: "R", Category: domain.RemoteCategory}}, nil)

	report, err := f.service.SyncNow(context.Background())
	require.NoError(t, err)

	state, last, ok := f.service.SyncStatus()
	assert.Equal(t, SyncIdle, state)
	require.True(t, ok)
	assert.Equal(t, report.CycleID, last.CycleID)
}
