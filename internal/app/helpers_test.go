package app

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/mocks"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// discardLogger returns a logger that discards all output.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeKV is an in-memory ports.KeyValueStore with an injectable write error.
type fakeKV struct {
	mu     sync.Mutex
	values map[string]string
	setErr error
}

func newFakeKV() *fakeKV {
	return &fakeKV{values: map[string]string{}}
}

func (f *fakeKV) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	v, ok := f.values[key]
	if !ok {
		return "", domain.NewNotFoundError("storage key", key)
	}

	return v, nil
}

func (f *fakeKV) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.setErr != nil {
		return f.setErr
	}

	f.values[key] = value

	return nil
}

func (f *fakeKV) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.values, key)

	return nil
}

func (f *fakeKV) failWrites(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.setErr = err
}

func (f *fakeKV) raw(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	v, ok := f.values[key]

	return v, ok
}

// fixture wires every component against fake storage and a mock remote.
type fixture struct {
	storage    *fakeKV
	session    *fakeKV
	remote     *mocks.MockRemoteQuoteSource
	feed       *StatusFeed
	store      *QuoteStore
	categories *CategoryIndex
	selection  *SelectionPolicy
	engine     *SyncEngine
	service    *QuoteService
}

func newFixture(t *testing.T, local []domain.Quote) *fixture {
	t.Helper()

	f := &fixture{
		storage: newFakeKV(),
		session: newFakeKV(),
		remote:  mocks.NewMockRemoteQuoteSource(t),
		feed:    NewStatusFeed(0, discardLogger()),
	}

	f.store = NewQuoteStore(QuoteStoreConfig{Storage: f.storage, Logger: discardLogger()})
	f.categories = NewCategoryIndex(CategoryIndexConfig{Store: f.store, Storage: f.storage, Logger: discardLogger()})
	f.selection = NewSelectionPolicy(SelectionPolicyConfig{Session: f.session, Logger: discardLogger()})
	f.engine = NewSyncEngine(SyncEngineConfig{
		Store:      f.store,
		Categories: f.categories,
		Remote:     f.remote,
		Notifier:   f.feed,
		Limit:      5,
		Logger:     discardLogger(),
	})
	f.service = NewQuoteService(QuoteServiceConfig{
		Store:      f.store,
		Categories: f.categories,
		Selection:  f.selection,
		Sync:       f.engine,
		Remote:     f.remote,
		Notifier:   f.feed,
		Logger:     discardLogger(),
	})

	if local != nil {
		f.persist(t, local)
	}

	f.store.Load(context.Background())

	return f
}

func (f *fixture) persist(t *testing.T, items []domain.Quote) {
	t.Helper()

	if err := f.store.Save(context.Background(), domain.Collection{Items: items}); err != nil {
		t.Fatalf("seeding storage: %v", err)
	}
}

// messages returns the feed's messages of one kind.
func (f *fixture) messages(kind ports.StatusKind) []string {
	var out []string

	for _, s := range f.feed.Recent(0) {
		if s.Kind == kind {
			out = append(out, s.Message)
		}
	}

	return out
}
