package acl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotesync/internal/adapters/clients"
	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/platform/config"
)

// setupQuoteClient creates a QuoteClient with a test HTTP server.
func setupQuoteClient(t *testing.T, handler http.HandlerFunc) *QuoteClient {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := clients.New(&clients.Config{
		ServiceName: "test-remote",
		BaseURL:     server.URL,
		Timeout:     5 * time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:     1,
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     100 * time.Millisecond,
			Multiplier:      2.0,
		},
		Circuit: config.CircuitBreakerConfig{
			MaxFailures:   10,
			Timeout:       30 * time.Second,
			HalfOpenLimit: 3,
		},
		Transport: config.TransportConfig{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     30 * time.Second,
		},
	})
	require.NoError(t, err)

	return NewQuoteClient(QuoteClientConfig{
		Client: client,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func postsJSON(n int) string {
	records := make([]postRecord, 0, n)
	for i := 1; i <= n; i++ {
		records = append(records, postRecord{ID: i, UserID: 1, Title: fmt.Sprintf("title %d", i), Body: "ignored"})
	}

	b, _ := json.Marshal(records)

	return string(b)
}

func TestNewQuoteClient_PanicsWithoutClient(t *testing.T) {
	assert.Panics(t, func() {
		NewQuoteClient(QuoteClientConfig{})
	})
}

func TestNewQuoteClient_Defaults(t *testing.T) {
	client, err := clients.New(testConfig("http://localhost"))
	require.NoError(t, err)

	qc := NewQuoteClient(QuoteClientConfig{Client: client})

	assert.NotNil(t, qc.logger)
	assert.Equal(t, "/posts", qc.readPath)
	assert.Equal(t, "/posts", qc.writePath)
	assert.Equal(t, "quote-remote", qc.Name())
}

func TestFetchQuotes_TakesFirstNAndMapsTitle(t *testing.T) {
	qc := setupQuoteClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/posts", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, postsJSON(8))
	})

	quotes, err := qc.FetchQuotes(context.Background(), 5)

	require.NoError(t, err)
	require.Len(t, quotes, 5)

	for i, q := range quotes {
		assert.Equal(t, fmt.Sprintf("title %d", i+1), q.Text)
		assert.Equal(t, domain.RemoteCategory, q.Category)
	}
}

func TestFetchQuotes_FewerRecordsThanLimit(t *testing.T) {
	qc := setupQuoteClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, postsJSON(2))
	})

	quotes, err := qc.FetchQuotes(context.Background(), 5)

	require.NoError(t, err)
	assert.Len(t, quotes, 2)
}

func TestFetchQuotes_SkipsUntitledRecords(t *testing.T) {
	qc := setupQuoteClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[{"id":1,"title":""},{"id":2,"title":"kept"}]`)
	})

	quotes, err := qc.FetchQuotes(context.Background(), 5)

	require.NoError(t, err)
	assert.Equal(t, []domain.Quote{{Text: "kept", Category: domain.RemoteCategory}}, quotes)
}

func TestFetchQuotes_Failures(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantDecode bool
	}{
		{"server error", http.StatusInternalServerError, `{"message":"boom"}`, false},
		{"not found", http.StatusNotFound, ``, false},
		{"malformed json", http.StatusOK, `{"title":`, true},
		{"object instead of array", http.StatusOK, `{"title":"x"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qc := setupQuoteClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			quotes, err := qc.FetchQuotes(context.Background(), 5)

			require.Error(t, err)
			assert.Nil(t, quotes)
			assert.Equal(t, tt.wantDecode, domain.IsDecode(err))
			assert.Equal(t, !tt.wantDecode, domain.IsTransport(err))
		})
	}
}

func TestPublishQuote_SendsTextAndCategory(t *testing.T) {
	var received publishRequest

	qc := setupQuoteClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":101}`)
	})

	err := qc.PublishQuote(context.Background(), domain.Quote{Text: "Be kind.", Category: "Life"})

	require.NoError(t, err)
	assert.Equal(t, publishRequest{Text: "Be kind.", Category: "Life"}, received)
}

func TestPublishQuote_UnreadableResponseIsNotAnError(t *testing.T) {
	qc := setupQuoteClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `<html>`)
	})

	assert.NoError(t, qc.PublishQuote(context.Background(), domain.Quote{Text: "A", Category: "B"}))
}

func TestPublishQuote_ServerError(t *testing.T) {
	qc := setupQuoteClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	err := qc.PublishQuote(context.Background(), domain.Quote{Text: "A", Category: "B"})

	require.Error(t, err)
	assert.True(t, domain.IsTransport(err))
}

func TestQuoteClient_Check(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		qc := setupQuoteClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, postsJSON(1))
		})

		assert.NoError(t, qc.Check(context.Background()))
	})

	t.Run("unhealthy", func(t *testing.T) {
		qc := setupQuoteClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		assert.Error(t, qc.Check(context.Background()))
	})
}
