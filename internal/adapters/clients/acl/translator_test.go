package acl

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotesync/internal/adapters/clients"
	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/platform/config"
)

// testConfig returns a minimal config for testing.
func testConfig(baseURL string) *clients.Config {
	return &clients.Config{
		ServiceName: "test-service",
		BaseURL:     baseURL,
		Timeout:     5 * time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:     1,
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     100 * time.Millisecond,
			Multiplier:      2.0,
		},
		Circuit: config.CircuitBreakerConfig{
			MaxFailures:   5,
			Timeout:       time.Second,
			HalfOpenLimit: 2,
		},
	}
}

// --- Error Mapping Tests ---

func TestMapHTTPError_StatusCodes(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantMessage   string
		wantRetryable bool
	}{
		{"not found with nested message", http.StatusNotFound, `{"error":{"code":"NOT_FOUND","message":"no such collection"}}`, "no such collection", false},
		{"bad request with flat message", http.StatusBadRequest, `{"message":"bad limit"}`, "bad limit", false},
		{"server error without body", http.StatusInternalServerError, "", "", true},
		{"rate limited", http.StatusTooManyRequests, "not json", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{
				StatusCode: tt.status,
				Body:       io.NopCloser(strings.NewReader(tt.body)),
			}

			err := MapHTTPError(resp, nil, "quote-remote", "fetch")

			require.Error(t, err)
			assert.True(t, domain.IsTransport(err))
			assert.False(t, domain.IsUnavailable(err))

			var statusErr *StatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, tt.status, statusErr.StatusCode)
			assert.Equal(t, tt.wantMessage, statusErr.Message)
			assert.Equal(t, tt.wantRetryable, statusErr.Retryable())
		})
	}
}

func TestMapHTTPError_ClientErrors(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		wantUnavailable bool
	}{
		{"circuit open", clients.ErrCircuitOpen, true},
		{"retries exhausted", errors.Join(clients.ErrMaxRetriesExceeded, errors.New("dial tcp")), true},
		{"plain network error", errors.New("connection reset"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapHTTPError(nil, tt.err, "quote-remote", "fetch")

			require.Error(t, err)
			assert.True(t, domain.IsTransport(err))
			assert.Equal(t, tt.wantUnavailable, domain.IsUnavailable(err))
			assert.Contains(t, err.Error(), "quote-remote fetch failed")
		})
	}
}

func TestMapHTTPError_SuccessReturnsNil(t *testing.T) {
	resp := &http.Response{StatusCode: http.StatusCreated, Body: http.NoBody}

	assert.NoError(t, MapHTTPError(resp, nil, "quote-remote", "publish"))
}

func TestMapHTTPError_NilResponse(t *testing.T) {
	err := MapHTTPError(nil, nil, "quote-remote", "fetch")

	require.Error(t, err)
	assert.True(t, domain.IsTransport(err))
	assert.Contains(t, err.Error(), "no response received")
}

// --- Decode Tests ---

type testStruct struct {
	Title string `json:"title"`
}

func TestDecodeResponse_Success(t *testing.T) {
	body := io.NopCloser(strings.NewReader(`{"title":"hello"}`))

	result, err := DecodeResponse[testStruct](body, "test payload")

	require.NoError(t, err)
	assert.Equal(t, "hello", result.Title)
}

func TestDecodeResponse_InvalidJSON(t *testing.T) {
	body := io.NopCloser(strings.NewReader(`{not json`))

	_, err := DecodeResponse[testStruct](body, "test payload")

	require.Error(t, err)
	assert.True(t, domain.IsDecode(err))
	assert.Contains(t, err.Error(), "cannot decode test payload")
}

func TestDecodeResponse_NilBody(t *testing.T) {
	_, err := DecodeResponse[testStruct](nil, "test payload")

	require.Error(t, err)
	assert.True(t, domain.IsDecode(err))
}

func TestValidateRequired(t *testing.T) {
	require.NoError(t, ValidateRequired("x", "title"))

	err := ValidateRequired("", "title")
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}

func TestParseErrorResponse(t *testing.T) {
	tests := []struct {
		name string
		body io.Reader
		want string
	}{
		{"nested format", strings.NewReader(`{"error":{"message":"nested"}}`), "nested"},
		{"top level format", strings.NewReader(`{"message":"flat"}`), "flat"},
		{"invalid json", strings.NewReader(`<html>`), ""},
		{"empty object", strings.NewReader(`{}`), ""},
		{"nil body", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseErrorResponse(tt.body)

			if tt.want == "" {
				assert.Nil(t, got)

				return
			}

			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.GetMessage())
		})
	}
}

// --- BaseAdapter Tests ---

func TestBaseAdapter_GetMapsStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client, err := clients.New(testConfig(server.URL))
	require.NoError(t, err)

	adapter := NewBaseAdapter(client, "quote-remote")
	assert.Equal(t, "quote-remote", adapter.ServiceName())

	_, err = adapter.Get(context.Background(), "/posts", "fetch")

	require.Error(t, err)
	assert.True(t, domain.IsTransport(err))

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}
