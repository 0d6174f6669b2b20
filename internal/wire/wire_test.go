package wire

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/mocks"
	"github.com/jsamuelsen/quotesync/internal/platform/config"
)

func testConfig(baseURL string, syncEnabled bool) *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "quotesync", Version: "test", Environment: "test"},
		Client: config.ClientConfig{
			Timeout: time.Second,
			Retry: config.RetryConfig{
				MaxAttempts:     1,
				InitialInterval: 10 * time.Millisecond,
				MaxInterval:     100 * time.Millisecond,
				Multiplier:      2,
			},
			CircuitBreaker: config.CircuitBreakerConfig{
				MaxFailures:   5,
				Timeout:       time.Second,
				HalfOpenLimit: 1,
			},
		},
		Services: config.ServicesConfig{
			Remote: config.RemoteConfig{
				BaseURL:   baseURL,
				Name:      "quote-remote",
				ReadPath:  "/posts",
				WritePath: "/posts",
				Limit:     5,
			},
		},
		Storage: config.StorageConfig{Driver: config.StorageMemory},
		Sync:    config.SyncConfig{Enabled: syncEnabled, Interval: time.Hour},
	}
}

func newRemote(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":101}`))

			return
		}

		_, _ = w.Write([]byte(`[{"id":1,"userId":1,"title":"From the server","body":"x"}]`))
	}))
	t.Cleanup(srv.Close)

	return srv
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuild_UnknownDriver(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1", false)
	cfg.Storage.Driver = "carrier-pigeon"

	w, err := Build(context.Background(), cfg, discardLogger())

	require.Error(t, err)
	assert.Nil(t, w)
	assert.Contains(t, err.Error(), "opening storage")
}

func TestWidget_StartWithoutSync(t *testing.T) {
	remote := newRemote(t)

	w, err := Build(context.Background(), testConfig(remote.URL, false), discardLogger())
	require.NoError(t, err)
	assert.Nil(t, w.Scheduler)

	require.NoError(t, w.Start(context.Background()))

	assert.Equal(t, domain.SeedQuotes(), w.Service.List())

	_, ok := w.Engine.LastReport()
	assert.False(t, ok)

	require.NoError(t, w.Close())
}

func TestWidget_StartupSync(t *testing.T) {
	remote := newRemote(t)

	w, err := Build(context.Background(), testConfig(remote.URL, true), discardLogger())
	require.NoError(t, err)
	require.NotNil(t, w.Scheduler)

	require.NoError(t, w.Start(context.Background()))

	assert.Eventually(t, func() bool {
		_, ok := w.Engine.LastReport()
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, w.Close())

	assert.Contains(t, w.Service.List(), domain.Quote{Text: "From the server", Category: domain.RemoteCategory})
}

func TestWidget_RegisterHealth(t *testing.T) {
	w, err := Build(context.Background(), testConfig("http://127.0.0.1:1", false), discardLogger())
	require.NoError(t, err)

	t.Cleanup(func() { _ = w.Close() })

	registry := mocks.NewMockHealthRegistry(t)
	registry.EXPECT().Register(w.Storage).Return(nil).Once()
	registry.EXPECT().RegisterOptional(mock.Anything).Return(nil).Once()

	require.NoError(t, w.RegisterHealth(registry))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	cfg := testConfig("http://127.0.0.1:1", false)
	cfg.Log = config.LogConfig{
		Level:  "warn",
		Format: "json",
		File:   config.LogFileConfig{Enabled: true, Path: filepath.Join(t.TempDir(), "widget.log"), MaxSizeMB: 1},
	}

	logger := NewLogger(cfg, &buf)
	logger.Info("hidden")
	logger.Warn("remote slow")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"remote slow"`)
	assert.Contains(t, out, `"service_name":"quotesync"`)
	assert.FileExists(t, cfg.Log.File.Path)
}
