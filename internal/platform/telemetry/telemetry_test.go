package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Disabled(t *testing.T) {
	p, err := New(context.Background(), &Config{Enabled: false})
	require.NoError(t, err)

	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestProviderShutdown_IgnoresCancelledContext(t *testing.T) {
	called := 0
	p := &Provider{shutdowns: []func(context.Context) error{
		func(ctx context.Context) error {
			called++
			return ctx.Err()
		},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Shutdown(ctx))
	assert.Equal(t, 1, called)
}

func TestMiddleware_EchoesTraceID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	_, err := New(context.Background(), &Config{Enabled: false})
	require.NoError(t, err)

	var seen string

	engine := gin.New()
	engine.Use(Middleware("quotesync")...)
	engine.GET("/api/v1/quotes", func(c *gin.Context) {
		seen = c.GetString(ginTraceIDKey)
		c.Status(http.StatusOK)
	})

	const traceID = "4bf92f3577b34da6a3ce929d0e0e4736"

	req := httptest.NewRequest(http.MethodGet, "/api/v1/quotes", nil)
	req.Header.Set("traceparent", "00-"+traceID+"-00f067aa0ba902b7-01")

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, traceID, w.Header().Get(HeaderTraceID))
	assert.Equal(t, traceID, seen)
}

func TestMiddleware_NoIncomingTrace(t *testing.T) {
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.Use(Middleware("quotesync")...)
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
}
