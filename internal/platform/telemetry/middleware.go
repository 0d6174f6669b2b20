package telemetry

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	meterName = "github.com/jsamuelsen/quotesync/http"

	// HeaderTraceID echoes the request's trace ID to the caller.
	HeaderTraceID = "X-Trace-ID"

	// ginTraceIDKey is read by the error envelope writer.
	ginTraceIDKey = "trace_id"
)

type serverMetrics struct {
	duration metric.Float64Histogram
	requests metric.Int64Counter
	inFlight metric.Int64UpDownCounter
}

func newServerMetrics() (*serverMetrics, error) {
	meter := otel.Meter(meterName)

	duration, err := meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("Duration of widget API requests"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	requests, err := meter.Int64Counter("http.server.request.total",
		metric.WithDescription("Widget API requests served"))
	if err != nil {
		return nil, err
	}

	inFlight, err := meter.Int64UpDownCounter("http.server.active_requests",
		metric.WithDescription("Widget API requests in flight"))
	if err != nil {
		return nil, err
	}

	return &serverMetrics{duration: duration, requests: requests, inFlight: inFlight}, nil
}

// Middleware returns the otelgin span handler followed by a handler that
// records request metrics and exposes the trace ID to the response header
// and to error envelopes. Use it as engine.Use(telemetry.Middleware(name)...).
func Middleware(serviceName string) gin.HandlersChain {
	m, err := newServerMetrics()
	if err != nil {
		otel.Handle(err)
	}

	return gin.HandlersChain{otelgin.Middleware(serviceName), instrument(m)}
}

func instrument(m *serverMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
			id := sc.TraceID().String()
			c.Set(ginTraceIDKey, id)
			c.Header(HeaderTraceID, id)
		}

		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		route := attribute.String("http.route", c.FullPath())
		method := attribute.String("http.method", c.Request.Method)

		m.inFlight.Add(ctx, 1, metric.WithAttributes(method, route))
		defer m.inFlight.Add(ctx, -1, metric.WithAttributes(method, route))

		c.Next()

		attrs := metric.WithAttributes(method, route, attribute.Int("http.status_code", c.Writer.Status()))
		m.duration.Record(ctx, time.Since(start).Seconds(), attrs)
		m.requests.Add(ctx, 1, attrs)
	}
}
