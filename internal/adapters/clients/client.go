// Package clients is the outbound HTTP layer used to reach the quote remote.
// A Client retries transient failures with jittered backoff, stops calling a
// failing remote through a circuit breaker, traces and meters each call, and
// forwards the request and correlation IDs of the inbound request.
package clients

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quotesync/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quotesync/internal/platform/config"
	"github.com/jsamuelsen/quotesync/internal/platform/logging"
)

const (
	instrumentationName = "github.com/jsamuelsen/quotesync/internal/adapters/clients"

	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "quotesync/1.0"
)

// Config configures a Client. Retry, Circuit and Transport take their
// values from the client section of the service config.
type Config struct {
	BaseURL     string
	ServiceName string

	// Timeout bounds a single attempt, not the whole call.
	Timeout time.Duration

	Retry     config.RetryConfig
	Circuit   config.CircuitBreakerConfig
	Transport config.TransportConfig

	UserAgent string
	Logger    *slog.Logger
}

// Client calls one remote service.
type Client struct {
	http      *http.Client
	baseURL   string
	name      string
	userAgent string
	retry     config.RetryConfig
	breaker   *breaker
	logger    *slog.Logger

	tracer   trace.Tracer
	duration metric.Float64Histogram
	requests metric.Int64Counter
}

// New builds a Client. Unset retry values fall back to a single attempt.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	if cfg.ServiceName == "" {
		return nil, errors.New("service name is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With(slog.String("component", "clients"), slog.String("downstream", cfg.ServiceName))

	meter := otel.Meter(instrumentationName)

	duration, err := meter.Float64Histogram("http.client.request.duration",
		metric.WithDescription("Duration of calls to a remote service, retries included"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	requests, err := meter.Int64Counter("http.client.request.count",
		metric.WithDescription("Calls to a remote service by result"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request counter: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	retry := cfg.Retry
	retry.MaxAttempts = max(retry.MaxAttempts, 1)
	retry.Multiplier = math.Max(retry.Multiplier, 1)

	return &Client{
		http:      &http.Client{Timeout: timeout, Transport: newTransport(cfg.Transport)},
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		name:      cfg.ServiceName,
		userAgent: userAgent,
		retry:     retry,
		breaker: newBreaker(cfg.Circuit, func(from, to State) {
			logger.Warn("circuit breaker changed state",
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		}),
		logger:   logger,
		tracer:   otel.Tracer(instrumentationName),
		duration: duration,
		requests: requests,
	}, nil
}

// Get sends a GET for path relative to the base URL.
func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(path), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	return c.Do(ctx, req)
}

// Post sends a JSON body. Bodies from bytes and strings readers are resent
// on retry; other readers should be used with a single attempt.
func (c *Client) Post(ctx context.Context, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(path), body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	return c.Do(ctx, req)
}

// Do runs req through the breaker and the retry loop. Statuses below 500
// other than 429 are returned to the caller as they are; the caller closes
// the body.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	start := time.Now()
	logger := logging.FromContext(ctx).With(
		slog.String("downstream", c.name),
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
	)

	if err := c.breaker.allow(); err != nil {
		c.observe(ctx, req.Method, 0, start, "circuit_open")
		logger.Warn("call refused by circuit breaker")

		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, req.Method+" "+c.name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.full", req.URL.String()),
			attribute.String("peer.service", c.name),
		),
	)
	defer span.End()

	c.decorate(ctx, req)

	resp, attempts, err := c.attempt(ctx, req, logger)
	span.SetAttributes(attribute.Int("http.request.resend_count", attempts-1))

	switch {
	case err == nil:
		c.breaker.done(succeeded)
		span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

		if resp.StatusCode >= http.StatusBadRequest {
			span.SetStatus(codes.Error, resp.Status)
		}

		c.observe(ctx, req.Method, resp.StatusCode, start, strconv.Itoa(resp.StatusCode/100)+"xx")
		logger.Debug("call completed",
			slog.Int("status", resp.StatusCode),
			slog.Int("attempts", attempts),
			slog.Duration("duration", time.Since(start)),
		)

		return resp, nil

	case ctx.Err() != nil:
		c.breaker.done(abandoned)
		span.SetStatus(codes.Error, "cancelled")
		c.observe(ctx, req.Method, 0, start, "cancelled")

		return nil, fmt.Errorf("calling %s: %w", c.name, err)

	default:
		c.breaker.done(failed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.observe(ctx, req.Method, 0, start, "error")
		logger.Error("call failed",
			slog.Int("attempts", attempts),
			slog.Duration("duration", time.Since(start)),
			slog.Any("error", err),
		)

		return nil, fmt.Errorf("%w: %w", ErrMaxRetriesExceeded, err)
	}
}

// attempt runs the retry loop and reports how many attempts it made.
func (c *Client) attempt(ctx context.Context, req *http.Request, logger *slog.Logger) (*http.Response, int, error) {
	var lastErr error

	for n := 1; n <= c.retry.MaxAttempts; n++ {
		if n > 1 {
			wait := c.backoff(n - 1)
			logger.Debug("retrying call", slog.Int("attempt", n), slog.Duration("backoff", wait), slog.Any("error", lastErr))

			if err := sleep(ctx, wait); err != nil {
				return nil, n - 1, err
			}

			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, n - 1, fmt.Errorf("rewinding request body: %w", err)
				}

				req.Body = body
			}
		}

		resp, err := c.http.Do(req.WithContext(ctx))
		if err != nil {
			if !retryable(err) {
				return nil, n, err
			}

			lastErr = err

			continue
		}

		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			drain(resp.Body)
			lastErr = &retryableStatusError{status: resp.StatusCode}

			continue
		}

		return resp, n, nil
	}

	return nil, c.retry.MaxAttempts, lastErr
}

// backoff is InitialInterval * Multiplier^(retry-1), capped at MaxInterval,
// spread by ±JitterFactor.
func (c *Client) backoff(retry int) time.Duration {
	d := float64(c.retry.InitialInterval) * math.Pow(c.retry.Multiplier, float64(retry-1))
	if limit := float64(c.retry.MaxInterval); limit > 0 && d > limit {
		d = limit
	}

	d += d * c.retry.JitterFactor * (2*rand.Float64() - 1) //nolint:gosec // jitter only

	return time.Duration(d)
}

// CircuitState reports the breaker position.
func (c *Client) CircuitState() State {
	return c.breaker.current()
}

func (c *Client) decorate(ctx context.Context, req *http.Request) {
	if id := middleware.RequestIDFromContext(ctx); id != "" {
		req.Header.Set(middleware.HeaderRequestID, id)
	}

	if id := middleware.CorrelationIDFromContext(ctx); id != "" {
		req.Header.Set(middleware.HeaderCorrelationID, id)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
}

func (c *Client) buildURL(path string) string {
	return c.baseURL + "/" + strings.TrimPrefix(path, "/")
}

func (c *Client) observe(ctx context.Context, method string, status int, start time.Time, result string) {
	attrs := []attribute.KeyValue{
		attribute.String("http.request.method", method),
		attribute.String("peer.service", c.name),
		attribute.String("result", result),
	}
	if status > 0 {
		attrs = append(attrs, attribute.Int("http.response.status_code", status))
	}

	set := metric.WithAttributes(attrs...)
	c.duration.Record(ctx, time.Since(start).Seconds(), set)
	c.requests.Add(ctx, 1, set)
}

// newTransport fills unset pool settings from the config defaults.
func newTransport(tc config.TransportConfig) *http.Transport {
	if tc.MaxIdleConns <= 0 {
		tc.MaxIdleConns = config.DefaultTransportMaxIdleConns
	}

	if tc.MaxIdleConnsPerHost <= 0 {
		tc.MaxIdleConnsPerHost = config.DefaultTransportMaxIdleConnsPerHost
	}

	if tc.IdleConnTimeout <= 0 {
		tc.IdleConnTimeout = config.DefaultTransportIdleConnTimeout
	}

	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        tc.MaxIdleConns,
		MaxIdleConnsPerHost: tc.MaxIdleConnsPerHost,
		IdleConnTimeout:     tc.IdleConnTimeout,
	}
}

// retryable accepts network failures and per-attempt timeouts. A done
// caller context is never retried.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError

	return errors.As(err, &opErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	_ = body.Close()
}
