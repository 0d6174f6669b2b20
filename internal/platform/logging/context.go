package logging

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// FromContext returns the logger carried by ctx, or slog.Default when there
// is none. The default is read on every call so slog.SetDefault in main is
// honored by code that runs before any request context exists.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := Lookup(ctx); ok {
		return l
	}

	return slog.Default()
}

// Lookup returns the logger stored in ctx, if any.
func Lookup(ctx context.Context) (*slog.Logger, bool) {
	if ctx == nil {
		return nil, false
	}

	l, ok := ctx.Value(ctxKey{}).(*slog.Logger)

	return l, ok && l != nil
}

// WithContext stores logger in ctx.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// WithAttrs derives a logger with attrs from the one in ctx and stores it.
func WithAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	args := make([]any, len(attrs))
	for i, a := range attrs {
		args[i] = a
	}

	return WithContext(ctx, FromContext(ctx).With(args...))
}

// WithRequestID tags the context logger with the inbound request ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return WithAttrs(ctx, slog.String("request_id", requestID))
}

// WithCorrelationID tags the context logger with the correlation ID.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return WithAttrs(ctx, slog.String("correlation_id", correlationID))
}

// WithSyncCycle tags every line of one fetch-merge-persist run.
func WithSyncCycle(ctx context.Context, cycleID, trigger string) context.Context {
	return WithAttrs(ctx,
		slog.String("sync_cycle", cycleID),
		slog.String("sync_trigger", trigger),
	)
}
