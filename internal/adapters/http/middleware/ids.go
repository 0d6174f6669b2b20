// Package middleware holds the gin middleware chain of the widget server.
package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jsamuelsen/quotesync/internal/platform/logging"
)

const (
	// HeaderRequestID identifies one HTTP exchange.
	HeaderRequestID = "X-Request-ID"

	// HeaderCorrelationID follows a user action across the widget and the remote quote server.
	HeaderCorrelationID = "X-Correlation-ID"

	// maxIDLength caps caller-supplied IDs; longer ones are replaced.
	maxIDLength = 128
)

type idKey int

const (
	requestIDKey idKey = iota
	correlationIDKey
)

// idKind describes one of the two tracked identifiers.
type idKind struct {
	header string
	key    idKey
	log    func(context.Context, string) context.Context
}

var (
	requestIDKind     = idKind{header: HeaderRequestID, key: requestIDKey, log: logging.WithRequestID}
	correlationIDKind = idKind{header: HeaderCorrelationID, key: correlationIDKey, log: logging.WithCorrelationID}
)

// RequestID accepts or mints the X-Request-ID of each request.
func RequestID() gin.HandlerFunc { return idMiddleware(requestIDKind) }

// CorrelationID accepts or mints the X-Correlation-ID of each request.
func CorrelationID() gin.HandlerFunc { return idMiddleware(correlationIDKind) }

// idMiddleware echoes the ID on the response and stores it in the request
// context, where both the context logger and outbound client calls find it.
func idMiddleware(kind idKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(kind.header)
		if !validID(id) {
			id = uuid.NewString()
		}

		c.Header(kind.header, id)

		ctx := context.WithValue(c.Request.Context(), kind.key, id)
		c.Request = c.Request.WithContext(kind.log(ctx, id))

		c.Next()
	}
}

// validID accepts printable ASCII without spaces, so a header value can
// never break a log line or a forwarded request.
func validID(id string) bool {
	if id == "" || len(id) > maxIDLength {
		return false
	}

	for i := range len(id) {
		if id[i] <= ' ' || id[i] > '~' {
			return false
		}
	}

	return true
}

// GetRequestID returns the request ID of c, or "" outside the middleware.
func GetRequestID(c *gin.Context) string {
	return RequestIDFromContext(c.Request.Context())
}

// RequestIDFromContext returns the request ID stored by RequestID.
func RequestIDFromContext(ctx context.Context) string { return idFrom(ctx, requestIDKey) }

// CorrelationIDFromContext returns the correlation ID stored by CorrelationID.
func CorrelationIDFromContext(ctx context.Context) string { return idFrom(ctx, correlationIDKey) }

// ContextWithRequestID stores a request ID for outbound propagation.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// ContextWithCorrelationID stores a correlation ID for outbound propagation.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

func idFrom(ctx context.Context, key idKey) string {
	if ctx == nil {
		return ""
	}

	id, _ := ctx.Value(key).(string)

	return id
}
