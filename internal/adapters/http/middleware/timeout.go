package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotesync/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotesync/internal/platform/logging"
)

// Timeout puts a deadline on the request context. Handlers run inline; when
// one returns after the deadline without writing, a 503 TIMEOUT envelope is
// sent instead of an empty 200.
func Timeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if !errors.Is(ctx.Err(), context.DeadlineExceeded) || c.Writer.Written() {
			return
		}

		logging.FromContext(ctx).Warn("request deadline exceeded",
			slog.String("path", c.Request.URL.Path),
			slog.Duration("timeout", timeout),
		)

		abortWithError(c, http.StatusServiceUnavailable, dto.ErrorCodeTimeout, "request timeout exceeded")
	}
}
