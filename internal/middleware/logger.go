package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tmcewen/vanir/internal/domain"
)

type contextKey string

// loggerContextKey stores the request-scoped logger in the context.
const loggerContextKey contextKey = "logger"

// WithRequestLogger injects a request-scoped logger carrying request
// metadata. Place after RequestID and Authenticate so both attributes are
// available.
func WithRequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := base.With(
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)

			if requestID := domain.RequestIDFromContext(r.Context()); requestID != "" {
				logger = logger.With(slog.String("request_id", requestID))
			}
			if user := domain.UserFromContext(r.Context()); user != nil {
				logger = logger.With(slog.String("user_id", user.ID.String()))
			}

			ctx := context.WithValue(r.Context(), loggerContextKey, logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetLogger retrieves the request-scoped logger, falling back to the given
// logger and finally slog.Default.
func GetLogger(ctx context.Context, fallback ...*slog.Logger) *slog.Logger {
	if logger, ok := ctx.Value(loggerContextKey).(*slog.Logger); ok {
		return logger
	}
	if len(fallback) > 0 && fallback[0] != nil {
		return fallback[0]
	}
	return slog.Default()
}
