// Package middleware provides the HTTP middleware chain: request IDs,
// request-scoped logging, Prometheus metrics, and bearer-token auth.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tmcewen/vanir/internal/domain"
)

// RequestIDHeader is the header carrying the request ID.
const RequestIDHeader = "X-Request-ID"

// RequestID tags each request with a unique ID, honoring one already set by
// a load balancer. The ID is echoed in the response headers and stored in
// the request context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		w.Header().Set(RequestIDHeader, requestID)

		ctx := domain.NewContextWithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
