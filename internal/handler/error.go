// Package handler provides shared HTTP response helpers: the JSON response
// envelope and the mapping from domain errors to HTTP statuses.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/tmcewen/vanir/internal/domain"
	"github.com/tmcewen/vanir/internal/middleware"
)

// ErrorCodeToHTTPStatus maps domain error codes to HTTP status codes.
func ErrorCodeToHTTPStatus(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.EUNAUTHORIZED:
		return http.StatusUnauthorized
	case domain.EFORBIDDEN:
		return http.StatusForbidden
	case domain.ENOTFOUND:
		return http.StatusNotFound
	case domain.ECONFLICT:
		return http.StatusConflict
	case domain.ERATELIMIT:
		return http.StatusTooManyRequests
	case domain.EINTERNAL:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse writes err as a JSON error envelope with the appropriate
// status code. Field-level validation errors carry an errors map; internal
// errors are logged with their operation and hidden behind a generic
// message.
func ErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	if domain.IsValidationError(err) {
		JSON(w, http.StatusBadRequest, envelope{
			Success: false,
			Message: "Validation failed",
			Errors:  domain.GetValidationFields(err),
		})
		return
	}

	code := domain.ErrorCode(err)
	if code == domain.EINTERNAL {
		middleware.GetLogger(r.Context()).Error("internal error",
			slog.String("op", domain.ErrorOp(err)),
			slog.Any("error", err),
		)
	}

	JSON(w, ErrorCodeToHTTPStatus(code), envelope{
		Success: false,
		Message: domain.ErrorMessage(err),
	})
}
