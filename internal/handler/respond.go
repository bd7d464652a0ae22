package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/tmcewen/vanir/internal/domain"
)

// envelope is the JSON shape of every API response.
type envelope struct {
	Success    bool              `json:"success"`
	Message    string            `json:"message,omitempty"`
	Data       any               `json:"data,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
	Pagination *Pagination       `json:"pagination,omitempty"`
}

// Pagination describes one page of a list response.
type Pagination struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"perPage"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int   `json:"totalPages"`
}

// NewPagination computes page counts from totals.
func NewPagination(page, perPage int, totalItems int64) *Pagination {
	totalPages := int(totalItems) / perPage
	if int(totalItems)%perPage != 0 {
		totalPages++
	}
	return &Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: totalItems,
		TotalPages: totalPages,
	}
}

// JSON writes data as a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// OK writes a success envelope.
func OK(w http.ResponseWriter, status int, message string, data any) {
	JSON(w, status, envelope{Success: true, Message: message, Data: data})
}

// OKPage writes a success envelope with pagination.
func OKPage(w http.ResponseWriter, data any, pagination *Pagination) {
	JSON(w, http.StatusOK, envelope{Success: true, Data: data, Pagination: pagination})
}

// maxBodyBytes caps request body size.
const maxBodyBytes = 1 << 20

// DecodeJSON reads the request body into dst, rejecting unknown fields and
// oversized or malformed payloads with EINVALID.
func DecodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return domain.Invalid("handler.decode", "request body is required")
		case errors.As(err, &maxBytesErr):
			return domain.Invalid("handler.decode", fmt.Sprintf("request body exceeds %d bytes", maxBytesErr.Limit))
		default:
			return domain.Invalid("handler.decode", "invalid JSON payload")
		}
	}

	// A second value means trailing garbage after the JSON document.
	if dec.More() {
		return domain.Invalid("handler.decode", "request body must contain a single JSON object")
	}
	return nil
}
