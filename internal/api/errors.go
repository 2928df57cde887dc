// Package api provides the HTTP handlers for the recommendation service,
// including standardized error handling.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/onnwee/singme/internal/middleware"
	"github.com/onnwee/singme/internal/recommendation"
)

// Common error codes used throughout the API.
const (
	// ErrCodeValidation indicates input validation failure.
	ErrCodeValidation = "validation_error"

	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound = "not_found"

	// ErrCodeConflict indicates a conflict with the current state.
	ErrCodeConflict = "conflict"

	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal = middleware.ErrCodeInternal
)

// ErrorResponse represents the standard error response format.
// All API errors return JSON in this structure: {"error": {"code": "...", "message": "..."}}
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error code and human-readable message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError writes a standardized JSON error response and records code in
// the request context so the logging middleware reports it.
//
// Format: {"error": {"code": "error_code", "message": "Error description"}}
func WriteError(w http.ResponseWriter, ctx context.Context, status int, code, message string) {
	ctx = middleware.SetErrorCode(ctx, code)

	data, err := json.Marshal(ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal error response", "error", err)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Internal server error"))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.ErrorContext(ctx, "failed to write error response", "error", err)
	}
}

// StatusCodeMapping returns the HTTP status code for an error code.
func StatusCodeMapping(code string) int {
	switch code {
	case ErrCodeValidation:
		return http.StatusUnprocessableEntity
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// errorCodeFor classifies a service error.
func errorCodeFor(err error) string {
	switch {
	case errors.Is(err, recommendation.ErrValidation):
		return ErrCodeValidation
	case errors.Is(err, recommendation.ErrDuplicateName):
		return ErrCodeConflict
	case errors.Is(err, recommendation.ErrNotFound):
		return ErrCodeNotFound
	default:
		return ErrCodeInternal
	}
}

// WriteServiceError maps a recommendation service error onto the error
// envelope. Internal errors are logged and their detail is not exposed.
func WriteServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code := errorCodeFor(err)
	message := err.Error()
	switch code {
	case ErrCodeInternal:
		slog.ErrorContext(r.Context(), "request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path)
		message = "Internal server error"
	case ErrCodeNotFound:
		message = "Recommendation not found"
	case ErrCodeConflict:
		message = "A recommendation with this name already exists"
	}
	WriteError(w, r.Context(), StatusCodeMapping(code), code, message)
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}
