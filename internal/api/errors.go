// Package api binds the lattice services to HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/makeuc/lattice/internal/middleware"
	"github.com/makeuc/lattice/internal/validate"
)

// Error codes returned in the error envelope.
const (
	ErrCodeValidation      = "validation_error"
	ErrCodeUnauthorized    = "unauthorized"
	ErrCodeProfileHidden   = "profile_hidden"
	ErrCodeNotFound        = "not_found"
	ErrCodeRateLimited     = "rate_limited"
	ErrCodeInternal        = "internal_error"
	ErrCodeUnavailable     = "unavailable"
	ErrCodeConflict        = "conflict"
	ErrCodeBadRequest      = "bad_request"
	ErrCodeSelfMatch       = "self_match"
	ErrCodeTargetHidden    = "target_hidden"
	ErrCodeAlreadyStarted  = "already_started"
	ErrCodeDuplicateEmail  = "duplicate_email"
	ErrCodeUnsupportedType = "unsupported_type"
	ErrCodeFileTooLarge    = "file_too_large"
	ErrCodeUploadsDisabled = "uploads_disabled"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

// ErrorResponse is the error envelope: {"error": {"code": "...", "message": "..."}}.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error code, a human-readable message, and field
// errors for validation failures.
type ErrorDetail struct {
	Code    string                `json:"code"`
	Message string                `json:"message"`
	Fields  []validate.FieldError `json:"fields,omitempty"`
}

// WriteError writes the error envelope and records code for the request log.
func WriteError(w http.ResponseWriter, ctx context.Context, status int, code, message string) {
	writeErrorDetail(w, ctx, status, ErrorDetail{Code: code, Message: message})
}

// writeValidationError writes a 400 validation_error, listing field errors when err carries them.
func writeValidationError(w http.ResponseWriter, ctx context.Context, message string, err error) {
	detail := ErrorDetail{Code: ErrCodeValidation, Message: message}
	var fieldErrs validate.Errors
	if errors.As(err, &fieldErrs) {
		detail.Fields = fieldErrs
	}
	writeErrorDetail(w, ctx, http.StatusBadRequest, detail)
}

func writeErrorDetail(w http.ResponseWriter, ctx context.Context, status int, detail ErrorDetail) {
	middleware.SetErrorCode(ctx, detail.Code)

	data, err := json.Marshal(ErrorResponse{Error: detail})
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

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, ctx context.Context, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// decodeJSON decodes a size-limited JSON body into dst, rejecting unknown fields.
// On failure it writes a 400 and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		msg := "Invalid JSON in request body"
		if errors.Is(err, io.EOF) {
			msg = "Request body is required"
		}
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeBadRequest, msg)
		return false
	}
	return true
}

// StatusCodeMapping returns the HTTP status used for an error code.
func StatusCodeMapping(code string) int {
	switch code {
	case ErrCodeValidation, ErrCodeBadRequest, ErrCodeSelfMatch, ErrCodeAlreadyStarted,
		ErrCodeUnsupportedType, ErrCodeFileTooLarge:
		return http.StatusBadRequest
	case ErrCodeUnauthorized, ErrCodeProfileHidden:
		return http.StatusUnauthorized
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeConflict, ErrCodeTargetHidden, ErrCodeDuplicateEmail:
		return http.StatusConflict
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeUnavailable, ErrCodeUploadsDisabled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
