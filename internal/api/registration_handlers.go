package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/makeuc/lattice/internal/registration"
	"github.com/makeuc/lattice/internal/upload"
	"github.com/makeuc/lattice/internal/validate"
)

// RegistrationHandlers serves the public registration routes.
type RegistrationHandlers struct {
	registrations *registration.Service
	websiteURL    string
}

// NewRegistrationHandlers creates registration handlers. Verification
// redirects go to websiteURL.
func NewRegistrationHandlers(registrations *registration.Service, websiteURL string) *RegistrationHandlers {
	return &RegistrationHandlers{
		registrations: registrations,
		websiteURL:    strings.TrimRight(websiteURL, "/"),
	}
}

// ResumeURLRequest is the body of POST /registrants/{id}/resume-url.
type ResumeURLRequest struct {
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

// Register handles POST /registrants.
func (h *RegistrationHandlers) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registration.Request
	if !decodeJSON(w, r, &req) {
		return
	}

	reg, err := h.registrations.Register(ctx, req)
	switch {
	case err == nil:
		writeJSON(w, ctx, http.StatusCreated, reg)
	case errors.Is(err, registration.ErrInvalidRegistrant):
		writeValidationError(w, ctx, "Invalid registration", err)
	case errors.Is(err, registration.ErrDuplicateEmail):
		WriteError(w, ctx, http.StatusConflict, ErrCodeDuplicateEmail, "Email is already registered")
	default:
		slog.ErrorContext(ctx, "failed to register", "error", err)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to register")
	}
}

// Verify handles GET /registrants/verify/{id} and redirects to the website.
func (h *RegistrationHandlers) Verify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	already, err := h.registrations.Verify(ctx, r.PathValue("id"))
	switch {
	case err == nil:
	case errors.Is(err, registration.ErrRegistrantNotFound):
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Registrant not found")
		return
	default:
		slog.ErrorContext(ctx, "failed to verify registrant", "error", err)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to verify registrant")
		return
	}

	target := h.websiteURL + "/verified"
	if already {
		target = h.websiteURL + "/already-verified"
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// ResumeURL handles POST /registrants/{id}/resume-url.
func (h *RegistrationHandlers) ResumeURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ResumeURLRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ContentType == "" {
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "content_type is required")
		return
	}

	signed, err := h.registrations.RequestResumeUpload(ctx, r.PathValue("id"), req.ContentType, req.SizeBytes)
	switch {
	case err == nil:
		writeJSON(w, ctx, http.StatusOK, signed)
	case errors.Is(err, registration.ErrRegistrantNotFound):
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Registrant not found")
	case errors.Is(err, validate.ErrInvalidMIMEType):
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeUnsupportedType, "Resume must be a PDF, DOC, or DOCX file")
	case errors.Is(err, validate.ErrFileTooLarge):
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeFileTooLarge, "Resume exceeds the maximum size")
	case errors.Is(err, validate.ErrFileEmpty), errors.Is(err, upload.ErrInvalidOwner):
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, registration.ErrUploadsDisabled):
		WriteError(w, ctx, http.StatusServiceUnavailable, ErrCodeUploadsDisabled, "Resume uploads are not available")
	default:
		slog.ErrorContext(ctx, "failed to issue resume upload URL", "error", err)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to issue upload URL")
	}
}
