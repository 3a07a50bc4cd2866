package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/makeuc/lattice/internal/discovery"
	"github.com/makeuc/lattice/internal/middleware"
	"github.com/makeuc/lattice/internal/profile"
)

// ProfileHandlers serves the authenticated profile routes and the ranked candidate list.
type ProfileHandlers struct {
	profiles  *profile.Service
	discovery *discovery.Service
}

// NewProfileHandlers creates profile handlers.
func NewProfileHandlers(profiles *profile.Service, discovery *discovery.Service) *ProfileHandlers {
	return &ProfileHandlers{profiles: profiles, discovery: discovery}
}

// VisibilityRequest is the body of PUT /profile/visibility.
type VisibilityRequest struct {
	Visible *bool `json:"visible"`
}

// GetProfile handles GET /profile.
func (h *ProfileHandlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.profiles.Get(r.Context(), middleware.GetProfileID(r.Context()))
	if err != nil {
		h.writeProfileError(w, r, err)
		return
	}
	writeJSON(w, r.Context(), http.StatusOK, p)
}

// StartProfile handles POST /profile/start. The first call creates the profile.
func (h *ProfileHandlers) StartProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := h.profiles.Start(ctx, middleware.GetProfileID(ctx), middleware.GetProfileEmail(ctx))
	if err != nil {
		h.writeProfileError(w, r, err)
		return
	}
	writeJSON(w, r.Context(), http.StatusOK, p)
}

// UpdateProfile handles PUT /profile.
func (h *ProfileHandlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profile.Update
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.profiles.Update(r.Context(), middleware.GetProfileID(r.Context()), req)
	if err != nil {
		h.writeProfileError(w, r, err)
		return
	}
	writeJSON(w, r.Context(), http.StatusOK, p)
}

// SetVisibility handles PUT /profile/visibility.
func (h *ProfileHandlers) SetVisibility(w http.ResponseWriter, r *http.Request) {
	var req VisibilityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Visible == nil {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeValidation, "visible is required")
		return
	}

	p, err := h.profiles.SetVisible(r.Context(), middleware.GetProfileID(r.Context()), *req.Visible)
	if err != nil {
		h.writeProfileError(w, r, err)
		return
	}
	writeJSON(w, r.Context(), http.StatusOK, p)
}

// ScoredProfiles handles GET /profiles/scored.
func (h *ProfileHandlers) ScoredProfiles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scored, err := h.discovery.GetScoredProfiles(ctx, middleware.GetProfileID(ctx))
	switch {
	case err == nil:
		writeJSON(w, ctx, http.StatusOK, scored)
	case errors.Is(err, discovery.ErrUnauthorized):
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeProfileHidden, "Profile must be visible")
	case errors.Is(err, discovery.ErrNotFound):
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Profile not found")
	case errors.Is(err, discovery.ErrTransientIO):
		slog.WarnContext(ctx, "candidate ranking unavailable", "error", err)
		w.Header().Set("Retry-After", "1")
		WriteError(w, ctx, http.StatusServiceUnavailable, ErrCodeUnavailable, "Candidate ranking is temporarily unavailable")
	default:
		slog.ErrorContext(ctx, "failed to rank candidates", "error", err)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to rank candidates")
	}
}

func (h *ProfileHandlers) writeProfileError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, profile.ErrProfileNotFound):
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Profile not found")
	case errors.Is(err, profile.ErrAlreadyStarted):
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeAlreadyStarted, "Profile already started")
	case errors.Is(err, profile.ErrInvalidProfile):
		writeValidationError(w, ctx, "Invalid profile fields", err)
	default:
		slog.ErrorContext(ctx, "profile operation failed", "error", err)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to update profile")
	}
}
