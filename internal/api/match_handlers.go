package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/makeuc/lattice/internal/match"
	"github.com/makeuc/lattice/internal/middleware"
	"github.com/makeuc/lattice/internal/profile"
)

// MatchHandlers serves match creation and inbound interest.
type MatchHandlers struct {
	matches *match.Service
}

// NewMatchHandlers creates match handlers.
func NewMatchHandlers(matches *match.Service) *MatchHandlers {
	return &MatchHandlers{matches: matches}
}

// CreateMatchRequest is the body of POST /matches.
type CreateMatchRequest struct {
	ToID string `json:"to_id"`
}

// CreateMatch handles POST /matches.
func (h *MatchHandlers) CreateMatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateMatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ToID == "" {
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "to_id is required")
		return
	}

	m, err := h.matches.Create(ctx, middleware.GetProfileID(ctx), req.ToID)
	switch {
	case err == nil:
		writeJSON(w, ctx, http.StatusCreated, m)
	case errors.Is(err, match.ErrSelfMatch):
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeSelfMatch, "Cannot match with yourself")
	case errors.Is(err, match.ErrRequesterHidden):
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeProfileHidden, "Profile must be visible")
	case errors.Is(err, match.ErrTargetNotFound), errors.Is(err, profile.ErrProfileNotFound):
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Profile not found")
	case errors.Is(err, match.ErrTargetHidden):
		WriteError(w, ctx, http.StatusConflict, ErrCodeTargetHidden, "Target profile is not visible")
	default:
		slog.ErrorContext(ctx, "failed to create match", "error", err)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to create match")
	}
}

// InboundMatches handles GET /matches/inbound.
func (h *MatchHandlers) InboundMatches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	matches, err := h.matches.Inbound(ctx, middleware.GetProfileID(ctx))
	if err != nil {
		slog.ErrorContext(ctx, "failed to list inbound matches", "error", err)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list matches")
		return
	}
	writeJSON(w, ctx, http.StatusOK, matches)
}
