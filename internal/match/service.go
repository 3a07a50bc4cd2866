package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/makeuc/lattice/internal/profile"
)

// Errors returned by Service.Create.
var (
	ErrRequesterHidden = errors.New("profile must be visible")
	ErrTargetNotFound  = errors.New("target profile not found")
	ErrTargetHidden    = errors.New("target profile is not visible")
)

// Service records matches between visible profiles.
type Service struct {
	store    Store
	profiles profile.Reader
	logger   *slog.Logger
}

// NewService creates a match service. A nil logger uses slog.Default().
func NewService(store Store, profiles profile.Reader, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, profiles: profiles, logger: logger}
}

// Create records that fromID is interested in toID. Both profiles must exist
// and be visible; the requester is checked first.
func (s *Service) Create(ctx context.Context, fromID, toID string) (*Match, error) {
	if fromID == toID {
		return nil, ErrSelfMatch
	}

	from, err := s.profiles.GetProfile(ctx, fromID)
	if err != nil {
		return nil, err
	}
	if !from.Visible {
		return nil, ErrRequesterHidden
	}

	to, err := s.profiles.GetProfile(ctx, toID)
	if errors.Is(err, profile.ErrProfileNotFound) {
		return nil, ErrTargetNotFound
	}
	if err != nil {
		return nil, err
	}
	if !to.Visible {
		return nil, ErrTargetHidden
	}

	m, err := s.store.Record(ctx, fromID, toID)
	if err != nil {
		return nil, fmt.Errorf("failed to record match: %w", err)
	}

	s.logger.InfoContext(ctx, "match recorded",
		slog.String("match_id", m.ID),
		slog.String("from_id", fromID),
		slog.String("to_id", toID),
	)
	return m, nil
}

// Inbound returns the matches other profiles have made toward id, oldest first.
func (s *Service) Inbound(ctx context.Context, id string) ([]*Match, error) {
	matches, err := s.store.ListByTarget(ctx, id)
	if err != nil {
		return nil, err
	}
	if matches == nil {
		matches = []*Match{}
	}
	return matches, nil
}
