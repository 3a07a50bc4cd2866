package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/makeuc/lattice/internal/validate"
)

// Field limits for profile updates.
const (
	MaxNameLength       = 100
	MaxIdeaLength       = 2000
	MaxSkills           = 20
	MaxLookingFor       = 10
	MaxTagLength        = 40
	maxSlackHandleChars = 80
)

// Update is the owner-editable part of a profile.
type Update struct {
	Name       string   `json:"name" validate:"required,max=100"`
	Email      string   `json:"email" validate:"required,email,max=254"`
	Skills     []string `json:"skills" validate:"max=20,dive,max=40"`
	Idea       string   `json:"idea" validate:"max=2000"`
	LookingFor []string `json:"looking_for" validate:"max=10,dive,max=40"`
	Slack      string   `json:"slack" validate:"slack"`
}

// Service implements the profile lifecycle on top of a Store.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a profile service. A nil logger uses slog.Default().
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// Get returns the profile with the given ID.
func (s *Service) Get(ctx context.Context, id string) (*Profile, error) {
	return s.store.GetProfile(ctx, id)
}

// Start marks a profile as started, creating it on first use. A new profile
// takes email from the caller's token and begins hidden.
// Returns ErrAlreadyStarted if it was started before.
func (s *Service) Start(ctx context.Context, id, email string) (*Profile, error) {
	p, err := s.store.GetProfile(ctx, id)
	if errors.Is(err, ErrProfileNotFound) {
		return s.create(ctx, id, email)
	}
	if err != nil {
		return nil, err
	}
	if p.Started {
		return nil, ErrAlreadyStarted
	}

	p.Started = true
	if err := s.store.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to start profile: %w", err)
	}

	s.logger.InfoContext(ctx, "profile started", slog.String("profile_id", id))
	return p, nil
}

func (s *Service) create(ctx context.Context, id, email string) (*Profile, error) {
	p := &Profile{ID: id, Email: email, Started: true}
	err := s.store.Insert(ctx, p)
	if errors.Is(err, ErrProfileExists) {
		return nil, ErrAlreadyStarted
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	s.logger.InfoContext(ctx, "profile created", slog.String("profile_id", id))
	return p, nil
}

// Update normalizes and validates u, applies it, and marks the profile completed.
// Validation failures wrap ErrInvalidProfile together with validate.Errors.
func (s *Service) Update(ctx context.Context, id string, u Update) (*Profile, error) {
	normalized, err := normalizeUpdate(u)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	}
	if err := validate.Struct(normalized); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	}

	p, err := s.store.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	p.Name = normalized.Name
	p.Email = normalized.Email
	p.Skills = normalized.Skills
	p.Idea = normalized.Idea
	p.LookingFor = normalized.LookingFor
	p.Slack = normalized.Slack
	p.Completed = true

	if err := s.store.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	s.logger.InfoContext(ctx, "profile updated",
		slog.String("profile_id", id),
		slog.Int("skills", len(p.Skills)),
		slog.Int("looking_for", len(p.LookingFor)),
	)

	return s.store.GetProfile(ctx, id)
}

// SetVisible shows or hides a profile from other users' candidate pools.
func (s *Service) SetVisible(ctx context.Context, id string, visible bool) (*Profile, error) {
	p, err := s.store.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Visible == visible {
		return p, nil
	}

	p.Visible = visible
	if err := s.store.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to set visibility: %w", err)
	}

	s.logger.InfoContext(ctx, "profile visibility changed",
		slog.String("profile_id", id),
		slog.Bool("visible", visible),
	)
	return p, nil
}

func normalizeUpdate(u Update) (Update, error) {
	var err error
	out := Update{}

	if out.Name, err = validate.Text(u.Name, validate.TextConstraints{MaxLength: MaxNameLength}); err != nil {
		return out, fmt.Errorf("name: %w", err)
	}
	if out.Email, err = validate.Email(u.Email); err != nil {
		return out, fmt.Errorf("email: %w", err)
	}
	if out.Idea, err = validate.Text(u.Idea, validate.TextConstraints{MaxLength: MaxIdeaLength, AllowEmpty: true}); err != nil {
		return out, fmt.Errorf("idea: %w", err)
	}
	if out.Skills, err = validate.Tags(u.Skills, MaxSkills, MaxTagLength); err != nil {
		return out, fmt.Errorf("skills: %w", err)
	}
	if out.LookingFor, err = validate.Tags(u.LookingFor, MaxLookingFor, MaxTagLength); err != nil {
		return out, fmt.Errorf("looking_for: %w", err)
	}
	if out.Slack, err = validate.Text(u.Slack, validate.TextConstraints{MaxLength: maxSlackHandleChars, AllowEmpty: true}); err != nil {
		return out, fmt.Errorf("slack: %w", err)
	}
	return out, nil
}
