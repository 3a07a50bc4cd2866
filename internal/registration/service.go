package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/makeuc/lattice/internal/upload"
	"github.com/makeuc/lattice/internal/validate"
)

// ResumeUploader issues presigned resume upload URLs.
type ResumeUploader interface {
	GenerateResumeURL(ctx context.Context, req upload.ResumeURLRequest) (*upload.SignedURL, error)
}

// ServiceConfig holds the dependencies of a Service.
type ServiceConfig struct {
	Repository Repository
	Mailer     Mailer         // defaults to a LogMailer, which delivers nothing
	Uploader   ResumeUploader // optional; resume uploads are disabled when nil
	Mail       MailConfig
	Logger     *slog.Logger
}

// Service implements registration, verification, and resume uploads.
type Service struct {
	repo     Repository
	mailer   Mailer
	uploader ResumeUploader
	mail     MailConfig
	logger   *slog.Logger
}

// ErrUploadsDisabled is returned when no object storage is configured.
var ErrUploadsDisabled = errors.New("resume uploads are not configured")

// NewService creates a registration service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Repository == nil {
		return nil, errors.New("registrant repository is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Mailer == nil {
		cfg.Mailer = NewLogMailer(cfg.Logger)
	}
	return &Service{
		repo:     cfg.Repository,
		mailer:   cfg.Mailer,
		uploader: cfg.Uploader,
		mail:     cfg.Mail,
		logger:   cfg.Logger,
	}, nil
}

// Register validates req, stores the registrant, and sends the
// verification email. A mail failure is logged and does not fail the call.
func (s *Service) Register(ctx context.Context, req Request) (*Registrant, error) {
	email, err := validate.Email(req.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: email: %w", ErrInvalidRegistrant, err)
	}
	req.Email = email

	fullName, err := validate.Text(req.FullName, validate.TextConstraints{MaxLength: 200})
	if err != nil {
		return nil, fmt.Errorf("%w: full_name: %w", ErrInvalidRegistrant, err)
	}
	req.FullName = fullName

	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRegistrant, err)
	}

	r := &Registrant{
		ID:                 uuid.NewString(),
		FullName:           req.FullName,
		Email:              req.Email,
		Degree:             req.Degree,
		HackathonsAttended: req.HackathonsAttended,
		Ethnicity:          req.Ethnicity,
		Gender:             req.Gender,
	}
	if err := s.repo.Insert(ctx, r); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "registrant created", slog.String("registrant_id", r.ID))
	s.sendVerification(ctx, r)
	return r, nil
}

func (s *Service) sendVerification(ctx context.Context, r *Registrant) {
	msg, err := VerificationMessage(r, s.mail)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to build verification email",
			slog.String("registrant_id", r.ID),
			slog.String("error", err.Error()))
		return
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "failed to send verification email",
			slog.String("registrant_id", r.ID),
			slog.String("error", err.Error()))
	}
}

// Verify marks the registrant's email verified and reports whether it
// had already been verified.
func (s *Service) Verify(ctx context.Context, id string) (alreadyVerified bool, err error) {
	alreadyVerified, err = s.repo.MarkVerified(ctx, id)
	if err != nil {
		return false, err
	}
	if !alreadyVerified {
		s.logger.InfoContext(ctx, "registrant verified", slog.String("registrant_id", id))
	}
	return alreadyVerified, nil
}

// RequestResumeUpload issues an upload URL for the registrant's resume and
// records the object key on the registrant.
func (s *Service) RequestResumeUpload(ctx context.Context, id, contentType string, sizeBytes int64) (*upload.SignedURL, error) {
	if s.uploader == nil {
		return nil, ErrUploadsDisabled
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}

	signed, err := s.uploader.GenerateResumeURL(ctx, upload.ResumeURLRequest{
		OwnerID:     id,
		ContentType: contentType,
		SizeBytes:   sizeBytes,
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetResumeKey(ctx, id, signed.Key); err != nil {
		return nil, err
	}
	return signed, nil
}
