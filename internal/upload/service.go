// Package upload issues presigned URLs for uploading resumes directly to
// S3-compatible object storage (Cloudflare R2).
package upload

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/makeuc/lattice/internal/validate"
)

// ErrInvalidOwner is returned when the owner ID has no usable characters.
var ErrInvalidOwner = errors.New("invalid owner ID")

// ResumeURLRequest asks for an upload URL for one resume.
type ResumeURLRequest struct {
	OwnerID     string // registrant ID the resume belongs to
	ContentType string
	SizeBytes   int64
}

// SignedURL is a presigned PUT URL and the object key it writes.
type SignedURL struct {
	URL       string    `json:"url"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// presigner is the subset of *s3.PresignClient used by Service.
type presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Service generates presigned resume upload URLs.
type Service struct {
	presign      presigner
	bucketName   string
	maxSizeBytes int64
	urlExpiry    time.Duration
	timeNow      func() time.Time
}

// ServiceConfig holds configuration for the upload service.
type ServiceConfig struct {
	BucketName       string
	AccessKeyID      string
	SecretAccessKey  string
	Endpoint         string
	MaxSizeMB        int // default 5
	URLExpiryMinutes int // default 5
}

// NewService creates an upload service backed by an R2 bucket.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("bucket name is required")
	}
	if cfg.AccessKeyID == "" {
		return nil, errors.New("access key ID is required")
	}
	if cfg.SecretAccessKey == "" {
		return nil, errors.New("secret access key is required")
	}
	if cfg.Endpoint == "" {
		return nil, errors.New("endpoint is required")
	}

	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 5
	}
	if cfg.URLExpiryMinutes <= 0 {
		cfg.URLExpiryMinutes = 5
	}

	client := s3.New(s3.Options{
		Region: "auto",
		Credentials: aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		BaseEndpoint: aws.String(cfg.Endpoint),
		UsePathStyle: true, // R2 requires path-style addressing
	})

	return &Service{
		presign:      s3.NewPresignClient(client),
		bucketName:   cfg.BucketName,
		maxSizeBytes: int64(cfg.MaxSizeMB) * 1024 * 1024,
		urlExpiry:    time.Duration(cfg.URLExpiryMinutes) * time.Minute,
		timeNow:      time.Now,
	}, nil
}

// ResumeKey builds the object key for a resume.
// Pattern: resumes/{ownerID}/{uuid}{ext}
func ResumeKey(ownerID, ext string) (string, error) {
	owner := sanitizePathComponent(ownerID)
	if owner == "" {
		return "", ErrInvalidOwner
	}
	return fmt.Sprintf("resumes/%s/%s%s", owner, uuid.NewString(), ext), nil
}

// sanitizePathComponent keeps only ASCII letters, digits, hyphens, and underscores.
func sanitizePathComponent(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// GenerateResumeURL validates the request and returns a presigned PUT URL.
func (s *Service) GenerateResumeURL(ctx context.Context, req ResumeURLRequest) (*SignedURL, error) {
	contentType, ext, err := validate.ResumeFile(req.ContentType, req.SizeBytes, s.maxSizeBytes)
	if err != nil {
		return nil, err
	}

	key, err := ResumeKey(req.OwnerID, ext)
	if err != nil {
		return nil, err
	}

	presigned, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucketName),
		Key:           aws.String(key),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(req.SizeBytes),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.urlExpiry
	})
	if err != nil {
		return nil, fmt.Errorf("failed to presign request: %w", err)
	}

	return &SignedURL{
		URL:       presigned.URL,
		Key:       key,
		ExpiresAt: s.timeNow().Add(s.urlExpiry),
	}, nil
}
