// Package idempotency stores the responses of completed requests so a client
// retrying with the same Idempotency-Key gets the original answer back.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

var (
	// ErrKeyNotFound is returned when no response is stored under a key.
	ErrKeyNotFound = errors.New("idempotency key not found")

	// ErrKeyExists is returned when a key is already reserved or holds a response.
	ErrKeyExists = errors.New("idempotency key already exists")

	// ErrInvalidKey is returned for empty keys or keys with non-printable characters.
	ErrInvalidKey = errors.New("invalid idempotency key")

	// ErrKeyTooLong is returned when the key exceeds MaxKeyLength.
	ErrKeyTooLong = errors.New("idempotency key exceeds maximum length of 64 characters")
)

// MaxKeyLength is the maximum allowed length for a client-supplied key.
const MaxKeyLength = 64

// DefaultExpiry is how long stored responses are replayed.
const DefaultExpiry = 24 * time.Hour

// ReservationTTL bounds how long an in-flight reservation blocks its key if
// the request never completes.
const ReservationTTL = time.Minute

// Record is a stored response. A record with a zero StatusCode is a
// reservation held by a request that is still running.
type Record struct {
	Key         string    `json:"key"`
	Method      string    `json:"method"`
	Route       string    `json:"route"`
	StatusCode  int       `json:"status_code"`
	ContentType string    `json:"content_type"`
	Body        []byte    `json:"body"`
	BodyHash    string    `json:"body_hash"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store persists records.
type Store interface {
	// Get returns the record under key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) (*Record, error)

	// Reserve atomically claims key for an in-flight request.
	// Returns ErrKeyExists if the key is reserved or holds a response.
	Reserve(ctx context.Context, key string) error

	// Complete stores rec under a key this request reserved.
	Complete(ctx context.Context, rec *Record) error

	// Release drops a reservation so the key can be used again.
	Release(ctx context.Context, key string) error
}

// Expirer is implemented by stores that need explicit expiry.
type Expirer interface {
	DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

// ValidateKey checks a client-supplied key.
func ValidateKey(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	for i := 0; i < len(key); i++ {
		if key[i] < 0x21 || key[i] > 0x7e {
			return ErrInvalidKey
		}
	}
	return nil
}

// ComputeResponseHash returns the hex SHA-256 of a response body.
func ComputeResponseHash(body []byte) string {
	hash := sha256.Sum256(body)
	return hex.EncodeToString(hash[:])
}

// Pending reports whether the record is a reservation without a response.
func (r *Record) Pending() bool {
	return r.StatusCode == 0
}

// Verify reports whether the record body still matches its hash.
func (r *Record) Verify() bool {
	return r.BodyHash == ComputeResponseHash(r.Body)
}

func (r *Record) clone() *Record {
	c := *r
	c.Body = append([]byte(nil), r.Body...)
	return &c
}
