// Package match records expressions of interest between profiles and
// answers which profiles a user has already acted on.
package match

import (
	"context"
	"errors"
	"time"
)

// Common errors for match operations.
var (
	ErrSelfMatch = errors.New("cannot match with self")
)

// Match is a directed, immutable record that FromID expressed interest in ToID.
type Match struct {
	ID        string    `json:"id"`
	FromID    string    `json:"from_id"`
	ToID      string    `json:"to_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Ledger answers which profiles a user has already targeted.
type Ledger interface {
	// GetMatchTargets returns the to-ids of every match created by fromID.
	// A user with no history gets an empty slice and a nil error.
	GetMatchTargets(ctx context.Context, fromID string) ([]string, error)
}

// Recorder appends matches.
type Recorder interface {
	// Record appends a match from fromID to toID.
	// Returns ErrSelfMatch when fromID == toID. Repeated pairs are kept.
	Record(ctx context.Context, fromID, toID string) (*Match, error)
}

// Store is full match storage.
type Store interface {
	Ledger
	Recorder

	// ListByTarget returns matches whose ToID is toID, oldest first.
	ListByTarget(ctx context.Context, toID string) ([]*Match, error)
}
