// Package discovery builds a requester's candidate pool and returns it
// ranked by compatibility score.
package discovery

import (
	"context"
	"errors"
	"fmt"
)

// Errors returned by GetScoredProfiles. Callers should use errors.Is.
var (
	// ErrNotFound is returned when the requester has no profile.
	ErrNotFound = errors.New("profile not found")

	// ErrUnauthorized is returned when the requester's profile is not visible.
	ErrUnauthorized = errors.New("profile must be visible")

	// ErrTransientIO is returned when the profile store or match ledger could
	// not be read. The request may be retried by the caller.
	ErrTransientIO = errors.New("backing store unavailable")
)

// transient wraps a storage failure as ErrTransientIO. Context errors pass
// through unchanged so cancellation is reported as such.
func transient(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrTransientIO, op, err)
}
