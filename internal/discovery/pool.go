package discovery

import (
	"context"

	"github.com/makeuc/lattice/internal/match"
	"github.com/makeuc/lattice/internal/profile"
)

// PoolBuilder derives the set of profiles eligible to be shown to a requester.
type PoolBuilder struct {
	ledger   match.Ledger
	profiles profile.Reader
}

// NewPoolBuilder creates a PoolBuilder.
func NewPoolBuilder(ledger match.Ledger, profiles profile.Reader) *PoolBuilder {
	return &PoolBuilder{ledger: ledger, profiles: profiles}
}

// Build reads the requester's match targets and returns the candidate pool.
func (b *PoolBuilder) Build(ctx context.Context, requester *profile.Profile) ([]*profile.Profile, error) {
	targets, err := b.ledger.GetMatchTargets(ctx, requester.ID)
	if err != nil {
		return nil, transient("read match targets", err)
	}
	return b.FromTargets(ctx, requester, targets)
}

// FromTargets returns every visible profile that is neither the requester
// nor one of targets. Duplicate targets are harmless.
//
// The exclusion is passed to the store and re-applied to the returned rows.
func (b *PoolBuilder) FromTargets(ctx context.Context, requester *profile.Profile, targets []string) ([]*profile.Profile, error) {
	exclude := make(map[string]struct{}, len(targets)+1)
	for _, id := range targets {
		exclude[id] = struct{}{}
	}
	exclude[requester.ID] = struct{}{}

	rows, err := b.profiles.GetVisibleProfiles(ctx, exclude)
	if err != nil {
		return nil, transient("read visible profiles", err)
	}

	pool := make([]*profile.Profile, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, p := range rows {
		if p == nil || !p.Visible {
			continue
		}
		if _, excluded := exclude[p.ID]; excluded {
			continue
		}
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		pool = append(pool, p)
	}
	return pool, nil
}
