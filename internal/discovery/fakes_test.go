package discovery

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/makeuc/lattice/internal/match"
	"github.com/makeuc/lattice/internal/profile"
)

var errStoreDown = errors.New("connection refused")

// countingLedger wraps a Ledger and counts reads.
type countingLedger struct {
	match.Ledger
	reads atomic.Int32
}

func (l *countingLedger) GetMatchTargets(ctx context.Context, fromID string) ([]string, error) {
	l.reads.Add(1)
	return l.Ledger.GetMatchTargets(ctx, fromID)
}

type failingLedger struct{ err error }

func (l failingLedger) GetMatchTargets(ctx context.Context, fromID string) ([]string, error) {
	return nil, l.err
}

// leakyReader ignores the exclusion set and returns every stored profile,
// hidden ones included.
type leakyReader struct {
	*profile.InMemoryStore
	all []*profile.Profile
}

func (r leakyReader) GetVisibleProfiles(ctx context.Context, exclude map[string]struct{}) ([]*profile.Profile, error) {
	out := make([]*profile.Profile, 0, len(r.all)*2)
	for _, p := range r.all {
		out = append(out, p.Clone(), p.Clone())
	}
	return out, nil
}

// failingReader fails either profile lookups or the visible-profile scan.
type failingReader struct {
	profile.Reader
	failGet  bool
	failList bool
}

func (r failingReader) GetProfile(ctx context.Context, id string) (*profile.Profile, error) {
	if r.failGet {
		return nil, errStoreDown
	}
	return r.Reader.GetProfile(ctx, id)
}

func (r failingReader) GetVisibleProfiles(ctx context.Context, exclude map[string]struct{}) ([]*profile.Profile, error) {
	if r.failList {
		return nil, errStoreDown
	}
	return r.Reader.GetVisibleProfiles(ctx, exclude)
}

// slowReader delays profile lookups and gives up once ctx is done, the way a
// database driver does.
type slowReader struct {
	profile.Reader
	delay time.Duration
}

func (r slowReader) GetProfile(ctx context.Context, id string) (*profile.Profile, error) {
	select {
	case <-time.After(r.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return r.Reader.GetProfile(ctx, id)
}
