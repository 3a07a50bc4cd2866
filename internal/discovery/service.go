package discovery

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/makeuc/lattice/internal/match"
	"github.com/makeuc/lattice/internal/profile"
	"github.com/makeuc/lattice/internal/ranking"
	"github.com/makeuc/lattice/internal/tracing"
)

// ScoredProfile is one ranked candidate.
type ScoredProfile struct {
	Profile profile.View `json:"profile"`
	Score   float64      `json:"score"`
}

// ServiceConfig holds the dependencies of a Service.
type ServiceConfig struct {
	Profiles profile.Reader
	Ledger   match.Ledger

	// Weights defaults to ranking.DefaultWeights when nil.
	Weights *ranking.Weights

	// Metrics and Logger are optional.
	Metrics *Metrics
	Logger  *slog.Logger
}

// Service is the ranking pipeline entry point.
type Service struct {
	profiles profile.Reader
	ledger   match.Ledger
	pool     *PoolBuilder
	weights  *ranking.Weights
	metrics  *Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a ranking pipeline.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Profiles == nil {
		return nil, errors.New("profile reader is required")
	}
	if cfg.Ledger == nil {
		return nil, errors.New("match ledger is required")
	}
	if cfg.Weights == nil {
		cfg.Weights = ranking.DefaultWeights()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Service{
		profiles: cfg.Profiles,
		ledger:   cfg.Ledger,
		pool:     NewPoolBuilder(cfg.Ledger, cfg.Profiles),
		weights:  cfg.Weights,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		now:      time.Now,
	}, nil
}

// GetScoredProfiles returns every candidate for requesterID ordered by score
// descending, with ties broken by profile ID ascending.
//
// The requester profile and match targets are read concurrently and the
// ledger is read exactly once. Errors about the requester itself take
// precedence over a ledger failure. Any read failure aborts the request and
// no partial list is ever returned.
func (s *Service) GetScoredProfiles(ctx context.Context, requesterID string) (result []ScoredProfile, err error) {
	start := s.now()
	ctx, endSpan := tracing.StartSpan(ctx, "discovery.get_scored_profiles")
	defer func() {
		endSpan(err)
		s.metrics.observe(outcomeOf(err), s.now().Sub(start).Seconds())
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		requester  *profile.Profile
		targets    []string
		profileErr error
		ledgerErr  error
	)

	// The reads share no cancellation so a failing ledger never masks the
	// requester's own state.
	var g errgroup.Group
	g.Go(func() error {
		requester, profileErr = s.profiles.GetProfile(ctx, requesterID)
		return profileErr
	})
	g.Go(func() error {
		targets, ledgerErr = s.ledger.GetMatchTargets(ctx, requesterID)
		return ledgerErr
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch {
	case errors.Is(profileErr, profile.ErrProfileNotFound):
		return nil, ErrNotFound
	case profileErr != nil:
		return nil, transient("read requester profile", profileErr)
	case !requester.Visible:
		return nil, ErrUnauthorized
	case ledgerErr != nil:
		return nil, transient("read match targets", ledgerErr)
	}

	pool, err := s.pool.FromTargets(ctx, requester, targets)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.metrics.observePool(len(pool))
	tracing.SetAttributes(ctx,
		attribute.Int("discovery.pool_size", len(pool)),
		attribute.Int("discovery.excluded", len(targets)),
	)

	result = rank(requester, pool, s.weights)

	s.logger.DebugContext(ctx, "scored profiles",
		slog.String("requester_id", requesterID),
		slog.Int("pool_size", len(pool)),
		slog.Int("match_targets", len(targets)),
	)
	return result, nil
}

// rank scores each candidate and sorts by score descending then ID ascending.
func rank(requester *profile.Profile, pool []*profile.Profile, w *ranking.Weights) []ScoredProfile {
	result := make([]ScoredProfile, len(pool))
	for i, p := range pool {
		result[i] = ScoredProfile{
			Profile: p.View(),
			Score:   ranking.Score(requester, p, w),
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].Profile.ID < result[j].Profile.ID
	})
	return result
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrUnauthorized):
		return OutcomeUnauthorized
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	default:
		return OutcomeTransient
	}
}
