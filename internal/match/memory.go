package match

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryLedger is an in-memory implementation of Store.
// Thread-safe via RWMutex.
type InMemoryLedger struct {
	mu      sync.RWMutex
	matches []*Match
	byFrom  map[string][]int
	now     func() time.Time
}

// NewInMemoryLedger creates a new in-memory match ledger.
func NewInMemoryLedger() *InMemoryLedger {
	return &InMemoryLedger{
		byFrom: make(map[string][]int),
		now:    time.Now,
	}
}

// GetMatchTargets returns the targets of fromID's matches in insertion order.
func (l *InMemoryLedger) GetMatchTargets(ctx context.Context, fromID string) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	idx := l.byFrom[fromID]
	targets := make([]string, 0, len(idx))
	for _, i := range idx {
		targets = append(targets, l.matches[i].ToID)
	}
	return targets, nil
}

// Record appends a match.
func (l *InMemoryLedger) Record(ctx context.Context, fromID, toID string) (*Match, error) {
	if fromID == toID {
		return nil, ErrSelfMatch
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	m := &Match{
		ID:        uuid.NewString(),
		FromID:    fromID,
		ToID:      toID,
		CreatedAt: l.now(),
	}
	l.matches = append(l.matches, m)
	l.byFrom[fromID] = append(l.byFrom[fromID], len(l.matches)-1)

	c := *m
	return &c, nil
}

// ListByTarget returns copies of matches pointing at toID, oldest first.
func (l *InMemoryLedger) ListByTarget(ctx context.Context, toID string) ([]*Match, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var result []*Match
	for _, m := range l.matches {
		if m.ToID == toID {
			c := *m
			result = append(result, &c)
		}
	}
	return result, nil
}
