package profile

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Reader is the read side of profile storage consumed by candidate discovery.
type Reader interface {
	// GetProfile retrieves a profile by ID.
	// Returns ErrProfileNotFound if no profile has the given ID.
	GetProfile(ctx context.Context, id string) (*Profile, error)

	// GetVisibleProfiles returns every visible profile whose ID is not in exclude.
	GetVisibleProfiles(ctx context.Context, exclude map[string]struct{}) ([]*Profile, error)
}

// Store is full profile storage.
type Store interface {
	Reader

	// Insert creates a new profile.
	// Returns ErrProfileExists if the ID is taken.
	Insert(ctx context.Context, p *Profile) error

	// Save replaces an existing profile.
	// Returns ErrProfileNotFound if the profile does not exist.
	Save(ctx context.Context, p *Profile) error
}

// InMemoryStore is an in-memory implementation of Store.
// Thread-safe via RWMutex.
type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
}

// NewInMemoryStore creates a new in-memory profile store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		profiles: make(map[string]*Profile),
	}
}

// GetProfile retrieves a copy of the profile with the given ID.
func (s *InMemoryStore) GetProfile(ctx context.Context, id string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[id]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return p.Clone(), nil
}

// GetVisibleProfiles returns copies of all visible profiles not in exclude, ordered by ID.
func (s *InMemoryStore) GetVisibleProfiles(ctx context.Context, exclude map[string]struct{}) ([]*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Profile, 0, len(s.profiles))
	for id, p := range s.profiles {
		if !p.Visible {
			continue
		}
		if _, excluded := exclude[id]; excluded {
			continue
		}
		result = append(result, p.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// Insert stores a copy of the profile, setting timestamps.
func (s *InMemoryStore) Insert(ctx context.Context, p *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.profiles[p.ID]; exists {
		return ErrProfileExists
	}

	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	s.profiles[p.ID] = p.Clone()
	return nil
}

// Save replaces an existing profile.
func (s *InMemoryStore) Save(ctx context.Context, p *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.profiles[p.ID]
	if !ok {
		return ErrProfileNotFound
	}

	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now()
	s.profiles[p.ID] = p.Clone()
	return nil
}
