package idempotency

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore keeps records in process. Expired records are removed by
// CleanupOldKeys.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
	now     func() time.Time
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[string]*Record),
		now:     time.Now,
	}
}

// Get returns a copy of the record under key.
func (s *InMemoryStore) Get(ctx context.Context, key string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return rec.clone(), nil
}

// Reserve implements Store. A reservation older than ReservationTTL is
// treated as abandoned and can be taken over.
func (s *InMemoryStore) Reserve(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if rec, exists := s.records[key]; exists {
		if !rec.Pending() || now.Sub(rec.CreatedAt) < ReservationTTL {
			return ErrKeyExists
		}
	}
	s.records[key] = &Record{Key: key, CreatedAt: now}
	return nil
}

// Complete stores a copy of rec, replacing its reservation.
func (s *InMemoryStore) Complete(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	s.records[rec.Key] = rec.clone()
	return nil
}

// Release removes the reservation under key. Completed records are kept.
func (s *InMemoryStore) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[key]; ok && rec.Pending() {
		delete(s.records, key)
	}
	return nil
}

// DeleteOlderThan removes records created more than age ago.
func (s *InMemoryStore) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-age)
	var deleted int64
	for key, rec := range s.records {
		if rec.CreatedAt.Before(cutoff) {
			delete(s.records, key)
			deleted++
		}
	}
	return deleted, nil
}
