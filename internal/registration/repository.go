package registration

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Repository stores registrants.
type Repository interface {
	// Insert stores a new registrant. Returns ErrDuplicateEmail if the
	// email is already registered.
	Insert(ctx context.Context, r *Registrant) error

	// GetByID returns ErrRegistrantNotFound for unknown IDs.
	GetByID(ctx context.Context, id string) (*Registrant, error)

	// MarkVerified sets the verified flag and reports whether it was
	// already set.
	MarkVerified(ctx context.Context, id string) (alreadyVerified bool, err error)

	// SetResumeKey records the object key of the registrant's resume.
	SetResumeKey(ctx context.Context, id, key string) error
}

// InMemoryRepository is an in-memory implementation of Repository.
type InMemoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]*Registrant
	byEmail map[string]string
}

// NewInMemoryRepository creates a new in-memory registrant repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byID:    make(map[string]*Registrant),
		byEmail: make(map[string]string),
	}
}

// Insert stores a copy of r.
func (m *InMemoryRepository) Insert(ctx context.Context, r *Registrant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := strings.ToLower(r.Email)
	if _, exists := m.byEmail[email]; exists {
		return ErrDuplicateEmail
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	c := *r
	m.byID[r.ID] = &c
	m.byEmail[email] = r.ID
	return nil
}

// GetByID returns a copy of the registrant.
func (m *InMemoryRepository) GetByID(ctx context.Context, id string) (*Registrant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.byID[id]
	if !ok {
		return nil, ErrRegistrantNotFound
	}
	c := *r
	return &c, nil
}

// MarkVerified sets the verified flag.
func (m *InMemoryRepository) MarkVerified(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.byID[id]
	if !ok {
		return false, ErrRegistrantNotFound
	}
	if r.Verified {
		return true, nil
	}
	r.Verified = true
	return false, nil
}

// SetResumeKey records the resume object key.
func (m *InMemoryRepository) SetResumeKey(ctx context.Context, id, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.byID[id]
	if !ok {
		return ErrRegistrantNotFound
	}
	r.ResumeKey = key
	return nil
}
