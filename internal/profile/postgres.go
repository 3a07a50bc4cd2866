package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/makeuc/lattice/internal/tracing"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint violations.
const uniqueViolation = "23505"

const profileColumns = `id, name, email, skills, idea, looking_for, slack,
		       started, completed, visible, created_at, updated_at`

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*Profile, error) {
	p := &Profile{}
	var skills, lookingFor []string
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		pq.Array(&skills),
		&p.Idea,
		pq.Array(&lookingFor),
		&p.Slack,
		&p.Started,
		&p.Completed,
		&p.Visible,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Skills = skills
	p.LookingFor = lookingFor
	return p, nil
}

// GetProfile retrieves a profile by ID.
func (s *PostgresStore) GetProfile(ctx context.Context, id string) (p *Profile, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "profiles", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	p, err = scanProfile(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// GetVisibleProfiles returns visible profiles whose ID is not in exclude, ordered by ID.
func (s *PostgresStore) GetVisibleProfiles(ctx context.Context, exclude map[string]struct{}) (profiles []*Profile, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "profiles", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	ids := make([]string, 0, len(exclude))
	for id := range exclude {
		ids = append(ids, id)
	}

	query := `
		SELECT ` + profileColumns + `
		FROM profiles
		WHERE visible = TRUE AND NOT (id = ANY($1))
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query visible profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating profiles: %w", err)
	}
	return profiles, nil
}

// Insert creates a new profile row.
func (s *PostgresStore) Insert(ctx context.Context, p *Profile) (err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "profiles", tracing.DBOperationInsert)
	defer func() { endSpan(err) }()

	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	query := `
		INSERT INTO profiles (
			id, name, email, skills, idea, looking_for, slack,
			started, completed, visible, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = s.db.ExecContext(ctx, query,
		p.ID,
		p.Name,
		p.Email,
		pq.Array(p.Skills),
		p.Idea,
		pq.Array(p.LookingFor),
		p.Slack,
		p.Started,
		p.Completed,
		p.Visible,
		p.CreatedAt,
		p.UpdatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrProfileExists
	}
	if err != nil {
		return fmt.Errorf("failed to insert profile: %w", err)
	}
	return nil
}

// Save overwrites the mutable columns of an existing profile.
func (s *PostgresStore) Save(ctx context.Context, p *Profile) (err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "profiles", tracing.DBOperationUpdate)
	defer func() { endSpan(err) }()

	query := `
		UPDATE profiles
		SET name = $2, email = $3, skills = $4, idea = $5, looking_for = $6, slack = $7,
		    started = $8, completed = $9, visible = $10, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`
	err = s.db.QueryRowContext(ctx, query,
		p.ID,
		p.Name,
		p.Email,
		pq.Array(p.Skills),
		p.Idea,
		pq.Array(p.LookingFor),
		p.Slack,
		p.Started,
		p.Completed,
		p.Visible,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrProfileNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}
