package registration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/makeuc/lattice/internal/tracing"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint violations.
const uniqueViolation = "23505"

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert stores a new registrant.
func (r *PostgresRepository) Insert(ctx context.Context, reg *Registrant) (err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "registrants", tracing.DBOperationInsert)
	defer func() { endSpan(err) }()

	query := `
		INSERT INTO registrants (
			id, full_name, email, degree, hackathons_attended,
			resume_key, ethnicity, gender, verified, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE, NOW())
		RETURNING created_at
	`
	err = r.db.QueryRowContext(ctx, query,
		reg.ID,
		reg.FullName,
		reg.Email,
		reg.Degree,
		reg.HackathonsAttended,
		reg.ResumeKey,
		reg.Ethnicity,
		reg.Gender,
	).Scan(&reg.CreatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("failed to insert registrant: %w", err)
	}
	return nil
}

// GetByID retrieves a registrant.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (reg *Registrant, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "registrants", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `
		SELECT id, full_name, email, degree, hackathons_attended,
		       resume_key, ethnicity, gender, verified, created_at
		FROM registrants
		WHERE id = $1
	`
	reg = &Registrant{}
	err = r.db.QueryRowContext(ctx, query, id).Scan(
		&reg.ID,
		&reg.FullName,
		&reg.Email,
		&reg.Degree,
		&reg.HackathonsAttended,
		&reg.ResumeKey,
		&reg.Ethnicity,
		&reg.Gender,
		&reg.Verified,
		&reg.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRegistrantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get registrant: %w", err)
	}
	return reg, nil
}

// MarkVerified sets verified and returns the value it had before, reading
// it under a row lock.
func (r *PostgresRepository) MarkVerified(ctx context.Context, id string) (already bool, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "registrants", tracing.DBOperationUpdate)
	defer func() { endSpan(err) }()

	query := `
		UPDATE registrants AS r
		SET verified = TRUE
		FROM (SELECT id, verified FROM registrants WHERE id = $1 FOR UPDATE) AS prev
		WHERE r.id = prev.id
		RETURNING prev.verified
	`
	err = r.db.QueryRowContext(ctx, query, id).Scan(&already)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrRegistrantNotFound
	}
	if err != nil {
		return false, fmt.Errorf("failed to verify registrant: %w", err)
	}
	return already, nil
}

// SetResumeKey records the resume object key.
func (r *PostgresRepository) SetResumeKey(ctx context.Context, id, key string) (err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "registrants", tracing.DBOperationUpdate)
	defer func() { endSpan(err) }()

	res, err := r.db.ExecContext(ctx, `UPDATE registrants SET resume_key = $2 WHERE id = $1`, id, key)
	if err != nil {
		return fmt.Errorf("failed to set resume key: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to set resume key: %w", err)
	}
	if n == 0 {
		return ErrRegistrantNotFound
	}
	return nil
}
