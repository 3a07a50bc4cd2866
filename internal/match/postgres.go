package match

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/makeuc/lattice/internal/tracing"
)

// PostgresLedger implements Store using PostgreSQL.
type PostgresLedger struct {
	db *sql.DB
}

// NewPostgresLedger creates a new PostgresLedger.
func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// GetMatchTargets returns the targets of fromID's matches, oldest first.
func (l *PostgresLedger) GetMatchTargets(ctx context.Context, fromID string) (targets []string, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "matches", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `
		SELECT to_id
		FROM matches
		WHERE from_id = $1
		ORDER BY created_at, id
	`

	rows, err := l.db.QueryContext(ctx, query, fromID)
	if err != nil {
		return nil, fmt.Errorf("failed to query match targets: %w", err)
	}
	defer rows.Close()

	targets = []string{}
	for rows.Next() {
		var toID string
		if err := rows.Scan(&toID); err != nil {
			return nil, fmt.Errorf("failed to scan match target: %w", err)
		}
		targets = append(targets, toID)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating match targets: %w", err)
	}
	return targets, nil
}

// Record inserts a match row.
func (l *PostgresLedger) Record(ctx context.Context, fromID, toID string) (m *Match, err error) {
	if fromID == toID {
		return nil, ErrSelfMatch
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "matches", tracing.DBOperationInsert)
	defer func() { endSpan(err) }()

	m = &Match{ID: uuid.NewString(), FromID: fromID, ToID: toID}

	query := `
		INSERT INTO matches (id, from_id, to_id, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING created_at
	`
	if err = l.db.QueryRowContext(ctx, query, m.ID, m.FromID, m.ToID).Scan(&m.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to record match: %w", err)
	}
	return m, nil
}

// ListByTarget returns matches pointing at toID, oldest first.
func (l *PostgresLedger) ListByTarget(ctx context.Context, toID string) (matches []*Match, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "matches", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `
		SELECT id, from_id, to_id, created_at
		FROM matches
		WHERE to_id = $1
		ORDER BY created_at, id
	`

	rows, err := l.db.QueryContext(ctx, query, toID)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches by target: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		m := &Match{}
		if err := rows.Scan(&m.ID, &m.FromID, &m.ToID, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating matches: %w", err)
	}
	return matches, nil
}
