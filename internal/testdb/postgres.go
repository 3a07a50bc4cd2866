//go:build integration

// Package testdb starts a throwaway PostgreSQL container with the lattice
// schema applied, for integration tests.
//
// Run with: go test -tags=integration ./...
package testdb

import (
	"context"
	"database/sql"
	"os/exec"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/makeuc/lattice/migrations"
)

const image = "postgres:16-alpine"

// Open starts PostgreSQL, applies migrations, and returns a connection that
// is closed with the test. The test is skipped when Docker is unavailable.
func Open(t *testing.T) *sql.DB {
	t.Helper()

	if !dockerAvailable() {
		t.Skip("Docker not available; skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := postgres.Run(ctx, image,
		postgres.WithDatabase("lattice"),
		postgres.WithUsername("lattice"),
		postgres.WithPassword("lattice"),
		postgres.BasicWaitStrategies(),
	)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})
	if err != nil {
		t.Fatalf("failed to start postgres: %v", err)
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := migrations.Apply(ctx, db, nil); err != nil {
		t.Fatalf("failed to apply migrations: %v", err)
	}
	return db
}

func dockerAvailable() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return exec.CommandContext(ctx, "docker", "info").Run() == nil
}
