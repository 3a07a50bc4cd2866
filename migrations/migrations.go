// Package migrations embeds the PostgreSQL schema and applies it with
// golang-migrate.
//
// Files are named {version}_{name}.up.sql and {version}_{name}.down.sql.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed *.sql
var files embed.FS

// Source returns the embedded migrations as a golang-migrate source driver.
func Source() (source.Driver, error) {
	src, err := iofs.New(files, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}
	return src, nil
}

// Apply runs every migration newer than the recorded schema version.
func Apply(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	return withMigrate(ctx, db, logger, func(m *migrate.Migrate) error {
		err := m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
		version, _, _ := m.Version()
		logger.InfoContext(ctx, "migrations applied", slog.Uint64("version", uint64(version)))
		return nil
	})
}

// Rollback reverts the most recent steps applied migrations.
func Rollback(ctx context.Context, db *sql.DB, steps int) error {
	if steps <= 0 {
		return nil
	}
	return withMigrate(ctx, db, slog.Default(), func(m *migrate.Migrate) error {
		if err := m.Steps(-steps); err != nil {
			return fmt.Errorf("failed to roll back %d migrations: %w", steps, err)
		}
		return nil
	})
}

// withMigrate runs fn on a dedicated connection so closing the migrator
// leaves db open.
func withMigrate(ctx context.Context, db *sql.DB, logger *slog.Logger, fn func(*migrate.Migrate) error) error {
	src, err := Source()
	if err != nil {
		return err
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	drv, err := postgres.WithConnection(ctx, conn, &postgres.Config{})
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to init migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", drv)
	if err != nil {
		_ = drv.Close()
		return fmt.Errorf("failed to init migrator: %w", err)
	}
	m.Log = migrateLogger{logger: logger}
	defer m.Close()

	return fn(m)
}

// migrateLogger adapts slog to migrate.Logger.
type migrateLogger struct {
	logger *slog.Logger
}

func (l migrateLogger) Printf(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...), slog.String("component", "migrate"))
}

func (l migrateLogger) Verbose() bool { return false }
