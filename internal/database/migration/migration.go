package migration

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
)

//go:embed sql/*.sql
var migrations embed.FS

const migrationDir = "sql"

// Seams for tests; goose keeps global state.
var (
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return goose.UpContext(ctx, db, dir, opts...)
	}
	gooseVersion = func(ctx context.Context, db *sql.DB) (int64, error) {
		return goose.GetDBVersionContext(ctx, db)
	}
)

// EnsureMigrated applies any pending embedded migrations. The schema version before and
// after is logged so an up-to-date database produces a db_migration_skip event.
func EnsureMigrated(ctx context.Context, db *sql.DB, log logrus.FieldLogger, dbHost string) error {
	start := time.Now()
	entry := log.WithFields(logrus.Fields{
		"component": "database",
		"db_host":   dbHost,
	})

	entry.WithField("status", "starting").Info("db_migration_check")

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	before, err := gooseVersion(ctx, db)
	if err != nil {
		entry.WithFields(logrus.Fields{
			"status":      "error",
			"error":       err.Error(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Error("db_migration_failed")
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	entry.WithFields(logrus.Fields{
		"status":         "in_progress",
		"schema_version": before,
	}).Info("db_migration_start")

	if err := gooseUpContext(ctx, db, migrationDir); err != nil {
		entry.WithFields(logrus.Fields{
			"status":      "error",
			"error":       err.Error(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Error("db_migration_failed")
		return fmt.Errorf("migration failed: %w", err)
	}

	after, err := gooseVersion(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	event := "db_migration_success"
	if after == before {
		event = "db_migration_skip"
	}
	entry.WithFields(logrus.Fields{
		"status":         "success",
		"schema_version": after,
		"duration_ms":    time.Since(start).Milliseconds(),
	}).Info(event)

	return nil
}
