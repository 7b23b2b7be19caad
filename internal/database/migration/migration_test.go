package migration

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"testing"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fileflow/internal/logging"
)

func stubGoose(t *testing.T, versions []int64, upErr error) *int {
	t.Helper()
	origUp, origVersion := gooseUpContext, gooseVersion
	t.Cleanup(func() {
		gooseUpContext, gooseVersion = origUp, origVersion
	})

	calls := 0
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		calls++
		assert.Equal(t, migrationDir, dir)
		return upErr
	}
	idx := 0
	gooseVersion = func(ctx context.Context, db *sql.DB) (int64, error) {
		v := versions[idx]
		if idx < len(versions)-1 {
			idx++
		}
		return v, nil
	}
	return &calls
}

func TestEnsureMigrated(t *testing.T) {
	t.Run("applies pending migrations", func(t *testing.T) {
		calls := stubGoose(t, []int64{0, 1}, nil)
		var buf bytes.Buffer

		err := EnsureMigrated(context.Background(), nil, logging.New(&buf, time.UTC, "info"), "db.local")

		require.NoError(t, err)
		assert.Equal(t, 1, *calls)
		assert.Contains(t, buf.String(), "db_migration_start")
		assert.Contains(t, buf.String(), "db_migration_success")
	})

	t.Run("up to date schema is skipped", func(t *testing.T) {
		stubGoose(t, []int64{1, 1}, nil)
		var buf bytes.Buffer

		err := EnsureMigrated(context.Background(), nil, logging.New(&buf, time.UTC, "info"), "db.local")

		require.NoError(t, err)
		assert.Contains(t, buf.String(), "db_migration_skip")
	})

	t.Run("migration failure", func(t *testing.T) {
		stubGoose(t, []int64{0}, errors.New("syntax error"))
		var buf bytes.Buffer

		err := EnsureMigrated(context.Background(), nil, logging.New(&buf, time.UTC, "info"), "db.local")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "migration failed: syntax error")
		assert.Contains(t, buf.String(), "db_migration_failed")
	})
}

func TestEmbeddedMigrations(t *testing.T) {
	files, err := fs.Glob(migrations, "sql/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	body, err := fs.ReadFile(migrations, files[0])
	require.NoError(t, err)
	assert.Contains(t, string(body), "-- +goose Up")
	assert.Contains(t, string(body), "CONSTRAINT uq_folders_owner_name UNIQUE (owner_id, name)")
	assert.Contains(t, string(body), "transaction_id       TEXT        NOT NULL UNIQUE")
}
