package database

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fileflow/internal/config"
	"fileflow/internal/logging"
)

func TestBuildPostgresDSN(t *testing.T) {
	tests := []struct {
		name    string
		config  config.DatabaseConfig
		want    string
		wantErr bool
	}{
		{
			name: "password, sslmode and timeout",
			config: config.DatabaseConfig{
				Host: "db", Port: "5432", User: "ledger", Password: "p@ss", Name: "fileflow",
				SSLMode: "disable", ConnectTimeoutSec: 3,
			},
			want: "postgres://ledger:p%40ss@db:5432/fileflow?application_name=fileflow&connect_timeout=3&sslmode=disable",
		},
		{
			name:   "no password or sslmode",
			config: config.DatabaseConfig{Host: "db", Port: "5432", User: "ledger", Name: "fileflow"},
			want:   "postgres://ledger@db:5432/fileflow?application_name=fileflow",
		},
		{name: "missing host", config: config.DatabaseConfig{Port: "5432", User: "u", Name: "n"}, wantErr: true},
		{name: "missing user", config: config.DatabaseConfig{Host: "db", Port: "5432", Name: "n"}, wantErr: true},
		{name: "missing name", config: config.DatabaseConfig{Host: "db", Port: "5432", User: "u"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildPostgresDSN(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// stubOpen routes sqlOpen to a sqlmock pool and removes retry pauses.
func stubOpen(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	origOpen, origDelay := sqlOpen, retryDelay
	sqlOpen = func(string, string) (*sql.DB, error) { return db, nil }
	retryDelay = func(int) time.Duration { return 0 }
	t.Cleanup(func() { sqlOpen, retryDelay = origOpen, origDelay })
	return mock
}

func TestNewPostgres(t *testing.T) {
	conf := config.DatabaseConfig{
		Host: "localhost", Port: "5432", User: "user", Password: "pass", Name: "fileflow",
		MaxOpenConns: 10, MaxIdleConns: 5, ConnMaxLifetimeSec: 300,
		ConnectTimeoutSec: 1, ConnectAttempts: 3,
	}

	t.Run("connects on first ping", func(t *testing.T) {
		mock := stubOpen(t)
		mock.ExpectPing()
		var buf bytes.Buffer

		db, err := NewPostgres(context.Background(), conf, logging.New(&buf, time.UTC, "info"))

		require.NoError(t, err)
		assert.NotNil(t, db)
		assert.Contains(t, buf.String(), `"msg":"db_connected"`)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("retries until the server answers", func(t *testing.T) {
		mock := stubOpen(t)
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))
		mock.ExpectPing()
		var buf bytes.Buffer

		db, err := NewPostgres(context.Background(), conf, logging.New(&buf, time.UTC, "info"))

		require.NoError(t, err)
		assert.NotNil(t, db)
		assert.Equal(t, 1, strings.Count(buf.String(), `"msg":"db_ping_failed"`))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("gives up after the last attempt", func(t *testing.T) {
		mock := stubOpen(t)
		for range 3 {
			mock.ExpectPing().WillReturnError(errors.New("connection refused"))
		}
		mock.ExpectClose()

		db, err := NewPostgres(context.Background(), conf, logging.New(&bytes.Buffer{}, time.UTC, "info"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "db ping after 3 attempts: connection refused")
		assert.Nil(t, db)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stops when the context is cancelled", func(t *testing.T) {
		mock := stubOpen(t)
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))
		mock.ExpectClose()
		ctx, cancel := context.WithCancel(context.Background())
		retryDelay = func(int) time.Duration { cancel(); return time.Hour }

		_, err := NewPostgres(ctx, conf, logging.New(&bytes.Buffer{}, time.UTC, "info"))

		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("sql open error", func(t *testing.T) {
		orig := sqlOpen
		sqlOpen = func(string, string) (*sql.DB, error) { return nil, errors.New("open error") }
		defer func() { sqlOpen = orig }()

		db, err := NewPostgres(context.Background(), conf, logging.New(&bytes.Buffer{}, time.UTC, "info"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "sql open: open error")
		assert.Nil(t, db)
	})

	t.Run("invalid config", func(t *testing.T) {
		db, err := NewPostgres(context.Background(), config.DatabaseConfig{}, nil)
		assert.Error(t, err)
		assert.Nil(t, db)
	})
}
