// Package postgres implements the repository contracts with parameterized SQL over
// database/sql and the pgx driver. It contains no business logic.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"fileflow/internal/dbx"
	"fileflow/internal/repository"
)

const (
	uniqueViolation           = "23505"
	invalidTextRepresentation = "22P02"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// missingOnMalformedID maps a value the uuid column rejects to sql.ErrNoRows, so a bad id
// from a request reads the same as an id that does not exist.
func missingOnMalformedID(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == invalidTextRepresentation {
		return sql.ErrNoRows
	}
	return err
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

// UnitOfWork runs repository calls inside one PostgreSQL transaction.
type UnitOfWork struct {
	db *sql.DB
}

// NewUnitOfWork creates a UnitOfWork over db.
func NewUnitOfWork(db *sql.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

var _ repository.UnitOfWork = (*UnitOfWork)(nil)

// Do runs fn in a transaction at the server's default isolation level. Conditional
// updates and ON CONFLICT inserts carry the row-level guarantees.
func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, r repository.Repositories) error) error {
	return dbx.WithTx(ctx, u.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, Bind(tx))
	})
}

// Repos returns repositories bound to the pool.
func (u *UnitOfWork) Repos() repository.Repositories {
	return Bind(u.db)
}

// Bind returns every repository bound to db.
func Bind(db dbx.DBTX) repository.Repositories {
	return repository.Repositories{
		Accounts: NewAccountPostgres(db),
		Folders:  NewFolderPostgres(db),
		Contents: NewContentPostgres(db),
		Shares:   NewSharePostgres(db),
	}
}
