package postgres

import (
	"context"
	"strings"

	"fileflow/internal/dbx"
	"fileflow/internal/model"
	"fileflow/internal/repository"
)

// AccountPostgres is a PostgreSQL implementation of repository.AccountRepository.
type AccountPostgres struct {
	db dbx.DBTX
}

// NewAccountPostgres creates a new AccountPostgres repository.
func NewAccountPostgres(db dbx.DBTX) *AccountPostgres {
	return &AccountPostgres{db: db}
}

var _ repository.AccountRepository = (*AccountPostgres)(nil)

const accountColumns = `id, email, phone, display_name, storage_used, storage_quota, created_at`

func scanAccount(row rowScanner) (*model.Account, error) {
	var a model.Account
	if err := row.Scan(
		&a.ID,
		&a.Email,
		&a.Phone,
		&a.DisplayName,
		&a.StorageUsed,
		&a.StorageQuota,
		&a.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

// FindByID fetches a single account by its ID.
func (r *AccountPostgres) FindByID(ctx context.Context, id string) (*model.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	a, err := scanAccount(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, missingOnMalformedID(err)
	}
	return a, nil
}

// FindByEmail matches on the lower-cased email, which is uniquely indexed.
func (r *AccountPostgres) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE lower(email) = $1`
	return scanAccount(r.db.QueryRowContext(ctx, q, strings.ToLower(email)))
}

// FindByPhone fetches the oldest account registered with phone.
func (r *AccountPostgres) FindByPhone(ctx context.Context, phone string) (*model.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE phone = $1 ORDER BY created_at LIMIT 1`
	return scanAccount(r.db.QueryRowContext(ctx, q, phone))
}

// ReserveStorage performs check-and-increment as one conditional UPDATE so concurrent
// reservations cannot jointly exceed the quota.
func (r *AccountPostgres) ReserveStorage(ctx context.Context, id string, delta int64) (int64, error) {
	const q = `
		UPDATE accounts
		SET storage_used = storage_used + $2
		WHERE id = $1 AND storage_used + $2 <= storage_quota
		RETURNING storage_used
	`
	var used int64
	if err := r.db.QueryRowContext(ctx, q, id, delta).Scan(&used); err != nil {
		return 0, err
	}
	return used, nil
}

// ReleaseStorage decrements storage_used, never below zero, and reports the previous value.
func (r *AccountPostgres) ReleaseStorage(ctx context.Context, id string, delta int64) (int64, int64, error) {
	const q = `
		WITH prev AS (
			SELECT id, storage_used FROM accounts WHERE id = $1 FOR UPDATE
		)
		UPDATE accounts a
		SET storage_used = GREATEST(prev.storage_used - $2, 0)
		FROM prev
		WHERE a.id = prev.id
		RETURNING prev.storage_used, a.storage_used
	`
	var before, after int64
	if err := r.db.QueryRowContext(ctx, q, id, delta).Scan(&before, &after); err != nil {
		return 0, 0, err
	}
	return before, after, nil
}
