package repository

import (
	"context"

	"fileflow/internal/model"
)

// AccountRepository reads accounts and maintains their storage counters.
type AccountRepository interface {
	FindByID(ctx context.Context, id string) (*model.Account, error)

	// FindByEmail matches case-insensitively.
	FindByEmail(ctx context.Context, email string) (*model.Account, error)

	FindByPhone(ctx context.Context, phone string) (*model.Account, error)

	// ReserveStorage adds delta to storage_used only if the result stays within
	// storage_quota, in a single statement. It returns sql.ErrNoRows when the account is
	// missing or the quota would be exceeded.
	ReserveStorage(ctx context.Context, id string, delta int64) (used int64, err error)

	// ReleaseStorage subtracts delta, clamping at zero. It returns the counter value before
	// and after the update.
	ReleaseStorage(ctx context.Context, id string, delta int64) (before, after int64, err error)
}
