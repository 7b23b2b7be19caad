package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"fileflow/internal/model"
	"fileflow/internal/repository"
)

// QuotaLedger maintains storage_used. Callers pass the repository bound to their unit of
// work so the counter moves together with the references it accounts for.
type QuotaLedger struct {
	log     logrus.FieldLogger
	metrics *Metrics
}

// NewQuotaLedger creates a QuotaLedger. metrics may be nil.
func NewQuotaLedger(log logrus.FieldLogger, metrics *Metrics) *QuotaLedger {
	return &QuotaLedger{log: log, metrics: metrics}
}

// Check reports whether acc could take delta more bytes, without reserving them.
func (q *QuotaLedger) Check(acc model.Account, delta int64) error {
	if delta > acc.Available() {
		return ErrQuotaExceeded
	}
	return nil
}

// Reserve adds delta to the account's usage if it fits within the quota. The check and
// the increment are one statement.
func (q *QuotaLedger) Reserve(ctx context.Context, accounts repository.AccountRepository, accountID string, delta int64) error {
	if delta < 0 {
		return fmt.Errorf("%w: negative reservation", ErrInvalidRequest)
	}
	if delta == 0 {
		return nil
	}
	if _, err := accounts.ReserveStorage(ctx, accountID, delta); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("reserve storage: %w", err)
		}
		if _, ferr := accounts.FindByID(ctx, accountID); ferr != nil {
			if errors.Is(ferr, sql.ErrNoRows) {
				return ErrNotFound
			}
			return ferr
		}
		q.metrics.quotaRejected()
		return ErrQuotaExceeded
	}
	return nil
}

// Release subtracts delta from the account's usage. Usage never drops below zero; a clamp
// means historical data was inconsistent and is logged rather than failed.
func (q *QuotaLedger) Release(ctx context.Context, accounts repository.AccountRepository, accountID string, delta int64) error {
	if delta <= 0 {
		return nil
	}
	before, after, err := accounts.ReleaseStorage(ctx, accountID, delta)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("release storage: %w", err)
	}
	if before < delta {
		q.metrics.underflowClamped()
		q.log.WithFields(logrus.Fields{
			"account_id": accountID,
			"before":     before,
			"delta":      delta,
			"after":      after,
		}).Warn("quota_underflow_clamped")
	}
	return nil
}
