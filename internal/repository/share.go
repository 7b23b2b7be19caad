package repository

import (
	"context"
	"time"

	"fileflow/internal/model"
)

// ShareRepository persists ledger entries. There is no delete.
type ShareRepository interface {
	// Create inserts the share. It returns ErrConflict when the transaction id is taken,
	// without aborting the surrounding transaction.
	Create(ctx context.Context, s *model.Share) (*model.Share, error)

	FindByTransactionID(ctx context.Context, transactionID string) (*model.Share, error)

	// AdvanceStatus moves the share from -> to only if its current status is still from,
	// stamping the matching timestamp once. It returns sql.ErrNoRows when the share is
	// missing or no longer in from.
	AdvanceStatus(ctx context.Context, id string, from, to model.Status, at time.Time) (*model.Share, error)

	ListBySender(ctx context.Context, senderID string, pq PageQuery) (*PageResult[model.Share], error)

	// ListByRecipient returns shares resolved to accountID or addressed to email.
	ListByRecipient(ctx context.Context, accountID, email string, pq PageQuery) (*PageResult[model.Share], error)
}
