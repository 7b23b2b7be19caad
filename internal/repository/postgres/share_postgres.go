package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"fileflow/internal/dbx"
	"fileflow/internal/model"
	"fileflow/internal/repository"
)

// SharePostgres is a PostgreSQL implementation of repository.ShareRepository.
type SharePostgres struct {
	db dbx.DBTX
}

// NewSharePostgres creates a new SharePostgres repository.
func NewSharePostgres(db dbx.DBTX) *SharePostgres {
	return &SharePostgres{db: db}
}

var _ repository.ShareRepository = (*SharePostgres)(nil)

const shareColumns = `id, transaction_id, content_id, sender_id, sender_name, sender_email,
	recipient_account_id, recipient_name, recipient_email, recipient_phone,
	target_folder_name, message, share_type, status, created_at, delivered_at, first_viewed_at`

func scanShare(row rowScanner) (*model.Share, error) {
	var (
		s              model.Share
		recipientID    sql.NullString
		recipientName  string
		recipientEmail string
		recipientPhone string
		shareType      string
		status         string
		delivered      sql.NullTime
		firstView      sql.NullTime
	)
	if err := row.Scan(
		&s.ID,
		&s.TransactionID,
		&s.ContentID,
		&s.Sender.AccountID,
		&s.Sender.Name,
		&s.Sender.Email,
		&recipientID,
		&recipientName,
		&recipientEmail,
		&recipientPhone,
		&s.TargetFolderName,
		&s.Message,
		&shareType,
		&status,
		&s.CreatedAt,
		&delivered,
		&firstView,
	); err != nil {
		return nil, err
	}
	s.Recipient = model.RecipientFromColumns(stringPtr(recipientID), recipientName, recipientEmail, recipientPhone)
	s.Type = model.ShareType(shareType)
	s.Status = model.Status(status)
	s.DeliveredAt = timePtr(delivered)
	s.FirstViewedAt = timePtr(firstView)
	return &s, nil
}

func recipientColumns(r model.Recipient) (accountID sql.NullString, name, email, phone string) {
	if r == nil {
		return sql.NullString{}, "", "", ""
	}
	c := r.Contact()
	if ra, ok := r.(model.ResolvedAccount); ok {
		return sql.NullString{String: ra.AccountID, Valid: ra.AccountID != ""}, ra.Name, c.Email, c.Phone
	}
	return sql.NullString{}, "", c.Email, c.Phone
}

// Create inserts a share. A taken transaction_id yields repository.ErrConflict; the
// ON CONFLICT clause keeps the surrounding transaction usable for a retry.
func (r *SharePostgres) Create(ctx context.Context, s *model.Share) (*model.Share, error) {
	q := `
		INSERT INTO shares (id, transaction_id, content_id, sender_id, sender_name, sender_email,
			recipient_account_id, recipient_name, recipient_email, recipient_phone,
			target_folder_name, message, share_type, status, created_at, delivered_at, first_viewed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (transaction_id) DO NOTHING
		RETURNING ` + shareColumns
	recipientID, name, email, phone := recipientColumns(s.Recipient)
	out, err := scanShare(r.db.QueryRowContext(ctx, q,
		s.ID,
		s.TransactionID,
		s.ContentID,
		s.Sender.AccountID,
		s.Sender.Name,
		s.Sender.Email,
		recipientID,
		name,
		email,
		phone,
		s.TargetFolderName,
		s.Message,
		string(s.Type),
		string(s.Status),
		s.CreatedAt,
		s.DeliveredAt,
		s.FirstViewedAt,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isUniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, err
	}
	return out, nil
}

// FindByTransactionID fetches a share by its public transaction id.
func (r *SharePostgres) FindByTransactionID(ctx context.Context, transactionID string) (*model.Share, error) {
	q := `SELECT ` + shareColumns + ` FROM shares WHERE transaction_id = $1`
	return scanShare(r.db.QueryRowContext(ctx, q, transactionID))
}

// AdvanceStatus is a compare-and-set on status. Timestamps already set are kept.
func (r *SharePostgres) AdvanceStatus(ctx context.Context, id string, from, to model.Status, at time.Time) (*model.Share, error) {
	q := `
		UPDATE shares
		SET status = $3,
			delivered_at = CASE WHEN $3 = 'delivered' THEN COALESCE(delivered_at, $4) ELSE delivered_at END,
			first_viewed_at = CASE WHEN $3 = 'viewed' THEN COALESCE(first_viewed_at, $4) ELSE first_viewed_at END
		WHERE id = $1 AND status = $2
		RETURNING ` + shareColumns
	return scanShare(r.db.QueryRowContext(ctx, q, id, string(from), string(to), at))
}

// ListBySender returns shares sent by senderID, newest first.
func (r *SharePostgres) ListBySender(ctx context.Context, senderID string, pq repository.PageQuery) (*repository.PageResult[model.Share], error) {
	const where = `WHERE sender_id = $1`
	return r.list(ctx, where, pq, senderID)
}

// ListByRecipient returns shares resolved to accountID plus pending shares addressed to
// email, newest first.
func (r *SharePostgres) ListByRecipient(ctx context.Context, accountID, email string, pq repository.PageQuery) (*repository.PageResult[model.Share], error) {
	const where = `WHERE recipient_account_id = $1
		OR (recipient_account_id IS NULL AND $2 <> '' AND lower(recipient_email) = lower($2))`
	return r.list(ctx, where, pq, accountID, email)
}

func (r *SharePostgres) list(ctx context.Context, where string, pq repository.PageQuery, args ...any) (*repository.PageResult[model.Share], error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM shares `+where, args...).Scan(&total); err != nil {
		return nil, err
	}

	n := len(args)
	q := `SELECT ` + shareColumns + ` FROM shares ` + where + `
		ORDER BY created_at DESC, id DESC
		LIMIT $` + strconv.Itoa(n+1) + ` OFFSET $` + strconv.Itoa(n+2)
	rows, err := r.db.QueryContext(ctx, q, append(args, pq.Limit, pq.Offset)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Share, 0)
	for rows.Next() {
		s, err := scanShare(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Share]{
		Items: items,
		Total: total,
	}, nil
}
