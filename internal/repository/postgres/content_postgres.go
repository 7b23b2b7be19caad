package postgres

import (
	"context"
	"database/sql"
	"time"

	"fileflow/internal/dbx"
	"fileflow/internal/model"
	"fileflow/internal/repository"
)

// ContentPostgres is a PostgreSQL implementation of repository.ContentRepository.
type ContentPostgres struct {
	db dbx.DBTX
}

// NewContentPostgres creates a new ContentPostgres repository.
func NewContentPostgres(db dbx.DBTX) *ContentPostgres {
	return &ContentPostgres{db: db}
}

var _ repository.ContentRepository = (*ContentPostgres)(nil)

const contentColumns = `id, owner_id, folder_id, filename, original_filename, size, mime_type,
	storage_key, checksum, status, created_at, deleted_at`

func scanContent(row rowScanner) (*model.Content, error) {
	var (
		c        model.Content
		folderID sql.NullString
		status   string
		deleted  sql.NullTime
	)
	if err := row.Scan(
		&c.ID,
		&c.OwnerID,
		&folderID,
		&c.Filename,
		&c.OriginalFilename,
		&c.Size,
		&c.MimeType,
		&c.StorageKey,
		&c.Checksum,
		&status,
		&c.CreatedAt,
		&deleted,
	); err != nil {
		return nil, err
	}
	c.FolderID = stringPtr(folderID)
	c.Status = model.ContentStatus(status)
	c.DeletedAt = timePtr(deleted)
	return &c, nil
}

// FindByID fetches a content record, including soft-deleted ones.
func (r *ContentPostgres) FindByID(ctx context.Context, id string) (*model.Content, error) {
	q := `SELECT ` + contentColumns + ` FROM contents WHERE id = $1`
	c, err := scanContent(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, missingOnMalformedID(err)
	}
	return c, nil
}

// Create inserts a new content row and returns the stored record.
func (r *ContentPostgres) Create(ctx context.Context, c *model.Content) (*model.Content, error) {
	q := `
		INSERT INTO contents (id, owner_id, folder_id, filename, original_filename, size,
			mime_type, storage_key, checksum, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + contentColumns
	return scanContent(r.db.QueryRowContext(ctx, q,
		c.ID,
		c.OwnerID,
		nullString(c.FolderID),
		c.Filename,
		c.OriginalFilename,
		c.Size,
		c.MimeType,
		c.StorageKey,
		c.Checksum,
		string(c.Status),
		c.CreatedAt,
	))
}

// UpdateStatus is a compare-and-set on status.
func (r *ContentPostgres) UpdateStatus(ctx context.Context, id string, from, to model.ContentStatus, checksum string) error {
	const q = `UPDATE contents SET status = $3, checksum = $4 WHERE id = $1 AND status = $2`
	return execOne(ctx, r.db, q, id, string(from), string(to), checksum)
}

// SoftDelete marks the record deleted. Stored bytes are left alone.
func (r *ContentPostgres) SoftDelete(ctx context.Context, id string, at time.Time) error {
	const q = `
		UPDATE contents SET status = 'deleted', deleted_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`
	return execOne(ctx, r.db, q, id, at)
}

// Delete removes a content row by ID. It does not return an error if the row does not exist.
func (r *ContentPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM contents WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

// ListByOwner returns live records using LIMIT/OFFSET pagination and a total count.
func (r *ContentPostgres) ListByOwner(ctx context.Context, f repository.ContentFilter, pq repository.PageQuery) (*repository.PageResult[model.Content], error) {
	const where = `WHERE owner_id = $1 AND deleted_at IS NULL AND ($2 = '' OR folder_id::text = $2)`

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contents `+where, f.OwnerID, f.FolderID).Scan(&total); err != nil {
		return nil, err
	}

	q := `SELECT ` + contentColumns + ` FROM contents ` + where + `
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4`
	rows, err := r.db.QueryContext(ctx, q, f.OwnerID, f.FolderID, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Content, 0)
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Content]{
		Items: items,
		Total: total,
	}, nil
}

func execOne(ctx context.Context, db dbx.DBTX, q string, args ...any) error {
	res, err := db.ExecContext(ctx, q, args...)
	if err != nil {
		return missingOnMalformedID(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
