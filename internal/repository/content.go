package repository

import (
	"context"
	"time"

	"fileflow/internal/model"
)

// ContentFilter narrows ListByOwner. An empty FolderID lists every folder.
type ContentFilter struct {
	OwnerID  string
	FolderID string
}

// ContentRepository persists content records. It never touches stored bytes.
type ContentRepository interface {
	FindByID(ctx context.Context, id string) (*model.Content, error)
	Create(ctx context.Context, c *model.Content) (*model.Content, error)

	// UpdateStatus moves the record from -> to and sets its checksum. It returns
	// sql.ErrNoRows when the record is missing or no longer in from.
	UpdateStatus(ctx context.Context, id string, from, to model.ContentStatus, checksum string) error

	SoftDelete(ctx context.Context, id string, at time.Time) error

	// Delete removes the row. Only used for uploads that never completed.
	Delete(ctx context.Context, id string) error

	// ListByOwner returns live (not soft-deleted) records, newest first.
	ListByOwner(ctx context.Context, f ContentFilter, pq PageQuery) (*PageResult[model.Content], error)
}
