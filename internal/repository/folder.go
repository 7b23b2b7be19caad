package repository

import (
	"context"

	"fileflow/internal/model"
)

// FolderRepository persists folders.
type FolderRepository interface {
	FindByID(ctx context.Context, id string) (*model.Folder, error)

	FindByOwnerAndName(ctx context.Context, ownerID, name string) (*model.Folder, error)

	// Create inserts the folder. It returns ErrConflict when the owner already has a folder
	// with that name, without aborting the surrounding transaction.
	Create(ctx context.Context, f *model.Folder) (*model.Folder, error)

	// MaxPosition returns the highest position used by the owner, or -1 when the owner has
	// no folders.
	MaxPosition(ctx context.Context, ownerID string) (int, error)
}
