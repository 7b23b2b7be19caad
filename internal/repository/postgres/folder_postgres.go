package postgres

import (
	"context"
	"database/sql"
	"errors"

	"fileflow/internal/dbx"
	"fileflow/internal/model"
	"fileflow/internal/repository"
)

// FolderPostgres is a PostgreSQL implementation of repository.FolderRepository.
type FolderPostgres struct {
	db dbx.DBTX
}

// NewFolderPostgres creates a new FolderPostgres repository.
func NewFolderPostgres(db dbx.DBTX) *FolderPostgres {
	return &FolderPostgres{db: db}
}

var _ repository.FolderRepository = (*FolderPostgres)(nil)

const folderColumns = `id, owner_id, name, icon, color, position, created_at`

func scanFolder(row rowScanner) (*model.Folder, error) {
	var f model.Folder
	if err := row.Scan(
		&f.ID,
		&f.OwnerID,
		&f.Name,
		&f.Icon,
		&f.Color,
		&f.Position,
		&f.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &f, nil
}

// FindByID fetches a single folder by its ID.
func (r *FolderPostgres) FindByID(ctx context.Context, id string) (*model.Folder, error) {
	q := `SELECT ` + folderColumns + ` FROM folders WHERE id = $1`
	f, err := scanFolder(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, missingOnMalformedID(err)
	}
	return f, nil
}

// FindByOwnerAndName fetches the owner's folder with the exact name.
func (r *FolderPostgres) FindByOwnerAndName(ctx context.Context, ownerID, name string) (*model.Folder, error) {
	q := `SELECT ` + folderColumns + ` FROM folders WHERE owner_id = $1 AND name = $2`
	return scanFolder(r.db.QueryRowContext(ctx, q, ownerID, name))
}

// Create inserts a folder. ON CONFLICT DO NOTHING keeps the transaction usable when a
// concurrent request created the same (owner, name) first; no row comes back in that case.
func (r *FolderPostgres) Create(ctx context.Context, f *model.Folder) (*model.Folder, error) {
	q := `
		INSERT INTO folders (id, owner_id, name, icon, color, position, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (owner_id, name) DO NOTHING
		RETURNING ` + folderColumns
	out, err := scanFolder(r.db.QueryRowContext(ctx, q,
		f.ID,
		f.OwnerID,
		f.Name,
		f.Icon,
		f.Color,
		f.Position,
		f.CreatedAt,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isUniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, err
	}
	return out, nil
}

// MaxPosition returns -1 for an owner without folders.
func (r *FolderPostgres) MaxPosition(ctx context.Context, ownerID string) (int, error) {
	const q = `SELECT COALESCE(MAX(position), -1) FROM folders WHERE owner_id = $1`
	var pos int
	if err := r.db.QueryRowContext(ctx, q, ownerID).Scan(&pos); err != nil {
		return 0, err
	}
	return pos, nil
}
