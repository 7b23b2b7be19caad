// Package repository declares the persistence contracts used by the services.
// Implementations live in subpackages (postgres, memory). Lookups of absent rows
// return sql.ErrNoRows.
package repository

import (
	"context"
	"errors"
)

// ErrConflict is returned when an insert hits a uniqueness constraint that the caller is
// expected to handle (an existing folder name, a transaction id collision).
var ErrConflict = errors.New("unique constraint conflict")

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}

// Repositories is the set of repositories bound to one database handle.
type Repositories struct {
	Accounts AccountRepository
	Folders  FolderRepository
	Contents ContentRepository
	Shares   ShareRepository
}

// UnitOfWork runs groups of repository calls atomically.
type UnitOfWork interface {
	// Do runs fn with repositories bound to a single transaction. The transaction commits
	// only if fn returns nil.
	Do(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error

	// Repos returns repositories that are not bound to a transaction.
	Repos() Repositories
}
