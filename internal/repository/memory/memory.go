// Package memory is an in-process implementation of the repository contracts. A unit of
// work runs against a private copy of the data and swaps it in on success, so it has
// the same all-or-nothing behavior as the PostgreSQL implementation. It backs tests and
// local development without a database.
package memory

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fileflow/internal/model"
	"fileflow/internal/repository"
)

type data struct {
	accounts map[string]model.Account
	folders  map[string]model.Folder
	contents map[string]model.Content
	shares   map[string]model.Share
}

func newData() *data {
	return &data{
		accounts: map[string]model.Account{},
		folders:  map[string]model.Folder{},
		contents: map[string]model.Content{},
		shares:   map[string]model.Share{},
	}
}

func (d *data) clone() *data {
	c := newData()
	for k, v := range d.accounts {
		c.accounts[k] = v
	}
	for k, v := range d.folders {
		c.folders[k] = v
	}
	for k, v := range d.contents {
		c.contents[k] = v
	}
	for k, v := range d.shares {
		c.shares[k] = v
	}
	return c
}

// Store holds committed state. Units of work are serialized by mu.
type Store struct {
	mu    sync.Mutex
	state *data
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{state: newData()}
}

var _ repository.UnitOfWork = (*Store)(nil)

// Do runs fn against a copy of the state and commits the copy when fn returns nil.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, r repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.state.clone()
	if err := fn(ctx, bind(&view{tx: work})); err != nil {
		return err
	}
	s.state = work
	return nil
}

// Repos returns repositories that read and write committed state directly.
func (s *Store) Repos() repository.Repositories {
	return bind(&view{store: s})
}

// PutAccount stores a, replacing any account with the same ID.
func (s *Store) PutAccount(a model.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.accounts[a.ID] = a
}

// PutContent stores c, replacing any record with the same ID.
func (s *Store) PutContent(c model.Content) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.contents[c.ID] = c
}

// PutFolder stores f, replacing any folder with the same ID.
func (s *Store) PutFolder(f model.Folder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.folders[f.ID] = f
}

// Account returns the committed account.
func (s *Store) Account(id string) (model.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.state.accounts[id]
	return a, ok
}

// Folders returns the committed folders of owner ordered by position.
func (s *Store) Folders(ownerID string) []model.Folder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Folder, 0)
	for _, f := range s.state.folders {
		if f.OwnerID == ownerID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// Contents returns every committed content record of owner, soft-deleted ones included.
func (s *Store) Contents(ownerID string) []model.Content {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Content, 0)
	for _, c := range s.state.contents {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	sortContents(out)
	return out
}

// ShareCount returns the number of committed shares.
func (s *Store) ShareCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.shares)
}

// view is either bound to a unit of work copy or to the store's committed state.
type view struct {
	tx    *data
	store *Store
}

func (v *view) with(fn func(d *data) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.state)
}

func bind(v *view) repository.Repositories {
	return repository.Repositories{
		Accounts: accounts{v},
		Folders:  folders{v},
		Contents: contents{v},
		Shares:   shares{v},
	}
}

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

func page[T any](items []T, pq repository.PageQuery) *repository.PageResult[T] {
	total := len(items)
	start := pq.Offset
	if start > total {
		start = total
	}
	end := total
	if pq.Limit > 0 && start+pq.Limit < total {
		end = start + pq.Limit
	}
	out := make([]T, 0, end-start)
	out = append(out, items[start:end]...)
	return &repository.PageResult[T]{Items: out, Total: total}
}

func newestFirst(a, b time.Time, aID, bID string) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return aID > bID
}

func sortContents(cs []model.Content) {
	sort.Slice(cs, func(i, j int) bool {
		return newestFirst(cs[i].CreatedAt, cs[j].CreatedAt, cs[i].ID, cs[j].ID)
	})
}

type accounts struct{ v *view }

func (r accounts) FindByID(_ context.Context, id string) (*model.Account, error) {
	var out *model.Account
	err := r.v.with(func(d *data) error {
		a, ok := d.accounts[id]
		if !ok {
			return sql.ErrNoRows
		}
		out = &a
		return nil
	})
	return out, err
}

func (r accounts) find(match func(model.Account) bool) (*model.Account, error) {
	var out *model.Account
	err := r.v.with(func(d *data) error {
		for _, a := range d.accounts {
			if match(a) && (out == nil || a.CreatedAt.Before(out.CreatedAt)) {
				a := a
				out = &a
			}
		}
		if out == nil {
			return sql.ErrNoRows
		}
		return nil
	})
	return out, err
}

func (r accounts) FindByEmail(_ context.Context, email string) (*model.Account, error) {
	return r.find(func(a model.Account) bool { return strings.EqualFold(a.Email, email) })
}

func (r accounts) FindByPhone(_ context.Context, phone string) (*model.Account, error) {
	return r.find(func(a model.Account) bool { return a.Phone != "" && a.Phone == phone })
}

func (r accounts) ReserveStorage(_ context.Context, id string, delta int64) (int64, error) {
	var used int64
	err := r.v.with(func(d *data) error {
		a, ok := d.accounts[id]
		if !ok || a.StorageUsed+delta > a.StorageQuota {
			return sql.ErrNoRows
		}
		a.StorageUsed += delta
		d.accounts[id] = a
		used = a.StorageUsed
		return nil
	})
	return used, err
}

func (r accounts) ReleaseStorage(_ context.Context, id string, delta int64) (int64, int64, error) {
	var before, after int64
	err := r.v.with(func(d *data) error {
		a, ok := d.accounts[id]
		if !ok {
			return sql.ErrNoRows
		}
		before = a.StorageUsed
		a.StorageUsed -= delta
		if a.StorageUsed < 0 {
			a.StorageUsed = 0
		}
		d.accounts[id] = a
		after = a.StorageUsed
		return nil
	})
	return before, after, err
}

type folders struct{ v *view }

func (r folders) FindByID(_ context.Context, id string) (*model.Folder, error) {
	var out *model.Folder
	err := r.v.with(func(d *data) error {
		f, ok := d.folders[id]
		if !ok {
			return sql.ErrNoRows
		}
		out = &f
		return nil
	})
	return out, err
}

func (r folders) FindByOwnerAndName(_ context.Context, ownerID, name string) (*model.Folder, error) {
	var out *model.Folder
	err := r.v.with(func(d *data) error {
		for _, f := range d.folders {
			if f.OwnerID == ownerID && f.Name == name {
				f := f
				out = &f
				return nil
			}
		}
		return sql.ErrNoRows
	})
	return out, err
}

func (r folders) Create(_ context.Context, f *model.Folder) (*model.Folder, error) {
	var out model.Folder
	err := r.v.with(func(d *data) error {
		for _, existing := range d.folders {
			if existing.OwnerID == f.OwnerID && existing.Name == f.Name {
				return repository.ErrConflict
			}
		}
		out = *f
		out.ID = newID(f.ID)
		d.folders[out.ID] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r folders) MaxPosition(_ context.Context, ownerID string) (int, error) {
	pos := -1
	err := r.v.with(func(d *data) error {
		for _, f := range d.folders {
			if f.OwnerID == ownerID && f.Position > pos {
				pos = f.Position
			}
		}
		return nil
	})
	return pos, err
}

type contents struct{ v *view }

func (r contents) FindByID(_ context.Context, id string) (*model.Content, error) {
	var out *model.Content
	err := r.v.with(func(d *data) error {
		c, ok := d.contents[id]
		if !ok {
			return sql.ErrNoRows
		}
		out = &c
		return nil
	})
	return out, err
}

func (r contents) Create(_ context.Context, c *model.Content) (*model.Content, error) {
	var out model.Content
	err := r.v.with(func(d *data) error {
		out = *c
		out.ID = newID(c.ID)
		d.contents[out.ID] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r contents) UpdateStatus(_ context.Context, id string, from, to model.ContentStatus, checksum string) error {
	return r.v.with(func(d *data) error {
		c, ok := d.contents[id]
		if !ok || c.Status != from {
			return sql.ErrNoRows
		}
		c.Status = to
		c.Checksum = checksum
		d.contents[id] = c
		return nil
	})
}

func (r contents) SoftDelete(_ context.Context, id string, at time.Time) error {
	return r.v.with(func(d *data) error {
		c, ok := d.contents[id]
		if !ok || c.DeletedAt != nil {
			return sql.ErrNoRows
		}
		c.Status = model.ContentDeleted
		c.DeletedAt = &at
		d.contents[id] = c
		return nil
	})
}

func (r contents) Delete(_ context.Context, id string) error {
	return r.v.with(func(d *data) error {
		delete(d.contents, id)
		return nil
	})
}

func (r contents) ListByOwner(_ context.Context, f repository.ContentFilter, pq repository.PageQuery) (*repository.PageResult[model.Content], error) {
	var out *repository.PageResult[model.Content]
	err := r.v.with(func(d *data) error {
		items := make([]model.Content, 0)
		for _, c := range d.contents {
			if c.OwnerID != f.OwnerID || c.DeletedAt != nil {
				continue
			}
			if f.FolderID != "" && (c.FolderID == nil || *c.FolderID != f.FolderID) {
				continue
			}
			items = append(items, c)
		}
		sortContents(items)
		out = page(items, pq)
		return nil
	})
	return out, err
}

type shares struct{ v *view }

func (r shares) Create(_ context.Context, s *model.Share) (*model.Share, error) {
	var out model.Share
	err := r.v.with(func(d *data) error {
		for _, existing := range d.shares {
			if existing.TransactionID == s.TransactionID {
				return repository.ErrConflict
			}
		}
		out = *s
		out.ID = newID(s.ID)
		d.shares[out.ID] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r shares) FindByTransactionID(_ context.Context, transactionID string) (*model.Share, error) {
	var out *model.Share
	err := r.v.with(func(d *data) error {
		for _, s := range d.shares {
			if s.TransactionID == transactionID {
				s := s
				out = &s
				return nil
			}
		}
		return sql.ErrNoRows
	})
	return out, err
}

func (r shares) AdvanceStatus(_ context.Context, id string, from, to model.Status, at time.Time) (*model.Share, error) {
	var out model.Share
	err := r.v.with(func(d *data) error {
		s, ok := d.shares[id]
		if !ok || s.Status != from {
			return sql.ErrNoRows
		}
		switch to {
		case model.StatusDelivered:
			if s.DeliveredAt == nil {
				s.DeliveredAt = &at
			}
		case model.StatusViewed:
			if s.FirstViewedAt == nil {
				s.FirstViewedAt = &at
			}
		}
		s.Status = to
		d.shares[id] = s
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r shares) list(match func(model.Share) bool, pq repository.PageQuery) (*repository.PageResult[model.Share], error) {
	var out *repository.PageResult[model.Share]
	err := r.v.with(func(d *data) error {
		items := make([]model.Share, 0)
		for _, s := range d.shares {
			if match(s) {
				items = append(items, s)
			}
		}
		sort.Slice(items, func(i, j int) bool {
			return newestFirst(items[i].CreatedAt, items[j].CreatedAt, items[i].ID, items[j].ID)
		})
		out = page(items, pq)
		return nil
	})
	return out, err
}

func (r shares) ListBySender(_ context.Context, senderID string, pq repository.PageQuery) (*repository.PageResult[model.Share], error) {
	return r.list(func(s model.Share) bool { return s.Sender.AccountID == senderID }, pq)
}

func (r shares) ListByRecipient(_ context.Context, accountID, email string, pq repository.PageQuery) (*repository.PageResult[model.Share], error) {
	return r.list(func(s model.Share) bool {
		if id, ok := s.RecipientAccountID(); ok {
			return id == accountID
		}
		return email != "" && s.Recipient != nil && strings.EqualFold(s.Recipient.Contact().Email, email)
	}, pq)
}
