package service

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"fileflow/internal/model"
	"fileflow/internal/repository"
	"fileflow/internal/storage"
)

const pendingChecksum = "pending"

var blockedExtensions = map[string]bool{
	".exe": true,
	".bat": true,
	".cmd": true,
	".sh":  true,
	".ps1": true,
}

// UploadRequest is the input of ContentService.InitUpload.
type UploadRequest struct {
	OwnerID  string
	Filename string
	Size     int64
	MimeType string
	FolderID string
}

// UploadTicket tells the client where to PUT the bytes.
type UploadTicket struct {
	UploadURL  string `json:"upload_url"`
	StorageKey string `json:"storage_key"`
	FileID     string `json:"file_id"`
}

// DownloadLink is a presigned URL for one content record.
type DownloadLink struct {
	URL       string `json:"download_url"`
	Filename  string `json:"filename"`
	ExpiresIn int    `json:"expires_in"`
}

// ContentListResult is the service-level DTO for paginated content records.
type ContentListResult struct {
	Items []model.Content `json:"data"`
	Total int             `json:"total"`
}

// ContentConfig holds the upload limits and URL lifetime.
type ContentConfig struct {
	MaxFileSize   int64
	PresignExpiry time.Duration
}

// ContentService defines the use cases for an owner's own content records.
type ContentService interface {
	// InitUpload creates an uploading record and returns a presigned upload URL.
	InitUpload(ctx context.Context, req UploadRequest) (*UploadTicket, error)

	// CompleteUpload marks the record uploaded once its bytes are in storage and charges
	// the owner's quota in the same unit of work.
	CompleteUpload(ctx context.Context, ownerID, id, checksum string) (*model.Content, error)

	// AbortUpload removes an upload that never completed, bytes included.
	AbortUpload(ctx context.Context, ownerID, id string) error

	List(ctx context.Context, ownerID, folderID string, limit, offset int) (*ContentListResult, error)

	DownloadURL(ctx context.Context, ownerID, id string) (*DownloadLink, error)

	// Delete soft-deletes the record and releases its quota. Stored bytes are left alone
	// because other owners' records may reference them.
	Delete(ctx context.Context, ownerID, id string) error
}

type contentService struct {
	uow   repository.UnitOfWork
	store storage.Storage
	quota *QuotaLedger
	cfg   ContentConfig
	log   logrus.FieldLogger
	now   func() time.Time
}

// NewContentService constructs a new ContentService.
func NewContentService(uow repository.UnitOfWork, store storage.Storage, quota *QuotaLedger, cfg ContentConfig, log logrus.FieldLogger) ContentService {
	return &contentService{uow: uow, store: store, quota: quota, cfg: cfg, log: log, now: time.Now}
}

func (s *contentService) InitUpload(ctx context.Context, req UploadRequest) (*UploadTicket, error) {
	name := strings.TrimSpace(req.Filename)
	if req.OwnerID == "" || name == "" || req.Size <= 0 {
		return nil, ErrInvalidRequest
	}
	if s.cfg.MaxFileSize > 0 && req.Size > s.cfg.MaxFileSize {
		return nil, ErrFileTooLarge
	}
	if blockedExtensions[strings.ToLower(filepath.Ext(name))] {
		return nil, ErrFileTypeNotAllowed
	}

	repos := s.uow.Repos()
	owner, err := repos.Accounts.FindByID(ctx, req.OwnerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := s.quota.Check(*owner, req.Size); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	key := storage.GenerateKey(owner.ID, name, now)
	rec := &model.Content{
		ID:               uuid.NewString(),
		OwnerID:          owner.ID,
		Filename:         name,
		OriginalFilename: name,
		Size:             req.Size,
		MimeType:         req.MimeType,
		StorageKey:       key,
		Checksum:         pendingChecksum,
		Status:           model.ContentUploading,
		CreatedAt:        now,
	}
	if req.FolderID != "" {
		if err := ownFolder(ctx, repos.Folders, owner.ID, req.FolderID); err != nil {
			return nil, err
		}
		folderID := req.FolderID
		rec.FolderID = &folderID
	}
	stored, err := repos.Contents.Create(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("db save failed: %w", err)
	}

	url, err := s.store.PresignUpload(ctx, key, req.MimeType, s.cfg.PresignExpiry)
	if err != nil {
		// Rollback: the record is useless without an upload URL.
		if delErr := repos.Contents.Delete(ctx, stored.ID); delErr != nil {
			return nil, fmt.Errorf("presign upload failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("presign upload failed: %w", err)
	}

	return &UploadTicket{UploadURL: url, StorageKey: key, FileID: stored.ID}, nil
}

func ownFolder(ctx context.Context, folders repository.FolderRepository, ownerID, id string) error {
	f, err := folders.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: unknown folder", ErrInvalidRequest)
		}
		return err
	}
	if f.OwnerID != ownerID {
		return fmt.Errorf("%w: unknown folder", ErrInvalidRequest)
	}
	return nil
}

// ownedContent loads id and hides records that belong to someone else.
func ownedContent(ctx context.Context, contents repository.ContentRepository, ownerID, id string) (*model.Content, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	c, err := contents.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if c.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return c, nil
}

func normalizeChecksum(checksum string) string {
	checksum = strings.ToLower(strings.TrimSpace(checksum))
	if len(checksum) != 64 {
		return pendingChecksum
	}
	if _, err := hex.DecodeString(checksum); err != nil {
		return pendingChecksum
	}
	return checksum
}

func (s *contentService) CompleteUpload(ctx context.Context, ownerID, id, checksum string) (*model.Content, error) {
	c, err := ownedContent(ctx, s.uow.Repos().Contents, ownerID, id)
	if err != nil {
		return nil, err
	}
	if c.Status == model.ContentUploaded {
		return c, nil
	}
	if c.Status != model.ContentUploading {
		return nil, fmt.Errorf("%w: content is %s", ErrInvalidRequest, c.Status)
	}

	info, err := s.store.Stat(ctx, c.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, ErrUploadIncomplete
		}
		return nil, fmt.Errorf("stat object: %w", err)
	}
	// Quota is charged on the declared size, so the stored object must match it.
	if info.Size != c.Size {
		s.log.WithFields(logrus.Fields{
			"file_id":       c.ID,
			"declared_size": c.Size,
			"stored_size":   info.Size,
		}).Warn("upload_size_mismatch")
		return nil, fmt.Errorf("%w: stored %d bytes, declared %d", ErrUploadIncomplete, info.Size, c.Size)
	}

	sum := normalizeChecksum(checksum)
	err = s.uow.Do(ctx, func(ctx context.Context, r repository.Repositories) error {
		if err := r.Contents.UpdateStatus(ctx, c.ID, model.ContentUploading, model.ContentUploaded, sum); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: upload already completed or removed", ErrInvalidRequest)
			}
			return err
		}
		return s.quota.Reserve(ctx, r.Accounts, c.OwnerID, c.Size)
	})
	if err != nil {
		return nil, err
	}

	c.Status = model.ContentUploaded
	c.Checksum = sum
	s.log.WithFields(logrus.Fields{
		"file_id":  c.ID,
		"owner_id": c.OwnerID,
		"size":     c.Size,
	}).Info("upload_completed")
	return c, nil
}

func (s *contentService) AbortUpload(ctx context.Context, ownerID, id string) error {
	repos := s.uow.Repos()
	c, err := ownedContent(ctx, repos.Contents, ownerID, id)
	if err != nil {
		return err
	}
	if c.Status != model.ContentUploading {
		return fmt.Errorf("%w: content is %s", ErrInvalidRequest, c.Status)
	}
	if err := s.store.Delete(ctx, c.StorageKey); err != nil {
		return fmt.Errorf("delete storage: %w", err)
	}
	return repos.Contents.Delete(ctx, c.ID)
}

func (s *contentService) List(ctx context.Context, ownerID, folderID string, limit, offset int) (*ContentListResult, error) {
	res, err := s.uow.Repos().Contents.ListByOwner(ctx,
		repository.ContentFilter{OwnerID: ownerID, FolderID: folderID},
		pageQuery(limit, offset),
	)
	if err != nil {
		return nil, err
	}
	return &ContentListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *contentService) DownloadURL(ctx context.Context, ownerID, id string) (*DownloadLink, error) {
	c, err := ownedContent(ctx, s.uow.Repos().Contents, ownerID, id)
	if err != nil {
		return nil, err
	}
	if c.DeletedAt != nil {
		return nil, ErrNotFound
	}
	if !c.Shareable() {
		return nil, ErrContentNotReady
	}
	url, err := s.store.PresignDownload(ctx, c.StorageKey, c.OriginalFilename, s.cfg.PresignExpiry)
	if err != nil {
		return nil, fmt.Errorf("presign download: %w", err)
	}
	return &DownloadLink{
		URL:       url,
		Filename:  c.OriginalFilename,
		ExpiresIn: int(s.cfg.PresignExpiry.Seconds()),
	}, nil
}

func (s *contentService) Delete(ctx context.Context, ownerID, id string) error {
	return s.uow.Do(ctx, func(ctx context.Context, r repository.Repositories) error {
		c, err := ownedContent(ctx, r.Contents, ownerID, id)
		if err != nil {
			return err
		}
		if c.DeletedAt != nil {
			return ErrNotFound
		}
		if err := r.Contents.SoftDelete(ctx, c.ID, s.now().UTC()); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		// Uploads that never completed were never charged.
		if c.Status == model.ContentUploading {
			return nil
		}
		return s.quota.Release(ctx, r.Accounts, c.OwnerID, c.Size)
	})
}
