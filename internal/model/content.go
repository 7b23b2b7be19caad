package model

import "time"

// ContentStatus is the lifecycle state of a content record.
type ContentStatus string

const (
	ContentUploading ContentStatus = "uploading"
	ContentUploaded  ContentStatus = "uploaded"
	ContentHidden    ContentStatus = "hidden"
	ContentDeleted   ContentStatus = "deleted"
)

// Content is one owner's logical file entry. Records owned by different accounts may
// reference the same StorageKey; bytes are shared, never copied.
type Content struct {
	ID               string        `json:"id"`
	OwnerID          string        `json:"owner_id"`
	FolderID         *string       `json:"folder_id"`
	Filename         string        `json:"filename"`
	OriginalFilename string        `json:"original_filename"`
	Size             int64         `json:"size_bytes"`
	MimeType         string        `json:"mime_type"`
	StorageKey       string        `json:"-"`
	Checksum         string        `json:"checksum_sha256"`
	Status           ContentStatus `json:"status"`
	CreatedAt        time.Time     `json:"created_at"`
	DeletedAt        *time.Time    `json:"deleted_at,omitempty"`
}

// Shareable reports whether the record can be the source of a send.
func (c Content) Shareable() bool {
	if c.DeletedAt != nil {
		return false
	}
	return c.Status == ContentUploaded || c.Status == ContentHidden
}

// CloneFor returns a new record for owner inside folderID that points at the same bytes.
func (c Content) CloneFor(ownerID, folderID string, now time.Time) Content {
	return Content{
		OwnerID:          ownerID,
		FolderID:         &folderID,
		Filename:         c.Filename,
		OriginalFilename: c.OriginalFilename,
		Size:             c.Size,
		MimeType:         c.MimeType,
		StorageKey:       c.StorageKey,
		Checksum:         c.Checksum,
		Status:           ContentUploaded,
		CreatedAt:        now,
	}
}
