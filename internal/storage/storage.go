// Package storage contains the byte store abstraction and its backends (MinIO, AWS S3,
// local disk). The ledger never moves bytes through the API process: clients upload and
// download with presigned URLs, and several content records may point at one key.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"path"
	"strings"
	"time"
)

// ErrObjectNotFound is returned by Stat when no object exists under the key.
var ErrObjectNotFound = errors.New("object not found")

// ObjectInfo contains basic information about an object in storage.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
}

// Storage is the byte store used by the content service.
type Storage interface {
	// PresignUpload returns a time-limited URL the client PUTs the object body to.
	PresignUpload(ctx context.Context, key, contentType string, expiry time.Duration) (string, error)
	// PresignDownload returns a time-limited URL that serves the object as an attachment
	// named filename.
	PresignDownload(ctx context.Context, key, filename string, expiry time.Duration) (string, error)
	// Stat returns ErrObjectNotFound when the object does not exist.
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	// Delete removes an object by key. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
}

// GenerateKey builds the object key for a new upload:
// users/{owner}/files/{hash}/{filename}, where hash is derived from the owner, the
// filename and the time so repeated uploads of one name never collide.
func GenerateKey(ownerID, filename string, now time.Time) string {
	sum := sha256.Sum256([]byte(ownerID + filename + now.UTC().Format(time.RFC3339Nano)))
	return path.Join("users", ownerID, "files", hex.EncodeToString(sum[:])[:16], SafeFilename(filename))
}

// SafeFilename strips any directory component and characters that would change the key
// layout.
func SafeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	if name == "." || name == "/" || name == ".." || name == "" {
		return "file"
	}
	return name
}

func attachment(filename string) string {
	return `attachment; filename="` + strings.ReplaceAll(SafeFilename(filename), `"`, "") + `"`
}
