package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"fileflow/internal/config"
)

// LocalRoutePrefix is the HTTP path prefix under which Local serves signed URLs.
const LocalRoutePrefix = "/storage/"

var (
	// ErrInvalidSignature is returned when a local URL was not signed with our key.
	ErrInvalidSignature = errors.New("invalid storage url signature")
	// ErrURLExpired is returned when a local URL is past its expiry.
	ErrURLExpired = errors.New("storage url expired")
	// ErrInvalidKey is returned for keys that would escape the storage directory.
	ErrInvalidKey = errors.New("invalid storage key")
)

// Local stores objects on disk and hands out HMAC-signed URLs that the HTTP layer serves.
// It is meant for development and single-node deployments.
type Local struct {
	dir     string
	baseURL string
	key     []byte
	now     func() time.Time
}

// NewLocal creates the storage directory if needed.
func NewLocal(cfg config.StorageConfig) (*Local, error) {
	if cfg.SigningKey == "" {
		return nil, fmt.Errorf("storage signing key is required")
	}
	if cfg.LocalDir == "" {
		return nil, fmt.Errorf("storage local dir is required")
	}
	if err := os.MkdirAll(cfg.LocalDir, 0o750); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Local{
		dir:     cfg.LocalDir,
		baseURL: strings.TrimRight(cfg.LocalBaseURL, "/"),
		key:     []byte(cfg.SigningKey),
		now:     time.Now,
	}, nil
}

func (l *Local) sign(method, key, expires, filename string) string {
	mac := hmac.New(sha256.New, l.key)
	mac.Write([]byte(method + "\n" + key + "\n" + expires + "\n" + filename))
	return hex.EncodeToString(mac.Sum(nil))
}

func (l *Local) signedURL(method, key, filename string, expiry time.Duration) string {
	expires := strconv.FormatInt(l.now().Add(expiry).Unix(), 10)
	q := url.Values{}
	q.Set("expires", expires)
	if filename != "" {
		q.Set("filename", filename)
	}
	q.Set("signature", l.sign(method, key, expires, filename))

	segs := strings.Split(key, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return l.baseURL + LocalRoutePrefix + strings.Join(segs, "/") + "?" + q.Encode()
}

// Verify checks a signed URL's query values for method and key.
func (l *Local) Verify(method, key string, q url.Values) error {
	expires := q.Get("expires")
	want := l.sign(method, key, expires, q.Get("filename"))
	if !hmac.Equal([]byte(want), []byte(q.Get("signature"))) {
		return ErrInvalidSignature
	}
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return ErrInvalidSignature
	}
	if l.now().Unix() > exp {
		return ErrURLExpired
	}
	return nil
}

func (l *Local) PresignUpload(_ context.Context, key, _ string, expiry time.Duration) (string, error) {
	if _, err := l.path(key); err != nil {
		return "", err
	}
	return l.signedURL("PUT", key, "", expiry), nil
}

func (l *Local) PresignDownload(_ context.Context, key, filename string, expiry time.Duration) (string, error) {
	if _, err := l.path(key); err != nil {
		return "", err
	}
	return l.signedURL("GET", key, SafeFilename(filename), expiry), nil
}

func (l *Local) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", ErrInvalidKey
	}
	return filepath.Join(l.dir, clean), nil
}

// Put writes r under key. The object becomes visible only once fully written.
func (l *Local) Put(_ context.Context, key string, r io.Reader) (ObjectInfo, error) {
	p, err := l.path(key)
	if err != nil {
		return ObjectInfo{}, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return ObjectInfo{}, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return ObjectInfo{}, err
	}
	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return ObjectInfo{}, err
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		_ = os.Remove(tmp.Name())
		return ObjectInfo{}, err
	}
	return ObjectInfo{Key: key, Size: n, LastModified: l.now()}, nil
}

// Open returns the object body. The caller closes it.
func (l *Local) Open(_ context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	p, err := l.path(key)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ObjectInfo{}, ErrObjectNotFound
		}
		return nil, ObjectInfo{}, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, ObjectInfo{}, err
	}
	return f, ObjectInfo{Key: key, Size: st.Size(), LastModified: st.ModTime()}, nil
}

func (l *Local) Stat(_ context.Context, key string) (ObjectInfo, error) {
	p, err := l.path(key)
	if err != nil {
		return ObjectInfo{}, err
	}
	st, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ObjectInfo{}, ErrObjectNotFound
		}
		return ObjectInfo{}, err
	}
	return ObjectInfo{Key: key, Size: st.Size(), LastModified: st.ModTime()}, nil
}

func (l *Local) Delete(_ context.Context, key string) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
