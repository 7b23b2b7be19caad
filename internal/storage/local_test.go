package storage

import (
	"context"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fileflow/internal/config"
)

func newLocal(t *testing.T) *Local {
	t.Helper()
	l, err := NewLocal(config.StorageConfig{
		LocalDir:     t.TempDir(),
		LocalBaseURL: "http://files.test/",
		SigningKey:   "secret",
	})
	require.NoError(t, err)
	l.now = func() time.Time { return time.Unix(1_800_000_000, 0) }
	return l
}

func TestNewLocal_RequiresSigningKey(t *testing.T) {
	_, err := NewLocal(config.StorageConfig{LocalDir: t.TempDir()})
	assert.Error(t, err)
}

func TestLocal_SignedURLs(t *testing.T) {
	l := newLocal(t)
	ctx := context.Background()
	key := "users/acc-1/files/abc/my bill.pdf"

	raw, err := l.PresignDownload(ctx, key, "my bill.pdf", time.Hour)
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "files.test", u.Host)
	assert.Equal(t, LocalRoutePrefix+key, u.Path)
	assert.NoError(t, l.Verify("GET", key, u.Query()))
	assert.ErrorIs(t, l.Verify("PUT", key, u.Query()), ErrInvalidSignature)
	assert.ErrorIs(t, l.Verify("GET", "users/acc-2/files/abc/x", u.Query()), ErrInvalidSignature)

	tampered := u.Query()
	tampered.Set("filename", "other.pdf")
	assert.ErrorIs(t, l.Verify("GET", key, tampered), ErrInvalidSignature)

	l.now = func() time.Time { return time.Unix(1_800_000_000, 0).Add(2 * time.Hour) }
	assert.ErrorIs(t, l.Verify("GET", key, u.Query()), ErrURLExpired)
}

func TestLocal_PutOpenStatDelete(t *testing.T) {
	l := newLocal(t)
	ctx := context.Background()
	key := "users/acc-1/files/abc/a.txt"

	_, err := l.Stat(ctx, key)
	assert.ErrorIs(t, err, ErrObjectNotFound)

	info, err := l.Put(ctx, key, strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size)

	st, err := l.Stat(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(5), st.Size)

	rc, _, err := l.Open(ctx, key)
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "hello", string(body))

	require.NoError(t, l.Delete(ctx, key))
	require.NoError(t, l.Delete(ctx, key))
	_, err = l.Stat(ctx, key)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestLocal_RejectsEscapingKeys(t *testing.T) {
	l := newLocal(t)
	ctx := context.Background()

	_, err := l.Put(ctx, "../outside.txt", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = l.PresignUpload(ctx, "/etc/passwd", "", time.Minute)
	assert.ErrorIs(t, err, ErrInvalidKey)
}
