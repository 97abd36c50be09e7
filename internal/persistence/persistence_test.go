package persistence

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshTokenFileLifecycle(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "auth", "refresh_token")
	store := NewRefreshTokenFile(path)

	_, err := store.LoadRefreshToken()
	assert.ErrorIs(err, ErrNoRefreshToken)

	require.NoError(t, store.SaveRefreshToken("first"))
	token, err := store.LoadRefreshToken()
	assert.NoError(err)
	assert.Equal("first", token)

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(os.FileMode(0o600), info.Mode().Perm())
	}

	require.NoError(t, store.SaveRefreshToken("second"))
	token, err = store.LoadRefreshToken()
	assert.NoError(err)
	assert.Equal("second", token)

	require.NoError(t, store.DeleteRefreshToken())
	_, err = store.LoadRefreshToken()
	assert.ErrorIs(err, ErrNoRefreshToken)

	// deleting twice is fine
	assert.NoError(store.DeleteRefreshToken())
}

func TestWriteFileAtomicLeavesNoTempFiles(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "entry.json")

	require.NoError(t, WriteFileAtomic(path, []byte(`{"a":1}`), 0o644))
	require.NoError(t, WriteFileAtomic(path, []byte(`{"a":2}`), 0o644))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(`{"a":2}`, string(raw))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(entries, 1)
	assert.False(IsTempFile(entries[0].Name()))
	assert.True(IsTempFile(".entry.json.123.tmp"))
}

func TestHashToken(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(HashToken("abc"), HashToken("abc"))
	assert.NotEqual(HashToken("abc"), HashToken("abd"))
	assert.Len(HashToken("abc"), 64)
	assert.NotContains(HashToken("abc"), "abc")
}
