package persistence

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

var (
	ErrNoRefreshToken = errors.New("no refresh token stored")
)

// RefreshTokenPersistor stores the only durable auth secret.
type RefreshTokenPersistor interface {
	LoadRefreshToken() (string, error)
	SaveRefreshToken(token string) error
	DeleteRefreshToken() error
}

type RefreshTokenFile struct {
	path string
	mu   sync.Mutex
}

func NewRefreshTokenFile(path string) *RefreshTokenFile {
	return &RefreshTokenFile{path: path}
}

func (f *RefreshTokenFile) LoadRefreshToken() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNoRefreshToken
		}

		return "", fmt.Errorf("could not read refresh token from '%s': %w", f.path, err)
	}

	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", ErrNoRefreshToken
	}

	return token, nil
}

func (f *RefreshTokenFile) SaveRefreshToken(token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := WriteFileAtomic(f.path, []byte(token), 0o600); err != nil {
		return fmt.Errorf("could not persist refresh token: %w", err)
	}

	log.Debug().Str("path", f.path).Msg("Persisted refresh token.")

	return nil
}

func (f *RefreshTokenFile) DeleteRefreshToken() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("could not delete refresh token: %w", err)
	}

	return nil
}

// WriteFileAtomic writes data to a temporary file next to path and renames it
// into place, so readers see either the old or the new content.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("could not create directory '%s': %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("could not create temporary file in '%s': %w", dir, err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		if err := os.Remove(tmpName); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Warn().Err(err).Str("path", tmpName).Msg("Failed removing temporary file.")
		}
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("could not write '%s': %w", tmpName, err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("could not sync '%s': %w", tmpName, err)
	}

	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("could not close '%s': %w", tmpName, err)
	}

	if err := os.Chmod(tmpName, perm); err != nil {
		cleanup()
		return fmt.Errorf("could not set permissions on '%s': %w", tmpName, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("could not move '%s' into place: %w", path, err)
	}

	return nil
}

// IsTempFile reports whether name was left behind by an interrupted WriteFileAtomic.
func IsTempFile(name string) bool {
	return strings.HasPrefix(name, ".") && strings.HasSuffix(name, ".tmp")
}

// HashToken derives a stable, non-secret identity from a token.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%X", hash)
}
