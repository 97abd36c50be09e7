package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/florianloch/sptfcore/internal/metrics"
	"github.com/florianloch/sptfcore/internal/persistence"
	"github.com/florianloch/sptfcore/internal/spotify"
)

const userCacheKind = "self"

type userEntry struct {
	Identity string        `json:"identity"`
	StoredAt time.Time     `json:"stored_at"`
	User     *spotify.User `json:"user"`
}

// UserCache holds the profile of the logged in user. The entry is bound to
// the identity of the refresh token it was fetched with and ignored for any
// other identity.
type UserCache struct {
	path    string
	metrics *metrics.Metrics
	logger  zerolog.Logger

	mu     sync.Mutex
	loaded bool
	entry  *userEntry
}

func NewUserCache(path string, m *metrics.Metrics, logger zerolog.Logger) *UserCache {
	return &UserCache{
		path:    path,
		metrics: m,
		logger:  logger.With().Str("cache", userCacheKind).Logger(),
	}
}

func (c *UserCache) Get(identity string) (*spotify.User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.loadLocked()

	hit := c.entry != nil && c.entry.User != nil && identity != "" && c.entry.Identity == identity
	c.metrics.ObserveCacheLookup(userCacheKind, hit)
	if !hit {
		return nil, false
	}

	user := *c.entry.User
	user.Images = append(user.Images[:0:0], c.entry.User.Images...)

	return &user, true
}

func (c *UserCache) Put(identity string, user *spotify.User) error {
	entry := &userEntry{Identity: identity, StoredAt: time.Now(), User: user}

	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("could not encode user: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := persistence.WriteFileAtomic(c.path, raw, 0o600); err != nil {
		return err
	}

	c.entry = entry
	c.loaded = true

	return nil
}

func (c *UserCache) Invalidate() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entry = nil
	c.loaded = true

	if err := os.Remove(c.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("could not remove cached user: %w", err)
	}

	return nil
}

func (c *UserCache) loadLocked() {
	if c.loaded {
		return
	}
	c.loaded = true

	raw, err := os.ReadFile(c.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn().Err(err).Msg("Failed reading cached user.")
		}
		return
	}

	var entry userEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.logger.Warn().Err(err).Msg("Ignoring undecodable cached user.")
		return
	}

	c.entry = &entry
}
