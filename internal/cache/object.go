// Package cache keeps decoded Web API objects and downloaded images on disk,
// fronted by a bounded in-memory tier. Every entry may vanish at any time;
// callers treat the caches as hints.
package cache

import (
	"container/list"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/florianloch/sptfcore/internal/metrics"
	"github.com/florianloch/sptfcore/internal/persistence"
)

const objectFileExt = ".json"

var ErrInvalidKey = errors.New("invalid cache key")

// ObjectCache stores values of one kind as <dir>/<key>.json.
type ObjectCache[T any] struct {
	kind    string
	dir     string
	keyOf   func(*T) string
	maxMem  int
	metrics *metrics.Metrics
	logger  zerolog.Logger

	mu      sync.Mutex
	indexed bool
	index   map[string]struct{}
	memory  map[string]*list.Element
	lru     *list.List
}

type memEntry struct {
	key string
	raw []byte
}

func NewObjectCache[T any](dir, kind string, keyOf func(*T) string, maxMem int, m *metrics.Metrics, logger zerolog.Logger) *ObjectCache[T] {
	return &ObjectCache[T]{
		kind:    kind,
		dir:     filepath.Join(dir, kind),
		keyOf:   keyOf,
		maxMem:  maxMem,
		metrics: m,
		logger:  logger.With().Str("cache", kind).Logger(),
		index:   map[string]struct{}{},
		memory:  map[string]*list.Element{},
		lru:     list.New(),
	}
}

func (c *ObjectCache[T]) Kind() string {
	return c.kind
}

func (c *ObjectCache[T]) IsCached(key string) bool {
	if ValidateKey(key) != nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.ensureIndexLocked()

	_, ok := c.index[key]
	return ok
}

// Get returns a freshly decoded copy of the entry stored for key.
func (c *ObjectCache[T]) Get(key string) (*T, bool) {
	if ValidateKey(key) != nil {
		return nil, false
	}

	raw, ok := c.lookup(key)
	c.metrics.ObserveCacheLookup(c.kind, ok)
	if !ok {
		return nil, false
	}

	value := new(T)
	if err := json.Unmarshal(raw, value); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Dropping undecodable cache entry.")
		c.evict(key)
		return nil, false
	}

	return value, true
}

func (c *ObjectCache[T]) lookup(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.memory[key]; ok {
		c.lru.MoveToFront(elem)
		return elem.Value.(*memEntry).raw, true
	}

	c.ensureIndexLocked()
	if _, ok := c.index[key]; !ok {
		return nil, false
	}

	raw, err := os.ReadFile(c.path(key))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn().Err(err).Str("key", key).Msg("Failed reading cache entry.")
		}
		delete(c.index, key)
		return nil, false
	}

	c.rememberLocked(key, raw)

	return raw, true
}

func (c *ObjectCache[T]) Put(value *T) error {
	key := c.keyOf(value)
	if err := ValidateKey(key); err != nil {
		return err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("could not encode %s entry '%s': %w", c.kind, key, err)
	}

	if err := persistence.WriteFileAtomic(c.path(key), raw, 0o644); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.index[key] = struct{}{}
	c.rememberLocked(key, raw)

	return nil
}

func (c *ObjectCache[T]) PutMany(values []*T) error {
	var errs []error
	for _, value := range values {
		if err := c.Put(value); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Flush drops the in-memory tier. The disk tier stays untouched.
func (c *ObjectCache[T]) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.memory = map[string]*list.Element{}
	c.lru.Init()
}

// Wipe removes every entry of this kind from memory and disk.
func (c *ObjectCache[T]) Wipe() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.memory = map[string]*list.Element{}
	c.lru.Init()
	c.index = map[string]struct{}{}
	c.indexed = false

	if err := os.RemoveAll(c.dir); err != nil {
		return fmt.Errorf("could not wipe %s cache: %w", c.kind, err)
	}

	return nil
}

func (c *ObjectCache[T]) evict(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.memory[key]; ok {
		c.lru.Remove(elem)
		delete(c.memory, key)
	}
	delete(c.index, key)

	if err := os.Remove(c.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		c.logger.Warn().Err(err).Str("key", key).Msg("Failed removing cache entry.")
	}
}

func (c *ObjectCache[T]) rememberLocked(key string, raw []byte) {
	if c.maxMem <= 0 {
		return
	}

	if elem, ok := c.memory[key]; ok {
		elem.Value.(*memEntry).raw = raw
		c.lru.MoveToFront(elem)
		return
	}

	c.memory[key] = c.lru.PushFront(&memEntry{key: key, raw: raw})

	for c.lru.Len() > c.maxMem {
		oldest := c.lru.Back()
		c.lru.Remove(oldest)
		delete(c.memory, oldest.Value.(*memEntry).key)
	}
}

// ensureIndexLocked enumerates the directory on first use.
func (c *ObjectCache[T]) ensureIndexLocked() {
	if c.indexed {
		return
	}
	c.indexed = true

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn().Err(err).Msg("Could not enumerate cache directory.")
		}
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || persistence.IsTempFile(name) || !strings.HasSuffix(name, objectFileExt) {
			continue
		}
		c.index[strings.TrimSuffix(name, objectFileExt)] = struct{}{}
	}

	c.logger.Debug().Int("entries", len(c.index)).Msg("Enumerated cache directory.")
}

func (c *ObjectCache[T]) path(key string) string {
	return filepath.Join(c.dir, key+objectFileExt)
}

// ValidateKey rejects keys that cannot be used as a plain file name.
func ValidateKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\:*?"<>|[]`) || strings.HasPrefix(key, ".") {
		return fmt.Errorf("%w: '%s'", ErrInvalidKey, key)
	}

	return nil
}
