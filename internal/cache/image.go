package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/florianloch/sptfcore/internal/abort"
	"github.com/florianloch/sptfcore/internal/apierr"
	"github.com/florianloch/sptfcore/internal/metrics"
	"github.com/florianloch/sptfcore/internal/persistence"
)

const (
	defaultImageExt = ".jpg"
	maxImageSize    = 20 << 20
)

var imageExtByContentType = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ImageCache stores CDN images as <dir>/<key>.<ext>. Concurrent requests for
// the same key share a single download.
type ImageCache struct {
	kind    string
	dir     string
	client  *http.Client
	aborts  *abort.Manager
	metrics *metrics.Metrics
	logger  zerolog.Logger

	flights singleflight.Group
	wipeMu  sync.RWMutex
}

func NewImageCache(dir, kind string, client *http.Client, aborts *abort.Manager, m *metrics.Metrics, logger zerolog.Logger) *ImageCache {
	if client == nil {
		client = http.DefaultClient
	}

	return &ImageCache{
		kind:    kind,
		dir:     filepath.Join(dir, kind),
		client:  client,
		aborts:  aborts,
		metrics: m,
		logger:  logger.With().Str("cache", kind).Logger(),
	}
}

// GetImage returns the path of the image stored for key, downloading it from
// imageURL first if needed.
func (c *ImageCache) GetImage(ctx context.Context, key, imageURL string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}

	if err := abort.Check(ctx); err != nil {
		return "", err
	}

	if p, ok := c.lookup(key); ok {
		c.metrics.ObserveCacheLookup(c.kind, true)
		return p, nil
	}
	c.metrics.ObserveCacheLookup(c.kind, false)

	// The download outlives a single impatient caller, only shutdown stops it.
	ch := c.flights.DoChan(key, func() (interface{}, error) {
		if p, ok := c.lookup(key); ok {
			return p, nil
		}

		flightCtx, release := c.aborts.Scope(context.WithoutCancel(ctx))
		defer release()

		return c.download(flightCtx, key, imageURL)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", abort.Check(ctx)
	}
}

func (c *ImageCache) lookup(key string) (string, bool) {
	c.wipeMu.RLock()
	defer c.wipeMu.RUnlock()

	matches, err := filepath.Glob(filepath.Join(c.dir, key+".*"))
	if err != nil {
		return "", false
	}

	for _, match := range matches {
		if !persistence.IsTempFile(filepath.Base(match)) {
			return match, true
		}
	}

	return "", false
}

func (c *ImageCache) download(ctx context.Context, key, imageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", fmt.Errorf("could not build image request for '%s': %w", imageURL, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if cerr := abort.Check(ctx); cerr != nil {
			return "", cerr
		}
		return "", fmt.Errorf("%w: downloading image '%s': %w", apierr.ErrTransient, imageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &apierr.HTTPError{Status: resp.StatusCode, Reason: resp.Status, Body: string(body)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize))
	if err != nil {
		if cerr := abort.Check(ctx); cerr != nil {
			return "", cerr
		}
		return "", fmt.Errorf("%w: reading image '%s': %w", apierr.ErrTransient, imageURL, err)
	}

	if err := abort.Check(ctx); err != nil {
		return "", err
	}

	p := filepath.Join(c.dir, key+imageExt(resp.Header.Get("Content-Type"), imageURL))

	c.wipeMu.RLock()
	err = persistence.WriteFileAtomic(p, body, 0o644)
	c.wipeMu.RUnlock()
	if err != nil {
		return "", err
	}

	c.metrics.ObserveImageDownload(c.kind)
	c.logger.Debug().Str("key", key).Str("path", p).Int("bytes", len(body)).Msg("Downloaded image.")

	return p, nil
}

func (c *ImageCache) Wipe() error {
	c.wipeMu.Lock()
	defer c.wipeMu.Unlock()

	if err := os.RemoveAll(c.dir); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("could not wipe %s cache: %w", c.kind, err)
	}

	return nil
}

func imageExt(contentType, imageURL string) string {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		if ext, ok := imageExtByContentType[strings.ToLower(mediaType)]; ok {
			return ext
		}
	}

	if u, err := url.Parse(imageURL); err == nil {
		if ext := path.Ext(u.Path); ext != "" && ValidateKey(strings.TrimPrefix(ext, ".")) == nil {
			return strings.ToLower(ext)
		}
	}

	return defaultImageExt
}
