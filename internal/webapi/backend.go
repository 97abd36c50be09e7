package webapi

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	spotifyAPI "github.com/zmb3/spotify"

	"github.com/florianloch/sptfcore/internal/abort"
	"github.com/florianloch/sptfcore/internal/apierr"
	"github.com/florianloch/sptfcore/internal/auth"
	"github.com/florianloch/sptfcore/internal/cache"
	"github.com/florianloch/sptfcore/internal/constants"
	"github.com/florianloch/sptfcore/internal/spotify"
)

const artistURIPrefix = constants.URIPrefix + "artist:"

// Credentials is the part of the authorizer the backend needs besides tokens.
type Credentials interface {
	State() auth.State
	IsAuthenticated() bool
	RefreshTokenIdentity() string
	HasScope(scope string) bool
	ClearAuth() error
}

// Caches bundles the caches of one data directory.
type Caches struct {
	Dir          string
	Tracks       *cache.ObjectCache[spotify.Track]
	Artists      *cache.ObjectCache[spotify.Artist]
	User         *cache.UserCache
	AlbumImages  *cache.ImageCache
	ArtistImages *cache.ImageCache
}

type AuthStatus struct {
	State       string
	DisplayName string
}

const (
	StatusLoggedOut       = "logged_out"
	StatusLoginInProgress = "login_in_progress"
	StatusLoggedIn        = "logged_in"
)

type Backend struct {
	client *Client
	creds  Credentials
	caches Caches
	logger zerolog.Logger
}

var _ spotify.Backend = (*Backend)(nil)

func NewBackend(client *Client, creds Credentials, caches Caches, logger zerolog.Logger) *Backend {
	return &Backend{
		client: client,
		creds:  creds,
		caches: caches,
		logger: logger.With().Str("component", "backend").Logger(),
	}
}

func (b *Backend) GetUser(ctx context.Context) (*spotify.User, error) {
	identity := b.creds.RefreshTokenIdentity()
	if identity == "" {
		return nil, fmt.Errorf("%w: not logged in", apierr.ErrAuthRequired)
	}

	if user, ok := b.caches.User.Get(identity); ok {
		return user, nil
	}

	raw, err := b.client.GetJSON(ctx, "me")
	if err != nil {
		return nil, err
	}

	var user spotify.User
	if err := decode(raw, &user, "user"); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, fmt.Errorf("%w: user without id", apierr.ErrMalformedResponse)
	}

	if err := abort.Check(ctx); err != nil {
		return nil, err
	}

	// the token might have been rotated while the request was running
	if identity := b.creds.RefreshTokenIdentity(); identity != "" {
		if err := b.caches.User.Put(identity, &user); err != nil {
			b.logger.Warn().Err(err).Msg("Could not cache current user.")
		}
	}

	return &user, nil
}

// GetTrack returns the track for id. Relinked tracks depend on the market of
// the current user and never touch the track cache.
func (b *Backend) GetTrack(ctx context.Context, id string, useRelink bool) (*spotify.Track, error) {
	id, err := spotify.IDFromInput(id, spotify.TypeTrack)
	if err != nil {
		return nil, err
	}

	if !useRelink {
		if track, ok := b.caches.Tracks.Get(id); ok {
			return track, nil
		}
	}

	uri := "tracks/" + url.PathEscape(id)

	if useRelink {
		market, err := b.market(ctx)
		if err != nil {
			return nil, err
		}
		uri += "?market=" + url.QueryEscape(market)
	}

	raw, err := b.client.GetJSON(ctx, uri)
	if err != nil {
		return nil, err
	}

	var track spotify.Track
	if err := decode(raw, &track, "track"); err != nil {
		return nil, err
	}
	if err := track.Validate(); err != nil {
		return nil, err
	}

	if useRelink {
		return &track, nil
	}

	if err := abort.Check(ctx); err != nil {
		return nil, err
	}
	if err := b.caches.Tracks.Put(&track); err != nil {
		b.logger.Warn().Err(err).Str("id", id).Msg("Could not cache track.")
	}

	return &track, nil
}

// GetTracks returns the tracks for ids in input order. Ids the Web API does
// not know are left nil and reported by a *apierr.NotFoundError next to the
// otherwise complete result.
func (b *Backend) GetTracks(ctx context.Context, ids []string) ([]*spotify.Track, error) {
	normalized, err := normalizeIDs(ids, func(id string) (string, error) {
		return spotify.IDFromInput(id, spotify.TypeTrack)
	})
	if err != nil {
		return nil, err
	}

	fetched, notFound, err := b.refreshTracks(ctx, normalized)
	if err != nil {
		return nil, err
	}

	values, notFound := collect(normalized, b.caches.Tracks, fetched, notFound)
	return values, notFoundError("tracks", notFound)
}

// RefreshCacheForTracks fetches every id not cached yet, in chunks of at most
// 50 ids per request.
func (b *Backend) RefreshCacheForTracks(ctx context.Context, ids []string) error {
	_, notFound, err := b.refreshTracks(ctx, ids)
	if err != nil {
		return err
	}
	return notFoundError("tracks", notFound)
}

func (b *Backend) refreshTracks(ctx context.Context, ids []string) (map[string]*spotify.Track, []string, error) {
	return refreshBatch(ctx, b, ids, b.caches.Tracks, constants.MaxTracksPerRequest, func(t *spotify.Track) error {
		return t.Validate()
	})
}

func (b *Backend) GetTracksFromPlaylist(ctx context.Context, id string) ([]*spotify.Track, []*spotify.LocalTrack, error) {
	id, err := spotify.IDFromInput(id, spotify.TypePlaylist)
	if err != nil {
		return nil, nil, err
	}

	uri := fmt.Sprintf("playlists/%s/tracks?limit=%d", url.PathEscape(id), constants.MaxItemsPerPage)

	items, err := fetchPages[spotify.PlaylistTrack](ctx, b.client, uri, "playlist tracks")
	if err != nil {
		return nil, nil, err
	}

	var (
		tracks []*spotify.Track
		locals []*spotify.LocalTrack
	)
	for i, item := range items {
		switch entry := item.Item.(type) {
		case *spotify.Track:
			if err := entry.Validate(); err != nil {
				b.logger.Warn().Err(err).Str("playlist", id).Int("position", i).Msg("Skipping unusable playlist entry.")
				continue
			}
			tracks = append(tracks, entry)
		case *spotify.LocalTrack:
			locals = append(locals, entry)
		default:
			b.logger.Debug().Str("playlist", id).Int("position", i).Msg("Skipping playlist entry without track.")
		}
	}

	if err := abort.Check(ctx); err != nil {
		return nil, nil, err
	}
	if err := b.caches.Tracks.PutMany(tracks); err != nil {
		b.logger.Warn().Err(err).Str("playlist", id).Msg("Could not cache all playlist tracks.")
	}

	return tracks, locals, nil
}

type albumResponse struct {
	spotify.AlbumSimplified
	Tracks spotify.Page[spotify.TrackSimplified] `json:"tracks"`
}

func (b *Backend) GetTracksFromAlbum(ctx context.Context, id string) ([]*spotify.Track, error) {
	id, err := spotify.IDFromInput(id, spotify.TypeAlbum)
	if err != nil {
		return nil, err
	}

	raw, err := b.client.GetJSON(ctx, "albums/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}

	var resp albumResponse
	if err := decode(raw, &resp, "album"); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("%w: album without id", apierr.ErrMalformedResponse)
	}

	simplified := resp.Tracks.Items
	if next, ok := resp.Tracks.Next.Get(); ok && next != "" {
		rest, err := fetchPages[spotify.TrackSimplified](ctx, b.client, next, "album tracks")
		if err != nil {
			return nil, err
		}
		simplified = append(simplified, rest...)
	}

	album := &resp.AlbumSimplified
	tracks := make([]*spotify.Track, 0, len(simplified))
	for _, s := range simplified {
		track := spotify.NewTrack(s, album)
		if err := track.Validate(); err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}

	if err := abort.Check(ctx); err != nil {
		return nil, err
	}
	if err := b.caches.Tracks.PutMany(tracks); err != nil {
		b.logger.Warn().Err(err).Str("album", id).Msg("Could not cache all album tracks.")
	}

	return tracks, nil
}

// GetTopTracksForArtist needs the country of the user, which is only
// available with the user-read-private scope.
func (b *Backend) GetTopTracksForArtist(ctx context.Context, id string) ([]*spotify.Track, error) {
	id, err := artistID(id)
	if err != nil {
		return nil, err
	}

	market, err := b.market(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := b.client.GetJSON(ctx, fmt.Sprintf("artists/%s/top-tracks?market=%s", url.PathEscape(id), url.QueryEscape(market)))
	if err != nil {
		return nil, err
	}

	var resp struct {
		Tracks []*spotify.Track `json:"tracks"`
	}
	if err := decode(raw, &resp, "top tracks"); err != nil {
		return nil, err
	}

	tracks := lo.Filter(resp.Tracks, func(t *spotify.Track, _ int) bool { return t != nil })
	for _, track := range tracks {
		if err := track.Validate(); err != nil {
			return nil, err
		}
	}

	if err := abort.Check(ctx); err != nil {
		return nil, err
	}
	if err := b.caches.Tracks.PutMany(tracks); err != nil {
		b.logger.Warn().Err(err).Str("artist", id).Msg("Could not cache all top tracks.")
	}

	return tracks, nil
}

func (b *Backend) GetArtist(ctx context.Context, id string) (*spotify.Artist, error) {
	id, err := artistID(id)
	if err != nil {
		return nil, err
	}

	if artist, ok := b.caches.Artists.Get(id); ok {
		return artist, nil
	}

	raw, err := b.client.GetJSON(ctx, "artists/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}

	var artist spotify.Artist
	if err := decode(raw, &artist, "artist"); err != nil {
		return nil, err
	}
	if err := validateArtist(&artist); err != nil {
		return nil, err
	}

	if err := abort.Check(ctx); err != nil {
		return nil, err
	}
	if err := b.caches.Artists.Put(&artist); err != nil {
		b.logger.Warn().Err(err).Str("id", id).Msg("Could not cache artist.")
	}

	return &artist, nil
}

func (b *Backend) GetArtists(ctx context.Context, ids []string) ([]*spotify.Artist, error) {
	normalized, err := normalizeIDs(ids, artistID)
	if err != nil {
		return nil, err
	}

	fetched, notFound, err := b.refreshArtists(ctx, normalized)
	if err != nil {
		return nil, err
	}

	values, notFound := collect(normalized, b.caches.Artists, fetched, notFound)
	return values, notFoundError("artists", notFound)
}

func (b *Backend) RefreshCacheForArtists(ctx context.Context, ids []string) error {
	_, notFound, err := b.refreshArtists(ctx, ids)
	if err != nil {
		return err
	}
	return notFoundError("artists", notFound)
}

func (b *Backend) refreshArtists(ctx context.Context, ids []string) (map[string]*spotify.Artist, []string, error) {
	return refreshBatch(ctx, b, ids, b.caches.Artists, constants.MaxArtistsPerRequest, validateArtist)
}

func (b *Backend) GetAlbumImage(ctx context.Context, id, imageURL string) (string, error) {
	id, err := spotify.IDFromInput(id, spotify.TypeAlbum)
	if err != nil {
		return "", err
	}
	return b.caches.AlbumImages.GetImage(ctx, id, imageURL)
}

func (b *Backend) GetArtistImage(ctx context.Context, id, imageURL string) (string, error) {
	id, err := artistID(id)
	if err != nil {
		return "", err
	}
	return b.caches.ArtistImages.GetImage(ctx, id, imageURL)
}

func (b *Backend) GetMetaForTracks(tracks []*spotify.Track) []spotify.Meta {
	return spotify.MetaForTracks(tracks)
}

// Logout forgets the refresh token and everything bound to it.
func (b *Backend) Logout() error {
	return errors.Join(b.creds.ClearAuth(), b.caches.User.Invalidate())
}

func (b *Backend) AuthStatus(ctx context.Context) (AuthStatus, error) {
	state := b.creds.State()

	switch {
	case state == auth.Pending || state == auth.Exchanging:
		return AuthStatus{State: StatusLoginInProgress}, nil
	case !b.creds.IsAuthenticated():
		return AuthStatus{State: StatusLoggedOut}, nil
	}

	status := AuthStatus{State: StatusLoggedIn}

	user, err := b.GetUser(ctx)
	if err != nil {
		return status, err
	}
	status.DisplayName = user.DisplayName.OrElse(user.ID)

	return status, nil
}

// WipeCache removes every cached object and image.
func (b *Backend) WipeCache() error {
	errs := []error{
		b.caches.Tracks.Wipe(),
		b.caches.Artists.Wipe(),
		b.caches.User.Invalidate(),
		b.caches.AlbumImages.Wipe(),
		b.caches.ArtistImages.Wipe(),
	}

	if b.caches.Dir != "" {
		if err := os.RemoveAll(b.caches.Dir); err != nil {
			errs = append(errs, fmt.Errorf("could not remove cache directory: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}

	b.logger.Info().Str("dir", b.caches.Dir).Msg("Wiped cache.")

	return nil
}

// Flush drops the in-memory tiers of the object caches.
func (b *Backend) Flush() {
	b.caches.Tracks.Flush()
	b.caches.Artists.Flush()
}

func (b *Backend) market(ctx context.Context) (string, error) {
	user, err := b.GetUser(ctx)
	if err != nil {
		return "", err
	}

	country, ok := user.Country.Get()
	if ok && country != "" {
		return country, nil
	}

	if !b.creds.HasScope(spotifyAPI.ScopeUserReadPrivate) {
		return "", fmt.Errorf("%w: the country of the current user is unknown, please login again to grant the '%s' scope", apierr.ErrAuthRequired, spotifyAPI.ScopeUserReadPrivate)
	}

	return "", fmt.Errorf("%w: the Web API did not report a country for user '%s'", apierr.ErrMalformedResponse, user.ID)
}

// refreshBatch fetches every id of ids not cached yet. Cache writes happen
// once all requests succeeded. Ids answered with null are returned in
// notFound and not cached.
func refreshBatch[T any](ctx context.Context, b *Backend, ids []string, c *cache.ObjectCache[T], chunkSize int, validate func(*T) error) (map[string]*T, []string, error) {
	kind := c.Kind()
	for _, id := range ids {
		if err := cache.ValidateKey(id); err != nil {
			return nil, nil, fmt.Errorf("%w: %w", apierr.ErrInvalidIdentifier, err)
		}
	}

	missing := lo.Filter(lo.Uniq(ids), func(id string, _ int) bool {
		return !c.IsCached(id)
	})

	fetched := make(map[string]*T, len(missing))
	var notFound []string

	for _, chunk := range lo.Chunk(missing, chunkSize) {
		raw, err := b.client.GetJSON(ctx, kind+"?ids="+strings.Join(lo.Map(chunk, func(id string, _ int) string {
			return url.QueryEscape(id)
		}), ","))
		if err != nil {
			return nil, nil, err
		}

		var resp map[string][]*T
		if err := decode(raw, &resp, kind); err != nil {
			return nil, nil, err
		}

		values, ok := resp[kind]
		if !ok || len(values) != len(chunk) {
			return nil, nil, fmt.Errorf("%w: expected %d %s but got %d", apierr.ErrMalformedResponse, len(chunk), kind, len(values))
		}

		for i, value := range values {
			if value == nil {
				notFound = append(notFound, chunk[i])
				continue
			}
			if err := validate(value); err != nil {
				return nil, nil, err
			}
			fetched[chunk[i]] = value
		}
	}

	if err := abort.Check(ctx); err != nil {
		return nil, nil, err
	}

	if len(fetched) > 0 {
		if err := c.PutMany(lo.Values(fetched)); err != nil {
			b.logger.Warn().Err(err).Str("kind", kind).Msg("Could not cache all fetched objects.")
		}
		b.logger.Debug().Str("kind", kind).Int("requested", len(ids)).Int("fetched", len(fetched)).Msg("Refreshed cache.")
	}

	return fetched, notFound, nil
}

// collect serves ids in input order, preferring owned copies from the cache.
// Ids neither cached nor fetched, e.g. because their entry vanished from disk
// after the batch, are appended to notFound.
func collect[T any](ids []string, c *cache.ObjectCache[T], fetched map[string]*T, notFound []string) ([]*T, []string) {
	ret := make([]*T, len(ids))
	for i, id := range ids {
		if value, ok := c.Get(id); ok {
			ret[i] = value
		} else if value, ok := fetched[id]; ok {
			ret[i] = value
		} else if !lo.Contains(notFound, id) {
			notFound = append(notFound, id)
		}
	}
	return ret, notFound
}

// fetchPages follows the next links of a paging object until the last page.
func fetchPages[T any](ctx context.Context, client *Client, uri, what string) ([]T, error) {
	var items []T
	seen := map[string]struct{}{}

	for uri != "" {
		if _, ok := seen[uri]; ok {
			return nil, fmt.Errorf("%w: paging of %s loops at '%s'", apierr.ErrProtocol, what, uri)
		}
		seen[uri] = struct{}{}

		raw, err := client.GetJSON(ctx, uri)
		if err != nil {
			return nil, err
		}

		var page spotify.Page[T]
		if err := decode(raw, &page, what); err != nil {
			return nil, err
		}

		items = append(items, page.Items...)
		uri = page.Next.OrElse("")
	}

	return items, nil
}

func decode(raw []byte, v interface{}, what string) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: could not decode %s: %w", apierr.ErrMalformedResponse, what, err)
	}
	return nil
}

func normalizeIDs(ids []string, normalize func(string) (string, error)) ([]string, error) {
	ret := make([]string, len(ids))
	for i, id := range ids {
		n, err := normalize(id)
		if err != nil {
			return nil, fmt.Errorf("id #%d: %w", i, err)
		}
		ret[i] = n
	}
	return ret, nil
}

// artistID accepts a bare artist id or an artist URI.
func artistID(input string) (string, error) {
	id := strings.TrimPrefix(input, artistURIPrefix)
	if id == "" || strings.ContainsAny(id, "?/:") {
		return "", fmt.Errorf("%w: '%s' is not an artist", apierr.ErrInvalidIdentifier, input)
	}
	return id, nil
}

func validateArtist(a *spotify.Artist) error {
	if a.ID == "" {
		return fmt.Errorf("%w: artist without id", apierr.ErrMalformedResponse)
	}
	return nil
}

func notFoundError(kind string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return &apierr.NotFoundError{Kind: kind, IDs: ids}
}
