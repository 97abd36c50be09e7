package webapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/florianloch/sptfcore/internal/abort"
	"github.com/florianloch/sptfcore/internal/apierr"
	"github.com/florianloch/sptfcore/internal/auth"
	"github.com/florianloch/sptfcore/internal/cache"
	"github.com/florianloch/sptfcore/internal/ratelimit"
	"github.com/florianloch/sptfcore/internal/spotify"
)

type fakeCredentials struct {
	mu       sync.Mutex
	state    auth.State
	identity string
	scopes   []string
	cleared  int
}

func (f *fakeCredentials) State() auth.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeCredentials) IsAuthenticated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.identity != "" && f.state == auth.Authenticated
}

func (f *fakeCredentials) RefreshTokenIdentity() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.identity
}

func (f *fakeCredentials) HasScope(scope string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return lo.Contains(f.scopes, scope)
}

func (f *fakeCredentials) ClearAuth() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
	f.identity = ""
	f.state = auth.Unauthenticated
	return nil
}

// fakeWebAPI serves a tiny catalog and counts requests per route.
type fakeWebAPI struct {
	t       *testing.T
	url     string
	country string

	mu        sync.Mutex
	requests  map[string]int
	batchSize []int
	markets   []string
	onRequest func(r *http.Request)
}

func (f *fakeWebAPI) count(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[route]
}

func (f *fakeWebAPI) record(route string, r *http.Request) {
	f.mu.Lock()
	f.requests[route]++
	if market := r.URL.Query().Get("market"); market != "" {
		f.markets = append(f.markets, market)
	}
	hook := f.onRequest
	f.mu.Unlock()

	if hook != nil {
		hook(r)
	}
}

func albumJSON(id string) map[string]interface{} {
	return map[string]interface{}{
		"id":           id,
		"name":         "Album " + id,
		"uri":          "spotify:album:" + id,
		"album_type":   "album",
		"release_date": "2001-02-03",
		"artists":      []interface{}{map[string]interface{}{"id": "artist1", "name": "Album Artist"}},
	}
}

func trackJSON(id, name string) map[string]interface{} {
	return map[string]interface{}{
		"id":           id,
		"name":         name,
		"uri":          "spotify:track:" + id,
		"duration_ms":  180000,
		"track_number": 1,
		"disc_number":  1,
		"artists":      []interface{}{map[string]interface{}{"id": "artist1", "name": "Artist"}},
		"album":        albumJSON("album1"),
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (f *fakeWebAPI) routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/v1/me", func(w http.ResponseWriter, r *http.Request) {
		f.record("me", r)
		user := map[string]interface{}{"id": "user1", "display_name": "Test User", "uri": "spotify:user:user1"}
		if f.country != "" {
			user["country"] = f.country
		}
		writeJSON(w, user)
	})

	r.Get("/v1/tracks", func(w http.ResponseWriter, r *http.Request) {
		f.record("tracks", r)

		ids := strings.Split(r.URL.Query().Get("ids"), ",")
		f.mu.Lock()
		f.batchSize = append(f.batchSize, len(ids))
		f.mu.Unlock()

		tracks := make([]interface{}, len(ids))
		for i, id := range ids {
			if !strings.HasPrefix(id, "missing") {
				tracks[i] = trackJSON(id, "Track "+id)
			}
		}
		writeJSON(w, map[string]interface{}{"tracks": tracks})
	})

	r.Get("/v1/tracks/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.record("track", r)

		id := chi.URLParam(r, "id")
		name := "Track " + id
		if r.URL.Query().Get("market") != "" {
			name = "Relinked " + id
		}
		writeJSON(w, trackJSON(id, name))
	})

	r.Get("/v1/artists", func(w http.ResponseWriter, r *http.Request) {
		f.record("artists", r)

		ids := strings.Split(r.URL.Query().Get("ids"), ",")
		artists := make([]interface{}, len(ids))
		for i, id := range ids {
			if !strings.HasPrefix(id, "missing") {
				artists[i] = map[string]interface{}{"id": id, "name": "Artist " + id, "genres": []string{"rock"}}
			}
		}
		writeJSON(w, map[string]interface{}{"artists": artists})
	})

	r.Get("/v1/artists/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.record("artist", r)
		id := chi.URLParam(r, "id")
		writeJSON(w, map[string]interface{}{"id": id, "name": "Artist " + id})
	})

	r.Get("/v1/artists/{id}/top-tracks", func(w http.ResponseWriter, r *http.Request) {
		f.record("top-tracks", r)
		writeJSON(w, map[string]interface{}{"tracks": []interface{}{trackJSON("top1", "Hit 1"), trackJSON("top2", "Hit 2")}})
	})

	r.Get("/v1/albums/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.record("album", r)

		album := albumJSON(chi.URLParam(r, "id"))
		album["tracks"] = map[string]interface{}{
			"items": []interface{}{
				map[string]interface{}{"id": "at1", "name": "First", "track_number": 1},
				map[string]interface{}{"id": "at2", "name": "Second", "track_number": 2},
			},
			"next":  f.url + "/v1/albums/" + chi.URLParam(r, "id") + "/tracks?offset=2&limit=2",
			"total": 3,
		}
		writeJSON(w, album)
	})

	r.Get("/v1/albums/{id}/tracks", func(w http.ResponseWriter, r *http.Request) {
		f.record("album-tracks", r)
		writeJSON(w, map[string]interface{}{
			"items":  []interface{}{map[string]interface{}{"id": "at3", "name": "Third", "track_number": 3}},
			"next":   nil,
			"total":  3,
			"offset": 2,
		})
	})

	r.Get("/v1/playlists/{id}/tracks", func(w http.ResponseWriter, r *http.Request) {
		f.record("playlist", r)

		const total = 230
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		var items []interface{}
		for i := offset; i < offset+limit && i < total; i++ {
			if i%50 == 0 {
				items = append(items, map[string]interface{}{
					"is_local": true,
					"track":    map[string]interface{}{"uri": fmt.Sprintf("spotify:local:a:b:local%d:100", i), "name": fmt.Sprintf("local%d", i), "album": nil},
				})
				continue
			}
			items = append(items, map[string]interface{}{
				"is_local": false,
				"track":    trackJSON(fmt.Sprintf("pt%03d", i), fmt.Sprintf("Playlist track %d", i)),
			})
		}

		var next interface{}
		if offset+limit < total {
			next = fmt.Sprintf("%s/v1/playlists/%s/tracks?offset=%d&limit=%d", f.url, chi.URLParam(r, "id"), offset+limit, limit)
		}

		writeJSON(w, map[string]interface{}{"items": items, "next": next, "total": total, "limit": limit, "offset": offset})
	})

	return r
}

type backendFixture struct {
	backend *Backend
	api     *fakeWebAPI
	creds   *fakeCredentials
	caches  Caches
}

func newBackendFixture(t *testing.T) *backendFixture {
	api := &fakeWebAPI{t: t, country: "DE", requests: map[string]int{}}

	server := httptest.NewServer(api.routes())
	t.Cleanup(server.Close)
	api.url = server.URL

	aborts := abort.NewManager()
	client, err := NewClient(newTokenProvider(t), ratelimit.New(1000, time.Second), aborts, Options{
		BaseURL:    server.URL + "/v1/",
		HTTPClient: server.Client(),
	}, nil, zerolog.Nop())
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "cache")
	logger := zerolog.Nop()
	caches := Caches{
		Dir: dir,
		Tracks: cache.NewObjectCache(dir, "tracks", func(t *spotify.Track) string {
			return string(t.ID)
		}, 16, nil, logger),
		Artists: cache.NewObjectCache(dir, "artists", func(a *spotify.Artist) string {
			return string(a.ID)
		}, 16, nil, logger),
		User:         cache.NewUserCache(filepath.Join(dir, "self.json"), nil, logger),
		AlbumImages:  cache.NewImageCache(dir, "albums", server.Client(), aborts, nil, logger),
		ArtistImages: cache.NewImageCache(dir, "artist_images", server.Client(), aborts, nil, logger),
	}

	creds := &fakeCredentials{state: auth.Authenticated, identity: "identity-1", scopes: []string{"user-read-private"}}

	return &backendFixture{
		backend: NewBackend(client, creds, caches, logger),
		api:     api,
		creds:   creds,
		caches:  caches,
	}
}

func TestGetTracksDedupsAndChunks(t *testing.T) {
	assert := assert.New(t)
	f := newBackendFixture(t)

	var ids []string
	for i := 0; i < 100; i++ {
		ids = append(ids, fmt.Sprintf("t%03d", i))
	}
	for i := 0; i < 20; i++ {
		ids = append(ids, fmt.Sprintf("t%03d", i*5))
	}
	require.Len(t, ids, 120)

	tracks, err := f.backend.GetTracks(context.Background(), ids)
	require.NoError(t, err)
	require.Len(t, tracks, 120)

	for i, track := range tracks {
		require.NotNil(t, track)
		assert.Equal(ids[i], string(track.ID))
		assert.Equal("Album album1", track.Album.Name)
	}

	assert.Equal(2, f.api.count("tracks"))
	assert.Equal([]int{50, 50}, f.api.batchSize)

	// served from cache entirely
	_, err = f.backend.GetTracks(context.Background(), ids[:10])
	assert.NoError(err)
	assert.Equal(2, f.api.count("tracks"))

	track, err := f.backend.GetTrack(context.Background(), "spotify:track:t042", false)
	assert.NoError(err)
	assert.Equal("Track t042", track.Name)
	assert.Equal(0, f.api.count("track"))
}

func TestGetTracksReportsMissingIDs(t *testing.T) {
	assert := assert.New(t)
	f := newBackendFixture(t)

	tracks, err := f.backend.GetTracks(context.Background(), []string{"t1", "missing1", "t2", "missing1"})

	assert.ErrorIs(err, apierr.ErrNotFound)
	var notFound *apierr.NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal([]string{"missing1"}, notFound.IDs)

	require.Len(t, tracks, 4)
	assert.NotNil(tracks[0])
	assert.Nil(tracks[1])
	assert.NotNil(tracks[2])
	assert.Nil(tracks[3])

	assert.True(f.caches.Tracks.IsCached("t1"))
	assert.False(f.caches.Tracks.IsCached("missing1"))
}

func TestGetTracksReportsVanishedCacheEntries(t *testing.T) {
	assert := assert.New(t)
	f := newBackendFixture(t)
	ctx := context.Background()

	// no memory tier, every read goes to disk
	f.backend.caches.Tracks = cache.NewObjectCache(f.caches.Dir, "tracks", func(t *spotify.Track) string {
		return string(t.ID)
	}, 0, nil, zerolog.Nop())

	_, err := f.backend.GetTracks(ctx, []string{"t1", "t2"})
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(f.caches.Dir, "tracks", "t1.json")))

	tracks, err := f.backend.GetTracks(ctx, []string{"t1", "t2", "t1"})
	var notFound *apierr.NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal([]string{"t1"}, notFound.IDs)
	require.Len(t, tracks, 3)
	assert.Nil(tracks[0])
	assert.NotNil(tracks[1])
	assert.Nil(tracks[2])
	assert.Equal(1, f.api.count("tracks"))

	// the next call fetches it again
	tracks, err = f.backend.GetTracks(ctx, []string{"t1"})
	require.NoError(t, err)
	assert.Equal("Track t1", tracks[0].Name)
	assert.Equal(2, f.api.count("tracks"))
}

func TestGetTracksRejectsForeignIdentifiers(t *testing.T) {
	f := newBackendFixture(t)

	_, err := f.backend.GetTracks(context.Background(), []string{"t1", "spotify:album:a1"})
	assert.ErrorIs(t, err, apierr.ErrInvalidIdentifier)
	assert.Equal(t, 0, f.api.count("tracks"))
}

func TestCanceledBatchDoesNotPopulateCache(t *testing.T) {
	f := newBackendFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	f.api.onRequest = func(*http.Request) { cancel() }

	_, err := f.backend.GetTracks(ctx, []string{"t1", "t2"})
	assert.ErrorIs(t, err, apierr.ErrCanceled)
	assert.False(t, f.caches.Tracks.IsCached("t1"))
	assert.False(t, f.caches.Tracks.IsCached("t2"))
}

func TestGetTracksFromPlaylistFollowsPages(t *testing.T) {
	assert := assert.New(t)
	f := newBackendFixture(t)

	tracks, locals, err := f.backend.GetTracksFromPlaylist(context.Background(), "https://open.spotify.com/playlist/pl1?si=x")
	require.NoError(t, err)

	assert.Equal(3, f.api.count("playlist"))
	assert.Len(locals, 5)
	assert.Len(tracks, 225)

	assert.Equal("pt001", string(tracks[0].ID))
	assert.Equal("pt229", string(tracks[len(tracks)-1].ID))
	for i := 1; i < len(tracks); i++ {
		assert.Less(string(tracks[i-1].ID), string(tracks[i].ID))
	}

	assert.Equal("local0", locals[0].Name)
	assert.Equal("local200", locals[4].Name)

	for _, track := range tracks {
		assert.True(f.caches.Tracks.IsCached(string(track.ID)))
	}
}

func TestGetTracksFromAlbumSharesAlbum(t *testing.T) {
	assert := assert.New(t)
	f := newBackendFixture(t)

	tracks, err := f.backend.GetTracksFromAlbum(context.Background(), "spotify:album:alb1")
	require.NoError(t, err)
	require.Len(t, tracks, 3)

	assert.Equal(1, f.api.count("album"))
	assert.Equal(1, f.api.count("album-tracks"))

	for _, track := range tracks {
		assert.Same(tracks[0].Album, track.Album)
	}
	assert.Equal("alb1", string(tracks[0].Album.ID))
	assert.Equal([]string{"First", "Second", "Third"}, []string{tracks[0].Name, tracks[1].Name, tracks[2].Name})

	cached, ok := f.caches.Tracks.Get("at3")
	require.True(t, ok)
	assert.Equal("Album alb1", cached.Album.Name)
}

func TestRelinkedTracksBypassCache(t *testing.T) {
	assert := assert.New(t)
	f := newBackendFixture(t)

	stale := spotify.NewTrack(spotify.TrackSimplified{ID: "r1", Name: "Cached"}, &spotify.AlbumSimplified{ID: "album1"})
	require.NoError(t, f.caches.Tracks.Put(stale))

	track, err := f.backend.GetTrack(context.Background(), "r1", true)
	require.NoError(t, err)
	assert.Equal("Relinked r1", track.Name)
	assert.Equal([]string{"DE"}, f.api.markets)

	cached, ok := f.caches.Tracks.Get("r1")
	require.True(t, ok)
	assert.Equal("Cached", cached.Name)

	_, err = f.backend.GetTrack(context.Background(), "r2", true)
	require.NoError(t, err)
	assert.False(f.caches.Tracks.IsCached("r2"))

	// the user is only fetched once
	assert.Equal(1, f.api.count("me"))
}

func TestGetTopTracksForArtist(t *testing.T) {
	assert := assert.New(t)
	f := newBackendFixture(t)

	tracks, err := f.backend.GetTopTracksForArtist(context.Background(), "spotify:artist:art1")
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal("Hit 1", tracks[0].Name)
	assert.Equal([]string{"DE"}, f.api.markets)
	assert.True(f.caches.Tracks.IsCached("top2"))
}

func TestGetTopTracksNeedsCountry(t *testing.T) {
	f := newBackendFixture(t)
	f.api.country = ""
	f.creds.scopes = nil

	_, err := f.backend.GetTopTracksForArtist(context.Background(), "art1")
	assert.ErrorIs(t, err, apierr.ErrAuthRequired)
	assert.Contains(t, err.Error(), "user-read-private")
	assert.Equal(t, 0, f.api.count("top-tracks"))
}

func TestGetTopTracksWithoutCountryDespiteScope(t *testing.T) {
	assert := assert.New(t)
	f := newBackendFixture(t)
	f.api.country = ""

	_, err := f.backend.GetTopTracksForArtist(context.Background(), "art1")
	assert.ErrorIs(err, apierr.ErrMalformedResponse)
	assert.NotErrorIs(err, apierr.ErrAuthRequired)
	assert.Equal(0, f.api.count("top-tracks"))
}

func TestGetArtists(t *testing.T) {
	assert := assert.New(t)
	f := newBackendFixture(t)

	artist, err := f.backend.GetArtist(context.Background(), "a0")
	require.NoError(t, err)
	assert.Equal("Artist a0", artist.Name)

	artists, err := f.backend.GetArtists(context.Background(), []string{"a0", "a1", "missing"})
	assert.ErrorIs(err, apierr.ErrNotFound)
	require.Len(t, artists, 3)
	assert.Equal("Artist a0", artists[0].Name)
	assert.Equal([]string{"rock"}, artists[1].Genres)
	assert.Nil(artists[2])

	assert.Equal(1, f.api.count("artist"))
	assert.Equal(1, f.api.count("artists"))

	_, err = f.backend.GetArtist(context.Background(), "a1")
	assert.NoError(err)
	assert.Equal(1, f.api.count("artist"))

	_, err = f.backend.GetArtist(context.Background(), "spotify:track:abc")
	assert.ErrorIs(err, apierr.ErrInvalidIdentifier)
}

func TestGetUserIsCachedPerIdentity(t *testing.T) {
	assert := assert.New(t)
	f := newBackendFixture(t)

	user, err := f.backend.GetUser(context.Background())
	require.NoError(t, err)
	assert.Equal("Test User", user.DisplayName.OrElse(""))

	_, err = f.backend.GetUser(context.Background())
	assert.NoError(err)
	assert.Equal(1, f.api.count("me"))

	f.creds.mu.Lock()
	f.creds.identity = "identity-2"
	f.creds.mu.Unlock()

	_, err = f.backend.GetUser(context.Background())
	assert.NoError(err)
	assert.Equal(2, f.api.count("me"))
}

func TestAuthStatusAndLogout(t *testing.T) {
	assert := assert.New(t)
	f := newBackendFixture(t)

	status, err := f.backend.AuthStatus(context.Background())
	assert.NoError(err)
	assert.Equal(AuthStatus{State: StatusLoggedIn, DisplayName: "Test User"}, status)

	require.NoError(t, f.backend.Logout())
	assert.Equal(1, f.creds.cleared)

	status, err = f.backend.AuthStatus(context.Background())
	assert.NoError(err)
	assert.Equal(StatusLoggedOut, status.State)

	_, err = f.backend.GetUser(context.Background())
	assert.ErrorIs(err, apierr.ErrAuthRequired)

	f.creds.mu.Lock()
	f.creds.state = auth.Pending
	f.creds.mu.Unlock()

	status, err = f.backend.AuthStatus(context.Background())
	assert.NoError(err)
	assert.Equal(StatusLoginInProgress, status.State)
}

func TestWipeCache(t *testing.T) {
	assert := assert.New(t)
	f := newBackendFixture(t)

	_, err := f.backend.GetTracks(context.Background(), []string{"t1"})
	require.NoError(t, err)
	_, err = f.backend.GetArtist(context.Background(), "a1")
	require.NoError(t, err)
	require.True(t, f.caches.Tracks.IsCached("t1"))

	require.NoError(t, f.backend.WipeCache())

	assert.False(f.caches.Tracks.IsCached("t1"))
	assert.False(f.caches.Artists.IsCached("a1"))
	assert.NoDirExists(f.caches.Dir)

	_, err = f.backend.GetTracks(context.Background(), []string{"t1"})
	assert.NoError(err)
	assert.Equal(2, f.api.count("tracks"))
}

func TestGetMetaForTracks(t *testing.T) {
	f := newBackendFixture(t)

	tracks, err := f.backend.GetTracks(context.Background(), []string{"t1"})
	require.NoError(t, err)

	meta := f.backend.GetMetaForTracks(tracks)
	require.Len(t, meta, 1)
	assert.Equal(t, "Track t1", meta[0].Get(spotify.MetaTitle))
	assert.Equal(t, "2001-02-03", meta[0].Get(spotify.MetaDate))
	assert.Equal(t, []string{"Album Artist"}, meta[0][spotify.MetaAlbumArtist])
}
