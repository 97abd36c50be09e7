package spotify

import (
	"context"
)

//go:generate mockgen -destination=mocks/mocks.go -package=mocks . Backend,Authenticator,AccessTokenProvider

// AccessTokenProvider hands out a currently valid bearer token.
type AccessTokenProvider interface {
	GetAccessToken(ctx context.Context) (string, error)
}

type Authenticator interface {
	AuthenticateClean(ctx context.Context, onDone func()) error
	CancelAuth()
	IsAuthenticated() bool
	HasRefreshToken() bool
	LastError() error
}

// Backend is what the host player talks to.
type Backend interface {
	GetUser(ctx context.Context) (*User, error)
	GetTrack(ctx context.Context, id string, useRelink bool) (*Track, error)
	GetTracks(ctx context.Context, ids []string) ([]*Track, error)
	GetTracksFromPlaylist(ctx context.Context, id string) ([]*Track, []*LocalTrack, error)
	GetTracksFromAlbum(ctx context.Context, id string) ([]*Track, error)
	GetTopTracksForArtist(ctx context.Context, id string) ([]*Track, error)
	GetArtist(ctx context.Context, id string) (*Artist, error)
	GetArtists(ctx context.Context, ids []string) ([]*Artist, error)
	GetAlbumImage(ctx context.Context, id, url string) (string, error)
	GetArtistImage(ctx context.Context, id, url string) (string, error)
	GetMetaForTracks(tracks []*Track) []Meta
	Logout() error
	WipeCache() error
}
