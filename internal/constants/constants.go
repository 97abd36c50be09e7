package constants

import "time"

const (
	WebAPIBaseURL        = "https://api.spotify.com/v1/"
	OpenSpotifyURLPrefix = "https://open.spotify.com/"
	URIPrefix            = "spotify:"
	SchemePrefix         = "sptf://"

	DefaultRedirectHost    = "127.0.0.1"
	DefaultRedirectPort    = 8888
	DefaultCallbackTimeout = 5 * time.Minute
	DefaultRPS             = 2
	DefaultDataDir         = ".sptf"

	RateLimitWindow      = time.Second
	TokenExpirySkew      = 30 * time.Second
	MaxRequestAttempts   = 3
	RetryAfterPadding    = time.Second
	ShutdownTimeout      = 10 * time.Second
	TransportTimeout     = 30 * time.Second
	MemoryCacheEntries   = 1024
	MaxTracksPerRequest  = 50
	MaxArtistsPerRequest = 50
	MaxItemsPerPage      = 100

	// Persisted layout, relative to the data directory
	AuthDirName          = "auth"
	RefreshTokenFileName = "refresh_token"
	CacheDirName         = "cache"
	TracksCacheKind      = "tracks"
	ArtistsCacheKind     = "artists"
	AlbumImagesKind      = "albums"
	ArtistImagesKind     = "artist_images"
	UserCacheFileName    = "self.json"

	// Names of envs
	EnvENV     = "SPTF_ENV"
	EnvPrefix  = "SPTF"
	DotEnvFile = ".env"
)
