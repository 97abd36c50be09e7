package spotify

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	spotifyAPI "github.com/zmb3/spotify"

	"github.com/florianloch/sptfcore/internal/apierr"
)

type ArtistSimplified struct {
	ID   spotifyAPI.ID  `json:"id"`
	Name string         `json:"name"`
	URI  spotifyAPI.URI `json:"uri"`
}

type Artist struct {
	ID         spotifyAPI.ID      `json:"id"`
	Name       string             `json:"name"`
	URI        spotifyAPI.URI     `json:"uri"`
	Genres     []string           `json:"genres"`
	Images     []spotifyAPI.Image `json:"images"`
	Popularity int                `json:"popularity"`
}

type AlbumSimplified struct {
	ID                   spotifyAPI.ID      `json:"id"`
	Name                 string             `json:"name"`
	URI                  spotifyAPI.URI     `json:"uri"`
	AlbumType            string             `json:"album_type"`
	Artists              []ArtistSimplified `json:"artists"`
	Images               []spotifyAPI.Image `json:"images"`
	ReleaseDate          string             `json:"release_date"`
	ReleaseDatePrecision string             `json:"release_date_precision"`
	TotalTracks          int                `json:"total_tracks"`
}

type TrackLink struct {
	ID   spotifyAPI.ID  `json:"id"`
	Type string         `json:"type"`
	URI  spotifyAPI.URI `json:"uri"`
}

type Restriction struct {
	Reason string `json:"reason"`
}

// TrackSimplified is a track as embedded in an album, i.e. without album information.
type TrackSimplified struct {
	ID           spotifyAPI.ID         `json:"id"`
	Name         string                `json:"name"`
	URI          spotifyAPI.URI        `json:"uri"`
	Artists      []ArtistSimplified    `json:"artists"`
	DiscNumber   int                   `json:"disc_number"`
	DurationMs   int                   `json:"duration_ms"`
	TrackNumber  int                   `json:"track_number"`
	LinkedFrom   Optional[TrackLink]   `json:"linked_from"`
	Restrictions Optional[Restriction] `json:"restrictions"`
	PreviewURL   Optional[string]      `json:"preview_url"`
}

// Track is a full track. Album is shared between all tracks of the same album
// and must be treated as read-only.
type Track struct {
	TrackSimplified
	Album *AlbumSimplified `json:"album"`
}

func NewTrack(simplified TrackSimplified, album *AlbumSimplified) *Track {
	return &Track{TrackSimplified: simplified, Album: album}
}

func (t *Track) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: track without id", apierr.ErrMalformedResponse)
	}
	if t.Album == nil {
		return fmt.Errorf("%w: track '%s' without album", apierr.ErrMalformedResponse, t.ID)
	}
	return nil
}

// LocalTrack is a playlist entry referring to a file on the owner's disk.
type LocalTrack struct {
	URI        spotifyAPI.URI     `json:"uri"`
	Name       string             `json:"name"`
	Artists    []ArtistSimplified `json:"artists"`
	Album      *AlbumSimplified   `json:"album"`
	DurationMs int                `json:"duration_ms"`
}

type User struct {
	ID          string             `json:"id"`
	URI         spotifyAPI.URI     `json:"uri"`
	DisplayName Optional[string]   `json:"display_name"`
	Country     Optional[string]   `json:"country"`
	Product     Optional[string]   `json:"product"`
	Images      []spotifyAPI.Image `json:"images"`
}

// Page is the envelope the Web API wraps large result sets into.
type Page[T any] struct {
	Items  []T              `json:"items"`
	Next   Optional[string] `json:"next"`
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// PlaylistItem is either a *Track or a *LocalTrack.
type PlaylistItem interface {
	playlistItem()
}

func (*Track) playlistItem()      {}
func (*LocalTrack) playlistItem() {}

type PlaylistTrack struct {
	AddedAt string
	IsLocal bool
	// Item is nil for entries Spotify does not serve anymore.
	Item PlaylistItem
}

func (p *PlaylistTrack) UnmarshalJSON(data []byte) error {
	var raw struct {
		AddedAt string          `json:"added_at"`
		IsLocal bool            `json:"is_local"`
		Track   json.RawMessage `json:"track"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	p.AddedAt = raw.AddedAt
	p.IsLocal = raw.IsLocal
	p.Item = nil

	track := gjson.ParseBytes(raw.Track)
	if !track.IsObject() {
		return nil
	}

	if raw.IsLocal || track.Get("is_local").Bool() || !track.Get("album").IsObject() {
		p.IsLocal = true

		var local LocalTrack
		if err := json.Unmarshal(raw.Track, &local); err != nil {
			return fmt.Errorf("could not decode local playlist track: %w", err)
		}
		p.Item = &local

		return nil
	}

	var t Track
	if err := json.Unmarshal(raw.Track, &t); err != nil {
		return fmt.Errorf("could not decode playlist track: %w", err)
	}
	p.Item = &t

	return nil
}
