package spotify

import (
	"fmt"
	"strings"

	"github.com/florianloch/sptfcore/internal/apierr"
	"github.com/florianloch/sptfcore/internal/constants"
)

type ObjectType string

const (
	TypeTrack    ObjectType = "track"
	TypeAlbum    ObjectType = "album"
	TypePlaylist ObjectType = "playlist"
)

func (t ObjectType) IsSupported() bool {
	return t == TypeTrack || t == TypeAlbum || t == TypePlaylist
}

// Object identifies a track, album or playlist. The zero value is not valid.
type Object struct {
	Type ObjectType
	ID   string
}

// Parse accepts the three textual forms of an object: the plugin scheme
// ("sptf://spotify:track:<id>"), an open.spotify.com URL and a Spotify URI.
func Parse(input string) (Object, error) {
	rest := strings.TrimPrefix(input, constants.SchemePrefix)

	var objType, id string
	if remainder, ok := strings.CutPrefix(rest, constants.OpenSpotifyURLPrefix); ok {
		parts := strings.Split(remainder, "/")
		if len(parts) != 2 || parts[0] == "" {
			return Object{}, fmt.Errorf("%w: URL '%s' does not consist of type and id", apierr.ErrInvalidIdentifier, input)
		}

		objType = parts[0]
		id, _, _ = strings.Cut(parts[1], "?")
	} else {
		parts := strings.Split(rest, ":")
		if len(parts) != 3 || parts[0] != "spotify" || parts[1] == "" {
			return Object{}, fmt.Errorf("%w: '%s' is neither a Spotify URI nor a URL", apierr.ErrInvalidIdentifier, input)
		}

		objType, id = parts[1], parts[2]
	}

	return NewObject(ObjectType(objType), id)
}

func NewObject(objType ObjectType, id string) (Object, error) {
	if !objType.IsSupported() {
		return Object{}, fmt.Errorf("%w: '%s'", apierr.ErrUnsupportedType, objType)
	}

	if id == "" || strings.ContainsAny(id, "?/") {
		return Object{}, fmt.Errorf("%w: bad object id '%s'", apierr.ErrInvalidIdentifier, id)
	}

	return Object{Type: objType, ID: id}, nil
}

// NewFilteredTrack is a shorthand for a track object.
func NewFilteredTrack(id string) (Object, error) {
	return NewObject(TypeTrack, id)
}

func IsValid(input string) bool {
	_, err := Parse(input)
	return err == nil
}

func (o Object) ToURI() string {
	return fmt.Sprintf("%s%s:%s", constants.URIPrefix, o.Type, o.ID)
}

func (o Object) ToURL() string {
	return fmt.Sprintf("%s%s/%s", constants.OpenSpotifyURLPrefix, o.Type, o.ID)
}

func (o Object) ToScheme() string {
	return constants.SchemePrefix + o.ToURI()
}

func (o Object) String() string {
	return o.ToURI()
}

// IsFilteredTrack reports whether input is a path owned by the plugin, i.e. a
// track URI optionally wrapped in the plugin scheme. With purePathOnly the
// scheme is mandatory.
func IsFilteredTrack(input string, purePathOnly bool) bool {
	rest, hadScheme := strings.CutPrefix(input, constants.SchemePrefix)
	if !hadScheme && purePathOnly {
		return false
	}

	return strings.HasPrefix(rest, constants.URIPrefix+string(TypeTrack)+":")
}
