package spotify

import "strconv"

const (
	MetaLength      = "SPTF_LENGTH"
	MetaTitle       = "TITLE"
	MetaTrackNumber = "TRACKNUMBER"
	MetaDiscNumber  = "DISCNUMBER"
	MetaArtist      = "ARTIST"
	MetaAlbum       = "ALBUM"
	MetaDate        = "DATE"
	MetaAlbumArtist = "ALBUM ARTIST"
)

// Meta is a multimap of tag names to values as consumed by the host player.
type Meta map[string][]string

func (m Meta) Add(key, value string) {
	m[key] = append(m[key], value)
}

// Get returns the first value stored for key.
func (m Meta) Get(key string) string {
	if values := m[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}

func MetaForTracks(tracks []*Track) []Meta {
	ret := make([]Meta, 0, len(tracks))

	for _, track := range tracks {
		meta := Meta{}

		// overridden by the player once playback starts
		meta.Add(MetaLength, strconv.Itoa(track.DurationMs))

		meta.Add(MetaTitle, track.Name)
		meta.Add(MetaTrackNumber, strconv.Itoa(track.TrackNumber))
		meta.Add(MetaDiscNumber, strconv.Itoa(track.DiscNumber))

		for _, artist := range track.Artists {
			meta.Add(MetaArtist, artist.Name)
		}

		if album := track.Album; album != nil {
			meta.Add(MetaAlbum, album.Name)
			meta.Add(MetaDate, album.ReleaseDate)

			for _, artist := range album.Artists {
				meta.Add(MetaAlbumArtist, artist.Name)
			}
		}

		ret = append(ret, meta)
	}

	return ret
}
