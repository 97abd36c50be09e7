package spotify

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const playlistItemsJSON = `[
	{"added_at": "2021-01-01T00:00:00Z", "is_local": false, "track": {
		"id": "4cOdK2wGLETKBW3PvgPWqT", "name": "Never Gonna Give You Up", "duration_ms": 213573,
		"track_number": 1, "disc_number": 1, "preview_url": null,
		"artists": [{"id": "0gxyHStUsqpMadRV0Di1Qt", "name": "Rick Astley"}],
		"album": {"id": "6N9PS4QXF1D0OWPk0Sxtb4", "name": "Whenever You Need Somebody", "release_date": "1987-11-12",
			"artists": [{"id": "0gxyHStUsqpMadRV0Di1Qt", "name": "Rick Astley"}]}
	}},
	{"added_at": "2021-01-02T00:00:00Z", "is_local": true, "track": {
		"uri": "spotify:local:Artist:Album:Song:215", "name": "Song", "duration_ms": 215000, "is_local": true,
		"artists": [{"name": "Artist"}], "album": {"name": "Album"}
	}},
	{"added_at": "2021-01-03T00:00:00Z", "is_local": false, "track": {
		"uri": "spotify:local:::Bootleg:100", "name": "Bootleg", "duration_ms": 100000, "artists": []
	}},
	{"added_at": "2021-01-04T00:00:00Z", "is_local": false, "track": null}
]`

func TestPlaylistTrackDiscriminatesItems(t *testing.T) {
	assert := assert.New(t)

	var items []PlaylistTrack
	require.NoError(t, json.Unmarshal([]byte(playlistItemsJSON), &items))
	require.Len(t, items, 4)

	track, ok := items[0].Item.(*Track)
	require.True(t, ok)
	assert.False(items[0].IsLocal)
	assert.Equal("Never Gonna Give You Up", track.Name)
	assert.Equal("1987-11-12", track.Album.ReleaseDate)
	assert.False(track.PreviewURL.Valid)
	assert.NoError(track.Validate())

	local, ok := items[1].Item.(*LocalTrack)
	require.True(t, ok)
	assert.True(items[1].IsLocal)
	assert.Equal("Song", local.Name)
	assert.Equal("Album", local.Album.Name)

	// no album object means there is nothing to play from Spotify
	_, ok = items[2].Item.(*LocalTrack)
	assert.True(ok)

	assert.Nil(items[3].Item)
}

func TestOptionalDistinguishesAbsentFromEmpty(t *testing.T) {
	assert := assert.New(t)

	var user User
	require.NoError(t, json.Unmarshal([]byte(`{"id": "u", "display_name": "", "country": null}`), &user))

	name, ok := user.DisplayName.Get()
	assert.True(ok)
	assert.Equal("", name)
	assert.False(user.Country.Valid)
	assert.False(user.Product.Valid)
	assert.Equal("DE", user.Country.OrElse("DE"))

	raw, err := json.Marshal(user)
	require.NoError(t, err)

	var decoded User
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(user, decoded)
}

func TestTrackValidate(t *testing.T) {
	assert.Error(t, (&Track{}).Validate())
	assert.Error(t, (&Track{TrackSimplified: TrackSimplified{ID: "x"}}).Validate())
	assert.NoError(t, NewTrack(TrackSimplified{ID: "x"}, &AlbumSimplified{}).Validate())
}
