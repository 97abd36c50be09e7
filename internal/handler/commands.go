package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"

	"github.com/florianloch/sptfcore/internal/apierr"
	"github.com/florianloch/sptfcore/internal/spotify"
	"github.com/florianloch/sptfcore/internal/webapi"
)

var ErrNoCover = errors.New("no cover art available")

// Commands implements the CLI on top of the backend.
type Commands struct {
	Backend spotify.Backend
	Auth    spotify.Authenticator
	Status  func(ctx context.Context) (webapi.AuthStatus, error)
	Out     io.Writer
}

func (c *Commands) Login(ctx context.Context) error {
	done := make(chan struct{})

	if err := c.Auth.AuthenticateClean(ctx, func() { close(done) }); err != nil {
		return err
	}

	color.New(color.FgCyan).Fprintln(c.Out, "Complete the login in your browser...")

	select {
	case <-done:
	case <-ctx.Done():
		c.Auth.CancelAuth()
		<-done
	}

	if err := c.Auth.LastError(); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	color.New(color.FgGreen, color.Bold).Fprintln(c.Out, "Logged in to Spotify.")

	return nil
}

func (c *Commands) Logout() error {
	if err := c.Backend.Logout(); err != nil {
		return err
	}

	fmt.Fprintln(c.Out, "Logged out. The refresh token has been deleted.")

	return nil
}

func (c *Commands) ShowStatus(ctx context.Context) error {
	status, err := c.Status(ctx)
	if err != nil && status.State == "" {
		return err
	}

	switch status.State {
	case webapi.StatusLoggedIn:
		name := status.DisplayName
		if name == "" {
			name = color.HiBlackString("unknown user")
		}
		fmt.Fprintf(c.Out, "%s as %s\n", color.GreenString("● Logged in"), name)
	case webapi.StatusLoginInProgress:
		fmt.Fprintln(c.Out, color.YellowString("● Login in progress"))
	default:
		fmt.Fprintln(c.Out, color.RedString("● Logged out"))
	}

	if err != nil {
		log.Warn().Err(err).Msg("Could not fetch current user.")
	}

	return nil
}

func (c *Commands) Track(ctx context.Context, input string, relink bool) error {
	track, err := c.Backend.GetTrack(ctx, input, relink)
	if err != nil {
		return err
	}

	c.printTracks("Track", []*spotify.Track{track})

	if link, ok := track.LinkedFrom.Get(); ok {
		fmt.Fprintf(c.Out, "Relinked from %s\n", color.HiBlackString(string(link.URI)))
	}

	return nil
}

func (c *Commands) Tracks(ctx context.Context, inputs []string) error {
	tracks, err := c.Backend.GetTracks(ctx, inputs)

	var notFound *apierr.NotFoundError
	if err != nil && !errors.As(err, &notFound) {
		return err
	}

	c.printTracks("Tracks", tracks)

	if notFound != nil {
		fmt.Fprintln(c.Out, color.YellowString("Not found: %s", strings.Join(notFound.IDs, ", ")))
	}

	return nil
}

func (c *Commands) Album(ctx context.Context, input string) error {
	tracks, err := c.Backend.GetTracksFromAlbum(ctx, input)
	if err != nil {
		return err
	}

	title := "Album"
	if len(tracks) > 0 {
		title = tracks[0].Album.Name
	}
	c.printTracks(title, tracks)

	return nil
}

func (c *Commands) Playlist(ctx context.Context, input string) error {
	tracks, locals, err := c.Backend.GetTracksFromPlaylist(ctx, input)
	if err != nil {
		return err
	}

	c.printTracks("Playlist", tracks)

	if len(locals) > 0 {
		t := c.newTable()
		t.AppendHeader(table.Row{"Local file", "Artist", "Length"})
		for _, local := range locals {
			artists := make([]string, 0, len(local.Artists))
			for _, artist := range local.Artists {
				artists = append(artists, artist.Name)
			}
			t.AppendRow(table.Row{local.Name, strings.Join(artists, ", "), formatDuration(local.DurationMs)})
		}
		t.Render()
	}

	return nil
}

func (c *Commands) Artist(ctx context.Context, input string) error {
	artist, err := c.Backend.GetArtist(ctx, input)
	if err != nil {
		return err
	}

	t := c.newTable()
	t.AppendHeader(table.Row{"Artist", "Genres", "Popularity", "Link"})
	t.AppendRow(table.Row{
		color.New(color.Bold).Sprint(artist.Name),
		strings.Join(artist.Genres, ", "),
		artist.Popularity,
		color.HiBlackString(spotify.LinkToContext(string(artist.URI))),
	})
	t.Render()

	if len(artist.Images) > 0 {
		path, err := c.Backend.GetArtistImage(ctx, string(artist.ID), artist.Images[0].URL)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.Out, "Image: %s\n", path)
	}

	return nil
}

func (c *Commands) TopTracks(ctx context.Context, input string) error {
	tracks, err := c.Backend.GetTopTracksForArtist(ctx, input)
	if err != nil {
		return err
	}

	c.printTracks("Top tracks", tracks)

	return nil
}

// Cover downloads the cover of the album input refers to. Tracks resolve to
// their album.
func (c *Commands) Cover(ctx context.Context, input string) error {
	obj, err := spotify.Parse(input)
	if err != nil {
		if strings.ContainsAny(input, ":/") {
			return err
		}
		obj, err = spotify.NewObject(spotify.TypeTrack, input)
		if err != nil {
			return err
		}
	}

	var album *spotify.AlbumSimplified
	switch obj.Type {
	case spotify.TypeTrack:
		track, err := c.Backend.GetTrack(ctx, obj.ID, false)
		if err != nil {
			return err
		}
		album = track.Album
	case spotify.TypeAlbum:
		tracks, err := c.Backend.GetTracksFromAlbum(ctx, obj.ID)
		if err != nil {
			return err
		}
		if len(tracks) > 0 {
			album = tracks[0].Album
		}
	default:
		return fmt.Errorf("%w: covers exist for tracks and albums only", apierr.ErrUnsupportedType)
	}

	if album == nil || len(album.Images) == 0 {
		return ErrNoCover
	}

	path, err := c.Backend.GetAlbumImage(ctx, string(album.ID), album.Images[0].URL)
	if err != nil {
		return err
	}

	fmt.Fprintln(c.Out, path)

	return nil
}

func (c *Commands) WipeCache() error {
	if err := c.Backend.WipeCache(); err != nil {
		return err
	}

	fmt.Fprintln(c.Out, "Cache wiped.")

	return nil
}

func (c *Commands) printTracks(title string, tracks []*spotify.Track) {
	present := make([]*spotify.Track, 0, len(tracks))
	for _, track := range tracks {
		if track != nil {
			present = append(present, track)
		}
	}

	color.New(color.FgCyan).Fprintln(c.Out, title)

	t := c.newTable()
	t.AppendHeader(table.Row{"#", "Title", "Artist", "Album", "Date", "Length", "Track ID"})

	for i, meta := range c.Backend.GetMetaForTracks(present) {
		length := meta.Get(spotify.MetaLength)
		t.AppendRow(table.Row{
			i + 1,
			color.New(color.Bold).Sprint(meta.Get(spotify.MetaTitle)),
			strings.Join(meta[spotify.MetaArtist], ", "),
			meta.Get(spotify.MetaAlbum),
			meta.Get(spotify.MetaDate),
			formatDurationString(length),
			color.HiBlackString(string(present[i].ID)),
		})
	}

	t.Render()

	color.New(color.FgGreen, color.Bold).Fprintf(c.Out, "Total tracks: %d\n", len(present))
}

func (c *Commands) newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(c.Out)
	t.SetStyle(table.StyleRounded)
	return t
}

func formatDuration(ms int) string {
	d := (time.Duration(ms) * time.Millisecond).Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

func formatDurationString(ms string) string {
	var n int
	if _, err := fmt.Sscanf(ms, "%d", &n); err != nil {
		return ms
	}
	return formatDuration(n)
}
