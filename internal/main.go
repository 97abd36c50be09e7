package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/florianloch/sptfcore/internal/abort"
	"github.com/florianloch/sptfcore/internal/auth"
	"github.com/florianloch/sptfcore/internal/cache"
	"github.com/florianloch/sptfcore/internal/config"
	"github.com/florianloch/sptfcore/internal/constants"
	"github.com/florianloch/sptfcore/internal/handler"
	"github.com/florianloch/sptfcore/internal/logging"
	"github.com/florianloch/sptfcore/internal/metrics"
	"github.com/florianloch/sptfcore/internal/persistence"
	"github.com/florianloch/sptfcore/internal/ratelimit"
	"github.com/florianloch/sptfcore/internal/spotify"
	"github.com/florianloch/sptfcore/internal/util"
	"github.com/florianloch/sptfcore/internal/webapi"
)

// Endpoints replaces the Spotify services the core talks to. Empty fields
// keep the defaults.
type Endpoints struct {
	AuthURL     string
	TokenURL    string
	APIBaseURL  string
	HTTPClient  *http.Client
	OpenBrowser func(url string) error
}

// Core wires the authorizer, the Web API client and the caches together.
type Core struct {
	Registry *prometheus.Registry
	Aborts   *abort.Manager
	Auth     *auth.Authorizer
	Backend  *webapi.Backend

	logger zerolog.Logger
}

func NewCore(cfg *config.Config, logger zerolog.Logger, endpoints Endpoints) (*Core, error) {
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	aborts := abort.NewManager()

	httpClient := endpoints.HTTPClient
	if httpClient == nil {
		transport, err := webapi.NewTransport(cfg.Network.Proxy, cfg.Network.ProxyUsername, cfg.Network.ProxyPassword)
		if err != nil {
			return nil, err
		}
		httpClient = &http.Client{Transport: transport, Timeout: constants.TransportTimeout}
	}

	authorizer, err := auth.New(auth.Config{
		ClientID:        cfg.ClientID,
		AuthURL:         endpoints.AuthURL,
		TokenURL:        endpoints.TokenURL,
		RedirectPort:    cfg.RedirectPort,
		CallbackTimeout: cfg.CallbackTimeout,
		HTTPClient:      httpClient,
		OpenBrowser:     endpoints.OpenBrowser,
		Registerer:      registry,
		Metrics:         m,
	}, persistence.NewRefreshTokenFile(cfg.RefreshTokenPath()), logger)
	if err != nil {
		return nil, fmt.Errorf("could not set up authorization: %w", err)
	}

	client, err := webapi.NewClient(authorizer, ratelimit.New(cfg.RPS, constants.RateLimitWindow), aborts, webapi.Options{
		BaseURL:      endpoints.APIBaseURL,
		LogRequests:  cfg.Logging.WebAPIRequest,
		LogResponses: cfg.Logging.WebAPIResponse,
		HTTPClient:   httpClient,
	}, m, logger)
	if err != nil {
		authorizer.Close()
		return nil, err
	}

	dir := cfg.CacheDir()
	caches := webapi.Caches{
		Dir: dir,
		Tracks: cache.NewObjectCache(dir, constants.TracksCacheKind, func(t *spotify.Track) string {
			return string(t.ID)
		}, constants.MemoryCacheEntries, m, logger),
		Artists: cache.NewObjectCache(dir, constants.ArtistsCacheKind, func(a *spotify.Artist) string {
			return string(a.ID)
		}, constants.MemoryCacheEntries, m, logger),
		User:         cache.NewUserCache(cfg.UserCachePath(), m, logger),
		AlbumImages:  cache.NewImageCache(dir, constants.AlbumImagesKind, httpClient, aborts, m, logger),
		ArtistImages: cache.NewImageCache(dir, constants.ArtistImagesKind, httpClient, aborts, m, logger),
	}

	logger.Debug().
		Str("dataDir", cfg.DataDir).
		Int("rps", cfg.RPS).
		Stringer("bitrate", cfg.Bitrate()).
		Bool("proxy", cfg.Network.Proxy != "").
		Msg("Core initialized.")

	return &Core{
		Registry: registry,
		Aborts:   aborts,
		Auth:     authorizer,
		Backend:  webapi.NewBackend(client, authorizer, caches, logger),
		logger:   logger,
	}, nil
}

// Close aborts everything still running and waits for it. Cached objects stay
// on disk.
func (c *Core) Close() error {
	err := c.Aborts.Shutdown(constants.ShutdownTimeout)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Not all operations finished in time.")
	}

	c.Auth.Close()
	c.Backend.Flush()

	return err
}

func (c *Core) Commands(out io.Writer) *handler.Commands {
	return &handler.Commands{
		Backend: c.Backend,
		Auth:    c.Auth,
		Status:  c.Backend.AuthStatus,
		Out:     out,
	}
}

const usage = `Usage: sptf [flags] <command> [args]

Commands:
  login                 log in to Spotify in the browser
  logout                forget the stored refresh token
  status                show whether a user is logged in
  track <id|uri|url>    show a track (--relink resolves it for your market)
  tracks <id>...        show several tracks
  album <id|uri|url>    list the tracks of an album
  playlist <id|uri|url> list the tracks of a playlist
  artist <id|uri>       show an artist and download its image
  top <id|uri>          list the top tracks of an artist in your market
  cover <id|uri|url>    download the cover of a track or album
  wipe-cache            delete all cached objects and images

Flags:
`

// Run executes the CLI and returns the process exit code.
func Run(args []string) int {
	flags := pflag.NewFlagSet("sptf", pflag.ContinueOnError)
	configFile := flags.StringP("config", "c", "", "path of a config file (yaml, toml or json)")
	relink := flags.Bool("relink", false, "resolve tracks for the market of the current user")
	stats := flags.Bool("stats", false, "print request and cache statistics when done")
	metricsAddr := flags.String("metrics-addr", "", "serve Prometheus metrics at this address while running")
	flags.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	if flags.NArg() == 0 {
		flags.Usage()
		return 2
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, err)
		return 1
	}

	logger, logCloser, err := logging.Setup(logging.Options{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		DevMode: util.IsDevMode(),
	})
	if err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, err)
		return 1
	}
	defer logCloser.Close()

	ctx, cancelFn := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancelFn()

	core, err := NewCore(cfg, logger, Endpoints{})
	if err != nil {
		log.Error().Err(err).Msg("Could not initialize.")
		return 1
	}
	defer core.Close()

	if *metricsAddr != "" {
		stop := serveMetrics(*metricsAddr, core.Registry)
		defer stop()
	}

	err = dispatch(ctx, core.Commands(os.Stdout), flags.Args(), *relink)

	if *stats {
		if err := handler.PrintStats(os.Stdout, core.Registry); err != nil {
			log.Warn().Err(err).Msg("Could not print statistics.")
		}
	}

	if errors.Is(err, errUsage) {
		fmt.Fprintln(os.Stderr, err)
		flags.Usage()
		return 2
	}
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %s\n", err)
		return 1
	}

	return 0
}

var errUsage = errors.New("invalid usage")

func dispatch(ctx context.Context, cmds *handler.Commands, args []string, relink bool) error {
	command, rest := args[0], args[1:]

	single := func(run func(ctx context.Context, input string) error) error {
		if len(rest) != 1 {
			return errUsage
		}
		return run(ctx, rest[0])
	}

	switch command {
	case "login":
		return cmds.Login(ctx)
	case "logout":
		return cmds.Logout()
	case "status":
		return cmds.ShowStatus(ctx)
	case "track":
		return single(func(ctx context.Context, input string) error {
			return cmds.Track(ctx, input, relink)
		})
	case "tracks":
		if len(rest) == 0 {
			return errUsage
		}
		return cmds.Tracks(ctx, rest)
	case "album":
		return single(cmds.Album)
	case "playlist":
		return single(cmds.Playlist)
	case "artist":
		return single(cmds.Artist)
	case "top":
		return single(cmds.TopTracks)
	case "cover":
		return single(cmds.Cover)
	case "wipe-cache":
		return cmds.WipeCache()
	}

	return fmt.Errorf("%w: unknown command '%s'", errUsage, command)
}

func serveMetrics(addr string, registry *prometheus.Registry) func() {
	internalRouter := chi.NewRouter()
	internalRouter.Use(chiMiddleware.Recoverer)
	internalRouter.Handle("/internal/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	internalServer := &http.Server{
		Addr:    addr,
		Handler: internalRouter,
	}

	go func() {
		if err := internalServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Failed running internal server.")
		}
	}()

	log.Info().Msgf("Internal server is ready to handle requests at http://%s", addr)

	return func() {
		timeout, cancelFn := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelFn()

		if err := internalServer.Shutdown(timeout); err != nil {
			log.Error().Err(err).Msg("Failed to shutdown internal server gracefully.")
		}
	}
}
