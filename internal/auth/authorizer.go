// Package auth implements the Authorization Code flow with PKCE against Spotify's
// accounts service for a public client and mints access tokens from the stored
// refresh token.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	httpMetrics "github.com/slok/go-http-metrics/metrics/prometheus"
	httpMetricsMiddleware "github.com/slok/go-http-metrics/middleware"
	"github.com/slok/go-http-metrics/middleware/std"
	spotifyAPI "github.com/zmb3/spotify"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/florianloch/sptfcore/internal/abort"
	"github.com/florianloch/sptfcore/internal/apierr"
	"github.com/florianloch/sptfcore/internal/constants"
	"github.com/florianloch/sptfcore/internal/metrics"
	"github.com/florianloch/sptfcore/internal/middleware"
	"github.com/florianloch/sptfcore/internal/persistence"
)

var ErrAuthInProgress = errors.New("an authorization flow is already running")

// DefaultScopes are requested by AuthenticateClean unless configured otherwise.
var DefaultScopes = []string{
	spotifyAPI.ScopeUserReadPrivate,
	spotifyAPI.ScopePlaylistReadPrivate,
	spotifyAPI.ScopePlaylistReadCollaborative,
	spotifyAPI.ScopeUserLibraryRead,
}

type State int

const (
	Unauthenticated State = iota
	Pending
	Exchanging
	Refreshing
	Authenticated
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Exchanging:
		return "exchanging"
	case Refreshing:
		return "refreshing"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

type Config struct {
	ClientID        string
	Scopes          []string
	AuthURL         string
	TokenURL        string
	RedirectHost    string
	RedirectPort    int
	CallbackTimeout time.Duration
	// HTTPClient is used for the token endpoint.
	HTTPClient  *http.Client
	OpenBrowser func(url string) error
	// Registerer receives the metrics of the loopback server.
	Registerer prometheus.Registerer
	Metrics    *metrics.Metrics
}

type Authorizer struct {
	cfg         Config
	store       persistence.RefreshTokenPersistor
	logger      zerolog.Logger
	httpMetrics httpMetricsMiddleware.Middleware
	now         func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.RWMutex
	state         State
	token         *AccessToken
	refreshToken  string
	lastErr       error
	cancelPending context.CancelFunc

	// refreshMu serializes everything talking to the token endpoint.
	refreshMu    sync.Mutex
	refreshGroup singleflight.Group
}

func New(cfg Config, store persistence.RefreshTokenPersistor, logger zerolog.Logger) (*Authorizer, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("no Spotify client id configured")
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = spotifyAPI.AuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = spotifyAPI.TokenURL
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes
	}
	if cfg.RedirectHost == "" {
		cfg.RedirectHost = constants.DefaultRedirectHost
	}
	if cfg.CallbackTimeout <= 0 {
		cfg.CallbackTimeout = constants.DefaultCallbackTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: constants.TransportTimeout}
	}
	if cfg.OpenBrowser == nil {
		cfg.OpenBrowser = OpenBrowser
	}
	if cfg.Registerer == nil {
		cfg.Registerer = prometheus.NewRegistry()
	}

	ctx, cancel := context.WithCancel(context.Background())

	a := &Authorizer{
		cfg:    cfg,
		store:  store,
		logger: logger.With().Str("component", "auth").Logger(),
		httpMetrics: httpMetricsMiddleware.New(httpMetricsMiddleware.Config{
			Recorder: httpMetrics.NewRecorder(httpMetrics.Config{Registry: cfg.Registerer, Prefix: "sptf_oauth"}),
		}),
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
	}

	refreshToken, err := store.LoadRefreshToken()
	switch {
	case err == nil:
		a.refreshToken = refreshToken
		a.state = Authenticated
	case errors.Is(err, persistence.ErrNoRefreshToken):
		a.state = Unauthenticated
	default:
		cancel()
		return nil, err
	}

	return a, nil
}

func (a *Authorizer) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.state
}

// IsAuthenticated reports whether a refresh token is held and no login is running.
func (a *Authorizer) IsAuthenticated() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.refreshToken != "" && a.state != Pending && a.state != Exchanging
}

func (a *Authorizer) HasRefreshToken() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.refreshToken != ""
}

// RefreshTokenIdentity returns a stable, non-secret identity of the current
// refresh token or "" if there is none.
func (a *Authorizer) RefreshTokenIdentity() string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.refreshToken == "" {
		return ""
	}
	return persistence.HashToken(a.refreshToken)
}

// LastError returns the error the most recent login or refresh ended with.
func (a *Authorizer) LastError() error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.lastErr
}

func (a *Authorizer) HasScope(scope string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.token.HasScope(scope)
}

// AuthenticateClean starts the PKCE flow: it opens the browser on Spotify's
// authorization page and waits in the background for the redirect to the
// loopback listener. onDone is called once the flow reached a terminal state,
// regardless of the outcome.
func (a *Authorizer) AuthenticateClean(ctx context.Context, onDone func()) error {
	if err := abort.Check(ctx); err != nil {
		return err
	}

	verifier := oauth2.GenerateVerifier()

	randomState, err := middleware.NewRandomState()
	if err != nil {
		return err
	}

	a.mu.Lock()
	if a.state == Pending || a.state == Exchanging {
		a.mu.Unlock()
		return ErrAuthInProgress
	}

	listener, err := net.Listen("tcp", net.JoinHostPort(a.cfg.RedirectHost, strconv.Itoa(a.cfg.RedirectPort)))
	if err != nil {
		a.mu.Unlock()
		return fmt.Errorf("could not start listener for OAuth redirect: %w", err)
	}

	flowCtx, cancel := context.WithTimeoutCause(a.ctx, a.cfg.CallbackTimeout, errors.New("timed out waiting for OAuth redirect"))
	stopHostLink := context.AfterFunc(ctx, cancel)

	a.state = Pending
	a.lastErr = nil
	a.cancelPending = cancel
	a.mu.Unlock()

	conf := a.oauthConfig(fmt.Sprintf("http://%s/", listener.Addr().String()))

	results := make(chan middleware.CallbackResult, 1)
	server := &http.Server{
		Handler: a.callbackRouter(randomState, func(res middleware.CallbackResult) {
			select {
			case results <- res:
			default:
			}
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error().Err(err).Msg("Loopback server for OAuth redirect failed.")
		}
	}()

	authURL := conf.AuthCodeURL(randomState, oauth2.S256ChallengeOption(verifier))
	a.logger.Info().Str("redirectURL", conf.RedirectURL).Msg("Waiting for Spotify login to complete in the browser...")

	if err := a.cfg.OpenBrowser(authURL); err != nil {
		a.logger.Warn().Err(err).Str("authURL", authURL).Msg("Could not open browser. Please open the URL manually.")
	}

	go func() {
		defer func() {
			if onDone != nil {
				onDone()
			}
		}()
		defer stopHostLink()
		defer cancel()
		defer a.shutdownServer(server)

		a.awaitRedirect(flowCtx, conf, verifier, results)
	}()

	return nil
}

func (a *Authorizer) awaitRedirect(ctx context.Context, conf *oauth2.Config, verifier string, results <-chan middleware.CallbackResult) {
	var result middleware.CallbackResult
	select {
	case result = <-results:
	case <-ctx.Done():
		a.finishFlow(nil, fmt.Errorf("%w: %w", apierr.ErrCanceled, context.Cause(ctx)))
		return
	}

	if result.Err != nil {
		a.finishFlow(nil, result.Err)
		return
	}

	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()

	a.setState(Exchanging)

	tok, err := conf.Exchange(a.oauthContext(ctx), result.Code, oauth2.VerifierOption(verifier))
	if err != nil {
		a.finishFlow(nil, classifyTokenError(ctx, err))
		return
	}

	if tok.RefreshToken == "" {
		a.finishFlow(nil, fmt.Errorf("%w: token response without refresh token", apierr.ErrAuthProtocol))
		return
	}

	a.finishFlow(tok, nil)
}

// finishFlow moves a pending login into its terminal state.
func (a *Authorizer) finishFlow(tok *oauth2.Token, flowErr error) {
	var accessToken *AccessToken
	if flowErr == nil {
		accessToken, flowErr = accessTokenFrom(tok, a.now())
	}
	if flowErr == nil {
		flowErr = a.store.SaveRefreshToken(tok.RefreshToken)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.cancelPending = nil
	a.lastErr = flowErr

	if flowErr != nil {
		a.logger.Error().Err(flowErr).Msg("Spotify login failed.")

		if a.refreshToken != "" {
			a.state = Authenticated
		} else {
			a.state = Unauthenticated
		}
		return
	}

	a.token = accessToken
	a.refreshToken = tok.RefreshToken
	a.state = Authenticated

	a.logger.Info().Int("scopes", len(accessToken.Scopes)).Msg("Spotify login succeeded.")
}

// CancelAuth aborts a running AuthenticateClean flow.
func (a *Authorizer) CancelAuth() {
	a.mu.RLock()
	cancel := a.cancelPending
	a.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
}

// AuthenticateWithRefreshToken replaces the current credentials by the ones
// minted from refreshToken.
func (a *Authorizer) AuthenticateWithRefreshToken(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return fmt.Errorf("%w: empty refresh token", apierr.ErrAuthRequired)
	}

	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()

	a.mu.RLock()
	changed := refreshToken != a.refreshToken
	a.mu.RUnlock()

	if changed {
		if err := a.store.SaveRefreshToken(refreshToken); err != nil {
			return err
		}

		a.mu.Lock()
		a.refreshToken = refreshToken
		a.token = nil
		a.mu.Unlock()
	}

	_, err := a.refreshLocked(ctx, refreshToken)
	return err
}

// GetAccessToken returns the cached bearer token if it is still valid and
// refreshes it otherwise. Concurrent callers share a single refresh.
func (a *Authorizer) GetAccessToken(ctx context.Context) (string, error) {
	if err := abort.Check(ctx); err != nil {
		return "", err
	}

	a.mu.RLock()
	tok := a.token
	a.mu.RUnlock()

	if tok.Valid(a.now()) {
		return tok.Bearer, nil
	}

	ch := a.refreshGroup.DoChan("refresh", func() (interface{}, error) {
		a.refreshMu.Lock()
		defer a.refreshMu.Unlock()

		a.mu.RLock()
		tok, refreshToken := a.token, a.refreshToken
		a.mu.RUnlock()

		if tok.Valid(a.now()) {
			return tok.Bearer, nil
		}
		if refreshToken == "" {
			return "", fmt.Errorf("%w: not logged in", apierr.ErrAuthRequired)
		}

		refreshCtx, cancel := context.WithTimeout(a.ctx, constants.TransportTimeout)
		defer cancel()

		return a.refreshLocked(refreshCtx, refreshToken)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", abort.Check(ctx)
	}
}

// refreshLocked must be called with refreshMu held.
func (a *Authorizer) refreshLocked(ctx context.Context, refreshToken string) (string, error) {
	a.mu.Lock()
	a.settleLocked(Refreshing)
	a.mu.Unlock()

	conf := a.oauthConfig("")
	tok, err := conf.TokenSource(a.oauthContext(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()

	var accessToken *AccessToken
	if err != nil {
		err = classifyTokenError(ctx, err)
	} else {
		accessToken, err = accessTokenFrom(tok, a.now())
	}
	a.cfg.Metrics.ObserveAuthRefresh(err)

	if err != nil {
		a.mu.Lock()
		a.lastErr = err
		if errors.Is(err, apierr.ErrAuthRequired) {
			a.token = nil
			a.refreshToken = ""
			a.settleLocked(Unauthenticated)
		} else if a.refreshToken != "" {
			a.settleLocked(Authenticated)
		} else {
			a.settleLocked(Unauthenticated)
		}
		a.mu.Unlock()

		if errors.Is(err, apierr.ErrAuthRequired) {
			a.logger.Warn().Err(err).Msg("Refresh token was rejected. A new login is required.")
			if delErr := a.store.DeleteRefreshToken(); delErr != nil {
				a.logger.Error().Err(delErr).Msg("Could not delete rejected refresh token.")
			}
		}

		return "", err
	}

	if tok.RefreshToken != "" && tok.RefreshToken != refreshToken {
		if err := a.store.SaveRefreshToken(tok.RefreshToken); err != nil {
			a.logger.Error().Err(err).Msg("Could not persist rotated refresh token.")
		}
		refreshToken = tok.RefreshToken
	}

	a.mu.Lock()
	a.token = accessToken
	a.refreshToken = refreshToken
	a.lastErr = nil
	a.settleLocked(Authenticated)
	a.mu.Unlock()

	a.logger.Debug().Time("expiresAt", accessToken.ExpiresAt).Msg("Refreshed access token.")

	return accessToken.Bearer, nil
}

// ClearAuth forgets every credential, including the persisted refresh token.
func (a *Authorizer) ClearAuth() error {
	a.CancelAuth()

	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()

	a.mu.Lock()
	a.token = nil
	a.refreshToken = ""
	a.lastErr = nil
	a.state = Unauthenticated
	a.mu.Unlock()

	return a.store.DeleteRefreshToken()
}

// Close aborts running flows and refreshes. The Authorizer must not be used afterwards.
func (a *Authorizer) Close() {
	a.cancel()
}

// settleLocked moves to s unless a login flow owns the state. The flow
// settles it itself once it terminates. Must be called with mu held.
func (a *Authorizer) settleLocked(s State) {
	if a.state == Pending || a.state == Exchanging {
		return
	}
	a.state = s
}

func (a *Authorizer) setState(s State) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.state = s
}

func (a *Authorizer) oauthConfig(redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID: a.cfg.ClientID,
		Endpoint: oauth2.Endpoint{
			AuthURL:   a.cfg.AuthURL,
			TokenURL:  a.cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: redirectURL,
		Scopes:      a.cfg.Scopes,
	}
}

func (a *Authorizer) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, a.cfg.HTTPClient)
}

func (a *Authorizer) callbackRouter(expectedState string, deliver func(middleware.CallbackResult)) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(hlog.NewHandler(a.logger))
	r.Use(middleware.ChiRequestIDHandler("reqID", ""))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Debug().
			Dur("dur(ms)", duration).
			Int("status", status).
			Str("path", r.URL.Path).
			Msg("")
	}))
	r.Use(chiMiddleware.Recoverer)

	r.Get("/", middleware.CreateOAuthCallbackHandler(expectedState, deliver))

	return std.Handler("oauth-callback", a.httpMetrics, r)
}

func (a *Authorizer) shutdownServer(server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		a.logger.Error().Err(err).Msg("Failed to shutdown loopback server gracefully.")
	}
}
