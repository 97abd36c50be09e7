// Package webapi talks to the Spotify Web API: Client is the throttled,
// authenticated HTTP engine, Backend resolves identifiers into domain objects
// through the caches.
package webapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/florianloch/sptfcore/internal/abort"
	"github.com/florianloch/sptfcore/internal/apierr"
	"github.com/florianloch/sptfcore/internal/constants"
	"github.com/florianloch/sptfcore/internal/metrics"
	"github.com/florianloch/sptfcore/internal/ratelimit"
	"github.com/florianloch/sptfcore/internal/spotify"
)

const maxBodyExcerpt = 4096

const throttleLogThreshold = 10 * time.Millisecond

// maxRetryAfterMs is the largest Retry-After that still fits a time.Duration
// once padded.
const maxRetryAfterMs = (math.MaxInt64 - int64(constants.RetryAfterPadding)) / int64(time.Millisecond)

type Options struct {
	BaseURL       string
	ProxyURL      string
	ProxyUsername string
	ProxyPassword string
	LogRequests   bool
	LogResponses  bool
	MaxAttempts   int
	// HTTPClient replaces the client built from the proxy settings.
	HTTPClient *http.Client
}

// Response is a fully read Web API response.
type Response struct {
	StatusCode int
	Reason     string
	Header     http.Header
	Body       []byte
}

type Client struct {
	base        *url.URL
	http        *http.Client
	tokens      spotify.AccessTokenProvider
	limiter     *ratelimit.Limiter
	aborts      *abort.Manager
	metrics     *metrics.Metrics
	logger      zerolog.Logger
	maxAttempts int
	logReqs     bool
	logResps    bool

	sleep func(ctx context.Context, d time.Duration) error
}

func NewClient(tokens spotify.AccessTokenProvider, limiter *ratelimit.Limiter, aborts *abort.Manager, opts Options, m *metrics.Metrics, logger zerolog.Logger) (*Client, error) {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = constants.WebAPIBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	base, err := url.Parse(baseURL)
	if err != nil || !base.IsAbs() {
		return nil, fmt.Errorf("invalid Web API base URL '%s'", baseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		transport, err := NewTransport(opts.ProxyURL, opts.ProxyUsername, opts.ProxyPassword)
		if err != nil {
			return nil, err
		}
		httpClient = &http.Client{Transport: transport, Timeout: constants.TransportTimeout}
	}

	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = constants.MaxRequestAttempts
	}

	return &Client{
		base:        base,
		http:        httpClient,
		tokens:      tokens,
		limiter:     limiter,
		aborts:      aborts,
		metrics:     m,
		logger:      logger.With().Str("component", "webapi").Logger(),
		maxAttempts: maxAttempts,
		logReqs:     opts.LogRequests,
		logResps:    opts.LogResponses,
		sleep:       abort.Sleep,
	}, nil
}

// NewTransport returns a transport routing through proxyURL if it is set.
// Credentials are only attached when a username is given.
func NewTransport(proxyURL, username, password string) (*http.Transport, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if proxyURL == "" {
		return transport, nil
	}

	proxy, err := url.Parse(proxyURL)
	if err != nil || !proxy.IsAbs() || proxy.Host == "" {
		return nil, fmt.Errorf("invalid proxy URL '%s'", proxyURL)
	}
	if username != "" {
		proxy.User = url.UserPassword(username, password)
	}
	transport.Proxy = http.ProxyURL(proxy)

	return transport, nil
}

// GetJSON requests uri and returns the body of a 200 response. The body is
// guaranteed to be a JSON object.
func (c *Client) GetJSON(ctx context.Context, uri string) ([]byte, error) {
	resp, err := c.GetResponse(ctx, uri)
	if err != nil {
		return nil, err
	}

	if err := abort.Check(ctx); err != nil {
		return nil, err
	}
	if c.aborts.IsShutdown() {
		return nil, fmt.Errorf("%w: %w", apierr.ErrCanceled, abort.ErrShutdown)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &apierr.HTTPError{Status: resp.StatusCode, Reason: resp.Reason, Body: bodyExcerpt(resp.Body)}
	}

	if !gjson.ValidBytes(resp.Body) {
		return nil, fmt.Errorf("%w: body of '%s' is not valid JSON", apierr.ErrMalformedResponse, uri)
	}
	if !gjson.ParseBytes(resp.Body).IsObject() {
		return nil, fmt.Errorf("%w: body of '%s' is not a JSON object", apierr.ErrMalformedResponse, uri)
	}

	return resp.Body, nil
}

// GetResponse requests uri and returns whatever the Web API finally answered.
// Only 429 responses are retried; once the attempts are used up the last 429
// response is returned.
func (c *Client) GetResponse(ctx context.Context, uri string) (*Response, error) {
	target, err := c.resolve(uri)
	if err != nil {
		return nil, err
	}

	ctx, release := c.aborts.Scope(ctx)
	defer release()

	requestID := uuid.NewString()

	for attempt := 1; ; attempt++ {
		token, err := c.tokens.GetAccessToken(ctx)
		if err != nil {
			return nil, err
		}

		if err := c.acquire(ctx); err != nil {
			return nil, err
		}

		resp, err := c.do(ctx, target, token, requestID, attempt)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		delay, err := retryAfter(resp.Header)
		if err != nil {
			return nil, err
		}

		if attempt >= c.maxAttempts {
			c.logger.Warn().Str("requestID", requestID).Str("uri", target).Int("attempts", attempt).Msg("Giving up on rate limited request.")
			return resp, nil
		}

		c.metrics.ObserveRetry()
		c.logger.Warn().Str("requestID", requestID).Str("uri", target).Dur("retryAfter", delay).Msg("Rate limited by Web API, retrying.")

		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

func (c *Client) acquire(ctx context.Context) error {
	if err := abort.Check(ctx); err != nil {
		return err
	}

	start := time.Now()
	if err := c.limiter.Acquire(ctx); err != nil {
		return err
	}
	waited := time.Since(start)
	c.metrics.ObserveRateLimitWait(waited)

	if waited >= throttleLogThreshold {
		c.logger.Debug().Dur("waited", waited).Int("inWindow", c.limiter.InWindow()).Msg("Waited for rate limiter.")
	}

	return abort.Check(ctx)
}

func (c *Client) do(ctx context.Context, target, token, requestID string, attempt int) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("could not build request for '%s': %w", target, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	if c.logReqs {
		c.logger.Info().Str("requestID", requestID).Str("method", req.Method).Str("uri", target).Int("attempt", attempt).Msg("Web API request")
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		if cerr := abort.Check(ctx); cerr != nil {
			return nil, cerr
		}
		return nil, fmt.Errorf("%w: requesting '%s': %w", apierr.ErrTransient, target, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		if cerr := abort.Check(ctx); cerr != nil {
			return nil, cerr
		}
		return nil, fmt.Errorf("%w: reading response of '%s': %w", apierr.ErrTransient, target, err)
	}

	c.metrics.ObserveRequest(httpResp.StatusCode)

	if c.logResps {
		c.logger.Info().Str("requestID", requestID).Int("status", httpResp.StatusCode).Str("body", bodyExcerpt(body)).Msg("Web API response")
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Reason:     reasonPhrase(httpResp),
		Header:     httpResp.Header,
		Body:       body,
	}, nil
}

// resolve maps uri onto the base URL. Absolute URIs are only accepted if they
// point below the base URL, so the bearer token never leaves the Web API.
func (c *Client) resolve(uri string) (string, error) {
	rel := strings.TrimPrefix(uri, c.base.String())

	ref, err := url.Parse(rel)
	if err != nil {
		return "", fmt.Errorf("%w: invalid request URI '%s': %w", apierr.ErrProtocol, uri, err)
	}
	if ref.IsAbs() || ref.Host != "" {
		return "", fmt.Errorf("%w: refusing to request '%s' outside of %s", apierr.ErrProtocol, uri, c.base)
	}

	return c.base.ResolveReference(ref).String(), nil
}

// retryAfter reads the Retry-After header. Its value is taken as milliseconds.
func retryAfter(header http.Header) (time.Duration, error) {
	raw := strings.TrimSpace(header.Get("Retry-After"))
	if raw == "" {
		return 0, fmt.Errorf("%w: 429 response without Retry-After header", apierr.ErrProtocol)
	}

	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms < 0 {
		return 0, fmt.Errorf("%w: invalid Retry-After header '%s'", apierr.ErrProtocol, raw)
	}
	if ms > maxRetryAfterMs {
		return 0, fmt.Errorf("%w: Retry-After header '%s' is out of range", apierr.ErrProtocol, raw)
	}

	return time.Duration(ms)*time.Millisecond + constants.RetryAfterPadding, nil
}

func reasonPhrase(resp *http.Response) string {
	reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if reason == "" {
		return http.StatusText(resp.StatusCode)
	}
	return reason
}

// bodyExcerpt pretty prints JSON bodies and passes anything else through.
func bodyExcerpt(body []byte) string {
	var excerpt string

	var pretty bytes.Buffer
	if gjson.ValidBytes(body) && json.Indent(&pretty, body, "", "  ") == nil {
		excerpt = pretty.String()
	} else {
		excerpt = string(body)
	}

	if len(excerpt) > maxBodyExcerpt {
		excerpt = excerpt[:maxBodyExcerpt] + "..."
	}

	return excerpt
}
