package middleware

import (
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/rs/zerolog/hlog"

	"github.com/florianloch/sptfcore/internal/apierr"
	"github.com/florianloch/sptfcore/internal/util"
)

// CallbackResult is what the loopback redirect delivered: either a code or an error.
type CallbackResult struct {
	Code string
	Err  error
}

const (
	callbackSuccessPage = `<!DOCTYPE html><html><body><h3>Login successful</h3><p>You can close this window now.</p></body></html>`
	callbackFailurePage = `<!DOCTYPE html><html><body><h3>Login failed</h3><p>%s</p></body></html>`
)

// CreateOAuthCallbackHandler returns a handler accepting exactly one redirect from
// Spotify's authorization page. Every further request is answered with 410 Gone.
// The outcome is passed to deliver once.
func CreateOAuthCallbackHandler(expectedState string, deliver func(CallbackResult)) http.HandlerFunc {
	var handled atomic.Bool

	return func(w http.ResponseWriter, r *http.Request) {
		if !handled.CompareAndSwap(false, true) {
			http.Error(w, "This login attempt has already been handled.", http.StatusGone)
			return
		}

		query := r.URL.Query()

		var result CallbackResult
		switch {
		case query.Get("error") != "":
			result.Err = fmt.Errorf("%w: authorization was denied: %s", apierr.ErrAuthProtocol, query.Get("error"))
		case query.Get("state") != expectedState:
			hlog.FromRequest(r).Error().Str("stateGiven", query.Get("state")).Str("stateExpected", expectedState).Msg("State mismatch in OAuth callback.")
			result.Err = fmt.Errorf("%w: state mismatch in OAuth callback", apierr.ErrAuthProtocol)
		case query.Get("code") == "":
			result.Err = fmt.Errorf("%w: OAuth callback without code", apierr.ErrAuthProtocol)
		default:
			result.Code = query.Get("code")
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if result.Err != nil {
			hlog.FromRequest(r).Error().Err(result.Err).Msg("OAuth callback rejected.")
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, callbackFailurePage, "Please return to the player and try again.")
		} else {
			fmt.Fprint(w, callbackSuccessPage)
		}

		deliver(result)
	}
}

// NewRandomState returns a fresh value for the OAuth state parameter, used to prevent CSRF.
func NewRandomState() (string, error) {
	state, err := util.RandomHex(32)
	if err != nil {
		return "", fmt.Errorf("failed to generate a random state for OAuth negotiation: %w", err)
	}

	return state, nil
}
