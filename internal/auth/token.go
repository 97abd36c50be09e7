package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/florianloch/sptfcore/internal/apierr"
	"github.com/florianloch/sptfcore/internal/constants"
)

const defaultTokenLifetime = time.Hour

// AccessToken lives in memory only.
type AccessToken struct {
	Bearer    string
	ExpiresAt time.Time
	Scopes    map[string]struct{}
}

func (t *AccessToken) Valid(now time.Time) bool {
	return t != nil && t.Bearer != "" && now.Before(t.ExpiresAt.Add(-constants.TokenExpirySkew))
}

func (t *AccessToken) HasScope(scope string) bool {
	if t == nil {
		return false
	}
	_, ok := t.Scopes[scope]
	return ok
}

func accessTokenFrom(tok *oauth2.Token, now time.Time) (*AccessToken, error) {
	if tok == nil || tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: token response without access token", apierr.ErrAuthProtocol)
	}

	expiresAt := tok.Expiry
	if expiresAt.IsZero() {
		expiresAt = now.Add(defaultTokenLifetime)
	}

	scopes := map[string]struct{}{}
	if raw, ok := tok.Extra("scope").(string); ok {
		for _, scope := range strings.Fields(raw) {
			scopes[scope] = struct{}{}
		}
	}

	return &AccessToken{Bearer: tok.AccessToken, ExpiresAt: expiresAt, Scopes: scopes}, nil
}

// classifyTokenError maps errors of the token endpoint onto the error kinds.
func classifyTokenError(ctx context.Context, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		switch {
		case retrieveErr.ErrorCode == "invalid_grant":
			return fmt.Errorf("%w: %w", apierr.ErrAuthRequired, err)
		case retrieveErr.Response != nil && retrieveErr.Response.StatusCode >= 500:
			return fmt.Errorf("%w: %w", apierr.ErrTransient, err)
		default:
			return fmt.Errorf("%w: %w", apierr.ErrAuthProtocol, err)
		}
	}

	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", apierr.ErrCanceled, context.Cause(ctx))
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", apierr.ErrTransient, err)
	}

	return fmt.Errorf("%w: %w", apierr.ErrAuthProtocol, err)
}
