// Package apierr holds the error kinds surfaced by the Web API core.
// Callers match them with errors.Is and errors.As.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrInvalidIdentifier = errors.New("invalid spotify identifier")
	ErrUnsupportedType   = errors.New("unsupported spotify object type")
	ErrAuthRequired      = errors.New("authorization required")
	ErrAuthProtocol      = errors.New("authorization protocol violation")
	ErrRateLimited       = errors.New("rate limited by web api")
	ErrTransient         = errors.New("transient failure")
	ErrMalformedResponse = errors.New("malformed web api response")
	ErrProtocol          = errors.New("web api protocol violation")
	ErrCanceled          = errors.New("operation canceled")
	ErrNotFound          = errors.New("object not found")
)

// HTTPError is returned for every non-200 response of the Web API.
type HTTPError struct {
	Status int
	Reason string
	Body   string
}

func (e *HTTPError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = http.StatusText(e.Status)
	}

	if e.Body == "" {
		return fmt.Sprintf("web api request failed: %d %s", e.Status, reason)
	}

	return fmt.Sprintf("web api request failed: %d %s:\n%s", e.Status, reason, e.Body)
}

func (e *HTTPError) Is(target error) bool {
	switch target {
	case ErrRateLimited:
		return e.Status == http.StatusTooManyRequests
	case ErrTransient:
		return e.Status >= http.StatusInternalServerError
	}

	return false
}

// NotFoundError lists ids the Web API answered with null for.
type NotFoundError struct {
	Kind string
	IDs  []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, strings.Join(e.IDs, ", "))
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
