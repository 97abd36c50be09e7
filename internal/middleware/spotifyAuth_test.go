package middleware

import (
	"net/http"
	"testing"

	"github.com/gavv/httpexpect/v2"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/florianloch/sptfcore/internal/apierr"
)

func newCallbackTester(t *testing.T, state string) (*httpexpect.Expect, *[]CallbackResult) {
	var results []CallbackResult

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(hlog.NewHandler(zerolog.Nop()))
	r.Use(ChiRequestIDHandler("reqID", "X-Request-Id"))
	r.Get("/", CreateOAuthCallbackHandler(state, func(res CallbackResult) {
		results = append(results, res)
	}))

	e := httpexpect.WithConfig(httpexpect.Config{
		Client: &http.Client{
			Transport: httpexpect.NewBinder(r),
			Jar:       httpexpect.NewJar(),
		},
		Reporter: httpexpect.NewAssertReporter(t),
	})

	return e, &results
}

func TestCallbackDeliversCodeOnce(t *testing.T) {
	e, results := newCallbackTester(t, "expected-state")

	e.GET("/").WithQuery("code", "the-code").WithQuery("state", "expected-state").
		Expect().
		Status(http.StatusOK).
		Header("X-Request-Id").NotEmpty()

	e.GET("/").WithQuery("code", "other-code").WithQuery("state", "expected-state").
		Expect().
		Status(http.StatusGone)

	require.Len(t, *results, 1)
	assert.Equal(t, "the-code", (*results)[0].Code)
	assert.NoError(t, (*results)[0].Err)
}

func TestCallbackRejectsStateMismatch(t *testing.T) {
	e, results := newCallbackTester(t, "X")

	e.GET("/").WithQuery("code", "the-code").WithQuery("state", "Y").
		Expect().
		Status(http.StatusBadRequest).
		Body().Contains("Login failed")

	require.Len(t, *results, 1)
	assert.Empty(t, (*results)[0].Code)
	assert.ErrorIs(t, (*results)[0].Err, apierr.ErrAuthProtocol)
}

func TestCallbackRejectsMissingCodeAndDenial(t *testing.T) {
	e, results := newCallbackTester(t, "X")
	e.GET("/").WithQuery("state", "X").Expect().Status(http.StatusBadRequest)
	require.Len(t, *results, 1)
	assert.ErrorIs(t, (*results)[0].Err, apierr.ErrAuthProtocol)

	e, results = newCallbackTester(t, "X")
	e.GET("/").WithQuery("error", "access_denied").WithQuery("state", "X").Expect().Status(http.StatusBadRequest)
	require.Len(t, *results, 1)
	assert.ErrorContains(t, (*results)[0].Err, "access_denied")
}

func TestNewRandomState(t *testing.T) {
	a, err := NewRandomState()
	require.NoError(t, err)
	b, err := NewRandomState()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}
