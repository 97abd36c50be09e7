package middleware

import (
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ChiRequestIDHandler makes zerolog aware of the id chi's middleware.RequestID bound
// to the request. fieldKey names the field in the log output, headerName (if set)
// echoes the id in the response. Requests reaching this handler without an id get a
// random one, so log lines of the loopback server can always be correlated.
//
// It mimics the RequestIDHandler contained in the zerolog library:
// https://github.com/rs/zerolog/blob/a8f5328bb7c784b044cc9649643d56d97ad2334c/hlog/hlog.go#L150
func ChiRequestIDHandler(fieldKey, headerName string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			id := middleware.GetReqID(ctx)
			if id == "" {
				id = uuid.NewString()
			}

			if fieldKey != "" {
				zerolog.Ctx(ctx).UpdateContext(func(c zerolog.Context) zerolog.Context {
					return c.Str(fieldKey, id)
				})
			}

			if headerName != "" {
				w.Header().Set(headerName, id)
			}

			next.ServeHTTP(w, r)
		})
	}
}
