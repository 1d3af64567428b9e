package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/CreativeUnicorns/localeprefs"
	"github.com/CreativeUnicorns/localeprefs/cookie"
)

type ctxKey int

const clientIDKey ctxKey = iota

// ClientIDFromContext returns the client ID set by ClientIDMiddleware, or ""
// outside of it.
func ClientIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(clientIDKey).(string)
	return id
}

// ClientIDMiddleware identifies the client by the named cookie. A missing or
// malformed ID is replaced by a fresh UUID, which is sent back to the client.
func ClientIDMiddleware(name string, opts cookie.Options) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			var clientID string
			if c, err := r.Cookie(name); err == nil {
				if parsed, err := uuid.Parse(c.Value); err == nil {
					clientID = parsed.String()
				}
			}
			if clientID == "" {
				clientID = uuid.NewString()
				c := opts.Cookie(name, clientID)
				c.HttpOnly = true
				http.SetCookie(w, c)
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), clientIDKey, clientID)))
		}
		return http.HandlerFunc(fn)
	}
}

// LoggerMiddleware returns a middleware that logs requests using the provided
// logger. Server errors are logged at warn level.
func LoggerMiddleware(logger localeprefs.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			t0 := time.Now()
			defer func() {
				log := logger.Info
				if ww.Status() >= http.StatusInternalServerError {
					log = logger.Warn
				}
				log("Served request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"latency_ms", float64(time.Since(t0).Microseconds())/1000.0,
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()
			next.ServeHTTP(ww, r)
		}
		return http.HandlerFunc(fn)
	}
}
