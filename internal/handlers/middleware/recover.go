package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/outjet/garage-api/internal/handlers/render"
)

type errorLogger interface {
	Error(msg string, args ...any)
}

// RecoverMiddleware turns a panic in the handler into the opaque 500 response.
// The server keeps serving other requests.
func RecoverMiddleware(l errorLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				// net/http uses it to abort the response on purpose
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				l.Error(
					"Panic while serving request",
					"method", r.Method,
					"uri", r.RequestURI,
					"panic", rec,
					"stack", string(debug.Stack()),
				)
				render.InternalError(w)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
