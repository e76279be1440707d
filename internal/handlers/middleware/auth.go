package middleware

import (
	"errors"
	"net/http"

	"github.com/outjet/garage-api/internal/apperrors"
	"github.com/outjet/garage-api/internal/handlers/render"
	"github.com/outjet/garage-api/internal/handlers/userctx"
)

type authService interface {
	// Return subject of the request bearer token
	// Has to return apperrors.ErrMissingToken, ErrExpiredToken or ErrInvalidToken on failure
	Authenticate(r *http.Request) (string, error)
}

type warnLogger interface {
	Warn(msg string, args ...any)
}

// AuthMiddleware lets through requests with a valid bearer token only.
// The subject is put to request context, see userctx.
func AuthMiddleware(as authService, l warnLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, err := as.Authenticate(r)
			if err != nil {
				message := authErrorMessage(err)
				l.Warn("Request rejected", "uri", r.RequestURI, "reason", message)
				render.Error(w, message, http.StatusUnauthorized)
				return
			}

			ctx := userctx.New(r.Context(), subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authErrorMessage(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrMissingToken):
		return "Token required"
	case errors.Is(err, apperrors.ErrExpiredToken):
		return "Token expired"
	default:
		return "Invalid token"
	}
}
