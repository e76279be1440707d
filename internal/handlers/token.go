package handlers

import (
	"errors"
	"net/http"

	"github.com/outjet/garage-api/internal/apperrors"
	"github.com/outjet/garage-api/internal/handlers/render"
	"github.com/outjet/garage-api/internal/logger"
)

const basicRealm = `Basic realm="garage"`

func handleIssueToken(authService authService, l logger.Logger) http.Handler {
	type response struct {
		Token string `json:"token"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", basicRealm)
			render.Error(w, "Credentials required", http.StatusUnauthorized)
			return
		}

		token, err := authService.Login(username, password)

		switch {
		case err == nil:
			l.Info("Token issued", "subject", username, "expires_at", token.ExpiresAt)
			render.JSON(w, response{Token: token.Value})
		case errors.Is(err, apperrors.ErrBadCredentials):
			l.Warn("Bad credentials", "username", username, "remote", r.RemoteAddr)
			w.Header().Set("WWW-Authenticate", basicRealm)
			render.Error(w, "Invalid credentials", http.StatusUnauthorized)
		default:
			l.Error("Failed to issue token", "error", err)
			render.InternalError(w)
		}
	})
}
