package handlers

import (
	"net/http"

	"github.com/outjet/garage-api/internal/handlers/render"
)

// Liveness only, touches no hardware
func handleHealth() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		render.Status(w, "healthy")
	})
}
