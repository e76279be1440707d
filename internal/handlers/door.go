package handlers

import (
	"net/http"

	"github.com/outjet/garage-api/internal/handlers/render"
	"github.com/outjet/garage-api/internal/handlers/userctx"
	"github.com/outjet/garage-api/internal/logger"
	"github.com/outjet/garage-api/internal/service/door"
)

func handleDoorUp(doorService doorService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, _ := userctx.FromContext(r.Context())

		outcome, err := doorService.RequestUp(r.Context(), subject)

		switch {
		case err != nil:
			l.Error("Failed to move door up", "error", err)
			render.InternalError(w)
		case outcome == door.AlreadyInPosition:
			render.Status(w, "Door is already up")
		default:
			render.Status(w, "Door is going up")
		}
	})
}

func handleDoorDown(doorService doorService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, _ := userctx.FromContext(r.Context())

		outcome, err := doorService.RequestDown(r.Context(), subject)

		switch {
		case err != nil:
			l.Error("Failed to move door down", "error", err)
			render.InternalError(w)
		case outcome == door.AlreadyInPosition:
			render.Status(w, "Door is already down")
		default:
			render.Status(w, "Door is going down")
		}
	})
}

func handleDoorStatus(doorService doorService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		position, err := doorService.Status(r.Context())
		if err != nil {
			l.Error("Failed to read door status", "error", err)
			render.InternalError(w)
			return
		}

		l.Debug("Current door status", "status", position.String())
		render.Status(w, position.String())
	})
}

func handleBuzzer(doorService doorService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, _ := userctx.FromContext(r.Context())

		if err := doorService.Buzz(r.Context(), subject); err != nil {
			l.Error("Failed to activate buzzer", "error", err)
			render.InternalError(w)
			return
		}

		render.Status(w, "Buzzer activated")
	})
}
