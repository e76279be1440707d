package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/outjet/garage-api/internal/apperrors"
	"github.com/outjet/garage-api/internal/handlers/render"
	"github.com/outjet/garage-api/internal/logger"
	"github.com/outjet/garage-api/internal/models"
)

const defaultEventsLimit = 50

func handleListEvents(eventLog eventLog, l logger.Logger) http.Handler {
	type query struct {
		Limit int `query:"limit" validate:"min=1,max=500"`
	}

	type response struct {
		Events []models.DoorEvent `json:"events"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := query{Limit: defaultEventsLimit}
		if raw := r.URL.Query().Get("limit"); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil {
				render.Error(w, "Invalid query", http.StatusBadRequest)
				return
			}
			q.Limit = limit
		}
		if err := render.Validate(q); err != nil {
			render.Error(w, "Invalid query", http.StatusBadRequest)
			return
		}

		events, err := eventLog.Recent(r.Context(), q.Limit)

		switch {
		case err == nil:
			if events == nil {
				events = []models.DoorEvent{}
			}
			render.JSON(w, response{Events: events})
		case errors.Is(err, apperrors.ErrEventLogDisabled):
			render.Error(w, "Event log disabled", http.StatusNotFound)
		default:
			l.Error("Failed to list door events", "error", err)
			render.InternalError(w)
		}
	})
}
