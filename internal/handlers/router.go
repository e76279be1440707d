package handlers

import (
	"context"
	"net/http"

	"github.com/outjet/garage-api/internal/handlers/middleware"
	"github.com/outjet/garage-api/internal/logger"
	"github.com/outjet/garage-api/internal/models"
	"github.com/outjet/garage-api/internal/service/door"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	authService authService,
	doorService doorService,
	eventLog eventLog,
	logger logger.Logger,
) http.Handler {
	withAuth := middleware.AuthMiddleware(authService, logger)

	api := http.NewServeMux()

	api.Handle("POST /token", handleIssueToken(authService, logger))

	api.Handle("POST /door/up", withAuth(handleDoorUp(doorService, logger)))
	api.Handle("POST /door/down", withAuth(handleDoorDown(doorService, logger)))
	api.Handle("GET /door/status", withAuth(handleDoorStatus(doorService, logger)))
	api.Handle("GET /door/events", withAuth(handleListEvents(eventLog, logger)))
	api.Handle("POST /buzzer", withAuth(handleBuzzer(doorService, logger)))

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))
	root.Handle("GET /health", handleHealth())

	handler := chain(root,
		middleware.LoggerMiddleware(logger),
		middleware.RecoverMiddleware(logger),
	)

	return handler
}

type authService interface {
	// Verify credentials and issue access token
	// Has to return apperrors.ErrBadCredentials if username or password is wrong
	Login(username string, password string) (models.IssuedToken, error)

	// Get request and return token subject if it authenticated or error
	Authenticate(r *http.Request) (string, error)
}

type doorService interface {
	RequestUp(ctx context.Context, subject string) (door.Outcome, error)
	RequestDown(ctx context.Context, subject string) (door.Outcome, error)
	Status(ctx context.Context) (door.Position, error)
	Buzz(ctx context.Context, subject string) error
}

type eventLog interface {
	// Has to return apperrors.ErrEventLogDisabled if events are not stored
	Recent(ctx context.Context, limit int) ([]models.DoorEvent, error)
}
