package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/outjet/garage-api/internal/db"
	"github.com/outjet/garage-api/internal/gpio"
	"github.com/outjet/garage-api/internal/handlers"
	"github.com/outjet/garage-api/internal/logger"
	"github.com/outjet/garage-api/internal/mqtt"
	"github.com/outjet/garage-api/internal/repository"
	"github.com/outjet/garage-api/internal/repository/postgres"
	"github.com/outjet/garage-api/internal/service/auth"
	"github.com/outjet/garage-api/internal/service/auth/tokenmanager"
	"github.com/outjet/garage-api/internal/service/door"
	"github.com/outjet/garage-api/internal/service/journal"
)

const shutdownTimeout = 5 * time.Second

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	logger logger.Logger

	// Release resources in order, after http server stopped
	teardown []func()
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	logger, err := logger.New(c.LogFormat, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	app := &ServerApp{ListenAddr: c.ListenAddr, logger: logger}

	// Release whatever was opened if start fails half way
	started := false
	defer func() {
		if !started {
			app.close()
		}
	}()

	// Initialize auth before touching hardware: bad credentials config must not pulse anything
	credentials, err := c.Credentials()
	if err != nil {
		return nil, err
	}
	tokenManager, err := tokenmanager.New(tokenmanager.Config{SecretKey: c.SecretKey})
	if err != nil {
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}
	authService, err := auth.NewService(auth.Config{Credentials: credentials}, tokenManager)
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	// Open gpio lines, outputs start Low
	pins, err := gpio.Open(c.GPIO)
	if err != nil {
		return nil, err
	}
	actuator := door.NewActuator(logger)
	app.teardown = append(app.teardown,
		actuator.Close,
		func() {
			if err := pins.Close(); err != nil {
				logger.Error("Failed to release gpio lines", "error", err)
			}
		},
	)
	logger.Info("GPIO lines opened", "driver", c.GPIO.Driver, "down_sensor", c.GPIO.DownSensorPin,
		"up_sensor", c.GPIO.UpSensorPin, "door_relay", c.GPIO.DoorRelayPin, "buzzer", c.GPIO.BuzzerPin)

	// Optional event sinks. Untyped nil keeps journal from calling disabled ones.
	var events repository.EventRepo
	if c.DatabaseDSN != "" {
		var pool *pgxpool.Pool
		if pool, err = db.ConnectAndMigrate(ctx, c.DatabaseDSN); err != nil {
			return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
		}
		app.teardown = append(app.teardown, pool.Close)
		events = postgres.NewStorage(pool).Events()
	} else {
		logger.Info("Database not configured, event log disabled")
	}

	var publisher *mqtt.Publisher
	if c.MQTT.Broker != "" {
		if publisher, err = mqtt.Connect(c.MQTT, logger); err != nil {
			return nil, err
		}
		app.teardown = append(app.teardown, publisher.Close)
	}

	var j *journal.Journal
	if publisher != nil {
		j = journal.New(events, publisher, logger)
	} else {
		j = journal.New(events, nil, logger)
	}

	controller := door.NewController(door.Config{PulseDuration: c.PulseDuration}, pins, actuator, j, logger)

	app.Handler = handlers.NewRouter(authService, controller, j, logger)

	started = true
	return app, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	defer s.close()

	httpServer := &http.Server{
		Addr:              s.ListenAddr,
		Handler:           s.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); errors.Is(err, context.DeadlineExceeded) {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}

func (s *ServerApp) close() {
	for _, fn := range s.teardown {
		fn()
	}
	s.teardown = nil
}
