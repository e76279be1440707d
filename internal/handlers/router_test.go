package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/outjet/garage-api/internal/apperrors"
	"github.com/outjet/garage-api/internal/gpio"
	"github.com/outjet/garage-api/internal/logger"
	"github.com/outjet/garage-api/internal/models"
	"github.com/outjet/garage-api/internal/service/auth"
	"github.com/outjet/garage-api/internal/service/auth/tokenmanager"
	"github.com/outjet/garage-api/internal/service/door"
)

const (
	downPin   = 20
	upPin     = 21
	doorPin   = 16
	buzzerPin = 19
)

// Allow to use a function as eventLog
type eventLogFunc func(ctx context.Context, limit int) ([]models.DoorEvent, error)

func (f eventLogFunc) Recent(ctx context.Context, limit int) ([]models.DoorEvent, error) {
	return f(ctx, limit)
}

type testServer struct {
	url  string
	auth *auth.AuthService

	down   *gpio.FakeInput
	up     *gpio.FakeInput
	door   *gpio.FakeOutput
	buzzer *gpio.FakeOutput
}

// Run http server with production auth and door services on fake gpio lines
func newTestServer(t *testing.T, events eventLog) *testServer {
	t.Helper()

	hash, err := auth.BcryptHasher{}.Hash("pwd")
	require.NoError(t, err)

	tokens, err := tokenmanager.New(tokenmanager.Config{SecretKey: "test-secret"})
	require.NoError(t, err, "token manager should be created without errors")

	authService, err := auth.NewService(auth.Config{Credentials: auth.Credentials{Username: "garage", PasswordHash: hash}}, tokens)
	require.NoError(t, err, "auth service starting error")

	driver := gpio.NewFakeDriver()
	pins, err := gpio.OpenWith(driver, gpio.Config{
		DownSensorPin: downPin,
		UpSensorPin:   upPin,
		DoorRelayPin:  doorPin,
		BuzzerPin:     buzzerPin,
	})
	require.NoError(t, err)

	actuator := door.NewActuator(logger.NewNoOpLogger())
	t.Cleanup(actuator.Close)
	controller := door.NewController(door.Config{PulseDuration: time.Millisecond}, pins, actuator, nil, logger.NewNoOpLogger())

	if events == nil {
		events = eventLogFunc(func(context.Context, int) ([]models.DoorEvent, error) {
			return nil, apperrors.ErrEventLogDisabled
		})
	}

	srv := httptest.NewServer(NewRouter(authService, controller, events, logger.NewNoOpLogger()))
	t.Cleanup(srv.Close)

	return &testServer{
		url:    srv.URL,
		auth:   authService,
		down:   driver.FakeInput(downPin),
		up:     driver.FakeInput(upPin),
		door:   driver.FakeOutput(doorPin),
		buzzer: driver.FakeOutput(buzzerPin),
	}
}

func (s *testServer) token(t *testing.T) string {
	t.Helper()

	token, err := s.auth.IssueToken("garage")
	require.NoError(t, err)
	return token.Value
}

// do sends request and returns status code and body
func do(t *testing.T, method string, url string, prepare func(r *http.Request)) (int, http.Header, string) {
	t.Helper()

	req, err := http.NewRequestWithContext(t.Context(), method, url, nil)
	require.NoError(t, err)
	if prepare != nil {
		prepare(req)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, resp.Header, string(body)
}

func withBearer(token string) func(r *http.Request) {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

func Test_Health(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)

	code, _, body := do(t, http.MethodGet, s.url+"/health", nil)

	require.Equal(t, http.StatusOK, code)
	require.JSONEq(t, `{"status": "healthy"}`, body)
	require.Zero(t, s.down.Reads(), "health must not touch gpio")
}

func Test_IssueToken(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)

	t.Run("ok", func(t *testing.T) {
		code, _, body := do(t, http.MethodPost, s.url+"/api/token", func(r *http.Request) {
			r.SetBasicAuth("garage", "pwd")
		})

		require.Equalf(t, http.StatusOK, code, "not expected code. Body: %s", body)
		require.Contains(t, body, `"token"`)
	})

	t.Run("issued token opens protected routes", func(t *testing.T) {
		tokenBody := struct {
			Token string `json:"token"`
		}{}
		req, err := http.NewRequestWithContext(t.Context(), http.MethodPost, s.url+"/api/token", nil)
		require.NoError(t, err)
		req.SetBasicAuth("garage", "pwd")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		require.NoError(t, decodeJSON(resp.Body, &tokenBody))

		code, _, _ := do(t, http.MethodGet, s.url+"/api/door/status", withBearer(tokenBody.Token))

		require.Equal(t, http.StatusOK, code)
	})

	t.Run("no credentials", func(t *testing.T) {
		code, header, body := do(t, http.MethodPost, s.url+"/api/token", nil)

		require.Equal(t, http.StatusUnauthorized, code)
		require.JSONEq(t, `{"error": "Credentials required"}`, body)
		require.Equal(t, `Basic realm="garage"`, header.Get("WWW-Authenticate"))
	})

	t.Run("bad credentials", func(t *testing.T) {
		tests := []struct {
			name     string
			username string
			password string
		}{
			{"wrong password", "garage", "wrong"},
			{"unknown user", "admin", "pwd"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				code, _, body := do(t, http.MethodPost, s.url+"/api/token", func(r *http.Request) {
					r.SetBasicAuth(tt.username, tt.password)
				})

				require.Equal(t, http.StatusUnauthorized, code)
				require.JSONEq(t, `{"error": "Invalid credentials"}`, body)
			})
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		code, _, _ := do(t, http.MethodGet, s.url+"/api/token", nil)

		require.Equal(t, http.StatusMethodNotAllowed, code)
	})
}

func Test_ProtectedRoutes(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/door/up"},
		{http.MethodPost, "/api/door/down"},
		{http.MethodGet, "/api/door/status"},
		{http.MethodGet, "/api/door/events"},
		{http.MethodPost, "/api/buzzer"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			code, _, body := do(t, route.method, s.url+route.path, nil)
			require.Equal(t, http.StatusUnauthorized, code)
			require.JSONEq(t, `{"error": "Token required"}`, body)

			code, _, body = do(t, route.method, s.url+route.path, withBearer("not-a-jwt"))
			require.Equal(t, http.StatusUnauthorized, code)
			require.JSONEq(t, `{"error": "Invalid token"}`, body)
		})
	}

	require.Zero(t, s.door.Pulses(), "rejected requests must not pulse the door")
	require.Zero(t, s.buzzer.Pulses(), "rejected requests must not pulse the buzzer")
}

func Test_ExpiredToken(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)

	// Same secret, clock 31 minutes behind: token expired a minute ago
	issuedAt := time.Now().Add(-31 * time.Minute)
	past, err := tokenmanager.New(tokenmanager.Config{
		SecretKey: "test-secret",
		Now:       func() time.Time { return issuedAt },
	})
	require.NoError(t, err)
	token, err := past.Issue("garage")
	require.NoError(t, err)

	code, _, body := do(t, http.MethodPost, s.url+"/api/door/up", withBearer(token.Value))

	require.Equal(t, http.StatusUnauthorized, code)
	require.JSONEq(t, `{"error": "Token expired"}`, body)
	require.Zero(t, s.door.Pulses(), "expired token must not pulse the door")
}

func Test_Door(t *testing.T) {
	t.Parallel()

	t.Run("up", func(t *testing.T) {
		tests := []struct {
			name       string
			upSensor   int
			wantStatus string
			wantPulses int
		}{
			{"already up", gpio.Low, "Door is already up", 0},
			{"going up", gpio.High, "Door is going up", 1},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				s := newTestServer(t, nil)
				s.up.Set(tt.upSensor)

				code, _, body := do(t, http.MethodPost, s.url+"/api/door/up", withBearer(s.token(t)))

				require.Equalf(t, http.StatusOK, code, "not expected code. Body: %s", body)
				require.JSONEq(t, `{"status": "`+tt.wantStatus+`"}`, body)
				require.Equal(t, tt.wantPulses, s.door.Pulses())
				require.Equal(t, gpio.Low, s.door.Value(), "relay must be released")
			})
		}
	})

	t.Run("down", func(t *testing.T) {
		tests := []struct {
			name       string
			downSensor int
			wantStatus string
			wantPulses int
		}{
			{"already down", gpio.Low, "Door is already down", 0},
			{"going down", gpio.High, "Door is going down", 1},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				s := newTestServer(t, nil)
				s.down.Set(tt.downSensor)

				code, _, body := do(t, http.MethodPost, s.url+"/api/door/down", withBearer(s.token(t)))

				require.Equalf(t, http.StatusOK, code, "not expected code. Body: %s", body)
				require.JSONEq(t, `{"status": "`+tt.wantStatus+`"}`, body)
				require.Equal(t, tt.wantPulses, s.door.Pulses())
			})
		}
	})

	t.Run("status", func(t *testing.T) {
		tests := []struct {
			name string
			down int
			up   int
			want string
		}{
			{"down", gpio.Low, gpio.High, "down"},
			{"up", gpio.High, gpio.Low, "up"},
			{"in transition", gpio.High, gpio.High, "in_transition"},
			{"both triggered", gpio.Low, gpio.Low, "down"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				s := newTestServer(t, nil)
				s.down.Set(tt.down)
				s.up.Set(tt.up)

				code, _, body := do(t, http.MethodGet, s.url+"/api/door/status", withBearer(s.token(t)))

				require.Equal(t, http.StatusOK, code)
				require.JSONEq(t, `{"status": "`+tt.want+`"}`, body)
				require.Zero(t, s.door.Pulses(), "status must not pulse the door")
			})
		}
	})

	t.Run("buzzer", func(t *testing.T) {
		s := newTestServer(t, nil)

		code, _, body := do(t, http.MethodPost, s.url+"/api/buzzer", withBearer(s.token(t)))

		require.Equal(t, http.StatusOK, code)
		require.JSONEq(t, `{"status": "Buzzer activated"}`, body)
		require.Equal(t, 1, s.buzzer.Pulses())
		require.Zero(t, s.door.Pulses())
	})

	t.Run("gpio failure is opaque", func(t *testing.T) {
		s := newTestServer(t, nil)
		s.up.Fail(errors.New("line 21 busy"))

		code, _, body := do(t, http.MethodPost, s.url+"/api/door/up", withBearer(s.token(t)))

		require.Equal(t, http.StatusInternalServerError, code)
		require.JSONEq(t, `{"error": "An unexpected error occurred"}`, body)
		require.NotContains(t, body, "line 21")
	})

	t.Run("relay failure is opaque", func(t *testing.T) {
		s := newTestServer(t, nil)
		s.door.FailHigh(errors.New("relay stuck"))

		code, _, body := do(t, http.MethodPost, s.url+"/api/door/down", withBearer(s.token(t)))

		require.Equal(t, http.StatusInternalServerError, code)
		require.JSONEq(t, `{"error": "An unexpected error occurred"}`, body)
	})
}

func Test_ListEvents(t *testing.T) {
	t.Parallel()

	event := models.DoorEvent{
		ID:        uuid.MustParse("0b9b5cf4-32b4-4bd5-9a53-6a1e0e3c7c11"),
		Action:    models.ActionUp,
		Subject:   "garage",
		Position:  "down",
		Outcome:   models.OutcomePulsed,
		CreatedAt: time.Date(2024, 1, 1, 19, 0, 1, 0, time.UTC),
	}

	t.Run("ok", func(t *testing.T) {
		var gotLimit int
		s := newTestServer(t, eventLogFunc(func(_ context.Context, limit int) ([]models.DoorEvent, error) {
			gotLimit = limit
			return []models.DoorEvent{event}, nil
		}))

		code, _, body := do(t, http.MethodGet, s.url+"/api/door/events?limit=10", withBearer(s.token(t)))

		require.Equalf(t, http.StatusOK, code, "not expected code. Body: %s", body)
		require.Equal(t, 10, gotLimit)
		require.JSONEq(t, `
			{
				"events": [
					{
						"id": "0b9b5cf4-32b4-4bd5-9a53-6a1e0e3c7c11",
						"action": "up",
						"subject": "garage",
						"position": "down",
						"outcome": "pulsed",
						"created_at": "2024-01-01T19:00:01Z"
					}
				]
			}`, body)
	})

	t.Run("default limit and empty list", func(t *testing.T) {
		var gotLimit int
		s := newTestServer(t, eventLogFunc(func(_ context.Context, limit int) ([]models.DoorEvent, error) {
			gotLimit = limit
			return nil, nil
		}))

		code, _, body := do(t, http.MethodGet, s.url+"/api/door/events", withBearer(s.token(t)))

		require.Equal(t, http.StatusOK, code)
		require.Equal(t, defaultEventsLimit, gotLimit)
		require.JSONEq(t, `{"events": []}`, body)
	})

	t.Run("invalid limit", func(t *testing.T) {
		s := newTestServer(t, eventLogFunc(func(context.Context, int) ([]models.DoorEvent, error) {
			t.Error("event log must not be called on invalid query")
			return nil, nil
		}))

		for _, limit := range []string{"abc", "0", "-1", "501"} {
			t.Run(limit, func(t *testing.T) {
				code, _, body := do(t, http.MethodGet, s.url+"/api/door/events?limit="+limit, withBearer(s.token(t)))

				require.Equal(t, http.StatusBadRequest, code)
				require.JSONEq(t, `{"error": "Invalid query"}`, body)
			})
		}
	})

	t.Run("disabled", func(t *testing.T) {
		s := newTestServer(t, nil)

		code, _, body := do(t, http.MethodGet, s.url+"/api/door/events", withBearer(s.token(t)))

		require.Equal(t, http.StatusNotFound, code)
		require.JSONEq(t, `{"error": "Event log disabled"}`, body)
	})

	t.Run("storage failure is opaque", func(t *testing.T) {
		s := newTestServer(t, eventLogFunc(func(context.Context, int) ([]models.DoorEvent, error) {
			return nil, errors.New("connection refused")
		}))

		code, _, body := do(t, http.MethodGet, s.url+"/api/door/events", withBearer(s.token(t)))

		require.Equal(t, http.StatusInternalServerError, code)
		require.JSONEq(t, `{"error": "An unexpected error occurred"}`, body)
	})
}

func decodeJSON(r io.Reader, v any) error {
	return json.NewDecoder(r).Decode(v)
}
