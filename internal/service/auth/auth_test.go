package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/outjet/garage-api/internal/apperrors"
	"github.com/outjet/garage-api/internal/service/auth/tokenmanager"
)

func Test_Auth(t *testing.T) {
	t.Parallel()

	bcryptHash, err := BcryptHasher{}.Hash("pwd")
	require.NoError(t, err)

	argonHash, err := Argon2Hasher{}.Hash("pwd")
	require.NoError(t, err)

	newService := func(t *testing.T, hash string, now func() time.Time) *AuthService {
		tokens, err := tokenmanager.New(tokenmanager.Config{SecretKey: "test-secret-key", Now: now})
		require.NoError(t, err, "token manager should be created without errors")

		s, err := NewService(Config{Credentials: Credentials{Username: "garage", PasswordHash: hash}}, tokens)
		require.NoError(t, err, "auth service could't be started")

		return s
	}

	t.Run("new auth service defaults", func(t *testing.T) {
		s := newService(t, bcryptHash, nil)

		require.Equal(t, defaultAccessHeaderName, s.accessHeaderName, "default access header name should be set")
		require.Equal(t, defaultAccessAuthScheme, s.accessAuthScheme, "default access auth")
		require.Equal(t, BcryptHasher{}, s.hasher, "hasher should match hash format")
	})

	t.Run("new auth service fail", func(t *testing.T) {
		tokens, err := tokenmanager.New(tokenmanager.Config{SecretKey: "test-secret-key"})
		require.NoError(t, err)

		tests := []struct {
			name   string
			cfg    Config
			tokens TokenManager
		}{
			{"empty username", Config{Credentials: Credentials{PasswordHash: bcryptHash}}, tokens},
			{"plaintext password", Config{Credentials: Credentials{Username: "u", PasswordHash: "pwd"}}, tokens},
			{"no token manager", Config{Credentials: Credentials{Username: "u", PasswordHash: bcryptHash}}, nil},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := NewService(tt.cfg, tt.tokens)

				require.Error(t, err)
			})
		}
	})

	t.Run("VerifyPassword", func(t *testing.T) {
		for name, hash := range map[string]string{"bcrypt": bcryptHash, "argon2id": argonHash} {
			t.Run(name, func(t *testing.T) {
				s := newService(t, hash, nil)

				t.Run("ok", func(t *testing.T) {
					subject, err := s.VerifyPassword("garage", "pwd")

					require.NoError(t, err)
					require.Equal(t, "garage", subject)
				})

				tests := []struct {
					name     string
					login    string
					password string
				}{
					{"wrong password", "garage", "wrong"},
					{"unknown user", "not-existed-user", "pwd"},
					{"empty", "", ""},
					{"username case differs", "GARAGE", "pwd"},
				}

				for _, tt := range tests {
					t.Run(tt.name, func(t *testing.T) {
						_, err := s.VerifyPassword(tt.login, tt.password)

						require.ErrorIs(t, err, apperrors.ErrBadCredentials)
					})
				}
			})
		}
	})

	t.Run("Login", func(t *testing.T) {
		s := newService(t, bcryptHash, nil)

		token, err := s.Login("garage", "pwd")
		require.NoError(t, err)
		require.NotEmpty(t, token.Value, "access token should not be empty")

		subject, err := s.VerifyToken(token.Value)
		require.NoError(t, err)
		require.Equal(t, "garage", subject)

		_, err = s.Login("garage", "wrong")
		require.ErrorIs(t, err, apperrors.ErrBadCredentials)
	})

	t.Run("VerifyToken expired", func(t *testing.T) {
		now := time.Now()
		s := newService(t, bcryptHash, func() time.Time { return now })

		token, err := s.IssueToken("garage")
		require.NoError(t, err)

		now = now.Add(31 * time.Minute)
		_, err = s.VerifyToken(token.Value)

		require.ErrorIs(t, err, apperrors.ErrExpiredToken)
	})

	t.Run("BearerToken", func(t *testing.T) {
		s := newService(t, bcryptHash, nil)

		tests := []struct {
			name    string
			header  string
			want    string
			wantErr error
		}{
			{"ok", "Bearer abc.def.ghi", "abc.def.ghi", nil},
			{"scheme case insensitive", "bEaReR abc", "abc", nil},
			{"no header", "", "", apperrors.ErrMissingToken},
			{"scheme only", "Bearer", "", apperrors.ErrMissingToken},
			{"empty token", "Bearer ", "", apperrors.ErrMissingToken},
			{"other scheme", "Basic abc", "", apperrors.ErrMissingToken},
			{"too many parts", "Bearer abc def", "", apperrors.ErrMissingToken},
			{"extra whitespace", "Bearer \t abc ", "abc", nil},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				r := httptest.NewRequest(http.MethodGet, "/", nil)
				if tt.header != "" {
					r.Header.Set("Authorization", tt.header)
				}

				got, err := s.BearerToken(r)

				require.ErrorIs(t, err, tt.wantErr)
				require.Equal(t, tt.want, got)
			})
		}
	})

	t.Run("Authenticate", func(t *testing.T) {
		s := newService(t, bcryptHash, nil)
		token, err := s.IssueToken("garage")
		require.NoError(t, err)

		t.Run("ok", func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set("Authorization", "Bearer "+token.Value)

			subject, err := s.Authenticate(r)

			require.NoError(t, err)
			require.Equal(t, "garage", subject)
		})

		t.Run("missing", func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)

			_, err := s.Authenticate(r)

			require.ErrorIs(t, err, apperrors.ErrMissingToken)
		})

		t.Run("tampered", func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set("Authorization", "Bearer "+token.Value+"x")

			_, err := s.Authenticate(r)

			require.ErrorIs(t, err, apperrors.ErrInvalidToken)
		})
	})
}

// Unknown username must not answer faster than a wrong password,
// even when the stored hash is costlier than the hasher default
func Test_VerifyPasswordTiming(t *testing.T) {
	stored, err := bcrypt.GenerateFromPassword([]byte("pwd"), bcrypt.DefaultCost+2)
	require.NoError(t, err)

	tokens, err := tokenmanager.New(tokenmanager.Config{SecretKey: "test-secret-key"})
	require.NoError(t, err)
	s, err := NewService(Config{Credentials: Credentials{Username: "garage", PasswordHash: string(stored)}}, tokens)
	require.NoError(t, err)

	measure := func(username string) time.Duration {
		start := time.Now()
		_, err := s.VerifyPassword(username, "wrong")
		elapsed := time.Since(start)

		require.ErrorIs(t, err, apperrors.ErrBadCredentials)
		return elapsed
	}

	wrongPassword := measure("garage")
	unknownUser := measure("nobody")

	require.Greater(t, unknownUser, wrongPassword/2,
		"unknown user took %v, wrong password took %v", unknownUser, wrongPassword)
}
