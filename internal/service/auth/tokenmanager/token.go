package tokenmanager

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/outjet/garage-api/internal/apperrors"
	"github.com/outjet/garage-api/internal/models"
)

const (
	defaultAccessTokenTTL = 30 * time.Minute
	defaultSigningMethod  = "HS256"
)

// Token manager with sensible default
type Config struct {
	// Secret key to sign access token
	// Required to be set
	SecretKey string

	// JWT MAC (Message Authentication Code) algorithm
	// If not set than default is used
	Alg string

	// Access token lifetime
	// If not set than default is used
	AccessTTL time.Duration

	// Clock used to stamp and validate tokens
	// If not set than time.Now is used
	Now func() time.Time
}

type TokenManager struct {
	// Secret key to sign access token
	key []byte

	// JWT MAC (Message Authentication Code) algorithm
	alg jwt.SigningMethod

	accessTTL time.Duration
	now       func() time.Time
}

func New(cfg Config) (*TokenManager, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = defaultAccessTokenTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	// Only HMAC methods: the same secret signs and verifies
	alg, ok := jwt.GetSigningMethod(cfg.Alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing method %q", cfg.Alg)
	}

	return &TokenManager{
		key:       []byte(cfg.SecretKey),
		alg:       alg,
		accessTTL: cfg.AccessTTL,
		now:       cfg.Now,
	}, nil
}

// Issue signs an access token for subject.
// Issued-at and not-before are now, expiry is now + TTL.
func (m *TokenManager) Issue(subject string) (models.IssuedToken, error) {
	if subject == "" {
		return models.IssuedToken{}, errors.New("subject must not be empty")
	}

	now := m.now().Truncate(time.Second)
	expiresAt := now.Add(m.accessTTL)

	token := jwt.NewWithClaims(m.alg, jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})

	signed, err := token.SignedString(m.key)
	if err != nil {
		return models.IssuedToken{}, fmt.Errorf("error while signing access token. Err: %w", err)
	}

	return models.IssuedToken{Value: signed, ExpiresAt: expiresAt}, nil
}

// Verify parses and validates access token and returns its subject.
// A token with a valid signature past its expiry is ErrExpiredToken, any other failure is ErrInvalidToken.
func (m *TokenManager) Verify(access string) (string, error) {
	if access == "" {
		return "", apperrors.ErrMissingToken
	}

	claims := &jwt.RegisteredClaims{}

	_, err := jwt.ParseWithClaims(
		access,
		claims,
		func(t *jwt.Token) (any, error) {
			return m.key, nil
		},
		jwt.WithValidMethods([]string{m.alg.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", fmt.Errorf("error while validating token. Err: %w", apperrors.ErrExpiredToken)
	case err != nil:
		return "", fmt.Errorf("error while parsing or validating token: %v. Err: %w", err, apperrors.ErrInvalidToken)
	case claims.Subject == "":
		return "", fmt.Errorf("token has no subject. Err: %w", apperrors.ErrInvalidToken)
	}

	return claims.Subject, nil
}
