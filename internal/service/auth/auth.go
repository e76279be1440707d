package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/outjet/garage-api/internal/apperrors"
	"github.com/outjet/garage-api/internal/models"
)

const (
	defaultAccessHeaderName = "Authorization"
	defaultAccessAuthScheme = "Bearer"
)

var ErrUnknownHashFormat = errors.New("unknown password hash format")

// Interface to create or compare user password hashes
type PasswordHasher interface {
	// Generate Hash from password
	Hash(password string) (string, error)

	// Compare known hashedPassword and user provided password
	// Must be protected against timing attacks
	Compare(hashedPassword string, password string) error
}

type TokenManager interface {
	Issue(subject string) (models.IssuedToken, error)
	Verify(access string) (string, error)
}

// The single operator account, loaded once at start
type Credentials struct {
	Username     string
	PasswordHash string
}

type Config struct {
	Credentials Credentials

	// Header to read access token from and its auth scheme
	// If not set than default is used
	AccessHeaderName string
	AccessAuthScheme string
}

// Auth service
type AuthService struct {
	username     string
	passwordHash string

	// Hasher matching the stored hash format
	hasher PasswordHasher

	tokens TokenManager

	accessHeaderName string
	accessAuthScheme string
}

func NewService(cfg Config, tokens TokenManager) (*AuthService, error) {
	if cfg.Credentials.Username == "" {
		return nil, errors.New("username must not be empty")
	}
	if tokens == nil {
		return nil, errors.New("token manager must not be nil")
	}

	hasher, err := HasherFor(cfg.Credentials.PasswordHash)
	if err != nil {
		return nil, err
	}

	if cfg.AccessHeaderName == "" {
		cfg.AccessHeaderName = defaultAccessHeaderName
	}
	if cfg.AccessAuthScheme == "" {
		cfg.AccessAuthScheme = defaultAccessAuthScheme
	}

	return &AuthService{
		username:         cfg.Credentials.Username,
		passwordHash:     cfg.Credentials.PasswordHash,
		hasher:           hasher,
		tokens:           tokens,
		accessHeaderName: cfg.AccessHeaderName,
		accessAuthScheme: cfg.AccessAuthScheme,
	}, nil
}

// HasherFor picks the hasher that understands the hash format
func HasherFor(hash string) (PasswordHasher, error) {
	switch {
	case strings.HasPrefix(hash, argon2Prefix):
		return Argon2Hasher{}, nil
	case strings.HasPrefix(hash, "$2a$"), strings.HasPrefix(hash, "$2b$"), strings.HasPrefix(hash, "$2y$"):
		return BcryptHasher{}, nil
	default:
		return nil, ErrUnknownHashFormat
	}
}

// VerifyPassword checks credentials and returns the subject to put in tokens.
// The stored hash is compared whatever the username, so an unknown username
// costs exactly what a wrong password does.
func (s *AuthService) VerifyPassword(username string, password string) (string, error) {
	usernameOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	passwordOK := s.hasher.Compare(s.passwordHash, password) == nil

	if !usernameOK || !passwordOK {
		return "", apperrors.ErrBadCredentials
	}

	return s.username, nil
}

// IssueToken signs a new access token for subject
func (s *AuthService) IssueToken(subject string) (models.IssuedToken, error) {
	return s.tokens.Issue(subject)
}

// VerifyToken returns the subject of a valid access token
func (s *AuthService) VerifyToken(access string) (string, error) {
	return s.tokens.Verify(access)
}

// Login verifies credentials and issues an access token
func (s *AuthService) Login(username string, password string) (models.IssuedToken, error) {
	subject, err := s.VerifyPassword(username, password)
	if err != nil {
		return models.IssuedToken{}, err
	}

	token, err := s.IssueToken(subject)
	if err != nil {
		return models.IssuedToken{}, fmt.Errorf("error while issuing token. Err: %w", err)
	}

	return token, nil
}

// BearerToken extracts the raw access token from the request.
// The header must split on whitespace into exactly "<scheme> <token>", scheme compared case-insensitive.
func (s *AuthService) BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get(s.accessHeaderName)
	if header == "" {
		return "", apperrors.ErrMissingToken
	}

	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], s.accessAuthScheme) {
		return "", apperrors.ErrMissingToken
	}

	return parts[1], nil
}

// Authenticate returns the subject of the bearer token carried by the request
func (s *AuthService) Authenticate(r *http.Request) (string, error) {
	access, err := s.BearerToken(r)
	if err != nil {
		return "", err
	}

	return s.VerifyToken(access)
}
