package apperrors

import (
	"errors"
)

var (
	ErrMissingToken   = errors.New("token required")
	ErrExpiredToken   = errors.New("token expired")
	ErrInvalidToken   = errors.New("invalid token")
	ErrBadCredentials = errors.New("bad credentials")

	ErrEventAlreadyExists = errors.New("door event already exists")
	ErrEventLogDisabled   = errors.New("door event log disabled")
)
