package repository

import (
	"context"

	"github.com/outjet/garage-api/internal/models"
)

// Door event repository interface
// Events are append-only: nothing updates or deletes them
type EventRepo interface {
	// Save event
	// If event with the same id exists already has to return error apperrors.ErrEventAlreadyExists
	Save(ctx context.Context, event models.DoorEvent) (models.DoorEvent, error)

	// Return at most limit events, newest first
	ListRecent(ctx context.Context, limit int) ([]models.DoorEvent, error)
}

// Storage groups repositories sharing one connection or transaction
type Storage interface {
	Events() EventRepo
	InTx(ctx context.Context, fn func(Storage) error) error
}
