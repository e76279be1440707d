// Package journal records handled door requests.
//
// Recording never fails from the caller's point of view: the door already
// moved (or did not) by the time an event exists, so sink errors are logged
// and dropped.
package journal

import (
	"context"

	"github.com/outjet/garage-api/internal/apperrors"
	"github.com/outjet/garage-api/internal/logger"
	"github.com/outjet/garage-api/internal/models"
	"github.com/outjet/garage-api/internal/repository"
)

type publisher interface {
	PublishEvent(ctx context.Context, event models.DoorEvent) error
}

type Journal struct {
	// Both optional, nil disables the sink
	repo      repository.EventRepo
	publisher publisher

	logger logger.Logger
}

func New(repo repository.EventRepo, publisher publisher, logger logger.Logger) *Journal {
	return &Journal{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

// Record logs the event and hands it to every configured sink in order
func (j *Journal) Record(ctx context.Context, event models.DoorEvent) {
	j.logger.Info("Door event",
		"id", event.ID,
		"action", event.Action,
		"subject", event.Subject,
		"position", event.Position,
		"outcome", event.Outcome,
	)

	if j.repo != nil {
		if _, err := j.repo.Save(ctx, event); err != nil {
			j.logger.Warn("Could not save door event", "id", event.ID, "error", err)
		}
	}

	if j.publisher != nil {
		if err := j.publisher.PublishEvent(ctx, event); err != nil {
			j.logger.Warn("Could not publish door event", "id", event.ID, "error", err)
		}
	}
}

// Recent returns at most limit events, newest first.
// Without a repository it fails with apperrors.ErrEventLogDisabled.
func (j *Journal) Recent(ctx context.Context, limit int) ([]models.DoorEvent, error) {
	if j.repo == nil {
		return nil, apperrors.ErrEventLogDisabled
	}

	return j.repo.ListRecent(ctx, limit)
}
