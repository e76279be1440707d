package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/outjet/garage-api/internal/apperrors"
	"github.com/outjet/garage-api/internal/models"
)

type EventRepo struct {
	DB DBTX
}

const saveEvent = `-- name: SaveEvent
INSERT INTO door_events (id, action, subject, position, outcome, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, action, subject, position, outcome, created_at
`

func (r *EventRepo) Save(ctx context.Context, e models.DoorEvent) (models.DoorEvent, error) {
	rows, _ := r.DB.Query(ctx, saveEvent, e.ID, e.Action, e.Subject, e.Position, e.Outcome, e.CreatedAt)
	event, err := pgx.CollectOneRow(rows, rowToEvent)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return event, apperrors.ErrEventAlreadyExists
		}

		return event, fmt.Errorf("db error: %w", err)
	}

	return event, nil
}

const listRecentEvents = `-- name: ListRecentEvents
SELECT id, action, subject, position, outcome, created_at
FROM door_events
ORDER BY created_at DESC, id
LIMIT $1
`

func (r *EventRepo) ListRecent(ctx context.Context, limit int) ([]models.DoorEvent, error) {
	rows, _ := r.DB.Query(ctx, listRecentEvents, limit)
	events, err := pgx.CollectRows(rows, rowToEvent)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return events, nil
}

func rowToEvent(row pgx.CollectableRow) (models.DoorEvent, error) {
	var e models.DoorEvent
	err := row.Scan(&e.ID, &e.Action, &e.Subject, &e.Position, &e.Outcome, &e.CreatedAt)
	return e, err
}
