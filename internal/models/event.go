package models

import (
	"time"

	"github.com/google/uuid"
)

// Door actions
const (
	ActionUp    = "up"
	ActionDown  = "down"
	ActionBuzz  = "buzz"
	ActionPulse = "pulse"
)

// Door event outcomes
const (
	OutcomeNoop   = "noop"   // door already in requested position, relay untouched
	OutcomePulsed = "pulsed" // relay pulsed
)

// DoorEvent is a single handled door request.
// Position is the one observed before acting.
type DoorEvent struct {
	ID        uuid.UUID `json:"id"`
	Action    string    `json:"action"`
	Subject   string    `json:"subject"`
	Position  string    `json:"position"`
	Outcome   string    `json:"outcome"`
	CreatedAt time.Time `json:"created_at"`
}
