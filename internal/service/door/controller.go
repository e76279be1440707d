package door

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/outjet/garage-api/internal/gpio"
	"github.com/outjet/garage-api/internal/logger"
	"github.com/outjet/garage-api/internal/models"
)

const defaultPulseDuration = 500 * time.Millisecond

// Outcome of an up or down request
type Outcome int

const (
	// Door already reports the requested position, relay untouched
	AlreadyInPosition Outcome = iota

	// Relay pulsed, door expected to move
	MovementInitiated
)

type journal interface {
	Record(ctx context.Context, event models.DoorEvent)
}

type Config struct {
	// Relay pulse length for door and buzzer
	// If not set than default is used
	PulseDuration time.Duration
}

// Controller turns up/down/status requests into sensor reads and relay pulses.
//
// The relay is a toggle: one pulse starts, stops or reverses the motor
// depending on where the mechanism is. The controller never checks that the
// door ended up where it was asked to go. A request made while the door is
// in transition can send it the wrong way.
type Controller struct {
	sensors  *SensorReader
	actuator *Actuator
	door     Relay
	buzzer   Relay

	journal journal
	logger  logger.Logger
	now     func() time.Time
}

func NewController(cfg Config, pins *gpio.Pins, actuator *Actuator, journal journal, logger logger.Logger) *Controller {
	if cfg.PulseDuration == 0 {
		cfg.PulseDuration = defaultPulseDuration
	}

	return &Controller{
		sensors:  NewSensorReader(pins.DownSensor, pins.UpSensor),
		actuator: actuator,
		door:     Relay{Name: "door", Output: pins.DoorRelay, Duration: cfg.PulseDuration},
		buzzer:   Relay{Name: "buzzer", Output: pins.Buzzer, Duration: cfg.PulseDuration},
		journal:  journal,
		logger:   logger,
		now:      time.Now,
	}
}

// RequestUp pulses the door relay unless the up sensor is already triggered
func (c *Controller) RequestUp(ctx context.Context, subject string) (Outcome, error) {
	return c.request(ctx, subject, models.ActionUp, c.sensors.IsUp)
}

// RequestDown pulses the door relay unless the down sensor is already triggered
func (c *Controller) RequestDown(ctx context.Context, subject string) (Outcome, error) {
	return c.request(ctx, subject, models.ActionDown, c.sensors.IsDown)
}

// Status derives the position from a fresh read of both sensors.
// Both sensors triggered reports Down.
func (c *Controller) Status(ctx context.Context) (Position, error) {
	down, err := c.sensors.IsDown()
	if err != nil {
		return InTransition, err
	}
	if down {
		// Up is read only to flag contradictory wiring, it cannot change the answer
		if up, err := c.sensors.IsUp(); err == nil && up {
			c.logger.Warn("Both door sensors triggered, reporting down")
		}
		return Down, nil
	}

	up, err := c.sensors.IsUp()
	if err != nil {
		return InTransition, err
	}

	return derivePosition(down, up), nil
}

// Buzz pulses the buzzer, serialized with door pulses
func (c *Controller) Buzz(ctx context.Context, subject string) error {
	position := c.observe(ctx)

	if err := c.actuator.Pulse(c.buzzer); err != nil {
		return err
	}

	c.record(ctx, subject, models.ActionBuzz, position, models.OutcomePulsed)
	return nil
}

// Toggle pulses the door relay whatever the sensors say.
// A failed sensor read is logged and never stops the pulse.
func (c *Controller) Toggle(ctx context.Context, subject string) error {
	position := c.observe(ctx)

	c.logger.Info("Toggling door", "subject", subject, "position", position.String())
	if err := c.actuator.Pulse(c.door); err != nil {
		return err
	}

	c.record(ctx, subject, models.ActionPulse, position, models.OutcomePulsed)
	return nil
}

func (c *Controller) request(ctx context.Context, subject string, action string, inPosition func() (bool, error)) (Outcome, error) {
	c.logger.Info("Door request received", "action", action, "subject", subject)

	already, err := inPosition()
	if err != nil {
		return AlreadyInPosition, err
	}

	if already {
		c.logger.Info("Door already in requested position", "action", action)
		c.record(ctx, subject, action, positionFor(action), models.OutcomeNoop)
		return AlreadyInPosition, nil
	}

	// Observed only for the journal; the decision above is already made
	position := c.observe(ctx)

	if err := c.actuator.Pulse(c.door); err != nil {
		return AlreadyInPosition, fmt.Errorf("error while moving door %s. Err: %w", action, err)
	}

	c.logger.Info("Door movement initiated", "action", action)
	c.record(ctx, subject, action, position, models.OutcomePulsed)
	return MovementInitiated, nil
}

func (c *Controller) record(ctx context.Context, subject string, action string, position Position, outcome string) {
	if c.journal == nil {
		return
	}

	// The relay already moved: a gone client must not drop the event
	c.journal.Record(context.WithoutCancel(ctx), models.DoorEvent{
		ID:        uuid.New(),
		Action:    action,
		Subject:   subject,
		Position:  position.String(),
		Outcome:   outcome,
		CreatedAt: c.now().UTC(),
	})
}

// observe reads the position for the journal only, InTransition if sensors fail
func (c *Controller) observe(ctx context.Context) Position {
	position, err := c.Status(ctx)
	if err != nil {
		c.logger.Warn("Could not read door position", "error", err)
		return InTransition
	}
	return position
}

// positionFor is the position implied by a satisfied up/down guard
func positionFor(action string) Position {
	if action == models.ActionUp {
		return Up
	}
	return Down
}
