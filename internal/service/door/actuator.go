package door

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/outjet/garage-api/internal/gpio"
	"github.com/outjet/garage-api/internal/logger"
)

var ErrActuatorClosed = errors.New("actuator closed")

// Relay is a named output pulsed for a fixed duration
type Relay struct {
	Name     string
	Output   gpio.Output
	Duration time.Duration
}

// Actuator drives relay outputs one pulse at a time.
// All outputs share one lock, so a buzzer pulse and a door pulse never overlap:
// both loads hang off the same supply.
// Waiting callers block with no timeout; N pulses take at least N durations.
type Actuator struct {
	mu     sync.Mutex
	closed bool

	// closed on shutdown to cut the pulse in flight short
	stop     chan struct{}
	stopOnce sync.Once

	logger logger.Logger
}

func NewActuator(logger logger.Logger) *Actuator {
	return &Actuator{
		stop:   make(chan struct{}),
		logger: logger,
	}
}

// Pulse activates the relay for its duration
func (a *Actuator) Pulse(r Relay) error {
	a.logger.Debug("Activating relay", "relay", r.Name, "duration", r.Duration)

	err := a.Activate(r.Output, r.Duration)
	if err != nil {
		return fmt.Errorf("error while pulsing %s relay. Err: %w", r.Name, err)
	}

	a.logger.Debug("Relay deactivated", "relay", r.Name)
	return nil
}

// Activate drives out High for d, then Low.
// The Low write runs on every exit path (error, panic, interrupted hold) before the lock is released.
func (a *Actuator) Activate(out gpio.Output, d time.Duration) (err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrActuatorClosed
	}
	// Close may have started while this caller waited for the lock
	select {
	case <-a.stop:
		return ErrActuatorClosed
	default:
	}

	defer func() {
		if lowErr := out.SetValue(gpio.Low); lowErr != nil {
			err = errors.Join(err, fmt.Errorf("error while releasing relay. Err: %w", lowErr))
		}
	}()

	if err := out.SetValue(gpio.High); err != nil {
		return fmt.Errorf("error while energizing relay. Err: %w", err)
	}

	a.hold(d)
	return nil
}

// Close interrupts the pulse in flight, waits for its output to be released
// and rejects every pulse after that
func (a *Actuator) Close() {
	a.stopOnce.Do(func() { close(a.stop) })

	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
}

func (a *Actuator) hold(d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-a.stop:
		a.logger.Warn("Relay pulse interrupted by shutdown")
	}
}
