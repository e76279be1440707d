package door

import (
	"fmt"

	"github.com/outjet/garage-api/internal/gpio"
)

// SensorReader reads the two position sensors.
// Sensors are active-low: a triggered sensor pulls its line Low.
// There is no debounce and no caching, two calls may disagree while the door moves.
type SensorReader struct {
	down gpio.Input
	up   gpio.Input
}

func NewSensorReader(down gpio.Input, up gpio.Input) *SensorReader {
	return &SensorReader{down: down, up: up}
}

// IsDown reports whether the door-down sensor is triggered
func (s *SensorReader) IsDown() (bool, error) {
	active, err := triggered(s.down)
	if err != nil {
		return false, fmt.Errorf("error while reading down sensor. Err: %w", err)
	}
	return active, nil
}

// IsUp reports whether the door-up sensor is triggered
func (s *SensorReader) IsUp() (bool, error) {
	active, err := triggered(s.up)
	if err != nil {
		return false, fmt.Errorf("error while reading up sensor. Err: %w", err)
	}
	return active, nil
}

func triggered(in gpio.Input) (bool, error) {
	v, err := in.Value()
	if err != nil {
		return false, err
	}
	return v == gpio.Low, nil
}
