// Package gpio opens the four digital lines the garage door is wired to.
//
// Two inputs carry the door-down and door-up position sensors. They are
// requested with the internal pull-up enabled, so a triggered sensor reads as
// Low. Two outputs drive the door-control relay and the buzzer; both start
// Low (inactive).
//
// Drivers:
//   - "cdev": Linux GPIO character device (/dev/gpiochipN)
//   - "mem":  memory mapped /dev/gpiomem (Raspberry Pi only)
//   - "fake": in-memory lines for tests and desktop runs
package gpio

import (
	"errors"
	"fmt"
)

// Line levels
const (
	Low  = 0
	High = 1
)

// Driver names
const (
	DriverCdev = "cdev"
	DriverMem  = "mem"
	DriverFake = "fake"
)

const defaultChip = "gpiochip0"

var ErrNotSupported = errors.New("gpio driver not supported on this platform")

// Input is a digital input line
type Input interface {
	Value() (int, error)
}

// Output is a digital output line
type Output interface {
	SetValue(value int) error
}

// Driver requests lines from the underlying hardware
type Driver interface {
	// Request input line with pull-up bias
	Input(offset int) (Input, error)

	// Request output line, initially Low
	Output(offset int) (Output, error)

	// Release every line requested through the driver
	Close() error
}

// Config holds BCM line offsets and the driver selection
type Config struct {
	Driver        string `yaml:"driver" validate:"omitempty,oneof=cdev mem fake"`
	Chip          string `yaml:"chip"`
	DownSensorPin int    `yaml:"down_sensor_pin" validate:"gte=0,lte=53"`
	UpSensorPin   int    `yaml:"up_sensor_pin" validate:"gte=0,lte=53"`
	DoorRelayPin  int    `yaml:"door_relay_pin" validate:"gte=0,lte=53"`
	BuzzerPin     int    `yaml:"buzzer_pin" validate:"gte=0,lte=53"`
}

// NewDriver returns the driver named in the config
func NewDriver(cfg Config) (Driver, error) {
	switch cfg.Driver {
	case DriverCdev, "":
		chip := cfg.Chip
		if chip == "" {
			chip = defaultChip
		}
		return newCdevDriver(chip)
	case DriverMem:
		return newMemDriver()
	case DriverFake:
		return NewFakeDriver(), nil
	default:
		return nil, fmt.Errorf("unknown gpio driver %q", cfg.Driver)
	}
}

// Pins is the set of lines the service works with.
// It is created once at start and closed on shutdown.
type Pins struct {
	DownSensor Input
	UpSensor   Input
	DoorRelay  Output
	Buzzer     Output

	driver Driver
}

// Open creates the configured driver and requests every line
func Open(cfg Config) (*Pins, error) {
	driver, err := NewDriver(cfg)
	if err != nil {
		return nil, fmt.Errorf("error while opening gpio driver. Err: %w", err)
	}

	pins, err := OpenWith(driver, cfg)
	if err != nil {
		_ = driver.Close()
		return nil, err
	}

	return pins, nil
}

// OpenWith requests every line from the given driver
func OpenWith(driver Driver, cfg Config) (*Pins, error) {
	var err error
	p := &Pins{driver: driver}

	if p.DownSensor, err = driver.Input(cfg.DownSensorPin); err != nil {
		return nil, fmt.Errorf("error while requesting down sensor line %d. Err: %w", cfg.DownSensorPin, err)
	}
	if p.UpSensor, err = driver.Input(cfg.UpSensorPin); err != nil {
		return nil, fmt.Errorf("error while requesting up sensor line %d. Err: %w", cfg.UpSensorPin, err)
	}
	if p.DoorRelay, err = driver.Output(cfg.DoorRelayPin); err != nil {
		return nil, fmt.Errorf("error while requesting door relay line %d. Err: %w", cfg.DoorRelayPin, err)
	}
	if p.Buzzer, err = driver.Output(cfg.BuzzerPin); err != nil {
		return nil, fmt.Errorf("error while requesting buzzer line %d. Err: %w", cfg.BuzzerPin, err)
	}

	return p, nil
}

// Close drives both outputs Low and releases the lines.
// Every step runs even if an earlier one failed.
func (p *Pins) Close() error {
	var errs []error

	for _, out := range []Output{p.DoorRelay, p.Buzzer} {
		if out == nil {
			continue
		}
		if err := out.SetValue(Low); err != nil {
			errs = append(errs, err)
		}
	}

	if err := p.driver.Close(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
