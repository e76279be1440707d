package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/pflag"

	"github.com/outjet/garage-api/internal/gpio"
	"github.com/outjet/garage-api/internal/logger"
	"github.com/outjet/garage-api/internal/service/door"
)

const pulseSubject = "garagectl"

// openPins is replaced in tests with fake lines
var openPins = gpio.Open

func runPulse(args []string, stderr io.Writer) error {
	cfg := gpio.Config{
		Driver:        gpio.DriverCdev,
		DownSensorPin: 20,
		UpSensorPin:   21,
		DoorRelayPin:  16,
		BuzzerPin:     19,
	}
	var duration time.Duration
	var logLevel string

	fs := pflag.NewFlagSet("pulse", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.Driver, "gpio-driver", cfg.Driver, "GPIO driver (cdev, mem, fake)")
	fs.StringVar(&cfg.Chip, "gpio-chip", "gpiochip0", "GPIO chip for cdev driver")
	fs.IntVar(&cfg.DownSensorPin, "pin-down-sensor", cfg.DownSensorPin, "Door down sensor line")
	fs.IntVar(&cfg.UpSensorPin, "pin-up-sensor", cfg.UpSensorPin, "Door up sensor line")
	fs.IntVar(&cfg.DoorRelayPin, "pin-door-control", cfg.DoorRelayPin, "Door relay line")
	fs.IntVar(&cfg.BuzzerPin, "pin-buzzer", cfg.BuzzerPin, "Buzzer line")
	fs.DurationVar(&duration, "pulse", 500*time.Millisecond, "Relay pulse duration")
	fs.StringVarP(&logLevel, "log-level", "l", logger.LevelInfo, "Logging level (debug, info, warn, error)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if duration <= 0 {
		return fmt.Errorf("pulse duration must be positive, got %v", duration)
	}

	l, err := logger.NewTextLogger(logLevel)
	if err != nil {
		return err
	}

	pins, err := openPins(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := pins.Close(); err != nil {
			l.Error("Failed to release gpio lines", "error", err)
		}
	}()

	actuator := door.NewActuator(l)
	defer actuator.Close()

	controller := door.NewController(door.Config{PulseDuration: duration}, pins, actuator, nil, l)

	return controller.Toggle(context.Background(), pulseSubject)
}
