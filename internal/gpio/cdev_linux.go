//go:build linux

package gpio

import (
	"errors"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

const consumer = "garage-api"

// cdevDriver requests lines from the GPIO character device
type cdevDriver struct {
	chip string

	mu    sync.Mutex
	lines []*gpiocdev.Line
}

func newCdevDriver(chip string) (*cdevDriver, error) {
	return &cdevDriver{chip: chip}, nil
}

func (d *cdevDriver) Input(offset int) (Input, error) {
	line, err := gpiocdev.RequestLine(d.chip, offset,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, err
	}

	d.track(line)
	return line, nil
}

func (d *cdevDriver) Output(offset int) (Output, error) {
	line, err := gpiocdev.RequestLine(d.chip, offset,
		gpiocdev.AsOutput(Low),
		gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, err
	}

	d.track(line)
	return line, nil
}

func (d *cdevDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error
	for _, line := range d.lines {
		if err := line.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	d.lines = nil

	return errors.Join(errs...)
}

func (d *cdevDriver) track(line *gpiocdev.Line) {
	d.mu.Lock()
	d.lines = append(d.lines, line)
	d.mu.Unlock()
}
