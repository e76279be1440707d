//go:build linux

package gpio

import (
	"fmt"

	rpi "github.com/warthog618/gpio"
)

// Subset of *rpi.Pin the driver uses
type memLine interface {
	Input()
	Output()
	PullUp()
	High()
	Low()
	Read() rpi.Level
}

// memDriver drives BCM pins through /dev/gpiomem.
// The underlying library keeps a single global mapping.
type memDriver struct {
	newLine func(offset int) memLine
}

type memPin struct {
	line memLine
}

func newMemDriver() (*memDriver, error) {
	if err := rpi.Open(); err != nil {
		return nil, fmt.Errorf("error while mapping gpio memory. Err: %w", err)
	}
	return &memDriver{
		newLine: func(offset int) memLine { return rpi.NewPin(offset) },
	}, nil
}

func (d *memDriver) Input(offset int) (Input, error) {
	line := d.newLine(offset)
	line.Input()
	line.PullUp()
	return &memPin{line: line}, nil
}

// Output latches Low before switching the pin to output,
// so a High left in the latch never reaches the relay
func (d *memDriver) Output(offset int) (Output, error) {
	line := d.newLine(offset)
	line.Low()
	line.Output()
	return &memPin{line: line}, nil
}

func (d *memDriver) Close() error {
	return rpi.Close()
}

func (p *memPin) Value() (int, error) {
	if p.line.Read() == rpi.Low {
		return Low, nil
	}
	return High, nil
}

func (p *memPin) SetValue(value int) error {
	if value == Low {
		p.line.Low()
	} else {
		p.line.High()
	}
	return nil
}
