package gpio

import (
	"sync"
	"time"
)

// FakeDriver hands out in-memory lines.
// Used by tests and by the "fake" driver for runs without hardware.
type FakeDriver struct {
	mu      sync.Mutex
	inputs  map[int]*FakeInput
	outputs map[int]*FakeOutput
	closed  bool
}

func NewFakeDriver() *FakeDriver {
	return &FakeDriver{
		inputs:  make(map[int]*FakeInput),
		outputs: make(map[int]*FakeOutput),
	}
}

func (d *FakeDriver) Input(offset int) (Input, error) {
	return d.FakeInput(offset), nil
}

func (d *FakeDriver) Output(offset int) (Output, error) {
	return d.FakeOutput(offset), nil
}

func (d *FakeDriver) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

// Closed reports whether Close was called
func (d *FakeDriver) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// FakeInput returns the input line at offset, creating it pulled up
func (d *FakeDriver) FakeInput(offset int) *FakeInput {
	d.mu.Lock()
	defer d.mu.Unlock()

	in, ok := d.inputs[offset]
	if !ok {
		in = NewFakeInput(High)
		d.inputs[offset] = in
	}
	return in
}

// FakeOutput returns the output line at offset, creating it Low
func (d *FakeDriver) FakeOutput(offset int) *FakeOutput {
	d.mu.Lock()
	defer d.mu.Unlock()

	out, ok := d.outputs[offset]
	if !ok {
		out = &FakeOutput{}
		d.outputs[offset] = out
	}
	return out
}

// FakeInput is an input line whose level is set by the test
type FakeInput struct {
	mu    sync.Mutex
	level int
	err   error
	reads int
}

func NewFakeInput(level int) *FakeInput {
	return &FakeInput{level: level}
}

func (in *FakeInput) Value() (int, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	in.reads++
	if in.err != nil {
		return 0, in.err
	}
	return in.level, nil
}

func (in *FakeInput) Set(level int) {
	in.mu.Lock()
	in.level = level
	in.mu.Unlock()
}

// Fail makes every following read return err (nil to recover)
func (in *FakeInput) Fail(err error) {
	in.mu.Lock()
	in.err = err
	in.mu.Unlock()
}

// Reads returns the number of Value calls
func (in *FakeInput) Reads() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.reads
}

// Transition is a single write to a FakeOutput
type Transition struct {
	Value int
	At    time.Time
}

// FakeOutput is an output line that records every write
type FakeOutput struct {
	mu      sync.Mutex
	value   int
	history []Transition
	err     error
	onSet   func(value int)
}

func NewFakeOutput() *FakeOutput {
	return &FakeOutput{}
}

func (out *FakeOutput) SetValue(value int) error {
	out.mu.Lock()
	if out.err != nil && value == High {
		err := out.err
		out.mu.Unlock()
		return err
	}
	out.value = value
	out.history = append(out.history, Transition{Value: value, At: time.Now()})
	onSet := out.onSet
	out.mu.Unlock()

	if onSet != nil {
		onSet(value)
	}
	return nil
}

// Value returns the last written level
func (out *FakeOutput) Value() int {
	out.mu.Lock()
	defer out.mu.Unlock()
	return out.value
}

// History returns a copy of every write
func (out *FakeOutput) History() []Transition {
	out.mu.Lock()
	defer out.mu.Unlock()
	return append([]Transition(nil), out.history...)
}

// Pulses returns the number of High writes
func (out *FakeOutput) Pulses() int {
	out.mu.Lock()
	defer out.mu.Unlock()

	n := 0
	for _, t := range out.history {
		if t.Value == High {
			n++
		}
	}
	return n
}

// FailHigh makes writes of High return err; Low writes still succeed
func (out *FakeOutput) FailHigh(err error) {
	out.mu.Lock()
	out.err = err
	out.mu.Unlock()
}

// OnSet registers a hook called after every successful write
func (out *FakeOutput) OnSet(fn func(value int)) {
	out.mu.Lock()
	out.onSet = fn
	out.mu.Unlock()
}
