// Package sim provides in-memory hardware for exercising the call bell without a board:
// a GPIO bank with edge interrupts, a pin-level model of the WS0010 display controller,
// a scripted serial link and a fake clock.
package sim

import (
	"fmt"
	"sync"

	"callbell/core"
)

// Peripheral observes level changes on board output pins.
type Peripheral interface {
	PinChanged(pin core.GPIOPin, level bool)
}

type pull int8

const (
	pullNone pull = iota
	pullUp
	pullDown
)

type pinState struct {
	configured bool
	output     bool
	level      bool // output latch
	pull       pull
	driven     bool // external source drives the input
	driveLevel bool

	irq     func(core.GPIOPin)
	irqEdge core.Edge
}

// Board is a simulated GPIO bank. It implements core.GPIODriver and core.InterruptDriver.
type Board struct {
	mu          sync.Mutex
	pins        map[core.GPIOPin]*pinState
	peripherals []Peripheral
}

// NewBoard creates an empty board with every pin unconfigured.
func NewBoard() *Board {
	return &Board{
		pins: make(map[core.GPIOPin]*pinState),
	}
}

// Attach registers a peripheral to be told about output changes.
func (b *Board) Attach(p Peripheral) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.peripherals = append(b.peripherals, p)
}

func (b *Board) pin(pin core.GPIOPin) *pinState {
	ps, ok := b.pins[pin]
	if !ok {
		ps = &pinState{}
		b.pins[pin] = ps
	}
	return ps
}

// effective returns the level seen when reading ps. Caller holds b.mu.
func (ps *pinState) effective() bool {
	if ps.output {
		return ps.level
	}
	if ps.driven {
		return ps.driveLevel
	}
	return ps.pull == pullUp
}

func (b *Board) configureInput(pin core.GPIOPin, p pull) error {
	b.mu.Lock()
	ps := b.pin(pin)
	before := ps.effective()
	ps.configured = true
	ps.output = false
	ps.pull = p
	after := ps.effective()
	cb := b.edgeCallback(ps, before, after)
	b.mu.Unlock()

	if cb != nil {
		cb(pin)
	}
	return nil
}

// ConfigureOutput configures a pin as a digital output
func (b *Board) ConfigureOutput(pin core.GPIOPin) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	ps := b.pin(pin)
	ps.configured = true
	ps.output = true
	return nil
}

// ConfigureInput configures a pin as a floating input
func (b *Board) ConfigureInput(pin core.GPIOPin) error {
	return b.configureInput(pin, pullNone)
}

// ConfigureInputPullUp configures a pin as an input with pull-up
func (b *Board) ConfigureInputPullUp(pin core.GPIOPin) error {
	return b.configureInput(pin, pullUp)
}

// ConfigureInputPullDown configures a pin as an input with pull-down
func (b *Board) ConfigureInputPullDown(pin core.GPIOPin) error {
	return b.configureInput(pin, pullDown)
}

// SetPin drives an output pin and notifies attached peripherals on a change.
func (b *Board) SetPin(pin core.GPIOPin, value bool) error {
	b.mu.Lock()
	ps := b.pin(pin)
	if !ps.output {
		b.mu.Unlock()
		return fmt.Errorf("sim: pin %d is not an output", pin)
	}
	changed := ps.level != value
	ps.level = value
	peripherals := b.peripherals
	b.mu.Unlock()

	if changed {
		for _, p := range peripherals {
			p.PinChanged(pin, value)
		}
	}
	return nil
}

// GetPin reads the current pin state
func (b *Board) GetPin(pin core.GPIOPin) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ps, ok := b.pins[pin]
	if !ok || !ps.configured {
		return false, fmt.Errorf("sim: pin %d is not configured", pin)
	}
	return ps.effective(), nil
}

// ReadPin reads the current pin state, reporting low on error
func (b *Board) ReadPin(pin core.GPIOPin) bool {
	v, _ := b.GetPin(pin)
	return v
}

// SetInterrupt registers callback for edges on an input pin.
func (b *Board) SetInterrupt(pin core.GPIOPin, edge core.Edge, callback func(core.GPIOPin)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	ps := b.pin(pin)
	if ps.output {
		return fmt.Errorf("sim: pin %d is an output", pin)
	}
	ps.irq = callback
	ps.irqEdge = edge
	return nil
}

// edgeCallback returns the interrupt callback to run for a level change, if any.
// Caller holds b.mu.
func (b *Board) edgeCallback(ps *pinState, before, after bool) func(core.GPIOPin) {
	if ps.irq == nil || ps.output || before == after {
		return nil
	}
	switch ps.irqEdge {
	case core.EdgeFalling:
		if before && !after {
			return ps.irq
		}
	case core.EdgeRising:
		if !before && after {
			return ps.irq
		}
	case core.EdgeBoth:
		return ps.irq
	}
	return nil
}

// Drive makes an external source hold an input pin at level.
func (b *Board) Drive(pin core.GPIOPin, level bool) {
	b.mu.Lock()
	ps := b.pin(pin)
	before := ps.effective()
	ps.driven = true
	ps.driveLevel = level
	after := ps.effective()
	cb := b.edgeCallback(ps, before, after)
	b.mu.Unlock()

	if cb != nil {
		cb(pin)
	}
}

// Release stops driving an input pin, leaving it to its pull resistor.
func (b *Board) Release(pin core.GPIOPin) {
	b.mu.Lock()
	ps := b.pin(pin)
	before := ps.effective()
	ps.driven = false
	after := ps.effective()
	cb := b.edgeCallback(ps, before, after)
	b.mu.Unlock()

	if cb != nil {
		cb(pin)
	}
}

// Press simulates a push button wired to ground: the pin is pulled low, then released.
func (b *Board) Press(pin core.GPIOPin) {
	b.Drive(pin, false)
	b.Release(pin)
}

// IsOutput reports whether pin is currently configured as an output.
func (b *Board) IsOutput(pin core.GPIOPin) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	ps, ok := b.pins[pin]
	return ok && ps.output
}
