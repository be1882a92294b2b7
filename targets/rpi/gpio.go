//go:build linux && !tinygo

package main

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"

	"callbell/core"
)

// PeriphGPIODriver implements core.InterruptDriver on top of periph.io.
type PeriphGPIODriver struct {
	mu    sync.Mutex
	pins  map[core.GPIOPin]gpio.PinIO
	pulls map[core.GPIOPin]gpio.Pull
	out   map[core.GPIOPin]bool
}

// NewPeriphGPIODriver creates a driver. host.Init must have run.
func NewPeriphGPIODriver() *PeriphGPIODriver {
	return &PeriphGPIODriver{
		pins:  make(map[core.GPIOPin]gpio.PinIO),
		pulls: make(map[core.GPIOPin]gpio.Pull),
		out:   make(map[core.GPIOPin]bool),
	}
}

func (d *PeriphGPIODriver) lookup(pin core.GPIOPin) (gpio.PinIO, error) {
	if p, ok := d.pins[pin]; ok {
		return p, nil
	}
	p := gpioreg.ByName(fmt.Sprintf("GPIO%d", pin))
	if p == nil {
		return nil, fmt.Errorf("gpio %d not found", pin)
	}
	d.pins[pin] = p
	return p, nil
}

func (d *PeriphGPIODriver) input(pin core.GPIOPin, pull gpio.Pull) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, err := d.lookup(pin)
	if err != nil {
		return err
	}
	if err := p.In(pull, gpio.NoEdge); err != nil {
		return fmt.Errorf("gpio %d input: %w", pin, err)
	}
	d.pulls[pin] = pull
	d.out[pin] = false
	return nil
}

func (d *PeriphGPIODriver) ConfigureOutput(pin core.GPIOPin) error {
	return d.SetPin(pin, false)
}

func (d *PeriphGPIODriver) ConfigureInput(pin core.GPIOPin) error {
	return d.input(pin, gpio.Float)
}

func (d *PeriphGPIODriver) ConfigureInputPullUp(pin core.GPIOPin) error {
	return d.input(pin, gpio.PullUp)
}

func (d *PeriphGPIODriver) ConfigureInputPullDown(pin core.GPIOPin) error {
	return d.input(pin, gpio.PullDown)
}

// SetPin drives the pin, switching it to output if needed.
func (d *PeriphGPIODriver) SetPin(pin core.GPIOPin, value bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, err := d.lookup(pin)
	if err != nil {
		return err
	}
	if err := p.Out(gpio.Level(value)); err != nil {
		return fmt.Errorf("gpio %d output: %w", pin, err)
	}
	d.out[pin] = true
	return nil
}

func (d *PeriphGPIODriver) GetPin(pin core.GPIOPin) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, err := d.lookup(pin)
	if err != nil {
		return false, err
	}
	return bool(p.Read()), nil
}

func (d *PeriphGPIODriver) ReadPin(pin core.GPIOPin) bool {
	v, _ := d.GetPin(pin)
	return v
}

// SetInterrupt enables edge detection on an input pin and calls callback from a
// watcher goroutine for every detected edge.
func (d *PeriphGPIODriver) SetInterrupt(pin core.GPIOPin, edge core.Edge, callback func(core.GPIOPin)) error {
	d.mu.Lock()
	p, err := d.lookup(pin)
	if err != nil {
		d.mu.Unlock()
		return err
	}
	var e gpio.Edge
	switch edge {
	case core.EdgeRising:
		e = gpio.RisingEdge
	case core.EdgeBoth:
		e = gpio.BothEdges
	default:
		e = gpio.FallingEdge
	}
	err = p.In(d.pulls[pin], e)
	d.mu.Unlock()
	if err != nil {
		return fmt.Errorf("gpio %d edge: %w", pin, err)
	}

	// WaitForEdge(-1) only returns false once the pin is halted.
	go func() {
		for p.WaitForEdge(-1) {
			callback(pin)
		}
	}()
	return nil
}
