//go:build rp2040 || rp2350

package main

import (
	"machine"

	"callbell/core"
)

type pinMode uint8

const (
	modeUnset pinMode = iota
	modeOutput
	modeInput
	modeInputPullUp
	modeInputPullDown
)

// RPGPIODriver implements core.InterruptDriver on the RP2040 GPIO block.
type RPGPIODriver struct {
	// Track the mode of each pin; the display data lines change direction on every
	// busy poll, so a pin is reconfigured whenever the requested mode differs.
	modes map[core.GPIOPin]pinMode
}

// NewRPGPIODriver creates a new RP2040 GPIO driver
func NewRPGPIODriver() *RPGPIODriver {
	return &RPGPIODriver{
		modes: make(map[core.GPIOPin]pinMode),
	}
}

func (d *RPGPIODriver) configure(pin core.GPIOPin, mode pinMode) {
	if d.modes[pin] == mode {
		return
	}
	var pm machine.PinMode
	switch mode {
	case modeOutput:
		pm = machine.PinOutput
	case modeInputPullUp:
		pm = machine.PinInputPullup
	case modeInputPullDown:
		pm = machine.PinInputPulldown
	default:
		pm = machine.PinInput
	}
	d.machinePin(pin).Configure(machine.PinConfig{Mode: pm})
	d.modes[pin] = mode
}

// ConfigureOutput configures a pin as a digital output
func (d *RPGPIODriver) ConfigureOutput(pin core.GPIOPin) error {
	d.configure(pin, modeOutput)
	return nil
}

// ConfigureInput configures a pin as a floating input
func (d *RPGPIODriver) ConfigureInput(pin core.GPIOPin) error {
	d.configure(pin, modeInput)
	return nil
}

func (d *RPGPIODriver) ConfigureInputPullUp(pin core.GPIOPin) error {
	d.configure(pin, modeInputPullUp)
	return nil
}

func (d *RPGPIODriver) ConfigureInputPullDown(pin core.GPIOPin) error {
	d.configure(pin, modeInputPullDown)
	return nil
}

// SetPin sets the pin to high (true) or low (false)
func (d *RPGPIODriver) SetPin(pin core.GPIOPin, value bool) error {
	if d.modes[pin] != modeOutput {
		d.configure(pin, modeOutput)
	}
	d.machinePin(pin).Set(value)
	return nil
}

// GetPin reads the current pin state
func (d *RPGPIODriver) GetPin(pin core.GPIOPin) (bool, error) {
	if d.modes[pin] == modeUnset {
		return false, nil
	}
	return d.machinePin(pin).Get(), nil
}

func (d *RPGPIODriver) ReadPin(pin core.GPIOPin) bool {
	value, _ := d.GetPin(pin)
	return value
}

// SetInterrupt attaches callback to the pin's edge interrupt.
func (d *RPGPIODriver) SetInterrupt(pin core.GPIOPin, edge core.Edge, callback func(core.GPIOPin)) error {
	var change machine.PinChange
	switch edge {
	case core.EdgeRising:
		change = machine.PinRising
	case core.EdgeBoth:
		change = machine.PinRising | machine.PinFalling
	default:
		change = machine.PinFalling
	}
	return d.machinePin(pin).SetInterrupt(change, func(machine.Pin) {
		callback(pin)
	})
}

// machinePin maps a pin number directly onto the GPIO numbering.
func (d *RPGPIODriver) machinePin(pin core.GPIOPin) machine.Pin {
	return machine.Pin(pin)
}
