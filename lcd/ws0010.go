// Package lcd drives a WS0010/HD44780-family character/graphic module over a 4-bit
// parallel bus with register select, read/write select and an enable strobe.
//
// Every write is followed by a busy-flag poll of the status register, and every read
// pairs two nibble strobes (high nibble first) into one byte.
package lcd

import (
	"errors"
	"time"

	"callbell/core"
)

// Register selects the controller register addressed by RS.
//
//	| RS | R/W | Function          |
//	|  L |  L  | Write command reg |
//	|  H |  L  | Write data reg    |
//	|  L |  H  | Read status reg   |
//	|  H |  H  | Read data reg     |
type Register uint8

const (
	Command Register = iota
	Data
)

const (
	cmdClear        = 0b00000001
	cmdReturnHome   = 0b00000010
	cmdEntryModeSet = 0b00000110 // increment, no shift
	cmdDisplayOn    = 0b00001100 // display on, cursor off, blink off

	// Function set: 0 0 1 DL N F FT1 FT0
	// DL=0 4-bit, N=1 two lines, F=0 5x8 dots, FT=00 English/Japanese table
	cmdFunctionSet = 0b00101000

	// Mode/power: 0 0 0 1 G/C PWR 1 1, graphic mode with internal power on
	cmdGraphicMode = 0b00011111

	cmdSetGraphicX = 0x80
	cmdSetGraphicY = 0x40

	busyFlag      = 0x80
	syncNibbles   = 5
	nibbleFourBit = 0b0010
)

// ErrBusyTimeout is recorded when the controller never clears its busy flag within
// Config.BusyPollLimit status reads.
var ErrBusyTimeout = errors.New("display busy flag never cleared")

// Pins maps the module's bus lines onto GPIO pins.
type Pins struct {
	RS  core.GPIOPin // register select (command/data)
	RW  core.GPIOPin // read/write select
	EN  core.GPIOPin // enable strobe
	DB4 core.GPIOPin
	DB5 core.GPIOPin
	DB6 core.GPIOPin
	DB7 core.GPIOPin
}

func (p Pins) data() [4]core.GPIOPin {
	return [4]core.GPIOPin{p.DB4, p.DB5, p.DB6, p.DB7}
}

// Config holds the bus timing and geometry parameters.
type Config struct {
	// Width is the number of addressable columns (100 on a 100x16 graphic panel).
	Width int

	// StrobeDelay is held between the enable edges of every nibble.
	StrobeDelay time.Duration

	// PowerOnDelay is waited before the synchronisation nibbles.
	PowerOnDelay time.Duration

	// BusyPollLimit bounds the status reads of one busy wait. Zero spins until the
	// hardware answers, which is the production setting.
	BusyPollLimit int
}

// DefaultConfig returns the timing used on real hardware.
func DefaultConfig() Config {
	return Config{
		Width:        100,
		StrobeDelay:  time.Microsecond,
		PowerOnDelay: 500 * time.Millisecond,
	}
}

// Device is the handle for the display bus. It is not safe for concurrent use; the
// owner of a session holds it exclusively.
type Device struct {
	gpio  core.GPIODriver
	pins  Pins
	cfg   Config
	delay core.DelayFunc

	graphic bool
	err     error
}

// New creates a display handle. Nothing is written until Initialize.
func New(gpio core.GPIODriver, pins Pins, cfg Config) *Device {
	if cfg.Width <= 0 {
		cfg.Width = DefaultConfig().Width
	}
	return &Device{
		gpio:  gpio,
		pins:  pins,
		cfg:   cfg,
		delay: time.Sleep,
	}
}

// SetDelay replaces the delay source used for strobe and power-on timing.
func (d *Device) SetDelay(fn core.DelayFunc) {
	d.delay = fn
}

// Width returns the addressable column count.
func (d *Device) Width() int {
	return d.cfg.Width
}

// Err returns the sticky bus fault, if any. Once set the device ignores all operations.
func (d *Device) Err() error {
	return d.err
}

// Graphic reports whether EnterGraphicMode has been issued.
func (d *Device) Graphic() bool {
	return d.graphic
}

// Initialize configures the bus lines and brings the controller into 4-bit, two-line,
// 5x8 mode with the display on and cursor/blink off, then clears it.
//
// The five zero nibbles before the 4-bit function set resynchronise the controller
// whatever interface state it powered up in.
//
//	Function Set            0 0 1 DL N F FT1 FT0 -> DL=0 N=1 F=0 FT=00
//	Display ON/OFF Control  0 0 0 0 1 D C B      -> D=1 C=0 B=0
func (d *Device) Initialize() error {
	if d.err != nil {
		return d.err
	}

	for _, p := range []core.GPIOPin{d.pins.RS, d.pins.RW, d.pins.EN} {
		d.check(d.gpio.ConfigureOutput(p))
	}
	d.dataOutput()
	for _, p := range []core.GPIOPin{d.pins.RS, d.pins.RW, d.pins.EN, d.pins.DB4, d.pins.DB5, d.pins.DB6, d.pins.DB7} {
		d.setPin(p, false)
	}

	d.wait(d.cfg.PowerOnDelay)

	for i := 0; i < syncNibbles; i++ {
		d.writeNibble(0x00)
	}

	d.writeNibble(nibbleFourBit)
	d.Write(cmdFunctionSet, Command)
	d.Write(cmdDisplayOn, Command)
	d.Write(cmdClear, Command)
	d.Write(cmdReturnHome, Command)
	d.Write(cmdEntryModeSet, Command)

	d.graphic = false
	return d.err
}

// Write sends one byte to the selected register as two nibbles, high first, and
// blocks until the busy flag clears.
func (d *Device) Write(b byte, reg Register) {
	if d.err != nil {
		return
	}

	d.setPin(d.pins.RW, false)
	d.setPin(d.pins.RS, reg == Data)
	d.dataOutput()

	d.writeNibble(b >> 4)
	d.writeNibble(b)

	d.waitReady()
}

// Read returns one byte from the selected register, sampling the high nibble on the
// first strobe and the low nibble on the second. Reading Command returns the status
// register: busy flag in bit 7, address counter below.
func (d *Device) Read(reg Register) byte {
	if d.err != nil {
		return 0
	}

	d.setPin(d.pins.RW, true)
	d.setPin(d.pins.RS, reg == Data)
	d.dataInput()

	v := d.readNibble() << 4
	v |= d.readNibble()
	return v
}

// EnterGraphicMode switches the controller to graphic mode and clears it.
//
// There is no way back: character-mode text after this call is undefined until
// Initialize is run again.
func (d *Device) EnterGraphicMode() {
	d.Write(cmdGraphicMode, Command)
	d.Write(cmdClear, Command)
	d.graphic = true
}

// Clear blanks the display and homes the address counter.
func (d *Device) Clear() {
	d.Write(cmdClear, Command)
}

// WriteText writes text starting at column x of row y, one X/Y address pair followed
// by one data byte per element, advancing x each time.
//
// There is no wrapping. The caller guarantees 0 <= x+len(text) <= Width().
func (d *Device) WriteText(x, y uint8, text []byte) {
	for _, c := range text {
		d.Write(cmdSetGraphicX|x, Command)
		d.Write(cmdSetGraphicY|y, Command)
		d.Write(c, Data)
		x++
	}
}

// waitReady polls the status register until the busy flag clears.
func (d *Device) waitReady() {
	for polls := 0; d.err == nil; polls++ {
		if d.cfg.BusyPollLimit > 0 && polls >= d.cfg.BusyPollLimit {
			core.RecordEvent(core.EvtBusyFault, 0, uint32(polls), 0)
			d.err = ErrBusyTimeout
			core.TryShutdown("display busy flag never cleared")
			return
		}
		if d.Read(Command)&busyFlag == 0 {
			return
		}
	}
}

// writeNibble puts the low four bits of n on DB4..DB7 and pulses EN.
func (d *Device) writeNibble(n byte) {
	for i, p := range d.pins.data() {
		d.setPin(p, (n>>uint(i))&0x01 != 0)
	}

	d.setPin(d.pins.EN, true)
	d.wait(d.cfg.StrobeDelay)
	d.setPin(d.pins.EN, false)
	d.wait(d.cfg.StrobeDelay)
}

// readNibble raises EN, samples DB7..DB4 and drops EN.
func (d *Device) readNibble() byte {
	d.setPin(d.pins.EN, true)
	d.wait(d.cfg.StrobeDelay)

	var n byte
	data := d.pins.data()
	for i := len(data) - 1; i >= 0; i-- {
		n <<= 1
		if v, err := d.gpio.GetPin(data[i]); err != nil {
			d.check(err)
		} else if v {
			n |= 0x01
		}
	}

	d.setPin(d.pins.EN, false)
	d.wait(d.cfg.StrobeDelay)
	return n
}

func (d *Device) dataOutput() {
	for _, p := range d.pins.data() {
		d.check(d.gpio.ConfigureOutput(p))
	}
}

func (d *Device) dataInput() {
	for _, p := range d.pins.data() {
		d.check(d.gpio.ConfigureInput(p))
	}
}

func (d *Device) setPin(pin core.GPIOPin, v bool) {
	d.check(d.gpio.SetPin(pin, v))
}

func (d *Device) check(err error) {
	if err != nil && d.err == nil {
		d.err = err
		core.DebugPrintln("[LCD] bus error: " + err.Error())
	}
}

func (d *Device) wait(dur time.Duration) {
	if dur > 0 && d.delay != nil {
		d.delay(dur)
	}
}
