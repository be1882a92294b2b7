package sim

import (
	"strings"
	"sync"

	"callbell/core"
)

// GridWidth is the number of addressable columns per row kept by the model.
const GridWidth = 128

// ControllerPins maps the controller's bus lines onto board pins.
type ControllerPins struct {
	RS, RW, EN core.GPIOPin
	DB         [4]core.GPIOPin // DB4..DB7
}

// Controller is a pin-level model of a WS0010 OLED controller (HD44780 compatible
// instruction set plus graphic mode) wired in 4-bit mode.
//
// After five consecutive zero nibbles on the command register the interface falls back
// to aligned 8-bit mode, which is what lets the host synchronise regardless of the
// power-on state.
type Controller struct {
	board *Board
	pins  ControllerPins

	mu sync.Mutex

	// interface state
	fourBit     bool
	pendingHigh bool
	high        byte
	zeroRun     int
	readPhase   int
	readLatch   byte

	// busy modelling
	busyReads int
	busyLeft  int
	stuck     bool

	// instruction state
	twoLine   bool
	font5x10  bool
	fontTable byte
	displayOn bool
	cursor    bool
	blink     bool
	increment bool
	shift     bool
	graphic   bool
	power     bool
	addr      byte
	cgram     bool
	gx, gy    byte

	grid     [2][GridWidth]byte
	cgramMem [64]byte
	commands []byte
}

// NewController attaches a controller model to board. The model powers up in 8-bit
// mode with one busy status read after every instruction.
func NewController(board *Board, pins ControllerPins) *Controller {
	c := &Controller{
		board:     board,
		pins:      pins,
		busyReads: 1,
		increment: true,
	}
	board.Attach(c)
	return c
}

// SetBusyReads sets how many status reads report busy after each instruction.
func (c *Controller) SetBusyReads(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busyReads = n
}

// SetStuck makes the busy flag stay set forever, as with a disconnected panel.
func (c *Controller) SetStuck(stuck bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stuck = stuck
}

// Scramble puts the bus interface in an arbitrary post-power-on state: 4-bit mode with
// an optional half-received byte.
func (c *Controller) Scramble(fourBit, pendingHigh bool, high byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fourBit = fourBit
	c.pendingHigh = pendingHigh
	c.high = high & 0x0F
	c.displayOn = true
	c.cursor = true
	c.blink = true
	c.graphic = true
}

// PinChanged implements Peripheral.
func (c *Controller) PinChanged(pin core.GPIOPin, level bool) {
	if pin != c.pins.EN {
		return
	}
	read := c.board.ReadPin(c.pins.RW)
	rs := c.board.ReadPin(c.pins.RS)

	if read {
		if level {
			c.presentNibble(rs)
		} else {
			c.finishReadStrobe()
		}
		return
	}

	if !level {
		var n byte
		for i, p := range c.pins.DB {
			if c.board.ReadPin(p) {
				n |= 1 << uint(i)
			}
		}
		c.nibble(n, rs)
	}
}

// presentNibble drives DB4..DB7 with the next nibble of a register read.
func (c *Controller) presentNibble(rs bool) {
	c.mu.Lock()
	if c.readPhase == 0 {
		if rs {
			c.readLatch = c.readData()
		} else {
			c.readLatch = c.status()
		}
	}
	n := c.readLatch >> 4
	if c.readPhase == 1 {
		n = c.readLatch & 0x0F
	}
	c.mu.Unlock()

	for i, p := range c.pins.DB {
		c.board.Drive(p, n&(1<<uint(i)) != 0)
	}
}

func (c *Controller) finishReadStrobe() {
	c.mu.Lock()
	c.readPhase ^= 1
	done := c.readPhase == 0
	if done && c.busyLeft > 0 && !c.stuck {
		c.busyLeft--
	}
	c.mu.Unlock()

	if done {
		for _, p := range c.pins.DB {
			c.board.Release(p)
		}
	}
}

func (c *Controller) status() byte {
	var s byte
	if c.stuck || c.busyLeft > 0 {
		s |= 0x80
	}
	if c.graphic {
		return s | (c.gx & 0x7F)
	}
	return s | (c.addr & 0x7F)
}

func (c *Controller) readData() byte {
	var v byte
	if c.graphic {
		v = c.grid[c.gy&1][c.gx%GridWidth]
		c.gx++
		return v
	}
	if c.cgram {
		v = c.cgramMem[c.addr&0x3F]
	} else {
		v = c.grid[c.ddramRow()][c.addr&0x3F]
	}
	c.advance()
	return v
}

func (c *Controller) nibble(n byte, rs bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !rs && n == 0 {
		c.zeroRun++
		if c.zeroRun >= 5 {
			c.zeroRun = 0
			c.fourBit = false
			c.pendingHigh = false
			return
		}
	} else {
		c.zeroRun = 0
	}

	if !c.fourBit {
		c.execute(n<<4, rs)
		return
	}
	if !c.pendingHigh {
		c.high = n
		c.pendingHigh = true
		return
	}
	c.pendingHigh = false
	c.execute(c.high<<4|n, rs)
}

func (c *Controller) execute(b byte, rs bool) {
	if rs {
		c.writeData(b)
	} else {
		c.instruction(b)
	}
	c.busyLeft = c.busyReads
}

func (c *Controller) instruction(b byte) {
	if b == 0 {
		return
	}
	c.commands = append(c.commands, b)

	switch {
	case b&0x80 != 0:
		if c.graphic {
			c.gx = b & 0x7F
		} else {
			c.addr = b & 0x7F
			c.cgram = false
		}
	case b&0x40 != 0:
		if c.graphic {
			c.gy = b & 0x01
		} else {
			c.addr = b & 0x3F
			c.cgram = true
		}
	case b&0x20 != 0:
		c.fourBit = b&0x10 == 0
		c.pendingHigh = false
		c.twoLine = b&0x08 != 0
		c.font5x10 = b&0x04 != 0
		c.fontTable = b & 0x03
	case b&0x10 != 0:
		if b&0x03 == 0x03 {
			c.graphic = b&0x08 != 0
			c.power = b&0x04 != 0
		} else if b&0x08 == 0 {
			if b&0x04 != 0 {
				c.addr++
			} else {
				c.addr--
			}
		}
	case b&0x08 != 0:
		c.displayOn = b&0x04 != 0
		c.cursor = b&0x02 != 0
		c.blink = b&0x01 != 0
	case b&0x04 != 0:
		c.increment = b&0x02 != 0
		c.shift = b&0x01 != 0
	case b&0x02 != 0:
		c.addr, c.gx, c.gy = 0, 0, 0
		c.cgram = false
	case b&0x01 != 0:
		c.grid = [2][GridWidth]byte{}
		c.addr, c.gx, c.gy = 0, 0, 0
		c.cgram = false
		c.increment = true
	}
}

func (c *Controller) writeData(b byte) {
	if c.graphic {
		c.grid[c.gy&1][c.gx%GridWidth] = b
		c.gx++
		return
	}
	if c.cgram {
		c.cgramMem[c.addr&0x3F] = b
	} else {
		c.grid[c.ddramRow()][c.addr&0x3F] = b
	}
	c.advance()
}

func (c *Controller) ddramRow() int {
	if c.addr >= 0x40 {
		return 1
	}
	return 0
}

func (c *Controller) advance() {
	if c.increment {
		c.addr++
	} else {
		c.addr--
	}
}

// Row returns a copy of row y (0 or 1).
func (c *Controller) Row(y int) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]byte, GridWidth)
	copy(out, c.grid[y&1][:])
	return out
}

// At returns the byte stored at column x of row y.
func (c *Controller) At(x, y int) byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.grid[y&1][x%GridWidth]
}

// Blank reports whether every cell of the display memory is zero.
func (c *Controller) Blank() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.grid == [2][GridWidth]byte{}
}

// FourBit reports whether the bus interface is in 4-bit mode.
func (c *Controller) FourBit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fourBit
}

// TwoLine reports the N bit of the last function set.
func (c *Controller) TwoLine() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.twoLine
}

// Font5x10 reports the F bit of the last function set.
func (c *Controller) Font5x10() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.font5x10
}

// DisplayOn reports whether the panel is switched on.
func (c *Controller) DisplayOn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.displayOn
}

func (c *Controller) Cursor() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

func (c *Controller) Blink() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blink
}

// Graphic reports whether graphic mode is selected.
func (c *Controller) Graphic() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.graphic
}

func (c *Controller) Increment() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.increment
}

func (c *Controller) Shift() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shift
}

// Commands returns every instruction byte executed so far.
func (c *Controller) Commands() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]byte, len(c.commands))
	copy(out, c.commands)
	return out
}

// ResetCommands clears the instruction log.
func (c *Controller) ResetCommands() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands = c.commands[:0]
}

// Dump renders the first width columns of graphic memory as text, one line per pixel row.
// Bit 0 of each column byte is the top pixel.
func (c *Controller) Dump(width int) string {
	if width > GridWidth {
		width = GridWidth
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var b strings.Builder
	for y := 0; y < 2; y++ {
		for bit := uint(0); bit < 8; bit++ {
			for x := 0; x < width; x++ {
				if c.grid[y][x]&(1<<bit) != 0 {
					b.WriteByte('#')
				} else {
					b.WriteByte('.')
				}
			}
			b.WriteByte('\n')
		}
	}
	return b.String()
}
