// Package link adapts byte streams to core.SerialLink.
package link

import (
	"errors"
	"time"

	"tinygo.org/x/drivers"

	"callbell/core"
)

// ErrShortWrite is returned when the port accepted no byte without reporting an error
// for more than the retry budget.
var ErrShortWrite = errors.New("link: port accepted no data")

// writeRetries bounds zero-length writes before SendByte gives up.
const writeRetries = 1000

// UART is a core.SerialLink over a buffered hardware UART such as machine.UART.
type UART struct {
	port  drivers.UART
	delay core.DelayFunc
	idle  time.Duration
	buf   [1]byte
}

// NewUART wraps port. ReceiveByte checks the receive buffer every 100 µs.
func NewUART(port drivers.UART) *UART {
	return &UART{
		port:  port,
		delay: time.Sleep,
		idle:  100 * time.Microsecond,
	}
}

// SetDelay replaces the delay used while waiting for the port.
func (u *UART) SetDelay(fn core.DelayFunc) {
	u.delay = fn
}

// SendByte writes b, retrying while the transmit buffer is full.
func (u *UART) SendByte(b byte) error {
	u.buf[0] = b
	for i := 0; i < writeRetries; i++ {
		n, err := u.port.Write(u.buf[:])
		if err != nil {
			return err
		}
		if n == 1 {
			return nil
		}
		u.delay(u.idle)
	}
	return ErrShortWrite
}

// ByteAvailable reports whether the receive buffer holds a byte.
func (u *UART) ByteAvailable() bool {
	return u.port.Buffered() > 0
}

// ReceiveByte waits for and returns the next received byte.
func (u *UART) ReceiveByte() (byte, error) {
	for {
		if u.port.Buffered() > 0 {
			n, err := u.port.Read(u.buf[:])
			if err != nil {
				return 0, err
			}
			if n == 1 {
				return u.buf[0], nil
			}
		}
		u.delay(u.idle)
	}
}
