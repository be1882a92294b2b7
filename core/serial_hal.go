package core

import "time"

// SerialLink is the byte-level point-to-point transport to the remote responder.
// The link runs 8-bit frames at a fixed baud rate; framing and parity errors are
// not modelled, so errors returned here only mean the byte was lost.
type SerialLink interface {
	// SendByte blocks until the hardware accepts b.
	SendByte(b byte) error

	// ByteAvailable reports whether a received byte is waiting. Never blocks.
	ByteAvailable() bool

	// ReceiveByte blocks until a byte is available and returns it.
	ReceiveByte() (byte, error)
}

// DelayFunc blocks the caller for d.
// Firmware paths use time.Sleep; simulators substitute a fake clock.
type DelayFunc func(d time.Duration)

// DefaultBaud is the link rate of the wireless module.
const DefaultBaud = 9600
