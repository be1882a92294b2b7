package serial

import (
	"errors"
	"io"

	"callbell/core"
)

// Port represents a serial port to the wireless module
// This abstraction allows for different implementations:
// - Native serial (using github.com/tarm/serial)
// - Pipes and mocks for testing
type Port interface {
	io.ReadWriteCloser

	// Flush discards unread input and unsent output
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/serial0", "/dev/ttyUSB0", "COM3")
	Device string

	// Baud rate of the wireless module
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultConfig returns the link settings of the call bell radio
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        core.DefaultBaud,
		ReadTimeout: 100,
	}
}

var (
	ErrNoDevice = errors.New("serial device not set")
	ErrBadBaud  = errors.New("baud rate must be positive")
)

// Validate checks that the configuration can be opened
func (c *Config) Validate() error {
	if c.Device == "" {
		return ErrNoDevice
	}
	if c.Baud <= 0 {
		return ErrBadBaud
	}
	if c.ReadTimeout < 0 {
		return errors.New("read timeout must not be negative")
	}
	return nil
}
