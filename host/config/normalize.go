// host/config/normalize.go
package config

import (
	"time"

	"callbell/host/serial"
)

const (
	DefaultDevice        = "/dev/ttyUSB0"
	DefaultCallByte      = 0x01
	DefaultReplyWindowMs = 20000
)

// DefaultCodes returns the reply codes the appliance understands out of the box.
func DefaultCodes() map[int]string {
	return map[int]string{
		1: "COMING NOW",
		2: "PLEASE WAIT",
	}
}

// Normalize fills defaults.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	def := serial.DefaultConfig(DefaultDevice)
	if cfg.Link.Device == "" {
		cfg.Link.Device = def.Device
	}
	if cfg.Link.Baud == 0 {
		cfg.Link.Baud = def.Baud
	}
	if cfg.Link.ReadTimeoutMs == 0 {
		cfg.Link.ReadTimeoutMs = def.ReadTimeout
	}

	r := &cfg.Responder
	if r.CallByte == 0 {
		r.CallByte = DefaultCallByte
	}
	if r.ReplyWindowMs == 0 {
		r.ReplyWindowMs = DefaultReplyWindowMs
	}
	if len(r.Codes) == 0 {
		r.Codes = DefaultCodes()
	}
}

// Serial returns the port settings.
func (c *Config) Serial() *serial.Config {
	return &serial.Config{
		Device:      c.Link.Device,
		Baud:        c.Link.Baud,
		ReadTimeout: c.Link.ReadTimeoutMs,
	}
}

// ReplyWindow is how long a call can still be answered.
func (c *Config) ReplyWindow() time.Duration {
	return time.Duration(c.Responder.ReplyWindowMs) * time.Millisecond
}

// AutoReplyDelay is waited before an automatic reply.
func (c *Config) AutoReplyDelay() time.Duration {
	return time.Duration(c.Responder.AutoReplyDelayMs) * time.Millisecond
}
