// Package config loads the appliance configuration: bus pins, button, session timing
// and message labels.
package config

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"callbell/catalog"
	"callbell/core"
	"callbell/lcd"
	"callbell/notify"
)

// DisplayConfig describes the display bus wiring and timing.
type DisplayConfig struct {
	RS  string // register select
	RW  string // read/write select
	EN  string // enable strobe
	DB4 string
	DB5 string
	DB6 string
	DB7 string

	Width          int // addressable columns
	StrobeDelayUs  int // held between enable edges
	PowerOnDelayMs int // waited before the sync nibbles
	BusyPollLimit  int // 0 spins until the controller answers
}

// ButtonConfig describes the call button input.
type ButtonConfig struct {
	Pin  string // GPIO pin
	Edge string // "falling", "rising" or "both"
}

// SessionConfig holds the call session timing.
type SessionConfig struct {
	DebounceMs     int
	PollIntervalMs int
	MaxPolls       int
	HoldMs         int
	NotifyByte     int // byte sent to the responder on a press; 0 selects 0x01
}

// MessageConfig holds the message labels. Responses maps a reply code ("1", "2")
// to its label.
type MessageConfig struct {
	Default      string
	IncomingCall string
	NotAvailable string
	Responses    map[string]string
	Row          int
}

// Config is the complete appliance configuration.
type Config struct {
	Display  DisplayConfig
	Button   ButtonConfig
	Session  SessionConfig
	Messages MessageConfig

	StartupDelayMs  int // before display init
	GraphicSettleMs int // after entering graphic mode
	IdleIntervalMs  int // main loop sleep between trigger polls
	Debug           bool
}

// LoadConfig parses a JSON configuration and returns it with defaults applied.
func LoadConfig(jsonData []byte) (*Config, error) {
	var config Config

	err := json.Unmarshal(jsonData, &config)
	if err != nil {
		return nil, err
	}

	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// applyDefaults fills in missing configuration values
func applyDefaults(config *Config) {
	def := DefaultConfig()

	// Display wiring and timing
	d := &config.Display
	if d.RS == "" {
		d.RS = def.Display.RS
	}
	if d.RW == "" {
		d.RW = def.Display.RW
	}
	if d.EN == "" {
		d.EN = def.Display.EN
	}
	if d.DB4 == "" {
		d.DB4 = def.Display.DB4
	}
	if d.DB5 == "" {
		d.DB5 = def.Display.DB5
	}
	if d.DB6 == "" {
		d.DB6 = def.Display.DB6
	}
	if d.DB7 == "" {
		d.DB7 = def.Display.DB7
	}
	if d.Width == 0 {
		d.Width = def.Display.Width
	}
	if d.StrobeDelayUs == 0 {
		d.StrobeDelayUs = def.Display.StrobeDelayUs
	}
	if d.PowerOnDelayMs == 0 {
		d.PowerOnDelayMs = def.Display.PowerOnDelayMs
	}

	// Button
	if config.Button.Pin == "" {
		config.Button.Pin = def.Button.Pin
	}
	if config.Button.Edge == "" {
		config.Button.Edge = def.Button.Edge
	}

	// Session timing
	s := &config.Session
	if s.DebounceMs == 0 {
		s.DebounceMs = def.Session.DebounceMs
	}
	if s.PollIntervalMs == 0 {
		s.PollIntervalMs = def.Session.PollIntervalMs
	}
	if s.MaxPolls == 0 {
		s.MaxPolls = def.Session.MaxPolls
	}
	if s.HoldMs == 0 {
		s.HoldMs = def.Session.HoldMs
	}
	if s.NotifyByte == 0 {
		s.NotifyByte = def.Session.NotifyByte
	}

	// Messages
	m := &config.Messages
	if m.Default == "" {
		m.Default = def.Messages.Default
	}
	if m.IncomingCall == "" {
		m.IncomingCall = def.Messages.IncomingCall
	}
	if m.NotAvailable == "" {
		m.NotAvailable = def.Messages.NotAvailable
	}
	if len(m.Responses) == 0 {
		m.Responses = def.Messages.Responses
	}

	// Start-up
	if config.StartupDelayMs == 0 {
		config.StartupDelayMs = def.StartupDelayMs
	}
	if config.GraphicSettleMs == 0 {
		config.GraphicSettleMs = def.GraphicSettleMs
	}
	if config.IdleIntervalMs == 0 {
		config.IdleIntervalMs = def.IdleIntervalMs
	}
}

// DefaultConfig returns the wiring of the reference board and the stock timing.
func DefaultConfig() *Config {
	return &Config{
		Display: DisplayConfig{
			RS:             "gpio10",
			RW:             "gpio11",
			EN:             "gpio12",
			DB4:            "gpio16",
			DB5:            "gpio17",
			DB6:            "gpio18",
			DB7:            "gpio19",
			Width:          100,
			StrobeDelayUs:  1,
			PowerOnDelayMs: 500,
		},
		Button: ButtonConfig{
			Pin:  "gpio2",
			Edge: "falling",
		},
		Session: SessionConfig{
			DebounceMs:     100,
			PollIntervalMs: 500,
			MaxPolls:       40,
			HoldMs:         20000,
			NotifyByte:     0x01,
		},
		Messages: MessageConfig{
			Default:      "PUSH TO CALL",
			IncomingCall: "CALLING...",
			NotAvailable: "NOT AVAILABLE",
			Responses: map[string]string{
				"1": "COMING NOW",
				"2": "PLEASE WAIT",
			},
		},
		StartupDelayMs:  500,
		GraphicSettleMs: 1000,
		IdleIntervalMs:  10,
	}
}

var (
	ErrDuplicatePin = errors.New("pin assigned twice")
	ErrBadEdge      = errors.New("button edge must be falling, rising or both")
	ErrBadWidth     = errors.New("display width out of range")
	ErrBadTiming    = errors.New("session timing must be positive")
	ErrBadCode      = errors.New("response code must be 0-255")
	ErrBadNotify    = errors.New("notify byte must be 1-255")
	ErrBadRow       = errors.New("message row out of range")
)

// Validate checks the configuration for wiring and range errors.
func (c *Config) Validate() error {
	pins := []struct {
		name, pin string
	}{
		{"display.RS", c.Display.RS},
		{"display.RW", c.Display.RW},
		{"display.EN", c.Display.EN},
		{"display.DB4", c.Display.DB4},
		{"display.DB5", c.Display.DB5},
		{"display.DB6", c.Display.DB6},
		{"display.DB7", c.Display.DB7},
		{"button.pin", c.Button.Pin},
	}
	seen := make(map[core.GPIOPin]string, len(pins))
	for _, p := range pins {
		n, err := ParsePin(p.pin)
		if err != nil {
			return errors.New(p.name + ": " + err.Error())
		}
		if other, dup := seen[n]; dup {
			return errors.New(p.name + " and " + other + ": " + ErrDuplicatePin.Error())
		}
		seen[n] = p.name
	}

	if _, err := ParseEdge(c.Button.Edge); err != nil {
		return err
	}
	if c.Display.Width < 1 || c.Display.Width > 128 {
		return ErrBadWidth
	}
	if c.Messages.Row < 0 || c.Messages.Row > 1 {
		return ErrBadRow
	}
	s := c.Session
	if s.DebounceMs < 0 || s.PollIntervalMs <= 0 || s.MaxPolls <= 0 || s.HoldMs < 0 {
		return ErrBadTiming
	}
	if s.NotifyByte < 1 || s.NotifyByte > 255 {
		return ErrBadNotify
	}
	for key := range c.Messages.Responses {
		code, err := strconv.Atoi(key)
		if err != nil || code < 0 || code > 255 {
			return errors.New(key + ": " + ErrBadCode.Error())
		}
	}
	return nil
}

// ParsePin accepts "gpio12", "GPIO12" or "12".
func ParsePin(s string) (core.GPIOPin, error) {
	digits := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "gpio")
	n, err := strconv.ParseUint(digits, 10, 32)
	if err != nil {
		return 0, errors.New("invalid pin " + strconv.Quote(s))
	}
	return core.GPIOPin(n), nil
}

// ParseEdge maps an edge name onto core.Edge.
func ParseEdge(s string) (core.Edge, error) {
	switch strings.ToLower(s) {
	case "falling":
		return core.EdgeFalling, nil
	case "rising":
		return core.EdgeRising, nil
	case "both":
		return core.EdgeBoth, nil
	}
	return 0, ErrBadEdge
}

// LCDPins returns the display bus wiring. The configuration must be valid.
func (c *Config) LCDPins() lcd.Pins {
	pin := func(s string) core.GPIOPin {
		n, _ := ParsePin(s)
		return n
	}
	return lcd.Pins{
		RS:  pin(c.Display.RS),
		RW:  pin(c.Display.RW),
		EN:  pin(c.Display.EN),
		DB4: pin(c.Display.DB4),
		DB5: pin(c.Display.DB5),
		DB6: pin(c.Display.DB6),
		DB7: pin(c.Display.DB7),
	}
}

// LCDConfig returns the display driver timing.
func (c *Config) LCDConfig() lcd.Config {
	return lcd.Config{
		Width:         c.Display.Width,
		StrobeDelay:   time.Duration(c.Display.StrobeDelayUs) * time.Microsecond,
		PowerOnDelay:  time.Duration(c.Display.PowerOnDelayMs) * time.Millisecond,
		BusyPollLimit: c.Display.BusyPollLimit,
	}
}

// ButtonPin returns the trigger pin and edge. The configuration must be valid.
func (c *Config) ButtonPin() (core.GPIOPin, core.Edge) {
	pin, _ := ParsePin(c.Button.Pin)
	edge, _ := ParseEdge(c.Button.Edge)
	return pin, edge
}

// NotifyConfig returns the session timing.
func (c *Config) NotifyConfig() notify.Config {
	s := c.Session
	return notify.Config{
		Debounce:     time.Duration(s.DebounceMs) * time.Millisecond,
		PollInterval: time.Duration(s.PollIntervalMs) * time.Millisecond,
		MaxPolls:     s.MaxPolls,
		Hold:         time.Duration(s.HoldMs) * time.Millisecond,
		NotifyByte:   byte(s.NotifyByte),
	}
}

// Catalog builds the message catalog laid out for the display width.
func (c *Config) Catalog() *catalog.Catalog {
	row := uint8(c.Messages.Row)
	cat := catalog.New(c.Display.Width)
	cat.Set(catalog.Default, c.Messages.Default, row)
	cat.Set(catalog.IncomingCall, c.Messages.IncomingCall, row)
	cat.Set(catalog.NotAvailable, c.Messages.NotAvailable, row)
	for key, label := range c.Messages.Responses {
		code, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		cat.SetResponse(catalog.ResponseCode(code), label, row)
	}
	return cat
}

// StartupDelay is waited before the display is initialised.
func (c *Config) StartupDelay() time.Duration {
	return time.Duration(c.StartupDelayMs) * time.Millisecond
}

// GraphicSettle is waited after entering graphic mode.
func (c *Config) GraphicSettle() time.Duration {
	return time.Duration(c.GraphicSettleMs) * time.Millisecond
}

// IdleInterval is slept between trigger polls when nothing is pending.
func (c *Config) IdleInterval() time.Duration {
	return time.Duration(c.IdleIntervalMs) * time.Millisecond
}
