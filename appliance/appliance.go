// Package appliance wires the display, trigger and notification machine together
// and runs the start-up sequence and main loop.
package appliance

import (
	"context"
	"errors"
	"time"

	"callbell/appliance/config"
	"callbell/core"
	"callbell/lcd"
	"callbell/notify"
	"callbell/trigger"
)

// Appliance coordinates all call bell components
type Appliance struct {
	config *config.Config

	display *lcd.Device
	trigger *trigger.Trigger
	machine *notify.Machine
	delay   core.DelayFunc

	// Status
	initialized bool
	running     bool
}

// NewAppliance creates an appliance from JSON configuration
func NewAppliance(configData []byte) (*Appliance, error) {
	cfg, err := config.LoadConfig(configData)
	if err != nil {
		return nil, err
	}

	return NewApplianceWithConfig(cfg)
}

// NewApplianceWithConfig creates an appliance with an existing config
func NewApplianceWithConfig(cfg *config.Config) (*Appliance, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Appliance{
		config: cfg,
		delay:  time.Sleep,
	}, nil
}

// SetDelay replaces the delay source for every component. Call before Initialize.
func (a *Appliance) SetDelay(fn core.DelayFunc) {
	a.delay = fn
}

// Initialize builds the components on the given hardware. Nothing touches the bus
// until Start.
func (a *Appliance) Initialize(gpio core.InterruptDriver, link core.SerialLink) error {
	if a.initialized {
		return errors.New("already initialized")
	}

	a.display = lcd.New(gpio, a.config.LCDPins(), a.config.LCDConfig())
	a.display.SetDelay(a.delay)

	m, err := notify.New(a.display, link, a.config.Catalog(), a.config.NotifyConfig())
	if err != nil {
		return err
	}
	m.SetDelay(a.delay)
	a.machine = m

	pin, edge := a.config.ButtonPin()
	a.trigger = trigger.New(gpio, pin, edge)
	a.machine.SetTrigger(a.trigger)

	core.SetDebugEnabled(a.config.Debug)
	a.initialized = true
	return nil
}

// Start runs the power-on sequence: wait, initialise the display, switch to graphic
// mode, let it settle, arm the button and show the default message.
func (a *Appliance) Start() error {
	if !a.initialized {
		return errors.New("appliance not initialized")
	}
	if a.running {
		return errors.New("appliance already running")
	}

	a.delay(a.config.StartupDelay())

	if err := a.display.Initialize(); err != nil {
		return err
	}
	a.display.EnterGraphicMode()
	a.delay(a.config.GraphicSettle())
	if err := a.display.Err(); err != nil {
		return err
	}

	if err := a.trigger.Initialize(a.handleEdge); err != nil {
		return err
	}
	a.machine.Start()

	a.running = true
	core.DebugPrintln("[APPLIANCE] ready")
	return nil
}

// handleEdge is the trigger handler.
func (a *Appliance) handleEdge() {
	s, ok := a.machine.HandleEdge()
	if !ok {
		return
	}
	core.DebugPrintln("[APPLIANCE] session " + core.Itoa(int(s.ID)) + " " + s.Outcome.Kind.String() +
		" after " + core.Itoa(s.Ticks) + " polls")
}

// Poll services the trigger once and reports whether a session ran.
func (a *Appliance) Poll() bool {
	if !a.running {
		return false
	}
	return a.trigger.Service()
}

// Run polls the trigger until ctx is cancelled, sleeping between idle passes.
func (a *Appliance) Run(ctx context.Context) error {
	if !a.running {
		return errors.New("appliance not running")
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if !a.Poll() {
			a.delay(a.config.IdleInterval())
		}
	}
}

// Stop halts servicing. A running session is not interrupted.
func (a *Appliance) Stop() {
	a.running = false
}

// IsRunning returns whether the appliance is servicing the button
func (a *Appliance) IsRunning() bool {
	return a.running
}

// Display returns the display driver.
func (a *Appliance) Display() *lcd.Device {
	return a.display
}

// Trigger returns the button trigger.
func (a *Appliance) Trigger() *trigger.Trigger {
	return a.trigger
}

// Machine returns the notification machine.
func (a *Appliance) Machine() *notify.Machine {
	return a.machine
}

// Config returns the configuration in use.
func (a *Appliance) Config() *config.Config {
	return a.config
}
