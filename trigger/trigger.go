// Package trigger arms a single pin edge interrupt and hands qualifying edges to a
// handler running outside interrupt context.
package trigger

import (
	"errors"
	"sync/atomic"

	"callbell/core"
)

// State of the trigger. There is no way back from Armed.
type State uint32

const (
	Idle State = iota
	Armed
)

func (s State) String() string {
	if s == Armed {
		return "armed"
	}
	return "idle"
}

// Handler runs once per service pass while the pending flag is latched. It is
// expected to clear the flag before it returns.
type Handler func()

var (
	ErrArmed     = errors.New("trigger already armed")
	ErrNoHandler = errors.New("trigger handler is nil")
)

// Trigger latches edges on one input pin.
//
// The interrupt callback only sets the pending flag. Service runs the handler from
// the main loop, and keeps running it on every pass until the flag is cleared, the
// way a level-latched interrupt flag re-fires.
type Trigger struct {
	drv  core.InterruptDriver
	pin  core.GPIOPin
	edge core.Edge

	state   uint32
	pending uint32
	count   uint32
	handler Handler
}

// New creates an idle trigger for pin.
func New(drv core.InterruptDriver, pin core.GPIOPin, edge core.Edge) *Trigger {
	return &Trigger{drv: drv, pin: pin, edge: edge}
}

// Pin returns the live edge line.
func (t *Trigger) Pin() core.GPIOPin {
	return t.pin
}

// ReservedPin is the second bit position of the port. It is never configured.
func (t *Trigger) ReservedPin() core.GPIOPin {
	return t.pin + 1
}

// Initialize configures the pin, clears any pending flag and enables the interrupt.
func (t *Trigger) Initialize(h Handler) error {
	if h == nil {
		return ErrNoHandler
	}
	if t.State() == Armed {
		return ErrArmed
	}

	var err error
	if t.edge == core.EdgeRising {
		err = t.drv.ConfigureInputPullDown(t.pin)
	} else {
		err = t.drv.ConfigureInputPullUp(t.pin)
	}
	if err != nil {
		return err
	}

	t.handler = h
	core.Critical(func() {
		t.ClearPending()
		err = t.drv.SetInterrupt(t.pin, t.edge, t.latch)
	})
	if err != nil {
		return err
	}

	atomic.StoreUint32(&t.state, uint32(Armed))
	core.DebugPrintln("[TRIGGER] armed pin " + core.Itoa(int(t.pin)))
	return nil
}

// latch is the interrupt callback.
func (t *Trigger) latch(core.GPIOPin) {
	atomic.StoreUint32(&t.pending, 1)
	atomic.AddUint32(&t.count, 1)
}

// Fire latches an edge as if the pin interrupt had run.
func (t *Trigger) Fire() {
	t.latch(t.pin)
}

// State returns Idle or Armed.
func (t *Trigger) State() State {
	return State(atomic.LoadUint32(&t.state))
}

// Pending reports whether an edge is latched and not yet cleared.
func (t *Trigger) Pending() bool {
	return atomic.LoadUint32(&t.pending) != 0
}

// ClearPending drops the latched flag.
func (t *Trigger) ClearPending() {
	atomic.StoreUint32(&t.pending, 0)
}

// Count returns the number of edges latched since creation.
func (t *Trigger) Count() uint32 {
	return atomic.LoadUint32(&t.count)
}

// Service runs the handler if the trigger is armed and an edge is pending.
// It returns whether the handler ran.
func (t *Trigger) Service() bool {
	if t.State() != Armed || !t.Pending() {
		return false
	}
	t.handler()
	return true
}
