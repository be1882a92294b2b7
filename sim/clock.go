package sim

import (
	"sync"
	"time"
)

type clockAlarm struct {
	at time.Duration
	fn func()
}

// Clock is a fake delay source. Sleep returns immediately and advances virtual time.
type Clock struct {
	mu      sync.Mutex
	elapsed time.Duration
	calls   []time.Duration
	alarms  []clockAlarm
}

// NewClock creates a clock at virtual time zero.
func NewClock() *Clock {
	return &Clock{}
}

// Sleep advances virtual time by d and runs alarms that became due.
// It has the core.DelayFunc signature.
func (c *Clock) Sleep(d time.Duration) {
	c.mu.Lock()
	c.elapsed += d
	c.calls = append(c.calls, d)
	now := c.elapsed
	var due []func()
	kept := c.alarms[:0]
	for _, a := range c.alarms {
		if a.at <= now {
			due = append(due, a.fn)
		} else {
			kept = append(kept, a)
		}
	}
	c.alarms = kept
	c.mu.Unlock()

	for _, fn := range due {
		fn()
	}
}

// At schedules fn to run once virtual time reaches t.
func (c *Clock) At(t time.Duration, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alarms = append(c.alarms, clockAlarm{at: t, fn: fn})
}

// Elapsed returns the total virtual time slept.
func (c *Clock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsed
}

// Count returns how many sleeps of exactly d were requested.
func (c *Clock) Count(d time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, call := range c.calls {
		if call == d {
			n++
		}
	}
	return n
}

// Calls returns every requested sleep in order.
func (c *Clock) Calls() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.calls))
	copy(out, c.calls)
	return out
}
