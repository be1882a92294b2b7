// Package notify runs the call session triggered by a button press: debounce, send
// the call byte, wait a bounded number of polls for a one-byte reply, show the
// outcome, then return the display to its default message.
package notify

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"callbell/catalog"
	"callbell/core"
)

// Display is the part of the display driver a session needs.
type Display interface {
	Clear()
	WriteText(x, y uint8, text []byte)
}

// FlagClearer clears the trigger's latched interrupt flag.
type FlagClearer interface {
	ClearPending()
}

// EdgeCounter is implemented by triggers that count latched edges. When the
// trigger provides it, edges latched during a session are counted as dropped.
type EdgeCounter interface {
	Count() uint32
}

// Config holds the session timing.
type Config struct {
	Debounce     time.Duration
	PollInterval time.Duration
	MaxPolls     int
	Hold         time.Duration
	NotifyByte   byte
}

// DefaultConfig returns 100 ms debounce, 40 polls every 500 ms and a 20 s hold.
func DefaultConfig() Config {
	return Config{
		Debounce:     100 * time.Millisecond,
		PollInterval: 500 * time.Millisecond,
		MaxPolls:     40,
		Hold:         20 * time.Second,
		NotifyByte:   0x01,
	}
}

var ErrMissingMessage = errors.New("catalog has no message for a fixed message id")

// Machine owns the display and the link for the duration of a session. HandleEdge
// runs a whole session before it returns.
type Machine struct {
	mu      sync.Mutex // held for a whole session
	display Display
	link    core.SerialLink
	catalog *catalog.Catalog
	cfg     Config
	trigger FlagClearer
	delay   core.DelayFunc

	onTransition func(from, to State)

	state  uint32 // State
	active uint32
	nextID uint32

	statsMu sync.Mutex
	stats   Stats
}

// New creates an idle machine. The catalog must hold Default, IncomingCall and
// NotAvailable; MaxPolls below one is raised to one.
func New(display Display, link core.SerialLink, cat *catalog.Catalog, cfg Config) (*Machine, error) {
	for _, id := range []catalog.MessageID{catalog.Default, catalog.IncomingCall, catalog.NotAvailable} {
		if _, ok := cat.Message(id); !ok {
			return nil, ErrMissingMessage
		}
	}
	if cfg.MaxPolls < 1 {
		cfg.MaxPolls = 1
	}
	return &Machine{
		display: display,
		link:    link,
		catalog: cat,
		cfg:     cfg,
		delay:   time.Sleep,
	}, nil
}

// SetTrigger registers the trigger whose flag Reset clears.
func (m *Machine) SetTrigger(t FlagClearer) {
	m.trigger = t
}

// SetDelay replaces the delay source for debounce, poll and hold waits.
func (m *Machine) SetDelay(fn core.DelayFunc) {
	m.delay = fn
}

// OnTransition registers fn to run on every state change. It runs with the session
// lock held and must not call back into the machine.
func (m *Machine) OnTransition(fn func(from, to State)) {
	m.onTransition = fn
}

// Config returns the session timing in use.
func (m *Machine) Config() Config {
	return m.cfg
}

// Start renders the default message.
func (m *Machine) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.render(catalog.Default)
}

// Active reports whether a session is running.
func (m *Machine) Active() bool {
	return atomic.LoadUint32(&m.active) != 0
}

// State returns the current phase.
func (m *Machine) State() State {
	return m.loadState()
}

func (m *Machine) loadState() State {
	return State(atomic.LoadUint32(&m.state))
}

func (m *Machine) storeState(s State) {
	atomic.StoreUint32(&m.state, uint32(s))
}

// Stats returns a snapshot of the counters.
func (m *Machine) Stats() Stats {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()
	return m.stats
}

// HandleEdge runs one session to completion. An edge that arrives while a session
// is running is dropped and counted; the caller gets false.
func (m *Machine) HandleEdge() (Session, bool) {
	if !atomic.CompareAndSwapUint32(&m.active, 0, 1) {
		m.count(func(s *Stats) { s.DroppedEdges++ })
		core.RecordEvent(core.EvtEdgeDropped, atomic.LoadUint32(&m.nextID), 0, 0)
		return Session{}, false
	}
	defer atomic.StoreUint32(&m.active, 0)

	m.mu.Lock()
	defer m.mu.Unlock()

	if core.IsShutdown() {
		m.clearFlag()
		return Session{}, false
	}

	s := &Session{ID: atomic.AddUint32(&m.nextID, 1)}
	m.count(func(st *Stats) { st.Sessions++ })

	var edges uint32
	counter, counted := m.trigger.(EdgeCounter)
	if counted {
		edges = counter.Count()
	}

	m.debounce(s)
	m.notify(s)
	if m.await(s) {
		m.respond(s)
	} else {
		m.timeout(s)
	}
	m.reset(s)

	if counted {
		if absorbed := counter.Count() - edges; absorbed > 0 {
			m.count(func(st *Stats) { st.DroppedEdges += absorbed })
			core.RecordEvent(core.EvtEdgeDropped, s.ID, absorbed, 0)
		}
	}
	return *s, true
}

func (m *Machine) debounce(s *Session) {
	m.enter(s, Debounce)
	core.RecordEvent(core.EvtEdge, s.ID, 0, 0)
	m.wait(m.cfg.Debounce)
}

func (m *Machine) notify(s *Session) {
	m.enter(s, Notify)
	m.render(catalog.IncomingCall)
	if err := m.link.SendByte(m.cfg.NotifyByte); err != nil {
		m.linkError(s, 0, err)
		return
	}
	core.RecordEvent(core.EvtNotify, s.ID, uint32(m.cfg.NotifyByte), 0)
}

// await polls for a reply. It returns true when a mapped code arrived, leaving it in
// s.Outcome. Unmapped codes are consumed and polling carries on.
func (m *Machine) await(s *Session) bool {
	m.enter(s, AwaitResponse)
	core.RecordEvent(core.EvtPoll, s.ID, uint32(m.cfg.MaxPolls), 0)

	for s.Ticks < m.cfg.MaxPolls {
		if m.link.ByteAvailable() {
			b, err := m.link.ReceiveByte()
			if err != nil {
				m.linkError(s, 1, err)
			} else if _, ok := m.catalog.Response(catalog.ResponseCode(b)); ok {
				s.Outcome = Outcome{Kind: Replied, Code: b}
				core.RecordEvent(core.EvtResponse, s.ID, uint32(b), uint32(s.Ticks))
				return true
			} else {
				m.count(func(st *Stats) { st.UnknownCodes++ })
				core.RecordEvent(core.EvtUnknownCode, s.ID, uint32(b), uint32(s.Ticks))
				core.DebugPrintln("[NOTIFY] ignoring reply " + core.Hex8(b))
			}
		}
		m.wait(m.cfg.PollInterval)
		s.Ticks++
	}

	s.Outcome = Outcome{Kind: Expired}
	return false
}

func (m *Machine) respond(s *Session) {
	m.enter(s, Responded)
	msg, _ := m.catalog.Response(catalog.ResponseCode(s.Outcome.Code))
	m.show(msg)
	m.count(func(st *Stats) {
		st.Responded++
		st.LastCode = s.Outcome.Code
	})
	m.wait(m.cfg.Hold)
}

func (m *Machine) timeout(s *Session) {
	m.enter(s, TimedOut)
	core.RecordEvent(core.EvtTimeout, s.ID, uint32(s.Ticks), 0)
	m.render(catalog.NotAvailable)
	m.count(func(st *Stats) { st.TimedOut++ })
	m.wait(m.cfg.Hold)
}

func (m *Machine) reset(s *Session) {
	m.enter(s, Reset)
	m.clearFlag()
	m.render(catalog.Default)
	core.RecordEvent(core.EvtReset, s.ID, uint32(s.Outcome.Kind), 0)
	m.enter(s, Idle)
}

// enter moves to the next state. An illegal move is a programming error.
func (m *Machine) enter(s *Session, to State) {
	from := m.loadState()
	if !Allowed(from, to) {
		panic("notify: illegal transition " + from.String() + " -> " + to.String())
	}
	m.storeState(to)
	if to != Idle {
		s.Path = append(s.Path, to)
	}
	if m.onTransition != nil {
		m.onTransition(from, to)
	}
}

func (m *Machine) render(id catalog.MessageID) {
	msg, _ := m.catalog.Message(id)
	m.show(msg)
}

func (m *Machine) show(msg catalog.Message) {
	m.display.Clear()
	m.display.WriteText(msg.X, msg.Y, msg.Text)
}

func (m *Machine) clearFlag() {
	if m.trigger != nil {
		m.trigger.ClearPending()
	}
}

func (m *Machine) linkError(s *Session, dir uint32, err error) {
	m.count(func(st *Stats) { st.LinkErrors++ })
	core.RecordEvent(core.EvtLinkError, s.ID, dir, 0)
	core.DebugPrintln("[NOTIFY] link error: " + err.Error())
}

func (m *Machine) count(fn func(*Stats)) {
	m.statsMu.Lock()
	fn(&m.stats)
	m.statsMu.Unlock()
}

func (m *Machine) wait(d time.Duration) {
	if d > 0 && m.delay != nil {
		m.delay(d)
	}
}
