package notify

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"callbell/catalog"
	"callbell/core"
	"callbell/sim"
	"callbell/trigger"
)

// screen records the labels of rendered messages.
type screen struct {
	cat    *catalog.Catalog
	clears int
	shown  []string
}

func (s *screen) Clear() { s.clears++ }

func (s *screen) WriteText(x, y uint8, text []byte) {
	s.shown = append(s.shown, s.label(x, y, text))
}

func (s *screen) label(x, y uint8, text []byte) string {
	match := func(m catalog.Message) bool {
		return m.X == x && m.Y == y && bytes.Equal(m.Text, text)
	}
	for _, id := range []catalog.MessageID{catalog.Default, catalog.IncomingCall, catalog.NotAvailable} {
		if m, _ := s.cat.Message(id); match(m) {
			return m.Label
		}
	}
	for _, code := range s.cat.Codes() {
		if m, _ := s.cat.Response(code); match(m) {
			return m.Label
		}
	}
	return "?"
}

func (s *screen) current() string {
	if len(s.shown) == 0 {
		return ""
	}
	return s.shown[len(s.shown)-1]
}

type fixture struct {
	m      *Machine
	link   *sim.Link
	clock  *sim.Clock
	screen *screen
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	core.ClearEventRing()
	core.ResetFirmwareState()

	cat := catalog.Stock()
	f := &fixture{
		link:   sim.NewLink(),
		clock:  sim.NewClock(),
		screen: &screen{cat: cat},
	}
	m, err := New(f.screen, f.link, cat, DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	m.SetDelay(f.clock.Sleep)
	m.Start()
	f.m = m
	return f
}

func equalLabels(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalPath(a, b []State) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func hasEvent(eventType uint8) bool {
	for _, e := range core.Events() {
		if e.EventType == eventType {
			return true
		}
	}
	return false
}

func TestRespondedSession(t *testing.T) {
	f := newFixture(t)
	f.link.ReplyAfter(3, byte(catalog.ResponseComing))

	s, ok := f.m.HandleEdge()
	if !ok {
		t.Fatal("Expected session to run")
	}

	wantPath := []State{Debounce, Notify, AwaitResponse, Responded, Reset}
	if !equalPath(s.Path, wantPath) {
		t.Errorf("Expected path %v, got %v", wantPath, s.Path)
	}
	wantShown := []string{"PUSH TO CALL", "CALLING...", "COMING NOW", "PUSH TO CALL"}
	if !equalLabels(f.screen.shown, wantShown) {
		t.Errorf("Expected renders %v, got %v", wantShown, f.screen.shown)
	}
	if s.Outcome.Kind != Replied || s.Outcome.Code != 1 {
		t.Errorf("Expected reply with code 1, got %s/%d", s.Outcome.Kind, s.Outcome.Code)
	}
	if s.Ticks != 2 || f.link.Polls() != 3 {
		t.Errorf("Expected 3 polls over 2 ticks, got %d polls, %d ticks", f.link.Polls(), s.Ticks)
	}
	if sent := f.link.Sent(); !bytes.Equal(sent, []byte{0x01}) {
		t.Errorf("Expected one call byte 0x01, got % X", sent)
	}

	want := 100*time.Millisecond + 2*500*time.Millisecond + 20*time.Second
	if got := f.clock.Elapsed(); got != want {
		t.Errorf("Expected %v elapsed, got %v", want, got)
	}
	if f.m.State() != Idle || f.m.Active() {
		t.Errorf("Expected idle machine after session, got %s active=%v", f.m.State(), f.m.Active())
	}

	st := f.m.Stats()
	if st.Sessions != 1 || st.Responded != 1 || st.LastCode != 1 {
		t.Errorf("Unexpected stats %+v", st)
	}
}

func TestTimedOutSessionPollsExactlyMax(t *testing.T) {
	f := newFixture(t)

	s, ok := f.m.HandleEdge()
	if !ok {
		t.Fatal("Expected session to run")
	}

	wantPath := []State{Debounce, Notify, AwaitResponse, TimedOut, Reset}
	if !equalPath(s.Path, wantPath) {
		t.Errorf("Expected path %v, got %v", wantPath, s.Path)
	}
	wantShown := []string{"PUSH TO CALL", "CALLING...", "NOT AVAILABLE", "PUSH TO CALL"}
	if !equalLabels(f.screen.shown, wantShown) {
		t.Errorf("Expected renders %v, got %v", wantShown, f.screen.shown)
	}
	if f.link.Polls() != 40 {
		t.Errorf("Expected exactly 40 polls, got %d", f.link.Polls())
	}
	if s.Ticks != 40 || s.Outcome.Kind != Expired {
		t.Errorf("Expected 40 ticks and timeout, got %d ticks and %s", s.Ticks, s.Outcome.Kind)
	}
	if n := f.clock.Count(500 * time.Millisecond); n != 40 {
		t.Errorf("Expected 40 poll sleeps, got %d", n)
	}

	want := 100*time.Millisecond + 40*500*time.Millisecond + 20*time.Second
	if got := f.clock.Elapsed(); got != want {
		t.Errorf("Expected %v elapsed, got %v", want, got)
	}
	if !hasEvent(core.EvtTimeout) {
		t.Error("Expected timeout event")
	}
}

func TestUnknownCodeIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.link.ReplyAfter(2, 0x33)
	f.link.ReplyAfter(5, byte(catalog.ResponseWait))

	var shownAtUnknown string
	f.clock.At(100*time.Millisecond+2*500*time.Millisecond, func() {
		shownAtUnknown = f.screen.current()
	})

	s, _ := f.m.HandleEdge()

	if shownAtUnknown != "CALLING..." {
		t.Errorf("Expected display unchanged after unknown code, got %q", shownAtUnknown)
	}
	if s.Outcome.Kind != Replied || s.Outcome.Code != 2 {
		t.Errorf("Expected reply with code 2, got %s/%d", s.Outcome.Kind, s.Outcome.Code)
	}
	if s.Ticks != 4 {
		t.Errorf("Expected reply on tick 4, got %d", s.Ticks)
	}
	wantShown := []string{"PUSH TO CALL", "CALLING...", "PLEASE WAIT", "PUSH TO CALL"}
	if !equalLabels(f.screen.shown, wantShown) {
		t.Errorf("Expected renders %v, got %v", wantShown, f.screen.shown)
	}
	if f.m.Stats().UnknownCodes != 1 {
		t.Errorf("Expected 1 unknown code, got %d", f.m.Stats().UnknownCodes)
	}
	if !hasEvent(core.EvtUnknownCode) {
		t.Error("Expected unknown code event in ring")
	}
}

func TestUnknownCodeDoesNotEndWindowEarly(t *testing.T) {
	f := newFixture(t)
	f.link.Inject(0x7F)

	s, _ := f.m.HandleEdge()

	if s.Outcome.Kind != Expired {
		t.Errorf("Expected timeout, got %s", s.Outcome.Kind)
	}
	if f.link.Polls() != 40 {
		t.Errorf("Expected 40 polls, got %d", f.link.Polls())
	}
	if f.link.Queued() != 0 {
		t.Error("Expected unknown byte to be consumed")
	}
}

func TestSecondEdgeIsDropped(t *testing.T) {
	f := newFixture(t)

	var second bool
	f.clock.At(5*time.Second, func() {
		_, second = f.m.HandleEdge()
	})

	if _, ok := f.m.HandleEdge(); !ok {
		t.Fatal("Expected first session to run")
	}
	if second {
		t.Error("Expected edge during a session to be dropped")
	}
	st := f.m.Stats()
	if st.DroppedEdges != 1 || st.Sessions != 1 {
		t.Errorf("Expected 1 session and 1 dropped edge, got %+v", st)
	}
	if !hasEvent(core.EvtEdgeDropped) {
		t.Error("Expected dropped edge event")
	}
}

func TestEdgeLatchedDuringSessionIsAbsorbed(t *testing.T) {
	f := newFixture(t)
	board := sim.NewBoard()
	const pin core.GPIOPin = 3
	tr := trigger.New(board, pin, core.EdgeFalling)

	sessions := 0
	if err := tr.Initialize(func() {
		if _, ok := f.m.HandleEdge(); ok {
			sessions++
		}
	}); err != nil {
		t.Fatalf("Trigger initialize failed: %v", err)
	}
	f.m.SetTrigger(tr)

	f.clock.At(3*time.Second, func() { board.Press(pin) })

	board.Press(pin)
	for i := 0; i < 3; i++ {
		tr.Service()
	}

	if sessions != 1 {
		t.Errorf("Expected one session, got %d", sessions)
	}
	if tr.Pending() {
		t.Error("Expected Reset to clear the pending flag")
	}
	if f.m.Stats().DroppedEdges != 1 {
		t.Errorf("Expected 1 absorbed edge, got %d", f.m.Stats().DroppedEdges)
	}
}

func TestResetClearsTriggerFlag(t *testing.T) {
	f := newFixture(t)
	tr := trigger.New(sim.NewBoard(), 4, core.EdgeFalling)
	f.m.SetTrigger(tr)

	var pendingDuringSession bool
	f.clock.At(time.Second, func() { pendingDuringSession = tr.Pending() })

	tr.Fire()
	f.m.HandleEdge()

	if !pendingDuringSession {
		t.Error("Expected the flag to stay latched until Reset")
	}
	if tr.Pending() {
		t.Error("Expected flag cleared after session")
	}
}

func TestTransitionsFollowTable(t *testing.T) {
	f := newFixture(t)
	f.link.ReplyAfter(1, 1)

	type step struct{ from, to State }
	var steps []step
	f.m.OnTransition(func(from, to State) {
		steps = append(steps, step{from, to})
	})
	f.m.HandleEdge()

	want := []step{
		{Idle, Debounce}, {Debounce, Notify}, {Notify, AwaitResponse},
		{AwaitResponse, Responded}, {Responded, Reset}, {Reset, Idle},
	}
	if len(steps) != len(want) {
		t.Fatalf("Expected %d transitions, got %d", len(want), len(steps))
	}
	for i := range want {
		if steps[i] != want[i] {
			t.Errorf("Transition %d: expected %s->%s, got %s->%s",
				i, want[i].from, want[i].to, steps[i].from, steps[i].to)
		}
		if !Allowed(steps[i].from, steps[i].to) {
			t.Errorf("Transition %s->%s not in table", steps[i].from, steps[i].to)
		}
	}
}

func TestAllowed(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{Idle, Debounce, true},
		{Idle, Notify, false},
		{Debounce, AwaitResponse, false},
		{AwaitResponse, Responded, true},
		{AwaitResponse, TimedOut, true},
		{AwaitResponse, Reset, false},
		{Responded, TimedOut, false},
		{TimedOut, Reset, true},
		{Reset, Idle, true},
		{Reset, Debounce, false},
	}
	for _, tt := range tests {
		if got := Allowed(tt.from, tt.to); got != tt.want {
			t.Errorf("Allowed(%s, %s) = %v, expected %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestSendFailureStillRunsSession(t *testing.T) {
	f := newFixture(t)
	f.link.FailSend(errors.New("tx stalled"))

	s, ok := f.m.HandleEdge()
	if !ok || s.Outcome.Kind != Expired {
		t.Errorf("Expected session to time out, got ok=%v outcome=%s", ok, s.Outcome.Kind)
	}
	if f.m.Stats().LinkErrors != 1 {
		t.Errorf("Expected 1 link error, got %d", f.m.Stats().LinkErrors)
	}
	if f.screen.current() != "PUSH TO CALL" {
		t.Errorf("Expected default message after session, got %q", f.screen.current())
	}
}

func TestShutdownSkipsSession(t *testing.T) {
	f := newFixture(t)
	defer core.ResetFirmwareState()
	core.TryShutdown("test fault")

	if _, ok := f.m.HandleEdge(); ok {
		t.Error("Expected no session after shutdown")
	}
	if len(f.link.Sent()) != 0 {
		t.Error("Expected nothing sent after shutdown")
	}
}

func TestNewRequiresFixedMessages(t *testing.T) {
	if _, err := New(&screen{}, sim.NewLink(), catalog.New(100), DefaultConfig()); err != ErrMissingMessage {
		t.Errorf("Expected ErrMissingMessage, got %v", err)
	}
}

func TestCustomPollCeiling(t *testing.T) {
	cat := catalog.Stock()
	link := sim.NewLink()
	cfg := DefaultConfig()
	cfg.MaxPolls = 3
	m, err := New(&screen{cat: cat}, link, cat, cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	m.SetDelay(func(time.Duration) {})

	s, _ := m.HandleEdge()
	if s.Ticks != 3 || link.Polls() != 3 {
		t.Errorf("Expected 3 polls, got %d ticks and %d polls", s.Ticks, link.Polls())
	}
}
