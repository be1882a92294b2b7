package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// SessionEvent captures a notification-session event for post-mortem analysis
type SessionEvent struct {
	EventType uint8  // Event type code
	Session   uint32 // Session sequence number
	Value1    uint32 // Context-dependent value
	Value2    uint32 // Context-dependent value
}

// Event type codes
const (
	EvtEdge        = 1  // Qualifying edge dispatched
	EvtEdgeDropped = 2  // Edge arrived while a session was active
	EvtNotify      = 3  // Call byte sent (v1=byte)
	EvtPoll        = 4  // Reply window opened (v1=max polls)
	EvtResponse    = 5  // Mapped reply received (v1=code, v2=tick)
	EvtUnknownCode = 6  // Unmapped reply consumed (v1=code, v2=tick)
	EvtTimeout     = 7  // Poll ceiling reached (v1=ticks)
	EvtReset       = 8  // Session returned to default
	EvtBusyFault   = 9  // Display never cleared busy (v1=polls)
	EvtLinkError   = 10 // Serial send/receive failed (v1=0 send, 1 receive)
)

const (
	EventRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	// Event ring buffer (non-blocking, for post-mortem)
	eventRing     [EventRingSize]SessionEvent
	eventRingHead uint8
	eventEnabled  bool = true
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// RecordEvent captures a session event in the ring buffer
// This is always non-blocking and allocation free
func RecordEvent(eventType uint8, session, value1, value2 uint32) {
	if !eventEnabled {
		return
	}
	idx := eventRingHead
	eventRing[idx] = SessionEvent{
		EventType: eventType,
		Session:   session,
		Value1:    value1,
		Value2:    value2,
	}
	eventRingHead = (idx + 1) % EventRingSize
}

// Events returns the recorded events from oldest to newest
func Events() []SessionEvent {
	out := make([]SessionEvent, 0, EventRingSize)
	start := eventRingHead
	for i := uint8(0); i < EventRingSize; i++ {
		evt := eventRing[(start+i)%EventRingSize]
		if evt.EventType == 0 {
			continue // Empty slot
		}
		out = append(out, evt)
	}
	return out
}

// EventName returns the short name printed for an event type
func EventName(eventType uint8) string {
	switch eventType {
	case EvtEdge:
		return "EDGE"
	case EvtEdgeDropped:
		return "EDGE_DROPPED"
	case EvtNotify:
		return "NOTIFY"
	case EvtPoll:
		return "POLL"
	case EvtResponse:
		return "RESPONSE"
	case EvtUnknownCode:
		return "UNKNOWN_CODE!"
	case EvtTimeout:
		return "TIMEOUT"
	case EvtReset:
		return "RESET"
	case EvtBusyFault:
		return "BUSY_FAULT!"
	case EvtLinkError:
		return "LINK_ERROR!"
	default:
		return "UNKNOWN"
	}
}

// DumpEventRing outputs the event ring buffer (call on shutdown/error)
func DumpEventRing() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[EVENTS] === Event Ring Dump ===")
	for _, evt := range Events() {
		debugPrintln("[EVENTS] " + EventName(evt.EventType) +
			" session=" + utoa(evt.Session) +
			" v1=" + utoa(evt.Value1) +
			" v2=" + utoa(evt.Value2))
	}
	debugPrintln("[EVENTS] === End Dump ===")
}

// ClearEventRing clears the event buffer
func ClearEventRing() {
	for i := range eventRing {
		eventRing[i] = SessionEvent{}
	}
	eventRingHead = 0
}
