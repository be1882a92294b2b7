package notify

// State is one phase of a notification session.
type State uint8

const (
	Idle State = iota
	Debounce
	Notify
	AwaitResponse
	Responded
	TimedOut
	Reset
)

var stateNames = [...]string{
	Idle:          "idle",
	Debounce:      "debounce",
	Notify:        "notify",
	AwaitResponse: "await-response",
	Responded:     "responded",
	TimedOut:      "timed-out",
	Reset:         "reset",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "invalid"
}

// transitions lists the legal successors of each state. A session always runs
// Debounce, Notify, AwaitResponse, one of Responded or TimedOut, then Reset.
var transitions = map[State][]State{
	Idle:          {Debounce},
	Debounce:      {Notify},
	Notify:        {AwaitResponse},
	AwaitResponse: {Responded, TimedOut},
	Responded:     {Reset},
	TimedOut:      {Reset},
	Reset:         {Idle},
}

// Allowed reports whether the machine may move from one state to the other.
func Allowed(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// OutcomeKind is how the reply window ended.
type OutcomeKind uint8

const (
	Pending OutcomeKind = iota
	Replied
	Expired
)

func (k OutcomeKind) String() string {
	switch k {
	case Replied:
		return "responded"
	case Expired:
		return "timed-out"
	default:
		return "pending"
	}
}

// Outcome of one session. Code is only meaningful when Kind is Replied.
type Outcome struct {
	Kind OutcomeKind
	Code byte
}

// Session is the record of one button press, from Debounce back to Idle.
type Session struct {
	ID      uint32
	Ticks   int
	Outcome Outcome
	Path    []State
}

// Stats are counters across all sessions.
type Stats struct {
	Sessions     uint32
	Responded    uint32
	TimedOut     uint32
	UnknownCodes uint32
	DroppedEdges uint32
	LinkErrors   uint32
	LastCode     byte
}
