package session

import "github.com/yegors/wmo-decoder/internal/wxcode"

// State is the request-in-flight triple. At most one slot is active.
type State struct {
	Loading bool           `json:"loading"`
	Err     *wxcode.Error  `json:"-"`
	Result  *wxcode.Record `json:"result,omitempty"`
}

// EventType names a state transition
type EventType int

const (
	EventSubmitted EventType = iota
	EventSucceeded
	EventFailed
	EventSelected
)

func (t EventType) String() string {
	switch t {
	case EventSubmitted:
		return "submitted"
	case EventSucceeded:
		return "succeeded"
	case EventFailed:
		return "failed"
	case EventSelected:
		return "selected"
	default:
		return "unknown"
	}
}

// Event drives Reduce
type Event struct {
	Type   EventType
	Record *wxcode.Record
	Err    *wxcode.Error
}

// Reduce returns the state after e. It never mutates s.
func Reduce(s State, e Event) State {
	switch e.Type {
	case EventSubmitted:
		// error and result are cleared together with loading set
		return State{Loading: true}
	case EventSucceeded:
		return State{Result: e.Record.Clone()}
	case EventFailed:
		return State{Err: e.Err}
	case EventSelected:
		if s.Loading {
			return s
		}
		return State{Result: e.Record.Clone()}
	default:
		return s
	}
}

// Active reports the single active slot: "loading", "error", "result" or "idle"
func (s State) Active() string {
	switch {
	case s.Loading:
		return "loading"
	case s.Err != nil:
		return "error"
	case s.Result != nil:
		return "result"
	default:
		return "idle"
	}
}
