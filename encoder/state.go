package encoder

import "fmt"

// State is the orchestrator's position in the two-pass sequence
type State int

const (
	StateIdle State = iota
	StatePass1Running
	StatePass1Done
	StatePass2Running
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePass1Running:
		return "pass 1"
	case StatePass1Done:
		return "pass 1 done"
	case StatePass2Running:
		return "pass 2"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether no further transitions are possible
func (s State) Terminal() bool {
	return s == StateComplete || s == StateFailed
}

// Running reports whether an encoder process is active in this state
func (s State) Running() bool {
	return s == StatePass1Running || s == StatePass2Running
}

var transitions = map[State][]State{
	StateIdle:         {StatePass1Running, StateFailed},
	StatePass1Running: {StatePass1Done, StateFailed},
	StatePass1Done:    {StatePass2Running, StateFailed},
	StatePass2Running: {StateComplete, StateFailed},
}

func canTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type transitionError struct {
	from, to State
}

func (e transitionError) Error() string {
	return fmt.Sprintf("invalid state transition %s -> %s", e.from, e.to)
}
