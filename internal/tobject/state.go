package tobject

import "strings"

// State is a position in the TObject lifecycle.
type State int

const (
	StateUninitialized State = iota
	StateInitial
	StatePrepared
	StateRunning
	StatePaused
	StateStopped
	StateFinishedBad
	StateFinishedGood
	StateInvalid
)

var stateNames = [...]string{
	StateUninitialized: "UNINITIALIZED",
	StateInitial:       "INITIAL",
	StatePrepared:      "PREPARED",
	StateRunning:       "RUNNING",
	StatePaused:        "PAUSED",
	StateStopped:       "STOPPED",
	StateFinishedBad:   "FINISHED_BAD",
	StateFinishedGood:  "FINISHED_GOOD",
	StateInvalid:       "INVALID",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "UNKNOWN"
}

// ParseState converts a state name (case-insensitive) into a State.
func ParseState(name string) (State, bool) {
	for i, n := range stateNames {
		if strings.EqualFold(n, name) {
			return State(i), true
		}
	}
	return StateInvalid, false
}

// IsFinished reports whether the state is terminal for a run.
func (s State) IsFinished() bool {
	return s == StateStopped || s == StateFinishedBad || s == StateFinishedGood
}
