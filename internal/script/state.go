package script

import (
	"errors"
	"fmt"
)

// State is the lifecycle of one script slot. Moves are monotonic.
type State uint8

const (
	Pending State = iota
	Loaded
	Executed
	// Failed is terminal and only reached when failures are isolated per script.
	Failed
)

var ErrInvalidTransition = errors.New("invalid script state transition")

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Loaded:
		return "loaded"
	case Executed:
		return "executed"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	return s == Executed || s == Failed
}

// Transition validates a move between states. The returned error wraps
// ErrInvalidTransition.
func Transition(from, to State) error {
	if !isAllowedTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

func isAllowedTransition(from, to State) bool {
	switch from {
	case Pending:
		return to == Loaded
	case Loaded:
		return to == Executed || to == Failed
	default:
		return false
	}
}
