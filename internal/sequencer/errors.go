package sequencer

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownLED is returned for commands addressing an LED id the
	// collection does not hold.
	ErrUnknownLED = errors.New("unknown led")
	// ErrUnknownAction is returned by ParseAction for unrecognized names.
	ErrUnknownAction = errors.New("unknown action")
	// ErrNoSequence is returned for load commands carrying no sequence.
	ErrNoSequence = errors.New("command carries no sequence")
)

// InvalidStateError is returned by any lifecycle operation invoked from a
// state it is not allowed in. The operation performs no mutation and no
// light write before returning it.
type InvalidStateError struct {
	Op       string
	Expected []State
	Actual   State
}

func (e *InvalidStateError) Error() string {
	names := make([]string, len(e.Expected))
	for i, s := range e.Expected {
		names[i] = s.String()
	}
	return fmt.Sprintf("%s: state is %s, want %s", e.Op, e.Actual, strings.Join(names, " or "))
}

func invalidState(op string, actual State, expected ...State) error {
	return &InvalidStateError{Op: op, Expected: expected, Actual: actual}
}
