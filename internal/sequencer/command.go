package sequencer

import (
	"fmt"

	"github.com/dokzlo13/ledseqd/internal/sequence"
)

// Action names a lifecycle operation a command can request.
type Action int

const (
	ActionLoad Action = iota
	ActionStart
	ActionStop
	ActionPause
	ActionResume
	ActionRestart
	ActionClear
)

func (a Action) String() string {
	switch a {
	case ActionLoad:
		return "load"
	case ActionStart:
		return "start"
	case ActionStop:
		return "stop"
	case ActionPause:
		return "pause"
	case ActionResume:
		return "resume"
	case ActionRestart:
		return "restart"
	case ActionClear:
		return "clear"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// ParseAction maps a request string to an Action.
func ParseAction(s string) (Action, error) {
	switch s {
	case "load":
		return ActionLoad, nil
	case "start":
		return ActionStart, nil
	case "stop":
		return ActionStop, nil
	case "pause":
		return ActionPause, nil
	case "resume":
		return ActionResume, nil
	case "restart":
		return ActionRestart, nil
	case "clear":
		return ActionClear, nil
	default:
		return 0, fmt.Errorf("unknown action %q: %w", s, ErrUnknownAction)
	}
}

// Command asks one LED's sequencer to perform an action. Sequence is set
// only for load commands; producers resolve sequence names before the
// command reaches the collection. Brightness optionally retargets the
// LED's brightness once the action has succeeded.
type Command struct {
	ID         string
	LED        string
	Action     Action
	Sequence   *sequence.Sequence
	Brightness *float64
}

func (c Command) String() string {
	return fmt.Sprintf("%s %s (id=%s)", c.Action, c.LED, c.ID)
}
