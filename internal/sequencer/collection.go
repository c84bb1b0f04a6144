package sequencer

import (
	"fmt"
	"time"

	"github.com/dokzlo13/ledseqd/internal/sequence"
)

// Collection holds the sequencers of all configured LEDs in registration
// order. It is owned by a single service loop goroutine; the command
// channel in front of that loop provides all synchronization.
type Collection struct {
	ids   []string
	items map[string]*Sequencer
}

// NewCollection creates an empty collection.
func NewCollection() *Collection {
	return &Collection{items: make(map[string]*Sequencer)}
}

// Add registers a sequencer under an LED id.
func (c *Collection) Add(id string, s *Sequencer) error {
	if _, exists := c.items[id]; exists {
		return fmt.Errorf("led %q already registered", id)
	}
	c.ids = append(c.ids, id)
	c.items[id] = s
	return nil
}

// Get returns the sequencer for an LED id.
func (c *Collection) Get(id string) (*Sequencer, bool) {
	s, ok := c.items[id]
	return s, ok
}

// IDs returns the LED ids in registration order.
func (c *Collection) IDs() []string {
	out := make([]string, len(c.ids))
	copy(out, c.ids)
	return out
}

// Len returns the number of registered sequencers.
func (c *Collection) Len() int {
	return len(c.ids)
}

// HandleCommand routes a command to its sequencer. A brightness carried by
// the command is applied only after the action succeeded, so failed
// commands change nothing.
func (c *Collection) HandleCommand(cmd Command) error {
	s, ok := c.items[cmd.LED]
	if !ok {
		return fmt.Errorf("led %q: %w", cmd.LED, ErrUnknownLED)
	}
	if err := c.applyAction(s, cmd); err != nil {
		return err
	}
	if cmd.Brightness != nil {
		s.SetBrightness(*cmd.Brightness)
	}
	return nil
}

func (c *Collection) applyAction(s *Sequencer, cmd Command) error {
	switch cmd.Action {
	case ActionLoad:
		if cmd.Sequence == nil {
			return fmt.Errorf("load %q: %w", cmd.LED, ErrNoSequence)
		}
		return s.Load(cmd.Sequence)
	case ActionStart:
		return s.Start()
	case ActionStop:
		return s.Stop()
	case ActionPause:
		return s.Pause()
	case ActionResume:
		return s.Resume()
	case ActionRestart:
		return s.Restart()
	case ActionClear:
		s.Clear()
		return nil
	default:
		return fmt.Errorf("%s: %w", cmd.Action, ErrUnknownAction)
	}
}

// ServiceAll services every running sequencer and folds their hints into
// one wake-up decision for the loop: Continuous when any light is mid
// fade, otherwise the nearest Delay, otherwise Complete when nothing
// needs servicing at all.
func (c *Collection) ServiceAll() sequence.Timing {
	continuous := false
	minDelay := time.Duration(-1)

	for _, id := range c.ids {
		s := c.items[id]
		if s.State() != StateRunning {
			continue
		}
		timing, err := s.Service()
		if err != nil {
			continue
		}
		switch timing.Kind {
		case sequence.KindContinuous:
			continuous = true
		case sequence.KindDelay:
			if minDelay < 0 || timing.Delay < minDelay {
				minDelay = timing.Delay
			}
		}
	}

	if continuous {
		return sequence.Continuous()
	}
	if minDelay >= 0 {
		return sequence.DelayFor(minDelay)
	}
	return sequence.Complete()
}

// Running counts sequencers currently in the running state.
func (c *Collection) Running() int {
	n := 0
	for _, s := range c.items {
		if s.State() == StateRunning {
			n++
		}
	}
	return n
}
