// Package sequence implements the animation model: ordered color steps
// with transition curves, loop handling, and pure time-based evaluation.
package sequence

import (
	"fmt"
	"time"

	"github.com/dokzlo13/ledseqd/internal/color"
)

// Transition selects the progress curve applied while a step is active.
type Transition int

const (
	// TransitionStep shows the target color for the whole step, no fade.
	TransitionStep Transition = iota
	// TransitionLinear fades at constant speed.
	TransitionLinear
	// TransitionEaseIn starts slow and accelerates.
	TransitionEaseIn
	// TransitionEaseOut starts fast and decelerates.
	TransitionEaseOut
	// TransitionEaseInOut is slow at both ends.
	TransitionEaseInOut
	// TransitionEaseOutIn is fast at both ends.
	TransitionEaseOutIn
)

// Interpolating reports whether the transition fades toward the target over
// the step duration. Only such steps require a nonzero duration.
func (t Transition) Interpolating() bool {
	return t != TransitionStep
}

func (t Transition) String() string {
	switch t {
	case TransitionStep:
		return "step"
	case TransitionLinear:
		return "linear"
	case TransitionEaseIn:
		return "ease-in"
	case TransitionEaseOut:
		return "ease-out"
	case TransitionEaseInOut:
		return "ease-in-out"
	case TransitionEaseOutIn:
		return "ease-out-in"
	default:
		return fmt.Sprintf("transition(%d)", int(t))
	}
}

// ParseTransition maps a configuration name to a Transition.
func ParseTransition(s string) (Transition, error) {
	switch s {
	case "step":
		return TransitionStep, nil
	case "linear":
		return TransitionLinear, nil
	case "ease-in":
		return TransitionEaseIn, nil
	case "ease-out":
		return TransitionEaseOut, nil
	case "ease-in-out":
		return TransitionEaseInOut, nil
	case "ease-out-in":
		return TransitionEaseOutIn, nil
	default:
		return 0, fmt.Errorf("unknown transition %q", s)
	}
}

// LoopCount is either a finite number of traversals or endless repetition.
type LoopCount struct {
	count    uint32
	infinite bool
}

// Loops plays the steps n times.
func Loops(n uint32) LoopCount {
	return LoopCount{count: n}
}

// Forever repeats the steps until the sequencer is told otherwise.
func Forever() LoopCount {
	return LoopCount{infinite: true}
}

// Infinite reports whether the sequence never completes on its own.
func (lc LoopCount) Infinite() bool {
	return lc.infinite
}

// Count returns the finite loop count. Zero when infinite.
func (lc LoopCount) Count() uint32 {
	if lc.infinite {
		return 0
	}
	return lc.count
}

func (lc LoopCount) String() string {
	if lc.infinite {
		return "forever"
	}
	return fmt.Sprintf("%d", lc.count)
}

// Step is one waypoint: hold or fade to Color over Duration using the
// given Transition. Zero Duration is legal only with TransitionStep.
type Step struct {
	Color      color.RGB
	Duration   time.Duration
	Transition Transition
}

// TimingKind tags a Timing value.
type TimingKind int

const (
	// KindContinuous asks the caller to service again as soon as it can.
	KindContinuous TimingKind = iota
	// KindDelay asks the caller to service again after Delay.
	KindDelay
	// KindComplete means the sequence has finished.
	KindComplete
)

// Timing tells the caller when the next service call is needed. It is the
// result type of both Sequence.Evaluate and Sequencer.Service.
type Timing struct {
	Kind  TimingKind
	Delay time.Duration // set only for KindDelay
}

// Continuous requests immediate re-servicing (an active fade).
func Continuous() Timing {
	return Timing{Kind: KindContinuous}
}

// DelayFor requests re-servicing after d. Zero or negative d collapses to
// Continuous.
func DelayFor(d time.Duration) Timing {
	if d <= 0 {
		return Timing{Kind: KindContinuous}
	}
	return Timing{Kind: KindDelay, Delay: d}
}

// Complete marks the sequence as finished.
func Complete() Timing {
	return Timing{Kind: KindComplete}
}

// IsComplete reports whether the hint marks the end of the sequence.
func (t Timing) IsComplete() bool {
	return t.Kind == KindComplete
}

// IsContinuous reports whether the hint requests immediate re-servicing.
func (t Timing) IsContinuous() bool {
	return t.Kind == KindContinuous
}

func (t Timing) String() string {
	switch t.Kind {
	case KindContinuous:
		return "continuous"
	case KindDelay:
		return fmt.Sprintf("delay(%s)", t.Delay)
	case KindComplete:
		return "complete"
	default:
		return fmt.Sprintf("timing(%d)", int(t.Kind))
	}
}

// Position locates an instant within a step-based sequence.
type Position struct {
	StepIndex        int
	LoopNumber       uint32
	TimeInStep       time.Duration
	TimeUntilStepEnd time.Duration
}
