package sequence

import (
	"errors"
	"fmt"
	"time"

	"github.com/dokzlo13/ledseqd/internal/color"
)

// DefaultCapacity bounds the number of steps a Builder accepts unless
// overridden with Capacity.
const DefaultCapacity = 16

// ErrEmptySequence is returned by Build when no steps were added.
var ErrEmptySequence = errors.New("sequence has no steps")

// ZeroDurationError reports an interpolating step with zero duration. Only
// step transitions may be instantaneous.
type ZeroDurationError struct {
	StepIndex  int
	Transition Transition
}

func (e *ZeroDurationError) Error() string {
	return fmt.Sprintf("step %d: zero duration with %s transition", e.StepIndex, e.Transition)
}

// CapacityError reports more steps than the configured capacity.
type CapacityError struct {
	Capacity int
	Steps    int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%d steps exceed capacity %d", e.Steps, e.Capacity)
}

// Builder assembles a validated Sequence. Intermediate calls never fail;
// all validation is reported by Build. A zero Builder is not usable, start
// with NewBuilder.
type Builder struct {
	steps      []Step
	loop       LoopCount
	start      color.RGB
	hasStart   bool
	landing    color.RGB
	hasLanding bool
	capacity   int
}

// NewBuilder returns a Builder with DefaultCapacity and a single loop.
func NewBuilder() *Builder {
	return &Builder{loop: Loops(1), capacity: DefaultCapacity}
}

// Capacity overrides the maximum number of steps.
func (b *Builder) Capacity(n int) *Builder {
	b.capacity = n
	return b
}

// Step appends a waypoint.
func (b *Builder) Step(c color.RGB, d time.Duration, t Transition) *Builder {
	b.steps = append(b.steps, Step{Color: c, Duration: d, Transition: t})
	return b
}

// Add appends a prebuilt step.
func (b *Builder) Add(s Step) *Builder {
	b.steps = append(b.steps, s)
	return b
}

// LoopCount sets how many times the steps repeat.
func (b *Builder) LoopCount(lc LoopCount) *Builder {
	b.loop = lc
	return b
}

// StartColor sets the blend source for the first loop's first step. It has
// no effect on step transitions.
func (b *Builder) StartColor(c color.RGB) *Builder {
	b.start, b.hasStart = c, true
	return b
}

// LandingColor sets the color shown once a finite sequence completes.
func (b *Builder) LandingColor(c color.RGB) *Builder {
	b.landing, b.hasLanding = c, true
	return b
}

// Build validates the configuration and produces an immutable Sequence.
// It never panics; every failure is a returned error.
func (b *Builder) Build() (*Sequence, error) {
	if len(b.steps) == 0 {
		return nil, ErrEmptySequence
	}
	if len(b.steps) > b.capacity {
		return nil, &CapacityError{Capacity: b.capacity, Steps: len(b.steps)}
	}

	var total time.Duration
	for i, st := range b.steps {
		if st.Duration < 0 {
			return nil, fmt.Errorf("step %d: negative duration %s", i, st.Duration)
		}
		if st.Duration == 0 && st.Transition.Interpolating() {
			return nil, &ZeroDurationError{StepIndex: i, Transition: st.Transition}
		}
		total += st.Duration
	}

	steps := make([]Step, len(b.steps))
	copy(steps, b.steps)

	return &Sequence{
		steps:           steps,
		loopCount:       b.loop,
		startColor:      b.start,
		hasStartColor:   b.hasStart,
		landingColor:    b.landing,
		hasLandingColor: b.hasLanding,
		loopDuration:    total,
	}, nil
}

// FromSteps builds a step sequence without the fluent calls. The capacity
// check still applies.
func FromSteps(steps []Step, lc LoopCount) (*Sequence, error) {
	b := NewBuilder().LoopCount(lc)
	for _, s := range steps {
		b.Add(s)
	}
	return b.Build()
}

// FromFunction builds a function-based sequence. colorFn computes each
// frame from the base color and elapsed time; timingFn supplies the
// service hint. The base color doubles as the start color.
func FromFunction(base color.RGB, colorFn ColorFunc, timingFn TimingFunc) (*Sequence, error) {
	if colorFn == nil || timingFn == nil {
		return nil, errors.New("function sequence needs both a color and a timing function")
	}
	return &Sequence{
		loopCount:     Loops(1),
		startColor:    base,
		hasStartColor: true,
		base:          base,
		colorFn:       colorFn,
		timingFn:      timingFn,
	}, nil
}
