package sequence

import (
	"math"
	"time"

	"github.com/dokzlo13/ledseqd/internal/color"
)

// ColorFunc computes the color of a function-based sequence from its base
// color and the elapsed time.
type ColorFunc func(base color.RGB, elapsed time.Duration) color.RGB

// TimingFunc supplies the service hint of a function-based sequence at the
// elapsed time.
type TimingFunc func(elapsed time.Duration) Timing

// Sequence is an immutable animation program: either a fixed list of steps
// or a color/timing function pair. Evaluation is a pure function of
// elapsed time, so a built Sequence is safe to share read-only.
type Sequence struct {
	steps     []Step
	loopCount LoopCount

	startColor      color.RGB
	hasStartColor   bool
	landingColor    color.RGB
	hasLandingColor bool

	// Sum of step durations, fixed at build time. Never recomputed.
	loopDuration time.Duration

	// Function-based form. When colorFn is set, steps is empty.
	colorFn  ColorFunc
	timingFn TimingFunc
	base     color.RGB
}

// Len returns the number of steps. Zero for function-based sequences.
func (s *Sequence) Len() int {
	return len(s.steps)
}

// LoopDuration returns the cached sum of all step durations.
func (s *Sequence) LoopDuration() time.Duration {
	return s.loopDuration
}

// LoopCount returns the loop configuration.
func (s *Sequence) LoopCount() LoopCount {
	return s.loopCount
}

// FunctionBased reports whether the sequence is driven by functions
// instead of steps.
func (s *Sequence) FunctionBased() bool {
	return s.colorFn != nil
}

// StartColor returns the smooth-entry source color, if one was set.
func (s *Sequence) StartColor() (color.RGB, bool) {
	return s.startColor, s.hasStartColor
}

// LandingColor returns the configured post-completion color, if any.
func (s *Sequence) LandingColor() (color.RGB, bool) {
	return s.landingColor, s.hasLandingColor
}

// Steps returns a copy of the step list.
func (s *Sequence) Steps() []Step {
	out := make([]Step, len(s.steps))
	copy(out, s.steps)
	return out
}

// Evaluate computes the color at elapsed and the hint for the next service
// call. It is pure: no hidden state, safe to call repeatedly.
func (s *Sequence) Evaluate(elapsed time.Duration) (color.RGB, Timing) {
	if elapsed < 0 {
		elapsed = 0
	}
	if s.colorFn != nil {
		return s.colorFn(s.base, elapsed), s.timingFn(elapsed)
	}

	if s.loopDuration == 0 {
		// Every step is a zero-duration hold. The first waypoint exists
		// for a single instant, then the sequence lands.
		if elapsed == 0 {
			return s.steps[0].Color, DelayFor(0)
		}
		return s.landingOrLast(), Complete()
	}

	if s.IsComplete(elapsed) {
		return s.landingOrLast(), Complete()
	}

	loopNumber := loopIndex(elapsed / s.loopDuration)
	timeInLoop := elapsed % s.loopDuration

	idx, timeInStep, timeUntilEnd := s.stepAt(timeInLoop)
	step := s.steps[idx]

	if step.Transition == TransitionStep {
		// Nothing moves until the step ends.
		return step.Color, DelayFor(timeUntilEnd)
	}

	source := s.interpolationSource(idx, loopNumber)
	if step.Duration <= 0 {
		return step.Color, Continuous()
	}
	progress := clamp01(float64(timeInStep) / float64(step.Duration))
	return source.Lerp(step.Color, ease(step.Transition, progress)), Continuous()
}

// IsComplete reports whether the sequence has finished at elapsed. Infinite
// sequences never complete unless their total loop duration is zero.
func (s *Sequence) IsComplete(elapsed time.Duration) bool {
	if elapsed < 0 {
		elapsed = 0
	}
	if s.colorFn != nil {
		return s.timingFn(elapsed).IsComplete()
	}
	if s.loopDuration == 0 {
		return elapsed > 0
	}
	if s.loopCount.Infinite() {
		return false
	}
	k := int64(s.loopCount.Count())
	if k == 0 {
		return true
	}
	if int64(s.loopDuration) > math.MaxInt64/k {
		// The total run time exceeds representable elapsed time, so the
		// sequence can never be observed complete.
		return false
	}
	return int64(elapsed) >= k*int64(s.loopDuration)
}

// PositionAt locates elapsed within the step grid. The second return is
// false for function-based sequences. A completed sequence pins to the
// last step at its end boundary.
func (s *Sequence) PositionAt(elapsed time.Duration) (Position, bool) {
	if s.colorFn != nil || len(s.steps) == 0 {
		return Position{}, false
	}
	if elapsed < 0 {
		elapsed = 0
	}

	if s.loopDuration == 0 {
		if elapsed > 0 {
			return Position{StepIndex: len(s.steps) - 1}, true
		}
		return Position{}, true
	}

	if s.IsComplete(elapsed) {
		last := len(s.steps) - 1
		lastLoop := s.loopCount.Count()
		if lastLoop > 0 {
			lastLoop--
		}
		return Position{
			StepIndex:  last,
			LoopNumber: lastLoop,
			TimeInStep: s.steps[last].Duration,
		}, true
	}

	idx, timeInStep, timeUntilEnd := s.stepAt(elapsed % s.loopDuration)
	return Position{
		StepIndex:        idx,
		LoopNumber:       loopIndex(elapsed / s.loopDuration),
		TimeInStep:       timeInStep,
		TimeUntilStepEnd: timeUntilEnd,
	}, true
}

// stepAt walks the steps accumulating durations. The active step is the
// first whose cumulative end exceeds timeInLoop, which skips zero-duration
// steps naturally. If rounding pushed timeInLoop past the nominal total,
// the last step is pinned at its end boundary.
func (s *Sequence) stepAt(timeInLoop time.Duration) (int, time.Duration, time.Duration) {
	var accumulated time.Duration
	for i, st := range s.steps {
		end := accumulated + st.Duration
		if timeInLoop < end {
			return i, timeInLoop - accumulated, end - timeInLoop
		}
		accumulated = end
	}
	last := len(s.steps) - 1
	return last, s.steps[last].Duration, 0
}

// interpolationSource picks the color a fading step blends from. Only
// called for interpolating transitions.
func (s *Sequence) interpolationSource(idx int, loopNumber uint32) color.RGB {
	if idx == 0 {
		if loopNumber == 0 && s.hasStartColor {
			return s.startColor
		}
		// Blend from the final step so loop boundaries stay seamless.
		return s.steps[len(s.steps)-1].Color
	}
	return s.steps[idx-1].Color
}

func (s *Sequence) landingOrLast() color.RGB {
	if s.hasLandingColor {
		return s.landingColor
	}
	return s.steps[len(s.steps)-1].Color
}

// loopIndex narrows a duration quotient to the loop counter width.
func loopIndex(q time.Duration) uint32 {
	if q < 0 {
		return 0
	}
	if q > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(q)
}
