package sequence

import (
	"math"
	"testing"
	"time"

	"github.com/dokzlo13/ledseqd/internal/color"
)

var (
	red    = color.RGB{R: 1}
	green  = color.RGB{G: 1}
	blue   = color.RGB{B: 1}
	yellow = color.RGB{R: 1, G: 1}
	white  = color.RGB{R: 1, G: 1, B: 1}
	black  = color.RGB{}
)

func colorsClose(a, b color.RGB) bool {
	const tol = 1e-9
	return math.Abs(a.R-b.R) <= tol && math.Abs(a.G-b.G) <= tol && math.Abs(a.B-b.B) <= tol
}

func mustBuild(t *testing.T, b *Builder) *Sequence {
	t.Helper()
	seq, err := b.Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	return seq
}

func TestEvaluateTwoStepInfinite(t *testing.T) {
	seq := mustBuild(t, NewBuilder().
		Step(red, time.Second, TransitionStep).
		Step(blue, time.Second, TransitionLinear).
		LoopCount(Forever()))

	tests := []struct {
		name       string
		elapsed    time.Duration
		want       color.RGB
		wantTiming Timing
	}{
		{"start of red hold", 0, red, DelayFor(time.Second)},
		{"end of red hold", 999 * time.Millisecond, red, DelayFor(time.Millisecond)},
		{"fade begins at red", time.Second, red, Continuous()},
		{"fade midpoint", 1500 * time.Millisecond, color.RGB{R: 0.5, B: 0.5}, Continuous()},
		{"almost blue", 1999 * time.Millisecond, color.RGB{R: 0.001, B: 0.999}, Continuous()},
		{"wrap to red hold", 2 * time.Second, red, DelayFor(time.Second)},
		{"second loop red hold", 2999 * time.Millisecond, red, DelayFor(time.Millisecond)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, timing := seq.Evaluate(tt.elapsed)
			if !colorsClose(got, tt.want) {
				t.Errorf("Evaluate(%v) color = %v, want %v", tt.elapsed, got, tt.want)
			}
			if timing != tt.wantTiming {
				t.Errorf("Evaluate(%v) timing = %v, want %v", tt.elapsed, timing, tt.wantTiming)
			}
		})
	}
}

func TestEvaluateDeterminism(t *testing.T) {
	seq := mustBuild(t, NewBuilder().
		Step(red, 100*time.Millisecond, TransitionEaseInOut).
		Step(blue, 250*time.Millisecond, TransitionEaseOut).
		LoopCount(Forever()))

	for _, elapsed := range []time.Duration{0, 37 * time.Millisecond, 173 * time.Millisecond, time.Hour} {
		c1, t1 := seq.Evaluate(elapsed)
		c2, t2 := seq.Evaluate(elapsed)
		if c1 != c2 || t1 != t2 {
			t.Errorf("Evaluate(%v) not deterministic: (%v,%v) then (%v,%v)", elapsed, c1, t1, c2, t2)
		}
	}
}

func TestEvaluatePeriodicity(t *testing.T) {
	seq := mustBuild(t, NewBuilder().
		Step(red, 100*time.Millisecond, TransitionStep).
		Step(blue, 150*time.Millisecond, TransitionLinear).
		LoopCount(Forever()))

	loop := seq.LoopDuration()
	if loop != 250*time.Millisecond {
		t.Fatalf("LoopDuration() = %v, want 250ms", loop)
	}

	offsets := []time.Duration{0, 50 * time.Millisecond, 100 * time.Millisecond, 175 * time.Millisecond, 249 * time.Millisecond}
	for _, off := range offsets {
		base, _ := seq.Evaluate(loop + off)
		for k := 2; k <= 4; k++ {
			got, _ := seq.Evaluate(time.Duration(k)*loop + off)
			if !colorsClose(got, base) {
				t.Errorf("Evaluate(%d*loop+%v) = %v, want %v", k, off, got, base)
			}
		}
	}
}

func TestEvaluateBoundaryExactness(t *testing.T) {
	// A finite linear fade lands exactly on the target at its duration.
	seq := mustBuild(t, NewBuilder().
		Step(blue, time.Second, TransitionLinear).
		StartColor(red))

	got, timing := seq.Evaluate(time.Second)
	if !colorsClose(got, blue) {
		t.Errorf("Evaluate(duration) = %v, want exact target %v", got, blue)
	}
	if !timing.IsComplete() {
		t.Errorf("Evaluate(duration) timing = %v, want complete", timing)
	}
}

func TestEvaluateFiniteCompletion(t *testing.T) {
	build := func(landing bool) *Sequence {
		b := NewBuilder().
			Step(red, 250*time.Millisecond, TransitionStep).
			Step(blue, 250*time.Millisecond, TransitionStep).
			LoopCount(Loops(2))
		if landing {
			b.LandingColor(white)
		}
		return mustBuild(t, b)
	}

	withLanding := build(true)
	withoutLanding := build(false)

	tests := []struct {
		name     string
		seq      *Sequence
		elapsed  time.Duration
		want     color.RGB
		complete bool
	}{
		{"first loop red", withLanding, 0, red, false},
		{"first loop blue", withLanding, 490 * time.Millisecond, blue, false},
		{"second loop red", withLanding, 500 * time.Millisecond, red, false},
		{"second loop blue", withLanding, 990 * time.Millisecond, blue, false},
		{"landing at total", withLanding, time.Second, white, true},
		{"landing close to total", withLanding, 999 * time.Millisecond, blue, false},
		{"landing well past total", withLanding, time.Hour, white, true},
		{"no landing falls back to last step", withoutLanding, time.Second, blue, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, timing := tt.seq.Evaluate(tt.elapsed)
			if !colorsClose(got, tt.want) {
				t.Errorf("Evaluate(%v) = %v, want %v", tt.elapsed, got, tt.want)
			}
			if timing.IsComplete() != tt.complete {
				t.Errorf("Evaluate(%v) complete = %v, want %v", tt.elapsed, timing.IsComplete(), tt.complete)
			}
		})
	}
}

func TestEvaluateZeroDurationWaypoint(t *testing.T) {
	seq := mustBuild(t, NewBuilder().
		Step(yellow, 0, TransitionStep).
		Step(black, time.Second, TransitionLinear).
		LoopCount(Forever()))

	got, timing := seq.Evaluate(0)
	if !colorsClose(got, yellow) {
		t.Errorf("Evaluate(0) = %v, want the yellow waypoint", got)
	}
	if !timing.IsContinuous() {
		t.Errorf("Evaluate(0) timing = %v, want continuous", timing)
	}

	// One tick later the fade toward black has begun.
	got, _ = seq.Evaluate(time.Millisecond)
	if got.R >= 1 || got.G >= 1 {
		t.Errorf("Evaluate(1ms) = %v, want progress away from yellow", got)
	}

	got, _ = seq.Evaluate(500 * time.Millisecond)
	if !colorsClose(got, color.RGB{R: 0.5, G: 0.5}) {
		t.Errorf("Evaluate(500ms) = %v, want half-faded yellow", got)
	}

	// Every loop restarts the fade from the waypoint color.
	got, _ = seq.Evaluate(time.Second)
	if !colorsClose(got, yellow) {
		t.Errorf("Evaluate(loop start) = %v, want yellow again", got)
	}
}

func TestEvaluateAllZeroDurations(t *testing.T) {
	seq := mustBuild(t, NewBuilder().
		Step(red, 0, TransitionStep).
		Step(green, 0, TransitionStep).
		LoopCount(Forever()))

	got, timing := seq.Evaluate(0)
	if !colorsClose(got, red) {
		t.Errorf("Evaluate(0) = %v, want first step color", got)
	}
	if !timing.IsContinuous() {
		t.Errorf("Evaluate(0) timing = %v, want a zero-delay hint", timing)
	}

	got, timing = seq.Evaluate(time.Nanosecond)
	if !colorsClose(got, green) {
		t.Errorf("Evaluate(>0) = %v, want last step color", got)
	}
	if !timing.IsComplete() {
		t.Errorf("Evaluate(>0) timing = %v, want complete", timing)
	}

	withLanding := mustBuild(t, NewBuilder().
		Step(red, 0, TransitionStep).
		LandingColor(white))
	got, _ = withLanding.Evaluate(time.Millisecond)
	if !colorsClose(got, white) {
		t.Errorf("Evaluate(>0) with landing = %v, want landing color", got)
	}
}

func TestEvaluateStartColor(t *testing.T) {
	seq := mustBuild(t, NewBuilder().
		Step(blue, time.Second, TransitionLinear).
		StartColor(red).
		LoopCount(Forever()))

	got, _ := seq.Evaluate(0)
	if !colorsClose(got, red) {
		t.Errorf("Evaluate(0) = %v, want smooth entry from start color", got)
	}

	got, _ = seq.Evaluate(500 * time.Millisecond)
	if !colorsClose(got, color.RGB{R: 0.5, B: 0.5}) {
		t.Errorf("Evaluate(500ms) = %v, want halfway red to blue", got)
	}

	// From the second loop onward the source is the final step, so a
	// single-step sequence holds its own color.
	for _, elapsed := range []time.Duration{time.Second, 1500 * time.Millisecond, 7 * time.Second} {
		got, _ = seq.Evaluate(elapsed)
		if !colorsClose(got, blue) {
			t.Errorf("Evaluate(%v) = %v, want solid blue after first loop", elapsed, got)
		}
	}
}

func TestStartColorIgnoredForStepTransition(t *testing.T) {
	seq := mustBuild(t, NewBuilder().
		Step(blue, time.Second, TransitionStep).
		StartColor(red).
		LoopCount(Forever()))

	got, _ := seq.Evaluate(0)
	if !colorsClose(got, blue) {
		t.Errorf("Evaluate(0) = %v, want target color, start color never affects step transitions", got)
	}
}

func TestEvaluateFunctionBased(t *testing.T) {
	var gotBase color.RGB
	colorFn := func(base color.RGB, elapsed time.Duration) color.RGB {
		gotBase = base
		if elapsed >= 50*time.Millisecond {
			return green
		}
		return base
	}
	timingFn := func(elapsed time.Duration) Timing {
		switch {
		case elapsed >= 100*time.Millisecond:
			return Complete()
		case elapsed >= 50*time.Millisecond:
			return Continuous()
		default:
			return DelayFor(10 * time.Millisecond)
		}
	}

	seq, err := FromFunction(red, colorFn, timingFn)
	if err != nil {
		t.Fatalf("FromFunction() failed: %v", err)
	}
	if !seq.FunctionBased() {
		t.Fatal("FunctionBased() = false, want true")
	}

	c, timing := seq.Evaluate(0)
	if !colorsClose(c, red) {
		t.Errorf("Evaluate(0) = %v, want base color", c)
	}
	if timing != DelayFor(10*time.Millisecond) {
		t.Errorf("Evaluate(0) timing = %v, want 10ms delay", timing)
	}
	if !colorsClose(gotBase, red) {
		t.Errorf("color function received base %v, want %v", gotBase, red)
	}

	_, timing = seq.Evaluate(60 * time.Millisecond)
	if !timing.IsContinuous() {
		t.Errorf("Evaluate(60ms) timing = %v, want continuous", timing)
	}

	_, timing = seq.Evaluate(100 * time.Millisecond)
	if !timing.IsComplete() {
		t.Errorf("Evaluate(100ms) timing = %v, want complete", timing)
	}
	if !seq.IsComplete(100 * time.Millisecond) {
		t.Error("IsComplete(100ms) = false, want true")
	}
}

func TestEvaluateNegativeElapsedClamps(t *testing.T) {
	seq := mustBuild(t, NewBuilder().
		Step(red, time.Second, TransitionStep).
		LoopCount(Forever()))

	got, _ := seq.Evaluate(-time.Hour)
	want, _ := seq.Evaluate(0)
	if got != want {
		t.Errorf("Evaluate(negative) = %v, want Evaluate(0) = %v", got, want)
	}
}

func TestEvaluateZeroLoopsCompletesImmediately(t *testing.T) {
	seq := mustBuild(t, NewBuilder().
		Step(red, time.Second, TransitionStep).
		LoopCount(Loops(0)).
		LandingColor(white))

	got, timing := seq.Evaluate(0)
	if !timing.IsComplete() {
		t.Errorf("Evaluate(0) timing = %v, want complete for zero loops", timing)
	}
	if !colorsClose(got, white) {
		t.Errorf("Evaluate(0) = %v, want landing color", got)
	}
}

func TestPositionAt(t *testing.T) {
	seq := mustBuild(t, NewBuilder().
		Step(red, 100*time.Millisecond, TransitionStep).
		Step(green, 0, TransitionStep).
		Step(blue, 200*time.Millisecond, TransitionLinear).
		LoopCount(Loops(2)))

	tests := []struct {
		name    string
		elapsed time.Duration
		want    Position
	}{
		{"first step start", 0, Position{StepIndex: 0, LoopNumber: 0, TimeInStep: 0, TimeUntilStepEnd: 100 * time.Millisecond}},
		{"inside first step", 40 * time.Millisecond, Position{StepIndex: 0, LoopNumber: 0, TimeInStep: 40 * time.Millisecond, TimeUntilStepEnd: 60 * time.Millisecond}},
		{"zero-duration step skipped", 100 * time.Millisecond, Position{StepIndex: 2, LoopNumber: 0, TimeInStep: 0, TimeUntilStepEnd: 200 * time.Millisecond}},
		{"second loop", 350 * time.Millisecond, Position{StepIndex: 0, LoopNumber: 1, TimeInStep: 50 * time.Millisecond, TimeUntilStepEnd: 50 * time.Millisecond}},
		{"complete pins to last step end", 600 * time.Millisecond, Position{StepIndex: 2, LoopNumber: 1, TimeInStep: 200 * time.Millisecond, TimeUntilStepEnd: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := seq.PositionAt(tt.elapsed)
			if !ok {
				t.Fatalf("PositionAt(%v) not ok", tt.elapsed)
			}
			if got != tt.want {
				t.Errorf("PositionAt(%v) = %+v, want %+v", tt.elapsed, got, tt.want)
			}
		})
	}
}

func TestPositionAtFunctionBased(t *testing.T) {
	seq, err := FromFunction(red,
		func(base color.RGB, _ time.Duration) color.RGB { return base },
		func(time.Duration) Timing { return Continuous() })
	if err != nil {
		t.Fatalf("FromFunction() failed: %v", err)
	}
	if _, ok := seq.PositionAt(0); ok {
		t.Error("PositionAt() ok = true for function-based sequence, want false")
	}
}

func TestIsComplete(t *testing.T) {
	finite := mustBuild(t, NewBuilder().
		Step(red, 100*time.Millisecond, TransitionStep).
		LoopCount(Loops(3)))
	infinite := mustBuild(t, NewBuilder().
		Step(red, 100*time.Millisecond, TransitionStep).
		LoopCount(Forever()))

	tests := []struct {
		name    string
		seq     *Sequence
		elapsed time.Duration
		want    bool
	}{
		{"finite before total", finite, 299 * time.Millisecond, false},
		{"finite at total", finite, 300 * time.Millisecond, true},
		{"finite past total", finite, time.Hour, true},
		{"infinite never", infinite, 1000 * time.Hour, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.seq.IsComplete(tt.elapsed); got != tt.want {
				t.Errorf("IsComplete(%v) = %v, want %v", tt.elapsed, got, tt.want)
			}
		})
	}
}
