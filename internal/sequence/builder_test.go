package sequence

import (
	"errors"
	"testing"
	"time"

	"github.com/dokzlo13/ledseqd/internal/color"
)

func TestBuildEmpty(t *testing.T) {
	_, err := NewBuilder().Build()
	if !errors.Is(err, ErrEmptySequence) {
		t.Errorf("Build() error = %v, want ErrEmptySequence", err)
	}
}

func TestBuildCapacity(t *testing.T) {
	b := NewBuilder()
	for i := 0; i < DefaultCapacity+1; i++ {
		b.Step(red, time.Second, TransitionStep)
	}
	_, err := b.Build()
	var capErr *CapacityError
	if !errors.As(err, &capErr) {
		t.Fatalf("Build() error = %v, want CapacityError", err)
	}
	if capErr.Capacity != DefaultCapacity || capErr.Steps != DefaultCapacity+1 {
		t.Errorf("CapacityError = %+v, want capacity %d with %d steps", capErr, DefaultCapacity, DefaultCapacity+1)
	}
}

func TestBuildCustomCapacity(t *testing.T) {
	_, err := NewBuilder().
		Capacity(2).
		Step(red, time.Second, TransitionStep).
		Step(green, time.Second, TransitionStep).
		Step(blue, time.Second, TransitionStep).
		Build()
	var capErr *CapacityError
	if !errors.As(err, &capErr) {
		t.Fatalf("Build() error = %v, want CapacityError", err)
	}
	if capErr.Capacity != 2 {
		t.Errorf("CapacityError.Capacity = %d, want 2", capErr.Capacity)
	}

	if _, err := NewBuilder().Capacity(2).Step(red, time.Second, TransitionStep).Build(); err != nil {
		t.Errorf("Build() within capacity failed: %v", err)
	}
}

func TestBuildZeroDurationInterpolating(t *testing.T) {
	for _, tr := range []Transition{TransitionLinear, TransitionEaseIn, TransitionEaseOut, TransitionEaseInOut, TransitionEaseOutIn} {
		t.Run(tr.String(), func(t *testing.T) {
			_, err := NewBuilder().
				Step(red, time.Second, TransitionStep).
				Step(blue, 0, tr).
				Build()
			var zeroErr *ZeroDurationError
			if !errors.As(err, &zeroErr) {
				t.Fatalf("Build() error = %v, want ZeroDurationError", err)
			}
			if zeroErr.StepIndex != 1 || zeroErr.Transition != tr {
				t.Errorf("ZeroDurationError = %+v, want step 1 with %s", zeroErr, tr)
			}
		})
	}
}

func TestBuildZeroDurationStepAllowed(t *testing.T) {
	seq, err := NewBuilder().
		Step(red, 0, TransitionStep).
		Step(blue, time.Second, TransitionLinear).
		Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if seq.Len() != 2 {
		t.Errorf("Len() = %d, want 2", seq.Len())
	}
}

func TestBuildNegativeDuration(t *testing.T) {
	_, err := NewBuilder().Step(red, -time.Second, TransitionStep).Build()
	if err == nil {
		t.Error("Build() with negative duration succeeded, want error")
	}
}

func TestBuildCachesLoopDuration(t *testing.T) {
	seq := mustBuild(t, NewBuilder().
		Step(red, 100*time.Millisecond, TransitionStep).
		Step(green, 0, TransitionStep).
		Step(blue, 250*time.Millisecond, TransitionLinear))
	if got := seq.LoopDuration(); got != 350*time.Millisecond {
		t.Errorf("LoopDuration() = %v, want 350ms", got)
	}
}

func TestBuildCopiesSteps(t *testing.T) {
	b := NewBuilder().Step(red, time.Second, TransitionStep)
	seq := mustBuild(t, b)

	// Mutating the builder afterwards must not leak into the sequence.
	b.Step(blue, time.Second, TransitionStep)
	if seq.Len() != 1 {
		t.Errorf("Len() = %d after builder mutation, want 1", seq.Len())
	}

	steps := seq.Steps()
	steps[0].Color = green
	again := seq.Steps()
	if again[0].Color != red {
		t.Errorf("Steps() exposed internal storage: first color = %v, want %v", again[0].Color, red)
	}
}

func TestBuildDefaults(t *testing.T) {
	seq := mustBuild(t, NewBuilder().Step(red, time.Second, TransitionStep))
	if seq.LoopCount().Infinite() || seq.LoopCount().Count() != 1 {
		t.Errorf("LoopCount() = %v, want a single loop", seq.LoopCount())
	}
	if _, ok := seq.StartColor(); ok {
		t.Error("StartColor() set by default, want unset")
	}
	if _, ok := seq.LandingColor(); ok {
		t.Error("LandingColor() set by default, want unset")
	}
	if seq.FunctionBased() {
		t.Error("FunctionBased() = true for step sequence")
	}
}

func TestFromSteps(t *testing.T) {
	steps := []Step{
		{Color: red, Duration: time.Second, Transition: TransitionStep},
		{Color: blue, Duration: time.Second, Transition: TransitionLinear},
	}
	seq, err := FromSteps(steps, Forever())
	if err != nil {
		t.Fatalf("FromSteps() failed: %v", err)
	}
	if seq.Len() != 2 {
		t.Errorf("Len() = %d, want 2", seq.Len())
	}
	if !seq.LoopCount().Infinite() {
		t.Error("LoopCount() finite, want forever")
	}

	if _, err := FromSteps(nil, Forever()); !errors.Is(err, ErrEmptySequence) {
		t.Errorf("FromSteps(nil) error = %v, want ErrEmptySequence", err)
	}
}

func TestFromFunctionValidation(t *testing.T) {
	colorFn := func(base color.RGB, _ time.Duration) color.RGB { return base }
	timingFn := func(time.Duration) Timing { return Continuous() }

	if _, err := FromFunction(red, nil, timingFn); err == nil {
		t.Error("FromFunction(nil colorFn) succeeded, want error")
	}
	if _, err := FromFunction(red, colorFn, nil); err == nil {
		t.Error("FromFunction(nil timingFn) succeeded, want error")
	}

	seq, err := FromFunction(red, colorFn, timingFn)
	if err != nil {
		t.Fatalf("FromFunction() failed: %v", err)
	}
	if !seq.FunctionBased() {
		t.Error("FunctionBased() = false, want true")
	}
	if start, ok := seq.StartColor(); !ok || start != red {
		t.Errorf("StartColor() = %v,%v, want base color", start, ok)
	}
	if seq.LoopCount().Infinite() || seq.LoopCount().Count() != 1 {
		t.Errorf("LoopCount() = %v, want a single loop", seq.LoopCount())
	}
	if seq.Len() != 0 {
		t.Errorf("Len() = %d, want 0 for function-based", seq.Len())
	}
}
