// Package sequencer owns the lifecycle of one animated light: it binds a
// sequence to a light handle and a time source, tracks the reference clock
// across pause and resume, and writes colors only when they change enough
// to matter.
package sequencer

import (
	"errors"
	"fmt"
	"time"

	"github.com/dokzlo13/ledseqd/internal/clock"
	"github.com/dokzlo13/ledseqd/internal/color"
	"github.com/dokzlo13/ledseqd/internal/sequence"
)

// DefaultColorEpsilon is the per-channel tolerance below which a color
// change is not written to the light. It absorbs interpolation noise that
// would otherwise flicker the light imperceptibly.
const DefaultColorEpsilon = 0.001

// State is the lifecycle phase of a Sequencer.
type State int

const (
	// StateIdle means no sequence is loaded.
	StateIdle State = iota
	// StateLoaded means a sequence is loaded but not started.
	StateLoaded
	// StateRunning means the sequence is being serviced.
	StateRunning
	// StatePaused means the reference clock is frozen.
	StatePaused
	// StateComplete means a finite sequence has finished.
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoaded:
		return "loaded"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateComplete:
		return "complete"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Light is the sink a Sequencer writes to. SetColor must be fast and must
// not block; drivers that talk to slow transports queue the write and
// apply it in the background.
type Light interface {
	SetColor(c color.RGB)
}

// Sequencer drives one light from one sequence. It is not safe for
// concurrent use; callers serialize access, typically behind a command
// channel owned by a single service loop.
type Sequencer struct {
	light Light
	clock clock.Clock

	state     State
	seq       *sequence.Sequence
	startTime time.Time
	pauseTime time.Time

	currentColor color.RGB
	brightness   float64
	epsilon      float64
}

// New creates a Sequencer in the idle state with full brightness and the
// default color epsilon.
func New(light Light, clk clock.Clock) *Sequencer {
	return &Sequencer{
		light:      light,
		clock:      clk,
		brightness: 1.0,
		epsilon:    DefaultColorEpsilon,
	}
}

// Load replaces the current sequence and moves to the loaded state. It is
// valid from any state, clears the timing fields, and never touches the
// light. The sequence is shared read-only; Load never copies it.
func (s *Sequencer) Load(seq *sequence.Sequence) error {
	if seq == nil {
		return errors.New("load: nil sequence")
	}
	s.seq = seq
	s.startTime = time.Time{}
	s.pauseTime = time.Time{}
	s.state = StateLoaded
	return nil
}

// Start sets the reference clock and moves to running. It performs no
// light write; the first Service call realizes the color, so several
// sequencers can be started together and show synchronized first frames.
func (s *Sequencer) Start() error {
	if s.state != StateLoaded {
		return invalidState("start", s.state, StateLoaded)
	}
	s.startTime = s.clock.Now()
	s.state = StateRunning
	return nil
}

// Service evaluates the sequence at the current elapsed time, writes the
// color if it moved beyond the epsilon, and reports when the next call is
// needed. A finite sequence that has run its course moves to the complete
// state with its landing color written.
func (s *Sequencer) Service() (sequence.Timing, error) {
	if s.state != StateRunning {
		return sequence.Timing{}, invalidState("service", s.state, StateRunning)
	}
	c, timing := s.seq.Evaluate(s.clock.Now().Sub(s.startTime))
	s.write(c)
	if timing.IsComplete() {
		s.state = StateComplete
	}
	return timing, nil
}

// Pause freezes the reference clock. The light keeps its current color.
func (s *Sequencer) Pause() error {
	if s.state != StateRunning {
		return invalidState("pause", s.state, StateRunning)
	}
	s.pauseTime = s.clock.Now()
	s.state = StatePaused
	return nil
}

// Resume shifts the reference clock forward by exactly the paused
// interval, so the next Service computes the same elapsed value it would
// have seen the instant before Pause. If the shift would overflow the
// time representation the old reference is kept rather than failing.
func (s *Sequencer) Resume() error {
	if s.state != StatePaused {
		return invalidState("resume", s.state, StatePaused)
	}
	paused := s.clock.Now().Sub(s.pauseTime)
	if paused < 0 {
		paused = 0
	}
	if shifted := s.startTime.Add(paused); !shifted.Before(s.startTime) {
		s.startTime = shifted
	}
	s.pauseTime = time.Time{}
	s.state = StateRunning
	return nil
}

// Restart rewinds the sequence to elapsed zero and moves to running. No
// light write happens until the next Service.
func (s *Sequencer) Restart() error {
	switch s.state {
	case StateRunning, StatePaused, StateComplete:
	default:
		return invalidState("restart", s.state, StateRunning, StatePaused, StateComplete)
	}
	s.startTime = s.clock.Now()
	s.pauseTime = time.Time{}
	s.state = StateRunning
	return nil
}

// Stop turns the light off and returns to the loaded state, keeping the
// sequence for a later Start. The off write bypasses the epsilon filter.
func (s *Sequencer) Stop() error {
	switch s.state {
	case StateRunning, StatePaused, StateComplete:
	default:
		return invalidState("stop", s.state, StateRunning, StatePaused, StateComplete)
	}
	s.startTime = time.Time{}
	s.pauseTime = time.Time{}
	s.state = StateLoaded
	s.writeOff()
	return nil
}

// Clear drops the sequence, turns the light off and returns to idle. It
// is valid from any state.
func (s *Sequencer) Clear() {
	s.seq = nil
	s.startTime = time.Time{}
	s.pauseTime = time.Time{}
	s.state = StateIdle
	s.writeOff()
}

// State returns the current lifecycle phase.
func (s *Sequencer) State() State {
	return s.state
}

// Sequence returns the loaded sequence, nil when idle.
func (s *Sequencer) Sequence() *sequence.Sequence {
	return s.seq
}

// CurrentColor returns the last color written to the light, already scaled
// by brightness. Off until the first write.
func (s *Sequencer) CurrentColor() color.RGB {
	return s.currentColor
}

// ElapsedTime returns the animation time the sequence is evaluated at.
// While paused it is frozen at the pause instant; once complete it keeps
// advancing. The second return is false when no reference clock is set.
func (s *Sequencer) ElapsedTime() (time.Duration, bool) {
	switch s.state {
	case StateRunning, StateComplete:
		return s.clock.Now().Sub(s.startTime), true
	case StatePaused:
		return s.pauseTime.Sub(s.startTime), true
	default:
		return 0, false
	}
}

// CurrentPosition locates the animation within the step grid. The second
// return is false when there is no elapsed time yet or the sequence is
// function-based.
func (s *Sequencer) CurrentPosition() (sequence.Position, bool) {
	elapsed, ok := s.ElapsedTime()
	if !ok {
		return sequence.Position{}, false
	}
	return s.seq.PositionAt(elapsed)
}

// PeekNextTiming evaluates the service hint without mutating state or
// writing to the light. From the loaded state it previews the hint the
// first Service after Start would return.
func (s *Sequencer) PeekNextTiming() (sequence.Timing, error) {
	switch s.state {
	case StateLoaded:
		_, timing := s.seq.Evaluate(0)
		return timing, nil
	case StateRunning:
		_, timing := s.seq.Evaluate(s.clock.Now().Sub(s.startTime))
		return timing, nil
	case StatePaused:
		_, timing := s.seq.Evaluate(s.pauseTime.Sub(s.startTime))
		return timing, nil
	case StateComplete:
		return sequence.Complete(), nil
	default:
		return sequence.Timing{}, invalidState("peek", s.state, StateLoaded, StateRunning, StatePaused, StateComplete)
	}
}

// Brightness returns the per-channel scale applied before writes.
func (s *Sequencer) Brightness() float64 {
	return s.brightness
}

// SetBrightness clamps b to [0, 1] and applies it to subsequent writes.
func (s *Sequencer) SetBrightness(b float64) {
	if b < 0 {
		b = 0
	}
	if b > 1 {
		b = 1
	}
	s.brightness = b
}

// ColorEpsilon returns the per-channel write tolerance.
func (s *Sequencer) ColorEpsilon() float64 {
	return s.epsilon
}

// SetColorEpsilon overrides the write tolerance. Negative values clamp
// to zero, which makes every color change a write.
func (s *Sequencer) SetColorEpsilon(eps float64) {
	if eps < 0 {
		eps = 0
	}
	s.epsilon = eps
}

// write scales by brightness and skips the light unless at least one
// channel moved by more than the epsilon. Static holds cost nothing on
// the bus.
func (s *Sequencer) write(c color.RGB) {
	scaled := c.Scale(s.brightness)
	if scaled.NearEqual(s.currentColor, s.epsilon) {
		return
	}
	s.light.SetColor(scaled)
	s.currentColor = scaled
}

// writeOff forces the light dark regardless of the epsilon filter.
func (s *Sequencer) writeOff() {
	s.light.SetColor(color.Off)
	s.currentColor = color.Off
}
