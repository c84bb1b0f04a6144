package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/ledseqd/internal/config"
	"github.com/dokzlo13/ledseqd/internal/library"
	"github.com/dokzlo13/ledseqd/internal/metrics"
	"github.com/dokzlo13/ledseqd/internal/sequence"
	"github.com/dokzlo13/ledseqd/internal/sequencer"
	"github.com/dokzlo13/ledseqd/internal/webhook"
)

var errServiceStopped = errors.New("sequencer service stopped")

// command pairs an engine command with the name its sequence was resolved
// from. The name is carried for status reporting only.
type command struct {
	sequencer.Command
	sequenceName string
}

// SequencerService owns the sequencer collection. Its loop goroutine is
// the only one that touches the collection; commands and snapshot
// requests arrive over channels.
type SequencerService struct {
	cfg        *config.Config
	collection *sequencer.Collection
	lib        *library.Library

	commands  chan command
	snapshots chan chan []webhook.LEDStatus
	done      chan struct{}

	// sequence name per LED, maintained on successful load and clear
	names map[string]string
}

// NewSequencerService creates the service around an assembled collection.
func NewSequencerService(cfg *config.Config, collection *sequencer.Collection, lib *library.Library) *SequencerService {
	return &SequencerService{
		cfg:        cfg,
		collection: collection,
		lib:        lib,
		commands:   make(chan command, 16),
		snapshots:  make(chan chan []webhook.LEDStatus),
		done:       make(chan struct{}),
		names:      make(map[string]string),
	}
}

// Start launches the service loop goroutine.
func (s *SequencerService) Start(ctx context.Context) {
	go s.run(ctx)
}

// Wait blocks until the service loop has exited. Drivers must stay open
// until then.
func (s *SequencerService) Wait() {
	<-s.done
}

// Enqueue hands a command to the service loop. It returns false when the
// loop is gone or the context expired before the command was accepted.
func (s *SequencerService) Enqueue(ctx context.Context, cmd command) bool {
	select {
	case s.commands <- cmd:
		return true
	case <-s.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// Snapshot reports the state of every LED. The request round-trips
// through the service loop, so callers never touch the collection
// directly.
func (s *SequencerService) Snapshot(ctx context.Context) ([]webhook.LEDStatus, error) {
	resp := make(chan []webhook.LEDStatus, 1)
	select {
	case s.snapshots <- resp:
	case <-s.done:
		return nil, errServiceStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case statuses := <-resp:
		return statuses, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *SequencerService) run(ctx context.Context) {
	defer close(s.done)

	log.Info().Int("leds", s.collection.Len()).Msg("Sequencer service started")

	s.autostart()

	tick := s.cfg.Service.TickInterval.Duration()
	idle := s.cfg.Service.IdlePoll.Duration()

	timer := time.NewTimer(s.service(tick, idle))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Sequencer service stopping")
			return

		case cmd := <-s.commands:
			s.handle(cmd)
			// Service right away so a start paints its first frame now
			// instead of on the next poll.
			resetTimer(timer, s.service(tick, idle))

		case <-timer.C:
			resetTimer(timer, s.service(tick, idle))

		case resp := <-s.snapshots:
			resp <- s.snapshot()
		}
	}
}

// service runs one pass over the collection and converts the folded
// timing hint into the next wake-up interval.
func (s *SequencerService) service(tick, idle time.Duration) time.Duration {
	timing := s.collection.ServiceAll()
	metrics.CountServiceCycle()
	metrics.SetRunning(s.collection.Running())

	switch timing.Kind {
	case sequence.KindContinuous:
		return tick
	case sequence.KindDelay:
		return timing.Delay
	default:
		return idle
	}
}

func (s *SequencerService) handle(cmd command) {
	if err := s.collection.HandleCommand(cmd.Command); err != nil {
		log.Warn().
			Err(err).
			Str("command_id", cmd.ID).
			Str("led", cmd.LED).
			Str("action", cmd.Action.String()).
			Msg("Command rejected")
		metrics.CountCommand(cmd.Action.String(), "error")
		return
	}

	switch cmd.Action {
	case sequencer.ActionLoad:
		s.names[cmd.LED] = cmd.sequenceName
	case sequencer.ActionClear:
		delete(s.names, cmd.LED)
	}

	log.Debug().
		Str("command_id", cmd.ID).
		Str("led", cmd.LED).
		Str("action", cmd.Action.String()).
		Msg("Command applied")
	metrics.CountCommand(cmd.Action.String(), "ok")
}

// autostart loads and starts the sequences named in the configuration.
// Runs on the loop goroutine before the first service pass.
func (s *SequencerService) autostart() {
	for _, entry := range s.cfg.Autostart {
		seq, err := s.lib.Resolve(entry.Sequence)
		if err != nil {
			log.Error().
				Err(err).
				Str("led", entry.LED).
				Str("sequence", entry.Sequence).
				Msg("Autostart skipped")
			continue
		}

		id := uuid.NewString()
		s.handle(command{
			Command:      sequencer.Command{ID: id, LED: entry.LED, Action: sequencer.ActionLoad, Sequence: seq},
			sequenceName: entry.Sequence,
		})
		s.handle(command{
			Command: sequencer.Command{ID: id, LED: entry.LED, Action: sequencer.ActionStart},
		})
	}
}

func (s *SequencerService) snapshot() []webhook.LEDStatus {
	statuses := make([]webhook.LEDStatus, 0, s.collection.Len())
	for _, id := range s.collection.IDs() {
		sq, ok := s.collection.Get(id)
		if !ok {
			continue
		}

		status := webhook.LEDStatus{
			ID:       id,
			State:    sq.State().String(),
			Sequence: s.names[id],
		}

		c := sq.CurrentColor()
		status.Color = webhook.StatusColor{R: c.R, G: c.G, B: c.B}

		if elapsed, ok := sq.ElapsedTime(); ok {
			ms := elapsed.Milliseconds()
			status.ElapsedMS = &ms
		}
		if pos, ok := sq.CurrentPosition(); ok {
			status.Position = &webhook.StatusPosition{
				StepIndex:          pos.StepIndex,
				LoopNumber:         pos.LoopNumber,
				TimeInStepMS:       pos.TimeInStep.Milliseconds(),
				TimeUntilStepEndMS: pos.TimeUntilStepEnd.Milliseconds(),
			}
		}

		statuses = append(statuses, status)
	}
	return statuses
}

// resetTimer rearms a loop timer regardless of whether it has fired.
func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
