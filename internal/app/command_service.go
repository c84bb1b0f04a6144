package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/ledseqd/internal/eventbus"
	"github.com/dokzlo13/ledseqd/internal/library"
	"github.com/dokzlo13/ledseqd/internal/metrics"
	"github.com/dokzlo13/ledseqd/internal/sequencer"
)

// CommandService turns bus events into sequencer commands. Sequence names
// are resolved against the library here, so the service loop never sees a
// name. A command that names a sequence for a non-load action gets a load
// enqueued first; "start sunrise" works from a cold LED.
type CommandService struct {
	bus    *eventbus.Bus
	lib    *library.Library
	seqSvc *SequencerService
}

// NewCommandService creates a new CommandService.
func NewCommandService(bus *eventbus.Bus, lib *library.Library, seqSvc *SequencerService) *CommandService {
	return &CommandService{
		bus:    bus,
		lib:    lib,
		seqSvc: seqSvc,
	}
}

// Start subscribes to command and schedule events.
func (s *CommandService) Start(ctx context.Context) {
	handler := func(event eventbus.Event) {
		s.dispatch(ctx, event)
	}
	s.bus.Subscribe(eventbus.EventTypeCommand, handler)
	s.bus.Subscribe(eventbus.EventTypeSchedule, handler)
}

func (s *CommandService) dispatch(ctx context.Context, event eventbus.Event) {
	id, _ := event.Data["command_id"].(string)
	led, _ := event.Data["led"].(string)
	actionStr, _ := event.Data["action"].(string)

	action, err := sequencer.ParseAction(actionStr)
	if err != nil {
		log.Warn().
			Str("command_id", id).
			Str("led", led).
			Str("action", actionStr).
			Msg("Dropping command with unknown action")
		metrics.CountCommand(actionStr, "error")
		return
	}

	var brightness *float64
	if b, ok := event.Data["brightness"].(float64); ok {
		brightness = &b
	}

	if name, _ := event.Data["sequence"].(string); name != "" {
		seq, err := s.lib.Resolve(name)
		if err != nil {
			log.Warn().
				Err(err).
				Str("command_id", id).
				Str("led", led).
				Msg("Dropping command, sequence not found")
			metrics.CountCommand(action.String(), "error")
			return
		}

		load := command{
			Command:      sequencer.Command{ID: id, LED: led, Action: sequencer.ActionLoad, Sequence: seq},
			sequenceName: name,
		}
		if action == sequencer.ActionLoad {
			load.Brightness = brightness
			s.seqSvc.Enqueue(ctx, load)
			return
		}
		if !s.seqSvc.Enqueue(ctx, load) {
			return
		}
	}

	s.seqSvc.Enqueue(ctx, command{
		Command: sequencer.Command{ID: id, LED: led, Action: action, Brightness: brightness},
	})
}
