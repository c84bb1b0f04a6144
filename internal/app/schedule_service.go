package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/ledseqd/internal/config"
	"github.com/dokzlo13/ledseqd/internal/eventbus"
	"github.com/dokzlo13/ledseqd/internal/schedule"
)

// ScheduleService wraps the time-of-day scheduler.
type ScheduleService struct {
	scheduler *schedule.Scheduler
	enabled   bool
}

// NewScheduleService builds the scheduler from the configured entries.
func NewScheduleService(cfg *config.Config, bus *eventbus.Bus) (*ScheduleService, error) {
	if len(cfg.Schedule) == 0 {
		return &ScheduleService{}, nil
	}

	entries := make([]schedule.Entry, 0, len(cfg.Schedule))
	for _, e := range cfg.Schedule {
		entry, err := schedule.NewEntry(e.At, e.LED, e.Sequence, e.Action)
		if err != nil {
			return nil, fmt.Errorf("schedule entry %q: %w", e.At, err)
		}
		entries = append(entries, entry)
	}

	return &ScheduleService{
		scheduler: schedule.New(bus, entries),
		enabled:   true,
	}, nil
}

// IsEnabled returns whether any schedule entries are configured.
func (s *ScheduleService) IsEnabled() bool {
	return s.enabled
}

// Start begins the scheduler loop.
func (s *ScheduleService) Start(ctx context.Context) {
	if !s.enabled {
		log.Debug().Msg("Scheduler disabled, no entries configured")
		return
	}

	go func() {
		if err := s.scheduler.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Scheduler error")
		}
	}()
}
