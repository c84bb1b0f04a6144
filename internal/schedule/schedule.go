// Package schedule fires LED commands at fixed times of day. Entries come
// from configuration; occurrences are published on the event bus and
// handled like any other command.
package schedule

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/ledseqd/internal/eventbus"
	"github.com/dokzlo13/ledseqd/internal/sequencer"
)

// Match patterns like "22:15", "06:30"
var fixedPattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// Entry is one time-of-day cue: at HH:MM, apply Action to LED. A Sequence
// name makes the command load that sequence first.
type Entry struct {
	At       string
	LED      string
	Sequence string
	Action   string

	hour   int
	minute int
}

// NewEntry validates and builds an entry. An empty action defaults to
// "start".
func NewEntry(at, led, sequence, action string) (Entry, error) {
	matches := fixedPattern.FindStringSubmatch(at)
	if matches == nil {
		return Entry{}, fmt.Errorf("invalid time %q, want HH:MM", at)
	}
	hour, _ := strconv.Atoi(matches[1])
	minute, _ := strconv.Atoi(matches[2])
	if hour > 23 {
		return Entry{}, fmt.Errorf("invalid hour: %d", hour)
	}
	if minute > 59 {
		return Entry{}, fmt.Errorf("invalid minute: %d", minute)
	}

	if led == "" {
		return Entry{}, fmt.Errorf("schedule entry %q has no led", at)
	}
	if action == "" {
		action = sequencer.ActionStart.String()
	}
	if _, err := sequencer.ParseAction(action); err != nil {
		return Entry{}, err
	}

	return Entry{
		At:       at,
		LED:      led,
		Sequence: sequence,
		Action:   action,
		hour:     hour,
		minute:   minute,
	}, nil
}

// nextAfter returns the first occurrence of this entry strictly after the
// given time.
func (e *Entry) nextAfter(after time.Time, loc *time.Location) time.Time {
	t := time.Date(after.Year(), after.Month(), after.Day(), e.hour, e.minute, 0, 0, loc)
	if t.After(after) {
		return t
	}
	d := after.AddDate(0, 0, 1)
	return time.Date(d.Year(), d.Month(), d.Day(), e.hour, e.minute, 0, 0, loc)
}

// Scheduler sleeps until the earliest entry comes due, publishes it, and
// recomputes. Entries are fixed at construction.
type Scheduler struct {
	entries []Entry
	bus     *eventbus.Bus
	loc     *time.Location
}

// New creates a scheduler over the given entries, evaluated in local time.
func New(bus *eventbus.Bus, entries []Entry) *Scheduler {
	return &Scheduler{
		entries: entries,
		bus:     bus,
		loc:     time.Local,
	}
}

// next finds the earliest occurrence strictly after the given time, along
// with every entry due at that instant. Entries sharing a time all fire.
func (s *Scheduler) next(after time.Time) (time.Time, []*Entry, bool) {
	after = after.In(s.loc)

	var earliest time.Time
	var due []*Entry

	for i := range s.entries {
		e := &s.entries[i]
		occ := e.nextAfter(after, s.loc)
		switch {
		case len(due) == 0 || occ.Before(earliest):
			earliest = occ
			due = append(due[:0], e)
		case occ.Equal(earliest):
			due = append(due, e)
		}
	}

	return earliest, due, len(due) > 0
}

// Run starts the scheduler loop. It blocks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	log.Info().Int("entries", len(s.entries)).Msg("Scheduler started")

	for {
		occ, due, ok := s.next(time.Now())

		sleepDuration := time.Hour // default if no entries
		if ok {
			sleepDuration = time.Until(occ)
			if sleepDuration < 0 {
				sleepDuration = 0
			}
		}

		log.Debug().
			Dur("sleep_duration", sleepDuration).
			Msg("Scheduler sleeping")

		timer := time.NewTimer(sleepDuration)

		select {
		case <-ctx.Done():
			timer.Stop()
			log.Info().Msg("Scheduler stopping")
			return nil

		case <-timer.C:
			for _, entry := range due {
				s.emit(entry, occ)
			}
		}
	}
}

// emit publishes a schedule occurrence to the bus.
func (s *Scheduler) emit(e *Entry, at time.Time) {
	commandID := uuid.NewString()

	log.Info().
		Str("command_id", commandID).
		Str("led", e.LED).
		Str("action", e.Action).
		Str("sequence", e.Sequence).
		Time("at", at).
		Msg("Schedule fired")

	data := map[string]any{
		"command_id": commandID,
		"led":        e.LED,
		"action":     e.Action,
		"at":         e.At,
	}
	if e.Sequence != "" {
		data["sequence"] = e.Sequence
	}

	s.bus.Publish(eventbus.Event{
		Type: eventbus.EventTypeSchedule,
		Data: data,
	})
}
