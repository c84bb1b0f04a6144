package schedule

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dokzlo13/ledseqd/internal/eventbus"
)

func mustEntry(t *testing.T, at, led string) Entry {
	t.Helper()
	e, err := NewEntry(at, led, "", "")
	if err != nil {
		t.Fatalf("NewEntry(%q): %v", at, err)
	}
	return e
}

func TestNewEntry(t *testing.T) {
	e, err := NewEntry("07:30", "strip", "sunrise", "")
	if err != nil {
		t.Fatalf("NewEntry: %v", err)
	}
	if e.Action != "start" {
		t.Errorf("default action = %q, want start", e.Action)
	}
	if e.hour != 7 || e.minute != 30 {
		t.Errorf("parsed %d:%d, want 7:30", e.hour, e.minute)
	}

	if _, err := NewEntry("7:05", "strip", "", "stop"); err != nil {
		t.Errorf("single-digit hour rejected: %v", err)
	}

	bad := []struct {
		at, led, action string
		wantErr         string
	}{
		{"25:00", "strip", "", "invalid hour"},
		{"12:75", "strip", "", "invalid minute"},
		{"noonish", "strip", "", "invalid time"},
		{"12:00", "", "", "no led"},
		{"12:00", "strip", "blink", "unknown action"},
	}
	for _, tt := range bad {
		_, err := NewEntry(tt.at, tt.led, "", tt.action)
		if err == nil {
			t.Errorf("NewEntry(%q, %q, action %q) succeeded, want error", tt.at, tt.led, tt.action)
			continue
		}
		if !strings.Contains(err.Error(), tt.wantErr) {
			t.Errorf("error %q does not mention %q", err, tt.wantErr)
		}
	}
}

func TestNextAfter(t *testing.T) {
	loc := time.UTC
	entry := mustEntry(t, "07:30", "strip")

	tests := []struct {
		name  string
		after time.Time
		want  time.Time
	}{
		{
			name:  "before today's time",
			after: time.Date(2024, 6, 1, 6, 0, 0, 0, loc),
			want:  time.Date(2024, 6, 1, 7, 30, 0, 0, loc),
		},
		{
			name:  "after today's time rolls to tomorrow",
			after: time.Date(2024, 6, 1, 8, 0, 0, 0, loc),
			want:  time.Date(2024, 6, 2, 7, 30, 0, 0, loc),
		},
		{
			name:  "exactly at the time rolls to tomorrow",
			after: time.Date(2024, 6, 1, 7, 30, 0, 0, loc),
			want:  time.Date(2024, 6, 2, 7, 30, 0, 0, loc),
		},
		{
			name:  "one second past rolls to tomorrow",
			after: time.Date(2024, 6, 1, 7, 30, 1, 0, loc),
			want:  time.Date(2024, 6, 2, 7, 30, 0, 0, loc),
		},
		{
			name:  "month boundary",
			after: time.Date(2024, 6, 30, 23, 0, 0, 0, loc),
			want:  time.Date(2024, 7, 1, 7, 30, 0, 0, loc),
		},
		{
			name:  "year boundary",
			after: time.Date(2024, 12, 31, 23, 59, 0, 0, loc),
			want:  time.Date(2025, 1, 1, 7, 30, 0, 0, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := entry.nextAfter(tt.after, loc)
			if !got.Equal(tt.want) {
				t.Errorf("nextAfter(%s) = %s, want %s", tt.after, got, tt.want)
			}
		})
	}
}

func TestNextAcrossMidnight(t *testing.T) {
	loc := time.UTC
	entry := mustEntry(t, "00:05", "strip")

	after := time.Date(2024, 6, 1, 23, 59, 0, 0, loc)
	want := time.Date(2024, 6, 2, 0, 5, 0, 0, loc)
	if got := entry.nextAfter(after, loc); !got.Equal(want) {
		t.Errorf("nextAfter(%s) = %s, want %s", after, got, want)
	}
}

func TestSchedulerNext(t *testing.T) {
	s := New(nil, []Entry{
		mustEntry(t, "07:30", "strip"),
		mustEntry(t, "22:00", "lamp"),
	})
	s.loc = time.UTC

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	occ, due, ok := s.next(now)
	if !ok {
		t.Fatal("next() found nothing")
	}
	if len(due) != 1 || due[0].LED != "lamp" {
		t.Errorf("next entries = %v, want just lamp (22:00 is nearest)", due)
	}
	if want := time.Date(2024, 6, 1, 22, 0, 0, 0, time.UTC); !occ.Equal(want) {
		t.Errorf("occurrence = %s, want %s", occ, want)
	}

	// Late evening: tomorrow's 07:30 beats today's long-gone 22:00.
	now = time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC)
	occ, due, ok = s.next(now)
	if !ok {
		t.Fatal("next() found nothing")
	}
	if len(due) != 1 || due[0].LED != "strip" {
		t.Errorf("next entries = %v, want just strip", due)
	}
	if want := time.Date(2024, 6, 2, 7, 30, 0, 0, time.UTC); !occ.Equal(want) {
		t.Errorf("occurrence = %s, want %s", occ, want)
	}
}

func TestSchedulerNextSharedTime(t *testing.T) {
	s := New(nil, []Entry{
		mustEntry(t, "07:30", "strip"),
		mustEntry(t, "07:30", "lamp"),
		mustEntry(t, "22:00", "ceiling"),
	})
	s.loc = time.UTC

	now := time.Date(2024, 6, 1, 6, 0, 0, 0, time.UTC)
	_, due, ok := s.next(now)
	if !ok {
		t.Fatal("next() found nothing")
	}
	if len(due) != 2 {
		t.Fatalf("next entries = %v, want both 07:30 entries", due)
	}
	if due[0].LED != "strip" || due[1].LED != "lamp" {
		t.Errorf("due = [%s %s], want [strip lamp]", due[0].LED, due[1].LED)
	}
}

func TestSchedulerNextEmpty(t *testing.T) {
	s := New(nil, nil)
	if _, _, ok := s.next(time.Now()); ok {
		t.Error("next() on empty scheduler reported an occurrence")
	}
}

func TestEmitPublishes(t *testing.T) {
	bus := eventbus.New()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		bus.Close(ctx)
	}()

	received := make(chan eventbus.Event, 1)
	bus.Subscribe(eventbus.EventTypeSchedule, func(e eventbus.Event) {
		received <- e
	})

	entry, err := NewEntry("07:30", "strip", "sunrise", "")
	if err != nil {
		t.Fatalf("NewEntry: %v", err)
	}
	s := New(bus, []Entry{entry})
	s.emit(&s.entries[0], time.Now())

	select {
	case e := <-received:
		if e.Data["led"] != "strip" {
			t.Errorf("led = %v, want strip", e.Data["led"])
		}
		if e.Data["action"] != "start" {
			t.Errorf("action = %v, want start", e.Data["action"])
		}
		if e.Data["sequence"] != "sunrise" {
			t.Errorf("sequence = %v, want sunrise", e.Data["sequence"])
		}
		if e.Data["command_id"] == "" {
			t.Error("command_id missing")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event published")
	}
}
