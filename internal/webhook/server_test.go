package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dokzlo13/ledseqd/internal/eventbus"
)

func newTestServer(t *testing.T, snapshot SnapshotFunc) (*Server, *eventbus.Bus) {
	t.Helper()
	bus := eventbus.New()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		bus.Close(ctx)
	})
	return NewServer("127.0.0.1", 0, bus, snapshot), bus
}

func postCommand(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/command", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.handleCommand(rec, req)
	return rec
}

func TestHandleCommandPublishes(t *testing.T) {
	s, bus := newTestServer(t, nil)

	received := make(chan eventbus.Event, 1)
	bus.Subscribe(eventbus.EventTypeCommand, func(e eventbus.Event) {
		received <- e
	})

	rec := postCommand(t, s, `{"led":"strip","action":"load","sequence":"alarm","brightness":0.5}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202; body %s", rec.Code, rec.Body)
	}

	var resp CommandResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Status != "accepted" {
		t.Errorf("status = %q, want accepted", resp.Status)
	}
	if resp.CommandID == "" {
		t.Error("command_id is empty")
	}

	select {
	case e := <-received:
		if e.Data["led"] != "strip" {
			t.Errorf("led = %v, want strip", e.Data["led"])
		}
		if e.Data["action"] != "load" {
			t.Errorf("action = %v, want load", e.Data["action"])
		}
		if e.Data["sequence"] != "alarm" {
			t.Errorf("sequence = %v, want alarm", e.Data["sequence"])
		}
		if e.Data["brightness"] != 0.5 {
			t.Errorf("brightness = %v, want 0.5", e.Data["brightness"])
		}
		if e.Data["command_id"] != resp.CommandID {
			t.Errorf("command_id = %v, want %s", e.Data["command_id"], resp.CommandID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event published")
	}
}

func TestHandleCommandValidation(t *testing.T) {
	s, _ := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{"led":`},
		{"missing led", `{"action":"start"}`},
		{"unknown action", `{"led":"strip","action":"blink"}`},
		{"load without sequence", `{"led":"strip","action":"load"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postCommand(t, s, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400; body %s", rec.Code, rec.Body)
			}
		})
	}
}

func TestHandleLEDs(t *testing.T) {
	elapsed := int64(1300)
	statuses := []LEDStatus{
		{
			ID:        "strip",
			State:     "running",
			Sequence:  "alarm",
			Color:     StatusColor{R: 1},
			ElapsedMS: &elapsed,
			Position:  &StatusPosition{StepIndex: 1, TimeInStepMS: 300, TimeUntilStepEndMS: 700},
		},
		{ID: "lamp", State: "idle"},
	}
	s, _ := newTestServer(t, func(context.Context) ([]LEDStatus, error) {
		return statuses, nil
	})

	req := httptest.NewRequest(http.MethodGet, "/leds", nil)
	rec := httptest.NewRecorder()
	s.handleLEDs(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got []LEDStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2", len(got))
	}
	if got[0].ID != "strip" || got[0].State != "running" || got[0].Sequence != "alarm" {
		t.Errorf("row 0 = %+v", got[0])
	}
	if got[0].ElapsedMS == nil || *got[0].ElapsedMS != 1300 {
		t.Errorf("elapsed = %v, want 1300", got[0].ElapsedMS)
	}
	if got[1].ElapsedMS != nil || got[1].Position != nil {
		t.Errorf("idle row carries timing: %+v", got[1])
	}

	if !strings.Contains(rec.Body.String(), `"elapsed_ms":1300`) {
		t.Errorf("elapsed_ms not serialized: %s", rec.Body)
	}
	if strings.Contains(rec.Body.String(), `"lamp","state":"idle","sequence"`) {
		t.Errorf("empty sequence not omitted: %s", rec.Body)
	}
}

func TestHandleLEDsSnapshotError(t *testing.T) {
	s, _ := newTestServer(t, func(context.Context) ([]LEDStatus, error) {
		return nil, errors.New("service stopped")
	})

	req := httptest.NewRequest(http.MethodGet, "/leds", nil)
	rec := httptest.NewRecorder()
	s.handleLEDs(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}
