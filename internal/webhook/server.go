// Package webhook exposes the HTTP command API. Commands are validated,
// stamped with an id, and published to the event bus; the sequencer side
// picks them up asynchronously.
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/ledseqd/internal/eventbus"
	"github.com/dokzlo13/ledseqd/internal/sequencer"
)

// Server is an HTTP server that accepts LED commands and publishes them to
// the bus.
type Server struct {
	addr       string
	bus        *eventbus.Bus
	snapshot   SnapshotFunc
	httpServer *http.Server
}

// NewServer creates a new command API server.
func NewServer(host string, port int, bus *eventbus.Bus, snapshot SnapshotFunc) *Server {
	return &Server{
		addr:     fmt.Sprintf("%s:%d", host, port),
		bus:      bus,
		snapshot: snapshot,
	}
}

// Run starts the command API server. It blocks until the context is
// cancelled.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /command", s.handleCommand)
	mux.HandleFunc("GET /leds", s.handleLEDs)

	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: mux,
	}

	log.Info().Str("addr", s.addr).Msg("Starting command API server")

	// Handle graceful shutdown
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Command API shutdown error")
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

// handleCommand validates a command request and publishes it to the bus.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if req.LED == "" {
		http.Error(w, "led is required", http.StatusBadRequest)
		return
	}
	action, err := sequencer.ParseAction(req.Action)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if action == sequencer.ActionLoad && req.Sequence == "" {
		http.Error(w, "sequence is required for load", http.StatusBadRequest)
		return
	}

	commandID := uuid.NewString()

	data := map[string]any{
		"command_id": commandID,
		"led":        req.LED,
		"action":     action.String(),
	}
	if req.Sequence != "" {
		data["sequence"] = req.Sequence
	}
	if req.Brightness != nil {
		data["brightness"] = *req.Brightness
	}

	log.Debug().
		Str("command_id", commandID).
		Str("led", req.LED).
		Str("action", action.String()).
		Str("sequence", req.Sequence).
		Msg("Command accepted")

	s.bus.Publish(eventbus.Event{
		Type: eventbus.EventTypeCommand,
		Data: data,
	})

	writeJSON(w, http.StatusAccepted, CommandResponse{
		Status:    "accepted",
		CommandID: commandID,
	})
}

// handleLEDs reports the current state of every LED.
func (s *Server) handleLEDs(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.snapshot(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("LED snapshot failed")
		http.Error(w, "snapshot unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, statuses)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
