package app

import (
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/ledseqd/internal/config"
	"github.com/dokzlo13/ledseqd/internal/eventbus"
	"github.com/dokzlo13/ledseqd/internal/library"
	"github.com/dokzlo13/ledseqd/internal/metrics"
)

// LibraryService owns the sequence library and its file watcher.
type LibraryService struct {
	cfg     *config.Config
	bus     *eventbus.Bus
	Lib     *library.Library
	watcher *library.Watcher
}

// NewLibraryService creates a new LibraryService.
func NewLibraryService(cfg *config.Config, bus *eventbus.Bus) *LibraryService {
	return &LibraryService{
		cfg: cfg,
		bus: bus,
		Lib: library.New(cfg.Library.Paths, cfg.Library.Capacity),
	}
}

// Load reads the configured sequence files. Must succeed before services
// that resolve sequence names start.
func (s *LibraryService) Load() error {
	count, err := s.Lib.Reload()
	if err != nil {
		return err
	}
	log.Info().
		Int("sequences", count).
		Strs("paths", s.cfg.Library.Paths).
		Msg("Sequence library loaded")
	return nil
}

// Start begins watching the library paths when enabled.
func (s *LibraryService) Start() error {
	if !s.cfg.Library.Watch || len(s.cfg.Library.Paths) == 0 {
		return nil
	}
	watcher, err := library.NewWatcher(s.Lib, s.cfg.Library.QuietWindow.Duration(), s.onReload)
	if err != nil {
		return err
	}
	s.watcher = watcher
	return nil
}

func (s *LibraryService) onReload(count int) {
	metrics.CountLibraryReload()
	s.bus.Publish(eventbus.Event{
		Type: eventbus.EventTypeLibrary,
		Data: map[string]any{"sequences": count},
	})
}

// Close stops the file watcher.
func (s *LibraryService) Close() {
	if s.watcher != nil {
		if err := s.watcher.Close(); err != nil {
			log.Warn().Err(err).Msg("Library watcher close failed")
		}
	}
}
