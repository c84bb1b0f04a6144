package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/ledseqd/internal/clock"
	"github.com/dokzlo13/ledseqd/internal/config"
	"github.com/dokzlo13/ledseqd/internal/driver"
	"github.com/dokzlo13/ledseqd/internal/eventbus"
	"github.com/dokzlo13/ledseqd/internal/sequencer"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	Bus        *eventbus.Bus
	collection *sequencer.Collection

	// Shared driver backends; per-LED handles live in drivers
	termHub   *driver.TermHub
	hueBridge *driver.HueBridge
	lifx      *driver.LifxClient
	drivers   []driver.Driver

	// High-level services
	Library   *LibraryService
	Lua       *LuaService
	Sequencer *SequencerService
	Command   *CommandService
	Webhook   *WebhookService
	Schedule  *ScheduleService
	Health    *HealthService
	Metrics   *MetricsService

	// set by Start; triggers application shutdown
	onFatal    func(error)
	seqStarted bool
}

// NewServices creates all services with proper dependency injection.
func NewServices(cfg *config.Config) (*Services, error) {
	s := &Services{cfg: cfg}

	s.Metrics = NewMetricsService(cfg)
	s.Bus = eventbus.NewWithConfig(cfg.EventBus.GetWorkers(), cfg.EventBus.GetQueueSize())

	// Load the sequence library before anything resolves names.
	s.Library = NewLibraryService(cfg, s.Bus)
	if err := s.Library.Load(); err != nil {
		s.Close()
		return nil, err
	}

	s.Lua = NewLuaService(cfg, s.Library.Lib)

	if err := s.buildSequencers(); err != nil {
		s.Close()
		return nil, err
	}

	s.Sequencer = NewSequencerService(cfg, s.collection, s.Library.Lib)
	s.Command = NewCommandService(s.Bus, s.Library.Lib, s.Sequencer)
	s.Webhook = NewWebhookService(cfg, s.Bus, s.Sequencer.Snapshot)

	schedule, err := NewScheduleService(cfg, s.Bus)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Schedule = schedule

	s.Health = NewHealthService(cfg)

	return s, nil
}

// buildSequencers creates one driver handle and one sequencer per
// configured LED, wrapping every driver with the write instrumentation.
func (s *Services) buildSequencers() error {
	s.collection = sequencer.NewCollection()
	clk := clock.System{}

	for _, led := range s.cfg.LEDs {
		drv, err := s.buildDriver(led)
		if err != nil {
			return fmt.Errorf("led %q: %w", led.ID, err)
		}
		wrapped := driver.NewInstrumented(led.ID, drv, 0)
		s.drivers = append(s.drivers, wrapped)

		sq := sequencer.New(wrapped, clk)
		if led.Brightness != nil {
			sq.SetBrightness(*led.Brightness)
		}
		if led.Epsilon != nil {
			sq.SetColorEpsilon(*led.Epsilon)
		}

		if err := s.collection.Add(led.ID, sq); err != nil {
			return err
		}
	}
	return nil
}

// buildDriver returns the color sink for one LED, creating the shared
// backend (terminal hub, Hue bridge, LIFX client) on first use.
func (s *Services) buildDriver(led config.LEDConfig) (driver.Driver, error) {
	switch s.cfg.Driver.Type {
	case "log":
		return driver.NewLog(led.ID), nil

	case "term":
		if s.termHub == nil {
			hub, err := driver.NewTermHub(func() {
				log.Info().Msg("Terminal display closed, shutting down")
				if s.onFatal != nil {
					s.onFatal(nil)
				}
			})
			if err != nil {
				return nil, err
			}
			s.termHub = hub
		}
		label := led.Label
		if label == "" {
			label = led.ID
		}
		return s.termHub.Handle(led.ID, label), nil

	case "hue":
		if s.hueBridge == nil {
			hue := s.cfg.Driver.Hue
			s.hueBridge = driver.NewHueBridge(hue.Bridge, hue.Token, hue.RateLimitRPS)
		}
		return s.hueBridge.Handle(led.ID, led.HueLight), nil

	case "lifx":
		if s.lifx == nil {
			client, err := driver.NewLifxClient(s.cfg.Driver.Lifx.Fade.Duration())
			if err != nil {
				return nil, err
			}
			s.lifx = client
		}
		return s.lifx.Handle(led.ID, led.LifxLabel), nil

	default:
		return nil, fmt.Errorf("driver type %q is not supported", s.cfg.Driver.Type)
	}
}

// Start starts all services in the correct order.
// The onFatalError callback is called when a service cannot continue and
// the application should shut down.
func (s *Services) Start(ctx context.Context, onFatalError func(error)) error {
	s.onFatal = onFatalError

	// Execute the Lua script before the sequencer service starts, so
	// script-registered sequences are available to autostart entries.
	if err := s.Lua.LoadScript(); err != nil {
		return err
	}

	if err := s.Library.Start(); err != nil {
		return err
	}

	s.Lua.Start(ctx)
	s.Sequencer.Start(ctx)
	s.seqStarted = true
	s.Command.Start(ctx)
	s.Schedule.Start(ctx)
	s.Webhook.Start(ctx)
	s.Health.Start(ctx)
	s.Metrics.Start(ctx)

	return nil
}

// Stop gracefully stops all services.
func (s *Services) Stop() error {
	s.Close()
	return nil
}

// Close releases all resources.
func (s *Services) Close() {
	if s.Library != nil {
		s.Library.Close()
	}
	if s.Lua != nil {
		s.Lua.Close()
	}
	if s.Bus != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout.Duration())
		s.Bus.Close(ctx)
		cancel()
	}
	// The service loop writes to drivers; let it exit before tearing
	// them down.
	if s.seqStarted {
		s.Sequencer.Wait()
	}
	for _, d := range s.drivers {
		if err := d.Close(); err != nil {
			log.Warn().Err(err).Msg("Driver close failed")
		}
	}
	if s.lifx != nil {
		s.lifx.Close()
	}
	if s.termHub != nil {
		s.termHub.Close()
	}
}
