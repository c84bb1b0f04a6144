package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/ledseqd/internal/config"
	"github.com/dokzlo13/ledseqd/internal/eventbus"
	"github.com/dokzlo13/ledseqd/internal/webhook"
)

// WebhookService wraps the HTTP command API server.
type WebhookService struct {
	cfg    *config.Config
	server *webhook.Server
}

// NewWebhookService creates a new WebhookService.
func NewWebhookService(cfg *config.Config, bus *eventbus.Bus, snapshot webhook.SnapshotFunc) *WebhookService {
	server := webhook.NewServer(cfg.CommandAPI.Host, cfg.CommandAPI.Port, bus, snapshot)
	return &WebhookService{
		cfg:    cfg,
		server: server,
	}
}

// Start begins the command API server if enabled.
func (s *WebhookService) Start(ctx context.Context) {
	if !s.cfg.CommandAPI.Enabled {
		log.Debug().Msg("Command API disabled")
		return
	}

	go func() {
		if err := s.server.Run(ctx, s.cfg.ShutdownTimeout.Duration()); err != nil {
			log.Error().Err(err).Msg("Command API server error")
		}
	}()
}
