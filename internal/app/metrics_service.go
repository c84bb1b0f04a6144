package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/ledseqd/internal/config"
	"github.com/dokzlo13/ledseqd/internal/metrics"
)

// MetricsService serves the Prometheus endpoint on its own listener.
type MetricsService struct {
	cfg    *config.Config
	server *http.Server
}

// NewMetricsService creates a new MetricsService.
func NewMetricsService(cfg *config.Config) *MetricsService {
	return &MetricsService{
		cfg: cfg,
	}
}

// Start begins the metrics server if enabled.
func (s *MetricsService) Start(ctx context.Context) {
	if !s.cfg.Metrics.Enabled {
		return
	}

	go s.run(ctx)
}

func (s *MetricsService) run(ctx context.Context) {
	addr := fmt.Sprintf("%s:%d", s.cfg.Metrics.Host, s.cfg.Metrics.Port)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	s.server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	log.Info().Str("addr", addr).Msg("Starting metrics server")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout.Duration())
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Metrics server shutdown error")
		}
	}()

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("Metrics server error")
	}
}
