// Package metrics provides Prometheus metrics for the sequencer daemon.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	lightWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ledseqd",
		Name:      "light_writes_total",
		Help:      "Color writes that reached a light driver",
	}, []string{"led"})

	commands = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ledseqd",
		Name:      "commands_total",
		Help:      "Commands handled by the sequencer service",
	}, []string{"action", "outcome"})

	serviceCycles = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ledseqd",
		Name:      "service_cycles_total",
		Help:      "Service loop iterations",
	})

	sequencersRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ledseqd",
		Name:      "sequencers_running",
		Help:      "Sequencers currently in the running state",
	})

	libraryReloads = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ledseqd",
		Name:      "library_reloads_total",
		Help:      "Sequence library reloads",
	})
)

// CountWrite records one driver write for an LED.
func CountWrite(led string) {
	lightWrites.WithLabelValues(led).Inc()
}

// CountCommand records a handled command with its outcome ("ok" or "error").
func CountCommand(action, outcome string) {
	commands.WithLabelValues(action, outcome).Inc()
}

// CountServiceCycle records one service loop iteration.
func CountServiceCycle() {
	serviceCycles.Inc()
}

// SetRunning publishes the number of running sequencers.
func SetRunning(n int) {
	sequencersRunning.Set(float64(n))
}

// CountLibraryReload records one sequence library reload.
func CountLibraryReload() {
	libraryReloads.Inc()
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
