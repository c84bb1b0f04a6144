package driver

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/ledseqd/internal/color"
	"github.com/dokzlo13/ledseqd/internal/metrics"
	"github.com/dokzlo13/ledseqd/internal/middleware"
)

// DefaultDigestInterval spaces out the per-LED write digest log lines.
const DefaultDigestInterval = 5 * time.Second

// Instrumented decorates a driver with a write counter and a periodic
// digest log line. A fade produces dozens of writes per second; the
// digest reports them in batches instead of spamming one line per frame.
type Instrumented struct {
	led    string
	next   Driver
	digest *middleware.IntervalCollector
}

// NewInstrumented wraps next for the given LED. interval <= 0 takes the
// default digest interval.
func NewInstrumented(led string, next Driver, interval time.Duration) *Instrumented {
	if interval <= 0 {
		interval = DefaultDigestInterval
	}
	d := &Instrumented{led: led, next: next}
	d.digest = middleware.NewIntervalCollector(interval, d.flush)
	return d
}

// SetColor counts the write and forwards it.
func (d *Instrumented) SetColor(c color.RGB) {
	metrics.CountWrite(d.led)
	d.digest.AddEvent(map[string]any{"r": c.R, "g": c.G, "b": c.B})
	d.next.SetColor(c)
}

// Close stops the digest and closes the wrapped driver.
func (d *Instrumented) Close() error {
	d.digest.Close()
	return d.next.Close()
}

func (d *Instrumented) flush(events []map[string]any) {
	last := events[len(events)-1]
	log.Debug().
		Str("led", d.led).
		Int("writes", len(events)).
		Interface("last", last).
		Msg("Write digest")
}
