package middleware

import (
	"sync"
	"time"
)

// QuietCollector flushes once no new event has arrived for a quiet window.
// Editors and file syncers touch sequence files in bursts; the watcher
// wants exactly one reload per burst.
type QuietCollector struct {
	mu      sync.Mutex
	events  []map[string]any
	timer   *time.Timer
	window  time.Duration
	onFlush FlushFunc
}

// NewQuietCollector creates a collector flushing after window of silence.
func NewQuietCollector(window time.Duration, onFlush FlushFunc) *QuietCollector {
	return &QuietCollector{
		window:  window,
		onFlush: onFlush,
	}
}

// AddEvent buffers an event and restarts the quiet timer.
func (c *QuietCollector) AddEvent(event map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = append(c.events, event)

	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.window, c.flush)
}

func (c *QuietCollector) flush() {
	c.mu.Lock()
	events := c.events
	c.events = nil
	c.mu.Unlock()

	if len(events) > 0 {
		c.onFlush(events)
	}
}

// Close stops the pending timer. Buffered events are dropped.
func (c *QuietCollector) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
	}
}
