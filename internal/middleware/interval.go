package middleware

import (
	"sync"
	"time"
)

// IntervalCollector flushes a fixed interval after the first buffered
// event. A fading light produces dozens of writes per second; the digest
// log line should appear once per interval, not once per frame.
type IntervalCollector struct {
	mu       sync.Mutex
	events   []map[string]any
	interval time.Duration
	timer    *time.Timer
	started  bool
	onFlush  FlushFunc
}

// NewIntervalCollector creates a collector flushing every interval while
// events keep arriving.
func NewIntervalCollector(interval time.Duration, onFlush FlushFunc) *IntervalCollector {
	return &IntervalCollector{
		interval: interval,
		onFlush:  onFlush,
	}
}

// AddEvent buffers an event and arms the interval timer if idle.
func (c *IntervalCollector) AddEvent(event map[string]any) {
	c.mu.Lock()
	c.events = append(c.events, event)

	if !c.started {
		c.timer = time.AfterFunc(c.interval, c.flush)
		c.started = true
	}
	c.mu.Unlock()
}

func (c *IntervalCollector) flush() {
	c.mu.Lock()
	events := c.events
	c.events = nil
	c.started = false
	c.mu.Unlock()

	if len(events) > 0 {
		c.onFlush(events)
	}
}

// Close stops the pending timer. Buffered events are dropped.
func (c *IntervalCollector) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
	}
}
