// Package middleware provides event collectors that batch bursts of small
// events into single flushes: file-change storms into one library reload,
// per-frame write records into periodic digests.
package middleware

// FlushFunc receives the accumulated events of one flush.
type FlushFunc func(events []map[string]any)

// Collector accumulates events and flushes them based on its strategy.
type Collector interface {
	AddEvent(event map[string]any)
	Close()
}
