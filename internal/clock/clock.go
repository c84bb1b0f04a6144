// Package clock abstracts time for the sequence engine. The engine never
// schedules anything itself, it reads the clock only when an operation is
// invoked.
package clock

import "time"

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock. time.Time carries a monotonic reading, so
// subtraction is safe across wall-clock adjustments.
type System struct{}

// Now returns the current time.
func (System) Now() time.Time {
	return time.Now()
}
