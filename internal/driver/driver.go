// Package driver implements the color sinks the sequencers write to: a
// log driver for dry runs, a terminal simulator, and network drivers for
// Philips Hue and LIFX lights. Network drivers never block the service
// loop; they record the desired color and apply it from a background
// reconcile goroutine.
package driver

import "github.com/dokzlo13/ledseqd/internal/color"

// Driver is a per-LED color sink. SetColor must return immediately; Close
// releases the underlying resources.
type Driver interface {
	SetColor(c color.RGB)
	Close() error
}
