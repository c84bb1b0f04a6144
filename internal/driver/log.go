package driver

import (
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/ledseqd/internal/color"
)

// Log prints every write instead of driving hardware. Default driver, and
// the one used for dry runs.
type Log struct {
	led string
}

// NewLog creates a log driver for one LED.
func NewLog(led string) *Log {
	return &Log{led: led}
}

// SetColor logs the write.
func (l *Log) SetColor(c color.RGB) {
	log.Debug().
		Str("led", l.led).
		Float64("r", c.R).
		Float64("g", c.G).
		Float64("b", c.B).
		Msg("Light write")
}

// Close is a no-op.
func (l *Log) Close() error {
	return nil
}
