package driver

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/dokzlo13/ledseqd/internal/color"
)

// applyFunc pushes one color to the hardware. Called only from the
// reconcile goroutine, rate-limited and in order.
type applyFunc func(ctx context.Context, c color.RGB) error

// reconciler decouples SetColor from slow transports: writes update the
// desired color and poke a size-1 trigger channel; a background loop
// applies the latest desired color at the limiter's pace. Intermediate
// colors are skipped when the hardware cannot keep up.
type reconciler struct {
	led     string
	limiter *rate.Limiter

	mu      sync.Mutex
	desired color.RGB
	dirty   bool

	trigger chan struct{}
}

func newReconciler(led string, limiter *rate.Limiter) *reconciler {
	return &reconciler{
		led:     led,
		limiter: limiter,
		trigger: make(chan struct{}, 1),
	}
}

// set records the desired color and wakes the loop.
func (r *reconciler) set(c color.RGB) {
	r.mu.Lock()
	r.desired = c
	r.dirty = true
	r.mu.Unlock()

	select {
	case r.trigger <- struct{}{}:
	default:
		// Already triggered
	}
}

// take returns the desired color and clears the dirty flag.
func (r *reconciler) take() (color.RGB, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.dirty {
		return color.RGB{}, false
	}
	r.dirty = false
	return r.desired, true
}

// run applies desired colors until ctx is canceled.
func (r *reconciler) run(ctx context.Context, apply applyFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.trigger:
		}

		for {
			c, ok := r.take()
			if !ok {
				break
			}
			if err := r.limiter.Wait(ctx); err != nil {
				return
			}
			if err := apply(ctx, c); err != nil {
				log.Warn().Err(err).Str("led", r.led).Msg("Light write failed")
			}
		}
	}
}
