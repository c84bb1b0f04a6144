package driver

import (
	"context"
	"fmt"

	"github.com/amimof/huego"
	"golang.org/x/time/rate"

	"github.com/dokzlo13/ledseqd/internal/color"
)

// DefaultHueRateLimit is the bridge-wide request budget. Hue bridges get
// unstable above roughly ten requests per second.
const DefaultHueRateLimit = 10.0

// HueBridge wraps one Philips Hue bridge. All LED handles created from it
// share a single rate limiter, the budget belongs to the bridge, not to
// individual lights.
type HueBridge struct {
	bridge  *huego.Bridge
	limiter *rate.Limiter
}

// NewHueBridge connects to a bridge by host and API user. No network call
// happens here; lights are resolved when first written to.
func NewHueBridge(host, user string, rps float64) *HueBridge {
	if rps <= 0 {
		rps = DefaultHueRateLimit
	}
	return &HueBridge{
		bridge:  huego.New(host, user),
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)),
	}
}

// Handle creates the driver for one Hue light.
func (b *HueBridge) Handle(led string, lightID int) *HueLight {
	ctx, cancel := context.WithCancel(context.Background())
	h := &HueLight{
		led:     led,
		lightID: lightID,
		bridge:  b.bridge,
		rec:     newReconciler(led, b.limiter),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go func() {
		defer close(h.done)
		h.rec.run(ctx, h.apply)
	}()
	return h
}

// HueLight drives one light on a HueBridge.
type HueLight struct {
	led     string
	lightID int
	bridge  *huego.Bridge
	rec     *reconciler
	light   *huego.Light

	cancel context.CancelFunc
	done   chan struct{}
}

// SetColor records the desired color and returns immediately.
func (h *HueLight) SetColor(c color.RGB) {
	h.rec.set(c)
}

// Close stops the reconcile goroutine.
func (h *HueLight) Close() error {
	h.cancel()
	<-h.done
	return nil
}

// apply resolves the light on first use, then pushes the color. Runs only
// on the reconcile goroutine.
func (h *HueLight) apply(_ context.Context, c color.RGB) error {
	if h.light == nil {
		light, err := h.bridge.GetLight(h.lightID)
		if err != nil {
			return fmt.Errorf("resolving hue light %d: %w", h.lightID, err)
		}
		h.light = light
	}

	if c == color.Off {
		return h.light.Off()
	}
	return h.light.SetState(hueState(c))
}

// hueState converts to the bridge's HSB ranges: hue 0-65535, saturation
// 0-254, brightness 1-254.
func hueState(c color.RGB) huego.State {
	h, s, v := rgbToHSV(c)
	return huego.State{
		On:  true,
		Hue: uint16(h / 360 * 65535),
		Sat: uint8(s * 254),
		Bri: uint8(v*253) + 1,
	}
}
