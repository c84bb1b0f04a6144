package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/pdf/golifx"
	"github.com/pdf/golifx/common"
	"github.com/pdf/golifx/protocol"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/dokzlo13/ledseqd/internal/color"
)

const (
	// DefaultLifxFade is the transition passed with every color write.
	DefaultLifxFade = 50 * time.Millisecond
	// DefaultLifxRateLimit bounds writes per light; the LAN protocol
	// recommends staying around 20 messages per second.
	DefaultLifxRateLimit = 20.0

	lifxDiscoveryInterval = 15 * time.Second
	lifxKelvin            = 3500
)

// LifxClient wraps LAN discovery for LIFX bulbs. Handles resolve their
// light by label once discovery has seen it.
type LifxClient struct {
	client *golifx.Client
	fade   time.Duration
}

// NewLifxClient starts LAN discovery. fade is the transition duration
// applied to every write; zero takes the default.
func NewLifxClient(fade time.Duration) (*LifxClient, error) {
	client, err := golifx.NewClient(&protocol.V2{})
	if err != nil {
		return nil, fmt.Errorf("starting lifx client: %w", err)
	}
	if err := client.SetDiscoveryInterval(lifxDiscoveryInterval); err != nil {
		log.Warn().Err(err).Msg("Setting LIFX discovery interval failed")
	}
	if fade <= 0 {
		fade = DefaultLifxFade
	}
	return &LifxClient{client: client, fade: fade}, nil
}

// Handle creates the driver for one bulb, addressed by its label.
func (c *LifxClient) Handle(led, label string) *LifxLight {
	ctx, cancel := context.WithCancel(context.Background())
	l := &LifxLight{
		led:    led,
		label:  label,
		client: c.client,
		fade:   c.fade,
		rec:    newReconciler(led, rate.NewLimiter(rate.Limit(DefaultLifxRateLimit), int(DefaultLifxRateLimit))),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(l.done)
		l.rec.run(ctx, l.apply)
	}()
	return l
}

// Close shuts down discovery. Call after closing all handles.
func (c *LifxClient) Close() error {
	return c.client.Close()
}

// LifxLight drives one bulb.
type LifxLight struct {
	led    string
	label  string
	client *golifx.Client
	fade   time.Duration
	rec    *reconciler
	light  common.Light

	cancel context.CancelFunc
	done   chan struct{}
}

// SetColor records the desired color and returns immediately.
func (l *LifxLight) SetColor(c color.RGB) {
	l.rec.set(c)
}

// Close stops the reconcile goroutine.
func (l *LifxLight) Close() error {
	l.cancel()
	<-l.done
	return nil
}

func (l *LifxLight) apply(_ context.Context, c color.RGB) error {
	if l.light == nil {
		light, err := l.client.GetLightByLabel(l.label)
		if err != nil {
			return fmt.Errorf("resolving lifx light %q: %w", l.label, err)
		}
		l.light = light
	}
	return l.light.SetColor(lifxColor(c), l.fade)
}

// lifxColor converts to the LAN protocol's 16-bit HSBK. Off becomes a
// zero-brightness color, the bulb stays powered.
func lifxColor(c color.RGB) common.Color {
	h, s, v := rgbToHSV(c)
	return common.Color{
		Hue:        uint16(h / 360 * 0xFFFF),
		Saturation: uint16(s * 0xFFFF),
		Brightness: uint16(v * 0xFFFF),
		Kelvin:     lifxKelvin,
	}
}
