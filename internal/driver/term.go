package driver

import (
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/dokzlo13/ledseqd/internal/color"
)

const swatchWidth = 10

// TermHub renders every LED as a labeled color swatch in the terminal.
// One hub owns the screen; per-LED handles write into it. Useful for
// developing sequences without hardware.
type TermHub struct {
	screen tcell.Screen
	onQuit func()

	mu     sync.Mutex
	order  []string
	labels map[string]string
	colors map[string]color.RGB

	done      chan struct{}
	closeOnce sync.Once
}

// NewTermHub initializes the screen and starts the input loop. onQuit is
// invoked when the user presses q, Escape or Ctrl+C; pass the daemon's
// shutdown trigger.
func NewTermHub(onQuit func()) (*TermHub, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("creating screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("initializing screen: %w", err)
	}

	h := &TermHub{
		screen: screen,
		onQuit: onQuit,
		labels: make(map[string]string),
		colors: make(map[string]color.RGB),
		done:   make(chan struct{}),
	}
	go h.eventLoop()
	return h, nil
}

// Handle creates the driver for one LED row.
func (h *TermHub) Handle(led, label string) *TermLight {
	if label == "" {
		label = led
	}
	h.mu.Lock()
	if _, exists := h.labels[led]; !exists {
		h.order = append(h.order, led)
	}
	h.labels[led] = label
	h.mu.Unlock()

	h.redraw()
	return &TermLight{hub: h, led: led}
}

// Close restores the terminal and stops the input loop.
func (h *TermHub) Close() error {
	h.closeOnce.Do(func() {
		h.screen.Fini()
	})
	<-h.done
	return nil
}

func (h *TermHub) setColor(led string, c color.RGB) {
	h.mu.Lock()
	h.colors[led] = c
	h.mu.Unlock()

	h.redraw()
}

// eventLoop handles keys and resizes. PollEvent returns nil once the
// screen is finalized, which ends the loop.
func (h *TermHub) eventLoop() {
	defer close(h.done)

	for {
		ev := h.screen.PollEvent()
		if ev == nil {
			return
		}
		switch ev := ev.(type) {
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC ||
				(ev.Key() == tcell.KeyRune && ev.Rune() == 'q') {
				if h.onQuit != nil {
					h.onQuit()
				}
			}
		case *tcell.EventResize:
			h.screen.Sync()
			h.redraw()
		}
	}
}

func (h *TermHub) redraw() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.screen.Clear()

	labelWidth := 0
	for _, led := range h.order {
		if n := len(h.labels[led]); n > labelWidth {
			labelWidth = n
		}
	}

	for row, led := range h.order {
		y := 1 + row*2
		c := h.colors[led]

		x := 2
		for _, r := range h.labels[led] {
			h.screen.SetContent(x, y, r, nil, tcell.StyleDefault)
			x++
		}

		style := tcell.StyleDefault.Foreground(tcell.NewRGBColor(
			int32(clamp01(c.R)*255),
			int32(clamp01(c.G)*255),
			int32(clamp01(c.B)*255),
		))
		x = 2 + labelWidth + 2
		for i := 0; i < swatchWidth; i++ {
			h.screen.SetContent(x+i, y, '█', nil, style)
		}

		hex := fmt.Sprintf("#%02X%02X%02X",
			int(clamp01(c.R)*255), int(clamp01(c.G)*255), int(clamp01(c.B)*255))
		x += swatchWidth + 2
		for _, r := range hex {
			h.screen.SetContent(x, y, r, nil, tcell.StyleDefault)
			x++
		}
	}

	h.screen.Show()
}

// TermLight is the per-LED handle into a TermHub.
type TermLight struct {
	hub *TermHub
	led string
}

// SetColor updates the LED's swatch.
func (t *TermLight) SetColor(c color.RGB) {
	t.hub.setColor(t.led, c)
}

// Close is a no-op; the hub owns the screen.
func (t *TermLight) Close() error {
	return nil
}
