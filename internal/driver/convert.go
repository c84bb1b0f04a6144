package driver

import (
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/dokzlo13/ledseqd/internal/color"
)

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// rgbToHSV converts a unit-range RGB color to hue in degrees [0,360) and
// unit-range saturation/value. Out-of-range channels are clamped here,
// the engine does not reject them.
func rgbToHSV(c color.RGB) (h, s, v float64) {
	return colorful.Color{R: clamp01(c.R), G: clamp01(c.G), B: clamp01(c.B)}.Hsv()
}
