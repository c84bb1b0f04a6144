// Package color provides the RGB color primitive shared by the sequence
// engine and the light drivers.
package color

import (
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// RGB is a 3-channel color. Channels are unit-range floats; values outside
// [0,1] are not rejected here, drivers clamp on conversion.
type RGB struct {
	R float64
	G float64
	B float64
}

// Off is the all-channels-zero color written when a light is turned off.
var Off = RGB{}

// Scale returns the color with every channel multiplied by factor.
func (c RGB) Scale(factor float64) RGB {
	return RGB{R: c.R * factor, G: c.G * factor, B: c.B * factor}
}

// Lerp blends each channel linearly from c toward target by t. No gamma
// correction is applied, the engine interpolates raw channel values.
func (c RGB) Lerp(target RGB, t float64) RGB {
	return RGB{
		R: c.R + (target.R-c.R)*t,
		G: c.G + (target.G-c.G)*t,
		B: c.B + (target.B-c.B)*t,
	}
}

// NearEqual reports whether every channel of c is within epsilon of other.
func (c RGB) NearEqual(other RGB, epsilon float64) bool {
	return math.Abs(c.R-other.R) <= epsilon &&
		math.Abs(c.G-other.G) <= epsilon &&
		math.Abs(c.B-other.B) <= epsilon
}

// HSV builds a color from hue in degrees [0,360) and saturation/value in
// [0,1].
func HSV(h, s, v float64) RGB {
	c := colorful.Hsv(h, s, v)
	return RGB{R: c.R, G: c.G, B: c.B}
}

// Hue is a fully saturated, full-value color at the given hue.
func Hue(h float64) RGB {
	return HSV(h, 1, 1)
}

// ParseHex parses a "#RRGGBB" string into an RGB.
func ParseHex(s string) (RGB, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return RGB{}, err
	}
	return RGB{R: c.R, G: c.G, B: c.B}, nil
}
