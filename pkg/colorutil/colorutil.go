// Package colorutil provides shared color utilities for the grid decoder.
package colorutil

import (
	"fmt"
	"image/color"
	"math"
)

// RGB is a colour with float channels in [0, 1].
type RGB struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// Reference colours of the default tile palette.
var (
	White = RGB{R: 1, G: 1, B: 1}
	Black = RGB{R: 0, G: 0, B: 0}
	Red   = RGB{R: 1, G: 0, B: 0}
	Gray  = RGB{R: 0.5, G: 0.5, B: 0.5}
)

// Overlay colours used by debug rendering.
var (
	Magenta = color.RGBA{R: 255, G: 0, B: 255, A: 255}
	Green   = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Red8    = color.RGBA{R: 255, G: 0, B: 0, A: 255}
)

// FromColor converts any color.Color to RGB, dropping alpha.
func FromColor(c color.Color) RGB {
	r, g, b, _ := c.RGBA()
	return RGB{
		R: float64(r) / 0xffff,
		G: float64(g) / 0xffff,
		B: float64(b) / 0xffff,
	}
}

// FromRGB8 converts 8-bit channels to RGB.
func FromRGB8(r, g, b uint8) RGB {
	return RGB{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
}

// RGBA converts to an opaque 8-bit colour, clamping out of range channels.
func (c RGB) RGBA() color.RGBA {
	return color.RGBA{R: to8(c.R), G: to8(c.G), B: to8(c.B), A: 255}
}

// Distance returns the Euclidean distance between two colours.
func (c RGB) Distance(other RGB) float64 {
	dr := c.R - other.R
	dg := c.G - other.G
	db := c.B - other.B
	return math.Sqrt(dr*dr + dg*dg + db*db)
}

func (c RGB) String() string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", c.R, c.G, c.B)
}

func to8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(math.Round(v * 255))
}
