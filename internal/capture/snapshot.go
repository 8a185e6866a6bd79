// Package capture provides capture sources and the frozen snapshots that
// one scan cycle samples from.
package capture

import (
	"image"
	"math"
	"time"

	"golang.org/x/image/draw"

	"grid-decoder/pkg/colorutil"
	"grid-decoder/pkg/geometry"
)

// Snapshot is a private copy of one captured frame. It never changes after
// construction, so any number of goroutines may read it concurrently.
type Snapshot struct {
	img   *image.RGBA
	taken time.Time
}

// NewSnapshot copies src into a new snapshot.
func NewSnapshot(src image.Image, taken time.Time) *Snapshot {
	b := src.Bounds()
	img := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(img, img.Bounds(), src, b.Min, draw.Src)
	return &Snapshot{img: img, taken: taken}
}

// Width returns the frame width in pixels.
func (s *Snapshot) Width() int {
	return s.img.Bounds().Dx()
}

// Height returns the frame height in pixels.
func (s *Snapshot) Height() int {
	return s.img.Bounds().Dy()
}

// Taken returns the capture time.
func (s *Snapshot) Taken() time.Time {
	return s.taken
}

// Image exposes the frame for rendering. Callers must not modify it.
func (s *Snapshot) Image() image.Image {
	return s.img
}

// Pixel returns the colour at (x, y) in image coordinates (origin top
// left). Coordinates are clamped to the frame.
func (s *Snapshot) Pixel(x, y int) colorutil.RGB {
	x = clamp(x, 0, s.Width()-1)
	y = clamp(y, 0, s.Height()-1)
	c := s.img.RGBAAt(x, y)
	return colorutil.FromRGB8(c.R, c.G, c.B)
}

// TexelPixel converts a texture coordinate (unit square, origin bottom
// left) to the pixel it samples.
func (s *Snapshot) TexelPixel(uv geometry.Point2D) (x, y int) {
	w, h := s.Width(), s.Height()
	x = clamp(int(math.Round(uv.X*float64(w))), 0, w-1)
	up := clamp(int(math.Round(uv.Y*float64(h))), 0, h-1)
	return x, h - 1 - up
}

// Texel returns the colour at a texture coordinate.
func (s *Snapshot) Texel(uv geometry.Point2D) colorutil.RGB {
	x, y := s.TexelPixel(uv)
	return s.Pixel(x, y)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
