// Package render draws debug images of the scanner state.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	xdraw "golang.org/x/image/draw"

	"grid-decoder/internal/keystone"
	"grid-decoder/internal/palette"
	"grid-decoder/internal/probe"
	"grid-decoder/pkg/colorutil"
	"grid-decoder/pkg/geometry"
)

// View is a top-down raster of the world X/Z plane. Pixel (0, 0) is the
// top left of Bounds; world Z grows upwards in the image.
type View struct {
	Image   *image.RGBA
	Bounds  geometry.Rect
	PerUnit float64
}

// Surface renders frame as it lies on the keystoned quad, seen from above,
// at perUnit pixels per world unit. Pixels outside the quad stay
// transparent.
func Surface(frame probe.Frame, m *keystone.Mapping, perUnit float64) (*View, error) {
	if !(perUnit > 0) {
		return nil, fmt.Errorf("render: pixels per unit must be positive, got %v", perUnit)
	}
	toSquare, err := m.ToSquare()
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	bounds := geometry.BoundingBox(m.Corners[:])
	w := int(math.Ceil(bounds.Width * perUnit))
	h := int(math.Ceil(bounds.Height * perUnit))
	v := &View{
		Image:   image.NewRGBA(image.Rect(0, 0, w, h)),
		Bounds:  bounds,
		PerUnit: perUnit,
	}

	for py := 0; py < h; py++ {
		for px := 0; px < w; px++ {
			p := v.World(float64(px)+0.5, float64(py)+0.5)
			if !m.Corners.Contains(p) {
				continue
			}
			uv := toSquare.Apply(p)
			v.Image.SetRGBA(px, py, frame.Texel(uv).RGBA())
		}
	}
	return v, nil
}

// World converts an image position to world X/Z.
func (v *View) World(px, py float64) geometry.Point2D {
	return geometry.Point2D{
		X: v.Bounds.X + px/v.PerUnit,
		Y: v.Bounds.Y + v.Bounds.Height - py/v.PerUnit,
	}
}

// Pixel converts world X/Z to the image pixel containing it.
func (v *View) Pixel(p geometry.Point2D) image.Point {
	return image.Point{
		X: int(math.Floor((p.X - v.Bounds.X) * v.PerUnit)),
		Y: int(math.Floor((v.Bounds.Y + v.Bounds.Height - p.Y) * v.PerUnit)),
	}
}

// DrawProbes marks each probe with a square of its class colour, magenta
// for probes that missed the surface.
func (v *View) DrawProbes(probes []probe.Probe, pal palette.Palette, size int) {
	for _, p := range probes {
		c := colorutil.Magenta
		if rgb, ok := pal.ColorOf(p.Class); ok {
			c = rgb.RGBA()
		}
		fillSquare(v.Image, v.Pixel(p.Position.Ground()), size, c)
	}
}

// DrawCorners marks the quad corners, the selected one in red.
func (v *View) DrawCorners(q geometry.Quad, selected, size int) {
	for i, p := range q {
		c := colorutil.Green
		if i == selected {
			c = colorutil.Red8
		}
		fillSquare(v.Image, v.Pixel(p), size, c)
	}
}

func fillSquare(img *image.RGBA, at image.Point, size int, c color.RGBA) {
	half := size / 2
	r := image.Rect(at.X-half, at.Y-half, at.X-half+size, at.Y-half+size).Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

// ClassMap draws one cell of cell x cell pixels per probe, coloured with
// its class, probe (0, 0) at the bottom left.
func ClassMap(classes probe.Classes, pal palette.Palette, cell int) *image.RGBA {
	nx, ny := classes.Size()
	img := image.NewRGBA(image.Rect(0, 0, nx*cell, ny*cell))
	for iy := 0; iy < ny; iy++ {
		for ix := 0; ix < nx; ix++ {
			c := colorutil.Magenta
			if rgb, ok := pal.ColorOf(classes.At(ix, iy)); ok {
				c = rgb.RGBA()
			}
			top := (ny - 1 - iy) * cell
			for y := top; y < top+cell; y++ {
				for x := ix * cell; x < (ix+1)*cell; x++ {
					img.SetRGBA(x, y, c)
				}
			}
		}
	}
	return img
}

// Scale resizes src to w x h. Nearest neighbour keeps class colours
// exact; smooth uses Catmull-Rom.
func Scale(src image.Image, w, h int, smooth bool) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	var s xdraw.Scaler = xdraw.NearestNeighbor
	if smooth {
		s = xdraw.CatmullRom
	}
	s.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

// WritePNG saves img to path.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}
