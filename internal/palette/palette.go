// Package palette holds the calibrated reference colours and the
// nearest-colour classifier that maps sampled pixels onto them.
package palette

import (
	"fmt"
	"math"

	"grid-decoder/pkg/colorutil"
)

// Class sentinels. Valid classes are palette indices in [0, N).
const (
	// Unknown is returned when there is nothing to classify against.
	Unknown = -1
	// OutOfBounds marks a probe that did not hit the scanned surface.
	OutOfBounds = -2
)

// Entry is one reference colour.
type Entry struct {
	Name  string        `json:"name"`
	Color colorutil.RGB `json:"color"`
}

// Palette is an ordered list of reference colours; the index of an entry
// is its colour class. A Palette is treated as immutable once shared:
// calibration produces a new one with WithColor.
type Palette []Entry

// Default returns the four-colour palette used by the standard tile set:
// 0 white, 1 black, 2 red, 3 gray (unknown).
func Default() Palette {
	return Palette{
		{Name: "white", Color: colorutil.White},
		{Name: "black", Color: colorutil.Black},
		{Name: "red", Color: colorutil.Red},
		{Name: "gray", Color: colorutil.Gray},
	}
}

// Len returns the number of colour classes.
func (p Palette) Len() int {
	return len(p)
}

// Colors returns the reference colours in class order.
func (p Palette) Colors() []colorutil.RGB {
	out := make([]colorutil.RGB, len(p))
	for i, e := range p {
		out[i] = e.Color
	}
	return out
}

// Clone returns a copy that can be modified independently.
func (p Palette) Clone() Palette {
	out := make(Palette, len(p))
	copy(out, p)
	return out
}

// WithColor returns a copy of p with entry i set to c.
func (p Palette) WithColor(i int, c colorutil.RGB) (Palette, error) {
	if i < 0 || i >= len(p) {
		return nil, fmt.Errorf("palette index %d out of range [0, %d)", i, len(p))
	}
	out := p.Clone()
	out[i].Color = c
	return out, nil
}

// Classify returns the index of the reference colour nearest to pixel in
// RGB Euclidean distance, together with that distance. Ties resolve to the
// lowest index. An empty palette classifies everything as Unknown.
func (p Palette) Classify(pixel colorutil.RGB) (int, float64) {
	best := Unknown
	bestDist := math.Inf(1)
	for i, e := range p {
		d := e.Color.Distance(pixel)
		if d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best, bestDist
}

// Valid reports whether class is a palette index.
func (p Palette) Valid(class int) bool {
	return class >= 0 && class < len(p)
}

// ColorOf returns the reference colour for a class, and false for
// sentinels or out of range classes.
func (p Palette) ColorOf(class int) (colorutil.RGB, bool) {
	if !p.Valid(class) {
		return colorutil.RGB{}, false
	}
	return p[class].Color, true
}
