// Package probe lays out the lattice of sample points above the surface and
// classifies the colour under each one.
package probe

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"grid-decoder/internal/palette"
	"grid-decoder/pkg/colorutil"
	"grid-decoder/pkg/geometry"
)

// ErrInvalidConfig is wrapped by every Config validation failure.
var ErrInvalidConfig = errors.New("probe: invalid grid config")

// Intersector resolves a world position to the texture coordinate of the
// surface directly below it.
type Intersector interface {
	Intersect(pos geometry.Point3D) (geometry.Point2D, bool)
}

// Frame is the captured image a cycle samples from.
type Frame interface {
	Texel(uv geometry.Point2D) colorutil.RGB
}

// Config describes the lattice.
type Config struct {
	NumX      int              `json:"num_x"`
	NumY      int              `json:"num_y"`
	Spacing   float64          `json:"spacing"`
	BlockSize int              `json:"block_size"`
	Origin    geometry.Point2D `json:"origin"` // ground offset of probe (0,0)
	Height    float64          `json:"height"`
	Workers   int              `json:"workers"`
}

// Validate checks the lattice dimensions.
func (c Config) Validate() error {
	switch {
	case c.NumX <= 0 || c.NumY <= 0:
		return fmt.Errorf("%w: %dx%d probes", ErrInvalidConfig, c.NumX, c.NumY)
	case c.BlockSize <= 0:
		return fmt.Errorf("%w: block size %d", ErrInvalidConfig, c.BlockSize)
	case c.NumX%c.BlockSize != 0 || c.NumY%c.BlockSize != 0:
		return fmt.Errorf("%w: block size %d does not divide %dx%d",
			ErrInvalidConfig, c.BlockSize, c.NumX, c.NumY)
	case !(c.Spacing > 0):
		return fmt.Errorf("%w: spacing %v", ErrInvalidConfig, c.Spacing)
	case c.Workers < 0:
		return fmt.Errorf("%w: %d workers", ErrInvalidConfig, c.Workers)
	}
	return nil
}

// Position returns the world position of probe (ix, iy).
func (c Config) Position(ix, iy int) geometry.Point3D {
	return geometry.Point3D{
		X: c.Origin.X + float64(ix)*c.Spacing,
		Y: c.Height,
		Z: c.Origin.Y + float64(iy)*c.Spacing,
	}
}

// Probe is one sample point and its latest reading.
type Probe struct {
	IX, IY   int
	Position geometry.Point3D
	Class    int
	Hit      bool
	Texel    geometry.Point2D
	Color    colorutil.RGB
}

// Grid owns the probes and their last classifications.
type Grid struct {
	cfg Config

	mu     sync.RWMutex
	probes []Probe
}

// New validates cfg and builds the lattice.
func New(cfg Config) (*Grid, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g := &Grid{cfg: cfg}
	g.Build()
	return g, nil
}

// Config returns the lattice configuration.
func (g *Grid) Config() Config {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cfg
}

// Size returns the probe counts along x and y.
func (g *Grid) Size() (int, int) {
	return g.cfg.NumX, g.cfg.NumY
}

// Build lays the probes out again, all unclassified.
func (g *Grid) Build() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.probes = layout(g.cfg)
}

// SetSpacing moves the probes to a new pitch. Every probe is left
// unclassified until the next sample.
func (g *Grid) SetSpacing(spacing float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	cfg := g.cfg
	cfg.Spacing = spacing
	if err := cfg.Validate(); err != nil {
		return err
	}
	g.cfg.Spacing = spacing
	g.probes = layout(cfg)
	return nil
}

func layout(cfg Config) []Probe {
	probes := make([]Probe, cfg.NumX*cfg.NumY)
	for iy := 0; iy < cfg.NumY; iy++ {
		for ix := 0; ix < cfg.NumX; ix++ {
			probes[iy*cfg.NumX+ix] = Probe{
				IX:       ix,
				IY:       iy,
				Position: cfg.Position(ix, iy),
				Class:    palette.OutOfBounds,
			}
		}
	}
	return probes
}

// SampleAll classifies every probe against frame. Probes are read in
// parallel, at most Workers at a time, and the results replace the
// previous readings in one step. A cancelled context leaves the previous
// readings in place.
func (g *Grid) SampleAll(ctx context.Context, frame Frame, hit Intersector, pal palette.Palette) error {
	g.mu.RLock()
	next := make([]Probe, len(g.probes))
	copy(next, g.probes)
	g.mu.RUnlock()

	workers := g.cfg.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for iy := 0; iy < g.cfg.NumY; iy++ {
		row := next[iy*g.cfg.NumX : (iy+1)*g.cfg.NumX]
		eg.Go(func() error {
			for i := range row {
				if err := ctx.Err(); err != nil {
					return err
				}
				sample(&row[i], frame, hit, pal)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	g.mu.Lock()
	g.probes = next
	g.mu.Unlock()
	return nil
}

func sample(p *Probe, frame Frame, hit Intersector, pal palette.Palette) {
	uv, ok := hit.Intersect(p.Position)
	p.Hit = ok
	if !ok {
		p.Class = palette.OutOfBounds
		p.Texel = geometry.Point2D{}
		p.Color = colorutil.RGB{}
		return
	}
	p.Texel = uv
	p.Color = frame.Texel(uv)
	p.Class, _ = pal.Classify(p.Color)
}

// Reset marks every probe out of bounds.
func (g *Grid) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.probes {
		g.probes[i].Class = palette.OutOfBounds
		g.probes[i].Hit = false
	}
}

// Probes returns a copy of every probe, row by row from iy = 0.
func (g *Grid) Probes() []Probe {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Probe, len(g.probes))
	copy(out, g.probes)
	return out
}

// Classes returns a copy of the current classifications.
func (g *Grid) Classes() Classes {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c := Classes{NumX: g.cfg.NumX, NumY: g.cfg.NumY, Values: make([]int, len(g.probes))}
	for i, p := range g.probes {
		c.Values[i] = p.Class
	}
	return c
}

// Classes is a frozen NumX x NumY table of colour classes.
type Classes struct {
	NumX, NumY int
	Values     []int
}

// Size returns the table dimensions.
func (c Classes) Size() (int, int) {
	return c.NumX, c.NumY
}

// At returns the class of probe (ix, iy).
func (c Classes) At(ix, iy int) int {
	return c.Values[iy*c.NumX+ix]
}
