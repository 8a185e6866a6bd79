// Package calibrate samples the reference colour of each palette entry
// from known positions on the surface.
package calibrate

import (
	"errors"
	"fmt"
	"sync"

	"gonum.org/v1/gonum/stat"

	"grid-decoder/internal/capture"
	"grid-decoder/internal/palette"
	"grid-decoder/internal/probe"
	"grid-decoder/internal/store"
	"grid-decoder/pkg/colorutil"
	"grid-decoder/pkg/geometry"
)

// SettingsKey is the store key for sample positions.
const SettingsKey = "color_samples"

// Settings is the persisted form of the sample positions.
type Settings struct {
	Positions []geometry.Point3D `json:"position"`
	Scale     float64            `json:"scannerScale"`
}

// MissingSampleTargetError reports a palette entry whose sample position
// did not resolve onto the surface.
type MissingSampleTargetError struct {
	Index    int
	Name     string
	Position geometry.Point3D
	Reason   string
}

func (e *MissingSampleTargetError) Error() string {
	return fmt.Sprintf("calibrate: sample %d (%s) at (%.3f, %.3f, %.3f): %s",
		e.Index, e.Name, e.Position.X, e.Position.Y, e.Position.Z, e.Reason)
}

// Calibrator holds one sample position per palette entry, in palette
// order.
type Calibrator struct {
	mu        sync.RWMutex
	positions []geometry.Point3D
	scale     float64
	radius    int
}

// New returns a calibrator. radius is the half-width in pixels of the
// square patch averaged at each position; 0 reads a single pixel.
func New(positions []geometry.Point3D, scale float64, radius int) *Calibrator {
	if radius < 0 {
		radius = 0
	}
	p := make([]geometry.Point3D, len(positions))
	copy(p, positions)
	return &Calibrator{positions: p, scale: scale, radius: radius}
}

// Positions returns a copy of the sample positions.
func (c *Calibrator) Positions() []geometry.Point3D {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]geometry.Point3D, len(c.positions))
	copy(out, c.positions)
	return out
}

// Scale returns the marker scale saved alongside the positions. The
// engine derives probe spacing from it when none is configured.
func (c *Calibrator) Scale() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.scale
}

// SetPosition moves sample i.
func (c *Calibrator) SetPosition(i int, p geometry.Point3D) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.positions) {
		return fmt.Errorf("calibrate: sample index %d out of range [0,%d)", i, len(c.positions))
	}
	c.positions[i] = p
	return nil
}

// SetHeight places every sample position at height y, keeping X and Z.
func (c *Calibrator) SetHeight(y float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.positions {
		c.positions[i].Y = y
	}
}

// Calibrate reads the colour under each sample position and returns a new
// palette. Entries that cannot be resolved keep their colour from prev and
// are reported in the returned error, one MissingSampleTargetError each,
// joined with errors.Join. The palette is valid even when err is non-nil.
func (c *Calibrator) Calibrate(snap *capture.Snapshot, hit probe.Intersector, prev palette.Palette) (palette.Palette, error) {
	positions := c.Positions()
	next := prev.Clone()

	var errs []error
	for i, entry := range next {
		if i >= len(positions) {
			errs = append(errs, &MissingSampleTargetError{
				Index: i, Name: entry.Name, Reason: "no sample position",
			})
			continue
		}
		uv, ok := hit.Intersect(positions[i])
		if !ok {
			errs = append(errs, &MissingSampleTargetError{
				Index: i, Name: entry.Name, Position: positions[i], Reason: "ray missed the surface",
			})
			continue
		}
		next[i].Color = c.patchMean(snap, uv)
	}
	return next, errors.Join(errs...)
}

// patchMean averages the (2r+1)^2 pixels around the texel, clipped to the
// frame.
func (c *Calibrator) patchMean(snap *capture.Snapshot, uv geometry.Point2D) colorutil.RGB {
	cx, cy := snap.TexelPixel(uv)
	n := (2*c.radius + 1) * (2*c.radius + 1)
	rs := make([]float64, 0, n)
	gs := make([]float64, 0, n)
	bs := make([]float64, 0, n)
	for y := cy - c.radius; y <= cy+c.radius; y++ {
		if y < 0 || y >= snap.Height() {
			continue
		}
		for x := cx - c.radius; x <= cx+c.radius; x++ {
			if x < 0 || x >= snap.Width() {
				continue
			}
			px := snap.Pixel(x, y)
			rs = append(rs, px.R)
			gs = append(gs, px.G)
			bs = append(bs, px.B)
		}
	}
	return colorutil.RGB{
		R: stat.Mean(rs, nil),
		G: stat.Mean(gs, nil),
		B: stat.Mean(bs, nil),
	}
}

// Save persists the sample positions.
func (c *Calibrator) Save(s store.Store) error {
	c.mu.RLock()
	settings := Settings{Positions: append([]geometry.Point3D(nil), c.positions...), Scale: c.scale}
	c.mu.RUnlock()
	if err := s.Save(SettingsKey, settings); err != nil {
		return fmt.Errorf("failed to save sample positions: %w", err)
	}
	return nil
}

// Load replaces the sample positions with the stored ones. A missing entry
// leaves the current positions untouched, and a stored scale of zero
// keeps the current scale.
func (c *Calibrator) Load(s store.Store) error {
	var settings Settings
	err := s.Load(SettingsKey, &settings)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load sample positions: %w", err)
	}
	c.mu.Lock()
	c.positions = settings.Positions
	if settings.Scale > 0 {
		c.scale = settings.Scale
	}
	c.mu.Unlock()
	return nil
}
