package keystone

import (
	"errors"
	"fmt"
	"sync"

	"grid-decoder/internal/store"
	"grid-decoder/pkg/geometry"
)

// SettingsKey is the store key for persisted corner positions.
const SettingsKey = "keystone"

// Settings is the persisted form of the corners.
type Settings struct {
	Vertices geometry.Quad `json:"vertices"`
}

// Direction is a nudge direction for the selected corner.
type Direction int

// Nudge directions. Up and Down move along +Y and -Y.
const (
	Up Direction = iota
	Down
	Left
	Right
)

// Modifier scales the nudge step: ModFast x10, ModFine x0.1,
// ModFinest x0.01.
type Modifier int

const (
	// ModNone nudges by the configured step.
	ModNone Modifier = iota
	// ModFast nudges by ten steps.
	ModFast
	// ModFine nudges by a tenth of a step.
	ModFine
	// ModFinest nudges by a hundredth of a step.
	ModFinest
)

func (m Modifier) factor() float64 {
	switch m {
	case ModFast:
		return 10
	case ModFine:
		return 0.1
	case ModFinest:
		return 0.01
	default:
		return 1
	}
}

// Controller owns the editable corners and the last valid mapping. When
// an edit produces an invalid quad the corners still move, but the
// previous mapping stays in effect until the quad becomes valid again.
type Controller struct {
	mu       sync.RWMutex
	corners  geometry.Quad
	mapping  *Mapping
	selected int
	step     float64
}

// NewController validates the initial corners and returns a controller.
// step is the base nudge distance.
func NewController(corners geometry.Quad, step float64) (*Controller, error) {
	m, err := ComputeMapping(corners)
	if err != nil {
		return nil, err
	}
	return &Controller{corners: corners, mapping: m, step: step}, nil
}

// Corners returns the current corner positions.
func (c *Controller) Corners() geometry.Quad {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.corners
}

// Mapping returns the last valid mapping. It is never nil.
func (c *Controller) Mapping() *Mapping {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mapping
}

// SetCorners replaces all four corners and recomputes the mapping.
func (c *Controller) SetCorners(corners geometry.Quad) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updateLocked(corners)
}

// SetCorner moves a single corner to p.
func (c *Controller) SetCorner(i int, p geometry.Point2D) error {
	if i < 0 || i > 3 {
		return fmt.Errorf("keystone: corner index %d out of range", i)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	corners := c.corners
	corners[i] = p
	return c.updateLocked(corners)
}

// Select chooses the corner that Nudge moves.
func (c *Controller) Select(i int) error {
	if i < 0 || i > 3 {
		return fmt.Errorf("keystone: corner index %d out of range", i)
	}
	c.mu.Lock()
	c.selected = i
	c.mu.Unlock()
	return nil
}

// Selected returns the selected corner index.
func (c *Controller) Selected() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selected
}

// Nudge moves the selected corner one step in dir.
func (c *Controller) Nudge(dir Direction, mod Modifier) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	d := c.step * mod.factor()
	var delta geometry.Point2D
	switch dir {
	case Up:
		delta.Y = d
	case Down:
		delta.Y = -d
	case Left:
		delta.X = -d
	case Right:
		delta.X = d
	default:
		return fmt.Errorf("keystone: unknown direction %d", dir)
	}

	corners := c.corners
	corners[c.selected] = corners[c.selected].Add(delta)
	return c.updateLocked(corners)
}

func (c *Controller) updateLocked(corners geometry.Quad) error {
	c.corners = corners
	m, err := ComputeMapping(corners)
	if err != nil {
		return err
	}
	c.mapping = m
	return nil
}

// Save persists the current corners.
func (c *Controller) Save(s store.Store) error {
	settings := Settings{Vertices: c.Corners()}
	if err := s.Save(SettingsKey, settings); err != nil {
		return fmt.Errorf("save keystone settings: %w", err)
	}
	return nil
}

// Load restores persisted corners. When nothing has been saved the
// current corners are kept and Load returns nil.
func (c *Controller) Load(s store.Store) error {
	var settings Settings
	err := s.Load(SettingsKey, &settings)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load keystone settings: %w", err)
	}
	return c.SetCorners(settings.Vertices)
}
