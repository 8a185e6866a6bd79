// Package config loads the scanner configuration from a JSON file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"grid-decoder/internal/palette"
	"grid-decoder/internal/probe"
	"grid-decoder/internal/tiles"
	"grid-decoder/pkg/geometry"
)

// Config is the root configuration. Fields omitted from the file keep
// the values from Default.
type Config struct {
	Grid        GridConfig        `json:"grid"`
	Surface     SurfaceConfig     `json:"surface"`
	Calibration CalibrationConfig `json:"calibration"`
	Capture     CaptureConfig     `json:"capture"`
	Store       StoreConfig       `json:"store"`

	Palette palette.Palette `json:"palette"`
	Tiles   []tiles.Entry   `json:"tiles"`

	RefreshInterval string  `json:"refresh_interval"` // duration string like "100ms"
	NudgeStep       float64 `json:"nudge_step"`
}

// GridConfig describes the probe lattice. Spacing defaults to twice
// Scale when zero.
type GridConfig struct {
	NumX      int              `json:"num_x"`
	NumY      int              `json:"num_y"`
	BlockSize int              `json:"block_size"`
	Scale     float64          `json:"scale"`
	Spacing   float64          `json:"spacing,omitempty"`
	Origin    geometry.Point2D `json:"origin"`
	Height    float64          `json:"height"`
	Workers   int              `json:"workers"`
}

// SurfaceConfig places the keystoned surface.
type SurfaceConfig struct {
	Corners   geometry.Quad `json:"corners"`
	Height    float64       `json:"height"`
	RayLength float64       `json:"ray_length"`
}

// CalibrationConfig lists one reference position per palette entry.
type CalibrationConfig struct {
	Positions []geometry.Point3D `json:"positions"`
	Radius    int                `json:"radius"`
}

// CaptureConfig selects the capture source.
type CaptureConfig struct {
	Source string `json:"source"` // "image" or "webcam"
	Path   string `json:"path,omitempty"`
	Device string `json:"device,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// StoreConfig selects where settings and decode history are kept.
type StoreConfig struct {
	Driver string `json:"driver"` // "file" or "sqlite"
	Path   string `json:"path,omitempty"`
}

// Default returns the standard 16x16 probe, 2x2 block setup. The surface
// is 16 wide and 18 deep; the strip above the grid holds the calibration
// swatches.
func Default() *Config {
	return &Config{
		Grid: GridConfig{
			NumX:      16,
			NumY:      16,
			BlockSize: 2,
			Scale:     0.5,
			Origin:    geometry.NewPoint2D(0.5, 0.5),
			Height:    0.1,
		},
		Surface: SurfaceConfig{
			Corners:   geometry.Rectangle(0, 0, 16, 18),
			RayLength: 6,
		},
		Calibration: CalibrationConfig{
			Positions: []geometry.Point3D{
				{X: 1, Y: 0.2, Z: 17},
				{X: 3, Y: 0.2, Z: 17},
				{X: 5, Y: 0.2, Z: 17},
				{X: 7, Y: 0.2, Z: 17},
			},
		},
		Capture:         CaptureConfig{Source: "webcam", Device: "0"},
		Store:           StoreConfig{Driver: "file"},
		Palette:         palette.Default(),
		Tiles:           tiles.DefaultEntries(),
		RefreshInterval: "100ms",
		NudgeStep:       0.1,
	}
}

// Load reads a Config from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	if err := c.Probes().Validate(); err != nil {
		return err
	}
	if n := c.Palette.Len(); n == 0 || n > tiles.MaxClasses {
		return fmt.Errorf("palette must have between 1 and %d entries, got %d", tiles.MaxClasses, n)
	}
	if _, err := c.Dictionary(); err != nil {
		return err
	}
	if c.Surface.RayLength <= 0 {
		return fmt.Errorf("ray_length must be positive, got %f", c.Surface.RayLength)
	}
	if c.Calibration.Radius < 0 {
		return fmt.Errorf("calibration radius must be non-negative, got %d", c.Calibration.Radius)
	}
	if c.NudgeStep <= 0 {
		return fmt.Errorf("nudge_step must be positive, got %f", c.NudgeStep)
	}

	d, err := time.ParseDuration(c.RefreshInterval)
	if err != nil {
		return fmt.Errorf("invalid refresh_interval '%s': %w", c.RefreshInterval, err)
	}
	if d <= 0 {
		return fmt.Errorf("refresh_interval must be positive, got %s", d)
	}

	switch c.Capture.Source {
	case "image":
		if c.Capture.Path == "" {
			return fmt.Errorf("capture source %q needs a path", c.Capture.Source)
		}
	case "webcam":
	default:
		return fmt.Errorf("unknown capture source %q", c.Capture.Source)
	}

	switch c.Store.Driver {
	case "file", "sqlite":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	return nil
}

// GetRefreshInterval parses and returns the RefreshInterval as a time.Duration.
func (c *Config) GetRefreshInterval() time.Duration {
	d, err := time.ParseDuration(c.RefreshInterval)
	if err != nil || d <= 0 {
		return 100 * time.Millisecond // default on parse error
	}
	return d
}

// GetSpacing returns the probe spacing, falling back to twice the scale.
func (c *Config) GetSpacing() float64 {
	if c.Grid.Spacing > 0 {
		return c.Grid.Spacing
	}
	return 2 * c.Grid.Scale
}

// Probes returns the probe lattice configuration.
func (c *Config) Probes() probe.Config {
	return probe.Config{
		NumX:      c.Grid.NumX,
		NumY:      c.Grid.NumY,
		Spacing:   c.GetSpacing(),
		BlockSize: c.Grid.BlockSize,
		Origin:    c.Grid.Origin,
		Height:    c.Surface.Height + c.Grid.Height,
		Workers:   c.Grid.Workers,
	}
}

// Dictionary builds and validates the tile dictionary.
func (c *Config) Dictionary() (*tiles.Dictionary, error) {
	return tiles.NewDictionary(c.Grid.BlockSize, c.Tiles)
}
