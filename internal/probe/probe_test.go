package probe

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grid-decoder/internal/keystone"
	"grid-decoder/internal/palette"
	"grid-decoder/pkg/colorutil"
	"grid-decoder/pkg/geometry"
)

// halfRed is red on the left half of the texture and white elsewhere.
type halfRed struct{}

func (halfRed) Texel(uv geometry.Point2D) colorutil.RGB {
	if uv.X < 0.5 {
		return colorutil.Red
	}
	return colorutil.White
}

type countingIntersector struct {
	inner Intersector
	calls atomic.Int64
}

func (c *countingIntersector) Intersect(p geometry.Point3D) (geometry.Point2D, bool) {
	c.calls.Add(1)
	return c.inner.Intersect(p)
}

func testConfig() Config {
	return Config{NumX: 4, NumY: 2, Spacing: 1, BlockSize: 2, Height: 0.5, Workers: 2}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"zero width", func(c *Config) { c.NumX = 0 }, false},
		{"block does not divide x", func(c *Config) { c.NumX = 5 }, false},
		{"block does not divide y", func(c *Config) { c.BlockSize = 4 }, false},
		{"zero block", func(c *Config) { c.BlockSize = 0 }, false},
		{"zero spacing", func(c *Config) { c.Spacing = 0 }, false},
		{"negative workers", func(c *Config) { c.Workers = -1 }, false},
		{"default workers", func(c *Config) { c.Workers = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}
}

func TestBuildLayout(t *testing.T) {
	cfg := testConfig()
	cfg.Origin = geometry.NewPoint2D(10, 20)
	cfg.Spacing = 2
	g, err := New(cfg)
	require.NoError(t, err)

	probes := g.Probes()
	require.Len(t, probes, 8)
	for _, p := range probes {
		assert.Equal(t, palette.OutOfBounds, p.Class)
	}
	assert.Equal(t, geometry.NewPoint3D(10, 0.5, 20), probes[0].Position)
	last := probes[len(probes)-1]
	assert.Equal(t, 3, last.IX)
	assert.Equal(t, 1, last.IY)
	assert.Equal(t, geometry.NewPoint3D(16, 0.5, 22), last.Position)
}

func TestSetSpacing(t *testing.T) {
	g, err := New(testConfig())
	require.NoError(t, err)

	require.NoError(t, g.SetSpacing(3))
	assert.Equal(t, 3.0, g.Config().Spacing)
	probes := g.Probes()
	assert.Equal(t, geometry.NewPoint3D(9, 0.5, 3), probes[len(probes)-1].Position)

	assert.ErrorIs(t, g.SetSpacing(0), ErrInvalidConfig)
	assert.Equal(t, 3.0, g.Config().Spacing, "rejected spacing leaves the lattice alone")
}

func TestSampleAll(t *testing.T) {
	// Surface covers x in [0,4], z in [0,2] at height 0; probes sit at
	// x = 0.25..3.25 so the first two columns fall in the red half.
	m, err := keystone.ComputeMapping(geometry.Rectangle(0, 0, 4, 2))
	require.NoError(t, err)
	surface := keystone.NewSurface(m, 0, 1)

	cfg := testConfig()
	cfg.Origin = geometry.NewPoint2D(0.25, 0.5)
	g, err := New(cfg)
	require.NoError(t, err)

	hit := &countingIntersector{inner: surface}
	require.NoError(t, g.SampleAll(context.Background(), halfRed{}, hit, palette.Default()))
	assert.EqualValues(t, 8, hit.calls.Load())

	red := 2
	white := 0
	want := Classes{NumX: 4, NumY: 2, Values: []int{
		red, red, white, white,
		red, red, white, white,
	}}
	if diff := cmp.Diff(want, g.Classes()); diff != "" {
		t.Errorf("classes mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, red, g.Classes().At(1, 1))

	p := g.Probes()[1]
	assert.True(t, p.Hit)
	assert.InDelta(t, 0.3125, p.Texel.X, 1e-9)
	assert.Equal(t, colorutil.Red, p.Color)
}

func TestSampleAllMissesAreOutOfBounds(t *testing.T) {
	m, err := keystone.ComputeMapping(geometry.Rectangle(0, 0, 2.5, 2))
	require.NoError(t, err)
	surface := keystone.NewSurface(m, 0, 1)

	cfg := testConfig()
	cfg.Origin = geometry.NewPoint2D(0.25, 0.5)
	g, err := New(cfg)
	require.NoError(t, err)

	require.NoError(t, g.SampleAll(context.Background(), halfRed{}, surface, palette.Default()))
	c := g.Classes()
	assert.Equal(t, palette.OutOfBounds, c.At(3, 0))
	assert.Equal(t, palette.OutOfBounds, c.At(3, 1))
	assert.NotEqual(t, palette.OutOfBounds, c.At(2, 0))
}

func TestSampleAllCancelledKeepsReadings(t *testing.T) {
	m, err := keystone.ComputeMapping(geometry.Rectangle(0, 0, 4, 2))
	require.NoError(t, err)
	surface := keystone.NewSurface(m, 0, 1)

	cfg := testConfig()
	cfg.Origin = geometry.NewPoint2D(0.25, 0.5)
	g, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, g.SampleAll(context.Background(), halfRed{}, surface, palette.Default()))
	before := g.Classes()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = g.SampleAll(ctx, halfRed{}, surface, palette.Palette{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, before, g.Classes())
}

func TestReset(t *testing.T) {
	m, err := keystone.ComputeMapping(geometry.Rectangle(0, 0, 4, 2))
	require.NoError(t, err)
	g, err := New(Config{NumX: 2, NumY: 2, Spacing: 1, BlockSize: 2, Origin: geometry.NewPoint2D(0.5, 0.5)})
	require.NoError(t, err)
	require.NoError(t, g.SampleAll(context.Background(), halfRed{}, keystone.NewSurface(m, 0, 1), palette.Default()))
	assert.NotEqual(t, palette.OutOfBounds, g.Classes().At(0, 0))

	g.Reset()
	for _, v := range g.Classes().Values {
		assert.Equal(t, palette.OutOfBounds, v)
	}
}

func TestClassesIsACopy(t *testing.T) {
	g, err := New(testConfig())
	require.NoError(t, err)
	c := g.Classes()
	c.Values[0] = 7
	assert.Equal(t, palette.OutOfBounds, g.Classes().At(0, 0))
}
