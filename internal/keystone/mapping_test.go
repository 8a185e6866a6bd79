package keystone

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grid-decoder/pkg/geometry"
)

func quad(pts ...float64) geometry.Quad {
	return geometry.NewQuad(
		geometry.NewPoint2D(pts[0], pts[1]),
		geometry.NewPoint2D(pts[2], pts[3]),
		geometry.NewPoint2D(pts[4], pts[5]),
		geometry.NewPoint2D(pts[6], pts[7]),
	)
}

var convexQuads = map[string]geometry.Quad{
	"unit square":        geometry.Rectangle(0, 0, 1, 1),
	"wide rectangle":     geometry.Rectangle(-3, 2, 8, 2),
	"right trapezoid":    quad(0, 0, 0, 2, 2, 2, 4, 0),
	"keystoned":          quad(10, 5, 12, 95, 88, 90, 95, 2),
	"parallelogram":      quad(0, 0, 1, 2, 4, 2, 3, 0),
	"rotated and skewed": quad(1, 0, -1, 3, 4, 5, 5, 1),
}

func TestComputeMappingConvex(t *testing.T) {
	t.Parallel()
	for name, q := range convexQuads {
		t.Run(name, func(t *testing.T) {
			m, err := ComputeMapping(q)
			require.NoError(t, err)

			for i, w := range m.Weights {
				assert.Greater(t, w, 0.0, "q%d", i)
				assert.False(t, math.IsInf(w, 0) || math.IsNaN(w), "q%d", i)
			}

			r := m.Rectified
			assert.Equal(t, geometry.Point2D{}, r[0], "corner 0 at origin")
			assert.Zero(t, r[1].X, "left edge on the v axis")
			assert.Greater(t, r[1].Y, 0.0)
			assert.Zero(t, r[3].Y, "bottom edge on the u axis")
			assert.Greater(t, r[3].X, 0.0)
			_, err = ComputeMapping(geometry.Quad(r))
			assert.NoError(t, err, "rectified corners stay convex")
		})
	}
}

func TestComputeMappingIsPure(t *testing.T) {
	t.Parallel()
	q := convexQuads["keystoned"]
	first, err := ComputeMapping(q)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := ComputeMapping(q)
		require.NoError(t, err)
		assert.Equal(t, *first, *again)
	}
	assert.Equal(t, convexQuads["keystoned"], q, "input not mutated")
}

func TestComputeMappingWorkedExample(t *testing.T) {
	t.Parallel()
	m, err := ComputeMapping(quad(0, 0, 0, 2, 2, 2, 4, 0))
	require.NoError(t, err)

	assert.InDelta(t, 2.0/3, m.T, 1e-12)
	assert.InDelta(t, 1.0/3, m.S, 1e-12)
	assert.InDelta(t, 4.0/3, m.Center.X, 1e-12)
	assert.InDelta(t, 4.0/3, m.Center.Y, 1e-12)

	want := [4]float64{3, 1.5, 1.5, 3}
	for i := range want {
		assert.InDelta(t, want[i], m.Weights[i], 1e-12, "q%d", i)
	}
	assert.Equal(t, [4]geometry.Point2D{{X: 0, Y: 0}, {X: 0, Y: 2}, {X: 2, Y: 2}, {X: 4, Y: 0}}, m.Rectified)

	h := m.Homogeneous()
	assert.InDelta(t, 3.0, h[2][0], 1e-12)
	assert.InDelta(t, 3.0, h[2][1], 1e-12)
	assert.InDelta(t, 1.5, h[2][2], 1e-12)
	assert.InDelta(t, 12.0, h[3][0], 1e-12)
	assert.InDelta(t, 0.0, h[3][1], 1e-12)
	assert.InDelta(t, 3.0, h[3][2], 1e-12)
}

func TestComputeMappingRectangle(t *testing.T) {
	t.Parallel()
	m, err := ComputeMapping(geometry.Rectangle(2, 3, 4, 2))
	require.NoError(t, err)
	assert.Equal(t, [4]float64{2, 2, 2, 2}, m.Weights)
	assert.Equal(t, [4]geometry.Point2D{{X: 0, Y: 0}, {X: 0, Y: 2}, {X: 4, Y: 2}, {X: 4, Y: 0}}, m.Rectified)
}

func TestComputeMappingDegenerate(t *testing.T) {
	t.Parallel()
	tests := map[string]geometry.Quad{
		"parallel diagonals": quad(0, 0, 0, 1, 1, 0, 1, 1),
		"all corners equal":  quad(1, 1, 1, 1, 1, 1, 1, 1),
		"collinear":          quad(0, 0, 1, 0, 2, 0, 3, 0),
		"nan corner":         quad(0, 0, 0, 1, math.NaN(), 1, 1, 0),
		"inf corner":         quad(0, 0, 0, 1, 1, math.Inf(1), 1, 0),
	}
	for name, q := range tests {
		t.Run(name, func(t *testing.T) {
			m, err := ComputeMapping(q)
			assert.ErrorIs(t, err, ErrDegenerateQuad)
			assert.Nil(t, m)
		})
	}
}

func TestComputeMappingNonConvex(t *testing.T) {
	t.Parallel()
	tests := map[string]geometry.Quad{
		"dart":               quad(0, 0, 0, 4, 4, 4, 0.5, 1.5),
		"corner on diagonal": quad(0, 0, 0, 4, 4, 4, 1, 1),
		"self-intersecting":  quad(0, 0, 0, 4, 4, 0, 5, 5),
	}
	for name, q := range tests {
		t.Run(name, func(t *testing.T) {
			m, err := ComputeMapping(q)
			assert.ErrorIs(t, err, ErrNonConvexQuad)
			assert.Nil(t, m)
		})
	}
}

func TestTexCoordCorners(t *testing.T) {
	t.Parallel()
	m, err := ComputeMapping(convexQuads["keystoned"])
	require.NoError(t, err)

	for i, c := range m.Corners {
		uv, ok := m.TexCoord(c)
		require.True(t, ok, "corner %d", i)
		assert.InDelta(t, unitSquare[i].X, uv.X, 1e-9, "corner %d", i)
		assert.InDelta(t, unitSquare[i].Y, uv.Y, 1e-9, "corner %d", i)
	}

	uv, ok := m.TexCoord(m.Center)
	require.True(t, ok)
	assert.InDelta(t, 0.5, uv.X, 1e-9)
	assert.InDelta(t, 0.5, uv.Y, 1e-9)

	_, ok = m.TexCoord(geometry.NewPoint2D(-100, -100))
	assert.False(t, ok)
}

func TestTexCoordMatchesHomography(t *testing.T) {
	t.Parallel()
	for name, q := range convexQuads {
		t.Run(name, func(t *testing.T) {
			m, err := ComputeMapping(q)
			require.NoError(t, err)
			h, err := m.ToSquare()
			require.NoError(t, err)

			for i := 1; i < 10; i++ {
				for j := 1; j < 10; j++ {
					uv := geometry.NewPoint2D(float64(i)/10, float64(j)/10)
					p, ok := m.QuadPoint(uv)
					require.True(t, ok)

					got, ok := m.TexCoord(p)
					require.True(t, ok, "point %v", p)
					assert.InDelta(t, uv.X, got.X, 1e-9)
					assert.InDelta(t, uv.Y, got.Y, 1e-9)

					want := h.Apply(p)
					assert.InDelta(t, want.X, got.X, 1e-7)
					assert.InDelta(t, want.Y, got.Y, 1e-7)
				}
			}
		})
	}
}

func TestTexCoordIsNotAffineUnderPerspective(t *testing.T) {
	t.Parallel()
	m, err := ComputeMapping(quad(0, 0, 0, 2, 2, 2, 4, 0))
	require.NoError(t, err)

	// The midpoint of the left edge sits below v = 0.5 because the top
	// edge is foreshortened.
	uv, ok := m.TexCoord(geometry.NewPoint2D(0, 1))
	require.True(t, ok)
	assert.InDelta(t, 0.0, uv.X, 1e-12)
	assert.InDelta(t, 1.0/3, uv.Y, 1e-12)
}

func TestQuadPointOutside(t *testing.T) {
	t.Parallel()
	m, err := ComputeMapping(geometry.Rectangle(0, 0, 1, 1))
	require.NoError(t, err)
	_, ok := m.QuadPoint(geometry.NewPoint2D(1.5, 0.5))
	assert.False(t, ok)
}

func TestSolveHomographySingular(t *testing.T) {
	t.Parallel()
	src := [4]geometry.Point2D{{X: 0, Y: 0}, {X: 0, Y: 0}, {X: 0, Y: 0}, {X: 0, Y: 0}}
	_, err := SolveHomography(src, unitSquare)
	assert.Error(t, err)
}
