// Package keystone computes the perspective correction that maps an
// arbitrary convex quadrilateral onto a rectified sampling frame.
//
// Corners are given in the fixed winding order bottom-left, top-left,
// top-right, bottom-right. The correction follows the projective
// interpolation scheme for quads: the two diagonals are intersected and
// each corner receives a homogeneous weight q derived from where the
// intersection divides its diagonal. Interpolating (u*q, v*q, q) linearly
// over the quad's triangles and dividing by the interpolated q yields
// perspective-correct coordinates instead of an affine blend.
package keystone

import (
	"errors"
	"fmt"

	"grid-decoder/pkg/geometry"
)

var (
	// ErrDegenerateQuad is returned when the quad's diagonals are parallel
	// (or have zero length), so no intersection exists.
	ErrDegenerateQuad = errors.New("keystone: degenerate quad, diagonals are parallel")

	// ErrNonConvexQuad is returned when the diagonals do not cross inside
	// the quad.
	ErrNonConvexQuad = errors.New("keystone: non-convex quad, diagonals do not cross inside")
)

// unitSquare holds the texture coordinates of the four corners.
var unitSquare = [4]geometry.Point2D{
	{X: 0, Y: 0},
	{X: 0, Y: 1},
	{X: 1, Y: 1},
	{X: 1, Y: 0},
}

// Mapping is the immutable result of correcting one set of corners.
type Mapping struct {
	// Corners the mapping was computed from.
	Corners geometry.Quad

	// Rectified corner positions: a right trapezoid with corner 0 at the
	// origin, corner 1 on the v axis (left edge) and corner 3 on the u
	// axis (bottom edge).
	Rectified [4]geometry.Point2D

	// Weights are the per-corner homogeneous factors q0..q3. All are > 0.
	Weights [4]float64

	// T is the position of the diagonal intersection along corner 0 ->
	// corner 2, S along corner 1 -> corner 3.
	T, S float64

	// Center is the intersection of the diagonals.
	Center geometry.Point2D
}

// ComputeMapping derives the correction mapping for corners. It is a pure
// function of its input and must be re-run whenever the corners change.
func ComputeMapping(corners geometry.Quad) (*Mapping, error) {
	for i, c := range corners {
		if !c.IsFinite() {
			return nil, fmt.Errorf("%w: corner %d is not finite", ErrDegenerateQuad, i)
		}
	}

	c0, c1, c2, c3 := corners[0], corners[1], corners[2], corners[3]
	t, s, cross := geometry.SegmentParams(c0, c2, c1, c3)
	if cross == 0 {
		return nil, ErrDegenerateQuad
	}
	if !(s > 0 && s < 1 && t > 0 && t < 1) {
		return nil, fmt.Errorf("%w (s=%.4f, t=%.4f)", ErrNonConvexQuad, s, t)
	}

	m := &Mapping{
		Corners: corners,
		T:       t,
		S:       s,
		Center:  c0.Add(c2.Sub(c0).Scale(t)),
		Weights: [4]float64{
			1 / (1 - t),
			1 / (1 - s),
			1 / t,
			1 / s,
		},
	}
	m.Rectified = rectify(corners)
	return m, nil
}

// rectify expresses the corners relative to corner 0 along the axes of
// the bottom edge (u) and the left edge (v).
func rectify(c geometry.Quad) [4]geometry.Point2D {
	bottom := c[3].Sub(c[0])
	left := c[1].Sub(c[0])
	u := bottom.Unit()
	v := left.Unit()

	return [4]geometry.Point2D{
		{X: 0, Y: 0},
		{X: 0, Y: left.Length()},
		{X: c[2].Sub(c[1]).Dot(u), Y: c[2].Sub(c[3]).Dot(v)},
		{X: bottom.Length(), Y: 0},
	}
}

// Homogeneous returns the rectified corners as homogeneous triples
// (u*q, v*q, q), the per-vertex attributes a renderer interpolates to
// draw the quad without affine distortion. TexCoord applies the same
// weights to unit-square coordinates.
func (m *Mapping) Homogeneous() [4][3]float64 {
	var out [4][3]float64
	for i, r := range m.Rectified {
		q := m.Weights[i]
		out[i] = [3]float64{r.X * q, r.Y * q, q}
	}
	return out
}

// TexCoord returns the perspective-correct texture coordinate, in the
// unit square, of a point lying inside the quad. ok is false when p is
// outside the quad.
func (m *Mapping) TexCoord(p geometry.Point2D) (geometry.Point2D, bool) {
	hit, ok := m.Corners.Locate(p)
	if !ok {
		return geometry.Point2D{}, false
	}

	var u, v, w float64
	for k, idx := range hit.Indices {
		lq := hit.Weights[k] * m.Weights[idx]
		u += lq * unitSquare[idx].X
		v += lq * unitSquare[idx].Y
		w += lq
	}
	return geometry.Point2D{X: u / w, Y: v / w}, true
}

// QuadPoint is the inverse of TexCoord: it maps a unit-square coordinate
// back into the quad. Coordinates outside the unit square report false.
func (m *Mapping) QuadPoint(uv geometry.Point2D) (geometry.Point2D, bool) {
	hit, ok := geometry.Quad(unitSquare).Locate(uv)
	if !ok {
		return geometry.Point2D{}, false
	}

	// The inverse projection carries weights 1/q.
	var x, y, w float64
	for k, idx := range hit.Indices {
		lw := hit.Weights[k] / m.Weights[idx]
		x += lw * m.Corners[idx].X
		y += lw * m.Corners[idx].Y
		w += lw
	}
	return geometry.Point2D{X: x / w, Y: y / w}, true
}
