// Package geometry provides basic geometric types used throughout the application.
package geometry

import (
	"math"
)

// Point2D represents a 2D point with floating-point coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewPoint2D creates a new Point2D.
func NewPoint2D(x, y float64) Point2D {
	return Point2D{X: x, Y: y}
}

// Distance returns the Euclidean distance to another point.
func (p Point2D) Distance(other Point2D) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Add returns the sum of two points.
func (p Point2D) Add(other Point2D) Point2D {
	return Point2D{X: p.X + other.X, Y: p.Y + other.Y}
}

// Sub returns the difference of two points.
func (p Point2D) Sub(other Point2D) Point2D {
	return Point2D{X: p.X - other.X, Y: p.Y - other.Y}
}

// Scale returns the point scaled by a factor.
func (p Point2D) Scale(factor float64) Point2D {
	return Point2D{X: p.X * factor, Y: p.Y * factor}
}

// Dot returns the dot product of p and other treated as vectors.
func (p Point2D) Dot(other Point2D) float64 {
	return p.X*other.X + p.Y*other.Y
}

// Cross returns the z component of the cross product p x other.
func (p Point2D) Cross(other Point2D) float64 {
	return p.X*other.Y - p.Y*other.X
}

// Length returns the vector length.
func (p Point2D) Length() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y)
}

// Unit returns p scaled to unit length, or the zero vector if p has no length.
func (p Point2D) Unit() Point2D {
	l := p.Length()
	if l == 0 {
		return Point2D{}
	}
	return Point2D{X: p.X / l, Y: p.Y / l}
}

// IsFinite reports whether both coordinates are finite numbers.
func (p Point2D) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Point3D is a world-space position. Y is up; the scanned surface lies in
// the X/Z plane.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// NewPoint3D creates a new Point3D.
func NewPoint3D(x, y, z float64) Point3D {
	return Point3D{X: x, Y: y, Z: z}
}

// Ground projects the point straight down onto the X/Z plane.
func (p Point3D) Ground() Point2D {
	return Point2D{X: p.X, Y: p.Z}
}

// Add returns the sum of two points.
func (p Point3D) Add(other Point3D) Point3D {
	return Point3D{X: p.X + other.X, Y: p.Y + other.Y, Z: p.Z + other.Z}
}

// Corner indices of a Quad.
const (
	BottomLeft = iota
	TopLeft
	TopRight
	BottomRight
)

// Quad is a quadrilateral with corners in the fixed winding order
// bottom-left, top-left, top-right, bottom-right.
type Quad [4]Point2D

// NewQuad builds a quad from its four corners in winding order.
func NewQuad(bl, tl, tr, br Point2D) Quad {
	return Quad{bl, tl, tr, br}
}

// Rectangle returns the axis-aligned quad with bottom-left corner at
// (x, y), extending width to the right and height upwards.
func Rectangle(x, y, width, height float64) Quad {
	return Quad{
		{X: x, Y: y},
		{X: x, Y: y + height},
		{X: x + width, Y: y + height},
		{X: x + width, Y: y},
	}
}

// Contains reports whether p lies inside or on the boundary of the quad,
// split into the triangles (0,1,2) and (0,2,3).
func (q Quad) Contains(p Point2D) bool {
	_, ok := q.Locate(p)
	return ok
}

// Locate finds the triangle of the quad containing p. It returns the
// triangle's vertex indices into the quad and barycentric coordinates
// for p within it.
func (q Quad) Locate(p Point2D) (TriangleHit, bool) {
	for _, tri := range quadTriangles {
		l0, l1, l2, ok := Barycentric(p, q[tri[0]], q[tri[1]], q[tri[2]])
		if ok {
			return TriangleHit{Indices: tri, Weights: [3]float64{l0, l1, l2}}, true
		}
	}
	return TriangleHit{}, false
}

// TriangleHit records where a point fell inside a quad.
type TriangleHit struct {
	Indices [3]int
	Weights [3]float64
}

var quadTriangles = [2][3]int{{0, 1, 2}, {0, 2, 3}}

// barycentricEpsilon absorbs rounding on shared triangle edges.
const barycentricEpsilon = 1e-9

// Barycentric returns the barycentric coordinates of p in triangle abc.
// ok is false when the triangle is degenerate or p lies outside it.
func Barycentric(p, a, b, c Point2D) (la, lb, lc float64, ok bool) {
	v0 := b.Sub(a)
	v1 := c.Sub(a)
	v2 := p.Sub(a)
	den := v0.Cross(v1)
	if den == 0 {
		return 0, 0, 0, false
	}
	lb = v2.Cross(v1) / den
	lc = v0.Cross(v2) / den
	la = 1 - lb - lc
	if la < -barycentricEpsilon || lb < -barycentricEpsilon || lc < -barycentricEpsilon {
		return la, lb, lc, false
	}
	return la, lb, lc, true
}

// Rect represents a rectangle with floating-point coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// BoundingBox computes the axis-aligned bounding box of a set of points.
func BoundingBox(points []Point2D) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
