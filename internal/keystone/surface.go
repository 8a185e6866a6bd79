package keystone

import "grid-decoder/pkg/geometry"

// Surface is the keystoned quad lying in the X/Z plane at Height, with
// the capture image mapped onto it. It resolves straight-down rays from
// world positions to texture coordinates.
type Surface struct {
	mapping   *Mapping
	height    float64
	rayLength float64
}

// NewSurface returns a surface for mapping. Rays longer than rayLength
// never hit.
func NewSurface(m *Mapping, height, rayLength float64) *Surface {
	return &Surface{mapping: m, height: height, rayLength: rayLength}
}

// Mapping returns the mapping the surface was built from.
func (s *Surface) Mapping() *Mapping {
	return s.mapping
}

// Intersect casts a ray straight down from pos. On a hit it returns the
// texture coordinate in the unit square, with (0, 0) at the bottom-left of
// the image.
func (s *Surface) Intersect(pos geometry.Point3D) (geometry.Point2D, bool) {
	drop := pos.Y - s.height
	if drop < 0 || drop > s.rayLength {
		return geometry.Point2D{}, false
	}
	return s.mapping.TexCoord(pos.Ground())
}
