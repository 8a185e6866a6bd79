package keystone

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"grid-decoder/pkg/geometry"
)

// Homography is a 3x3 projective transform stored row-major with h[8]
// normalised to 1.
type Homography [9]float64

// SolveHomography computes the homography mapping src[i] onto dst[i].
func SolveHomography(src, dst [4]geometry.Point2D) (Homography, error) {
	// x' = (h0 x + h1 y + h2) / (h6 x + h7 y + 1)
	// y' = (h3 x + h4 y + h5) / (h6 x + h7 y + 1)
	A := mat.NewDense(8, 8, nil)
	B := mat.NewVecDense(8, nil)

	for i := 0; i < 4; i++ {
		x, y := src[i].X, src[i].Y
		xp, yp := dst[i].X, dst[i].Y
		r := 2 * i

		A.Set(r, 0, x)
		A.Set(r, 1, y)
		A.Set(r, 2, 1)
		A.Set(r, 6, -x*xp)
		A.Set(r, 7, -y*xp)
		B.SetVec(r, xp)

		A.Set(r+1, 3, x)
		A.Set(r+1, 4, y)
		A.Set(r+1, 5, 1)
		A.Set(r+1, 6, -x*yp)
		A.Set(r+1, 7, -y*yp)
		B.SetVec(r+1, yp)
	}

	var params mat.VecDense
	if err := params.SolveVec(A, B); err != nil {
		return Homography{}, fmt.Errorf("solve homography: %w", err)
	}

	var h Homography
	for i := 0; i < 8; i++ {
		h[i] = params.AtVec(i)
	}
	h[8] = 1
	return h, nil
}

// Apply maps p through the homography.
func (h Homography) Apply(p geometry.Point2D) geometry.Point2D {
	w := h[6]*p.X + h[7]*p.Y + h[8]
	return geometry.Point2D{
		X: (h[0]*p.X + h[1]*p.Y + h[2]) / w,
		Y: (h[3]*p.X + h[4]*p.Y + h[5]) / w,
	}
}

// ToSquare returns the homography taking the quad onto the unit square.
func (m *Mapping) ToSquare() (Homography, error) {
	return SolveHomography(m.Corners, unitSquare)
}

