package geometry

// SegmentParams intersects the lines through a0->a1 and b0->b1.
// It returns t, the position of the intersection along a (0 at a0, 1 at
// a1), s, the position along b, and the cross product of the two
// direction vectors. When cross is zero the lines are parallel and t and
// s are meaningless.
func SegmentParams(a0, a1, b0, b1 Point2D) (t, s, cross float64) {
	da := a1.Sub(a0)
	db := b1.Sub(b0)
	cross = da.Cross(db)
	if cross == 0 {
		return 0, 0, 0
	}
	w := b0.Sub(a0)
	t = w.Cross(db) / cross
	s = w.Cross(da) / cross
	return t, s, cross
}
