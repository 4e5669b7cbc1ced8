package geom

import "math"

// A plane is a P4 holding a unit normal in X,Y,Z and the signed offset in W,
// so that n·p + w = 0 for every point p on the plane.

// PlaneFromNormal builds the plane through pt with the given normal.
func PlaneFromNormal(pt, normal P3) P4 {
	n := normal.Normalize()
	if n.IsNaN() {
		return NaN4()
	}
	return P4{n.X, n.Y, n.Z, -n.Dot(pt)}
}

// PlaneThroughPoints builds the plane through a, b and c. The normal is
// (b-a)×(c-a); when ref is non-nil the normal is flipped if needed so that
// ref lies on its positive side. Collinear points yield NaN4.
func PlaneThroughPoints(a, b, c P3, ref *P3) P4 {
	n := b.Sub(a).Cross(c.Sub(a)).Normalize()
	if n.IsNaN() {
		return NaN4()
	}
	pl := P4{n.X, n.Y, n.Z, -n.Dot(a)}
	if ref != nil && DistanceToPlane(pl, *ref) < 0 {
		pl = pl.Scale(-1)
	}
	return pl
}

// NormalizePlane rescales a plane so its normal is unit length.
func NormalizePlane(pl P4) P4 {
	l := pl.XYZ().Length()
	if l < Epsilon {
		return NaN4()
	}
	return pl.Scale(1 / l)
}

// DistanceToPlane is the signed distance of p from the plane.
func DistanceToPlane(pl P4, p P3) float64 {
	return pl.XYZ().Dot(p) + pl.W
}

// ProjectOntoPlane drops p onto the plane along its normal.
func ProjectOntoPlane(pl P4, p P3) P3 {
	return p.Sub(pl.XYZ().Scale(DistanceToPlane(pl, p)))
}

// IntersectPlanes returns a point on the line shared by two planes and the
// line's unit direction. ok is false for parallel planes.
func IntersectPlanes(p1, p2 P4) (pt, dir P3, ok bool) {
	n1, n2 := p1.XYZ(), p2.XYZ()
	d := n1.Cross(n2)
	if d.Length() < Epsilon {
		return NaN3(), NaN3(), false
	}
	// n·x = h for each plane
	h1, h2 := -p1.W, -p2.W
	c := n1.Dot(n2)
	det := 1 - c*c
	c1 := (h1 - h2*c) / det
	c2 := (h2 - h1*c) / det
	return n1.Scale(c1).Add(n2.Scale(c2)), d.Normalize(), true
}

// IntersectLinePlane intersects the line pt + t·dir with the plane. ok is
// false when the line is parallel to the plane.
func IntersectLinePlane(pt, dir P3, pl P4) (P3, bool) {
	n := pl.XYZ()
	denom := n.Dot(dir)
	if math.Abs(denom) < Epsilon {
		return NaN3(), false
	}
	t := -(n.Dot(pt) + pl.W) / denom
	return pt.Add(dir.Scale(t)), true
}

// IntersectLineSphere intersects the line pt + t·dir with a sphere and
// returns zero, one (tangent) or two points.
func IntersectLineSphere(pt, dir, center P3, radius float64) []P3 {
	u := dir.Normalize()
	if u.IsNaN() || radius < 0 {
		return nil
	}
	oc := pt.Sub(center)
	b := u.Dot(oc)
	disc := b*b - (oc.Dot(oc) - radius*radius)
	tol := Epsilon * math.Max(1, radius*radius)
	switch {
	case disc < -tol:
		return nil
	case disc <= tol:
		return []P3{pt.Add(u.Scale(-b))}
	}
	s := math.Sqrt(disc)
	return []P3{pt.Add(u.Scale(-b - s)), pt.Add(u.Scale(-b + s))}
}

// Angle returns the angle a-b-c in degrees.
func Angle(a, b, c P3) float64 {
	return VectorAngle(a.Sub(b), c.Sub(b))
}

// VectorAngle returns the angle between two vectors in degrees; NaN when
// either is zero-length.
func VectorAngle(u, v P3) float64 {
	lu, lv := u.Length(), v.Length()
	if lu < Epsilon || lv < Epsilon {
		return math.NaN()
	}
	c := u.Dot(v) / (lu * lv)
	c = math.Max(-1, math.Min(1, c))
	return math.Acos(c) * 180 / math.Pi
}

// Dihedral returns the torsion angle a-b-c-d in degrees, in (-180, 180].
func Dihedral(a, b, c, d P3) float64 {
	b1 := b.Sub(a)
	b2 := c.Sub(b)
	b3 := d.Sub(c)
	n1 := b1.Cross(b2)
	n2 := b2.Cross(b3)
	if n1.Length() < Epsilon || n2.Length() < Epsilon {
		return math.NaN()
	}
	m1 := n1.Cross(b2.Normalize())
	x := n1.Dot(n2)
	y := m1.Dot(n2)
	return -math.Atan2(y, x) * 180 / math.Pi
}
