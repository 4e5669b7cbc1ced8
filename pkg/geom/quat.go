package geom

import "math"

// DefaultMeanTolerance is the convergence criterion of SphereMean, in
// radians of residual mean rotation.
const DefaultMeanTolerance = 0.0001

// DefaultMeanIterations bounds the SphereMean refinement loop.
const DefaultMeanIterations = 100

// Quat is a quaternion stored as w + xi + yj + zk. Scripts see it as a P4
// in x,y,z,w order; use ToP4 and QuatFromP4 at that boundary only.
type Quat struct {
	W, X, Y, Z float64
}

// IdentityQuat is the zero rotation.
func IdentityQuat() Quat { return Quat{W: 1} }

// NaNQuat is the degenerate quaternion sentinel.
func NaNQuat() Quat { return Quat{math.NaN(), math.NaN(), math.NaN(), math.NaN()} }

// QuatFromP4 reads x,y,z,w.
func QuatFromP4(p P4) Quat { return Quat{W: p.W, X: p.X, Y: p.Y, Z: p.Z} }

// ToP4 writes x,y,z,w.
func (q Quat) ToP4() P4 { return P4{q.X, q.Y, q.Z, q.W} }

// QuatFromAxisAngle builds the rotation of deg degrees about axis. A zero
// axis yields the identity.
func QuatFromAxisAngle(axis P3, deg float64) Quat {
	n := axis.Normalize()
	if n.IsNaN() {
		return IdentityQuat()
	}
	half := deg * math.Pi / 360
	s := math.Sin(half)
	return Quat{W: math.Cos(half), X: n.X * s, Y: n.Y * s, Z: n.Z * s}
}

// QuatFromMatrix converts a rotation matrix.
func QuatFromMatrix(m M3) Quat {
	tr := m.Trace()
	var q Quat
	switch {
	case tr > 0:
		s := math.Sqrt(tr+1) * 2
		q = Quat{W: s / 4, X: (m[2][1] - m[1][2]) / s, Y: (m[0][2] - m[2][0]) / s, Z: (m[1][0] - m[0][1]) / s}
	case m[0][0] > m[1][1] && m[0][0] > m[2][2]:
		s := math.Sqrt(1+m[0][0]-m[1][1]-m[2][2]) * 2
		q = Quat{W: (m[2][1] - m[1][2]) / s, X: s / 4, Y: (m[0][1] + m[1][0]) / s, Z: (m[0][2] + m[2][0]) / s}
	case m[1][1] > m[2][2]:
		s := math.Sqrt(1+m[1][1]-m[0][0]-m[2][2]) * 2
		q = Quat{W: (m[0][2] - m[2][0]) / s, X: (m[0][1] + m[1][0]) / s, Y: s / 4, Z: (m[1][2] + m[2][1]) / s}
	default:
		s := math.Sqrt(1+m[2][2]-m[0][0]-m[1][1]) * 2
		q = Quat{W: (m[1][0] - m[0][1]) / s, X: (m[0][2] + m[2][0]) / s, Y: (m[1][2] + m[2][1]) / s, Z: s / 4}
	}
	return q.Normalize()
}

// QuatFromRotationVector is the exponential map: v is axis*angle in radians.
func QuatFromRotationVector(v P3) Quat {
	theta := v.Length()
	if theta < Epsilon {
		return IdentityQuat()
	}
	s := math.Sin(theta/2) / theta
	return Quat{W: math.Cos(theta / 2), X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

func (q Quat) Dot(p Quat) float64 { return q.W*p.W + q.X*p.X + q.Y*p.Y + q.Z*p.Z }
func (q Quat) Norm() float64      { return math.Sqrt(q.Dot(q)) }
func (q Quat) Negate() Quat       { return Quat{-q.W, -q.X, -q.Y, -q.Z} }
func (q Quat) Conjugate() Quat    { return Quat{q.W, -q.X, -q.Y, -q.Z} }
func (q Quat) Vector() P3         { return P3{q.X, q.Y, q.Z} }

// IsNaN reports whether any component is NaN.
func (q Quat) IsNaN() bool { return q.ToP4().IsNaN() }

// Normalize scales q to unit length; a zero quaternion becomes NaNQuat.
func (q Quat) Normalize() Quat {
	n := q.Norm()
	if n < Epsilon {
		return NaNQuat()
	}
	return Quat{q.W / n, q.X / n, q.Y / n, q.Z / n}
}

// Canonical flips the sign so that w >= 0; q and -q are the same rotation.
func (q Quat) Canonical() Quat {
	if q.W < 0 {
		return q.Negate()
	}
	return q
}

// Mul is the Hamilton product q·p.
func (q Quat) Mul(p Quat) Quat {
	return Quat{
		W: q.W*p.W - q.X*p.X - q.Y*p.Y - q.Z*p.Z,
		X: q.W*p.X + q.X*p.W + q.Y*p.Z - q.Z*p.Y,
		Y: q.W*p.Y - q.X*p.Z + q.Y*p.W + q.Z*p.X,
		Z: q.W*p.Z + q.X*p.Y - q.Y*p.X + q.Z*p.W,
	}
}

// Inv returns q⁻¹.
func (q Quat) Inv() Quat {
	n2 := q.Dot(q)
	if n2 < Epsilon*Epsilon {
		return NaNQuat()
	}
	c := q.Conjugate()
	return Quat{c.W / n2, c.X / n2, c.Y / n2, c.Z / n2}
}

// Div returns q·p⁻¹, the rotation taking p to q.
func (q Quat) Div(p Quat) Quat {
	return q.Mul(p.Inv())
}

// Theta returns the rotation angle in degrees, in [0, 180].
func (q Quat) Theta() float64 {
	c := q.Normalize().Canonical()
	w := math.Max(-1, math.Min(1, c.W))
	return 2 * math.Acos(w) * 180 / math.Pi
}

// Axis returns the unit rotation axis; the identity reports {0 0 1}.
func (q Quat) Axis() P3 {
	c := q.Normalize().Canonical()
	v := c.Vector().Normalize()
	if v.IsNaN() {
		return P3{0, 0, 1}
	}
	return v
}

// RotationVector is the logarithm map: axis*angle in radians.
func (q Quat) RotationVector() P3 {
	c := q.Normalize().Canonical()
	s := c.Vector().Length()
	if s < Epsilon {
		return P3{}
	}
	theta := 2 * math.Atan2(s, c.W)
	return c.Vector().Scale(theta / s)
}

// Matrix returns the rotation matrix of the normalized quaternion.
func (q Quat) Matrix() M3 {
	n := q.Normalize()
	w, x, y, z := n.W, n.X, n.Y, n.Z
	return M3{
		{1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y)},
		{2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x)},
		{2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y)},
	}
}

// Transform rotates p.
func (q Quat) Transform(p P3) P3 {
	return q.Matrix().Transform(p)
}

// SameRotation reports whether q and p describe the same rotation within tol.
func (q Quat) SameRotation(p Quat, tol float64) bool {
	return math.Abs(math.Abs(q.Normalize().Dot(p.Normalize()))-1) <= tol
}

// SphereMean averages unit quaternions on the hypersphere. It starts from the
// hemisphere-aligned arithmetic mean and refines it with the log/exp map
// until the residual mean rotation drops below tol radians or maxIter passes
// have run. The second result is the RMS angular deviation in degrees.
// An empty input yields NaNQuat and NaN.
func SphereMean(data []Quat, tol float64, maxIter int) (Quat, float64) {
	if len(data) == 0 {
		return NaNQuat(), math.NaN()
	}
	if tol <= 0 {
		tol = DefaultMeanTolerance
	}
	if maxIter <= 0 {
		maxIter = DefaultMeanIterations
	}
	qs := make([]Quat, 0, len(data))
	for _, q := range data {
		n := q.Normalize()
		if !n.IsNaN() {
			qs = append(qs, n)
		}
	}
	if len(qs) == 0 {
		return NaNQuat(), math.NaN()
	}
	if len(qs) == 1 {
		return qs[0], 0
	}
	ref := qs[0]
	var sum Quat
	for _, q := range qs {
		if q.Dot(ref) < 0 {
			q = q.Negate()
		}
		sum = Quat{sum.W + q.W, sum.X + q.X, sum.Y + q.Y, sum.Z + q.Z}
	}
	mean := sum.Normalize()
	if mean.IsNaN() {
		mean = ref
	}
	inv := 1 / float64(len(qs))
	for iter := 0; iter < maxIter; iter++ {
		var acc P3
		for _, q := range qs {
			acc = acc.Add(mean.Inv().Mul(q).RotationVector())
		}
		acc = acc.Scale(inv)
		if acc.Length() < tol {
			break
		}
		mean = mean.Mul(QuatFromRotationVector(acc)).Normalize()
	}
	var sum2 float64
	for _, q := range qs {
		th := mean.Inv().Mul(q).Theta()
		sum2 += th * th
	}
	return mean, math.Sqrt(sum2 * inv)
}
