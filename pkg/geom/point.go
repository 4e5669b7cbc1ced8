// Package geom holds the small fixed-size linear algebra the script engine
// needs: points, 4-vectors, quaternions, 3x3/4x4 matrices, planes, and the
// intersection and superposition routines built on them.
package geom

import (
	"math"
	"strconv"
	"strings"
)

// Epsilon is the tolerance used for degeneracy tests (parallel lines,
// zero-length vectors, tangent spheres).
const Epsilon = 1e-9

// P3 is a point or vector in 3-space.
type P3 struct {
	X, Y, Z float64
}

// P4 is a 4-vector. It carries planes (normal.xyz + offset in W) and
// quaternions in x,y,z,w order.
type P4 struct {
	X, Y, Z, W float64
}

// NaN3 is the degenerate point sentinel.
func NaN3() P3 {
	return P3{math.NaN(), math.NaN(), math.NaN()}
}

// NaN4 is the degenerate plane sentinel.
func NaN4() P4 {
	return P4{math.NaN(), math.NaN(), math.NaN(), math.NaN()}
}

func (p P3) Add(q P3) P3            { return P3{p.X + q.X, p.Y + q.Y, p.Z + q.Z} }
func (p P3) Sub(q P3) P3            { return P3{p.X - q.X, p.Y - q.Y, p.Z - q.Z} }
func (p P3) Scale(f float64) P3     { return P3{p.X * f, p.Y * f, p.Z * f} }
func (p P3) Dot(q P3) float64       { return p.X*q.X + p.Y*q.Y + p.Z*q.Z }
func (p P3) LengthSquared() float64 { return p.Dot(p) }
func (p P3) Length() float64        { return math.Sqrt(p.Dot(p)) }
func (p P3) Distance(q P3) float64  { return p.Sub(q).Length() }

// Cross returns p × q.
func (p P3) Cross(q P3) P3 {
	return P3{
		p.Y*q.Z - p.Z*q.Y,
		p.Z*q.X - p.X*q.Z,
		p.X*q.Y - p.Y*q.X,
	}
}

// Normalize returns the unit vector along p, or NaN3 for a zero vector.
func (p P3) Normalize() P3 {
	l := p.Length()
	if l < Epsilon {
		return NaN3()
	}
	return p.Scale(1 / l)
}

// IsNaN reports whether any component is NaN.
func (p P3) IsNaN() bool {
	return math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsNaN(p.Z)
}

// Mul multiplies component-wise.
func (p P3) Mul(q P3) P3 { return P3{p.X * q.X, p.Y * q.Y, p.Z * q.Z} }

// Component returns x, y, or z by index 0..2.
func (p P3) Component(i int) float64 {
	switch i {
	case 0:
		return p.X
	case 1:
		return p.Y
	case 2:
		return p.Z
	}
	return math.NaN()
}

// Near reports component-wise equality within tol.
func (p P3) Near(q P3, tol float64) bool {
	return math.Abs(p.X-q.X) <= tol && math.Abs(p.Y-q.Y) <= tol && math.Abs(p.Z-q.Z) <= tol
}

// Centroid averages the points; the empty list yields NaN3.
func Centroid(pts []P3) P3 {
	if len(pts) == 0 {
		return NaN3()
	}
	var c P3
	for _, p := range pts {
		c = c.Add(p)
	}
	return c.Scale(1 / float64(len(pts)))
}

func (p P4) Add(q P4) P4        { return P4{p.X + q.X, p.Y + q.Y, p.Z + q.Z, p.W + q.W} }
func (p P4) Sub(q P4) P4        { return P4{p.X - q.X, p.Y - q.Y, p.Z - q.Z, p.W - q.W} }
func (p P4) Scale(f float64) P4 { return P4{p.X * f, p.Y * f, p.Z * f, p.W * f} }
func (p P4) Dot(q P4) float64   { return p.X*q.X + p.Y*q.Y + p.Z*q.Z + p.W*q.W }
func (p P4) Length() float64    { return math.Sqrt(p.Dot(p)) }

// XYZ drops the fourth component.
func (p P4) XYZ() P3 { return P3{p.X, p.Y, p.Z} }

// IsNaN reports whether any component is NaN.
func (p P4) IsNaN() bool {
	return math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsNaN(p.Z) || math.IsNaN(p.W)
}

// FormatFloat renders a coordinate the way the script language prints
// numbers: shortest round-trip form, always with a decimal point.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// String renders {x y z}.
func (p P3) String() string {
	return "{" + FormatFloat(p.X) + " " + FormatFloat(p.Y) + " " + FormatFloat(p.Z) + "}"
}

// String renders {x y z w}.
func (p P4) String() string {
	return "{" + FormatFloat(p.X) + " " + FormatFloat(p.Y) + " " + FormatFloat(p.Z) + " " + FormatFloat(p.W) + "}"
}

// ParsePoint reads "{x y z}" or "{x y z w}" (commas allowed). It returns
// the parsed components and false when the text is not a point literal.
func ParsePoint(s string) ([]float64, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '{' || s[len(s)-1] != '}' {
		return nil, false
	}
	fields := strings.FieldsFunc(s[1:len(s)-1], func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t'
	})
	if len(fields) != 3 && len(fields) != 4 {
		return nil, false
	}
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}
