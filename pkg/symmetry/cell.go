package symmetry

import (
	"errors"
	"fmt"
	"math"

	"github.com/openmol/molscript/pkg/geom"
)

// ErrBadCell is returned for non-positive edges or impossible angles.
var ErrBadCell = errors.New("symmetry: bad unit cell")

// UnitCell holds lattice parameters: edges in Å and angles in degrees.
type UnitCell struct {
	A, B, C            float64
	Alpha, Beta, Gamma float64

	toCart geom.M3
	toFrac geom.M3
}

// NewUnitCell validates the parameters and precomputes the
// orthogonalization matrix (a along x, b in the xy plane).
func NewUnitCell(a, b, c, alpha, beta, gamma float64) (*UnitCell, error) {
	if a <= 0 || b <= 0 || c <= 0 {
		return nil, fmt.Errorf("%w: edges %g %g %g", ErrBadCell, a, b, c)
	}
	rad := math.Pi / 180
	ca, cb, cg := math.Cos(alpha*rad), math.Cos(beta*rad), math.Cos(gamma*rad)
	sg := math.Sin(gamma * rad)
	v2 := 1 - ca*ca - cb*cb - cg*cg + 2*ca*cb*cg
	if v2 <= 0 || math.Abs(sg) < geom.Epsilon {
		return nil, fmt.Errorf("%w: angles %g %g %g", ErrBadCell, alpha, beta, gamma)
	}
	v := math.Sqrt(v2)
	m := geom.M3{
		{a, b * cg, c * cb},
		{0, b * sg, c * (ca - cb*cg) / sg},
		{0, 0, c * v / sg},
	}
	inv, ok := m.Inverse()
	if !ok {
		return nil, fmt.Errorf("%w: singular cell", ErrBadCell)
	}
	return &UnitCell{A: a, B: b, C: c, Alpha: alpha, Beta: beta, Gamma: gamma, toCart: m, toFrac: inv}, nil
}

// Cubic is a convenience for an a×a×a orthogonal cell.
func Cubic(a float64) *UnitCell {
	uc, err := NewUnitCell(a, a, a, 90, 90, 90)
	if err != nil {
		panic(err)
	}
	return uc
}

// ToCartesian converts fractional coordinates to Å.
func (uc *UnitCell) ToCartesian(f geom.P3) geom.P3 { return uc.toCart.Transform(f) }

// ToFractional converts Å to fractional coordinates.
func (uc *UnitCell) ToFractional(p geom.P3) geom.P3 { return uc.toFrac.Transform(p) }

// Volume in Å³.
func (uc *UnitCell) Volume() float64 { return uc.toCart.Determinant() }

// Vectors returns the Cartesian lattice vectors a, b and c.
func (uc *UnitCell) Vectors() [3]geom.P3 {
	m := uc.toCart.Transpose()
	return [3]geom.P3{m.Row(0), m.Row(1), m.Row(2)}
}

// MillerPlane returns the Cartesian plane (h k l) passing through a/h, b/k
// and c/l. All-zero indices give NaN4.
func (uc *UnitCell) MillerPlane(h, k, l float64) geom.P4 {
	if h == 0 && k == 0 && l == 0 {
		return geom.NaN4()
	}
	// h·fx + k·fy + l·fz = 1 in fractional space
	n := uc.toFrac.Transpose().Transform(geom.P3{X: h, Y: k, Z: l})
	return geom.NormalizePlane(geom.P4{X: n.X, Y: n.Y, Z: n.Z, W: -1})
}

// CartesianOp expresses a fractional operator in Cartesian space.
func (uc *UnitCell) CartesianOp(op SymOp) geom.M4 {
	r := uc.toCart.Mul(op.Rot).Mul(uc.toFrac)
	return geom.NewM4(r, uc.toCart.Transform(op.Trans))
}

// String prints the six parameters.
func (uc *UnitCell) String() string {
	return fmt.Sprintf("a=%g b=%g c=%g alpha=%g beta=%g gamma=%g", uc.A, uc.B, uc.C, uc.Alpha, uc.Beta, uc.Gamma)
}
