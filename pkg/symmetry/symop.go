// Package symmetry implements crystallographic symmetry operators written in
// Jones–Faithful notation ("x,1/2-y,z"), the unit cell that maps them to
// Cartesian space, and a small space-group table with Wyckoff positions.
package symmetry

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/openmol/molscript/pkg/geom"
)

// ErrBadOperator is returned for text that is not a Jones–Faithful triplet.
var ErrBadOperator = errors.New("symmetry: bad operator")

// ErrUnknownGroup is returned when a space group is not in the table.
var ErrUnknownGroup = errors.New("symmetry: unknown space group")

// Tolerance is the default tolerance for lattice-equivalence tests in
// fractional coordinates.
const Tolerance = 1e-3

// SymOp is an affine operator R·p + T acting on fractional coordinates.
type SymOp struct {
	Rot   geom.M3
	Trans geom.P3
}

// Identity returns x,y,z.
func Identity() SymOp {
	return SymOp{Rot: geom.Identity3()}
}

// MustParse parses a triplet known to be valid; it panics otherwise and is
// meant for the built-in tables.
func MustParse(xyz string) SymOp {
	op, err := Parse(xyz)
	if err != nil {
		panic(err)
	}
	return op
}

// Parse reads a Jones–Faithful triplet. Terms may be signed variables with
// optional integer or fractional coefficients ("2x", "-y", "x-y") and
// constants written as fractions or decimals ("1/2", "+0.25").
func Parse(xyz string) (SymOp, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(xyz)), ",")
	if len(parts) != 3 {
		return SymOp{}, fmt.Errorf("%w: %q needs three components", ErrBadOperator, xyz)
	}
	var op SymOp
	for row, part := range parts {
		coef, c, err := parseComponent(part)
		if err != nil {
			return SymOp{}, fmt.Errorf("%w: %q: %v", ErrBadOperator, xyz, err)
		}
		op.Rot[row] = coef
		switch row {
		case 0:
			op.Trans.X = c
		case 1:
			op.Trans.Y = c
		case 2:
			op.Trans.Z = c
		}
	}
	return op, nil
}

func parseComponent(s string) ([3]float64, float64, error) {
	var coef [3]float64
	var c float64
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return coef, 0, errors.New("empty component")
	}
	i := 0
	for i < len(s) {
		sign := 1.0
		for i < len(s) && (s[i] == '+' || s[i] == '-') {
			if s[i] == '-' {
				sign = -sign
			}
			i++
		}
		start := i
		for i < len(s) && (s[i] >= '0' && s[i] <= '9' || s[i] == '.' || s[i] == '/') {
			i++
		}
		num := 1.0
		hasNum := i > start
		if hasNum {
			v, err := parseFraction(s[start:i])
			if err != nil {
				return coef, 0, err
			}
			num = v
		}
		if i < len(s) && (s[i] == 'x' || s[i] == 'y' || s[i] == 'z') {
			coef[s[i]-'x'] += sign * num
			i++
			continue
		}
		if !hasNum {
			return coef, 0, fmt.Errorf("unexpected %q", s[i:])
		}
		c += sign * num
		if i < len(s) && s[i] == '*' {
			return coef, 0, errors.New("unsupported operator '*'")
		}
	}
	return coef, c, nil
}

func parseFraction(s string) (float64, error) {
	if k := strings.IndexByte(s, '/'); k >= 0 {
		n, err := strconv.ParseFloat(s[:k], 64)
		if err != nil {
			return 0, err
		}
		d, err := strconv.ParseFloat(s[k+1:], 64)
		if err != nil {
			return 0, err
		}
		if d == 0 {
			return 0, errors.New("zero denominator")
		}
		return n / d, nil
	}
	return strconv.ParseFloat(s, 64)
}

// Apply transforms a fractional point.
func (op SymOp) Apply(p geom.P3) geom.P3 {
	return op.Rot.Transform(p).Add(op.Trans)
}

// ApplyWithOffset transforms p and then adds a lattice translation.
func (op SymOp) ApplyWithOffset(p, offset geom.P3) geom.P3 {
	return op.Apply(p).Add(offset)
}

// Inverse returns the operator undoing op.
func (op SymOp) Inverse() SymOp {
	ri, ok := op.Rot.Inverse()
	if !ok {
		return SymOp{Rot: geom.M3{}, Trans: geom.NaN3()}
	}
	return SymOp{Rot: ri, Trans: ri.Transform(op.Trans).Scale(-1)}
}

// Then returns the operator applying op first and next second.
func (op SymOp) Then(next SymOp) SymOp {
	return SymOp{
		Rot:   next.Rot.Mul(op.Rot),
		Trans: next.Rot.Transform(op.Trans).Add(next.Trans),
	}
}

// Matrix returns the 4x4 affine form.
func (op SymOp) Matrix() geom.M4 {
	return geom.NewM4(op.Rot, op.Trans)
}

// Equivalent reports whether two operators differ only by a lattice
// translation.
func (op SymOp) Equivalent(o SymOp, tol float64) bool {
	return op.Rot.Near(o.Rot, tol) && isLattice(op.Trans.Sub(o.Trans), tol)
}

// Normalized reduces the translation into [0,1).
func (op SymOp) Normalized() SymOp {
	return SymOp{Rot: op.Rot, Trans: geom.P3{X: frac(op.Trans.X), Y: frac(op.Trans.Y), Z: frac(op.Trans.Z)}}
}

func frac(v float64) float64 {
	f := v - math.Floor(v)
	if f > 1-1e-9 {
		f = 0
	}
	return f
}

func isLattice(d geom.P3, tol float64) bool {
	for _, v := range []float64{d.X, d.Y, d.Z} {
		if math.Abs(v-math.Round(v)) > tol {
			return false
		}
	}
	return true
}

// String writes the triplet back in Jones–Faithful form.
func (op SymOp) String() string {
	rows := make([]string, 3)
	t := []float64{op.Trans.X, op.Trans.Y, op.Trans.Z}
	for r := 0; r < 3; r++ {
		var sb strings.Builder
		for v := 0; v < 3; v++ {
			k := op.Rot[r][v]
			if math.Abs(k) < 1e-9 {
				continue
			}
			switch {
			case math.Abs(k-1) < 1e-9:
				if sb.Len() > 0 {
					sb.WriteByte('+')
				}
			case math.Abs(k+1) < 1e-9:
				sb.WriteByte('-')
			default:
				if k > 0 && sb.Len() > 0 {
					sb.WriteByte('+')
				}
				sb.WriteString(FormatFraction(k))
			}
			sb.WriteByte("xyz"[v])
		}
		if math.Abs(t[r]) > 1e-9 {
			if t[r] > 0 && sb.Len() > 0 {
				sb.WriteByte('+')
			}
			sb.WriteString(FormatFraction(t[r]))
		}
		if sb.Len() == 0 {
			sb.WriteByte('0')
		}
		rows[r] = sb.String()
	}
	return strings.Join(rows, ",")
}

// FormatFraction writes v as n/d for the crystallographic denominators
// 2,3,4,6,8,12 and as a decimal otherwise.
func FormatFraction(v float64) string {
	if math.Abs(v-math.Round(v)) < 1e-9 {
		return strconv.Itoa(int(math.Round(v)))
	}
	for _, d := range []int{2, 3, 4, 6, 8, 12} {
		n := v * float64(d)
		if math.Abs(n-math.Round(n)) < 1e-6 {
			return strconv.Itoa(int(math.Round(n))) + "/" + strconv.Itoa(d)
		}
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
