package geom

import (
	"errors"
	"fmt"
	"math"

	"github.com/katalvlaran/lvlath/matrix"
)

// ErrPointCount is returned when the two point lists differ in length or
// are empty.
var ErrPointCount = errors.New("geom: superposition needs two equal, non-empty point lists")

const (
	eigenTolerance = 1e-12
	eigenMaxSweeps = 200
)

// Superpose finds the rigid transform that best maps from onto to in the
// least-squares sense (Horn's quaternion method: the rotation is the
// eigenvector of the largest eigenvalue of the 4x4 key matrix). It returns
// the affine transform, the rotation as a quaternion, and the RMSD of the
// transformed points.
func Superpose(from, to []P3) (M4, Quat, float64, error) {
	if len(from) == 0 || len(from) != len(to) {
		return M4{}, NaNQuat(), math.NaN(), ErrPointCount
	}
	ca, cb := Centroid(from), Centroid(to)
	var s M3
	for i := range from {
		a := from[i].Sub(ca)
		b := to[i].Sub(cb)
		av := [3]float64{a.X, a.Y, a.Z}
		bv := [3]float64{b.X, b.Y, b.Z}
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				s[r][c] += av[r] * bv[c]
			}
		}
	}
	sxx, sxy, sxz := s[0][0], s[0][1], s[0][2]
	syx, syy, syz := s[1][0], s[1][1], s[1][2]
	szx, szy, szz := s[2][0], s[2][1], s[2][2]
	key := [4][4]float64{
		{sxx + syy + szz, syz - szy, szx - sxz, sxy - syx},
		{syz - szy, sxx - syy - szz, sxy + syx, szx + sxz},
		{szx - sxz, sxy + syx, -sxx + syy - szz, syz + szy},
		{sxy - syx, szx + sxz, syz + szy, -sxx - syy + szz},
	}
	n, err := matrix.NewDense(4, 4)
	if err != nil {
		return M4{}, NaNQuat(), math.NaN(), fmt.Errorf("geom: superpose: %w", err)
	}
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if err := n.Set(i, j, key[i][j]); err != nil {
				return M4{}, NaNQuat(), math.NaN(), fmt.Errorf("geom: superpose: %w", err)
			}
		}
	}
	vals, vecs, err := matrix.Eigen(n, eigenTolerance, eigenMaxSweeps)
	if err != nil {
		return M4{}, NaNQuat(), math.NaN(), fmt.Errorf("geom: superpose: %w", err)
	}
	best := 0
	for i := 1; i < len(vals); i++ {
		if vals[i] > vals[best] {
			best = i
		}
	}
	var comp [4]float64
	for i := 0; i < 4; i++ {
		comp[i], err = vecs.At(i, best)
		if err != nil {
			return M4{}, NaNQuat(), math.NaN(), fmt.Errorf("geom: superpose: %w", err)
		}
	}
	q := Quat{W: comp[0], X: comp[1], Y: comp[2], Z: comp[3]}.Normalize().Canonical()
	if q.IsNaN() {
		q = IdentityQuat()
	}
	rot := q.Matrix()
	t := cb.Sub(rot.Transform(ca))
	m := NewM4(rot, t)
	return m, q, RMSD(m, from, to), nil
}

// RMSD is the root-mean-square distance between m(from[i]) and to[i].
func RMSD(m M4, from, to []P3) float64 {
	if len(from) == 0 || len(from) != len(to) {
		return math.NaN()
	}
	var sum float64
	for i := range from {
		d := m.Transform(from[i]).Sub(to[i])
		sum += d.Dot(d)
	}
	return math.Sqrt(sum / float64(len(from)))
}
