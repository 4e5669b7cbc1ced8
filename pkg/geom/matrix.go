package geom

import (
	"math"
	"strings"
)

// M3 is a row-major 3x3 matrix.
type M3 [3][3]float64

// M4 is a row-major 4x4 matrix; affine transforms keep the translation in
// the last column.
type M4 [4][4]float64

// Identity3 returns the 3x3 identity.
func Identity3() M3 {
	return M3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// Identity4 returns the 4x4 identity.
func Identity4() M4 {
	return M4{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}, {0, 0, 0, 1}}
}

// Transform applies m to p.
func (m M3) Transform(p P3) P3 {
	return P3{
		m[0][0]*p.X + m[0][1]*p.Y + m[0][2]*p.Z,
		m[1][0]*p.X + m[1][1]*p.Y + m[1][2]*p.Z,
		m[2][0]*p.X + m[2][1]*p.Y + m[2][2]*p.Z,
	}
}

// Mul returns m·n.
func (m M3) Mul(n M3) M3 {
	var r M3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				r[i][j] += m[i][k] * n[k][j]
			}
		}
	}
	return r
}

// Add returns m+n.
func (m M3) Add(n M3) M3 {
	var r M3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = m[i][j] + n[i][j]
		}
	}
	return r
}

// Scale multiplies every element by f.
func (m M3) Scale(f float64) M3 {
	var r M3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = m[i][j] * f
		}
	}
	return r
}

// Transpose returns mᵀ.
func (m M3) Transpose() M3 {
	var r M3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = m[j][i]
		}
	}
	return r
}

// Determinant returns det(m).
func (m M3) Determinant() float64 {
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}

// Trace returns the sum of the diagonal.
func (m M3) Trace() float64 {
	return m[0][0] + m[1][1] + m[2][2]
}

// Inverse returns m⁻¹ and false when m is singular.
func (m M3) Inverse() (M3, bool) {
	det := m.Determinant()
	if math.Abs(det) < Epsilon {
		return M3{}, false
	}
	var r M3
	r[0][0] = (m[1][1]*m[2][2] - m[1][2]*m[2][1]) / det
	r[0][1] = (m[0][2]*m[2][1] - m[0][1]*m[2][2]) / det
	r[0][2] = (m[0][1]*m[1][2] - m[0][2]*m[1][1]) / det
	r[1][0] = (m[1][2]*m[2][0] - m[1][0]*m[2][2]) / det
	r[1][1] = (m[0][0]*m[2][2] - m[0][2]*m[2][0]) / det
	r[1][2] = (m[0][2]*m[1][0] - m[0][0]*m[1][2]) / det
	r[2][0] = (m[1][0]*m[2][1] - m[1][1]*m[2][0]) / det
	r[2][1] = (m[0][1]*m[2][0] - m[0][0]*m[2][1]) / det
	r[2][2] = (m[0][0]*m[1][1] - m[0][1]*m[1][0]) / det
	return r, true
}

// Near reports element-wise equality within tol.
func (m M3) Near(n M3, tol float64) bool {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(m[i][j]-n[i][j]) > tol {
				return false
			}
		}
	}
	return true
}

// Row returns row i as a point.
func (m M3) Row(i int) P3 { return P3{m[i][0], m[i][1], m[i][2]} }

// String renders [[a b c] [d e f] [g h i]].
func (m M3) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i := 0; i < 3; i++ {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteByte('[')
		for j := 0; j < 3; j++ {
			if j > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(FormatFloat(m[i][j]))
		}
		sb.WriteByte(']')
	}
	sb.WriteByte(']')
	return sb.String()
}

// NewM4 builds an affine transform from a rotation part and a translation.
func NewM4(r M3, t P3) M4 {
	return M4{
		{r[0][0], r[0][1], r[0][2], t.X},
		{r[1][0], r[1][1], r[1][2], t.Y},
		{r[2][0], r[2][1], r[2][2], t.Z},
		{0, 0, 0, 1},
	}
}

// Rotation returns the upper-left 3x3 block.
func (m M4) Rotation() M3 {
	return M3{
		{m[0][0], m[0][1], m[0][2]},
		{m[1][0], m[1][1], m[1][2]},
		{m[2][0], m[2][1], m[2][2]},
	}
}

// Translation returns the last column.
func (m M4) Translation() P3 {
	return P3{m[0][3], m[1][3], m[2][3]}
}

// Transform applies the affine transform to p.
func (m M4) Transform(p P3) P3 {
	return m.Rotation().Transform(p).Add(m.Translation())
}

// Mul returns m·n.
func (m M4) Mul(n M4) M4 {
	var r M4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			for k := 0; k < 4; k++ {
				r[i][j] += m[i][k] * n[k][j]
			}
		}
	}
	return r
}

// Transpose returns mᵀ.
func (m M4) Transpose() M4 {
	var r M4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			r[i][j] = m[j][i]
		}
	}
	return r
}

// Inverse inverts an affine transform. The bottom row is assumed to be
// 0 0 0 1; false is returned when the rotation block is singular.
func (m M4) Inverse() (M4, bool) {
	ri, ok := m.Rotation().Inverse()
	if !ok {
		return M4{}, false
	}
	t := ri.Transform(m.Translation()).Scale(-1)
	return NewM4(ri, t), true
}

// Near reports element-wise equality within tol.
func (m M4) Near(n M4, tol float64) bool {
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if math.Abs(m[i][j]-n[i][j]) > tol {
				return false
			}
		}
	}
	return true
}

// String renders [[...] [...] [...] [...]].
func (m M4) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i := 0; i < 4; i++ {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteByte('[')
		for j := 0; j < 4; j++ {
			if j > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(FormatFloat(m[i][j]))
		}
		sb.WriteByte(']')
	}
	sb.WriteByte(']')
	return sb.String()
}

// M3FromSlice fills a matrix row-major from nine values.
func M3FromSlice(v []float64) (M3, bool) {
	if len(v) != 9 {
		return M3{}, false
	}
	var m M3
	for i := 0; i < 9; i++ {
		m[i/3][i%3] = v[i]
	}
	return m, true
}

// M4FromSlice fills a matrix row-major from sixteen values.
func M4FromSlice(v []float64) (M4, bool) {
	if len(v) != 16 {
		return M4{}, false
	}
	var m M4
	for i := 0; i < 16; i++ {
		m[i/4][i%4] = v[i]
	}
	return m, true
}
