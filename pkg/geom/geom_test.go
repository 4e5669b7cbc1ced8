package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

const tol = 1e-9

func TestPlaneThroughPointsContainsPoints(t *testing.T) {
	a, b, c := P3{1, 0, 0}, P3{0, 2, 0}, P3{0, 0, 3}
	pl := PlaneThroughPoints(a, b, c, nil)
	require.False(t, pl.IsNaN())
	for _, p := range []P3{a, b, c} {
		require.InDelta(t, 0, DistanceToPlane(pl, p), tol)
	}
	require.InDelta(t, 1, pl.XYZ().Length(), tol)
}

func TestPlaneThroughPointsReferenceOrientation(t *testing.T) {
	a, b, c := P3{0, 0, 0}, P3{1, 0, 0}, P3{0, 1, 0}
	up := P3{0, 0, 5}
	down := P3{0, 0, -5}
	require.Greater(t, DistanceToPlane(PlaneThroughPoints(a, b, c, &up), up), 0.0)
	require.Greater(t, DistanceToPlane(PlaneThroughPoints(a, b, c, &down), down), 0.0)

	// without a reference the winding is fixed by the cross product
	pl := PlaneThroughPoints(a, b, c, nil)
	require.InDelta(t, 1, pl.Z, tol)
}

func TestPlaneThroughCollinearPointsIsNaN(t *testing.T) {
	pl := PlaneThroughPoints(P3{0, 0, 0}, P3{1, 1, 1}, P3{2, 2, 2}, nil)
	require.True(t, pl.IsNaN())
}

func TestIntersectPlanes(t *testing.T) {
	xy := PlaneFromNormal(P3{0, 0, 1}, P3{0, 0, 1})
	xz := PlaneFromNormal(P3{0, 2, 0}, P3{0, 1, 0})
	pt, dir, ok := IntersectPlanes(xy, xz)
	require.True(t, ok)
	require.InDelta(t, 0, DistanceToPlane(xy, pt), tol)
	require.InDelta(t, 0, DistanceToPlane(xz, pt), tol)
	require.InDelta(t, 1, math.Abs(dir.X), tol)

	_, _, ok = IntersectPlanes(xy, PlaneFromNormal(P3{0, 0, 7}, P3{0, 0, 2}))
	require.False(t, ok)
}

func TestIntersectLinePlane(t *testing.T) {
	pl := PlaneFromNormal(P3{0, 0, 2}, P3{0, 0, 1})
	p, ok := IntersectLinePlane(P3{1, 1, 0}, P3{0, 0, 1}, pl)
	require.True(t, ok)
	require.True(t, p.Near(P3{1, 1, 2}, tol))

	_, ok = IntersectLinePlane(P3{1, 1, 0}, P3{1, 0, 0}, pl)
	require.False(t, ok)
}

func TestIntersectLineSphereCardinality(t *testing.T) {
	center := P3{1, 2, 3}
	r := 2.5

	through := IntersectLineSphere(center.Add(P3{-10, 0, 0}), P3{1, 0, 0}, center, r)
	require.Len(t, through, 2)
	for _, p := range through {
		require.InDelta(t, r, p.Distance(center), 1e-9)
	}

	tangent := IntersectLineSphere(center.Add(P3{-10, r, 0}), P3{1, 0, 0}, center, r)
	require.Len(t, tangent, 1)
	require.InDelta(t, r, tangent[0].Distance(center), 1e-6)

	miss := IntersectLineSphere(center.Add(P3{-10, r + 1, 0}), P3{1, 0, 0}, center, r)
	require.Empty(t, miss)
}

func TestAngles(t *testing.T) {
	require.InDelta(t, 90, Angle(P3{1, 0, 0}, P3{}, P3{0, 1, 0}), tol)
	require.InDelta(t, 180, Angle(P3{1, 0, 0}, P3{}, P3{-1, 0, 0}), tol)
	require.True(t, math.IsNaN(Angle(P3{}, P3{}, P3{1, 0, 0})))

	d := Dihedral(P3{1, 0, 0}, P3{0, 0, 0}, P3{0, 0, 1}, P3{0, 1, 1})
	require.InDelta(t, 90, math.Abs(d), 1e-9)
	d = Dihedral(P3{1, 0, 0}, P3{0, 0, 0}, P3{0, 0, 1}, P3{1, 0, 1})
	require.InDelta(t, 0, d, 1e-9)
}

func TestQuaternionAlgebra(t *testing.T) {
	q := QuatFromAxisAngle(P3{0, 0, 1}, 90)
	p := q.Transform(P3{1, 0, 0})
	require.True(t, p.Near(P3{0, 1, 0}, 1e-12))

	back := QuatFromMatrix(q.Matrix())
	require.True(t, back.SameRotation(q, 1e-12))

	r := QuatFromAxisAngle(P3{1, 0, 0}, 30)
	rel := q.Mul(r).Div(r)
	require.True(t, rel.SameRotation(q, 1e-12))

	require.InDelta(t, 90, q.Theta(), 1e-9)
	require.True(t, q.Axis().Near(P3{0, 0, 1}, 1e-12))
}

func TestSphereMeanOfCopiesIsIdempotent(t *testing.T) {
	q := QuatFromAxisAngle(P3{1, 2, 3}, 47)
	mean, sd := SphereMean([]Quat{q, q, q, q}, DefaultMeanTolerance, DefaultMeanIterations)
	require.InDelta(t, q.W, mean.W, 1e-12)
	require.InDelta(t, q.X, mean.X, 1e-12)
	require.InDelta(t, q.Y, mean.Y, 1e-12)
	require.InDelta(t, q.Z, mean.Z, 1e-12)
	require.InDelta(t, 0, sd, 1e-6)
}

func TestSphereMeanOfOppositeSigns(t *testing.T) {
	q := QuatFromAxisAngle(P3{0, 1, 0}, 60)
	mean, _ := SphereMean([]Quat{q, q.Negate()}, DefaultMeanTolerance, DefaultMeanIterations)
	require.False(t, mean.IsNaN())
	require.True(t, mean.SameRotation(q, 1e-9))
}

func TestSphereMeanSymmetricSpread(t *testing.T) {
	axis := P3{0, 0, 1}
	data := []Quat{
		QuatFromAxisAngle(axis, 10),
		QuatFromAxisAngle(axis, 20),
		QuatFromAxisAngle(axis, 30),
	}
	mean, sd := SphereMean(data, DefaultMeanTolerance, DefaultMeanIterations)
	require.InDelta(t, 20, mean.Theta(), 1e-4)
	require.InDelta(t, math.Sqrt(200.0/3), sd, 1e-3)

	empty, esd := SphereMean(nil, 0, 0)
	require.True(t, empty.IsNaN())
	require.True(t, math.IsNaN(esd))
}

func TestSuperposeRecoversRigidMotion(t *testing.T) {
	from := []P3{{0, 0, 0}, {1.5, 0, 0}, {0, 1.2, 0}, {0.3, 0.4, 2.0}}
	q := QuatFromAxisAngle(P3{1, 1, 0}, 40)
	shift := P3{3, -2, 5}
	to := make([]P3, len(from))
	for i, p := range from {
		to[i] = q.Transform(p).Add(shift)
	}
	m, rot, rmsd, err := Superpose(from, to)
	require.NoError(t, err)
	require.InDelta(t, 0, rmsd, 1e-6)
	require.True(t, rot.SameRotation(q, 1e-6))
	for i := range from {
		require.True(t, m.Transform(from[i]).Near(to[i], 1e-6))
	}

	_, _, _, err = Superpose(from, to[:2])
	require.ErrorIs(t, err, ErrPointCount)
}

func TestMatrixInverse(t *testing.T) {
	m := NewM4(QuatFromAxisAngle(P3{0, 1, 1}, 33).Matrix(), P3{1, 2, 3})
	inv, ok := m.Inverse()
	require.True(t, ok)
	require.True(t, m.Mul(inv).Near(Identity4(), 1e-12))

	_, ok = M3{}.Inverse()
	require.False(t, ok)
}

func TestParsePointAndFormat(t *testing.T) {
	v, ok := ParsePoint("{1 2.5, -3}")
	require.True(t, ok)
	require.Equal(t, []float64{1, 2.5, -3}, v)
	_, ok = ParsePoint("{1 2}")
	require.False(t, ok)

	require.Equal(t, "{1.0 2.5 -3.0}", P3{1, 2.5, -3}.String())
	require.Equal(t, "NaN", FormatFloat(math.NaN()))
}

func requireOutward(t *testing.T, pts []P3, faces [][3]int) {
	t.Helper()
	c := Centroid(pts)
	for _, f := range faces {
		a, b, d := pts[f[0]], pts[f[1]], pts[f[2]]
		n := b.Sub(a).Cross(d.Sub(a))
		mid := Centroid([]P3{a, b, d})
		require.Greater(t, n.Dot(mid.Sub(c)), 0.0, "face %v faces inward", f)
	}
}

func TestConvexFaces(t *testing.T) {
	tetra := []P3{{1, 1, 1}, {1, -1, -1}, {-1, 1, -1}, {-1, -1, 1}}
	faces := ConvexFaces(tetra)
	require.Len(t, faces, 4)
	requireOutward(t, tetra, faces)

	octa := []P3{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1}}
	faces = ConvexFaces(octa)
	require.Len(t, faces, 8)
	requireOutward(t, octa, faces)

	var cube []P3
	for _, x := range []float64{-1, 1} {
		for _, y := range []float64{-1, 1} {
			for _, z := range []float64{-1, 1} {
				cube = append(cube, P3{x, y, z})
			}
		}
	}
	faces = ConvexFaces(cube)
	require.Len(t, faces, 12)
	requireOutward(t, cube, faces)
}

func TestConvexFacesDegenerate(t *testing.T) {
	square := []P3{{1, 0, 0}, {0, 1, 0}, {-1, 0, 0}, {0, -1, 0}}
	require.Len(t, ConvexFaces(square), 2)
	require.Len(t, ConvexFaces(square[:3]), 1)
	require.Empty(t, ConvexFaces([]P3{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}}))
	require.Empty(t, ConvexFaces(square[:2]))
}
