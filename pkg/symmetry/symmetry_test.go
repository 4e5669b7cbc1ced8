package symmetry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openmol/molscript/pkg/geom"
)

func TestParseAndString(t *testing.T) {
	for _, s := range []string{"x,y,z", "-x,y+1/2,-z+1/2", "x-y,x,z+1/6", "-x+1/4,-y,z"} {
		op, err := Parse(s)
		require.NoError(t, err, s)
		back, err := Parse(op.String())
		require.NoError(t, err)
		require.True(t, back.Equivalent(op, 1e-9), "%s -> %s", s, op.String())
	}
	op := MustParse("1/2-y, x , 0.25+z")
	require.Equal(t, "-y+1/2,x,z+1/4", op.String())

	_, err := Parse("x,y")
	require.ErrorIs(t, err, ErrBadOperator)
	_, err = Parse("x,y,q")
	require.ErrorIs(t, err, ErrBadOperator)
}

func TestInverseAndThen(t *testing.T) {
	op := MustParse("-y+1/2,x-y,z+1/3")
	p := geom.P3{X: 0.1, Y: 0.27, Z: 0.8}
	require.True(t, op.Inverse().Apply(op.Apply(p)).Near(p, 1e-12))
	require.True(t, op.Then(op.Inverse()).Equivalent(Identity(), 1e-12))

	a, b := MustParse("-x,y+1/2,-z"), MustParse("x+1/2,-y,z")
	require.True(t, a.Then(b).Apply(p).Near(b.Apply(a.Apply(p)), 1e-12))
}

func TestDescribe(t *testing.T) {
	cases := map[string]string{
		"x,y,z":          "identity",
		"x+1/2,y,z":      "translation",
		"-x,-y,-z":       "inversion",
		"-x,y,-z":        "rotation",
		"-x,y+1/2,-z":    "screw",
		"x,-y,z":         "mirror",
		"x,-y+1/2,z+1/2": "glide",
		"y,-x,-z":        "rotoinversion",
	}
	for s, want := range cases {
		require.Equal(t, want, MustParse(s).Describe().Type, s)
	}
	in := MustParse("-x,y+1/2,-z+1/2").Describe()
	require.Equal(t, 2, in.Order)
	require.True(t, in.Axis.Near(geom.P3{Y: 1}, 1e-9))
	require.True(t, in.Intrinsic.Near(geom.P3{Y: 0.5}, 1e-9))
	require.InDelta(t, 0.25, in.Location.Z, 1e-9)
	require.Equal(t, "2-fold screw axis|translation: 0 1/2 0", in.Label())

	inv := MustParse("-x+1,-y,-z+1/2").Describe()
	require.True(t, inv.Location.Near(geom.P3{X: 0.5, Z: 0.25}, 1e-9))
}

func TestUnitCellRoundTrip(t *testing.T) {
	uc, err := NewUnitCell(5, 6, 7, 80, 95, 110)
	require.NoError(t, err)
	f := geom.P3{X: 0.3, Y: -0.2, Z: 1.4}
	require.True(t, uc.ToFractional(uc.ToCartesian(f)).Near(f, 1e-12))
	v := uc.Vectors()
	require.InDelta(t, 5, v[0].Length(), 1e-12)
	require.InDelta(t, 6, v[1].Length(), 1e-12)
	require.InDelta(t, 7, v[2].Length(), 1e-12)
	require.InDelta(t, 110, geom.VectorAngle(v[0], v[1]), 1e-9)

	_, err = NewUnitCell(0, 1, 1, 90, 90, 90)
	require.ErrorIs(t, err, ErrBadCell)
}

func TestMillerPlane(t *testing.T) {
	uc := Cubic(4)
	pl := uc.MillerPlane(1, 1, 0)
	require.InDelta(t, 0, geom.DistanceToPlane(pl, geom.P3{X: 4}), 1e-12)
	require.InDelta(t, 0, geom.DistanceToPlane(pl, geom.P3{Y: 4}), 1e-12)
	require.InDelta(t, 0, geom.DistanceToPlane(pl, geom.P3{Y: 4, Z: 2}), 1e-12)
	require.True(t, uc.MillerPlane(0, 0, 0).IsNaN())
}

func TestInvariantGeneralPosition(t *testing.T) {
	sg, ok := Lookup("P 21/c")
	require.True(t, ok)
	require.Equal(t, 14, sg.Number)
	require.Equal(t, []int{0}, sg.Invariant(geom.P3{X: 0.13, Y: 0.27, Z: 0.41}, 0))
	// the inversion center at the origin is fixed by x,y,z and -x,-y,-z
	require.Equal(t, []int{0, 2}, sg.Invariant(geom.P3{}, 0))
	require.Equal(t, []int{0, 2}, sg.Invariant(geom.P3{X: 1, Y: 0, Z: 1}, 0))
}

func TestWyckoff(t *testing.T) {
	sg, ok := Lookup("10")
	require.True(t, ok)
	cases := []struct {
		p      geom.P3
		letter string
	}{
		{geom.P3{}, "a"},
		{geom.P3{X: 0.5, Y: 0.5, Z: 0.5}, "h"},
		{geom.P3{X: 0, Y: 0.3, Z: 0}, "i"},
		{geom.P3{X: 0.2, Y: 0.5, Z: 0.7}, "n"},
		{geom.P3{X: 0.2, Y: 0, Z: 0.7}, "m"},
		{geom.P3{X: 0.2, Y: 0.1, Z: 0.7}, "o"},
		{geom.P3{X: 1, Y: 0.7, Z: -0.5}, "k"},
	}
	for _, c := range cases {
		w, ok := sg.WyckoffOf(c.p, 0)
		require.True(t, ok)
		require.Equal(t, c.letter, w.Letter, "%v", c.p)
	}

	p21c, _ := Lookup("P21/c")
	w, ok := p21c.WyckoffOf(geom.P3{X: 0.5, Y: 0.5, Z: 0}, 0)
	require.True(t, ok)
	require.Equal(t, "d", w.Letter)
}

func TestOrbit(t *testing.T) {
	sg, _ := Lookup("P212121")
	orbit := sg.Orbit(geom.P3{X: 0.1, Y: 0.2, Z: 0.3}, 0)
	require.Len(t, orbit, 4)
	for _, p := range orbit {
		require.True(t, p.X >= 0 && p.X < 1 && !math.IsNaN(p.X))
	}
	pbar1, _ := Lookup("p-1")
	require.Len(t, pbar1.Orbit(geom.P3{X: 0.5}, 0), 1)
}
