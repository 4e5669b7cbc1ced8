package functions

import (
	"github.com/openmol/molscript/pkg/eval"
	"github.com/openmol/molscript/pkg/geom"
	"github.com/openmol/molscript/pkg/symmetry"
	"github.com/openmol/molscript/pkg/value"
)

func registerGeometry(ctx *eval.EvalContext) {
	ctx.RegisterFunction("point", fnPoint, 1, 4, 0)
	ctx.RegisterFunction("distance", fnDistance, 2, 2, 0)
	ctx.RegisterFunction("angle", fnAngle, 1, 4, 0)
	ctx.RegisterFunction("plane", fnPlane, 1, 4, 0)
	ctx.RegisterFunction("hkl", fnHkl, 3, 3, 0)
	ctx.RegisterFunction("intersection", fnIntersection, 2, 4, 0)
	ctx.RegisterFunction("cross", fnCross, 2, 2, 0)
	ctx.RegisterFunction("dot", fnDot, 2, 2, 0)
	ctx.RegisterFunction("quaternion", fnQuaternion, 0, 4, 0)
	ctx.RegisterFunction("matrix", fnMatrix, 0, 2, 0)
	ctx.RegisterFunction("fractional", cellMap(false), 1, 1, 0)
	ctx.RegisterFunction("cartesian", cellMap(true), 1, 1, 0)
}

// point(x, y, z) and point(x, y, z, w) build points. point(v) converts:
// points pass, "{x y z}" strings and lists of three or four numbers are
// read, and atom sets give their centroid.
func fnPoint(ctx *eval.EvalContext, call eval.Call) (value.Value, error) {
	switch call.N() {
	case 3:
		return value.Point(geom.P3{X: call.Args[0].AsDouble(), Y: call.Args[1].AsDouble(), Z: call.Args[2].AsDouble()}), nil
	case 4:
		return value.Point4(geom.P4{X: call.Args[0].AsDouble(), Y: call.Args[1].AsDouble(), Z: call.Args[2].AsDouble(), W: call.Args[3].AsDouble()}), nil
	case 2:
		return value.Nil(), call.Errorf("expects 1, 3 or 4 arguments but got 2")
	}
	v := call.Args[0]
	switch v.Kind() {
	case value.KindPoint3, value.KindPoint4:
		return v, nil
	case value.KindString:
		if c, ok := geom.ParsePoint(v.AsString()); ok {
			return pointOf(c), nil
		}
	case value.KindList:
		vs, _ := v.List()
		if len(vs) == 3 || len(vs) == 4 {
			c := make([]float64, len(vs))
			for i, e := range vs {
				c[i] = e.AsDouble()
			}
			return pointOf(c), nil
		}
	}
	p, err := ctx.PtValue(call.Name, v, nil)
	if err != nil {
		return value.Nil(), err
	}
	return value.Point(p), nil
}

func pointOf(c []float64) value.Value {
	if len(c) == 4 {
		return value.Point4(geom.P4{X: c[0], Y: c[1], Z: c[2], W: c[3]})
	}
	return value.Point(geom.P3{X: c[0], Y: c[1], Z: c[2]})
}

// distance(a, b) between two points or atom-set centroids; with a plane
// on either side it is the signed distance from the plane.
func fnDistance(ctx *eval.EvalContext, call eval.Call) (value.Value, error) {
	a, b := call.Args[0], call.Args[1]
	if b.Kind() == value.KindPoint4 && a.Kind() != value.KindPoint4 {
		a, b = b, a
	}
	if a.Kind() == value.KindPoint4 && b.Kind() != value.KindPoint4 {
		pl, _ := a.P4()
		p, err := ctx.PtValue(call.Name, b, nil)
		if err != nil {
			return value.Nil(), err
		}
		return value.Double(geom.DistanceToPlane(pl, p)), nil
	}
	p, q, err := twoPoints(ctx, call.Name, a, b)
	if err != nil {
		return value.Nil(), err
	}
	return value.Double(p.Distance(q)), nil
}

func twoPoints(ctx *eval.EvalContext, fn string, a, b value.Value) (geom.P3, geom.P3, error) {
	p, err := ctx.PtValue(fn, a, nil)
	if err != nil {
		return p, p, err
	}
	q, err := ctx.PtValue(fn, b, nil)
	return p, q, err
}

// angle(q) is the rotation angle of a quaternion; angle(u, v) the angle
// between two vectors; angle(a, b, c) the angle at b; angle(a, b, c, d)
// the dihedral. All in degrees; degenerate input gives NaN.
func fnAngle(ctx *eval.EvalContext, call eval.Call) (value.Value, error) {
	if call.N() == 1 {
		q, ok := call.Args[0].Quat()
		if !ok {
			return value.Nil(), call.Errorf("angle of one value needs a quaternion")
		}
		return value.Double(q.Theta()), nil
	}
	pts := make([]geom.P3, call.N())
	for i, v := range call.Args {
		p, err := ctx.PtValue(call.Name, v, nil)
		if err != nil {
			return value.Nil(), err
		}
		pts[i] = p
	}
	switch len(pts) {
	case 2:
		return value.Double(geom.VectorAngle(pts[0], pts[1])), nil
	case 3:
		return value.Double(geom.Angle(pts[0], pts[1], pts[2])), nil
	}
	return value.Double(geom.Dihedral(pts[0], pts[1], pts[2], pts[3])), nil
}

// plane(a, b, c[, ref]) passes through three points, its normal flipped
// toward ref when given; plane(a, b) is the perpendicular bisector of ab;
// plane("{a b c d}") and plane(P4) normalize a plane written out.
// Collinear or coincident points give a NaN plane.
func fnPlane(ctx *eval.EvalContext, call eval.Call) (value.Value, error) {
	switch call.N() {
	case 1:
		v := call.Args[0]
		if v.Kind() == value.KindString {
			if c, ok := geom.ParsePoint(v.AsString()); ok && len(c) == 4 {
				v = value.Point4(geom.P4{X: c[0], Y: c[1], Z: c[2], W: c[3]})
			}
		}
		pl, ok := v.P4()
		if !ok {
			return value.Nil(), call.Errorf("needs a plane, got %s", v.Kind())
		}
		return value.Point4(geom.NormalizePlane(pl)), nil
	case 2:
		a, b, err := twoPoints(ctx, call.Name, call.Args[0], call.Args[1])
		if err != nil {
			return value.Nil(), err
		}
		mid := a.Add(b).Scale(0.5)
		return value.Point4(geom.PlaneFromNormal(mid, b.Sub(a))), nil
	}
	pts := make([]geom.P3, call.N())
	for i, v := range call.Args {
		p, err := ctx.PtValue(call.Name, v, nil)
		if err != nil {
			return value.Nil(), err
		}
		pts[i] = p
	}
	var ref *geom.P3
	if len(pts) == 4 {
		ref = &pts[3]
	}
	return value.Point4(geom.PlaneThroughPoints(pts[0], pts[1], pts[2], ref)), nil
}

// hkl(h, k, l) is the Miller plane of the model's unit cell.
func fnHkl(ctx *eval.EvalContext, call eval.Call) (value.Value, error) {
	uc, err := unitCell(ctx, call.Name)
	if err != nil {
		return value.Nil(), err
	}
	return value.Point4(uc.MillerPlane(call.Args[0].AsDouble(), call.Args[1].AsDouble(), call.Args[2].AsDouble())), nil
}

func unitCell(ctx *eval.EvalContext, fn string) (*symmetry.UnitCell, error) {
	m, err := ctx.RequireModel(fn)
	if err != nil {
		return nil, err
	}
	uc := m.UnitCell()
	if uc == nil {
		return nil, eval.InvalidArg(fn, "model has no unit cell")
	}
	return uc, nil
}

// intersection has three forms:
//
//	(plane, plane)                  [point, direction] of the shared line
//	(point, direction, plane)       the point where the line meets the plane
//	(point, direction, center, r)   the 0, 1 or 2 points on the sphere
//
// Parallel planes and a line parallel to the plane give an empty list.
func fnIntersection(ctx *eval.EvalContext, call eval.Call) (value.Value, error) {
	if call.N() == 2 {
		p1, ok1 := call.Args[0].P4()
		p2, ok2 := call.Args[1].P4()
		if !ok1 || !ok2 {
			return value.Nil(), call.Errorf("two arguments must be planes")
		}
		pt, dir, ok := geom.IntersectPlanes(geom.NormalizePlane(p1), geom.NormalizePlane(p2))
		if !ok {
			return value.List(), nil
		}
		return value.List(value.Point(pt), value.Point(dir)), nil
	}
	pt, err := ctx.PtValue(call.Name, call.Args[0], nil)
	if err != nil {
		return value.Nil(), err
	}
	dir, ok := call.Args[1].Point3()
	if !ok {
		return value.Nil(), call.Errorf("line direction must be a point, got %s", call.Args[1].Kind())
	}
	if call.N() == 3 {
		pl, ok := call.Args[2].P4()
		if !ok {
			return value.Nil(), call.Errorf("third argument must be a plane")
		}
		x, ok := geom.IntersectLinePlane(pt, dir, geom.NormalizePlane(pl))
		if !ok {
			return value.List(), nil
		}
		return value.Point(x), nil
	}
	center, err := ctx.PtValue(call.Name, call.Args[2], nil)
	if err != nil {
		return value.Nil(), err
	}
	hits := geom.IntersectLineSphere(pt, dir, center, call.Args[3].AsDouble())
	out := make([]value.Value, len(hits))
	for i, h := range hits {
		out[i] = value.Point(h)
	}
	return value.List(out...), nil
}

func fnCross(ctx *eval.EvalContext, call eval.Call) (value.Value, error) {
	a, b, err := twoPoints(ctx, call.Name, call.Args[0], call.Args[1])
	if err != nil {
		return value.Nil(), err
	}
	return value.Point(a.Cross(b)), nil
}

func fnDot(ctx *eval.EvalContext, call eval.Call) (value.Value, error) {
	if p, ok := call.Args[0].P4(); ok {
		if q, ok := call.Args[1].P4(); ok {
			return value.Double(p.Dot(q)), nil
		}
	}
	a, b, err := twoPoints(ctx, call.Name, call.Args[0], call.Args[1])
	if err != nil {
		return value.Nil(), err
	}
	return value.Double(a.Dot(b)), nil
}

// quaternion builds rotations:
//
//	()                 identity
//	(q)                q normalized; also "{x y z w}" text
//	(m)                from a 3x3 rotation matrix
//	(axis, degrees)    axis-angle
//	(set1, set2)       best-fit rotation taking set1 onto set2
//	(w, x, y, z)       components, scalar first
func fnQuaternion(ctx *eval.EvalContext, call eval.Call) (value.Value, error) {
	switch call.N() {
	case 0:
		return value.Quaternion(geom.IdentityQuat()), nil
	case 1:
		v := call.Args[0]
		if m, ok := v.M3(); ok {
			return value.Quaternion(geom.QuatFromMatrix(m)), nil
		}
		if v.Kind() == value.KindString {
			if c, ok := geom.ParsePoint(v.AsString()); ok && len(c) == 4 {
				v = pointOf(c)
			}
		}
		q, ok := v.Quat()
		if !ok {
			return value.Nil(), call.Errorf("cannot make a quaternion from %s", v.Kind())
		}
		return value.Quaternion(q.Normalize()), nil
	case 2:
		if eval.IsSet(call.Args[0]) && eval.IsSet(call.Args[1]) {
			fit, err := superpose(ctx, call.Name, call.Args[0], call.Args[1])
			if err != nil {
				return value.Nil(), err
			}
			return value.Quaternion(fit.rot), nil
		}
		axis, ok := call.Args[0].Point3()
		if !ok {
			return value.Nil(), call.Errorf("axis must be a point")
		}
		return value.Quaternion(geom.QuatFromAxisAngle(axis, call.Args[1].AsDouble())), nil
	case 4:
		q := geom.Quat{W: call.Args[0].AsDouble(), X: call.Args[1].AsDouble(), Y: call.Args[2].AsDouble(), Z: call.Args[3].AsDouble()}
		return value.Quaternion(q.Normalize()), nil
	}
	return value.Nil(), call.Errorf("expects 0, 1, 2 or 4 arguments but got %d", call.N())
}

// matrix builds matrices:
//
//	()               4x4 identity
//	(q)              rotation matrix of a quaternion
//	(list)           9 or 16 numbers row-major, or three rows of three
//	("x,y,z op")     4x4 matrix of a symmetry operator
//	(m3, t)          4x4 from rotation and translation
//	(set1, set2)     best-fit 4x4 transform taking set1 onto set2
func fnMatrix(ctx *eval.EvalContext, call eval.Call) (value.Value, error) {
	switch call.N() {
	case 0:
		return value.Matrix4(geom.Identity4()), nil
	case 2:
		if eval.IsSet(call.Args[0]) && eval.IsSet(call.Args[1]) {
			fit, err := superpose(ctx, call.Name, call.Args[0], call.Args[1])
			if err != nil {
				return value.Nil(), err
			}
			return value.Matrix4(fit.m), nil
		}
		r, ok1 := call.Args[0].M3()
		t, ok2 := call.Args[1].Point3()
		if !ok1 || !ok2 {
			return value.Nil(), call.Errorf("needs a 3x3 matrix and a translation")
		}
		return value.Matrix4(geom.NewM4(r, t)), nil
	}
	v := call.Args[0]
	switch v.Kind() {
	case value.KindMatrix3, value.KindMatrix4:
		return v, nil
	case value.KindPoint4:
		q, _ := v.Quat()
		return value.Matrix3(q.Matrix()), nil
	case value.KindString:
		op, err := symmetry.Parse(v.AsString())
		if err != nil {
			return value.Nil(), eval.External(call.Name, err)
		}
		return value.Matrix4(op.Matrix()), nil
	case value.KindList:
		vs, _ := v.List()
		var fs []float64
		for _, e := range vs {
			if row, ok := e.List(); ok {
				for _, x := range row {
					fs = append(fs, x.AsDouble())
				}
				continue
			}
			fs = append(fs, e.AsDouble())
		}
		if m, ok := geom.M3FromSlice(fs); ok {
			return value.Matrix3(m), nil
		}
		if m, ok := geom.M4FromSlice(fs); ok {
			return value.Matrix4(m), nil
		}
		return value.Nil(), call.Errorf("needs 9 or 16 numbers, got %d", len(fs))
	}
	return value.Nil(), call.Errorf("cannot make a matrix from %s", v.Kind())
}

// cellMap builds fractional(pt) and cartesian(pt) over the model's unit
// cell. Lists convert element by element.
func cellMap(toCartesian bool) eval.FnHandler {
	return func(ctx *eval.EvalContext, call eval.Call) (value.Value, error) {
		uc, err := unitCell(ctx, call.Name)
		if err != nil {
			return value.Nil(), err
		}
		return each(call.Args[0], func(v value.Value) (value.Value, error) {
			p, err := ctx.PtValue(call.Name, v, nil)
			if err != nil {
				return value.Nil(), err
			}
			if toCartesian {
				return value.Point(uc.ToCartesian(p)), nil
			}
			return value.Point(uc.ToFractional(p)), nil
		})
	}
}
