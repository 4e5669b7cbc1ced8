package functions

import (
	"fmt"
	"strings"

	"github.com/openmol/molscript/pkg/eval"
	"github.com/openmol/molscript/pkg/geom"
	"github.com/openmol/molscript/pkg/symmetry"
	"github.com/openmol/molscript/pkg/value"
)

func registerSymmetry(ctx *eval.EvalContext) {
	ctx.RegisterFunction("symop", fnSymop, 0, 4, 0)
	ctx.RegisterFunction("wyckoff", fnWyckoff, 0, 2, 0)
	ctx.RegisterFunction("spacegroup", fnSpacegroup, 0, 1, 0)
}

// Points given to the symmetry functions are Cartesian when the model has
// a unit cell and fractional otherwise.
func toFrac(ctx *eval.EvalContext, p geom.P3) geom.P3 {
	if ctx.Model != nil {
		if uc := ctx.Model.UnitCell(); uc != nil {
			return uc.ToFractional(p)
		}
	}
	return p
}

func toCart(ctx *eval.EvalContext, p geom.P3) geom.P3 {
	if ctx.Model != nil {
		if uc := ctx.Model.UnitCell(); uc != nil {
			return uc.ToCartesian(p)
		}
	}
	return p
}

func spaceGroup(ctx *eval.EvalContext, fn string) (*symmetry.SpaceGroup, error) {
	m, err := ctx.RequireModel(fn)
	if err != nil {
		return nil, err
	}
	sg := m.SpaceGroup()
	if sg == nil {
		return nil, eval.InvalidArg(fn, "model has no space group")
	}
	return sg, nil
}

// operator resolves an operator reference: a 1-based index into the
// model's space group (negative for the inverse) or Jones–Faithful text.
func operator(ctx *eval.EvalContext, fn string, v value.Value) (symmetry.SymOp, int, error) {
	if v.Kind() == value.KindString {
		op, err := symmetry.Parse(v.AsString())
		if err != nil {
			return op, 0, eval.External(fn, err)
		}
		n := 0
		if ctx.Model != nil {
			if sg := ctx.Model.SpaceGroup(); sg != nil {
				n = sg.IndexOf(op) + 1
			}
		}
		return op, n, nil
	}
	sg, err := spaceGroup(ctx, fn)
	if err != nil {
		return symmetry.SymOp{}, 0, err
	}
	n := v.AsInt()
	inverse := n < 0
	if inverse {
		n = -n
	}
	op, ok := sg.Operator(n)
	if !ok {
		return op, 0, eval.InvalidArg(fn, "%s has no operator %d (1-%d)", sg.Name, n, len(sg.Ops))
	}
	if inverse {
		op = op.Inverse()
	}
	return op, n, nil
}

func isPointText(v value.Value) bool {
	if v.Kind() != value.KindString {
		return false
	}
	c, ok := geom.ParsePoint(v.AsString())
	return ok && len(c) == 3
}

func isPointArg(v value.Value) bool {
	return v.Kind() == value.KindPoint3 || eval.IsSet(v) || isPointText(v)
}

// symop has these forms:
//
//	symop()                          Jones–Faithful text of every operator
//	symop(op)                        4x4 fractional matrix of op
//	symop(op, selector)              one fact about op (see opInfo)
//	symop(op, pt|set[, offset])      pt transformed by op, plus a lattice
//	                                 offset; a set gives a point per atom
//	symop(pt, "invariant")           1-based indices of operators fixing pt
//	symop(pt, "equivalent")          the distinct images of pt in the cell
//
// op is a 1-based operator index in the model's space group, negative for
// the inverse, or Jones–Faithful text such as "x,1/2-y,z".
func fnSymop(ctx *eval.EvalContext, call eval.Call) (value.Value, error) {
	if call.N() == 0 {
		sg, err := spaceGroup(ctx, call.Name)
		if err != nil {
			return value.Nil(), err
		}
		out := make([]string, len(sg.Ops))
		for i, op := range sg.Ops {
			out[i] = op.String()
		}
		return value.Strings(out), nil
	}
	first := call.Args[0]
	if isPointArg(first) && call.N() == 2 && call.Args[1].Kind() == value.KindString {
		return pointQuery(ctx, call, first, strings.ToLower(call.Args[1].AsString()))
	}
	op, n, err := operator(ctx, call.Name, first)
	if err != nil {
		return value.Nil(), err
	}
	var pt value.Value
	var selector string
	var offset geom.P3
	for _, a := range call.Args[1:] {
		switch {
		case a.Kind() == value.KindString && !isPointText(a):
			selector = strings.ToLower(a.AsString())
		case pt.IsNil():
			pt = a
		default:
			o, ok := a.Point3()
			if !ok {
				return value.Nil(), call.Errorf("lattice offset must be a point, got %s", a.Kind())
			}
			offset = o
		}
	}
	if selector != "" && selector != "point" {
		return opInfo(ctx, call, op, n, selector)
	}
	if pt.IsNil() {
		return value.Matrix4(op.Matrix()), nil
	}
	apply := func(p geom.P3) value.Value {
		return value.Point(toCart(ctx, op.ApplyWithOffset(toFrac(ctx, p), offset)))
	}
	if eval.IsSet(pt) {
		pts, _, err := ctx.AtomPoints(call.Name, pt)
		if err != nil {
			return value.Nil(), err
		}
		if len(pts) == 1 {
			return apply(pts[0]), nil
		}
		out := make([]value.Value, len(pts))
		for i, p := range pts {
			out[i] = apply(p)
		}
		return value.List(out...), nil
	}
	p, err := ctx.PtValue(call.Name, pt, nil)
	if err != nil {
		return value.Nil(), err
	}
	return apply(p), nil
}

func pointQuery(ctx *eval.EvalContext, call eval.Call, v value.Value, selector string) (value.Value, error) {
	sg, err := spaceGroup(ctx, call.Name)
	if err != nil {
		return value.Nil(), err
	}
	p, err := ctx.PtValue(call.Name, v, nil)
	if err != nil {
		return value.Nil(), err
	}
	f := toFrac(ctx, p)
	tol := ctx.Settings.InvariantTolerance
	switch selector {
	case "invariant":
		idx := sg.Invariant(f, tol)
		for i := range idx {
			idx[i]++
		}
		return value.Ints(idx), nil
	case "equivalent":
		orbit := sg.Orbit(f, tol)
		out := make([]value.Value, len(orbit))
		for i, q := range orbit {
			out[i] = value.Point(toCart(ctx, q))
		}
		return value.List(out...), nil
	}
	return value.Nil(), call.Errorf("unknown point query %q", selector)
}

// opInfo answers one selector about an operator:
//
//	xyz          Jones–Faithful text
//	matrix       4x4 fractional matrix
//	cartesian    4x4 Cartesian matrix (needs a unit cell)
//	rotation     3x3 rotational part
//	translation  translation part
//	intrinsic    screw or glide component
//	axis         rotation axis or mirror normal
//	location     a point on the element, Cartesian when there is a cell
//	type         identity, rotation, screw, mirror, glide, ...
//	order        order of the rotation
//	label        short description
//	index        1-based index in the space group, 0 when absent
//	all          a map of every selector above
func opInfo(ctx *eval.EvalContext, call eval.Call, op symmetry.SymOp, n int, selector string) (value.Value, error) {
	in := op.Describe()
	get := func(sel string) (value.Value, error) {
		switch sel {
		case "xyz":
			return value.String(op.String()), nil
		case "matrix":
			return value.Matrix4(op.Matrix()), nil
		case "cartesian":
			uc, err := unitCell(ctx, call.Name)
			if err != nil {
				return value.Nil(), err
			}
			return value.Matrix4(uc.CartesianOp(op)), nil
		case "rotation":
			return value.Matrix3(op.Rot), nil
		case "translation":
			return value.Point(op.Trans), nil
		case "intrinsic":
			return value.Point(in.Intrinsic), nil
		case "axis":
			return value.Point(in.Axis), nil
		case "location":
			return value.Point(toCart(ctx, in.Location)), nil
		case "type":
			return value.String(in.Type), nil
		case "order":
			return value.Int(in.Order), nil
		case "label":
			return value.String(in.Label()), nil
		case "index":
			return value.Int(n), nil
		}
		return value.Nil(), call.Errorf("unknown selector %q", sel)
	}
	if selector != "all" {
		return get(selector)
	}
	out := value.NewMap()
	for _, sel := range []string{"xyz", "matrix", "rotation", "translation", "intrinsic", "axis", "location", "type", "order", "label", "index"} {
		v, err := get(sel)
		if err != nil {
			return value.Nil(), err
		}
		out.Set(sel, v)
	}
	return value.FromMap(out), nil
}

// wyckoff() lists the positions of the model's space group as maps;
// wyckoff(pt) is the letter of the most special position containing pt;
// wyckoff(pt, "all") that position as a map. A point matching no listed
// position gives Nil.
func fnWyckoff(ctx *eval.EvalContext, call eval.Call) (value.Value, error) {
	sg, err := spaceGroup(ctx, call.Name)
	if err != nil {
		return value.Nil(), err
	}
	if call.N() == 0 {
		out := make([]value.Value, len(sg.Wyckoff))
		for i, w := range sg.Wyckoff {
			out[i] = wyckoffMap(w)
		}
		return value.List(out...), nil
	}
	p, err := ctx.PtValue(call.Name, call.Args[0], nil)
	if err != nil {
		return value.Nil(), err
	}
	w, ok := sg.WyckoffOf(toFrac(ctx, p), ctx.Settings.InvariantTolerance)
	if !ok {
		return value.Nil(), nil
	}
	if all := call.Arg(1); all.IsAll() || strings.EqualFold(all.AsString(), "all") {
		return wyckoffMap(w), nil
	}
	return value.String(w.Letter), nil
}

func wyckoffMap(w symmetry.Wyckoff) value.Value {
	m := value.NewMap()
	m.Set("letter", value.String(w.Letter))
	m.Set("multiplicity", value.Int(w.Multiplicity))
	m.Set("coord", value.String(w.Coord))
	m.Set("symmetry", value.String(w.Symmetry))
	return value.FromMap(m)
}

// spacegroup() describes the model's space group, Nil when it has none;
// spacegroup(name) looks a group up by symbol or number; spacegroup(ALL)
// lists the known symbols.
func fnSpacegroup(ctx *eval.EvalContext, call eval.Call) (value.Value, error) {
	if call.N() == 0 {
		if ctx.Model == nil || ctx.Model.SpaceGroup() == nil {
			return value.Nil(), nil
		}
		return groupMap(ctx.Model.SpaceGroup()), nil
	}
	if call.Args[0].IsAll() {
		return value.Strings(symmetry.Names()), nil
	}
	name := call.Args[0].AsString()
	sg, ok := symmetry.Lookup(name)
	if !ok {
		return value.Nil(), eval.External(call.Name, fmt.Errorf("%w: %q", symmetry.ErrUnknownGroup, name))
	}
	return groupMap(sg), nil
}

func groupMap(sg *symmetry.SpaceGroup) value.Value {
	m := value.NewMap()
	m.Set("name", value.String(sg.Name))
	m.Set("number", value.Int(sg.Number))
	ops := make([]string, len(sg.Ops))
	for i, op := range sg.Ops {
		ops[i] = op.String()
	}
	m.Set("operators", value.Strings(ops))
	letters := make([]string, len(sg.Wyckoff))
	for i, w := range sg.Wyckoff {
		letters[i] = w.Letter
	}
	m.Set("wyckoff", value.Strings(letters))
	return value.FromMap(m)
}
