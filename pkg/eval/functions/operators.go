package functions

import (
	"math"

	"github.com/openmol/molscript/pkg/eval"
	"github.com/openmol/molscript/pkg/geom"
	"github.com/openmol/molscript/pkg/value"
)

type arith int

const (
	opAdd arith = iota
	opSub
	opMul
	opDiv
	opMod
	opPow
)

var arithSymbols = [...]string{opAdd: "+", opSub: "-", opMul: "*", opDiv: "/", opMod: "%", opPow: "**"}

func registerOperators(ctx *eval.EvalContext) {
	for op, sym := range arithSymbols {
		op := arith(op)
		ctx.RegisterOperator(sym, func(ctx *eval.EvalContext, call eval.Call) (value.Value, error) {
			return binary(ctx, op, call.Args[0], call.Args[1])
		}, 2)
	}
	ctx.RegisterOperator("==", opEqual, 2)
	ctx.RegisterOperator("!=", opNotEqual, 2)
	ctx.RegisterOperator("<", relational(func(c int) bool { return c < 0 }), 2)
	ctx.RegisterOperator(">", relational(func(c int) bool { return c > 0 }), 2)
	ctx.RegisterOperator("<=", relational(func(c int) bool { return c <= 0 }), 2)
	ctx.RegisterOperator(">=", relational(func(c int) bool { return c >= 0 }), 2)
	ctx.RegisterOperator("!", opNot, 1)
	ctx.RegisterOperator("neg", opNeg, 1)
}

// --- Comparison ---

func opEqual(_ *eval.EvalContext, call eval.Call) (value.Value, error) {
	return value.Bool(value.Equal(call.Args[0], call.Args[1])), nil
}

func opNotEqual(_ *eval.EvalContext, call eval.Call) (value.Value, error) {
	return value.Bool(!value.Equal(call.Args[0], call.Args[1])), nil
}

// relational builds <, >, <= and >=. Pairs without an order are false.
func relational(test func(int) bool) eval.FnHandler {
	return func(_ *eval.EvalContext, call eval.Call) (value.Value, error) {
		c, ok := value.Compare(call.Args[0], call.Args[1])
		return value.Bool(ok && test(c)), nil
	}
}

func opNot(_ *eval.EvalContext, call eval.Call) (value.Value, error) {
	return value.Bool(!call.Args[0].AsBoolean()), nil
}

// opNeg negates numbers and points component-wise, inverts quaternions and
// negates matrices; lists negate element-wise.
func opNeg(_ *eval.EvalContext, call eval.Call) (value.Value, error) {
	return each(call.Args[0], func(v value.Value) (value.Value, error) {
		switch v.Kind() {
		case value.KindInteger, value.KindBoolean:
			return value.Int(-v.AsInt()), nil
		case value.KindPoint3:
			p, _ := v.Point3()
			return value.Point(p.Scale(-1)), nil
		case value.KindPoint4:
			q, _ := v.Quat()
			return value.Quaternion(q.Inv()), nil
		case value.KindMatrix3:
			m, _ := v.M3()
			return value.Matrix3(m.Scale(-1)), nil
		case value.KindString:
			return negNumber(v.ToNumber()), nil
		}
		return value.Double(-v.AsDouble()), nil
	})
}

func negNumber(n value.Value) value.Value {
	if n.Kind() == value.KindInteger {
		return value.Int(-n.AsInt())
	}
	return value.Double(-n.AsDouble())
}

// --- Arithmetic ---

// binary applies op with the full overloading ladder:
//
//	ALL against a list     fold the list with op (add ALL sums)
//	list against anything  element-wise, pairwise for two lists
//	set + set, set - set   union and difference
//	string + anything      concatenation
//	map + map              merged copy
//	points, quaternions and matrices as vectors and transforms
//	everything else        numeric, Integer while exact
func binary(ctx *eval.EvalContext, op arith, a, b value.Value) (value.Value, error) {
	switch {
	case b.IsAll() && isMulti(a):
		return fold(ctx, op, elements(a))
	case a.IsAll() && isMulti(b):
		return fold(ctx, op, elements(b))
	case a.Kind() == value.KindList || b.Kind() == value.KindList:
		return broadcast(ctx, op, a, b)
	}
	if v, ok := setArith(ctx, op, a, b); ok {
		return v, nil
	}
	if op == opAdd && a.Kind() == value.KindString {
		return value.String(a.AsString() + b.AsString()), nil
	}
	if op == opAdd && a.Kind() == value.KindMap && b.Kind() == value.KindMap {
		m, _ := a.DeepCopy().Map()
		n, _ := b.Map()
		n.Each(func(k string, v value.Value) { m.Set(k, v.DeepCopy()) })
		return value.FromMap(m), nil
	}
	if v, ok := vectorArith(op, a, b); ok {
		return v, nil
	}
	return numeric(op, a.ToNumber(), b.ToNumber()), nil
}

// fold reduces vs left to right with op. An empty list gives NaN.
func fold(ctx *eval.EvalContext, op arith, vs []value.Value) (value.Value, error) {
	if len(vs) == 0 {
		return nan(), nil
	}
	acc := vs[0]
	for _, v := range vs[1:] {
		r, err := binary(ctx, op, acc, v)
		if err != nil {
			return value.Nil(), err
		}
		acc = r
	}
	return acc, nil
}

// broadcast applies op element-wise. Two lists pair up to the shorter
// length; a list against a scalar applies the scalar to every element,
// keeping the operand order.
func broadcast(ctx *eval.EvalContext, op arith, a, b value.Value) (value.Value, error) {
	la, aList := a.List()
	lb, bList := b.List()
	var out []value.Value
	switch {
	case aList && bList:
		n := min(len(la), len(lb))
		out = make([]value.Value, n)
		for i := 0; i < n; i++ {
			r, err := binary(ctx, op, la[i], lb[i])
			if err != nil {
				return value.Nil(), err
			}
			out[i] = r
		}
	case aList:
		out = make([]value.Value, len(la))
		for i, e := range la {
			r, err := binary(ctx, op, e, b)
			if err != nil {
				return value.Nil(), err
			}
			out[i] = r
		}
	default:
		out = make([]value.Value, len(lb))
		for i, e := range lb {
			r, err := binary(ctx, op, a, e)
			if err != nil {
				return value.Nil(), err
			}
			out[i] = r
		}
	}
	return value.List(out...), nil
}

func setArith(ctx *eval.EvalContext, op arith, a, b value.Value) (value.Value, bool) {
	if a.Kind() != b.Kind() || (op != opAdd && op != opSub) {
		return value.Nil(), false
	}
	if a.Kind() != value.KindAtomSet && a.Kind() != value.KindBondSet {
		return value.Nil(), false
	}
	x, _ := a.BitSet()
	y, _ := b.BitSet()
	r := x.Copy()
	if op == opAdd {
		r.Or(y)
	} else {
		r.AndNot(y)
	}
	gen := a.Generation()
	if gen == 0 {
		gen = b.Generation()
	}
	if a.Kind() == value.KindAtomSet {
		return value.Atoms(r, gen), true
	}
	return value.Bonds(r, gen), true
}

// vectorArith covers the geometric overloads:
//
//	P3 ± P3, P3 * P3 (dot), P3 ** P3 (cross), P3 op number
//	Q * Q, Q / Q (relative rotation), Q * P3 (rotate), Q ± Q, Q * number
//	M * P3 (transform), M * M, M3 ± M3, M3 * number
func vectorArith(op arith, a, b value.Value) (value.Value, bool) {
	ka, kb := a.Kind(), b.Kind()
	num := func(v value.Value) bool { return v.Kind().IsNumeric() }
	switch {
	case ka == value.KindPoint3 && kb == value.KindPoint3:
		p, _ := a.Point3()
		q, _ := b.Point3()
		switch op {
		case opAdd:
			return value.Point(p.Add(q)), true
		case opSub:
			return value.Point(p.Sub(q)), true
		case opMul:
			return value.Double(p.Dot(q)), true
		case opDiv:
			return value.Point(geom.P3{X: p.X / q.X, Y: p.Y / q.Y, Z: p.Z / q.Z}), true
		case opPow:
			return value.Point(p.Cross(q)), true
		}
	case ka == value.KindPoint3 && num(b):
		p, _ := a.Point3()
		f := b.AsDouble()
		return value.Point(pointScalar(op, p, f, false)), true
	case num(a) && kb == value.KindPoint3:
		p, _ := b.Point3()
		f := a.AsDouble()
		return value.Point(pointScalar(op, p, f, true)), true
	case ka == value.KindPoint4 && kb == value.KindPoint4:
		p, _ := a.Quat()
		q, _ := b.Quat()
		switch op {
		case opMul:
			return value.Quaternion(p.Mul(q)), true
		case opDiv:
			return value.Quaternion(p.Div(q)), true
		case opAdd:
			x, _ := a.P4()
			y, _ := b.P4()
			return value.Point4(x.Add(y)), true
		case opSub:
			x, _ := a.P4()
			y, _ := b.P4()
			return value.Point4(x.Sub(y)), true
		}
	case ka == value.KindPoint4 && kb == value.KindPoint3 && op == opMul:
		q, _ := a.Quat()
		p, _ := b.Point3()
		return value.Point(q.Transform(p)), true
	case ka == value.KindPoint4 && num(b) && (op == opMul || op == opDiv):
		x, _ := a.P4()
		f := b.AsDouble()
		if op == opDiv {
			f = 1 / f
		}
		return value.Point4(x.Scale(f)), true
	case ka == value.KindMatrix3:
		m, _ := a.M3()
		switch {
		case kb == value.KindPoint3 && op == opMul:
			p, _ := b.Point3()
			return value.Point(m.Transform(p)), true
		case kb == value.KindMatrix3:
			n, _ := b.M3()
			switch op {
			case opMul:
				return value.Matrix3(m.Mul(n)), true
			case opAdd:
				return value.Matrix3(m.Add(n)), true
			case opSub:
				return value.Matrix3(m.Add(n.Scale(-1))), true
			}
		case num(b) && op == opMul:
			return value.Matrix3(m.Scale(b.AsDouble())), true
		case num(b) && op == opDiv:
			return value.Matrix3(m.Scale(1 / b.AsDouble())), true
		}
	case ka == value.KindMatrix4:
		m, _ := a.M4()
		switch {
		case kb == value.KindPoint3 && op == opMul:
			p, _ := b.Point3()
			return value.Point(m.Transform(p)), true
		case kb == value.KindMatrix4 && op == opMul:
			n, _ := b.M4()
			return value.Matrix4(m.Mul(n)), true
		}
	case ka == value.KindPoint3 && kb == value.KindMatrix3 && op == opMul:
		p, _ := a.Point3()
		m, _ := b.M3()
		return value.Point(m.Transpose().Transform(p)), true
	}
	return value.Nil(), false
}

// pointScalar applies op between each component of p and f. With flip the
// scalar is the left operand.
func pointScalar(op arith, p geom.P3, f float64, flip bool) geom.P3 {
	c := func(x float64) float64 {
		if flip {
			return floatOp(op, f, x)
		}
		return floatOp(op, x, f)
	}
	return geom.P3{X: c(p.X), Y: c(p.Y), Z: c(p.Z)}
}

// numeric combines two numbers. Integer operands stay Integer for +, -, *
// and %, for ** with a non-negative exponent, and for / when the division
// is exact.
func numeric(op arith, a, b value.Value) value.Value {
	if a.Kind() == value.KindInteger && b.Kind() == value.KindInteger {
		x, y := a.AsInt(), b.AsInt()
		switch op {
		case opAdd:
			return value.Int(x + y)
		case opSub:
			return value.Int(x - y)
		case opMul:
			return value.Int(x * y)
		case opMod:
			if y != 0 {
				return value.Int(x % y)
			}
		case opDiv:
			if y != 0 && x%y == 0 {
				return value.Int(x / y)
			}
		case opPow:
			if y >= 0 && y < 63 {
				r, ok := ipow(x, y)
				if ok {
					return value.Int(r)
				}
			}
		}
	}
	return value.Double(floatOp(op, a.AsDouble(), b.AsDouble()))
}

func floatOp(op arith, x, y float64) float64 {
	switch op {
	case opAdd:
		return x + y
	case opSub:
		return x - y
	case opMul:
		return x * y
	case opDiv:
		return x / y
	case opMod:
		return math.Mod(x, y)
	case opPow:
		return math.Pow(x, y)
	}
	return math.NaN()
}

// ipow is x**y with overflow detection.
func ipow(x, y int) (int, bool) {
	r := 1
	for i := 0; i < y; i++ {
		n := r * x
		if x != 0 && n/x != r {
			return 0, false
		}
		r = n
	}
	return r, true
}
