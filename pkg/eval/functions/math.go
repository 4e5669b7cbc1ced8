package functions

import (
	"math"

	"github.com/openmol/molscript/pkg/eval"
	"github.com/openmol/molscript/pkg/value"
)

var nanF = math.NaN()

const rad = math.Pi / 180

func registerMath(ctx *eval.EvalContext) {
	ctx.RegisterFunction("abs", fnAbs, 1, 1, 0)
	ctx.RegisterFunction("sqrt", unaryMath(math.Sqrt), 1, 1, 0)
	ctx.RegisterFunction("sin", unaryMath(func(x float64) float64 { return math.Sin(x * rad) }), 1, 1, 0)
	ctx.RegisterFunction("cos", unaryMath(func(x float64) float64 { return math.Cos(x * rad) }), 1, 1, 0)
	ctx.RegisterFunction("tan", unaryMath(func(x float64) float64 { return math.Tan(x * rad) }), 1, 1, 0)
	ctx.RegisterFunction("asin", unaryMath(func(x float64) float64 { return math.Asin(x) / rad }), 1, 1, 0)
	ctx.RegisterFunction("acos", unaryMath(func(x float64) float64 { return math.Acos(x) / rad }), 1, 1, 0)
	ctx.RegisterFunction("atan", fnAtan, 1, 2, 0)
}

// unaryMath lifts a float function over numbers and lists. Angles are in
// degrees.
func unaryMath(f func(float64) float64) eval.FnHandler {
	return func(_ *eval.EvalContext, call eval.Call) (value.Value, error) {
		return each(call.Args[0], func(v value.Value) (value.Value, error) {
			return value.Double(f(v.AsDouble())), nil
		})
	}
}

// abs(n) keeps integers integral; abs(point) is the vector length.
func fnAbs(_ *eval.EvalContext, call eval.Call) (value.Value, error) {
	return each(call.Args[0], func(v value.Value) (value.Value, error) {
		n := v
		if !v.Kind().IsNumeric() && v.Kind() != value.KindPoint3 && v.Kind() != value.KindPoint4 {
			n = v.ToNumber()
		}
		if n.Kind() == value.KindInteger || n.Kind() == value.KindBoolean {
			i := n.AsInt()
			if i < 0 {
				i = -i
			}
			return value.Int(i), nil
		}
		return value.Double(math.Abs(n.AsDouble())), nil
	})
}

// atan(x) or atan(y, x), in degrees.
func fnAtan(_ *eval.EvalContext, call eval.Call) (value.Value, error) {
	if call.N() == 2 {
		return value.Double(math.Atan2(call.Args[0].AsDouble(), call.Args[1].AsDouble()) / rad), nil
	}
	return each(call.Args[0], func(v value.Value) (value.Value, error) {
		return value.Double(math.Atan(v.AsDouble()) / rad), nil
	})
}
