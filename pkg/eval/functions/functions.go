// Package functions holds every built-in expression function and operator.
// Handlers receive the receiver of x.f(a) as their first argument, so each
// one serves both the f(x, a) and the x.f(a) spelling.
package functions

import (
	"github.com/openmol/molscript/pkg/eval"
	"github.com/openmol/molscript/pkg/value"
)

// Arity shorthands for RegisterFunction.
const (
	anyArgs = -1
)

// RegisterAll installs every built-in function and operator in ctx.
func RegisterAll(ctx *eval.EvalContext) {
	registerOperators(ctx)
	registerMath(ctx)
	registerStats(ctx)
	registerLists(ctx)
	registerStrings(ctx)
	registerGeometry(ctx)
	registerAtoms(ctx)
	registerSymmetry(ctx)
	registerSubstructure(ctx)
}

// elements returns the members of a list-like value. Lists give their
// items; a string with more than one line is a pseudo-list whose lines are
// read as numbers or points where possible; anything else is a single
// element.
func elements(v value.Value) []value.Value {
	switch v.Kind() {
	case value.KindList:
		vs, _ := v.List()
		return vs
	case value.KindString:
		s, _ := v.Str()
		lines := value.Lines(s)
		if len(lines) < 2 {
			return []value.Value{v}
		}
		out := make([]value.Value, len(lines))
		for i, l := range lines {
			out[i] = value.ParseLiteral(l)
		}
		return out
	}
	return []value.Value{v}
}

// isMulti reports whether v is a list or a multi-line string.
func isMulti(v value.Value) bool {
	if v.Kind() == value.KindList {
		return true
	}
	if s, ok := v.Str(); ok && v.Kind() == value.KindString {
		return len(value.Lines(s)) > 1
	}
	return false
}

// each applies fn to every element of a list receiver, or to v itself.
func each(v value.Value, fn func(value.Value) (value.Value, error)) (value.Value, error) {
	if v.Kind() != value.KindList {
		return fn(v)
	}
	vs, _ := v.List()
	out := make([]value.Value, len(vs))
	for i, e := range vs {
		r, err := fn(e)
		if err != nil {
			return value.Nil(), err
		}
		out[i] = r
	}
	return value.List(out...), nil
}

func nan() value.Value { return value.Double(nanF) }
