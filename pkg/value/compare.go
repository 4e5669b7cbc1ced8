package value

import (
	"bytes"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/openmol/molscript/pkg/geom"
)

// Equal is the script's == relation. It is reflexive (NaN equals NaN),
// symmetric, and consistent with HashKey. Numbers compare numerically,
// strings case-insensitively, a string against a number by parsing the
// string, and containers element by element.
func Equal(a, b Value) bool {
	if a.kind.IsNumeric() && b.kind.IsNumeric() {
		return numEqual(a, b)
	}
	if a.kind.IsNumeric() && b.kind == KindString {
		n, ok := ParseNumber(b.s)
		return ok && numEqual(a, n)
	}
	if a.kind == KindString && b.kind.IsNumeric() {
		return Equal(b, a)
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNil:
		return true
	case KindString, KindKeyword:
		return equalFold(a.s, b.s)
	case KindPoint3:
		p, q := a.ref.(geom.P3), b.ref.(geom.P3)
		return floatsEqual([]float64{p.X, p.Y, p.Z}, []float64{q.X, q.Y, q.Z})
	case KindPoint4:
		p, q := a.ref.(geom.P4), b.ref.(geom.P4)
		return floatsEqual([]float64{p.X, p.Y, p.Z, p.W}, []float64{q.X, q.Y, q.Z, q.W})
	case KindMatrix3:
		m, n := a.ref.(geom.M3), b.ref.(geom.M3)
		return floatsEqual(m[0][:], n[0][:]) && floatsEqual(m[1][:], n[1][:]) && floatsEqual(m[2][:], n[2][:])
	case KindMatrix4:
		m, n := a.ref.(geom.M4), b.ref.(geom.M4)
		for i := 0; i < 4; i++ {
			if !floatsEqual(m[i][:], n[i][:]) {
				return false
			}
		}
		return true
	case KindAtomSet, KindBondSet:
		return a.ref.(Set).Bits.Equals(b.ref.(Set).Bits)
	case KindList:
		x, y := a.ref.([]Value), b.ref.([]Value)
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case KindMap:
		x, y := a.ref.(*Map), b.ref.(*Map)
		if x.Len() != y.Len() {
			return false
		}
		for _, k := range x.keys {
			w, ok := y.Get(k)
			if !ok || !Equal(x.vals[k], w) {
				return false
			}
		}
		return true
	case KindBlob:
		return bytes.Equal(a.ref.([]byte), b.ref.([]byte))
	case KindPattern, KindSearchTarget:
		return a.ref.(Compiled).Source == b.ref.(Compiled).Source
	}
	return false
}

func numEqual(a, b Value) bool {
	if a.kind != KindDouble && b.kind != KindDouble {
		return a.i == b.i
	}
	return floatEqual(a.AsDouble(), b.AsDouble())
}

func floatEqual(x, y float64) bool {
	if math.IsNaN(x) || math.IsNaN(y) {
		return math.IsNaN(x) && math.IsNaN(y)
	}
	return x == y
}

func floatsEqual(x, y []float64) bool {
	for i := range x {
		if !floatEqual(x[i], y[i]) {
			return false
		}
	}
	return true
}

// HashKey returns a string such that Equal(a, b) implies
// HashKey(a) == HashKey(b). It keys maps used by pivot, count and in.
func HashKey(v Value) string {
	switch v.kind {
	case KindNil:
		return "z:"
	case KindBoolean, KindInteger, KindDouble:
		return numKey(v.AsDouble())
	case KindString:
		if n, ok := ParseNumber(v.s); ok {
			return numKey(n.AsDouble())
		}
		return "s:" + strings.ToLower(v.s)
	case KindKeyword:
		return "k:" + strings.ToLower(v.s)
	case KindPoint3:
		p := v.ref.(geom.P3)
		return floatsKey("p3", p.X, p.Y, p.Z)
	case KindPoint4:
		p := v.ref.(geom.P4)
		return floatsKey("p4", p.X, p.Y, p.Z, p.W)
	case KindMatrix3:
		m := v.ref.(geom.M3)
		return floatsKey("m3", append(append(m[0][:], m[1][:]...), m[2][:]...)...)
	case KindMatrix4:
		m := v.ref.(geom.M4)
		var fs []float64
		for i := 0; i < 4; i++ {
			fs = append(fs, m[i][:]...)
		}
		return floatsKey("m4", fs...)
	case KindAtomSet:
		return "a:" + v.ref.(Set).Bits.String()
	case KindBondSet:
		return "b:" + v.ref.(Set).Bits.String()
	case KindList:
		vs := v.ref.([]Value)
		parts := make([]string, len(vs))
		for i, e := range vs {
			parts[i] = HashKey(e)
		}
		return "l:[" + strings.Join(parts, ",") + "]"
	case KindMap:
		m := v.ref.(*Map)
		keys := m.Keys()
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = strconv.Quote(k) + "=" + HashKey(m.vals[k])
		}
		return "m:{" + strings.Join(parts, ",") + "}"
	case KindBlob:
		return "x:" + string(v.ref.([]byte))
	case KindPattern, KindSearchTarget:
		return v.kind.String() + ":" + v.ref.(Compiled).Source
	}
	return "?"
}

func floatsKey(prefix string, fs ...float64) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = numKey(f)
	}
	return prefix + ":" + strings.Join(parts, ",")
}

func numKey(f float64) string {
	if f == 0 {
		f = 0 // -0
	}
	return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
}

// Compare orders a and b for the relational operators. ok is false when the
// pair has no ordering, including any comparison involving NaN.
// Numbers compare numerically, strings lexically, a string against a number
// numerically, and points by length.
func Compare(a, b Value) (c int, ok bool) {
	switch {
	case a.kind == KindString && b.kind == KindString:
		return strings.Compare(a.s, b.s), true
	case a.kind.IsNumeric() && b.kind.IsNumeric() && a.kind != KindDouble && b.kind != KindDouble:
		return cmpInt(a.i, b.i), true
	}
	if !orderable(a) || !orderable(b) {
		return 0, false
	}
	x, y := a.AsDouble(), b.AsDouble()
	if math.IsNaN(x) || math.IsNaN(y) {
		return 0, false
	}
	switch {
	case x < y:
		return -1, true
	case x > y:
		return 1, true
	}
	return 0, true
}

func orderable(v Value) bool {
	switch v.kind {
	case KindBoolean, KindInteger, KindDouble, KindString, KindPoint3, KindPoint4:
		return true
	}
	return false
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// SortValues sorts vs in place: numbers before strings before everything
// else, each group in its natural order.
func SortValues(vs []Value) {
	rank := func(v Value) int {
		switch {
		case v.kind.IsNumeric():
			return 0
		case v.kind == KindString:
			return 1
		case orderable(v):
			return 2
		}
		return 3
	}
	sort.SliceStable(vs, func(i, j int) bool {
		ri, rj := rank(vs[i]), rank(vs[j])
		if ri != rj {
			return ri < rj
		}
		if ri == 0 {
			x, y := vs[i].AsDouble(), vs[j].AsDouble()
			if math.IsNaN(x) || math.IsNaN(y) {
				return !math.IsNaN(x) && math.IsNaN(y)
			}
			return x < y
		}
		c, ok := Compare(vs[i], vs[j])
		if !ok {
			return HashKey(vs[i]) < HashKey(vs[j])
		}
		return c < 0
	})
}
