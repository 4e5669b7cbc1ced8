package value

import (
	"math"
	"testing"

	"github.com/openmol/molscript/pkg/bitset"
	"github.com/openmol/molscript/pkg/geom"
)

func TestAsString(t *testing.T) {
	m := NewMap()
	m.Set("b", Int(2))
	m.Set("a", String("x\"y"))
	tests := map[string]struct {
		v    Value
		want string
	}{
		"nil":      {Nil(), ""},
		"true":     {Bool(true), "true"},
		"int":      {Int(-7), "-7"},
		"double":   {Double(2), "2.0"},
		"nan":      {Double(math.NaN()), "NaN"},
		"point":    {Point(geom.P3{X: 1, Y: 2.5, Z: -3}), "{1.0 2.5 -3.0}"},
		"atoms":    {Atoms(bitset.Of(0, 1, 2, 5), 0), "({0:2 5})"},
		"bonds":    {Bonds(bitset.Of(3), 0), "[{3}]"},
		"list":     {List(Int(1), String("a")), "1\na"},
		"map":      {FromMap(m), `{ "b": 2, "a": "x\"y" }`},
		"emptyMap": {FromMap(nil), "{}"},
		"keyword":  {All(), "all"},
	}
	for name, tt := range tests {
		if got := tt.v.AsString(); got != tt.want {
			t.Errorf("%s: AsString() = %q, want %q", name, got, tt.want)
		}
	}
}

func TestNumericCoercion(t *testing.T) {
	tests := []struct {
		v      Value
		i      int
		f      float64
		fIsNaN bool
		b      bool
	}{
		{Int(3), 3, 3, false, true},
		{Double(-2.7), -2, -2.7, false, true},
		{Double(math.NaN()), 0, 0, true, false},
		{String("12abc"), 12, 12, false, true},
		{String("abc"), 0, 0, true, true},
		{String("0"), 0, 0, false, false},
		{String(""), 0, 0, true, false},
		{Bool(true), 1, 1, false, true},
		{List(Int(1), Int(2), Int(3)), 3, 3, false, true},
		{List(), 0, 0, false, false},
		{Atoms(bitset.Of(1, 4), 0), 2, 2, false, true},
		{Point(geom.P3{X: 3, Y: 4}), 5, 5, false, true},
		{Nil(), 0, 0, false, false},
	}
	for _, tt := range tests {
		if got := tt.v.AsInt(); got != tt.i {
			t.Errorf("%s AsInt() = %d, want %d", tt.v.Escape(), got, tt.i)
		}
		got := tt.v.AsDouble()
		if tt.fIsNaN {
			if !math.IsNaN(got) {
				t.Errorf("%s AsDouble() = %v, want NaN", tt.v.Escape(), got)
			}
		} else if got != tt.f {
			t.Errorf("%s AsDouble() = %v, want %v", tt.v.Escape(), got, tt.f)
		}
		if b := tt.v.AsBoolean(); b != tt.b {
			t.Errorf("%s AsBoolean() = %v, want %v", tt.v.Escape(), b, tt.b)
		}
	}
}

func TestEqualIsReflexiveAndHashConsistent(t *testing.T) {
	vals := []Value{
		Nil(), Bool(false), Int(1), Double(1), Double(math.NaN()), String("1"),
		String("Carbon"), String("carbon"), Point(geom.P3{Z: -0.0}), Point(geom.P3{}),
		Atoms(bitset.Of(1, 2), 1), Atoms(bitset.Of(1, 2), 2), List(Int(1), String("x")),
		List(Double(1), String("X")), FromMap(NewMap()), All(), Keyword("ALL"),
	}
	for _, a := range vals {
		if !Equal(a, a) {
			t.Errorf("Equal(%s, %s) = false", a.Escape(), a.Escape())
		}
		for _, b := range vals {
			if Equal(a, b) != Equal(b, a) {
				t.Errorf("Equal not symmetric for %s, %s", a.Escape(), b.Escape())
			}
			if Equal(a, b) && HashKey(a) != HashKey(b) {
				t.Errorf("Equal(%s, %s) but hash %q != %q", a.Escape(), b.Escape(), HashKey(a), HashKey(b))
			}
		}
	}
	if Equal(String("abc"), Int(0)) {
		t.Error(`"abc" == 0 should be false`)
	}
	if !Equal(String("Carbon"), String("CARBON")) {
		t.Error("string equality should ignore case")
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b Value
		want int
		ok   bool
	}{
		{Int(1), Int(2), -1, true},
		{Double(2.5), Int(2), 1, true},
		{String("10"), Int(9), 1, true},
		{String("a"), String("b"), -1, true},
		{Double(math.NaN()), Int(1), 0, false},
		{List(), Int(1), 0, false},
	}
	for _, tt := range tests {
		c, ok := Compare(tt.a, tt.b)
		if c != tt.want || ok != tt.ok {
			t.Errorf("Compare(%s, %s) = %d,%v want %d,%v", tt.a.Escape(), tt.b.Escape(), c, ok, tt.want, tt.ok)
		}
	}
}

func TestDeepCopyIsolatesContainers(t *testing.T) {
	inner := NewMap()
	inner.Set("k", List(Int(1)))
	orig := List(FromMap(inner), Atoms(bitset.Of(1), 3))
	cp := orig.DeepCopy()

	inner.Set("k", Int(9))
	bs, _ := orig.ref.([]Value)[1].BitSet()
	bs.Set(7)

	vs, _ := cp.List()
	m, _ := vs[0].Map()
	if v, _ := m.Get("k"); v.Kind() != KindList {
		t.Errorf("copied map changed: %s", v.Escape())
	}
	cbs, _ := vs[1].BitSet()
	if cbs.Get(7) {
		t.Error("copied bitset shares storage")
	}
	if vs[1].Generation() != 3 {
		t.Errorf("generation = %d, want 3", vs[1].Generation())
	}
}

func TestItemIndexing(t *testing.T) {
	l := List(String("a"), String("b"), String("c"))
	for i, want := range map[int]string{1: "a", 3: "c", 0: "c", -1: "b", -2: "a"} {
		got, ok := l.Item(i)
		if !ok || got.AsString() != want {
			t.Errorf("Item(%d) = %q,%v want %q", i, got.AsString(), ok, want)
		}
	}
	if _, ok := l.Item(4); ok {
		t.Error("Item(4) should fail")
	}
}

func TestMapOrder(t *testing.T) {
	m := NewMap()
	m.Set("z", Int(1))
	m.Set("a", Int(2))
	m.Set("z", Int(3))
	m.Delete("missing")
	keys := m.Keys()
	if len(keys) != 2 || keys[0] != "z" || keys[1] != "a" {
		t.Errorf("Keys() = %v", keys)
	}
	m.Delete("z")
	if m.Len() != 1 {
		t.Errorf("Len() = %d", m.Len())
	}
}

func TestParseLiteralAndUnquote(t *testing.T) {
	if v := ParseLiteral("42"); v.Kind() != KindInteger {
		t.Errorf("42 -> %s", v.Kind())
	}
	if v := ParseLiteral("4.5e1"); v.Kind() != KindDouble || v.AsDouble() != 45 {
		t.Errorf("4.5e1 -> %s", v.Escape())
	}
	if v := ParseLiteral("{1 2 3}"); v.Kind() != KindPoint3 {
		t.Errorf("{1 2 3} -> %s", v.Kind())
	}
	if got := Unquote(`"a\"b\nc"`); got != "a\"b\nc" {
		t.Errorf("Unquote = %q", got)
	}
	if got := String("a\"b\nc").Escape(); got != `"a\"b\nc"` {
		t.Errorf("Escape = %q", got)
	}
}
