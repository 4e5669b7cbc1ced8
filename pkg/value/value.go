// Package value implements the typed runtime value shared by the expression
// processor, the function registry and the command handlers.
package value

import (
	"unicode/utf8"

	"github.com/openmol/molscript/pkg/bitset"
	"github.com/openmol/molscript/pkg/geom"
)

// Kind discriminates the payload of a Value.
type Kind int

const (
	KindNil Kind = iota
	KindBoolean
	KindInteger
	KindDouble
	KindString
	KindPoint3
	KindPoint4
	KindMatrix3
	KindMatrix4
	KindAtomSet
	KindBondSet
	KindList
	KindMap
	KindBlob
	KindPattern
	KindSearchTarget
	KindKeyword
)

var kindNames = [...]string{
	KindNil:          "nil",
	KindBoolean:      "boolean",
	KindInteger:      "integer",
	KindDouble:       "decimal",
	KindString:       "string",
	KindPoint3:       "point",
	KindPoint4:       "point4",
	KindMatrix3:      "matrix3f",
	KindMatrix4:      "matrix4f",
	KindAtomSet:      "bitset",
	KindBondSet:      "bondset",
	KindList:         "array",
	KindMap:          "hash",
	KindBlob:         "binary",
	KindPattern:      "pattern",
	KindSearchTarget: "target",
	KindKeyword:      "keyword",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// IsNumeric reports whether k is Boolean, Integer or Double.
func (k Kind) IsNumeric() bool {
	return k == KindBoolean || k == KindInteger || k == KindDouble
}

// Set is an atom or bond selection stamped with the model generation it was
// taken from.
type Set struct {
	Bits *bitset.BS
	Gen  uint64
}

// Compiled is an opaque pattern or search target together with the text it
// was built from.
type Compiled struct {
	Source string
	Obj    any
}

// Value is a tagged union. The zero Value is Nil. Values are passed by value;
// lists, maps, sets and blobs share their backing storage on read and must be
// copied with DeepCopy before mutation.
type Value struct {
	kind Kind
	i    int
	f    float64
	s    string
	ref  any
}

// Nil returns the empty value.
func Nil() Value { return Value{} }

// Bool returns a Boolean.
func Bool(b bool) Value {
	if b {
		return Value{kind: KindBoolean, i: 1}
	}
	return Value{kind: KindBoolean}
}

// Int returns an Integer.
func Int(i int) Value { return Value{kind: KindInteger, i: i} }

// Double returns a Double.
func Double(f float64) Value { return Value{kind: KindDouble, f: f} }

// String returns a String.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Keyword returns a bare keyword such as "all".
func Keyword(s string) Value { return Value{kind: KindKeyword, s: s} }

// All returns the ALL marker used by reducing operators.
func All() Value { return Keyword("all") }

// Point returns a Point3.
func Point(p geom.P3) Value { return Value{kind: KindPoint3, ref: p} }

// Point4 returns a Point4.
func Point4(p geom.P4) Value { return Value{kind: KindPoint4, ref: p} }

// Quaternion returns q as a Point4 in x,y,z,w order.
func Quaternion(q geom.Quat) Value { return Point4(q.ToP4()) }

// Matrix3 returns a 3x3 matrix.
func Matrix3(m geom.M3) Value { return Value{kind: KindMatrix3, ref: m} }

// Matrix4 returns a 4x4 matrix.
func Matrix4(m geom.M4) Value { return Value{kind: KindMatrix4, ref: m} }

// Atoms returns an AtomSet taken at model generation gen.
func Atoms(bs *bitset.BS, gen uint64) Value {
	if bs == nil {
		bs = bitset.New()
	}
	return Value{kind: KindAtomSet, ref: Set{Bits: bs, Gen: gen}}
}

// Bonds returns a BondSet taken at model generation gen.
func Bonds(bs *bitset.BS, gen uint64) Value {
	if bs == nil {
		bs = bitset.New()
	}
	return Value{kind: KindBondSet, ref: Set{Bits: bs, Gen: gen}}
}

// List returns a List holding vs; the slice is not copied.
func List(vs ...Value) Value {
	if vs == nil {
		vs = []Value{}
	}
	return Value{kind: KindList, ref: vs}
}

// Strings returns a List of String values.
func Strings(ss []string) Value {
	vs := make([]Value, len(ss))
	for i, s := range ss {
		vs[i] = String(s)
	}
	return List(vs...)
}

// Doubles returns a List of Double values.
func Doubles(fs []float64) Value {
	vs := make([]Value, len(fs))
	for i, f := range fs {
		vs[i] = Double(f)
	}
	return List(vs...)
}

// Ints returns a List of Integer values.
func Ints(is []int) Value {
	vs := make([]Value, len(is))
	for i, n := range is {
		vs[i] = Int(n)
	}
	return List(vs...)
}

// FromMap returns a Map value; nil becomes an empty map.
func FromMap(m *Map) Value {
	if m == nil {
		m = NewMap()
	}
	return Value{kind: KindMap, ref: m}
}

// Blob returns a binary value.
func Blob(b []byte) Value { return Value{kind: KindBlob, ref: b} }

// Pattern wraps a compiled substructure query.
func Pattern(source string, obj any) Value {
	return Value{kind: KindPattern, ref: Compiled{Source: source, Obj: obj}}
}

// SearchTarget wraps a prepared search target.
func SearchTarget(source string, obj any) Value {
	return Value{kind: KindSearchTarget, ref: Compiled{Source: source, Obj: obj}}
}

// Kind returns the discriminant.
func (v Value) Kind() Kind { return v.kind }

// IsNil reports whether v is Nil.
func (v Value) IsNil() bool { return v.kind == KindNil }

// IsAll reports whether v is the ALL marker.
func (v Value) IsAll() bool { return v.kind == KindKeyword && equalFold(v.s, "all") }

// IsKeyword reports whether v is the given keyword.
func (v Value) IsKeyword(name string) bool { return v.kind == KindKeyword && equalFold(v.s, name) }

// Point3 returns the Point3 payload.
func (v Value) Point3() (geom.P3, bool) {
	p, ok := v.ref.(geom.P3)
	return p, ok && v.kind == KindPoint3
}

// P4 returns the Point4 payload.
func (v Value) P4() (geom.P4, bool) {
	p, ok := v.ref.(geom.P4)
	return p, ok && v.kind == KindPoint4
}

// Quat reads a Point4 as a quaternion.
func (v Value) Quat() (geom.Quat, bool) {
	p, ok := v.P4()
	if !ok {
		return geom.Quat{}, false
	}
	return geom.QuatFromP4(p), true
}

// M3 returns the 3x3 payload.
func (v Value) M3() (geom.M3, bool) {
	m, ok := v.ref.(geom.M3)
	return m, ok && v.kind == KindMatrix3
}

// M4 returns the 4x4 payload.
func (v Value) M4() (geom.M4, bool) {
	m, ok := v.ref.(geom.M4)
	return m, ok && v.kind == KindMatrix4
}

// BitSet returns the bits of an AtomSet or BondSet.
func (v Value) BitSet() (*bitset.BS, bool) {
	if v.kind != KindAtomSet && v.kind != KindBondSet {
		return nil, false
	}
	return v.ref.(Set).Bits, true
}

// Generation returns the model generation of an AtomSet or BondSet.
func (v Value) Generation() uint64 {
	if s, ok := v.ref.(Set); ok {
		return s.Gen
	}
	return 0
}

// List returns the elements of a List.
func (v Value) List() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return v.ref.([]Value), true
}

// Map returns the payload of a Map.
func (v Value) Map() (*Map, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	return v.ref.(*Map), true
}

// Bytes returns the payload of a Blob.
func (v Value) Bytes() ([]byte, bool) {
	if v.kind != KindBlob {
		return nil, false
	}
	return v.ref.([]byte), true
}

// Compiled returns the payload of a Pattern or SearchTarget.
func (v Value) Compiled() (Compiled, bool) {
	if v.kind != KindPattern && v.kind != KindSearchTarget {
		return Compiled{}, false
	}
	return v.ref.(Compiled), true
}

// Str returns the raw text of a String or Keyword without conversion.
func (v Value) Str() (string, bool) {
	if v.kind != KindString && v.kind != KindKeyword {
		return "", false
	}
	return v.s, true
}

// Len is the element count of a collection: list and map size, set
// cardinality, blob length, rune count of a string; 0 for scalars.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.ref.([]Value))
	case KindMap:
		return v.ref.(*Map).Len()
	case KindAtomSet, KindBondSet:
		return v.ref.(Set).Bits.Cardinality()
	case KindBlob:
		return len(v.ref.([]byte))
	case KindString:
		return utf8.RuneCountInString(v.s)
	}
	return 0
}

// Item returns element i of a List using script indexing: i >= 1 counts
// from the front, i <= 0 from the back (0 is the last element).
func (v Value) Item(i int) (Value, bool) {
	vs, ok := v.List()
	if !ok {
		return Nil(), false
	}
	if i <= 0 {
		i += len(vs)
	}
	if i < 1 || i > len(vs) {
		return Nil(), false
	}
	return vs[i-1], true
}

// DeepCopy returns a value sharing no mutable storage with v.
func (v Value) DeepCopy() Value {
	switch v.kind {
	case KindList:
		vs := v.ref.([]Value)
		out := make([]Value, len(vs))
		for i, e := range vs {
			out[i] = e.DeepCopy()
		}
		return List(out...)
	case KindMap:
		return FromMap(v.ref.(*Map).DeepCopy())
	case KindAtomSet, KindBondSet:
		s := v.ref.(Set)
		return Value{kind: v.kind, ref: Set{Bits: s.Bits.Copy(), Gen: s.Gen}}
	case KindBlob:
		b := v.ref.([]byte)
		return Blob(append([]byte(nil), b...))
	}
	return v
}
