package bitset

import "testing"

func TestSetGetCardinality(t *testing.T) {
	bs := New()
	for _, i := range []int{0, 3, 64, 130} {
		bs.Set(i)
	}
	if bs.Cardinality() != 4 {
		t.Errorf("cardinality = %d, want 4", bs.Cardinality())
	}
	if !bs.Get(64) || bs.Get(65) {
		t.Errorf("get mismatch around word boundary")
	}
	if bs.Length() != 131 {
		t.Errorf("length = %d, want 131", bs.Length())
	}
	bs.Clear(64)
	if bs.Get(64) {
		t.Errorf("clear failed")
	}
}

func TestIndicesAndNext(t *testing.T) {
	bs := Of(5, 1, 70)
	got := bs.Indices()
	want := []int{1, 5, 70}
	if len(got) != len(want) {
		t.Fatalf("indices = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("indices = %v, want %v", got, want)
		}
	}
	if New().NextSetBit(0) != -1 {
		t.Errorf("empty set NextSetBit should be -1")
	}
}

func TestAlgebra(t *testing.T) {
	a := Of(1, 2, 3)
	b := Of(3, 4)

	u := a.Copy()
	u.Or(b)
	if !u.Equals(Of(1, 2, 3, 4)) {
		t.Errorf("or = %s", u)
	}
	i := a.Copy()
	i.And(b)
	if !i.Equals(Of(3)) {
		t.Errorf("and = %s", i)
	}
	d := a.Copy()
	d.AndNot(b)
	if !d.Equals(Of(1, 2)) {
		t.Errorf("andnot = %s", d)
	}
	if !a.Equals(Of(1, 2, 3)) {
		t.Errorf("copy aliasing mutated source: %s", a)
	}
	if !a.Intersects(b) || a.Intersects(Of(9)) {
		t.Errorf("intersects mismatch")
	}
	if !u.ContainsAll(a) || a.ContainsAll(u) {
		t.Errorf("containsAll mismatch")
	}
}

func TestEscapeRoundTrip(t *testing.T) {
	tests := map[string][]int{
		"({})":          nil,
		"({0:3 5})":     {0, 1, 2, 3, 5},
		"({7 9:10 64})": {7, 9, 10, 64},
	}
	for s, idx := range tests {
		bs := Of(idx...)
		if got := bs.String(); got != s {
			t.Errorf("String(%v) = %q, want %q", idx, got, s)
		}
		back, err := Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q): %v", s, err)
		}
		if !back.Equals(bs) {
			t.Errorf("Parse(%q) = %s", s, back)
		}
	}
	if _, err := Parse("({3:1})"); err == nil {
		t.Errorf("expected error for inverted range")
	}
	if _, err := Parse("nope"); err == nil {
		t.Errorf("expected error for malformed input")
	}
}

func TestTruncate(t *testing.T) {
	bs := Of(1, 4, 8, 100)
	bs.Truncate(5)
	if !bs.Equals(Of(1, 4)) {
		t.Errorf("truncate = %s", bs)
	}
}
