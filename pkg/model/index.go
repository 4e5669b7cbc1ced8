package model

import (
	"math"

	"github.com/google/btree"

	"github.com/openmol/molscript/pkg/bitset"
	"github.com/openmol/molscript/pkg/geom"
)

type indexEntry struct {
	x   float64
	idx int
}

// atomIndex keeps atoms sorted by x so that distance queries only visit the
// slab |x - x0| <= r.
type atomIndex struct {
	tree *btree.BTreeG[indexEntry]
	gen  uint64
}

func newAtomIndex(atoms []Atom, gen uint64) *atomIndex {
	t := btree.NewG[indexEntry](16, func(a, b indexEntry) bool {
		if a.x != b.x {
			return a.x < b.x
		}
		return a.idx < b.idx
	})
	for _, a := range atoms {
		t.ReplaceOrInsert(indexEntry{x: a.Pos.X, idx: a.Index})
	}
	return &atomIndex{tree: t, gen: gen}
}

func (ix *atomIndex) within(atoms []Atom, p geom.P3, r float64) *bitset.BS {
	out := bitset.New()
	if r < 0 || p.IsNaN() {
		return out
	}
	r2 := r * r
	lo := indexEntry{x: p.X - r, idx: math.MinInt}
	hi := indexEntry{x: math.Nextafter(p.X+r, math.Inf(1)), idx: math.MinInt}
	ix.tree.AscendRange(lo, hi, func(e indexEntry) bool {
		d := atoms[e.idx].Pos.Sub(p)
		if d.Dot(d) <= r2 {
			out.Set(e.idx)
		}
		return true
	})
	return out
}
