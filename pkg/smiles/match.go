package smiles

import (
	"fmt"
	"strings"

	"github.com/openmol/molscript/pkg/bitset"
	"github.com/openmol/molscript/pkg/model"
)

// Matcher compiles patterns and searches models for them.
type Matcher interface {
	Compile(pattern string, smarts bool) (*Query, error)
	// Match returns correlation maps: each map lists, in query-atom order,
	// the model atom matched by that query atom. The search is restricted
	// to atoms in within. With firstOnly the search stops at one map.
	Match(q *Query, m model.Model, within *bitset.BS, firstOnly bool) ([][]int, error)
}

// Default is the built-in Matcher.
var Default Matcher = backtracker{}

type backtracker struct{}

func (backtracker) Compile(pattern string, smarts bool) (*Query, error) {
	return Compile(pattern, smarts)
}

// maxMaps bounds the number of correlation maps collected for one search.
const maxMaps = 10000

func (backtracker) Match(q *Query, m model.Model, within *bitset.BS, firstOnly bool) ([][]int, error) {
	if q == nil || len(q.Atoms) == 0 {
		return nil, fmt.Errorf("smiles: empty query")
	}
	g := newGraph(m, within)
	s := &search{q: q, g: g, firstOnly: firstOnly, mapping: make([]int, len(q.Atoms)), used: map[int]bool{}}
	s.qadj = make([][]QBond, len(q.Atoms))
	for _, b := range q.Bonds {
		s.qadj[b.A] = append(s.qadj[b.A], b)
		s.qadj[b.B] = append(s.qadj[b.B], b)
	}
	s.run(0)
	return s.maps, nil
}

// QueryFromModel builds a query whose atoms and bonds are the atoms in bs
// and the bonds among them, in index order. Hydrogens are dropped unless
// withH is set.
func QueryFromModel(m model.Model, bs *bitset.BS, withH bool) (*Query, []int) {
	q := &Query{}
	var atoms []int
	pos := map[int]int{}
	for i := bs.NextSetBit(0); i >= 0; i = bs.NextSetBit(i + 1) {
		a, ok := m.Atom(i)
		if !ok || (!withH && strings.EqualFold(a.Element, "H")) {
			continue
		}
		pos[i] = len(q.Atoms)
		q.Atoms = append(q.Atoms, QAtom{Element: a.Element})
		atoms = append(atoms, i)
	}
	for _, i := range atoms {
		for _, b := range m.Bonded(i) {
			j := b.Other(i)
			if pj, ok := pos[j]; ok && i < j {
				q.Bonds = append(q.Bonds, QBond{A: pos[i], B: pj, Order: AnyOrder})
			}
		}
	}
	q.Source = fmt.Sprintf("model:%s", bs)
	return q, atoms
}

type graph struct {
	m     model.Model
	atoms map[int]model.Atom
	adj   map[int][]model.Bond
	order []int
}

func newGraph(m model.Model, within *bitset.BS) *graph {
	g := &graph{m: m, atoms: map[int]model.Atom{}, adj: map[int][]model.Bond{}}
	if within == nil {
		within = bitset.Range(0, m.AtomCount())
	}
	for i := within.NextSetBit(0); i >= 0; i = within.NextSetBit(i + 1) {
		a, ok := m.Atom(i)
		if !ok {
			continue
		}
		g.atoms[i] = a
		g.order = append(g.order, i)
	}
	for _, i := range g.order {
		for _, b := range m.Bonded(i) {
			if _, ok := g.atoms[b.Other(i)]; ok {
				g.adj[i] = append(g.adj[i], b)
			}
		}
	}
	return g
}

type search struct {
	q         *Query
	qadj      [][]QBond
	g         *graph
	firstOnly bool
	mapping   []int
	used      map[int]bool
	maps      [][]int
}

func (s *search) done() bool {
	return (s.firstOnly && len(s.maps) > 0) || len(s.maps) >= maxMaps
}

func (s *search) run(k int) {
	if s.done() {
		return
	}
	if k == len(s.q.Atoms) {
		s.maps = append(s.maps, append([]int(nil), s.mapping...))
		return
	}
	for _, t := range s.candidates(k) {
		if s.used[t] || !atomMatches(s.q.Atoms[k], s.g.atoms[t]) || !s.bondsConsistent(k, t) {
			continue
		}
		s.mapping[k] = t
		s.used[t] = true
		s.run(k + 1)
		delete(s.used, t)
		if s.done() {
			return
		}
	}
}

// candidates narrows the search to neighbours of an already-mapped partner.
func (s *search) candidates(k int) []int {
	for _, b := range s.qadj[k] {
		o := b.A
		if o == k {
			o = b.B
		}
		if o < k {
			var out []int
			for _, tb := range s.g.adj[s.mapping[o]] {
				out = append(out, tb.Other(s.mapping[o]))
			}
			return out
		}
	}
	return s.g.order
}

func (s *search) bondsConsistent(k, t int) bool {
	for _, b := range s.qadj[k] {
		o := b.A
		if o == k {
			o = b.B
		}
		if o >= k {
			continue
		}
		found := false
		for _, tb := range s.g.adj[t] {
			if tb.Other(t) == s.mapping[o] {
				found = bondMatches(b.Order, tb.Order)
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func atomMatches(qa QAtom, a model.Atom) bool {
	if qa.Element == "" {
		return true
	}
	return strings.EqualFold(qa.Element, a.Element)
}

func bondMatches(q, t int) bool {
	switch q {
	case AnyOrder:
		return true
	case AromaticOrder:
		return t == model.BondAromatic
	case SingleOrder:
		return t == model.BondSingle || t == model.BondAromatic
	}
	return q == t
}

// UniqueSets collapses correlation maps that cover the same atoms.
func UniqueSets(maps [][]int) []*bitset.BS {
	seen := map[string]bool{}
	var out []*bitset.BS
	for _, m := range maps {
		bs := bitset.Of(m...)
		k := bs.String()
		if !seen[k] {
			seen[k] = true
			out = append(out, bs)
		}
	}
	return out
}
