package model

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/openmol/molscript/pkg/bitset"
	"github.com/openmol/molscript/pkg/geom"
	"github.com/openmol/molscript/pkg/symmetry"
)

const maxUndo = 50

// Snapshot is the serializable state of a Store.
type Snapshot struct {
	Atoms        []Atom
	Bonds        []Bond
	Selected     []int
	Measurements []Measurement
	Polyhedra    []Polyhedron
	Shapes       map[string]map[string]string
	Cell         []float64 // a b c alpha beta gamma
	Group        string
}

// Store is an in-memory Mutator. It is not safe for concurrent use; a
// session owns its store.
type Store struct {
	gen          uint64
	atoms        []Atom
	bonds        []Bond
	selected     *bitset.BS
	measurements []Measurement
	polyhedra    []Polyhedron
	shapes       map[string]map[string]string
	cell         *symmetry.UnitCell
	group        *symmetry.SpaceGroup

	undo []Snapshot
	redo []Snapshot

	index *atomIndex
}

// NewStore returns an empty model with space group P1.
func NewStore() *Store {
	g, _ := symmetry.Lookup("P1")
	return &Store{
		gen:      1,
		selected: bitset.New(),
		shapes:   make(map[string]map[string]string),
		group:    g,
	}
}

func (s *Store) touch() {
	s.gen++
	s.index = nil
}

// Generation implements Model.
func (s *Store) Generation() uint64 { return s.gen }

// AtomCount implements Model.
func (s *Store) AtomCount() int { return len(s.atoms) }

// Atom implements Model.
func (s *Store) Atom(i int) (Atom, bool) {
	if i < 0 || i >= len(s.atoms) {
		return Atom{}, false
	}
	return s.atoms[i], true
}

// Named implements Model.
func (s *Store) Named(name string) (*bitset.BS, bool) {
	switch strings.ToLower(name) {
	case "all", "*":
		return bitset.Range(0, len(s.atoms)), true
	case "none":
		return bitset.New(), true
	case "selected":
		return s.selected.Copy(), true
	}
	e, ok := ElementBySymbol(name)
	if !ok {
		return nil, false
	}
	bs := bitset.New()
	for _, a := range s.atoms {
		if strings.EqualFold(a.Element, e.Symbol) {
			bs.Set(a.Index)
		}
	}
	return bs, true
}

// Within implements Model using an x-sorted btree rebuilt after each
// structural change.
func (s *Store) Within(p geom.P3, r float64) *bitset.BS {
	if s.index == nil || s.index.gen != s.gen {
		s.index = newAtomIndex(s.atoms, s.gen)
	}
	return s.index.within(s.atoms, p, r)
}

// BondCount implements Model.
func (s *Store) BondCount() int { return len(s.bonds) }

// Bond implements Model.
func (s *Store) Bond(i int) (Bond, bool) {
	if i < 0 || i >= len(s.bonds) {
		return Bond{}, false
	}
	return s.bonds[i], true
}

// Bonded implements Model.
func (s *Store) Bonded(i int) []Bond {
	var out []Bond
	for _, b := range s.bonds {
		if b.A == i || b.B == i {
			out = append(out, b)
		}
	}
	return out
}

// UnitCell implements Model; nil when the model has no cell.
func (s *Store) UnitCell() *symmetry.UnitCell { return s.cell }

// SpaceGroup implements Model.
func (s *Store) SpaceGroup() *symmetry.SpaceGroup { return s.group }

// SetUnitCell attaches a unit cell.
func (s *Store) SetUnitCell(uc *symmetry.UnitCell) { s.cell = uc }

// SetSpaceGroup attaches a space group.
func (s *Store) SetSpaceGroup(sg *symmetry.SpaceGroup) { s.group = sg }

// AddAtom appends an atom and returns its index.
func (s *Store) AddAtom(a Atom) int {
	a.Index = len(s.atoms)
	if e, ok := ElementBySymbol(a.Element); ok {
		a.Element = e.Symbol
	}
	if a.Name == "" {
		a.Name = fmt.Sprintf("%s%d", a.Element, a.Index+1)
	}
	s.atoms = append(s.atoms, a)
	s.touch()
	return a.Index
}

// AssignAtom changes an atom's element.
func (s *Store) AssignAtom(i int, element string) error {
	if i < 0 || i >= len(s.atoms) {
		return fmt.Errorf("%w: %d", ErrNoAtom, i)
	}
	e, ok := ElementBySymbol(element)
	if !ok {
		return fmt.Errorf("model: unknown element %q", element)
	}
	s.atoms[i].Element = e.Symbol
	s.touch()
	return nil
}

// BondBetween finds the bond joining a and b.
func (s *Store) BondBetween(a, b int) (int, bool) {
	for _, bd := range s.bonds {
		if bd.A == a && bd.B == b || bd.A == b && bd.B == a {
			return bd.Index, true
		}
	}
	return -1, false
}

// AddBond creates a bond, or updates the order of an existing one.
func (s *Store) AddBond(a, b, order int) (int, error) {
	if _, ok := s.Atom(a); !ok {
		return -1, fmt.Errorf("%w: %d", ErrNoAtom, a)
	}
	if _, ok := s.Atom(b); !ok || a == b {
		return -1, fmt.Errorf("%w: %d", ErrNoAtom, b)
	}
	if i, ok := s.BondBetween(a, b); ok {
		s.bonds[i].Order = order
		return i, nil
	}
	if a > b {
		a, b = b, a
	}
	bd := Bond{Index: len(s.bonds), A: a, B: b, Order: order}
	s.bonds = append(s.bonds, bd)
	return bd.Index, nil
}

// SetBondOrder changes a bond's order.
func (s *Store) SetBondOrder(i, order int) error {
	if i < 0 || i >= len(s.bonds) {
		return fmt.Errorf("%w: %d", ErrNoBond, i)
	}
	s.bonds[i].Order = order
	return nil
}

// DeleteBonds removes the bonds in bs and renumbers the rest.
func (s *Store) DeleteBonds(bs *bitset.BS) int {
	kept := s.bonds[:0]
	n := 0
	for _, b := range s.bonds {
		if bs.Get(b.Index) {
			n++
			continue
		}
		b.Index = len(kept)
		kept = append(kept, b)
	}
	s.bonds = kept
	return n
}

// Select replaces the current selection.
func (s *Store) Select(bs *bitset.BS) {
	s.selected = bs.Copy()
	s.selected.Truncate(len(s.atoms))
}

// AddMeasurement stores m under a fresh id.
func (s *Store) AddMeasurement(m Measurement) string {
	m.ID = uuid.NewString()
	s.measurements = append(s.measurements, m)
	return m.ID
}

// Measurements returns a copy of the measurement list.
func (s *Store) Measurements() []Measurement {
	return append([]Measurement(nil), s.measurements...)
}

// DeleteMeasurement removes a measurement by id.
func (s *Store) DeleteMeasurement(id string) bool {
	for i, m := range s.measurements {
		if m.ID == id {
			s.measurements = append(s.measurements[:i], s.measurements[i+1:]...)
			return true
		}
	}
	return false
}

// AddPolyhedron stores p under a fresh id, replacing any polyhedron on the
// same centre.
func (s *Store) AddPolyhedron(p Polyhedron) string {
	p.ID = uuid.NewString()
	for i, q := range s.polyhedra {
		if q.Center == p.Center {
			s.polyhedra[i] = p
			return p.ID
		}
	}
	s.polyhedra = append(s.polyhedra, p)
	return p.ID
}

// Polyhedra returns a copy of the polyhedron list.
func (s *Store) Polyhedra() []Polyhedron {
	return append([]Polyhedron(nil), s.polyhedra...)
}

// DeletePolyhedra removes the polyhedra centred on atoms in centers.
func (s *Store) DeletePolyhedra(centers *bitset.BS) int {
	kept := s.polyhedra[:0]
	n := 0
	for _, p := range s.polyhedra {
		if centers.Get(p.Center) {
			n++
			continue
		}
		kept = append(kept, p)
	}
	s.polyhedra = kept
	return n
}

// SetShapeProperty records a display property.
func (s *Store) SetShapeProperty(shape, prop, val string) {
	shape, prop = strings.ToLower(shape), strings.ToLower(prop)
	m, ok := s.shapes[shape]
	if !ok {
		m = make(map[string]string)
		s.shapes[shape] = m
	}
	m[prop] = val
}

// ShapeProperty reads a display property.
func (s *Store) ShapeProperty(shape, prop string) (string, bool) {
	v, ok := s.shapes[strings.ToLower(shape)][strings.ToLower(prop)]
	return v, ok
}

// ShapeNames lists shapes with at least one property, sorted.
func (s *Store) ShapeNames() []string {
	var out []string
	for k := range s.shapes {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Snapshot captures the whole state.
func (s *Store) Snapshot() Snapshot {
	snap := Snapshot{
		Atoms:        append([]Atom(nil), s.atoms...),
		Bonds:        append([]Bond(nil), s.bonds...),
		Selected:     s.selected.Indices(),
		Measurements: s.Measurements(),
		Polyhedra:    s.Polyhedra(),
		Shapes:       make(map[string]map[string]string, len(s.shapes)),
	}
	for k, m := range s.shapes {
		cp := make(map[string]string, len(m))
		for p, v := range m {
			cp[p] = v
		}
		snap.Shapes[k] = cp
	}
	if s.cell != nil {
		snap.Cell = []float64{s.cell.A, s.cell.B, s.cell.C, s.cell.Alpha, s.cell.Beta, s.cell.Gamma}
	}
	if s.group != nil {
		snap.Group = s.group.Name
	}
	return snap
}

// Restore replaces the whole state with snap.
func (s *Store) Restore(snap Snapshot) {
	s.atoms = append([]Atom(nil), snap.Atoms...)
	s.bonds = append([]Bond(nil), snap.Bonds...)
	s.selected = bitset.Of(snap.Selected...)
	s.measurements = append([]Measurement(nil), snap.Measurements...)
	s.polyhedra = append([]Polyhedron(nil), snap.Polyhedra...)
	s.shapes = make(map[string]map[string]string, len(snap.Shapes))
	for k, m := range snap.Shapes {
		cp := make(map[string]string, len(m))
		for p, v := range m {
			cp[p] = v
		}
		s.shapes[k] = cp
	}
	s.cell = nil
	if len(snap.Cell) == 6 {
		if uc, err := symmetry.NewUnitCell(snap.Cell[0], snap.Cell[1], snap.Cell[2], snap.Cell[3], snap.Cell[4], snap.Cell[5]); err == nil {
			s.cell = uc
		}
	}
	if g, ok := symmetry.Lookup(snap.Group); ok {
		s.group = g
	}
	s.touch()
}

// PushUndo records the current state and clears the redo stack.
func (s *Store) PushUndo() {
	s.undo = append(s.undo, s.Snapshot())
	if len(s.undo) > maxUndo {
		s.undo = s.undo[len(s.undo)-maxUndo:]
	}
	s.redo = nil
}

// Undo restores the most recent PushUndo state.
func (s *Store) Undo() error {
	if len(s.undo) == 0 {
		return ErrNothingToUndo
	}
	last := s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]
	s.redo = append(s.redo, s.Snapshot())
	s.Restore(last)
	return nil
}

// Redo reverses the last Undo.
func (s *Store) Redo() error {
	if len(s.redo) == 0 {
		return ErrNothingToUndo
	}
	next := s.redo[len(s.redo)-1]
	s.redo = s.redo[:len(s.redo)-1]
	s.undo = append(s.undo, s.Snapshot())
	s.Restore(next)
	return nil
}
