// Package model defines the molecular model seen by scripts: a read-only
// query surface used by expression functions, a mutation surface used by
// commands, and Store, an in-memory implementation of both.
package model

import (
	"errors"

	"github.com/openmol/molscript/pkg/bitset"
	"github.com/openmol/molscript/pkg/geom"
	"github.com/openmol/molscript/pkg/symmetry"
)

var (
	// ErrNoAtom is returned for an atom index outside the model.
	ErrNoAtom = errors.New("model: no such atom")
	// ErrNoBond is returned for a bond index outside the model.
	ErrNoBond = errors.New("model: no such bond")
	// ErrNothingToUndo is returned when the undo or redo stack is empty.
	ErrNothingToUndo = errors.New("model: nothing to undo")
)

// Atom is one atom of the model.
type Atom struct {
	Index   int
	Name    string
	Element string
	Pos     geom.P3
	Charge  float64
	// Radius overrides the element's van der Waals radius when non-zero.
	Radius float64
}

// ElemNo returns the atomic number, 0 for unknown elements.
func (a Atom) ElemNo() int {
	e, _ := ElementBySymbol(a.Element)
	return e.Number
}

// VDW returns the atom's van der Waals radius.
func (a Atom) VDW() float64 {
	if a.Radius > 0 {
		return a.Radius
	}
	e, ok := ElementBySymbol(a.Element)
	if !ok {
		return elements[0].VDW
	}
	return e.VDW
}

// Covalent returns the atom's single-bond covalent radius.
func (a Atom) Covalent() float64 {
	e, ok := ElementBySymbol(a.Element)
	if !ok {
		return elements[0].Covalent
	}
	return e.Covalent
}

// Bond order values.
const (
	BondSingle   = 1
	BondDouble   = 2
	BondTriple   = 3
	BondAromatic = 4
	BondHydrogen = 8
)

// Bond joins atoms A and B.
type Bond struct {
	Index int
	A, B  int
	Order int
}

// Other returns the partner of atom i in the bond.
func (b Bond) Other(i int) int {
	if b.A == i {
		return b.B
	}
	return b.A
}

// Measurement is a persistent distance, angle or torsion.
type Measurement struct {
	ID     string
	Atoms  []int
	Points []geom.P3
	Value  float64
	Format string
	Color  string
	Min    float64
	Max    float64
}

// Kind returns distance, angle or torsion by point count.
func (m Measurement) Kind() string {
	switch len(m.Points) {
	case 2:
		return "distance"
	case 3:
		return "angle"
	case 4:
		return "torsion"
	}
	return "unknown"
}

// Polyhedron is a coordination polyhedron around a central atom.
type Polyhedron struct {
	ID       string
	Center   int
	Vertices []int
	Color    string
	Faces    [][3]int
}

// Model is the query surface used by expression functions. All methods are
// pure; indices are validated by the implementation.
type Model interface {
	// Generation changes whenever atoms are added, removed or reassigned.
	Generation() uint64
	AtomCount() int
	Atom(i int) (Atom, bool)
	// Named resolves a predefined set: all, none, selected, or an element
	// symbol.
	Named(name string) (*bitset.BS, bool)
	// Within returns the atoms whose centres lie within r of p.
	Within(p geom.P3, r float64) *bitset.BS
	BondCount() int
	Bond(i int) (Bond, bool)
	// Bonded returns the bonds touching atom i.
	Bonded(i int) []Bond
	UnitCell() *symmetry.UnitCell
	SpaceGroup() *symmetry.SpaceGroup
}

// Mutator is the surface used by commands.
type Mutator interface {
	Model

	AssignAtom(i int, element string) error
	AddAtom(a Atom) int

	AddBond(a, b, order int) (int, error)
	SetBondOrder(i, order int) error
	DeleteBonds(bs *bitset.BS) int
	BondBetween(a, b int) (int, bool)

	Select(bs *bitset.BS)

	AddMeasurement(m Measurement) string
	Measurements() []Measurement
	DeleteMeasurement(id string) bool

	AddPolyhedron(p Polyhedron) string
	Polyhedra() []Polyhedron
	DeletePolyhedra(centers *bitset.BS) int

	SetShapeProperty(shape, prop, val string)
	ShapeProperty(shape, prop string) (string, bool)

	PushUndo()
	Undo() error
	Redo() error
	Snapshot() Snapshot
	Restore(s Snapshot)
}

// Points returns the coordinates of the atoms in bs, in index order.
func Points(m Model, bs *bitset.BS) []geom.P3 {
	var pts []geom.P3
	for i := bs.NextSetBit(0); i >= 0; i = bs.NextSetBit(i + 1) {
		if a, ok := m.Atom(i); ok {
			pts = append(pts, a.Pos)
		}
	}
	return pts
}
