package commands

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/openmol/molscript/pkg/archive"
	"github.com/openmol/molscript/pkg/model"
)

// renderXYZ writes the atoms as an XYZ frame.
func renderXYZ(m model.Model) ([]byte, error) {
	var buf bytes.Buffer
	if err := model.WriteXYZ(&buf, m, "molscript"); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// renderPDB writes HETATM records and CONECT records for the bonds.
func renderPDB(m model.Model) []byte {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	if uc := m.UnitCell(); uc != nil {
		group := "P 1"
		if sg := m.SpaceGroup(); sg != nil {
			group = sg.Name
		}
		fmt.Fprintf(w, "CRYST1%9.3f%9.3f%9.3f%7.2f%7.2f%7.2f %-11s   1\n",
			uc.A, uc.B, uc.C, uc.Alpha, uc.Beta, uc.Gamma, group)
	}
	for i := 0; i < m.AtomCount(); i++ {
		a, _ := m.Atom(i)
		name := a.Name
		if name == "" {
			name = fmt.Sprintf("%s%d", a.Element, i+1)
		}
		if len(name) > 4 {
			name = name[:4]
		}
		fmt.Fprintf(w, "HETATM%5d %-4s UNK     1    %8.3f%8.3f%8.3f  1.00  0.00          %2s\n",
			i+1, name, a.Pos.X, a.Pos.Y, a.Pos.Z, strings.ToUpper(a.Element))
	}
	for i := 0; i < m.AtomCount(); i++ {
		bonds := m.Bonded(i)
		for start := 0; start < len(bonds); start += 4 {
			fmt.Fprintf(w, "CONECT%5d", i+1)
			for _, b := range bonds[start:min(start+4, len(bonds))] {
				fmt.Fprintf(w, "%5d", b.Other(i)+1)
			}
			w.WriteByte('\n')
		}
	}
	w.WriteString("END\n")
	w.Flush()
	return buf.Bytes()
}

type jsonAtom struct {
	Index   int        `json:"index"`
	Name    string     `json:"name,omitempty"`
	Element string     `json:"element"`
	XYZ     [3]float64 `json:"xyz"`
	Charge  float64    `json:"charge,omitempty"`
}

type jsonBond struct {
	A     int `json:"a"`
	B     int `json:"b"`
	Order int `json:"order"`
}

type jsonMeasurement struct {
	ID    string  `json:"id"`
	Kind  string  `json:"kind"`
	Atoms []int   `json:"atoms"`
	Value float64 `json:"value"`
	Label string  `json:"label"`
}

type jsonPolyhedron struct {
	Center   int      `json:"center"`
	Vertices []int    `json:"vertices"`
	Faces    [][3]int `json:"faces"`
	Color    string   `json:"color,omitempty"`
}

type jsonModel struct {
	Atoms        []jsonAtom        `json:"atoms"`
	Bonds        []jsonBond        `json:"bonds"`
	UnitCell     []float64         `json:"unitcell,omitempty"`
	SpaceGroup   string            `json:"spacegroup,omitempty"`
	Selected     []int             `json:"selected"`
	Measurements []jsonMeasurement `json:"measurements,omitempty"`
	Polyhedra    []jsonPolyhedron  `json:"polyhedra,omitempty"`
}

// renderJSON writes the model as one JSON document. Measurements and
// polyhedra are included when the model is writable.
func renderJSON(m model.Model) ([]byte, error) {
	doc := jsonModel{Atoms: []jsonAtom{}, Bonds: []jsonBond{}}
	for i := 0; i < m.AtomCount(); i++ {
		a, _ := m.Atom(i)
		doc.Atoms = append(doc.Atoms, jsonAtom{Index: i, Name: a.Name, Element: a.Element,
			XYZ: [3]float64{a.Pos.X, a.Pos.Y, a.Pos.Z}, Charge: a.Charge})
	}
	for i := 0; i < m.BondCount(); i++ {
		b, _ := m.Bond(i)
		doc.Bonds = append(doc.Bonds, jsonBond{A: b.A, B: b.B, Order: b.Order})
	}
	if uc := m.UnitCell(); uc != nil {
		doc.UnitCell = []float64{uc.A, uc.B, uc.C, uc.Alpha, uc.Beta, uc.Gamma}
	}
	if sg := m.SpaceGroup(); sg != nil {
		doc.SpaceGroup = sg.Name
	}
	sel, _ := m.Named("selected")
	doc.Selected = sel.Indices()
	if doc.Selected == nil {
		doc.Selected = []int{}
	}
	if mu, ok := m.(model.Mutator); ok {
		for _, ms := range mu.Measurements() {
			doc.Measurements = append(doc.Measurements, jsonMeasurement{ID: ms.ID, Kind: ms.Kind(),
				Atoms: ms.Atoms, Value: ms.Value, Label: MeasureLabel(ms)})
		}
		for _, p := range mu.Polyhedra() {
			doc.Polyhedra = append(doc.Polyhedra, jsonPolyhedron{Center: p.Center, Vertices: p.Vertices,
				Faces: p.Faces, Color: p.Color})
		}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal model: %w", err)
	}
	return append(data, '\n'), nil
}

// renderZip bundles the XYZ coordinates, the state script and the JSON
// model.
func renderZip(mu model.Mutator, now time.Time) ([]byte, error) {
	xyz, err := renderXYZ(mu)
	if err != nil {
		return nil, err
	}
	doc, err := renderJSON(mu)
	if err != nil {
		return nil, err
	}
	entries := []archive.Entry{
		{Name: "model.xyz", Type: "xyz", Data: xyz},
		{Name: "state.spt", Type: "spt", Data: []byte(StateScript(mu))},
		{Name: "model.json", Type: "json", Data: doc},
	}
	var buf bytes.Buffer
	if _, err := archive.Write(&buf, entries, mu.AtomCount(), now); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
