package smiles

import (
	"errors"
	"testing"

	"github.com/openmol/molscript/pkg/bitset"
	"github.com/openmol/molscript/pkg/geom"
	"github.com/openmol/molscript/pkg/model"
)

// ethanol: C0-C1-O2, with H3 on C0 and H4 on O2
func ethanol() *model.Store {
	s := model.NewStore()
	for _, e := range []string{"C", "C", "O", "H", "H"} {
		s.AddAtom(model.Atom{Element: e, Pos: geom.P3{X: float64(s.AtomCount())}})
	}
	s.AddBond(0, 1, model.BondSingle)
	s.AddBond(1, 2, model.BondSingle)
	s.AddBond(0, 3, model.BondSingle)
	s.AddBond(2, 4, model.BondSingle)
	return s
}

func cyclopropane() *model.Store {
	s := model.NewStore()
	for i := 0; i < 3; i++ {
		s.AddAtom(model.Atom{Element: "C"})
	}
	s.AddBond(0, 1, model.BondSingle)
	s.AddBond(1, 2, model.BondSingle)
	s.AddBond(2, 0, model.BondSingle)
	return s
}

func TestCompile(t *testing.T) {
	tests := map[string]struct {
		atoms, bonds int
	}{
		"CCO":          {3, 2},
		"C(=O)O":       {3, 2},
		"c1ccccc1":     {6, 6},
		"[nH]1cccc1":   {5, 5},
		"[Fe+2].[Cl-]": {2, 0},
		"ClCBr":        {3, 2},
		"[#6]~[#8]":    {2, 1},
		"C%12CC%12":    {3, 3},
	}
	for src, want := range tests {
		q, err := Compile(src, false)
		if err != nil {
			t.Errorf("Compile(%q): %v", src, err)
			continue
		}
		if len(q.Atoms) != want.atoms || len(q.Bonds) != want.bonds {
			t.Errorf("Compile(%q) = %d atoms %d bonds, want %d %d", src, len(q.Atoms), len(q.Bonds), want.atoms, want.bonds)
		}
	}
	q, _ := Compile("C(=O)O", false)
	if q.Bonds[0].Order != DoubleOrder {
		t.Errorf("first bond order = %d", q.Bonds[0].Order)
	}
}

func TestCompileErrors(t *testing.T) {
	for _, src := range []string{"", "C(", "C)", "C1CC", "[Xq]", "C=", "Q", "=C"} {
		if _, err := Compile(src, false); !errors.Is(err, ErrSyntax) {
			t.Errorf("Compile(%q) err = %v, want ErrSyntax", src, err)
		}
	}
}

func TestMatch(t *testing.T) {
	s := ethanol()
	tests := map[string]string{
		"CCO":   "[[0 1 2]]",
		"OCC":   "[[2 1 0]]",
		"CO":    "[[1 2]]",
		"[#8]":  "[[2]]",
		"C=O":   "[]",
		"C1CC1": "[]",
		"C-C":   "[[0 1] [1 0]]",
		"[H]O":  "[[4 2]]",
	}
	for src, want := range tests {
		q, err := Compile(src, false)
		if err != nil {
			t.Fatalf("Compile(%q): %v", src, err)
		}
		maps, err := Default.Match(q, s, nil, false)
		if err != nil {
			t.Fatalf("Match(%q): %v", src, err)
		}
		if got := formatMaps(maps); got != want {
			t.Errorf("Match(%q) = %s, want %s", src, got, want)
		}
	}
}

func TestMatchWithinAndFirstOnly(t *testing.T) {
	s := ethanol()
	q, _ := Compile("C", false)
	maps, _ := Default.Match(q, s, nil, true)
	if len(maps) != 1 {
		t.Errorf("firstOnly gave %d maps", len(maps))
	}
	maps, _ = Default.Match(q, s, bitset.Of(1, 2), false)
	if formatMaps(maps) != "[[1]]" {
		t.Errorf("within {1 2} gave %s", formatMaps(maps))
	}
}

func TestRingAutomorphismsCollapse(t *testing.T) {
	s := cyclopropane()
	q, _ := Compile("C1CC1", false)
	maps, _ := Default.Match(q, s, nil, false)
	if len(maps) != 6 {
		t.Errorf("got %d maps, want 6", len(maps))
	}
	if sets := UniqueSets(maps); len(sets) != 1 || sets[0].String() != "({0:2})" {
		t.Errorf("UniqueSets = %v", sets)
	}
}

func TestQueryFromModel(t *testing.T) {
	s := ethanol()
	q, atoms := QueryFromModel(s, bitset.Range(0, 5), false)
	if len(q.Atoms) != 3 || len(q.Bonds) != 2 || len(atoms) != 3 {
		t.Fatalf("query %d atoms %d bonds", len(q.Atoms), len(q.Bonds))
	}
	maps, _ := Default.Match(q, s, nil, false)
	if formatMaps(maps) != "[[0 1 2]]" {
		t.Errorf("self match = %s", formatMaps(maps))
	}
}

func formatMaps(maps [][]int) string {
	out := "["
	for i, m := range maps {
		if i > 0 {
			out += " "
		}
		out += "["
		for j, a := range m {
			if j > 0 {
				out += " "
			}
			out += string(rune('0' + a))
		}
		out += "]"
	}
	return out + "]"
}
