package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/openmol/molscript/pkg/geom"
	"github.com/openmol/molscript/pkg/model"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "states.bolt"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStateRoundTrip(t *testing.T) {
	s := openTemp(t)
	m := model.NewStore()
	m.AddAtom(model.Atom{Element: "O", Pos: geom.P3{X: 1}})
	m.AddAtom(model.Atom{Element: "H", Pos: geom.P3{X: 2}})
	if _, err := m.AddBond(0, 1, model.BondSingle); err != nil {
		t.Fatal(err)
	}

	if err := s.PutState("Water", m.Snapshot()); err != nil {
		t.Fatal(err)
	}
	snap, err := s.State("water")
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Atoms) != 2 || len(snap.Bonds) != 1 {
		t.Fatalf("got %d atoms, %d bonds", len(snap.Atoms), len(snap.Bonds))
	}
	if snap.Atoms[1].Pos.X != 2 || snap.Group != "P1" {
		t.Errorf("snapshot not preserved: %+v", snap)
	}

	back := model.NewStore()
	back.Restore(snap)
	if back.AtomCount() != 2 || back.BondCount() != 1 {
		t.Errorf("restored model has %d atoms, %d bonds", back.AtomCount(), back.BondCount())
	}
}

func TestMissing(t *testing.T) {
	s := openTemp(t)
	if _, err := s.State("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("State: got %v, want ErrNotFound", err)
	}
	if err := s.Delete(KindSelection, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete: got %v, want ErrNotFound", err)
	}
}

func TestSelectionsAndVars(t *testing.T) {
	s := openTemp(t)
	if err := s.PutSelection("ring", []int{0, 2, 4}); err != nil {
		t.Fatal(err)
	}
	idx, err := s.Selection("RING")
	if err != nil {
		t.Fatal(err)
	}
	if len(idx) != 3 || idx[2] != 4 {
		t.Errorf("selection = %v", idx)
	}

	if err := s.PutVars("v", map[string]string{"d": "1.5", "name": `"x"`}); err != nil {
		t.Fatal(err)
	}
	vars, err := s.Vars("v")
	if err != nil {
		t.Fatal(err)
	}
	if vars["name"] != `"x"` {
		t.Errorf("vars = %v", vars)
	}
}

func TestListAndDelete(t *testing.T) {
	s := openTemp(t)
	for _, n := range []string{"b", "a", "c"} {
		if err := s.PutState(n, model.Snapshot{}); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Delete(KindState, "b"); err != nil {
		t.Fatal(err)
	}
	list, err := s.List(KindState)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Name != "a" || list[1].Name != "c" {
		t.Errorf("list = %+v", list)
	}
	if list[0].Saved.IsZero() {
		t.Error("saved time not recorded")
	}
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "states.bolt")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.PutSelection("keep", []int{7}); err != nil {
		t.Fatal(err)
	}
	if err := s.Backup(filepath.Join(t.TempDir(), "copy.bolt")); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	idx, err := s.Selection("keep")
	if err != nil || len(idx) != 1 || idx[0] != 7 {
		t.Errorf("after reopen: %v, %v", idx, err)
	}
}
