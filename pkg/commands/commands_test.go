package commands_test

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"

	"github.com/openmol/molscript/pkg/archive"
	"github.com/openmol/molscript/pkg/commands"
	"github.com/openmol/molscript/pkg/eval"
	"github.com/openmol/molscript/pkg/eval/functions"
	"github.com/openmol/molscript/pkg/events"
	"github.com/openmol/molscript/pkg/geom"
	"github.com/openmol/molscript/pkg/model"
	"github.com/openmol/molscript/pkg/store"
)

// methane returns CH4 with C-H 1.09 apart and an oxygen 5 away, unbonded.
func methane() *model.Store {
	a := 1.09 / 1.7320508075688772
	s := model.NewStore()
	s.AddAtom(model.Atom{Element: "C"})
	for _, p := range []geom.P3{{X: a, Y: a, Z: a}, {X: a, Y: -a, Z: -a}, {X: -a, Y: a, Z: -a}, {X: -a, Y: -a, Z: a}} {
		s.AddAtom(model.Atom{Element: "H", Pos: p})
	}
	s.AddAtom(model.Atom{Element: "O", Pos: geom.P3{X: 5}})
	return s
}

type fixture struct {
	model *model.Store
	ctx   *eval.EvalContext
	sess  *eval.Session
	rec   *events.Recorder
	dir   string
}

func newFixture(t *testing.T, st *store.Store) *fixture {
	t.Helper()
	s := methane()
	ctx := eval.NewEvalContext(s)
	functions.RegisterAll(ctx)
	ctx.Bus = events.NewBus()
	ctx.Settings.OutputDir = t.TempDir()
	sess := eval.NewSession(ctx, commands.New(st))
	rec := &events.Recorder{}
	ctx.Bus.Subscribe(sess.ID, rec)
	return &fixture{model: s, ctx: ctx, sess: sess, rec: rec, dir: ctx.Settings.OutputDir}
}

func (f *fixture) run(t *testing.T, src string) eval.Result {
	t.Helper()
	res := f.sess.Run(src)
	require.NoError(t, res.Err, "script %q", src)
	return res
}

func (f *fixture) fail(t *testing.T, src, want string) error {
	t.Helper()
	res := f.sess.Run(src)
	require.Equal(t, eval.Failed, res.Status, "script %q", src)
	require.Contains(t, res.Err.Error(), want)
	return res.Err
}

func (f *fixture) selected() int {
	bs, _ := f.model.Named("selected")
	return bs.Cardinality()
}

// --- connect ---

func TestConnectAuto(t *testing.T) {
	f := newFixture(t, nil)
	res := f.run(t, "connect")
	require.Equal(t, "4", res.Value.Escape())
	require.Equal(t, 4, f.model.BondCount())
	require.Contains(t, f.rec.Texts(events.EvMessage), "4 new bonds")
}

func TestConnectDistancesAndModes(t *testing.T) {
	f := newFixture(t, nil)

	res := f.run(t, "connect 1.0 ({0}) ({1:4})")
	require.Equal(t, "0", res.Value.Escape())
	require.Equal(t, 0, f.model.BondCount())

	f.run(t, "connect 1.2 ({0}) ({1:4})")
	require.Equal(t, 4, f.model.BondCount())
	require.Contains(t, f.rec.Texts(events.EvMessage), "4 new bonds; 0 modified")

	f.run(t, "connect ({0}) ({1}) double modify")
	i, ok := f.model.BondBetween(0, 1)
	require.True(t, ok)
	b, _ := f.model.Bond(i)
	require.Equal(t, model.BondDouble, b.Order)

	// create leaves existing bonds alone
	f.run(t, "connect ({0}) ({1}) triple create")
	b, _ = f.model.Bond(i)
	require.Equal(t, model.BondDouble, b.Order)

	// modify never creates
	f.run(t, "connect ({0}) ({5}) modify")
	_, ok = f.model.BondBetween(0, 5)
	require.False(t, ok)

	f.run(t, "connect ({0}) ({1:2}) delete")
	require.Equal(t, 2, f.model.BondCount())
	require.Contains(t, f.rec.Texts(events.EvMessage), "2 connections deleted")

	f.run(t, "connect ({0}) ({5}) aromatic color red")
	i, ok = f.model.BondBetween(0, 5)
	require.True(t, ok)
	b, _ = f.model.Bond(i)
	require.Equal(t, model.BondAromatic, b.Order)
	c, _ := f.model.ShapeProperty("bonds", "color")
	require.Equal(t, "red", c)
}

func TestConnectErrors(t *testing.T) {
	f := newFixture(t, nil)
	f.fail(t, "connect ({0}) ({1}) double delete", "cannot be combined with delete")
	f.fail(t, "connect ({0}) ({1}) color red delete", "cannot be combined with delete")
	f.fail(t, "connect 2 1 ({0})", "exceeds maximum")
	f.fail(t, "connect ({0}) ({1}) ({2})", "at most two atom sets")
	f.fail(t, "connect ({0}) 1.5", "distances must precede atom sets")
	f.fail(t, `connect "x"`, "expected a distance or an atom set")
	require.Equal(t, 0, f.model.BondCount())
}

func TestConnectAutoArguments(t *testing.T) {
	f := newFixture(t, nil)
	f.fail(t, "connect 1.5 ({0}) auto", "auto bonding takes no distances or bond type")
	f.fail(t, "connect ({0:4}) double auto", "auto bonding takes no distances or bond type")
	require.Equal(t, 0, f.model.BondCount())

	res := f.run(t, "connect {C} {H} auto color yellow")
	require.Equal(t, "4", res.Value.Escape())
	c, _ := f.model.ShapeProperty("bonds", "color")
	require.Equal(t, "yellow", c)
}

func TestConnectIsOneUndoStep(t *testing.T) {
	f := newFixture(t, nil)
	f.run(t, "connect ({0}) ({5}) delete")
	f.fail(t, "undo", "nothing to undo")

	f.run(t, "connect ({0}) ({1})")
	f.run(t, "connect 2.0 ({0}) ({1:4}) double")
	require.Contains(t, f.rec.Texts(events.EvMessage), "3 new bonds; 1 modified")
	require.Equal(t, 4, f.model.BondCount())
	for _, b := range []int{1, 2, 3, 4} {
		i, ok := f.model.BondBetween(0, b)
		require.True(t, ok)
		bd, _ := f.model.Bond(i)
		require.Equal(t, model.BondDouble, bd.Order)
	}

	f.run(t, "undo")
	require.Equal(t, 1, f.model.BondCount())
	bd, _ := f.model.Bond(0)
	require.Equal(t, model.BondSingle, bd.Order)
}

// --- measure ---

func TestMeasureDistanceAndToggle(t *testing.T) {
	f := newFixture(t, nil)
	res := f.run(t, "measure ({0}) ({1})")
	vs, ok := res.Value.List()
	require.True(t, ok)
	require.Len(t, vs, 1)
	require.InDelta(t, 1.09, vs[0].AsDouble(), 1e-9)
	require.Len(t, f.model.Measurements(), 1)
	require.Equal(t, []string{"1.09 Å"}, f.rec.Texts(events.EvMeasure))

	// the same atoms in either order remove it again
	f.run(t, "measure ({1}) ({0})")
	require.Empty(t, f.model.Measurements())
}

func TestMeasureCombinations(t *testing.T) {
	f := newFixture(t, nil)
	f.run(t, "measure {C} {H}")
	require.Len(t, f.model.Measurements(), 4)

	f.run(t, "measure delete")
	require.Empty(t, f.model.Measurements())

	f.run(t, "measure {H} {C} {H}")
	ms := f.model.Measurements()
	require.Len(t, ms, 6)
	for _, m := range ms {
		require.Equal(t, "angle", m.Kind())
		require.InDelta(t, 109.4712, m.Value, 1e-3)
	}

	f.run(t, "measure delete 1")
	require.Len(t, f.model.Measurements(), 5)
	f.run(t, `measure delete "`+f.model.Measurements()[0].ID+`"`)
	require.Len(t, f.model.Measurements(), 4)
	f.run(t, "measure delete ({1})")
	for _, m := range f.model.Measurements() {
		require.NotContains(t, m.Atoms, 1)
	}
}

func TestMeasureModifiers(t *testing.T) {
	f := newFixture(t, nil)
	f.run(t, "measure range 0 1.0 {C} {H}")
	require.Empty(t, f.model.Measurements())

	f.run(t, `measure range 1.0 1.2 format "d=%VALUE" color blue {C} {H}`)
	ms := f.model.Measurements()
	require.Len(t, ms, 4)
	require.Equal(t, "blue", ms[0].Color)
	require.Equal(t, "d=1.09", commands.MeasureLabel(ms[0]))

	// a fixed point and a torsion
	f.run(t, "measure ({0}) {0 0 2}")
	require.Len(t, f.model.Measurements(), 5)
	last := f.model.Measurements()[4]
	require.Equal(t, []int{0, -1}, last.Atoms)
	require.InDelta(t, 2, last.Value, 1e-12)

	f.run(t, "measure ({1}) ({0}) ({2}) ({3})")
	last = f.model.Measurements()[5]
	require.Equal(t, "torsion", last.Kind())

	f.run(t, "measure list")
	out := f.rec.Texts(events.EvPrint)
	require.Contains(t, out[len(out)-1], "torsion")
}

func TestMeasureErrors(t *testing.T) {
	f := newFixture(t, nil)
	f.fail(t, "measure ({0})", "needs 2 to 4 atoms or points, got 1")
	f.fail(t, "measure ({0}) ({1}) ({2}) ({3}) ({4})", "got 5")
	f.fail(t, "measure range 2 1 ({0}) ({1})", "exceeds maximum")
	f.fail(t, "measure delete 3", "no measurement 3")
	f.fail(t, `measure delete "nosuch"`, `no measurement "nosuch"`)
}

// --- polyhedra ---

func TestPolyhedra(t *testing.T) {
	f := newFixture(t, nil)
	res := f.run(t, "polyhedra ({0})")
	require.Equal(t, "0", res.Value.Escape(), "no bonds, no vertices")

	f.run(t, "connect")
	f.run(t, "polyhedra ({0}) color green")
	ps := f.model.Polyhedra()
	require.Len(t, ps, 1)
	require.Equal(t, 0, ps[0].Center)
	require.Equal(t, []int{1, 2, 3, 4}, ps[0].Vertices)
	require.Len(t, ps[0].Faces, 4)
	require.Equal(t, "green", ps[0].Color)

	res = f.run(t, "polyhedra 6 8 ({0})")
	require.Equal(t, "0", res.Value.Escape())

	f.run(t, "polyhedra delete")
	require.Empty(t, f.model.Polyhedra())

	f.run(t, "connect all delete")
	f.run(t, "polyhedra radius 1.2 {C}")
	require.Len(t, f.model.Polyhedra(), 1)

	f.run(t, "polyhedra range 1.0 1.2 {C} to ({1:3})")
	require.Len(t, f.model.Polyhedra()[0].Vertices, 3)
	require.Len(t, f.model.Polyhedra()[0].Faces, 1)

	f.fail(t, "polyhedra 2 {C}", "at least 3 vertices")
	f.fail(t, "polyhedra radius 0 {C}", "radius must be positive")
}

// --- select, print, echo, show ---

func TestSelectPrintEcho(t *testing.T) {
	f := newFixture(t, nil)
	f.run(t, "select {H}")
	require.Equal(t, 4, f.selected())
	require.Contains(t, f.rec.Texts(events.EvMessage), "4 atoms selected")

	f.run(t, "select none")
	require.Equal(t, 0, f.selected())
	f.run(t, "select")
	require.Equal(t, 6, f.selected())

	f.run(t, `print "n=" + count({H})`)
	f.run(t, "echo hello   world")
	require.Equal(t, []string{"n=4"}, f.rec.Texts(events.EvPrint))
	require.Equal(t, []string{"hello   world"}, f.rec.Texts(events.EvEcho))
}

func TestShow(t *testing.T) {
	f := newFixture(t, nil)
	f.run(t, "x = [1, 2]\nshow variables\nshow model\nshow 1 + 2\nshow commands")
	out := f.rec.Texts(events.EvPrint)
	require.Len(t, out, 4)
	require.Equal(t, "x = [1, 2]", out[0])
	require.Contains(t, out[1], "atoms: 6")
	require.Equal(t, "1 + 2 = 3", out[2])
	require.Contains(t, out[3], "polyhedra")

	f.fail(t, "show", "show what?")
}

// --- delay, undo, redo ---

func TestDelaySuspends(t *testing.T) {
	f := newFixture(t, nil)
	res := f.sess.Run("delay 0.5\nprint 1")
	require.Equal(t, eval.Suspended, res.Status)
	require.Equal(t, 500*time.Millisecond, res.Cont.Delay)
	require.Empty(t, f.rec.Texts(events.EvPrint))

	res = f.sess.Resume(res.Cont)
	require.Equal(t, eval.Done, res.Status)
	require.Equal(t, []string{"1"}, f.rec.Texts(events.EvPrint))

	f.fail(t, "delay -1", "negative delay")
}

func TestUndoRedo(t *testing.T) {
	f := newFixture(t, nil)
	f.fail(t, "undo", "nothing to undo")

	gen := f.model.Generation()
	f.run(t, "connect\nundo")
	require.Equal(t, 0, f.model.BondCount())
	require.Greater(t, f.model.Generation(), gen)
	require.NotEmpty(t, f.rec.Texts(events.EvModelChange))

	f.run(t, "redo")
	require.Equal(t, 4, f.model.BondCount())
	f.fail(t, "redo", "nothing to redo")
}

// --- save, restore ---

func TestSaveRestoreInMemory(t *testing.T) {
	f := newFixture(t, nil)
	f.run(t, "save state a\nconnect\nrestore state a")
	require.Equal(t, 0, f.model.BondCount())

	f.run(t, "x = 5\nsave vars v\nx = 7\nrestore vars v")
	require.Equal(t, "5", f.ctx.Vars["x"].Escape())

	f.run(t, "select {H}\nsave selection s\nselect none\nrestore selection s")
	require.Equal(t, 4, f.selected())

	err := f.fail(t, "restore state nosuch", "nothing saved")
	require.ErrorIs(t, err, store.ErrNotFound)
	require.ErrorIs(t, err, eval.ErrInvalidArgument)
}

func TestSaveRestoreBolt(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "saved.db"))
	require.NoError(t, err)
	defer st.Close()

	f := newFixture(t, st)
	f.run(t, "connect\nsave state bonded\nselect {H}\nsave selection hydrogens")

	// a second session over the same database
	g := newFixture(t, st)
	g.run(t, "restore state bonded\nshow saved")
	require.Equal(t, 4, g.model.BondCount())
	out := g.rec.Texts(events.EvPrint)
	require.Contains(t, out[0], "state\tbonded")
	require.Contains(t, out[0], "selection\thydrogens")

	g.run(t, "restore selection hydrogens")
	require.Equal(t, 4, g.selected())
}

// --- write ---

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func TestWriteFormats(t *testing.T) {
	f := newFixture(t, nil)
	f.run(t, "connect")

	f.run(t, `write xyz "m.xyz"`)
	require.True(t, strings.HasPrefix(string(readFile(t, filepath.Join(f.dir, "m.xyz"))), "6\nmolscript\nC "))

	f.run(t, `write "m.pdb"`)
	pdb := string(readFile(t, filepath.Join(f.dir, "m.pdb")))
	require.Contains(t, pdb, "HETATM    1 C1   UNK")
	require.Contains(t, pdb, "CONECT    1    2    3    4    5")
	require.True(t, strings.HasSuffix(pdb, "END\n"))

	f.run(t, `write "out/m.data" as json`)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(readFile(t, filepath.Join(f.dir, "out", "m.data")), &doc))
	require.Len(t, doc["atoms"], 6)
	require.Len(t, doc["bonds"], 4)

	require.Contains(t, f.rec.Texts(events.EvMessage)[1], "xyz written to m.xyz")
}

func TestWriteCompressed(t *testing.T) {
	f := newFixture(t, nil)
	f.run(t, `write "state.spt.xz"`)
	fh, err := os.Open(filepath.Join(f.dir, "state.spt.xz"))
	require.NoError(t, err)
	defer fh.Close()
	xr, err := xz.NewReader(fh)
	require.NoError(t, err)
	data, err := io.ReadAll(xr)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "# molscript state\n"))

	f.run(t, `write "model.lz4" as xyz`)
	fl, err := os.Open(filepath.Join(f.dir, "model.lz4"))
	require.NoError(t, err)
	defer fl.Close()
	data, err = io.ReadAll(lz4.NewReader(fl))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "6\n"))
}

func TestWriteZip(t *testing.T) {
	f := newFixture(t, nil)
	f.run(t, `write zip "bundle.zip"`)
	data := readFile(t, filepath.Join(f.dir, "bundle.zip"))
	m, files, err := archive.Read(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Equal(t, 6, m.Atoms)
	require.Equal(t, []string{"model.json", "model.xyz", "state.spt"}, archive.Members(m))
	require.True(t, strings.HasPrefix(string(files["model.xyz"]), "6\n"))
}

func TestWritePrintChannel(t *testing.T) {
	f := newFixture(t, nil)
	f.run(t, `s = "hello"`+"\nwrite var s")
	f.ctx.Settings.FileAccess = false
	f.run(t, `write xyz "m.xyz"`)

	out := f.rec.Texts(events.EvWrite)
	require.Len(t, out, 2)
	require.Equal(t, "hello\n", out[0])
	require.True(t, strings.HasPrefix(out[1], "6\n"))
	_, err := os.Stat(filepath.Join(f.dir, "m.xyz"))
	require.True(t, os.IsNotExist(err))
}

func TestWriteErrors(t *testing.T) {
	f := newFixture(t, nil)
	f.fail(t, `write png "x.png"`, "image output (png) is not supported")
	f.fail(t, `write "x.jpg"`, "not supported")
	f.fail(t, `write "x.foo"`, `cannot tell the file type of "x.foo"`)
	f.fail(t, "write", "write what?")
	f.fail(t, "write var nosuch", "undefined variable nosuch")
	f.fail(t, `write "a" as`, "expected a file type")
}

// --- state script ---

func TestStateScriptRebuildsModel(t *testing.T) {
	f := newFixture(t, nil)
	f.run(t, "connect\nconnect ({0}) ({1}) double\nmeasure ({0}) ({1})\nmeasure ({1}) ({0}) {0 0 3}\npolyhedra ({0})\nselect {H}")
	src := commands.StateScript(f.model)

	g := newFixture(t, nil)
	g.run(t, src)
	require.Equal(t, 4, g.model.BondCount())
	i, ok := g.model.BondBetween(0, 1)
	require.True(t, ok)
	b, _ := g.model.Bond(i)
	require.Equal(t, model.BondDouble, b.Order)
	require.Equal(t, 4, g.selected())

	want, got := f.model.Measurements(), g.model.Measurements()
	require.Len(t, got, 2)
	for k := range want {
		require.Equal(t, want[k].Atoms, got[k].Atoms)
		require.InDelta(t, want[k].Value, got[k].Value, 1e-9)
	}
	require.Len(t, g.model.Polyhedra(), 1)
	require.Equal(t, f.model.Polyhedra()[0].Vertices, g.model.Polyhedra()[0].Vertices)

	// running it twice gives the same state
	g.run(t, src)
	require.Len(t, g.model.Measurements(), 2)
	require.Equal(t, 4, g.model.BondCount())
}

// --- check mode ---

func TestCheckIsPure(t *testing.T) {
	f := newFixture(t, nil)
	f.run(t, "x = 1")
	before := f.model.Snapshot()
	gen := f.model.Generation()

	err := f.sess.Check(strings.Join([]string{
		"connect",
		"connect 1.2 {C} {H} double",
		"measure {C} {H}",
		"polyhedra radius 1.2 {C}",
		"select {H}",
		"save state a",
		"restore state nosuch",
		"undo",
		`write xyz "chk.xyz"`,
		"write zip " + `"b.zip"`,
		"delay 2",
		`print "x"`,
		"echo hi",
		"show model",
		"x = 2",
		"connect undefinedvar undefinedvar",
	}, "\n"))
	require.NoError(t, err)

	require.Equal(t, before, f.model.Snapshot())
	require.Equal(t, gen, f.model.Generation())
	require.Equal(t, "1", f.ctx.Vars["x"].Escape())
	require.Empty(t, f.rec.Events())
	_, err = os.Stat(filepath.Join(f.dir, "chk.xyz"))
	require.True(t, os.IsNotExist(err))
}

func TestCheckReportsEveryError(t *testing.T) {
	f := newFixture(t, nil)
	err := f.sess.Check("connect ({0}) ({1}) double delete\nprint 1\nmeasure ({0})\nwrite png")
	require.Error(t, err)
	msg := err.Error()
	require.Contains(t, msg, "cannot be combined with delete (line 1)")
	require.Contains(t, msg, "got 1 (line 3)")
	require.Contains(t, msg, "not supported (line 4)")
	require.Equal(t, 0, f.model.BondCount())
}

func TestCheckRejectsWhatRunRejects(t *testing.T) {
	bad := []string{
		"measure delete {1.5 2 3}",
		"measure delete [1,2]",
		"measure ({0})",
		"measure range 2 1 ({0}) ({1})",
		"connect 1.5 ({0}) auto",
		"connect ({0}) ({1}) double delete",
		`connect "x"`,
		"polyhedra 2 {C}",
		"polyhedra radius 0 {C}",
		`write png "x.png"`,
		`write "x.foo"`,
		"delay -1",
		"show",
	}
	for _, src := range bad {
		f := newFixture(t, nil)
		require.Error(t, f.sess.Check(src), "check %q", src)
		require.Equal(t, eval.Failed, f.sess.Run(src).Status, "run %q", src)
	}

	good := []string{
		"measure delete",
		"measure delete all",
		"measure delete ({1})",
		"measure delete 0.5 + 0.5",
		"connect {C} {H} auto",
		"connect 1.5 ({0}) ({1:4})",
		"polyhedra radius 1.2 {C}",
		"show model",
	}
	for _, src := range good {
		f := newFixture(t, nil)
		f.run(t, "measure {C} {H}")
		require.NoError(t, f.sess.Check(src), "check %q", src)
		f.run(t, src)
	}
}

// --- read-only models ---

type readOnly struct{ model.Model }

func TestReadOnlyModel(t *testing.T) {
	ctx := eval.NewEvalContext(readOnly{methane()})
	functions.RegisterAll(ctx)
	sess := eval.NewSession(ctx, commands.New(nil))

	res := sess.Run("connect")
	require.Equal(t, eval.Failed, res.Status)
	require.Contains(t, res.Err.Error(), "model is read-only")

	res = sess.Run(`write xyz`)
	require.Equal(t, eval.Done, res.Status)
	res = sess.Run(`write spt`)
	require.Equal(t, eval.Failed, res.Status)
	require.Contains(t, res.Err.Error(), "needs a writable model")

	require.Error(t, sess.Check("write spt"))
	require.Error(t, sess.Check("write zip"))
	require.Error(t, sess.Check("show state"))
	require.Error(t, sess.Check("connect"))
}

func TestNames(t *testing.T) {
	cmds := commands.New(nil)
	names := cmds.Names()
	for _, want := range []string{"connect", "measure", "write", "polyhedra", "show", "select", "print", "echo", "delay", "undo", "redo", "save", "restore"} {
		require.Contains(t, names, want)
		require.True(t, cmds.Has(strings.ToUpper(want)))
	}
	require.False(t, cmds.Has("nosuch"))
}
