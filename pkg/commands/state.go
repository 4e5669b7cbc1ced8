package commands

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/openmol/molscript/pkg/bitset"
	"github.com/openmol/molscript/pkg/eval"
	"github.com/openmol/molscript/pkg/model"
	"github.com/openmol/molscript/pkg/script"
	"github.com/openmol/molscript/pkg/store"
	"github.com/openmol/molscript/pkg/value"
)

// DefaultSaveName is used when save or restore names nothing.
const DefaultSaveName = "default"

var saveKinds = map[string]store.Kind{
	"state":     store.KindState,
	"selection": store.KindSelection,
	"vars":      store.KindVars,
}

// label reads a bare word or a string literal.
func (x *Exec) label(what string) (string, error) {
	t := x.peek()
	switch t.Tok {
	case script.TokIdent:
		x.pos++
		return t.Text, nil
	case script.TokString:
		x.pos++
		return t.Value.AsString(), nil
	}
	return "", x.errorf("expected %s, found %s", what, t)
}

func parseSaved(x *Exec) (store.Kind, string, error) {
	kind := store.KindState
	if w, ok := x.word("state", "selection", "vars"); ok {
		kind = saveKinds[w]
	}
	name := DefaultSaveName
	if !x.done() {
		var err error
		if name, err = x.label("a name"); err != nil {
			return kind, "", err
		}
	}
	if err := x.end(); err != nil {
		return kind, "", err
	}
	if strings.TrimSpace(name) == "" {
		return kind, "", x.errorf("empty name")
	}
	return kind, name, nil
}

// save [state|selection|vars] [name]
func (s *Set) cmdSave(x *Exec) eval.Result {
	kind, name, err := parseSaved(x)
	if err != nil {
		return eval.Fail(err)
	}
	if x.Chk {
		return eval.DoneWith(value.Nil())
	}
	mu := x.Ctx.Mutator
	switch kind {
	case store.KindState:
		err = s.putState(name, mu.Snapshot())
	case store.KindSelection:
		bs, _ := mu.Named("selected")
		err = s.putSelection(name, bs.Indices())
	case store.KindVars:
		vars := make(map[string]string, len(x.Ctx.Vars))
		for k, v := range x.Ctx.Vars {
			vars[k] = v.Escape()
		}
		err = s.putVars(name, vars)
	}
	if err != nil {
		return eval.Fail(eval.External(x.Name, err))
	}
	x.messagef("%s %q saved", kind, name)
	return eval.DoneWith(value.Nil())
}

// restore [state|selection|vars] [name]
func (s *Set) cmdRestore(x *Exec) eval.Result {
	kind, name, err := parseSaved(x)
	if err != nil {
		return eval.Fail(err)
	}
	if x.Chk {
		return eval.DoneWith(value.Nil())
	}
	mu := x.Ctx.Mutator
	switch kind {
	case store.KindState:
		snap, err := s.state(name)
		if err != nil {
			return s.restoreFailed(x, err)
		}
		mu.PushUndo()
		mu.Restore(snap)
		x.modelChanged("restore state " + name)
	case store.KindSelection:
		idx, err := s.selection(name)
		if err != nil {
			return s.restoreFailed(x, err)
		}
		mu.Select(bitset.Of(idx...))
	case store.KindVars:
		vars, err := s.varSet(name)
		if err != nil {
			return s.restoreFailed(x, err)
		}
		for k, src := range vars {
			v, err := x.Ctx.EvalString(src)
			if err != nil {
				log.Printf("commands: restore vars %q: skipping %s: %v", name, k, err)
				continue
			}
			x.Ctx.SetVar(k, v)
		}
	}
	x.messagef("%s %q restored", kind, name)
	return eval.DoneWith(value.Nil())
}

func (s *Set) restoreFailed(x *Exec, err error) eval.Result {
	if errors.Is(err, store.ErrNotFound) {
		return eval.Fail(&eval.ScriptError{Kind: eval.KindInvalidArgument, Func: x.Name, Msg: "nothing saved", Line: x.Line, Err: err})
	}
	return eval.Fail(eval.External(x.Name, err))
}

// --- Saved item storage: bbolt when configured, else memory ---

func (s *Set) putState(name string, snap model.Snapshot) error {
	if s.store != nil {
		return s.store.PutState(name, snap)
	}
	s.states[strings.ToLower(name)] = snap
	return nil
}

func (s *Set) state(name string) (model.Snapshot, error) {
	if s.store != nil {
		return s.store.State(name)
	}
	snap, ok := s.states[strings.ToLower(name)]
	if !ok {
		return snap, fmt.Errorf("%w: state %q", store.ErrNotFound, name)
	}
	return snap, nil
}

func (s *Set) putSelection(name string, idx []int) error {
	if s.store != nil {
		return s.store.PutSelection(name, idx)
	}
	s.selections[strings.ToLower(name)] = idx
	return nil
}

func (s *Set) selection(name string) ([]int, error) {
	if s.store != nil {
		return s.store.Selection(name)
	}
	idx, ok := s.selections[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: selection %q", store.ErrNotFound, name)
	}
	return idx, nil
}

func (s *Set) putVars(name string, vars map[string]string) error {
	if s.store != nil {
		return s.store.PutVars(name, vars)
	}
	s.vars[strings.ToLower(name)] = vars
	return nil
}

func (s *Set) varSet(name string) (map[string]string, error) {
	if s.store != nil {
		return s.store.Vars(name)
	}
	vars, ok := s.vars[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: vars %q", store.ErrNotFound, name)
	}
	return vars, nil
}

func (s *Set) savedList() (string, error) {
	var lines []string
	for _, kind := range []store.Kind{store.KindState, store.KindSelection, store.KindVars} {
		if s.store != nil {
			entries, err := s.store.List(kind)
			if err != nil {
				return "", err
			}
			for _, e := range entries {
				lines = append(lines, fmt.Sprintf("%s\t%s\t%s", kind, e.Name, e.Saved.Format("2006-01-02 15:04:05")))
			}
			continue
		}
		var names []string
		switch kind {
		case store.KindState:
			for k := range s.states {
				names = append(names, k)
			}
		case store.KindSelection:
			for k := range s.selections {
				names = append(names, k)
			}
		case store.KindVars:
			for k := range s.vars {
				names = append(names, k)
			}
		}
		sort.Strings(names)
		for _, n := range names {
			lines = append(lines, fmt.Sprintf("%s\t%s", kind, n))
		}
	}
	if len(lines) == 0 {
		return "nothing saved", nil
	}
	return strings.Join(lines, "\n"), nil
}

// --- State script ---

// StateScript renders a script that rebuilds the bonds, selection,
// measurements and polyhedra of m over the same atoms.
func StateScript(m model.Mutator) string {
	var sb strings.Builder
	sb.WriteString("# molscript state\n")
	fmt.Fprintf(&sb, "# %d atoms, %d bonds\n", m.AtomCount(), m.BondCount())
	if m.BondCount() > 0 {
		sb.WriteString("connect all delete\n")
	}
	color, colored := m.ShapeProperty("bonds", "color")
	for i := 0; i < m.BondCount(); i++ {
		b, _ := m.Bond(i)
		order := "single"
		for w, o := range bondOrders {
			if o == b.Order {
				order = w
			}
		}
		fmt.Fprintf(&sb, "connect %s %s %s", bitset.Of(b.A).String(), bitset.Of(b.B).String(), order)
		if colored && i == m.BondCount()-1 {
			fmt.Fprintf(&sb, " color %s", value.String(color).Escape())
		}
		sb.WriteString(" create\n")
	}
	if sel, _ := m.Named("selected"); sel.IsEmpty() {
		sb.WriteString("select none\n")
	} else {
		fmt.Fprintf(&sb, "select %s\n", sel.String())
	}

	ms := m.Measurements()
	if len(ms) > 0 {
		sb.WriteString("measure delete\n")
	}
	for _, ms := range ms {
		sb.WriteString("measure")
		if ms.Color != "" {
			fmt.Fprintf(&sb, " color %s", value.String(ms.Color).Escape())
		}
		if ms.Format != "" && ms.Format != DefaultMeasureFormat {
			fmt.Fprintf(&sb, " format %s", value.String(ms.Format).Escape())
		}
		for k, i := range ms.Atoms {
			if i >= 0 {
				fmt.Fprintf(&sb, " %s", bitset.Of(i).String())
			} else {
				fmt.Fprintf(&sb, " %s", ms.Points[k].String())
			}
		}
		sb.WriteByte('\n')
	}

	ps := m.Polyhedra()
	if len(ps) > 0 {
		sb.WriteString("polyhedra delete\n")
	}
	for _, p := range ps {
		center, _ := m.Atom(p.Center)
		reach := 0.0
		for _, v := range p.Vertices {
			if a, ok := m.Atom(v); ok {
				reach = max(reach, center.Pos.Distance(a.Pos))
			}
		}
		fmt.Fprintf(&sb, "polyhedra radius %.4f %s to %s", reach+0.001, bitset.Of(p.Center).String(), bitset.Of(p.Vertices...).String())
		if p.Color != "" {
			fmt.Fprintf(&sb, " color %s", value.String(p.Color).Escape())
		}
		sb.WriteByte('\n')
	}
	if v, ok := m.ShapeProperty("measures", "visible"); ok && v == "false" {
		sb.WriteString("measure off\n")
	}
	return sb.String()
}
