package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/openmol/molscript/pkg/eval"
	"github.com/openmol/molscript/pkg/geom"
	"github.com/openmol/molscript/pkg/value"
)

var showTopics = []string{"measurements", "polyhedra", "selected", "variables", "model",
	"spacegroup", "symmetry", "unitcell", "state", "saved", "commands"}

// show topic | show expr
//
// Topics are measurements, polyhedra, selected, variables, model,
// spacegroup (or symmetry), unitcell, state, saved and commands. Anything
// else is evaluated and shown as name = value.
func (s *Set) cmdShow(x *Exec) eval.Result {
	if x.done() {
		return eval.Fail(x.errorf("show what? (%s)", strings.Join(showTopics, ", ")))
	}
	if w, ok := x.word(showTopics...); ok {
		if err := x.end(); err != nil {
			return eval.Fail(err)
		}
		if w == "state" && x.Ctx.Mutator == nil {
			return eval.Fail(x.errorf("model is read-only"))
		}
		if x.Chk {
			return eval.DoneWith(value.Nil())
		}
		text, err := s.showTopic(x, w)
		if err != nil {
			return eval.Fail(err)
		}
		x.printf("%s", text)
		return eval.DoneWith(value.Nil())
	}
	src := x.rest()
	v, err := x.expr()
	if err != nil {
		return eval.Fail(err)
	}
	if err := x.end(); err != nil {
		return eval.Fail(err)
	}
	x.printf("%s = %s", src, v.Escape())
	return eval.DoneWith(value.Nil())
}

func (s *Set) showTopic(x *Exec, topic string) (string, error) {
	ctx := x.Ctx
	switch topic {
	case "commands":
		return strings.Join(s.Names(), " "), nil
	case "variables":
		names := make([]string, 0, len(ctx.Vars))
		for k := range ctx.Vars {
			names = append(names, k)
		}
		sort.Strings(names)
		lines := make([]string, len(names))
		for i, k := range names {
			lines[i] = k + " = " + ctx.Vars[k].Escape()
		}
		return strings.Join(lines, "\n"), nil
	case "saved":
		return s.savedList()
	}

	m, err := ctx.RequireModel(x.Name)
	if err != nil {
		return "", err
	}
	switch topic {
	case "measurements":
		if ctx.Mutator == nil {
			return "no measurements", nil
		}
		return measureList(ctx.Mutator), nil
	case "polyhedra":
		if ctx.Mutator == nil {
			return "no polyhedra", nil
		}
		return polyhedraList(ctx.Mutator), nil
	case "selected":
		bs, _ := m.Named("selected")
		return fmt.Sprintf("%d atoms selected: %s", bs.Cardinality(), bs.String()), nil
	case "model":
		var sb strings.Builder
		fmt.Fprintf(&sb, "atoms: %d\nbonds: %d\ngeneration: %d", m.AtomCount(), m.BondCount(), m.Generation())
		if sg := m.SpaceGroup(); sg != nil {
			fmt.Fprintf(&sb, "\nspace group: %s", sg.Name)
		}
		return sb.String(), nil
	case "spacegroup", "symmetry":
		sg := m.SpaceGroup()
		if sg == nil {
			return "no space group", nil
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "%s (#%d), %d operators", sg.Name, sg.Number, len(sg.Ops))
		for i, op := range sg.Ops {
			fmt.Fprintf(&sb, "\n%d\t%s", i+1, op.String())
		}
		return sb.String(), nil
	case "unitcell":
		uc := m.UnitCell()
		if uc == nil {
			return "no unit cell", nil
		}
		f := geom.FormatFloat
		return fmt.Sprintf("a=%s b=%s c=%s alpha=%s beta=%s gamma=%s",
			f(uc.A), f(uc.B), f(uc.C), f(uc.Alpha), f(uc.Beta), f(uc.Gamma)), nil
	case "state":
		return StateScript(ctx.Mutator), nil
	}
	return "", x.errorf("unknown topic %q", topic)
}
