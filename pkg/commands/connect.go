package commands

import (
	"math"

	"github.com/openmol/molscript/pkg/bitset"
	"github.com/openmol/molscript/pkg/eval"
	"github.com/openmol/molscript/pkg/model"
	"github.com/openmol/molscript/pkg/script"
	"github.com/openmol/molscript/pkg/value"
)

// AutoBondTolerance is added to the covalent radius sum by connect auto.
const AutoBondTolerance = 0.45

var bondOrders = map[string]int{
	"single":   model.BondSingle,
	"double":   model.BondDouble,
	"triple":   model.BondTriple,
	"aromatic": model.BondAromatic,
	"hbond":    model.BondHydrogen,
}

var orderWords = []string{"single", "double", "triple", "aromatic", "hbond"}

var connectModes = []string{"create", "modify", "modifyorcreate", "delete", "auto"}

type connectArgs struct {
	dist   []float64
	sets   []*bitset.BS
	order  int
	color  string
	mode   string
	nOrder bool // an order keyword was given
}

// connect [min [max]] [set1 [set2]] [single|double|triple|aromatic|hbond]
//
//	[color c] [create|modify|modifyOrCreate|delete|auto]
//
// One distance is the maximum; two are the minimum and maximum. Without
// sets the selection is used, or every atom when nothing is selected; one
// set bonds its atoms among themselves. Without any argument the whole
// model is bonded by covalent radii.
func cmdConnect(x *Exec) eval.Result {
	a, err := parseConnect(x)
	if err != nil {
		return eval.Fail(err)
	}
	if x.Chk {
		return eval.DoneWith(value.Nil())
	}
	mu := x.Ctx.Mutator
	set1, set2 := connectSets(x, a.sets)

	if a.mode == "auto" {
		mu.PushUndo()
		within := set1.Copy()
		within.Or(set2)
		n := model.AutoBond(mu, within, AutoBondTolerance)
		if a.color != "" {
			mu.SetShapeProperty("bonds", "color", a.color)
		}
		x.messagef("%d new bonds", n)
		return eval.DoneWith(value.Int(n))
	}

	lo, hi := 0.0, math.Inf(1)
	switch len(a.dist) {
	case 1:
		hi = a.dist[0]
	case 2:
		lo, hi = a.dist[0], a.dist[1]
	}

	// collect the edits, then apply them under one undo step
	var adds [][2]int
	var mods []int
	doomed := bitset.New()
	seen := make(map[[2]int]bool)
	for i := set1.NextSetBit(0); i >= 0; i = set1.NextSetBit(i + 1) {
		ai, ok := mu.Atom(i)
		if !ok {
			continue
		}
		for j := set2.NextSetBit(0); j >= 0; j = set2.NextSetBit(j + 1) {
			key := [2]int{min(i, j), max(i, j)}
			if i == j || seen[key] {
				continue
			}
			seen[key] = true
			aj, ok := mu.Atom(j)
			if !ok {
				continue
			}
			if d := ai.Pos.Distance(aj.Pos); d < lo || d > hi {
				continue
			}
			idx, exists := mu.BondBetween(i, j)
			switch {
			case a.mode == "delete":
				if exists {
					doomed.Set(idx)
				}
			case exists && a.mode != "create":
				mods = append(mods, idx)
			case !exists && a.mode != "modify":
				adds = append(adds, key)
			}
		}
	}

	if a.mode == "delete" {
		n := 0
		if !doomed.IsEmpty() {
			mu.PushUndo()
			n = mu.DeleteBonds(doomed)
		}
		x.messagef("%d connections deleted", n)
		return eval.DoneWith(value.Int(n))
	}
	mu.PushUndo()
	if err := applyBonds(mu, adds, mods, a.order); err != nil {
		mu.Undo()
		return eval.Fail(eval.External(x.Name, err))
	}
	if a.color != "" {
		mu.SetShapeProperty("bonds", "color", a.color)
	}
	x.messagef("%d new bonds; %d modified", len(adds), len(mods))
	return eval.DoneWith(value.Int(len(adds) + len(mods)))
}

func applyBonds(mu model.Mutator, adds [][2]int, mods []int, order int) error {
	for _, idx := range mods {
		if err := mu.SetBondOrder(idx, order); err != nil {
			return err
		}
	}
	for _, p := range adds {
		if _, err := mu.AddBond(p[0], p[1], order); err != nil {
			return err
		}
	}
	return nil
}

func parseConnect(x *Exec) (connectArgs, error) {
	a := connectArgs{order: model.BondSingle, mode: "modifyorcreate"}
	if x.done() {
		a.mode = "auto"
		return a, nil
	}
	keywords := append(append([]string{"color"}, connectModes...), orderWords...)
	for !x.done() {
		if w, ok := x.word(connectModes...); ok {
			a.mode = w
			continue
		}
		if w, ok := x.word(orderWords...); ok {
			a.order, a.nOrder = bondOrders[w], true
			continue
		}
		if _, ok := x.word("color"); ok {
			c, err := x.name("color")
			if err != nil {
				return a, err
			}
			a.color = c
			continue
		}
		if !x.startsExpr(keywords...) {
			return a, x.errorf("unexpected %s", x.peek())
		}
		v, err := x.expr()
		if err != nil {
			return a, err
		}
		switch {
		case v.Kind().IsNumeric():
			if len(a.sets) > 0 {
				return a, x.errorf("distances must precede atom sets")
			}
			if len(a.dist) == 2 {
				return a, x.errorf("at most two distances")
			}
			a.dist = append(a.dist, v.AsDouble())
		case eval.IsSet(v) || (x.Chk && v.IsNil()):
			if len(a.sets) == 2 {
				return a, x.errorf("at most two atom sets")
			}
			bs, err := x.bits(v)
			if err != nil {
				return a, err
			}
			a.sets = append(a.sets, bs)
		default:
			return a, x.errorf("expected a distance or an atom set, got %s", v.Kind())
		}
	}
	if a.mode == "auto" && (a.nOrder || len(a.dist) > 0) {
		return a, x.errorf("auto bonding takes no distances or bond type")
	}
	if a.mode == "delete" && (a.nOrder || a.color != "") {
		return a, x.errorf("bond type or color cannot be combined with delete")
	}
	if len(a.dist) == 2 && a.dist[0] > a.dist[1] {
		return a, x.errorf("minimum distance %g exceeds maximum %g", a.dist[0], a.dist[1])
	}
	for _, d := range a.dist {
		if d < 0 {
			return a, x.errorf("negative distance %g", d)
		}
	}
	return a, nil
}

func connectSets(x *Exec, sets []*bitset.BS) (*bitset.BS, *bitset.BS) {
	switch len(sets) {
	case 2:
		return sets[0], sets[1]
	case 1:
		return sets[0], sets[0]
	}
	m := x.Ctx.Model
	bs, _ := m.Named("selected")
	if bs.IsEmpty() {
		bs = bitset.Range(0, m.AtomCount())
	}
	return bs, bs
}

// name reads a color or similar name: a bare word, taken literally, or
// any expression giving text.
func (x *Exec) name(what string) (string, error) {
	if t := x.peek(); t.Tok == script.TokIdent {
		if _, ok := x.Ctx.Lookup(t.Text); !ok {
			x.pos++
			return t.Text, nil
		}
	}
	if x.done() {
		return "", x.errorf("missing %s", what)
	}
	return x.str()
}
