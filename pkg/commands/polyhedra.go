package commands

import (
	"fmt"
	"strings"

	"github.com/openmol/molscript/pkg/bitset"
	"github.com/openmol/molscript/pkg/eval"
	"github.com/openmol/molscript/pkg/geom"
	"github.com/openmol/molscript/pkg/model"
	"github.com/openmol/molscript/pkg/script"
	"github.com/openmol/molscript/pkg/value"
)

// maxPolyhedronVertices skips centres with more neighbours than this.
const maxPolyhedronVertices = 24

type polyArgs struct {
	counts   []int
	radius   bool
	min, max float64
	centers  *bitset.BS
	vertices *bitset.BS
	color    string
}

// polyhedra has these forms:
//
//	polyhedra [n ...] [bonds | radius r | range min max] centers [to set] [color c]
//	polyhedra delete [centers]
//	polyhedra list
//
// Vertices are the bonded neighbours of each centre, or the atoms within
// a radius or distance range, optionally restricted to the set after TO.
// Leading integers list the vertex counts to accept.
func cmdPolyhedra(x *Exec) eval.Result {
	switch {
	case x.isWord("delete"):
		x.word("delete")
		var bs *bitset.BS
		var err error
		if x.done() {
			bs = bitset.Range(0, x.Ctx.Model.AtomCount())
		} else if bs, err = x.atoms(); err != nil {
			return eval.Fail(err)
		}
		if err := x.end(); err != nil {
			return eval.Fail(err)
		}
		if x.Chk {
			return eval.DoneWith(value.Nil())
		}
		x.Ctx.Mutator.PushUndo()
		n := x.Ctx.Mutator.DeletePolyhedra(bs)
		x.messagef("%d polyhedra deleted", n)
		return eval.DoneWith(value.Int(n))
	case x.isWord("list"):
		x.word("list")
		if err := x.end(); err != nil {
			return eval.Fail(err)
		}
		if !x.Chk {
			x.printf("%s", polyhedraList(x.Ctx.Mutator))
		}
		return eval.DoneWith(value.Nil())
	}

	a, err := parsePolyhedra(x)
	if err != nil {
		return eval.Fail(err)
	}
	if x.Chk {
		return eval.DoneWith(value.Nil())
	}
	mu := x.Ctx.Mutator
	var built []model.Polyhedron
	for c := a.centers.NextSetBit(0); c >= 0; c = a.centers.NextSetBit(c + 1) {
		verts := polyVertices(mu, c, a)
		n := verts.Cardinality()
		if n < 3 || n > maxPolyhedronVertices || (len(a.counts) > 0 && !containsInt(a.counts, n)) {
			continue
		}
		idx := verts.Indices()
		faces := geom.ConvexFaces(model.Points(mu, verts))
		for k, f := range faces {
			faces[k] = [3]int{idx[f[0]], idx[f[1]], idx[f[2]]}
		}
		built = append(built, model.Polyhedron{Center: c, Vertices: idx, Color: a.color, Faces: faces})
	}
	if len(built) > 0 {
		mu.PushUndo()
		for _, p := range built {
			mu.AddPolyhedron(p)
		}
	}
	x.messagef("%d polyhedra created", len(built))
	return eval.DoneWith(value.Int(len(built)))
}

func parsePolyhedra(x *Exec) (polyArgs, error) {
	var a polyArgs
	keywords := []string{"bonds", "radius", "range", "to", "color"}
	for x.peek().Tok == script.TokInteger {
		n := x.peek().IntValue
		x.pos++
		if n < 3 {
			return a, x.errorf("a polyhedron needs at least 3 vertices, got %d", n)
		}
		a.counts = append(a.counts, n)
	}
	for !x.done() {
		switch {
		case x.isWord("bonds"):
			x.word("bonds")
			a.radius = false
		case x.isWord("radius"):
			x.word("radius")
			r, err := x.number()
			if err != nil {
				return a, err
			}
			a.radius, a.min, a.max = true, 0, r
		case x.isWord("range"):
			x.word("range")
			lo, err := x.number()
			if err != nil {
				return a, err
			}
			hi, err := x.number()
			if err != nil {
				return a, err
			}
			if lo > hi {
				return a, x.errorf("range minimum %g exceeds maximum %g", lo, hi)
			}
			a.radius, a.min, a.max = true, lo, hi
		case x.isWord("to"):
			x.word("to")
			bs, err := x.atoms()
			if err != nil {
				return a, err
			}
			a.vertices = bs
		case x.isWord("color"):
			x.word("color")
			c, err := x.name("color")
			if err != nil {
				return a, err
			}
			a.color = c
		case x.startsExpr(keywords...) && a.centers == nil:
			bs, err := x.atoms()
			if err != nil {
				return a, err
			}
			a.centers = bs
		default:
			return a, x.errorf("unexpected %s", x.peek())
		}
	}
	if a.centers == nil {
		if x.Chk {
			a.centers = bitset.New()
		} else {
			a.centers, _ = x.Ctx.Model.Named("selected")
		}
	}
	if a.radius && a.max <= 0 {
		return a, x.errorf("radius must be positive")
	}
	return a, nil
}

func polyVertices(m model.Model, c int, a polyArgs) *bitset.BS {
	verts := bitset.New()
	center, _ := m.Atom(c)
	if a.radius {
		near := m.Within(center.Pos, a.max)
		for i := near.NextSetBit(0); i >= 0; i = near.NextSetBit(i + 1) {
			at, _ := m.Atom(i)
			if i != c && center.Pos.Distance(at.Pos) >= a.min {
				verts.Set(i)
			}
		}
	} else {
		for _, b := range m.Bonded(c) {
			verts.Set(b.Other(c))
		}
	}
	if a.vertices != nil {
		verts.And(a.vertices)
	}
	return verts
}

func containsInt(xs []int, n int) bool {
	for _, v := range xs {
		if v == n {
			return true
		}
	}
	return false
}

func polyhedraList(m model.Mutator) string {
	ps := m.Polyhedra()
	if len(ps) == 0 {
		return "no polyhedra"
	}
	var sb strings.Builder
	for i, p := range ps {
		if i > 0 {
			sb.WriteByte('\n')
		}
		a, _ := m.Atom(p.Center)
		fmt.Fprintf(&sb, "%s%d\t%d vertices\t%d faces", a.Element, p.Center+1, len(p.Vertices), len(p.Faces))
		if p.Color != "" {
			fmt.Fprintf(&sb, "\t%s", p.Color)
		}
	}
	return sb.String()
}
