package symmetry

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/openmol/molscript/pkg/geom"
)

// Wyckoff is one Wyckoff position of a space group. Coord is the
// representative triplet of the position, e.g. "0,y,1/2".
type Wyckoff struct {
	Letter       string
	Multiplicity int
	Coord        string
	Symmetry     string

	rep SymOp
}

// SpaceGroup is a named list of operators in fractional space. Ops[0] is
// always the identity.
type SpaceGroup struct {
	Name    string
	Number  int
	Ops     []SymOp
	Wyckoff []Wyckoff
}

// NewSpaceGroup builds a group from operator triplets; the identity is
// inserted first when missing.
func NewSpaceGroup(name string, number int, xyz []string) (*SpaceGroup, error) {
	sg := &SpaceGroup{Name: name, Number: number}
	for _, s := range xyz {
		op, err := Parse(s)
		if err != nil {
			return nil, err
		}
		sg.Ops = append(sg.Ops, op)
	}
	if len(sg.Ops) == 0 || !sg.Ops[0].Equivalent(Identity(), Tolerance) {
		found := -1
		for i, op := range sg.Ops {
			if op.Equivalent(Identity(), Tolerance) {
				found = i
				break
			}
		}
		if found > 0 {
			sg.Ops[0], sg.Ops[found] = sg.Ops[found], sg.Ops[0]
		} else {
			sg.Ops = append([]SymOp{Identity()}, sg.Ops...)
		}
	}
	return sg, nil
}

func (sg *SpaceGroup) addWyckoff(letter string, mult int, coord, site string) {
	sg.Wyckoff = append(sg.Wyckoff, Wyckoff{Letter: letter, Multiplicity: mult, Coord: coord, Symmetry: site, rep: MustParse(coord)})
}

// Operator returns the 1-based operator n.
func (sg *SpaceGroup) Operator(n int) (SymOp, bool) {
	if n < 1 || n > len(sg.Ops) {
		return SymOp{}, false
	}
	return sg.Ops[n-1], true
}

// IndexOf returns the 0-based index of the operator lattice-equivalent to
// op, or -1.
func (sg *SpaceGroup) IndexOf(op SymOp) int {
	for i, o := range sg.Ops {
		if o.Equivalent(op, Tolerance) {
			return i
		}
	}
	return -1
}

// Invariant returns the 0-based indices of the operators that map the
// fractional point p onto itself modulo lattice translations. The identity
// always qualifies, so a general position yields [0].
func (sg *SpaceGroup) Invariant(p geom.P3, tol float64) []int {
	if tol <= 0 {
		tol = Tolerance
	}
	var out []int
	for i, op := range sg.Ops {
		if isLattice(op.Apply(p).Sub(p), tol) {
			out = append(out, i)
		}
	}
	return out
}

// Orbit returns the distinct images of p reduced into the unit cell.
func (sg *SpaceGroup) Orbit(p geom.P3, tol float64) []geom.P3 {
	if tol <= 0 {
		tol = Tolerance
	}
	var out []geom.P3
	for _, op := range sg.Ops {
		q := reduce(op.Apply(p))
		dup := false
		for _, o := range out {
			if isLattice(q.Sub(o), tol) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, q)
		}
	}
	return out
}

func reduce(p geom.P3) geom.P3 {
	return geom.P3{X: frac(p.X), Y: frac(p.Y), Z: frac(p.Z)}
}

// WyckoffOf returns the most special Wyckoff position containing the
// fractional point p.
func (sg *SpaceGroup) WyckoffOf(p geom.P3, tol float64) (Wyckoff, bool) {
	if tol <= 0 {
		tol = Tolerance
	}
	for _, w := range sg.Wyckoff {
		for _, op := range sg.Ops {
			if w.matches(op.Apply(p), tol) {
				return w, true
			}
		}
	}
	return Wyckoff{}, false
}

// matches reports whether q can be written as rep(x,y,z) modulo the lattice
// for some free parameters.
func (w Wyckoff) matches(q geom.P3, tol float64) bool {
	var v [3]float64
	var set [3]bool
	for r := 0; r < 3; r++ {
		row := w.rep.Rot[r]
		nz, col := 0, -1
		for c := 0; c < 3; c++ {
			if math.Abs(row[c]) > 1e-9 {
				nz++
				col = c
			}
		}
		if nz == 1 && !set[col] {
			v[col] = (q.Component(r) - w.rep.Trans.Component(r)) / row[col]
			set[col] = true
		}
	}
	got := w.rep.Apply(geom.P3{X: v[0], Y: v[1], Z: v[2]})
	return isLattice(got.Sub(q), tol)
}

var registry = map[string]*SpaceGroup{}
var registryNames []string

func register(sg *SpaceGroup, aliases ...string) {
	for _, n := range append([]string{sg.Name, strconv.Itoa(sg.Number)}, aliases...) {
		registry[normalizeName(n)] = sg
	}
	registryNames = append(registryNames, sg.Name)
}

func normalizeName(n string) string {
	n = strings.ToLower(n)
	n = strings.NewReplacer(" ", "", "_", "").Replace(n)
	return n
}

// Lookup finds a built-in group by Hermann–Mauguin symbol or number.
func Lookup(name string) (*SpaceGroup, bool) {
	sg, ok := registry[normalizeName(name)]
	return sg, ok
}

// Names lists the built-in groups.
func Names() []string {
	out := append([]string(nil), registryNames...)
	sort.Strings(out)
	return out
}

func mustGroup(name string, number int, xyz ...string) *SpaceGroup {
	sg, err := NewSpaceGroup(name, number, xyz)
	if err != nil {
		panic(fmt.Sprintf("symmetry: built-in %s: %v", name, err))
	}
	return sg
}

func init() {
	p1 := mustGroup("P1", 1, "x,y,z")
	p1.addWyckoff("a", 1, "x,y,z", "1")
	register(p1)

	pbar1 := mustGroup("P-1", 2, "x,y,z", "-x,-y,-z")
	for i, c := range []string{"0,0,0", "0,0,1/2", "0,1/2,0", "1/2,0,0", "1/2,1/2,0", "1/2,0,1/2", "0,1/2,1/2", "1/2,1/2,1/2"} {
		pbar1.addWyckoff(string(rune('a'+i)), 1, c, "-1")
	}
	pbar1.addWyckoff("i", 2, "x,y,z", "1")
	register(pbar1)

	p21 := mustGroup("P21", 4, "x,y,z", "-x,y+1/2,-z")
	p21.addWyckoff("a", 2, "x,y,z", "1")
	register(p21, "P1211")

	p2m := mustGroup("P2/m", 10, "x,y,z", "-x,y,-z", "-x,-y,-z", "x,-y,z")
	for i, c := range []string{"0,0,0", "0,1/2,0", "0,0,1/2", "1/2,0,0", "1/2,1/2,0", "0,1/2,1/2", "1/2,0,1/2", "1/2,1/2,1/2"} {
		p2m.addWyckoff(string(rune('a'+i)), 1, c, "2/m")
	}
	for i, c := range []string{"0,y,0", "1/2,y,0", "0,y,1/2", "1/2,y,1/2"} {
		p2m.addWyckoff(string(rune('i'+i)), 2, c, "2")
	}
	p2m.addWyckoff("m", 2, "x,0,z", "m")
	p2m.addWyckoff("n", 2, "x,1/2,z", "m")
	p2m.addWyckoff("o", 4, "x,y,z", "1")
	register(p2m, "P12/m1")

	p21c := mustGroup("P21/c", 14, "x,y,z", "-x,y+1/2,-z+1/2", "-x,-y,-z", "x,-y+1/2,z+1/2")
	for i, c := range []string{"0,0,0", "1/2,0,0", "0,0,1/2", "1/2,0,1/2"} {
		p21c.addWyckoff(string(rune('a'+i)), 2, c, "-1")
	}
	p21c.addWyckoff("e", 4, "x,y,z", "1")
	register(p21c, "P121/c1")

	p212121 := mustGroup("P212121", 19, "x,y,z", "-x+1/2,-y,z+1/2", "-x,y+1/2,-z+1/2", "x+1/2,-y+1/2,-z")
	p212121.addWyckoff("a", 4, "x,y,z", "1")
	register(p212121)
}
