package commands

import (
	"fmt"
	"math"
	"strings"

	"github.com/openmol/molscript/pkg/bitset"
	"github.com/openmol/molscript/pkg/eval"
	"github.com/openmol/molscript/pkg/events"
	"github.com/openmol/molscript/pkg/geom"
	"github.com/openmol/molscript/pkg/model"
	"github.com/openmol/molscript/pkg/value"
)

// DefaultMeasureFormat labels a new measurement.
const DefaultMeasureFormat = "%VALUE %UNITS"

// maxMeasurements bounds the combinations one measure command may create.
const maxMeasurements = 10000

type measureArgs struct {
	ops      []operand
	format   string
	color    string
	min, max float64
	ranged   bool
}

// measure has these forms:
//
//	measure [range min max] [color c] [format "text"] op1 op2 [op3 [op4]]
//	measure delete [n | "id" | set | ALL]
//	measure list
//	measure on | off
//
// Operands are atom sets or points. Two operands measure a distance, three
// an angle and four a torsion; sets with several atoms measure every
// combination, and a range keeps only values inside it. Measuring the same
// atoms again removes the measurement.
func cmdMeasure(x *Exec) eval.Result {
	switch {
	case x.isWord("delete"):
		x.word("delete")
		return measureDelete(x)
	case x.isWord("list"):
		x.word("list")
		if err := x.end(); err != nil {
			return eval.Fail(err)
		}
		if !x.Chk {
			x.printf("%s", measureList(x.Ctx.Mutator))
		}
		return eval.DoneWith(value.Nil())
	case x.isWord("on", "off"):
		w, _ := x.word("on", "off")
		if err := x.end(); err != nil {
			return eval.Fail(err)
		}
		if !x.Chk {
			x.Ctx.Mutator.SetShapeProperty("measures", "visible", fmt.Sprint(w == "on"))
		}
		return eval.DoneWith(value.Nil())
	}

	a, err := parseMeasure(x)
	if err != nil {
		return eval.Fail(err)
	}
	if x.Chk {
		return eval.DoneWith(value.Nil())
	}
	mu := x.Ctx.Mutator
	combos, err := combinations(x, a.ops)
	if err != nil {
		return eval.Fail(err)
	}
	mu.PushUndo()
	var values []float64
	for _, c := range combos {
		if old, ok := findMeasurement(mu, c); ok {
			mu.DeleteMeasurement(old.ID)
			x.emit(events.EvMeasure, "measurement removed", map[string]any{"id": old.ID, "deleted": true})
			continue
		}
		m := model.Measurement{Atoms: c.atoms, Points: c.points, Format: a.format, Color: a.color, Min: a.min, Max: a.max}
		m.Value = measureValue(c.points)
		if math.IsNaN(m.Value) {
			continue
		}
		if a.ranged && (m.Value < a.min || m.Value > a.max) {
			continue
		}
		m.ID = mu.AddMeasurement(m)
		values = append(values, m.Value)
		x.emit(events.EvMeasure, MeasureLabel(m), map[string]any{"id": m.ID, "kind": m.Kind(), "value": m.Value})
	}
	return eval.DoneWith(value.Doubles(values))
}

func parseMeasure(x *Exec) (measureArgs, error) {
	a := measureArgs{format: DefaultMeasureFormat}
	keywords := []string{"range", "color", "format"}
	for !x.done() {
		switch {
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
			a.min, a.max, a.ranged = lo, hi, true
		case x.isWord("color"):
			x.word("color")
			c, err := x.name("color")
			if err != nil {
				return a, err
			}
			a.color = c
		case x.isWord("format"):
			x.word("format")
			f, err := x.str()
			if err != nil {
				return a, err
			}
			a.format = f
		case x.startsExpr(keywords...):
			v, err := x.expr()
			if err != nil {
				return a, err
			}
			op, err := x.operandOf(v)
			if err != nil {
				return a, err
			}
			a.ops = append(a.ops, op)
		default:
			return a, x.errorf("unexpected %s", x.peek())
		}
	}
	if n := len(a.ops); n < 2 || n > 4 {
		return a, x.errorf("needs 2 to 4 atoms or points, got %d", n)
	}
	return a, nil
}

// combo is one concrete measurement: per position an atom index, or -1
// for a fixed point, and the coordinates.
type combo struct {
	atoms  []int
	points []geom.P3
}

func combinations(x *Exec, ops []operand) ([]combo, error) {
	out := []combo{{}}
	for _, op := range ops {
		var next []combo
		if op.point != nil {
			for _, c := range out {
				next = append(next, c.with(-1, *op.point))
			}
		} else {
			for _, c := range out {
				for _, i := range op.atoms {
					if c.uses(i) {
						continue
					}
					at, _ := x.Ctx.Model.Atom(i)
					next = append(next, c.with(i, at.Pos))
				}
			}
		}
		if len(next) > maxMeasurements {
			return nil, x.errorf("more than %d measurements", maxMeasurements)
		}
		out = next
	}
	// a pair of sets yields each unordered pair twice
	seen := make(map[string]bool)
	uniq := out[:0]
	for _, c := range out {
		k := c.key()
		if seen[k] {
			continue
		}
		seen[k] = true
		uniq = append(uniq, c)
	}
	return uniq, nil
}

func (c combo) with(i int, p geom.P3) combo {
	return combo{
		atoms:  append(append([]int(nil), c.atoms...), i),
		points: append(append([]geom.P3(nil), c.points...), p),
	}
}

func (c combo) uses(i int) bool {
	for _, j := range c.atoms {
		if j == i {
			return true
		}
	}
	return false
}

// key identifies a combination regardless of direction.
func (c combo) key() string {
	fwd := positionKey(c.atoms, c.points, false)
	rev := positionKey(c.atoms, c.points, true)
	if rev < fwd {
		return rev
	}
	return fwd
}

func positionKey(atoms []int, pts []geom.P3, reverse bool) string {
	parts := make([]string, len(atoms))
	for k := range atoms {
		j := k
		if reverse {
			j = len(atoms) - 1 - k
		}
		if atoms[j] >= 0 {
			parts[k] = fmt.Sprint(atoms[j])
		} else {
			parts[k] = pts[j].String()
		}
	}
	return strings.Join(parts, "-")
}

func findMeasurement(mu model.Mutator, c combo) (model.Measurement, bool) {
	k := c.key()
	for _, m := range mu.Measurements() {
		if len(m.Atoms) == len(c.atoms) && (combo{atoms: m.Atoms, points: m.Points}).key() == k {
			return m, true
		}
	}
	return model.Measurement{}, false
}

func measureValue(pts []geom.P3) float64 {
	switch len(pts) {
	case 2:
		return pts[0].Distance(pts[1])
	case 3:
		return geom.Angle(pts[0], pts[1], pts[2])
	case 4:
		return geom.Dihedral(pts[0], pts[1], pts[2], pts[3])
	}
	return math.NaN()
}

// MeasureLabel renders m through its format: %VALUE is the value to two
// decimals and %UNITS is Å or °.
func MeasureLabel(m model.Measurement) string {
	f := m.Format
	if f == "" {
		f = DefaultMeasureFormat
	}
	units := "°"
	if m.Kind() == "distance" {
		units = "Å"
	}
	r := strings.NewReplacer("%VALUE", fmt.Sprintf("%.2f", m.Value), "%UNITS", units)
	return strings.TrimSpace(r.Replace(f))
}

func measureList(m model.Mutator) string {
	ms := m.Measurements()
	if len(ms) == 0 {
		return "no measurements"
	}
	var sb strings.Builder
	for i, ms := range ms {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%d\t%s\t%s\t%s", i+1, ms.Kind(), MeasureLabel(ms), atomLabels(m, ms))
	}
	return sb.String()
}

func atomLabels(m model.Model, ms model.Measurement) string {
	parts := make([]string, len(ms.Atoms))
	for k, i := range ms.Atoms {
		if a, ok := m.Atom(i); ok && i >= 0 {
			parts[k] = fmt.Sprintf("%s%d", a.Element, i+1)
		} else {
			parts[k] = ms.Points[k].String()
		}
	}
	return strings.Join(parts, " - ")
}

// measureDelete removes measurements by 1-based position, id, or the atoms
// they involve; all of them without an argument.
func measureDelete(x *Exec) eval.Result {
	var target value.Value
	if !x.done() {
		var err error
		if target, err = x.expr(); err != nil {
			return eval.Fail(err)
		}
	}
	if err := x.end(); err != nil {
		return eval.Fail(err)
	}
	var bs *bitset.BS
	switch {
	case target.IsNil() || target.IsAll():
	case target.Kind() == value.KindInteger || target.Kind() == value.KindDouble:
	case target.Kind() == value.KindString:
	case eval.IsSet(target):
		var err error
		if bs, err = x.bits(target); err != nil {
			return eval.Fail(err)
		}
	default:
		return eval.Fail(x.errorf("cannot delete measurements by %s", target.Kind()))
	}
	if x.Chk {
		return eval.DoneWith(value.Nil())
	}

	mu := x.Ctx.Mutator
	ms := mu.Measurements()
	var doomed []string
	switch {
	case bs != nil:
		for _, m := range ms {
			for _, i := range m.Atoms {
				if i >= 0 && bs.Get(i) {
					doomed = append(doomed, m.ID)
					break
				}
			}
		}
	case target.Kind() == value.KindInteger || target.Kind() == value.KindDouble:
		n := target.AsInt()
		if n < 1 || n > len(ms) {
			return eval.Fail(x.errorf("no measurement %d (1-%d)", n, len(ms)))
		}
		doomed = append(doomed, ms[n-1].ID)
	case target.Kind() == value.KindString:
		id := target.AsString()
		for _, m := range ms {
			if m.ID == id {
				doomed = append(doomed, id)
			}
		}
		if len(doomed) == 0 {
			return eval.Fail(x.errorf("no measurement %q", id))
		}
	default:
		for _, m := range ms {
			doomed = append(doomed, m.ID)
		}
	}
	mu.PushUndo()
	n := 0
	for _, id := range doomed {
		if mu.DeleteMeasurement(id) {
			n++
			x.emit(events.EvMeasure, "measurement removed", map[string]any{"id": id, "deleted": true})
		}
	}
	x.messagef("%d measurements deleted", n)
	return eval.DoneWith(value.Int(n))
}
