package functions

import (
	"math"
	"strconv"
	"strings"

	"github.com/openmol/molscript/pkg/bitset"
	"github.com/openmol/molscript/pkg/eval"
	"github.com/openmol/molscript/pkg/geom"
	"github.com/openmol/molscript/pkg/model"
	"github.com/openmol/molscript/pkg/value"
)

// atomProperties are the .name properties of atom sets.
var atomProperties = map[string]atomProperty{
	"x":       func(a model.Atom) value.Value { return value.Double(a.Pos.X) },
	"y":       func(a model.Atom) value.Value { return value.Double(a.Pos.Y) },
	"z":       func(a model.Atom) value.Value { return value.Double(a.Pos.Z) },
	"xyz":     func(a model.Atom) value.Value { return value.Point(a.Pos) },
	"element": func(a model.Atom) value.Value { return value.String(a.Element) },
	"elemno":  func(a model.Atom) value.Value { return value.Int(a.ElemNo()) },
	"radius":  func(a model.Atom) value.Value { return value.Double(a.VDW()) },
	"index":   func(a model.Atom) value.Value { return value.Int(a.Index) },
	"name":    func(a model.Atom) value.Value { return value.String(a.Name) },
	"charge":  func(a model.Atom) value.Value { return value.Double(a.Charge) },
}

func registerAtoms(ctx *eval.EvalContext) {
	for name, get := range atomProperties {
		ctx.RegisterFunction(name, propertyHandler(name, get), 1, 1, eval.FnProperty)
	}
	ctx.RegisterFunction("within", fnWithin, 2, 3, 0)
	ctx.RegisterFunction("contact", fnContact, 2, 3, 0)
}

// propertyHandler reads one property. A one-atom set gives the value
// itself, a larger set the list of values in atom order. Points answer
// .x, .y, .z and .xyz too.
func propertyHandler(name string, get atomProperty) eval.FnHandler {
	return func(ctx *eval.EvalContext, call eval.Call) (value.Value, error) {
		recv := call.Args[0]
		if recv.Kind() == value.KindPoint3 || recv.Kind() == value.KindPoint4 {
			p, _ := ctx.PtValue(call.Name, recv, nil)
			switch name {
			case "x":
				return value.Double(p.X), nil
			case "y":
				return value.Double(p.Y), nil
			case "z":
				return value.Double(p.Z), nil
			case "xyz":
				return value.Point(p), nil
			}
			return value.Nil(), call.Errorf("points have no .%s", name)
		}
		if !eval.IsSet(recv) {
			return value.Nil(), call.Errorf("needs an atom set, got %s", recv.Kind())
		}
		bs, err := ctx.Bits(call.Name, recv)
		if err != nil {
			return value.Nil(), err
		}
		var out []value.Value
		for i := bs.NextSetBit(0); i >= 0; i = bs.NextSetBit(i + 1) {
			if a, ok := ctx.Model.Atom(i); ok {
				out = append(out, get(a))
			}
		}
		if len(out) == 1 {
			return out[0], nil
		}
		return value.List(out...), nil
	}
}

// radiusData reads a distance criterion:
//
//	2.5          range [0, 2.5]
//	[1.5, 3]     range [1.5, 3]
//	"120%"       1.2 times the van der Waals radius
//	"vdw+0.5"    van der Waals radius plus 0.5 (also "vdw-0.2")
func radiusData(fn string, v value.Value) (model.RadiusData, error) {
	switch v.Kind() {
	case value.KindInteger, value.KindDouble:
		return model.Range(0, v.AsDouble()), nil
	case value.KindList:
		vs, _ := v.List()
		if len(vs) != 2 {
			return model.RadiusData{}, eval.InvalidArg(fn, "a distance range needs [min, max]")
		}
		return model.Range(vs[0].AsDouble(), vs[1].AsDouble()), nil
	case value.KindString:
		s := strings.ToLower(strings.TrimSpace(v.AsString()))
		switch {
		case strings.HasPrefix(s, "vdw"):
			rest := strings.TrimSpace(s[3:])
			if rest == "" {
				return model.Offset(0), nil
			}
			f, err := strconv.ParseFloat(rest, 64)
			if err != nil {
				return model.RadiusData{}, eval.InvalidArg(fn, "bad van der Waals offset %q", s)
			}
			return model.Offset(f), nil
		case strings.Contains(s, "%"):
			pct := strings.TrimSuffix(s[:strings.Index(s, "%")], " ")
			f, err := strconv.ParseFloat(pct, 64)
			if err != nil {
				return model.RadiusData{}, eval.InvalidArg(fn, "bad van der Waals factor %q", s)
			}
			return model.Factor(f / 100), nil
		}
		if n, ok := value.ParseNumber(s); ok {
			return model.Range(0, n.AsDouble()), nil
		}
	}
	return model.RadiusData{}, eval.InvalidArg(fn, "cannot use %s as a distance", v.Kind())
}

// within(distance, target[, restrict]) is the atom set near target:
//
//	point or "{x y z}"   atoms whose centres lie within the distance
//	atom set             atoms within the distance of any atom in the set
//	plane                atoms whose distance from the plane is in range
//
// A van der Waals distance is applied per atom. restrict limits the result.
func fnWithin(ctx *eval.EvalContext, call eval.Call) (value.Value, error) {
	m, err := ctx.RequireModel(call.Name)
	if err != nil {
		return value.Nil(), err
	}
	rd, err := radiusData(call.Name, call.Args[0])
	if err != nil {
		return value.Nil(), err
	}
	target := call.Args[1]
	var out *bitset.BS
	switch {
	case eval.IsSet(target):
		bs, err := ctx.Bits(call.Name, target)
		if err != nil {
			return value.Nil(), err
		}
		out = withinSet(m, rd, bs)
	case target.Kind() == value.KindPoint4:
		pl, _ := target.P4()
		out = withinPlane(m, rd, geom.NormalizePlane(pl))
	default:
		p, err := ctx.PtValue(call.Name, target, nil)
		if err != nil {
			return value.Nil(), err
		}
		out = withinPoint(m, rd, p)
	}
	if call.N() == 3 {
		restrict, err := ctx.Bits(call.Name, call.Args[2])
		if err != nil {
			return value.Nil(), err
		}
		out.And(restrict)
	}
	return ctx.NewAtoms(out), nil
}

func withinPoint(m model.Model, rd model.RadiusData, p geom.P3) *bitset.BS {
	reach := rd.Max
	if rd.Mode != model.RadiusRange {
		reach = rd.MaxReach() / 2
	}
	out := bitset.New()
	cand := m.Within(p, reach)
	for i := cand.NextSetBit(0); i >= 0; i = cand.NextSetBit(i + 1) {
		a, _ := m.Atom(i)
		d := a.Pos.Distance(p)
		if rd.Mode == model.RadiusRange {
			if d >= rd.Min {
				out.Set(i)
			}
		} else if d <= rd.Radius(a) {
			out.Set(i)
		}
	}
	return out
}

func withinSet(m model.Model, rd model.RadiusData, bs *bitset.BS) *bitset.BS {
	out := bitset.New()
	if rd.Mode == model.RadiusRange {
		for i := bs.NextSetBit(0); i >= 0; i = bs.NextSetBit(i + 1) {
			a, _ := m.Atom(i)
			out.Or(withinPoint(m, rd, a.Pos))
		}
		return out
	}
	reach := rd.MaxReach()
	for i := bs.NextSetBit(0); i >= 0; i = bs.NextSetBit(i + 1) {
		a, _ := m.Atom(i)
		cand := m.Within(a.Pos, reach)
		for j := cand.NextSetBit(0); j >= 0; j = cand.NextSetBit(j + 1) {
			b, _ := m.Atom(j)
			if i == j || rd.Contact(a, b) {
				out.Set(j)
			}
		}
	}
	return out
}

func withinPlane(m model.Model, rd model.RadiusData, pl geom.P4) *bitset.BS {
	out := bitset.New()
	for i := 0; i < m.AtomCount(); i++ {
		a, _ := m.Atom(i)
		d := math.Abs(geom.DistanceToPlane(pl, a.Pos))
		if rd.Mode == model.RadiusRange {
			if d >= rd.Min && d <= rd.Max {
				out.Set(i)
			}
		} else if d <= rd.Radius(a) {
			out.Set(i)
		}
	}
	return out
}

// contact(set1, set2[, distance]) is the atoms of either set in contact
// with an atom of the other: a non-bonded pair whose separation is at most
// the sum of their van der Waals radii, scaled by distance when given.
func fnContact(ctx *eval.EvalContext, call eval.Call) (value.Value, error) {
	m, err := ctx.RequireModel(call.Name)
	if err != nil {
		return value.Nil(), err
	}
	s1, err := ctx.Bits(call.Name, call.Args[0])
	if err != nil {
		return value.Nil(), err
	}
	s2, err := ctx.Bits(call.Name, call.Args[1])
	if err != nil {
		return value.Nil(), err
	}
	rd := model.Factor(1)
	if call.N() == 3 {
		if rd, err = radiusData(call.Name, call.Args[2]); err != nil {
			return value.Nil(), err
		}
	}
	out := bitset.New()
	reach := rd.MaxReach()
	for i := s1.NextSetBit(0); i >= 0; i = s1.NextSetBit(i + 1) {
		a, _ := m.Atom(i)
		cand := m.Within(a.Pos, reach)
		cand.And(s2)
		for j := cand.NextSetBit(0); j >= 0; j = cand.NextSetBit(j + 1) {
			if i == j || bonded(m, i, j) {
				continue
			}
			b, _ := m.Atom(j)
			if rd.Contact(a, b) {
				out.Set(i)
				out.Set(j)
			}
		}
	}
	return ctx.NewAtoms(out), nil
}

func bonded(m model.Model, i, j int) bool {
	for _, b := range m.Bonded(i) {
		if b.Other(i) == j {
			return true
		}
	}
	return false
}
