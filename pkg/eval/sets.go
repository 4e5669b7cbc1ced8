package eval

import (
	"github.com/openmol/molscript/pkg/bitset"
	"github.com/openmol/molscript/pkg/geom"
	"github.com/openmol/molscript/pkg/model"
	"github.com/openmol/molscript/pkg/value"
)

func (ctx *EvalContext) generation() uint64 {
	if ctx.Model == nil {
		return 0
	}
	return ctx.Model.Generation()
}

// NewAtoms wraps bs as an atom set stamped with the current generation.
func (ctx *EvalContext) NewAtoms(bs *bitset.BS) value.Value {
	return value.Atoms(bs, ctx.generation())
}

// NewBonds wraps bs as a bond set stamped with the current generation.
func (ctx *EvalContext) NewBonds(bs *bitset.BS) value.Value {
	return value.Bonds(bs, ctx.generation())
}

// RequireModel returns the model or an error naming fn.
func (ctx *EvalContext) RequireModel(fn string) (model.Model, error) {
	if ctx.Model == nil {
		return nil, InvalidArg(fn, "no model loaded")
	}
	return ctx.Model, nil
}

// IsSet reports whether v can be used where an atom set is expected.
func IsSet(v value.Value) bool {
	return v.Kind() == value.KindAtomSet || v.IsAll()
}

// Bits returns the atom indices of v as a private copy. The ALL keyword
// means every atom. A set stamped with another model generation fails with
// a Stale error; unstamped literal sets are clipped to the atom count.
func (ctx *EvalContext) Bits(fn string, v value.Value) (*bitset.BS, error) {
	m, err := ctx.RequireModel(fn)
	if err != nil {
		return nil, err
	}
	if v.IsAll() {
		return bitset.Range(0, m.AtomCount()), nil
	}
	if v.Kind() != value.KindAtomSet {
		return nil, InvalidArg(fn, "expected an atom set, got %s", v.Kind())
	}
	bs, _ := v.BitSet()
	gen := v.Generation()
	if gen != 0 && gen != m.Generation() {
		return nil, Stale(fn, gen, m.Generation())
	}
	bs = bs.Copy()
	bs.Truncate(m.AtomCount())
	return bs, nil
}

// BondBits is Bits for bond sets.
func (ctx *EvalContext) BondBits(fn string, v value.Value) (*bitset.BS, error) {
	m, err := ctx.RequireModel(fn)
	if err != nil {
		return nil, err
	}
	if v.IsAll() {
		return bitset.Range(0, m.BondCount()), nil
	}
	if v.Kind() != value.KindBondSet {
		return nil, InvalidArg(fn, "expected a bond set, got %s", v.Kind())
	}
	bs, _ := v.BitSet()
	gen := v.Generation()
	if gen != 0 && gen != m.Generation() {
		return nil, Stale(fn, gen, m.Generation())
	}
	bs = bs.Copy()
	bs.Truncate(m.BondCount())
	return bs, nil
}

// AtomPoints returns the coordinates of the atoms in v, in index order.
func (ctx *EvalContext) AtomPoints(fn string, v value.Value) ([]geom.P3, *bitset.BS, error) {
	bs, err := ctx.Bits(fn, v)
	if err != nil {
		return nil, nil, err
	}
	return model.Points(ctx.Model, bs), bs, nil
}

// PtValue coerces v to a point. Points pass through (a Point4 gives its
// xyz part) and "{x y z}" strings are parsed. An atom set gives the
// centroid of its atoms; when within is non-nil only atoms also in within
// are averaged. Anything else, and an empty atom selection, fails.
func (ctx *EvalContext) PtValue(fn string, v value.Value, within *bitset.BS) (geom.P3, error) {
	switch v.Kind() {
	case value.KindPoint3:
		p, _ := v.Point3()
		return p, nil
	case value.KindPoint4:
		p, _ := v.P4()
		return p.XYZ(), nil
	case value.KindString:
		s, _ := v.Str()
		if c, ok := geom.ParsePoint(s); ok && len(c) == 3 {
			return geom.P3{X: c[0], Y: c[1], Z: c[2]}, nil
		}
		return geom.P3{}, InvalidArg(fn, "%q is not a point", s)
	case value.KindAtomSet, value.KindKeyword:
		if !IsSet(v) {
			break
		}
		bs, err := ctx.Bits(fn, v)
		if err != nil {
			return geom.P3{}, err
		}
		if within != nil {
			bs.And(within)
		}
		if bs.IsEmpty() {
			return geom.P3{}, InvalidArg(fn, "empty atom set has no position")
		}
		return geom.Centroid(model.Points(ctx.Model, bs)), nil
	}
	return geom.P3{}, InvalidArg(fn, "cannot use %s as a point", v.Kind())
}
