package functions

import (
	"strings"

	"github.com/openmol/molscript/pkg/bitset"
	"github.com/openmol/molscript/pkg/eval"
	"github.com/openmol/molscript/pkg/geom"
	"github.com/openmol/molscript/pkg/smiles"
	"github.com/openmol/molscript/pkg/value"
)

func registerSubstructure(ctx *eval.EvalContext) {
	ctx.RegisterFunction("pattern", fnPattern, 1, 2, 0)
	ctx.RegisterFunction("target", fnTarget, 1, 1, 0)
	ctx.RegisterFunction("find", fnFind, 2, 4, 0)
	ctx.RegisterFunction("substructure", fnSubstructure, 1, 2, eval.FnNoChk)
	ctx.RegisterFunction("compare", fnCompare, 2, 4, eval.FnNoChk)
}

// pattern(smiles) compiles a SMILES query once for repeated searches;
// pattern(s, "smarts") compiles SMARTS.
func fnPattern(ctx *eval.EvalContext, call eval.Call) (value.Value, error) {
	opt := call.Arg(1)
	smarts := opt.Kind() == value.KindBoolean && opt.AsBoolean() || strings.EqualFold(opt.AsString(), "smarts")
	src := call.Args[0].AsString()
	q, err := ctx.Matcher.Compile(src, smarts)
	if err != nil {
		return value.Nil(), eval.External(call.Name, err)
	}
	return value.Pattern(src, q), nil
}

// target(set) fixes the atoms later searches run over.
func fnTarget(ctx *eval.EvalContext, call eval.Call) (value.Value, error) {
	bs, err := ctx.Bits(call.Name, call.Args[0])
	if err != nil {
		return value.Nil(), err
	}
	return value.SearchTarget(bs.String(), ctx.NewAtoms(bs)), nil
}

// query returns the compiled form of v: a Pattern passes through, text is
// compiled.
func query(ctx *eval.EvalContext, fn string, v value.Value, smarts bool) (*smiles.Query, error) {
	if c, ok := v.Compiled(); ok && v.Kind() == value.KindPattern {
		return c.Obj.(*smiles.Query), nil
	}
	if v.Kind() != value.KindString {
		return nil, eval.InvalidArg(fn, "needs a pattern or SMILES text, got %s", v.Kind())
	}
	q, err := ctx.Matcher.Compile(v.AsString(), smarts)
	if err != nil {
		return nil, eval.External(fn, err)
	}
	return q, nil
}

// scope returns the atoms of a search target or atom set.
func scope(ctx *eval.EvalContext, fn string, v value.Value) (*bitset.BS, error) {
	if c, ok := v.Compiled(); ok && v.Kind() == value.KindSearchTarget {
		return ctx.Bits(fn, c.Obj.(value.Value))
	}
	return ctx.Bits(fn, v)
}

func search(ctx *eval.EvalContext, fn string, q *smiles.Query, within *bitset.BS, firstOnly bool) ([][]int, error) {
	m, err := ctx.RequireModel(fn)
	if err != nil {
		return nil, err
	}
	maps, err := ctx.Matcher.Match(q, m, within, firstOnly)
	if err != nil {
		return nil, eval.External(fn, err)
	}
	return maps, nil
}

type findOptions struct {
	smarts, maps, all, first bool
}

func parseFindOptions(args []value.Value) findOptions {
	var o findOptions
	for _, a := range args {
		if a.IsAll() {
			o.all = true
			continue
		}
		for _, w := range strings.Fields(strings.ToLower(a.AsString())) {
			switch w {
			case "smarts":
				o.smarts = true
			case "map":
				o.maps = true
			case "all":
				o.all = true
			case "first":
				o.first = true
			}
		}
	}
	return o
}

// shape turns correlation maps into the requested result: the maps
// themselves as lists of atom indices, one atom set per distinct match, or
// the union of all matched atoms.
func shape(ctx *eval.EvalContext, maps [][]int, o findOptions) value.Value {
	switch {
	case o.maps:
		out := make([]value.Value, len(maps))
		for i, m := range maps {
			out[i] = value.Ints(m)
		}
		return value.List(out...)
	case o.all:
		sets := smiles.UniqueSets(maps)
		out := make([]value.Value, len(sets))
		for i, bs := range sets {
			out[i] = ctx.NewAtoms(bs)
		}
		return value.List(out...)
	}
	union := bitset.New()
	for _, m := range maps {
		for _, i := range m {
			union.Set(i)
		}
	}
	return ctx.NewAtoms(union)
}

// find dispatches on its first argument:
//
//	find(set, smiles[, options])      substructure search within set
//	find(pattern, set|target[, opts]) the same, with the pattern first
//	find(target, smiles[, options])   search within a prepared target
//	find(list, v)                     1-based position of v, 0 if absent
//	find(string, s[, "i"])            1-based position of s, 0 if absent
//
// Search options are words among smarts, map (correlation maps), all (one
// atom set per distinct match) and first (stop at one match); without map
// or all the result is the union of the matched atoms.
func fnFind(ctx *eval.EvalContext, call eval.Call) (value.Value, error) {
	recv, arg := call.Args[0], call.Args[1]
	switch {
	case eval.IsSet(recv), recv.Kind() == value.KindSearchTarget:
		return findIn(ctx, call, recv, arg, call.Args[2:])
	case recv.Kind() == value.KindPattern:
		return findIn(ctx, call, arg, recv, call.Args[2:])
	case recv.Kind() == value.KindList:
		vs, _ := recv.List()
		for i, e := range vs {
			if value.Equal(e, arg) {
				return value.Int(i + 1), nil
			}
		}
		return value.Int(0), nil
	case recv.Kind() == value.KindString:
		s, sub := recv.AsString(), arg.AsString()
		if call.N() > 2 && strings.Contains(strings.ToLower(call.Args[2].AsString()), "i") {
			s, sub = strings.ToLower(s), strings.ToLower(sub)
		}
		return value.Int(strings.Index(s, sub) + 1), nil
	}
	return value.Nil(), call.Errorf("cannot search %s", recv.Kind())
}

func findIn(ctx *eval.EvalContext, call eval.Call, where, pat value.Value, opts []value.Value) (value.Value, error) {
	o := parseFindOptions(opts)
	within, err := scope(ctx, call.Name, where)
	if err != nil {
		return value.Nil(), err
	}
	q, err := query(ctx, call.Name, pat, o.smarts)
	if err != nil {
		return value.Nil(), err
	}
	maps, err := search(ctx, call.Name, q, within, o.first)
	if err != nil {
		return value.Nil(), err
	}
	return shape(ctx, maps, o), nil
}

// substructure(smiles[, "smarts"]) is the set of all atoms in the model
// matching the pattern.
func fnSubstructure(ctx *eval.EvalContext, call eval.Call) (value.Value, error) {
	return findIn(ctx, call, value.All(), call.Args[0], call.Args[1:])
}

// fit is a least-squares superposition of paired atoms.
type fit struct {
	m     geom.M4
	rot   geom.Quat
	rmsd  float64
	pairs [][2]int
}

// superpose pairs the atoms of two sets in index order and fits the first
// onto the second.
func superpose(ctx *eval.EvalContext, fn string, a, b value.Value) (fit, error) {
	b1, err := ctx.Bits(fn, a)
	if err != nil {
		return fit{}, err
	}
	b2, err := ctx.Bits(fn, b)
	if err != nil {
		return fit{}, err
	}
	i1, i2 := b1.Indices(), b2.Indices()
	if len(i1) != len(i2) {
		return fit{}, eval.InvalidArg(fn, "sets differ in size (%d and %d atoms)", len(i1), len(i2))
	}
	pairs := make([][2]int, len(i1))
	for k := range i1 {
		pairs[k] = [2]int{i1[k], i2[k]}
	}
	return fitPairs(ctx, fn, pairs)
}

func fitPairs(ctx *eval.EvalContext, fn string, pairs [][2]int) (fit, error) {
	from := make([]geom.P3, len(pairs))
	to := make([]geom.P3, len(pairs))
	for k, p := range pairs {
		a, _ := ctx.Model.Atom(p[0])
		b, _ := ctx.Model.Atom(p[1])
		from[k], to[k] = a.Pos, b.Pos
	}
	m, q, rmsd, err := geom.Superpose(from, to)
	if err != nil {
		return fit{}, eval.External(fn, err)
	}
	return fit{m: m, rot: q, rmsd: rmsd, pairs: pairs}, nil
}

// correlate pairs the atoms of set1 and set2 through a substructure match.
// With "smiles" the query is set1's own structure; otherwise pat is
// matched in both sets and atoms pair by query position.
func correlate(ctx *eval.EvalContext, fn string, s1, s2 *bitset.BS, pat value.Value) ([][2]int, error) {
	var q *smiles.Query
	var from []int
	if pat.Kind() == value.KindString && strings.EqualFold(pat.AsString(), "smiles") {
		q, from = smiles.QueryFromModel(ctx.Model, s1, false)
	} else {
		var err error
		if q, err = query(ctx, fn, pat, false); err != nil {
			return nil, err
		}
		maps, err := search(ctx, fn, q, s1, true)
		if err != nil {
			return nil, err
		}
		if len(maps) == 0 {
			return nil, nil
		}
		from = maps[0]
	}
	maps, err := search(ctx, fn, q, s2, true)
	if err != nil || len(maps) == 0 {
		return nil, err
	}
	pairs := make([][2]int, len(from))
	for k := range from {
		pairs[k] = [2]int{from[k], maps[0][k]}
	}
	return pairs, nil
}

// compare(set1, set2[, mapping][, selector]) fits set1 onto set2. Atoms
// pair in index order, or through mapping: "smiles" (set1's structure
// found in set2) or a pattern found in both. The selector picks the
// result:
//
//	matrix     4x4 transform taking set1 onto set2 (default)
//	rotation   its rotation as a quaternion
//	stddev     residual RMSD after the fit
//	map        the atom pairs as [i, j] lists
//	all        a map of the above
//
// A mapping that finds no match gives Nil.
func fnCompare(ctx *eval.EvalContext, call eval.Call) (value.Value, error) {
	selector := "matrix"
	var mapping value.Value
	for _, a := range call.Args[2:] {
		switch s := strings.ToLower(a.AsString()); {
		case a.Kind() == value.KindString && (s == "matrix" || s == "rotation" || s == "stddev" || s == "map" || s == "all"):
			selector = s
		default:
			mapping = a
		}
	}
	var f fit
	var err error
	if mapping.IsNil() {
		f, err = superpose(ctx, call.Name, call.Args[0], call.Args[1])
	} else {
		var s1, s2 *bitset.BS
		var pairs [][2]int
		if s1, err = ctx.Bits(call.Name, call.Args[0]); err != nil {
			return value.Nil(), err
		}
		if s2, err = ctx.Bits(call.Name, call.Args[1]); err != nil {
			return value.Nil(), err
		}
		if pairs, err = correlate(ctx, call.Name, s1, s2, mapping); err != nil {
			return value.Nil(), err
		}
		if len(pairs) == 0 {
			return value.Nil(), nil
		}
		f, err = fitPairs(ctx, call.Name, pairs)
	}
	if err != nil {
		return value.Nil(), err
	}
	get := map[string]func() value.Value{
		"matrix":   func() value.Value { return value.Matrix4(f.m) },
		"rotation": func() value.Value { return value.Quaternion(f.rot) },
		"stddev":   func() value.Value { return value.Double(f.rmsd) },
		"map": func() value.Value {
			out := make([]value.Value, len(f.pairs))
			for k, p := range f.pairs {
				out[k] = value.Ints(p[:])
			}
			return value.List(out...)
		},
	}
	if selector != "all" {
		return get[selector](), nil
	}
	out := value.NewMap()
	for _, k := range []string{"matrix", "rotation", "stddev", "map"} {
		out.Set(k, get[k]())
	}
	return value.FromMap(out), nil
}
