package functions

import (
	"math"

	"github.com/openmol/molscript/pkg/eval"
	"github.com/openmol/molscript/pkg/geom"
	"github.com/openmol/molscript/pkg/model"
	"github.com/openmol/molscript/pkg/value"
)

type stat int

const (
	statMin stat = iota
	statMax
	statSum
	statSum2
	statAverage
	statStddev
)

func registerStats(ctx *eval.EvalContext) {
	for name, tok := range map[string]stat{
		"min": statMin, "max": statMax, "sum": statSum, "sum2": statSum2,
		"average": statAverage, "stddev": statStddev,
	} {
		tok := tok
		ctx.RegisterFunction(name, func(ctx *eval.EvalContext, call eval.Call) (value.Value, error) {
			data, err := statData(ctx, call)
			if err != nil {
				return value.Nil(), err
			}
			return minMax(ctx, call.Name, data, tok)
		}, 1, anyArgs, 0)
	}
	ctx.RegisterFunction("pivot", fnPivot, 1, 2, 0)
}

// statData gathers the data set: several arguments form the list
// themselves; a single list, multi-line string or map gives its elements;
// an atom set gives the coordinates of its atoms.
func statData(ctx *eval.EvalContext, call eval.Call) ([]value.Value, error) {
	if call.N() > 1 {
		return call.Args, nil
	}
	v := call.Args[0]
	switch {
	case eval.IsSet(v):
		pts, _, err := ctx.AtomPoints(call.Name, v)
		if err != nil {
			return nil, err
		}
		out := make([]value.Value, len(pts))
		for i, p := range pts {
			out[i] = value.Point(p)
		}
		return out, nil
	case v.Kind() == value.KindMap:
		m, _ := v.Map()
		var out []value.Value
		m.Each(func(_ string, e value.Value) { out = append(out, e) })
		return out, nil
	}
	return elements(v), nil
}

// minMax reduces data. NaN elements are skipped. An empty data set gives
// NaN. Points reduce component-wise; quaternions support only average and
// stddev, through the spherical mean. min, max, sum and sum2 of integers
// stay Integer.
func minMax(ctx *eval.EvalContext, fn string, data []value.Value, tok stat) (value.Value, error) {
	if len(data) == 0 {
		return nan(), nil
	}
	switch kindOf(data) {
	case value.KindPoint3:
		var xs, ys, zs []float64
		for _, v := range data {
			p, _ := v.Point3()
			xs, ys, zs = append(xs, p.X), append(ys, p.Y), append(zs, p.Z)
		}
		return value.Point(geom.P3{
			X: reduceFloats(xs, tok),
			Y: reduceFloats(ys, tok),
			Z: reduceFloats(zs, tok),
		}), nil
	case value.KindPoint4:
		if tok != statAverage && tok != statStddev {
			return value.Nil(), eval.InvalidArg(fn, "quaternions support only average and stddev")
		}
		qs := make([]geom.Quat, len(data))
		for i, v := range data {
			qs[i], _ = v.Quat()
		}
		mean, dev := geom.SphereMean(qs, ctx.Settings.MeanTolerance, ctx.Settings.MeanIterations)
		if tok == statStddev {
			return value.Double(dev), nil
		}
		return value.Quaternion(mean), nil
	}
	allInt := true
	var xs []float64
	for _, v := range data {
		n := v.ToNumber()
		f := n.AsDouble()
		if math.IsNaN(f) {
			continue
		}
		if n.Kind() != value.KindInteger {
			allInt = false
		}
		xs = append(xs, f)
	}
	r := reduceFloats(xs, tok)
	if allInt && len(xs) > 0 && tok <= statSum2 && math.Abs(r) < 1<<53 {
		return value.Int(int(r)), nil
	}
	return value.Double(r), nil
}

// kindOf returns KindPoint3 or KindPoint4 when every element is that kind,
// else KindDouble.
func kindOf(data []value.Value) value.Kind {
	k := data[0].Kind()
	if k != value.KindPoint3 && k != value.KindPoint4 {
		return value.KindDouble
	}
	for _, v := range data[1:] {
		if v.Kind() != k {
			return value.KindDouble
		}
	}
	return k
}

// reduceFloats computes one statistic, skipping NaN. stddev is the sample
// deviation sqrt((Σx² - (Σx)²/n)/(n-1)), 0 for a single value.
func reduceFloats(xs []float64, tok stat) float64 {
	n := 0
	var sum, sum2 float64
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, x := range xs {
		if math.IsNaN(x) {
			continue
		}
		n++
		sum += x
		sum2 += x * x
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	if n == 0 {
		return math.NaN()
	}
	switch tok {
	case statMin:
		return lo
	case statMax:
		return hi
	case statSum:
		return sum
	case statSum2:
		return sum2
	case statAverage:
		return sum / float64(n)
	case statStddev:
		if n == 1 {
			return 0
		}
		v := (sum2 - sum*sum/float64(n)) / float64(n-1)
		if v < 0 {
			v = 0
		}
		return math.Sqrt(v)
	}
	return math.NaN()
}

// pivot(list) counts equal elements: a map from each distinct element's
// text to its count. pivot(list, key) buckets maps by their key value: a
// map from each distinct value to the list of maps carrying it.
func fnPivot(ctx *eval.EvalContext, call eval.Call) (value.Value, error) {
	if eval.IsSet(call.Args[0]) {
		return pivotAtoms(ctx, call)
	}
	data := elements(call.Args[0])
	out := value.NewMap()
	if call.N() == 1 {
		seen := map[string]string{}
		for _, v := range data {
			h := value.HashKey(v)
			k, ok := seen[h]
			if !ok {
				k = v.AsString()
				seen[h] = k
			}
			n, _ := out.Get(k)
			out.Set(k, value.Int(n.AsInt()+1))
		}
		return value.FromMap(out), nil
	}
	key := call.Args[1].AsString()
	for _, v := range data {
		m, ok := v.Map()
		if !ok {
			return value.Nil(), call.Errorf("pivot by key needs a list of maps")
		}
		kv, ok := m.Get(key)
		if !ok {
			continue
		}
		k := kv.AsString()
		cur, _ := out.Get(k)
		vs, _ := cur.List()
		out.Set(k, value.List(append(append([]value.Value(nil), vs...), v)...))
	}
	return value.FromMap(out), nil
}

// pivotAtoms counts the atoms of a set by element symbol, or by the named
// atom property.
func pivotAtoms(ctx *eval.EvalContext, call eval.Call) (value.Value, error) {
	bs, err := ctx.Bits(call.Name, call.Args[0])
	if err != nil {
		return value.Nil(), err
	}
	prop := "element"
	if call.N() == 2 {
		prop = call.Args[1].AsString()
	}
	get, ok := atomProperties[prop]
	if !ok {
		return value.Nil(), call.Errorf("unknown atom property %q", prop)
	}
	out := value.NewMap()
	for i := bs.NextSetBit(0); i >= 0; i = bs.NextSetBit(i + 1) {
		a, _ := ctx.Model.Atom(i)
		k := get(a).AsString()
		n, _ := out.Get(k)
		out.Set(k, value.Int(n.AsInt()+1))
	}
	return value.FromMap(out), nil
}

// atomProperty is the accessor behind one .name property of atom sets.
type atomProperty func(model.Atom) value.Value
