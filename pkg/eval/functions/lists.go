package functions

import (
	"sort"
	"strings"

	"github.com/openmol/molscript/pkg/eval"
	"github.com/openmol/molscript/pkg/value"
)

func registerLists(ctx *eval.EvalContext) {
	ctx.RegisterFunction("add", listArith(opAdd), 2, 2, 0)
	ctx.RegisterFunction("sub", listArith(opSub), 2, 2, 0)
	ctx.RegisterFunction("mul", listArith(opMul), 2, 2, 0)
	ctx.RegisterFunction("div", listArith(opDiv), 2, 2, 0)
	ctx.RegisterFunction("join", fnJoin, 1, 3, 0)
	ctx.RegisterFunction("split", fnSplit, 1, 2, 0)
	ctx.RegisterFunction("push", fnPush, 2, 3, 0)
	ctx.RegisterFunction("pop", fnPop, 1, 2, 0)
	ctx.RegisterFunction("array", fnArray, 0, anyArgs, 0)
	ctx.RegisterFunction("sort", fnSort, 1, 2, 0)
	ctx.RegisterFunction("reverse", fnReverse, 1, 1, 0)
	ctx.RegisterFunction("in", fnIn, 2, 2, 0)
	ctx.RegisterFunction("count", fnCount, 1, 2, 0)
	ctx.RegisterFunction("keys", fnKeys, 1, 1, 0)
	ctx.RegisterFunction("length", fnLength, 1, 1, 0)
	ctx.RegisterFunction("lines", fnLines, 1, 1, 0)
	ctx.RegisterFunction("bytes", fnBytes, 1, 1, 0)
	ctx.AliasFunction("size", "length")
}

// --- Broadcast arithmetic ---

// listArith builds add, sub, mul and div. They behave like the operators,
// except that multi-line strings take part as lists of their lines.
func listArith(op arith) eval.FnHandler {
	return func(ctx *eval.EvalContext, call eval.Call) (value.Value, error) {
		a, b := call.Args[0], call.Args[1]
		if isMulti(a) {
			a = value.List(elements(a)...)
		}
		if isMulti(b) {
			b = value.List(elements(b)...)
		}
		return binary(ctx, op, a, b)
	}
}

// join(list) concatenates the elements' text; join(list, sep) separates
// them with sep; join(list, ALL) flattens nested lists into one string;
// join(list, list2) appends list2; join(list, sep, list2) joins
// pairwise, giving a[i] + sep + b[i] up to the shorter length.
func fnJoin(_ *eval.EvalContext, call eval.Call) (value.Value, error) {
	vs := elements(call.Args[0])
	if call.N() == 1 {
		return value.String(joinText(vs, "")), nil
	}
	arg := call.Args[1]
	switch {
	case call.N() == 3:
		sep := arg.AsString()
		ws := elements(call.Args[2])
		n := min(len(vs), len(ws))
		out := make([]value.Value, n)
		for i := 0; i < n; i++ {
			out[i] = value.String(vs[i].AsString() + sep + ws[i].AsString())
		}
		return value.List(out...), nil
	case arg.IsAll():
		return value.String(joinText(flatten(vs), "")), nil
	case arg.Kind() == value.KindList:
		ws, _ := arg.List()
		out := append(append([]value.Value(nil), vs...), ws...)
		return value.List(out...).DeepCopy(), nil
	}
	return value.String(joinText(vs, arg.AsString())), nil
}

func joinText(vs []value.Value, sep string) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.AsString()
	}
	return strings.Join(parts, sep)
}

func flatten(vs []value.Value) []value.Value {
	var out []value.Value
	for _, v := range vs {
		if l, ok := v.List(); ok {
			out = append(out, flatten(l)...)
			continue
		}
		out = append(out, v)
	}
	return out
}

// split(s) splits into lines, split(s, sep) at sep. A list splits each
// element.
func fnSplit(_ *eval.EvalContext, call eval.Call) (value.Value, error) {
	sep := "\n"
	if call.N() == 2 {
		sep = call.Args[1].AsString()
	}
	return each(call.Args[0], func(v value.Value) (value.Value, error) {
		s := v.AsString()
		if sep == "\n" {
			return value.Strings(value.Lines(s)), nil
		}
		return value.Strings(strings.Split(s, sep)), nil
	})
}

// push returns a copy of the receiver with more content: push(list, v)
// appends v, push(map, key, v) sets key and push(map, map2) merges map2.
func fnPush(_ *eval.EvalContext, call eval.Call) (value.Value, error) {
	recv := call.Args[0].DeepCopy()
	switch recv.Kind() {
	case value.KindList:
		if call.N() != 2 {
			return value.Nil(), call.Errorf("list push takes one value")
		}
		vs, _ := recv.List()
		return value.List(append(vs, call.Args[1].DeepCopy())...), nil
	case value.KindMap:
		m, _ := recv.Map()
		if call.N() == 3 {
			m.Set(call.Args[1].AsString(), call.Args[2].DeepCopy())
			return recv, nil
		}
		n, ok := call.Args[1].Map()
		if !ok {
			return value.Nil(), call.Errorf("map push takes a key and value, or a map")
		}
		n.Each(func(k string, v value.Value) { m.Set(k, v.DeepCopy()) })
		return recv, nil
	case value.KindNil:
		return value.List(call.Args[1:]...).DeepCopy(), nil
	}
	return value.Nil(), call.Errorf("cannot push onto %s", recv.Kind())
}

// pop(list) is the last element, pop(map, key) the value under key. An
// empty list gives Nil.
func fnPop(_ *eval.EvalContext, call eval.Call) (value.Value, error) {
	recv := call.Args[0]
	switch recv.Kind() {
	case value.KindList:
		v, _ := recv.Item(0)
		return v, nil
	case value.KindMap:
		if call.N() != 2 {
			return value.Nil(), call.Errorf("map pop needs a key")
		}
		m, _ := recv.Map()
		v, _ := m.Get(call.Args[1].AsString())
		return v, nil
	}
	return value.Nil(), call.Errorf("cannot pop from %s", recv.Kind())
}

// --- Lists ---

func fnArray(_ *eval.EvalContext, call eval.Call) (value.Value, error) {
	return value.List(call.Args...).DeepCopy(), nil
}

// sort(list) orders a copy; sort(list, -1) descending; sort(list, key)
// orders a list of maps by the value under key.
func fnSort(_ *eval.EvalContext, call eval.Call) (value.Value, error) {
	vs := append([]value.Value(nil), elements(call.Args[0])...)
	if call.N() == 2 && call.Args[1].Kind() == value.KindString {
		key := call.Args[1].AsString()
		sort.SliceStable(vs, func(i, j int) bool {
			a, b := mapField(vs[i], key), mapField(vs[j], key)
			c, ok := value.Compare(a, b)
			return ok && c < 0
		})
		return value.List(vs...), nil
	}
	value.SortValues(vs)
	if call.N() == 2 && call.Args[1].AsInt() < 0 {
		reverseValues(vs)
	}
	return value.List(vs...), nil
}

func mapField(v value.Value, key string) value.Value {
	m, ok := v.Map()
	if !ok {
		return value.Nil()
	}
	f, _ := m.Get(key)
	return f
}

func reverseValues(vs []value.Value) {
	for i, j := 0, len(vs)-1; i < j; i, j = i+1, j-1 {
		vs[i], vs[j] = vs[j], vs[i]
	}
}

// reverse(list) reverses a copy; reverse(string) reverses its characters.
func fnReverse(_ *eval.EvalContext, call eval.Call) (value.Value, error) {
	v := call.Args[0]
	if v.Kind() == value.KindString {
		r := []rune(v.AsString())
		for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
			r[i], r[j] = r[j], r[i]
		}
		return value.String(string(r)), nil
	}
	vs := append([]value.Value(nil), elements(v)...)
	reverseValues(vs)
	return value.List(vs...), nil
}

// in(v, collection): list membership by ==, map key presence, substring
// test for strings, and atom index or subset membership for atom sets.
func fnIn(_ *eval.EvalContext, call eval.Call) (value.Value, error) {
	v, coll := call.Args[0], call.Args[1]
	switch coll.Kind() {
	case value.KindList:
		vs, _ := coll.List()
		for _, e := range vs {
			if value.Equal(e, v) {
				return value.Bool(true), nil
			}
		}
		return value.Bool(false), nil
	case value.KindMap:
		m, _ := coll.Map()
		_, ok := m.Get(v.AsString())
		return value.Bool(ok), nil
	case value.KindString:
		return value.Bool(strings.Contains(strings.ToLower(coll.AsString()), strings.ToLower(v.AsString()))), nil
	case value.KindAtomSet, value.KindBondSet:
		bs, _ := coll.BitSet()
		if sub, ok := v.BitSet(); ok {
			return value.Bool(bs.ContainsAll(sub)), nil
		}
		return value.Bool(bs.Get(v.AsInt())), nil
	}
	return value.Bool(value.Equal(v, coll)), nil
}

// count(x) is the element count; count(list, v) the number of elements
// equal to v.
func fnCount(_ *eval.EvalContext, call eval.Call) (value.Value, error) {
	v := call.Args[0]
	if call.N() == 1 {
		if v.Kind() == value.KindString {
			return value.Int(len(elements(v))), nil
		}
		return value.Int(v.Len()), nil
	}
	key := value.HashKey(call.Args[1])
	n := 0
	for _, e := range elements(v) {
		if value.HashKey(e) == key && value.Equal(e, call.Args[1]) {
			n++
		}
	}
	return value.Int(n), nil
}

// keys(map) lists the keys in sorted order.
func fnKeys(_ *eval.EvalContext, call eval.Call) (value.Value, error) {
	m, ok := call.Args[0].Map()
	if !ok {
		return value.Nil(), call.Errorf("needs a map, got %s", call.Args[0].Kind())
	}
	ks := m.Keys()
	sort.Strings(ks)
	return value.Strings(ks), nil
}

// length: collection size, character count of strings and numbers, vector
// length of points.
func fnLength(_ *eval.EvalContext, call eval.Call) (value.Value, error) {
	v := call.Args[0]
	switch v.Kind() {
	case value.KindPoint3, value.KindPoint4:
		return value.Double(v.AsDouble()), nil
	case value.KindInteger, value.KindDouble, value.KindBoolean:
		return value.Int(len([]rune(v.AsString()))), nil
	}
	return value.Int(v.Len()), nil
}

func fnLines(_ *eval.EvalContext, call eval.Call) (value.Value, error) {
	return value.Strings(value.Lines(call.Args[0].AsString())), nil
}

// bytes(x): a blob passes through; a list of integers packs into bytes;
// anything else gives the bytes of its text.
func fnBytes(_ *eval.EvalContext, call eval.Call) (value.Value, error) {
	v := call.Args[0]
	switch v.Kind() {
	case value.KindBlob:
		return v, nil
	case value.KindList:
		vs, _ := v.List()
		b := make([]byte, len(vs))
		for i, e := range vs {
			b[i] = byte(e.AsInt())
		}
		return value.Blob(b), nil
	}
	return value.Blob([]byte(v.AsString())), nil
}
