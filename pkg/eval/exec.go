package eval

import (
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/openmol/molscript/pkg/bitset"
	"github.com/openmol/molscript/pkg/geom"
	"github.com/openmol/molscript/pkg/script"
	"github.com/openmol/molscript/pkg/value"
)

// Processor is the operand stack machine that runs compiled expressions.
// It is single-use and not safe for concurrent use.
type Processor struct {
	ctx   *EvalContext
	stack []value.Value
	chk   bool
	line  int
}

// NewProcessor returns a Processor evaluating in ctx. In check mode
// functions flagged FnNoChk are skipped.
func (ctx *EvalContext) NewProcessor(chk bool) *Processor {
	return &Processor{ctx: ctx, chk: chk}
}

// Push adds v to the top of the stack.
func (p *Processor) Push(v value.Value) {
	p.stack = append(p.stack, v)
}

// Pop removes the top of the stack. It fails with ErrStackUnderflow when
// the stack is empty.
func (p *Processor) Pop() (value.Value, error) {
	n := len(p.stack)
	if n == 0 {
		e := InvalidArg("", "operand missing")
		e.Err, e.Line = ErrStackUnderflow, p.line
		return value.Nil(), e
	}
	v := p.stack[n-1]
	p.stack = p.stack[:n-1]
	return v, nil
}

// popN pops n values and returns them in push order.
func (p *Processor) popN(n int) ([]value.Value, error) {
	if n > len(p.stack) {
		e := InvalidArg("", "need %d operands, have %d", n, len(p.stack))
		e.Err, e.Line = ErrStackUnderflow, p.line
		return nil, e
	}
	out := make([]value.Value, n)
	copy(out, p.stack[len(p.stack)-n:])
	p.stack = p.stack[:len(p.stack)-n]
	return out, nil
}

// Depth returns the number of values on the stack.
func (p *Processor) Depth() int { return len(p.stack) }

// Evaluate applies operator or function op to operands. Operators are
// looked up first; unary minus is "neg".
func (p *Processor) Evaluate(op string, operands []value.Value) (value.Value, error) {
	if fn, ok := p.ctx.Operators[op]; ok {
		return p.invoke(fn, Call{Name: op, Args: operands, Chk: p.chk, Line: p.line})
	}
	return p.call(op, operands, false)
}

// PtValue coerces v to a point; see EvalContext.PtValue.
func (p *Processor) PtValue(v value.Value, within *bitset.BS) (geom.P3, error) {
	return p.ctx.PtValue("", v, within)
}

// Run evaluates prog and returns the single value it leaves on the stack.
// The first failure aborts the whole expression.
func (p *Processor) Run(prog *script.Program) (value.Value, error) {
	code := prog.Code
	for pc := 0; pc < len(code); {
		in := code[pc]
		pc++
		p.line = in.Line
		if err := p.step(in, &pc); err != nil {
			return value.Nil(), atLine(err, in.Line)
		}
	}
	if len(p.stack) != 1 {
		return value.Nil(), InvalidArg("", "expression left %d values", len(p.stack))
	}
	return p.Pop()
}

func (p *Processor) step(in script.Instr, pc *int) error {
	ctx := p.ctx
	switch in.Op {
	case script.OpPush:
		p.Push(in.Value)
	case script.OpLoad:
		v, ok := ctx.Lookup(in.Name)
		if !ok {
			if p.chk {
				v = value.Nil()
			} else {
				return InvalidArg("", "undefined variable %s", in.Name)
			}
		}
		p.Push(v)
	case script.OpAtoms:
		m, err := ctx.RequireModel("{" + in.Name + "}")
		if err != nil {
			return err
		}
		bs, ok := m.Named(in.Name)
		if !ok {
			return InvalidArg("", "unknown atom expression {%s}", in.Name)
		}
		p.Push(ctx.NewAtoms(bs))
	case script.OpOperator:
		args, err := p.popN(in.Argc)
		if err != nil {
			return err
		}
		name := in.Name
		if in.Argc == 1 && name == "-" {
			name = "neg"
		}
		fn, ok := ctx.Operators[name]
		if !ok {
			return InvalidArg(name, "unknown operator")
		}
		v, err := p.invoke(fn, Call{Name: name, Args: args, Chk: p.chk, Line: in.Line})
		if err != nil {
			return err
		}
		p.Push(v)
	case script.OpCall, script.OpMethod:
		n := in.Argc
		if in.Op == script.OpMethod {
			n++
		}
		args, err := p.popN(n)
		if err != nil {
			return err
		}
		v, err := p.call(in.Name, args, in.Op == script.OpMethod)
		if err != nil {
			return err
		}
		p.Push(v)
	case script.OpProperty:
		recv, err := p.Pop()
		if err != nil {
			return err
		}
		if m, ok := recv.Map(); ok {
			if v, ok := m.Get(in.Name); ok {
				p.Push(v)
				return nil
			}
		}
		v, err := p.call(in.Name, []value.Value{recv}, true)
		if err != nil {
			return err
		}
		p.Push(v)
	case script.OpIndex:
		args, err := p.popN(2)
		if err != nil {
			return err
		}
		v, err := p.index(args[0], args[1])
		if err != nil {
			return err
		}
		p.Push(v)
	case script.OpList:
		vs, err := p.popN(in.Argc)
		if err != nil {
			return err
		}
		p.Push(value.List(vs...))
	case script.OpMap:
		kv, err := p.popN(2 * in.Argc)
		if err != nil {
			return err
		}
		m := value.NewMap()
		for i := 0; i < len(kv); i += 2 {
			m.Set(kv[i].AsString(), kv[i+1])
		}
		p.Push(value.FromMap(m))
	case script.OpJump:
		*pc = in.Target
	case script.OpJumpFalse:
		v, err := p.Pop()
		if err != nil {
			return err
		}
		if !v.AsBoolean() {
			*pc = in.Target
		}
	case script.OpAnd, script.OpOr:
		v, err := p.Pop()
		if err != nil {
			return err
		}
		b := v.AsBoolean()
		if b == (in.Op == script.OpOr) {
			p.Push(value.Bool(b))
			*pc = in.Target
		}
	case script.OpBool:
		v, err := p.Pop()
		if err != nil {
			return err
		}
		p.Push(value.Bool(v.AsBoolean()))
	default:
		return InvalidArg("", "bad instruction %d", in.Op)
	}
	return nil
}

// call looks up a function, checks its arity and runs it.
func (p *Processor) call(name string, args []value.Value, method bool) (value.Value, error) {
	fn, ok := p.ctx.Functions[name]
	if !ok {
		if method {
			return value.Nil(), InvalidArg(name, "unknown function or property")
		}
		return value.Nil(), InvalidArg(name, "unknown function")
	}
	if fn.Flags&FnProperty != 0 && !method {
		return value.Nil(), InvalidArg(name, "is a property, use x.%s", name)
	}
	return p.invoke(fn, Call{Name: name, Args: args, Method: method, Chk: p.chk, Line: p.line})
}

func (p *Processor) invoke(fn *Function, call Call) (value.Value, error) {
	n := len(call.Args)
	if n < fn.MinArgs || fn.MaxArgs >= 0 && n > fn.MaxArgs {
		return value.Nil(), call.Errorf("expects %s arguments but got %d", arity(fn), n)
	}
	if p.chk && fn.Flags&FnNoChk != 0 {
		return value.Nil(), nil
	}
	p.ctx.FuncInvkCtr++
	start := time.Now()
	v, err := fn.Handler(p.ctx, call)
	if p.ctx.Observer != nil {
		p.ctx.Observer.ObserveFunction(fn.Name, time.Since(start), err)
	}
	if err != nil {
		return value.Nil(), err
	}
	return v, nil
}

func arity(fn *Function) string {
	switch {
	case fn.MaxArgs < 0:
		return strconv.Itoa(fn.MinArgs) + " or more"
	case fn.MinArgs == fn.MaxArgs:
		return strconv.Itoa(fn.MinArgs)
	}
	return strconv.Itoa(fn.MinArgs) + " to " + strconv.Itoa(fn.MaxArgs)
}

// index implements receiver[i]. Lists, strings and atom sets are 1-based
// with i <= 0 counting from the end; maps take a key; points and matrix
// rows take 1..3 (1..4). Out-of-range positions give Nil.
func (p *Processor) index(recv, idx value.Value) (value.Value, error) {
	switch recv.Kind() {
	case value.KindList:
		v, _ := recv.Item(idx.AsInt())
		return v, nil
	case value.KindMap:
		m, _ := recv.Map()
		v, _ := m.Get(idx.AsString())
		return v, nil
	case value.KindString:
		s, _ := recv.Str()
		n := utf8.RuneCountInString(s)
		i, ok := position(idx.AsInt(), n)
		if !ok {
			return value.String(""), nil
		}
		return value.String(string([]rune(s)[i])), nil
	case value.KindAtomSet:
		bs, err := p.ctx.Bits("[]", recv)
		if err != nil {
			return value.Nil(), err
		}
		members := bs.Indices()
		i, ok := position(idx.AsInt(), len(members))
		if !ok {
			return p.ctx.NewAtoms(bitset.New()), nil
		}
		return p.ctx.NewAtoms(bitset.Of(members[i])), nil
	case value.KindPoint3:
		pt, _ := recv.Point3()
		i := idx.AsInt()
		if i < 1 || i > 3 {
			return value.Nil(), nil
		}
		return value.Double(pt.Component(i - 1)), nil
	case value.KindPoint4:
		pt, _ := recv.P4()
		c := []float64{pt.X, pt.Y, pt.Z, pt.W}
		i := idx.AsInt()
		if i < 1 || i > 4 {
			return value.Nil(), nil
		}
		return value.Double(c[i-1]), nil
	case value.KindMatrix3:
		m, _ := recv.M3()
		i := idx.AsInt()
		if i < 1 || i > 3 {
			return value.Nil(), nil
		}
		return value.Point(m.Row(i - 1)), nil
	case value.KindMatrix4:
		m, _ := recv.M4()
		i := idx.AsInt()
		if i < 1 || i > 4 {
			return value.Nil(), nil
		}
		r := m[i-1]
		return value.Point4(geom.P4{X: r[0], Y: r[1], Z: r[2], W: r[3]}), nil
	}
	return value.Nil(), InvalidArg("[]", "cannot index %s", recv.Kind())
}

// position maps a script index onto 0..n-1.
func position(i, n int) (int, bool) {
	if i <= 0 {
		i += n
	}
	if i < 1 || i > n {
		return 0, false
	}
	return i - 1, true
}
