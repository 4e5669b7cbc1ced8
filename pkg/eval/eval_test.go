package eval_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openmol/molscript/pkg/eval"
	"github.com/openmol/molscript/pkg/eval/functions"
	"github.com/openmol/molscript/pkg/events"
	"github.com/openmol/molscript/pkg/geom"
	"github.com/openmol/molscript/pkg/model"
	"github.com/openmol/molscript/pkg/script"
	"github.com/openmol/molscript/pkg/value"
)

func newModel() *model.Store {
	s := model.NewStore()
	s.AddAtom(model.Atom{Element: "C", Pos: geom.P3{}})
	s.AddAtom(model.Atom{Element: "C", Pos: geom.P3{X: 2}})
	s.AddAtom(model.Atom{Element: "O", Pos: geom.P3{X: 2, Y: 2}})
	return s
}

func newContext(s *model.Store) *eval.EvalContext {
	ctx := eval.NewEvalContext(s)
	functions.RegisterAll(ctx)
	return ctx
}

// testCommands is a minimal command set:
//
//	delay n   suspend for n milliseconds
//	mark      set variable marked to true, except in check mode
//	halt      request a stop
//	boom      fail
type testCommands struct {
	dispatched []string
}

func (c *testCommands) Has(name string) bool {
	switch name {
	case "delay", "mark", "halt", "boom":
		return true
	}
	return false
}

func (c *testCommands) Dispatch(ctx *eval.EvalContext, st script.Statement, chk bool) eval.Result {
	name := strings.ToLower(st.Tokens[0].Text)
	c.dispatched = append(c.dispatched, name)
	switch name {
	case "delay":
		ms := 0
		if len(st.Tokens) > 1 {
			ms = st.Tokens[1].IntValue
		}
		if chk {
			return eval.DoneWith(value.Nil())
		}
		return eval.Suspend(time.Duration(ms) * time.Millisecond)
	case "mark":
		if !chk {
			ctx.SetVar("marked", value.Bool(true))
		}
	case "halt":
		if !chk {
			ctx.RequestStop()
		}
	case "boom":
		return eval.Fail(eval.InvalidArg("boom", "always fails"))
	}
	return eval.DoneWith(value.Nil())
}

// --- Processor ---

func TestProcessorStack(t *testing.T) {
	ctx := newContext(newModel())
	p := ctx.NewProcessor(false)
	p.Push(value.Int(2))
	p.Push(value.Int(3))
	require.Equal(t, 2, p.Depth())

	b, err := p.Pop()
	require.NoError(t, err)
	a, err := p.Pop()
	require.NoError(t, err)
	v, err := p.Evaluate("+", []value.Value{a, b})
	require.NoError(t, err)
	require.Equal(t, "5", v.Escape())

	_, err = p.Pop()
	require.ErrorIs(t, err, eval.ErrStackUnderflow)
	require.ErrorIs(t, err, eval.ErrInvalidArgument)
}

func TestProcessorEvaluateFunction(t *testing.T) {
	ctx := newContext(newModel())
	p := ctx.NewProcessor(false)
	v, err := p.Evaluate("sqrt", []value.Value{value.Int(9)})
	require.NoError(t, err)
	require.InDelta(t, 3, v.AsDouble(), 1e-12)

	_, err = p.Evaluate("nosuch", nil)
	require.ErrorIs(t, err, eval.ErrInvalidArgument)
}

func TestPtValue(t *testing.T) {
	ctx := newContext(newModel())
	p := ctx.NewProcessor(false)

	pt, err := p.PtValue(value.String("{1 2 3}"), nil)
	require.NoError(t, err)
	require.Equal(t, geom.P3{X: 1, Y: 2, Z: 3}, pt)

	c, err := ctx.EvalString("{C}")
	require.NoError(t, err)
	pt, err = p.PtValue(c, nil)
	require.NoError(t, err)
	require.InDelta(t, 1, pt.X, 1e-12)

	o, err := ctx.EvalString("{O}")
	require.NoError(t, err)
	bs, _ := o.BitSet()
	_, err = p.PtValue(c, bs)
	require.ErrorIs(t, err, eval.ErrInvalidArgument)

	_, err = p.PtValue(value.Int(4), nil)
	require.ErrorIs(t, err, eval.ErrInvalidArgument)
}

func TestArityAndProperties(t *testing.T) {
	ctx := newContext(newModel())
	tests := map[string]string{
		"sqrt(1, 2)": "expects 1 arguments but got 2",
		"nosuch(1)":  "unknown function",
		"x({C})":     "is a property",
		"{C}.nosuch": "unknown function or property",
		"undefinedv": "undefined variable",
	}
	for src, want := range tests {
		_, err := ctx.EvalString(src)
		require.ErrorIs(t, err, eval.ErrInvalidArgument, src)
		require.Contains(t, err.Error(), want, src)
	}
}

func TestFunctionCounter(t *testing.T) {
	ctx := newContext(newModel())
	_, err := ctx.EvalString("sqrt(4) + abs(-1)")
	require.NoError(t, err)
	// sqrt, abs, neg and + all dispatch through the registries
	require.Equal(t, 4, ctx.FuncInvkCtr)
}

type countingObserver struct {
	functions map[string]int
	commands  map[string]int
	failures  int
}

func (o *countingObserver) ObserveFunction(name string, _ time.Duration, err error) {
	o.functions[name]++
	if err != nil {
		o.failures++
	}
}

func (o *countingObserver) ObserveCommand(name string, _ time.Duration, err error) {
	o.commands[name]++
	if err != nil {
		o.failures++
	}
}

func TestObserver(t *testing.T) {
	ctx := newContext(newModel())
	obs := &countingObserver{functions: map[string]int{}, commands: map[string]int{}}
	ctx.Observer = obs
	s := eval.NewSession(ctx, &testCommands{})
	res := s.Run("x = sqrt(16)\nmark\nboom")
	require.Equal(t, eval.Failed, res.Status)
	require.Equal(t, 1, obs.functions["sqrt"])
	require.Equal(t, 1, obs.commands["mark"])
	require.Equal(t, 1, obs.commands["boom"])
	require.Equal(t, 1, obs.failures)
}

// --- Sets ---

func TestStaleSets(t *testing.T) {
	s := newModel()
	ctx := newContext(s)
	sess := eval.NewSession(ctx, nil)
	require.Equal(t, eval.Done, sess.Run("c = {C}").Status)

	s.AddAtom(model.Atom{Element: "N", Pos: geom.P3{Z: 3}})
	res := sess.Run("c.x")
	require.Equal(t, eval.Failed, res.Status)
	require.ErrorIs(t, res.Err, eval.ErrStale)

	// literal sets carry no generation and are clipped to the model
	res = sess.Run("({0 1 99}).index")
	require.Equal(t, eval.Done, res.Status)
	require.Equal(t, "[0, 1]", res.Value.Escape())

	res = sess.Run("c = {C}\nc.x")
	require.Equal(t, eval.Done, res.Status)
	require.Equal(t, "[0.0, 2.0]", res.Value.Escape())
}

func TestBitsRejectsOtherKinds(t *testing.T) {
	ctx := newContext(newModel())
	_, err := ctx.Bits("f", value.Int(1))
	require.ErrorIs(t, err, eval.ErrInvalidArgument)

	bs, err := ctx.Bits("f", value.All())
	require.NoError(t, err)
	require.Equal(t, 3, bs.Cardinality())

	empty := eval.NewEvalContext(nil)
	_, err = empty.Bits("f", value.All())
	require.ErrorIs(t, err, eval.ErrInvalidArgument)
}

// --- Sessions ---

func TestSessionRun(t *testing.T) {
	ctx := newContext(newModel())
	s := eval.NewSession(ctx, nil)
	res := s.Run("a = 3\nb = a * 2; b + 1")
	require.Equal(t, eval.Done, res.Status)
	require.Equal(t, "7", res.Value.Escape())
	require.Equal(t, "6", ctx.Vars["b"].Escape())

	res = s.Run("var l = [1, 2]\nl[3] = 9\nl[1] = 0\nl")
	require.Equal(t, eval.Done, res.Status)
	require.Equal(t, "[0, 2, 9]", res.Value.Escape())

	res = s.Run(`m = {"a": 1}` + "\n" + `m["b"] = 2` + "\nm.b")
	require.Equal(t, eval.Done, res.Status)
	require.Equal(t, "2", res.Value.Escape())
}

func TestSessionErrorLine(t *testing.T) {
	ctx := newContext(newModel())
	bus := events.NewBus()
	ctx.Bus = bus
	s := eval.NewSession(ctx, nil)
	rec := &events.Recorder{}
	bus.Subscribe(s.ID, rec)

	res := s.Run("a = 1\n\nb = nosuch(a)\nc = 2")
	require.Equal(t, eval.Failed, res.Status)
	var se *eval.ScriptError
	require.True(t, errors.As(res.Err, &se))
	require.Equal(t, 3, se.Line)
	require.Equal(t, "nosuch", se.Func)
	_, ok := ctx.Vars["c"]
	require.False(t, ok)

	evs := rec.Events()
	require.Len(t, evs, 1)
	require.Equal(t, events.EvError, evs[0].Type)
	require.Equal(t, 3, evs[0].Line)
}

func TestSessionSuspendResume(t *testing.T) {
	ctx := newContext(newModel())
	s := eval.NewSession(ctx, &testCommands{})
	res := s.Run("a = 1\ndelay 10\na = 2")
	require.Equal(t, eval.Suspended, res.Status)
	require.Equal(t, 10*time.Millisecond, res.Cont.Delay)
	require.Equal(t, 2, res.Cont.Line)
	require.Equal(t, "1", ctx.Vars["a"].Escape())
	require.Same(t, res.Cont, s.Pending())

	bad := s.Resume(&eval.Continuation{ID: "nope"})
	require.Equal(t, eval.Failed, bad.Status)

	res = s.Resume(res.Cont)
	require.Equal(t, eval.Done, res.Status)
	require.Equal(t, "2", ctx.Vars["a"].Escape())
	require.Nil(t, s.Pending())
}

func TestSessionComplete(t *testing.T) {
	ctx := newContext(newModel())
	s := eval.NewSession(ctx, &testCommands{})
	res := s.Complete(context.Background(), "n = 0\ndelay 1\nn = n + 1\ndelay 1\nn + 1")
	require.Equal(t, eval.Done, res.Status)
	require.Equal(t, "2", res.Value.Escape())

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	res = s.Complete(cancelled, "delay 10000\nn = 99")
	require.Equal(t, eval.Failed, res.Status)
	require.ErrorIs(t, res.Err, eval.ErrInterrupted)
	require.Equal(t, "1", ctx.Vars["n"].Escape())
}

func TestSessionStop(t *testing.T) {
	ctx := newContext(newModel())
	s := eval.NewSession(ctx, &testCommands{})
	res := s.Run("a = 1\nhalt\na = 2")
	require.Equal(t, eval.Failed, res.Status)
	require.ErrorIs(t, res.Err, eval.ErrInterrupted)
	require.Equal(t, "1", ctx.Vars["a"].Escape())

	// the stop flag does not leak into the next run
	res = s.Run("a = 3")
	require.Equal(t, eval.Done, res.Status)
}

func TestSessionCheck(t *testing.T) {
	ctx := newContext(newModel())
	cmds := &testCommands{}
	s := eval.NewSession(ctx, cmds)

	err := s.Check("a = 5\nmark\ndelay 100\nb = later + 1\ncompare({C}, {O})")
	require.NoError(t, err)
	require.Equal(t, []string{"mark", "delay"}, cmds.dispatched)
	_, ok := ctx.Vars["a"]
	require.False(t, ok)
	_, ok = ctx.Vars["marked"]
	require.False(t, ok)

	err = s.Check("x = nosuch(1)\nboom\nsqrt(1, 2)")
	require.Error(t, err)
	require.ErrorIs(t, err, eval.ErrInvalidArgument)
	for _, want := range []string{"nosuch", "boom", "sqrt"} {
		require.Contains(t, err.Error(), want)
	}

	err = s.Check("a = (1 +")
	require.Error(t, err)
}

// An assignment to a command name sets a variable; the bare name still
// runs the command.
func TestCommandNameAsVariable(t *testing.T) {
	ctx := newContext(newModel())
	cmds := &testCommands{}
	s := eval.NewSession(ctx, cmds)
	res := s.Run("mark = 4\nmark * 2")
	require.Equal(t, eval.Done, res.Status)
	require.Equal(t, "4", ctx.Vars["mark"].Escape())
	require.Equal(t, []string{"mark"}, cmds.dispatched)
	require.Equal(t, "true", ctx.Vars["marked"].Escape())
}
