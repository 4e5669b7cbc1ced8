package eval

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/openmol/molscript/pkg/events"
	"github.com/openmol/molscript/pkg/script"
	"github.com/openmol/molscript/pkg/value"
)

// Dispatcher runs script commands. It is implemented by package commands.
type Dispatcher interface {
	Has(name string) bool
	Dispatch(ctx *EvalContext, st script.Statement, chk bool) Result
}

// Session runs scripts statement by statement against one EvalContext.
// At most one script is active per session.
type Session struct {
	ID       string
	Ctx      *EvalContext
	Commands Dispatcher

	stmts   []script.Statement
	next    int
	pending *Continuation
}

// NewSession creates a session over ctx. cmds may be nil, in which case
// every statement is an assignment or an expression.
func NewSession(ctx *EvalContext, cmds Dispatcher) *Session {
	s := &Session{ID: uuid.NewString(), Ctx: ctx, Commands: cmds}
	if ctx.SessionID == "" {
		ctx.SessionID = s.ID
	}
	return s
}

// Run parses src and executes it from the first statement. It stops at the
// first failure or suspension. The Value of a Done result is the value of
// the last expression statement.
func (s *Session) Run(src string) Result {
	stmts, err := script.Parse(src)
	if err != nil {
		return s.fail(err, 0)
	}
	s.stmts, s.next, s.pending = stmts, 0, nil
	s.Ctx.ClearStop()
	return s.run()
}

// Resume continues a suspended script. The continuation must be the one
// the session handed out last.
func (s *Session) Resume(c *Continuation) Result {
	if c == nil || s.pending == nil || c.ID != s.pending.ID {
		return Fail(InvalidArg("resume", "no such continuation"))
	}
	s.pending = nil
	s.next = c.Statement
	return s.run()
}

// Pending returns the outstanding continuation, if any.
func (s *Session) Pending() *Continuation { return s.pending }

// Stop requests that the running script stop before its next statement.
func (s *Session) Stop() { s.Ctx.RequestStop() }

// Complete runs src and resumes every suspension after its delay until the
// script finishes, fails, or ctx is cancelled.
func (s *Session) Complete(ctx context.Context, src string) Result {
	res := s.Run(src)
	for res.Status == Suspended {
		t := time.NewTimer(res.Cont.Delay)
		select {
		case <-ctx.Done():
			t.Stop()
			s.Ctx.RequestStop()
			return s.fail(Interrupted("delay"), res.Cont.Line)
		case <-t.C:
		}
		if s.Ctx.StopRequested() {
			return s.fail(Interrupted("delay"), res.Cont.Line)
		}
		res = s.Resume(res.Cont)
	}
	return res
}

// Check runs src in check mode: every statement is parsed and validated,
// commands perform no mutation and assignments do not reach the session.
// All failures are reported, joined.
func (s *Session) Check(src string) error {
	stmts, err := script.Parse(src)
	if err != nil {
		return atLine(err, 0)
	}
	ctx := s.Ctx.forCheck()
	var errs []error
	for _, st := range stmts {
		if res := s.exec(ctx, st, true); res.Status == Failed {
			errs = append(errs, res.Err)
		}
	}
	return errors.Join(errs...)
}

func (s *Session) run() Result {
	last := value.Nil()
	for s.next < len(s.stmts) {
		st := s.stmts[s.next]
		if s.Ctx.StopRequested() {
			s.Ctx.ClearStop()
			return s.fail(Interrupted(""), st.Line)
		}
		s.next++
		res := s.exec(s.Ctx, st, false)
		switch res.Status {
		case Failed:
			return s.fail(res.Err, st.Line)
		case Suspended:
			res.Cont.Statement, res.Cont.Line = s.next, st.Line
			s.pending = res.Cont
			s.Ctx.Emit(events.EvSuspend, st.Line, st.Text, map[string]any{"id": res.Cont.ID, "delay": res.Cont.Delay})
			return res
		}
		if !res.Value.IsNil() {
			last = res.Value
		}
	}
	return DoneWith(last)
}

func (s *Session) fail(err error, line int) Result {
	err = atLine(err, line)
	s.Ctx.Emit(events.EvError, line, err.Error(), nil)
	return Fail(err)
}

// exec runs one statement: a command, an assignment or an expression.
func (s *Session) exec(ctx *EvalContext, st script.Statement, chk bool) Result {
	toks := st.Tokens
	head := toks[0]
	if head.Tok == script.TokIdent && s.Commands != nil && s.Commands.Has(strings.ToLower(head.Text)) && !isAssignment(toks) {
		start := time.Now()
		res := s.Commands.Dispatch(ctx, st, chk)
		if ctx.Observer != nil {
			ctx.Observer.ObserveCommand(strings.ToLower(head.Text), time.Since(start), res.Err)
		}
		if res.Status == Failed {
			res.Err = atLine(res.Err, st.Line)
		}
		return res
	}
	if isAssignment(toks) {
		return Fail(ctx.assign(toks, chk))
	}
	v, err := ctx.evalTokens(toks, chk)
	if err != nil {
		return Fail(err)
	}
	return DoneWith(v)
}

// isAssignment recognizes "name = expr", "var name = expr" and
// "name[index] = expr".
func isAssignment(toks []script.T) bool {
	return assignSplit(toks) > 0
}

// assignSplit returns the index of the assignment '=' token, or -1.
func assignSplit(toks []script.T) int {
	i := 0
	if len(toks) > 2 && toks[0].Is("var") && toks[1].Tok == script.TokIdent {
		i = 1
	}
	if toks[i].Tok != script.TokIdent {
		return -1
	}
	j := i + 1
	if j < len(toks) && toks[j].Tok == script.TokLBracket && !toks[j].Space {
		depth := 0
		for ; j < len(toks); j++ {
			switch toks[j].Tok {
			case script.TokLBracket, script.TokLParen, script.TokLBrace:
				depth++
			case script.TokRBracket, script.TokRParen, script.TokRBrace:
				depth--
			}
			if depth == 0 {
				break
			}
		}
		j++
	}
	if j < len(toks)-1 && toks[j].Tok == script.TokOperator && toks[j].Text == "=" {
		return j
	}
	return -1
}

func (ctx *EvalContext) assign(toks []script.T, chk bool) error {
	eq := assignSplit(toks)
	lhs := toks[:eq]
	if lhs[0].Is("var") {
		lhs = lhs[1:]
	}
	name := strings.ToLower(lhs[0].Text)
	v, err := ctx.evalTokens(toks[eq+1:], chk)
	if err != nil {
		return err
	}
	if len(lhs) == 1 {
		ctx.SetVar(name, v.DeepCopy())
		return nil
	}
	idx, err := ctx.evalTokens(lhs[2:len(lhs)-1], chk)
	if err != nil {
		return err
	}
	cur, ok := ctx.Vars[name]
	if !ok {
		if chk {
			return nil
		}
		return InvalidArg("", "undefined variable %s", name)
	}
	out, err := setItem(cur, idx, v.DeepCopy())
	if err != nil {
		return err
	}
	ctx.SetVar(name, out)
	return nil
}

// setItem returns a copy of container with container[idx] = v. A list
// index one past the end appends.
func setItem(container, idx, v value.Value) (value.Value, error) {
	switch container.Kind() {
	case value.KindList:
		vs, _ := container.DeepCopy().List()
		i := idx.AsInt()
		if i <= 0 {
			i += len(vs)
		}
		switch {
		case i >= 1 && i <= len(vs):
			vs[i-1] = v
		case i == len(vs)+1:
			vs = append(vs, v)
		default:
			return value.Nil(), InvalidArg("[]", "index %d out of range", idx.AsInt())
		}
		return value.List(vs...), nil
	case value.KindMap:
		m, _ := container.DeepCopy().Map()
		m.Set(idx.AsString(), v)
		return value.FromMap(m), nil
	}
	return value.Nil(), InvalidArg("[]", "cannot assign into %s", container.Kind())
}

func (ctx *EvalContext) evalTokens(toks []script.T, chk bool) (value.Value, error) {
	prog, err := script.CompileTokens(toks)
	if err != nil {
		return value.Nil(), err
	}
	return ctx.NewProcessor(chk).Run(prog)
}

// Eval runs a compiled expression.
func (ctx *EvalContext) Eval(prog *script.Program, chk bool) (value.Value, error) {
	return ctx.NewProcessor(chk).Run(prog)
}

// EvalString compiles and runs one expression.
func (ctx *EvalContext) EvalString(src string) (value.Value, error) {
	prog, err := script.Compile(src)
	if err != nil {
		return value.Nil(), atLine(err, 0)
	}
	return ctx.Eval(prog, false)
}
