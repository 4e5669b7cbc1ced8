package commands

import (
	"fmt"
	"strings"

	"github.com/openmol/molscript/pkg/bitset"
	"github.com/openmol/molscript/pkg/eval"
	"github.com/openmol/molscript/pkg/events"
	"github.com/openmol/molscript/pkg/geom"
	"github.com/openmol/molscript/pkg/script"
	"github.com/openmol/molscript/pkg/value"
)

// Exec is one command invocation: the statement's tokens after the command
// word and a cursor over them.
type Exec struct {
	Ctx  *eval.EvalContext
	Name string
	Chk  bool
	Line int

	stmt script.Statement
	toks []script.T
	pos  int
}

func (x *Exec) peek() script.T {
	if x.pos < len(x.toks) {
		return x.toks[x.pos]
	}
	return script.T{Tok: script.TokEOS, Line: x.Line}
}

func (x *Exec) done() bool { return x.pos >= len(x.toks) }

// isWord reports whether the next token is one of ws.
func (x *Exec) isWord(ws ...string) bool {
	t := x.peek()
	if t.Tok != script.TokIdent {
		return false
	}
	for _, w := range ws {
		if t.Is(w) {
			return true
		}
	}
	return false
}

// word consumes the next token when it is one of ws and returns it in
// lower case.
func (x *Exec) word(ws ...string) (string, bool) {
	if !x.isWord(ws...) {
		return "", false
	}
	t := x.toks[x.pos]
	x.pos++
	return strings.ToLower(t.Text), true
}

// ident consumes a bare identifier.
func (x *Exec) ident(what string) (string, error) {
	t := x.peek()
	if t.Tok != script.TokIdent {
		return "", x.errorf("expected %s, found %s", what, t)
	}
	x.pos++
	return t.Text, nil
}

// startsExpr reports whether an expression argument follows that is not
// one of the command's keywords.
func (x *Exec) startsExpr(keywords ...string) bool {
	return !x.done() && script.StartsExpr(x.peek()) && !x.isWord(keywords...)
}

// expr evaluates the longest expression at the cursor.
func (x *Exec) expr() (value.Value, error) {
	if x.done() {
		return value.Nil(), x.errorf("missing argument")
	}
	prog, next, err := script.ParseExpr(x.toks, x.pos)
	if err != nil {
		return value.Nil(), err
	}
	x.pos = next
	return x.Ctx.Eval(prog, x.Chk)
}

func (x *Exec) number() (float64, error) {
	v, err := x.expr()
	if err != nil {
		return 0, err
	}
	if x.Chk && v.IsNil() {
		return 0, nil
	}
	if !v.Kind().IsNumeric() {
		return 0, x.errorf("expected a number, got %s", v.Kind())
	}
	return v.AsDouble(), nil
}

func (x *Exec) str() (string, error) {
	v, err := x.expr()
	if err != nil {
		return "", err
	}
	return v.AsString(), nil
}

// atoms evaluates an atom-set argument. In check mode an unresolved
// variable stands in for any set and yields an empty one.
func (x *Exec) atoms() (*bitset.BS, error) {
	v, err := x.expr()
	if err != nil {
		return nil, err
	}
	return x.bits(v)
}

func (x *Exec) bits(v value.Value) (*bitset.BS, error) {
	if x.Chk && v.IsNil() {
		return bitset.New(), nil
	}
	return x.Ctx.Bits(x.Name, v)
}

// operand is an atom set or a fixed point.
type operand struct {
	atoms []int
	point *geom.P3
}

// operandOf accepts atom sets, points and "{x y z}" text.
func (x *Exec) operandOf(v value.Value) (operand, error) {
	if eval.IsSet(v) || (x.Chk && v.IsNil()) {
		bs, err := x.bits(v)
		if err != nil {
			return operand{}, err
		}
		return operand{atoms: bs.Indices()}, nil
	}
	p, err := x.Ctx.PtValue(x.Name, v, nil)
	if err != nil {
		return operand{}, err
	}
	return operand{point: &p}, nil
}

// end fails when arguments remain.
func (x *Exec) end() error {
	if !x.done() {
		return x.errorf("unexpected %s", x.peek())
	}
	return nil
}

// rest returns the source text after the cursor.
func (x *Exec) rest() string {
	if x.done() {
		return ""
	}
	off := x.toks[x.pos].Pos - x.toks[0].Pos
	if off < 0 || off > len(x.stmt.Text) {
		return ""
	}
	return x.stmt.Text[off:]
}

func (x *Exec) errorf(format string, args ...any) *eval.ScriptError {
	e := eval.InvalidArg(x.Name, format, args...)
	e.Line = x.Line
	return e
}

// emit sends output unless checking.
func (x *Exec) emit(t events.EventType, text string, data map[string]any) {
	if x.Chk {
		return
	}
	x.Ctx.Emit(t, x.Line, text, data)
}

func (x *Exec) printf(format string, args ...any) {
	x.emit(events.EvPrint, fmt.Sprintf(format, args...), nil)
}

func (x *Exec) messagef(format string, args ...any) {
	x.emit(events.EvMessage, fmt.Sprintf(format, args...), nil)
}

// modelChanged announces a structural or display edit.
func (x *Exec) modelChanged(what string) {
	x.emit(events.EvModelChange, what, map[string]any{"generation": x.Ctx.Model.Generation()})
}
