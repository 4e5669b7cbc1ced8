package script

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/openmol/molscript/pkg/value"
)

// Op is a postfix instruction code.
type Op int

const (
	OpPush      Op = iota // push Value
	OpLoad                // push variable Name
	OpAtoms               // push the atom set named Name
	OpOperator            // apply operator Name to Argc operands
	OpCall                // call function Name with Argc arguments
	OpMethod              // call Name on a receiver below Argc arguments
	OpProperty            // read property Name of the top value
	OpIndex               // pop index and receiver, push receiver[index]
	OpList                // pop Argc values into a list
	OpMap                 // pop Argc key/value pairs into a map
	OpJump                // continue at Target
	OpJumpFalse           // pop; continue at Target when false
	OpAnd                 // pop; when false push false and continue at Target
	OpOr                  // pop; when true push true and continue at Target
	OpBool                // replace the top value with its truth value
)

// Instr is one postfix instruction.
type Instr struct {
	Op     Op
	Value  value.Value
	Name   string
	Argc   int
	Target int
	Line   int
}

// Program is a compiled expression.
type Program struct {
	Code   []Instr
	Source string
}

// String renders the program in postfix notation, for example
// "1 2 3 * +".
func (p *Program) String() string {
	parts := make([]string, len(p.Code))
	for i, in := range p.Code {
		switch in.Op {
		case OpPush:
			parts[i] = in.Value.Escape()
		case OpLoad:
			parts[i] = in.Name
		case OpAtoms:
			parts[i] = "{" + in.Name + "}"
		case OpOperator:
			parts[i] = in.Name
			if in.Argc == 1 && in.Name == "-" {
				parts[i] = "neg"
			}
		case OpCall:
			parts[i] = in.Name + "/" + strconv.Itoa(in.Argc)
		case OpMethod:
			parts[i] = "." + in.Name + "/" + strconv.Itoa(in.Argc)
		case OpProperty:
			parts[i] = "." + in.Name
		case OpIndex:
			parts[i] = "[]"
		case OpList:
			parts[i] = "[" + strconv.Itoa(in.Argc) + "]"
		case OpMap:
			parts[i] = "{" + strconv.Itoa(in.Argc) + "}"
		case OpJump:
			parts[i] = "jmp@" + strconv.Itoa(in.Target)
		case OpJumpFalse:
			parts[i] = "jf@" + strconv.Itoa(in.Target)
		case OpAnd:
			parts[i] = "and@" + strconv.Itoa(in.Target)
		case OpOr:
			parts[i] = "or@" + strconv.Itoa(in.Target)
		case OpBool:
			parts[i] = "bool"
		}
	}
	return strings.Join(parts, " ")
}

// Compile compiles a complete expression.
func Compile(src string) (*Program, error) {
	toks, err := Lex(src)
	if err != nil {
		return nil, err
	}
	if len(toks) == 0 {
		return nil, fmt.Errorf("%w: empty expression", ErrSyntax)
	}
	prog, next, err := ParseExpr(toks, 0)
	if err != nil {
		return nil, err
	}
	if next < len(toks) {
		return nil, errorAt(toks[next], "unexpected %s after expression", toks[next])
	}
	prog.Source = strings.TrimSpace(src)
	return prog, nil
}

// CompileTokens compiles toks, which must hold exactly one expression.
func CompileTokens(toks []T) (*Program, error) {
	if len(toks) == 0 {
		return nil, fmt.Errorf("%w: empty expression", ErrSyntax)
	}
	prog, next, err := ParseExpr(toks, 0)
	if err != nil {
		return nil, err
	}
	if next < len(toks) {
		return nil, errorAt(toks[next], "unexpected %s after expression", toks[next])
	}
	return prog, nil
}

// ParseExpr compiles the longest expression starting at toks[pos] and
// returns the index of the first token after it. Command handlers use it
// to read expression arguments that follow one another without commas.
func ParseExpr(toks []T, pos int) (*Program, int, error) {
	c := &compiler{toks: toks, pos: pos}
	if err := c.ternary(); err != nil {
		return nil, pos, err
	}
	return &Program{Code: c.code, Source: tokenText(toks[pos:c.pos])}, c.pos, nil
}

func tokenText(toks []T) string {
	var sb strings.Builder
	for i, t := range toks {
		if i > 0 && t.Space {
			sb.WriteByte(' ')
		}
		sb.WriteString(t.Text)
	}
	return sb.String()
}

type compiler struct {
	toks []T
	pos  int
	code []Instr
}

// binary operator precedence, low to high
var precedence = map[string]int{
	"||": 1,
	"&&": 2,
	"==": 3, "!=": 3, "=": 3,
	"<": 4, ">": 4, "<=": 4, ">=": 4,
	"+": 5, "-": 5,
	"*": 6, "/": 6, "%": 6,
}

func (c *compiler) peek() T {
	if c.pos < len(c.toks) {
		return c.toks[c.pos]
	}
	t := T{Tok: TokEOF}
	if n := len(c.toks); n > 0 {
		t.Line, t.Pos, t.End = c.toks[n-1].Line, c.toks[n-1].End, c.toks[n-1].End
	}
	return t
}

func (c *compiler) advance() T {
	t := c.peek()
	if c.pos < len(c.toks) {
		c.pos++
	}
	return t
}

func (c *compiler) expect(kind Tok) (T, error) {
	t := c.peek()
	if t.Tok != kind {
		return t, errorAt(t, "expected %s, found %s", kind, t)
	}
	return c.advance(), nil
}

func (c *compiler) emit(in Instr) int {
	c.code = append(c.code, in)
	return len(c.code) - 1
}

func (c *compiler) ternary() error {
	if err := c.binary(1); err != nil {
		return err
	}
	if c.peek().Tok != TokQuestion {
		return nil
	}
	q := c.advance()
	jf := c.emit(Instr{Op: OpJumpFalse, Line: q.Line})
	if err := c.ternary(); err != nil {
		return err
	}
	if _, err := c.expect(TokColon); err != nil {
		return err
	}
	jmp := c.emit(Instr{Op: OpJump, Line: q.Line})
	c.code[jf].Target = len(c.code)
	if err := c.ternary(); err != nil {
		return err
	}
	c.code[jmp].Target = len(c.code)
	return nil
}

// binary is a precedence climber over the left-associative operators.
func (c *compiler) binary(minPrec int) error {
	if err := c.unary(); err != nil {
		return err
	}
	for {
		t := c.peek()
		prec, ok := precedence[t.Text]
		if t.Tok != TokOperator || !ok || prec < minPrec {
			return nil
		}
		c.advance()
		switch t.Text {
		case "&&", "||":
			op := OpAnd
			if t.Text == "||" {
				op = OpOr
			}
			j := c.emit(Instr{Op: op, Line: t.Line})
			if err := c.binary(prec + 1); err != nil {
				return err
			}
			c.emit(Instr{Op: OpBool, Line: t.Line})
			c.code[j].Target = len(c.code)
		default:
			if err := c.binary(prec + 1); err != nil {
				return err
			}
			name := t.Text
			if name == "=" {
				name = "=="
			}
			c.emit(Instr{Op: OpOperator, Name: name, Argc: 2, Line: t.Line})
		}
	}
}

func (c *compiler) unary() error {
	t := c.peek()
	if t.Tok == TokOperator && (t.Text == "-" || t.Text == "!" || t.Text == "+") {
		c.advance()
		if err := c.unary(); err != nil {
			return err
		}
		if t.Text != "+" {
			c.emit(Instr{Op: OpOperator, Name: t.Text, Argc: 1, Line: t.Line})
		}
		return nil
	}
	return c.power()
}

// power binds tighter than unary minus on its left and is right
// associative: -2**2 is -4 and 2**3**2 is 512.
func (c *compiler) power() error {
	if err := c.postfix(); err != nil {
		return err
	}
	t := c.peek()
	if t.Tok != TokOperator || t.Text != "**" {
		return nil
	}
	c.advance()
	if err := c.unary(); err != nil {
		return err
	}
	c.emit(Instr{Op: OpOperator, Name: "**", Argc: 2, Line: t.Line})
	return nil
}

func (c *compiler) postfix() error {
	if err := c.primary(); err != nil {
		return err
	}
	for {
		t := c.peek()
		switch {
		case t.Tok == TokDot && !t.Space:
			c.advance()
			name, err := c.expect(TokIdent)
			if err != nil {
				return err
			}
			if c.peek().Tok == TokLParen && !c.peek().Space {
				n, err := c.args(TokRParen)
				if err != nil {
					return err
				}
				c.emit(Instr{Op: OpMethod, Name: strings.ToLower(name.Text), Argc: n, Line: name.Line})
			} else {
				c.emit(Instr{Op: OpProperty, Name: strings.ToLower(name.Text), Line: name.Line})
			}
		case t.Tok == TokLBracket && !t.Space:
			c.advance()
			if err := c.ternary(); err != nil {
				return err
			}
			if _, err := c.expect(TokRBracket); err != nil {
				return err
			}
			c.emit(Instr{Op: OpIndex, Line: t.Line})
		default:
			return nil
		}
	}
}

// args compiles a parenthesized or bracketed argument list, consuming the
// opening token, and returns the argument count.
func (c *compiler) args(close Tok) (int, error) {
	c.advance()
	if c.peek().Tok == close {
		c.advance()
		return 0, nil
	}
	n := 0
	for {
		if err := c.ternary(); err != nil {
			return 0, err
		}
		n++
		t := c.advance()
		switch t.Tok {
		case close:
			return n, nil
		case TokComma:
		default:
			return 0, errorAt(t, "expected ',' or %s, found %s", close, t)
		}
	}
}

func (c *compiler) primary() error {
	t := c.peek()
	switch t.Tok {
	case TokInteger, TokDecimal, TokString, TokBoolean, TokPoint, TokBitset, TokBondset:
		c.advance()
		c.emit(Instr{Op: OpPush, Value: t.Value, Line: t.Line})
	case TokAtomExpr:
		c.advance()
		c.emit(Instr{Op: OpAtoms, Name: t.Text, Line: t.Line})
	case TokIdent:
		c.advance()
		if c.peek().Tok == TokLParen {
			n, err := c.args(TokRParen)
			if err != nil {
				return err
			}
			c.emit(Instr{Op: OpCall, Name: strings.ToLower(t.Text), Argc: n, Line: t.Line})
			return nil
		}
		if strings.EqualFold(t.Text, "all") {
			c.emit(Instr{Op: OpPush, Value: value.All(), Line: t.Line})
			return nil
		}
		c.emit(Instr{Op: OpLoad, Name: strings.ToLower(t.Text), Line: t.Line})
	case TokLParen:
		c.advance()
		if err := c.ternary(); err != nil {
			return err
		}
		if _, err := c.expect(TokRParen); err != nil {
			return err
		}
	case TokLBracket:
		n, err := c.args(TokRBracket)
		if err != nil {
			return err
		}
		c.emit(Instr{Op: OpList, Argc: n, Line: t.Line})
	case TokLBrace:
		return c.mapLiteral()
	default:
		return errorAt(t, "unexpected %s", t)
	}
	return nil
}

// mapLiteral compiles { key: value, ... }. Bare identifier keys are taken
// as strings.
func (c *compiler) mapLiteral() error {
	open := c.advance()
	n := 0
	if c.peek().Tok == TokRBrace {
		c.advance()
		c.emit(Instr{Op: OpMap, Line: open.Line})
		return nil
	}
	for {
		k := c.peek()
		if k.Tok == TokIdent && c.pos+1 < len(c.toks) && c.toks[c.pos+1].Tok == TokColon {
			c.advance()
			c.emit(Instr{Op: OpPush, Value: value.String(k.Text), Line: k.Line})
		} else if err := c.ternary(); err != nil {
			return err
		}
		if _, err := c.expect(TokColon); err != nil {
			return err
		}
		if err := c.ternary(); err != nil {
			return err
		}
		n++
		t := c.advance()
		switch t.Tok {
		case TokRBrace:
			c.emit(Instr{Op: OpMap, Argc: n, Line: open.Line})
			return nil
		case TokComma:
		default:
			return errorAt(t, "expected ',' or '}', found %s", t)
		}
	}
}

// StartsExpr reports whether t can begin an expression.
func StartsExpr(t T) bool {
	switch t.Tok {
	case TokInteger, TokDecimal, TokString, TokBoolean, TokPoint, TokBitset, TokBondset,
		TokAtomExpr, TokIdent, TokLParen, TokLBracket, TokLBrace:
		return true
	case TokOperator:
		return t.Text == "-" || t.Text == "!" || t.Text == "+"
	}
	return false
}
