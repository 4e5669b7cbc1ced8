// Package script turns script text into token streams and compiles
// expressions into postfix programs for the expression processor.
package script

import (
	"errors"
	"fmt"
	"strings"

	"github.com/openmol/molscript/pkg/value"
)

// ErrSyntax is wrapped by every lexing and compile error.
var ErrSyntax = errors.New("script: syntax error")

// Tok is the kind of a token.
type Tok int

const (
	TokEOF      Tok = iota
	TokEOS          // ';' or end of line
	TokInteger      // IntValue and Value hold the number
	TokDecimal      // Value holds the number
	TokString       // Value holds the unquoted text
	TokBoolean      // IntValue is 1 or 0
	TokPoint        // {x y z} or {x y z w}
	TokBitset       // ({0:2 5})
	TokBondset      // [{0:2}]
	TokAtomExpr     // {name}; Text holds the name
	TokIdent
	TokOperator
	TokLParen
	TokRParen
	TokLBracket
	TokRBracket
	TokLBrace
	TokRBrace
	TokComma
	TokDot
	TokColon
	TokQuestion
)

var tokNames = [...]string{
	TokEOF:      "end of input",
	TokEOS:      "end of statement",
	TokInteger:  "integer",
	TokDecimal:  "decimal",
	TokString:   "string",
	TokBoolean:  "boolean",
	TokPoint:    "point",
	TokBitset:   "atom set",
	TokBondset:  "bond set",
	TokAtomExpr: "atom expression",
	TokIdent:    "identifier",
	TokOperator: "operator",
	TokLParen:   "'('",
	TokRParen:   "')'",
	TokLBracket: "'['",
	TokRBracket: "']'",
	TokLBrace:   "'{'",
	TokRBrace:   "'}'",
	TokComma:    "','",
	TokDot:      "'.'",
	TokColon:    "':'",
	TokQuestion: "'?'",
}

func (t Tok) String() string {
	if t < 0 || int(t) >= len(tokNames) {
		return "token"
	}
	return tokNames[t]
}

// T is one token. Tok must be checked before Value or IntValue is read.
type T struct {
	Tok      Tok
	Value    value.Value
	IntValue int
	Text     string // source text; identifier and operator spelling
	Pos, End int    // byte offsets into the source
	Line     int    // 1-based
	Space    bool   // preceded by whitespace
}

// Is reports whether t is the identifier or operator spelled s, ignoring
// case for identifiers.
func (t T) Is(s string) bool {
	switch t.Tok {
	case TokIdent:
		return strings.EqualFold(t.Text, s)
	case TokOperator:
		return t.Text == s
	}
	return false
}

// Literal reports whether t carries a value that can be pushed directly.
func (t T) Literal() bool {
	switch t.Tok {
	case TokInteger, TokDecimal, TokString, TokBoolean, TokPoint, TokBitset, TokBondset:
		return true
	}
	return false
}

func (t T) String() string {
	if t.Text != "" {
		return t.Text
	}
	return t.Tok.String()
}

func errorAt(t T, format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", ErrSyntax, t.Line, fmt.Sprintf(format, args...))
}
