package script

import (
	"math"
	"strconv"
	"strings"

	"github.com/openmol/molscript/pkg/bitset"
	"github.com/openmol/molscript/pkg/geom"
	"github.com/openmol/molscript/pkg/value"
)

// Statement is the token slice of one script statement.
type Statement struct {
	Tokens []T
	Line   int
	Text   string
}

// Parse lexes src and splits it into statements.
func Parse(src string) ([]Statement, error) {
	toks, err := Lex(src)
	if err != nil {
		return nil, err
	}
	return Split(src, toks), nil
}

// Split cuts a token stream at TokEOS, dropping empty statements.
func Split(src string, toks []T) []Statement {
	var out []Statement
	start := 0
	for i := 0; i <= len(toks); i++ {
		if i < len(toks) && toks[i].Tok != TokEOS && toks[i].Tok != TokEOF {
			continue
		}
		if i > start {
			st := toks[start:i]
			out = append(out, Statement{
				Tokens: st,
				Line:   st[0].Line,
				Text:   strings.TrimSpace(src[st[0].Pos:st[len(st)-1].End]),
			})
		}
		start = i + 1
	}
	return out
}

// Lex splits src into tokens. Newlines and ';' outside brackets end a
// statement; '#' and '//' start comments running to the end of the line.
func Lex(src string) ([]T, error) {
	lx := &lexer{src: src, line: 1}
	for {
		t, err := lx.next()
		if err != nil {
			return nil, err
		}
		if t.Tok == TokEOF {
			return lx.toks, nil
		}
		lx.toks = append(lx.toks, t)
		lx.lastEnd = t.End
	}
}

type lexer struct {
	src     string
	pos     int
	line    int
	depth   int
	lastEnd int
	toks    []T
}

var twoCharOps = []string{"**", "==", "!=", "<=", ">=", "&&", "||"}

func (lx *lexer) next() (T, error) {
	src := lx.src
	for lx.pos < len(src) {
		c := src[lx.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r':
			lx.pos++
			continue
		case c == '#' || c == '/' && strings.HasPrefix(src[lx.pos:], "//"):
			for lx.pos < len(src) && src[lx.pos] != '\n' {
				lx.pos++
			}
			continue
		case c == '\n':
			if lx.depth > 0 {
				lx.pos++
				lx.line++
				continue
			}
		}
		break
	}
	t := T{Pos: lx.pos, Line: lx.line, Space: lx.pos > lx.lastEnd || len(lx.toks) == 0}
	if lx.pos >= len(src) {
		t.Tok, t.End = TokEOF, lx.pos
		return t, nil
	}
	c := src[lx.pos]
	switch {
	case c == '\n' || c == ';':
		if c == '\n' {
			lx.line++
		}
		lx.pos++
		return lx.emit(t, TokEOS, string(c)), nil
	case isDigit(c) || c == '.' && lx.pos+1 < len(src) && isDigit(src[lx.pos+1]) && !lx.afterOperand(t):
		return lx.number(t)
	case c == '"' || c == '\'':
		return lx.str(t, c)
	case c == '(':
		if lx.callParen(t) {
			lx.depth++
			lx.pos++
			return lx.emit(t, TokLParen, "("), nil
		}
		if bt, ok := lx.setLiteral(t, ')', TokBitset); ok {
			return bt, nil
		}
		lx.depth++
		lx.pos++
		return lx.emit(t, TokLParen, "("), nil
	case c == '[':
		if bt, ok := lx.setLiteral(t, ']', TokBondset); ok {
			return bt, nil
		}
		lx.depth++
		lx.pos++
		return lx.emit(t, TokLBracket, "["), nil
	case c == '{':
		if bt, ok := lx.brace(t); ok {
			return bt, nil
		}
		lx.depth++
		lx.pos++
		return lx.emit(t, TokLBrace, "{"), nil
	case c == ')' || c == ']' || c == '}':
		if lx.depth > 0 {
			lx.depth--
		}
		lx.pos++
		kind := map[byte]Tok{')': TokRParen, ']': TokRBracket, '}': TokRBrace}[c]
		return lx.emit(t, kind, string(c)), nil
	case c == ',':
		lx.pos++
		return lx.emit(t, TokComma, ","), nil
	case c == ':':
		lx.pos++
		return lx.emit(t, TokColon, ":"), nil
	case c == '?':
		lx.pos++
		return lx.emit(t, TokQuestion, "?"), nil
	case c == '.':
		lx.pos++
		return lx.emit(t, TokDot, "."), nil
	case isIdentStart(c):
		j := lx.pos + 1
		for j < len(src) && isIdentPart(src[j]) {
			j++
		}
		word := src[lx.pos:j]
		lx.pos = j
		switch strings.ToLower(word) {
		case "true":
			t.IntValue, t.Value = 1, value.Bool(true)
			return lx.emit(t, TokBoolean, word), nil
		case "false":
			t.Value = value.Bool(false)
			return lx.emit(t, TokBoolean, word), nil
		}
		return lx.emit(t, TokIdent, word), nil
	}
	for _, op := range twoCharOps {
		if strings.HasPrefix(src[lx.pos:], op) {
			lx.pos += 2
			return lx.emit(t, TokOperator, op), nil
		}
	}
	switch c {
	case '+', '-', '*', '/', '%', '<', '>', '!', '=':
		lx.pos++
		return lx.emit(t, TokOperator, string(c)), nil
	case '&':
		lx.pos++
		return lx.emit(t, TokOperator, "&&"), nil
	case '|':
		lx.pos++
		return lx.emit(t, TokOperator, "||"), nil
	}
	return t, errorAt(t, "unexpected character %q", c)
}

func (lx *lexer) emit(t T, kind Tok, text string) T {
	t.Tok, t.Text, t.End = kind, text, lx.pos
	return t
}

// afterOperand reports whether a '.' at t directly follows something that
// can take a property, as in a.x or list[1].y.
func (lx *lexer) afterOperand(t T) bool {
	if len(lx.toks) == 0 || t.Space {
		return false
	}
	switch lx.toks[len(lx.toks)-1].Tok {
	case TokIdent, TokRParen, TokRBracket, TokRBrace, TokString, TokPoint, TokBitset, TokBondset, TokAtomExpr:
		return true
	}
	return false
}

// callParen reports whether a '(' at t opens the argument list of a call,
// as in f({1 2 3}).
func (lx *lexer) callParen(t T) bool {
	return len(lx.toks) > 0 && !t.Space && lx.toks[len(lx.toks)-1].Tok == TokIdent
}

func (lx *lexer) number(t T) (T, error) {
	src := lx.src
	j := lx.pos
	integral := true
	for j < len(src) && isDigit(src[j]) {
		j++
	}
	if j < len(src) && src[j] == '.' && !(j+1 < len(src) && isIdentStart(src[j+1]) && src[j+1] != 'e' && src[j+1] != 'E') {
		integral = false
		j++
		for j < len(src) && isDigit(src[j]) {
			j++
		}
	}
	if j < len(src) && (src[j] == 'e' || src[j] == 'E') {
		k := j + 1
		if k < len(src) && (src[k] == '+' || src[k] == '-') {
			k++
		}
		if k < len(src) && isDigit(src[k]) {
			integral = false
			for k < len(src) && isDigit(src[k]) {
				k++
			}
			j = k
		}
	}
	text := src[lx.pos:j]
	lx.pos = j
	if integral {
		if i, err := strconv.Atoi(text); err == nil {
			t.IntValue, t.Value = i, value.Int(i)
			return lx.emit(t, TokInteger, text), nil
		}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return t, errorAt(t, "bad number %q", text)
	}
	t.Value = value.Double(f)
	return lx.emit(t, TokDecimal, text), nil
}

func (lx *lexer) str(t T, q byte) (T, error) {
	src := lx.src
	j := lx.pos + 1
	for j < len(src) && src[j] != q {
		if src[j] == '\\' {
			j++
		} else if src[j] == '\n' {
			break
		}
		j++
	}
	if j >= len(src) || src[j] != q {
		return t, errorAt(t, "unterminated string")
	}
	raw := src[lx.pos : j+1]
	lx.pos = j + 1
	t.Value = value.String(value.Unquote(raw))
	return lx.emit(t, TokString, raw), nil
}

// setLiteral recognizes ({...}) and [{...}] set literals at lx.pos.
func (lx *lexer) setLiteral(t T, close byte, kind Tok) (T, bool) {
	src := lx.src
	j := skipSpaces(src, lx.pos+1)
	if j >= len(src) || src[j] != '{' {
		return t, false
	}
	k := strings.IndexByte(src[j:], '}')
	if k < 0 {
		return t, false
	}
	m := skipSpaces(src, j+k+1)
	if m >= len(src) || src[m] != close {
		return t, false
	}
	text := src[j : j+k+1]
	if kind == TokBondset && pointNotSet(text) {
		return t, false
	}
	bs, err := bitset.Parse(text)
	if err != nil {
		return t, false
	}
	lx.pos = m + 1
	if kind == TokBitset {
		t.Value = value.Atoms(bs, 0)
	} else {
		t.Value = value.Bonds(bs, 0)
	}
	return lx.emit(t, kind, src[t.Pos:lx.pos]), true
}

// pointNotSet reports whether the braces in [{...}] hold a point. Sets are
// written with ascending ranges, so three or four numbers without a colon
// are a point unless they are ascending indices with gaps, as {1 3 5}.
func pointNotSet(text string) bool {
	if strings.IndexByte(text, ':') >= 0 {
		return false
	}
	c, ok := geom.ParsePoint(text)
	if !ok {
		return false
	}
	for i, v := range c {
		if v != math.Trunc(v) || v < 0 || i > 0 && v <= c[i-1]+1 {
			return true
		}
	}
	return false
}

// brace recognizes point literals {x y z} and atom expressions {name}.
func (lx *lexer) brace(t T) (T, bool) {
	src := lx.src
	k := strings.IndexByte(src[lx.pos:], '}')
	if k < 0 {
		return t, false
	}
	text := src[lx.pos : lx.pos+k+1]
	if c, ok := geom.ParsePoint(text); ok {
		lx.pos += k + 1
		if len(c) == 3 {
			t.Value = value.Point(geom.P3{X: c[0], Y: c[1], Z: c[2]})
		} else {
			t.Value = value.Point4(geom.P4{X: c[0], Y: c[1], Z: c[2], W: c[3]})
		}
		return lx.emit(t, TokPoint, text), true
	}
	name := strings.TrimSpace(text[1 : len(text)-1])
	if !isAtomName(name) {
		return t, false
	}
	lx.pos += k + 1
	t.Value = value.String(name)
	return lx.emit(t, TokAtomExpr, name), true
}

func isAtomName(s string) bool {
	if s == "" {
		return false
	}
	if s == "*" {
		return true
	}
	for i := 0; i < len(s); i++ {
		if !isIdentPart(s[i]) {
			return false
		}
	}
	return true
}

func skipSpaces(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return i
}

func isDigit(c byte) bool      { return c >= '0' && c <= '9' }
func isIdentStart(c byte) bool { return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }
func isIdentPart(c byte) bool  { return isIdentStart(c) || isDigit(c) }
