// Package smiles is a small substructure matcher for linear SMILES and the
// matching SMARTS subset: organic-subset and bracket atoms, wildcards,
// atomic-number primitives, explicit bond orders, branches and ring
// closures. Matching works on heavy-atom graphs; hydrogens are matched only
// when the query names them.
package smiles

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrSyntax is returned for patterns the parser does not accept.
var ErrSyntax = errors.New("smiles: syntax error")

// Bond order constraints. AnyOrder is the implicit bond between adjacent
// atoms and "~" in SMARTS.
const (
	AnyOrder      = 0
	SingleOrder   = 1
	DoubleOrder   = 2
	TripleOrder   = 3
	AromaticOrder = 4
)

// QAtom is one query atom.
type QAtom struct {
	Element  string // canonical symbol, "" for a wildcard
	Aromatic bool
	Charge   int
}

// QBond joins query atoms A and B.
type QBond struct {
	A, B  int
	Order int
}

// Query is a compiled pattern.
type Query struct {
	Source string
	SMARTS bool
	Atoms  []QAtom
	Bonds  []QBond
}

var organic = map[string]bool{
	"B": true, "C": true, "N": true, "O": true, "P": true, "S": true,
	"F": true, "Cl": true, "Br": true, "I": true,
}

var aromaticOrganic = map[string]string{
	"b": "B", "c": "C", "n": "N", "o": "O", "p": "P", "s": "S",
}

// Compile parses a SMILES string, or a SMARTS string when smarts is set.
func Compile(pattern string, smarts bool) (*Query, error) {
	p := &parser{src: strings.TrimSpace(pattern), q: &Query{Source: pattern, SMARTS: smarts}, rings: map[int]ringOpen{}}
	if p.src == "" {
		return nil, fmt.Errorf("%w: empty pattern", ErrSyntax)
	}
	if err := p.parse(); err != nil {
		return nil, err
	}
	return p.q, nil
}

type ringOpen struct {
	atom  int
	order int
}

type parser struct {
	src   string
	pos   int
	q     *Query
	rings map[int]ringOpen
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w at %d in %q: %s", ErrSyntax, p.pos, p.src, fmt.Sprintf(format, args...))
}

func (p *parser) parse() error {
	prev := -1
	var stack []int
	order := AnyOrder
	pendingBond := false
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '(':
			if prev < 0 {
				return p.errorf("branch without atom")
			}
			stack = append(stack, prev)
			p.pos++
		case c == ')':
			if len(stack) == 0 {
				return p.errorf("unbalanced ')'")
			}
			prev = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			p.pos++
		case c == '.':
			prev = -1
			p.pos++
		case c == '-' || c == '=' || c == '#' || c == ':' || c == '~':
			if pendingBond {
				return p.errorf("two bond symbols")
			}
			order = bondOrder(c)
			pendingBond = true
			p.pos++
		case c >= '0' && c <= '9' || c == '%':
			if prev < 0 {
				return p.errorf("ring closure without atom")
			}
			n, err := p.ringNumber()
			if err != nil {
				return err
			}
			if open, ok := p.rings[n]; ok {
				o := order
				if !pendingBond {
					o = open.order
				}
				p.q.Bonds = append(p.q.Bonds, QBond{A: open.atom, B: prev, Order: o})
				delete(p.rings, n)
			} else {
				p.rings[n] = ringOpen{atom: prev, order: order}
			}
			order, pendingBond = AnyOrder, false
		default:
			a, err := p.atom()
			if err != nil {
				return err
			}
			idx := len(p.q.Atoms)
			p.q.Atoms = append(p.q.Atoms, a)
			if prev >= 0 {
				p.q.Bonds = append(p.q.Bonds, QBond{A: prev, B: idx, Order: order})
			} else if pendingBond {
				return p.errorf("bond without first atom")
			}
			prev = idx
			order, pendingBond = AnyOrder, false
		}
	}
	if len(stack) > 0 {
		return p.errorf("unclosed branch")
	}
	if len(p.rings) > 0 {
		return p.errorf("unclosed ring")
	}
	if pendingBond {
		return p.errorf("dangling bond")
	}
	if len(p.q.Atoms) == 0 {
		return p.errorf("no atoms")
	}
	return nil
}

func bondOrder(c byte) int {
	switch c {
	case '-':
		return SingleOrder
	case '=':
		return DoubleOrder
	case '#':
		return TripleOrder
	case ':':
		return AromaticOrder
	}
	return AnyOrder
}

func (p *parser) ringNumber() (int, error) {
	if p.src[p.pos] != '%' {
		n := int(p.src[p.pos] - '0')
		p.pos++
		return n, nil
	}
	if p.pos+2 >= len(p.src) {
		return 0, p.errorf("bad %%nn ring number")
	}
	n, err := strconv.Atoi(p.src[p.pos+1 : p.pos+3])
	if err != nil {
		return 0, p.errorf("bad %%nn ring number")
	}
	p.pos += 3
	return n, nil
}

func (p *parser) atom() (QAtom, error) {
	c := p.src[p.pos]
	switch {
	case c == '*':
		p.pos++
		return QAtom{}, nil
	case c == '[':
		end := strings.IndexByte(p.src[p.pos:], ']')
		if end < 0 {
			return QAtom{}, p.errorf("unclosed '['")
		}
		body := p.src[p.pos+1 : p.pos+end]
		p.pos += end + 1
		return p.bracket(body)
	}
	if p.pos+1 < len(p.src) {
		two := p.src[p.pos : p.pos+2]
		if two == "Cl" || two == "Br" {
			p.pos += 2
			return QAtom{Element: two}, nil
		}
	}
	s := string(c)
	if organic[s] {
		p.pos++
		return QAtom{Element: s}, nil
	}
	if el, ok := aromaticOrganic[s]; ok {
		p.pos++
		return QAtom{Element: el, Aromatic: true}, nil
	}
	return QAtom{}, p.errorf("unexpected %q", c)
}

// bracket parses [isotope? symbol H-count? charge?] and the SMARTS forms
// [#n] and [*].
func (p *parser) bracket(body string) (QAtom, error) {
	i := 0
	for i < len(body) && body[i] >= '0' && body[i] <= '9' {
		i++ // isotope
	}
	var a QAtom
	switch {
	case i < len(body) && body[i] == '#':
		j := i + 1
		for j < len(body) && body[j] >= '0' && body[j] <= '9' {
			j++
		}
		n, err := strconv.Atoi(body[i+1 : j])
		if err != nil {
			return a, p.errorf("bad atomic number in [%s]", body)
		}
		sym, ok := symbolOf(n)
		if !ok {
			return a, p.errorf("unknown atomic number %d", n)
		}
		a.Element = sym
		i = j
	case i < len(body) && body[i] == '*':
		i++
	default:
		j := i
		if j < len(body) && isLetter(body[j]) {
			j++
			if j < len(body) && body[j] >= 'a' && body[j] <= 'z' && body[i] >= 'A' && body[i] <= 'Z' {
				if _, ok := symbolNumber(body[i : j+1]); ok {
					j++
				}
			}
		}
		sym := body[i:j]
		if sym == "" {
			return a, p.errorf("empty bracket atom")
		}
		if el, ok := aromaticOrganic[sym]; ok {
			a.Element, a.Aromatic = el, true
		} else if _, ok := symbolNumber(sym); ok {
			a.Element = sym
		} else {
			return a, p.errorf("unknown element %q", sym)
		}
		i = j
	}
	// hydrogen count
	if i < len(body) && body[i] == 'H' {
		i++
		for i < len(body) && body[i] >= '0' && body[i] <= '9' {
			i++
		}
	}
	// charge
	for i < len(body) && (body[i] == '+' || body[i] == '-') {
		sign := 1
		if body[i] == '-' {
			sign = -1
		}
		i++
		n := 1
		j := i
		for j < len(body) && body[j] >= '0' && body[j] <= '9' {
			j++
		}
		if j > i {
			n, _ = strconv.Atoi(body[i:j])
			i = j
		}
		a.Charge += sign * n
	}
	if i != len(body) {
		return a, p.errorf("unsupported bracket content %q", body[i:])
	}
	return a, nil
}

func isLetter(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }

var symbols = []string{"", "H", "He", "Li", "Be", "B", "C", "N", "O", "F", "Ne",
	"Na", "Mg", "Al", "Si", "P", "S", "Cl", "Ar", "K", "Ca",
	"Sc", "Ti", "V", "Cr", "Mn", "Fe", "Co", "Ni", "Cu", "Zn",
	"Ga", "Ge", "As", "Se", "Br", "Kr", "Rb", "Sr", "Y", "Zr",
	"Nb", "Mo", "Tc", "Ru", "Rh", "Pd", "Ag", "Cd", "In", "Sn",
	"Sb", "Te", "I", "Xe"}

func symbolOf(n int) (string, bool) {
	if n <= 0 || n >= len(symbols) {
		return "", false
	}
	return symbols[n], true
}

func symbolNumber(sym string) (int, bool) {
	for i, s := range symbols {
		if i > 0 && s == sym {
			return i, true
		}
	}
	return 0, false
}
