package script

import (
	"errors"
	"testing"
)

func TestCompilePostfix(t *testing.T) {
	tests := map[string]string{
		"1 + 2 * 3":            "1 2 3 * +",
		"(1 + 2) * 3":          "1 2 + 3 *",
		"-2**2":                "2 2 ** neg",
		"2**3**2":              "2 3 2 ** **",
		"a - b - c":            "a b - c -",
		"x = 3":                "x 3 ==",
		"!a && b":              "a ! and@5 b bool",
		"x == 1 || y":          "x 1 == or@6 y bool",
		"a ? 1 : 2":            "a jf@4 1 jmp@5 2",
		"[1,2,3].add(all)":     "1 2 3 [3] all .add/1",
		"point(1, 2, 3).x":     "1 2 3 point/3 .x",
		`m["k"]`:               `m "k" []`,
		`{"a": 1, b: 2}`:       `"a" 1 "b" 2 {2}`,
		"{}":                   "{0}",
		"{1 2 3}":              "{1.0 2.0 3.0}",
		"({0:2 5})":            "({0:2 5})",
		"[{3}]":                "[{3}]",
		"f({1 2 3})":           "{1.0 2.0 3.0} f/1",
		"[{0 0 0}]":            "{0.0 0.0 0.0} [1]",
		"[{0 1}]":              "[{0:1}]",
		"{C}":                  "{C}",
		"Within(2.5, {O})":     "2.5 {O} within/2",
		"a.b.c()":              "a .b .c/0",
		"Sum2(x) / count(x)":   "x sum2/1 x count/1 /",
		"'a' + \"b\"":          `"a" "b" +`,
		"true && false":        "true and@4 false bool",
		"[1, [2, 3]][2][1]":    "1 2 3 [2] [2] 2 [] 1 []",
		"1.5e3 + .5 - 2E-1":    "1500.0 0.5 + 0.2 -",
		"q ? r ? 1 : 2 : 3":    "q jf@8 r jf@6 1 jmp@7 2 jmp@9 3",
		"a < b == c >= d":      "a b < c d >= ==",
		"x % 3 != 0 && y > -1": "x 3 % 0 != and@11 y 1 neg > bool",
	}
	for src, want := range tests {
		p, err := Compile(src)
		if err != nil {
			t.Errorf("Compile(%q): %v", src, err)
			continue
		}
		if got := p.String(); got != want {
			t.Errorf("Compile(%q) = %q, want %q", src, got, want)
		}
	}
}

func TestCompileErrors(t *testing.T) {
	for _, src := range []string{"", "1 +", "(1", "[1, 2", "f(1 2)", "1 2", `"abc`, "@", "{a: }", "a ? 1", "x.", "1 ** "} {
		if _, err := Compile(src); !errors.Is(err, ErrSyntax) {
			t.Errorf("Compile(%q) err = %v, want ErrSyntax", src, err)
		}
	}
}

func TestLexTokenKinds(t *testing.T) {
	toks, err := Lex("x.y 1.5 .5 2 'a\\'b' [{1}] true <= & ({0 2})")
	if err != nil {
		t.Fatal(err)
	}
	want := []Tok{TokIdent, TokDot, TokIdent, TokDecimal, TokDecimal, TokInteger, TokString,
		TokBondset, TokBoolean, TokOperator, TokOperator, TokBitset}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens: %v", len(toks), toks)
	}
	for i, tk := range toks {
		if tk.Tok != want[i] {
			t.Errorf("token %d (%s) = %s, want %s", i, tk.Text, tk.Tok, want[i])
		}
	}
	if s, _ := toks[6].Value.Str(); s != "a'b" {
		t.Errorf("string value = %q", s)
	}
	if toks[5].IntValue != 2 || toks[8].IntValue != 1 {
		t.Errorf("IntValue = %d, %d", toks[5].IntValue, toks[8].IntValue)
	}
	if !toks[10].Is("&&") || !toks[0].Is("X") {
		t.Error("Is should match canonical operator and case-folded identifier")
	}
	if toks[1].Space || !toks[3].Space {
		t.Error("Space flags wrong")
	}
}

func TestSetLiteralsAndPoints(t *testing.T) {
	tests := []struct {
		src  string
		want []Tok
	}{
		{"f({1 2 3})", []Tok{TokIdent, TokLParen, TokPoint, TokRParen}},
		{"f ({1 2 3})", []Tok{TokIdent, TokBitset}},
		{"abs({3 4 0})", []Tok{TokIdent, TokLParen, TokPoint, TokRParen}},
		{"({0:2})", []Tok{TokBitset}},
		{"(({0 2}))", []Tok{TokLParen, TokBitset, TokRParen}},
		{"[{0 0 0}]", []Tok{TokLBracket, TokPoint, TokRBracket}},
		{"[{1 2 3}]", []Tok{TokLBracket, TokPoint, TokRBracket}},
		{"[{0.5 1 2 0}]", []Tok{TokLBracket, TokPoint, TokRBracket}},
		{"[{0 1}]", []Tok{TokBondset}},
		{"[{1 3 5}]", []Tok{TokBondset}},
		{"[{0:2 4}]", []Tok{TokBondset}},
	}
	for _, tt := range tests {
		toks, err := Lex(tt.src)
		if err != nil {
			t.Errorf("Lex(%q): %v", tt.src, err)
			continue
		}
		if len(toks) != len(tt.want) {
			t.Errorf("Lex(%q) = %v, want %v", tt.src, toks, tt.want)
			continue
		}
		for i, tk := range toks {
			if tk.Tok != tt.want[i] {
				t.Errorf("Lex(%q) token %d (%s) = %s, want %s", tt.src, i, tk.Text, tk.Tok, tt.want[i])
			}
		}
	}
}

func TestParseStatements(t *testing.T) {
	src := "select {C}; print 1 + 2\n# comment\nmeasure ({0}) ({1})  // trailing\nprint [1,\n 2]\n"
	stmts, err := Parse(src)
	if err != nil {
		t.Fatal(err)
	}
	want := []struct {
		text string
		line int
	}{
		{"select {C}", 1},
		{"print 1 + 2", 1},
		{"measure ({0}) ({1})", 3},
		{"print [1,\n 2]", 4},
	}
	if len(stmts) != len(want) {
		t.Fatalf("got %d statements", len(stmts))
	}
	for i, st := range stmts {
		if st.Text != want[i].text || st.Line != want[i].line {
			t.Errorf("statement %d = %q line %d, want %q line %d", i, st.Text, st.Line, want[i].text, want[i].line)
		}
	}
}

func TestParseExprStopsBetweenArguments(t *testing.T) {
	toks, err := Lex(`({0}) ({1}) "%0.2VALUE" 2.5`)
	if err != nil {
		t.Fatal(err)
	}
	pos := 0
	var got []string
	for pos < len(toks) {
		p, next, err := ParseExpr(toks, pos)
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, p.Source)
		pos = next
	}
	want := []string{"({0})", "({1})", `"%0.2VALUE"`, "2.5"}
	if len(got) != len(want) {
		t.Fatalf("got %q", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("arg %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestStartsExpr(t *testing.T) {
	toks, _ := Lex("- ) , x")
	wants := []bool{true, false, false, true}
	for i, tk := range toks {
		if StartsExpr(tk) != wants[i] {
			t.Errorf("StartsExpr(%s) = %v", tk, !wants[i])
		}
	}
}
