package lexer

import (
	"testing"

	"github.com/tawa-lang/tawa/token"
)

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func literals(toks []token.Token) []string {
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.Literal
	}
	return out
}

func TestLexIdentifiersAndKeywords(t *testing.T) {
	toks, err := Lex("LET x_1 if-then")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantLit := []string{"LET", "x_1", "if-then"}
	if got := literals(toks); !equalStrings(got, wantLit) {
		t.Fatalf("literals = %v, want %v", got, wantLit)
	}
	for _, tok := range toks {
		if tok.Kind != token.IDENTIFIER {
			t.Fatalf("token %q has kind %v, want IDENTIFIER", tok.Literal, tok.Kind)
		}
	}
}

func TestLexNumbers(t *testing.T) {
	cases := []struct {
		input string
		kind  token.Kind
		lit   string
	}{
		{"1", token.INTEGER, "1"},
		{"1.5", token.DECIMAL, "1.5"},
		{"1e10", token.INTEGER, "1e10"},
		{"1.5e-2", token.DECIMAL, "1.5e-2"},
		{"-3", token.INTEGER, "-3"},
	}
	for _, c := range cases {
		toks, err := Lex(c.input)
		if err != nil {
			t.Fatalf("Lex(%q): unexpected error: %v", c.input, err)
		}
		if len(toks) != 1 {
			t.Fatalf("Lex(%q) = %v, want a single token", c.input, toks)
		}
		if toks[0].Kind != c.kind || toks[0].Literal != c.lit {
			t.Fatalf("Lex(%q) = %+v, want kind=%v lit=%q", c.input, toks[0], c.kind, c.lit)
		}
	}
}

func TestLexSignedNumberAdjacentToAnother(t *testing.T) {
	// "-3" followed by whitespace and "5" lexes as two separate numbers.
	toks, err := Lex("-3 5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantLit := []string{"-3", "5"}
	if got := literals(toks); !equalStrings(got, wantLit) {
		t.Fatalf("literals = %v, want %v", got, wantLit)
	}
}

func TestLexMinusIsPartOfIdentifier(t *testing.T) {
	// Within "a-3" with no space, '-' remains part of the identifier per
	// the identifier grammar ([A-Za-z0-9_-]*), a known interaction noted
	// as an Open Question in the spec.
	toks, err := Lex("a-3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(toks) != 1 || toks[0].Kind != token.IDENTIFIER || toks[0].Literal != "a-3" {
		t.Fatalf("Lex(%q) = %v, want single identifier a-3", "a-3", toks)
	}
}

func TestLexExponentNotConsumedWithoutDigit(t *testing.T) {
	toks, err := Lex("1e x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantKinds := []token.Kind{token.INTEGER, token.IDENTIFIER, token.IDENTIFIER}
	if got := kinds(toks); !equalKinds(got, wantKinds) {
		t.Fatalf("kinds = %v, want %v", got, wantKinds)
	}
	wantLit := []string{"1", "e", "x"}
	if got := literals(toks); !equalStrings(got, wantLit) {
		t.Fatalf("literals = %v, want %v", got, wantLit)
	}
}

func TestLexCharacterAndStringLiterals(t *testing.T) {
	toks, err := Lex(`'\n' "hi\tthere"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(toks) != 2 {
		t.Fatalf("got %d tokens, want 2: %v", len(toks), toks)
	}
	if toks[0].Kind != token.CHARACTER || toks[0].Literal != `'\n'` {
		t.Fatalf("char token = %+v", toks[0])
	}
	if toks[1].Kind != token.STRING || toks[1].Literal != `"hi\tthere"` {
		t.Fatalf("string token = %+v", toks[1])
	}
}

func TestLexOperators(t *testing.T) {
	toks, err := Lex("<= >= == != < > = + - * / . , ; : ( )")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"<=", ">=", "==", "!=", "<", ">", "=", "+", "-", "*", "/", ".", ",", ";", ":", "(", ")"}
	if got := literals(toks); !equalStrings(got, want) {
		t.Fatalf("literals = %v, want %v", got, want)
	}
	for _, tok := range toks {
		if tok.Kind != token.OPERATOR {
			t.Fatalf("token %q has kind %v, want OPERATOR", tok.Literal, tok.Kind)
		}
	}
}

func TestLexCommentsAreDiscarded(t *testing.T) {
	toks, err := Lex("LET x = 1; // a comment\nx;")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"LET", "x", "=", "1", ";", "x", ";"}
	if got := literals(toks); !equalStrings(got, want) {
		t.Fatalf("literals = %v, want %v", got, want)
	}
}

func TestLexInvalidInputFails(t *testing.T) {
	if _, err := Lex(`"unterminated`); err == nil {
		t.Fatalf("expected a LexError for an unterminated string")
	}
	if _, err := Lex(`'ab'`); err == nil {
		t.Fatalf("expected a LexError for a multi-character literal")
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalKinds(a, b []token.Kind) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
