// Package lexer implements the first pipeline stage: turning a source
// string into an ordered sequence of token.Token values.
package lexer

import (
	"github.com/tawa-lang/tawa/internal/diag"
	"github.com/tawa-lang/tawa/token"
)

// Lexer consumes a character stream and produces tokens one at a time,
// or all at once via Lex.
type Lexer struct {
	chars *charStream
}

// New creates a Lexer over the given source text.
func New(input string) *Lexer {
	return &Lexer{chars: newCharStream(input)}
}

// Lex tokenizes input in one call.
func Lex(input string) ([]token.Token, error) {
	return New(input).Lex()
}

// Lex consumes the entire input, returning every non-discarded token in
// order. A LexError is fatal for the whole call: there is no recovery
// or skipping past unrecognized input.
func (l *Lexer) Lex() (tokens []token.Token, err error) {
	defer func() {
		if r := recover(); r != nil {
			if le, ok := r.(*diag.LexError); ok {
				err = le
				return
			}
			panic(r)
		}
	}()

	for !l.chars.end() {
		switch {
		case l.chars.peek(whitespace):
			l.chars.match(whitespace)
			l.chars.emit()
		case l.chars.peek(is('/'), is('/')):
			l.lexComment()
		default:
			tokens = append(tokens, l.lexToken())
		}
	}
	return tokens, nil
}

// lexComment consumes "//" through end of line inclusive and discards
// the result.
func (l *Lexer) lexComment() {
	l.chars.match(is('/'), is('/'))
	for !l.chars.end() && !l.chars.peek(crlf) {
		l.chars.match(any)
	}
	if l.chars.peek(crlf) {
		l.chars.match(crlf)
	}
	l.chars.emit()
}

var any = func(b byte) bool { return true }

func (l *Lexer) lexToken() token.Token {
	switch {
	case l.chars.peek(identFirst):
		return l.lexIdentifier()
	case l.chars.peek(singleQuote):
		return l.lexCharacter()
	case l.chars.peek(doubleQuote):
		return l.lexString()
	case l.chars.peek(digit) || l.chars.peek(sign, digit):
		return l.lexNumber()
	default:
		return l.lexOperator()
	}
}

func (l *Lexer) lexIdentifier() token.Token {
	l.chars.match(identFirst)
	for l.chars.peek(identRest) {
		l.chars.match(identRest)
	}
	lit, span := l.chars.emit()
	return token.Token{Kind: token.IDENTIFIER, Literal: lit, Span: span}
}

func (l *Lexer) lexNumber() token.Token {
	c := l.chars
	if c.peek(sign) && c.peek(sign, digit) {
		c.match(sign)
	}
	if !c.peek(digit) {
		l.fail("expected a digit")
	}
	for c.peek(digit) {
		c.match(digit)
	}

	isDecimal := false
	if c.peek(dot, digit) {
		isDecimal = true
		c.match(dot)
		for c.peek(digit) {
			c.match(digit)
		}
	}
	l.lexExponent()

	lit, span := c.emit()
	kind := token.INTEGER
	if isDecimal {
		kind = token.DECIMAL
	}
	return token.Token{Kind: kind, Literal: lit, Span: span}
}

// lexExponent consumes an optional e[+-]?[0-9]+ suffix. Per spec, 'e' is
// only consumed when followed by a digit (optionally signed); otherwise
// it is left untouched for the next token to lex.
func (l *Lexer) lexExponent() {
	c := l.chars
	if !c.peek(eMark) {
		return
	}
	if !(c.peek(eMark, sign, digit) || c.peek(eMark, digit)) {
		return
	}
	c.match(eMark)
	if c.peek(sign) {
		c.match(sign)
	}
	for c.peek(digit) {
		c.match(digit)
	}
}

func (l *Lexer) lexCharacter() token.Token {
	c := l.chars
	if !c.match(singleQuote) {
		l.fail("expected opening '")
	}
	if c.peek(backslash) {
		c.match(backslash)
		if !c.match(escapable) {
			l.fail("invalid escape sequence")
		}
	} else if !c.match(not(anyOf(singleQuote, backslash, crlf))) {
		l.fail("invalid character literal")
	}
	if !c.match(singleQuote) {
		l.fail("expected closing '")
	}
	lit, span := c.emit()
	return token.Token{Kind: token.CHARACTER, Literal: lit, Span: span}
}

func (l *Lexer) lexString() token.Token {
	c := l.chars
	if !c.match(doubleQuote) {
		l.fail("expected opening \"")
	}
	for !c.end() && !c.peek(doubleQuote) {
		if c.peek(backslash) {
			c.match(backslash)
			if !c.match(escapable) {
				l.fail("invalid escape sequence")
			}
		} else if !c.match(not(anyOf(backslash, doubleQuote, crlf))) {
			l.fail("invalid character in string literal")
		}
	}
	if !c.match(doubleQuote) {
		l.fail("expected closing \"")
	}
	lit, span := c.emit()
	return token.Token{Kind: token.STRING, Literal: lit, Span: span}
}

var operatorFallback = not(anyOf(alpha, digit, is('_'), singleQuote, doubleQuote, whitespace))

func (l *Lexer) lexOperator() token.Token {
	c := l.chars
	switch {
	case c.peek(operatorLed, is('=')):
		c.match(operatorLed, is('='))
	case c.peek(operatorLed):
		c.match(operatorLed)
	case c.peek(operatorFallback):
		c.match(operatorFallback)
	default:
		l.fail("invalid character")
	}
	lit, span := c.emit()
	return token.Token{Kind: token.OPERATOR, Literal: lit, Span: span}
}

func (l *Lexer) fail(msg string) {
	panic(&diag.LexError{Message: msg, Span: token.Span{From: l.chars.pos, To: l.chars.pos}})
}
