package lexer

import "github.com/tawa-lang/tawa/token"

// class is a single-byte character-class predicate, the Go analogue of
// the regex-style patterns the original CharStream matched with
// String.matches. The source language is ASCII-only (spec Non-goals),
// so matching by byte rather than rune is sufficient and avoids the
// per-call regexp compilation the teacher's Java ancestor used.
type class func(b byte) bool

func is(bs ...byte) class {
	return func(b byte) bool {
		for _, want := range bs {
			if b == want {
				return true
			}
		}
		return false
	}
}

func isRange(lo, hi byte) class {
	return func(b byte) bool { return b >= lo && b <= hi }
}

func anyOf(classes ...class) class {
	return func(b byte) bool {
		for _, c := range classes {
			if c(b) {
				return true
			}
		}
		return false
	}
}

func not(c class) class {
	return func(b byte) bool { return !c(b) }
}

var (
	digit       = isRange('0', '9')
	alpha       = anyOf(isRange('A', 'Z'), isRange('a', 'z'))
	identFirst  = anyOf(alpha, is('_'))
	identRest   = anyOf(identFirst, digit, is('-'))
	whitespace  = is(' ', '\b', '\n', '\r', '\t')
	sign        = is('+', '-')
	dot         = is('.')
	eMark       = is('e')
	escapable   = is('b', 'f', 'n', 'r', 't', '\'', '"', '\\')
	backslash   = is('\\')
	singleQuote = is('\'')
	doubleQuote = is('"')
	crlf        = is('\r', '\n')
	operatorLed = is('<', '>', '!', '=')
)

// charStream mirrors the original Java CharStream: an input string, a
// current index, and a length counter measuring bytes consumed since
// the last emit. peek checks k lookahead classes without advancing;
// match does the same and advances on success; emit returns and resets
// the pending substring. Position (line/column) is tracked alongside
// purely for diagnostic Spans.
type charStream struct {
	input  string
	index  int
	length int
	pos    token.Position
	start  token.Position
}

func newCharStream(input string) *charStream {
	return &charStream{input: input, pos: token.Position{Line: 1, Column: 1}, start: token.Position{Line: 1, Column: 1}}
}

func (c *charStream) end() bool {
	return c.index >= len(c.input)
}

func (c *charStream) peek(classes ...class) bool {
	if c.index+len(classes) > len(c.input) {
		return false
	}
	for i, cl := range classes {
		if !cl(c.input[c.index+i]) {
			return false
		}
	}
	return true
}

func (c *charStream) match(classes ...class) bool {
	if !c.peek(classes...) {
		return false
	}
	if c.length == 0 {
		c.start = c.pos
	}
	for i := 0; i < len(classes); i++ {
		c.advanceOne()
	}
	return true
}

func (c *charStream) advanceOne() {
	if c.input[c.index] == '\n' {
		c.pos.Line++
		c.pos.Column = 1
	} else {
		c.pos.Column++
	}
	c.index++
	c.length++
}

// emit returns the substring consumed since the last emit and the span
// it occupied, resetting the pending length.
func (c *charStream) emit() (string, token.Span) {
	lit := c.input[c.index-c.length : c.index]
	span := token.Span{From: c.start, To: c.pos}
	c.length = 0
	c.start = c.pos
	return lit, span
}
