package parser

import (
	"github.com/tawa-lang/tawa/internal/diag"
	"github.com/tawa-lang/tawa/token"
)

// tokenStream is the parser's counterpart to the lexer's charStream:
// an index into a fixed token slice, with peek/match helpers that
// accept either a token.Kind (matching any token of that kind) or a
// string (matching a token whose Literal equals it) per offset.
type tokenStream struct {
	tokens []token.Token
	index  int
}

func newTokenStream(tokens []token.Token) *tokenStream {
	return &tokenStream{tokens: tokens}
}

func (s *tokenStream) has(offset int) bool {
	return s.index+offset < len(s.tokens)
}

// get returns the token at index+offset. Every call site is expected
// to have already confirmed has(offset) via peek; a violation here is
// an internal bug in the parser, not a malformed program, so it raises
// an AssertionFailure rather than a ParseError.
func (s *tokenStream) get(offset int) token.Token {
	diag.Assert(s.has(offset), "tokenStream.get(%d): out of range", offset)
	return s.tokens[s.index+offset]
}

// peek reports whether the upcoming tokens match patterns, one pattern
// per offset starting at 0. A pattern is either a token.Kind (matches
// any literal of that kind) or a string (matches that literal
// regardless of kind).
func (s *tokenStream) peek(patterns ...interface{}) bool {
	if !s.has(len(patterns) - 1) {
		return false
	}
	for offset, pattern := range patterns {
		tok := s.tokens[s.index+offset]
		switch p := pattern.(type) {
		case token.Kind:
			if tok.Kind != p {
				return false
			}
		case string:
			if tok.Literal != p {
				return false
			}
		default:
			diag.Assert(false, "invalid pattern %T in tokenStream.peek", pattern)
		}
	}
	return true
}

// match is peek followed by advancing past the matched tokens on success.
func (s *tokenStream) match(patterns ...interface{}) bool {
	if !s.peek(patterns...) {
		return false
	}
	s.index += len(patterns)
	return true
}
