// Package diag defines the four stage-specific error taxa shared by the
// pipeline, plus a distinct AssertionFailure for internal precondition
// violations that are implementation bugs rather than user errors.
package diag

import (
	"fmt"

	"github.com/tawa-lang/tawa/token"
)

// LexError is fatal for the whole Lex call: no recovery, no skipping.
type LexError struct {
	Message string
	Span    token.Span
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lex error at %s: %s", e.Span, e.Message)
}

// ParseError aborts the parse; there is no resynchronization.
type ParseError struct {
	Message string
	Span    token.Span
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %s: %s", e.Span, e.Message)
}

// AnalyzeError is fatal for the whole analyze call.
type AnalyzeError struct {
	Message string
	Span    token.Span
}

func (e *AnalyzeError) Error() string {
	return fmt.Sprintf("analyze error at %s: %s", e.Span, e.Message)
}

// EvaluateError is fatal for the whole evaluate call. A non-local Return
// that escapes every enclosing function frame is converted into one of
// these at the top level, not raised as a taxon of its own.
type EvaluateError struct {
	Message string
	Span    token.Span
}

func (e *EvaluateError) Error() string {
	return fmt.Sprintf("evaluate error at %s: %s", e.Span, e.Message)
}

// AssertionFailure marks a checkState-style precondition violation in an
// internal utility (e.g. indexing past the end of the token stream in a
// way the grammar should have prevented). It is never one of the four
// user-facing taxa and is never recovered into one.
type AssertionFailure struct {
	Message string
}

func (e *AssertionFailure) Error() string {
	return fmt.Sprintf("assertion failure (implementation bug): %s", e.Message)
}

// Assert panics with an AssertionFailure if cond is false. Reserved for
// conditions the grammar/type rules should already guarantee.
func Assert(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(&AssertionFailure{Message: fmt.Sprintf(format, args...)})
	}
}
