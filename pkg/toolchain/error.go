// Package toolchain holds the error type shared by every pipeline stage:
// lexing, parsing, compiling and running. There is a single error category
// (spec: one category, raised uniformly, with an optional offending token).
package toolchain

import "fmt"

// Stage identifies which part of the pipeline raised an Error.
type Stage string

const (
	StageLex     Stage = "lex"
	StageParse   Stage = "parse"
	StageCompile Stage = "compile"
	StageRun     Stage = "run"
)

// Error is the one error type the whole toolchain raises. TokenText and Line
// are zero-valued when the error has no associated token (e.g. a run-time
// divide-by-zero has a pc, not a source token).
type Error struct {
	Stage     Stage
	Message   string
	TokenText string
	Line      int
	HasToken  bool
}

func (e *Error) Error() string {
	if e.HasToken {
		return fmt.Sprintf("%s error: %s (near %q, line %d)", e.Stage, e.Message, e.TokenText, e.Line)
	}
	return fmt.Sprintf("%s error: %s", e.Stage, e.Message)
}

// New builds a stage error carrying no token.
func New(stage Stage, format string, args ...any) *Error {
	return &Error{Stage: stage, Message: fmt.Sprintf(format, args...)}
}

// NewAt builds a stage error anchored to an offending token's text and line.
func NewAt(stage Stage, tokenText string, line int, format string, args ...any) *Error {
	return &Error{
		Stage:     stage,
		Message:   fmt.Sprintf(format, args...),
		TokenText: tokenText,
		Line:      line,
		HasToken:  true,
	}
}
