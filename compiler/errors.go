package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Error types surfaced by the compile pipeline
// ---------------------------------------------------------------------------

// SyntaxError is a lexer or parser failure. The message carries the
// line/column of the offending token.
type SyntaxError struct {
	Msg string
}

func (e *SyntaxError) Error() string {
	return "syntax error: " + e.Msg
}

// CompileErrorKind classifies semantic and code-generation failures.
type CompileErrorKind int

const (
	ErrUnknownVariable CompileErrorKind = iota
	ErrBadMix                           // positional and named capture args mixed
	ErrDuplicateName                    // duplicate named capture argument
	ErrBadSample                        // invalid sampling rate
	ErrPoolOverflow                     // constant pool exceeded 65,535 entries
	ErrBadProbeSpec                     // malformed probe specifier
	ErrTooManyArgs                      // call or capture argument count exceeds 255
)

func (k CompileErrorKind) String() string {
	switch k {
	case ErrUnknownVariable:
		return "UnknownVariable"
	case ErrBadMix:
		return "BadMix"
	case ErrDuplicateName:
		return "DuplicateName"
	case ErrBadSample:
		return "BadSample"
	case ErrPoolOverflow:
		return "PoolOverflow"
	case ErrBadProbeSpec:
		return "BadProbeSpec"
	case ErrTooManyArgs:
		return "TooManyArgs"
	}
	return "Unknown"
}

// CompileError is a structured semantic failure.
type CompileError struct {
	Kind CompileErrorKind
	Msg  string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile error (%s): %s", e.Kind, e.Msg)
}

// NewCompileError creates a CompileError with a formatted message.
func NewCompileError(kind CompileErrorKind, format string, args ...interface{}) *CompileError {
	return &CompileError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// compileErrorAt formats a CompileError with position information.
func compileErrorAt(kind CompileErrorKind, node Node, format string, args ...interface{}) *CompileError {
	pos := node.Span().Start
	msg := fmt.Sprintf("line %d, column %d: %s", pos.Line, pos.Column, fmt.Sprintf(format, args...))
	return &CompileError{Kind: kind, Msg: msg}
}
