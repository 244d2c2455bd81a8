package bytecode

import "fmt"

// ---------------------------------------------------------------------------
// Runtime and wire-format errors
// ---------------------------------------------------------------------------

// VmErrorKind classifies runtime failures inside the VM.
type VmErrorKind int

const (
	VmStackUnderflow VmErrorKind = iota
	VmStackOverflow
	VmBadOpcode
	VmTypeMismatch
	VmDispatcherError
	VmLimit
)

func (k VmErrorKind) String() string {
	switch k {
	case VmStackUnderflow:
		return "StackUnderflow"
	case VmStackOverflow:
		return "StackOverflow"
	case VmBadOpcode:
		return "BadOpcode"
	case VmTypeMismatch:
		return "TypeMismatch"
	case VmDispatcherError:
		return "DispatcherError"
	case VmLimit:
		return "Limit"
	}
	return "Unknown"
}

// LimitKind identifies which resource bound was exceeded.
type LimitKind int

const (
	LimitInstructions LimitKind = iota
	LimitStackDepth
	LimitCaptureBytes
)

func (k LimitKind) String() string {
	switch k {
	case LimitInstructions:
		return "Instructions"
	case LimitStackDepth:
		return "StackDepth"
	case LimitCaptureBytes:
		return "CaptureBytes"
	}
	return "Unknown"
}

// VmError is a runtime failure. It never propagates to the host: predicates
// coerce it to false, bodies abort and keep already-emitted captures.
type VmError struct {
	Kind  VmErrorKind
	Limit LimitKind // set when Kind == VmLimit
	Msg   string
	Inner error // set when Kind == VmDispatcherError
}

func (e *VmError) Error() string {
	if e.Kind == VmLimit {
		return fmt.Sprintf("vm error (Limit/%s): %s", e.Limit, e.Msg)
	}
	return fmt.Sprintf("vm error (%s): %s", e.Kind, e.Msg)
}

func (e *VmError) Unwrap() error { return e.Inner }

func newVmError(kind VmErrorKind, format string, args ...interface{}) *VmError {
	return &VmError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func newLimitError(which LimitKind, format string, args ...interface{}) *VmError {
	return &VmError{Kind: VmLimit, Limit: which, Msg: fmt.Sprintf(format, args...)}
}

// DecodeErrorKind classifies wire-format failures.
type DecodeErrorKind int

const (
	DecodeIncompatibleVersion DecodeErrorKind = iota
	DecodeTruncated
	DecodeBadTag
	DecodeIndexOutOfRange
	DecodeBadMagic
)

func (k DecodeErrorKind) String() string {
	switch k {
	case DecodeIncompatibleVersion:
		return "IncompatibleVersion"
	case DecodeTruncated:
		return "Truncated"
	case DecodeBadTag:
		return "BadTag"
	case DecodeIndexOutOfRange:
		return "IndexOutOfRange"
	case DecodeBadMagic:
		return "BadMagic"
	}
	return "Unknown"
}

// DecodeError is a wire-format failure surfaced by Deserialize.
type DecodeError struct {
	Kind DecodeErrorKind
	Msg  string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error (%s): %s", e.Kind, e.Msg)
}

func newDecodeError(kind DecodeErrorKind, format string, args ...interface{}) *DecodeError {
	return &DecodeError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
