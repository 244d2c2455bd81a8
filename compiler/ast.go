package compiler

import "fmt"

// ---------------------------------------------------------------------------
// AST: Abstract Syntax Tree for HogTrace probe programs
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

// Span represents a range in source code.
type Span struct {
	Start Position
	End   Position
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Span() Span
	node() // marker method
}

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr() // marker method
}

// Stmt is the interface for action-block statement nodes.
type Stmt interface {
	Node
	stmt() // marker method
}

// ---------------------------------------------------------------------------
// Top-level structure
// ---------------------------------------------------------------------------

// Program is a complete parsed source file: one or more probes.
type Program struct {
	SpanVal Span
	Probes  []*Probe
}

func (n *Program) Span() Span { return n.SpanVal }
func (n *Program) node()      {}

// Probe is a single (spec, predicate, body) triple.
type Probe struct {
	SpanVal   Span
	Spec      *ProbeSpec
	Predicate Expr // nil when absent (always true)
	Body      []Stmt
}

func (n *Probe) Span() Span { return n.SpanVal }
func (n *Probe) node()      {}

// Provider identifies the probe provider.
type Provider int

const (
	ProviderFn Provider = iota // fn: generic function probes
	ProviderPy                 // py: Python host probes
)

func (p Provider) String() string {
	switch p {
	case ProviderFn:
		return "fn"
	case ProviderPy:
		return "py"
	}
	return "unknown"
}

// Target identifies the probe point within a host function.
type Target int

const (
	TargetEntry Target = iota
	TargetExit
)

func (t Target) String() string {
	switch t {
	case TargetEntry:
		return "entry"
	case TargetExit:
		return "exit"
	}
	return "unknown"
}

// ProbeSpec is the provider:moduleFunction:probePoint triple.
type ProbeSpec struct {
	SpanVal   Span
	Provider  Provider
	Specifier string // dotted module path, optionally ending in *
	Target    Target
	Offset    uint32 // entry+N / exit+N offset, 0 otherwise
}

func (n *ProbeSpec) Span() Span { return n.SpanVal }
func (n *ProbeSpec) node()      {}

// String renders the canonical provider:specifier:point form.
func (n *ProbeSpec) String() string {
	point := n.Target.String()
	if n.Offset > 0 {
		point = fmt.Sprintf("%s+%d", point, n.Offset)
	}
	return fmt.Sprintf("%s:%s:%s", n.Provider, n.Specifier, point)
}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// IntLiteral represents an integer literal.
type IntLiteral struct {
	SpanVal Span
	Value   int64
}

func (n *IntLiteral) Span() Span { return n.SpanVal }
func (n *IntLiteral) node()      {}
func (n *IntLiteral) expr()      {}

// FloatLiteral represents a floating-point literal.
type FloatLiteral struct {
	SpanVal Span
	Value   float64
}

func (n *FloatLiteral) Span() Span { return n.SpanVal }
func (n *FloatLiteral) node()      {}
func (n *FloatLiteral) expr()      {}

// StringLiteral represents a string literal (escapes already decoded).
type StringLiteral struct {
	SpanVal Span
	Value   string
}

func (n *StringLiteral) Span() Span { return n.SpanVal }
func (n *StringLiteral) node()      {}
func (n *StringLiteral) expr()      {}

// BoolLiteral represents True or False.
type BoolLiteral struct {
	SpanVal Span
	Value   bool
}

func (n *BoolLiteral) Span() Span { return n.SpanVal }
func (n *BoolLiteral) node()      {}
func (n *BoolLiteral) expr()      {}

// NoneLiteral represents the None literal.
type NoneLiteral struct {
	SpanVal Span
}

func (n *NoneLiteral) Span() Span { return n.SpanVal }
func (n *NoneLiteral) node()      {}
func (n *NoneLiteral) expr()      {}

// Identifier references a frame-local variable (arg0, retval, self, ...).
type Identifier struct {
	SpanVal Span
	Name    string
}

func (n *Identifier) Span() Span { return n.SpanVal }
func (n *Identifier) node()      {}
func (n *Identifier) expr()      {}

// RequestVar references a request-scoped slot: $req.name / $request.name.
// The name is already canonicalized ($request folds into $req).
type RequestVar struct {
	SpanVal Span
	Name    string
}

func (n *RequestVar) Span() Span { return n.SpanVal }
func (n *RequestVar) node()      {}
func (n *RequestVar) expr()      {}

// AttrAccess represents obj.field.
type AttrAccess struct {
	SpanVal Span
	Object  Expr
	Field   string
}

func (n *AttrAccess) Span() Span { return n.SpanVal }
func (n *AttrAccess) node()      {}
func (n *AttrAccess) expr()      {}

// IndexAccess represents obj[key].
type IndexAccess struct {
	SpanVal Span
	Object  Expr
	Index   Expr
}

func (n *IndexAccess) Span() Span { return n.SpanVal }
func (n *IndexAccess) node()      {}
func (n *IndexAccess) expr()      {}

// CallExpr represents a function call f(a1, ..., aN). Calls are only valid
// on bare identifiers; the callee is a name, not an expression.
type CallExpr struct {
	SpanVal Span
	Name    string
	Args    []Expr
}

func (n *CallExpr) Span() Span { return n.SpanVal }
func (n *CallExpr) node()      {}
func (n *CallExpr) expr()      {}

// UnaryExpr represents !operand.
type UnaryExpr struct {
	SpanVal Span
	Op      TokenType
	Operand Expr
}

func (n *UnaryExpr) Span() Span { return n.SpanVal }
func (n *UnaryExpr) node()      {}
func (n *UnaryExpr) expr()      {}

// BinaryExpr represents a binary operation.
type BinaryExpr struct {
	SpanVal Span
	Op      TokenType
	Left    Expr
	Right   Expr
}

func (n *BinaryExpr) Span() Span { return n.SpanVal }
func (n *BinaryExpr) node()      {}
func (n *BinaryExpr) expr()      {}

// ---------------------------------------------------------------------------
// Statement nodes
// ---------------------------------------------------------------------------

// AssignStmt represents $req.name = expr;
type AssignStmt struct {
	SpanVal Span
	Name    string // canonical request-slot name
	Value   Expr
}

func (n *AssignStmt) Span() Span { return n.SpanVal }
func (n *AssignStmt) node()      {}
func (n *AssignStmt) stmt()      {}

// SampleStmt represents sample P%; or sample A/B;
type SampleStmt struct {
	SpanVal   Span
	IsPercent bool
	Percent   float64 // percent form: P
	Num       int64   // ratio form: A
	Den       int64   // ratio form: B
}

func (n *SampleStmt) Span() Span { return n.SpanVal }
func (n *SampleStmt) node()      {}
func (n *SampleStmt) stmt()      {}

// Rate returns the sampling rate in [0,1]. A zero ratio denominator is
// rejected during semantic analysis; Rate returns 0 for it.
func (n *SampleStmt) Rate() float64 {
	if n.IsPercent {
		return n.Percent / 100.0
	}
	if n.Den == 0 {
		return 0
	}
	return float64(n.Num) / float64(n.Den)
}

// NamedArg is a name = value pair in a capture call.
type NamedArg struct {
	SpanVal Span
	Name    string
	Value   Expr
}

func (n *NamedArg) Span() Span { return n.SpanVal }
func (n *NamedArg) node()      {}

// CaptureStmt represents capture(...) / send(...). Exactly one of Args and
// Named is populated; mixing is rejected during semantic analysis.
type CaptureStmt struct {
	SpanVal Span
	Args    []Expr
	Named   []*NamedArg
}

func (n *CaptureStmt) Span() Span { return n.SpanVal }
func (n *CaptureStmt) node()      {}
func (n *CaptureStmt) stmt()      {}

// ---------------------------------------------------------------------------
// Helper functions
// ---------------------------------------------------------------------------

// MakeSpan creates a span from start and end positions.
func MakeSpan(start, end Position) Span {
	return Span{Start: start, End: end}
}
