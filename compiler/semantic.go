package compiler

import (
	"regexp"
)

// ---------------------------------------------------------------------------
// Semantic Analyzer: Pre-codegen semantic checks
// ---------------------------------------------------------------------------

// SemanticAnalyzer validates a parsed program before code generation. It
// checks identifier visibility, capture argument shapes, sample rates, and
// probe specs.
type SemanticAnalyzer struct {
	errors []*CompileError

	// Frame names the host always provides.
	knownNames map[string]bool

	// Names only visible on exit probes.
	exitNames map[string]bool

	// Built-in functions callable from probes.
	knownFuncs map[string]bool

	// Target of the probe currently being analyzed.
	curTarget Target
}

// argNPattern matches positional argument names: arg0, arg1, ...
var argNPattern = regexp.MustCompile(`^arg[0-9]+$`)

// NewSemanticAnalyzer creates a new semantic analyzer.
func NewSemanticAnalyzer() *SemanticAnalyzer {
	return &SemanticAnalyzer{
		knownNames: map[string]bool{
			"args":          true,
			"kwargs":        true,
			"self":          true,
			"__sample_ok__": true,
		},
		exitNames: map[string]bool{
			"retval":    true,
			"exception": true,
		},
		knownFuncs: map[string]bool{
			"timestamp": true,
			"rand":      true,
			"len":       true,
			"str":       true,
			"int":       true,
			"float":     true,
		},
	}
}

// AddKnownName registers an extra host-provided frame variable.
func (s *SemanticAnalyzer) AddKnownName(name string) {
	s.knownNames[name] = true
}

// Errors returns accumulated analysis errors.
func (s *SemanticAnalyzer) Errors() []*CompileError {
	return s.errors
}

// errorAt records a structured error with position information.
func (s *SemanticAnalyzer) errorAt(kind CompileErrorKind, node Node, format string, args ...interface{}) {
	s.errors = append(s.errors, compileErrorAt(kind, node, format, args...))
}

// Analyze runs all semantic checks on a program and returns the first error,
// or nil if the program is valid.
func Analyze(prog *Program) error {
	a := NewSemanticAnalyzer()
	a.AnalyzeProgram(prog)
	if errs := a.Errors(); len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// AnalyzeProgram analyzes every probe in the program.
func (s *SemanticAnalyzer) AnalyzeProgram(prog *Program) {
	for _, probe := range prog.Probes {
		s.analyzeProbe(probe)
	}
}

func (s *SemanticAnalyzer) analyzeProbe(probe *Probe) {
	s.checkProbeSpec(probe.Spec)
	s.curTarget = probe.Spec.Target

	if probe.Predicate != nil {
		s.analyzeExpr(probe.Predicate)
	}
	for _, stmt := range probe.Body {
		s.analyzeStmt(stmt)
	}
}

// checkProbeSpec validates the specifier shape. The parser guarantees the
// wildcard is last; what remains is rejecting empty segments.
func (s *SemanticAnalyzer) checkProbeSpec(spec *ProbeSpec) {
	if spec.Specifier == "" {
		s.errorAt(ErrBadProbeSpec, spec, "empty probe specifier")
	}
}

func (s *SemanticAnalyzer) analyzeStmt(stmt Stmt) {
	switch st := stmt.(type) {
	case *AssignStmt:
		s.analyzeExpr(st.Value)
	case *SampleStmt:
		s.checkSample(st)
	case *CaptureStmt:
		s.checkCapture(st)
	}
}

// checkSample validates the sampling rate: a non-zero denominator and a
// resulting rate within [0,1].
func (s *SemanticAnalyzer) checkSample(st *SampleStmt) {
	if !st.IsPercent && st.Den == 0 {
		s.errorAt(ErrBadSample, st, "sample ratio has zero denominator")
		return
	}
	rate := st.Rate()
	if rate < 0 || rate > 1 {
		s.errorAt(ErrBadSample, st, "sample rate %g is outside [0,1]", rate)
	}
}

// checkCapture enforces the all-positional-or-all-named rule, name
// uniqueness, and the 255-argument encoding limit.
func (s *SemanticAnalyzer) checkCapture(st *CaptureStmt) {
	if len(st.Args) > 0 && len(st.Named) > 0 {
		s.errorAt(ErrBadMix, st, "capture arguments must be all positional or all named")
	}
	if len(st.Args) > 255 || len(st.Named) > 255 {
		s.errorAt(ErrTooManyArgs, st, "capture takes at most 255 arguments")
	}

	seen := make(map[string]bool)
	for _, named := range st.Named {
		if seen[named.Name] {
			s.errorAt(ErrDuplicateName, named, "duplicate capture name %q", named.Name)
		}
		seen[named.Name] = true
		s.analyzeExpr(named.Value)
	}
	for _, arg := range st.Args {
		s.analyzeExpr(arg)
	}
}

func (s *SemanticAnalyzer) analyzeExpr(expr Expr) {
	switch e := expr.(type) {
	case *Identifier:
		s.checkIdentifier(e)
	case *RequestVar:
		// Request slots are globally visible; unset reads yield None.
	case *AttrAccess:
		s.analyzeExpr(e.Object)
	case *IndexAccess:
		s.analyzeExpr(e.Object)
		s.analyzeExpr(e.Index)
	case *CallExpr:
		s.checkCall(e)
	case *UnaryExpr:
		s.analyzeExpr(e.Operand)
	case *BinaryExpr:
		s.analyzeExpr(e.Left)
		s.analyzeExpr(e.Right)
	case *IntLiteral, *FloatLiteral, *StringLiteral, *BoolLiteral, *NoneLiteral:
		// OK
	}
}

// checkIdentifier verifies the name is a host-provided frame variable
// visible at the probe's target.
func (s *SemanticAnalyzer) checkIdentifier(ident *Identifier) {
	name := ident.Name

	if s.knownNames[name] || argNPattern.MatchString(name) {
		return
	}
	if s.exitNames[name] {
		if s.curTarget != TargetExit {
			s.errorAt(ErrUnknownVariable, ident, "%q is only available on exit probes", name)
		}
		return
	}
	s.errorAt(ErrUnknownVariable, ident, "unknown variable %q", name)
}

func (s *SemanticAnalyzer) checkCall(call *CallExpr) {
	if !s.knownFuncs[call.Name] {
		s.errorAt(ErrUnknownVariable, call, "unknown function %q", call.Name)
	}
	if len(call.Args) > 255 {
		s.errorAt(ErrTooManyArgs, call, "call takes at most 255 arguments")
	}
	for _, arg := range call.Args {
		s.analyzeExpr(arg)
	}
}
