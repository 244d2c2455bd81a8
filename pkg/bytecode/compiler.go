package bytecode

import (
	"encoding/binary"

	"github.com/posthog/hogtrace/compiler"
	"github.com/posthog/hogtrace/compiler/hash"
)

// ---------------------------------------------------------------------------
// Compiler: lowers the AST to linear bytecode streams
// ---------------------------------------------------------------------------

// SampleFunc is the reserved built-in a sample directive compiles into.
// The dispatcher evaluates it once per request per rate.
const SampleFunc = "__sample__"

// Compiler lowers a parsed program into a bytecode Program. All probes
// share one constant pool; each probe gets independent predicate and body
// streams.
type Compiler struct {
	prog *Program
	code []byte // stream under construction
	err  error  // first error, sticky
}

// NewCompiler creates a compiler targeting a fresh program.
func NewCompiler() *Compiler {
	return &Compiler{prog: NewProgram()}
}

// CompileProgram lowers an analyzed AST into an immutable Program.
func CompileProgram(ast *compiler.Program) (*Program, error) {
	c := NewCompiler()
	for i, probe := range ast.Probes {
		if err := c.compileProbe(probe, i); err != nil {
			return nil, err
		}
	}
	return c.prog, nil
}

// fail records the first error; later emissions become no-ops.
func (c *Compiler) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

// ---------------------------------------------------------------------------
// Emission helpers
// ---------------------------------------------------------------------------

func (c *Compiler) emit(op Opcode) {
	c.code = append(c.code, byte(op))
}

// emitU16 writes an opcode with one little-endian u16 operand.
func (c *Compiler) emitU16(op Opcode, operand uint16) {
	c.code = append(c.code, byte(op))
	c.code = binary.LittleEndian.AppendUint16(c.code, operand)
}

// emitCall writes CALL_FUNC <name:u16> <argc:u8>.
func (c *Compiler) emitCall(nameIdx uint16, argc byte) {
	c.emitU16(OpCallFunc, nameIdx)
	c.code = append(c.code, argc)
}

// emitCapture writes CAPTURE <argc:u8> <namedc:u8>.
func (c *Compiler) emitCapture(argc, namedc byte) {
	c.code = append(c.code, byte(OpCapture), argc, namedc)
}

// intern adds a constant to the shared pool, failing on overflow.
func (c *Compiler) intern(con Constant) uint16 {
	idx, ok := c.prog.Pool.Add(con)
	if !ok {
		c.fail(compiler.NewCompileError(compiler.ErrPoolOverflow,
			"constant pool exceeded %d entries", MaxPoolSize))
		return 0
	}
	return idx
}

// takeStream finishes the current stream and resets the builder.
func (c *Compiler) takeStream() []byte {
	out := c.code
	c.code = nil
	return out
}

// ---------------------------------------------------------------------------
// Probe compilation
// ---------------------------------------------------------------------------

func (c *Compiler) compileProbe(probe *compiler.Probe, ordinal int) error {
	spec := convertSpec(probe.Spec)

	// Per-probe sample directives gate the predicate; collect their rates
	// up front so the predicate stream can be emitted in one pass.
	var sampleRates []float64
	for _, stmt := range probe.Body {
		if s, ok := stmt.(*compiler.SampleStmt); ok {
			sampleRates = append(sampleRates, s.Rate())
		}
	}

	predicate := c.compilePredicate(probe.Predicate, sampleRates)
	body := c.compileBody(probe.Body)
	if c.err != nil {
		return c.err
	}

	c.prog.Probes = append(c.prog.Probes, &Probe{
		ID:        hash.ProbeFingerprint(spec.String(), ordinal),
		Spec:      spec,
		Predicate: predicate,
		Body:      body,
	})
	return nil
}

// compilePredicate emits the predicate stream: each sample gate as a
// __sample__(rate) call, the user expression, then strict ANDs folding the
// results together. No gates and no expression yields an empty stream,
// which the executor treats as always-true.
func (c *Compiler) compilePredicate(pred compiler.Expr, sampleRates []float64) []byte {
	if pred == nil && len(sampleRates) == 0 {
		return nil
	}

	terms := 0
	for _, rate := range sampleRates {
		idx := c.intern(FloatConstant(rate))
		c.emitU16(OpPushConst, idx)
		c.emitCall(c.intern(FunctionConstant(SampleFunc)), 1)
		terms++
	}
	if pred != nil {
		c.compileExpr(pred)
		terms++
	}
	for i := 1; i < terms; i++ {
		c.emit(OpAnd)
	}

	c.emit(OpHalt)
	return c.takeStream()
}

// compileBody emits the body stream. Sample directives were already folded
// into the predicate and emit nothing here.
func (c *Compiler) compileBody(stmts []compiler.Stmt) []byte {
	emitted := false
	for _, stmt := range stmts {
		switch st := stmt.(type) {
		case *compiler.AssignStmt:
			c.compileExpr(st.Value)
			c.emitU16(OpStoreReq, c.intern(IdentifierConstant(st.Name)))
			emitted = true
		case *compiler.CaptureStmt:
			c.compileCapture(st)
			emitted = true
		case *compiler.SampleStmt:
			// handled in compilePredicate
		}
	}
	if !emitted {
		return nil
	}
	c.emit(OpHalt)
	return c.takeStream()
}

func (c *Compiler) compileCapture(st *compiler.CaptureStmt) {
	if len(st.Named) > 0 {
		// Named form: push value then name for each pair.
		for _, named := range st.Named {
			c.compileExpr(named.Value)
			c.emitU16(OpPushConst, c.intern(StringConstant(named.Name)))
		}
		c.emitCapture(0, byte(len(st.Named)))
		return
	}
	for _, arg := range st.Args {
		c.compileExpr(arg)
	}
	c.emitCapture(byte(len(st.Args)), 0)
}

// ---------------------------------------------------------------------------
// Expression compilation
// ---------------------------------------------------------------------------

func (c *Compiler) compileExpr(expr compiler.Expr) {
	switch e := expr.(type) {
	case *compiler.IntLiteral:
		c.emitU16(OpPushConst, c.intern(IntConstant(e.Value)))
	case *compiler.FloatLiteral:
		c.emitU16(OpPushConst, c.intern(FloatConstant(e.Value)))
	case *compiler.StringLiteral:
		c.emitU16(OpPushConst, c.intern(StringConstant(e.Value)))
	case *compiler.BoolLiteral:
		c.emitU16(OpPushConst, c.intern(BoolConstant(e.Value)))
	case *compiler.NoneLiteral:
		c.emitU16(OpPushConst, c.intern(NoneConstant()))

	case *compiler.Identifier:
		c.emitU16(OpLoadVar, c.intern(IdentifierConstant(e.Name)))
	case *compiler.RequestVar:
		c.emitU16(OpLoadReq, c.intern(IdentifierConstant(e.Name)))

	case *compiler.AttrAccess:
		c.compileExpr(e.Object)
		c.emitU16(OpGetAttr, c.intern(FieldConstant(e.Field)))
	case *compiler.IndexAccess:
		c.compileExpr(e.Object)
		c.compileExpr(e.Index)
		c.emit(OpGetItem)

	case *compiler.CallExpr:
		if len(e.Args) > 255 {
			c.fail(compiler.NewCompileError(compiler.ErrTooManyArgs,
				"call to %s takes at most 255 arguments", e.Name))
			return
		}
		for _, arg := range e.Args {
			c.compileExpr(arg)
		}
		c.emitCall(c.intern(FunctionConstant(e.Name)), byte(len(e.Args)))

	case *compiler.UnaryExpr:
		c.compileExpr(e.Operand)
		c.emit(OpNot)

	case *compiler.BinaryExpr:
		c.compileExpr(e.Left)
		c.compileExpr(e.Right)
		c.emit(binaryOpcode(e.Op))
	}
}

// binaryOpcode maps a binary operator token to its opcode.
func binaryOpcode(op compiler.TokenType) Opcode {
	switch op {
	case compiler.TokenPlus:
		return OpAdd
	case compiler.TokenMinus:
		return OpSub
	case compiler.TokenStar:
		return OpMul
	case compiler.TokenSlash:
		return OpDiv
	case compiler.TokenPercent:
		return OpMod
	case compiler.TokenEq:
		return OpEq
	case compiler.TokenNe:
		return OpNe
	case compiler.TokenLt:
		return OpLt
	case compiler.TokenGt:
		return OpGt
	case compiler.TokenLe:
		return OpLe
	case compiler.TokenGe:
		return OpGe
	case compiler.TokenAnd:
		return OpAnd
	case compiler.TokenOr:
		return OpOr
	}
	return OpHalt // unreachable for parser-produced ASTs
}

func convertSpec(spec *compiler.ProbeSpec) ProbeSpec {
	out := ProbeSpec{
		Specifier: spec.Specifier,
		Offset:    spec.Offset,
	}
	if spec.Provider == compiler.ProviderPy {
		out.Provider = ProviderPy
	}
	if spec.Target == compiler.TargetExit {
		out.Target = TargetExit
	}
	return out
}
