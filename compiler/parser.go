package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Parser: Recursive descent parser for HogTrace probe syntax
// ---------------------------------------------------------------------------

// Parser parses HogTrace source code into an AST.
type Parser struct {
	lexer     *Lexer
	curToken  Token
	peekToken Token
	errors    []string
	input     string // original source text

	// inPredicate disambiguates the closing / of a predicate from the
	// division operator.
	inPredicate bool
}

// NewParser creates a new parser for the given input.
func NewParser(input string) *Parser {
	p := &Parser{
		lexer: NewLexer(input),
		input: input,
	}
	// Read two tokens to fill curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

// Parse is a convenience wrapper: parse a full program, returning the first
// error as a SyntaxError.
func Parse(input string) (*Program, error) {
	p := NewParser(input)
	prog := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		return nil, &SyntaxError{Msg: errs[0]}
	}
	return prog, nil
}

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
}

// curTokenIs checks if the current token is of the given type.
func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

// peekTokenIs checks if the peek token is of the given type.
func (p *Parser) peekTokenIs(t TokenType) bool {
	return p.peekToken.Type == t
}

// expect advances if the current token matches, otherwise records an error.
func (p *Parser) expect(t TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.errorf("expected %s, got %s", t, p.curToken.Type)
	return false
}

// errorf records a parse error at the current token.
func (p *Parser) errorf(format string, args ...interface{}) {
	pos := p.curToken.Pos
	msg := fmt.Sprintf("line %d, column %d: %s", pos.Line, pos.Column, fmt.Sprintf(format, args...))
	p.errors = append(p.errors, msg)
}

// Errors returns accumulated parse errors.
func (p *Parser) Errors() []string {
	return p.errors
}

// ---------------------------------------------------------------------------
// Top-level parsing
// ---------------------------------------------------------------------------

// ParseProgram parses a sequence of probes until EOF.
func (p *Parser) ParseProgram() *Program {
	startPos := p.curToken.Pos
	prog := &Program{}

	for !p.curTokenIs(TokenEOF) {
		probe := p.parseProbe()
		if probe == nil {
			// Unrecoverable structural error; stop rather than loop.
			break
		}
		prog.Probes = append(prog.Probes, probe)
	}

	if len(prog.Probes) == 0 && len(p.errors) == 0 {
		p.errorf("expected at least one probe")
	}

	prog.SpanVal = MakeSpan(startPos, p.curToken.Pos)
	return prog
}

// parseProbe parses spec predicate? action.
func (p *Parser) parseProbe() *Probe {
	startPos := p.curToken.Pos

	spec := p.parseProbeSpec()
	if spec == nil {
		return nil
	}

	var predicate Expr
	if p.curTokenIs(TokenSlash) {
		p.nextToken() // consume opening /
		p.inPredicate = true
		predicate = p.parseExpression()
		p.inPredicate = false
		if predicate == nil {
			return nil
		}
		if !p.expect(TokenSlash) {
			return nil
		}
	}

	body := p.parseAction()
	if body == nil {
		return nil
	}

	return &Probe{
		SpanVal:   MakeSpan(startPos, p.curToken.Pos),
		Spec:      spec,
		Predicate: predicate,
		Body:      body,
	}
}

// parseProbeSpec parses provider:moduleFunction:probePoint.
func (p *Parser) parseProbeSpec() *ProbeSpec {
	startPos := p.curToken.Pos

	var provider Provider
	switch p.curToken.Type {
	case TokenFn:
		provider = ProviderFn
	case TokenPy:
		provider = ProviderPy
	default:
		p.errorf("expected probe provider (fn or py), got %s", p.curToken.Type)
		return nil
	}
	p.nextToken()

	if !p.expect(TokenColon) {
		return nil
	}

	specifier := p.parseSpecifier()
	if specifier == "" {
		return nil
	}

	if !p.expect(TokenColon) {
		return nil
	}

	target, offset, ok := p.parseProbePoint()
	if !ok {
		return nil
	}

	return &ProbeSpec{
		SpanVal:   MakeSpan(startPos, p.curToken.Pos),
		Provider:  provider,
		Specifier: specifier,
		Target:    target,
		Offset:    offset,
	}
}

// parseSpecifier parses a dotted module path optionally ending in *.
func (p *Parser) parseSpecifier() string {
	var parts []string

	if p.curTokenIs(TokenStar) {
		p.nextToken()
		return "*"
	}
	if !p.curTokenIs(TokenIdentifier) {
		p.errorf("expected module path, got %s", p.curToken.Type)
		return ""
	}
	parts = append(parts, p.curToken.Literal)
	p.nextToken()

	for p.curTokenIs(TokenDot) {
		p.nextToken()
		switch {
		case p.curTokenIs(TokenIdentifier):
			parts = append(parts, p.curToken.Literal)
			p.nextToken()
		case p.curTokenIs(TokenStar):
			parts = append(parts, "*")
			p.nextToken()
			return strings.Join(parts, ".")
		default:
			p.errorf("expected identifier or * in module path, got %s", p.curToken.Type)
			return ""
		}
	}

	return strings.Join(parts, ".")
}

// parseProbePoint parses entry | exit | entry+INT | exit+INT.
func (p *Parser) parseProbePoint() (Target, uint32, bool) {
	var target Target
	switch p.curToken.Type {
	case TokenEntry:
		target = TargetEntry
	case TokenExit:
		target = TargetExit
	default:
		p.errorf("expected probe point (entry or exit), got %s", p.curToken.Type)
		return 0, 0, false
	}
	p.nextToken()

	var offset uint32
	if p.curTokenIs(TokenPlus) {
		p.nextToken()
		if !p.curTokenIs(TokenInteger) {
			p.errorf("expected integer offset after +, got %s", p.curToken.Type)
			return 0, 0, false
		}
		n, err := strconv.ParseUint(p.curToken.Literal, 10, 32)
		if err != nil {
			p.errorf("invalid probe offset %q", p.curToken.Literal)
			return 0, 0, false
		}
		offset = uint32(n)
		p.nextToken()
	}

	return target, offset, true
}

// ---------------------------------------------------------------------------
// Action block and statements
// ---------------------------------------------------------------------------

// parseAction parses { statement* }.
func (p *Parser) parseAction() []Stmt {
	if !p.expect(TokenLBrace) {
		return nil
	}

	stmts := []Stmt{}
	for !p.curTokenIs(TokenRBrace) && !p.curTokenIs(TokenEOF) {
		stmt := p.parseStatement()
		if stmt == nil {
			return nil
		}
		stmts = append(stmts, stmt)
	}

	if !p.expect(TokenRBrace) {
		return nil
	}
	return stmts
}

// parseStatement parses one action statement: a request-var assignment, a
// sample directive, or a capture/send call. Anything else is rejected.
func (p *Parser) parseStatement() Stmt {
	switch p.curToken.Type {
	case TokenReqVar:
		return p.parseAssign()
	case TokenSample:
		return p.parseSample()
	case TokenCapture, TokenSend:
		return p.parseCapture()
	default:
		p.errorf("statement not allowed in action block: %s", p.curToken.Type)
		return nil
	}
}

// parseAssign parses $req.name = expr;
func (p *Parser) parseAssign() Stmt {
	startPos := p.curToken.Pos
	p.nextToken() // consume $req / $request

	if !p.expect(TokenDot) {
		return nil
	}
	if !p.curTokenIs(TokenIdentifier) {
		p.errorf("expected request variable name, got %s", p.curToken.Type)
		return nil
	}
	name := p.curToken.Literal
	p.nextToken()

	if !p.expect(TokenAssign) {
		return nil
	}

	value := p.parseExpression()
	if value == nil {
		return nil
	}

	if !p.expect(TokenSemicolon) {
		return nil
	}

	return &AssignStmt{
		SpanVal: MakeSpan(startPos, p.curToken.Pos),
		Name:    name,
		Value:   value,
	}
}

// parseSample parses sample PERCENT%; or sample A/B;
func (p *Parser) parseSample() Stmt {
	startPos := p.curToken.Pos
	p.nextToken() // consume sample

	stmt := &SampleStmt{}

	switch p.curToken.Type {
	case TokenFloat:
		// Float form is always a percentage: sample 0.5%
		val, err := strconv.ParseFloat(p.curToken.Literal, 64)
		if err != nil {
			p.errorf("invalid sample rate %q", p.curToken.Literal)
			return nil
		}
		p.nextToken()
		if !p.expect(TokenPercent) {
			return nil
		}
		stmt.IsPercent = true
		stmt.Percent = val

	case TokenInteger:
		num, err := strconv.ParseInt(p.curToken.Literal, 10, 64)
		if err != nil {
			p.errorf("invalid sample rate %q", p.curToken.Literal)
			return nil
		}
		p.nextToken()
		switch p.curToken.Type {
		case TokenPercent:
			p.nextToken()
			stmt.IsPercent = true
			stmt.Percent = float64(num)
		case TokenSlash:
			p.nextToken()
			if !p.curTokenIs(TokenInteger) {
				p.errorf("expected sample denominator, got %s", p.curToken.Type)
				return nil
			}
			den, err := strconv.ParseInt(p.curToken.Literal, 10, 64)
			if err != nil {
				p.errorf("invalid sample denominator %q", p.curToken.Literal)
				return nil
			}
			p.nextToken()
			stmt.Num = num
			stmt.Den = den
		default:
			p.errorf("expected %% or / in sample directive, got %s", p.curToken.Type)
			return nil
		}

	default:
		p.errorf("expected sample rate, got %s", p.curToken.Type)
		return nil
	}

	if !p.expect(TokenSemicolon) {
		return nil
	}

	stmt.SpanVal = MakeSpan(startPos, p.curToken.Pos)
	return stmt
}

// parseCapture parses capture(...) / send(...). The argument list is either
// all positional or all named (name = expr); mixing is caught during
// semantic analysis so it can be reported as a structured error.
func (p *Parser) parseCapture() Stmt {
	startPos := p.curToken.Pos
	p.nextToken() // consume capture / send

	if !p.expect(TokenLParen) {
		return nil
	}

	stmt := &CaptureStmt{}
	for !p.curTokenIs(TokenRParen) && !p.curTokenIs(TokenEOF) {
		if p.curTokenIs(TokenIdentifier) && p.peekTokenIs(TokenAssign) {
			argPos := p.curToken.Pos
			name := p.curToken.Literal
			p.nextToken() // name
			p.nextToken() // =
			value := p.parseExpression()
			if value == nil {
				return nil
			}
			stmt.Named = append(stmt.Named, &NamedArg{
				SpanVal: MakeSpan(argPos, p.curToken.Pos),
				Name:    name,
				Value:   value,
			})
		} else {
			arg := p.parseExpression()
			if arg == nil {
				return nil
			}
			stmt.Args = append(stmt.Args, arg)
		}

		if p.curTokenIs(TokenComma) {
			p.nextToken()
		} else {
			break
		}
	}

	if !p.expect(TokenRParen) {
		return nil
	}
	if !p.expect(TokenSemicolon) {
		return nil
	}

	stmt.SpanVal = MakeSpan(startPos, p.curToken.Pos)
	return stmt
}

// ---------------------------------------------------------------------------
// Expressions (precedence low → high)
// ---------------------------------------------------------------------------

// parseExpression parses a full expression.
func (p *Parser) parseExpression() Expr {
	return p.parseOr()
}

func (p *Parser) parseOr() Expr {
	left := p.parseAnd()
	for left != nil && p.curTokenIs(TokenOr) {
		op := p.curToken.Type
		p.nextToken()
		right := p.parseAnd()
		if right == nil {
			return nil
		}
		left = &BinaryExpr{
			SpanVal: MakeSpan(left.Span().Start, right.Span().End),
			Op:      op, Left: left, Right: right,
		}
	}
	return left
}

func (p *Parser) parseAnd() Expr {
	left := p.parseEquality()
	for left != nil && p.curTokenIs(TokenAnd) {
		op := p.curToken.Type
		p.nextToken()
		right := p.parseEquality()
		if right == nil {
			return nil
		}
		left = &BinaryExpr{
			SpanVal: MakeSpan(left.Span().Start, right.Span().End),
			Op:      op, Left: left, Right: right,
		}
	}
	return left
}

func (p *Parser) parseEquality() Expr {
	left := p.parseComparison()
	for left != nil && (p.curTokenIs(TokenEq) || p.curTokenIs(TokenNe)) {
		op := p.curToken.Type
		p.nextToken()
		right := p.parseComparison()
		if right == nil {
			return nil
		}
		left = &BinaryExpr{
			SpanVal: MakeSpan(left.Span().Start, right.Span().End),
			Op:      op, Left: left, Right: right,
		}
	}
	return left
}

func (p *Parser) parseComparison() Expr {
	left := p.parseAdditive()
	for left != nil && (p.curTokenIs(TokenLt) || p.curTokenIs(TokenLe) ||
		p.curTokenIs(TokenGt) || p.curTokenIs(TokenGe)) {
		op := p.curToken.Type
		p.nextToken()
		right := p.parseAdditive()
		if right == nil {
			return nil
		}
		left = &BinaryExpr{
			SpanVal: MakeSpan(left.Span().Start, right.Span().End),
			Op:      op, Left: left, Right: right,
		}
	}
	return left
}

func (p *Parser) parseAdditive() Expr {
	left := p.parseMultiplicative()
	for left != nil && (p.curTokenIs(TokenPlus) || p.curTokenIs(TokenMinus)) {
		op := p.curToken.Type
		p.nextToken()
		right := p.parseMultiplicative()
		if right == nil {
			return nil
		}
		left = &BinaryExpr{
			SpanVal: MakeSpan(left.Span().Start, right.Span().End),
			Op:      op, Left: left, Right: right,
		}
	}
	return left
}

func (p *Parser) parseMultiplicative() Expr {
	left := p.parseUnary()
	for left != nil && (p.curTokenIs(TokenStar) || p.curTokenIs(TokenSlash) || p.curTokenIs(TokenPercent)) {
		// Inside a predicate, a / directly followed by { closes the
		// predicate rather than dividing.
		if p.inPredicate && p.curTokenIs(TokenSlash) && p.peekTokenIs(TokenLBrace) {
			return left
		}
		op := p.curToken.Type
		p.nextToken()
		right := p.parseUnary()
		if right == nil {
			return nil
		}
		left = &BinaryExpr{
			SpanVal: MakeSpan(left.Span().Start, right.Span().End),
			Op:      op, Left: left, Right: right,
		}
	}
	return left
}

func (p *Parser) parseUnary() Expr {
	switch p.curToken.Type {
	case TokenBang:
		startPos := p.curToken.Pos
		p.nextToken()
		operand := p.parseUnary()
		if operand == nil {
			return nil
		}
		return &UnaryExpr{
			SpanVal: MakeSpan(startPos, operand.Span().End),
			Op:      TokenBang,
			Operand: operand,
		}
	case TokenMinus:
		// Negation is folded into numeric literals; there is no general
		// negate instruction.
		startPos := p.curToken.Pos
		p.nextToken()
		switch p.curToken.Type {
		case TokenInteger:
			val, err := strconv.ParseInt(p.curToken.Literal, 10, 64)
			if err != nil {
				p.errorf("invalid integer literal %q", p.curToken.Literal)
				return nil
			}
			end := p.curToken.Pos
			p.nextToken()
			return &IntLiteral{SpanVal: MakeSpan(startPos, end), Value: -val}
		case TokenFloat:
			val, err := strconv.ParseFloat(p.curToken.Literal, 64)
			if err != nil {
				p.errorf("invalid float literal %q", p.curToken.Literal)
				return nil
			}
			end := p.curToken.Pos
			p.nextToken()
			return &FloatLiteral{SpanVal: MakeSpan(startPos, end), Value: -val}
		default:
			p.errorf("unary - is only allowed on numeric literals")
			return nil
		}
	}
	return p.parsePostfix()
}

// parsePostfix parses primary followed by .field, [index], and (args).
func (p *Parser) parsePostfix() Expr {
	expr := p.parsePrimary()

	for expr != nil {
		switch p.curToken.Type {
		case TokenDot:
			p.nextToken()
			if !p.curTokenIs(TokenIdentifier) {
				p.errorf("expected field name after ., got %s", p.curToken.Type)
				return nil
			}
			field := p.curToken.Literal
			end := p.curToken.Pos
			p.nextToken()
			expr = &AttrAccess{
				SpanVal: MakeSpan(expr.Span().Start, end),
				Object:  expr,
				Field:   field,
			}

		case TokenLBracket:
			p.nextToken()
			index := p.parseExpression()
			if index == nil {
				return nil
			}
			end := p.curToken.Pos
			if !p.expect(TokenRBracket) {
				return nil
			}
			expr = &IndexAccess{
				SpanVal: MakeSpan(expr.Span().Start, end),
				Object:  expr,
				Index:   index,
			}

		case TokenLParen:
			ident, ok := expr.(*Identifier)
			if !ok {
				p.errorf("only named functions can be called")
				return nil
			}
			p.nextToken()
			var args []Expr
			for !p.curTokenIs(TokenRParen) && !p.curTokenIs(TokenEOF) {
				arg := p.parseExpression()
				if arg == nil {
					return nil
				}
				args = append(args, arg)
				if p.curTokenIs(TokenComma) {
					p.nextToken()
				} else {
					break
				}
			}
			end := p.curToken.Pos
			if !p.expect(TokenRParen) {
				return nil
			}
			expr = &CallExpr{
				SpanVal: MakeSpan(ident.Span().Start, end),
				Name:    ident.Name,
				Args:    args,
			}

		default:
			return expr
		}
	}
	return expr
}

// parsePrimary parses literals, identifiers, request vars, and ( expr ).
func (p *Parser) parsePrimary() Expr {
	pos := p.curToken.Pos

	switch p.curToken.Type {
	case TokenInteger:
		val, err := strconv.ParseInt(p.curToken.Literal, 10, 64)
		if err != nil {
			p.errorf("invalid integer literal %q", p.curToken.Literal)
			return nil
		}
		p.nextToken()
		return &IntLiteral{SpanVal: MakeSpan(pos, pos), Value: val}

	case TokenFloat:
		val, err := strconv.ParseFloat(p.curToken.Literal, 64)
		if err != nil {
			p.errorf("invalid float literal %q", p.curToken.Literal)
			return nil
		}
		p.nextToken()
		return &FloatLiteral{SpanVal: MakeSpan(pos, pos), Value: val}

	case TokenString:
		val := p.curToken.Literal
		p.nextToken()
		return &StringLiteral{SpanVal: MakeSpan(pos, pos), Value: val}

	case TokenTrue:
		p.nextToken()
		return &BoolLiteral{SpanVal: MakeSpan(pos, pos), Value: true}

	case TokenFalse:
		p.nextToken()
		return &BoolLiteral{SpanVal: MakeSpan(pos, pos), Value: false}

	case TokenNone:
		p.nextToken()
		return &NoneLiteral{SpanVal: MakeSpan(pos, pos)}

	case TokenIdentifier:
		name := p.curToken.Literal
		p.nextToken()
		return &Identifier{SpanVal: MakeSpan(pos, pos), Name: name}

	case TokenReqVar:
		p.nextToken()
		if !p.expect(TokenDot) {
			return nil
		}
		if !p.curTokenIs(TokenIdentifier) {
			p.errorf("expected request variable name, got %s", p.curToken.Type)
			return nil
		}
		name := p.curToken.Literal
		end := p.curToken.Pos
		p.nextToken()
		return &RequestVar{SpanVal: MakeSpan(pos, end), Name: name}

	case TokenLParen:
		p.nextToken()
		expr := p.parseExpression()
		if expr == nil {
			return nil
		}
		if !p.expect(TokenRParen) {
			return nil
		}
		return expr

	default:
		p.errorf("unexpected token %s in expression", p.curToken.Type)
		return nil
	}
}
