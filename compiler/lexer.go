package compiler

// ---------------------------------------------------------------------------
// Lexer: hand-written scanner for HogTrace probe source
// ---------------------------------------------------------------------------

// Lexer tokenizes HogTrace source code.
type Lexer struct {
	input   string
	pos     int  // current position (points to ch)
	readPos int  // next read position
	ch      byte // current character, 0 at EOF
	line    int  // 1-based line of ch
	column  int  // 1-based column of ch
}

// NewLexer creates a lexer over the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
	l.column++
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

// position returns the position of the current character.
func (l *Lexer) position() Position {
	return Position{Offset: l.pos, Line: l.line, Column: l.column}
}

// NextToken scans and returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	pos := l.position()

	switch l.ch {
	case 0:
		return Token{Type: TokenEOF, Literal: "", Pos: pos}
	case ':':
		l.readChar()
		return Token{Type: TokenColon, Literal: ":", Pos: pos}
	case ';':
		l.readChar()
		return Token{Type: TokenSemicolon, Literal: ";", Pos: pos}
	case ',':
		l.readChar()
		return Token{Type: TokenComma, Literal: ",", Pos: pos}
	case '(':
		l.readChar()
		return Token{Type: TokenLParen, Literal: "(", Pos: pos}
	case ')':
		l.readChar()
		return Token{Type: TokenRParen, Literal: ")", Pos: pos}
	case '{':
		l.readChar()
		return Token{Type: TokenLBrace, Literal: "{", Pos: pos}
	case '}':
		l.readChar()
		return Token{Type: TokenRBrace, Literal: "}", Pos: pos}
	case '[':
		l.readChar()
		return Token{Type: TokenLBracket, Literal: "[", Pos: pos}
	case ']':
		l.readChar()
		return Token{Type: TokenRBracket, Literal: "]", Pos: pos}
	case '*':
		l.readChar()
		return Token{Type: TokenStar, Literal: "*", Pos: pos}
	case '/':
		l.readChar()
		return Token{Type: TokenSlash, Literal: "/", Pos: pos}
	case '%':
		l.readChar()
		return Token{Type: TokenPercent, Literal: "%", Pos: pos}
	case '+':
		l.readChar()
		return Token{Type: TokenPlus, Literal: "+", Pos: pos}
	case '-':
		l.readChar()
		return Token{Type: TokenMinus, Literal: "-", Pos: pos}
	case '.':
		l.readChar()
		return Token{Type: TokenDot, Literal: ".", Pos: pos}
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return Token{Type: TokenEq, Literal: "==", Pos: pos}
		}
		l.readChar()
		return Token{Type: TokenAssign, Literal: "=", Pos: pos}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return Token{Type: TokenNe, Literal: "!=", Pos: pos}
		}
		l.readChar()
		return Token{Type: TokenBang, Literal: "!", Pos: pos}
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return Token{Type: TokenLe, Literal: "<=", Pos: pos}
		}
		l.readChar()
		return Token{Type: TokenLt, Literal: "<", Pos: pos}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return Token{Type: TokenGe, Literal: ">=", Pos: pos}
		}
		l.readChar()
		return Token{Type: TokenGt, Literal: ">", Pos: pos}
	case '&':
		if l.peekChar() == '&' {
			l.readChar()
			l.readChar()
			return Token{Type: TokenAnd, Literal: "&&", Pos: pos}
		}
		l.readChar()
		return Token{Type: TokenIllegal, Literal: "&", Pos: pos}
	case '|':
		if l.peekChar() == '|' {
			l.readChar()
			l.readChar()
			return Token{Type: TokenOr, Literal: "||", Pos: pos}
		}
		l.readChar()
		return Token{Type: TokenIllegal, Literal: "|", Pos: pos}
	case '\'', '"':
		return l.readString(pos)
	case '$':
		return l.readRequestVar(pos)
	}

	if isLetter(l.ch) {
		lit := l.readIdentifier()
		return Token{Type: LookupIdent(lit), Literal: lit, Pos: pos}
	}
	if isDigit(l.ch) {
		return l.readNumber(pos)
	}

	illegal := string(l.ch)
	l.readChar()
	return Token{Type: TokenIllegal, Literal: illegal, Pos: pos}
}

// skipWhitespaceAndComments skips whitespace, # line comments, and
// /* ... */ block comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r':
			l.readChar()
		case l.ch == '#':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		case l.ch == '/' && l.peekChar() == '*':
			l.readChar() // consume /
			l.readChar() // consume *
			for l.ch != 0 && !(l.ch == '*' && l.peekChar() == '/') {
				l.readChar()
			}
			if l.ch != 0 {
				l.readChar() // consume *
				l.readChar() // consume /
			}
		default:
			return
		}
	}
}

// readIdentifier reads an identifier starting at the current character.
func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readRequestVar reads $req or $request.
func (l *Lexer) readRequestVar(pos Position) Token {
	l.readChar() // consume $
	if !isLetter(l.ch) {
		return Token{Type: TokenIllegal, Literal: "$", Pos: pos}
	}
	name := l.readIdentifier()
	if name != "req" && name != "request" {
		return Token{Type: TokenIllegal, Literal: "$" + name, Pos: pos}
	}
	return Token{Type: TokenReqVar, Literal: "$" + name, Pos: pos}
}

// readNumber reads an integer or float literal, including exponents.
func (l *Lexer) readNumber(pos Position) Token {
	start := l.pos
	isFloat := false

	for isDigit(l.ch) {
		l.readChar()
	}

	// Fractional part: only when a digit follows the dot, so that
	// postfix access like arg0.data keeps its Dot token.
	if l.ch == '.' && isDigit(l.peekChar()) {
		isFloat = true
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	// Exponent
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || ((next == '+' || next == '-') && l.readPos+1 < len(l.input) && isDigit(l.input[l.readPos+1])) {
			isFloat = true
			l.readChar() // e/E
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}

	lit := l.input[start:l.pos]
	if isFloat {
		return Token{Type: TokenFloat, Literal: lit, Pos: pos}
	}
	return Token{Type: TokenInteger, Literal: lit, Pos: pos}
}

// readString reads a single- or double-quoted string literal. The returned
// literal is the decoded value with escapes resolved.
func (l *Lexer) readString(pos Position) Token {
	quote := l.ch
	l.readChar() // consume opening quote

	var out []byte
	for l.ch != quote {
		if l.ch == 0 || l.ch == '\n' {
			return Token{Type: TokenIllegal, Literal: string(out), Pos: pos}
		}
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			case 'r':
				out = append(out, '\r')
			case '\\':
				out = append(out, '\\')
			case '\'':
				out = append(out, '\'')
			case '"':
				out = append(out, '"')
			case '0':
				out = append(out, 0)
			default:
				// Unknown escape: keep the character as-is.
				out = append(out, l.ch)
			}
			l.readChar()
			continue
		}
		out = append(out, l.ch)
		l.readChar()
	}
	l.readChar() // consume closing quote
	return Token{Type: TokenString, Literal: string(out), Pos: pos}
}

func isLetter(ch byte) bool {
	return ch == '_' || ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z')
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
