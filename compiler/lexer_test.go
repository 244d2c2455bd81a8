package compiler

import (
	"testing"
)

func TestLexerBasicTokens(t *testing.T) {
	input := `: ; , . ( ) { } [ ] * / % + - = !`
	expected := []struct {
		typ TokenType
		lit string
	}{
		{TokenColon, ":"},
		{TokenSemicolon, ";"},
		{TokenComma, ","},
		{TokenDot, "."},
		{TokenLParen, "("},
		{TokenRParen, ")"},
		{TokenLBrace, "{"},
		{TokenRBrace, "}"},
		{TokenLBracket, "["},
		{TokenRBracket, "]"},
		{TokenStar, "*"},
		{TokenSlash, "/"},
		{TokenPercent, "%"},
		{TokenPlus, "+"},
		{TokenMinus, "-"},
		{TokenAssign, "="},
		{TokenBang, "!"},
		{TokenEOF, ""},
	}

	l := NewLexer(input)
	for i, exp := range expected {
		tok := l.NextToken()
		if tok.Type != exp.typ {
			t.Errorf("token[%d] type = %v, want %v", i, tok.Type, exp.typ)
		}
		if tok.Literal != exp.lit {
			t.Errorf("token[%d] literal = %q, want %q", i, tok.Literal, exp.lit)
		}
	}
}

func TestLexerOperators(t *testing.T) {
	input := `== != < <= > >= && ||`
	expected := []TokenType{
		TokenEq, TokenNe, TokenLt, TokenLe, TokenGt, TokenGe,
		TokenAnd, TokenOr, TokenEOF,
	}

	l := NewLexer(input)
	for i, exp := range expected {
		tok := l.NextToken()
		if tok.Type != exp {
			t.Errorf("token[%d] type = %v, want %v", i, tok.Type, exp)
		}
	}
}

func TestLexerKeywords(t *testing.T) {
	tests := []struct {
		input string
		want  TokenType
	}{
		{"fn", TokenFn},
		{"py", TokenPy},
		{"entry", TokenEntry},
		{"exit", TokenExit},
		{"sample", TokenSample},
		{"capture", TokenCapture},
		{"send", TokenSend},
		{"True", TokenTrue},
		{"False", TokenFalse},
		{"None", TokenNone},
		{"true", TokenIdentifier},
		{"arg0", TokenIdentifier},
		{"retval", TokenIdentifier},
	}

	for _, tc := range tests {
		l := NewLexer(tc.input)
		tok := l.NextToken()
		if tok.Type != tc.want {
			t.Errorf("Lexer(%q): type = %v, want %v", tc.input, tok.Type, tc.want)
		}
	}
}

func TestLexerNumbers(t *testing.T) {
	tests := []struct {
		input string
		typ   TokenType
		want  string
	}{
		{"42", TokenInteger, "42"},
		{"0", TokenInteger, "0"},
		{"3.14", TokenFloat, "3.14"},
		{"0.5", TokenFloat, "0.5"},
		{"1e10", TokenFloat, "1e10"},
		{"1.5e-3", TokenFloat, "1.5e-3"},
		{"2.0E+5", TokenFloat, "2.0E+5"},
	}

	for _, tc := range tests {
		l := NewLexer(tc.input)
		tok := l.NextToken()
		if tok.Type != tc.typ {
			t.Errorf("Lexer(%q): type = %v, want %v", tc.input, tok.Type, tc.typ)
		}
		if tok.Literal != tc.want {
			t.Errorf("Lexer(%q): literal = %q, want %q", tc.input, tok.Literal, tc.want)
		}
	}
}

func TestLexerNumberThenDot(t *testing.T) {
	// arg0.data must lex as IDENT DOT IDENT, and 1.5 as a float; a digit
	// followed by a dot and a letter keeps the dot separate.
	l := NewLexer("arg0.data")
	expected := []TokenType{TokenIdentifier, TokenDot, TokenIdentifier, TokenEOF}
	for i, exp := range expected {
		tok := l.NextToken()
		if tok.Type != exp {
			t.Errorf("token[%d] type = %v, want %v", i, tok.Type, exp)
		}
	}
}

func TestLexerStrings(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`"admin"`, "admin"},
		{`'admin'`, "admin"},
		{`"a\nb"`, "a\nb"},
		{`"a\tb"`, "a\tb"},
		{`"quote: \""`, `quote: "`},
		{`'quote: \''`, `quote: '`},
		{`"back\\slash"`, `back\slash`},
		{`""`, ""},
	}

	for _, tc := range tests {
		l := NewLexer(tc.input)
		tok := l.NextToken()
		if tok.Type != TokenString {
			t.Errorf("Lexer(%s): type = %v, want STRING", tc.input, tok.Type)
		}
		if tok.Literal != tc.want {
			t.Errorf("Lexer(%s): literal = %q, want %q", tc.input, tok.Literal, tc.want)
		}
	}
}

func TestLexerUnterminatedString(t *testing.T) {
	l := NewLexer(`"oops`)
	tok := l.NextToken()
	if tok.Type != TokenIllegal {
		t.Errorf("unterminated string: type = %v, want ILLEGAL", tok.Type)
	}
}

func TestLexerRequestVar(t *testing.T) {
	tests := []struct {
		input string
		typ   TokenType
		lit   string
	}{
		{"$req", TokenReqVar, "$req"},
		{"$request", TokenReqVar, "$request"},
		{"$other", TokenIllegal, "$other"},
		{"$", TokenIllegal, "$"},
	}

	for _, tc := range tests {
		l := NewLexer(tc.input)
		tok := l.NextToken()
		if tok.Type != tc.typ {
			t.Errorf("Lexer(%q): type = %v, want %v", tc.input, tok.Type, tc.typ)
		}
		if tok.Literal != tc.lit {
			t.Errorf("Lexer(%q): literal = %q, want %q", tc.input, tok.Literal, tc.lit)
		}
	}
}

func TestLexerComments(t *testing.T) {
	input := `arg0 # line comment
/* block
   comment */ arg1`

	l := NewLexer(input)
	tok := l.NextToken()
	if tok.Type != TokenIdentifier || tok.Literal != "arg0" {
		t.Errorf("first token = %v %q, want IDENTIFIER arg0", tok.Type, tok.Literal)
	}
	tok = l.NextToken()
	if tok.Type != TokenIdentifier || tok.Literal != "arg1" {
		t.Errorf("second token = %v %q, want IDENTIFIER arg1", tok.Type, tok.Literal)
	}
	if tok := l.NextToken(); tok.Type != TokenEOF {
		t.Errorf("third token = %v, want EOF", tok.Type)
	}
}

func TestLexerPositions(t *testing.T) {
	input := "arg0\n  arg1"
	l := NewLexer(input)

	tok := l.NextToken()
	if tok.Pos.Line != 1 || tok.Pos.Column != 1 {
		t.Errorf("arg0 position = %d:%d, want 1:1", tok.Pos.Line, tok.Pos.Column)
	}
	tok = l.NextToken()
	if tok.Pos.Line != 2 || tok.Pos.Column != 3 {
		t.Errorf("arg1 position = %d:%d, want 2:3", tok.Pos.Line, tok.Pos.Column)
	}
}

func TestLexerFullProbe(t *testing.T) {
	input := `fn:billing.charge:entry / arg0 == "admin" / { capture(arg0); }`
	expected := []TokenType{
		TokenFn, TokenColon, TokenIdentifier, TokenDot, TokenIdentifier,
		TokenColon, TokenEntry,
		TokenSlash, TokenIdentifier, TokenEq, TokenString, TokenSlash,
		TokenLBrace, TokenCapture, TokenLParen, TokenIdentifier, TokenRParen,
		TokenSemicolon, TokenRBrace, TokenEOF,
	}

	l := NewLexer(input)
	for i, exp := range expected {
		tok := l.NextToken()
		if tok.Type != exp {
			t.Fatalf("token[%d] = %v (%q), want %v", i, tok.Type, tok.Literal, exp)
		}
	}
}
