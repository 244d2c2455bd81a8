package compiler

// ---------------------------------------------------------------------------
// Tokens for the HogTrace probe language
// ---------------------------------------------------------------------------

// TokenType identifies the lexical class of a token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIllegal

	// Literals and names
	TokenIdentifier // request_id, arg0
	TokenInteger    // 42
	TokenFloat      // 3.14, 1e-3
	TokenString     // "admin", 'admin'

	// Keywords
	TokenFn      // fn
	TokenPy      // py
	TokenEntry   // entry
	TokenExit    // exit
	TokenSample  // sample
	TokenCapture // capture
	TokenSend    // send
	TokenTrue    // True
	TokenFalse   // False
	TokenNone    // None

	// Request-scoped variable prefix: $req / $request
	TokenReqVar

	// Punctuation
	TokenColon     // :
	TokenSemicolon // ;
	TokenComma     // ,
	TokenDot       // .
	TokenLParen    // (
	TokenRParen    // )
	TokenLBrace    // {
	TokenRBrace    // }
	TokenLBracket  // [
	TokenRBracket  // ]
	TokenStar      // *
	TokenSlash     // / (division and predicate delimiter)
	TokenPercent   // %
	TokenPlus      // +
	TokenMinus     // -
	TokenAssign    // =
	TokenEq        // ==
	TokenNe        // !=
	TokenLt        // <
	TokenLe        // <=
	TokenGt        // >
	TokenGe        // >=
	TokenAnd       // &&
	TokenOr        // ||
	TokenBang      // !
)

// tokenNames maps token types to human-readable names for error messages.
var tokenNames = map[TokenType]string{
	TokenEOF:        "EOF",
	TokenIllegal:    "ILLEGAL",
	TokenIdentifier: "IDENTIFIER",
	TokenInteger:    "INTEGER",
	TokenFloat:      "FLOAT",
	TokenString:     "STRING",
	TokenFn:         "fn",
	TokenPy:         "py",
	TokenEntry:      "entry",
	TokenExit:       "exit",
	TokenSample:     "sample",
	TokenCapture:    "capture",
	TokenSend:       "send",
	TokenTrue:       "True",
	TokenFalse:      "False",
	TokenNone:       "None",
	TokenReqVar:     "$req",
	TokenColon:      ":",
	TokenSemicolon:  ";",
	TokenComma:      ",",
	TokenDot:        ".",
	TokenLParen:     "(",
	TokenRParen:     ")",
	TokenLBrace:     "{",
	TokenRBrace:     "}",
	TokenLBracket:   "[",
	TokenRBracket:   "]",
	TokenStar:       "*",
	TokenSlash:      "/",
	TokenPercent:    "%",
	TokenPlus:       "+",
	TokenMinus:      "-",
	TokenAssign:     "=",
	TokenEq:         "==",
	TokenNe:         "!=",
	TokenLt:         "<",
	TokenLe:         "<=",
	TokenGt:         ">",
	TokenGe:         ">=",
	TokenAnd:        "&&",
	TokenOr:         "||",
	TokenBang:       "!",
}

// String returns a readable name for the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// keywords maps reserved words to their token types. Recognition is
// case-sensitive: True/False/None are capitalized, everything else is lower.
var keywords = map[string]TokenType{
	"fn":      TokenFn,
	"py":      TokenPy,
	"entry":   TokenEntry,
	"exit":    TokenExit,
	"sample":  TokenSample,
	"capture": TokenCapture,
	"send":    TokenSend,
	"True":    TokenTrue,
	"False":   TokenFalse,
	"None":    TokenNone,
}

// LookupIdent returns the keyword token type for an identifier, or
// TokenIdentifier if it is not reserved.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return TokenIdentifier
}

// Token is a single lexical token with its source position.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
}
