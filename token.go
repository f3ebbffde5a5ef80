package aqua

import "fmt"

// TokenType classifies a lexical token of the Aqua language.
type TokenType int

const (
	// Keywords
	TokenFunc TokenType = iota
	TokenLet
	TokenImport
	TokenSpawn
	TokenMatch
	TokenCase
	TokenLoop
	TokenBreak
	TokenContinue
	TokenIf
	TokenElse
	TokenReturn
	TokenMakeChannel
	TokenSleep
	TokenTrue
	TokenFalse
	TokenNone

	// Type words
	TokenIntType
	TokenFloatType
	TokenStringType
	TokenBoolType

	// Identifiers and literals
	TokenIdentifier
	TokenNumber
	TokenString

	// Operators
	TokenPlus
	TokenMinus
	TokenStar
	TokenSlash
	TokenPercent
	TokenEq
	TokenEqEq
	TokenBangEq
	TokenGt
	TokenLt
	TokenGte
	TokenLte
	TokenColonEq // :=
	TokenAnd
	TokenOr
	TokenNot

	// Delimiters and punctuation
	TokenLParen
	TokenRParen
	TokenLBracket
	TokenRBracket
	TokenLBrace
	TokenRBrace
	TokenComma
	TokenDot
	TokenColon
	TokenArrow  // =>
	TokenRArrow // ->

	// Layout control
	TokenNewline
	TokenIndent
	TokenDedent

	// End of input
	TokenEOF
)

var tokenTypeNames = map[TokenType]string{
	TokenFunc:        "FUNC",
	TokenLet:         "LET",
	TokenImport:      "IMPORT",
	TokenSpawn:       "SPAWN",
	TokenMatch:       "MATCH",
	TokenCase:        "CASE",
	TokenLoop:        "LOOP",
	TokenBreak:       "BREAK",
	TokenContinue:    "CONTINUE",
	TokenIf:          "IF",
	TokenElse:        "ELSE",
	TokenReturn:      "RETURN",
	TokenMakeChannel: "MAKE_CHANNEL",
	TokenSleep:       "SLEEP",
	TokenTrue:        "TRUE",
	TokenFalse:       "FALSE",
	TokenNone:        "NONE",
	TokenIntType:     "INT",
	TokenFloatType:   "FLOAT",
	TokenStringType:  "STRING_TYPE",
	TokenBoolType:    "BOOL",
	TokenIdentifier:  "IDENTIFIER",
	TokenNumber:      "NUMBER",
	TokenString:      "STRING",
	TokenPlus:        "PLUS",
	TokenMinus:       "MINUS",
	TokenStar:        "STAR",
	TokenSlash:       "SLASH",
	TokenPercent:     "PERCENT",
	TokenEq:          "EQ",
	TokenEqEq:        "EQEQ",
	TokenBangEq:      "BANGEQ",
	TokenGt:          "GT",
	TokenLt:          "LT",
	TokenGte:         "GTE",
	TokenLte:         "LTE",
	TokenColonEq:     "COLON_EQ",
	TokenAnd:         "AND",
	TokenOr:          "OR",
	TokenNot:         "NOT",
	TokenLParen:      "LPAREN",
	TokenRParen:      "RPAREN",
	TokenLBracket:    "LBRACKET",
	TokenRBracket:    "RBRACKET",
	TokenLBrace:      "LBRACE",
	TokenRBrace:      "RBRACE",
	TokenComma:       "COMMA",
	TokenDot:         "DOT",
	TokenColon:       "COLON",
	TokenArrow:       "ARROW",
	TokenRArrow:      "RARROW",
	TokenNewline:     "NEWLINE",
	TokenIndent:      "INDENT",
	TokenDedent:      "DEDENT",
	TokenEOF:         "EOF",
}

func (t TokenType) String() string {
	if name, ok := tokenTypeNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// Token is one lexical unit with its source position.
type Token struct {
	Type   TokenType
	Value  string
	Line   int
	Column int
}

// String renders the token as NAME(value)@line:column, value omitted when
// empty.
func (t Token) String() string {
	if t.Value == "" {
		return fmt.Sprintf("%s@%d:%d", t.Type, t.Line, t.Column)
	}
	return fmt.Sprintf("%s(%s)@%d:%d", t.Type, t.Value, t.Line, t.Column)
}
