package aqua

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenTypes(tokens []Token) []TokenType {
	types := make([]TokenType, len(tokens))
	for i, tok := range tokens {
		types[i] = tok.Type
	}
	return types
}

func TestTokenizeSimpleStatement(t *testing.T) {
	tokens, err := Tokenize("let x = 42\n")
	require.NoError(t, err)

	assert.Equal(t, []TokenType{
		TokenLet, TokenIdentifier, TokenEq, TokenNumber, TokenNewline, TokenEOF,
	}, tokenTypes(tokens))
	assert.Equal(t, "x", tokens[1].Value)
	assert.Equal(t, "42", tokens[3].Value)
}

func TestTokenizeIndentDedent(t *testing.T) {
	src := "func f():\n    let x = 1\nlet y = 2\n"
	tokens, err := Tokenize(src)
	require.NoError(t, err)

	assert.Equal(t, []TokenType{
		TokenFunc, TokenIdentifier, TokenLParen, TokenRParen, TokenColon, TokenNewline,
		TokenIndent, TokenLet, TokenIdentifier, TokenEq, TokenNumber, TokenNewline,
		TokenDedent, TokenLet, TokenIdentifier, TokenEq, TokenNumber, TokenNewline,
		TokenEOF,
	}, tokenTypes(tokens))
}

func TestTokenizeNestedBlocksFlushDedentsAtEOF(t *testing.T) {
	src := "if a:\n    if b:\n        c\n"
	tokens, err := Tokenize(src)
	require.NoError(t, err)

	types := tokenTypes(tokens)
	dedents := 0
	for _, typ := range types {
		if typ == TokenDedent {
			dedents++
		}
	}
	assert.Equal(t, 2, dedents)
	assert.Equal(t, TokenEOF, types[len(types)-1])
}

func TestTokenizeBlankAndCommentLinesKeepIndent(t *testing.T) {
	src := "if a:\n    b\n\n    # note\n    c\n"
	tokens, err := Tokenize(src)
	require.NoError(t, err)

	assert.Equal(t, []TokenType{
		TokenIf, TokenIdentifier, TokenColon, TokenNewline,
		TokenIndent, TokenIdentifier, TokenNewline,
		TokenNewline,
		TokenIdentifier, TokenNewline,
		TokenDedent, TokenEOF,
	}, tokenTypes(tokens))
}

func TestTokenizeInconsistentIndentation(t *testing.T) {
	_, err := Tokenize("if a:\n    b\n  c\n")
	require.Error(t, err)

	var lexErr *LexError
	require.ErrorAs(t, err, &lexErr)
	assert.Equal(t, "IndentationError", lexErr.Kind)
}

func TestTokenizeKeywords(t *testing.T) {
	src := "func let import spawn match case loop break continue if else return " +
		"make_channel sleep true false None int float string bool and or not\n"
	tokens, err := Tokenize(src)
	require.NoError(t, err)

	want := []TokenType{
		TokenFunc, TokenLet, TokenImport, TokenSpawn, TokenMatch, TokenCase,
		TokenLoop, TokenBreak, TokenContinue, TokenIf, TokenElse, TokenReturn,
		TokenMakeChannel, TokenSleep, TokenTrue, TokenFalse, TokenNone,
		TokenIntType, TokenFloatType, TokenStringType, TokenBoolType,
		TokenAnd, TokenOr, TokenNot,
		TokenNewline, TokenEOF,
	}
	assert.Equal(t, want, tokenTypes(tokens))
}

func TestTokenizeKeywordsAreCaseSensitive(t *testing.T) {
	tokens, err := Tokenize("Func none TRUE\n")
	require.NoError(t, err)
	assert.Equal(t, []TokenType{
		TokenIdentifier, TokenIdentifier, TokenIdentifier, TokenNewline, TokenEOF,
	}, tokenTypes(tokens))
}

func TestTokenizeNumbers(t *testing.T) {
	tokens, err := Tokenize("3.14 42 1.foo\n")
	require.NoError(t, err)

	assert.Equal(t, []TokenType{
		TokenNumber, TokenNumber, TokenNumber, TokenDot, TokenIdentifier,
		TokenNewline, TokenEOF,
	}, tokenTypes(tokens))
	assert.Equal(t, "3.14", tokens[0].Value)
	assert.Equal(t, "42", tokens[1].Value)
	assert.Equal(t, "1", tokens[2].Value)
}

func TestTokenizeOperators(t *testing.T) {
	tokens, err := Tokenize(":= == != >= <= => -> + - * / % = > < : .\n")
	require.NoError(t, err)

	want := []TokenType{
		TokenColonEq, TokenEqEq, TokenBangEq, TokenGte, TokenLte, TokenArrow,
		TokenRArrow, TokenPlus, TokenMinus, TokenStar, TokenSlash, TokenPercent,
		TokenEq, TokenGt, TokenLt, TokenColon, TokenDot,
		TokenNewline, TokenEOF,
	}
	assert.Equal(t, want, tokenTypes(tokens))
}

func TestTokenizeStringEscapes(t *testing.T) {
	tokens, err := Tokenize("\"a\\nb\\t\\\"c\\\\d\\qe\"\n")
	require.NoError(t, err)

	require.Equal(t, TokenString, tokens[0].Type)
	assert.Equal(t, "a\nb\t\"c\\d\\qe", tokens[0].Value)
}

func TestTokenizeUnterminatedString(t *testing.T) {
	_, err := Tokenize("let s = \"oops\n")
	require.Error(t, err)

	var lexErr *LexError
	require.ErrorAs(t, err, &lexErr)
	assert.Equal(t, "LexError", lexErr.Kind)
	assert.Equal(t, 1, lexErr.Line)
	assert.Equal(t, 9, lexErr.Column)
}

func TestTokenizeUnrecognizedCharacter(t *testing.T) {
	_, err := Tokenize("let x = @\n")
	require.Error(t, err)

	var lexErr *LexError
	require.ErrorAs(t, err, &lexErr)
	assert.Equal(t, "LexError", lexErr.Kind)
	assert.Contains(t, lexErr.Message, "@")
}

func TestTokenizeCommentSwallowsRestOfLine(t *testing.T) {
	tokens, err := Tokenize("let x = 1 # trailing\nlet y = 2\n")
	require.NoError(t, err)

	// The trailing comment consumes its line break.
	assert.Equal(t, []TokenType{
		TokenLet, TokenIdentifier, TokenEq, TokenNumber,
		TokenLet, TokenIdentifier, TokenEq, TokenNumber, TokenNewline, TokenEOF,
	}, tokenTypes(tokens))
}

func TestTokenizeEmptyInput(t *testing.T) {
	tokens, err := Tokenize("")
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, TokenEOF, tokens[0].Type)
}

func TestTokenPositions(t *testing.T) {
	tokens, err := Tokenize("let x\nlet y\n")
	require.NoError(t, err)

	assert.Equal(t, 1, tokens[0].Line)
	assert.Equal(t, 1, tokens[0].Column)
	assert.Equal(t, 5, tokens[1].Column) // x
	assert.Equal(t, 2, tokens[3].Line)   // second let
}

func TestTokenString(t *testing.T) {
	tok := Token{Type: TokenNumber, Value: "42", Line: 3, Column: 7}
	assert.Equal(t, "NUMBER(42)@3:7", tok.String())

	eof := Token{Type: TokenEOF, Line: 1, Column: 1}
	assert.Equal(t, "EOF@1:1", eof.String())
}
