package aqua

import "fmt"

// LexError reports a scanning failure with its source position. Kind is
// "LexError" for malformed input and "IndentationError" for an inconsistent
// indentation level.
type LexError struct {
	Kind    string
	Line    int
	Column  int
	Message string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("%s at line %d, column %d: %s", e.Kind, e.Line, e.Column, e.Message)
}

var keywordTokens = map[string]TokenType{
	"func":         TokenFunc,
	"let":          TokenLet,
	"import":       TokenImport,
	"spawn":        TokenSpawn,
	"match":        TokenMatch,
	"case":         TokenCase,
	"loop":         TokenLoop,
	"break":        TokenBreak,
	"continue":     TokenContinue,
	"if":           TokenIf,
	"else":         TokenElse,
	"return":       TokenReturn,
	"make_channel": TokenMakeChannel,
	"sleep":        TokenSleep,
	"true":         TokenTrue,
	"false":        TokenFalse,
	"None":         TokenNone,
	"int":          TokenIntType,
	"float":        TokenFloatType,
	"string":       TokenStringType,
	"bool":         TokenBoolType,
	"and":          TokenAnd,
	"or":           TokenOr,
	"not":          TokenNot,
}

// Lexer scans Aqua source into a token stream. Indentation is significant:
// levels are tracked on a stack and surfaced as INDENT/DEDENT tokens, in the
// off-side style. Only spaces count as indentation; tabs are not supported.
type Lexer struct {
	input  string
	index  int
	line   int
	column int

	atLineStart bool
	indentStack []int

	tokens []Token
	logger *Logger
}

// NewLexer creates a scanner over source. A nil logger disables trace output.
func NewLexer(source string, logger *Logger) *Lexer {
	if logger == nil {
		logger = NewLogger(false)
	}
	return &Lexer{
		input:       source,
		line:        1,
		column:      1,
		atLineStart: true,
		indentStack: []int{0},
		logger:      logger,
	}
}

func (l *Lexer) eof() bool {
	return l.index >= len(l.input)
}

// peek returns the byte lookahead positions past the cursor, or 0 past EOF.
func (l *Lexer) peek(lookahead int) byte {
	pos := l.index + lookahead
	if pos >= len(l.input) {
		return 0
	}
	return l.input[pos]
}

func (l *Lexer) advance() byte {
	if l.eof() {
		return 0
	}
	c := l.input[l.index]
	l.index++
	if c == '\n' {
		l.line++
		l.column = 1
		l.atLineStart = true
	} else {
		l.column++
	}
	return c
}

func (l *Lexer) emit(t Token) {
	l.tokens = append(l.tokens, t)
}

func (l *Lexer) errorf(kind string, line, column int, format string, args ...any) error {
	return &LexError{Kind: kind, Line: line, Column: column, Message: fmt.Sprintf(format, args...)}
}

// emitPendingIndents compares the measured indentation of a logical line
// against the stack and emits INDENT or as many DEDENTs as it takes to land
// back on a previously seen level. Landing between levels is an error.
func (l *Lexer) emitPendingIndents(indent int) error {
	current := l.indentStack[len(l.indentStack)-1]
	switch {
	case indent > current:
		l.indentStack = append(l.indentStack, indent)
		l.emit(Token{Type: TokenIndent, Line: l.line, Column: l.column})
	case indent < current:
		for len(l.indentStack) > 0 && l.indentStack[len(l.indentStack)-1] > indent {
			l.indentStack = l.indentStack[:len(l.indentStack)-1]
			l.emit(Token{Type: TokenDedent, Line: l.line, Column: l.column})
		}
		if len(l.indentStack) == 0 || l.indentStack[len(l.indentStack)-1] != indent {
			return l.errorf("IndentationError", l.line, l.column, "inconsistent indentation")
		}
	}
	return nil
}

// handleNewline consumes a line break, emits NEWLINE, and measures the next
// line's indentation. Blank and comment-only lines never change indentation.
func (l *Lexer) handleNewline() error {
	l.advance()
	l.emit(Token{Type: TokenNewline, Value: "\n", Line: l.line - 1, Column: 1})

	indent := 0
	for !l.eof() && l.peek(0) == ' ' {
		indent++
		l.advance()
	}
	l.atLineStart = false

	if l.peek(0) == '\n' || l.peek(0) == '#' {
		return nil
	}
	return l.emitPendingIndents(indent)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

// readNumber scans an integer or float literal. At most one dot is accepted,
// and only when a digit follows, so "1.method" lexes as NUMBER DOT IDENT.
func (l *Lexer) readNumber() (Token, bool) {
	if !isDigit(l.peek(0)) {
		return Token{}, false
	}
	startLine, startColumn := l.line, l.column

	var lexeme []byte
	hasDot := false
	for !l.eof() {
		c := l.peek(0)
		if isDigit(c) {
			lexeme = append(lexeme, l.advance())
		} else if c == '.' && !hasDot && isDigit(l.peek(1)) {
			hasDot = true
			lexeme = append(lexeme, l.advance())
		} else {
			break
		}
	}
	return Token{Type: TokenNumber, Value: string(lexeme), Line: startLine, Column: startColumn}, true
}

func (l *Lexer) readIdentifierOrKeyword() (Token, bool) {
	if !isIdentStart(l.peek(0)) {
		return Token{}, false
	}
	startLine, startColumn := l.line, l.column

	var lexeme []byte
	for !l.eof() && isIdentPart(l.peek(0)) {
		lexeme = append(lexeme, l.advance())
	}
	word := string(lexeme)

	typ := TokenIdentifier
	if kw, ok := keywordTokens[word]; ok {
		typ = kw
	}
	return Token{Type: typ, Value: word, Line: startLine, Column: startColumn}, true
}

// readString scans a double-quoted literal, resolving \n \t \" \\ escapes.
// Unknown escapes are kept literally. Strings may not span EOF.
func (l *Lexer) readString() (Token, bool, error) {
	if l.peek(0) != '"' {
		return Token{}, false, nil
	}
	startLine, startColumn := l.line, l.column
	l.advance()

	var result []byte
	for !l.eof() {
		c := l.advance()
		if c == '"' {
			return Token{Type: TokenString, Value: string(result), Line: startLine, Column: startColumn}, true, nil
		}
		if c == '\\' {
			if l.eof() {
				break
			}
			switch esc := l.advance(); esc {
			case 'n':
				result = append(result, '\n')
			case 't':
				result = append(result, '\t')
			case '"':
				result = append(result, '"')
			case '\\':
				result = append(result, '\\')
			default:
				result = append(result, '\\', esc)
			}
		} else {
			result = append(result, c)
		}
	}
	return Token{}, false, l.errorf("LexError", startLine, startColumn, "unterminated string literal")
}

var twoByteOperators = []struct {
	first, second byte
	typ           TokenType
	lexeme        string
}{
	{':', '=', TokenColonEq, ":="},
	{'=', '=', TokenEqEq, "=="},
	{'!', '=', TokenBangEq, "!="},
	{'>', '=', TokenGte, ">="},
	{'<', '=', TokenLte, "<="},
	{'=', '>', TokenArrow, "=>"},
	{'-', '>', TokenRArrow, "->"},
}

var singleByteTokens = map[byte]TokenType{
	'+': TokenPlus,
	'-': TokenMinus,
	'*': TokenStar,
	'/': TokenSlash,
	'%': TokenPercent,
	'=': TokenEq,
	'>': TokenGt,
	'<': TokenLt,
	'(': TokenLParen,
	')': TokenRParen,
	'[': TokenLBracket,
	']': TokenRBracket,
	'{': TokenLBrace,
	'}': TokenRBrace,
	',': TokenComma,
	'.': TokenDot,
	':': TokenColon,
}

// readOperatorOrPunct scans operators and punctuation, longest match first.
func (l *Lexer) readOperatorOrPunct() (Token, bool) {
	startLine, startColumn := l.line, l.column
	c := l.peek(0)

	for _, op := range twoByteOperators {
		if c == op.first && l.peek(1) == op.second {
			l.advance()
			l.advance()
			return Token{Type: op.typ, Value: op.lexeme, Line: startLine, Column: startColumn}, true
		}
	}
	if typ, ok := singleByteTokens[c]; ok {
		l.advance()
		return Token{Type: typ, Value: string(c), Line: startLine, Column: startColumn}, true
	}
	return Token{}, false
}

// Tokenize scans the whole input. On success the stream ends with any pending
// DEDENTs followed by a single EOF token.
func (l *Lexer) Tokenize() ([]Token, error) {
	l.tokens = l.tokens[:0]

	for !l.eof() {
		if l.atLineStart {
			indent := 0
			for !l.eof() && l.peek(0) == ' ' {
				indent++
				l.advance()
			}
			l.atLineStart = false

			// Blank or comment-only lines do not affect indentation.
			if l.peek(0) == '\n' || l.peek(0) == '#' {
				if l.peek(0) == '#' {
					for !l.eof() && l.advance() != '\n' {
					}
				} else {
					l.advance()
				}
				l.emit(Token{Type: TokenNewline, Value: "\n", Line: l.line - 1, Column: 1})
				continue
			}

			if err := l.emitPendingIndents(indent); err != nil {
				return nil, err
			}
		}

		// A trailing comment swallows the rest of the line, break included.
		if l.peek(0) == '#' {
			for !l.eof() && l.advance() != '\n' {
			}
			continue
		}

		if l.peek(0) == '\n' {
			if err := l.handleNewline(); err != nil {
				return nil, err
			}
			continue
		}

		if l.peek(0) == ' ' {
			for !l.eof() && l.peek(0) == ' ' && !l.atLineStart {
				l.advance()
			}
			continue
		}

		if tok, ok, err := l.readString(); err != nil {
			return nil, err
		} else if ok {
			l.emit(tok)
			continue
		}
		if tok, ok := l.readNumber(); ok {
			l.emit(tok)
			continue
		}
		if tok, ok := l.readIdentifierOrKeyword(); ok {
			l.emit(tok)
			continue
		}
		if tok, ok := l.readOperatorOrPunct(); ok {
			l.emit(tok)
			continue
		}

		return nil, l.errorf("LexError", l.line, l.column, "unrecognized character %q", l.peek(0))
	}

	for len(l.indentStack) > 1 {
		l.indentStack = l.indentStack[:len(l.indentStack)-1]
		l.emit(Token{Type: TokenDedent, Line: l.line, Column: l.column})
	}
	l.emit(Token{Type: TokenEOF, Line: l.line, Column: l.column})

	l.logger.DebugCat(CatLex, "tokenized %d tokens", len(l.tokens))
	return l.tokens, nil
}

// Tokenize scans source in one call.
func Tokenize(source string) ([]Token, error) {
	return NewLexer(source, nil).Tokenize()
}
