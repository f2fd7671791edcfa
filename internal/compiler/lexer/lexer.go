// Package lexer provides lexical analysis for service skeleton source files.
// It tokenizes .bal service and policy sources into a stream of tokens that
// carry byte offsets, so later stages can describe edits against the
// original buffer.
package lexer

import (
	"fmt"
)

// Lexer tokenizes skeleton source code.
//
// Thread Safety: Lexer instances are NOT thread-safe. Each goroutine must
// create its own Lexer instance via New().
type Lexer struct {
	source  string     // Source code to tokenize
	start   int        // Start position of current token
	current int        // Current position in source
	line    int        // Current line number (1-indexed)
	column  int        // Current column number (1-indexed)
	tokens  []Token    // Collected tokens
	errors  []LexError // Collected errors

	startLine   int
	startColumn int
}

// New creates a new Lexer for the given source code
func New(source string) *Lexer {
	return &Lexer{
		source:  source,
		start:   0,
		current: 0,
		line:    1,
		column:  1,
		tokens:  make([]Token, 0),
		errors:  make([]LexError, 0),
	}
}

// ScanTokens tokenizes the entire source and returns tokens and errors
func (l *Lexer) ScanTokens() ([]Token, []LexError) {
	for !l.isAtEnd() {
		l.start = l.current
		l.startLine = l.line
		l.startColumn = l.column
		l.scanToken()
	}

	l.tokens = append(l.tokens, Token{
		Type:   TOKEN_EOF,
		Lexeme: "",
		Line:   l.line,
		Column: l.column,
		Offset: len(l.source),
		End:    len(l.source),
	})

	return l.tokens, l.errors
}

// scanToken processes the next token.
//
//nolint:gocyclo,cyclop // Lexer dispatch function - complexity is inherent to the pattern
func (l *Lexer) scanToken() {
	c := l.advance()

	switch {
	case c == '(' || c == ')' || c == '{' || c == '}' || c == '[' || c == ']':
		l.scanDelimiter(c)
	case c == ',' || c == ';' || c == ':' || c == '@' || c == '|' || c == '?' ||
		c == '*' || c == '<' || c == '>':
		l.scanSimpleToken(c)
	case c == '.':
		l.scanDotToken()
	case c == '/':
		l.scanSlashToken()
	case c == '-':
		l.scanMinusToken()
	case c == '=':
		l.scanEqualsToken()
	case c == '#':
		l.comment()
	case c == '"':
		l.string()
	case c == '`':
		l.template()
	case c == ' ' || c == '\r' || c == '\t':
		// Ignore whitespace
	case c == '\n':
		l.newline()
	default:
		l.scanDefault(c)
	}
}

// scanDelimiter handles delimiter tokens: ( ) { } [ ]
func (l *Lexer) scanDelimiter(c byte) {
	switch c {
	case '(':
		l.addToken(TOKEN_LPAREN)
	case ')':
		l.addToken(TOKEN_RPAREN)
	case '{':
		l.addToken(TOKEN_LBRACE)
	case '}':
		l.addToken(TOKEN_RBRACE)
	case '[':
		l.addToken(TOKEN_LBRACKET)
	case ']':
		l.addToken(TOKEN_RBRACKET)
	}
}

// scanSimpleToken handles single-character tokens that never combine
func (l *Lexer) scanSimpleToken(c byte) {
	switch c {
	case ',':
		l.addToken(TOKEN_COMMA)
	case ';':
		l.addToken(TOKEN_SEMICOLON)
	case ':':
		l.addToken(TOKEN_COLON)
	case '@':
		l.addToken(TOKEN_AT)
	case '|':
		l.addToken(TOKEN_PIPE)
	case '?':
		l.addToken(TOKEN_QUESTION)
	case '*':
		l.addToken(TOKEN_STAR)
	case '<':
		l.addToken(TOKEN_LT)
	case '>':
		l.addToken(TOKEN_GT)
	}
}

// scanDotToken handles ., ... and numbers starting with .
func (l *Lexer) scanDotToken() {
	switch {
	case l.peek() == '.' && l.peekNext() == '.':
		l.advance()
		l.advance()
		l.addToken(TOKEN_ELLIPSIS)
	case l.isDigit(l.peek()):
		l.number()
	default:
		l.addToken(TOKEN_DOT)
	}
}

// scanSlashToken handles / and // comments
func (l *Lexer) scanSlashToken() {
	if l.match('/') {
		l.comment()
	} else {
		l.addToken(TOKEN_SLASH)
	}
}

// scanMinusToken handles - and ->
func (l *Lexer) scanMinusToken() {
	if l.match('>') {
		l.addToken(TOKEN_ARROW)
	} else {
		l.addToken(TOKEN_OPERATOR)
	}
}

// scanEqualsToken handles =, == and =>
func (l *Lexer) scanEqualsToken() {
	switch {
	case l.match('>'):
		l.addToken(TOKEN_FAT_ARROW)
	case l.match('='):
		l.match('=')
		l.addToken(TOKEN_OPERATOR)
	default:
		l.addToken(TOKEN_EQUALS)
	}
}

// scanDefault handles the default case: numbers, identifiers, or stray operators
func (l *Lexer) scanDefault(c byte) {
	switch {
	case l.isDigit(c):
		l.number()
	case c == '\'':
		l.quotedIdentifier()
	case c == '\\' || l.isAlpha(c):
		if c == '\\' {
			l.advance()
		}
		l.identifier()
	case c == '+' || c == '!' || c == '&' || c == '%' || c == '^' || c == '~':
		l.addToken(TOKEN_OPERATOR)
	default:
		l.addError(fmt.Sprintf("Unexpected character: '%c'", c))
	}
}

// comment consumes a // or # comment up to the end of the line
func (l *Lexer) comment() {
	for l.peek() != '\n' && !l.isAtEnd() {
		l.advance()
	}
}

// string handles double-quoted string literals with escapes
func (l *Lexer) string() {
	for !l.isAtEnd() && l.peek() != '"' && l.peek() != '\n' {
		if l.peek() == '\\' {
			l.advance()
		}
		l.advance()
	}

	if l.isAtEnd() || l.peek() == '\n' {
		l.addError(fmt.Sprintf("Unterminated string starting at %d:%d", l.startLine, l.startColumn))
		return
	}

	// Consume closing "
	l.advance()
	l.addToken(TOKEN_STRING_LITERAL)
}

// template handles backtick string templates, which may span lines
func (l *Lexer) template() {
	for !l.isAtEnd() && l.peek() != '`' {
		if l.advance() == '\n' {
			l.newline()
		}
	}

	if l.isAtEnd() {
		l.addError(fmt.Sprintf("Unterminated template starting at %d:%d", l.startLine, l.startColumn))
		return
	}

	l.advance()
	l.addToken(TOKEN_TEMPLATE)
}

// number handles integer, hex and float literals including type suffixes
func (l *Lexer) number() {
	isFloat := l.source[l.start] == '.'

	if l.source[l.start] == '0' && (l.peek() == 'x' || l.peek() == 'X') {
		l.advance()
		for l.isAlphaNumeric(l.peek()) {
			l.advance()
		}
		l.addToken(TOKEN_INT_LITERAL)
		return
	}

	for l.isDigit(l.peek()) {
		l.advance()
	}

	if l.peek() == '.' && l.isDigit(l.peekNext()) {
		isFloat = true
		l.advance()
		for l.isDigit(l.peek()) {
			l.advance()
		}
	}

	if l.peek() == 'e' || l.peek() == 'E' {
		isFloat = true
		l.advance()
		if l.peek() == '+' || l.peek() == '-' {
			l.advance()
		}
		if !l.isDigit(l.peek()) {
			l.addError("Invalid number: expected digits after exponent")
			return
		}
		for l.isDigit(l.peek()) {
			l.advance()
		}
	}

	// Float type suffixes: 1.5f, 2d
	if l.peek() == 'f' || l.peek() == 'F' || l.peek() == 'd' || l.peek() == 'D' {
		isFloat = true
		l.advance()
	}

	if isFloat {
		l.addToken(TOKEN_FLOAT_LITERAL)
	} else {
		l.addToken(TOKEN_INT_LITERAL)
	}
}

// quotedIdentifier handles identifiers escaped with a leading quote ('limit)
func (l *Lexer) quotedIdentifier() {
	if !l.isIdentifierStart(l.peek()) {
		l.addError("Expected identifier after quote")
		return
	}
	for l.isIdentifierPart(l.peek()) {
		l.consumeIdentifierChar()
	}
	l.addToken(TOKEN_IDENTIFIER)
}

// identifier handles identifiers and keywords
func (l *Lexer) identifier() {
	for l.isIdentifierPart(l.peek()) {
		l.consumeIdentifierChar()
	}

	text := l.source[l.start:l.current]

	tokenType, isKeyword := Keywords[text]
	if !isKeyword {
		tokenType = TOKEN_IDENTIFIER
	}
	l.addToken(tokenType)
}

// consumeIdentifierChar advances over one identifier character, taking a
// backslash escape (pet\-store) as a single unit.
func (l *Lexer) consumeIdentifierChar() {
	if l.advance() == '\\' && !l.isAtEnd() && l.peek() != '\n' {
		l.advance()
	}
}

// Helper methods

func (l *Lexer) isAtEnd() bool {
	return l.current >= len(l.source)
}

func (l *Lexer) advance() byte {
	if l.isAtEnd() {
		return 0
	}
	c := l.source[l.current]
	l.current++
	l.column++
	return c
}

func (l *Lexer) newline() {
	l.line++
	l.column = 1
}

func (l *Lexer) match(expected byte) bool {
	if l.isAtEnd() || l.source[l.current] != expected {
		return false
	}
	l.current++
	l.column++
	return true
}

func (l *Lexer) peek() byte {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.current]
}

func (l *Lexer) peekNext() byte {
	if l.current+1 >= len(l.source) {
		return 0
	}
	return l.source[l.current+1]
}

func (l *Lexer) isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// isAlpha checks if a character is alphabetic, underscore, or part of a
// multi-byte UTF-8 sequence
func (l *Lexer) isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		c == '_' || c >= 0x80
}

func (l *Lexer) isAlphaNumeric(c byte) bool {
	return l.isAlpha(c) || l.isDigit(c)
}

func (l *Lexer) isIdentifierStart(c byte) bool {
	return l.isAlpha(c) || c == '\\'
}

func (l *Lexer) isIdentifierPart(c byte) bool {
	return l.isAlphaNumeric(c) || c == '\\'
}

// addToken adds a token spanning [start, current)
func (l *Lexer) addToken(tokenType TokenType) {
	l.tokens = append(l.tokens, Token{
		Type:   tokenType,
		Lexeme: l.source[l.start:l.current],
		Line:   l.startLine,
		Column: l.startColumn,
		Offset: l.start,
		End:    l.current,
	})
}

// addError records a lexical error
func (l *Lexer) addError(message string) {
	end := l.current
	if end > l.start+20 {
		end = l.start + 20
	}

	l.errors = append(l.errors, LexError{
		Message: message,
		Line:    l.startLine,
		Column:  l.startColumn,
		Offset:  l.start,
		Lexeme:  l.source[l.start:end],
	})
}

// IsKeyword checks if a string is a reserved word
func IsKeyword(s string) bool {
	_, ok := Keywords[s]
	return ok
}
