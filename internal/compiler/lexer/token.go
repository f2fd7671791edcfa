package lexer

import "fmt"

// TokenType represents the type of a token in a service skeleton source file
type TokenType int

const (
	// TOKEN_EOF marks the end of the token stream.
	TOKEN_EOF TokenType = iota
	// TOKEN_ERROR represents a lexical error encountered during scanning.
	TOKEN_ERROR

	// Keywords - Declarations
	TOKEN_IMPORT   // import
	TOKEN_AS       // as
	TOKEN_SERVICE  // service
	TOKEN_ON       // on
	TOKEN_RESOURCE // resource
	TOKEN_FUNCTION // function
	TOKEN_RETURNS  // returns
	TOKEN_ISOLATED // isolated
	TOKEN_PUBLIC   // public
	TOKEN_REMOTE   // remote
	TOKEN_FINAL    // final
	TOKEN_LISTENER // listener
	TOKEN_TYPE     // type

	// Literals
	TOKEN_IDENTIFIER     // pets, 'limit, pet\-store
	TOKEN_INT_LITERAL    // 9090
	TOKEN_FLOAT_LITERAL  // 1.5
	TOKEN_STRING_LITERAL // "localhost"
	TOKEN_TEMPLATE       // string `...`

	// Delimiters
	TOKEN_LPAREN    // (
	TOKEN_RPAREN    // )
	TOKEN_LBRACE    // {
	TOKEN_RBRACE    // }
	TOKEN_LBRACKET  // [
	TOKEN_RBRACKET  // ]
	TOKEN_COMMA     // ,
	TOKEN_SEMICOLON // ;
	TOKEN_COLON     // :
	TOKEN_DOT       // .
	TOKEN_ELLIPSIS  // ...
	TOKEN_AT        // @

	// Operators
	TOKEN_SLASH     // /
	TOKEN_STAR      // *
	TOKEN_EQUALS    // =
	TOKEN_PIPE      // |
	TOKEN_QUESTION  // ?
	TOKEN_LT        // <
	TOKEN_GT        // >
	TOKEN_ARROW     // ->
	TOKEN_FAT_ARROW // =>
	TOKEN_OPERATOR  // any other operator character (+, -, !, &, ...)
)

var tokenNames = map[TokenType]string{
	TOKEN_EOF:            "EOF",
	TOKEN_ERROR:          "ERROR",
	TOKEN_IMPORT:         "IMPORT",
	TOKEN_AS:             "AS",
	TOKEN_SERVICE:        "SERVICE",
	TOKEN_ON:             "ON",
	TOKEN_RESOURCE:       "RESOURCE",
	TOKEN_FUNCTION:       "FUNCTION",
	TOKEN_RETURNS:        "RETURNS",
	TOKEN_ISOLATED:       "ISOLATED",
	TOKEN_PUBLIC:         "PUBLIC",
	TOKEN_REMOTE:         "REMOTE",
	TOKEN_FINAL:          "FINAL",
	TOKEN_LISTENER:       "LISTENER",
	TOKEN_TYPE:           "TYPE",
	TOKEN_IDENTIFIER:     "IDENTIFIER",
	TOKEN_INT_LITERAL:    "INT_LITERAL",
	TOKEN_FLOAT_LITERAL:  "FLOAT_LITERAL",
	TOKEN_STRING_LITERAL: "STRING_LITERAL",
	TOKEN_TEMPLATE:       "TEMPLATE",
	TOKEN_LPAREN:         "LPAREN",
	TOKEN_RPAREN:         "RPAREN",
	TOKEN_LBRACE:         "LBRACE",
	TOKEN_RBRACE:         "RBRACE",
	TOKEN_LBRACKET:       "LBRACKET",
	TOKEN_RBRACKET:       "RBRACKET",
	TOKEN_COMMA:          "COMMA",
	TOKEN_SEMICOLON:      "SEMICOLON",
	TOKEN_COLON:          "COLON",
	TOKEN_DOT:            "DOT",
	TOKEN_ELLIPSIS:       "ELLIPSIS",
	TOKEN_AT:             "AT",
	TOKEN_SLASH:          "SLASH",
	TOKEN_STAR:           "STAR",
	TOKEN_EQUALS:         "EQUALS",
	TOKEN_PIPE:           "PIPE",
	TOKEN_QUESTION:       "QUESTION",
	TOKEN_LT:             "LT",
	TOKEN_GT:             "GT",
	TOKEN_ARROW:          "ARROW",
	TOKEN_FAT_ARROW:      "FAT_ARROW",
	TOKEN_OPERATOR:       "OPERATOR",
}

// String returns the string representation of a token type
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token represents a lexical token with its source position.
// Offset and End are byte offsets into the source; End is exclusive.
type Token struct {
	Type   TokenType
	Lexeme string
	Line   int // 1-indexed
	Column int // 1-indexed
	Offset int
	End    int
}

// String returns a string representation of the token
func (t Token) String() string {
	return fmt.Sprintf("%s '%s' at %d:%d",
		t.Type.String(), t.Lexeme, t.Line, t.Column)
}

// Keywords maps reserved words to their token types.
// Words not listed here (get, post, string, http, ...) are identifiers.
var Keywords = map[string]TokenType{
	"import":   TOKEN_IMPORT,
	"as":       TOKEN_AS,
	"service":  TOKEN_SERVICE,
	"on":       TOKEN_ON,
	"resource": TOKEN_RESOURCE,
	"function": TOKEN_FUNCTION,
	"returns":  TOKEN_RETURNS,
	"isolated": TOKEN_ISOLATED,
	"public":   TOKEN_PUBLIC,
	"remote":   TOKEN_REMOTE,
	"final":    TOKEN_FINAL,
	"listener": TOKEN_LISTENER,
	"type":     TOKEN_TYPE,
}

// LexError represents an error encountered during lexical analysis
type LexError struct {
	Message string // Error message
	Line    int    // Line number where error occurred
	Column  int    // Column number where error occurred
	Offset  int    // Byte offset where the offending lexeme starts
	Lexeme  string // The problematic text
}

// Error implements the error interface
func (e LexError) Error() string {
	return fmt.Sprintf("Lexical error at %d:%d: %s (near '%s')",
		e.Line, e.Column, e.Message, e.Lexeme)
}
