// Package parser turns token streams of service skeleton sources into
// syntax trees. It uses recursive descent with panic mode error recovery
// and keeps every node anchored to byte offsets in the original source.
package parser

import (
	"fmt"
	"strings"

	"github.com/choreo-dev/mediate/internal/compiler/ast"
	"github.com/choreo-dev/mediate/internal/compiler/lexer"
)

// ParseError represents an error encountered during parsing
type ParseError struct {
	Message  string
	Location ast.SourceLocation
	Token    lexer.Token
}

// Error implements the error interface
func (e *ParseError) Error() string {
	return fmt.Sprintf("Parse error at %d:%d: %s (near '%s')",
		e.Location.Line, e.Location.Column, e.Message, e.Token.Lexeme)
}

// NewParseError creates a new parse error
func NewParseError(message string, token lexer.Token) ParseError {
	return ParseError{
		Message: message,
		Location: ast.SourceLocation{
			Line:   token.Line,
			Column: token.Column,
		},
		Token: token,
	}
}

// SyntaxErrors aggregates the lexical and syntax errors of one source
type SyntaxErrors struct {
	LexErrors   []lexer.LexError
	ParseErrors []ParseError
}

// Error implements the error interface
func (e *SyntaxErrors) Error() string {
	lines := make([]string, 0, len(e.LexErrors)+len(e.ParseErrors))
	for i := range e.LexErrors {
		lines = append(lines, e.LexErrors[i].Error())
	}
	for i := range e.ParseErrors {
		lines = append(lines, e.ParseErrors[i].Error())
	}
	return strings.Join(lines, "\n")
}

// Count returns the total number of errors
func (e *SyntaxErrors) Count() int {
	return len(e.LexErrors) + len(e.ParseErrors)
}

// First returns the location of the earliest reported error
func (e *SyntaxErrors) First() ast.SourceLocation {
	if len(e.LexErrors) > 0 {
		return ast.SourceLocation{Line: e.LexErrors[0].Line, Column: e.LexErrors[0].Column}
	}
	if len(e.ParseErrors) > 0 {
		return e.ParseErrors[0].Location
	}
	return ast.SourceLocation{}
}
