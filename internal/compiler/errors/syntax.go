package errors

import (
	"github.com/choreo-dev/mediate/internal/compiler/ast"
)

// Syntax error codes (SYN001-099)
const (
	// ErrUnexpectedToken indicates an unexpected token was encountered
	ErrUnexpectedToken ErrorCode = "SYN001"
	// ErrExpectedToken indicates a specific token was expected but not found
	ErrExpectedToken ErrorCode = "SYN002"
	// ErrInvalidCharacter indicates the lexer met a character it cannot scan
	ErrInvalidCharacter ErrorCode = "SYN003"
)

func NewUnexpectedToken(loc ast.SourceLocation, found, context string) *CompilerError {
	if context != "" {
		return newError(ErrUnexpectedToken, loc, "Unexpected token '%s' in %s", found, context)
	}
	return newError(ErrUnexpectedToken, loc, "Unexpected token '%s'", found)
}

func NewExpectedToken(loc ast.SourceLocation, message, found string) *CompilerError {
	return newError(ErrExpectedToken, loc, "%s", message).WithFound(found)
}

func NewInvalidCharacter(loc ast.SourceLocation, message string) *CompilerError {
	return newError(ErrInvalidCharacter, loc, "%s", message).
		WithSuggestion("Regenerate the service skeleton or remove the stray character")
}
