package proxy

import (
	stderrors "errors"
	"strings"

	"github.com/choreo-dev/mediate/internal/compiler/ast"
	"github.com/choreo-dev/mediate/internal/compiler/errors"
	"github.com/choreo-dev/mediate/internal/compiler/parser"
)

// Parse parses a service skeleton. Lexical and syntax errors are returned as
// an errors.ErrorList with the offending source line attached.
func Parse(name, source string) (*ast.Module, error) {
	module, err := parser.ParseSource(source)
	if err == nil {
		return module, nil
	}

	var syntax *parser.SyntaxErrors
	if !stderrors.As(err, &syntax) {
		return nil, err
	}
	return nil, SyntaxErrorList(name, source, syntax)
}

// SyntaxErrorList converts parser errors into compiler errors
func SyntaxErrorList(name, source string, syntax *parser.SyntaxErrors) errors.ErrorList {
	lines := strings.Split(source, "\n")
	list := make(errors.ErrorList, 0, syntax.Count())

	for _, lexErr := range syntax.LexErrors {
		loc := ast.SourceLocation{Line: lexErr.Line, Column: lexErr.Column}
		list = append(list, withSource(errors.NewInvalidCharacter(loc, lexErr.Message), name, loc, lines))
	}

	for _, parseErr := range syntax.ParseErrors {
		var ce *errors.CompilerError
		if strings.HasPrefix(parseErr.Message, "Expected") {
			ce = errors.NewExpectedToken(parseErr.Location, parseErr.Message, parseErr.Token.Lexeme)
		} else {
			ce = errors.NewUnexpectedToken(parseErr.Location, parseErr.Token.Lexeme, parseErr.Message)
		}
		list = append(list, withSource(ce, name, parseErr.Location, lines))
	}

	return list
}

func withSource(ce *errors.CompilerError, name string, loc ast.SourceLocation, lines []string) *errors.CompilerError {
	ce.WithFile(name)
	if loc.Line < 1 || loc.Line > len(lines) {
		return ce
	}

	// one line of context on each side
	first := max(loc.Line-1, 1)
	last := min(loc.Line+1, len(lines))
	return ce.WithSnippet(first, lines[first-1:last]...)
}
