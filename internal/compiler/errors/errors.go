// Package errors defines the coded errors mediate reports while reading a
// service skeleton, resolving policies and rendering invocations. Every code
// maps to a fixed category and severity; see codes.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/choreo-dev/mediate/internal/compiler/ast"
)

// ErrorCode identifies one kind of failure, e.g. MED703 or SYN001
type ErrorCode string

// ErrorCategory groups codes by the stage that raises them
type ErrorCategory string

const (
	CategoryInput     ErrorCategory = "input"
	CategorySyntax    ErrorCategory = "syntax"
	CategoryOperation ErrorCategory = "operation"
	CategoryPolicy    ErrorCategory = "policy"
	CategoryDocument  ErrorCategory = "document"
	CategoryTemplate  ErrorCategory = "template"
)

// ErrorSeverity tells whether a diagnostic stops generation
type ErrorSeverity string

const (
	SeverityError   ErrorSeverity = "error"
	SeverityWarning ErrorSeverity = "warning"
	SeverityInfo    ErrorSeverity = "info"
)

type codeInfo struct {
	category ErrorCategory
	severity ErrorSeverity
}

// codes is the registry of every code mediate emits
var codes = map[ErrorCode]codeInfo{
	ErrUnexpectedToken:        {CategorySyntax, SeverityError},
	ErrExpectedToken:          {CategorySyntax, SeverityError},
	ErrInvalidCharacter:       {CategorySyntax, SeverityError},
	ErrInput:                  {CategoryInput, SeverityError},
	ErrUnexpectedPathSegment:  {CategoryOperation, SeverityError},
	ErrContextOutsideResource: {CategoryOperation, SeverityError},
	ErrMalformedPolicyName:    {CategoryPolicy, SeverityError},
	ErrInvalidPolicyVersion:   {CategoryPolicy, SeverityError},
	ErrNoService:              {CategoryDocument, SeverityError},
	ErrOverlappingEdits:       {CategoryDocument, SeverityError},
	ErrPolicyNotFound:         {CategoryPolicy, SeverityError},
	ErrTemplate:               {CategoryTemplate, SeverityError},
	ErrUnmatchedOperation:     {CategoryOperation, SeverityWarning},
}

// Snippet is the source around a diagnostic, FirstLine being the 1-based
// number of Lines[0]
type Snippet struct {
	FirstLine int      `json:"first_line"`
	Lines     []string `json:"lines"`
}

// CompilerError is one diagnostic. It is an error so that fatal ones can be
// returned and wrapped like any other.
type CompilerError struct {
	Code       ErrorCode          `json:"code"`
	Category   ErrorCategory      `json:"category"`
	Severity   ErrorSeverity      `json:"severity"`
	Message    string             `json:"message"`
	File       string             `json:"file,omitempty"`
	Location   ast.SourceLocation `json:"location"`
	Expected   string             `json:"expected,omitempty"`
	Found      string             `json:"found,omitempty"`
	Suggestion string             `json:"suggestion,omitempty"`
	Examples   []string           `json:"examples,omitempty"`
	Snippet    *Snippet           `json:"snippet,omitempty"`
}

func newError(code ErrorCode, loc ast.SourceLocation, format string, args ...any) *CompilerError {
	info, ok := codes[code]
	if !ok {
		panic(fmt.Sprintf("errors: unregistered code %s", code))
	}
	return &CompilerError{
		Code:     code,
		Category: info.category,
		Severity: info.severity,
		Message:  fmt.Sprintf(format, args...),
		Location: loc,
	}
}

func (e *CompilerError) Error() string {
	return FormatError(e)
}

// Compact renders the error on one line as file:line:col: severity: message [code]
func (e *CompilerError) Compact() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s [%s]",
		displayFile(e.File), e.Location.Line, e.Location.Column, e.Severity, e.Message, e.Code)
}

func (e *CompilerError) WithFile(file string) *CompilerError {
	e.File = file
	return e
}

func (e *CompilerError) WithLocation(loc ast.SourceLocation) *CompilerError {
	e.Location = loc
	return e
}

// WithSnippet attaches source lines starting at line firstLine
func (e *CompilerError) WithSnippet(firstLine int, lines ...string) *CompilerError {
	e.Snippet = &Snippet{FirstLine: firstLine, Lines: lines}
	return e
}

func (e *CompilerError) WithExpected(expected string) *CompilerError {
	e.Expected = expected
	return e
}

func (e *CompilerError) WithFound(found string) *CompilerError {
	e.Found = found
	return e
}

func (e *CompilerError) WithSuggestion(suggestion string) *CompilerError {
	e.Suggestion = suggestion
	return e
}

func (e *CompilerError) WithExamples(examples ...string) *CompilerError {
	e.Examples = examples
	return e
}

// ErrorList holds every diagnostic of one document
type ErrorList []*CompilerError

func (el ErrorList) Error() string {
	if len(el) == 0 {
		return "no errors"
	}
	return FormatErrorList(el)
}

// Count returns the number of diagnostics with the given severity
func (el ErrorList) Count(severity ErrorSeverity) int {
	n := 0
	for _, e := range el {
		if e.Severity == severity {
			n++
		}
	}
	return n
}

func (el ErrorList) HasErrors() bool {
	return el.Count(SeverityError) > 0
}

func (el ErrorList) HasWarnings() bool {
	return el.Count(SeverityWarning) > 0
}

// Flatten returns the diagnostics carried by err. Errors that carry none
// become a single MED700 input error.
func Flatten(err error) ErrorList {
	if err == nil {
		return nil
	}
	var list ErrorList
	if stderrors.As(err, &list) {
		return list
	}
	if ce, ok := AsCompilerError(err); ok {
		return ErrorList{ce}
	}
	return ErrorList{NewInputError(err)}
}

// AsCompilerError reports whether err is (or wraps) a *CompilerError
func AsCompilerError(err error) (*CompilerError, bool) {
	var ce *CompilerError
	if stderrors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// IsCode reports whether err is a *CompilerError with the given code
func IsCode(err error, code ErrorCode) bool {
	ce, ok := AsCompilerError(err)
	return ok && ce.Code == code
}

func displayFile(file string) string {
	if strings.TrimSpace(file) == "" {
		return "<source>"
	}
	return file
}
