package errors

import (
	"fmt"
	"strings"

	"github.com/choreo-dev/mediate/internal/compiler/ast"
)

// Mediation error codes (MED700-799)
const (
	// ErrInput indicates an input that could not be read or decoded
	ErrInput ErrorCode = "MED700"
	// ErrUnexpectedPathSegment indicates a resource path segment of unknown kind
	ErrUnexpectedPathSegment ErrorCode = "MED701"
	// ErrContextOutsideResource indicates an operation identity was requested
	// for a node that is not inside a resource function
	ErrContextOutsideResource ErrorCode = "MED702"
	// ErrMalformedPolicyName indicates a policy name that is not org/name
	ErrMalformedPolicyName ErrorCode = "MED703"
	// ErrInvalidPolicyVersion indicates a policy version that is not semver
	ErrInvalidPolicyVersion ErrorCode = "MED704"
	// ErrNoService indicates a document without any service declaration
	ErrNoService ErrorCode = "MED705"
	// ErrOverlappingEdits indicates two edits touching the same bytes
	ErrOverlappingEdits ErrorCode = "MED706"
	// ErrPolicyNotFound indicates a policy package that cannot be read
	ErrPolicyNotFound ErrorCode = "MED707"
	// ErrTemplate indicates an invocation template that fails to parse or render
	ErrTemplate ErrorCode = "MED708"
	// ErrUnmatchedOperation warns about an API operation no resource function
	// implements
	ErrUnmatchedOperation ErrorCode = "MED709"
)

const reportBug = "This is likely a generator bug, please report it"

func NewInputError(cause error) *CompilerError {
	return newError(ErrInput, ast.SourceLocation{}, "%v", cause)
}

func NewUnexpectedPathSegment(loc ast.SourceLocation, segment string) *CompilerError {
	return newError(ErrUnexpectedPathSegment, loc, "Unexpected resource path segment '%s'", segment).
		WithExpected("identifier, '/', [T name] or [T... name]").
		WithFound(segment)
}

func NewContextOutsideResource(loc ast.SourceLocation, query string) *CompilerError {
	return newError(ErrContextOutsideResource, loc, "Cannot resolve %s: node is not inside a resource function", query).
		WithSuggestion(reportBug)
}

func NewMalformedPolicyName(name string) *CompilerError {
	return newError(ErrMalformedPolicyName, ast.SourceLocation{}, "Invalid policy name '%s'", name).
		WithExpected("org/name").
		WithFound(name).
		WithExamples("choreo/add_header", "wso2/rate_limit")
}

func NewInvalidPolicyVersion(name, version string, cause error) *CompilerError {
	e := newError(ErrInvalidPolicyVersion, ast.SourceLocation{}, "Invalid version '%s' for policy '%s'", version, name).
		WithExpected("semantic version (major.minor.patch)").
		WithFound(version)
	if cause != nil {
		e.Message += ": " + cause.Error()
	}
	return e
}

func NewNoService(file string) *CompilerError {
	return newError(ErrNoService, ast.SourceLocation{Line: 1, Column: 1}, "Document does not contain a service declaration").
		WithFile(file).
		WithSuggestion("Generate the skeleton from an API description with at least one operation")
}

func NewOverlappingEdits(loc ast.SourceLocation, first, second string) *CompilerError {
	return newError(ErrOverlappingEdits, loc, "Edit %s overlaps edit %s", second, first).
		WithSuggestion(reportBug)
}

func NewPolicyNotFound(policy string, cause error) *CompilerError {
	e := newError(ErrPolicyNotFound, ast.SourceLocation{}, "Policy package '%s' could not be loaded", policy).
		WithSuggestion("Pull the policy into the local repository or fix policy.repository")
	if cause != nil {
		e.Message += ": " + cause.Error()
	}
	return e
}

func NewTemplateError(role string, cause error) *CompilerError {
	return newError(ErrTemplate, ast.SourceLocation{}, "Invocation template for %s failed: %v", role, cause).
		WithSuggestion("Templates must reference {{.Call}}; see templates.* in mediate.yml")
}

// NewUnmatchedOperation warns that the API operation key has no resource
// function in file. similar lists handler keys it may have been meant as.
func NewUnmatchedOperation(file, key string, similar []string) *CompilerError {
	e := newError(ErrUnmatchedOperation, ast.SourceLocation{}, "API operation '%s' has no resource function", key).
		WithFile(file)
	if len(similar) > 0 {
		e.WithSuggestion(fmt.Sprintf("Did you mean: %s?", strings.Join(similar, ", ")))
	}
	return e
}
