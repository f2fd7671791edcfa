// Package ast defines the syntax tree node types for HTTP service skeletons.
// It provides structures for representing imports, service declarations,
// resource functions, their signatures, path segments and bodies, each
// carrying the byte range it occupies in the original source.
package ast

import "github.com/choreo-dev/mediate/internal/compiler/lexer"

// SourceLocation tracks the position of a node in source code
type SourceLocation struct {
	Line   int `json:"line"`   // Line number (1-indexed)
	Column int `json:"column"` // Column number (1-indexed)
}

// TextRange is a half-open byte range [Start, End) in the source buffer
type TextRange struct {
	Start int
	End   int
}

// Len returns the number of bytes covered by the range
func (r TextRange) Len() int {
	return r.End - r.Start
}

// Contains reports whether offset lies inside the range
func (r TextRange) Contains(offset int) bool {
	return offset >= r.Start && offset < r.End
}

// SyntaxKind identifies the kind of a syntax node
type SyntaxKind int

const (
	// KindModule is the root of a source file
	KindModule SyntaxKind = iota
	// KindImport is an import declaration
	KindImport
	// KindDeclaration is any module or service level declaration the
	// generator does not rewrite (listeners, types, plain functions)
	KindDeclaration
	// KindService is a service declaration
	KindService
	// KindResourceFunction is a resource accessor definition
	KindResourceFunction
	// KindPathSegment is one segment of a relative resource path
	KindPathSegment
	// KindSignature is a function signature
	KindSignature
	// KindParameter is one declared parameter
	KindParameter
	// KindReturnType is a return type descriptor
	KindReturnType
	// KindFunctionBody is a braced function body
	KindFunctionBody
)

var kindNames = map[SyntaxKind]string{
	KindModule:           "module",
	KindImport:           "import",
	KindDeclaration:      "declaration",
	KindService:          "service",
	KindResourceFunction: "resource_function",
	KindPathSegment:      "path_segment",
	KindSignature:        "signature",
	KindParameter:        "parameter",
	KindReturnType:       "return_type",
	KindFunctionBody:     "function_body",
}

func (k SyntaxKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Node is the base interface for all syntax tree nodes
type Node interface {
	Kind() SyntaxKind
	Range() TextRange
	Location() SourceLocation
	node()
}

// Module is the root node of a parsed source file
type Module struct {
	Imports      []*ImportDecl
	Services     []*ServiceDecl
	Declarations []*Declaration
	Source       string
}

func (m *Module) node() {}

// Kind returns KindModule
func (m *Module) Kind() SyntaxKind { return KindModule }

// Range returns the whole source buffer
func (m *Module) Range() TextRange { return TextRange{Start: 0, End: len(m.Source)} }

// Location returns the start of the file
func (m *Module) Location() SourceLocation { return SourceLocation{Line: 1, Column: 1} }

// HasImport reports whether the module already imports org/name
func (m *Module) HasImport(moduleName string) bool {
	for _, imp := range m.Imports {
		if imp.ModuleName() == moduleName {
			return true
		}
	}
	return false
}

// ImportPrefix returns the prefix code in the module uses for org/name.
// ok is false when the module does not import it.
func (m *Module) ImportPrefix(moduleName string) (prefix string, ok bool) {
	for _, imp := range m.Imports {
		if imp.ModuleName() == moduleName {
			return imp.EffectivePrefix(), true
		}
	}
	return "", false
}

// ImportDecl represents `import org/name [as prefix];`
type ImportDecl struct {
	Org    string
	Name   string // may contain dots (org/foo.bar)
	Prefix string // explicit prefix, empty when not aliased
	Rng    TextRange
	Loc    SourceLocation
}

func (i *ImportDecl) node() {}

// Kind returns KindImport
func (i *ImportDecl) Kind() SyntaxKind { return KindImport }

// Range returns the byte range of the import declaration
func (i *ImportDecl) Range() TextRange { return i.Rng }

// Location returns the source location of the import
func (i *ImportDecl) Location() SourceLocation { return i.Loc }

// ModuleName returns the import path without a prefix
func (i *ImportDecl) ModuleName() string {
	if i.Org == "" {
		return i.Name
	}
	return i.Org + "/" + i.Name
}

// EffectivePrefix returns the name the module is referred to by in code
func (i *ImportDecl) EffectivePrefix() string {
	if i.Prefix != "" {
		return i.Prefix
	}
	return DefaultPrefix(i.Name)
}

// DefaultPrefix returns the implicit prefix of a module name: its last
// dot-separated component.
func DefaultPrefix(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[i+1:]
		}
	}
	return name
}

// Declaration is an opaque declaration kept only for its range
type Declaration struct {
	First lexer.Token
	Rng   TextRange
}

func (d *Declaration) node() {}

// Kind returns KindDeclaration
func (d *Declaration) Kind() SyntaxKind { return KindDeclaration }

// Range returns the byte range of the declaration
func (d *Declaration) Range() TextRange { return d.Rng }

// Location returns the location of the first token
func (d *Declaration) Location() SourceLocation { return TokenLocation(d.First) }

// ServiceDecl represents `service [path] on listener { members }`
type ServiceDecl struct {
	ServiceToken lexer.Token
	BasePath     string
	Resources    []*ResourceFunction
	Declarations []*Declaration
	OpenBrace    lexer.Token
	CloseBrace   lexer.Token
}

func (s *ServiceDecl) node() {}

// Kind returns KindService
func (s *ServiceDecl) Kind() SyntaxKind { return KindService }

// Range covers the service keyword through the closing brace
func (s *ServiceDecl) Range() TextRange {
	return TextRange{Start: s.ServiceToken.Offset, End: s.CloseBrace.End}
}

// Location returns the location of the service keyword
func (s *ServiceDecl) Location() SourceLocation { return TokenLocation(s.ServiceToken) }

// ResourceFunction represents
// `[qualifiers] resource function <method> <path>(<params>) [returns T] { }`
type ResourceFunction struct {
	Qualifiers   []string
	FirstToken   lexer.Token // first qualifier or the resource keyword
	FunctionName lexer.Token // the accessor, e.g. get/post
	Path         []*PathSegment
	Signature    *FunctionSignature
	Body         *FunctionBody
}

func (r *ResourceFunction) node() {}

// Kind returns KindResourceFunction
func (r *ResourceFunction) Kind() SyntaxKind { return KindResourceFunction }

// Range covers the first qualifier through the closing brace of the body
func (r *ResourceFunction) Range() TextRange {
	end := r.FunctionName.End
	if r.Body != nil {
		end = r.Body.CloseBrace.End
	}
	return TextRange{Start: r.FirstToken.Offset, End: end}
}

// Location returns the location of the first token
func (r *ResourceFunction) Location() SourceLocation { return TokenLocation(r.FirstToken) }

// MethodName returns the accessor name exactly as written
func (r *ResourceFunction) MethodName() string {
	return r.FunctionName.Lexeme
}

// PathSegmentKind classifies a relative resource path segment
type PathSegmentKind int

const (
	// SegmentUnknown is the zero value and never produced by the parser
	SegmentUnknown PathSegmentKind = iota
	// SegmentIdentifier is a literal path identifier (pets, 'limit)
	SegmentIdentifier
	// SegmentSlash is a separator between segments
	SegmentSlash
	// SegmentParam is a path parameter ([int petId])
	SegmentParam
	// SegmentRestParam is a rest parameter ([string... paths])
	SegmentRestParam
)

var segmentNames = map[PathSegmentKind]string{
	SegmentUnknown:    "unknown",
	SegmentIdentifier: "identifier",
	SegmentSlash:      "slash",
	SegmentParam:      "path_param",
	SegmentRestParam:  "rest_param",
}

func (k PathSegmentKind) String() string {
	if name, ok := segmentNames[k]; ok {
		return name
	}
	return "unknown"
}

// PathSegment is one element of a resource function's relative path
type PathSegment struct {
	SegmentKind PathSegmentKind
	Text        string // identifier text or "/"; for params the whole bracketed text
	ParamType   string // declared type of a path/rest parameter
	ParamName   string // declared name of a path/rest parameter
	Rng         TextRange
	Loc         SourceLocation
}

func (p *PathSegment) node() {}

// Kind returns KindPathSegment
func (p *PathSegment) Kind() SyntaxKind { return KindPathSegment }

// Range returns the byte range of the segment
func (p *PathSegment) Range() TextRange { return p.Rng }

// Location returns the source location of the segment
func (p *PathSegment) Location() SourceLocation { return p.Loc }

// FunctionSignature represents `(<params>) [returns T]`
type FunctionSignature struct {
	OpenParen  lexer.Token
	CloseParen lexer.Token
	Parameters []*Parameter
	ReturnType *ReturnTypeDescriptor
}

func (f *FunctionSignature) node() {}

// Kind returns KindSignature
func (f *FunctionSignature) Kind() SyntaxKind { return KindSignature }

// Range covers the parameter list and the return type if present
func (f *FunctionSignature) Range() TextRange {
	end := f.CloseParen.End
	if f.ReturnType != nil {
		end = f.ReturnType.TypeRange.End
	}
	return TextRange{Start: f.OpenParen.Offset, End: end}
}

// Location returns the location of the opening parenthesis
func (f *FunctionSignature) Location() SourceLocation { return TokenLocation(f.OpenParen) }

// Parameter is one declared parameter, kept as source text
type Parameter struct {
	Text string
	Rng  TextRange
	Loc  SourceLocation
}

func (p *Parameter) node() {}

// Kind returns KindParameter
func (p *Parameter) Kind() SyntaxKind { return KindParameter }

// Range returns the byte range of the parameter
func (p *Parameter) Range() TextRange { return p.Rng }

// Location returns the source location of the parameter
func (p *Parameter) Location() SourceLocation { return p.Loc }

// ReturnTypeDescriptor represents `returns T`
type ReturnTypeDescriptor struct {
	ReturnsToken lexer.Token
	TypeText     string
	TypeRange    TextRange
}

func (r *ReturnTypeDescriptor) node() {}

// Kind returns KindReturnType
func (r *ReturnTypeDescriptor) Kind() SyntaxKind { return KindReturnType }

// Range covers the returns keyword and the type
func (r *ReturnTypeDescriptor) Range() TextRange {
	return TextRange{Start: r.ReturnsToken.Offset, End: r.TypeRange.End}
}

// Location returns the location of the returns keyword
func (r *ReturnTypeDescriptor) Location() SourceLocation { return TokenLocation(r.ReturnsToken) }

// FunctionBody is a braced block; only its delimiters matter to the generator
type FunctionBody struct {
	OpenBrace  lexer.Token
	CloseBrace lexer.Token
}

func (b *FunctionBody) node() {}

// Kind returns KindFunctionBody
func (b *FunctionBody) Kind() SyntaxKind { return KindFunctionBody }

// Range covers both braces
func (b *FunctionBody) Range() TextRange {
	return TextRange{Start: b.OpenBrace.Offset, End: b.CloseBrace.End}
}

// Location returns the location of the opening brace
func (b *FunctionBody) Location() SourceLocation { return TokenLocation(b.OpenBrace) }

// TokenLocation converts a token position into a SourceLocation
func TokenLocation(token lexer.Token) SourceLocation {
	return SourceLocation{
		Line:   token.Line,
		Column: token.Column,
	}
}

// TokenRange converts a token into its byte range
func TokenRange(token lexer.Token) TextRange {
	return TextRange{Start: token.Offset, End: token.End}
}
