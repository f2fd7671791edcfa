package parser

import (
	"fmt"
	"strings"

	"github.com/choreo-dev/mediate/internal/compiler/ast"
	"github.com/choreo-dev/mediate/internal/compiler/lexer"
)

// Parser transforms a stream of tokens into a syntax tree of a service
// skeleton. Declarations the generator never rewrites are kept as opaque
// ranges.
type Parser struct {
	tokens  []lexer.Token
	source  string
	current int
	errors  []ParseError
}

// New creates a new parser for the given token stream. source must be the
// text the tokens were scanned from.
func New(tokens []lexer.Token, source string) *Parser {
	return &Parser{
		tokens:  tokens,
		source:  source,
		current: 0,
		errors:  make([]ParseError, 0),
	}
}

// ParseSource lexes and parses source in one step. Lexical and syntax errors
// are returned together as a *SyntaxErrors.
func ParseSource(source string) (*ast.Module, error) {
	tokens, lexErrors := lexer.New(source).ScanTokens()
	if len(lexErrors) > 0 {
		return nil, &SyntaxErrors{LexErrors: lexErrors}
	}

	module, parseErrors := New(tokens, source).Parse()
	if len(parseErrors) > 0 {
		return nil, &SyntaxErrors{ParseErrors: parseErrors}
	}
	return module, nil
}

// Parse parses the token stream and returns the module and any errors
func (p *Parser) Parse() (*ast.Module, []ParseError) {
	module := &ast.Module{
		Imports:      make([]*ast.ImportDecl, 0),
		Services:     make([]*ast.ServiceDecl, 0),
		Declarations: make([]*ast.Declaration, 0),
		Source:       p.source,
	}

	for !p.isAtEnd() {
		switch {
		case p.check(lexer.TOKEN_IMPORT):
			if imp := p.parseImport(); imp != nil {
				module.Imports = append(module.Imports, imp)
			}
		case p.check(lexer.TOKEN_AT):
			p.skipAnnotation()
		case p.isServiceStart():
			if svc := p.parseService(); svc != nil {
				module.Services = append(module.Services, svc)
			}
		default:
			if decl := p.skipDeclaration(); decl != nil {
				module.Declarations = append(module.Declarations, decl)
			}
		}
	}

	return module, p.errors
}

// parseImport parses `import [org/]name[.name]* [as prefix];`
func (p *Parser) parseImport() *ast.ImportDecl {
	importToken := p.advance()
	imp := &ast.ImportDecl{Loc: ast.TokenLocation(importToken)}

	first := p.consume(lexer.TOKEN_IDENTIFIER, "Expected module name after 'import'")
	if first.Type == lexer.TOKEN_ERROR {
		p.synchronizeAfterSemicolon()
		return nil
	}

	nameParts := []string{unquote(first.Lexeme)}
	if p.match(lexer.TOKEN_SLASH) {
		imp.Org = nameParts[0]
		name := p.consume(lexer.TOKEN_IDENTIFIER, "Expected module name after '/'")
		if name.Type == lexer.TOKEN_ERROR {
			p.synchronizeAfterSemicolon()
			return nil
		}
		nameParts = []string{unquote(name.Lexeme)}
	}

	for p.match(lexer.TOKEN_DOT) {
		part := p.consume(lexer.TOKEN_IDENTIFIER, "Expected module name component after '.'")
		if part.Type == lexer.TOKEN_ERROR {
			p.synchronizeAfterSemicolon()
			return nil
		}
		nameParts = append(nameParts, unquote(part.Lexeme))
	}
	imp.Name = strings.Join(nameParts, ".")

	if p.match(lexer.TOKEN_AS) {
		prefix := p.consume(lexer.TOKEN_IDENTIFIER, "Expected prefix after 'as'")
		if prefix.Type == lexer.TOKEN_ERROR {
			p.synchronizeAfterSemicolon()
			return nil
		}
		imp.Prefix = unquote(prefix.Lexeme)
	}

	semi := p.consume(lexer.TOKEN_SEMICOLON, "Expected ';' after import declaration")
	if semi.Type == lexer.TOKEN_ERROR {
		p.synchronizeAfterSemicolon()
		return nil
	}

	imp.Rng = ast.TextRange{Start: importToken.Offset, End: semi.End}
	return imp
}

// isServiceStart reports whether the upcoming tokens open a service declaration
func (p *Parser) isServiceStart() bool {
	for i := p.current; i < len(p.tokens); i++ {
		switch p.tokens[i].Type {
		case lexer.TOKEN_ISOLATED:
			continue
		case lexer.TOKEN_SERVICE:
			return true
		default:
			return false
		}
	}
	return false
}

// parseService parses `[isolated] service [type] [path] on <expr> { members }`
func (p *Parser) parseService() *ast.ServiceDecl {
	for p.match(lexer.TOKEN_ISOLATED) {
	}
	serviceToken := p.advance()

	svc := &ast.ServiceDecl{
		ServiceToken: serviceToken,
		Resources:    make([]*ast.ResourceFunction, 0),
		Declarations: make([]*ast.Declaration, 0),
	}

	// Attach point runs up to 'on'; the listener expression up to '{'
	pathStart := serviceToken.End
	depth := 0
	for !p.isAtEnd() {
		tok := p.peek()
		if depth == 0 && tok.Type == lexer.TOKEN_ON && svc.BasePath == "" {
			svc.BasePath = strings.TrimSpace(p.source[pathStart:tok.Offset])
		}
		if depth == 0 && tok.Type == lexer.TOKEN_LBRACE {
			break
		}
		depth += nesting(tok.Type)
		p.advance()
	}

	if !p.check(lexer.TOKEN_LBRACE) {
		p.error(p.peek(), "Expected '{' to open service body")
		return nil
	}
	svc.OpenBrace = p.advance()

	for !p.check(lexer.TOKEN_RBRACE) && !p.isAtEnd() {
		switch {
		case p.check(lexer.TOKEN_AT):
			p.skipAnnotation()
		case p.isResourceStart():
			if res := p.parseResource(); res != nil {
				svc.Resources = append(svc.Resources, res)
			}
		default:
			if decl := p.skipDeclaration(); decl != nil {
				svc.Declarations = append(svc.Declarations, decl)
			}
		}
	}

	closeBrace := p.consume(lexer.TOKEN_RBRACE, "Expected '}' after service body")
	if closeBrace.Type == lexer.TOKEN_ERROR {
		return nil
	}
	svc.CloseBrace = closeBrace
	p.match(lexer.TOKEN_SEMICOLON)

	return svc
}

// isResourceStart reports whether the upcoming tokens open a resource function
func (p *Parser) isResourceStart() bool {
	for i := p.current; i < len(p.tokens); i++ {
		switch p.tokens[i].Type {
		case lexer.TOKEN_ISOLATED, lexer.TOKEN_PUBLIC:
			continue
		case lexer.TOKEN_RESOURCE:
			return i+1 < len(p.tokens) && p.tokens[i+1].Type == lexer.TOKEN_FUNCTION
		default:
			return false
		}
	}
	return false
}

// parseResource parses a resource accessor definition
func (p *Parser) parseResource() *ast.ResourceFunction {
	res := &ast.ResourceFunction{
		FirstToken: p.peek(),
		Qualifiers: make([]string, 0),
		Path:       make([]*ast.PathSegment, 0),
	}

	for p.check(lexer.TOKEN_ISOLATED) || p.check(lexer.TOKEN_PUBLIC) {
		res.Qualifiers = append(res.Qualifiers, p.advance().Lexeme)
	}
	p.consume(lexer.TOKEN_RESOURCE, "Expected 'resource' keyword")
	p.consume(lexer.TOKEN_FUNCTION, "Expected 'function' after 'resource'")

	method := p.consume(lexer.TOKEN_IDENTIFIER, "Expected resource accessor name")
	if method.Type == lexer.TOKEN_ERROR {
		p.synchronize()
		return nil
	}
	res.FunctionName = method

	if !p.parseResourcePath(res) {
		p.synchronize()
		return nil
	}

	sig := p.parseSignature()
	if sig == nil {
		p.synchronize()
		return nil
	}
	res.Signature = sig

	body := p.parseBody()
	if body == nil {
		p.synchronize()
		return nil
	}
	res.Body = body

	return res
}

// parseResourcePath parses the relative resource path up to '('
func (p *Parser) parseResourcePath(res *ast.ResourceFunction) bool {
	// `.` denotes the service root and contributes no segments
	if p.check(lexer.TOKEN_DOT) {
		p.advance()
		return true
	}

	for !p.check(lexer.TOKEN_LPAREN) && !p.isAtEnd() {
		tok := p.peek()
		switch tok.Type {
		case lexer.TOKEN_IDENTIFIER:
			p.advance()
			res.Path = append(res.Path, &ast.PathSegment{
				SegmentKind: ast.SegmentIdentifier,
				Text:        tok.Lexeme,
				Rng:         ast.TokenRange(tok),
				Loc:         ast.TokenLocation(tok),
			})
		case lexer.TOKEN_SLASH:
			p.advance()
			res.Path = append(res.Path, &ast.PathSegment{
				SegmentKind: ast.SegmentSlash,
				Text:        tok.Lexeme,
				Rng:         ast.TokenRange(tok),
				Loc:         ast.TokenLocation(tok),
			})
		case lexer.TOKEN_LBRACKET:
			seg := p.parsePathParam()
			if seg == nil {
				return false
			}
			res.Path = append(res.Path, seg)
		default:
			p.error(tok, fmt.Sprintf("Unexpected token in resource path: %s", tok.Lexeme))
			return false
		}
	}

	return true
}

// parsePathParam parses `[T name]` or `[T... name]`
func (p *Parser) parsePathParam() *ast.PathSegment {
	open := p.advance()
	seg := &ast.PathSegment{
		SegmentKind: ast.SegmentParam,
		Loc:         ast.TokenLocation(open),
	}

	typeEnd := -1
	var last lexer.Token
	depth := 0
	for !p.isAtEnd() {
		tok := p.peek()
		if depth == 0 && tok.Type == lexer.TOKEN_RBRACKET {
			break
		}
		if depth == 0 && tok.Type == lexer.TOKEN_ELLIPSIS {
			seg.SegmentKind = ast.SegmentRestParam
			typeEnd = tok.Offset
		}
		depth += nesting(tok.Type)
		last = p.advance()
	}

	closeBracket := p.consume(lexer.TOKEN_RBRACKET, "Expected ']' after path parameter")
	if closeBracket.Type == lexer.TOKEN_ERROR {
		return nil
	}
	if last.Type != lexer.TOKEN_IDENTIFIER {
		p.error(closeBracket, "Expected parameter name before ']'")
		return nil
	}

	if typeEnd < 0 {
		typeEnd = last.Offset
	}
	seg.ParamName = unquote(last.Lexeme)
	seg.ParamType = strings.TrimSpace(p.source[open.End:typeEnd])
	seg.Rng = ast.TextRange{Start: open.Offset, End: closeBracket.End}
	seg.Text = p.source[open.Offset:closeBracket.End]
	return seg
}

// parseSignature parses `(<params>) [returns T]`
func (p *Parser) parseSignature() *ast.FunctionSignature {
	open := p.consume(lexer.TOKEN_LPAREN, "Expected '(' to open parameter list")
	if open.Type == lexer.TOKEN_ERROR {
		return nil
	}

	sig := &ast.FunctionSignature{
		OpenParen:  open,
		Parameters: make([]*ast.Parameter, 0),
	}

	var paramStart *lexer.Token
	var paramEnd lexer.Token
	flush := func() {
		if paramStart == nil {
			return
		}
		sig.Parameters = append(sig.Parameters, &ast.Parameter{
			Text: p.source[paramStart.Offset:paramEnd.End],
			Rng:  ast.TextRange{Start: paramStart.Offset, End: paramEnd.End},
			Loc:  ast.TokenLocation(*paramStart),
		})
		paramStart = nil
	}

	depth := 0
	for !p.isAtEnd() {
		tok := p.peek()
		if depth == 0 && tok.Type == lexer.TOKEN_RPAREN {
			break
		}
		if depth == 0 && tok.Type == lexer.TOKEN_COMMA {
			flush()
			p.advance()
			continue
		}
		depth += nesting(tok.Type)
		if paramStart == nil {
			start := tok
			paramStart = &start
		}
		paramEnd = p.advance()
	}
	flush()

	closeParen := p.consume(lexer.TOKEN_RPAREN, "Expected ')' after parameter list")
	if closeParen.Type == lexer.TOKEN_ERROR {
		return nil
	}
	sig.CloseParen = closeParen

	if p.check(lexer.TOKEN_RETURNS) {
		ret := p.parseReturnType()
		if ret == nil {
			return nil
		}
		sig.ReturnType = ret
	}

	return sig
}

// parseReturnType parses `returns T` up to the body's opening brace
func (p *Parser) parseReturnType() *ast.ReturnTypeDescriptor {
	returnsToken := p.advance()

	var first, last lexer.Token
	seen := false
	depth := 0
	for !p.isAtEnd() {
		tok := p.peek()
		if depth == 0 && tok.Type == lexer.TOKEN_LBRACE && !p.opensInlineType() {
			break
		}
		depth += nesting(tok.Type)
		last = p.advance()
		if !seen {
			first = last
			seen = true
		}
	}

	if !seen {
		p.error(p.peek(), "Expected type after 'returns'")
		return nil
	}

	return &ast.ReturnTypeDescriptor{
		ReturnsToken: returnsToken,
		TypeText:     p.source[first.Offset:last.End],
		TypeRange:    ast.TextRange{Start: first.Offset, End: last.End},
	}
}

// opensInlineType reports whether the '{' at the cursor belongs to an inline
// record or object type rather than a function body
func (p *Parser) opensInlineType() bool {
	if p.current+1 < len(p.tokens) && p.tokens[p.current+1].Type == lexer.TOKEN_PIPE {
		return true
	}
	prev := p.previous()
	return prev.Type == lexer.TOKEN_IDENTIFIER && (prev.Lexeme == "record" || prev.Lexeme == "object")
}

// parseBody parses a braced body, skipping its statements
func (p *Parser) parseBody() *ast.FunctionBody {
	open := p.consume(lexer.TOKEN_LBRACE, "Expected '{' to open function body")
	if open.Type == lexer.TOKEN_ERROR {
		return nil
	}

	depth := 0
	for !p.isAtEnd() {
		tok := p.peek()
		if depth == 0 && tok.Type == lexer.TOKEN_RBRACE {
			break
		}
		depth += nesting(tok.Type)
		p.advance()
	}

	closeBrace := p.consume(lexer.TOKEN_RBRACE, "Expected '}' to close function body")
	if closeBrace.Type == lexer.TOKEN_ERROR {
		return nil
	}

	return &ast.FunctionBody{OpenBrace: open, CloseBrace: closeBrace}
}

// skipAnnotation consumes `@prefix:Name` with an optional mapping value
func (p *Parser) skipAnnotation() {
	p.advance()
	p.match(lexer.TOKEN_IDENTIFIER)
	if p.match(lexer.TOKEN_COLON) {
		p.match(lexer.TOKEN_IDENTIFIER)
	}
	if !p.check(lexer.TOKEN_LBRACE) {
		return
	}

	depth := 0
	for !p.isAtEnd() {
		tok := p.advance()
		depth += nesting(tok.Type)
		if depth == 0 {
			return
		}
	}
}

// skipDeclaration consumes a declaration the generator does not rewrite.
// It ends after a top-level ';' or after a top-level braced block that is
// not followed by ';'. A '}' at depth zero is left for the caller.
func (p *Parser) skipDeclaration() *ast.Declaration {
	first := p.peek()
	if first.Type == lexer.TOKEN_RBRACE {
		p.error(first, "Unexpected '}'")
		p.advance()
		return nil
	}

	last := first
	depth := 0
	for !p.isAtEnd() {
		tok := p.peek()
		if depth == 0 && tok.Type == lexer.TOKEN_RBRACE {
			break
		}
		last = p.advance()
		depth += nesting(tok.Type)
		if depth < 0 {
			depth = 0
		}

		if depth == 0 && tok.Type == lexer.TOKEN_SEMICOLON {
			break
		}
		if depth == 0 && tok.Type == lexer.TOKEN_RBRACE {
			if p.check(lexer.TOKEN_SEMICOLON) {
				last = p.advance()
			}
			break
		}
	}

	return &ast.Declaration{
		First: first,
		Rng:   ast.TextRange{Start: first.Offset, End: last.End},
	}
}

// nesting returns the depth change contributed by a token
func nesting(t lexer.TokenType) int {
	switch t {
	case lexer.TOKEN_LPAREN, lexer.TOKEN_LBRACE, lexer.TOKEN_LBRACKET:
		return 1
	case lexer.TOKEN_RPAREN, lexer.TOKEN_RBRACE, lexer.TOKEN_RBRACKET:
		return -1
	}
	return 0
}

// unquote strips the leading quote of an escaped identifier
func unquote(s string) string {
	return strings.TrimPrefix(s, "'")
}

// Helper methods

func (p *Parser) peek() lexer.Token {
	if len(p.tokens) == 0 {
		return lexer.Token{Type: lexer.TOKEN_EOF}
	}
	if p.current >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.current]
}

func (p *Parser) previous() lexer.Token {
	if len(p.tokens) == 0 || p.current == 0 {
		return lexer.Token{Type: lexer.TOKEN_EOF}
	}
	return p.tokens[p.current-1]
}

func (p *Parser) advance() lexer.Token {
	if !p.isAtEnd() {
		p.current++
	}
	return p.previous()
}

func (p *Parser) check(tokenType lexer.TokenType) bool {
	if p.isAtEnd() {
		return false
	}
	return p.peek().Type == tokenType
}

func (p *Parser) match(types ...lexer.TokenType) bool {
	for _, t := range types {
		if p.check(t) {
			p.advance()
			return true
		}
	}
	return false
}

// consume advances if the next token matches, otherwise reports an error
func (p *Parser) consume(tokenType lexer.TokenType, message string) lexer.Token {
	if p.check(tokenType) {
		return p.advance()
	}

	p.error(p.peek(), message)
	return lexer.Token{Type: lexer.TOKEN_ERROR}
}

func (p *Parser) isAtEnd() bool {
	return p.current >= len(p.tokens) || p.tokens[p.current].Type == lexer.TOKEN_EOF
}

// Error handling

func (p *Parser) error(token lexer.Token, message string) {
	p.errors = append(p.errors, NewParseError(message, token))
}

// synchronize implements panic mode error recovery: skip to the next
// resource function or the end of the enclosing service
func (p *Parser) synchronize() {
	depth := 0
	for !p.isAtEnd() {
		if depth == 0 && (p.isResourceStart() || p.check(lexer.TOKEN_RBRACE)) {
			return
		}
		depth += nesting(p.advance().Type)
		if depth < 0 {
			depth = 0
		}
	}
}

// synchronizeAfterSemicolon skips past the next ';'
func (p *Parser) synchronizeAfterSemicolon() {
	for !p.isAtEnd() {
		if p.advance().Type == lexer.TOKEN_SEMICOLON {
			return
		}
	}
}
