package policy

import (
	"context"

	"github.com/choreo-dev/mediate/internal/compiler/lexer"
)

// ValidatorModule is the module that declares the flow annotations
const ValidatorModule = "policy_validator"

// SymbolStrategy scans the sources of a package for public functions
// annotated with @<prefix>:InFlow, @<prefix>:OutFlow or @<prefix>:FaultFlow,
// where <prefix> is the import prefix of <org>/policy_validator. Files are
// scanned in lexical order and the first function per role wins.
type SymbolStrategy struct {
	org string
}

// NewSymbolStrategy creates a strategy for annotations declared by
// <org>/policy_validator
func NewSymbolStrategy(org string) *SymbolStrategy {
	return &SymbolStrategy{org: org}
}

// Name returns "symbols"
func (s *SymbolStrategy) Name() string {
	return StrategySymbols
}

// Resolve implements Strategy
func (s *SymbolStrategy) Resolve(ctx context.Context, src Source, id PackageID) (*Package, error) {
	pkg := NewPackage(id)

	files, err := src.ListFiles(ctx, id, ".bal")
	if err != nil {
		return nil, err
	}

	for _, file := range files {
		if len(pkg.Functions) == len(Roles()) {
			break
		}
		data, err := src.ReadFile(ctx, id, file)
		if err != nil {
			return nil, err
		}
		for _, fn := range s.scan(string(data)) {
			fn.File = file
			pkg.set(fn.Role, fn)
		}
	}

	return pkg, nil
}

// scan returns annotated public functions of one source in declaration order
func (s *SymbolStrategy) scan(source string) []*Function {
	// Lexical errors only drop the offending characters; the remaining
	// tokens are still good enough to find annotations
	tokens, _ := lexer.New(source).ScanTokens()

	prefix, ok := s.validatorPrefix(tokens)
	if !ok {
		return nil
	}

	var found []*Function
	for i := 0; i < len(tokens); i++ {
		role, next, ok := s.annotationAt(tokens, i, prefix)
		if !ok {
			continue
		}
		if name, ok := publicFunctionAt(tokens, skipAnnotations(tokens, next)); ok {
			found = append(found, &Function{Name: name, Role: role})
		}
		i = next - 1
	}
	return found
}

// validatorPrefix returns the prefix the source imports policy_validator as
func (s *SymbolStrategy) validatorPrefix(tokens []lexer.Token) (string, bool) {
	for i := 0; i+3 < len(tokens); i++ {
		if tokens[i].Type != lexer.TOKEN_IMPORT {
			continue
		}
		if tokens[i+1].Lexeme != s.org || tokens[i+2].Type != lexer.TOKEN_SLASH ||
			tokens[i+3].Lexeme != ValidatorModule {
			continue
		}
		if i+5 < len(tokens) && tokens[i+4].Type == lexer.TOKEN_AS {
			return tokens[i+5].Lexeme, true
		}
		return ValidatorModule, true
	}
	return "", false
}

// annotationAt matches @prefix:<Flow> at i and returns the index after it
func (s *SymbolStrategy) annotationAt(tokens []lexer.Token, i int, prefix string) (Role, int, bool) {
	if i+3 >= len(tokens) || tokens[i].Type != lexer.TOKEN_AT ||
		tokens[i+1].Lexeme != prefix || tokens[i+2].Type != lexer.TOKEN_COLON {
		return "", i, false
	}
	for _, role := range Roles() {
		if tokens[i+3].Lexeme == role.Annotation() {
			return role, i + 4, true
		}
	}
	return "", i, false
}

// skipAnnotations moves past an annotation value and any further annotations
func skipAnnotations(tokens []lexer.Token, i int) int {
	for i < len(tokens) {
		switch tokens[i].Type {
		case lexer.TOKEN_LBRACE:
			depth := 0
			for ; i < len(tokens); i++ {
				if tokens[i].Type == lexer.TOKEN_LBRACE {
					depth++
				} else if tokens[i].Type == lexer.TOKEN_RBRACE {
					depth--
					if depth == 0 {
						i++
						break
					}
				}
			}
		case lexer.TOKEN_AT:
			i += 2
			if i < len(tokens) && tokens[i].Type == lexer.TOKEN_COLON {
				i += 2
			}
		default:
			return i
		}
	}
	return i
}

// publicFunctionAt matches `public [isolated] function name` at i
func publicFunctionAt(tokens []lexer.Token, i int) (string, bool) {
	if i >= len(tokens) || tokens[i].Type != lexer.TOKEN_PUBLIC {
		return "", false
	}
	i++
	for i < len(tokens) && tokens[i].Type == lexer.TOKEN_ISOLATED {
		i++
	}
	if i+1 >= len(tokens) || tokens[i].Type != lexer.TOKEN_FUNCTION ||
		tokens[i+1].Type != lexer.TOKEN_IDENTIFIER {
		return "", false
	}
	return tokens[i+1].Lexeme, true
}
