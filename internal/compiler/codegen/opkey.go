package codegen

import (
	"strings"

	"github.com/choreo-dev/mediate/internal/compiler/ast"
	"github.com/choreo-dev/mediate/internal/compiler/errors"
)

// BuildOperationKey returns the canonical key "<verb> <path>" of a resource.
// The verb is lower-cased; identifiers lose one leading quote and any
// backslash escapes, parameters become `*` and rest parameters `**`.
func BuildOperationKey(verb string, segments []*ast.PathSegment) (string, error) {
	path, err := ResourcePath(segments)
	if err != nil {
		return "", err
	}
	return strings.ToLower(verb) + " " + path, nil
}

// ResourcePath normalizes a relative resource path. The root path is "/".
func ResourcePath(segments []*ast.PathSegment) (string, error) {
	return renderPath(segments, func(seg *ast.PathSegment) string {
		if seg.SegmentKind == ast.SegmentRestParam {
			return "**"
		}
		return "*"
	})
}

// PathTemplate renders the path the way API descriptions write it, naming
// parameters: pets/[int petId] becomes /pets/{petId}
func PathTemplate(segments []*ast.PathSegment) (string, error) {
	return renderPath(segments, func(seg *ast.PathSegment) string {
		if seg.SegmentKind == ast.SegmentRestParam {
			return "*"
		}
		return "{" + seg.ParamName + "}"
	})
}

func renderPath(segments []*ast.PathSegment, param func(*ast.PathSegment) string) (string, error) {
	var b strings.Builder
	b.WriteByte('/')

	for _, seg := range segments {
		switch seg.SegmentKind {
		case ast.SegmentIdentifier:
			b.WriteString(NormalizeIdentifier(seg.Text))
		case ast.SegmentSlash:
			b.WriteByte('/')
		case ast.SegmentParam, ast.SegmentRestParam:
			b.WriteString(param(seg))
		default:
			return "", errors.NewUnexpectedPathSegment(seg.Loc, seg.Text)
		}
	}

	return b.String(), nil
}

// NormalizeIdentifier strips a single leading quote and resolves backslash
// escapes: 'limit becomes limit, pet\-store becomes pet-store
func NormalizeIdentifier(ident string) string {
	ident = strings.TrimPrefix(ident, "'")
	if !strings.Contains(ident, `\`) {
		return ident
	}

	var b strings.Builder
	b.Grow(len(ident))
	escaped := false
	for i := 0; i < len(ident); i++ {
		c := ident[i]
		if c == '\\' && !escaped {
			escaped = true
			continue
		}
		escaped = false
		b.WriteByte(c)
	}
	return b.String()
}

// HandlerKeys returns the operation keys of every resource function in doc,
// in declaration order
func HandlerKeys(doc *ast.Module) ([]string, error) {
	var keys []string
	for _, svc := range doc.Services {
		for _, res := range svc.Resources {
			key, err := BuildOperationKey(res.MethodName(), res.Path)
			if err != nil {
				return nil, err
			}
			keys = append(keys, key)
		}
	}
	return keys, nil
}
