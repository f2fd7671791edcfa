package lsp

import (
	"context"
	stderrors "errors"
	"encoding/json"
	"fmt"
	"strings"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/choreo-dev/mediate/internal/artifact"
	"github.com/choreo-dev/mediate/internal/compiler/ast"
	"github.com/choreo-dev/mediate/internal/compiler/codegen"
	"github.com/choreo-dev/mediate/internal/compiler/errors"
	"github.com/choreo-dev/mediate/internal/compiler/textedit"
	"github.com/choreo-dev/mediate/internal/proxy"
)

// DiagnosticSource tags every published diagnostic
const DiagnosticSource = "mediate"

// CodeActionTitle names the mediation rewrite in the editor
const CodeActionTitle = "Insert mediation policies"

// analyze parses doc, checks it against the API artifact and publishes the
// findings
func (s *Server) analyze(ctx context.Context, doc *document) {
	li := textedit.NewLineIndex(doc.source)
	serviceURL := string(doc.uri)

	module, err := s.generator.Parse(serviceURL, doc.source)
	if err != nil {
		s.publish(ctx, doc.uri, toDiagnostics(li, err))
		return
	}

	var diagnostics []protocol.Diagnostic
	if _, err := codegen.HandlerKeys(module); err != nil {
		diagnostics = append(diagnostics, toDiagnostics(li, err)...)
	}

	var result *proxy.Result
	if s.apiURL != "" && len(diagnostics) == 0 {
		generated, err := s.generator.GenerateSource(ctx, serviceURL, doc.source, s.apiURL)
		if err != nil {
			diagnostics = append(diagnostics, toDiagnostics(li, err)...)
		} else {
			result = generated
			for _, key := range generated.Unmatched {
				diagnostics = append(diagnostics, protocol.Diagnostic{
					Range:    serviceRange(li, module),
					Severity: protocol.DiagnosticSeverityInformation,
					Source:   DiagnosticSource,
					Message:  fmt.Sprintf("API operation '%s' has no resource function", key),
				})
			}
		}
	}

	s.docs.record(doc.uri, doc.version, module, result)
	s.logger.Debug("analyzed document",
		zap.String("uri", serviceURL),
		zap.Int32("version", doc.version),
		zap.Int("diagnostics", len(diagnostics)))
	s.publish(ctx, doc.uri, diagnostics)
}

// toDiagnostics converts a failure into diagnostics. Compiler errors keep
// their location; anything else is reported on the first line.
func toDiagnostics(li *textedit.LineIndex, err error) []protocol.Diagnostic {
	var list errors.ErrorList
	if !stderrors.As(err, &list) {
		if ce, ok := errors.AsCompilerError(err); ok {
			list = errors.ErrorList{ce}
		}
	}

	if len(list) == 0 {
		return []protocol.Diagnostic{{
			Range:    li.LineRange(0),
			Severity: protocol.DiagnosticSeverityError,
			Source:   DiagnosticSource,
			Message:  err.Error(),
		}}
	}

	out := make([]protocol.Diagnostic, 0, len(list))
	for _, ce := range list {
		out = append(out, protocol.Diagnostic{
			Range:    locationRange(li, ce.Location),
			Severity: convertSeverity(ce.Severity),
			Code:     string(ce.Code),
			Source:   DiagnosticSource,
			Message:  ce.Message,
		})
	}
	return out
}

// locationRange spans from a one-based location to the end of its line
func locationRange(li *textedit.LineIndex, loc ast.SourceLocation) protocol.Range {
	line := loc.Line - 1
	if line < 0 {
		line = 0
	}
	r := li.LineRange(line)
	if loc.Column > 1 && uint32(loc.Column-1) <= r.End.Character {
		r.Start.Character = uint32(loc.Column - 1)
	}
	return r
}

// serviceRange is the line of the first service keyword
func serviceRange(li *textedit.LineIndex, module *ast.Module) protocol.Range {
	if len(module.Services) == 0 {
		return li.LineRange(0)
	}
	return li.LineRange(module.Services[0].Location().Line - 1)
}

func convertSeverity(severity errors.ErrorSeverity) protocol.DiagnosticSeverity {
	switch severity {
	case errors.SeverityWarning:
		return protocol.DiagnosticSeverityWarning
	case errors.SeverityInfo:
		return protocol.DiagnosticSeverityInformation
	default:
		return protocol.DiagnosticSeverityError
	}
}

func (s *Server) handleDocumentSymbol(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.DocumentSymbolParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return replyWithError(ctx, reply, jsonrpc2.InvalidParams, "Failed to parse documentSymbol params")
	}

	doc, ok := s.docs.get(params.TextDocument.URI)
	if !ok || doc.module == nil {
		return reply(ctx, []protocol.DocumentSymbol{}, nil)
	}
	return reply(ctx, documentSymbols(doc), nil)
}

// documentSymbols lists services with their resource functions named by
// operation key
func documentSymbols(doc *document) []protocol.DocumentSymbol {
	li := textedit.NewLineIndex(doc.source)
	toRange := func(r ast.TextRange) protocol.Range {
		return li.Range(textedit.Range{Start: r.Start, End: r.End})
	}

	symbols := make([]protocol.DocumentSymbol, 0, len(doc.module.Services))
	for _, svc := range doc.module.Services {
		name := "service " + svc.BasePath
		if svc.BasePath == "" {
			name = "service /"
		}
		service := protocol.DocumentSymbol{
			Name:           name,
			Kind:           protocol.SymbolKindClass,
			Range:          toRange(svc.Range()),
			SelectionRange: toRange(ast.TextRange{Start: svc.ServiceToken.Offset, End: svc.ServiceToken.End}),
		}

		for _, res := range svc.Resources {
			key, err := codegen.BuildOperationKey(res.MethodName(), res.Path)
			if err != nil {
				continue
			}
			detail, _ := codegen.PathTemplate(res.Path)
			service.Children = append(service.Children, protocol.DocumentSymbol{
				Name:           key,
				Detail:         detail,
				Kind:           protocol.SymbolKindMethod,
				Range:          toRange(res.Range()),
				SelectionRange: toRange(ast.TextRange{Start: res.FunctionName.Offset, End: res.FunctionName.End}),
			})
		}
		symbols = append(symbols, service)
	}
	return symbols
}

func (s *Server) handleCodeAction(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.CodeActionParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return replyWithError(ctx, reply, jsonrpc2.InvalidParams, "Failed to parse codeAction params")
	}

	doc, ok := s.docs.get(params.TextDocument.URI)
	if !ok || doc.result == nil || doc.result.Change.Len() == 0 {
		return reply(ctx, []protocol.CodeAction{}, nil)
	}

	return reply(ctx, []protocol.CodeAction{{
		Title: CodeActionTitle,
		Kind:  protocol.Source,
		Edit:  doc.result.Change.WorkspaceEdit(doc.uri.Filename(), doc.source),
	}}, nil)
}

func (s *Server) handleHover(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.HoverParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return replyWithError(ctx, reply, jsonrpc2.InvalidParams, "Failed to parse hover params")
	}

	doc, ok := s.docs.get(params.TextDocument.URI)
	if !ok || doc.module == nil {
		return reply(ctx, nil, nil)
	}

	li := textedit.NewLineIndex(doc.source)
	res := resourceAt(doc.module, li.Offset(params.Position))
	if res == nil {
		return reply(ctx, nil, nil)
	}

	contents, err := hoverContents(res, doc.result)
	if err != nil {
		return reply(ctx, nil, nil)
	}

	r := li.Range(textedit.Range{Start: res.FunctionName.Offset, End: res.FunctionName.End})
	return reply(ctx, protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.Markdown,
			Value: contents,
		},
		Range: &r,
	}, nil)
}

// resourceAt returns the resource function enclosing offset, if any
func resourceAt(module *ast.Module, offset int) *ast.ResourceFunction {
	var innermost ast.Node
	ast.Inspect(module, func(n ast.Node) bool {
		if !n.Range().Contains(offset) {
			return n == ast.Node(module)
		}
		innermost = n
		return true
	})
	if innermost == nil {
		return nil
	}
	return ast.NewParentIndex(module).EnclosingResource(innermost)
}

// hoverContents describes a resource function: its operation key, path
// template and, after a successful analysis, the attached policies
func hoverContents(res *ast.ResourceFunction, result *proxy.Result) (string, error) {
	key, err := codegen.BuildOperationKey(res.MethodName(), res.Path)
	if err != nil {
		return "", err
	}
	tmpl, err := codegen.PathTemplate(res.Path)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s**\n\nPath: `%s`\n", key, tmpl)

	if result == nil || result.Table == nil {
		return b.String(), nil
	}
	op, ok := result.Table.Lookup(key)
	if !ok {
		b.WriteString("\nNo API operation matches this resource function.\n")
		return b.String(), nil
	}

	fmt.Fprintf(&b, "\nOperation `%s`\n", op.ID)
	flows := []struct {
		name string
		refs []artifact.PolicyRef
	}{
		{"request", op.Policies.Request},
		{"response", op.Policies.Response},
		{"fault", op.Policies.Fault},
	}
	for _, flow := range flows {
		if len(flow.refs) == 0 {
			continue
		}
		names := make([]string, 0, len(flow.refs))
		for _, ref := range flow.refs {
			names = append(names, ref.String())
		}
		fmt.Fprintf(&b, "- %s: %s\n", flow.name, strings.Join(names, ", "))
	}
	return b.String(), nil
}
