package codegen

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/choreo-dev/mediate/internal/artifact"
	"github.com/choreo-dev/mediate/internal/compiler/ast"
	"github.com/choreo-dev/mediate/internal/compiler/errors"
	"github.com/choreo-dev/mediate/internal/compiler/textedit"
	"github.com/choreo-dev/mediate/internal/policy"
)

// PolicyResolver returns the resolved package for a policy attachment
type PolicyResolver interface {
	Get(ctx context.Context, name, version string) (*policy.Package, error)
}

// Options configures a Transformer
type Options struct {
	// PolicyOrg owns the mediation module imported for the mediation context
	PolicyOrg string
	// MediationContext declares a mediation context in every handler and
	// passes it to every policy call
	MediationContext bool
	// ThreadError passes the failure to createDefaultErrorResponse
	ThreadError bool
	// IndentUnit is one indentation level of generated code
	IndentUnit string
	// BackendPath is the path expression of the backend call
	BackendPath string
	// Boilerplate is appended to the end of the document when not empty
	Boilerplate string
	// File names the document in errors and in the returned change
	File string
}

// DefaultOptions returns the options used when none are configured
func DefaultOptions() Options {
	return Options{
		PolicyOrg:   "choreo",
		ThreadError: true,
		IndentUnit:  DefaultIndentUnit,
		BackendPath: DefaultBackendPath,
	}
}

// Transformer turns the resource functions of a service skeleton into
// mediation pipelines
type Transformer struct {
	invoker  *Invoker
	resolver PolicyResolver
	opts     Options
	logger   *zap.Logger
}

// NewTransformer creates a transformer. A nil logger disables logging.
func NewTransformer(invoker *Invoker, resolver PolicyResolver, opts Options, logger *zap.Logger) *Transformer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.IndentUnit == "" {
		opts.IndentUnit = DefaultIndentUnit
	}
	if opts.BackendPath == "" {
		opts.BackendPath = DefaultBackendPath
	}
	return &Transformer{
		invoker:  invoker,
		resolver: resolver,
		opts:     opts,
		logger:   logger,
	}
}

// ModifyDocument computes the edits for doc. Operations missing from ops
// have no policies attached. Any error aborts the whole document.
func (t *Transformer) ModifyDocument(ctx context.Context, doc *ast.Module, ops artifact.Table) (*textedit.Change, error) {
	if len(doc.Services) == 0 {
		return nil, errors.NewNoService(t.opts.File)
	}

	root := NewCodeContext(nil, doc)
	imports := NewImportSet()
	var edits []textedit.Edit

	for _, svc := range doc.Services {
		svcEdits, svcImports, err := t.visitService(ctx, NewCodeContext(root, svc), svc, doc, ops)
		if err != nil {
			return nil, withFile(err, t.opts.File)
		}
		edits = append(edits, svcEdits...)
		imports.Merge(svcImports)
	}

	pending := imports.Without(doc.HasImport)
	if len(pending) > 0 {
		edits = append(edits, textedit.Insert(0, pending.Render()))
	}

	if t.opts.Boilerplate != "" {
		edits = append(edits, textedit.Insert(len(doc.Source), boilerplateText(doc.Source, t.opts.Boilerplate)))
	}

	change, err := textedit.NewChange(t.opts.File, len(doc.Source), edits)
	if err != nil {
		return nil, err
	}

	t.logger.Info("generated mediation edits",
		zap.String("file", t.opts.File),
		zap.Int("services", len(doc.Services)),
		zap.Int("edits", change.Len()),
		zap.Strings("imports", pending.Sorted()))

	return change, nil
}

func (t *Transformer) visitService(ctx context.Context, cc *CodeContext, svc *ast.ServiceDecl, doc *ast.Module, ops artifact.Table) ([]textedit.Edit, ImportSet, error) {
	imports := NewImportSet()
	var edits []textedit.Edit

	for _, res := range svc.Resources {
		resEdits, resImports, err := t.visitResource(ctx, NewCodeContext(cc, res), doc, ops)
		if err != nil {
			return nil, nil, err
		}
		edits = append(edits, resEdits...)
		imports.Merge(resImports)
	}

	return edits, imports, nil
}

func (t *Transformer) visitResource(ctx context.Context, cc *CodeContext, doc *ast.Module, ops artifact.Table) ([]textedit.Edit, ImportSet, error) {
	res, err := cc.Resource()
	if err != nil {
		return nil, nil, err
	}
	key, err := cc.OperationKey()
	if err != nil {
		return nil, nil, err
	}

	var attached artifact.AttachedPolicies
	if op, ok := ops.Lookup(key); ok {
		attached = op.Policies
	}

	pipeline, imports, err := t.render(ctx, doc, attached)
	if err != nil {
		return nil, nil, err
	}

	t.logger.Debug("mediating resource",
		zap.String("operation", key),
		zap.Int("inflow", len(pipeline.InFlow)),
		zap.Int("outflow", len(pipeline.OutFlow)),
		zap.Int("faultflow", len(pipeline.FaultFlow)))

	edits := t.signatureEdits(doc.Source, res.Signature)

	if res.Body == nil {
		return edits, imports, nil
	}

	closingIndent := LineIndent(doc.Source, res.Body.CloseBrace.Offset)
	indent := closingIndent + t.opts.IndentUnit

	if t.opts.MediationContext {
		module := t.opts.PolicyOrg + "/" + MediationModule
		decl, err := t.mediationContext(cc, modulePrefix(doc, module, MediationModule), indent)
		if err != nil {
			return nil, nil, err
		}
		open := res.Body.OpenBrace
		edits = append(edits, textedit.Replace(open.Offset, open.End, "{\n"+decl))
		imports.Add(module)
	}

	block := pipeline.Assemble(NewBlock(indent, t.opts.IndentUnit), res.MethodName(), t.opts.BackendPath, t.opts.ThreadError)
	edits = append(edits, textedit.Replace(res.Body.OpenBrace.End, res.Body.CloseBrace.Offset, "\n"+block.Render()+closingIndent))

	return edits, imports, nil
}

// render resolves every attached policy and renders its invocation. Only
// packages with a rendered invocation are returned as imports. Calls into a
// package doc already imports use the prefix of that import.
func (t *Transformer) render(ctx context.Context, doc *ast.Module, attached artifact.AttachedPolicies) (Pipeline, ImportSet, error) {
	var p Pipeline
	imports := NewImportSet()

	stages := []struct {
		role  policy.Role
		refs  []artifact.PolicyRef
		stmts *[]string
	}{
		{policy.RoleInFlow, attached.Request, &p.InFlow},
		{policy.RoleOutFlow, attached.Response, &p.OutFlow},
		{policy.RoleFaultFlow, attached.Fault, &p.FaultFlow},
	}

	for _, stage := range stages {
		for _, ref := range stage.refs {
			pkg, err := t.resolver.Get(ctx, ref.PolicyName, ref.PolicyVersion)
			if err != nil {
				return Pipeline{}, nil, err
			}
			stmt, ok, err := t.invoker.Render(stage.role, pkg, modulePrefix(doc, pkg.ID.ModuleName(), ""), len(*stage.stmts)+1)
			if err != nil {
				return Pipeline{}, nil, err
			}
			if !ok {
				t.logger.Debug("policy has no function for role",
					zap.String("policy", ref.String()),
					zap.String("role", string(stage.role)))
				continue
			}
			*stage.stmts = append(*stage.stmts, stmt)
			imports.Add(pkg.ID.ModuleName())
		}
	}

	return p, imports, nil
}

// signatureEdits prepends the caller and request parameters and makes the
// function return error?
func (t *Transformer) signatureEdits(source string, sig *ast.FunctionSignature) []textedit.Edit {
	params := fmt.Sprintf("http:Caller %s, http:Request %s", Caller, IncomingRequest)
	if len(sig.Parameters) > 0 {
		params += ", "
	}
	edits := []textedit.Edit{textedit.Insert(sig.OpenParen.End, params)}

	if sig.ReturnType != nil {
		edits = append(edits, textedit.Replace(sig.ReturnType.TypeRange.Start, sig.ReturnType.TypeRange.End, "error?"))
	} else {
		returns := " returns error?"
		if end := sig.CloseParen.End; end < len(source) && source[end] == '{' {
			returns += " "
		}
		edits = append(edits, textedit.Insert(sig.CloseParen.End, returns))
	}
	return edits
}

func (t *Transformer) mediationContext(cc *CodeContext, prefix, indent string) (string, error) {
	method, err := cc.ResourceMethodName()
	if err != nil {
		return "", err
	}
	tmpl, err := cc.PathTemplate()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%s:%s %s = {httpMethod: %q, resourcePath: %q};",
		indent, prefix, MediationContextType, MediationContextVar,
		strings.ToUpper(method), tmpl), nil
}

// modulePrefix returns the prefix doc imports module under, or def when doc
// does not import it
func modulePrefix(doc *ast.Module, module, def string) string {
	if prefix, ok := doc.ImportPrefix(module); ok {
		return prefix
	}
	return def
}

func boilerplateText(source, boilerplate string) string {
	var sb strings.Builder
	if len(source) > 0 && !strings.HasSuffix(source, "\n") {
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')
	sb.WriteString(strings.TrimRight(boilerplate, "\n"))
	sb.WriteByte('\n')
	return sb.String()
}

func withFile(err error, file string) error {
	if file == "" {
		return err
	}
	if ce, ok := errors.AsCompilerError(err); ok && ce.File == "" {
		ce.WithFile(file)
	}
	return err
}
