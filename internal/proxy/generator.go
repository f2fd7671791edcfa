// Package proxy generates mediation proxies: it loads the operation table of
// an API artifact, resolves the attached policies and rewrites the service
// skeleton into a mediation service.
package proxy

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"go.uber.org/zap"

	"github.com/choreo-dev/mediate/internal/artifact"
	"github.com/choreo-dev/mediate/internal/compiler/ast"
	"github.com/choreo-dev/mediate/internal/compiler/cache"
	"github.com/choreo-dev/mediate/internal/compiler/codegen"
	"github.com/choreo-dev/mediate/internal/compiler/textedit"
	"github.com/choreo-dev/mediate/internal/logging"
	"github.com/choreo-dev/mediate/internal/policy"
	"github.com/choreo-dev/mediate/internal/templates"
)

// GeneratedPrefix is prepended to the file name of generated services
const GeneratedPrefix = "_generated_"

// Config configures a Generator
type Config struct {
	PolicyOrg        string
	Repository       string
	Strategy         string
	MediationContext bool
	ThreadError      bool
	Indent           string
	BackendURL       string
	Boilerplate      bool
	// Templates maps snippet names to override URLs
	Templates      map[string]string
	PreloadWorkers int
}

// Request names the inputs of one generation run
type Request struct {
	ServiceURL string
	APIURL     string
	// OutputURL defaults to _generated_<service file> next to the service
	OutputURL string
	DryRun    bool
}

// Result describes a completed run
type Result struct {
	RunID      string
	ServiceURL string
	OutputURL  string
	Source     string
	Output     string
	Change     *textedit.Change
	Operations int
	Policies   int
	// Unmatched lists API operations without a resource function
	Unmatched  []string
	// Handlers lists the operation keys of the service's resource functions
	Handlers   []string
	// Table is the operation table the run used
	Table      artifact.Table
	Written    bool
}

// Generator runs generation passes. The policy cache and the parse cache are
// shared by every run of one generator.
type Generator struct {
	fs       afs.Service
	loader   *artifact.Loader
	manager  *policy.Manager
	snippets *templates.Set
	invoker  *codegen.Invoker
	modules  *cache.ModuleCache
	config   Config
	logger   *zap.Logger
}

// New creates a generator. A nil fs uses the default afs service.
func New(ctx context.Context, cfg Config, fs afs.Service, logger *zap.Logger) (*Generator, error) {
	if fs == nil {
		fs = afs.New()
	}
	logger = logging.OrNop(logger)

	strategy, err := policy.NewStrategy(cfg.Strategy, cfg.PolicyOrg)
	if err != nil {
		return nil, err
	}

	snippets, err := templates.Default()
	if err != nil {
		return nil, err
	}
	if err := snippets.LoadOverrides(ctx, fs, normalizeURLs(cfg.Templates)); err != nil {
		return nil, err
	}

	invoker, err := codegen.NewInvoker(snippets, cfg.MediationContext)
	if err != nil {
		return nil, err
	}

	repo := policy.NewRepository(fs, cfg.Repository)
	return &Generator{
		fs:       fs,
		loader:   artifact.NewLoader(fs),
		manager:  policy.NewManager(repo, strategy, logger),
		snippets: snippets,
		invoker:  invoker,
		modules:  cache.NewModuleCache(),
		config:   cfg,
		logger:   logger,
	}, nil
}

// Manager returns the policy manager shared by all runs
func (g *Generator) Manager() *policy.Manager {
	return g.manager
}

// Generate runs one pass. The output is written unless the request is a dry
// run. No output is produced when any step fails.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	runID := uuid.NewString()
	serviceURL := ToURL(req.ServiceURL)
	outputURL := req.OutputURL
	if outputURL == "" {
		outputURL = OutputURL(serviceURL)
	} else {
		outputURL = ToURL(outputURL)
	}

	logger := g.logger.With(zap.String("run", runID))
	logger.Info("generating mediation service",
		zap.String("service", serviceURL),
		zap.String("api", req.APIURL))

	table, err := g.loadTable(ctx, logger, req.APIURL)
	if err != nil {
		return nil, err
	}

	data, err := g.fs.DownloadWithURL(ctx, serviceURL)
	if err != nil {
		return nil, fmt.Errorf("failed to read service %s: %w", serviceURL, err)
	}

	result, err := g.transform(ctx, logger, table, serviceURL, string(data))
	if err != nil {
		return nil, err
	}
	result.RunID = runID
	result.OutputURL = outputURL

	if req.DryRun {
		return result, nil
	}

	if err := g.fs.Upload(ctx, outputURL, file.DefaultFileOsMode, strings.NewReader(result.Output)); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", outputURL, err)
	}
	result.Written = true
	logger.Info("mediation service written", zap.String("output", outputURL), zap.Int("edits", result.Change.Len()))

	return result, nil
}

// GenerateSource runs one pass over an in-memory service, e.g. an editor
// buffer. Nothing is written; the result carries the edits for source.
func (g *Generator) GenerateSource(ctx context.Context, serviceURL, source, apiURL string) (*Result, error) {
	runID := uuid.NewString()
	logger := g.logger.With(zap.String("run", runID))

	table, err := g.loadTable(ctx, logger, apiURL)
	if err != nil {
		return nil, err
	}

	result, err := g.transform(ctx, logger, table, serviceURL, source)
	if err != nil {
		return nil, err
	}
	result.RunID = runID
	return result, nil
}

// loadTable reads the operation table and resolves every attached policy
func (g *Generator) loadTable(ctx context.Context, logger *zap.Logger, apiURL string) (artifact.Table, error) {
	table, err := g.loader.LoadURL(ctx, ToURL(apiURL))
	if err != nil {
		return nil, err
	}

	refs := table.Policies()
	if err := policy.Preload(ctx, g.manager, refs, g.config.PreloadWorkers); err != nil {
		return nil, err
	}
	logger.Debug("policies resolved", zap.Int("policies", len(refs)), zap.Int("cached", g.manager.Cached()))
	return table, nil
}

// transform parses source and computes the mediation edits against table
func (g *Generator) transform(ctx context.Context, logger *zap.Logger, table artifact.Table, serviceURL, source string) (*Result, error) {
	_, name := url.Split(serviceURL, file.Scheme)
	module, err := g.parse(serviceURL, name, source)
	if err != nil {
		return nil, err
	}

	opts, err := g.options(name)
	if err != nil {
		return nil, err
	}

	change, err := codegen.NewTransformer(g.invoker, g.manager, opts, logger).ModifyDocument(ctx, module, table)
	if err != nil {
		return nil, err
	}

	output, err := change.Apply(source)
	if err != nil {
		return nil, fmt.Errorf("failed to apply edits to %s: %w", name, err)
	}

	handlers, err := codegen.HandlerKeys(module)
	if err != nil {
		return nil, err
	}

	result := &Result{
		ServiceURL: serviceURL,
		Source:     source,
		Output:     output,
		Change:     change,
		Operations: len(table),
		Policies:   len(table.Policies()),
		Unmatched:  unmatched(table, handlers),
		Handlers:   handlers,
		Table:      table,
	}
	if len(result.Unmatched) > 0 {
		logger.Warn("API operations without a resource function", zap.Strings("operations", result.Unmatched))
	}
	return result, nil
}

// Parse returns the module for a service, sharing the generator's parse cache
func (g *Generator) Parse(serviceURL, source string) (*ast.Module, error) {
	_, name := url.Split(serviceURL, file.Scheme)
	return g.parse(serviceURL, name, source)
}

// parse returns the module for source, reusing the last parse when the
// content is unchanged
func (g *Generator) parse(URL, name, source string) (*ast.Module, error) {
	hash := cache.HashString(source)
	if module, ok := g.modules.Lookup(URL, hash); ok {
		return module, nil
	}

	module, err := Parse(name, source)
	if err != nil {
		g.modules.Invalidate(URL)
		return nil, err
	}
	g.modules.Set(URL, module, hash)
	return module, nil
}

func (g *Generator) options(name string) (codegen.Options, error) {
	opts := codegen.DefaultOptions()
	if g.config.PolicyOrg != "" {
		opts.PolicyOrg = g.config.PolicyOrg
	}
	opts.MediationContext = g.config.MediationContext
	opts.ThreadError = g.config.ThreadError
	if g.config.Indent != "" {
		opts.IndentUnit = g.config.Indent
	}
	opts.File = name

	if g.config.Boilerplate {
		text, err := g.snippets.RenderBoilerplate(templates.BoilerplateData{
			BackendURL:  g.config.BackendURL,
			ThreadError: g.config.ThreadError,
		})
		if err != nil {
			return opts, err
		}
		opts.Boilerplate = text
	}
	return opts, nil
}

// unmatched returns the table keys no handler implements, sorted
func unmatched(table artifact.Table, handlers []string) []string {
	handled := make(map[string]bool, len(handlers))
	for _, h := range handlers {
		handled[h] = true
	}
	var out []string
	for _, key := range table.Keys() {
		if !handled[key] {
			out = append(out, key)
		}
	}
	return out
}

// OutputURL returns the location of the generated service for serviceURL
func OutputURL(serviceURL string) string {
	parent, name := url.Split(serviceURL, file.Scheme)
	return url.Join(parent, GeneratedPrefix+name)
}

// ToURL turns a plain path into an absolute file URL. URLs are returned as is.
func ToURL(location string) string {
	if location == "" || strings.Contains(location, "://") {
		return location
	}
	if abs, err := filepath.Abs(location); err == nil {
		location = abs
	}
	return "file://" + filepath.ToSlash(location)
}

func normalizeURLs(urls map[string]string) map[string]string {
	out := make(map[string]string, len(urls))
	for name, URL := range urls {
		out[name] = ToURL(URL)
	}
	return out
}
