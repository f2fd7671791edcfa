package commands

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"path"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/choreo-dev/mediate/internal/cli/ui"
	"github.com/choreo-dev/mediate/internal/compiler/errors"
	"github.com/choreo-dev/mediate/internal/format"
	"github.com/choreo-dev/mediate/internal/proxy"
)

// Diagnostic output formats of generate --errors
const (
	errorsText    = "text"
	errorsJSON    = "json"
	errorsCompact = "compact"
)

type generateOptions struct {
	service string
	api     string
	output  string
	dryRun  bool
	diff    bool
	edits   string
	errors  string
	strict  bool
}

func (o *generateOptions) request() proxy.Request {
	return proxy.Request{
		ServiceURL: o.service,
		APIURL:     o.api,
		OutputURL:  o.output,
		DryRun:     o.dryRun || o.edits != "",
	}
}

func (o *generateOptions) validate() error {
	switch o.errors {
	case errorsText:
		return nil
	case errorsJSON, errorsCompact:
		if o.edits != "" || o.diff {
			return fmt.Errorf("--errors %s cannot be combined with --edits or --diff", o.errors)
		}
		return nil
	}
	return fmt.Errorf("unknown --errors format %q (text, json or compact)", o.errors)
}

// setupError marks failures that happen before generation starts
type setupError struct{ error }

func (e setupError) Unwrap() error { return e.error }

// NewGenerateCommand creates the generate command
func NewGenerateCommand(flags *globalFlags) *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:     "generate",
		Aliases: []string{"g"},
		Short:   "Generate the mediation service",
		Long: `Rewrite a service skeleton so each resource function runs the policies
attached to its API operation.

The result is written next to the service as _generated_<service file>.
The service itself is never modified.

With --errors json or compact, diagnostics (MED and SYN codes, and a
MED709 warning per API operation without a resource function) are printed
to stdout for editors and CI instead of the summary. --strict makes
warnings fail the run.

Examples:
  mediate generate --service petstore.bal --api api.yaml
  mediate generate -s petstore.bal -a api.zip --dry-run
  mediate generate -s petstore.bal -a api.yaml --edits lsp
  mediate generate -s petstore.bal -a api.yaml --errors json --strict`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.validate(); err != nil {
				return err
			}

			env, err := flags.load(cmd)
			if err != nil {
				return err
			}
			defer env.logger.Sync()

			result, err := runGenerate(cmd.Context(), env, opts)
			if opts.errors != errorsText {
				return opts.report(cmd.OutOrStdout(), result, err)
			}

			if err != nil {
				var setup setupError
				if stderrors.As(err, &setup) {
					fmt.Fprint(cmd.ErrOrStderr(), ui.ConfigError(setup.Error(), env.noColor))
				} else {
					fmt.Fprint(cmd.ErrOrStderr(), ui.GenerationError(err, env.noColor))
				}
				return errReported
			}

			if opts.edits != "" {
				return format.WriteEdits(cmd.OutOrStdout(), opts.edits, opts.service, result.Source, result.Change)
			}

			if opts.diff || opts.dryRun {
				writeDiff(cmd.OutOrStdout(), result, env.noColor)
			}
			writeSummary(cmd.OutOrStdout(), result, env.noColor)

			if opts.strict && len(result.Unmatched) > 0 {
				return errReported
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.service, "service", "s", "", "Service skeleton (.bal) path or URL")
	cmd.Flags().StringVarP(&opts.api, "api", "a", "", "API artifact (.yaml, .json or .zip) path or URL")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output location (default: _generated_<service> next to the service)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Show the changes without writing the output")
	cmd.Flags().BoolVar(&opts.diff, "diff", false, "Show the changes after writing the output")
	cmd.Flags().StringVar(&opts.edits, "edits", "", "Print the edits instead of writing: json or lsp")
	cmd.Flags().StringVar(&opts.errors, "errors", errorsText, "Diagnostic format: text, json or compact")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Fail when an API operation has no resource function")
	cmd.MarkFlagRequired("service")
	cmd.MarkFlagRequired("api")
	registerCompletions(cmd)

	return cmd
}

func runGenerate(ctx context.Context, env *environment, opts *generateOptions) (*proxy.Result, error) {
	cfg, err := env.config.Proxy()
	if err != nil {
		return nil, setupError{err}
	}

	gen, err := proxy.New(ctx, cfg, nil, env.logger)
	if err != nil {
		return nil, setupError{err}
	}

	return gen.Generate(ctx, opts.request())
}

// report writes the diagnostics of a run in the machine-readable format
// chosen with --errors
func (o *generateOptions) report(w io.Writer, result *proxy.Result, err error) error {
	var warnings errors.ErrorList
	if result != nil {
		warnings = unmatchedWarnings(path.Base(o.api), result)
	}

	report := errors.NewReport(o.service, err, warnings)
	var werr error
	if o.errors == errorsJSON {
		werr = report.WriteJSON(w)
	} else {
		werr = report.WriteCompact(w)
	}
	if werr != nil {
		return fmt.Errorf("failed to write diagnostics: %w", werr)
	}

	if report.Failed(o.strict) {
		return errReported
	}
	return nil
}

func unmatchedWarnings(apiFile string, result *proxy.Result) errors.ErrorList {
	list := make(errors.ErrorList, 0, len(result.Unmatched))
	for _, key := range result.Unmatched {
		list = append(list, errors.NewUnmatchedOperation(apiFile, key, ui.SimilarOperations(key, result.Handlers)))
	}
	return list
}

func writeDiff(w io.Writer, result *proxy.Result, noColor bool) {
	diff := format.Diff(path.Base(result.ServiceURL), result.Source, result.Change)
	if noColor {
		fmt.Fprint(w, diff.UnifiedDiff())
	} else {
		fmt.Fprint(w, diff.String())
	}
	fmt.Fprintln(w, diff.Stats())
	fmt.Fprintln(w)
}

// writeSummary prints the outcome of a run and suggests handlers for API
// operations that have none
func writeSummary(w io.Writer, result *proxy.Result, noColor bool) {
	if result.Written {
		ui.WriteSuccess(w, "Generated "+result.OutputURL, noColor)
	} else {
		fmt.Fprint(w, ui.Info("Dry run, nothing written", noColor))
	}

	table := ui.NewKeyValueTable(w, noColor)
	table.AddRow("Run", result.RunID)
	table.AddRow("Operations", strconv.Itoa(result.Operations))
	table.AddRow("Policies", strconv.Itoa(result.Policies))
	table.AddRow("Edits", strconv.Itoa(result.Change.Len()))
	table.Render()

	for _, key := range result.Unmatched {
		fmt.Fprint(w, ui.Warning(
			fmt.Sprintf("API operation '%s' has no resource function", key),
			ui.SimilarOperations(key, result.Handlers),
			noColor))
	}
}
