package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/viant/afs"

	"github.com/choreo-dev/mediate/internal/artifact"
	"github.com/choreo-dev/mediate/internal/cli/ui"
	"github.com/choreo-dev/mediate/internal/policy"
	"github.com/choreo-dev/mediate/internal/proxy"
)

// NewPolicyCommand creates the policy command group
func NewPolicyCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect policy packages",
	}
	cmd.AddCommand(newPolicyInspectCommand(flags))
	return cmd
}

func newPolicyInspectCommand(flags *globalFlags) *cobra.Command {
	var (
		api     string
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "inspect [org/name:version...]",
		Short: "Show the mediation functions of policy packages",
		Long: `Resolve policy packages from the configured repository and list the
function each flow invokes.

Examples:
  mediate policy inspect choreo/add_header:1.0.0
  mediate policy inspect --api api.yaml
  mediate policy inspect choreo/add_header:1.0.0 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := flags.load(cmd)
			if err != nil {
				return err
			}
			defer env.logger.Sync()

			fs := afs.New()
			refs, err := policyRefs(cmd, fs, api, args)
			if err != nil {
				return err
			}
			if len(refs) == 0 {
				return fmt.Errorf("no policies given\n\nUsage: mediate policy inspect org/name:version")
			}

			manager, err := newManager(fs, env)
			if err != nil {
				fmt.Fprint(cmd.ErrOrStderr(), ui.ConfigError(err.Error(), env.noColor))
				return errReported
			}

			if err := policy.Preload(cmd.Context(), manager, refs, env.config.Policy.PreloadWorkers); err != nil {
				fmt.Fprint(cmd.ErrOrStderr(), ui.GenerationError(err, env.noColor))
				return errReported
			}

			pkgs := make([]*policy.Package, 0, len(refs))
			for _, ref := range refs {
				pkg, err := manager.Get(cmd.Context(), ref.PolicyName, ref.PolicyVersion)
				if err != nil {
					fmt.Fprint(cmd.ErrOrStderr(), ui.GenerationError(err, env.noColor))
					return errReported
				}
				pkgs = append(pkgs, pkg)
			}

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(pkgs)
			}
			for i, pkg := range pkgs {
				if i > 0 {
					fmt.Fprintln(cmd.OutOrStdout())
				}
				writePackage(cmd.OutOrStdout(), pkg, manager.Strategy().Name(), env.noColor)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&api, "api", "a", "", "Inspect every policy attached in an API artifact")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	registerCompletions(cmd)

	return cmd
}

// policyRefs collects the policies named on the command line and those
// attached in the API artifact
func policyRefs(cmd *cobra.Command, fs afs.Service, api string, args []string) ([]artifact.PolicyRef, error) {
	var refs []artifact.PolicyRef
	for _, arg := range args {
		ref, err := parsePolicyArg(arg)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}

	if api != "" {
		table, err := artifact.NewLoader(fs).LoadURL(cmd.Context(), proxy.ToURL(api))
		if err != nil {
			return nil, err
		}
		refs = append(refs, table.Policies()...)
	}
	return refs, nil
}

// parsePolicyArg splits org/name:version
func parsePolicyArg(arg string) (artifact.PolicyRef, error) {
	name, version, ok := strings.Cut(arg, ":")
	if !ok || name == "" || version == "" {
		return artifact.PolicyRef{}, fmt.Errorf("invalid policy %q, expected org/name:version", arg)
	}
	return artifact.PolicyRef{PolicyName: name, PolicyVersion: version}, nil
}

func newManager(fs afs.Service, env *environment) (*policy.Manager, error) {
	strategy, err := policy.NewStrategy(env.config.Policy.Strategy, env.config.Policy.Org)
	if err != nil {
		return nil, err
	}
	repo := policy.NewRepository(fs, env.config.Policy.Repository)
	return policy.NewManager(repo, strategy, env.logger), nil
}

func writePackage(w io.Writer, pkg *policy.Package, strategy string, noColor bool) {
	info := ui.NewKeyValueTable(w, noColor)
	info.AddRow("Package", pkg.ID.String())
	info.AddRow("Module", pkg.ID.ModuleName())
	info.AddRow("Prefix", pkg.ID.Prefix())
	info.AddRow("Strategy", strategy)
	info.Render()
	fmt.Fprintln(w)

	table := ui.NewTable(w, noColor, "ROLE", "FUNCTION", "SOURCE")
	for _, role := range policy.Roles() {
		fn, ok := pkg.Function(role)
		if !ok {
			table.AddRow(string(role), "-")
			continue
		}
		source := fn.File
		if source == "" {
			source = "metadata"
		}
		table.AddRow(string(role), fn.Name, source)
	}
	table.Render()
}
