package commands

import (
	"github.com/spf13/cobra"
)

// Completion candidates for the input flags shared by several commands
var (
	serviceExtensions = []string{"bal"}
	apiExtensions     = []string{"yaml", "yml", "json", "zip"}
	flagValues        = map[string][]string{
		"errors":    {errorsText, errorsJSON, errorsCompact},
		"edits":     {"json", "lsp"},
		"log-level": {"debug", "info", "warn", "error"},
	}
)

// registerCompletions completes --service with .bal files, --api with API
// artifacts and enumerated flags with their values. Flags cmd does not
// define are skipped.
func registerCompletions(cmd *cobra.Command) {
	files := map[string][]string{"service": serviceExtensions, "api": apiExtensions}
	for name, exts := range files {
		if cmd.Flag(name) == nil {
			continue
		}
		exts := exts
		cmd.RegisterFlagCompletionFunc(name, func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return exts, cobra.ShellCompDirectiveFilterFileExt
		})
	}

	for name, values := range flagValues {
		if cmd.Flag(name) == nil {
			continue
		}
		cmd.RegisterFlagCompletionFunc(name, cobra.FixedCompletions(values, cobra.ShellCompDirectiveNoFileComp))
	}
}

// NewCompletionCommand creates the completion command for shell completions
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion script",
		Long: `Print a completion script for mediate.

Besides subcommands, the scripts complete --service with .bal files,
--api with API artifacts (.yaml, .yml, .json, .zip) and the values of
--errors, --edits and --log-level.

Examples:
  source <(mediate completion bash)
  mediate completion zsh > "${fpath[1]}/_mediate"
  mediate completion fish > ~/.config/fish/completions/mediate.fish
  mediate completion powershell | Out-String | Invoke-Expression`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			root := cmd.Root()

			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(out, true)
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}

	return cmd
}
