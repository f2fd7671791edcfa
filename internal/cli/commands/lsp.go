package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/choreo-dev/mediate/internal/cli/ui"
	"github.com/choreo-dev/mediate/internal/lsp"
	"github.com/choreo-dev/mediate/internal/proxy"
)

// NewLSPCommand creates the lsp command
func NewLSPCommand(flags *globalFlags) *cobra.Command {
	var api string

	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Start the language server",
		Long: `Start a Language Server Protocol server on stdin/stdout.

Open service skeletons get syntax diagnostics and an outline of resource
functions by operation key. With --api the server also reports API
operations without a resource function and offers the mediation rewrite
as a source code action.

Logs go to stderr so they never mix with the protocol stream.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := flags.load(cmd)
			if err != nil {
				return err
			}
			defer env.logger.Sync()

			cfg, err := env.config.Proxy()
			if err != nil {
				fmt.Fprint(cmd.ErrOrStderr(), ui.ConfigError(err.Error(), env.noColor))
				return errReported
			}
			gen, err := proxy.New(cmd.Context(), cfg, nil, env.logger)
			if err != nil {
				fmt.Fprint(cmd.ErrOrStderr(), ui.ConfigError(err.Error(), env.noColor))
				return errReported
			}

			server := lsp.NewServer(gen, proxy.ToURL(api), Version, env.logger)
			return server.Run(cmd.Context(), lsp.StdioConn{Reader: os.Stdin, Writer: os.Stdout})
		},
	}

	cmd.Flags().StringVarP(&api, "api", "a", "", "API artifact open services are checked against")
	registerCompletions(cmd)

	return cmd
}
