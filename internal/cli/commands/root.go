// Package commands implements the mediate command line
package commands

import (
	stderrors "errors"
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/choreo-dev/mediate/internal/cli/config"
	"github.com/choreo-dev/mediate/internal/cli/ui"
	"github.com/choreo-dev/mediate/internal/logging"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// errReported marks a failure whose details were already printed
var errReported = stderrors.New("command failed")

// globalFlags holds the persistent flags shared by every command
type globalFlags struct {
	configPath string
	logLevel   string
	noColor    bool
}

// environment is what a command needs to run: configuration and a logger
type environment struct {
	config  *config.Config
	logger  *zap.Logger
	noColor bool
}

// load reads the configuration and builds the logger. Flags win over the
// configuration file and the environment.
func (g *globalFlags) load(cmd *cobra.Command) (*environment, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), ui.ConfigError(err.Error(), g.noColor))
		return nil, errReported
	}

	level := cfg.Log.Level
	if g.logLevel != "" {
		level = g.logLevel
	}
	logger, err := logging.New(level, cfg.Log.Dev)
	if err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), ui.ConfigError(err.Error(), g.noColor))
		return nil, errReported
	}

	return &environment{config: cfg, logger: logger, noColor: g.noColor}, nil
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "mediate",
		Short: "Generate API gateway mediation services",
		Long: color.CyanString(`mediate - API gateway mediation source generator

mediate rewrites a generated Ballerina service skeleton so every resource
function runs the request, response and fault policies attached to its
API operation before and after calling the backend.

Inputs:
  • the service skeleton (.bal)
  • the API artifact listing operations and their policies (.yaml, .json or .zip)
  • a local repository of policy packages`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flags.noColor {
				color.NoColor = true
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file (default: ./mediate.yml)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVar(&flags.noColor, "no-color", false, "Disable colored output")
	registerCompletions(rootCmd)

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewGenerateCommand(flags))
	rootCmd.AddCommand(NewWatchCommand(flags))
	rootCmd.AddCommand(NewPolicyCommand(flags))
	rootCmd.AddCommand(NewInitCommand(flags))
	rootCmd.AddCommand(NewLSPCommand(flags))
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the mediate version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			table := ui.NewKeyValueTable(cmd.OutOrStdout(), color.NoColor)
			table.AddRow("mediate version", Version)
			table.AddRow("Git commit", GitCommit)
			table.AddRow("Build date", BuildDate)
			table.AddRow("Go version", goVer)
			table.Render()
		},
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		if !stderrors.Is(err, errReported) {
			errorColor := color.New(color.FgRed, color.Bold)
			errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		}
		return err
	}
	return nil
}
