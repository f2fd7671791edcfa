package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/choreo-dev/mediate/internal/cli/config"
	"github.com/choreo-dev/mediate/internal/cli/ui"
	"github.com/choreo-dev/mediate/internal/policy"
)

// NewInitCommand creates the init command
func NewInitCommand(flags *globalFlags) *cobra.Command {
	var (
		defaults bool
		force    bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a mediate.yml in the current directory",
		Long: `Create mediate.yml, asking for the policy organization, the policy
repository and the shape of the generated code.

Examples:
  mediate init
  mediate init --yes          # Write the defaults without asking`,
		RunE: func(cmd *cobra.Command, args []string) error {
			target := config.FileName
			if flags.configPath != "" {
				target = flags.configPath
			}
			if _, err := os.Stat(target); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", target)
			}

			cfg, err := config.Default()
			if err != nil {
				fmt.Fprint(cmd.ErrOrStderr(), ui.ConfigError(err.Error(), flags.noColor))
				return errReported
			}

			if !defaults {
				if err := askConfig(cfg); err != nil {
					return err
				}
			}

			if err := cfg.Save(target); err != nil {
				fmt.Fprint(cmd.ErrOrStderr(), ui.ConfigError(err.Error(), flags.noColor))
				return errReported
			}
			ui.WriteSuccess(cmd.OutOrStdout(), "Created "+target, flags.noColor)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&defaults, "yes", "y", false, "Use the defaults without prompting")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config file")

	return cmd
}

// askConfig prompts for the settings most projects change
func askConfig(cfg *config.Config) error {
	questions := []*survey.Question{
		{
			Name:     "org",
			Prompt:   &survey.Input{Message: "Policy organization:", Default: cfg.Policy.Org},
			Validate: survey.Required,
		},
		{
			Name:     "repository",
			Prompt:   &survey.Input{Message: "Policy repository:", Default: cfg.Policy.Repository},
			Validate: survey.Required,
		},
		{
			Name: "strategy",
			Prompt: &survey.Select{
				Message: "Find policy functions by:",
				Options: []string{policy.StrategyMetadata, policy.StrategySymbols},
				Default: cfg.Policy.Strategy,
			},
		},
		{
			Name:     "indent",
			Prompt:   &survey.Input{Message: "Indentation ('tab' or number of spaces):", Default: cfg.Generate.Indent},
			Validate: validateIndent,
		},
		{
			Name:   "context",
			Prompt: &survey.Confirm{Message: "Declare a mediation context in each resource?", Default: cfg.Generate.MediationContext},
		},
		{
			Name:   "boilerplate",
			Prompt: &survey.Confirm{Message: "Append the backend client boilerplate?", Default: cfg.Generate.Boilerplate},
		},
	}

	answers := struct {
		Org         string `survey:"org"`
		Repository  string `survey:"repository"`
		Strategy    string `survey:"strategy"`
		Indent      string `survey:"indent"`
		Context     bool   `survey:"context"`
		Boilerplate bool   `survey:"boilerplate"`
	}{}
	if err := survey.Ask(questions, &answers); err != nil {
		return err
	}

	cfg.Policy.Org = answers.Org
	cfg.Policy.Repository = answers.Repository
	cfg.Policy.Strategy = answers.Strategy
	cfg.Generate.Indent = answers.Indent
	cfg.Generate.MediationContext = answers.Context
	cfg.Generate.Boilerplate = answers.Boilerplate

	if cfg.Generate.Boilerplate {
		prompt := &survey.Input{Message: "Backend URL:", Default: cfg.Generate.BackendURL}
		if err := survey.AskOne(prompt, &cfg.Generate.BackendURL, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	}
	return nil
}

func validateIndent(ans interface{}) error {
	s, _ := ans.(string)
	if s == "tab" {
		return nil
	}
	if n, err := strconv.Atoi(s); err != nil || n < 1 || n > 16 {
		return fmt.Errorf("enter 'tab' or a number between 1 and 16")
	}
	return nil
}
