package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/choreo-dev/mediate/internal/cli/ui"
	"github.com/choreo-dev/mediate/internal/proxy"
	"github.com/choreo-dev/mediate/internal/watch"
)

// NewWatchCommand creates the watch command
func NewWatchCommand(flags *globalFlags) *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Regenerate the mediation service when its inputs change",
		Long: `Generate once, then watch the service skeleton, the API artifact and any
template overrides and regenerate after each change.

Policy packages are resolved once and reused across runs. Generated files
(_generated_*) are never treated as inputs.

Examples:
  mediate watch --service petstore.bal --api api.yaml
  mediate watch -s petstore.bal -a api.yaml --log-level debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := flags.load(cmd)
			if err != nil {
				return err
			}
			defer env.logger.Sync()

			for _, input := range []string{opts.service, opts.api} {
				if strings.Contains(input, "://") {
					return fmt.Errorf("watch needs local files, got %s", input)
				}
			}

			cfg, err := env.config.Proxy()
			if err != nil {
				fmt.Fprint(cmd.ErrOrStderr(), ui.ConfigError(err.Error(), env.noColor))
				return errReported
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			session := &watchSession{
				ctx:     ctx,
				config:  cfg,
				request: opts.request(),
				out:     cmd.OutOrStdout(),
				errOut:  cmd.ErrOrStderr(),
				noColor: env.noColor,
				logger:  env.logger,
			}
			if err := session.reload(); err != nil {
				fmt.Fprint(cmd.ErrOrStderr(), ui.ConfigError(err.Error(), env.noColor))
				return errReported
			}
			session.run(nil)

			watcher, err := watch.NewFileWatcher(session.inputs(opts), []string{proxy.GeneratedPrefix + "*"}, watch.DefaultDelay, session.run, env.logger)
			if err != nil {
				return err
			}
			if err := watcher.Start(); err != nil {
				return err
			}
			defer watcher.Stop()

			fmt.Fprint(cmd.OutOrStdout(), ui.Info("Watching for changes (Ctrl+C to stop)", env.noColor))
			<-ctx.Done()
			fmt.Fprintln(cmd.OutOrStdout(), "\nStopping...")
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.service, "service", "s", "", "Service skeleton (.bal) path")
	cmd.Flags().StringVarP(&opts.api, "api", "a", "", "API artifact (.yaml, .json or .zip) path")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output location (default: _generated_<service> next to the service)")
	cmd.MarkFlagRequired("service")
	cmd.MarkFlagRequired("api")
	registerCompletions(cmd)

	return cmd
}

// watchSession regenerates with one generator so policy and parse caches
// survive between runs. A changed template rebuilds the generator.
type watchSession struct {
	ctx     context.Context
	config  proxy.Config
	request proxy.Request
	out     io.Writer
	errOut  io.Writer
	noColor bool
	logger  *zap.Logger

	mu  sync.Mutex
	gen *proxy.Generator
}

// inputs lists the files whose changes trigger a run
func (s *watchSession) inputs(opts *generateOptions) []string {
	files := []string{opts.service, opts.api}
	for _, path := range s.config.Templates {
		if !strings.Contains(path, "://") {
			files = append(files, path)
		}
	}
	return files
}

func (s *watchSession) reload() error {
	gen, err := proxy.New(s.ctx, s.config, nil, s.logger)
	if err != nil {
		return err
	}
	s.gen = gen
	return nil
}

// isTemplate reports whether path is one of the configured template files
func (s *watchSession) isTemplate(path string) bool {
	for _, tmpl := range s.config.Templates {
		if abs, err := filepath.Abs(tmpl); err == nil && abs == path {
			return true
		}
	}
	return false
}

// run regenerates after changed files settled. Failures are reported and
// watching continues.
func (s *watchSession) run(changed []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, path := range changed {
		if s.isTemplate(path) {
			s.logger.Info("template changed, reloading", zap.String("file", path))
			if err := s.reload(); err != nil {
				fmt.Fprint(s.errOut, ui.ConfigError(err.Error(), s.noColor))
				return nil
			}
			break
		}
	}

	result, err := s.gen.Generate(s.ctx, s.request)
	if err != nil {
		fmt.Fprint(s.errOut, ui.GenerationError(err, s.noColor))
		return nil
	}
	writeSummary(s.out, result, s.noColor)
	return nil
}
