// Package config loads mediate.yml and MEDIATE_* environment overrides
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/choreo-dev/mediate/internal/policy"
	"github.com/choreo-dev/mediate/internal/proxy"
	"github.com/choreo-dev/mediate/internal/templates"
)

// EnvPrefix prefixes environment overrides, e.g. MEDIATE_POLICY_ORG
const EnvPrefix = "MEDIATE"

// Config represents the mediate configuration
type Config struct {
	Policy    PolicyConfig    `mapstructure:"policy" yaml:"policy"`
	Generate  GenerateConfig  `mapstructure:"generate" yaml:"generate"`
	Templates TemplatesConfig `mapstructure:"templates" yaml:"templates"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

// PolicyConfig locates and inspects policy packages
type PolicyConfig struct {
	Org            string `mapstructure:"org" yaml:"org"`
	Repository     string `mapstructure:"repository" yaml:"repository"`
	Strategy       string `mapstructure:"strategy" yaml:"strategy"`
	PreloadWorkers int    `mapstructure:"preload_workers" yaml:"preload_workers"`
}

// GenerateConfig shapes the generated code
type GenerateConfig struct {
	MediationContext bool   `mapstructure:"mediation_context" yaml:"mediation_context"`
	ThreadError      bool   `mapstructure:"thread_error" yaml:"thread_error"`
	Indent           string `mapstructure:"indent" yaml:"indent"`
	BackendURL       string `mapstructure:"backend_url" yaml:"backend_url"`
	Boilerplate      bool   `mapstructure:"boilerplate" yaml:"boilerplate"`
}

// TemplatesConfig points at invocation template overrides
type TemplatesConfig struct {
	InFlow    string `mapstructure:"inflow" yaml:"inflow"`
	OutFlow   string `mapstructure:"outflow" yaml:"outflow"`
	FaultFlow string `mapstructure:"faultflow" yaml:"faultflow"`
}

// LogConfig configures logging
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	Dev   bool   `mapstructure:"dev" yaml:"dev"`
}

// Load reads the configuration. An empty path searches the working directory
// for mediate.yml or mediate.yaml; a missing file means defaults.
func Load(path string) (*Config, error) {
	return load(path, true)
}

// Default returns the defaults with MEDIATE_* overrides applied. No config
// file is read.
func Default() (*Config, error) {
	return load("", false)
}

func load(path string, readFile bool) (*Config, error) {
	v := viper.New()

	v.SetDefault("policy.org", "choreo")
	v.SetDefault("policy.repository", DefaultRepository())
	v.SetDefault("policy.strategy", policy.StrategyMetadata)
	v.SetDefault("policy.preload_workers", policy.DefaultPreloadWorkers)
	v.SetDefault("generate.mediation_context", false)
	v.SetDefault("generate.thread_error", true)
	v.SetDefault("generate.indent", "tab")
	v.SetDefault("generate.backend_url", "http://localhost:8080")
	v.SetDefault("generate.boilerplate", false)
	v.SetDefault("templates.inflow", "")
	v.SetDefault("templates.outflow", "")
	v.SetDefault("templates.faultflow", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.dev", true)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("mediate")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if readFile {
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// FileName is the configuration file searched in the working directory
const FileName = "mediate.yml"

// Save writes the configuration to path as YAML
func (c *Config) Save(path string) error {
	if err := validateConfig(c); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// DefaultRepository returns the local Ballerina home, ~/.ballerina
func DefaultRepository() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ballerina"
	}
	return filepath.Join(home, ".ballerina")
}

// IndentUnit converts generate.indent ("tab" or a number of spaces) into
// the indentation text
func (c *Config) IndentUnit() (string, error) {
	indent := strings.TrimSpace(c.Generate.Indent)
	if indent == "" || indent == "tab" || indent == "\t" {
		return "\t", nil
	}
	n, err := strconv.Atoi(indent)
	if err != nil || n < 1 || n > 16 {
		return "", fmt.Errorf("generate.indent must be 'tab' or a number of spaces between 1 and 16, got: %s", c.Generate.Indent)
	}
	return strings.Repeat(" ", n), nil
}

// TemplateOverrides maps snippet names to configured override files
func (c *Config) TemplateOverrides() map[string]string {
	overrides := make(map[string]string)
	for name, path := range map[string]string{
		templates.InFlow:    c.Templates.InFlow,
		templates.OutFlow:   c.Templates.OutFlow,
		templates.FaultFlow: c.Templates.FaultFlow,
	} {
		if path != "" {
			overrides[name] = path
		}
	}
	return overrides
}

// Proxy returns the generator configuration
func (c *Config) Proxy() (proxy.Config, error) {
	indent, err := c.IndentUnit()
	if err != nil {
		return proxy.Config{}, err
	}
	return proxy.Config{
		PolicyOrg:        c.Policy.Org,
		Repository:       c.Policy.Repository,
		Strategy:         c.Policy.Strategy,
		MediationContext: c.Generate.MediationContext,
		ThreadError:      c.Generate.ThreadError,
		Indent:           indent,
		BackendURL:       c.Generate.BackendURL,
		Boilerplate:      c.Generate.Boilerplate,
		Templates:        c.TemplateOverrides(),
		PreloadWorkers:   c.Policy.PreloadWorkers,
	}, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	switch cfg.Policy.Strategy {
	case policy.StrategyMetadata, policy.StrategySymbols:
	default:
		return fmt.Errorf("policy.strategy must be %s or %s, got: %s", policy.StrategyMetadata, policy.StrategySymbols, cfg.Policy.Strategy)
	}
	if cfg.Policy.Strategy == policy.StrategySymbols && cfg.Policy.Org == "" {
		return fmt.Errorf("policy.org is required by the %s strategy", policy.StrategySymbols)
	}
	if cfg.Generate.MediationContext && cfg.Policy.Org == "" {
		return fmt.Errorf("policy.org is required when generate.mediation_context is enabled")
	}
	if cfg.Policy.PreloadWorkers < 0 {
		return fmt.Errorf("policy.preload_workers must not be negative, got: %d", cfg.Policy.PreloadWorkers)
	}
	if _, err := cfg.IndentUnit(); err != nil {
		return err
	}
	return nil
}
