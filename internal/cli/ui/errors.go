// Package ui renders CLI output: errors, summaries and tables
package ui

import (
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/choreo-dev/mediate/internal/compiler/errors"
)

// ErrorLevel represents the severity of a message
type ErrorLevel int

const (
	ErrorLevelError ErrorLevel = iota
	ErrorLevelWarning
	ErrorLevelInfo
)

// ErrorOptions configures message formatting
type ErrorOptions struct {
	Level        ErrorLevel
	Context      string
	Problem      string
	Details      []string
	Suggestions  []string
	HelpCommands []string
	NoColor      bool
}

// FormatError creates a message with suggestions and help commands
//
// Example output:
//
//	❌ GENERATION FAILED: Policy package 'choreo/auth:1.0.0' could not be loaded
//
//	   Did you mean: choreo/oauth?
//
//	   → Inspect a policy: mediate policy inspect choreo/auth:1.0.0
func FormatError(opts ErrorOptions) string {
	var b strings.Builder

	headerColor, bodyColor, symbol := levelStyle(opts.Level)
	if opts.NoColor {
		headerColor.DisableColor()
		bodyColor.DisableColor()
	}

	if opts.Context != "" {
		headerColor.Fprintf(&b, "%s %s: %s\n", symbol, strings.ToUpper(opts.Context), opts.Problem)
	} else {
		headerColor.Fprintf(&b, "%s %s\n", symbol, opts.Problem)
	}

	if len(opts.Details) > 0 {
		b.WriteString("\n")
		for _, detail := range opts.Details {
			for _, line := range strings.Split(strings.TrimRight(detail, "\n"), "\n") {
				bodyColor.Fprintf(&b, "   %s\n", line)
			}
		}
	}

	if len(opts.Suggestions) > 0 {
		b.WriteString("\n")
		yellow := color.New(color.FgYellow)
		if opts.NoColor {
			yellow.DisableColor()
		}
		yellow.Fprintf(&b, "   Did you mean: %s?\n", strings.Join(opts.Suggestions, ", "))
	}

	if len(opts.HelpCommands) > 0 {
		b.WriteString("\n")
		cyan := color.New(color.FgCyan)
		if opts.NoColor {
			cyan.DisableColor()
		}
		for _, cmd := range opts.HelpCommands {
			cyan.Fprintf(&b, "   → %s\n", cmd)
		}
	}

	return b.String()
}

func levelStyle(level ErrorLevel) (header, body *color.Color, symbol string) {
	switch level {
	case ErrorLevelWarning:
		return color.New(color.FgYellow, color.Bold), color.New(color.FgYellow), "⚠️"
	case ErrorLevelInfo:
		return color.New(color.FgCyan, color.Bold), color.New(color.FgCyan), "ℹ️"
	default:
		return color.New(color.FgRed, color.Bold), color.New(color.FgRed), "❌"
	}
}

// WriteError writes a formatted message to w
func WriteError(w io.Writer, opts ErrorOptions) {
	fmt.Fprint(w, FormatError(opts))
}

// GenerationError formats a failed generation run. Compiler errors are
// expanded with their location, source line and suggestion.
func GenerationError(err error, noColor bool) string {
	opts := ErrorOptions{
		Level:   ErrorLevelError,
		Context: "GENERATION FAILED",
		NoColor: noColor,
		HelpCommands: []string{
			"Inspect a policy: mediate policy inspect <org>/<name>:<version>",
			"Get help: mediate generate --help",
		},
	}

	var list errors.ErrorList
	if stderrors.As(err, &list) && len(list) > 0 {
		opts.Problem = fmt.Sprintf("%d error(s) in %s", list.Count(errors.SeverityError), fileOf(list[0]))
		for _, ce := range list {
			opts.Details = append(opts.Details, errors.FormatError(ce))
		}
		return FormatError(opts)
	}

	if ce, ok := errors.AsCompilerError(err); ok {
		opts.Problem = ce.Message
		opts.Details = []string{errors.FormatError(ce)}
		return FormatError(opts)
	}

	opts.Problem = err.Error()
	return FormatError(opts)
}

func fileOf(ce *errors.CompilerError) string {
	if ce.File == "" {
		return "<source>"
	}
	return ce.File
}

// FormatSuccess creates a success message
func FormatSuccess(message string, noColor bool) string {
	green := color.New(color.FgGreen, color.Bold)
	if noColor {
		green.DisableColor()
	}
	return green.Sprintf("✓ %s", message)
}

// WriteSuccess writes a success message to w
func WriteSuccess(w io.Writer, message string, noColor bool) {
	fmt.Fprintln(w, FormatSuccess(message, noColor))
}

// ConfigError formats a configuration problem
func ConfigError(message string, noColor bool) string {
	return FormatError(ErrorOptions{
		Level:   ErrorLevelError,
		Context: "CONFIGURATION ERROR",
		Problem: message,
		HelpCommands: []string{
			"View config: cat mediate.yml",
			"Override with the environment: MEDIATE_POLICY_ORG=<org>",
		},
		NoColor: noColor,
	})
}

// Warning formats a warning
func Warning(message string, suggestions []string, noColor bool) string {
	return FormatError(ErrorOptions{
		Level:       ErrorLevelWarning,
		Problem:     message,
		Suggestions: suggestions,
		NoColor:     noColor,
	})
}

// Info formats an informational message
func Info(message string, noColor bool) string {
	return FormatError(ErrorOptions{
		Level:   ErrorLevelInfo,
		Problem: message,
		NoColor: noColor,
	})
}
