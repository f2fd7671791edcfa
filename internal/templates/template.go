// Package templates holds the source snippets the generator renders: one
// invocation template per policy flow and the boilerplate appended to every
// generated service. Defaults are embedded; each can be overridden by file.
package templates

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/viant/afs"
)

//go:embed snippets/*.tmpl
var snippets embed.FS

// Snippet names
const (
	InFlow      = "inflow"
	OutFlow     = "outflow"
	FaultFlow   = "faultflow"
	Boilerplate = "boilerplate"
)

// Names lists every snippet name
func Names() []string {
	return []string{InFlow, OutFlow, FaultFlow, Boilerplate}
}

// Funcs returns the helpers available inside every snippet
func Funcs() template.FuncMap {
	return template.FuncMap{
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
		"quote": func(s string) string { return fmt.Sprintf("%q", s) },
	}
}

// Set is the collection of snippet sources used by one generator
type Set struct {
	sources map[string]string
	origins map[string]string
}

// Default returns the embedded snippets
func Default() (*Set, error) {
	s := &Set{
		sources: make(map[string]string),
		origins: make(map[string]string),
	}
	for _, name := range Names() {
		path := "snippets/" + name + ".bal.tmpl"
		data, err := snippets.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read embedded snippet %s: %w", name, err)
		}
		s.sources[name] = string(data)
		s.origins[name] = "embedded:" + path
	}
	return s, nil
}

// Get returns the source of a snippet
func (s *Set) Get(name string) (string, error) {
	src, ok := s.sources[name]
	if !ok {
		return "", fmt.Errorf("snippet %s not found", name)
	}
	return src, nil
}

// Origin reports where a snippet's source came from
func (s *Set) Origin(name string) string {
	return s.origins[name]
}

// Override replaces a snippet. The source must parse as a template.
func (s *Set) Override(name, source, origin string) error {
	if _, ok := s.sources[name]; !ok {
		return fmt.Errorf("unknown snippet %q (want one of %s)", name, strings.Join(Names(), ", "))
	}
	if _, err := template.New(name).Funcs(Funcs()).Parse(source); err != nil {
		return fmt.Errorf("invalid %s snippet from %s: %w", name, origin, err)
	}
	s.sources[name] = source
	s.origins[name] = origin
	return nil
}

// LoadOverrides reads snippet overrides keyed by snippet name from URLs.
// Empty URLs are skipped.
func (s *Set) LoadOverrides(ctx context.Context, fs afs.Service, urls map[string]string) error {
	names := make([]string, 0, len(urls))
	for name := range urls {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		URL := urls[name]
		if URL == "" {
			continue
		}
		data, err := fs.DownloadWithURL(ctx, URL)
		if err != nil {
			return fmt.Errorf("failed to read %s snippet: %w", name, err)
		}
		if err := s.Override(name, string(data), URL); err != nil {
			return err
		}
	}
	return nil
}

// BoilerplateData parameterizes the boilerplate snippet
type BoilerplateData struct {
	BackendURL  string
	ThreadError bool
}

// RenderBoilerplate renders the boilerplate appended to generated services
func (s *Set) RenderBoilerplate(data BoilerplateData) (string, error) {
	src, err := s.Get(Boilerplate)
	if err != nil {
		return "", err
	}

	tmpl, err := template.New(Boilerplate).Funcs(Funcs()).Option("missingkey=error").Parse(src)
	if err != nil {
		return "", fmt.Errorf("failed to parse boilerplate: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render boilerplate: %w", err)
	}
	return buf.String(), nil
}
