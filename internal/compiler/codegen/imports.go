package codegen

import (
	"sort"
	"strings"
)

// ImportSet is a deduplicated set of `org/name` module names
type ImportSet map[string]struct{}

// NewImportSet creates a set holding names
func NewImportSet(names ...string) ImportSet {
	s := make(ImportSet, len(names))
	for _, name := range names {
		s.Add(name)
	}
	return s
}

// Add inserts a module name
func (s ImportSet) Add(name string) {
	if name == "" {
		return
	}
	s[name] = struct{}{}
}

// Merge adds every name of other
func (s ImportSet) Merge(other ImportSet) {
	for name := range other {
		s[name] = struct{}{}
	}
}

// Contains reports whether name is in the set
func (s ImportSet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// Sorted returns the names in lexicographic order
func (s ImportSet) Sorted() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Without returns the names not matched by imported
func (s ImportSet) Without(imported func(string) bool) ImportSet {
	out := make(ImportSet, len(s))
	for name := range s {
		if !imported(name) {
			out[name] = struct{}{}
		}
	}
	return out
}

// Render returns one import declaration per line in lexicographic order
func (s ImportSet) Render() string {
	var sb strings.Builder
	for _, name := range s.Sorted() {
		sb.WriteString("import ")
		sb.WriteString(name)
		sb.WriteString(";\n")
	}
	return sb.String()
}
