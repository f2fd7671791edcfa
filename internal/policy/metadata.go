package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
)

// MetadataFile describes the callables of a package by role
const MetadataFile = "policy-meta.json"

// MetadataStrategy reads callables from policy-meta.json:
//
//	{"inflow": {"name": "addHeader"}, "outflow": {...}, "faultflow": {...}}
//
// A package without the file, or a role without an entry, has no callable
// for that role.
type MetadataStrategy struct{}

// Name returns "metadata"
func (s *MetadataStrategy) Name() string {
	return StrategyMetadata
}

type metaEntry struct {
	Name string `json:"name"`
}

// Resolve implements Strategy
func (s *MetadataStrategy) Resolve(ctx context.Context, src Source, id PackageID) (*Package, error) {
	pkg := NewPackage(id)

	file, err := s.locate(ctx, src, id)
	if err != nil {
		return nil, err
	}
	if file == "" {
		return pkg, nil
	}

	data, err := src.ReadFile(ctx, id, file)
	if err != nil {
		return nil, err
	}

	var meta map[string]*metaEntry
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse %s of %s: %w", file, id, err)
	}

	for _, role := range Roles() {
		entry := meta[string(role)]
		if entry == nil || entry.Name == "" {
			continue
		}
		pkg.set(role, &Function{Name: entry.Name, Role: role})
	}

	return pkg, nil
}

// locate finds the shallowest metadata file; module resources may nest it
func (s *MetadataStrategy) locate(ctx context.Context, src Source, id PackageID) (string, error) {
	files, err := src.ListFiles(ctx, id, MetadataFile)
	if err != nil {
		return "", err
	}
	found := ""
	for _, f := range files {
		if path.Base(f) != MetadataFile {
			continue
		}
		if found == "" || strings.Count(f, "/") < strings.Count(found, "/") {
			found = f
		}
	}
	return found, nil
}
