package artifact

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"
)

// APIFile is the name of the operation descriptor inside an API artifact
const APIFile = "api.yaml"

// apiDocument mirrors the parts of api.yaml the generator reads
type apiDocument struct {
	Data struct {
		Name       string       `yaml:"name"`
		Version    string       `yaml:"version"`
		Context    string       `yaml:"context"`
		Operations []*Operation `yaml:"operations"`
	} `yaml:"data"`
}

// Loader reads operation tables through an afs storage service
type Loader struct {
	fs afs.Service
}

// NewLoader creates a loader. A nil fs uses the default afs service.
func NewLoader(fs afs.Service) *Loader {
	if fs == nil {
		fs = afs.New()
	}
	return &Loader{fs: fs}
}

// LoadURL loads the table from an api.yaml file or from the api.yaml entry
// of a zipped API artifact
func (l *Loader) LoadURL(ctx context.Context, URL string) (Table, error) {
	data, err := l.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to read API artifact %s: %w", URL, err)
	}

	if strings.HasSuffix(strings.ToLower(URL), ".zip") {
		data, err = extractAPIFile(data)
		if err != nil {
			return nil, fmt.Errorf("failed to read API artifact %s: %w", URL, err)
		}
	}

	table, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", URL, err)
	}
	return table, nil
}

// Parse decodes api.yaml content into a table. Unknown fields are ignored.
func Parse(data []byte) (Table, error) {
	var doc apiDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", APIFile, err)
	}

	ops := make([]*Operation, 0, len(doc.Data.Operations))
	for i, op := range doc.Data.Operations {
		if op == nil {
			continue
		}
		if op.Verb == "" || op.Target == "" {
			return nil, fmt.Errorf("operation %d (%q) needs both verb and target", i, op.ID)
		}
		ops = append(ops, op)
	}

	return NewTable(ops)
}

// extractAPIFile returns the first archive entry named api.yaml
func extractAPIFile(data []byte) ([]byte, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() || path.Base(entry.Name) != APIFile {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return nil, err
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		return content, err
	}

	return nil, fmt.Errorf("'%s' file not found in the API artifact", APIFile)
}
