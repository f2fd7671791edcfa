package policy

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/viant/afs"
	"github.com/viant/afs/url"
)

// centralCache is the repository-relative location of pulled packages
const centralCache = "repositories/central.ballerina.io/bala"

// DescriptorFile is the package manifest inside a policy package
const DescriptorFile = "Ballerina.toml"

// Source gives strategies read access to the files of a package
type Source interface {
	// Exists reports whether the package is present
	Exists(ctx context.Context, id PackageID) (bool, error)
	// ReadFile reads a package-relative file
	ReadFile(ctx context.Context, id PackageID, name string) ([]byte, error)
	// ListFiles returns package-relative paths of files with the given
	// suffix, in lexical order
	ListFiles(ctx context.Context, id PackageID, suffix string) ([]string, error)
}

// Descriptor is the [package] table of Ballerina.toml
type Descriptor struct {
	Org     string `toml:"org" json:"org"`
	Name    string `toml:"name" json:"name"`
	Version string `toml:"version" json:"version"`
}

// Repository reads policy packages from a local repository laid out as
// <root>/repositories/central.ballerina.io/bala/<org>/<name>/<version>/any
type Repository struct {
	fs   afs.Service
	root string
}

// NewRepository creates a repository rooted at rootURL. A nil fs uses the
// default afs service; plain paths are treated as file URLs.
func NewRepository(fs afs.Service, rootURL string) *Repository {
	if fs == nil {
		fs = afs.New()
	}
	if !strings.Contains(rootURL, "://") {
		if abs, err := filepath.Abs(rootURL); err == nil {
			rootURL = "file://" + filepath.ToSlash(abs)
		}
	}
	return &Repository{fs: fs, root: rootURL}
}

// Root returns the repository root URL
func (r *Repository) Root() string {
	return r.root
}

// PackageURL returns the location of a package
func (r *Repository) PackageURL(id PackageID) string {
	return url.Join(r.root, centralCache, id.Org, id.Name, id.Version, "any")
}

// Exists reports whether the package directory is present
func (r *Repository) Exists(ctx context.Context, id PackageID) (bool, error) {
	return r.fs.Exists(ctx, r.PackageURL(id))
}

// ReadFile reads a package-relative file
func (r *Repository) ReadFile(ctx context.Context, id PackageID, name string) ([]byte, error) {
	data, err := r.fs.DownloadWithURL(ctx, url.Join(r.PackageURL(id), name))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from %s: %w", name, id, err)
	}
	return data, nil
}

// ListFiles walks the package and returns relative paths ending in suffix
func (r *Repository) ListFiles(ctx context.Context, id PackageID, suffix string) ([]string, error) {
	base := r.PackageURL(id)
	var files []string
	if err := r.walk(ctx, base, "", suffix, &files); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", id, err)
	}
	sort.Strings(files)
	return files, nil
}

func (r *Repository) walk(ctx context.Context, dirURL, rel, suffix string, files *[]string) error {
	objects, err := r.fs.List(ctx, dirURL)
	if err != nil {
		return err
	}

	for i, obj := range objects {
		// List reports the directory itself ahead of its children
		if sameURL(obj.URL(), dirURL) || (i == 0 && obj.IsDir() && obj.Name() == path.Base(strings.TrimRight(dirURL, "/"))) {
			continue
		}
		childRel := path.Join(rel, obj.Name())
		if obj.IsDir() {
			if err := r.walk(ctx, obj.URL(), childRel, suffix, files); err != nil {
				return err
			}
			continue
		}
		if strings.HasSuffix(obj.Name(), suffix) {
			*files = append(*files, childRel)
		}
	}
	return nil
}

// Descriptor reads Ballerina.toml. It returns nil when the package has none.
func (r *Repository) Descriptor(ctx context.Context, id PackageID) (*Descriptor, error) {
	descriptorURL := url.Join(r.PackageURL(id), DescriptorFile)
	ok, err := r.fs.Exists(ctx, descriptorURL)
	if err != nil || !ok {
		return nil, err
	}

	data, err := r.fs.DownloadWithURL(ctx, descriptorURL)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s of %s: %w", DescriptorFile, id, err)
	}
	return ParseDescriptor(data)
}

// ParseDescriptor decodes the [package] table of a Ballerina.toml
func ParseDescriptor(data []byte) (*Descriptor, error) {
	var manifest struct {
		Package Descriptor `toml:"package"`
	}
	if err := toml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", DescriptorFile, err)
	}
	return &manifest.Package, nil
}

// Matches reports whether the descriptor names the same org and package
func (d *Descriptor) Matches(id PackageID) bool {
	return d.Org == id.Org && d.Name == id.Name
}

func sameURL(a, b string) bool {
	return strings.TrimRight(a, "/") == strings.TrimRight(b, "/")
}
