// Package policy resolves mediation policy packages into the callables they
// expose for each flow. Packages are read from a local repository, inspected
// by a Strategy chosen once at setup, and memoized by a Manager.
package policy

import (
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/choreo-dev/mediate/internal/compiler/ast"
	"github.com/choreo-dev/mediate/internal/compiler/errors"
)

// PackageID identifies one version of a policy package
type PackageID struct {
	Org     string `json:"org"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ParsePackageID validates a policy name of the form org/name and a
// semantic version
func ParsePackageID(name, version string) (PackageID, error) {
	parts := strings.Split(name, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return PackageID{}, errors.NewMalformedPolicyName(name)
	}

	v, err := semver.StrictNewVersion(version)
	if err != nil {
		return PackageID{}, errors.NewInvalidPolicyVersion(name, version, err)
	}

	return PackageID{Org: parts[0], Name: parts[1], Version: v.String()}, nil
}

// ModuleName returns org/name
func (id PackageID) ModuleName() string {
	return id.Org + "/" + id.Name
}

// Prefix returns the identifier generated code uses to refer to the package
func (id PackageID) Prefix() string {
	return ast.DefaultPrefix(id.Name)
}

func (id PackageID) String() string {
	return id.ModuleName() + ":" + id.Version
}
