package policy

import (
	"context"
	"fmt"
)

// Strategy discovers the callables of a package. One strategy is chosen at
// setup and used for every package of a run.
type Strategy interface {
	// Name identifies the strategy in configuration and logs
	Name() string
	// Resolve inspects the package and returns its callables
	Resolve(ctx context.Context, src Source, id PackageID) (*Package, error)
}

const (
	// StrategyMetadata reads policy-meta.json
	StrategyMetadata = "metadata"
	// StrategySymbols scans sources for annotated public functions
	StrategySymbols = "symbols"
)

// NewStrategy returns the strategy registered under name. builtinOrg is the
// organization of the policy_validator module used by the symbols strategy.
func NewStrategy(name, builtinOrg string) (Strategy, error) {
	switch name {
	case StrategyMetadata, "":
		return &MetadataStrategy{}, nil
	case StrategySymbols:
		if builtinOrg == "" {
			return nil, fmt.Errorf("strategy %q requires policy.org", StrategySymbols)
		}
		return NewSymbolStrategy(builtinOrg), nil
	default:
		return nil, fmt.Errorf("unknown policy strategy %q (want %s or %s)", name, StrategyMetadata, StrategySymbols)
	}
}
