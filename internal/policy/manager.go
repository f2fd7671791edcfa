package policy

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/choreo-dev/mediate/internal/compiler/errors"
)

// Manager resolves policy packages and memoizes the result per PackageID.
// It is safe for concurrent use and may be shared across generation passes.
type Manager struct {
	src      Source
	strategy Strategy
	logger   *zap.Logger

	mu    sync.RWMutex
	cache map[PackageID]*Package
	group singleflight.Group
}

// descriptorReader is implemented by sources that expose Ballerina.toml
type descriptorReader interface {
	Descriptor(ctx context.Context, id PackageID) (*Descriptor, error)
}

// NewManager creates a manager over src using strategy
func NewManager(src Source, strategy Strategy, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		src:      src,
		strategy: strategy,
		logger:   logger.Named("policy"),
		cache:    make(map[PackageID]*Package),
	}
}

// Strategy returns the strategy the manager was built with
func (m *Manager) Strategy() Strategy {
	return m.strategy
}

// Get returns the package for name (org/name) and version, resolving it on
// first use
func (m *Manager) Get(ctx context.Context, name, version string) (*Package, error) {
	id, err := ParsePackageID(name, version)
	if err != nil {
		return nil, err
	}

	if pkg, ok := m.cached(id); ok {
		return pkg, nil
	}

	v, err, _ := m.group.Do(id.String(), func() (interface{}, error) {
		if pkg, ok := m.cached(id); ok {
			return pkg, nil
		}

		pkg, err := m.resolve(ctx, id)
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		m.cache[id] = pkg
		m.mu.Unlock()
		return pkg, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Package), nil
}

// Cached returns the number of resolved packages
func (m *Manager) Cached() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.cache)
}

func (m *Manager) cached(id PackageID) (*Package, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pkg, ok := m.cache[id]
	return pkg, ok
}

func (m *Manager) resolve(ctx context.Context, id PackageID) (*Package, error) {
	exists, err := m.src.Exists(ctx, id)
	if err != nil {
		return nil, errors.NewPolicyNotFound(id.String(), err)
	}
	if !exists {
		return nil, errors.NewPolicyNotFound(id.String(), nil)
	}

	pkg, err := m.strategy.Resolve(ctx, m.src, id)
	if err != nil {
		return nil, errors.NewPolicyNotFound(id.String(), err)
	}

	if dr, ok := m.src.(descriptorReader); ok {
		desc, err := dr.Descriptor(ctx, id)
		if err != nil {
			m.logger.Warn("ignoring unreadable package descriptor",
				zap.String("package", id.String()), zap.Error(err))
		} else if desc != nil {
			if !desc.Matches(id) {
				m.logger.Warn("package descriptor does not match requested package",
					zap.String("package", id.String()),
					zap.String("descriptor", desc.Org+"/"+desc.Name))
			}
			pkg.Descriptor = desc
		}
	}

	roles := make([]string, 0, len(pkg.Functions))
	for _, role := range Roles() {
		if fn, ok := pkg.Function(role); ok {
			roles = append(roles, string(role)+"="+fn.Name)
		}
	}
	m.logger.Debug("resolved policy package",
		zap.String("package", id.String()),
		zap.String("strategy", m.strategy.Name()),
		zap.Strings("callables", roles))

	return pkg, nil
}
