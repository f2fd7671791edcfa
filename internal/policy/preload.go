package policy

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/choreo-dev/mediate/internal/artifact"
)

// DefaultPreloadWorkers bounds concurrent package resolution
const DefaultPreloadWorkers = 4

// Preload resolves every referenced package before generation starts so a
// pass never touches the repository. The first failure cancels the rest.
func Preload(ctx context.Context, m *Manager, refs []artifact.PolicyRef, workers int) error {
	if workers <= 0 {
		workers = DefaultPreloadWorkers
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, ref := range refs {
		ref := ref
		g.Go(func() error {
			_, err := m.Get(ctx, ref.PolicyName, ref.PolicyVersion)
			return err
		})
	}

	return g.Wait()
}
