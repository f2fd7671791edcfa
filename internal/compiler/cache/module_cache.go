package cache

import (
	"sync"
	"time"

	"github.com/choreo-dev/mediate/internal/compiler/ast"
)

// CachedModule is a parsed document and the hash of the source it came from
type CachedModule struct {
	Module   *ast.Module
	Hash     string
	URL      string
	CachedAt time.Time
}

// ModuleCache maps document URLs to their last parse
type ModuleCache struct {
	entries map[string]*CachedModule
	mu      sync.RWMutex
}

// NewModuleCache creates an empty cache
func NewModuleCache() *ModuleCache {
	return &ModuleCache{entries: make(map[string]*CachedModule)}
}

// Lookup returns the module parsed from URL if its source still hashes to hash
func (mc *ModuleCache) Lookup(URL, hash string) (*ast.Module, bool) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	entry, ok := mc.entries[URL]
	if !ok || entry.Hash != hash {
		return nil, false
	}
	return entry.Module, true
}

// Get returns the entry for URL regardless of its hash
func (mc *ModuleCache) Get(URL string) (*CachedModule, bool) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	entry, ok := mc.entries[URL]
	return entry, ok
}

// Set stores the module parsed from URL
func (mc *ModuleCache) Set(URL string, module *ast.Module, hash string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.entries[URL] = &CachedModule{
		Module:   module,
		Hash:     hash,
		URL:      URL,
		CachedAt: time.Now(),
	}
}

// Invalidate drops the entry for URL
func (mc *ModuleCache) Invalidate(URL string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	delete(mc.entries, URL)
}

// Size returns the number of entries
func (mc *ModuleCache) Size() int {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	return len(mc.entries)
}

// Prune removes entries cached longer than maxAge ago and returns how many
// were removed
func (mc *ModuleCache) Prune(maxAge time.Duration) int {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := time.Now()
	pruned := 0
	for URL, entry := range mc.entries {
		if now.Sub(entry.CachedAt) > maxAge {
			delete(mc.entries, URL)
			pruned++
		}
	}
	return pruned
}
