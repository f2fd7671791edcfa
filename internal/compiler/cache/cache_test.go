package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/choreo-dev/mediate/internal/compiler/ast"
)

func TestHashContent(t *testing.T) {
	empty := HashContent(nil)
	if empty != "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Errorf("HashContent(nil) = %s", empty)
	}

	if HashString("service") != HashContent([]byte("service")) {
		t.Error("HashString and HashContent disagree")
	}
	if HashString("a") == HashString("b") {
		t.Error("different content produced the same hash")
	}
}

func TestModuleCache_Lookup(t *testing.T) {
	mc := NewModuleCache()
	module := &ast.Module{Source: "service / on ep {}"}
	hash := HashString(module.Source)

	mc.Set("file:///svc.bal", module, hash)

	got, ok := mc.Lookup("file:///svc.bal", hash)
	if !ok || got != module {
		t.Fatalf("Lookup() = %v, %v; want cached module", got, ok)
	}

	if _, ok := mc.Lookup("file:///svc.bal", HashString("changed")); ok {
		t.Error("Lookup() hit for a stale hash")
	}
	if _, ok := mc.Lookup("file:///other.bal", hash); ok {
		t.Error("Lookup() hit for an unknown URL")
	}
}

func TestModuleCache_Invalidate(t *testing.T) {
	mc := NewModuleCache()
	mc.Set("a", &ast.Module{}, "1")
	mc.Set("b", &ast.Module{}, "2")

	mc.Invalidate("a")

	if mc.Size() != 1 {
		t.Errorf("Size() = %d, want 1", mc.Size())
	}
	if _, ok := mc.Get("a"); ok {
		t.Error("Get() found an invalidated entry")
	}
}

func TestModuleCache_Prune(t *testing.T) {
	mc := NewModuleCache()
	mc.Set("old", &ast.Module{}, "1")
	mc.entries["old"].CachedAt = time.Now().Add(-time.Hour)
	mc.Set("new", &ast.Module{}, "2")

	if pruned := mc.Prune(time.Minute); pruned != 1 {
		t.Errorf("Prune() = %d, want 1", pruned)
	}
	if _, ok := mc.Get("new"); !ok {
		t.Error("Prune() removed a fresh entry")
	}
}

func TestModuleCache_Concurrent(t *testing.T) {
	mc := NewModuleCache()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			URL := string(rune('a' + i))
			mc.Set(URL, &ast.Module{}, URL)
			mc.Lookup(URL, URL)
		}(i)
	}
	wg.Wait()

	if mc.Size() != 16 {
		t.Errorf("Size() = %d, want 16", mc.Size())
	}
}
