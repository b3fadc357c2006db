// Package registry implements the Evolvable Registry (spec.md §4.1): the
// fixed, build-time-known set of targets Evo is permitted to rewrite.
package registry

import (
	"path/filepath"
	"sync"
)

// Target is an opaque identifier for one evolvable unit.
type Target struct {
	// Name is the target's stable short name, e.g. "sorter".
	Name string
}

// evolvableRoot is the directory containing the evolvable surface's
// source files, relative to root. Only used to derive read paths; the
// write path used by the Applier is an independent hardcoded table
// (spec.md §4.1, §4.9).
const evolvableRoot = "evolvable"

var (
	rootMu sync.RWMutex
	root   = "."
)

// SetRoot configures the workspace root that SourcePath/TestPath
// resolve against. Must be called once at startup (or once per test)
// before any path is derived; defaults to "." (the process's working
// directory) if never called.
func SetRoot(workspaceRoot string) {
	rootMu.Lock()
	defer rootMu.Unlock()
	root = workspaceRoot
}

func getRoot() string {
	rootMu.RLock()
	defer rootMu.RUnlock()
	return root
}

// Root returns the configured workspace root, for components (like the
// Validator's Gate 5 staging area) that need to resolve paths relative
// to it but aren't themselves deriving a Target's source/test path.
func Root() string { return getRoot() }

// all is the fixed, ordered list of evolvable targets. Order matters:
// Select's round-robin depends on it, and it must never change at
// runtime (spec.md §1 Non-goals: "arbitrary-module evolution"). These
// are small, self-contained functions in the evolvable/ package — never
// Evo's own pipeline code, which is not part of the evolvable surface.
var all = []Target{
	{Name: "sorter"},
	{Name: "reducer"},
	{Name: "formatter"},
}

// All returns the fixed list of targets in stable order.
func All() []Target {
	out := make([]Target, len(all))
	copy(out, all)
	return out
}

// Select returns all()[generation mod len(all())] (spec.md invariant
// #1: Select(g) == Select(g+N) where N = len(All())).
func Select(generation int) Target {
	n := len(all)
	idx := generation % n
	if idx < 0 {
		idx += n
	}
	return all[idx]
}

// SourcePath returns the read-only path to a target's current source.
// Trusted for reads only — never used to derive a write destination.
func SourcePath(t Target) string {
	return filepath.Join(getRoot(), evolvableRoot, t.Name+".go")
}

// TestPath returns the path to a target's test file.
func TestPath(t Target) string {
	return filepath.Join(getRoot(), evolvableRoot, t.Name+"_test.go")
}
