// Package applier implements the Applier (spec.md §4.9): writes
// accepted source to a hardcoded writable-path whitelist, hot-reloads
// the in-memory definition via a compiled plugin, and supports a
// symmetric rollback. The whitelist is independent of the Registry's
// read paths so a compromised Proposer cannot redirect writes.
package applier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"evo/internal/bench"
	"evo/internal/evoerr"
	"evo/internal/logging"
	"evo/internal/registry"
)

// Result describes a completed apply or rollback.
type Result struct {
	Target       registry.Target
	ArtifactHash string // SHA-256 of the compiled plugin .so (§10 supplemented feature)
	PluginPath   string
}

// writableTable is the sole authority for write destinations, keyed by
// target name. Never derived from a Proposal.
var writableTable = map[string]string{
	"sorter":    filepath.Join("evolvable", "sorter.go"),
	"reducer":   filepath.Join("evolvable", "reducer.go"),
	"formatter": filepath.Join("evolvable", "formatter.go"),
}

// pluginSources maps a target to the package directory that builds its
// plugin artifact, and the exported symbol name bench rebinds against.
var pluginSources = map[string]struct {
	dir    string
	symbol string
}{
	"sorter":    {dir: filepath.Join("internal", "applier", "pluginsrc", "sorter"), symbol: "SortFn"},
	"reducer":   {dir: filepath.Join("internal", "applier", "pluginsrc", "reducer"), symbol: "SumFn"},
	"formatter": {dir: filepath.Join("internal", "applier", "pluginsrc", "formatter"), symbol: "FormatFn"},
}

// Applier performs whitelisted writes and plugin-based hot reloads.
type Applier struct {
	workspaceRoot string
}

// New builds an Applier rooted at workspaceRoot.
func New(workspaceRoot string) *Applier {
	return &Applier{workspaceRoot: workspaceRoot}
}

// Apply writes newSource to target's whitelisted path and hot-reloads
// it (spec.md §4.9's apply operation).
func (a *Applier) Apply(ctx context.Context, target registry.Target, newSource string) (*Result, error) {
	return a.writeAndReload(ctx, target, newSource)
}

// Rollback writes oldSource back to target's whitelisted path and
// hot-reloads it — symmetric with Apply.
func (a *Applier) Rollback(ctx context.Context, target registry.Target, oldSource string) (*Result, error) {
	result, err := a.writeAndReload(ctx, target, oldSource)
	if err == nil {
		logging.Applier("target=%s rolled back", target.Name)
	}
	return result, err
}

func (a *Applier) writeAndReload(ctx context.Context, target registry.Target, source string) (*Result, error) {
	absPath, err := a.whitelistedPath(target)
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(absPath, []byte(source), 0o644); err != nil {
		return nil, &evoerr.WriteFailed{Path: absPath, Why: err}
	}

	pluginPath, hash, err := a.buildAndLoad(ctx, target)
	if err != nil {
		return nil, err
	}

	logging.Applier("target=%s reloaded artifact=%s hash=%s", target.Name, pluginPath, hash)
	return &Result{Target: target, ArtifactHash: hash, PluginPath: pluginPath}, nil
}

// whitelistedPath resolves target's write destination and asserts it
// survives the path-traversal sanity check (spec.md §4.9).
func (a *Applier) whitelistedPath(target registry.Target) (string, error) {
	rel, ok := writableTable[target.Name]
	if !ok {
		return "", &evoerr.ModuleNotInWhitelist{Target: target.Name}
	}

	absPath, err := filepath.Abs(filepath.Join(a.workspaceRoot, rel))
	if err != nil {
		return "", &evoerr.PathTraversalBlocked{Path: rel}
	}
	if !strings.Contains(absPath, "evolvable") {
		return "", &evoerr.PathTraversalBlocked{Path: absPath}
	}
	return absPath, nil
}

// RestoreAll rebuilds and reloads every registered target's plugin from
// its current on-disk source (§10 supplemented feature, grounded on the
// teacher's RuntimeRegistry.Restore): a process restart loses every
// in-memory rebinding, so without this the running binary would observe
// whatever was compiled in at build time rather than the last-applied
// generation.
//
// latestHash maps a target name to the ArtifactHash of its last
// accepted GenerationRecord (the caller reads this from the Historian).
// If the target's already-compiled .evo/plugins/<name>.so on disk
// hashes to the same value, it is loaded as-is rather than rebuilt —
// avoiding an unnecessary `go build` for every target on every boot
// when nothing has changed since the last accepted generation.
func (a *Applier) RestoreAll(ctx context.Context, latestHash map[string]string) error {
	for _, target := range registry.All() {
		if err := a.restoreOne(ctx, target, latestHash[target.Name]); err != nil {
			return fmt.Errorf("restore %s: %w", target.Name, err)
		}
	}
	return nil
}

func (a *Applier) restoreOne(ctx context.Context, target registry.Target, wantHash string) error {
	src, ok := pluginSources[target.Name]
	if !ok {
		return &evoerr.ModuleNotInWhitelist{Target: target.Name}
	}
	outPath := filepath.Join(a.workspaceRoot, ".evo", "plugins", target.Name+".so")

	if wantHash != "" {
		if existingHash, err := hashFile(outPath); err == nil && existingHash == wantHash {
			if loadErr := loadAndRebind(target, src.symbol, outPath); loadErr == nil {
				logging.Applier("target=%s restored from existing artifact hash=%s (rebuild skipped)", target.Name, existingHash)
				return nil
			}
			logging.Applier("target=%s existing artifact failed to load, rebuilding", target.Name)
		}
	}

	if _, _, err := a.buildAndLoad(ctx, target); err != nil {
		return err
	}
	logging.Applier("target=%s restored from disk on boot (rebuilt)", target.Name)
	return nil
}

func hashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// rebind dispatches the freshly loaded symbol to the right bench hook.
// Kept as a small switch rather than a registry of closures — there are
// exactly three targets and the set is fixed at compile time.
func rebind(target registry.Target, symbol interface{}) error {
	switch target.Name {
	case "sorter":
		fn, ok := symbol.(*func([]int) []int)
		if !ok {
			return fmt.Errorf("unexpected symbol type for sorter")
		}
		bench.RebindSort(*fn)
	case "reducer":
		fn, ok := symbol.(*func([]int) int)
		if !ok {
			return fmt.Errorf("unexpected symbol type for reducer")
		}
		bench.RebindSum(*fn)
	case "formatter":
		fn, ok := symbol.(*func([]string) string)
		if !ok {
			return fmt.Errorf("unexpected symbol type for formatter")
		}
		bench.RebindFormat(*fn)
	default:
		return &evoerr.ModuleNotInWhitelist{Target: target.Name}
	}
	return nil
}
