package applier

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"plugin"
	"time"

	"evo/internal/evoerr"
	"evo/internal/registry"
)

const pluginBuildTimeout = 60 * time.Second

// buildAndLoad compiles target's plugin source (which always imports
// the live evolvable package, so it picks up whatever was just written
// to disk) and loads it via plugin.Open, rebinding the corresponding
// bench hook. This realizes spec.md §9's reload contract — "after
// apply, subsequent calls observe new_source semantics" — by making the
// loaded artifact and the type-checked candidate the same compiled
// object rather than an interpreted shadow of it.
func (a *Applier) buildAndLoad(ctx context.Context, target registry.Target) (pluginPath, hash string, err error) {
	src, ok := pluginSources[target.Name]
	if !ok {
		return "", "", &evoerr.ModuleNotInWhitelist{Target: target.Name}
	}

	outDir := filepath.Join(a.workspaceRoot, ".evo", "plugins")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", "", &evoerr.ReloadFailed{Message: err.Error()}
	}
	outPath := filepath.Join(outDir, target.Name+".so")

	buildCtx, cancel := context.WithTimeout(ctx, pluginBuildTimeout)
	defer cancel()

	cmd := exec.CommandContext(buildCtx, "go", "build", "-buildmode=plugin", "-o", outPath, "./"+src.dir)
	cmd.Dir = a.workspaceRoot
	if out, buildErr := cmd.CombinedOutput(); buildErr != nil {
		return "", "", &evoerr.ReloadFailed{Message: fmt.Sprintf("%v: %s", buildErr, out)}
	}

	if err := loadAndRebind(target, src.symbol, outPath); err != nil {
		return "", "", err
	}

	hash, err = hashFile(outPath)
	if err != nil {
		return "", "", &evoerr.ReloadFailed{Message: err.Error()}
	}
	return outPath, hash, nil
}

// loadAndRebind opens the plugin at path and rebinds target's bench
// hook to its exported symbol — the load half of buildAndLoad, factored
// out so restoreOne can reuse it without a rebuild when the on-disk
// artifact's hash already matches the last accepted generation.
func loadAndRebind(target registry.Target, symbol, path string) error {
	p, openErr := plugin.Open(path)
	if openErr != nil {
		return &evoerr.ReloadFailed{Message: openErr.Error()}
	}

	sym, lookupErr := p.Lookup(symbol)
	if lookupErr != nil {
		return &evoerr.ReloadFailed{Message: lookupErr.Error()}
	}

	if err := rebind(target, sym); err != nil {
		return &evoerr.ReloadFailed{Message: err.Error()}
	}
	return nil
}
