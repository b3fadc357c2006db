package validator

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

const testExecutionTimeout = 30 * time.Second

// runTests implements Gate 5 (spec.md §4.8): stages the candidate
// source plus the target's unmodified test file into a throwaway
// directory under the workspace's module tree (so `go test` resolves
// third-party test dependencies like testify from the real go.mod/
// go.sum instead of needing network access for a standalone module),
// then runs `go test` against it in a child process — following the
// teacher's ToolCompiler.Compile pattern of writing to a temp dir and
// shelling out rather than mutating the real working tree. Returns
// combined output and whether the process exited zero; a spawn failure
// is reported separately from a nonzero exit.
func runTests(ctx context.Context, workspaceRoot, targetName, newSource, testSource string) (output string, passed bool, spawnErr error) {
	stagingRoot := filepath.Join(workspaceRoot, ".evo", "validate")
	if err := os.MkdirAll(stagingRoot, 0o755); err != nil {
		return "", false, err
	}
	tmpDir, err := os.MkdirTemp(stagingRoot, targetName+"-*")
	if err != nil {
		return "", false, err
	}
	defer os.RemoveAll(tmpDir)

	if err := os.WriteFile(filepath.Join(tmpDir, targetName+".go"), []byte(newSource), 0o644); err != nil {
		return "", false, err
	}
	if err := os.WriteFile(filepath.Join(tmpDir, targetName+"_test.go"), []byte(testSource), 0o644); err != nil {
		return "", false, err
	}

	runCtx, cancel := context.WithTimeout(ctx, testExecutionTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "go", "test", ".")
	cmd.Dir = tmpDir
	out, runErr := cmd.CombinedOutput()
	if runErr != nil {
		if _, ok := runErr.(*exec.ExitError); ok {
			return string(out), false, nil
		}
		return string(out), false, runErr
	}
	return string(out), true, nil
}
