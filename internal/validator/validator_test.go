package validator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evo/internal/evoerr"
	"evo/internal/registry"
	"evo/internal/testrepo"
)

const sorterOld = `package evolvable

func Sort(xs []int) []int {
	out := make([]int, len(xs))
	copy(out, xs)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
`

const sorterTest = `package evolvable

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortMatchesStandardLibrary(t *testing.T) {
	xs := []int{5, 3, 1, 4, 2}
	got := Sort(xs)
	want := append([]int(nil), xs...)
	sort.Ints(want)
	assert.Equal(t, want, got)
}
`

// setupFixture points the registry at the real module root (not an
// ad-hoc t.TempDir()) since Gate 5 stages and runs `go test .` expecting
// to resolve third-party test deps like testify from the real
// go.mod/go.sum (gate5.go's runTests), which only works inside the
// module tree. It overwrites evolvable/sorter.go and
// evolvable/sorter_test.go for the duration of the test and restores
// their original contents on cleanup, mirroring
// applier_test.go's TestApplyAndRollbackRoundTrip snapshot/restore.
func setupFixture(t *testing.T) registry.Target {
	t.Helper()
	root := testrepo.Root()
	registry.SetRoot(root)
	t.Cleanup(func() { registry.SetRoot(".") })

	dir := filepath.Join(root, "evolvable")
	sourcePath := filepath.Join(dir, "sorter.go")
	testPath := filepath.Join(dir, "sorter_test.go")

	originalSource, err := os.ReadFile(sourcePath)
	require.NoError(t, err)
	originalTest, err := os.ReadFile(testPath)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, os.WriteFile(sourcePath, originalSource, 0o644))
		require.NoError(t, os.WriteFile(testPath, originalTest, 0o644))
		os.RemoveAll(filepath.Join(root, ".evo", "validate"))
	})

	require.NoError(t, os.WriteFile(sourcePath, []byte(sorterOld), 0o644))
	require.NoError(t, os.WriteFile(testPath, []byte(sorterTest), 0o644))
	return registry.Target{Name: "sorter"}
}

func TestValidateAcceptsSlightlyShorterEquivalentSource(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping Gate 5's go test . round-trip in short mode")
	}
	target := setupFixture(t)

	newSource := `package evolvable

func Sort(xs []int) []int {
	out := make([]int, len(xs))
	copy(out, xs)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}`

	v := New()
	report, err := v.Validate(context.Background(), target, sorterOld, newSource)
	require.NoError(t, err)
	assert.NotNil(t, report)
	assert.Equal(t, 1.0, report.Score)
}

func TestValidateRejectsOversizeChange(t *testing.T) {
	target := setupFixture(t)

	huge := "package evolvable\n\nfunc Sort(xs []int) []int {\n"
	for i := 0; i < 120; i++ {
		huge += "\t_ = 0\n"
	}
	huge += "\treturn xs\n}\n"

	v := New()
	_, err := v.Validate(context.Background(), target, sorterOld, huge)
	var tooMany *evoerr.TooManyChanges
	require.ErrorAs(t, err, &tooMany)
}

func TestValidateRejectsDisallowedImport(t *testing.T) {
	target := setupFixture(t)

	unsafeSrc := `package evolvable

import "os/exec"

func Sort(xs []int) []int {
	exec.Command("rm", "-rf", "/").Run()
	return xs
}
`
	v := New()
	_, err := v.Validate(context.Background(), target, sorterOld, unsafeSrc)
	var unsafe *evoerr.UnsafeCode
	require.ErrorAs(t, err, &unsafe)
}

func TestValidateRejectsBannedBareCall(t *testing.T) {
	target := setupFixture(t)

	panicky := `package evolvable

func Sort(xs []int) []int {
	panic("not implemented")
}
`
	v := New()
	_, err := v.Validate(context.Background(), target, sorterOld, panicky)
	var unsafe *evoerr.UnsafeCode
	require.ErrorAs(t, err, &unsafe)
}

func TestValidateRejectsInitFunction(t *testing.T) {
	target := setupFixture(t)

	withInit := `package evolvable

func init() {}

func Sort(xs []int) []int {
	return xs
}
`
	v := New()
	_, err := v.Validate(context.Background(), target, sorterOld, withInit)
	var sideEffect *evoerr.ModuleLevelSideEffects
	require.ErrorAs(t, err, &sideEffect)
}

func TestValidateRejectsTopLevelCallInitializer(t *testing.T) {
	target := setupFixture(t)

	withTopLevelCall := `package evolvable

var seed = computeSeed()

func computeSeed() int { return 42 }

func Sort(xs []int) []int {
	return xs
}
`
	v := New()
	_, err := v.Validate(context.Background(), target, sorterOld, withTopLevelCall)
	var sideEffect *evoerr.ModuleLevelSideEffects
	require.ErrorAs(t, err, &sideEffect)
}

func TestValidateRejectsUnparseableSource(t *testing.T) {
	target := setupFixture(t)

	v := New()
	_, err := v.Validate(context.Background(), target, sorterOld, sorterOld+"not valid go {{{\n")
	var parseErr *evoerr.ASTParseFailed
	require.ErrorAs(t, err, &parseErr)
}

func TestValidateRejectsCompileFailure(t *testing.T) {
	target := setupFixture(t)

	bad := `package evolvable

func Sort(xs []int) []int {
	return "not an int slice"
}
`
	v := New()
	_, err := v.Validate(context.Background(), target, sorterOld, bad)
	var compileErr *evoerr.CompilationFailed
	require.ErrorAs(t, err, &compileErr)
}

func TestValidateRejectsFailingTests(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping Gate 5's go test . round-trip in short mode")
	}
	target := setupFixture(t)

	broken := `package evolvable

func Sort(xs []int) []int {
	return xs
}
`
	v := New()
	_, err := v.Validate(context.Background(), target, sorterOld, broken)
	var testsFailed *evoerr.TestsFailed
	require.ErrorAs(t, err, &testsFailed)
}
