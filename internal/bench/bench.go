// Package bench implements the Benchmarker (spec.md §4.4): runs a
// representative workload against a target, producing time/memory/
// code-size metrics.
package bench

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"evo/internal/fitness"
	"evo/internal/logging"
	"evo/internal/registry"
)

// iterations is how many times the representative call is invoked to
// compute the mean per-iteration timing (spec.md §4.4: "invoke the
// closure 100 times").
const iterations = 100

// Call is a hardcoded representative invocation of one evolvable
// target's public surface with canned arguments. Registered per target
// in calls below.
type Call func()

// calls maps each target name to its representative closure. This
// table is intentionally separate from the registry so a compromised
// or rewritten target cannot redirect what gets benchmarked.
var calls = map[string]Call{
	"sorter": func() {
		xs := []int{9, 4, 7, 1, 3, 8, 2, 6, 5, 0, 12, -3, 44, 21, 7}
		_ = sortCall(xs)
	},
	"reducer": func() {
		xs := make([]int, 256)
		for i := range xs {
			xs[i] = i
		}
		_ = sumCall(xs)
	},
	"formatter": func() {
		_ = formatCall([]string{"the", "", "quick", "brown", "", "fox"})
	},
}

// The three indirections below let the Applier re-point each
// representative call at a hot-reloaded plugin symbol (RebindSort,
// RebindSum, RebindFormat in calls.go). Until a rebind they call the
// evolvable package compiled into this binary.
var (
	sortCall   = defaultSort
	sumCall    = defaultSum
	formatCall = defaultFormat
)

// Bencher runs benchmarks against evolvable targets.
type Bencher struct{}

// New creates a Bencher.
func New() *Bencher {
	return &Bencher{}
}

// Run benchmarks a target: mean per-iteration wall time over 100 calls,
// GC-delta heap growth from a single call, and the current on-disk
// source's line count (spec.md §4.4).
func (b *Bencher) Run(ctx context.Context, target registry.Target) (map[string]float64, error) {
	timer := logging.StartTimer(logging.CategoryBench, "Run:"+target.Name)
	defer timer.Stop()

	call, ok := calls[target.Name]
	if !ok {
		return nil, fmt.Errorf("no representative call registered for target %q", target.Name)
	}

	// memoryDeltaBytes depends on being the only thing invoking call
	// while it measures — running it concurrently with the timing loop
	// would attribute the timing loop's own allocations to its delta.
	// These two measurements are run one at a time, deliberately, rather
	// than wrapped in a single-slot worker pool: there is no concurrency
	// to manage here, just a context check between two sequential steps.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	timeUS := timeMeanMicros(call, iterations)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	memBytes := memoryDeltaBytes(call)

	lines, err := countLines(registry.SourcePath(target))
	if err != nil {
		return nil, err
	}

	return map[string]float64{
		fitness.MetricExecutionTimeUS: timeUS,
		fitness.MetricMemoryBytes:     memBytes,
		fitness.MetricCodeSizeLines:   float64(lines),
	}, nil
}

func timeMeanMicros(call Call, n int) float64 {
	start := time.Now()
	for i := 0; i < n; i++ {
		call()
	}
	elapsed := time.Since(start)
	return float64(elapsed.Microseconds()) / float64(n)
}

func memoryDeltaBytes(call Call) float64 {
	var before, after runtime.MemStats

	runtime.GC()
	runtime.ReadMemStats(&before)

	call()

	runtime.GC()
	runtime.ReadMemStats(&after)

	delta := int64(after.HeapAlloc) - int64(before.HeapAlloc)
	if delta < 0 {
		delta = 0
	}
	return float64(delta)
}

func countLines(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("count lines: %w", err)
	}
	if len(data) == 0 {
		return 0, nil
	}
	lines := 1
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	return lines, nil
}
