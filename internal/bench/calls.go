package bench

import "evo/evolvable"

// defaultSort, defaultSum and defaultFormat bind the representative
// calls to the current evolvable package build. When the Applier
// hot-reloads a target via plugin.Open, it re-points these indirections
// at the freshly loaded symbol so the Benchmarker's second run measures
// the newly applied code, not the process's original build.
func defaultSort(xs []int) []int          { return evolvable.Sort(xs) }
func defaultSum(xs []int) int             { return evolvable.Sum(xs) }
func defaultFormat(parts []string) string { return evolvable.Format(parts) }

// RebindSort points the sorter target's representative call at a
// freshly hot-reloaded symbol. Called by the Applier after a successful
// apply/rollback so the next benchmark run observes new_source
// semantics (spec.md §4.9's reload contract).
func RebindSort(fn func([]int) []int) { sortCall = fn }

// RebindSum is RebindSort's analogue for the reducer target.
func RebindSum(fn func([]int) int) { sumCall = fn }

// RebindFormat is RebindSort's analogue for the formatter target.
func RebindFormat(fn func([]string) string) { formatCall = fn }
