package evolvable

// Sum reduces xs to their total. Trivial by design — the interesting
// part is not the algorithm but that it is representative enough for
// the Benchmarker's 100-iteration timing to be stable across rewrites.
func Sum(xs []int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total
}
