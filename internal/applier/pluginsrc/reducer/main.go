// Package main is a plugin build unit for the reducer target; see
// pluginsrc/sorter for the pattern this mirrors.
package main

import "evo/evolvable"

func main() {}

// SumFn is the symbol the Applier's plugin loader resolves.
var SumFn = evolvable.Sum
