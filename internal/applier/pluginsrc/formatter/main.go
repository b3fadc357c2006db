// Package main is a plugin build unit for the formatter target; see
// pluginsrc/sorter for the pattern this mirrors.
package main

import "evo/evolvable"

func main() {}

// FormatFn is the symbol the Applier's plugin loader resolves.
var FormatFn = evolvable.Format
