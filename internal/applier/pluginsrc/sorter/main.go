// Package main is a plugin build unit: it exports the sorter target's
// current implementation as a symbol the Applier resolves via
// plugin.Open after a hot reload. It is rebuilt from scratch on every
// apply/rollback, always importing whatever evolvable/sorter.go holds
// at build time.
package main

import "evo/evolvable"

func main() {}

// SortFn is the symbol the Applier's plugin loader resolves.
var SortFn = evolvable.Sort
