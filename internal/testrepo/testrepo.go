// Package testrepo locates the repository root from within a test
// binary, so packages that resolve evolvable/ paths via
// internal/registry can point at real fixture files regardless of the
// working directory `go test` was invoked from.
package testrepo

import (
	"path/filepath"
	"runtime"
)

// Root returns the absolute path to the repository root (the directory
// containing go.mod), derived from this file's own location.
func Root() string {
	_, thisFile, _, _ := runtime.Caller(0)
	// this file lives at <root>/internal/testrepo/testrepo.go
	return filepath.Join(filepath.Dir(thisFile), "..", "..")
}
