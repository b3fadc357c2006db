package validator

import (
	"go/ast"
	"go/importer"
	"go/token"
	"go/types"
)

// typeCheck implements Gate 4 (spec.md §4.8): in-memory compilation via
// go/types, no go build invocation and no disk write. Only the
// candidate file itself is checked; it must be self-contained modulo
// the Gate 2 import allowlist, all of which go/importer.Default()
// resolves from the standard library's export data (which the gc
// importer locates through the go command).
func typeCheck(fset *token.FileSet, file *ast.File) error {
	conf := types.Config{Importer: importer.Default()}
	_, err := conf.Check(file.Name.Name, fset, []*ast.File{file}, nil)
	return err
}
