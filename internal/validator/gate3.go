package validator

import (
	"go/ast"
	"go/token"
)

// moduleLevelSideEffects implements Gate 3 (spec.md §4.8): counts
// top-level declarations that would execute code as a side effect of
// compiling the candidate. Go's grammar already forbids a bare
// expression or conditional at package scope, so this gate is realized
// as: any func init() is counted outright, and any top-level var whose
// initializer contains a call expression is counted (a call in a
// package-scope var initializer runs before main, the Go analogue of
// "a bare expression at module scope").
func moduleLevelSideEffects(file *ast.File) int {
	count := 0
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if d.Recv == nil && d.Name.Name == "init" {
				count++
			}
		case *ast.GenDecl:
			if d.Tok != token.VAR {
				continue
			}
			for _, spec := range d.Specs {
				vs, ok := spec.(*ast.ValueSpec)
				if !ok {
					continue
				}
				for _, val := range vs.Values {
					if containsCall(val) {
						count++
					}
				}
			}
		default:
			count++
		}
	}
	return count
}

// containsCall reports whether expr contains a call anywhere within it,
// including inside composite literal elements.
func containsCall(expr ast.Expr) bool {
	found := false
	ast.Inspect(expr, func(n ast.Node) bool {
		if _, ok := n.(*ast.CallExpr); ok {
			found = true
			return false
		}
		return true
	})
	return found
}
