package validator

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"

	"golang.org/x/tools/go/ast/astutil"
)

// importAllowlist is the closed set of packages a candidate rewrite may
// import. Anything not listed here is a disallowed_module violation
// (spec.md §4.8 Gate 2 — "allowlist for qualified calls"). Kept
// deliberately small: core value/collection/string utilities plus the
// concurrency primitives explicitly carved out by the spec.
var importAllowlist = map[string]bool{
	"strings":       true,
	"sort":          true,
	"math":          true,
	"strconv":       true,
	"fmt":           true,
	"errors":        true,
	"time":          true,
	"unicode":       true,
	"unicode/utf8":  true,
	"bytes":         true,
	"sync":          true,
	"sync/atomic":   true,
	"context":       true,
}

// bannedFunctionNames is the denylist for primitive short names, checked
// on every call regardless of qualifier (spec.md §4.8 Gate 2 — "banned
// function... apply, spawn, spawn_link, spawn_monitor, send, exit,
// throw, make_ref"). Translated to the Go analogues of those primitives.
var bannedFunctionNames = map[string]bool{
	"Exit":           true,
	"Command":        true,
	"CommandContext": true,
	"Remove":         true,
	"RemoveAll":      true,
	"Rename":         true,
	"Setenv":         true,
	"Chdir":          true,
	"Chmod":          true,
	"Chown":          true,
	"Dial":           true,
	"Listen":         true,
	"ListenAndServe": true,
}

// gate2AST parses and walks new_source, returning the aggregated set of
// violations (empty means the candidate passes) and the safety score
// (spec.md §10 supplemented feature, grounded on the teacher's
// SafetyChecker.calculateScore).
func gate2AST(newSource string) (violations []string, score float64, parseErr error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "candidate.go", newSource, parser.ParseComments)
	if err != nil {
		return nil, 0, err
	}

	for _, imp := range file.Imports {
		path := importPath(imp)
		if !importAllowlist[path] {
			violations = append(violations, fmt.Sprintf("disallowed_module(%s)", path))
		}
	}

	astutil.Apply(file, func(c *astutil.Cursor) bool {
		switch n := c.Node().(type) {
		case *ast.GoStmt:
			violations = append(violations, "banned_function(spawn)")
		case *ast.SendStmt:
			violations = append(violations, "banned_function(send)")
		case *ast.CallExpr:
			name := calleeName(n)
			if name == "panic" {
				violations = append(violations, "banned_function(throw)")
			} else if bannedFunctionNames[name] {
				violations = append(violations, fmt.Sprintf("banned_function(%s)", name))
			}
		}
		return true
	}, nil)

	return violations, gate2Score(violations), nil
}

func importPath(imp *ast.ImportSpec) string {
	v := imp.Path.Value
	return v[1 : len(v)-1]
}

// calleeName returns the short identifier of a call's function, whether
// bare (f()) or qualified (pkg.f()).
func calleeName(call *ast.CallExpr) string {
	switch fn := call.Fun.(type) {
	case *ast.Ident:
		return fn.Name
	case *ast.SelectorExpr:
		return fn.Sel.Name
	default:
		return ""
	}
}

// gate2Score mirrors the teacher's calculateScore: 1.0 for a clean walk,
// degraded per violation, floored at 0.
func gate2Score(violations []string) float64 {
	if len(violations) == 0 {
		return 1.0
	}
	score := 1.0 - 0.25*float64(len(violations))
	if score < 0 {
		score = 0
	}
	return score
}
