// Package validator implements the Validator (spec.md §4.8): a
// five-gate safety pipeline that decides whether a Proposal's candidate
// source is safe to apply. Gates run in order and short-circuit on the
// first failure; gate order is load-bearing — static analysis always
// precedes execution of the candidate.
package validator

import (
	"context"
	"go/parser"
	"go/token"
	"os"

	"evo/internal/evoerr"
	"evo/internal/logging"
	"evo/internal/registry"
)

// Gate2Report carries the AST allowlist walk's findings, including the
// safety score supplemented beyond spec.md's pass/fail contract (§10).
type Gate2Report struct {
	Violations []string
	Score      float64
}

// Validator runs the five gates against a candidate.
type Validator struct{}

// New constructs a Validator. It holds no state — every gate is a pure
// function of its inputs.
func New() *Validator {
	return &Validator{}
}

// Validate runs all five gates against newSource for target, given its
// current on-disk oldSource. Returns the Gate 2 report on success (§10);
// on any gate's failure returns the corresponding evoerr value and emits
// the completion telemetry event described in spec.md §4.8's closing
// paragraph.
func (v *Validator) Validate(ctx context.Context, target registry.Target, oldSource, newSource string) (*Gate2Report, error) {
	// Gate 1 — size limit.
	changed, limit := sizeDiff(oldSource, newSource)
	if changed > limit {
		v.emitTelemetry(target, false, false)
		return nil, &evoerr.TooManyChanges{Changed: changed, Cap: limit}
	}

	// Gate 2 — AST allowlist walk.
	violations, score, err := gate2AST(newSource)
	if err != nil {
		v.emitTelemetry(target, false, false)
		return nil, &evoerr.ASTParseFailed{Why: err}
	}
	if len(violations) > 0 {
		v.emitTelemetry(target, false, false)
		return nil, &evoerr.UnsafeCode{Violations: violations}
	}
	report := &Gate2Report{Violations: violations, Score: score}

	// Gate 3 — module-level side-effect scan. Re-parse to get the *ast.File
	// (Gate 2's walk didn't need to retain it).
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "candidate.go", newSource, parser.ParseComments)
	if err != nil {
		v.emitTelemetry(target, false, false)
		return nil, &evoerr.ASTParseFailed{Why: err}
	}
	if n := moduleLevelSideEffects(file); n > 0 {
		v.emitTelemetry(target, false, false)
		return nil, &evoerr.ModuleLevelSideEffects{Count: n}
	}

	// Gate 4 — compilation (in-memory type-check).
	if err := typeCheck(fset, file); err != nil {
		v.emitTelemetry(target, false, false)
		return nil, &evoerr.CompilationFailed{Message: err.Error()}
	}

	// Gate 5 — test execution.
	testSource, err := os.ReadFile(registry.TestPath(target))
	if err != nil {
		v.emitTelemetry(target, true, false)
		return nil, &evoerr.ReadFailed{Path: registry.TestPath(target), Why: err}
	}
	output, passed, spawnErr := runTests(ctx, registry.Root(), target.Name, newSource, string(testSource))
	if spawnErr != nil {
		v.emitTelemetry(target, true, false)
		return nil, &evoerr.TestExecutionFailed{Why: spawnErr}
	}
	if !passed {
		v.emitTelemetry(target, true, false)
		return nil, &evoerr.TestsFailed{Output: output}
	}

	v.emitTelemetry(target, true, true)
	return report, nil
}

func (v *Validator) emitTelemetry(target registry.Target, compiled, testsPassed bool) {
	logging.Validator("target=%s compiled=%t tests_passed=%t", target.Name, compiled, testsPassed)
}
