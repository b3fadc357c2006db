// Package evoerr defines the tagged error values that cross component
// boundaries in Evo. Nothing in the evolution pipeline panics or throws
// across a boundary; every failure is one of the kinds below, checked
// with errors.As at the call site.
package evoerr

import "fmt"

// ReadFailed wraps a failure reading a target's on-disk source.
type ReadFailed struct {
	Path string
	Why  error
}

func (e *ReadFailed) Error() string {
	return fmt.Sprintf("read failed: %s: %v", e.Path, e.Why)
}
func (e *ReadFailed) Unwrap() error { return e.Why }

// BudgetExhausted means the token budget has no remaining room and the
// LLM was never called.
type BudgetExhausted struct{}

func (e *BudgetExhausted) Error() string { return "budget exhausted" }

// MissingAPIKey means the process was started without an API key and no
// test bypass flag was set.
type MissingAPIKey struct{}

func (e *MissingAPIKey) Error() string { return "missing api key" }

// RequestFailed wraps a transport-level failure calling the LLM.
type RequestFailed struct {
	Why error
}

func (e *RequestFailed) Error() string { return fmt.Sprintf("request failed: %v", e.Why) }
func (e *RequestFailed) Unwrap() error { return e.Why }

// APIError means the LLM endpoint responded with a non-2xx status.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.Status, e.Body)
}

// NoCodeInResponse means the LLM's reply had no extractable fenced code
// block.
type NoCodeInResponse struct{}

func (e *NoCodeInResponse) Error() string { return "no code in response" }

// TooManyChanges is Gate 1's rejection.
type TooManyChanges struct {
	Changed int
	Cap     int
}

func (e *TooManyChanges) Error() string {
	return fmt.Sprintf("too many changes: %d exceeds cap %d", e.Changed, e.Cap)
}

// ASTParseFailed is Gate 2's parse-failure rejection.
type ASTParseFailed struct {
	Why error
}

func (e *ASTParseFailed) Error() string { return fmt.Sprintf("ast parse failed: %v", e.Why) }
func (e *ASTParseFailed) Unwrap() error { return e.Why }

// UnsafeCode is Gate 2's violation-aggregate rejection.
type UnsafeCode struct {
	Violations []string
}

func (e *UnsafeCode) Error() string {
	return fmt.Sprintf("unsafe code: %v", e.Violations)
}

// ModuleLevelSideEffects is Gate 3's rejection.
type ModuleLevelSideEffects struct {
	Count int
}

func (e *ModuleLevelSideEffects) Error() string {
	return fmt.Sprintf("module level side effects: %d", e.Count)
}

// NotAModule is Gate 3's rejection when the candidate isn't a single
// well-formed module body.
type NotAModule struct{}

func (e *NotAModule) Error() string { return "not a module" }

// CompilationFailed is Gate 4's rejection.
type CompilationFailed struct {
	Message string
}

func (e *CompilationFailed) Error() string {
	return fmt.Sprintf("compilation failed: %s", e.Message)
}

// TestsFailed is Gate 5's rejection when the test binary runs but exits
// non-zero.
type TestsFailed struct {
	Output string
}

func (e *TestsFailed) Error() string { return fmt.Sprintf("tests failed:\n%s", e.Output) }

// TestExecutionFailed is Gate 5's rejection when the test process could
// not even be spawned.
type TestExecutionFailed struct {
	Why error
}

func (e *TestExecutionFailed) Error() string {
	return fmt.Sprintf("test execution failed: %v", e.Why)
}
func (e *TestExecutionFailed) Unwrap() error { return e.Why }

// ModuleNotInWhitelist means the Applier was asked to write a target
// that has no entry in the writable-path whitelist.
type ModuleNotInWhitelist struct {
	Target string
}

func (e *ModuleNotInWhitelist) Error() string {
	return fmt.Sprintf("module not in whitelist: %s", e.Target)
}

// PathTraversalBlocked means the resolved whitelist path failed the
// "contains evolvable" sanity check.
type PathTraversalBlocked struct {
	Path string
}

func (e *PathTraversalBlocked) Error() string {
	return fmt.Sprintf("path traversal blocked: %s", e.Path)
}

// WriteFailed wraps a failure writing the accepted or rolled-back
// source to disk.
type WriteFailed struct {
	Path string
	Why  error
}

func (e *WriteFailed) Error() string { return fmt.Sprintf("write failed: %s: %v", e.Path, e.Why) }
func (e *WriteFailed) Unwrap() error { return e.Why }

// ReloadFailed means the hot-reload step (compile + plugin.Open) failed
// after a successful write.
type ReloadFailed struct {
	Message string
}

func (e *ReloadFailed) Error() string { return fmt.Sprintf("reload failed: %s", e.Message) }

// GitAddFailed wraps a failed `git add`.
type GitAddFailed struct {
	Output string
}

func (e *GitAddFailed) Error() string { return fmt.Sprintf("git add failed: %s", e.Output) }

// GitCommitFailed wraps a failed `git commit`.
type GitCommitFailed struct {
	Output string
}

func (e *GitCommitFailed) Error() string { return fmt.Sprintf("git commit failed: %s", e.Output) }

// PersistenceFailed wraps a failure in the generation-record store.
type PersistenceFailed struct {
	Why error
}

func (e *PersistenceFailed) Error() string { return fmt.Sprintf("persistence failed: %v", e.Why) }
func (e *PersistenceFailed) Unwrap() error { return e.Why }
