// Package evolver implements the Evolver (spec.md §4.11): the
// orchestrator actor that runs the measure → propose → validate →
// apply → measure → decide cycle and serializes pause/resume/run_once
// against its own timer, mirroring the teacher's Orchestrator
// (internal/autopoiesis/autopoiesis_orchestrator.go) — a single
// mutex-guarded struct coordinating sub-components — generalized from
// its 6-stage tool-generation loop to Evo's fixed cycle shape.
package evolver

import (
	"context"
	"os"
	"sync"
	"time"

	"evo/internal/applier"
	"evo/internal/budget"
	"evo/internal/evoerr"
	"evo/internal/fitness"
	"evo/internal/historian"
	"evo/internal/logging"
	"evo/internal/proposer"
	"evo/internal/registry"
	"evo/internal/router"
	"evo/internal/validator"
)

// Status (spec.md §3 Generation Record / §4.11's status() contract).
const (
	StatusError              = "error"
	StatusRejectedValidation = "rejected_validation"
	StatusRejectedRegression = "rejected_regression"
	StatusAccepted           = "accepted"
	StatusAcceptedNeutral    = "accepted_neutral"
)

// cycleDeadline bounds one run_once call (spec.md §5: "run_once at the
// dashboard layer has a deadline (5 min)").
const cycleDeadline = 5 * time.Minute

// Result captures the outcome of one cycle, for status() and for the
// dashboard's "last result" field.
type Result struct {
	GenerationNumber int
	Target           string
	Status           string
	FitnessScore     float64
}

// Status is the Evolver's status() snapshot (spec.md §4.11).
type Status struct {
	Generation  int
	Running     bool
	IntervalMs  int64
	AcceptRate  float64
	LastResult  *Result
}

// Bencher, Proposer, Validator, Applier and Historian are the narrow
// interfaces run_once's cycle touches besides the Evolver's own state,
// keeping this package decoupled from anything beyond what a cycle needs.
type Bencher interface {
	Run(ctx context.Context, target registry.Target) (map[string]float64, error)
}

type Proposer interface {
	Propose(ctx context.Context, target registry.Target, benchmarks map[string]float64) (*proposer.Proposal, error)
}

type Validator interface {
	Validate(ctx context.Context, target registry.Target, oldSource, newSource string) (*validator.Gate2Report, error)
}

type Applier interface {
	Apply(ctx context.Context, target registry.Target, newSource string) (*applier.Result, error)
	Rollback(ctx context.Context, target registry.Target, oldSource string) (*applier.Result, error)
}

type Historian interface {
	Record(ctx context.Context, rec historian.GenerationRecord) error
}

// Evolver is the orchestrator actor. All mutable state is guarded by
// mu; run_once, pause, resume, and the timer callback all take it
// before touching generation/running/timer.
type Evolver struct {
	mu sync.Mutex

	// cycleMu serializes runCycle end-to-end: the orchestration cycle
	// is sequential by design (spec.md §5 — "no concurrent
	// generations"), so a manual run_once and a timer-driven tick must
	// never execute their cycles in parallel, even though mu itself is
	// only held briefly around state reads/writes.
	cycleMu sync.Mutex

	bencher    Bencher
	proposer   Proposer
	validator  Validator
	applier    Applier
	historian  Historian
	evaluator  *fitness.Evaluator
	router     *router.Router
	budget     *budget.Tracker

	generation int
	running    bool
	interval   time.Duration
	timer      *time.Timer

	cyclesRun    int
	cyclesAccept int
	lastResult   *Result
}

// Config bundles the Evolver's wired dependencies and starting state.
type Config struct {
	Bencher    Bencher
	Proposer   Proposer
	Validator  Validator
	Applier    Applier
	Historian  Historian
	Evaluator  *fitness.Evaluator
	Router     *router.Router
	Budget     *budget.Tracker
	Interval   time.Duration
	StartAt    int  // generation counter to resume at (historian.Latest + 1)
	AutoStart  bool // spec.md §6 auto_start config, default off
}

// New builds an Evolver from cfg. If AutoStart is set, the timer is
// armed immediately.
func New(cfg Config) *Evolver {
	e := &Evolver{
		bencher:    cfg.Bencher,
		proposer:   cfg.Proposer,
		validator:  cfg.Validator,
		applier:    cfg.Applier,
		historian:  cfg.Historian,
		evaluator:  cfg.Evaluator,
		router:     cfg.Router,
		budget:     cfg.Budget,
		generation: cfg.StartAt,
		interval:   cfg.Interval,
	}
	if cfg.AutoStart {
		e.Resume()
	}
	return e
}

// RunOnce executes one cycle synchronously regardless of running
// (spec.md §4.11), bounded by cycleDeadline.
func (e *Evolver) RunOnce(ctx context.Context) Result {
	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, cycleDeadline)
	defer cancel()

	e.mu.Lock()
	target := registry.Select(e.generation)
	gen := e.generation
	e.mu.Unlock()

	result := e.runCycle(ctx, gen, target)

	e.mu.Lock()
	e.generation++
	e.cyclesRun++
	if result.Status == StatusAccepted || result.Status == StatusAcceptedNeutral {
		e.cyclesAccept++
	}
	e.lastResult = &result
	e.mu.Unlock()

	return result
}

// runCycle implements spec.md §4.11's cycle body. It never mutates
// Evolver state directly — generation/counters are updated by the
// caller under mu — so it can be called without holding the lock while
// the (potentially slow) Proposer/Validator/Applier/Bencher calls run.
func (e *Evolver) runCycle(ctx context.Context, gen int, target registry.Target) Result {
	before, err := e.bencher.Run(ctx, target)
	if err != nil {
		e.router.ReportFailure(errLabel(err))
		return e.recordError(ctx, gen, target, "")
	}

	oldSource := sourceOf(target)

	prop, err := e.proposer.Propose(ctx, target, before)
	if err != nil {
		e.router.ReportFailure(errLabel(err))
		return e.recordError(ctx, gen, target, oldSource)
	}

	if _, err := e.validator.Validate(ctx, target, oldSource, prop.NewSource); err != nil {
		e.router.ReportFailure(errLabel(err))
		return e.finish(ctx, gen, target, StatusRejectedValidation, 0, oldSource, "", prop)
	}

	applyResult, err := e.applier.Apply(ctx, target, prop.NewSource)
	if err != nil {
		e.router.ReportFailure(errLabel(err))
		return e.finish(ctx, gen, target, StatusError, 0, oldSource, "", prop)
	}

	after, err := e.bencher.Run(ctx, target)
	if err != nil {
		e.router.ReportFailure(errLabel(err))
		return e.finish(ctx, gen, target, StatusError, 0, oldSource, applyResult.ArtifactHash, prop)
	}

	verdict := e.evaluator.Evaluate(before, after)

	switch verdict.Label {
	case fitness.Improved:
		e.router.ReportSuccess()
		return e.finish(ctx, gen, target, StatusAccepted, verdict.Score, oldSource, applyResult.ArtifactHash, prop)
	case fitness.Neutral:
		e.router.ReportSuccess()
		return e.finish(ctx, gen, target, StatusAcceptedNeutral, verdict.Score, oldSource, applyResult.ArtifactHash, prop)
	default:
		rollbackHash := applyResult.ArtifactHash
		if rbResult, rbErr := e.applier.Rollback(ctx, target, oldSource); rbErr != nil {
			logging.Evolver("generation=%d target=%s rollback failed: %v", gen, target.Name, rbErr)
		} else {
			rollbackHash = rbResult.ArtifactHash
		}
		e.router.ReportFailure("fitness regression")
		return e.finish(ctx, gen, target, StatusRejectedRegression, verdict.Score, oldSource, rollbackHash, prop)
	}
}

func (e *Evolver) recordError(ctx context.Context, gen int, target registry.Target, oldSource string) Result {
	rec := historian.GenerationRecord{
		GenerationNumber: gen,
		TargetName:       target.Name,
		Status:           StatusError,
		OldSource:        oldSource,
	}
	if err := e.historian.Record(ctx, rec); err != nil {
		logging.Evolver("generation=%d historian record failed: %v", gen, err)
	}
	return Result{GenerationNumber: gen, Target: target.Name, Status: StatusError}
}

func (e *Evolver) finish(ctx context.Context, gen int, target registry.Target, status string, score float64, oldSource, artifactHash string, prop *proposer.Proposal) Result {
	rec := historian.GenerationRecord{
		GenerationNumber: gen,
		TargetName:       target.Name,
		Status:           status,
		FitnessScore:     score,
		ModelTag:         prop.Model,
		TokensIn:         prop.TokensIn,
		TokensOut:        prop.TokensOut,
		Reasoning:        prop.Reasoning,
		OldSource:        oldSource,
		NewSource:        prop.NewSource,
		ArtifactHash:     artifactHash,
	}
	if err := e.historian.Record(ctx, rec); err != nil {
		logging.Evolver("generation=%d historian record failed: %v", gen, err)
	}
	return Result{GenerationNumber: gen, Target: target.Name, Status: status, FitnessScore: score}
}

func sourceOf(target registry.Target) string {
	data, err := os.ReadFile(registry.SourcePath(target))
	if err != nil {
		return ""
	}
	return string(data)
}

func errLabel(err error) string {
	switch err.(type) {
	case *evoerr.BudgetExhausted:
		return "budget_exhausted"
	case *evoerr.MissingAPIKey:
		return "missing_api_key"
	case *evoerr.APIError:
		return "api_error"
	default:
		return "propose_or_validate_failed"
	}
}

// Pause cancels any armed timer and sets running = false (spec.md
// §4.11). Only the next scheduled tick is cancelled — an in-flight
// RunOnce, called directly, is never interrupted.
func (e *Evolver) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.running = false
}

// Resume sets running = true and arms the timer.
func (e *Evolver) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = true
	e.armLocked()
}

// SetInterval updates the cycle interval in place — used by a live
// config reload (internal/config.Watcher) to pick up an edited evo.yaml
// without restarting the daemon. If the timer is currently armed it is
// re-armed against the new interval; a paused Evolver just remembers
// the new value for the next Resume.
func (e *Evolver) SetInterval(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.interval = d
	if e.running {
		e.armLocked()
	}
}

func (e *Evolver) armLocked() {
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(e.interval, e.onTick)
}

// onTick fires on the timer's own goroutine: if running, executes one
// cycle then re-arms; if paused in the meantime, it's a no-op.
func (e *Evolver) onTick() {
	e.mu.Lock()
	running := e.running
	e.mu.Unlock()
	if !running {
		return
	}

	e.RunOnce(context.Background())

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		e.armLocked()
	}
}

// Status returns a snapshot of the Evolver's state (spec.md §4.11).
func (e *Evolver) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	var rate float64
	if e.cyclesRun > 0 {
		rate = float64(e.cyclesAccept) / float64(e.cyclesRun)
	}
	return Status{
		Generation: e.generation,
		Running:    e.running,
		IntervalMs: e.interval.Milliseconds(),
		AcceptRate: rate,
		LastResult: e.lastResult,
	}
}
