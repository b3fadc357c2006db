// Package budget implements the Token Budget actor (spec.md §4.2): a
// process-wide singleton tracking daily and lifetime token consumption
// that gates further LLM calls and auto-resets at UTC day rollover.
package budget

import (
	"math"
	"sync"
	"time"

	"evo/internal/logging"
)

// State is a snapshot of the budget's counters, safe to copy and hand
// out to callers (spec.md §3 Budget State).
type State struct {
	DailyCap       int
	TokensUsedToday int
	APICallsToday  int
	TotalTokensIn  int
	TotalTokensOut int
	LastResetDate  string // YYYY-MM-DD, UTC
}

// Status adds derived fields to State for the dashboard/status query.
type Status struct {
	State
	RemainingTokens int
	PercentUsed     float64 // rounded to one decimal
}

// Tracker is the Token Budget actor. All mutation happens behind mu, so
// concurrent callers observe strict serialization (spec.md §5).
type Tracker struct {
	mu    sync.Mutex
	state State
	stop  chan struct{}
}

// New creates a Tracker with the given daily cap and starts its hourly
// lazy-reset tick (spec.md §4.2: "A periodic tick (hourly) triggers the
// lazy reset so dashboards stay fresh even without queries").
func New(dailyCap int) *Tracker {
	t := &Tracker{
		state: State{
			DailyCap:      dailyCap,
			LastResetDate: today(),
		},
		stop: make(chan struct{}),
	}
	go t.tickLoop()
	return t
}

func today() string {
	return time.Now().UTC().Format("2006-01-02")
}

func (t *Tracker) tickLoop() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			t.mu.Lock()
			t.maybeResetLocked()
			t.mu.Unlock()
		case <-t.stop:
			return
		}
	}
}

// Stop halts the hourly tick. Safe to call once.
func (t *Tracker) Stop() {
	close(t.stop)
}

// maybeResetLocked applies the lazy midnight reset if the UTC date has
// rolled over. Caller must hold mu.
func (t *Tracker) maybeResetLocked() {
	now := today()
	if t.state.LastResetDate != now {
		t.state.TokensUsedToday = 0
		t.state.APICallsToday = 0
		t.state.LastResetDate = now
		logging.Budget("daily reset applied for %s", now)
	}
}

// HasBudget reports whether another LLM call may be made, applying the
// lazy midnight reset first (spec.md invariant #4: has_budget() is
// false iff tokens_used_today >= daily_cap, post lazy-reset).
func (t *Tracker) HasBudget() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.maybeResetLocked()
	return t.state.TokensUsedToday < t.state.DailyCap
}

// Record adds to daily and lifetime counters and bumps the call count.
func (t *Tracker) Record(tokensIn, tokensOut int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.maybeResetLocked()

	t.state.TokensUsedToday += tokensIn + tokensOut
	t.state.APICallsToday++
	t.state.TotalTokensIn += tokensIn
	t.state.TotalTokensOut += tokensOut
}

// Status returns a snapshot including remaining tokens and percentage
// used, rounded to one decimal (spec.md §4.2).
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.maybeResetLocked()

	remaining := t.state.DailyCap - t.state.TokensUsedToday
	if remaining < 0 {
		remaining = 0
	}
	var pct float64
	if t.state.DailyCap > 0 {
		pct = math.Round((float64(t.state.TokensUsedToday)/float64(t.state.DailyCap))*1000) / 10
	}
	return Status{
		State:           t.state,
		RemainingTokens: remaining,
		PercentUsed:     pct,
	}
}

// SetDailyCap updates the daily cap in place, letting an operator raise
// or lower it (e.g. via a live config reload) without restarting the
// daemon and losing today's usage counters.
func (t *Tracker) SetDailyCap(dailyCap int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.DailyCap = dailyCap
}

// Reset performs an explicit daily reset (spec.md §4.2). Idempotent:
// calling it twice in a row has the same effect as calling it once.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.TokensUsedToday = 0
	t.state.APICallsToday = 0
	t.state.LastResetDate = today()
}
