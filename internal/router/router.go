// Package router implements the Model Router actor (spec.md §4.3):
// selects between a cheap and a capable model based on consecutive
// failures, de-escalating on success.
package router

import (
	"sync"

	"evo/internal/logging"
)

const (
	// Cheap is the fixed identifier for the low-cost model.
	Cheap = "cheap"
	// Capable is the fixed identifier for the escalation model.
	Capable = "capable"
)

// State is a snapshot of the router's counters (spec.md §3 Router
// State).
type State struct {
	CurrentModel          string
	ConsecutiveFailures   int
	CheapCalls            int
	CapableCalls          int
	Escalations           int
	LastEscalationReason  string // SPEC_FULL.md §10: dashboard telemetry only
}

// Router is the Model Router actor.
type Router struct {
	mu        sync.Mutex
	state     State
	threshold int
}

// New creates a Router with the given escalation threshold (default 3
// per spec.md §6) and fixed model tags.
func New(threshold int) *Router {
	return &Router{
		state:     State{CurrentModel: Cheap},
		threshold: threshold,
	}
}

// Current returns the identifier string the Proposer should use.
func (r *Router) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.CurrentModel
}

// ReportSuccess resets consecutive_failures to 0, switches current to
// cheap, and bumps the call counter for the model that was just used
// (spec.md §4.3: "Every report_* increments the call counter for the
// currently selected model ... Switching happens after the increment").
func (r *Router) ReportSuccess() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.bumpCallCountLocked()

	wasCapable := r.state.CurrentModel == Capable
	r.state.ConsecutiveFailures = 0
	r.state.CurrentModel = Cheap
	if wasCapable {
		logging.Router("de-escalating to cheap model after success")
	}
}

// ReportFailure increments consecutive_failures; if current is cheap
// and the count reaches the escalation threshold, switches to capable
// and increments escalations.
func (r *Router) ReportFailure(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.bumpCallCountLocked()

	r.state.ConsecutiveFailures++
	if r.state.CurrentModel == Cheap && r.state.ConsecutiveFailures >= r.threshold {
		r.state.CurrentModel = Capable
		r.state.Escalations++
		r.state.LastEscalationReason = reason
		logging.Router("escalating to capable model after %d consecutive failures: %s", r.state.ConsecutiveFailures, reason)
	}
}

// bumpCallCountLocked increments the counter for whichever model is
// currently selected. Caller must hold mu.
func (r *Router) bumpCallCountLocked() {
	if r.state.CurrentModel == Cheap {
		r.state.CheapCalls++
	} else {
		r.state.CapableCalls++
	}
}

// Status returns the full state snapshot.
func (r *Router) Status() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}
