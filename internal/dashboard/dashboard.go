// Package dashboard implements the thin control surface (spec.md
// §4.12): pause, resume, a rate-limited run_once, and JSON status()
// proxies for Evolver/Budget/Router/Historian. Not core — it only pins
// the contracts the Evolver must expose, translated to one handler per
// route the way the teacher's cmd/nerd/cmd_*.go files map one cobra
// command per verb.
package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"evo/internal/budget"
	"evo/internal/evolver"
	"evo/internal/historian"
	"evo/internal/router"
)

// EvolverController is the narrow slice of *evolver.Evolver the
// dashboard touches.
type EvolverController interface {
	RunOnce(ctx context.Context) evolver.Result
	Pause()
	Resume()
	Status() evolver.Status
}

// HistorianReader is the narrow slice of *historian.Historian the
// dashboard's status/recent-generations routes touch.
type HistorianReader interface {
	Recent(ctx context.Context, limit int) ([]historian.GenerationRecord, error)
}

// Dashboard serves the control-surface HTTP API.
type Dashboard struct {
	evolver   EvolverController
	budget    *budget.Tracker
	router    *router.Router
	historian HistorianReader
	cache     *RecentCache

	runOnceMinGap time.Duration

	mu           sync.Mutex
	lastRunOnce  time.Time
}

// New builds a Dashboard over the given components. runOnceMinGap is
// the minimum interval between run_once triggers (spec.md §4.12:
// "minimum 30 s between triggers").
func New(e EvolverController, b *budget.Tracker, r *router.Router, h HistorianReader, cache *RecentCache, runOnceMinGap time.Duration) *Dashboard {
	return &Dashboard{
		evolver:       e,
		budget:        b,
		router:        r,
		historian:     h,
		cache:         cache,
		runOnceMinGap: runOnceMinGap,
	}
}

// Handler builds the ServeMux wiring every route to its handler.
func (d *Dashboard) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/pause", d.handlePause)
	mux.HandleFunc("/resume", d.handleResume)
	mux.HandleFunc("/run_once", d.handleRunOnce)
	mux.HandleFunc("/status", d.handleStatus)
	mux.HandleFunc("/recent", d.handleRecent)
	return mux
}

func (d *Dashboard) handlePause(w http.ResponseWriter, r *http.Request) {
	d.evolver.Pause()
	writeJSON(w, http.StatusOK, map[string]string{"result": "paused"})
}

func (d *Dashboard) handleResume(w http.ResponseWriter, r *http.Request) {
	d.evolver.Resume()
	writeJSON(w, http.StatusOK, map[string]string{"result": "resumed"})
}

// handleRunOnce rate-limits triggers to at most one per
// runOnceMinGap (spec.md §4.12).
func (d *Dashboard) handleRunOnce(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	since := time.Since(d.lastRunOnce)
	if !d.lastRunOnce.IsZero() && since < d.runOnceMinGap {
		d.mu.Unlock()
		writeJSON(w, http.StatusTooManyRequests, map[string]string{
			"error":       "rate_limited",
			"retry_after": (d.runOnceMinGap - since).String(),
		})
		return
	}
	d.lastRunOnce = time.Now()
	d.mu.Unlock()

	result := d.evolver.RunOnce(r.Context())
	writeJSON(w, http.StatusOK, result)
}

// statusResponse bundles every component's status() for one poll
// (spec.md §4.12: a single observer polls at a fixed cadence).
type statusResponse struct {
	Evolver   evolver.Status `json:"evolver"`
	Budget    budget.Status  `json:"budget"`
	Router    router.State   `json:"router"`
}

func (d *Dashboard) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Evolver: d.evolver.Status(),
		Budget:  d.budget.Status(),
		Router:  d.router.Status(),
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleRecent serves the dashboard's own read-only recent-generations
// cache (backed by mattn/go-sqlite3, independent of the Historian's
// primary modernc.org/sqlite store) so dashboard polling never
// contends with the Evolver's write path.
func (d *Dashboard) handleRecent(w http.ResponseWriter, r *http.Request) {
	if d.cache == nil {
		records, err := d.historian.Recent(r.Context(), 20)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, records)
		return
	}

	records, err := d.cache.Recent(r.Context(), 20)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
