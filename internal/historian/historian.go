package historian

import (
	"context"

	"evo/internal/logging"
)

// Historian ties the persistence Store to the version-control
// Checkpointer, implementing record(attrs) from spec.md §4.10:
// persist first, then checkpoint. A checkpoint failure is logged but
// does not fail the cycle (§7 propagation policy) — the database row,
// which already reflects the live state, is the source of truth.
type Historian struct {
	store        *Store
	checkpointer *Checkpointer
	evolvableDir string
}

// New builds a Historian over store, checkpointing evolvableDir
// relative to the workspace root.
func New(store *Store, workspaceRoot, evolvableDir string) *Historian {
	return &Historian{
		store:        store,
		checkpointer: NewCheckpointer(workspaceRoot),
		evolvableDir: evolvableDir,
	}
}

// Record persists rec and then checkpoints. The checkpoint's failure
// is logged and swallowed; the persisted row stands regardless.
func (h *Historian) Record(ctx context.Context, rec GenerationRecord) error {
	if err := h.store.Insert(ctx, rec); err != nil {
		return err
	}

	if err := h.checkpointer.Checkpoint(ctx, h.evolvableDir, rec); err != nil {
		logging.Historian("generation=%d checkpoint failed: %v", rec.GenerationNumber, err)
	}

	return nil
}

// Recent proxies Store.Recent for the dashboard's status() surface.
func (h *Historian) Recent(ctx context.Context, limit int) ([]GenerationRecord, error) {
	return h.store.Recent(ctx, limit)
}

// Latest proxies Store.Latest, letting the Evolver resume its
// generation counter across a process restart.
func (h *Historian) Latest(ctx context.Context) (int, error) {
	return h.store.Latest(ctx)
}

// LatestAcceptedHashes proxies Store.LatestAcceptedHashes, letting the
// Applier skip a rebuild on boot when nothing has changed since the
// last accepted generation.
func (h *Historian) LatestAcceptedHashes(ctx context.Context) (map[string]string, error) {
	return h.store.LatestAcceptedHashes(ctx)
}

// Close closes the underlying store.
func (h *Historian) Close() error {
	return h.store.Close()
}
