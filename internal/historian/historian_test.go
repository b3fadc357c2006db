package historian

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHistorian(t *testing.T) (*Historian, string) {
	t.Helper()
	root := initTestRepo(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "evolvable"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "evolvable", "sorter.go"), []byte("package evolvable\n"), 0o644))

	store, err := NewStore(filepath.Join(root, ".evo", "evo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return New(store, root, "evolvable"), root
}

func TestRecordPersistsAndCheckpoints(t *testing.T) {
	h, root := newTestHistorian(t)
	ctx := context.Background()

	rec := GenerationRecord{
		GenerationNumber: 1,
		TargetName:       "sorter",
		Status:           "accepted",
		FitnessScore:     0.2,
		ModelTag:         "cheap",
		Reasoning:        "simplified the comparison",
	}
	require.NoError(t, h.Record(ctx, rec))

	recent, err := h.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "accepted", recent[0].Status)

	cmd := exec.Command("git", "log", "--oneline")
	cmd.Dir = root
	out, err := cmd.CombinedOutput()
	require.NoError(t, err)
	assert.Contains(t, string(out), "generation 1")
}

func TestRecordSurvivesCheckpointFailure(t *testing.T) {
	// No git repo at all: checkpoint will fail (not a git repository),
	// but Record must still succeed since the row is already durable.
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "evolvable"), 0o755))

	store, err := NewStore(filepath.Join(root, ".evo", "evo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := New(store, root, "evolvable")
	rec := GenerationRecord{GenerationNumber: 1, TargetName: "sorter", Status: "error"}
	require.NoError(t, h.Record(context.Background(), rec))

	recent, err := h.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
}

func TestLatestReflectsLastRecordedGeneration(t *testing.T) {
	h, _ := newTestHistorian(t)
	ctx := context.Background()

	require.NoError(t, h.Record(ctx, GenerationRecord{GenerationNumber: 1, TargetName: "sorter", Status: "accepted"}))
	require.NoError(t, h.Record(ctx, GenerationRecord{GenerationNumber: 2, TargetName: "sorter", Status: "rejected_regression"}))

	n, err := h.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
