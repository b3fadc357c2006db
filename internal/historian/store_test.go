package historian

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "evo.db")
	s, err := NewStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreInsertAndRecent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		rec := GenerationRecord{
			GenerationNumber: i,
			TargetName:       "sorter",
			Status:           "accepted",
			FitnessScore:     0.1 * float64(i),
			ModelTag:         "cheap",
			TokensIn:         10,
			TokensOut:        20,
			Reasoning:        "improved loop bound",
			OldSource:        "old",
			NewSource:        "new",
		}
		require.NoError(t, s.Insert(ctx, rec))
	}

	recent, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, 3, recent[0].GenerationNumber)
	assert.Equal(t, 2, recent[1].GenerationNumber)
}

func TestStoreRecentDefaultsLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, GenerationRecord{GenerationNumber: 1, TargetName: "sorter", Status: "accepted"}))

	recent, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestStoreLatestEmptyIsZero(t *testing.T) {
	s := newTestStore(t)
	n, err := s.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestStoreLatestReturnsMax(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, GenerationRecord{GenerationNumber: 1, TargetName: "sorter", Status: "accepted"}))
	require.NoError(t, s.Insert(ctx, GenerationRecord{GenerationNumber: 5, TargetName: "reducer", Status: "rejected_regression"}))

	n, err := s.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestStoreInsertRejectsDuplicateGenerationNumber(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, GenerationRecord{GenerationNumber: 1, TargetName: "sorter", Status: "accepted"}))
	err := s.Insert(ctx, GenerationRecord{GenerationNumber: 1, TargetName: "reducer", Status: "accepted"})
	assert.Error(t, err)
}

func TestStoreLatestAcceptedHashesPicksMostRecentPerTarget(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, GenerationRecord{GenerationNumber: 1, TargetName: "sorter", Status: "accepted", ArtifactHash: "hash-sorter-1"}))
	require.NoError(t, s.Insert(ctx, GenerationRecord{GenerationNumber: 2, TargetName: "sorter", Status: "rejected_regression", ArtifactHash: "hash-sorter-rejected"}))
	require.NoError(t, s.Insert(ctx, GenerationRecord{GenerationNumber: 3, TargetName: "sorter", Status: "accepted_neutral", ArtifactHash: "hash-sorter-3"}))
	require.NoError(t, s.Insert(ctx, GenerationRecord{GenerationNumber: 4, TargetName: "reducer", Status: "accepted", ArtifactHash: "hash-reducer-4"}))
	require.NoError(t, s.Insert(ctx, GenerationRecord{GenerationNumber: 5, TargetName: "formatter", Status: "error", ArtifactHash: ""}))

	hashes, err := s.LatestAcceptedHashes(ctx)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"sorter":  "hash-sorter-3",
		"reducer": "hash-reducer-4",
	}, hashes)
	assert.NotContains(t, hashes, "formatter")
}

func TestStoreLatestAcceptedHashesEmptyWhenNoneAccepted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, GenerationRecord{GenerationNumber: 1, TargetName: "sorter", Status: "rejected_validation"}))

	hashes, err := s.LatestAcceptedHashes(ctx)
	require.NoError(t, err)
	assert.Empty(t, hashes)
}
