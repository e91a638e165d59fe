package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrel-run/pilot/api/schemas"
	"github.com/kestrel-run/pilot/internal/memory"
)

func TestRingStoreAppendAndRecentOrdering(t *testing.T) {
	t.Parallel()
	store := memory.NewRingStore(10)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		require.NoError(t, store.Append(ctx, "s1", memory.Entry{
			Step:   i,
			Action: schemas.Action{Type: schemas.ActionWait},
		}))
	}

	entries, err := store.Recent(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, 1, entries[0].Step)
	assert.Equal(t, 3, entries[2].Step)
}

func TestRingStoreTrimsToCapacity(t *testing.T) {
	t.Parallel()
	store := memory.NewRingStore(2)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		require.NoError(t, store.Append(ctx, "s1", memory.Entry{Step: i}))
	}

	entries, err := store.Recent(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 4, entries[0].Step)
	assert.Equal(t, 5, entries[1].Step)
}

func TestRingStoreRecentRespectsRequestedCount(t *testing.T) {
	t.Parallel()
	store := memory.NewRingStore(10)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		require.NoError(t, store.Append(ctx, "s1", memory.Entry{Step: i}))
	}

	entries, err := store.Recent(ctx, "s1", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 4, entries[0].Step)
	assert.Equal(t, 5, entries[1].Step)
}

func TestRingStoreIsolatesSessions(t *testing.T) {
	t.Parallel()
	store := memory.NewRingStore(10)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "a", memory.Entry{Step: 1}))
	require.NoError(t, store.Append(ctx, "b", memory.Entry{Step: 99}))

	entriesA, err := store.Recent(ctx, "a", 10)
	require.NoError(t, err)
	require.Len(t, entriesA, 1)
	assert.Equal(t, 1, entriesA[0].Step)
}

func TestRingStoreRecentEmptySession(t *testing.T) {
	t.Parallel()
	store := memory.NewRingStore(10)
	entries, err := store.Recent(context.Background(), "unknown", 5)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNewRingStoreDefaultsCapacity(t *testing.T) {
	t.Parallel()
	store := memory.NewRingStore(0)
	ctx := context.Background()

	for i := 1; i <= 60; i++ {
		require.NoError(t, store.Append(ctx, "s1", memory.Entry{Step: i}))
	}

	entries, err := store.Recent(ctx, "s1", 100)
	require.NoError(t, err)
	assert.Len(t, entries, 50)
}
