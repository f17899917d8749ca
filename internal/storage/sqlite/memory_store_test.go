package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemod/mnemod/internal/storage"
	"github.com/mnemod/mnemod/pkg/types"
)

func openTestStore(t *testing.T) *MemoryStore {
	t.Helper()
	s, err := NewMemoryStore(filepath.Join(t.TempDir(), "mnemod.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testMemory(id string, importance int) *types.MemoryObject {
	return &types.MemoryObject{
		ID:         id,
		Content:    "The user switched to a standing desk.",
		Category:   types.CategorySemantic,
		Importance: importance,
		Tags:       map[string][]string{types.FacetDomain: {"workspace"}},
		Timestamp:  time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC),
		Status:     types.StatusActive,
	}
}

func TestSQLiteMemoryStore_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	obj := testMemory("m1", 7)
	obj.ConsolidatedFrom = []string{"older-1"}
	require.NoError(t, s.Append(ctx, obj))

	got, err := s.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, obj.Content, got.Content)
	assert.Equal(t, obj.Tags, got.Tags)
	assert.Equal(t, []string{"older-1"}, got.ConsolidatedFrom)
	assert.True(t, obj.Timestamp.Equal(got.Timestamp))
}

func TestSQLiteMemoryStore_DuplicateID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, testMemory("m1", 5)))
	assert.ErrorIs(t, s.Append(ctx, testMemory("m1", 5)), storage.ErrInvalidInput)
}

func TestSQLiteMemoryStore_SupersedeLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, testMemory("old", 5)))
	require.NoError(t, s.Append(ctx, testMemory("new", 6)))
	require.NoError(t, s.Supersede(ctx, "old", "new"))

	old, err := s.Get(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, types.StatusSuperseded, old.Status)
	assert.Equal(t, "new", old.SupersededBy)

	active, err := s.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "new", active[0].ID)

	assert.ErrorIs(t, s.Supersede(ctx, "old", "new"), storage.ErrInvalidTransition)
}

func TestSQLiteMemoryStore_IncrementAccess(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, testMemory("m1", 8)))

	at := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.IncrementAccess(ctx, "m1", at))
	require.NoError(t, s.IncrementAccess(ctx, "m1", at.Add(time.Hour)))

	got, err := s.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.AccessCount)
	require.NotNil(t, got.LastAccessed)
	assert.True(t, got.LastAccessed.Equal(at.Add(time.Hour)))
}

func TestSQLiteMemoryStore_ListOrderAndStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Append(ctx, testMemory(id, 5)))
	}
	require.NoError(t, s.Archive(ctx, "b"))

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].ID)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.ByStatus[types.StatusActive])
	assert.Equal(t, 1, stats.ByStatus[types.StatusArchived])
}
