package bank

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemod/mnemod/internal/storage"
	"github.com/mnemod/mnemod/pkg/types"
)

func TestStateStore_FirstRunYieldsEmptyState(t *testing.T) {
	s := NewStateStore(filepath.Join(t.TempDir(), "state.json"))

	state, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, state.LastDailyPeriod)
	assert.Empty(t, state.LastSummarizedSession)
}

func TestStateStore_SaveLoadRoundTrip(t *testing.T) {
	s := NewStateStore(filepath.Join(t.TempDir(), "state.json"))
	ctx := context.Background()

	state := &types.RollupState{
		LastDailyPeriod:       "2026-02-09",
		LastWeeklyPeriod:      "2026-W06",
		LastSummarizedSession: "sess-042",
	}
	require.NoError(t, s.Save(ctx, state))
	assert.False(t, state.UpdatedAt.IsZero())

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2026-02-09", loaded.LastDailyPeriod)
	assert.Equal(t, "2026-W06", loaded.LastWeeklyPeriod)
	assert.Equal(t, "sess-042", loaded.LastSummarizedSession)
}

func TestStateStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{{{"), 0o600))

	_, err := NewStateStore(path).Load(context.Background())
	assert.ErrorIs(t, err, storage.ErrCorrupt)
}

func TestStateStore_InvalidWatermarkIsCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"last_daily_period":"not-a-date"}`), 0o600))

	_, err := NewStateStore(path).Load(context.Background())
	assert.ErrorIs(t, err, storage.ErrCorrupt)
}

func TestStateStore_RejectsInvalidState(t *testing.T) {
	s := NewStateStore(filepath.Join(t.TempDir(), "state.json"))

	err := s.Save(context.Background(), &types.RollupState{LastDailyPeriod: "bogus"})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestStateStore_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	s := NewStateStore(filepath.Join(dir, "state.json"))
	require.NoError(t, s.Save(context.Background(), &types.RollupState{LastDailyPeriod: "2026-02-09"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "state.json", entries[0].Name())
}
