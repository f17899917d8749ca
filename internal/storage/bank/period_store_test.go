package bank

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemod/mnemod/internal/storage"
	"github.com/mnemod/mnemod/pkg/types"
)

func TestPeriodStore_AppendCreatesWithHeader(t *testing.T) {
	s := NewPeriodStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, types.LevelDaily, "2026-02-09", "Walked to the harbor."))

	content, err := s.Read(ctx, types.LevelDaily, "2026-02-09")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(content, "# Daily log — 2026-02-09\n"))
	assert.Contains(t, content, "Walked to the harbor.")
}

func TestPeriodStore_AppendIsAppendOnly(t *testing.T) {
	s := NewPeriodStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, types.LevelWeekly, "2026-W07", "first section"))
	require.NoError(t, s.Append(ctx, types.LevelWeekly, "2026-W07", "second section"))

	content, err := s.Read(ctx, types.LevelWeekly, "2026-W07")
	require.NoError(t, err)
	first := strings.Index(content, "first section")
	second := strings.Index(content, "second section")
	require.GreaterOrEqual(t, first, 0)
	assert.Greater(t, second, first)
	// Header written exactly once.
	assert.Equal(t, 1, strings.Count(content, "# Weekly summary"))
}

func TestPeriodStore_ReadMissing(t *testing.T) {
	s := NewPeriodStore(t.TempDir())

	_, err := s.Read(context.Background(), types.LevelDaily, "2026-02-09")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPeriodStore_RejectsMalformedKey(t *testing.T) {
	s := NewPeriodStore(t.TempDir())
	ctx := context.Background()

	err := s.Append(ctx, types.LevelDaily, "../escape", "content")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	err = s.Append(ctx, types.LevelWeekly, "2026-02-09", "content")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestPeriodStore_Contains(t *testing.T) {
	s := NewPeriodStore(t.TempDir())
	ctx := context.Background()

	marker := "<!-- rollup:daily:2026-02-09 -->"

	found, err := s.Contains(ctx, types.LevelWeekly, "2026-W07", marker)
	require.NoError(t, err)
	assert.False(t, found, "missing document contains nothing")

	require.NoError(t, s.Append(ctx, types.LevelWeekly, "2026-W07", marker+"\nsummary text"))

	found, err = s.Contains(ctx, types.LevelWeekly, "2026-W07", marker)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestPeriodStore_Keys(t *testing.T) {
	s := NewPeriodStore(t.TempDir())
	ctx := context.Background()

	keys, err := s.Keys(ctx, types.LevelDaily)
	require.NoError(t, err)
	assert.Empty(t, keys)

	require.NoError(t, s.Append(ctx, types.LevelDaily, "2026-02-10", "b"))
	require.NoError(t, s.Append(ctx, types.LevelDaily, "2026-02-09", "a"))

	keys, err = s.Keys(ctx, types.LevelDaily)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-02-09", "2026-02-10"}, keys)
}
