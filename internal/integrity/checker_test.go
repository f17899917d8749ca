package integrity

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mnemod/mnemod/internal/rollup"
	"github.com/mnemod/mnemod/internal/storage/bank"
	"github.com/mnemod/mnemod/pkg/types"
)

type fixture struct {
	checker *Checker
	store   *bank.MemoryStore
	periods *bank.PeriodStore
	states  *bank.StateStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	store, err := bank.OpenMemoryStore(filepath.Join(dir, "memories.jsonl"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	periods := bank.NewPeriodStore(filepath.Join(dir, "periods"))
	states := bank.NewStateStore(filepath.Join(dir, "state.json"))
	return &fixture{
		checker: New(store, periods, states, zap.NewNop()),
		store:   store,
		periods: periods,
		states:  states,
	}
}

func addMemory(t *testing.T, f *fixture, content string) string {
	t.Helper()
	obj := &types.MemoryObject{
		ID:         uuid.NewString(),
		Content:    content,
		Category:   types.CategorySemantic,
		Importance: 5,
		Timestamp:  time.Now().UTC(),
		Status:     types.StatusActive,
	}
	require.NoError(t, f.store.Append(context.Background(), obj))
	return obj.ID
}

func TestCheck_CleanWorkspace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	addMemory(t, f, "works at the observatory")
	require.NoError(t, f.periods.Append(ctx, types.LevelWeekly, "2026-W07",
		rollup.Marker(types.LevelDaily, "2026-02-09")+"\n\n## 2026-02-09\n\nsummary\n"))
	require.NoError(t, f.states.Save(ctx, &types.RollupState{LastDailyPeriod: "2026-02-09"}))

	report, err := f.checker.Check(ctx)
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Empty(t, report.Issues)
	assert.Equal(t, 1, report.MemoriesChecked)
}

func TestCheck_WatermarkWithoutMarker(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Watermark says 2026-02-09 rolled up, but the weekly document never
	// received its section.
	require.NoError(t, f.states.Save(ctx, &types.RollupState{LastDailyPeriod: "2026-02-09"}))

	report, err := f.checker.Check(ctx)
	require.NoError(t, err)
	assert.False(t, report.OK())
	require.Len(t, report.Issues, 1)
	assert.Contains(t, report.Issues[0].Message, "lacks its rollup section")
}

func TestCheck_SupersessionLinkResolves(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	oldID := addMemory(t, f, "old fact")
	newID := addMemory(t, f, "new fact")
	require.NoError(t, f.store.Supersede(ctx, oldID, newID))

	report, err := f.checker.Check(ctx)
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, 2, report.MemoriesChecked)
}

func TestCheck_DuplicateActiveContent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	addMemory(t, f, "the same fact twice")
	addMemory(t, f, "the same fact twice")

	report, err := f.checker.Check(ctx)
	require.NoError(t, err)
	assert.True(t, report.OK(), "duplicate content is a warning, not an error")
	require.Len(t, report.Issues, 1)
	assert.Equal(t, SeverityWarning, report.Issues[0].Severity)
	assert.Contains(t, report.Issues[0].Message, "identical content")
}

func TestCheck_EmptyWorkspace(t *testing.T) {
	f := newFixture(t)

	report, err := f.checker.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Zero(t, report.MemoriesChecked)
}
