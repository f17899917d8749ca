package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mnemod/mnemod/internal/liveness"
	"github.com/mnemod/mnemod/pkg/types"
)

// failingProbe simulates a liveness probe that cannot be reached.
type failingProbe struct{}

func (failingProbe) Active(ctx context.Context) (bool, error) {
	return false, errors.New("probe endpoint unreachable")
}

func (failingProbe) Close() error { return nil }

func newTestScheduler(probe liveness.Probe) *Scheduler {
	return New(probe, zap.NewNop())
}

func TestDuePeriods_FirstRun(t *testing.T) {
	s := newTestScheduler(liveness.StaticProbe(false))
	// Tuesday 2026-02-10, 09:00.
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

	due := s.DuePeriods(context.Background(), &types.RollupState{}, now)
	require.Len(t, due, 3)
	assert.Equal(t, DueRollup{Level: types.LevelDaily, Period: "2026-02-09"}, due[0])
	assert.Equal(t, DueRollup{Level: types.LevelWeekly, Period: "2026-W06"}, due[1])
	assert.Equal(t, DueRollup{Level: types.LevelMonthly, Period: "2026-01"}, due[2])
}

func TestDuePeriods_UpToDate(t *testing.T) {
	s := newTestScheduler(liveness.StaticProbe(false))
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

	state := &types.RollupState{
		LastDailyPeriod:   "2026-02-09",
		LastWeeklyPeriod:  "2026-W06",
		LastMonthlyPeriod: "2026-01",
	}
	assert.Empty(t, s.DuePeriods(context.Background(), state, now))
}

func TestDuePeriods_SingleMissedPeriodPerLevel(t *testing.T) {
	s := newTestScheduler(liveness.StaticProbe(false))
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

	// A week of downtime: only the most recently missed day is surfaced,
	// not the whole backlog.
	state := &types.RollupState{
		LastDailyPeriod:   "2026-02-01",
		LastWeeklyPeriod:  "2026-W06",
		LastMonthlyPeriod: "2026-01",
	}
	due := s.DuePeriods(context.Background(), state, now)
	require.Len(t, due, 1)
	assert.Equal(t, DueRollup{Level: types.LevelDaily, Period: "2026-02-09"}, due[0])
}

func TestDuePeriods_WeeklyGatedOnMonday(t *testing.T) {
	s := newTestScheduler(liveness.StaticProbe(false))
	// Monday 2026-02-09: the new week has only just begun.
	monday := time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC)

	due := s.DuePeriods(context.Background(), &types.RollupState{
		LastDailyPeriod:   "2026-02-08",
		LastMonthlyPeriod: "2026-01",
	}, monday)
	assert.Empty(t, due, "weekly waits until past the week boundary")
}

func TestDuePeriods_MonthlyGatedOnFirstOfMonth(t *testing.T) {
	s := newTestScheduler(liveness.StaticProbe(false))
	// Sunday 2026-02-01.
	first := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	due := s.DuePeriods(context.Background(), &types.RollupState{
		LastDailyPeriod:  "2026-01-31",
		LastWeeklyPeriod: "2026-W04",
	}, first)
	for _, d := range due {
		assert.NotEqual(t, types.LevelMonthly, d.Level)
	}
}

func TestDuePeriods_UserActiveDefersEverything(t *testing.T) {
	s := newTestScheduler(liveness.StaticProbe(true))
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

	assert.Empty(t, s.DuePeriods(context.Background(), &types.RollupState{}, now))
}

func TestDuePeriods_ProbeFailureIsFailSafe(t *testing.T) {
	s := newTestScheduler(failingProbe{})
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

	assert.Empty(t, s.DuePeriods(context.Background(), &types.RollupState{}, now))
}

func TestDuePeriods_WeeklyAcrossYearBoundary(t *testing.T) {
	s := newTestScheduler(liveness.StaticProbe(false))
	// Tuesday 2027-01-05: the previous ISO week is 2026-W53.
	now := time.Date(2027, 1, 5, 9, 0, 0, 0, time.UTC)

	due := s.DuePeriods(context.Background(), &types.RollupState{
		LastDailyPeriod:   "2027-01-04",
		LastMonthlyPeriod: "2026-12",
		LastWeeklyPeriod:  "2026-W52",
	}, now)
	require.Len(t, due, 1)
	assert.Equal(t, DueRollup{Level: types.LevelWeekly, Period: "2026-W53"}, due[0])
}
