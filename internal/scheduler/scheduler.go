// Package scheduler decides which rollups are due. It is invoked
// repeatedly by an external trigger (timer, cron, HTTP); each invocation
// surfaces at most one due period per level, so a backlog after downtime
// drains one period per pass instead of exploding into a full backfill.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mnemod/mnemod/internal/liveness"
	"github.com/mnemod/mnemod/pkg/types"
)

// DueRollup pairs a rollup level with the period key to run.
type DueRollup struct {
	Level  types.Level `json:"level"`
	Period string      `json:"period"`
}

// Scheduler computes due rollups from the watermark state and the clock.
type Scheduler struct {
	probe  liveness.Probe
	logger *zap.Logger
}

// New creates a scheduler gated on the given liveness probe.
func New(probe liveness.Probe, logger *zap.Logger) *Scheduler {
	return &Scheduler{probe: probe, logger: logger}
}

// DuePeriods returns the ordered list of rollups due at now, finest level
// first so a day lands in its week before the week is condensed into its
// month. The list is empty when the user is recently active — and, because
// an uncertain probe must never lead to a state mutation, whenever the
// probe errors.
func (s *Scheduler) DuePeriods(ctx context.Context, state *types.RollupState, now time.Time) []DueRollup {
	active, err := s.probe.Active(ctx)
	if err != nil {
		s.logger.Warn("liveness probe failed, assuming active", zap.Error(err))
		return nil
	}
	if active {
		s.logger.Debug("user recently active, deferring rollups")
		return nil
	}

	var due []DueRollup

	// Daily: due when the watermark is unset or strictly older than
	// yesterday. The due period is always yesterday — the most recently
	// missed day — never a deeper backfill.
	yesterday := types.KeyFor(types.LevelDaily, now.AddDate(0, 0, -1))
	if wm := state.Watermark(types.LevelDaily); wm == "" || wm < yesterday {
		due = append(due, DueRollup{Level: types.LevelDaily, Period: yesterday})
	}

	// Weekly: gated until past the week boundary (not on Monday itself),
	// targeting the most recently completed ISO week.
	lastWeek := types.KeyFor(types.LevelWeekly, now.AddDate(0, 0, -7))
	if isoWeekday(now) > 1 {
		if wm := state.Watermark(types.LevelWeekly); wm == "" || wm < lastWeek {
			due = append(due, DueRollup{Level: types.LevelWeekly, Period: lastWeek})
		}
	}

	// Monthly: gated on day of month > 1, targeting the previous month.
	prevMonth := types.KeyFor(types.LevelMonthly, firstOfMonth(now).AddDate(0, 0, -1))
	if now.Day() > 1 {
		if wm := state.Watermark(types.LevelMonthly); wm == "" || wm < prevMonth {
			due = append(due, DueRollup{Level: types.LevelMonthly, Period: prevMonth})
		}
	}

	if len(due) > 0 {
		fields := make([]zap.Field, 0, len(due))
		for _, d := range due {
			fields = append(fields, zap.String(string(d.Level), d.Period))
		}
		s.logger.Info("rollups due", fields...)
	}
	return due
}

// isoWeekday returns the ISO weekday (Monday=1 .. Sunday=7).
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// firstOfMonth returns midnight on the first day of t's month.
func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
