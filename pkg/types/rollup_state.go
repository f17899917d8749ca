package types

import (
	"fmt"
	"time"
)

// RollupState is the singleton watermark record for a workspace. Each
// watermark names the last period successfully rolled up at that level; a
// watermark only advances after the destination narrative append and all
// memory bank writes for the period are durable. State persistence is the
// final step of every rollup, so a crash before it results in a safe retry
// rather than a duplicate.
type RollupState struct {
	// LastDailyPeriod is the ISO date of the last rolled-up daily document.
	LastDailyPeriod string `json:"last_daily_period,omitempty"`

	// LastWeeklyPeriod is the ISO year-week of the last rolled-up week.
	LastWeeklyPeriod string `json:"last_weekly_period,omitempty"`

	// LastMonthlyPeriod is the year-month of the last rolled-up month.
	LastMonthlyPeriod string `json:"last_monthly_period,omitempty"`

	// LastAnnualPeriod is the year of the last rolled-up annual document.
	LastAnnualPeriod string `json:"last_annual_period,omitempty"`

	// LastSummarizedSession is the id of the last raw session appended to
	// a daily document. Prevents double-ingestion within a day.
	LastSummarizedSession string `json:"last_summarized_session,omitempty"`

	// UpdatedAt records when the state was last persisted.
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Watermark returns the watermark key for the given level, or "" when that
// level has never been rolled up.
func (s *RollupState) Watermark(level Level) string {
	switch level {
	case LevelDaily:
		return s.LastDailyPeriod
	case LevelWeekly:
		return s.LastWeeklyPeriod
	case LevelMonthly:
		return s.LastMonthlyPeriod
	case LevelAnnual:
		return s.LastAnnualPeriod
	default:
		return ""
	}
}

// SetWatermark advances the watermark for the given level.
func (s *RollupState) SetWatermark(level Level, key string) {
	switch level {
	case LevelDaily:
		s.LastDailyPeriod = key
	case LevelWeekly:
		s.LastWeeklyPeriod = key
	case LevelMonthly:
		s.LastMonthlyPeriod = key
	case LevelAnnual:
		s.LastAnnualPeriod = key
	}
}

// Validate checks that every set watermark parses as a period key at its
// level. A failing state record indicates corruption and must not be
// silently defaulted.
func (s *RollupState) Validate() error {
	for _, level := range ValidLevels {
		key := s.Watermark(level)
		if key == "" {
			continue
		}
		if _, err := ParseKey(level, key); err != nil {
			return fmt.Errorf("rollup state: %s watermark: %w", level, err)
		}
	}
	return nil
}
