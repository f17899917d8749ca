package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyFor(t *testing.T) {
	// Monday 2026-02-09 falls in ISO week 7 of 2026.
	ts := time.Date(2026, 2, 9, 15, 30, 0, 0, time.UTC)

	assert.Equal(t, "2026-02-09", KeyFor(LevelDaily, ts))
	assert.Equal(t, "2026-W07", KeyFor(LevelWeekly, ts))
	assert.Equal(t, "2026-02", KeyFor(LevelMonthly, ts))
	assert.Equal(t, "2026", KeyFor(LevelAnnual, ts))
}

func TestKeyFor_ISOWeekYearBoundary(t *testing.T) {
	// 2026-01-01 is a Thursday, so it belongs to ISO week 1 of 2026, but
	// 2027-01-01 is a Friday and belongs to ISO week 53 of 2026.
	assert.Equal(t, "2026-W01", KeyFor(LevelWeekly, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2026-W53", KeyFor(LevelWeekly, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestParseKey_RoundTrip(t *testing.T) {
	tests := []struct {
		level Level
		key   string
		start time.Time
	}{
		{LevelDaily, "2026-02-09", time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC)},
		{LevelWeekly, "2026-W07", time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC)},
		{LevelMonthly, "2026-02", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)},
		{LevelAnnual, "2026", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			start, err := ParseKey(tt.level, tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.start, start)
			// The start of a period must map back to the same key.
			assert.Equal(t, tt.key, KeyFor(tt.level, start))
		})
	}
}

func TestParseKey_Malformed(t *testing.T) {
	tests := []struct {
		level Level
		key   string
	}{
		{LevelDaily, "2026-2-9"},
		{LevelDaily, "2026-W07"},
		{LevelWeekly, "2026-02-09"},
		{LevelWeekly, "2026-W99"},
		{LevelMonthly, "2026"},
		{LevelAnnual, "26"},
		{Level("hourly"), "2026-02-09"},
	}

	for _, tt := range tests {
		_, err := ParseKey(tt.level, tt.key)
		assert.Error(t, err, "level=%s key=%s", tt.level, tt.key)
	}
}

func TestEnclosingKey(t *testing.T) {
	weekly, err := EnclosingKey(LevelDaily, LevelWeekly, "2026-02-09")
	require.NoError(t, err)
	assert.Equal(t, "2026-W07", weekly)

	monthly, err := EnclosingKey(LevelWeekly, LevelMonthly, "2026-W07")
	require.NoError(t, err)
	assert.Equal(t, "2026-02", monthly)

	annual, err := EnclosingKey(LevelMonthly, LevelAnnual, "2026-02")
	require.NoError(t, err)
	assert.Equal(t, "2026", annual)
}

func TestLevelNext(t *testing.T) {
	next, ok := LevelDaily.Next()
	require.True(t, ok)
	assert.Equal(t, LevelWeekly, next)

	_, ok = LevelAnnual.Next()
	assert.False(t, ok)
}

func TestIsoWeekStart_AlwaysMonday(t *testing.T) {
	for year := 2020; year <= 2030; year++ {
		start := isoWeekStart(year, 1)
		assert.Equal(t, time.Monday, start.Weekday(), "year %d", year)
		gotYear, gotWeek := start.ISOWeek()
		assert.Equal(t, year, gotYear)
		assert.Equal(t, 1, gotWeek)
	}
}
