package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidCategory(t *testing.T) {
	assert.True(t, IsValidCategory(CategoryEpisodic))
	assert.True(t, IsValidCategory(CategorySemantic))
	assert.True(t, IsValidCategory(CategoryProcedural))
	assert.False(t, IsValidCategory(Category("emotional")))
	assert.False(t, IsValidCategory(Category("")))
}

func TestIsValidStatusTransition(t *testing.T) {
	tests := []struct {
		name    string
		current Status
		next    Status
		want    bool
	}{
		{"active to archived", StatusActive, StatusArchived, true},
		{"active to superseded", StatusActive, StatusSuperseded, true},
		{"archived never reverts", StatusArchived, StatusActive, false},
		{"superseded never reverts", StatusSuperseded, StatusActive, false},
		{"superseded to archived", StatusSuperseded, StatusArchived, false},
		{"no self transition", StatusActive, StatusActive, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidStatusTransition(tt.current, tt.next))
		})
	}
}

func TestIsValidFacet(t *testing.T) {
	for _, facet := range ValidFacets {
		assert.True(t, IsValidFacet(facet))
	}
	assert.False(t, IsValidFacet("mood"))
}

func TestRollupStateWatermarks(t *testing.T) {
	var s RollupState

	for _, level := range ValidLevels {
		assert.Empty(t, s.Watermark(level))
	}

	s.SetWatermark(LevelDaily, "2026-02-09")
	s.SetWatermark(LevelWeekly, "2026-W06")
	assert.Equal(t, "2026-02-09", s.LastDailyPeriod)
	assert.Equal(t, "2026-W06", s.Watermark(LevelWeekly))
	assert.Empty(t, s.Watermark(LevelMonthly))
}

func TestRollupStateValidate(t *testing.T) {
	good := RollupState{
		LastDailyPeriod:  "2026-02-09",
		LastWeeklyPeriod: "2026-W06",
		LastMonthlyPeriod: "2026-01",
		LastAnnualPeriod:  "2025",
	}
	assert.NoError(t, good.Validate())

	bad := RollupState{LastWeeklyPeriod: "2026-02-09"}
	assert.Error(t, bad.Validate())
}
