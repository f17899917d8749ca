package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validMemory() *MemoryObject {
	return &MemoryObject{
		ID:           "a4f7f3e2-1111-4222-8333-444455556666",
		Content:      "The user prefers morning appointments.",
		Category:     CategorySemantic,
		Importance:   6,
		Tags:         map[string][]string{FacetDomain: {"scheduling"}},
		Timestamp:    time.Date(2026, 2, 9, 8, 0, 0, 0, time.UTC),
		SourcePeriod: "2026-02-09",
		Status:       StatusActive,
	}
}

func TestMemoryObjectValidate(t *testing.T) {
	require.NoError(t, validMemory().Validate())

	tests := []struct {
		name   string
		mutate func(*MemoryObject)
	}{
		{"empty id", func(m *MemoryObject) { m.ID = "" }},
		{"empty content", func(m *MemoryObject) { m.Content = "" }},
		{"bad category", func(m *MemoryObject) { m.Category = "mystical" }},
		{"importance too low", func(m *MemoryObject) { m.Importance = 0 }},
		{"importance too high", func(m *MemoryObject) { m.Importance = 11 }},
		{"zero timestamp", func(m *MemoryObject) { m.Timestamp = time.Time{} }},
		{"bad status", func(m *MemoryObject) { m.Status = "deleted" }},
		{"negative access count", func(m *MemoryObject) { m.AccessCount = -1 }},
		{"superseded without pointer", func(m *MemoryObject) { m.Status = StatusSuperseded }},
		{"pointer without superseded", func(m *MemoryObject) { m.SupersededBy = "other" }},
		{"unknown facet", func(m *MemoryObject) { m.Tags = map[string][]string{"mood": {"happy"}} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validMemory()
			tt.mutate(m)
			assert.Error(t, m.Validate())
		})
	}
}

func TestMemoryObjectValidate_Superseded(t *testing.T) {
	m := validMemory()
	m.Status = StatusSuperseded
	m.SupersededBy = "b1b2b3b4-aaaa-4bbb-8ccc-ddddeeeeffff"
	assert.NoError(t, m.Validate())
}

func TestMemoryObjectClone_Independent(t *testing.T) {
	orig := validMemory()
	orig.ConsolidatedFrom = []string{"one"}
	now := time.Now().UTC()
	orig.LastAccessed = &now

	clone := orig.Clone()
	clone.Tags[FacetDomain][0] = "other"
	clone.ConsolidatedFrom[0] = "two"
	*clone.LastAccessed = clone.LastAccessed.Add(time.Hour)

	assert.Equal(t, "scheduling", orig.Tags[FacetDomain][0])
	assert.Equal(t, "one", orig.ConsolidatedFrom[0])
	assert.Equal(t, now, *orig.LastAccessed)
}
