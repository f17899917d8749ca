package types

import (
	"fmt"
	"time"
)

// MemoryObject is an atomic retained fact distilled from a period's
// narrative. Objects are append-only at the storage layer: every mutation
// (access bookkeeping, supersession) is recorded as a new snapshot rather
// than an in-place rewrite, and objects are never deleted.
type MemoryObject struct {
	// ID is the unique identifier, immutable once created.
	ID string `json:"id"`

	// Content is one self-contained sentence stating the fact.
	Content string `json:"content"`

	// Category classifies the memory (episodic, semantic, procedural).
	Category Category `json:"category"`

	// Importance is an integer in [1,10], fixed at creation. It changes
	// only via supersession by a consolidated object.
	Importance int `json:"importance"`

	// Tags maps facet names (domain, type, priority, entity, sentiment)
	// to sets of string values.
	Tags map[string][]string `json:"tags,omitempty"`

	// Timestamp is the creation time, timezone-aware.
	Timestamp time.Time `json:"timestamp"`

	// AccessCount is incremented each time the object is returned by
	// retrieval. It never decreases.
	AccessCount int `json:"access_count"`

	// LastAccessed is updated alongside AccessCount.
	LastAccessed *time.Time `json:"last_accessed,omitempty"`

	// SourcePeriod is the key of the originating period document. It is a
	// weak reference; the period document is never owned by the memory.
	SourcePeriod string `json:"source_period,omitempty"`

	// ConsolidatedFrom lists, in order, the ids of memory objects merged
	// into this one. Empty unless consolidation occurred.
	ConsolidatedFrom []string `json:"consolidated_from,omitempty"`

	// SupersededBy holds the id of the newer object replacing this one.
	// Set exactly when Status is StatusSuperseded.
	SupersededBy string `json:"superseded_by,omitempty"`

	// Status is the lifecycle state (active, archived, superseded).
	Status Status `json:"status"`
}

// Validate checks the structural invariants of a memory object as read from
// storage. A failing record indicates store corruption rather than a value
// to silently default.
func (m *MemoryObject) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("memory object has empty id")
	}
	if m.Content == "" {
		return fmt.Errorf("memory %s has empty content", m.ID)
	}
	if !IsValidCategory(m.Category) {
		return fmt.Errorf("memory %s has invalid category %q", m.ID, m.Category)
	}
	if m.Importance < MinImportance || m.Importance > MaxImportance {
		return fmt.Errorf("memory %s has importance %d outside [%d,%d]",
			m.ID, m.Importance, MinImportance, MaxImportance)
	}
	if m.Timestamp.IsZero() {
		return fmt.Errorf("memory %s has zero timestamp", m.ID)
	}
	if !IsValidStatus(m.Status) {
		return fmt.Errorf("memory %s has invalid status %q", m.ID, m.Status)
	}
	if m.AccessCount < 0 {
		return fmt.Errorf("memory %s has negative access count", m.ID)
	}
	if (m.Status == StatusSuperseded) != (m.SupersededBy != "") {
		return fmt.Errorf("memory %s: superseded_by must be set exactly when status is superseded", m.ID)
	}
	for facet := range m.Tags {
		if !IsValidFacet(facet) {
			return fmt.Errorf("memory %s has unknown tag facet %q", m.ID, facet)
		}
	}
	return nil
}

// Clone returns a deep copy of the memory object. Stores hand out clones so
// callers cannot mutate indexed state behind the store's back.
func (m *MemoryObject) Clone() *MemoryObject {
	out := *m
	if m.LastAccessed != nil {
		t := *m.LastAccessed
		out.LastAccessed = &t
	}
	if m.ConsolidatedFrom != nil {
		out.ConsolidatedFrom = append([]string(nil), m.ConsolidatedFrom...)
	}
	if m.Tags != nil {
		out.Tags = make(map[string][]string, len(m.Tags))
		for facet, values := range m.Tags {
			out.Tags[facet] = append([]string(nil), values...)
		}
	}
	return &out
}
