// Package types defines the core data structures for the mnemod memory
// system: atomic memory objects, rollup watermarks, and the period keys
// used to address narrative documents at each compaction level.
package types

// Category classifies the kind of knowledge a memory object carries.
type Category string

// Memory category constants
const (
	// CategoryEpisodic marks memories of specific events and experiences.
	CategoryEpisodic Category = "episodic"

	// CategorySemantic marks general facts and knowledge.
	CategorySemantic Category = "semantic"

	// CategoryProcedural marks how-to knowledge and workflows.
	CategoryProcedural Category = "procedural"
)

// ValidCategories contains all valid memory categories.
var ValidCategories = []Category{
	CategoryEpisodic,
	CategorySemantic,
	CategoryProcedural,
}

// IsValidCategory checks whether the given category is valid.
func IsValidCategory(c Category) bool {
	for _, valid := range ValidCategories {
		if c == valid {
			return true
		}
	}
	return false
}

// Status represents the lifecycle state of a memory object.
type Status string

// Memory status constants
const (
	// StatusActive marks the current representation of a fact. Only active
	// memories participate in retrieval and consolidation.
	StatusActive Status = "active"

	// StatusArchived marks a memory retired from retrieval but retained
	// for audit.
	StatusArchived Status = "archived"

	// StatusSuperseded marks a memory replaced by a newer object via
	// consolidation. The replacement is recorded in superseded_by.
	StatusSuperseded Status = "superseded"
)

// ValidStatuses contains all valid memory statuses.
var ValidStatuses = []Status{
	StatusActive,
	StatusArchived,
	StatusSuperseded,
}

// IsValidStatus checks whether the given status is valid.
func IsValidStatus(s Status) bool {
	for _, valid := range ValidStatuses {
		if s == valid {
			return true
		}
	}
	return false
}

// IsValidStatusTransition validates lifecycle transitions. Transitions are
// one-directional: active memories may be archived or superseded; archived
// and superseded are terminal and never revert.
func IsValidStatusTransition(current, next Status) bool {
	if current == next {
		return false
	}
	switch current {
	case StatusActive:
		return next == StatusArchived || next == StatusSuperseded
	default:
		return false
	}
}

// Tag facet names recognized on memory objects. Tags map a facet to a set
// of string values, e.g. {"domain": ["health"], "entity": ["Dr. Okafor"]}.
const (
	FacetDomain    = "domain"
	FacetType      = "type"
	FacetPriority  = "priority"
	FacetEntity    = "entity"
	FacetSentiment = "sentiment"
)

// ValidFacets contains all recognized tag facet names.
var ValidFacets = []string{
	FacetDomain,
	FacetType,
	FacetPriority,
	FacetEntity,
	FacetSentiment,
}

// IsValidFacet checks whether the given facet name is recognized.
func IsValidFacet(name string) bool {
	for _, valid := range ValidFacets {
		if name == valid {
			return true
		}
	}
	return false
}

// Importance bounds for memory objects. Importance is assigned once at
// extraction time and only changes through explicit supersession.
const (
	MinImportance = 1
	MaxImportance = 10
)
