// Package storage defines the composable storage interfaces for mnemod.
//
// The storage layer is split into small, focused interfaces that can be
// implemented independently: the memory bank, the per-period narrative
// documents, and the singleton rollup state record. The default backend
// stores all three as files under a workspace directory; an alternate
// SQLite backend implements the memory bank for larger volumes, and an
// optional Postgres/pgvector index provides semantic search behind the
// retrieval interface.
package storage

import (
	"context"
	"time"

	"github.com/mnemod/mnemod/pkg/types"
)

// MemoryStore is the append-only record store for atomic memory objects.
// Every mutation is recorded as a new snapshot; objects are never deleted.
type MemoryStore interface {
	// Append inserts a new memory object. The object must validate and its
	// ID must not already exist.
	Append(ctx context.Context, obj *types.MemoryObject) error

	// Get retrieves the latest snapshot of a memory by ID.
	// Returns ErrNotFound if the memory does not exist.
	Get(ctx context.Context, id string) (*types.MemoryObject, error)

	// ListActive returns the latest snapshot of every active memory.
	ListActive(ctx context.Context) ([]*types.MemoryObject, error)

	// ListAll returns the latest snapshot of every memory regardless of
	// status, for audit and integrity checking.
	ListAll(ctx context.Context) ([]*types.MemoryObject, error)

	// Supersede marks oldID as superseded by newID. The new object must
	// already exist. Returns ErrInvalidTransition if the old object is not
	// active.
	Supersede(ctx context.Context, oldID, newID string) error

	// Archive retires an active memory from retrieval while retaining it
	// for audit. Returns ErrInvalidTransition if the memory is not active.
	Archive(ctx context.Context, id string) error

	// IncrementAccess atomically increments access_count and sets
	// last_accessed for the given memory. Safe under concurrent retrieval.
	IncrementAccess(ctx context.Context, id string, at time.Time) error

	// Stats returns counts of memories by status and category.
	Stats(ctx context.Context) (*BankStats, error)

	// Close releases any resources held by the store.
	Close() error
}

// PeriodStore holds one narrative document per (level, period key).
// Documents are created lazily on first append and are append-only
// afterwards.
type PeriodStore interface {
	// Read returns the full content of a period document.
	// Returns ErrNotFound if the document does not exist.
	Read(ctx context.Context, level types.Level, key string) (string, error)

	// Append adds a section to a period document, creating the document
	// with a standard header if it does not exist.
	Append(ctx context.Context, level types.Level, key, section string) error

	// Contains reports whether the document already carries the given
	// marker string. Used as the duplicate-append guard: a rollup must not
	// re-append a section for a period the document already covers.
	Contains(ctx context.Context, level types.Level, key, marker string) (bool, error)

	// Keys lists the period keys that have documents at the given level,
	// in ascending order.
	Keys(ctx context.Context, level types.Level) ([]string, error)
}

// StateStore persists the singleton rollup watermark record.
type StateStore interface {
	// Load reads the current rollup state. A missing record is the first
	// run and yields a zero-value state, not an error. A record that fails
	// to parse returns ErrCorrupt.
	Load(ctx context.Context) (*types.RollupState, error)

	// Save atomically persists the rollup state. Must only be called after
	// all side effects of the rollup being recorded are durable.
	Save(ctx context.Context, state *types.RollupState) error
}

// SemanticMatch is one result from a semantic index lookup.
type SemanticMatch struct {
	ID    string  // memory object id
	Score float64 // similarity in [0,1], higher is closer
}

// SemanticIndex is the optional semantic-search capability behind the
// retrieval engine. Implementations embed content out of band; retrieval
// treats the index as best-effort and falls back to lexical ranking when it
// is absent or erroring.
type SemanticIndex interface {
	// Index adds or refreshes the embedding for a memory's content.
	Index(ctx context.Context, id, content string) error

	// Search returns up to k memories semantically closest to the query.
	Search(ctx context.Context, query string, k int) ([]SemanticMatch, error)

	// Close releases the underlying connection.
	Close() error
}

// BankStats summarizes the memory bank for status reporting.
type BankStats struct {
	Total      int                    `json:"total"`
	ByStatus   map[types.Status]int   `json:"by_status"`
	ByCategory map[types.Category]int `json:"by_category"`
}
