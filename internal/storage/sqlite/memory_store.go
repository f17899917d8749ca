// Package sqlite implements the memory bank on SQLite for workspaces whose
// banks outgrow the JSON-lines file. The latest snapshot of each object
// lives in the memories table; every mutation also appends to memory_log,
// preserving the append-only audit stream the file backend gets for free.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/mnemod/mnemod/internal/storage"
	"github.com/mnemod/mnemod/pkg/types"
)

// Schema is the embedded DDL applied on open.
const Schema = `
CREATE TABLE IF NOT EXISTS memories (
	id                TEXT PRIMARY KEY,
	content           TEXT NOT NULL,
	category          TEXT NOT NULL,
	importance        INTEGER NOT NULL,
	tags              TEXT,
	timestamp         TEXT NOT NULL,
	access_count      INTEGER NOT NULL DEFAULT 0,
	last_accessed     TEXT,
	source_period     TEXT,
	consolidated_from TEXT,
	superseded_by     TEXT,
	status            TEXT NOT NULL,
	seq               INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_memories_status ON memories(status);

CREATE TABLE IF NOT EXISTS memory_log (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL,
	snapshot   TEXT NOT NULL,
	written_at TEXT NOT NULL
);
`

// MemoryStore implements storage.MemoryStore on SQLite.
type MemoryStore struct {
	db *sql.DB
}

// NewMemoryStore opens the database at dsn, enables WAL mode, and applies
// the schema.
func NewMemoryStore(dsn string) (*MemoryStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: configure: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}

	return &MemoryStore{db: db}, nil
}

// row mirrors the memories table for scanning.
type row struct {
	id               string
	content          string
	category         string
	importance       int
	tags             sql.NullString
	timestamp        string
	accessCount      int
	lastAccessed     sql.NullString
	sourcePeriod     sql.NullString
	consolidatedFrom sql.NullString
	supersededBy     sql.NullString
	status           string
}

const selectColumns = `id, content, category, importance, tags, timestamp,
	access_count, last_accessed, source_period, consolidated_from, superseded_by, status`

func scanMemory(scan func(dest ...any) error) (*types.MemoryObject, error) {
	var r row
	if err := scan(&r.id, &r.content, &r.category, &r.importance, &r.tags,
		&r.timestamp, &r.accessCount, &r.lastAccessed, &r.sourcePeriod,
		&r.consolidatedFrom, &r.supersededBy, &r.status); err != nil {
		return nil, err
	}

	ts, err := time.Parse(time.RFC3339Nano, r.timestamp)
	if err != nil {
		return nil, fmt.Errorf("%w: memory %s timestamp: %v", storage.ErrCorrupt, r.id, err)
	}

	obj := &types.MemoryObject{
		ID:           r.id,
		Content:      r.content,
		Category:     types.Category(r.category),
		Importance:   r.importance,
		Timestamp:    ts,
		AccessCount:  r.accessCount,
		SourcePeriod: r.sourcePeriod.String,
		SupersededBy: r.supersededBy.String,
		Status:       types.Status(r.status),
	}
	if r.lastAccessed.Valid {
		la, err := time.Parse(time.RFC3339Nano, r.lastAccessed.String)
		if err != nil {
			return nil, fmt.Errorf("%w: memory %s last_accessed: %v", storage.ErrCorrupt, r.id, err)
		}
		obj.LastAccessed = &la
	}
	if r.tags.Valid && r.tags.String != "" {
		if err := json.Unmarshal([]byte(r.tags.String), &obj.Tags); err != nil {
			return nil, fmt.Errorf("%w: memory %s tags: %v", storage.ErrCorrupt, r.id, err)
		}
	}
	if r.consolidatedFrom.Valid && r.consolidatedFrom.String != "" {
		if err := json.Unmarshal([]byte(r.consolidatedFrom.String), &obj.ConsolidatedFrom); err != nil {
			return nil, fmt.Errorf("%w: memory %s consolidated_from: %v", storage.ErrCorrupt, r.id, err)
		}
	}

	if err := obj.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrCorrupt, err)
	}
	return obj, nil
}

// writeSnapshot upserts the latest row and appends the audit record inside
// the given transaction.
func writeSnapshot(tx *sql.Tx, obj *types.MemoryObject) error {
	tagsJSON, err := marshalOrEmpty(obj.Tags)
	if err != nil {
		return err
	}
	fromJSON, err := marshalOrEmpty(obj.ConsolidatedFrom)
	if err != nil {
		return err
	}

	var lastAccessed any
	if obj.LastAccessed != nil {
		lastAccessed = obj.LastAccessed.UTC().Format(time.RFC3339Nano)
	}

	res, err := tx.Exec(`
		INSERT INTO memory_log (id, snapshot, written_at)
		VALUES (?, ?, ?)`,
		obj.ID, mustJSON(obj), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("append memory log: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("memory log seq: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO memories (id, content, category, importance, tags, timestamp,
			access_count, last_accessed, source_period, consolidated_from, superseded_by, status, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			category = excluded.category,
			importance = excluded.importance,
			tags = excluded.tags,
			timestamp = excluded.timestamp,
			access_count = excluded.access_count,
			last_accessed = excluded.last_accessed,
			source_period = excluded.source_period,
			consolidated_from = excluded.consolidated_from,
			superseded_by = excluded.superseded_by,
			status = excluded.status`,
		obj.ID, obj.Content, string(obj.Category), obj.Importance, tagsJSON,
		obj.Timestamp.UTC().Format(time.RFC3339Nano), obj.AccessCount,
		lastAccessed, obj.SourcePeriod, fromJSON, nullable(obj.SupersededBy),
		string(obj.Status), seq)
	if err != nil {
		return fmt.Errorf("upsert memory %s: %w", obj.ID, err)
	}
	return nil
}

func marshalOrEmpty(v any) (any, error) {
	switch t := v.(type) {
	case map[string][]string:
		if len(t) == 0 {
			return nil, nil
		}
	case []string:
		if len(t) == 0 {
			return nil, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal field: %w", err)
	}
	return string(data), nil
}

func mustJSON(obj *types.MemoryObject) string {
	data, _ := json.Marshal(obj)
	return string(data)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Append inserts a new memory object.
func (s *MemoryStore) Append(ctx context.Context, obj *types.MemoryObject) error {
	if obj == nil {
		return fmt.Errorf("%w: nil memory object", storage.ErrInvalidInput)
	}
	if err := obj.Validate(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM memories WHERE id = ?", obj.ID).Scan(&exists)
		if err == nil {
			return fmt.Errorf("%w: memory %s already exists", storage.ErrInvalidInput, obj.ID)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return writeSnapshot(tx, obj)
	})
}

// Get retrieves the latest snapshot of a memory by ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*types.MemoryObject, error) {
	r := s.db.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM memories WHERE id = ?", id)
	obj, err := scanMemory(r.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: memory %s", storage.ErrNotFound, id)
	}
	return obj, err
}

// ListActive returns every active memory in insertion order.
func (s *MemoryStore) ListActive(ctx context.Context) ([]*types.MemoryObject, error) {
	return s.listWhere(ctx, "WHERE status = ?", string(types.StatusActive))
}

// ListAll returns every memory in insertion order.
func (s *MemoryStore) ListAll(ctx context.Context) ([]*types.MemoryObject, error) {
	return s.listWhere(ctx, "")
}

func (s *MemoryStore) listWhere(ctx context.Context, where string, args ...any) ([]*types.MemoryObject, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+selectColumns+" FROM memories "+where+" ORDER BY seq ASC", args...)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	defer rows.Close()

	var out []*types.MemoryObject
	for rows.Next() {
		obj, err := scanMemory(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	return out, rows.Err()
}

// Supersede marks oldID as superseded by newID.
func (s *MemoryStore) Supersede(ctx context.Context, oldID, newID string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		old, err := getInTx(ctx, tx, oldID)
		if err != nil {
			return err
		}
		if _, err := getInTx(ctx, tx, newID); err != nil {
			return fmt.Errorf("replacement: %w", err)
		}
		if !types.IsValidStatusTransition(old.Status, types.StatusSuperseded) {
			return fmt.Errorf("%w: memory %s is %s", storage.ErrInvalidTransition, oldID, old.Status)
		}
		old.Status = types.StatusSuperseded
		old.SupersededBy = newID
		return writeSnapshot(tx, old)
	})
}

// Archive retires an active memory from retrieval.
func (s *MemoryStore) Archive(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		obj, err := getInTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if !types.IsValidStatusTransition(obj.Status, types.StatusArchived) {
			return fmt.Errorf("%w: memory %s is %s", storage.ErrInvalidTransition, id, obj.Status)
		}
		obj.Status = types.StatusArchived
		return writeSnapshot(tx, obj)
	})
}

// IncrementAccess bumps access_count and last_accessed atomically.
func (s *MemoryStore) IncrementAccess(ctx context.Context, id string, at time.Time) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		obj, err := getInTx(ctx, tx, id)
		if err != nil {
			return err
		}
		obj.AccessCount++
		t := at
		obj.LastAccessed = &t
		return writeSnapshot(tx, obj)
	})
}

// Stats returns counts of memories by status and category.
func (s *MemoryStore) Stats(ctx context.Context) (*storage.BankStats, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT status, category, COUNT(*) FROM memories GROUP BY status, category")
	if err != nil {
		return nil, fmt.Errorf("memory stats: %w", err)
	}
	defer rows.Close()

	stats := &storage.BankStats{
		ByStatus:   make(map[types.Status]int),
		ByCategory: make(map[types.Category]int),
	}
	for rows.Next() {
		var status, category string
		var count int
		if err := rows.Scan(&status, &category, &count); err != nil {
			return nil, err
		}
		stats.Total += count
		stats.ByStatus[types.Status(status)] += count
		stats.ByCategory[types.Category(category)] += count
	}
	return stats, rows.Err()
}

// Close closes the database.
func (s *MemoryStore) Close() error {
	return s.db.Close()
}

func getInTx(ctx context.Context, tx *sql.Tx, id string) (*types.MemoryObject, error) {
	r := tx.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM memories WHERE id = ?", id)
	obj, err := scanMemory(r.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: memory %s", storage.ErrNotFound, id)
	}
	return obj, err
}

func (s *MemoryStore) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

var _ storage.MemoryStore = (*MemoryStore)(nil)
