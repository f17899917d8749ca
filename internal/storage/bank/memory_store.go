// Package bank implements the file-based storage backends: a JSON-lines
// memory bank, per-period narrative documents, and the rollup state record.
// This is the default workspace layout; everything lives under a single
// data directory and survives process restarts without a database.
package bank

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mnemod/mnemod/internal/storage"
	"github.com/mnemod/mnemod/pkg/types"
)

// MemoryStore is an append-only JSON-lines record store for memory objects.
// Each line is one full snapshot of an object; the latest line for an id
// wins on replay. Updates (supersession, access bookkeeping) append new
// snapshots rather than rewriting history, so the file doubles as an audit
// log.
type MemoryStore struct {
	path string

	mu     sync.RWMutex
	file   *os.File
	latest map[string]*types.MemoryObject
	order  []string // ids in first-seen order
}

// OpenMemoryStore opens (or creates) the memory bank at path and replays
// all records into memory. A record that fails to parse or validate makes
// the whole bank unusable and returns storage.ErrCorrupt.
func OpenMemoryStore(path string) (*MemoryStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create bank directory: %w", err)
	}

	s := &MemoryStore{
		path:   path,
		latest: make(map[string]*types.MemoryObject),
	}
	if err := s.replay(); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open memory bank: %w", err)
	}
	s.file = f
	return s, nil
}

// replay loads every record from disk into the in-memory index.
func (s *MemoryStore) replay() error {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open memory bank: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var obj types.MemoryObject
		if err := json.Unmarshal(raw, &obj); err != nil {
			return fmt.Errorf("%w: memory bank line %d: %v", storage.ErrCorrupt, line, err)
		}
		if err := obj.Validate(); err != nil {
			return fmt.Errorf("%w: memory bank line %d: %v", storage.ErrCorrupt, line, err)
		}
		if _, seen := s.latest[obj.ID]; !seen {
			s.order = append(s.order, obj.ID)
		}
		s.latest[obj.ID] = &obj
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: memory bank: %v", storage.ErrCorrupt, err)
	}
	return nil
}

// writeRecord appends a snapshot line and updates the index. Callers must
// hold the write lock. Records are synced before return because the rollup
// watermark must never advance ahead of a memory write.
func (s *MemoryStore) writeRecord(obj *types.MemoryObject) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("marshal memory %s: %w", obj.ID, err)
	}
	if _, err := s.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append memory %s: %w", obj.ID, err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("sync memory bank: %w", err)
	}
	if _, seen := s.latest[obj.ID]; !seen {
		s.order = append(s.order, obj.ID)
	}
	s.latest[obj.ID] = obj
	return nil
}

// Append inserts a new memory object.
func (s *MemoryStore) Append(ctx context.Context, obj *types.MemoryObject) error {
	if obj == nil {
		return fmt.Errorf("%w: nil memory object", storage.ErrInvalidInput)
	}
	if err := obj.Validate(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.latest[obj.ID]; exists {
		return fmt.Errorf("%w: memory %s already exists", storage.ErrInvalidInput, obj.ID)
	}
	return s.writeRecord(obj.Clone())
}

// Get retrieves the latest snapshot of a memory by ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*types.MemoryObject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.latest[id]
	if !ok {
		return nil, fmt.Errorf("%w: memory %s", storage.ErrNotFound, id)
	}
	return obj.Clone(), nil
}

// ListActive returns the latest snapshot of every active memory in
// insertion order.
func (s *MemoryStore) ListActive(ctx context.Context) ([]*types.MemoryObject, error) {
	return s.list(func(obj *types.MemoryObject) bool {
		return obj.Status == types.StatusActive
	})
}

// ListAll returns the latest snapshot of every memory in insertion order.
func (s *MemoryStore) ListAll(ctx context.Context) ([]*types.MemoryObject, error) {
	return s.list(func(*types.MemoryObject) bool { return true })
}

func (s *MemoryStore) list(keep func(*types.MemoryObject) bool) ([]*types.MemoryObject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.MemoryObject, 0, len(s.order))
	for _, id := range s.order {
		if obj := s.latest[id]; keep(obj) {
			out = append(out, obj.Clone())
		}
	}
	return out, nil
}

// Supersede marks oldID as superseded by newID.
func (s *MemoryStore) Supersede(ctx context.Context, oldID, newID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.latest[oldID]
	if !ok {
		return fmt.Errorf("%w: memory %s", storage.ErrNotFound, oldID)
	}
	if _, ok := s.latest[newID]; !ok {
		return fmt.Errorf("%w: replacement memory %s", storage.ErrNotFound, newID)
	}
	if !types.IsValidStatusTransition(old.Status, types.StatusSuperseded) {
		return fmt.Errorf("%w: memory %s is %s", storage.ErrInvalidTransition, oldID, old.Status)
	}

	next := old.Clone()
	next.Status = types.StatusSuperseded
	next.SupersededBy = newID
	return s.writeRecord(next)
}

// Archive retires an active memory from retrieval.
func (s *MemoryStore) Archive(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.latest[id]
	if !ok {
		return fmt.Errorf("%w: memory %s", storage.ErrNotFound, id)
	}
	if !types.IsValidStatusTransition(obj.Status, types.StatusArchived) {
		return fmt.Errorf("%w: memory %s is %s", storage.ErrInvalidTransition, id, obj.Status)
	}

	next := obj.Clone()
	next.Status = types.StatusArchived
	return s.writeRecord(next)
}

// IncrementAccess bumps access_count and last_accessed for a recalled
// memory. The write lock makes the increment atomic under concurrent
// retrieval.
func (s *MemoryStore) IncrementAccess(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.latest[id]
	if !ok {
		return fmt.Errorf("%w: memory %s", storage.ErrNotFound, id)
	}

	next := obj.Clone()
	next.AccessCount++
	t := at
	next.LastAccessed = &t
	return s.writeRecord(next)
}

// Stats returns counts of memories by status and category.
func (s *MemoryStore) Stats(ctx context.Context) (*storage.BankStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &storage.BankStats{
		ByStatus:   make(map[types.Status]int),
		ByCategory: make(map[types.Category]int),
	}
	for _, obj := range s.latest {
		stats.Total++
		stats.ByStatus[obj.Status]++
		stats.ByCategory[obj.Category]++
	}
	return stats, nil
}

// Close closes the underlying file.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

var _ storage.MemoryStore = (*MemoryStore)(nil)
