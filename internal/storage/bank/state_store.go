package bank

import (
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

// StateStore persists the rollup watermark record as a single JSON file.
// Saves go through a temp file and rename so a crash mid-write can never
// leave a half-written state record — the watermark is the single source of
// truth for "has this period been processed".
type StateStore struct {
	path string
	mu   sync.Mutex
}

// NewStateStore creates a state store at path.
func NewStateStore(path string) *StateStore {
	return &StateStore{path: path}
}

// Load reads the rollup state. A missing file is the first run and yields
// an empty state.
func (s *StateStore) Load(ctx context.Context) (*types.RollupState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &types.RollupState{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read rollup state: %w", err)
	}

	var state types.RollupState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: rollup state: %v", storage.ErrCorrupt, err)
	}
	if err := state.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrCorrupt, err)
	}
	return &state, nil
}

// Save atomically persists the rollup state.
func (s *StateStore) Save(ctx context.Context, state *types.RollupState) error {
	if state == nil {
		return fmt.Errorf("%w: nil rollup state", storage.ErrInvalidInput)
	}
	if err := state.Validate(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := *state
	snapshot.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(&snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal rollup state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("write rollup state: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write rollup state: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync rollup state: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close rollup state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace rollup state: %w", err)
	}

	state.UpdatedAt = snapshot.UpdatedAt
	return nil
}

var _ storage.StateStore = (*StateStore)(nil)
