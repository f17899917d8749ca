package bank

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/mnemod/mnemod/internal/storage"
	"github.com/mnemod/mnemod/pkg/types"
)

// PeriodStore keeps one markdown document per (level, period key) under
// <root>/<level>/<key>.md. Documents are created lazily with a standard
// header on first append; after creation, append is the only mutation.
type PeriodStore struct {
	root string
	mu   sync.Mutex
}

// NewPeriodStore creates a period store rooted at dir.
func NewPeriodStore(dir string) *PeriodStore {
	return &PeriodStore{root: dir}
}

func (s *PeriodStore) docPath(level types.Level, key string) (string, error) {
	if !types.IsValidLevel(level) {
		return "", fmt.Errorf("%w: invalid level %q", storage.ErrInvalidInput, level)
	}
	if _, err := types.ParseKey(level, key); err != nil {
		return "", fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}
	return filepath.Join(s.root, string(level), key+".md"), nil
}

// headerFor returns the standard document header for a new period document.
func headerFor(level types.Level, key string) string {
	titles := map[types.Level]string{
		types.LevelDaily:   "Daily log",
		types.LevelWeekly:  "Weekly summary",
		types.LevelMonthly: "Monthly summary",
		types.LevelAnnual:  "Annual summary",
	}
	return fmt.Sprintf("# %s — %s\n", titles[level], key)
}

// Read returns the full content of a period document.
func (s *PeriodStore) Read(ctx context.Context, level types.Level, key string) (string, error) {
	path, err := s.docPath(level, key)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("%w: %s period %s", storage.ErrNotFound, level, key)
	}
	if err != nil {
		return "", fmt.Errorf("read %s period %s: %w", level, key, err)
	}
	return string(data), nil
}

// Append adds a section to a period document, creating it with the standard
// header if absent. The section is written in a single append so a crash
// cannot leave a torn partial section followed by a later duplicate.
func (s *PeriodStore) Append(ctx context.Context, level types.Level, key, section string) error {
	path, err := s.docPath(level, key)
	if err != nil {
		return err
	}
	if strings.TrimSpace(section) == "" {
		return fmt.Errorf("%w: empty section", storage.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create period directory: %w", err)
	}

	var buf strings.Builder
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		buf.WriteString(headerFor(level, key))
	}
	buf.WriteString("\n")
	buf.WriteString(strings.TrimRight(section, "\n"))
	buf.WriteString("\n")

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open %s period %s: %w", level, key, err)
	}
	defer f.Close()

	if _, err := f.WriteString(buf.String()); err != nil {
		return fmt.Errorf("append %s period %s: %w", level, key, err)
	}
	return f.Sync()
}

// Contains reports whether the document already carries the given marker.
func (s *PeriodStore) Contains(ctx context.Context, level types.Level, key, marker string) (bool, error) {
	content, err := s.Read(ctx, level, key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return strings.Contains(content, marker), nil
}

// Keys lists the period keys with documents at the given level, ascending.
func (s *PeriodStore) Keys(ctx context.Context, level types.Level) ([]string, error) {
	if !types.IsValidLevel(level) {
		return nil, fmt.Errorf("%w: invalid level %q", storage.ErrInvalidInput, level)
	}

	entries, err := os.ReadDir(filepath.Join(s.root, string(level)))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s periods: %w", level, err)
	}

	var keys []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".md") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, ".md"))
	}
	sort.Strings(keys)
	return keys, nil
}

var _ storage.PeriodStore = (*PeriodStore)(nil)
