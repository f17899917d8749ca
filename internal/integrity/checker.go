// Package integrity audits a workspace for invariant violations: stale
// or unparsable watermarks, destination documents missing their rollup
// markers, memory objects that fail validation, dangling supersession
// links, and duplicate active content that consolidation should have
// merged. The checker only reports; it never repairs.
package integrity

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mnemod/mnemod/internal/rollup"
	"github.com/mnemod/mnemod/internal/storage"
	"github.com/mnemod/mnemod/pkg/types"
)

// Severity classifies a finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one integrity finding.
type Issue struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Report is the outcome of one integrity pass.
type Report struct {
	MemoriesChecked int     `json:"memories_checked"`
	Issues          []Issue `json:"issues"`
}

// OK reports whether the pass found no errors. Warnings do not fail a
// report.
func (r *Report) OK() bool {
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			return false
		}
	}
	return true
}

func (r *Report) errorf(format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Severity: SeverityError, Message: fmt.Sprintf(format, args...)})
}

func (r *Report) warnf(format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Severity: SeverityWarning, Message: fmt.Sprintf(format, args...)})
}

// Checker audits the stores of one workspace.
type Checker struct {
	store   storage.MemoryStore
	periods storage.PeriodStore
	states  storage.StateStore
	logger  *zap.Logger
}

// New creates an integrity checker over the given stores.
func New(store storage.MemoryStore, periods storage.PeriodStore, states storage.StateStore, logger *zap.Logger) *Checker {
	return &Checker{store: store, periods: periods, states: states, logger: logger}
}

// Check runs the full audit. The returned error covers only the audit
// itself failing to run; findings land in the report.
func (c *Checker) Check(ctx context.Context) (*Report, error) {
	report := &Report{}
	c.checkState(ctx, report)
	if err := c.checkMemories(ctx, report); err != nil {
		return nil, err
	}
	c.logger.Info("integrity check complete",
		zap.Int("memories", report.MemoriesChecked),
		zap.Int("issues", len(report.Issues)),
		zap.Bool("ok", report.OK()))
	return report, nil
}

// checkState validates the watermark record and cross-checks each
// watermark against its destination document's rollup marker.
func (c *Checker) checkState(ctx context.Context, report *Report) {
	state, err := c.states.Load(ctx)
	if err != nil {
		report.errorf("rollup state unreadable: %v", err)
		return
	}
	if err := state.Validate(); err != nil {
		report.errorf("%v", err)
		return
	}

	for _, level := range types.ValidLevels {
		key := state.Watermark(level)
		if key == "" {
			continue
		}
		destLevel, ok := level.Next()
		if !ok {
			continue
		}
		destKey, err := types.EnclosingKey(level, destLevel, key)
		if err != nil {
			report.errorf("%s watermark %q: %v", level, key, err)
			continue
		}
		present, err := c.periods.Contains(ctx, destLevel, destKey, rollup.Marker(level, key))
		if err != nil {
			report.errorf("read %s %s: %v", destLevel, destKey, err)
			continue
		}
		if !present {
			report.errorf("%s watermark at %s but %s document %s lacks its rollup section",
				level, key, destLevel, destKey)
		}
	}
}

// checkMemories validates every memory snapshot and the supersession
// graph.
func (c *Checker) checkMemories(ctx context.Context, report *Report) error {
	all, err := c.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list memories: %w", err)
	}
	report.MemoriesChecked = len(all)

	activeByContent := make(map[string]string)
	for _, obj := range all {
		if err := obj.Validate(); err != nil {
			report.errorf("memory %s: %v", obj.ID, err)
			continue
		}

		if obj.Status == types.StatusSuperseded {
			if _, err := c.store.Get(ctx, obj.SupersededBy); err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					report.errorf("memory %s superseded by missing memory %s", obj.ID, obj.SupersededBy)
				} else {
					report.errorf("memory %s: resolve superseded_by: %v", obj.ID, err)
				}
			}
		}

		if obj.Status == types.StatusActive {
			if prev, dup := activeByContent[obj.Content]; dup {
				report.warnf("active memories %s and %s carry identical content", prev, obj.ID)
			} else {
				activeByContent[obj.Content] = obj.ID
			}
			for _, src := range obj.ConsolidatedFrom {
				if _, err := c.store.Get(ctx, src); errors.Is(err, storage.ErrNotFound) {
					report.warnf("memory %s consolidated from missing memory %s", obj.ID, src)
				}
			}
		}
	}
	return nil
}
