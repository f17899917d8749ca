// Package rollup executes the idempotent period rollup: read a source
// narrative document, condense it into its enclosing period's document,
// extract atomic memories from daily content, and advance the watermark
// only after every side effect is durable. Invocations are at-least-once
// safe; a duplicate-append guard in the destination document makes
// retries converge instead of compounding.
package rollup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mnemod/mnemod/internal/extraction"
	"github.com/mnemod/mnemod/internal/storage"
	"github.com/mnemod/mnemod/internal/summarizer"
	"github.com/mnemod/mnemod/pkg/types"
)

// Result reports what one rollup run did. NarrativeOnly marks a daily
// rollup whose fact extraction failed; the narrative still rolled up and
// no memories were stored.
type Result struct {
	Level         types.Level        `json:"level"`
	Period        string             `json:"period"`
	Destination   string             `json:"destination"`
	Skipped       bool               `json:"skipped"`
	NarrativeOnly bool               `json:"narrative_only,omitempty"`
	Extraction    *extraction.Result `json:"extraction,omitempty"`
}

// Executor runs rollups against the period documents and rollup state.
type Executor struct {
	periods   storage.PeriodStore
	states    storage.StateStore
	summ      summarizer.Summarizer
	extractor *extraction.Engine // nil disables memory extraction
	logger    *zap.Logger

	now func() time.Time
}

// New creates a rollup executor. extractor may be nil, in which case
// daily rollups condense narrative only.
func New(periods storage.PeriodStore, states storage.StateStore, summ summarizer.Summarizer, extractor *extraction.Engine, logger *zap.Logger) *Executor {
	return &Executor{
		periods:   periods,
		states:    states,
		summ:      summ,
		extractor: extractor,
		logger:    logger,
		now:       time.Now,
	}
}

// Marker returns the duplicate-append guard string written into the
// destination document for a given source rollup. The integrity checker
// matches on the same string when cross-checking watermarks against
// destination documents.
func Marker(level types.Level, key string) string {
	return fmt.Sprintf("<!-- rollup:%s:%s -->", level, key)
}

// Run rolls up the named source period into its enclosing destination
// document. The level names the SOURCE: Run(daily, "2026-02-09") appends
// the day's condensed narrative into weekly document 2026-W07.
//
// Missing source documents return ErrSourceMissing and leave the
// watermark untouched. A period whose marker is already present in the
// destination skips all side effects and only advances the watermark.
func (e *Executor) Run(ctx context.Context, level types.Level, key string) (*Result, error) {
	destLevel, ok := level.Next()
	if !ok {
		return nil, fmt.Errorf("%w: level %q has no destination", storage.ErrInvalidInput, level)
	}
	if _, err := types.ParseKey(level, key); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}
	destKey, err := types.EnclosingKey(level, destLevel, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
	}

	res := &Result{Level: level, Period: key, Destination: destKey}

	content, err := e.periods.Read(ctx, level, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s %s: %w", level, key, ErrSourceMissing)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", level, key, err)
	}

	guard := Marker(level, key)
	done, err := e.periods.Contains(ctx, destLevel, destKey, guard)
	if err != nil {
		return nil, fmt.Errorf("check %s %s: %w", destLevel, destKey, err)
	}

	if done {
		// A previous invocation completed the side effects but may have
		// died before saving state. Converge by only advancing the
		// watermark.
		res.Skipped = true
		e.logger.Info("rollup already applied, advancing watermark only",
			zap.String("level", string(level)), zap.String("period", key))
	} else {
		// Condense the narrative first: if the summarizer is down the
		// rollup defers wholesale, watermark untouched, and the source
		// document stays put for the next catch-up pass.
		summary, err := e.summ.Summarize(ctx, content, level)
		if err != nil {
			return nil, fmt.Errorf("summarize %s %s: %w", level, key, err)
		}

		if level == types.LevelDaily && e.extractor != nil {
			res.Extraction, err = e.extractFacts(ctx, content, key)
			if err != nil {
				return nil, err
			}
			res.NarrativeOnly = res.Extraction == nil
		}

		section := fmt.Sprintf("%s\n\n## %s\n\n%s\n", guard, key, summary)
		if err := e.periods.Append(ctx, destLevel, destKey, section); err != nil {
			return nil, fmt.Errorf("append %s %s: %w", destLevel, destKey, err)
		}
	}

	if err := e.advanceWatermark(ctx, level, key); err != nil {
		return res, err
	}

	e.logger.Info("rollup complete",
		zap.String("level", string(level)),
		zap.String("period", key),
		zap.String("destination", destKey),
		zap.Bool("skipped", res.Skipped),
		zap.Bool("narrative_only", res.NarrativeOnly))
	return res, nil
}

// extractFacts asks the summarizer for fact candidates and stores them.
// Summarizer failures degrade to zero facts; a memory store failure is a
// hard error so the run fails before the watermark can advance past
// unstored memories.
func (e *Executor) extractFacts(ctx context.Context, content, key string) (*extraction.Result, error) {
	facts, err := e.summ.ExtractFacts(ctx, content)
	if err != nil {
		e.logger.Warn("fact extraction failed, storing no memories",
			zap.String("period", key), zap.Error(err))
		return nil, nil
	}
	if len(facts) == 0 {
		return nil, nil
	}
	res, err := e.extractor.ExtractAndStore(ctx, facts, key, e.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("store extracted memories for %s: %w", key, err)
	}
	return res, nil
}

// advanceWatermark persists the new watermark. Watermarks never move
// backwards: re-running an old period leaves a newer watermark in place.
func (e *Executor) advanceWatermark(ctx context.Context, level types.Level, key string) error {
	state, err := e.states.Load(ctx)
	if err != nil {
		return fmt.Errorf("%w: load: %v", ErrStatePersistence, err)
	}
	if current := state.Watermark(level); current == "" || key > current {
		state.SetWatermark(level, key)
	}
	state.UpdatedAt = e.now().UTC()
	if err := e.states.Save(ctx, state); err != nil {
		return fmt.Errorf("%w: %v", ErrStatePersistence, err)
	}
	return nil
}
