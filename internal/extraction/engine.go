// Package extraction turns fact candidates proposed by the summarizer
// into durable memory objects: importance filtering, the daily quota,
// near-duplicate consolidation, and enrichment with identity and
// provenance.
package extraction

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mnemod/mnemod/internal/storage"
	"github.com/mnemod/mnemod/internal/summarizer"
	"github.com/mnemod/mnemod/pkg/types"
)

// Defaults for the extraction pipeline knobs.
const (
	DefaultMinImportance       = 4
	DefaultMaxMemoriesPerDay   = 20
	DefaultSimilarityThreshold = 0.75
	DefaultConsolidationTopK   = 3
)

// Options tunes the extraction pipeline.
type Options struct {
	// MinImportance is the inclusive floor below which candidates are
	// discarded.
	MinImportance int

	// MaxMemoriesPerDay caps how many candidates one extraction run may
	// store. The cap keeps the highest-importance candidates, preserving
	// the summarizer's original order among equals.
	MaxMemoriesPerDay int

	// SimilarityThreshold is the minimum content similarity for an
	// existing active memory to be consolidated into a new one.
	SimilarityThreshold float64

	// ConsolidationTopK bounds how many existing memories are compared
	// against each candidate.
	ConsolidationTopK int

	// DisableConsolidation stores every surviving candidate as-is,
	// leaving near-duplicates active side by side.
	DisableConsolidation bool
}

func (o Options) withDefaults() Options {
	if o.MinImportance == 0 {
		o.MinImportance = DefaultMinImportance
	}
	if o.MaxMemoriesPerDay == 0 {
		o.MaxMemoriesPerDay = DefaultMaxMemoriesPerDay
	}
	if o.SimilarityThreshold == 0 {
		o.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if o.ConsolidationTopK == 0 {
		o.ConsolidationTopK = DefaultConsolidationTopK
	}
	return o
}

// Result reports what one extraction run did.
type Result struct {
	Candidates   int      `json:"candidates"`
	Filtered     int      `json:"filtered"`
	Stored       []string `json:"stored"`
	Consolidated int      `json:"consolidated"`
}

// Engine applies the extraction pipeline against a memory store.
type Engine struct {
	store  storage.MemoryStore
	index  storage.SemanticIndex // optional
	opts   Options
	logger *zap.Logger

	// mu serializes consolidation against retrieval so a reader never
	// observes a half-superseded cluster. Shared with the retrieval
	// engine.
	mu *sync.RWMutex
}

// New creates an extraction engine. index may be nil. mu must be the
// same lock the retrieval engine reads under.
func New(store storage.MemoryStore, index storage.SemanticIndex, mu *sync.RWMutex, opts Options, logger *zap.Logger) *Engine {
	return &Engine{
		store:  store,
		index:  index,
		opts:   opts.withDefaults(),
		logger: logger,
		mu:     mu,
	}
}

// ExtractAndStore filters, caps, consolidates, and persists the given
// candidates as memory objects attributed to sourcePeriod. Candidates
// below the importance floor are dropped; when more than the daily cap
// survive, the highest-importance ones win.
func (e *Engine) ExtractAndStore(ctx context.Context, candidates []summarizer.FactCandidate, sourcePeriod string, now time.Time) (*Result, error) {
	res := &Result{Candidates: len(candidates)}

	kept := make([]summarizer.FactCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Importance >= e.opts.MinImportance {
			kept = append(kept, c)
		}
	}
	res.Filtered = len(candidates) - len(kept)

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Importance > kept[j].Importance
	})
	if len(kept) > e.opts.MaxMemoriesPerDay {
		e.logger.Info("daily memory quota applied",
			zap.Int("eligible", len(kept)),
			zap.Int("quota", e.opts.MaxMemoriesPerDay))
		kept = kept[:e.opts.MaxMemoriesPerDay]
	}
	if len(kept) == 0 {
		return res, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	active, err := e.store.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active memories: %w", err)
	}

	for _, c := range kept {
		obj := &types.MemoryObject{
			ID:           uuid.NewString(),
			Content:      c.Content,
			Category:     c.Category,
			Importance:   c.Importance,
			Tags:         c.Tags,
			Timestamp:    now,
			SourcePeriod: sourcePeriod,
			Status:       types.StatusActive,
		}

		var dupes []*types.MemoryObject
		if !e.opts.DisableConsolidation {
			dupes = e.nearDuplicates(c.Content, active)
		}
		if len(dupes) > 0 {
			e.consolidate(obj, dupes)
		}

		if err := e.store.Append(ctx, obj); err != nil {
			return res, fmt.Errorf("store memory: %w", err)
		}
		for _, old := range dupes {
			if err := e.store.Supersede(ctx, old.ID, obj.ID); err != nil {
				return res, fmt.Errorf("supersede %s: %w", old.ID, err)
			}
			res.Consolidated++
		}

		// Keep the in-memory view current so later candidates in the same
		// batch do not consolidate against already-superseded objects.
		active = withoutIDs(active, dupes)
		active = append(active, obj)

		if e.index != nil {
			if err := e.index.Index(ctx, obj.ID, obj.Content); err != nil {
				e.logger.Warn("semantic index update failed", zap.String("id", obj.ID), zap.Error(err))
			}
		}
		res.Stored = append(res.Stored, obj.ID)
	}

	e.logger.Info("extraction complete",
		zap.String("period", sourcePeriod),
		zap.Int("candidates", res.Candidates),
		zap.Int("stored", len(res.Stored)),
		zap.Int("consolidated", res.Consolidated))
	return res, nil
}

// nearDuplicates returns up to ConsolidationTopK active memories whose
// content similarity with text meets the threshold, most similar first.
func (e *Engine) nearDuplicates(text string, active []*types.MemoryObject) []*types.MemoryObject {
	type scored struct {
		obj *types.MemoryObject
		sim float64
	}
	var hits []scored
	for _, obj := range active {
		if sim := similarity(text, obj.Content); sim >= e.opts.SimilarityThreshold {
			hits = append(hits, scored{obj, sim})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].sim > hits[j].sim })
	if len(hits) > e.opts.ConsolidationTopK {
		hits = hits[:e.opts.ConsolidationTopK]
	}
	out := make([]*types.MemoryObject, len(hits))
	for i, h := range hits {
		out[i] = h.obj
	}
	return out
}

// consolidate folds the near-duplicates into the new object: importance
// is the maximum across the cluster, provenance accumulates, and tags
// merge.
func (e *Engine) consolidate(obj *types.MemoryObject, dupes []*types.MemoryObject) {
	seen := make(map[string]bool)
	for _, old := range dupes {
		if old.Importance > obj.Importance {
			obj.Importance = old.Importance
		}
		for _, id := range old.ConsolidatedFrom {
			if !seen[id] {
				seen[id] = true
				obj.ConsolidatedFrom = append(obj.ConsolidatedFrom, id)
			}
		}
		if !seen[old.ID] {
			seen[old.ID] = true
			obj.ConsolidatedFrom = append(obj.ConsolidatedFrom, old.ID)
		}
		for facet, vals := range old.Tags {
			obj.Tags = mergeFacet(obj.Tags, facet, vals)
		}
	}
}

func mergeFacet(tags map[string][]string, facet string, vals []string) map[string][]string {
	if tags == nil {
		tags = make(map[string][]string)
	}
	have := make(map[string]bool, len(tags[facet]))
	for _, v := range tags[facet] {
		have[v] = true
	}
	for _, v := range vals {
		if !have[v] {
			have[v] = true
			tags[facet] = append(tags[facet], v)
		}
	}
	return tags
}

func withoutIDs(objs, remove []*types.MemoryObject) []*types.MemoryObject {
	if len(remove) == 0 {
		return objs
	}
	drop := make(map[string]bool, len(remove))
	for _, r := range remove {
		drop[r.ID] = true
	}
	out := objs[:0]
	for _, o := range objs {
		if !drop[o.ID] {
			out = append(out, o)
		}
	}
	return out
}
