// Package retrieval ranks active memories against a query by blending
// lexical relevance, stored importance, and recency decay. Semantic
// similarity, when a vector index is configured, only ever raises a
// memory's relevance above its lexical score, never lowers it.
package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mnemod/mnemod/internal/storage"
	"github.com/mnemod/mnemod/pkg/types"
)

// Defaults for the scoring blend.
const (
	DefaultRelevanceWeight  = 0.4
	DefaultImportanceWeight = 0.3
	DefaultRecencyWeight    = 0.3
	DefaultDecayFactor      = 0.995
	DefaultLimit            = 10

	semanticCandidates = 50
)

// Weights blends the three scoring components. They should sum to 1.
type Weights struct {
	Relevance  float64 `json:"relevance" yaml:"relevance"`
	Importance float64 `json:"importance" yaml:"importance"`
	Recency    float64 `json:"recency" yaml:"recency"`
}

// Options tunes the retrieval engine.
type Options struct {
	Weights     Weights
	DecayFactor float64

	// DisableDecay scores every memory's recency component as 1, so age
	// stops influencing rank.
	DisableDecay bool
}

func (o Options) withDefaults() Options {
	if o.Weights == (Weights{}) {
		o.Weights = Weights{
			Relevance:  DefaultRelevanceWeight,
			Importance: DefaultImportanceWeight,
			Recency:    DefaultRecencyWeight,
		}
	}
	if o.DecayFactor == 0 {
		o.DecayFactor = DefaultDecayFactor
	}
	return o
}

// ScoredMemory is one retrieval hit with its score breakdown.
type ScoredMemory struct {
	Memory    *types.MemoryObject `json:"memory"`
	Score     float64             `json:"score"`
	Relevance float64             `json:"relevance"`
	Recency   float64             `json:"recency"`
}

// Engine ranks memories for recall.
type Engine struct {
	store  storage.MemoryStore
	index  storage.SemanticIndex // optional
	ranker *lexicalRanker
	opts   Options
	logger *zap.Logger

	// mu is shared with the extraction engine so retrieval never reads a
	// half-superseded consolidation cluster.
	mu *sync.RWMutex

	now func() time.Time
}

// New creates a retrieval engine. index may be nil; mu must be the same
// lock the extraction engine consolidates under.
func New(store storage.MemoryStore, index storage.SemanticIndex, mu *sync.RWMutex, opts Options, logger *zap.Logger) *Engine {
	return &Engine{
		store:  store,
		index:  index,
		ranker: newLexicalRanker(),
		opts:   opts.withDefaults(),
		logger: logger,
		mu:     mu,
		now:    time.Now,
	}
}

// Retrieve returns up to limit active memories ranked for the query.
// Ties break by importance, then by timestamp, newest first. Returned
// memories get their access bookkeeping updated.
func (e *Engine) Retrieve(ctx context.Context, query string, limit int) ([]ScoredMemory, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	hits, err := e.rank(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	for _, h := range hits {
		if err := e.store.IncrementAccess(ctx, h.Memory.ID, now); err != nil {
			e.logger.Warn("access bookkeeping failed", zap.String("id", h.Memory.ID), zap.Error(err))
		}
	}
	return hits, nil
}

func (e *Engine) rank(ctx context.Context, query string, limit int) ([]ScoredMemory, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	active, err := e.store.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active memories: %w", err)
	}
	if len(active) == 0 {
		return nil, nil
	}

	lexical := e.ranker.rank(query, active)
	semantic := e.semanticScores(ctx, query)

	now := e.now().UTC()
	hits := make([]ScoredMemory, 0, len(active))
	for _, obj := range active {
		relevance := lexical[obj.ID]
		if s, ok := semantic[obj.ID]; ok && s > relevance {
			relevance = s
		}

		recency := 1.0
		if !e.opts.DisableDecay {
			hours := now.Sub(obj.Timestamp).Hours()
			if hours < 0 {
				hours = 0
			}
			recency = math.Pow(e.opts.DecayFactor, hours)
		}

		score := e.opts.Weights.Relevance*relevance +
			e.opts.Weights.Importance*float64(obj.Importance)/float64(types.MaxImportance) +
			e.opts.Weights.Recency*recency

		hits = append(hits, ScoredMemory{
			Memory:    obj,
			Score:     score,
			Relevance: relevance,
			Recency:   recency,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].Memory.Importance != hits[j].Memory.Importance {
			return hits[i].Memory.Importance > hits[j].Memory.Importance
		}
		return hits[i].Memory.Timestamp.After(hits[j].Memory.Timestamp)
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// semanticScores queries the vector index, best-effort. Index failures
// degrade to lexical-only ranking.
func (e *Engine) semanticScores(ctx context.Context, query string) map[string]float64 {
	if e.index == nil {
		return nil
	}
	matches, err := e.index.Search(ctx, query, semanticCandidates)
	if err != nil {
		e.logger.Warn("semantic search failed, falling back to lexical", zap.Error(err))
		return nil
	}
	scores := make(map[string]float64, len(matches))
	for _, m := range matches {
		scores[m.ID] = m.Score
	}
	return scores
}
