package retrieval

import (
	"math"
	"strings"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mnemod/mnemod/pkg/types"
)

// BM25 parameters. Standard values; the corpus is small enough that
// tuning them has never been worth it.
const (
	bm25K1 = 1.2
	bm25B  = 0.75

	tokenCacheSize = 4096
)

// lexicalRanker scores memories against a query with BM25. Memory
// contents are immutable per id, so tokenizations are cached by id.
type lexicalRanker struct {
	cache *lru.Cache[string, []string]
}

func newLexicalRanker() *lexicalRanker {
	cache, _ := lru.New[string, []string](tokenCacheSize)
	return &lexicalRanker{cache: cache}
}

func tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func (r *lexicalRanker) docTokens(obj *types.MemoryObject) []string {
	if toks, ok := r.cache.Get(obj.ID); ok {
		return toks
	}
	toks := tokens(obj.Content)
	r.cache.Add(obj.ID, toks)
	return toks
}

// rank returns BM25 scores for the query against the given corpus,
// normalized into [0,1] by the best-scoring document. An empty query or
// corpus scores everything zero.
func (r *lexicalRanker) rank(query string, corpus []*types.MemoryObject) map[string]float64 {
	scores := make(map[string]float64, len(corpus))
	qTokens := tokens(query)
	if len(qTokens) == 0 || len(corpus) == 0 {
		return scores
	}

	docs := make([][]string, len(corpus))
	df := make(map[string]int)
	var totalLen int
	for i, obj := range corpus {
		toks := r.docTokens(obj)
		docs[i] = toks
		totalLen += len(toks)
		seen := make(map[string]bool, len(toks))
		for _, tok := range toks {
			if !seen[tok] {
				seen[tok] = true
				df[tok]++
			}
		}
	}
	avgLen := float64(totalLen) / float64(len(corpus))

	n := float64(len(corpus))
	idf := make(map[string]float64, len(qTokens))
	for _, q := range qTokens {
		d := float64(df[q])
		idf[q] = math.Log(1 + (n-d+0.5)/(d+0.5))
	}

	var best float64
	for i, obj := range corpus {
		tf := make(map[string]int, len(docs[i]))
		for _, tok := range docs[i] {
			tf[tok]++
		}
		var score float64
		dl := float64(len(docs[i]))
		for _, q := range qTokens {
			f := float64(tf[q])
			if f == 0 {
				continue
			}
			score += idf[q] * (f * (bm25K1 + 1)) / (f + bm25K1*(1-bm25B+bm25B*dl/avgLen))
		}
		scores[obj.ID] = score
		if score > best {
			best = score
		}
	}

	if best > 0 {
		for id := range scores {
			scores[id] /= best
		}
	}
	return scores
}
