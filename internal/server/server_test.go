package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mnemod/mnemod/internal/extraction"
	"github.com/mnemod/mnemod/internal/integrity"
	"github.com/mnemod/mnemod/internal/liveness"
	"github.com/mnemod/mnemod/internal/retrieval"
	"github.com/mnemod/mnemod/internal/rollup"
	"github.com/mnemod/mnemod/internal/scheduler"
	"github.com/mnemod/mnemod/internal/storage/bank"
	"github.com/mnemod/mnemod/internal/summarizer"
	"github.com/mnemod/mnemod/pkg/types"
)

type stubSummarizer struct{}

func (stubSummarizer) Summarize(ctx context.Context, content string, level types.Level) (string, error) {
	return "condensed: " + content, nil
}

func (stubSummarizer) ExtractFacts(ctx context.Context, content string) ([]summarizer.FactCandidate, error) {
	return nil, nil
}

type fixture struct {
	srv     *Server
	store   *bank.MemoryStore
	periods *bank.PeriodStore
	states  *bank.StateStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	store, err := bank.OpenMemoryStore(filepath.Join(dir, "memories.jsonl"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	periods := bank.NewPeriodStore(filepath.Join(dir, "periods"))
	states := bank.NewStateStore(filepath.Join(dir, "state.json"))

	logger := zap.NewNop()
	var mu sync.RWMutex
	extractor := extraction.New(store, nil, &mu, extraction.Options{}, logger)
	exec := rollup.New(periods, states, stubSummarizer{}, extractor, logger)
	sched := scheduler.New(liveness.StaticProbe(false), logger)
	retriever := retrieval.New(store, nil, &mu, retrieval.Options{}, logger)
	checker := integrity.New(store, periods, states, logger)

	srv := New(sched, exec, retriever, checker, store, states,
		Options{Host: "127.0.0.1", Port: 0, RateLimitRPS: 100}, logger)
	return &fixture{srv: srv, store: store, periods: periods, states: states}
}

func (f *fixture) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func seedMemory(t *testing.T, f *fixture, content string, importance int) {
	t.Helper()
	require.NoError(t, f.store.Append(context.Background(), &types.MemoryObject{
		ID:         uuid.NewString(),
		Content:    content,
		Category:   types.CategorySemantic,
		Importance: importance,
		Timestamp:  time.Now().UTC(),
		Status:     types.StatusActive,
	}))
}

func TestHandleSearch(t *testing.T) {
	f := newFixture(t)
	seedMemory(t, f, "allergic to peanuts", 8)
	seedMemory(t, f, "prefers aisle seats", 4)

	rec := f.do(t, http.MethodGet, "/v1/memories/search?q=allergic+to+peanuts&limit=1")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Results []retrieval.ScoredMemory `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Results, 1)
	assert.Equal(t, "allergic to peanuts", body.Results[0].Memory.Content)
}

func TestHandleSearch_RequiresQuery(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/v1/memories/search")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSearch_RejectsBadLimit(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/v1/memories/search?q=x&limit=zero")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRollupCheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	yesterday := types.KeyFor(types.LevelDaily, time.Now().UTC().AddDate(0, 0, -1))
	require.NoError(t, f.periods.Append(ctx, types.LevelDaily, yesterday, "what happened yesterday"))

	rec := f.do(t, http.MethodPost, "/v1/rollups/check")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Due     []scheduler.DueRollup `json:"due"`
		Results []rollup.Result       `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Due)
	require.NotEmpty(t, body.Results)
	assert.Equal(t, yesterday, body.Results[0].Period)

	state, err := f.states.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, yesterday, state.LastDailyPeriod)
}

func TestHandleRollupCheck_MissingSourceIsSkipped(t *testing.T) {
	f := newFixture(t)

	// No documents at all: everything due lacks a source, and the pass
	// still succeeds with zero results.
	rec := f.do(t, http.MethodPost, "/v1/rollups/check")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Results []rollup.Result `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Empty(t, body.Results)
}

func TestHandleStatus(t *testing.T) {
	f := newFixture(t)
	seedMemory(t, f, "works at the observatory", 7)

	rec := f.do(t, http.MethodGet, "/v1/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Bank struct {
			Total int `json:"total"`
		} `json:"bank"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Bank.Total)
}

func TestHandleIntegrity(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/integrity")
	assert.Equal(t, http.StatusOK, rec.Code)

	// Break an invariant: watermark without its destination section.
	require.NoError(t, f.states.Save(context.Background(),
		&types.RollupState{LastDailyPeriod: "2026-02-09"}))
	rec = f.do(t, http.MethodGet, "/v1/integrity")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}
