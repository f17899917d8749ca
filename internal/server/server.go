// Package server exposes the engine over a small REST API: trigger a
// catch-up pass, search memories, and read status and integrity
// reports.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/mnemod/mnemod/internal/integrity"
	"github.com/mnemod/mnemod/internal/retrieval"
	"github.com/mnemod/mnemod/internal/rollup"
	"github.com/mnemod/mnemod/internal/scheduler"
	"github.com/mnemod/mnemod/internal/storage"
	"github.com/mnemod/mnemod/internal/summarizer"
)

// Server wires the engine components behind HTTP handlers.
type Server struct {
	sched     *scheduler.Scheduler
	executor  *rollup.Executor
	retriever *retrieval.Engine
	checker   *integrity.Checker
	store     storage.MemoryStore
	states    storage.StateStore
	logger    *zap.Logger

	httpServer *http.Server
}

// Options configures the HTTP listener.
type Options struct {
	Host         string
	Port         int
	RateLimitRPS int
}

// New builds the server and its router.
func New(sched *scheduler.Scheduler, executor *rollup.Executor, retriever *retrieval.Engine, checker *integrity.Checker, store storage.MemoryStore, states storage.StateStore, opts Options, logger *zap.Logger) *Server {
	s := &Server{
		sched:     sched,
		executor:  executor,
		retriever: retriever,
		checker:   checker,
		store:     store,
		states:    states,
		logger:    logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	if opts.RateLimitRPS > 0 {
		r.Use(newRateLimiter(opts.RateLimitRPS).middleware)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/rollups/check", s.handleRollupCheck)
		r.Get("/memories/search", s.handleSearch)
		r.Get("/status", s.handleStatus)
		r.Get("/integrity", s.handleIntegrity)
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

// handleRollupCheck runs one catch-up pass: compute due rollups and
// execute them in order, stopping at the first hard failure.
func (s *Server) handleRollupCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	state, err := s.states.Load(ctx)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	due := s.sched.DuePeriods(ctx, state, time.Now().UTC())
	results := make([]*rollup.Result, 0, len(due))
	for _, d := range due {
		res, err := s.executor.Run(ctx, d.Level, d.Period)
		if errors.Is(err, rollup.ErrSourceMissing) {
			s.logger.Info("skipping rollup with no source document",
				zap.String("level", string(d.Level)), zap.String("period", d.Period))
			continue
		}
		if errors.Is(err, summarizer.ErrUnavailable) {
			s.logger.Warn("rollup deferred, summarizer unavailable",
				zap.String("level", string(d.Level)), zap.String("period", d.Period))
			continue
		}
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err)
			return
		}
		results = append(results, res)
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"due":     due,
		"results": results,
	})
}

// handleSearch ranks active memories against the q parameter.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("q parameter is required"))
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = n
	}

	hits, err := s.retriever.Retrieve(r.Context(), query, limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"results": hits})
}

// handleStatus reports bank statistics and the rollup watermarks.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := s.store.Stats(ctx)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	state, err := s.states.Load(ctx)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"bank":  stats,
		"state": state,
	})
}

// handleIntegrity runs a full audit pass.
func (s *Server) handleIntegrity(w http.ResponseWriter, r *http.Request) {
	report, err := s.checker.Check(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	status := http.StatusOK
	if !report.OK() {
		status = http.StatusConflict
	}
	s.writeJSON(w, status, report)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("response encoding failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
