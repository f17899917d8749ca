package cli

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mnemod/mnemod/internal/config"
	"github.com/mnemod/mnemod/internal/extraction"
	"github.com/mnemod/mnemod/internal/integrity"
	"github.com/mnemod/mnemod/internal/liveness"
	"github.com/mnemod/mnemod/internal/retrieval"
	"github.com/mnemod/mnemod/internal/rollup"
	"github.com/mnemod/mnemod/internal/scheduler"
	"github.com/mnemod/mnemod/internal/storage"
	"github.com/mnemod/mnemod/internal/storage/bank"
	"github.com/mnemod/mnemod/internal/storage/postgres"
	"github.com/mnemod/mnemod/internal/storage/sqlite"
	"github.com/mnemod/mnemod/internal/summarizer"
)

// app bundles the wired engine components behind the CLI commands.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	store     storage.MemoryStore
	periods   storage.PeriodStore
	states    storage.StateStore
	probe     liveness.Probe
	sched     *scheduler.Scheduler
	executor  *rollup.Executor
	retriever *retrieval.Engine
	checker   *integrity.Checker
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadConfigFromFile(configPath)
	}
	return config.LoadConfig()
}

// buildApp wires every component from configuration. Callers must close
// the returned app.
func buildApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &app{cfg: cfg, logger: logger}

	switch cfg.Storage.Engine {
	case "sqlite":
		a.store, err = sqlite.NewMemoryStore(filepath.Join(cfg.Storage.DataPath, "memories.db"))
	default:
		a.store, err = bank.OpenMemoryStore(filepath.Join(cfg.Storage.DataPath, "memories.jsonl"))
	}
	if err != nil {
		return nil, fmt.Errorf("open memory store: %w", err)
	}
	a.periods = bank.NewPeriodStore(filepath.Join(cfg.Storage.DataPath, "periods"))
	a.states = bank.NewStateStore(filepath.Join(cfg.Storage.DataPath, "state.json"))

	summ, err := summarizer.New(summarizer.ProviderConfig{
		Provider:          cfg.LLM.Provider,
		BaseURL:           cfg.LLM.OllamaURL,
		APIKey:            cfg.LLM.OpenAIAPIKey,
		Model:             providerModel(cfg),
		EmbeddingModel:    cfg.LLM.EmbeddingModel,
		Timeout:           time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
	}, logger)
	if err != nil {
		return nil, err
	}

	var index storage.SemanticIndex
	if cfg.Features.EnableSemanticIndex && cfg.Storage.PostgresURL != "" {
		index, err = postgres.NewSemanticIndex(cfg.Storage.PostgresURL, cfg.Storage.EmbeddingDim, summ, logger)
		if err != nil {
			// Semantic search is an enhancement, not a requirement.
			logger.Warn("semantic index unavailable, using lexical ranking only", zap.Error(err))
			index = nil
		}
	}

	a.probe, err = buildProbe(cfg, logger)
	if err != nil {
		return nil, err
	}

	var mu sync.RWMutex
	var extractor *extraction.Engine
	if cfg.Features.EnableExtraction {
		extractor = extraction.New(a.store, index, &mu, extraction.Options{
			MinImportance:        cfg.Extraction.MinImportanceThreshold,
			MaxMemoriesPerDay:    cfg.Extraction.MaxMemoriesPerDay,
			SimilarityThreshold:  cfg.Extraction.SimilarityThreshold,
			ConsolidationTopK:    cfg.Extraction.ConsolidationTopK,
			DisableConsolidation: !cfg.Features.EnableConsolidation,
		}, logger)
	}

	a.sched = scheduler.New(a.probe, logger)
	a.executor = rollup.New(a.periods, a.states, summ, extractor, logger)
	a.retriever = retrieval.New(a.store, index, &mu, retrieval.Options{
		Weights: retrieval.Weights{
			Relevance:  cfg.Retrieval.RelevanceWeight,
			Importance: cfg.Retrieval.ImportanceWeight,
			Recency:    cfg.Retrieval.RecencyWeight,
		},
		DecayFactor:  cfg.Retrieval.DecayFactor,
		DisableDecay: !cfg.Features.EnableDecay,
	}, logger)
	a.checker = integrity.New(a.store, a.periods, a.states, logger)
	return a, nil
}

func providerModel(cfg *config.Config) string {
	if cfg.LLM.Provider == "openai" {
		return cfg.LLM.OpenAIModel
	}
	return cfg.LLM.OllamaModel
}

func buildProbe(cfg *config.Config, logger *zap.Logger) (liveness.Probe, error) {
	window, err := time.ParseDuration(cfg.Scheduler.ActivityWindow)
	if err != nil {
		return nil, fmt.Errorf("parse activity window: %w", err)
	}
	switch cfg.Scheduler.Probe {
	case "redis":
		return liveness.NewRedisProbe(cfg.Scheduler.RedisAddr, cfg.Scheduler.HeartbeatKey, window), nil
	case "off":
		return liveness.StaticProbe(false), nil
	default:
		return liveness.NewFileProbe(cfg.Scheduler.WatchDir, window, logger)
	}
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close memory store", zap.Error(err))
	}
	if err := a.probe.Close(); err != nil {
		a.logger.Warn("close liveness probe", zap.Error(err))
	}
	_ = a.logger.Sync()
}
