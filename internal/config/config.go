// Package config provides configuration management for mnemod.
// Settings come from three layers: built-in defaults, an optional YAML
// file, and environment variables with the MNEMOD_ prefix. Environment
// variables win over the file, the file wins over defaults.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration settings for the mnemod engine.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	LLM        LLMConfig        `yaml:"llm"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Features   FeaturesConfig   `yaml:"features"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port         int    `yaml:"port"`           // Server port (default: 7171)
	Host         string `yaml:"host"`           // Server host (default: 127.0.0.1)
	RateLimitRPS int    `yaml:"rate_limit_rps"` // Requests per second per client (default: 10)
}

// StorageConfig contains memory bank and document storage configuration.
type StorageConfig struct {
	Engine       string `yaml:"engine"`        // Memory bank engine: bank, sqlite (default: bank)
	DataPath     string `yaml:"data_path"`     // Path to data directory (default: ./data)
	PostgresURL  string `yaml:"postgres_url"`  // Connection string for the semantic index (optional)
	EmbeddingDim int    `yaml:"embedding_dim"` // Embedding dimension for the semantic index (default: 768)
}

// LLMConfig contains summarizer provider configuration.
type LLMConfig struct {
	Provider          string `yaml:"provider"`            // Provider: ollama, openai (default: ollama)
	OllamaURL         string `yaml:"ollama_url"`          // Ollama API URL (default: http://localhost:11434)
	OllamaModel       string `yaml:"ollama_model"`        // Ollama model for summarization (default: qwen2.5:7b)
	EmbeddingModel    string `yaml:"embedding_model"`     // Embedding model name (default: nomic-embed-text)
	OpenAIAPIKey      string `yaml:"openai_api_key"`      // OpenAI API key
	OpenAIModel       string `yaml:"openai_model"`        // OpenAI model name (default: gpt-4o-mini)
	RequestsPerMinute int    `yaml:"requests_per_minute"` // Rate limit toward the provider (default: 30)
	TimeoutSeconds    int    `yaml:"timeout_seconds"`     // Per-request timeout (default: 90)
}

// SchedulerConfig contains catch-up scheduling and liveness configuration.
type SchedulerConfig struct {
	Probe          string `yaml:"probe"`           // Liveness probe: file, redis, off (default: file)
	WatchDir       string `yaml:"watch_dir"`       // Directory watched for session activity (default: ./sessions)
	RedisAddr      string `yaml:"redis_addr"`      // Redis address for the heartbeat probe (default: localhost:6379)
	HeartbeatKey   string `yaml:"heartbeat_key"`   // Redis key holding the activity heartbeat (default: mnemod:heartbeat)
	ActivityWindow string `yaml:"activity_window"` // Duration treated as "recently active" (default: 30m)
}

// ExtractionConfig contains the memory extraction pipeline knobs.
type ExtractionConfig struct {
	MinImportanceThreshold int     `yaml:"min_importance_threshold"` // Floor below which facts are discarded (default: 4)
	MaxMemoriesPerDay      int     `yaml:"max_memories_per_day"`     // Per-day storage quota (default: 20)
	SimilarityThreshold    float64 `yaml:"similarity_threshold"`     // Near-duplicate consolidation threshold (default: 0.75)
	ConsolidationTopK      int     `yaml:"consolidation_top_k"`      // Candidates compared per new memory (default: 3)
}

// RetrievalConfig contains the retrieval scoring blend.
type RetrievalConfig struct {
	RelevanceWeight  float64 `yaml:"relevance_weight"`  // default: 0.4
	ImportanceWeight float64 `yaml:"importance_weight"` // default: 0.3
	RecencyWeight    float64 `yaml:"recency_weight"`    // default: 0.3
	DecayFactor      float64 `yaml:"decay_factor"`      // Hourly recency decay base (default: 0.995)
	DefaultLimit     int     `yaml:"default_limit"`     // Results returned when unspecified (default: 10)
}

// FeaturesConfig contains feature flags.
type FeaturesConfig struct {
	EnableExtraction    bool `yaml:"enable_extraction"`     // Extract memories during daily rollups (default: true)
	EnableConsolidation bool `yaml:"enable_consolidation"`  // Merge near-duplicate memories (default: true)
	EnableDecay         bool `yaml:"enable_decay"`          // Apply recency decay during retrieval (default: true)
	EnableSemanticIndex bool `yaml:"enable_semantic_index"` // Use the pgvector index when configured (default: false)
	EnableREST          bool `yaml:"enable_rest"`           // Serve the REST API (default: true)
}

// LoadConfig loads configuration from environment variables with
// sensible defaults. All environment variables use the MNEMOD_ prefix.
func LoadConfig() (*Config, error) {
	cfg := defaults()
	applyEnv(cfg)
	return cfg, cfg.validate()
}

// LoadConfigFromFile loads configuration from a YAML file layered
// between defaults and environment variables.
func LoadConfigFromFile(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	applyEnv(cfg)
	return cfg, cfg.validate()
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         7171,
			Host:         "127.0.0.1",
			RateLimitRPS: 10,
		},
		Storage: StorageConfig{
			Engine:       "bank",
			DataPath:     "./data",
			EmbeddingDim: 768,
		},
		LLM: LLMConfig{
			Provider:          "ollama",
			OllamaURL:         "http://localhost:11434",
			OllamaModel:       "qwen2.5:7b",
			EmbeddingModel:    "nomic-embed-text",
			OpenAIModel:       "gpt-4o-mini",
			RequestsPerMinute: 30,
			TimeoutSeconds:    90,
		},
		Scheduler: SchedulerConfig{
			Probe:          "file",
			WatchDir:       "./sessions",
			RedisAddr:      "localhost:6379",
			HeartbeatKey:   "mnemod:heartbeat",
			ActivityWindow: "30m",
		},
		Extraction: ExtractionConfig{
			MinImportanceThreshold: 4,
			MaxMemoriesPerDay:      20,
			SimilarityThreshold:    0.75,
			ConsolidationTopK:      3,
		},
		Retrieval: RetrievalConfig{
			RelevanceWeight:  0.4,
			ImportanceWeight: 0.3,
			RecencyWeight:    0.3,
			DecayFactor:      0.995,
			DefaultLimit:     10,
		},
		Features: FeaturesConfig{
			EnableExtraction:    true,
			EnableConsolidation: true,
			EnableDecay:         true,
			EnableREST:          true,
		},
	}
}

func applyEnv(cfg *Config) {
	cfg.Server.Port = getEnvInt("MNEMOD_PORT", cfg.Server.Port)
	cfg.Server.Host = getEnv("MNEMOD_HOST", cfg.Server.Host)
	cfg.Server.RateLimitRPS = getEnvInt("MNEMOD_RATE_LIMIT_RPS", cfg.Server.RateLimitRPS)

	cfg.Storage.Engine = getEnv("MNEMOD_STORAGE_ENGINE", cfg.Storage.Engine)
	cfg.Storage.DataPath = getEnv("MNEMOD_DATA_PATH", cfg.Storage.DataPath)
	cfg.Storage.PostgresURL = getEnv("MNEMOD_POSTGRES_URL", cfg.Storage.PostgresURL)
	cfg.Storage.EmbeddingDim = getEnvInt("MNEMOD_EMBEDDING_DIM", cfg.Storage.EmbeddingDim)

	cfg.LLM.Provider = getEnv("MNEMOD_LLM_PROVIDER", cfg.LLM.Provider)
	cfg.LLM.OllamaURL = getEnv("MNEMOD_OLLAMA_URL", cfg.LLM.OllamaURL)
	cfg.LLM.OllamaModel = getEnv("MNEMOD_OLLAMA_MODEL", cfg.LLM.OllamaModel)
	cfg.LLM.EmbeddingModel = getEnv("MNEMOD_EMBEDDING_MODEL", cfg.LLM.EmbeddingModel)
	cfg.LLM.OpenAIAPIKey = getEnv("MNEMOD_OPENAI_API_KEY", cfg.LLM.OpenAIAPIKey)
	cfg.LLM.OpenAIModel = getEnv("MNEMOD_OPENAI_MODEL", cfg.LLM.OpenAIModel)
	cfg.LLM.RequestsPerMinute = getEnvInt("MNEMOD_LLM_RPM", cfg.LLM.RequestsPerMinute)
	cfg.LLM.TimeoutSeconds = getEnvInt("MNEMOD_LLM_TIMEOUT_SECONDS", cfg.LLM.TimeoutSeconds)

	cfg.Scheduler.Probe = getEnv("MNEMOD_LIVENESS_PROBE", cfg.Scheduler.Probe)
	cfg.Scheduler.WatchDir = getEnv("MNEMOD_WATCH_DIR", cfg.Scheduler.WatchDir)
	cfg.Scheduler.RedisAddr = getEnv("MNEMOD_REDIS_ADDR", cfg.Scheduler.RedisAddr)
	cfg.Scheduler.HeartbeatKey = getEnv("MNEMOD_HEARTBEAT_KEY", cfg.Scheduler.HeartbeatKey)
	cfg.Scheduler.ActivityWindow = getEnv("MNEMOD_ACTIVITY_WINDOW", cfg.Scheduler.ActivityWindow)

	cfg.Extraction.MinImportanceThreshold = getEnvInt("MNEMOD_MIN_IMPORTANCE_THRESHOLD", cfg.Extraction.MinImportanceThreshold)
	cfg.Extraction.MaxMemoriesPerDay = getEnvInt("MNEMOD_MAX_MEMORIES_PER_DAY", cfg.Extraction.MaxMemoriesPerDay)
	cfg.Extraction.SimilarityThreshold = getEnvFloat("MNEMOD_SIMILARITY_THRESHOLD", cfg.Extraction.SimilarityThreshold)
	cfg.Extraction.ConsolidationTopK = getEnvInt("MNEMOD_CONSOLIDATION_TOP_K", cfg.Extraction.ConsolidationTopK)

	cfg.Retrieval.RelevanceWeight = getEnvFloat("MNEMOD_RELEVANCE_WEIGHT", cfg.Retrieval.RelevanceWeight)
	cfg.Retrieval.ImportanceWeight = getEnvFloat("MNEMOD_IMPORTANCE_WEIGHT", cfg.Retrieval.ImportanceWeight)
	cfg.Retrieval.RecencyWeight = getEnvFloat("MNEMOD_RECENCY_WEIGHT", cfg.Retrieval.RecencyWeight)
	cfg.Retrieval.DecayFactor = getEnvFloat("MNEMOD_DECAY_FACTOR", cfg.Retrieval.DecayFactor)
	cfg.Retrieval.DefaultLimit = getEnvInt("MNEMOD_DEFAULT_LIMIT", cfg.Retrieval.DefaultLimit)

	cfg.Features.EnableExtraction = getEnvBool("MNEMOD_ENABLE_EXTRACTION", cfg.Features.EnableExtraction)
	cfg.Features.EnableConsolidation = getEnvBool("MNEMOD_ENABLE_CONSOLIDATION", cfg.Features.EnableConsolidation)
	cfg.Features.EnableDecay = getEnvBool("MNEMOD_ENABLE_DECAY", cfg.Features.EnableDecay)
	cfg.Features.EnableSemanticIndex = getEnvBool("MNEMOD_ENABLE_SEMANTIC_INDEX", cfg.Features.EnableSemanticIndex)
	cfg.Features.EnableREST = getEnvBool("MNEMOD_ENABLE_REST", cfg.Features.EnableREST)
}

func (c *Config) validate() error {
	if c.Extraction.MinImportanceThreshold < 1 || c.Extraction.MinImportanceThreshold > 10 {
		return fmt.Errorf("config: min_importance_threshold %d outside [1,10]", c.Extraction.MinImportanceThreshold)
	}
	if c.Extraction.SimilarityThreshold <= 0 || c.Extraction.SimilarityThreshold > 1 {
		return fmt.Errorf("config: similarity_threshold %v outside (0,1]", c.Extraction.SimilarityThreshold)
	}
	if c.Retrieval.DecayFactor <= 0 || c.Retrieval.DecayFactor >= 1 {
		return fmt.Errorf("config: decay_factor %v outside (0,1)", c.Retrieval.DecayFactor)
	}
	switch c.Scheduler.Probe {
	case "file", "redis", "off":
	default:
		return fmt.Errorf("config: unknown liveness probe %q", c.Scheduler.Probe)
	}
	switch c.Storage.Engine {
	case "bank", "sqlite":
	default:
		return fmt.Errorf("config: unknown storage engine %q", c.Storage.Engine)
	}
	return nil
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default
// value. Unparsable values fall back to the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default
// value. Unparsable values fall back to the default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default
// value. It recognizes "true", "1", "yes" and "false", "0", "no".
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch value {
		case "true", "1", "yes", "True", "TRUE", "Yes", "YES":
			return true
		case "false", "0", "no", "False", "FALSE", "No", "NO":
			return false
		}
	}
	return defaultValue
}
