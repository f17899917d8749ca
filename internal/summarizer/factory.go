package summarizer

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ProviderConfig selects and tunes a model provider.
type ProviderConfig struct {
	// Provider is one of "ollama" (default) or "openai".
	Provider string

	// BaseURL overrides the provider endpoint.
	BaseURL string

	// APIKey authenticates hosted providers.
	APIKey string

	// Model is the completion model name.
	Model string

	// EmbeddingModel is the embedding model name.
	EmbeddingModel string

	// Timeout bounds each model call.
	Timeout time.Duration

	// RequestsPerMinute throttles model calls.
	RequestsPerMinute int
}

// New builds an LLMSummarizer for the configured provider.
func New(cfg ProviderConfig, logger *zap.Logger) (*LLMSummarizer, error) {
	var client Client
	switch cfg.Provider {
	case "ollama", "":
		client = NewOllamaClient(OllamaConfig{
			BaseURL:        cfg.BaseURL,
			Model:          cfg.Model,
			EmbeddingModel: cfg.EmbeddingModel,
			Timeout:        cfg.Timeout,
		})
	case "openai":
		client = NewOpenAIClient(OpenAIConfig{
			APIKey:         cfg.APIKey,
			BaseURL:        cfg.BaseURL,
			Model:          cfg.Model,
			EmbeddingModel: cfg.EmbeddingModel,
			Timeout:        cfg.Timeout,
		})
	default:
		return nil, fmt.Errorf("unsupported summarizer provider: %q", cfg.Provider)
	}

	return NewLLMSummarizer(client, Options{
		Timeout:           cfg.Timeout,
		RequestsPerMinute: cfg.RequestsPerMinute,
	}, logger), nil
}
