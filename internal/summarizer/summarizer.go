// Package summarizer provides the pluggable prose-to-summary and
// prose-to-facts capability consumed by the rollup pipeline. Prompt
// construction and model choice live here; callers treat every failure as
// "no structured output" rather than a fatal error, so a dead model never
// sinks a rollup.
package summarizer

import (
	"context"
	"errors"

	"github.com/mnemod/mnemod/pkg/types"
)

// Sentinel errors for the summarizer failure taxonomy.
var (
	// ErrUnavailable indicates the summarization call failed, timed out,
	// or was rejected by the circuit breaker. Recoverable: callers take
	// the narrative fallback path.
	ErrUnavailable = errors.New("summarizer unavailable")

	// ErrMalformedOutput indicates the model responded but the structured
	// payload could not be parsed. Recoverable: treated as zero extracted
	// facts.
	ErrMalformedOutput = errors.New("malformed summarizer output")
)

// FactCandidate is one structured fact proposed by the model before
// filtering, quota, and consolidation are applied.
type FactCandidate struct {
	Content    string              `json:"content"`
	Importance int                 `json:"importance"`
	Category   types.Category      `json:"category"`
	Tags       map[string][]string `json:"tags,omitempty"`
}

// Summarizer condenses narrative content and extracts discrete facts.
type Summarizer interface {
	// Summarize produces a condensed narrative of content appropriate for
	// the given rollup level.
	Summarize(ctx context.Context, content string, level types.Level) (string, error)

	// ExtractFacts converts narrative content into structured fact
	// candidates. A partial or timed-out response is discarded wholesale;
	// the returned slice is either complete or empty.
	ExtractFacts(ctx context.Context, content string) ([]FactCandidate, error)
}

// Client is the low-level model transport shared by providers.
type Client interface {
	// Complete sends a single prompt and returns the completion text.
	Complete(ctx context.Context, prompt string) (string, error)

	// Embed returns a vector embedding for text. Providers without an
	// embedding endpoint return ErrUnavailable.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Model names the configured model, for logging.
	Model() string
}
