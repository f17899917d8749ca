package summarizer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mnemod/mnemod/pkg/types"
)

// LLMSummarizer implements Summarizer over a model Client, adding prompt
// construction, response parsing, a per-call timeout, a rate limiter, and a
// circuit breaker. Every call either returns a complete result or an error
// with nothing written anywhere — partial output from a timed-out call is
// discarded wholesale.
type LLMSummarizer struct {
	client  Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	timeout time.Duration
	logger  *zap.Logger
}

// Options tunes the LLMSummarizer wrapper.
type Options struct {
	// Timeout bounds each model call (default 90s).
	Timeout time.Duration

	// RequestsPerMinute throttles model calls (default 30).
	RequestsPerMinute int

	// BreakerFailures is the consecutive-failure count that trips the
	// circuit (default 3).
	BreakerFailures uint32

	// BreakerCooldown is how long the circuit stays open (default 30s).
	BreakerCooldown time.Duration
}

// NewLLMSummarizer wraps client into a Summarizer.
func NewLLMSummarizer(client Client, opts Options, logger *zap.Logger) *LLMSummarizer {
	if opts.Timeout == 0 {
		opts.Timeout = 90 * time.Second
	}
	if opts.RequestsPerMinute == 0 {
		opts.RequestsPerMinute = 30
	}
	return &LLMSummarizer{
		client:  client,
		breaker: newBreaker(breakerConfig{maxFailures: opts.BreakerFailures, timeout: opts.BreakerCooldown}),
		limiter: rate.NewLimiter(rate.Limit(float64(opts.RequestsPerMinute)/60.0), opts.RequestsPerMinute),
		timeout: opts.Timeout,
		logger:  logger,
	}
}

// complete runs one guarded model call: rate limit, timeout, breaker.
func (s *LLMSummarizer) complete(ctx context.Context, prompt string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	response, err := throughBreaker(callCtx, s.breaker, func() (string, error) {
		return s.client.Complete(callCtx, prompt)
	})
	if err != nil {
		if callCtx.Err() != nil {
			return "", fmt.Errorf("%w: call timed out after %s", ErrUnavailable, s.timeout)
		}
		return "", err
	}
	return response, nil
}

// Summarize produces a condensed narrative for the given level.
func (s *LLMSummarizer) Summarize(ctx context.Context, content string, level types.Level) (string, error) {
	start := time.Now()
	response, err := s.complete(ctx, buildSummarizePrompt(content, level))
	if err != nil {
		s.logger.Warn("summarize failed",
			zap.String("level", string(level)),
			zap.String("model", s.client.Model()),
			zap.Error(err))
		return "", err
	}

	summary := strings.TrimSpace(response)
	if summary == "" {
		return "", fmt.Errorf("%w: empty summary", ErrMalformedOutput)
	}

	s.logger.Debug("summarize complete",
		zap.String("level", string(level)),
		zap.Duration("took", time.Since(start)))
	return summary, nil
}

// ExtractFacts converts narrative content into structured fact candidates.
func (s *LLMSummarizer) ExtractFacts(ctx context.Context, content string) ([]FactCandidate, error) {
	start := time.Now()
	response, err := s.complete(ctx, buildExtractFactsPrompt(content))
	if err != nil {
		s.logger.Warn("fact extraction failed",
			zap.String("model", s.client.Model()),
			zap.Error(err))
		return nil, err
	}

	facts, err := ParseFacts(response)
	if err != nil {
		s.logger.Warn("fact extraction returned unparseable output",
			zap.String("model", s.client.Model()),
			zap.Error(err))
		return nil, err
	}

	s.logger.Debug("fact extraction complete",
		zap.Int("candidates", len(facts)),
		zap.Duration("took", time.Since(start)))
	return facts, nil
}

// Embed exposes the underlying client's embedding endpoint so the semantic
// index can share the provider connection.
func (s *LLMSummarizer) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.client.Embed(callCtx, text)
}

var _ Summarizer = (*LLMSummarizer)(nil)
