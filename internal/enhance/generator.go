package enhance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ErrUnavailable is returned when no generator is configured.
var ErrUnavailable = errors.New("text generation unavailable")

// Generator produces free text from a prompt. Implementations talk to an LLM.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
	Close()
}

// Enhancer wraps an optional Generator with retries, latency tracking and
// output validation. A nil generator is valid: every call then fails with
// ErrUnavailable and callers use their rule-based fallback.
type Enhancer struct {
	gen     Generator
	stats   *LLMStats
	log     *slog.Logger
	backoff func(attempt int) time.Duration
}

func NewEnhancer(gen Generator, log *slog.Logger) *Enhancer {
	return &Enhancer{
		gen:     gen,
		stats:   NewLLMStats(time.Hour),
		log:     log,
		backoff: Backoff,
	}
}

// Available reports whether a generator is configured.
func (e *Enhancer) Available() bool {
	return e != nil && e.gen != nil
}

// Model returns the generator's model name, or "" when none is configured.
func (e *Enhancer) Model() string {
	if !e.Available() {
		return ""
	}
	return e.gen.Model()
}

func (e *Enhancer) Stats() *LLMStats {
	return e.stats
}

// Generate calls the generator, retrying transient failures, and validates the
// result before returning it.
func (e *Enhancer) Generate(ctx context.Context, prompt string) (string, error) {
	if !e.Available() {
		return "", ErrUnavailable
	}

	var lastErr error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			wait := e.backoff(attempt - 1)
			e.log.Info("retrying generation", "model", e.gen.Model(), "attempt", attempt, "backoff", wait)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(wait):
			}
		}

		start := time.Now()
		text, err := e.gen.Generate(ctx, prompt)
		e.stats.Record(time.Since(start).Milliseconds())
		if err == nil {
			text = strings.TrimSpace(stripCodeBlock(text))
			if !ValidateOutput(text) {
				e.stats.RecordRejected()
				return "", fmt.Errorf("generated text rejected (%d bytes)", len(text))
			}
			return text, nil
		}

		lastErr = err
		if !IsRetryable(err) {
			break
		}
	}
	return "", fmt.Errorf("generate with %s: %w", e.gen.Model(), lastErr)
}

// Rewrite returns the generated text for prompt, or fallback when generation
// is unavailable or fails.
func (e *Enhancer) Rewrite(ctx context.Context, prompt, fallback string) string {
	text, err := e.Generate(ctx, prompt)
	if err != nil {
		if !errors.Is(err, ErrUnavailable) {
			e.log.Warn("generation failed, using fallback", "error", err)
		}
		return fallback
	}
	return text
}

// Close releases the generator's resources.
func (e *Enhancer) Close() {
	if e.Available() {
		e.gen.Close()
	}
}
