package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"
)

// TokenFunc receives each token as the model produces it. Returning an
// error aborts the stream.
type TokenFunc func(ctx context.Context, token string) error

// Generator produces a streamed answer for a prompt.
type Generator interface {
	// Stream generates an answer under the given system instruction,
	// invoking onToken for every token in emission order, and returns the
	// full answer text.
	Stream(ctx context.Context, system, prompt string, onToken TokenFunc) (string, error)
}

// GenkitConfig contains all required parameters for GenkitGenerator.
type GenkitConfig struct {
	Genkit    *genkit.Genkit
	ModelName string // provider-qualified, e.g. "googleai/gemini-2.5-flash"

	Retry          RetryConfig          // zero value uses defaults
	CircuitBreaker CircuitBreakerConfig // zero value uses defaults
	RateLimiter    *rate.Limiter        // nil uses the default limiter
	Logger         *slog.Logger
}

// GenkitGenerator streams model output through Genkit with rate limiting,
// retry, and a circuit breaker in front of the provider.
//
// Attempts that failed before emitting any token are retried with
// exponential backoff. Once a token has reached the caller a failure is
// final, so the caller never sees duplicated output.
type GenkitGenerator struct {
	g         *genkit.Genkit
	modelName string

	retry   RetryConfig
	breaker *CircuitBreaker
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewGenkitGenerator creates a generator from the given configuration.
func NewGenkitGenerator(cfg GenkitConfig) (*GenkitGenerator, error) {
	if cfg.Genkit == nil {
		return nil, errors.New("genkit instance is required")
	}
	if cfg.ModelName == "" {
		return nil, errors.New("model name is required")
	}

	retry := cfg.Retry
	if retry.MaxRetries == 0 {
		retry = DefaultRetryConfig()
	}
	limiter := cfg.RateLimiter
	if limiter == nil {
		limiter = rate.NewLimiter(10, 30)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &GenkitGenerator{
		g:         cfg.Genkit,
		modelName: cfg.ModelName,
		retry:     retry,
		breaker:   NewCircuitBreaker(cfg.CircuitBreaker),
		limiter:   limiter,
		logger:    logger,
	}, nil
}

// Stream implements Generator.
func (g *GenkitGenerator) Stream(ctx context.Context, system, prompt string, onToken TokenFunc) (string, error) {
	if err := g.breaker.Allow(); err != nil {
		g.logger.Warn("rejecting generation", "state", g.breaker.State().String())
		return "", fmt.Errorf("service unavailable: %w", err)
	}

	text, err := g.generateWithRetry(ctx, system, prompt, onToken)
	if err != nil {
		g.breaker.Failure()
		return "", err
	}
	g.breaker.Success()
	return text, nil
}

func (g *GenkitGenerator) generateWithRetry(ctx context.Context, system, prompt string, onToken TokenFunc) (string, error) {
	var lastErr error
	delay := g.retry.InitialInterval
	start := time.Now()

	for attempt := 0; attempt <= g.retry.MaxRetries; attempt++ {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit wait: %w", err)
		}

		emitted := false
		resp, err := genkit.Generate(ctx, g.g,
			ai.WithModelName(g.modelName),
			ai.WithSystem(system),
			ai.WithPrompt(prompt),
			ai.WithStreaming(func(cbCtx context.Context, chunk *ai.ModelResponseChunk) error {
				text := chunk.Text()
				if text == "" {
					return nil
				}
				emitted = true
				return onToken(cbCtx, text)
			}),
		)
		if err == nil {
			g.logger.Debug("generation complete",
				"attempts", attempt+1,
				"elapsed", time.Since(start),
			)
			return resp.Text(), nil
		}

		lastErr = err

		// After the first forwarded token a retry would replay output.
		if emitted || !retryableError(err) {
			return "", fmt.Errorf("generate: %w", err)
		}
		if attempt == g.retry.MaxRetries {
			break
		}

		g.logger.Debug("retrying generation",
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("context canceled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, g.retry.MaxInterval)
		}
	}

	return "", fmt.Errorf("generate after %d retries (elapsed: %v): %w",
		g.retry.MaxRetries, time.Since(start), lastErr)
}
