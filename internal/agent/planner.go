package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"
)

// StreamCallback is called for each chunk of a streaming response. Return
// an error to abort the stream.
type StreamCallback func(ctx context.Context, chunk *ai.ModelResponseChunk) error

// Planner asks the generative provider for the next move: either one or
// more strategy requests, or final answer text.
type Planner interface {
	Decide(ctx context.Context, system string, messages []*ai.Message, cb StreamCallback) (*ai.ModelResponse, error)
}

// GenkitPlanner implements Planner on a Genkit model with the strategy
// tools attached. Tool requests are returned to the caller rather than
// executed by Genkit, so the loop stays in charge of invocation order.
type GenkitPlanner struct {
	g         *genkit.Genkit
	modelName string
	toolRefs  []ai.ToolRef

	retryConfig RetryConfig
	rateLimiter *rate.Limiter
	logger      *slog.Logger
}

// PlannerConfig carries the dependencies for a GenkitPlanner.
type PlannerConfig struct {
	Genkit    *genkit.Genkit
	ModelName string    // provider-qualified, e.g. "googleai/gemini-2.5-flash"
	Tools     []ai.Tool // registered strategy tools

	RetryConfig RetryConfig   // zero value uses defaults
	RateLimiter *rate.Limiter // nil uses a default limiter
	Logger      *slog.Logger
}

// NewGenkitPlanner creates a planner bound to the given model and tools.
func NewGenkitPlanner(cfg PlannerConfig) (*GenkitPlanner, error) {
	if cfg.Genkit == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if len(cfg.Tools) == 0 {
		return nil, fmt.Errorf("at least one tool is required")
	}

	retryConfig := cfg.RetryConfig
	if retryConfig.MaxRetries == 0 {
		retryConfig = DefaultRetryConfig()
	}
	rl := cfg.RateLimiter
	if rl == nil {
		rl = rate.NewLimiter(10, 30)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	toolRefs := make([]ai.ToolRef, len(cfg.Tools))
	for i, t := range cfg.Tools {
		toolRefs[i] = t
	}

	return &GenkitPlanner{
		g:           cfg.Genkit,
		modelName:   cfg.ModelName,
		toolRefs:    toolRefs,
		retryConfig: retryConfig,
		rateLimiter: rl,
		logger:      cfg.Logger,
	}, nil
}

// Decide runs one generation step with exponential backoff on transient
// provider errors. A persistent failure surfaces as
// ErrGenerationUnavailable.
func (p *GenkitPlanner) Decide(ctx context.Context, system string, messages []*ai.Message, cb StreamCallback) (*ai.ModelResponse, error) {
	opts := []ai.GenerateOption{
		ai.WithSystem(system),
		ai.WithMessages(messages...),
		ai.WithTools(p.toolRefs...),
		ai.WithReturnToolRequests(true),
	}
	if p.modelName != "" {
		opts = append(opts, ai.WithModelName(p.modelName))
	}
	if cb != nil {
		opts = append(opts, ai.WithStreaming(ai.ModelStreamCallback(cb)))
	}

	var lastErr error
	delay := p.retryConfig.InitialInterval
	start := time.Now()

	for attempt := 0; attempt <= p.retryConfig.MaxRetries; attempt++ {
		// Rate limit each attempt, not each call.
		if err := p.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		resp, err := genkit.Generate(ctx, p.g, opts...)
		if err == nil {
			p.logger.Debug("generation succeeded", "attempts", attempt+1, "elapsed", time.Since(start))
			return resp, nil
		}
		lastErr = err

		if !retryableError(err) {
			return nil, fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
		}
		if attempt == p.retryConfig.MaxRetries {
			break
		}

		p.logger.Debug("retrying generation", "attempt", attempt+1, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context canceled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, p.retryConfig.MaxInterval)
		}
	}

	return nil, fmt.Errorf("%w: after %d retries (elapsed %v): %v",
		ErrGenerationUnavailable, p.retryConfig.MaxRetries, time.Since(start), lastErr)
}
