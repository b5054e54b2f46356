package ai

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"nexus/internal/cache"
	"nexus/internal/metrics"
	"nexus/pkg/errors"
	"nexus/pkg/logger"
)

// InvokerConfig configures the retry and pacing behavior of an Invoker.
type InvokerConfig struct {
	Model          string
	DeepModel      string // used for judge steps, falls back to Model
	MaxAttempts    int
	RequestsPerMin float64
	LLMCacheTTL    time.Duration
}

// Invoker wraps a ChatProvider with client-side pacing, bounded
// retry-with-backoff on rate limits, and optional response caching. Every
// invocation blocks the calling run until it resolves or the retry budget
// is exhausted; there is no fire-and-forget path.
type Invoker struct {
	provider ChatProvider
	cfg      InvokerConfig
	limiter  *rate.Limiter
	cache    cache.Cache
	log      *logger.Logger

	// sleep is replaceable in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// NewInvoker creates an invocation wrapper. llmCache may be nil to disable
// response caching.
func NewInvoker(provider ChatProvider, cfg InvokerConfig, llmCache cache.Cache) *Invoker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.DeepModel == "" {
		cfg.DeepModel = cfg.Model
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerMin > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerMin/60.0), 1)
	}

	return &Invoker{
		provider: provider,
		cfg:      cfg,
		limiter:  limiter,
		cache:    llmCache,
		log:      logger.Get().With("component", "invoker", "provider", provider.Name()),
		sleep:    sleepCtx,
	}
}

// Invoke sends a prompt using the standard model.
func (i *Invoker) Invoke(ctx context.Context, prompt string) (string, error) {
	return i.invoke(ctx, prompt, i.cfg.Model)
}

// InvokeDeep sends a prompt using the deep-thinking model reserved for
// judge steps.
func (i *Invoker) InvokeDeep(ctx context.Context, prompt string) (string, error) {
	return i.invoke(ctx, prompt, i.cfg.DeepModel)
}

func (i *Invoker) invoke(ctx context.Context, prompt, model string) (string, error) {
	if prompt == "" {
		return "", errors.Wrap(errors.ErrInvalidInput, "empty prompt")
	}

	key := cache.Key("llm_response", model, prompt)
	if i.cache != nil {
		if raw, found, err := i.cache.Get(ctx, key); err == nil && found {
			metrics.LLMCacheHits.Inc()
			return string(raw), nil
		}
		metrics.LLMCacheMisses.Inc()
	}

	var lastErr error
	for attempt := 1; attempt <= i.cfg.MaxAttempts; attempt++ {
		if i.limiter != nil {
			if err := i.limiter.Wait(ctx); err != nil {
				return "", errors.Wrap(err, "request pacing interrupted")
			}
		}

		resp, err := i.provider.Chat(ctx, ChatRequest{
			Model:    model,
			Messages: UserMessage(prompt),
		})
		if err == nil {
			metrics.AgentCalls.WithLabelValues(model, "success").Inc()
			if i.cache != nil {
				_ = i.cache.Set(ctx, key, []byte(resp.Content), i.cfg.LLMCacheTTL)
			}
			return resp.Content, nil
		}
		lastErr = err

		var rlErr *RateLimitError
		if !errors.As(err, &rlErr) {
			// Terminal for this call: no retry on non-rate-limit failures.
			metrics.AgentCalls.WithLabelValues(model, "error").Inc()
			return "", errors.Wrapf(errors.ErrModelFailure, "invoke %s: %v", model, err)
		}

		metrics.AgentCalls.WithLabelValues(model, "rate_limited").Inc()
		if attempt == i.cfg.MaxAttempts {
			break
		}

		delay := rlErr.RetryAfter
		if delay <= 0 {
			// Exponential backoff: 1s, 2s, 4s
			delay = time.Duration(1<<(attempt-1)) * time.Second
		}
		i.log.Warnw("Rate limited, backing off", "model", model, "attempt", attempt, "delay", delay)

		if err := i.sleep(ctx, delay); err != nil {
			return "", errors.Wrap(err, "backoff interrupted")
		}
	}

	return "", errors.Wrapf(errors.ErrRetriesExhausted, "invoke %s after %d attempts: %v",
		model, i.cfg.MaxAttempts, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
