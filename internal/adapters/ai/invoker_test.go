package ai

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexus/internal/cache"
	"nexus/pkg/errors"
)

// flakyProvider fails the first failures calls, then succeeds.
type flakyProvider struct {
	failures int
	err      error
	calls    int
	models   []string
}

func (p *flakyProvider) Name() string { return "flaky" }

func (p *flakyProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	p.calls++
	p.models = append(p.models, req.Model)
	if p.calls <= p.failures {
		return nil, p.err
	}
	return &ChatResponse{Content: "ok", Model: req.Model}, nil
}

func newTestInvoker(p ChatProvider, llmCache cache.Cache) (*Invoker, *[]time.Duration) {
	inv := NewInvoker(p, InvokerConfig{Model: "base", DeepModel: "deep", MaxAttempts: 3}, llmCache)
	slept := &[]time.Duration{}
	inv.sleep = func(ctx context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	}
	return inv, slept
}

func TestInvoker_RetriesRateLimitWithBackoff(t *testing.T) {
	p := &flakyProvider{failures: 2, err: &RateLimitError{Provider: "flaky"}}
	inv, slept := newTestInvoker(p, nil)

	resp, err := inv.Invoke(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
	assert.Equal(t, 3, p.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *slept)
}

func TestInvoker_HonorsRetryAfter(t *testing.T) {
	p := &flakyProvider{failures: 1, err: &RateLimitError{Provider: "flaky", RetryAfter: 7 * time.Second}}
	inv, slept := newTestInvoker(p, nil)

	_, err := inv.Invoke(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{7 * time.Second}, *slept)
}

func TestInvoker_ExhaustsRetryBudget(t *testing.T) {
	p := &flakyProvider{failures: 100, err: &RateLimitError{Provider: "flaky"}}
	inv, slept := newTestInvoker(p, nil)

	_, err := inv.Invoke(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrRetriesExhausted))
	assert.Equal(t, 3, p.calls)
	assert.Len(t, *slept, 2, "no sleep after the final attempt")
}

func TestInvoker_NonRateLimitFailureIsTerminal(t *testing.T) {
	p := &flakyProvider{failures: 100, err: errors.New("model overloaded")}
	inv, slept := newTestInvoker(p, nil)

	_, err := inv.Invoke(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrModelFailure))
	assert.Equal(t, 1, p.calls, "no retry on non-rate-limit failures")
	assert.Empty(t, *slept)
}

func TestInvoker_RejectsEmptyPrompt(t *testing.T) {
	p := &flakyProvider{}
	inv, _ := newTestInvoker(p, nil)

	_, err := inv.Invoke(context.Background(), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
	assert.Zero(t, p.calls)
}

func TestInvoker_CachesResponses(t *testing.T) {
	p := &flakyProvider{}
	inv, _ := newTestInvoker(p, cache.NewMemoryCache())
	ctx := context.Background()

	first, err := inv.Invoke(ctx, "same prompt")
	require.NoError(t, err)
	second, err := inv.Invoke(ctx, "same prompt")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, p.calls, "second call served from cache")
}

func TestInvoker_CacheKeyedByModel(t *testing.T) {
	p := &flakyProvider{}
	inv, _ := newTestInvoker(p, cache.NewMemoryCache())
	ctx := context.Background()

	_, err := inv.Invoke(ctx, "same prompt")
	require.NoError(t, err)
	_, err = inv.InvokeDeep(ctx, "same prompt")
	require.NoError(t, err)

	assert.Equal(t, 2, p.calls, "deep model misses the base model entry")
	assert.Equal(t, []string{"base", "deep"}, p.models)
}

func TestInvoker_DeepModelFallsBackToBase(t *testing.T) {
	p := &flakyProvider{}
	inv := NewInvoker(p, InvokerConfig{Model: "base"}, nil)

	_, err := inv.InvokeDeep(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []string{"base"}, p.models)
}
