package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexus/internal/domain/analysis"
)

// stubInvoker returns canned responses in order, then the final error.
type stubInvoker struct {
	responses []string
	err       error
	calls     int
}

func (s *stubInvoker) Invoke(ctx context.Context, prompt string) (string, error) {
	s.calls++
	if len(s.responses) > 0 {
		out := s.responses[0]
		s.responses = s.responses[1:]
		return out, nil
	}
	if s.err != nil {
		return "", s.err
	}
	return "", errors.New("no scripted response")
}

func (s *stubInvoker) InvokeDeep(ctx context.Context, prompt string) (string, error) {
	return s.Invoke(ctx, prompt)
}

func TestSignalExtractor_ExplicitLabels(t *testing.T) {
	e := NewSignalExtractor(nil)
	ctx := context.Background()

	cases := []struct {
		text string
		want analysis.Signal
	}{
		{"I recommend BUY this stock", analysis.SignalBuy},
		{"we should accumulate shares", analysis.SignalBuy},
		{"reduce the position immediately", analysis.SignalSell},
		{"let's wait and see", analysis.SignalHold},
		{"", analysis.SignalHold},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, e.Extract(ctx, tc.text, "test"), "text: %q", tc.text)
	}
}

func TestSignalExtractor_LastLabelWins(t *testing.T) {
	e := NewSignalExtractor(nil)

	text := `The bull case argued BUY on momentum. The bear case raised valuation
concerns. After weighing both sides, Final Recommendation: SELL.`
	assert.Equal(t, analysis.SignalSell, e.Extract(context.Background(), text, "test"))
}

func TestSignalExtractor_EmbeddedJSON(t *testing.T) {
	e := NewSignalExtractor(nil)
	ctx := context.Background()

	well := `Here is the plan: {"action": "SELL", "rationale": "overvalued"}`
	assert.Equal(t, analysis.SignalSell, e.Extract(ctx, well, "test"))

	// Truncated block still carries a readable action field.
	malformed := `{"action": "BUY", "rationale": "strong growth`
	assert.Equal(t, analysis.SignalBuy, e.Extract(ctx, malformed, "test"))
}

func TestSignalExtractor_LLMStage(t *testing.T) {
	inv := &stubInvoker{responses: []string{" buy \n"}}
	e := NewSignalExtractor(inv)

	got := e.Extract(context.Background(), "the risk/reward here is attractive, scale in gradually", "test")
	assert.Equal(t, analysis.SignalBuy, got)
	require.Equal(t, 1, inv.calls)
}

func TestSignalExtractor_LLMFailureFallsThrough(t *testing.T) {
	inv := &stubInvoker{err: errors.New("model down")}
	e := NewSignalExtractor(inv)

	// LLM stage fails, keyword stage still finds the label.
	got := e.Extract(context.Background(), "our stance remains HOLD for now", "test")
	assert.Equal(t, analysis.SignalHold, got)
}

func TestSignalExtractor_AmbiguousDefaultsToHold(t *testing.T) {
	inv := &stubInvoker{responses: []string{"I am not sure about this one"}}
	e := NewSignalExtractor(inv)

	text := "The stock could go either way. Depends on next earnings."
	assert.Equal(t, analysis.SignalHold, e.Extract(context.Background(), text, "test"))
}
