package agents

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexus/internal/domain/analysis"
)

func TestParseStrategy_ValidJSON(t *testing.T) {
	text := `Here is my strategy:
{
    "action": "BUY",
    "entry_price": 182.50,
    "take_profit": 205.00,
    "stop_loss": 168.00,
    "position_size_pct": 10,
    "rationale": "Strong momentum with fundamental support."
}`

	s, ok := ParseStrategy(text)
	require.True(t, ok)
	assert.Equal(t, analysis.SignalBuy, s.Action)
	require.NotNil(t, s.EntryPrice)
	assert.True(t, s.EntryPrice.Equal(decimal.NewFromFloat(182.50)))
	require.NotNil(t, s.TakeProfit)
	require.NotNil(t, s.StopLoss)
	assert.True(t, s.PositionSizePct.Equal(decimal.NewFromInt(10)))
	assert.NotEmpty(t, s.Rationale)
}

func TestParseStrategy_HoldClearsPrices(t *testing.T) {
	text := `{"action": "HOLD", "entry_price": 100, "take_profit": 120, "stop_loss": 90, "position_size_pct": 5, "rationale": "unclear"}`

	s, ok := ParseStrategy(text)
	require.True(t, ok)
	assert.Equal(t, analysis.SignalHold, s.Action)
	assert.Nil(t, s.EntryPrice)
	assert.Nil(t, s.TakeProfit)
	assert.Nil(t, s.StopLoss)
	assert.True(t, s.PositionSizePct.IsZero())
}

func TestParseStrategy_NoJSON(t *testing.T) {
	_, ok := ParseStrategy("I think we should buy but I cannot commit to numbers.")
	assert.False(t, ok)
}

func TestParseStrategy_InvalidAction(t *testing.T) {
	_, ok := ParseStrategy(`{"action": "MAYBE", "rationale": "unsure"}`)
	assert.False(t, ok)
}

func TestTrader_SynthesizeFallbackToHold(t *testing.T) {
	inv := &stubInvoker{responses: []string{
		"The situation is too murky for a structured plan right now.",
		"HOLD", // extractor llm stage
	}}
	trader := NewTrader(inv, NewSignalExtractor(inv))

	state := newTestRunState(t)
	state.InvestmentPlan = "Mixed evidence."

	require.NoError(t, trader.Synthesize(context.Background(), state))
	assert.Equal(t, analysis.SignalHold, state.Strategy.Action)
	assert.Equal(t, analysis.SignalHold, state.Metadata.TraderAction)
	assert.Contains(t, state.Strategy.Rationale, "murky")
}

func TestTrader_SynthesizeParsesJSON(t *testing.T) {
	inv := &stubInvoker{responses: []string{
		`{"action": "SELL", "entry_price": 95.0, "take_profit": 83.6, "stop_loss": 102.6, "position_size_pct": 12, "rationale": "Breakdown below support."}`,
	}}
	trader := NewTrader(inv, NewSignalExtractor(nil))

	state := newTestRunState(t)
	require.NoError(t, trader.Synthesize(context.Background(), state))
	assert.Equal(t, analysis.SignalSell, state.Strategy.Action)
	assert.Equal(t, analysis.SignalSell, state.Metadata.TraderAction)
}
