package agents

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"nexus/internal/domain/analysis"
	"nexus/pkg/logger"
)

// Trader synthesizes the investment plan into a structured trading
// strategy. Parse failures are recovered, not propagated: an unparseable
// response becomes a HOLD strategy that keeps the raw text as rationale.
type Trader struct {
	invoker   Invoker
	extractor *SignalExtractor
	log       *logger.Logger
}

func NewTrader(invoker Invoker, extractor *SignalExtractor) *Trader {
	return &Trader{
		invoker:   invoker,
		extractor: extractor,
		log:       logger.Get().With("component", "trader"),
	}
}

// Synthesize runs the trader step, writing the strategy and the trader
// action into the run state. Only an invoker failure is an error.
func (t *Trader) Synthesize(ctx context.Context, state *analysis.RunState) error {
	response, err := t.invoker.Invoke(ctx, traderPrompt(state))
	if err != nil {
		return err
	}

	strategy, ok := ParseStrategy(response)
	if !ok {
		t.log.Warnw("strategy response not parseable, falling back to HOLD",
			"ticker", state.Ticker)
		// The extractor may still recover a directional signal from prose.
		// Direction without prices is fine: the risk gates repair levels.
		strategy = analysis.HoldStrategy(response)
		strategy.Action = t.extractor.Extract(ctx, response, "trader")
	}

	state.Strategy = strategy
	state.Metadata.TraderAction = strategy.Action
	return nil
}

var strategyBlockRe = regexp.MustCompile(`(?s)\{.*\}`)

// rawStrategy mirrors the JSON contract the trader prompt asks for.
// Numbers arrive as json.Number so fractional prices survive intact into
// decimals.
type rawStrategy struct {
	Action          string      `json:"action"`
	EntryPrice      json.Number `json:"entry_price"`
	TakeProfit      json.Number `json:"take_profit"`
	StopLoss        json.Number `json:"stop_loss"`
	PositionSizePct json.Number `json:"position_size_pct"`
	Rationale       string      `json:"rationale"`
}

// ParseStrategy extracts the first JSON object from text and decodes it
// into a strategy. Returns ok=false when no valid object with a valid
// action is present.
func ParseStrategy(text string) (analysis.Strategy, bool) {
	block := strategyBlockRe.FindString(text)
	if block == "" {
		return analysis.Strategy{}, false
	}

	var raw rawStrategy
	dec := json.NewDecoder(strings.NewReader(block))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return analysis.Strategy{}, false
	}

	action := analysis.Signal(strings.ToUpper(strings.TrimSpace(raw.Action)))
	if !action.Valid() {
		return analysis.Strategy{}, false
	}

	strategy := analysis.Strategy{
		Action:    action,
		Rationale: raw.Rationale,
	}
	strategy.EntryPrice = decimalPtr(raw.EntryPrice)
	strategy.TakeProfit = decimalPtr(raw.TakeProfit)
	strategy.StopLoss = decimalPtr(raw.StopLoss)
	if size, ok := parseDecimal(raw.PositionSizePct); ok {
		strategy.PositionSizePct = size
	}

	if action == analysis.SignalHold {
		strategy.ClearPrices()
	}
	return strategy, true
}

func parseDecimal(n json.Number) (decimal.Decimal, bool) {
	if n == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func decimalPtr(n json.Number) *decimal.Decimal {
	d, ok := parseDecimal(n)
	if !ok || d.IsZero() {
		return nil
	}
	return &d
}
