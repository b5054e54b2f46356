package agents

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"nexus/internal/domain/analysis"
	"nexus/pkg/logger"
)

// RiskTeam runs the three-way risk debate, its judge, and the legacy
// single-pass validator used when the debate is disabled.
type RiskTeam struct {
	invoker   Invoker
	extractor *SignalExtractor
	log       *logger.Logger
}

func NewRiskTeam(invoker Invoker, extractor *SignalExtractor) *RiskTeam {
	return &RiskTeam{
		invoker:   invoker,
		extractor: extractor,
		log:       logger.Get().With("component", "risk_team"),
	}
}

// AggressiveStep argues for bold action.
func (t *RiskTeam) AggressiveStep(ctx context.Context, state *analysis.RunState, market MarketContext) error {
	response, err := t.invoker.Invoke(ctx, aggressivePrompt(state, market))
	if err != nil {
		return err
	}
	state.RiskDebate.Append(SpeakerAggressive, response)
	return nil
}

// ConservativeStep argues for capital protection.
func (t *RiskTeam) ConservativeStep(ctx context.Context, state *analysis.RunState, market MarketContext) error {
	response, err := t.invoker.Invoke(ctx, conservativePrompt(state, market))
	if err != nil {
		return err
	}
	state.RiskDebate.Append(SpeakerConservative, response)
	return nil
}

// NeutralStep weighs both sides.
func (t *RiskTeam) NeutralStep(ctx context.Context, state *analysis.RunState, market MarketContext) error {
	response, err := t.invoker.Invoke(ctx, neutralPrompt(state, market))
	if err != nil {
		return err
	}
	state.RiskDebate.Append(SpeakerNeutral, response)
	return nil
}

// Judge evaluates the risk debate with the deep model, resolves the final
// action through the extractor, and applies the risk gates. The judge may
// override the trader in either direction, including HOLD to BUY/SELL.
func (t *RiskTeam) Judge(ctx context.Context, state *analysis.RunState, market MarketContext) error {
	decision, err := t.invoker.InvokeDeep(ctx, riskManagerPrompt(state, market))
	if err != nil {
		return err
	}
	state.RiskDebate.JudgeDecision = decision

	original := state.Strategy.Action
	final := t.extractor.Extract(ctx, decision, "risk_manager")

	state.Strategy.Action = final
	applyRiskGates(&state.Strategy, market.Rating)

	state.Metadata.FinalAction = final
	state.Metadata.RiskOverrode = original != final
	if state.Metadata.RiskOverrode {
		t.log.Infow("risk manager overrode action",
			"ticker", state.Ticker, "original", original, "final", final)
	}
	return nil
}

// LegacyValidate is the single-pass gate used when the risk debate is
// disabled. No model call, no memory access: it clamps the existing
// strategy and records that the legacy path ran.
func (t *RiskTeam) LegacyValidate(state *analysis.RunState, market MarketContext) {
	action := state.Strategy.Action
	state.Metadata.LegacyRiskGate = true
	state.Metadata.FinalAction = action
	state.Metadata.RiskOverrode = false

	if action == analysis.SignalHold {
		state.RiskDebate.JudgeDecision = "No trade action (HOLD). Risk gate made no changes."
		state.Strategy.ClearPrices()
		return
	}

	applyRiskGates(&state.Strategy, market.Rating)
	state.RiskDebate.JudgeDecision = fmt.Sprintf(
		"Legacy risk gate applied (debate disabled). risk_rating=%s, max_position_pct=%s, position_size_pct=%s.",
		market.Rating, market.Rating.MaxPositionPct(), state.Strategy.PositionSizePct)
}

var (
	buyStopFactor  = decimal.NewFromFloat(0.92)
	buyTakeFactor  = decimal.NewFromFloat(1.12)
	sellStopFactor = decimal.NewFromFloat(1.08)
	sellTakeFactor = decimal.NewFromFloat(0.88)
)

// applyRiskGates clamps the strategy to the rating's position cap and
// repairs missing or inverted stop/take-profit levels relative to entry.
// HOLD strips all price fields.
func applyRiskGates(s *analysis.Strategy, rating analysis.RiskRating) {
	if s.Action == analysis.SignalHold {
		s.ClearPrices()
		return
	}

	maxPct := rating.MaxPositionPct()
	if s.PositionSizePct.IsZero() || s.PositionSizePct.GreaterThan(maxPct) {
		s.PositionSizePct = maxPct
	}
	s.PositionSizePct = s.PositionSizePct.Round(2)

	if s.EntryPrice == nil {
		return
	}
	entry := *s.EntryPrice

	switch s.Action {
	case analysis.SignalBuy:
		if s.StopLoss == nil || s.StopLoss.GreaterThanOrEqual(entry) {
			stop := entry.Mul(buyStopFactor).Round(2)
			s.StopLoss = &stop
		}
		if s.TakeProfit == nil || s.TakeProfit.LessThanOrEqual(entry) {
			take := entry.Mul(buyTakeFactor).Round(2)
			s.TakeProfit = &take
		}
	case analysis.SignalSell:
		if s.StopLoss == nil || s.StopLoss.LessThanOrEqual(entry) {
			stop := entry.Mul(sellStopFactor).Round(2)
			s.StopLoss = &stop
		}
		if s.TakeProfit == nil || s.TakeProfit.GreaterThanOrEqual(entry) {
			take := entry.Mul(sellTakeFactor).Round(2)
			s.TakeProfit = &take
		}
	}
}
