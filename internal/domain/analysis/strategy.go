package analysis

import (
	"github.com/shopspring/decimal"
)

// Strategy is the structured trading plan produced by the trader step and
// clamped by the risk gates. Price fields are nil for HOLD.
type Strategy struct {
	Action          Signal           `json:"action"`
	EntryPrice      *decimal.Decimal `json:"entry_price"`
	TakeProfit      *decimal.Decimal `json:"take_profit"`
	StopLoss        *decimal.Decimal `json:"stop_loss"`
	PositionSizePct decimal.Decimal  `json:"position_size_pct"`
	Rationale       string           `json:"rationale"`
}

// HoldStrategy returns the placeholder strategy used when parsing fails or
// no directional conviction exists. The raw model text is preserved as the
// rationale so nothing is silently dropped.
func HoldStrategy(rationale string) Strategy {
	return Strategy{
		Action:          SignalHold,
		PositionSizePct: decimal.Zero,
		Rationale:       rationale,
	}
}

// ClearPrices removes all price levels and zeroes the position size.
// Applied whenever the final action resolves to HOLD.
func (s *Strategy) ClearPrices() {
	s.EntryPrice = nil
	s.TakeProfit = nil
	s.StopLoss = nil
	s.PositionSizePct = decimal.Zero
}

// RiskRating buckets a ticker's riskiness for position-size caps.
type RiskRating string

const (
	RiskHigh     RiskRating = "HIGH"
	RiskModerate RiskRating = "MODERATE"
	RiskLow      RiskRating = "LOW"
)

// MaxPositionPct returns the position-size cap for the rating.
func (r RiskRating) MaxPositionPct() decimal.Decimal {
	switch r {
	case RiskHigh:
		return decimal.NewFromInt(8)
	case RiskModerate:
		return decimal.NewFromInt(15)
	default:
		return decimal.NewFromInt(25)
	}
}
