package tools

import (
	"fmt"
	"strings"

	"github.com/markcheno/go-talib"

	"nexus/internal/domain/analysis"
)

// IndicatorDigest is a compact technical read of a price series, rendered
// for LLM consumption plus a volatility-derived risk rating used by the
// position sizing gates.
type IndicatorDigest struct {
	Ticker     string
	LastClose  float64
	RSI        float64
	MACD       float64
	MACDSignal float64
	ATR        float64
	ATRPct     float64
	EMA9       float64
	EMA21      float64
	EMA55      float64
	BBUpper    float64
	BBMiddle   float64
	BBLower    float64
	Summary    string
	Risk       analysis.RiskRating
}

const minIndicatorBars = 26

// ComputeIndicators derives the digest from a bar series. Series shorter
// than the longest lookback return a degraded digest with only the last
// close populated.
func ComputeIndicators(series *PriceSeries) *IndicatorDigest {
	d := &IndicatorDigest{Risk: analysis.RiskModerate}
	if series.Empty() {
		d.Summary = "No price data available."
		return d
	}
	d.Ticker = series.Ticker
	d.LastClose = series.LastClose()

	n := len(series.Bars)
	if n < minIndicatorBars {
		d.Summary = fmt.Sprintf("Insufficient history (%d bars) for indicator analysis. Last close %.2f.", n, d.LastClose)
		return d
	}

	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	for i, b := range series.Bars {
		closes[i] = b.Close
		highs[i] = b.High
		lows[i] = b.Low
	}

	rsiValues := talib.Rsi(closes, 14)
	d.RSI = last(rsiValues)

	macdLine, signalLine, _ := talib.Macd(closes, 12, 26, 9)
	d.MACD = last(macdLine)
	d.MACDSignal = last(signalLine)

	atrValues := talib.Atr(highs, lows, closes, 14)
	d.ATR = last(atrValues)
	if d.LastClose > 0 {
		d.ATRPct = d.ATR / d.LastClose * 100
	}

	d.EMA9 = last(talib.Ema(closes, 9))
	d.EMA21 = last(talib.Ema(closes, 21))
	if n >= 55 {
		d.EMA55 = last(talib.Ema(closes, 55))
	}

	upper, middle, lower := talib.BBands(closes, 20, 2.0, 2.0, talib.SMA)
	d.BBUpper = last(upper)
	d.BBMiddle = last(middle)
	d.BBLower = last(lower)

	d.Risk = riskFromVolatility(d.ATRPct)
	d.Summary = d.render()
	return d
}

func last(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}

// riskFromVolatility maps ATR as percent of price to a coarse rating.
// Thresholds follow daily-bar conventions: above 5% of price per day is
// high volatility, below 2% is low.
func riskFromVolatility(atrPct float64) analysis.RiskRating {
	switch {
	case atrPct >= 5.0:
		return analysis.RiskHigh
	case atrPct < 2.0:
		return analysis.RiskLow
	default:
		return analysis.RiskModerate
	}
}

func (d *IndicatorDigest) render() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Last close: %.2f\n", d.LastClose)

	rsiState := "neutral"
	switch {
	case d.RSI >= 70:
		rsiState = "overbought"
	case d.RSI <= 30:
		rsiState = "oversold"
	}
	fmt.Fprintf(&sb, "RSI(14): %.1f (%s)\n", d.RSI, rsiState)

	macdState := "bearish"
	if d.MACD > d.MACDSignal {
		macdState = "bullish"
	}
	fmt.Fprintf(&sb, "MACD(12,26,9): %.3f vs signal %.3f (%s crossover)\n", d.MACD, d.MACDSignal, macdState)

	trend := "mixed"
	switch {
	case d.EMA9 > d.EMA21 && (d.EMA55 == 0 || d.EMA21 > d.EMA55):
		trend = "uptrend"
	case d.EMA9 < d.EMA21 && (d.EMA55 == 0 || d.EMA21 < d.EMA55):
		trend = "downtrend"
	}
	fmt.Fprintf(&sb, "EMA stack 9/21/55: %.2f / %.2f / %.2f (%s)\n", d.EMA9, d.EMA21, d.EMA55, trend)

	fmt.Fprintf(&sb, "Bollinger(20,2): %.2f / %.2f / %.2f\n", d.BBUpper, d.BBMiddle, d.BBLower)
	fmt.Fprintf(&sb, "ATR(14): %.2f (%.1f%% of price, %s volatility)\n", d.ATR, d.ATRPct, d.Risk)
	return sb.String()
}
