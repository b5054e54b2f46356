package testsupport

import (
	"context"
	"math"
	"time"

	"nexus/internal/tools"
)

// StaticData implements all four tool provider contracts from fixed
// fixtures. The zero value returns empty data for everything, which is the
// unknown-ticker scenario.
type StaticData struct {
	Series       map[string]*tools.PriceSeries
	Fundamental  map[string]*tools.Fundamentals
	HeadlineSets map[string][]tools.Headline
	Social       map[string]*tools.SocialSentiment

	// Err, when set, is returned by every call.
	Err error
}

func (d *StaticData) PriceHistory(ctx context.Context, ticker string, asOf time.Time, days int) (*tools.PriceSeries, error) {
	if d.Err != nil {
		return nil, d.Err
	}
	return d.Series[ticker], nil
}

func (d *StaticData) Fundamentals(ctx context.Context, ticker string, asOf time.Time) (*tools.Fundamentals, error) {
	if d.Err != nil {
		return nil, d.Err
	}
	return d.Fundamental[ticker], nil
}

func (d *StaticData) Headlines(ctx context.Context, ticker string, asOf time.Time, days int) ([]tools.Headline, error) {
	if d.Err != nil {
		return nil, d.Err
	}
	return d.HeadlineSets[ticker], nil
}

func (d *StaticData) Sentiment(ctx context.Context, ticker string, asOf time.Time) (*tools.SocialSentiment, error) {
	if d.Err != nil {
		return nil, d.Err
	}
	return d.Social[ticker], nil
}

// SyntheticSeries builds a deterministic daily bar series ending at asOf:
// a gentle uptrend with a sine wobble, long enough for every indicator
// lookback.
func SyntheticSeries(ticker string, asOf time.Time, days int) *tools.PriceSeries {
	series := &tools.PriceSeries{Ticker: ticker, AsOf: asOf}
	price := 100.0
	for i := 0; i < days; i++ {
		price *= 1 + 0.001 + 0.01*math.Sin(float64(i)/5)
		date := asOf.AddDate(0, 0, i-days+1)
		series.Bars = append(series.Bars, tools.Bar{
			Date:   date,
			Open:   price * 0.995,
			High:   price * 1.01,
			Low:    price * 0.985,
			Close:  price,
			Volume: 1_000_000 + float64(i%7)*50_000,
		})
	}
	return series
}

// RichStaticData returns fixtures with full data for the given ticker,
// the happy-path scenario.
func RichStaticData(ticker string, asOf time.Time) *StaticData {
	return &StaticData{
		Series: map[string]*tools.PriceSeries{
			ticker: SyntheticSeries(ticker, asOf, 90),
		},
		Fundamental: map[string]*tools.Fundamentals{
			ticker: {
				Ticker:     ticker,
				AsOf:       asOf,
				Statements: "Revenue 26.0B (+122% YoY), net income 14.9B, operating cash flow 15.3B.",
				Ratios:     "P/E 68.2, gross margin 78%, ROE 91%, debt/equity 0.26.",
				Ratings:    "34 analysts: 29 buy, 4 hold, 1 sell. Mean target +18%.",
			},
		},
		HeadlineSets: map[string][]tools.Headline{
			ticker: {
				{Title: ticker + " beats earnings expectations", Source: "wire", Published: asOf.AddDate(0, 0, -1)},
				{Title: "Analysts raise " + ticker + " price targets", Source: "wire", Published: asOf.AddDate(0, 0, -2)},
			},
		},
		Social: map[string]*tools.SocialSentiment{
			ticker: {Ticker: ticker, AsOf: asOf, Score: 0.6, Posts: 1240, Summary: "Predominantly bullish retail chatter."},
		},
	}
}
