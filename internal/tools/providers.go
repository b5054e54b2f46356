package tools

import (
	"context"
	"time"
)

// Data providers are external collaborators with narrow contracts. Each is
// a pure function of (ticker, asOf): idempotent for a fixed as-of date,
// which is what makes the cache layer sound. Implementations live outside
// the orchestration core; empty or partial results are legitimate returns,
// not errors.

// MarketDataProvider fetches historical prices.
type MarketDataProvider interface {
	// PriceHistory returns up to days daily bars ending at asOf.
	PriceHistory(ctx context.Context, ticker string, asOf time.Time, days int) (*PriceSeries, error)
}

// FundamentalsProvider fetches financial statement data.
type FundamentalsProvider interface {
	Fundamentals(ctx context.Context, ticker string, asOf time.Time) (*Fundamentals, error)
}

// NewsProvider fetches recent headlines.
type NewsProvider interface {
	Headlines(ctx context.Context, ticker string, asOf time.Time, days int) ([]Headline, error)
}

// SocialProvider fetches aggregated social sentiment.
type SocialProvider interface {
	Sentiment(ctx context.Context, ticker string, asOf time.Time) (*SocialSentiment, error)
}
