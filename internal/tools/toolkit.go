package tools

import (
	"context"
	"fmt"
	"time"

	"nexus/internal/cache"
	"nexus/internal/metrics"
	"nexus/pkg/logger"
)

// RunStore is per-run scratch state. Within a single analysis run each tool
// result is fetched at most once; concurrent runs never share a store.
type RunStore interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// ToolkitConfig bounds the lookback windows and cache lifetime for tool data.
type ToolkitConfig struct {
	PriceDays int
	NewsDays  int
	DataTTL   time.Duration
}

// DefaultToolkitConfig mirrors the windows the analyst prompts are tuned for.
func DefaultToolkitConfig() ToolkitConfig {
	return ToolkitConfig{
		PriceDays: 90,
		NewsDays:  7,
		DataTTL:   time.Hour,
	}
}

// Toolkit is the single data access surface for agents. Every fetch goes
// through two layers: the run store (dedup within one run) and the shared
// cache keyed by (tool, ticker, asOf). Provider errors surface to the
// caller; empty payloads come back as valid empty values.
type Toolkit struct {
	market       MarketDataProvider
	fundamentals FundamentalsProvider
	news         NewsProvider
	social       SocialProvider

	cache cache.Cache
	cfg   ToolkitConfig
	log   *logger.Logger
}

// NewToolkit wires providers to the shared cache. Any provider may be nil,
// in which case its fetches return empty data.
func NewToolkit(market MarketDataProvider, fundamentals FundamentalsProvider, news NewsProvider, social SocialProvider, c cache.Cache, cfg ToolkitConfig) *Toolkit {
	if cfg.PriceDays <= 0 {
		cfg.PriceDays = DefaultToolkitConfig().PriceDays
	}
	if cfg.NewsDays <= 0 {
		cfg.NewsDays = DefaultToolkitConfig().NewsDays
	}
	return &Toolkit{
		market:       market,
		fundamentals: fundamentals,
		news:         news,
		social:       social,
		cache:        c,
		cfg:          cfg,
		log:          logger.Get().With("component", "toolkit"),
	}
}

func dateKey(asOf time.Time) string {
	return asOf.UTC().Format("2006-01-02")
}

// Prices returns the daily bar history for the run window.
func (t *Toolkit) Prices(ctx context.Context, store RunStore, ticker string, asOf time.Time) (*PriceSeries, error) {
	return fetch(ctx, t, store, "market_data", ticker, asOf, func(ctx context.Context) (*PriceSeries, error) {
		if t.market == nil {
			return &PriceSeries{Ticker: ticker}, nil
		}
		series, err := t.market.PriceHistory(ctx, ticker, asOf, t.cfg.PriceDays)
		if err != nil {
			return nil, err
		}
		if series == nil {
			series = &PriceSeries{Ticker: ticker}
		}
		return series, nil
	})
}

// FundamentalsReport returns financial statement data.
func (t *Toolkit) FundamentalsReport(ctx context.Context, store RunStore, ticker string, asOf time.Time) (*Fundamentals, error) {
	return fetch(ctx, t, store, "fundamentals", ticker, asOf, func(ctx context.Context) (*Fundamentals, error) {
		if t.fundamentals == nil {
			return &Fundamentals{Ticker: ticker}, nil
		}
		f, err := t.fundamentals.Fundamentals(ctx, ticker, asOf)
		if err != nil {
			return nil, err
		}
		if f == nil {
			f = &Fundamentals{Ticker: ticker}
		}
		return f, nil
	})
}

// News returns recent headlines for the ticker.
func (t *Toolkit) News(ctx context.Context, store RunStore, ticker string, asOf time.Time) ([]Headline, error) {
	out, err := fetch(ctx, t, store, "news", ticker, asOf, func(ctx context.Context) (*[]Headline, error) {
		if t.news == nil {
			empty := []Headline{}
			return &empty, nil
		}
		headlines, err := t.news.Headlines(ctx, ticker, asOf, t.cfg.NewsDays)
		if err != nil {
			return nil, err
		}
		if headlines == nil {
			headlines = []Headline{}
		}
		return &headlines, nil
	})
	if err != nil {
		return nil, err
	}
	return *out, nil
}

// Social returns aggregated social sentiment.
func (t *Toolkit) Social(ctx context.Context, store RunStore, ticker string, asOf time.Time) (*SocialSentiment, error) {
	return fetch(ctx, t, store, "social_sentiment", ticker, asOf, func(ctx context.Context) (*SocialSentiment, error) {
		if t.social == nil {
			return &SocialSentiment{Ticker: ticker}, nil
		}
		s, err := t.social.Sentiment(ctx, ticker, asOf)
		if err != nil {
			return nil, err
		}
		if s == nil {
			s = &SocialSentiment{Ticker: ticker}
		}
		return s, nil
	})
}

// fetch runs the two-layer lookup: run store first, shared cache second,
// provider last. Errors are never stored at either layer.
func fetch[T any](ctx context.Context, t *Toolkit, store RunStore, tool, ticker string, asOf time.Time, fn func(context.Context) (*T, error)) (*T, error) {
	storeKey := fmt.Sprintf("%s:%s:%s", tool, ticker, dateKey(asOf))
	if store != nil {
		if v, ok := store.Get(storeKey); ok {
			if typed, ok := v.(*T); ok {
				return typed, nil
			}
		}
	}

	key := cache.Key(tool, ticker, dateKey(asOf))
	hit := true
	value, err := cache.Memoize(ctx, t.cache, key, t.cfg.DataTTL, func(ctx context.Context) (*T, error) {
		hit = false
		return fn(ctx)
	})
	if err != nil {
		metrics.DataCacheMisses.WithLabelValues(tool).Inc()
		return nil, err
	}
	if hit {
		metrics.DataCacheHits.WithLabelValues(tool).Inc()
	} else {
		metrics.DataCacheMisses.WithLabelValues(tool).Inc()
	}

	if store != nil {
		store.Set(storeKey, value)
	}
	return value, nil
}
