package tools_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexus/internal/cache"
	"nexus/internal/engine"
	"nexus/internal/testsupport"
	"nexus/internal/tools"
)

var asOf = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

// countingData wraps StaticData and counts provider calls.
type countingData struct {
	*testsupport.StaticData
	priceCalls int
}

func (d *countingData) PriceHistory(ctx context.Context, ticker string, t time.Time, days int) (*tools.PriceSeries, error) {
	d.priceCalls++
	return d.StaticData.PriceHistory(ctx, ticker, t, days)
}

func TestToolkit_RunStoreDeduplicatesWithinRun(t *testing.T) {
	data := &countingData{StaticData: testsupport.RichStaticData("NVDA", asOf)}
	tk := tools.NewToolkit(data, nil, nil, nil, cache.NewMemoryCache(), tools.DefaultToolkitConfig())

	store := engine.NewRunContext()
	ctx := context.Background()

	first, err := tk.Prices(ctx, store, "NVDA", asOf)
	require.NoError(t, err)
	second, err := tk.Prices(ctx, store, "NVDA", asOf)
	require.NoError(t, err)

	assert.Equal(t, 1, data.priceCalls, "same run fetches each tool once")
	assert.Same(t, first, second, "run store returns the identical value")
}

func TestToolkit_CacheSharedAcrossRuns(t *testing.T) {
	data := &countingData{StaticData: testsupport.RichStaticData("NVDA", asOf)}
	tk := tools.NewToolkit(data, nil, nil, nil, cache.NewMemoryCache(), tools.DefaultToolkitConfig())
	ctx := context.Background()

	_, err := tk.Prices(ctx, engine.NewRunContext(), "NVDA", asOf)
	require.NoError(t, err)
	_, err = tk.Prices(ctx, engine.NewRunContext(), "NVDA", asOf)
	require.NoError(t, err)

	assert.Equal(t, 1, data.priceCalls, "second run hits the shared cache")
}

func TestToolkit_NilProvidersReturnEmptyData(t *testing.T) {
	tk := tools.NewToolkit(nil, nil, nil, nil, cache.NewMemoryCache(), tools.DefaultToolkitConfig())
	ctx := context.Background()
	store := engine.NewRunContext()

	series, err := tk.Prices(ctx, store, "NVDA", asOf)
	require.NoError(t, err)
	assert.True(t, series.Empty())

	f, err := tk.FundamentalsReport(ctx, store, "NVDA", asOf)
	require.NoError(t, err)
	assert.True(t, f.Empty())

	headlines, err := tk.News(ctx, store, "NVDA", asOf)
	require.NoError(t, err)
	assert.Empty(t, headlines)

	social, err := tk.Social(ctx, store, "NVDA", asOf)
	require.NoError(t, err)
	assert.True(t, social.Empty())
}

func TestComputeIndicators(t *testing.T) {
	series := testsupport.SyntheticSeries("NVDA", asOf, 90)

	digest := tools.ComputeIndicators(series)
	require.NotNil(t, digest)

	assert.Greater(t, digest.RSI, 0.0)
	assert.Less(t, digest.RSI, 100.0)
	assert.Contains(t, digest.Summary, "RSI(14)")
	assert.Contains(t, digest.Summary, "ATR(14)")
	assert.NotEmpty(t, string(digest.Risk))
}

func TestComputeIndicators_ShortSeriesDegrades(t *testing.T) {
	series := testsupport.SyntheticSeries("NVDA", asOf, 10)

	digest := tools.ComputeIndicators(series)
	require.NotNil(t, digest)
	assert.Contains(t, digest.Summary, "Insufficient history")
	assert.Zero(t, digest.RSI)
	assert.Equal(t, series.LastClose(), digest.LastClose)
}
