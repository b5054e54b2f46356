package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"nexus/internal/tools"
	"nexus/pkg/errors"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// Ensure YahooClient implements MarketDataProvider
var _ tools.MarketDataProvider = (*YahooClient)(nil)

// YahooClient fetches daily OHLCV bars from the Yahoo Finance chart API.
// No API key is required.
type YahooClient struct {
	baseURL string
	client  *http.Client
}

// NewYahooClient creates a price history provider. baseURL overrides the
// public endpoint, used by tests.
func NewYahooClient(baseURL string, timeout time.Duration) *YahooClient {
	if baseURL == "" {
		baseURL = yahooBaseURL
	}
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &YahooClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// PriceHistory returns up to days daily bars ending at asOf, oldest first.
func (c *YahooClient) PriceHistory(ctx context.Context, ticker string, asOf time.Time, days int) (*tools.PriceSeries, error) {
	// Calendar window is wider than the bar count to cover weekends and
	// holidays.
	from := asOf.AddDate(0, 0, -(days*3/2 + 7))

	url := fmt.Sprintf("%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d",
		c.baseURL, ticker, from.Unix(), asOf.Unix())

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create HTTP request")
	}
	// Yahoo rejects the default Go user agent.
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; nexus/1.0)")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "send yahoo request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read yahoo response")
	}
	if resp.StatusCode == http.StatusNotFound {
		// Unknown ticker: legitimate empty result, not an error.
		return &tools.PriceSeries{Ticker: ticker, AsOf: asOf}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(errors.ErrDataUnavailable, "yahoo chart API (%d): %s",
			resp.StatusCode, string(body))
	}

	var chart yahooChartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, errors.Wrap(err, "unmarshal yahoo response")
	}
	if chart.Chart.Error != nil {
		return nil, errors.Wrapf(errors.ErrDataUnavailable, "yahoo chart API: %s",
			chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return &tools.PriceSeries{Ticker: ticker, AsOf: asOf}, nil
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	series := &tools.PriceSeries{Ticker: ticker, AsOf: asOf}
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == 0 {
			continue
		}
		series.Bars = append(series.Bars, tools.Bar{
			Date:   time.Unix(ts, 0).UTC(),
			Open:   at(quote.Open, i),
			High:   at(quote.High, i),
			Low:    at(quote.Low, i),
			Close:  quote.Close[i],
			Volume: at(quote.Volume, i),
		})
	}
	if len(series.Bars) > days {
		series.Bars = series.Bars[len(series.Bars)-days:]
	}
	return series, nil
}

func at(vals []float64, i int) float64 {
	if i < len(vals) {
		return vals[i]
	}
	return 0
}
