package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"nexus/internal/tools"
	"nexus/pkg/errors"
)

const finnhubBaseURL = "https://finnhub.io/api/v1"

var (
	_ tools.FundamentalsProvider = (*FinnhubClient)(nil)
	_ tools.NewsProvider         = (*FinnhubClient)(nil)
	_ tools.SocialProvider       = (*FinnhubClient)(nil)
)

// FinnhubClient serves fundamentals, company news and social sentiment from
// the Finnhub REST API. A single client backs three provider contracts.
type FinnhubClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewFinnhubClient creates a Finnhub-backed data client. baseURL overrides
// the public endpoint, used by tests.
func NewFinnhubClient(baseURL, apiKey string, timeout time.Duration) *FinnhubClient {
	if baseURL == "" {
		baseURL = finnhubBaseURL
	}
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &FinnhubClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *FinnhubClient) get(ctx context.Context, path string, params url.Values, out any) error {
	if c.apiKey == "" {
		return errors.Wrap(errors.ErrInvalidInput, "finnhub API key not configured")
	}

	params.Set("token", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, "GET",
		fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode()), nil)
	if err != nil {
		return errors.Wrap(err, "create HTTP request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "send finnhub request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read finnhub response")
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return errors.Wrapf(errors.ErrRateLimited, "finnhub %s", path)
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Wrapf(errors.ErrDataUnavailable, "finnhub %s (%d): %s",
			path, resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrapf(err, "unmarshal finnhub %s response", path)
	}
	return nil
}

type finnhubMetrics struct {
	Metric map[string]any `json:"metric"`
}

type finnhubRecommendation struct {
	Period     string `json:"period"`
	StrongBuy  int    `json:"strongBuy"`
	Buy        int    `json:"buy"`
	Hold       int    `json:"hold"`
	Sell       int    `json:"sell"`
	StrongSell int    `json:"strongSell"`
}

// keyMetrics are the basic-financials fields rendered into the fundamental
// analyst prompt, in display order.
var keyMetrics = []struct{ key, label string }{
	{"peBasicExclExtraTTM", "P/E (TTM)"},
	{"psTTM", "P/S (TTM)"},
	{"pbQuarterly", "P/B"},
	{"epsBasicExclExtraItemsTTM", "EPS (TTM)"},
	{"revenueGrowthTTMYoy", "Revenue growth YoY %"},
	{"grossMarginTTM", "Gross margin %"},
	{"netProfitMarginTTM", "Net margin %"},
	{"roeTTM", "ROE %"},
	{"totalDebt/totalEquityQuarterly", "Debt/Equity"},
	{"currentRatioQuarterly", "Current ratio"},
	{"52WeekHigh", "52-week high"},
	{"52WeekLow", "52-week low"},
}

// Fundamentals renders Finnhub basic financials and analyst recommendation
// trends into the free-text sections the analyst prompt consumes.
func (c *FinnhubClient) Fundamentals(ctx context.Context, ticker string, asOf time.Time) (*tools.Fundamentals, error) {
	var metrics finnhubMetrics
	if err := c.get(ctx, "/stock/metric", url.Values{"symbol": {ticker}, "metric": {"all"}}, &metrics); err != nil {
		return nil, err
	}

	var ratios strings.Builder
	for _, m := range keyMetrics {
		if v, ok := metrics.Metric[m.key]; ok {
			fmt.Fprintf(&ratios, "%s: %v\n", m.label, v)
		}
	}

	// Recommendation trends are best-effort: missing coverage leaves the
	// ratings section empty.
	var ratings string
	var recs []finnhubRecommendation
	if err := c.get(ctx, "/stock/recommendation", url.Values{"symbol": {ticker}}, &recs); err == nil && len(recs) > 0 {
		r := recs[0]
		ratings = fmt.Sprintf("Analyst ratings (%s): %d strong buy, %d buy, %d hold, %d sell, %d strong sell",
			r.Period, r.StrongBuy, r.Buy, r.Hold, r.Sell, r.StrongSell)
	}

	return &tools.Fundamentals{
		Ticker:  ticker,
		AsOf:    asOf,
		Ratios:  strings.TrimSpace(ratios.String()),
		Ratings: ratings,
	}, nil
}

type finnhubNewsItem struct {
	Datetime int64  `json:"datetime"`
	Headline string `json:"headline"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
}

// Headlines returns company news published in the days before asOf.
func (c *FinnhubClient) Headlines(ctx context.Context, ticker string, asOf time.Time, days int) ([]tools.Headline, error) {
	from := asOf.AddDate(0, 0, -days)

	var items []finnhubNewsItem
	err := c.get(ctx, "/company-news", url.Values{
		"symbol": {ticker},
		"from":   {from.Format("2006-01-02")},
		"to":     {asOf.Format("2006-01-02")},
	}, &items)
	if err != nil {
		return nil, err
	}

	headlines := make([]tools.Headline, 0, len(items))
	for _, item := range items {
		if item.Headline == "" {
			continue
		}
		headlines = append(headlines, tools.Headline{
			Title:     item.Headline,
			Source:    item.Source,
			Published: time.Unix(item.Datetime, 0).UTC(),
			Summary:   item.Summary,
		})
	}
	return headlines, nil
}

type finnhubSocial struct {
	Data []struct {
		Mention         int     `json:"mention"`
		PositiveMention int     `json:"positiveMention"`
		NegativeMention int     `json:"negativeMention"`
		Score           float64 `json:"score"`
	} `json:"data"`
}

// Sentiment aggregates the trailing week of social mentions into one score.
func (c *FinnhubClient) Sentiment(ctx context.Context, ticker string, asOf time.Time) (*tools.SocialSentiment, error) {
	from := asOf.AddDate(0, 0, -7)

	var social finnhubSocial
	err := c.get(ctx, "/stock/social-sentiment", url.Values{
		"symbol": {ticker},
		"from":   {from.Format("2006-01-02")},
		"to":     {asOf.Format("2006-01-02")},
	}, &social)
	if err != nil {
		return nil, err
	}

	out := &tools.SocialSentiment{Ticker: ticker, AsOf: asOf}
	if len(social.Data) == 0 {
		return out, nil
	}

	var score float64
	var positive, negative int
	for _, d := range social.Data {
		out.Posts += d.Mention
		positive += d.PositiveMention
		negative += d.NegativeMention
		score += d.Score
	}
	out.Score = score / float64(len(social.Data))
	out.Summary = fmt.Sprintf("%d mentions over 7 days: %d positive, %d negative",
		out.Posts, positive, negative)
	return out, nil
}
