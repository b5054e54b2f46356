package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexus/pkg/errors"
)

var asOf = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func TestYahooClient_PriceHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/NVDA", r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		assert.NotEmpty(t, r.URL.Query().Get("period1"))

		base := asOf.AddDate(0, 0, -3).Unix()
		fmt.Fprintf(w, `{"chart":{"result":[{
			"timestamp":[%d,%d,%d],
			"indicators":{"quote":[{
				"open":[100,102,0],
				"high":[104,105,0],
				"low":[99,101,0],
				"close":[103,104,0],
				"volume":[1000,1100,0]
			}]}}],"error":null}}`, base, base+86400, base+2*86400)
	}))
	defer srv.Close()

	client := NewYahooClient(srv.URL, 0)
	series, err := client.PriceHistory(context.Background(), "NVDA", asOf, 90)
	require.NoError(t, err)

	// The zero-close bar (market holiday padding) is dropped.
	require.Len(t, series.Bars, 2)
	assert.Equal(t, 103.0, series.Bars[0].Close)
	assert.Equal(t, 104.0, series.LastClose())
	assert.True(t, series.Bars[0].Date.Before(series.Bars[1].Date), "oldest first")
}

func TestYahooClient_TrimsToRequestedDays(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":[{"timestamp":[1,2,3,4,5],"indicators":{"quote":[{"open":[1,1,1,1,1],"high":[1,1,1,1,1],"low":[1,1,1,1,1],"close":[10,11,12,13,14],"volume":[1,1,1,1,1]}]}}],"error":null}}`)
	}))
	defer srv.Close()

	series, err := NewYahooClient(srv.URL, 0).PriceHistory(context.Background(), "NVDA", asOf, 3)
	require.NoError(t, err)
	require.Len(t, series.Bars, 3)
	assert.Equal(t, 12.0, series.Bars[0].Close, "keeps the most recent bars")
}

func TestYahooClient_UnknownTickerIsEmptyNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	series, err := NewYahooClient(srv.URL, 0).PriceHistory(context.Background(), "ZZZZ", asOf, 90)
	require.NoError(t, err)
	assert.True(t, series.Empty())
}

func TestFinnhubClient_Headlines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/company-news", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("token"))
		assert.Equal(t, "2024-03-08", r.URL.Query().Get("from"))
		assert.Equal(t, "2024-03-15", r.URL.Query().Get("to"))

		fmt.Fprint(w, `[
			{"datetime":1710400000,"headline":"Earnings beat expectations","source":"Reuters","summary":"Strong quarter."},
			{"datetime":1710300000,"headline":"","source":"noise"},
			{"datetime":1710200000,"headline":"New product announced","source":"Bloomberg"}
		]`)
	}))
	defer srv.Close()

	client := NewFinnhubClient(srv.URL, "test-key", 0)
	headlines, err := client.Headlines(context.Background(), "NVDA", asOf, 7)
	require.NoError(t, err)

	require.Len(t, headlines, 2, "empty headlines are dropped")
	assert.Equal(t, "Earnings beat expectations", headlines[0].Title)
	assert.Equal(t, "Reuters", headlines[0].Source)
}

func TestFinnhubClient_Fundamentals(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/stock/metric":
			fmt.Fprint(w, `{"metric":{"peBasicExclExtraTTM":35.2,"roeTTM":88.1,"unknownField":1}}`)
		case "/stock/recommendation":
			fmt.Fprint(w, `[{"period":"2024-03-01","strongBuy":20,"buy":10,"hold":4,"sell":1,"strongSell":0}]`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewFinnhubClient(srv.URL, "test-key", 0)
	f, err := client.Fundamentals(context.Background(), "NVDA", asOf)
	require.NoError(t, err)

	assert.Contains(t, f.Ratios, "P/E (TTM): 35.2")
	assert.Contains(t, f.Ratios, "ROE %: 88.1")
	assert.NotContains(t, f.Ratios, "unknownField")
	assert.Contains(t, f.Ratings, "20 strong buy")
}

func TestFinnhubClient_Sentiment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[
			{"mention":120,"positiveMention":80,"negativeMention":40,"score":0.6},
			{"mention":80,"positiveMention":30,"negativeMention":50,"score":0.2}
		]}`)
	}))
	defer srv.Close()

	client := NewFinnhubClient(srv.URL, "test-key", 0)
	s, err := client.Sentiment(context.Background(), "NVDA", asOf)
	require.NoError(t, err)

	assert.Equal(t, 200, s.Posts)
	assert.InDelta(t, 0.4, s.Score, 0.001)
	assert.Contains(t, s.Summary, "110 positive")
}

func TestFinnhubClient_RequiresAPIKey(t *testing.T) {
	client := NewFinnhubClient("http://unused", "", 0)
	_, err := client.Headlines(context.Background(), "NVDA", asOf, 7)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestFinnhubClient_RateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewFinnhubClient(srv.URL, "test-key", 0)
	_, err := client.Headlines(context.Background(), "NVDA", asOf, 7)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrRateLimited))
}
