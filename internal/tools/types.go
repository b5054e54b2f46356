package tools

import (
	"time"
)

// Bar is one OHLCV candle.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceSeries is a window of daily bars ending at the as-of date, oldest
// first.
type PriceSeries struct {
	Ticker string    `json:"ticker"`
	AsOf   time.Time `json:"as_of"`
	Bars   []Bar     `json:"bars"`
}

// Empty reports whether the series carries no usable data.
func (p *PriceSeries) Empty() bool {
	return p == nil || len(p.Bars) == 0
}

// LastClose returns the most recent close, or zero when empty.
func (p *PriceSeries) LastClose() float64 {
	if p.Empty() {
		return 0
	}
	return p.Bars[len(p.Bars)-1].Close
}

// Fundamentals is the financial snapshot used by the fundamental analyst.
// Free-text sections keep the contract narrow: the analyst prompt consumes
// them verbatim.
type Fundamentals struct {
	Ticker     string    `json:"ticker"`
	AsOf       time.Time `json:"as_of"`
	Statements string    `json:"statements"`
	Ratios     string    `json:"ratios"`
	Ratings    string    `json:"ratings"`
}

// Empty reports whether no fundamental data was available.
func (f *Fundamentals) Empty() bool {
	return f == nil || (f.Statements == "" && f.Ratios == "" && f.Ratings == "")
}

// Headline is one news item.
type Headline struct {
	Title     string    `json:"title"`
	Source    string    `json:"source"`
	Published time.Time `json:"published"`
	Summary   string    `json:"summary,omitempty"`
}

// SocialSentiment aggregates social chatter for a ticker.
type SocialSentiment struct {
	Ticker  string    `json:"ticker"`
	AsOf    time.Time `json:"as_of"`
	Score   float64   `json:"score"` // -1 (bearish) .. +1 (bullish)
	Posts   int       `json:"posts"`
	Summary string    `json:"summary"`
}

// Empty reports whether no social data was available.
func (s *SocialSentiment) Empty() bool {
	return s == nil || s.Posts == 0
}
