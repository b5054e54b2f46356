package agents

import (
	"context"
	"fmt"
	"strings"

	"nexus/internal/domain/analysis"
	"nexus/internal/tools"
	"nexus/pkg/logger"
)

// Analyst report keys as they appear in RunState.Reports.
const (
	ReportFundamental = "fundamental_analyst"
	ReportTechnical   = "technical_analyst"
	ReportNews        = "news_analyst"
	ReportSentiment   = "sentiment_analyst"
)

// AnalystTeam produces the four first-stage reports the debate argues
// over. Every step degrades instead of failing: a tool error yields a
// placeholder report noting the gap, a model error yields a degraded
// report built from the raw data. The run always proceeds to the debate.
type AnalystTeam struct {
	invoker Invoker
	toolkit *tools.Toolkit
	log     *logger.Logger
}

func NewAnalystTeam(invoker Invoker, toolkit *tools.Toolkit) *AnalystTeam {
	return &AnalystTeam{
		invoker: invoker,
		toolkit: toolkit,
		log:     logger.Get().With("component", "analyst_team"),
	}
}

// Fundamental analyzes financial statements, ratios, and ratings.
func (t *AnalystTeam) Fundamental(ctx context.Context, store tools.RunStore, state *analysis.RunState) {
	data, err := t.toolkit.FundamentalsReport(ctx, store, state.Ticker, state.AsOf)
	if err != nil || data.Empty() {
		t.degrade(state, ReportFundamental, err,
			fmt.Sprintf("Fundamental data for %s is unavailable for this period. No statement-based assessment possible.", state.Ticker))
		return
	}

	prompt := fmt.Sprintf(`Conduct a fundamental analysis of %s.

Data provided:
Financial Statements: %s
Financial Ratios: %s
Analyst Ratings: %s

Analyze:
- Financial health: profitability, liquidity, solvency, efficiency
- Red flags or concerns
- Overall assessment

FORMAT: Use Markdown with headers and bullet points.
Structure:
- **Profitability & Efficiency**: Margins, ROE, etc.
- **Solvency & Liquidity**: Debt levels, current ratio.
- **Valuation**: P/E, EV/EBITDA vs peers.
- **Conclusion**: Fundamental strength assessment.

Keep response structured and under 300 words.`, state.Ticker, data.Statements, data.Ratios, data.Ratings)

	report, err := t.invoker.Invoke(ctx, prompt)
	if err != nil {
		t.degrade(state, ReportFundamental, err,
			"Fundamental analysis degraded: model unavailable. Raw data summary:\n"+data.Statements)
		return
	}
	state.AddReport(ReportFundamental, report, analysis.Provenance{Source: "fundamentals", AsOf: state.AsOf})
}

// Technical analyzes price action through the indicator digest. The digest
// also yields the risk rating the position gates use later, so it is
// returned to the caller.
func (t *AnalystTeam) Technical(ctx context.Context, store tools.RunStore, state *analysis.RunState) MarketContext {
	series, err := t.toolkit.Prices(ctx, store, state.Ticker, state.AsOf)
	if err != nil || series.Empty() {
		t.degrade(state, ReportTechnical, err,
			fmt.Sprintf("Price history for %s is unavailable for this period. No technical assessment possible.", state.Ticker))
		return MarketContext{Rating: analysis.RiskModerate, Summary: "No price data available."}
	}

	digest := tools.ComputeIndicators(series)
	market := MarketContext{Rating: digest.Risk, Summary: digest.Summary}

	prompt := fmt.Sprintf(`Perform technical analysis of %s.

Data provided:
Technical Indicators:
%s

Analyze:
- Price trends, support/resistance levels, chart patterns
- Key technical indicators
- Trading volume strength
- Short-term price forecast

FORMAT: Use Markdown with headers and bullet points.
Structure:
- **Trend Analysis**: Moving averages, direction.
- **Momentum**: RSI, MACD signals.
- **Support/Resistance**: Key levels to watch.
- **Forecast**: Short-term outlook (Bullish/Bearish/Neutral).

Keep response structured and under 300 words.`, state.Ticker, digest.Summary)

	report, err := t.invoker.Invoke(ctx, prompt)
	if err != nil {
		t.degrade(state, ReportTechnical, err,
			"Technical analysis degraded: model unavailable. Indicator digest:\n"+digest.Summary)
		return market
	}
	state.AddReport(ReportTechnical, report, analysis.Provenance{
		Source: "market_data",
		Window: fmt.Sprintf("%d bars", len(series.Bars)),
		Count:  len(series.Bars),
		AsOf:   state.AsOf,
	})
	return market
}

// News summarizes recent headlines into a sentiment-aware report.
func (t *AnalystTeam) News(ctx context.Context, store tools.RunStore, state *analysis.RunState) {
	headlines, err := t.toolkit.News(ctx, store, state.Ticker, state.AsOf)
	if err != nil || len(headlines) == 0 {
		t.degrade(state, ReportNews, err,
			fmt.Sprintf("No recent news found for %s in this window.", state.Ticker))
		return
	}

	var sb strings.Builder
	for _, h := range headlines {
		fmt.Fprintf(&sb, "- [%s] %s", h.Source, h.Title)
		if h.Summary != "" {
			fmt.Fprintf(&sb, " (%s)", h.Summary)
		}
		sb.WriteString("\n")
	}

	prompt := fmt.Sprintf(`Analyze recent news coverage of %s.

Headlines:
%s

Analyze:
- Overall news sentiment (positive/negative/mixed)
- Material events: earnings, product launches, legal or regulatory items
- Potential price-moving catalysts

FORMAT: Use Markdown with headers and bullet points. Keep response under 300 words.`, state.Ticker, sb.String())

	report, err := t.invoker.Invoke(ctx, prompt)
	if err != nil {
		t.degrade(state, ReportNews, err,
			"News analysis degraded: model unavailable. Headlines:\n"+sb.String())
		return
	}
	state.AddReport(ReportNews, report, analysis.Provenance{
		Source: "news",
		Count:  len(headlines),
		AsOf:   state.AsOf,
	})
}

// Sentiment analyzes social chatter. When the social flag is off the step
// records a placeholder so downstream prompts see a consistent report set.
func (t *AnalystTeam) Sentiment(ctx context.Context, store tools.RunStore, state *analysis.RunState) {
	if !state.Config.SocialOn {
		state.AddReport(ReportSentiment,
			fmt.Sprintf("Social media sentiment analysis for %s is disabled for this run. Rely on news sentiment and fundamental/technical analysis instead.", state.Ticker))
		return
	}

	data, err := t.toolkit.Social(ctx, store, state.Ticker, state.AsOf)
	if err != nil || data.Empty() {
		t.degrade(state, ReportSentiment, err,
			fmt.Sprintf("Social sentiment data for %s is unavailable for this period.", state.Ticker))
		return
	}

	prompt := fmt.Sprintf(`Analyze social media sentiment for %s.

Data provided:
- Aggregate sentiment score: %.2f (-1 bearish to +1 bullish)
- Post volume: %d
- Summary: %s

Analyze:
- Retail sentiment direction and intensity
- Whether chatter volume is unusual
- Contrarian signals (euphoria or capitulation)

Keep response under 200 words.`, state.Ticker, data.Score, data.Posts, data.Summary)

	report, err := t.invoker.Invoke(ctx, prompt)
	if err != nil {
		t.degrade(state, ReportSentiment, err,
			fmt.Sprintf("Sentiment analysis degraded: model unavailable. Score %.2f over %d posts.", data.Score, data.Posts))
		return
	}
	state.AddReport(ReportSentiment, report, analysis.Provenance{
		Source: "social_sentiment",
		Count:  data.Posts,
		AsOf:   state.AsOf,
	})
}

// degrade writes a placeholder report and counts the degradation. err may
// be nil when the data was merely empty.
func (t *AnalystTeam) degrade(state *analysis.RunState, report string, err error, placeholder string) {
	if err != nil {
		t.log.Warnw("analyst step degraded", "report", report, "ticker", state.Ticker, "error", err)
	}
	state.AddReport(report, placeholder)
	state.Metadata.DegradedReports++
}
