package workers

import (
	"context"
	"fmt"
	"time"

	"nexus/internal/agents"
	"nexus/internal/domain/analysis"
	"nexus/internal/domain/memory"
	"nexus/internal/tools"
)

// evalBatchLimit bounds how many records one iteration inspects.
const evalBatchLimit = 200

// OutcomeEvaluator back-fills pending memory records once their horizon has
// passed: realized pnl from the price path since the decision, plus a short
// reflection lesson. The lesson feeds future debate prompts through the
// mistakes and successes queries.
type OutcomeEvaluator struct {
	*BaseWorker
	memory  *memory.Service
	prices  tools.MarketDataProvider
	invoker agents.Invoker
	horizon analysis.Horizon
}

// NewOutcomeEvaluator creates the back-fill worker. invoker may be nil, in
// which case lessons are templated instead of model-written.
func NewOutcomeEvaluator(
	mem *memory.Service,
	prices tools.MarketDataProvider,
	invoker agents.Invoker,
	horizon analysis.Horizon,
	interval time.Duration,
	enabled bool,
) *OutcomeEvaluator {
	if interval == 0 {
		interval = 12 * time.Hour
	}
	return &OutcomeEvaluator{
		BaseWorker: NewBaseWorker("outcome_evaluator", interval, enabled),
		memory:     mem,
		prices:     prices,
		invoker:    invoker,
		horizon:    horizon,
	}
}

// Run evaluates every pending record whose horizon has elapsed. Per-record
// failures are logged and skipped; the next iteration retries them.
func (w *OutcomeEvaluator) Run(ctx context.Context) error {
	days := w.horizon.ForwardDays()
	cutoff := time.Now().AddDate(0, 0, -days)

	recs, err := w.memory.Recent(ctx, "", evalBatchLimit)
	if err != nil {
		return err
	}

	evaluated := 0
	for _, rec := range recs {
		if rec.OutcomeStatus != memory.OutcomePending || rec.CreatedAt.After(cutoff) {
			continue
		}
		if err := w.evaluate(ctx, rec, days); err != nil {
			w.Log().Warnw("Outcome evaluation failed",
				"id", rec.ID, "ticker", rec.Ticker, "error", err)
			continue
		}
		evaluated++
	}

	if evaluated > 0 {
		w.Log().Infow("Back-filled outcomes", "count", evaluated)
	}
	return nil
}

func (w *OutcomeEvaluator) evaluate(ctx context.Context, rec *memory.Record, days int) error {
	pnl, err := w.realizedPnL(ctx, rec, days)
	if err != nil {
		return err
	}

	outcome := memory.Outcome{
		Label:  fmt.Sprintf("horizon reached (%d days)", days),
		PnLPct: pnl,
		Lesson: w.lesson(ctx, rec, pnl, days),
	}
	if rec.Decision == analysis.SignalHold {
		outcome.Label = "no position taken"
	}
	return w.memory.UpdateOutcome(ctx, rec.ID, outcome)
}

// realizedPnL measures the signed move from the first close after the
// decision to the latest close. A HOLD realizes zero; a SELL profits from
// a falling price.
func (w *OutcomeEvaluator) realizedPnL(ctx context.Context, rec *memory.Record, days int) (float64, error) {
	if rec.Decision == analysis.SignalHold {
		return 0, nil
	}

	series, err := w.prices.PriceHistory(ctx, rec.Ticker, time.Now().UTC(), days+40)
	if err != nil {
		return 0, err
	}
	if series.Empty() {
		return 0, fmt.Errorf("no price data for %s", rec.Ticker)
	}

	var entry float64
	for _, bar := range series.Bars {
		if !bar.Date.Before(rec.CreatedAt.Truncate(24 * time.Hour)) {
			entry = bar.Close
			break
		}
	}
	exit := series.LastClose()
	if entry == 0 || exit == 0 {
		return 0, fmt.Errorf("no usable price path for %s since %s",
			rec.Ticker, rec.CreatedAt.Format("2006-01-02"))
	}

	pnl := (exit - entry) / entry * 100
	if rec.Decision == analysis.SignalSell {
		pnl = -pnl
	}
	return pnl, nil
}

const reflectionPrompt = `You are a trading coach reviewing a past decision.

Decision: %s %s
Original rationale: %s
Realized result: %+.2f%% over %d days.

In two or three sentences, state the single most important lesson from this
outcome: what reasoning held up or failed, and what to weigh differently in
a similar situation. Write the lesson directly, without preamble.`

func (w *OutcomeEvaluator) lesson(ctx context.Context, rec *memory.Record, pnl float64, days int) string {
	if w.invoker != nil {
		prompt := fmt.Sprintf(reflectionPrompt, rec.Decision, rec.Ticker, rec.Rationale, pnl, days)
		if text, err := w.invoker.Invoke(ctx, prompt); err == nil && text != "" {
			return text
		}
		w.Log().Warnw("Reflection call failed, using templated lesson", "id", rec.ID)
	}

	switch {
	case rec.Decision == analysis.SignalHold:
		return fmt.Sprintf("Stayed out of %s; no capital at risk.", rec.Ticker)
	case pnl >= 0:
		return fmt.Sprintf("%s on %s returned %+.2f%% over %d days; the thesis held.",
			rec.Decision, rec.Ticker, pnl, days)
	default:
		return fmt.Sprintf("%s on %s lost %.2f%% over %d days; revisit the original thesis before repeating it.",
			rec.Decision, rec.Ticker, -pnl, days)
	}
}
