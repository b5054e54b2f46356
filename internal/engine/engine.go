package engine

import (
	"context"
	"time"

	"nexus/internal/agents"
	"nexus/internal/domain/analysis"
	"nexus/internal/metrics"
	"nexus/pkg/errors"
)

// Engine executes pipeline steps against a run. It holds no per-run state:
// everything a step needs travels in the run value, so one Engine serves
// any number of concurrent runs.
type Engine struct {
	analysts  *agents.AnalystTeam
	research  *agents.ResearchTeam
	trader    *agents.Trader
	risk      *agents.RiskTeam
	extractor *agents.SignalExtractor
}

func NewEngine(analysts *agents.AnalystTeam, research *agents.ResearchTeam, trader *agents.Trader, risk *agents.RiskTeam, extractor *agents.SignalExtractor) *Engine {
	return &Engine{
		analysts:  analysts,
		research:  research,
		trader:    trader,
		risk:      risk,
		extractor: extractor,
	}
}

// run bundles everything owned by a single analysis walk.
type run struct {
	state  *analysis.RunState
	rc     *RunContext
	market agents.MarketContext
}

// analystNames orders the first-stage sub-steps for progress reporting.
var analystNames = []string{
	agents.ReportFundamental,
	agents.ReportTechnical,
	agents.ReportNews,
	agents.ReportSentiment,
}

// runAnalyst executes one analyst sub-step by name. Analyst steps never
// fail the run; they degrade into placeholder reports.
func (e *Engine) runAnalyst(ctx context.Context, r *run, name string) {
	start := time.Now()
	defer func() {
		metrics.AgentStepDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}()

	switch name {
	case agents.ReportFundamental:
		e.analysts.Fundamental(ctx, r.rc, r.state)
	case agents.ReportTechnical:
		r.market = e.analysts.Technical(ctx, r.rc, r.state)
	case agents.ReportNews:
		e.analysts.News(ctx, r.rc, r.state)
	case agents.ReportSentiment:
		e.analysts.Sentiment(ctx, r.rc, r.state)
	}
}

// execute runs one non-analyst step. Errors abort the run.
func (e *Engine) execute(ctx context.Context, r *run, step Step) error {
	start := time.Now()
	defer func() {
		metrics.AgentStepDuration.WithLabelValues(string(step)).Observe(time.Since(start).Seconds())
	}()

	switch step {
	case StepBull:
		metrics.DebateExchanges.WithLabelValues("invest").Inc()
		return e.research.BullStep(ctx, r.state)

	case StepBear:
		metrics.DebateExchanges.WithLabelValues("invest").Inc()
		return e.research.BearStep(ctx, r.state)

	case StepJudgeInvest:
		return e.research.Judge(ctx, r.state, e.extractor)

	case StepTrader:
		if err := e.trader.Synthesize(ctx, r.state); err != nil {
			return err
		}
		if !r.state.Config.RiskOn {
			e.risk.LegacyValidate(r.state, r.market)
		}
		return nil

	case StepRiskAggressive:
		metrics.DebateExchanges.WithLabelValues("risk").Inc()
		return e.risk.AggressiveStep(ctx, r.state, r.market)

	case StepRiskConservative:
		metrics.DebateExchanges.WithLabelValues("risk").Inc()
		return e.risk.ConservativeStep(ctx, r.state, r.market)

	case StepRiskNeutral:
		metrics.DebateExchanges.WithLabelValues("risk").Inc()
		return e.risk.NeutralStep(ctx, r.state, r.market)

	case StepJudgeRisk:
		return e.risk.Judge(ctx, r.state, r.market)
	}

	return errors.Newf("unknown pipeline step %q", step)
}
