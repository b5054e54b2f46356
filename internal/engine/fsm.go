package engine

import (
	"nexus/internal/domain/analysis"
)

// Step is one state of the analysis pipeline. The walk is driven purely by
// loop counters in the run state, so termination is a property of the
// transition table, not of model output.
type Step string

const (
	StepAnalysts         Step = "analysts"
	StepBull             Step = "bull_researcher"
	StepBear             Step = "bear_researcher"
	StepJudgeInvest      Step = "research_manager"
	StepTrader           Step = "trader"
	StepRiskAggressive   Step = "aggressive_analyst"
	StepRiskConservative Step = "conservative_analyst"
	StepRiskNeutral      Step = "neutral_analyst"
	StepJudgeRisk        Step = "risk_manager"
	StepDone             Step = "done"
)

// Next returns the successor of cur. Counters only ever increase, each
// loop body increments the counter it is bounded by, so every walk reaches
// StepDone in O(MaxDebateRounds + MaxRiskRounds) transitions.
func Next(cur Step, state *analysis.RunState) Step {
	cfg := state.Config

	switch cur {
	case StepAnalysts:
		if cfg.MaxDebateRounds <= 0 {
			return StepJudgeInvest
		}
		return StepBull

	case StepBull:
		return StepBear

	case StepBear:
		if state.InvestDebate.Count < 2*cfg.MaxDebateRounds {
			return StepBull
		}
		return StepJudgeInvest

	case StepJudgeInvest:
		return StepTrader

	case StepTrader:
		if !cfg.RiskOn {
			// Legacy gate runs inside the trader step execution.
			return StepDone
		}
		if cfg.MaxRiskRounds <= 0 {
			return StepJudgeRisk
		}
		return StepRiskAggressive

	case StepRiskAggressive:
		return StepRiskConservative

	case StepRiskConservative:
		return StepRiskNeutral

	case StepRiskNeutral:
		if state.RiskDebate.Count < 3*cfg.MaxRiskRounds {
			return StepRiskAggressive
		}
		return StepJudgeRisk

	case StepJudgeRisk:
		return StepDone
	}

	return StepDone
}

// TotalSteps is the number of pipeline steps a run with this config will
// execute, used to size progress reporting. The four analysts count as one
// step each.
func TotalSteps(cfg analysis.RunConfig) int {
	total := 4                   // analysts
	total += 2 * cfg.MaxDebateRounds // bull/bear turns
	total++                      // research manager
	total++                      // trader (plus legacy gate when risk is off)
	if cfg.RiskOn {
		total += 3 * cfg.MaxRiskRounds
		total++ // risk manager
	}
	return total
}
