package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexus/internal/domain/analysis"
)

func walkStates(t *testing.T, cfg analysis.RunConfig) []Step {
	t.Helper()

	state := analysis.NewRunState("TEST", time.Now(), cfg)
	var visited []Step

	// Simulate the counter increments the speaker steps perform so the
	// transition table can be exercised without any agents.
	step := StepAnalysts
	for i := 0; step != StepDone; i++ {
		require.Less(t, i, 100, "transition table does not terminate for %+v", cfg)

		visited = append(visited, step)
		switch step {
		case StepBull, StepBear:
			state.InvestDebate.Count++
		case StepRiskAggressive, StepRiskConservative, StepRiskNeutral:
			state.RiskDebate.Count++
		}
		step = Next(step, state)
	}
	return visited
}

func countStep(visited []Step, s Step) int {
	n := 0
	for _, v := range visited {
		if v == s {
			n++
		}
	}
	return n
}

func TestNext_InvestDebateTerminatesAtTwiceRounds(t *testing.T) {
	for _, rounds := range []int{0, 1, 2, 3} {
		cfg := analysis.RunConfig{MaxDebateRounds: rounds, RiskOn: false}
		visited := walkStates(t, cfg)

		assert.Equal(t, rounds, countStep(visited, StepBull), "rounds=%d", rounds)
		assert.Equal(t, rounds, countStep(visited, StepBear), "rounds=%d", rounds)
		assert.Equal(t, 1, countStep(visited, StepJudgeInvest), "rounds=%d", rounds)
		assert.Equal(t, 1, countStep(visited, StepTrader), "rounds=%d", rounds)
		assert.Equal(t, 0, countStep(visited, StepJudgeRisk), "risk off skips judge")
	}
}

func TestNext_RiskRotationTerminatesAtThriceRounds(t *testing.T) {
	for _, rounds := range []int{0, 1, 2, 3} {
		cfg := analysis.RunConfig{MaxDebateRounds: 1, MaxRiskRounds: rounds, RiskOn: true}
		visited := walkStates(t, cfg)

		assert.Equal(t, rounds, countStep(visited, StepRiskAggressive), "rounds=%d", rounds)
		assert.Equal(t, rounds, countStep(visited, StepRiskConservative), "rounds=%d", rounds)
		assert.Equal(t, rounds, countStep(visited, StepRiskNeutral), "rounds=%d", rounds)
		assert.Equal(t, 1, countStep(visited, StepJudgeRisk), "rounds=%d", rounds)
	}
}

func TestNext_RiskRotationOrder(t *testing.T) {
	cfg := analysis.RunConfig{MaxDebateRounds: 0, MaxRiskRounds: 2, RiskOn: true}
	visited := walkStates(t, cfg)

	want := []Step{
		StepAnalysts, StepJudgeInvest, StepTrader,
		StepRiskAggressive, StepRiskConservative, StepRiskNeutral,
		StepRiskAggressive, StepRiskConservative, StepRiskNeutral,
		StepJudgeRisk,
	}
	assert.Equal(t, want, visited)
}

func TestTotalSteps(t *testing.T) {
	assert.Equal(t, 4+2+1+1, TotalSteps(analysis.RunConfig{MaxDebateRounds: 1, RiskOn: false}))
	assert.Equal(t, 4+4+1+1+3+1, TotalSteps(analysis.RunConfig{MaxDebateRounds: 2, MaxRiskRounds: 1, RiskOn: true}))
	assert.Equal(t, 4+1+1+1, TotalSteps(analysis.RunConfig{RiskOn: true}))
}
