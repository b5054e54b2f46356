package agents

import (
	"context"
	"fmt"

	"nexus/internal/domain/analysis"
	"nexus/pkg/logger"
)

// ResearchTeam runs the bull/bear debate and its judge. Speaker and judge
// failures propagate to the caller: a debate with a missing turn is not a
// debate, so these steps abort the run instead of degrading.
type ResearchTeam struct {
	invoker Invoker
	mem     MemoryReader
	log     *logger.Logger
}

func NewResearchTeam(invoker Invoker, mem MemoryReader) *ResearchTeam {
	return &ResearchTeam{
		invoker: invoker,
		mem:     mem,
		log:     logger.Get().With("component", "research_team"),
	}
}

// Situation describes the current setup for similarity search, built from
// the same reports the debate argues over. The orchestrator reuses it as
// the stored situation text at run end so recall and storage share one
// representation.
func Situation(state *analysis.RunState) string {
	return fmt.Sprintf("Ticker %s as of %s.\n%s",
		state.Ticker, state.AsOf.Format("2006-01-02"), renderReports(state.Reports))
}

// BullStep produces one bull turn. Memory is consulted only on the bull's
// opening turn; later turns argue from the transcript.
func (t *ResearchTeam) BullStep(ctx context.Context, state *analysis.RunState) error {
	var lessons string
	if state.Config.MemoryOn && t.mem != nil && state.InvestDebate.Count == 0 {
		records := t.mem.Similar(ctx, Situation(state), 3)
		state.Metadata.MemoryQueries++
		lessons = renderLessons("Similar past situations and how they played out:", records)
	}

	response, err := t.invoker.Invoke(ctx, bullPrompt(state, lessons))
	if err != nil {
		return err
	}
	state.InvestDebate.AppendBull(response)
	return nil
}

// BearStep produces one bear turn. Memory is consulted only on the bear's
// first turn, and with past mistakes rather than similar cases: the bear's
// job is to surface what went wrong before.
func (t *ResearchTeam) BearStep(ctx context.Context, state *analysis.RunState) error {
	var lessons string
	if state.Config.MemoryOn && t.mem != nil && state.InvestDebate.Count == 1 {
		records := t.mem.Mistakes(ctx, -2.0, 3)
		state.Metadata.MemoryQueries++
		lessons = renderLessons("Past losing decisions and their lessons:", records)
	}

	response, err := t.invoker.Invoke(ctx, bearPrompt(state, lessons))
	if err != nil {
		return err
	}
	state.InvestDebate.AppendBear(response)
	return nil
}

// Judge evaluates the full transcript and writes the investment plan. Uses
// the deep model: this is the decision the rest of the pipeline executes.
func (t *ResearchTeam) Judge(ctx context.Context, state *analysis.RunState, extractor *SignalExtractor) error {
	decision, err := t.invoker.InvokeDeep(ctx, researchManagerPrompt(state))
	if err != nil {
		return err
	}

	state.InvestDebate.JudgeDecision = decision
	state.InvestmentPlan = decision
	state.Metadata.ResearchAction = extractor.Extract(ctx, decision, "research_manager")
	return nil
}
