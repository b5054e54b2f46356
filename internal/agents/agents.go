package agents

import (
	"context"

	"nexus/internal/domain/analysis"
	"nexus/internal/domain/memory"
)

// Invoker is the LLM entry point agents speak through. Invoke uses the
// standard model, InvokeDeep the slower reasoning model reserved for judge
// roles. Both retry rate limits internally and return terminal errors only.
type Invoker interface {
	Invoke(ctx context.Context, prompt string) (string, error)
	InvokeDeep(ctx context.Context, prompt string) (string, error)
}

// MemoryReader is the slice of the memory service the researchers consult.
// Implementations degrade to empty results rather than failing.
type MemoryReader interface {
	Similar(ctx context.Context, query string, k int) []*memory.Record
	Mistakes(ctx context.Context, maxLossPct float64, limit int) []*memory.Record
}

// MarketContext carries the per-ticker risk read the risk debate argues
// over. Summary is the rendered indicator digest.
type MarketContext struct {
	Rating  analysis.RiskRating
	Summary string
}

// Speaker names as they appear in debate transcripts.
const (
	SpeakerBull         = "Bull"
	SpeakerBear         = "Bear"
	SpeakerAggressive   = "Aggressive"
	SpeakerConservative = "Conservative"
	SpeakerNeutral      = "Neutral"
)
