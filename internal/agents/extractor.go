package agents

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"nexus/internal/domain/analysis"
	"nexus/pkg/logger"
)

// SignalExtractor resolves free-form model output into a BUY/SELL/HOLD
// signal. It never returns an error: each stage hands off to the next on
// failure and the chain bottoms out at HOLD.
//
// Stages, in order:
//  1. embedded JSON "action" field
//  2. constrained single-word LLM call (skipped when no invoker is set)
//  3. keyword scan, last explicit label wins, then synonym scan
//  4. HOLD default
type SignalExtractor struct {
	invoker Invoker
	log     *logger.Logger
}

// NewSignalExtractor builds an extractor. invoker may be nil, which
// disables the LLM stage.
func NewSignalExtractor(invoker Invoker) *SignalExtractor {
	return &SignalExtractor{
		invoker: invoker,
		log:     logger.Get().With("component", "signal_extractor"),
	}
}

var (
	actionFieldRe = regexp.MustCompile(`(?i)"action"\s*:\s*"?\s*(BUY|SELL|HOLD)`)
	labelWordRe   = regexp.MustCompile(`(?i)\b(BUY|SELL|HOLD)\b`)
	jsonBlockRe   = regexp.MustCompile(`(?s)\{.*\}`)
)

// Extract resolves text into a signal. label names the producing agent for
// log attribution only.
func (e *SignalExtractor) Extract(ctx context.Context, text, label string) analysis.Signal {
	if strings.TrimSpace(text) == "" {
		return analysis.SignalHold
	}

	if sig, ok := extractFromJSON(text); ok {
		return sig
	}

	if e.invoker != nil {
		if sig, ok := e.extractViaLLM(ctx, text); ok {
			return sig
		}
	}

	if sig, ok := extractFromKeywords(text); ok {
		return sig
	}

	e.log.Infow("no signal found, defaulting to HOLD", "agent", label)
	return analysis.SignalHold
}

// extractFromJSON looks for an embedded JSON object with an action field.
// Malformed JSON still matches via the field regex, which is what the
// upstream models most often emit when they truncate a block.
func extractFromJSON(text string) (analysis.Signal, bool) {
	if block := jsonBlockRe.FindString(text); block != "" {
		var payload struct {
			Action string `json:"action"`
		}
		if err := json.Unmarshal([]byte(block), &payload); err == nil {
			if sig := analysis.Signal(strings.ToUpper(strings.TrimSpace(payload.Action))); sig.Valid() {
				return sig, true
			}
		}
	}

	if m := actionFieldRe.FindStringSubmatch(text); m != nil {
		return analysis.Signal(strings.ToUpper(m[1])), true
	}
	return "", false
}

const extractPrompt = `You are a trading signal classifier. Read the analysis below and respond with EXACTLY ONE WORD: BUY, SELL, or HOLD.

Interpretation guide:
- "accumulate", "go long", "add to position" mean BUY
- "reduce exposure", "trim", "exit the position" mean SELL
- "wait and see", "stay on the sidelines", "neutral" mean HOLD

Analysis:
`

func (e *SignalExtractor) extractViaLLM(ctx context.Context, text string) (analysis.Signal, bool) {
	out, err := e.invoker.Invoke(ctx, extractPrompt+text)
	if err != nil {
		e.log.Warnw("extractor llm stage failed", "error", err)
		return "", false
	}
	sig := analysis.Signal(strings.ToUpper(strings.TrimSpace(out)))
	if sig.Valid() {
		return sig, true
	}
	return "", false
}

// extractFromKeywords scans for explicit labels first. A later mention
// overrides an earlier one: final recommendations come after the prose
// that weighs both sides. Synonyms are consulted only when no explicit
// label appears anywhere.
func extractFromKeywords(text string) (analysis.Signal, bool) {
	if matches := labelWordRe.FindAllString(text, -1); len(matches) > 0 {
		return analysis.Signal(strings.ToUpper(matches[len(matches)-1])), true
	}

	lower := strings.ToLower(text)
	for _, syn := range []struct {
		phrase string
		sig    analysis.Signal
	}{
		{"accumulate", analysis.SignalBuy},
		{"go long", analysis.SignalBuy},
		{"add to position", analysis.SignalBuy},
		{"reduce", analysis.SignalSell},
		{"exit the position", analysis.SignalSell},
		{"exit positions", analysis.SignalSell},
		{"sell off", analysis.SignalSell},
		{"wait and see", analysis.SignalHold},
		{"wait-and-see", analysis.SignalHold},
		{"stay neutral", analysis.SignalHold},
		{"sidelines", analysis.SignalHold},
	} {
		if strings.Contains(lower, syn.phrase) {
			return syn.sig, true
		}
	}
	return "", false
}
