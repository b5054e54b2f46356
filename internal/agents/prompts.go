package agents

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"nexus/internal/domain/analysis"
	"nexus/internal/domain/memory"
)

// renderReports flattens the analyst reports into a stable, labeled block.
// Map order is randomized in Go, so keys are sorted to keep prompts (and
// therefore the LLM cache) deterministic for identical runs.
func renderReports(reports map[string]string) string {
	keys := make([]string, 0, len(reports))
	for k := range reports {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "### %s\n%s\n\n", k, reports[k])
	}
	return sb.String()
}

// renderLessons formats recalled memory records for prompt injection.
func renderLessons(header string, records []*memory.Record) string {
	if len(records) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(header + "\n")
	for _, r := range records {
		fmt.Fprintf(&sb, "- [%s] decision %s: %s", r.Ticker, r.Decision, r.Rationale)
		if r.OutcomeLesson != nil && *r.OutcomeLesson != "" {
			fmt.Fprintf(&sb, " Lesson: %s", *r.OutcomeLesson)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	return sb.String()
}

// crossExamination is appended to debate prompts from the second round
// onward to force engagement with the opposing side instead of restated
// openings.
const crossExamination = `
Cross-examination requirements for this round:
1. Quote 2-3 specific claims from your opponent's latest argument.
2. Identify the flaw in each quoted claim.
3. Rebut with NEW evidence from the reports. Do not repeat rebuttals you already made.
`

func bullPrompt(state *analysis.RunState, lessons string) string {
	reports := renderReports(state.Reports)
	debate := &state.InvestDebate

	if debate.Count == 0 {
		return fmt.Sprintf(`You are the Bull Researcher for %s. Your role is to build a compelling bullish case for this stock.

%sAnalysis Reports from the Analyst Team:
%s
Please perform the following tasks:
1. Review the reports from the Analyst Team.
2. Identify all the positive factors, growth catalysts, and upside potential.
3. Synthesize these factors into a coherent and persuasive bullish thesis.
4. Present your opening argument clearly and convincingly.

Start your response with "Bull Researcher:" and provide your bullish argument.`, state.Ticker, lessons, reports)
	}

	prompt := fmt.Sprintf(`You are the Bull Researcher in a debate about %s's investment potential.

%sAnalysis Reports:
%s
Bear Researcher's Previous Arguments:
%s

Your Previous Arguments:
%s

Please respond to the Bear Researcher's points:
1. Address their concerns with factual counterarguments.
2. Reinforce your bullish thesis with additional evidence.
3. Highlight why the positive factors outweigh the risks.
4. Be persuasive but professional.`, state.Ticker, lessons, reports, debate.BearHistory, debate.BullHistory)

	if round := debate.Count/2 + 1; round >= 2 {
		prompt += crossExamination
	}
	return prompt + `
Start your response with "Bull Researcher:" and provide your rebuttal.`
}

func bearPrompt(state *analysis.RunState, lessons string) string {
	reports := renderReports(state.Reports)
	debate := &state.InvestDebate

	if debate.Count == 1 {
		return fmt.Sprintf(`You are the Bear Researcher for %s. Your role is to present the bearish case and challenge overly optimistic views.

%sAnalysis Reports from the Analyst Team:
%s
Bull Researcher's Opening Argument:
%s

Please perform the following tasks:
1. Review the reports from the Analyst Team.
2. Identify all the negative factors, risks, and red flags.
3. Challenge the Bull Researcher's arguments with facts and analysis.
4. Present your bearish thesis clearly and convincingly.

Start your response with "Bear Researcher:" and provide your bearish counterargument.`, state.Ticker, lessons, reports, debate.BullHistory)
	}

	prompt := fmt.Sprintf(`You are the Bear Researcher in an ongoing debate about %s's investment potential.

%sAnalysis Reports:
%s
Bull Researcher's Arguments:
%s

Your Previous Arguments:
%s

Please respond to the Bull Researcher's latest points:
1. Counter their optimistic claims with factual analysis.
2. Reinforce your bearish thesis with additional evidence.
3. Highlight risks they may be overlooking.
4. Be critical but professional.`, state.Ticker, lessons, reports, debate.BullHistory, debate.BearHistory)

	if round := (debate.Count + 1) / 2; round >= 2 {
		prompt += crossExamination
	}
	return prompt + `
Start your response with "Bear Researcher:" and provide your rebuttal.`
}

func researchManagerPrompt(state *analysis.RunState) string {
	return fmt.Sprintf(`You are the Research Manager and Portfolio Strategist. Your role is to evaluate the debate between the Bull and Bear researchers and make a definitive investment recommendation for %s.

Original Analysis Reports:
%s
Complete Debate Transcript:
%s

Please perform the following tasks:
1. Summarize the key points from both the bullish and bearish sides.
2. Weigh the strength of evidence on each side.
3. Make a clear recommendation: BUY, SELL, or HOLD.
4. If recommending BUY or SELL, provide specific reasoning.
5. Develop a detailed investment plan including:
   - Your recommendation (BUY/SELL/HOLD)
   - Key rationale (most compelling arguments)
   - Risk factors to monitor
   - Suggested entry/exit strategy
6. Be decisive. Avoid defaulting to HOLD without strong justification.

Provide your analysis and investment plan in a clear, actionable format.`, state.Ticker, renderReports(state.Reports), state.InvestDebate.History)
}

func traderPrompt(state *analysis.RunState) string {
	var context string
	if state.InvestmentPlan != "" {
		context = "Research Manager's Investment Plan:\n" + state.InvestmentPlan
	} else {
		context = fmt.Sprintf("Bullish Argument:\n%s\n\nBearish Argument:\n%s",
			state.InvestDebate.BullHistory, state.InvestDebate.BearHistory)
	}

	return fmt.Sprintf(`Create an actionable trading strategy for %s based on research analysis.

%s

Provide a decisive strategy: BUY, SELL, or HOLD.
For BUY/SELL, specify: entry price, take-profit, stop-loss, position size (%% of portfolio).

Format as JSON:
{
    "action": "BUY|SELL|HOLD",
    "entry_price": <number>,
    "take_profit": <number>,
    "stop_loss": <number>,
    "position_size_pct": <number>,
    "rationale": "<your reasoning in 1-2 sentences>"
}

Keep response under 200 words.`, state.Ticker, context)
}

// disagreementNote surfaces research-manager vs trader tension in risk
// prompts. The disagreement is itself a signal the debate should weigh.
func disagreementNote(state *analysis.RunState, framing string) string {
	rm := state.Metadata.ResearchAction
	trader := state.Metadata.TraderAction
	if rm == "" || trader == "" || rm == trader {
		return ""
	}
	return fmt.Sprintf("\nIMPORTANT DISAGREEMENT: Research Manager recommended %s, but the Trader independently decided %s. This disagreement is a key signal. %s\n", rm, trader, framing)
}

// tail returns at most n trailing bytes of a transcript, or "N/A" when
// empty, keeping rebuttal prompts bounded.
func tail(s string, n int) string {
	if s == "" {
		return "N/A"
	}
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func aggressivePrompt(state *analysis.RunState, market MarketContext) string {
	debate := &state.RiskDebate
	action := state.Strategy.Action
	note := disagreementNote(state, "Address which side has better reasoning.")

	if debate.Count == 0 {
		task := fmt.Sprintf("The recommendation is %s. Argue whether the conviction is strong enough and whether position sizing should be more aggressive.", action)
		if action == analysis.SignalHold {
			task = "The recommendation is HOLD. Evaluate whether there is an opportunity being missed. What is the cost of inaction vs the risk of acting?"
		}
		return fmt.Sprintf(`You are the Aggressive Risk Analyst for %s. Your role is to advocate for BOLD ACTION and challenge excessive caution.

The Trader recommends: %s
Research Manager recommended: %s
%s
Market Context:
- Risk Rating: %s
%s
Strategy Details:
%s

Your Task:
%s

Focus on:
- Opportunity cost of sitting on the sidelines
- Growth potential and competitive advantages
- Why this is the RIGHT time to act
- What we LOSE by being too cautious

Be direct and persuasive. Challenge conservative thinking. Start with "Aggressive Analyst:".`,
			state.Ticker, action, state.Metadata.ResearchAction, note, market.Rating, market.Summary, renderStrategy(state.Strategy), task)
	}

	return fmt.Sprintf(`You are the Aggressive Risk Analyst in a debate about %s.

Strategy: %s
Risk Rating: %s

Conservative Analyst argued:
%s

Neutral Analyst argued:
%s

Your Previous Points:
%s

Counter their caution with specific rebuttals:
- Where are they being overly risk-averse?
- What opportunities are they overlooking?
- Why is their fear preventing profit?

Be confrontational and data-driven. Start with "Aggressive Analyst:".`,
		state.Ticker, action, market.Rating,
		tail(debate.ConservativeHistory, 800), tail(debate.NeutralHistory, 800), tail(debate.AggressiveHistory, 500))
}

func conservativePrompt(state *analysis.RunState, market MarketContext) string {
	debate := &state.RiskDebate
	action := state.Strategy.Action
	note := disagreementNote(state, "Address whether the Trader is taking on too much risk.")

	if debate.Count == 1 {
		task := fmt.Sprintf("Challenge the %s recommendation. What could go WRONG?", action)
		if action == analysis.SignalHold {
			task = "Defend the HOLD recommendation. Explain why action is RISKY right now."
		}
		return fmt.Sprintf(`You are the Conservative Risk Analyst for %s. Your role is to protect capital and minimize losses.

The Trader recommends: %s
Research Manager recommended: %s
%s
Market Context:
- Risk Rating: %s
%s
Strategy Details:
%s

Aggressive Analyst argued:
%s

Your Task:
%s

Focus on:
- Downside risks and potential losses
- Market volatility and uncertainty
- Historical drawdowns and red flags
- Why caution is prudent given current conditions

Be rigorous and risk-aware. Start with "Conservative Analyst:".`,
			state.Ticker, action, state.Metadata.ResearchAction, note, market.Rating, market.Summary,
			renderStrategy(state.Strategy), tail(debate.AggressiveHistory, 800), task)
	}

	return fmt.Sprintf(`You are the Conservative Risk Analyst in a debate about %s.

Strategy: %s
Risk Rating: %s

Aggressive Analyst argued:
%s

Neutral Analyst argued:
%s

Your Previous Points:
%s

Rebut their optimism with specific risks:
- Where are they underestimating downside?
- What volatility and drawdown risks are they ignoring?
- Why could this trade result in significant loss?

Be skeptical and protective. Start with "Conservative Analyst:".`,
		state.Ticker, action, market.Rating,
		tail(debate.AggressiveHistory, 800), tail(debate.NeutralHistory, 800), tail(debate.ConservativeHistory, 500))
}

func neutralPrompt(state *analysis.RunState, market MarketContext) string {
	debate := &state.RiskDebate
	note := disagreementNote(state, "Evaluate which side has stronger evidence.")

	return fmt.Sprintf(`You are the Neutral Risk Analyst for %s. Your role is to find the optimal balanced approach.

The Trader recommends: %s
Research Manager recommended: %s
%s
Market Context:
- Risk Rating: %s
%s
Strategy Details:
%s

Aggressive Analyst argued:
%s

Conservative Analyst argued:
%s

Your Previous Points:
%s

Your Task:
Evaluate both sides and propose a BALANCED solution.

Focus on:
- Where is the aggressive analyst right (and wrong)?
- Where is the conservative analyst right (and wrong)?
- What is the optimal risk-adjusted position?
- Should we modify position size, stops, or approach?

Be analytical and fair. Start with "Neutral Analyst:".`,
		state.Ticker, state.Strategy.Action, state.Metadata.ResearchAction, note, market.Rating, market.Summary,
		renderStrategy(state.Strategy),
		tail(debate.AggressiveHistory, 800), tail(debate.ConservativeHistory, 800), tail(debate.NeutralHistory, 500))
}

func riskManagerPrompt(state *analysis.RunState, market MarketContext) string {
	rm := state.Metadata.ResearchAction
	trader := state.Metadata.TraderAction

	agreement := fmt.Sprintf("\nResearch Manager and Trader AGREE on %s.\n", trader)
	if rm != "" && trader != "" && rm != trader {
		agreement = fmt.Sprintf(`
CRITICAL DISAGREEMENT: Research Manager recommended %s, but the Trader independently chose %s.
This disagreement is a KEY SIGNAL. Evaluate which side has stronger reasoning.
The risk debate above was informed by this disagreement.
`, rm, trader)
	}

	return fmt.Sprintf(`As the Risk Manager, evaluate this risk debate and make a FINAL DECISION for %s.

Research Manager's Recommendation: %s
Trader's Independent Decision: %s
%s
Strategy Details: %s

Market Context:
- Risk Rating: %s
%s

Complete Risk Debate:
%s

Your Task:
1. Summarize key points from each analyst (aggressive/conservative/neutral)
2. Evaluate the Research Manager vs Trader disagreement (if any): who has better reasoning?
3. Make Final Decision: BUY, SELL, or HOLD
   - You CAN override both the Research Manager AND the Trader if the debate surfaces critical flaws
   - HOLD is valid when conviction is genuinely low or risk/reward is unclear
   - BUY and SELL require clear directional conviction supported by at least 2 analysts
4. Adjust Strategy (if changing from the Trader's decision):
   - Position size (%% of portfolio)
   - Stop loss / Take profit levels

Decision Rules:
- If Research Manager and Trader agree and 2 of 3 analysts agree, conviction is high, go with it
- If Research Manager and Trader disagree, weigh the debate carefully, side with stronger evidence
- If all 3 analysts raise significant concerns, override to HOLD
- If evidence is genuinely mixed, HOLD is appropriate

Format:
## Risk Manager Final Decision

**Research Manager Recommended**: %s
**Trader Decided**: %s
**Final Decision**: [BUY/SELL/HOLD]

**Rationale**: [2-3 sentences explaining your decision]

**Adjustments**:
- Position Size: [X%%]
- Stop Loss: [price]
- Take Profit: [price]

Keep response under 300 words.`,
		state.Ticker, rm, trader, agreement, renderStrategy(state.Strategy),
		market.Rating, market.Summary, state.RiskDebate.History, rm, trader)
}

func renderStrategy(s analysis.Strategy) string {
	b, err := json.Marshal(s)
	if err != nil {
		return string(s.Action)
	}
	return string(b)
}
