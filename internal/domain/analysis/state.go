package analysis

import (
	"time"

	"github.com/google/uuid"
)

// RunConfig holds the feature flags and loop bounds of a single run.
type RunConfig struct {
	MaxDebateRounds int     `json:"max_debate_rounds"`
	MaxRiskRounds   int     `json:"max_risk_rounds"`
	MemoryOn        bool    `json:"memory_on"`
	RiskOn          bool    `json:"risk_on"`
	SocialOn        bool    `json:"social_on"`
	Horizon         Horizon `json:"horizon"`
}

// InvestDebateState tracks the bull/bear debate. The transcript fields are
// append-only; Count increments by exactly one per speaker turn and is
// bounded by 2*MaxDebateRounds.
type InvestDebateState struct {
	History         string `json:"history"`
	BullHistory     string `json:"bull_history"`
	BearHistory     string `json:"bear_history"`
	CurrentResponse string `json:"current_response"`
	LatestSpeaker   string `json:"latest_speaker"`
	JudgeDecision   string `json:"judge_decision"`
	Count           int    `json:"count"`
}

// AppendBull records a bull turn.
func (s *InvestDebateState) AppendBull(response string) {
	s.BullHistory += "\n\n" + response
	s.History += "\n\n" + response
	s.CurrentResponse = response
	s.LatestSpeaker = "Bull"
	s.Count++
}

// AppendBear records a bear turn.
func (s *InvestDebateState) AppendBear(response string) {
	s.BearHistory += "\n\n" + response
	s.History += "\n\n" + response
	s.CurrentResponse = response
	s.LatestSpeaker = "Bear"
	s.Count++
}

// RiskDebateState tracks the three-way risk debate. One full rotation of
// the three speakers counts as one round; Count is bounded by
// 3*MaxRiskRounds.
type RiskDebateState struct {
	History             string `json:"history"`
	AggressiveHistory   string `json:"aggressive_history"`
	ConservativeHistory string `json:"conservative_history"`
	NeutralHistory      string `json:"neutral_history"`
	LatestSpeaker       string `json:"latest_speaker"`
	JudgeDecision       string `json:"judge_decision"`
	Count               int    `json:"count"`
}

// Append records a turn for the named risk speaker.
func (s *RiskDebateState) Append(speaker, response string) {
	switch speaker {
	case "Aggressive":
		s.AggressiveHistory += "\n\n" + response
	case "Conservative":
		s.ConservativeHistory += "\n\n" + response
	case "Neutral":
		s.NeutralHistory += "\n\n" + response
	}
	s.History += "\n\n" + response
	s.LatestSpeaker = speaker
	s.Count++
}

// Provenance describes which external data backed a report, attached to
// the result for auditability.
type Provenance struct {
	Source string    `json:"source"`
	Window string    `json:"window,omitempty"`
	Count  int       `json:"count,omitempty"`
	AsOf   time.Time `json:"as_of"`
}

// RunMetadata records decision-path facts for evaluation and debugging.
type RunMetadata struct {
	ResearchAction   Signal `json:"research_action,omitempty"`
	TraderAction     Signal `json:"trader_action,omitempty"`
	FinalAction      Signal `json:"final_action,omitempty"`
	RiskOverrode     bool   `json:"risk_overrode"`
	MemoryQueries    int    `json:"memory_queries"`
	DegradedReports  int    `json:"degraded_reports"`
	LegacyRiskGate   bool   `json:"legacy_risk_gate"`
	MemoryPersistErr string `json:"memory_persist_err,omitempty"`
}

// RunState is the mutable record of one analysis run. It is created by the
// orchestrator at run start, owned exclusively by that run, and either
// discarded or projected into a memory record at run end. It is never
// shared across runs.
type RunState struct {
	ID       uuid.UUID `json:"id"`
	Ticker   string    `json:"ticker"`
	AsOf     time.Time `json:"as_of"`
	Config   RunConfig `json:"config"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`

	// Reports maps analyst name to its free-text report.
	Reports map[string]string `json:"reports"`

	// ReportProvenance maps analyst name to the data that backed its report.
	ReportProvenance map[string][]Provenance `json:"report_provenance,omitempty"`

	InvestmentPlan string   `json:"investment_plan"`
	Strategy       Strategy `json:"trading_strategy"`

	InvestDebate InvestDebateState `json:"invest_debate_state"`
	RiskDebate   RiskDebateState   `json:"risk_debate_state"`

	Metadata RunMetadata `json:"run_metadata"`
}

// NewRunState creates a fresh run state for one analysis.
func NewRunState(ticker string, asOf time.Time, cfg RunConfig) *RunState {
	return &RunState{
		ID:               uuid.New(),
		Ticker:           ticker,
		AsOf:             asOf,
		Config:           cfg,
		Started:          time.Now(),
		Reports:          make(map[string]string),
		ReportProvenance: make(map[string][]Provenance),
	}
}

// AddReport records an analyst report with its provenance.
func (s *RunState) AddReport(analyst, text string, prov ...Provenance) {
	s.Reports[analyst] = text
	if len(prov) > 0 {
		s.ReportProvenance[analyst] = append(s.ReportProvenance[analyst], prov...)
	}
}

// Result is the externally visible projection of a completed run.
type Result struct {
	RunID          uuid.UUID               `json:"run_id"`
	Ticker         string                  `json:"ticker"`
	AsOf           time.Time               `json:"as_of"`
	Strategy       Strategy                `json:"trading_strategy"`
	InvestmentPlan string                  `json:"investment_plan"`
	Reports        map[string]string       `json:"reports"`
	InvestDebate   InvestDebateState       `json:"invest_debate"`
	RiskDebate     RiskDebateState         `json:"risk_debate"`
	Provenance     map[string][]Provenance `json:"provenance,omitempty"`
	Metadata       RunMetadata             `json:"metadata"`
	DurationMS     int64                   `json:"duration_ms"`
}

// Project returns the external projection of the run state.
func (s *RunState) Project() *Result {
	return &Result{
		RunID:          s.ID,
		Ticker:         s.Ticker,
		AsOf:           s.AsOf,
		Strategy:       s.Strategy,
		InvestmentPlan: s.InvestmentPlan,
		Reports:        s.Reports,
		InvestDebate:   s.InvestDebate,
		RiskDebate:     s.RiskDebate,
		Provenance:     s.ReportProvenance,
		Metadata:       s.Metadata,
		DurationMS:     s.Finished.Sub(s.Started).Milliseconds(),
	}
}
