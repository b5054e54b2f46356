package engine

import (
	"context"
	"strings"
	"time"

	"nexus/internal/agents"
	"nexus/internal/domain/analysis"
	"nexus/internal/domain/memory"
	"nexus/internal/metrics"
	"nexus/pkg/errors"
	"nexus/pkg/logger"
)

// Orchestrator drives complete analysis runs: fresh state, analyst stage,
// FSM walk, memory persistence, progress events. One orchestrator serves
// concurrent runs; each run owns its state and context exclusively.
type Orchestrator struct {
	engine   *Engine
	memory   *memory.Service
	defaults analysis.RunConfig
	log      *logger.Logger
}

// NewOrchestrator builds an orchestrator. mem may be nil, which disables
// persistence regardless of the run flags.
func NewOrchestrator(engine *Engine, mem *memory.Service, defaults analysis.RunConfig) *Orchestrator {
	return &Orchestrator{
		engine:   engine,
		memory:   mem,
		defaults: defaults,
		log:      logger.Get().With("component", "orchestrator"),
	}
}

// RunRequest identifies one analysis. Config overrides the orchestrator
// defaults when set.
type RunRequest struct {
	Ticker string
	AsOf   time.Time
	Config *analysis.RunConfig
}

// Run executes a full analysis. The sink receives ordered progress events:
// processing per step, executing once the decision is final, then exactly
// one of complete or error. After an error event nothing else is emitted.
func (o *Orchestrator) Run(ctx context.Context, req RunRequest, sink Sink) (*analysis.Result, error) {
	ticker := strings.ToUpper(strings.TrimSpace(req.Ticker))
	if ticker == "" {
		err := errors.Wrap(errors.ErrInvalidInput, "ticker is required")
		sink.emit(Event{Type: EventError, Message: err.Error()})
		return nil, err
	}
	asOf := req.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	cfg := o.defaults
	if req.Config != nil {
		cfg = *req.Config
	}

	state := analysis.NewRunState(ticker, asOf, cfg)
	r := &run{state: state, rc: NewRunContext()}

	o.log.Infow("analysis run started",
		"run_id", state.ID, "ticker", ticker, "as_of", asOf.Format("2006-01-02"),
		"debate_rounds", cfg.MaxDebateRounds, "risk_on", cfg.RiskOn)

	start := time.Now()
	total := TotalSteps(cfg)
	stepNo := 0

	// Analyst stage: four sub-steps, each degrades instead of failing.
	for _, name := range analystNames {
		stepNo++
		sink.emit(Event{Type: EventProcessing, Agent: name, Step: stepNo, Total: total})
		o.engine.runAnalyst(ctx, r, name)
	}

	// Debate walk. Any step error is terminal for the run.
	for step := Next(StepAnalysts, state); step != StepDone; step = Next(step, state) {
		stepNo++
		sink.emit(Event{Type: EventProcessing, Agent: string(step), Step: stepNo, Total: total})

		if err := o.engine.execute(ctx, r, step); err != nil {
			state.Finished = time.Now()
			metrics.RunsTotal.WithLabelValues("error").Inc()
			o.log.Errorw("analysis run aborted",
				"run_id", state.ID, "ticker", ticker, "step", step, "error", err)
			sink.emit(Event{Type: EventError, Message: err.Error()})
			return nil, errors.Wrapf(errors.Join(errors.ErrRunAborted, err), "step %s", step)
		}
	}

	state.Finished = time.Now()
	sink.emit(Event{Type: EventExecuting, Message: "finalizing decision"})

	o.persist(ctx, state)

	result := state.Project()
	metrics.RunsTotal.WithLabelValues("success").Inc()
	metrics.RunDuration.Observe(time.Since(start).Seconds())
	metrics.RunDecisions.WithLabelValues(string(result.Strategy.Action)).Inc()

	o.log.Infow("analysis run complete",
		"run_id", state.ID, "ticker", ticker,
		"action", result.Strategy.Action, "overrode", state.Metadata.RiskOverrode,
		"duration_ms", result.DurationMS)

	sink.emit(Event{Type: EventComplete, Result: result})
	return result, nil
}

// persist stores the completed run for future recall. Failure is recorded
// in the run metadata and logged, never fatal: losing one memory record is
// cheaper than failing a finished analysis.
func (o *Orchestrator) persist(ctx context.Context, state *analysis.RunState) {
	if o.memory == nil || !state.Config.MemoryOn {
		return
	}

	_, err := o.memory.Store(ctx, memory.StoreRequest{
		Ticker:    state.Ticker,
		Situation: agents.Situation(state),
		Decision:  state.Strategy.Action,
		Rationale: state.Strategy.Rationale,
	})
	if err != nil {
		state.Metadata.MemoryPersistErr = err.Error()
		o.log.Warnw("memory persist failed",
			"run_id", state.ID, "ticker", state.Ticker, "error", err)
	}
}
