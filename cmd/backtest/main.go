// Backtest runs the decision pipeline over a grid of tickers and past
// dates on a small worker pool, printing one JSON line per completed run.
// It exercises the cross-run concurrency model without persisting memory.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"nexus/internal/adapters/ai"
	"nexus/internal/adapters/config"
	"nexus/internal/adapters/marketdata"
	"nexus/internal/agents"
	"nexus/internal/cache"
	"nexus/internal/domain/analysis"
	"nexus/internal/engine"
	"nexus/internal/tools"
	"nexus/pkg/logger"
)

type job struct {
	ticker string
	asOf   time.Time
}

type outcome struct {
	Ticker     string `json:"ticker"`
	AsOf       string `json:"as_of"`
	Action     string `json:"action"`
	PositionPc string `json:"position_size_pct,omitempty"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

func main() {
	var (
		tickersFlag = flag.String("tickers", "", "comma-separated tickers (required)")
		fromFlag    = flag.String("from", "", "first analysis date, YYYY-MM-DD (required)")
		toFlag      = flag.String("to", "", "last analysis date, YYYY-MM-DD (required)")
		stepDays    = flag.Int("step", 7, "days between analysis dates")
		poolSize    = flag.Int("workers", 3, "concurrent runs")
		rounds      = flag.Int("rounds", 1, "debate rounds per run")
		riskOn      = flag.Bool("risk", false, "run the risk debate stage")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if err := logger.Init("warn", cfg.App.Env); err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	tickers := splitTickers(*tickersFlag)
	from, errFrom := time.Parse("2006-01-02", *fromFlag)
	to, errTo := time.Parse("2006-01-02", *toFlag)
	if len(tickers) == 0 || errFrom != nil || errTo != nil || to.Before(from) {
		flag.Usage()
		os.Exit(2)
	}

	orch := buildPipeline(cfg, *rounds, *riskOn)

	var jobs []job
	for _, tk := range tickers {
		for d := from; !d.After(to); d = d.AddDate(0, 0, *stepDays) {
			jobs = append(jobs, job{ticker: tk, asOf: d})
		}
	}

	results := runPool(context.Background(), orch, jobs, *poolSize)

	enc := json.NewEncoder(os.Stdout)
	decisions := map[string]int{}
	for _, r := range results {
		_ = enc.Encode(r)
		if r.Error == "" {
			decisions[r.Action]++
		}
	}
	fmt.Fprintf(os.Stderr, "\n%d runs: %d BUY, %d SELL, %d HOLD\n",
		len(results), decisions["BUY"], decisions["SELL"], decisions["HOLD"])
}

func splitTickers(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// buildPipeline wires a memoryless pipeline over live data providers.
// Per-process caches still deduplicate repeated prompt and data fetches
// across the grid.
func buildPipeline(cfg *config.Config, rounds int, riskOn bool) *engine.Orchestrator {
	chat := ai.NewOpenAIProvider(cfg.AI.OpenAIKey, cfg.AI.Timeout)
	invoker := ai.NewInvoker(chat, ai.InvokerConfig{
		Model:          cfg.AI.Model,
		DeepModel:      cfg.AI.DeepModel,
		MaxAttempts:    cfg.AI.MaxRetries,
		RequestsPerMin: cfg.AI.RequestsPerMin,
		LLMCacheTTL:    cfg.Cache.LLMTTL,
	}, cache.NewMemoryCache())

	prices := marketdata.NewYahooClient(cfg.Data.YahooBaseURL, cfg.Data.Timeout)
	var fundamentals tools.FundamentalsProvider
	var news tools.NewsProvider
	if cfg.Data.FinnhubKey != "" {
		finnhub := marketdata.NewFinnhubClient(cfg.Data.FinnhubBaseURL, cfg.Data.FinnhubKey, cfg.Data.Timeout)
		fundamentals, news = finnhub, finnhub
	}
	toolkit := tools.NewToolkit(prices, fundamentals, news, nil, cache.NewMemoryCache(), tools.ToolkitConfig{
		DataTTL: cfg.Cache.DataTTL,
	})

	extractor := agents.NewSignalExtractor(invoker)
	eng := engine.NewEngine(
		agents.NewAnalystTeam(invoker, toolkit),
		agents.NewResearchTeam(invoker, nil),
		agents.NewTrader(invoker, extractor),
		agents.NewRiskTeam(invoker, extractor),
		extractor,
	)

	return engine.NewOrchestrator(eng, nil, analysis.RunConfig{
		MaxDebateRounds: rounds,
		MaxRiskRounds:   1,
		RiskOn:          riskOn,
		Horizon:         analysis.Horizon(cfg.Analysis.Horizon),
	})
}

func runPool(ctx context.Context, orch *engine.Orchestrator, jobs []job, size int) []outcome {
	if size < 1 {
		size = 1
	}

	jobCh := make(chan job)
	results := make([]outcome, 0, len(jobs))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < size; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobCh {
				res := execute(ctx, orch, j)
				mu.Lock()
				results = append(results, res)
				mu.Unlock()
			}
		}()
	}

	for _, j := range jobs {
		jobCh <- j
	}
	close(jobCh)
	wg.Wait()

	return results
}

func execute(ctx context.Context, orch *engine.Orchestrator, j job) outcome {
	out := outcome{Ticker: j.ticker, AsOf: j.asOf.Format("2006-01-02")}

	result, err := orch.Run(ctx, engine.RunRequest{Ticker: j.ticker, AsOf: j.asOf}, nil)
	if err != nil {
		out.Error = err.Error()
		return out
	}

	out.Action = string(result.Strategy.Action)
	if !result.Strategy.PositionSizePct.IsZero() {
		out.PositionPc = result.Strategy.PositionSizePct.String()
	}
	out.DurationMS = result.DurationMS
	return out
}
