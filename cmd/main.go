package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"

	"nexus/internal/adapters/ai"
	"nexus/internal/adapters/config"
	"nexus/internal/adapters/embeddings"
	"nexus/internal/adapters/errors/noop"
	"nexus/internal/adapters/errors/sentry"
	"nexus/internal/adapters/marketdata"
	"nexus/internal/adapters/postgres"
	"nexus/internal/adapters/redis"
	"nexus/internal/agents"
	"nexus/internal/api"
	"nexus/internal/api/health"
	"nexus/internal/cache"
	"nexus/internal/domain/analysis"
	"nexus/internal/domain/memory"
	"nexus/internal/engine"
	"nexus/internal/metrics"
	repo "nexus/internal/repository/postgres"
	"nexus/internal/tools"
	"nexus/internal/workers"
	"nexus/pkg/errors"
	"nexus/pkg/logger"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	metrics.Init()

	// Postgres backs the analysis memory. Without it the engine still runs,
	// it just cannot recall or persist past decisions.
	var db *sqlx.DB
	if pgClient, err := postgres.NewClient(cfg.Postgres); err != nil {
		log.Warnf("PostgreSQL unavailable, running without analysis memory: %v", err)
	} else {
		db = pgClient.DB()
		defer pgClient.Close()
	}

	// Redis upgrades the cache tiers from in-process to cross-process.
	var redisCli *goredis.Client
	llmCache, dataCache := cache.Cache(cache.NewMemoryCache()), cache.Cache(cache.NewMemoryCache())
	if cfg.Redis.Enabled {
		client, err := redis.NewClient(cfg.Redis)
		if err != nil {
			log.Warnf("Redis unavailable, falling back to in-memory caches: %v", err)
		} else {
			redisCli = client.Client()
			llmCache = cache.NewRedisCache(client, "llm")
			dataCache = cache.NewRedisCache(client, "data")
			defer client.Close()
		}
	}

	// LLM boundary.
	chat := ai.NewOpenAIProvider(cfg.AI.OpenAIKey, cfg.AI.Timeout)
	invoker := ai.NewInvoker(chat, ai.InvokerConfig{
		Model:          cfg.AI.Model,
		DeepModel:      cfg.AI.DeepModel,
		MaxAttempts:    cfg.AI.MaxRetries,
		RequestsPerMin: cfg.AI.RequestsPerMin,
		LLMCacheTTL:    cfg.Cache.LLMTTL,
	}, llmCache)

	// Analysis memory over pgvector, if both Postgres and embeddings are up.
	var memSvc *memory.Service
	if db != nil {
		embedder, err := embeddings.NewOpenAIProvider(cfg.AI.OpenAIKey, cfg.AI.EmbeddingModel, cfg.AI.Timeout)
		if err != nil {
			log.Warnf("Embeddings unavailable, running without analysis memory: %v", err)
		} else {
			memSvc = memory.NewService(repo.NewMemoryRepository(db), embedder)
		}
	}

	// Market data: Yahoo for prices, Finnhub for everything else. A missing
	// Finnhub key leaves those analysts on placeholder reports.
	prices := marketdata.NewYahooClient(cfg.Data.YahooBaseURL, cfg.Data.Timeout)
	var fundamentals tools.FundamentalsProvider
	var news tools.NewsProvider
	var social tools.SocialProvider
	if cfg.Data.FinnhubKey != "" {
		finnhub := marketdata.NewFinnhubClient(cfg.Data.FinnhubBaseURL, cfg.Data.FinnhubKey, cfg.Data.Timeout)
		fundamentals, news, social = finnhub, finnhub, finnhub
	} else {
		log.Warn("FINNHUB_API_KEY not set: fundamentals, news and social data disabled")
	}

	toolkit := tools.NewToolkit(prices, fundamentals, news, social, dataCache, tools.ToolkitConfig{
		DataTTL: cfg.Cache.DataTTL,
	})

	// Decision pipeline.
	extractor := agents.NewSignalExtractor(invoker)
	var reader agents.MemoryReader
	if memSvc != nil {
		reader = memSvc
	}
	eng := engine.NewEngine(
		agents.NewAnalystTeam(invoker, toolkit),
		agents.NewResearchTeam(invoker, reader),
		agents.NewTrader(invoker, extractor),
		agents.NewRiskTeam(invoker, extractor),
		extractor,
	)

	defaults := analysis.RunConfig{
		MaxDebateRounds: cfg.Analysis.MaxDebateRounds,
		MaxRiskRounds:   cfg.Analysis.MaxRiskRounds,
		MemoryOn:        cfg.Analysis.MemoryOn,
		RiskOn:          cfg.Analysis.RiskOn,
		SocialOn:        cfg.Analysis.SocialOn,
		Horizon:         analysis.Horizon(cfg.Analysis.Horizon),
	}
	orchestrator := engine.NewOrchestrator(eng, memSvc, defaults)

	// Background outcome back-fill.
	scheduler := workers.NewScheduler()
	if memSvc != nil {
		scheduler.RegisterWorker(workers.NewOutcomeEvaluator(
			memSvc, prices, invoker,
			defaults.Horizon,
			cfg.Workers.OutcomeEvalInterval,
			cfg.Workers.OutcomeEvalEnabled,
		))
	}

	// HTTP surface.
	healthHandler := health.New(log, db, redisCli, cfg.App.Name, version)
	var historyHandler *api.HistoryHandler
	if memSvc != nil {
		historyHandler = api.NewHistoryHandler(memSvc)
	}
	server := api.NewServer(
		api.ServerConfig{Port: cfg.Server.Port, ServiceName: cfg.App.Name, Version: version},
		healthHandler,
		api.NewAnalyzeHandler(orchestrator),
		historyHandler,
		log,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := scheduler.Start(ctx); err != nil {
		log.Errorf("Failed to start workers: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	log.Info("System initialized successfully")

	waitForShutdown(ctx, cancel, serverErr, log)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if scheduler.IsRunning() {
		if err := scheduler.Stop(); err != nil {
			log.Warnf("Worker shutdown: %v", err)
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnf("Server shutdown: %v", err)
	}
	_ = errorTracker.Flush(shutdownCtx)

	log.Info("Shutdown complete")
}

// initErrorTracker initializes error tracking (Sentry or no-op)
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// waitForShutdown blocks until a termination signal arrives or the HTTP
// server fails.
func waitForShutdown(ctx context.Context, cancel context.CancelFunc, serverErr <-chan error, log *logger.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Infof("Received signal %s, shutting down...", sig)
	case err := <-serverErr:
		if err != nil {
			log.Errorf("HTTP server failed: %v", err)
		}
	case <-ctx.Done():
	}
	cancel()

	// Give in-flight log writes a moment before teardown begins.
	time.Sleep(100 * time.Millisecond)
}
