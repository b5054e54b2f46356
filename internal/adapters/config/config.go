package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"nexus/pkg/errors"
)

type Config struct {
	App           AppConfig
	Server        ServerConfig
	Postgres      PostgresConfig
	Redis         RedisConfig
	AI            AIConfig
	Cache         CacheConfig
	Analysis      AnalysisConfig
	Data          DataConfig
	Workers       WorkersConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"nexus"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

type ServerConfig struct {
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:"nexus"`
	Password string `envconfig:"POSTGRES_PASSWORD"`
	Database string `envconfig:"POSTGRES_DB" default:"nexus"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"25"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool   `envconfig:"REDIS_ENABLED" default:"false"`
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type AIConfig struct {
	OpenAIKey      string        `envconfig:"OPENAI_API_KEY"`
	Model          string        `envconfig:"AI_MODEL" default:"gpt-4o-mini"`
	DeepModel      string        `envconfig:"AI_DEEP_MODEL" default:"gpt-4o"`
	EmbeddingModel string        `envconfig:"AI_EMBEDDING_MODEL" default:"text-embedding-3-small"`
	Timeout        time.Duration `envconfig:"AI_TIMEOUT" default:"90s"`
	MaxRetries     int           `envconfig:"AI_MAX_RETRIES" default:"3"`
	RequestsPerMin float64       `envconfig:"AI_REQUESTS_PER_MINUTE" default:"60"`
}

type CacheConfig struct {
	DataTTL time.Duration `envconfig:"CACHE_DATA_TTL" default:"1h"`
	LLMTTL  time.Duration `envconfig:"CACHE_LLM_TTL" default:"24h"`
}

// AnalysisConfig holds run-level defaults. Each field can be overridden per
// request; these are the values a run starts from.
type AnalysisConfig struct {
	MaxDebateRounds int    `envconfig:"ANALYSIS_MAX_DEBATE_ROUNDS" default:"2"`
	MaxRiskRounds   int    `envconfig:"ANALYSIS_MAX_RISK_ROUNDS" default:"1"`
	MemoryOn        bool   `envconfig:"ANALYSIS_MEMORY_ON" default:"true"`
	RiskOn          bool   `envconfig:"ANALYSIS_RISK_ON" default:"true"`
	SocialOn        bool   `envconfig:"ANALYSIS_SOCIAL_ON" default:"false"`
	Horizon         string `envconfig:"ANALYSIS_HORIZON" default:"medium"`
}

// DataConfig configures the market data providers. Prices come from the
// Yahoo chart API without a key; fundamentals, news and social sentiment
// need a Finnhub key and degrade to empty data without one.
type DataConfig struct {
	FinnhubKey     string        `envconfig:"FINNHUB_API_KEY"`
	FinnhubBaseURL string        `envconfig:"FINNHUB_BASE_URL"`
	YahooBaseURL   string        `envconfig:"YAHOO_BASE_URL"`
	Timeout        time.Duration `envconfig:"DATA_TIMEOUT" default:"15s"`
}

type WorkersConfig struct {
	OutcomeEvalEnabled  bool          `envconfig:"WORKER_OUTCOME_EVAL_ENABLED" default:"true"`
	OutcomeEvalInterval time.Duration `envconfig:"WORKER_OUTCOME_EVAL_INTERVAL" default:"12h"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"false"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}
