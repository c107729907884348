package nutribudget

import "time"

type ModelConfig struct {
	ModelID     string  `env:"MODEL_ID"`
	MaxTokens   int32   `env:"MAX_TOKENS,default=2048"`
	Temperature float32 `env:"TEMPERATURE,default=0.2"`
	TopP        float32 `env:"TOP_P,default=0.9"`
}

// CapabilityConfig selects and tunes the external research and generation providers.
// Provider is one of mock, ollama, bedrock, gemini or none.
type CapabilityConfig struct {
	Provider           string        `env:"PROVIDER,default=mock"`
	ResearchProvider   string        `env:"RESEARCH_PROVIDER"`
	BaseOllamaEndpoint string        `env:"BASE_OLLAMA_ENDPOINT,default=http://localhost:11434"`
	ResearchTimeout    time.Duration `env:"RESEARCH_TIMEOUT,default=20s"`
	GenerateTimeout    time.Duration `env:"GENERATE_TIMEOUT,default=30s"`
	RateLimitRPS       float64       `env:"RATE_LIMIT_RPS,default=2"`
	RateLimitBurst     int           `env:"RATE_LIMIT_BURST,default=4"`
	MaxRetries         int           `env:"GENERATE_MAX_RETRIES,default=2"`
}

// ResearchProviderName falls back to Provider when no dedicated research provider is set.
func (c CapabilityConfig) ResearchProviderName() string {
	if c.ResearchProvider != "" {
		return c.ResearchProvider
	}
	return c.Provider
}

type SessionConfig struct {
	IdleTTL         time.Duration `env:"SESSION_IDLE_TTL,default=2h"`
	Capacity        int           `env:"SESSION_CAPACITY,default=10000"`
	BudgetTolerance float64       `env:"BUDGET_TOLERANCE,default=0.05"`
}

// StorageConfig points at an optional catalog override and an optional plan archive.
// ArchiveBackend is one of none, file, sqlite, postgres or s3.
type StorageConfig struct {
	CatalogPath     string `env:"CATALOG_PATH"`
	CatalogS3Bucket string `env:"CATALOG_S3_BUCKET"`
	CatalogS3Key    string `env:"CATALOG_S3_KEY"`
	ArchiveBackend  string `env:"ARCHIVE_BACKEND,default=none"`
	ArchivePath     string `env:"ARCHIVE_PATH,default=archive"`
	ArchiveDSN      string `env:"ARCHIVE_DSN"`
	ArchiveS3Bucket string `env:"ARCHIVE_S3_BUCKET"`
	ArchiveS3Prefix string `env:"ARCHIVE_S3_PREFIX,default=plans/"`
}

type NotifyConfig struct {
	SlackWebhookURL string `env:"SLACK_WEBHOOK_URL"`
	SlackChannel    string `env:"SLACK_CHANNEL,default=#meal-plans"`
}

type ServerConfig struct {
	Addr      string `env:"HTTP_ADDR,default=:8080"`
	SentryDSN string `env:"SENTRY_DSN"`
	SentryEnv string `env:"SENTRY_ENVIRONMENT,default=development"`
}

// TelegramConfig configures the long-polling bot. AllowedUsers is a comma-separated list
// of Telegram user ids; empty allows everyone.
type TelegramConfig struct {
	Token        string `env:"TELEGRAM_BOT_TOKEN"`
	AllowedUsers string `env:"TELEGRAM_ALLOWED_USERS"`
	PollTimeout  int    `env:"TELEGRAM_POLL_TIMEOUT,default=30"`
}
