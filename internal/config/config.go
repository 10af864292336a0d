package config

import (
	"cmp"
	"errors"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "1.0.0"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type Config struct {
	// Server and scheduling
	Port             string        `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	Once             bool          `long:"once" description:"Run the pipeline once and exit"`
	ScheduleInterval time.Duration `long:"schedule-interval" env:"SCHEDULE_INTERVAL" default:"1h" description:"Time between scheduled runs"`
	RunSecret        string        `long:"run-secret" env:"RUN_SECRET" description:"Bearer secret for POST /run (empty disables manual runs)"`
	RunHistory       int           `long:"run-history" env:"RUN_HISTORY" default:"50" description:"Number of finished runs kept for /runs/:id"`

	// Feeds
	FeedsPath    string        `long:"feeds" env:"FEEDS_PATH" default:"configs/feeds.yaml" description:"YAML file listing feed sources"`
	UserAgent    string        `long:"user-agent" env:"USER_AGENT" default:"TareqNewsBot/1.0" description:"User-Agent for feed and page requests"`
	FetchTimeout time.Duration `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"0s" description:"Per-request fetch timeout (0 = none)"`
	BatchSize    int           `long:"batch-size" env:"BATCH_SIZE" default:"8" description:"Items rewritten and stored per run"`
	ItemTimeout  time.Duration `long:"item-timeout" env:"ITEM_TIMEOUT" default:"0s" description:"Time limit for one item (0 = none)"`

	// Language model
	LLMProvider   string        `long:"llm-provider" env:"LLM_PROVIDER" default:"groq" choice:"groq" choice:"gemini" choice:"none" description:"Completion backend"`
	GroqAPIKey    string        `long:"groq-api-key" env:"GROQ_API_KEY" description:"Groq API key"`
	GroqBaseURL   string        `long:"groq-base-url" env:"GROQ_BASE_URL" default:"https://api.groq.com/openai/v1" description:"OpenAI-compatible base URL"`
	GroqModel     string        `long:"groq-model" env:"GROQ_MODEL" default:"mixtral-8x7b-32768" description:"Groq model"`
	GeminiAPIKey  string        `long:"gemini-api-key" env:"GEMINI_API_KEY" description:"Gemini API key"`
	GeminiModel   string        `long:"gemini-model" env:"GEMINI_MODEL" default:"gemini-1.5-flash" description:"Gemini model"`
	MaxTokens     int           `long:"max-tokens" env:"MAX_TOKENS" default:"1024" description:"Completion token limit"`
	Temperature   float64       `long:"temperature" env:"TEMPERATURE" default:"0.7" description:"Sampling temperature"`
	RetryAttempts int           `long:"retry-attempts" env:"RETRY_ATTEMPTS" default:"1" description:"Completion attempts per item"`
	RetryDelay    time.Duration `long:"retry-delay" env:"RETRY_DELAY" default:"5s" description:"Delay between completion attempts"`
	DailyLimit    int           `long:"daily-limit" env:"MAX_DAILY_REQUESTS" default:"0" description:"Completion requests per day (0 = unlimited)"`

	// Rewrite cache
	CacheBackend string        `long:"cache" env:"CACHE_BACKEND" default:"memory" choice:"memory" choice:"redis" choice:"postgres" choice:"none" description:"Rewrite cache backend"`
	CacheTTL     time.Duration `long:"cache-ttl" env:"CACHE_TTL" default:"24h" description:"Rewrite cache lifetime"`
	RedisURL     string        `long:"redis-url" env:"REDIS_URL" description:"Redis URL for the redis cache backend"`

	// Publication ledger
	LedgerBackend string        `long:"ledger" env:"LEDGER_BACKEND" default:"file" choice:"file" choice:"postgres" choice:"none" description:"Published-article ledger backend"`
	LedgerPath    string        `long:"ledger-path" env:"LEDGER_PATH" default:"published_articles.json" description:"Ledger file for the file backend"`
	LedgerTTL     time.Duration `long:"ledger-ttl" env:"LEDGER_TTL" default:"720h" description:"How long published items are remembered (0 = forever)"`
	DatabaseURL   string        `long:"database-url" env:"DATABASE_URL" description:"PostgreSQL connection string"`

	// Firestore
	FirebaseProjectID    string `long:"firebase-project" env:"FIREBASE_PROJECT_ID" description:"Firebase project id"`
	FirebaseClientEmail  string `long:"firebase-client-email" env:"FIREBASE_CLIENT_EMAIL" description:"Service account email"`
	FirebasePrivateKey   string `long:"firebase-private-key" env:"FIREBASE_PRIVATE_KEY" description:"Service account private key (PEM)"`
	FirestoreAccessToken string `long:"firestore-token" env:"FIRESTORE_ACCESS_TOKEN" description:"Static bearer token, overrides the service account"`
	FirestoreBaseURL     string `long:"firestore-url" env:"FIRESTORE_BASE_URL" default:"https://firestore.googleapis.com" description:"Firestore REST base URL"`

	// Optional extras
	Scrape         bool   `long:"scrape" env:"SCRAPE" description:"Fetch article pages for items with short feed text"`
	ScrapeMinChars int    `long:"scrape-min-chars" env:"SCRAPE_MIN_CHARS" default:"400" description:"Scrape when feed text is shorter than this"`
	TelegramToken  string `long:"telegram-token" env:"TELEGRAM_TOKEN" description:"Telegram bot token for run digests"`
	TelegramChatID string `long:"telegram-chat" env:"TELEGRAM_CHAT_ID" description:"Telegram chat or channel id"`
	SiteURL        string `long:"site-url" env:"SITE_URL" default:"https://ar.tareq.live" description:"Public site URL used in digests"`

	Debug bool `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Load parses args on top of environment variables and defaults. It returns
// nil, nil when help was requested.
func Load(args []string) (*Config, error) {
	var cfg Config

	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.BatchSize < 1 {
		return fmt.Errorf("BATCH_SIZE must be at least 1")
	}
	if c.ScheduleInterval <= 0 {
		return fmt.Errorf("SCHEDULE_INTERVAL must be positive")
	}
	if c.FirebaseProjectID == "" {
		return fmt.Errorf("FIREBASE_PROJECT_ID is required")
	}
	if c.FirestoreAccessToken == "" && (c.FirebaseClientEmail == "" || c.FirebasePrivateKey == "") {
		return fmt.Errorf("FIREBASE_CLIENT_EMAIL and FIREBASE_PRIVATE_KEY (or FIRESTORE_ACCESS_TOKEN) are required")
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("TEMPERATURE must be between 0 and 2")
	}

	switch c.LLMProvider {
	case "groq":
		if c.GroqAPIKey == "" {
			return fmt.Errorf("GROQ_API_KEY is required for the groq provider")
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
		}
	}

	if c.CacheBackend == "redis" && c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required for the redis cache")
	}
	if (c.CacheBackend == "postgres" || c.LedgerBackend == "postgres") && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for postgres backends")
	}
	if c.LedgerBackend == "file" && c.LedgerPath == "" {
		return fmt.Errorf("LEDGER_PATH is required for the file ledger")
	}
	if (c.TelegramToken == "") != (c.TelegramChatID == "") {
		return fmt.Errorf("TELEGRAM_TOKEN and TELEGRAM_CHAT_ID must be set together")
	}
	return nil
}

// TelegramEnabled reports whether run digests should be sent.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != ""
}
