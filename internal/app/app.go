package app

import (
	"context"
	"fmt"
	"io"

	"github.com/tareqlive/newsworker/internal/cache"
	"github.com/tareqlive/newsworker/internal/config"
	"github.com/tareqlive/newsworker/internal/firestore"
	"github.com/tareqlive/newsworker/internal/gemini"
	"github.com/tareqlive/newsworker/internal/groq"
	"github.com/tareqlive/newsworker/internal/logger"
	"github.com/tareqlive/newsworker/internal/ratelimit"
	"github.com/tareqlive/newsworker/internal/retry"
	"github.com/tareqlive/newsworker/internal/rewrite"
	"github.com/tareqlive/newsworker/internal/rss"
	"github.com/tareqlive/newsworker/internal/scraper"
	"github.com/tareqlive/newsworker/internal/storage"
	"github.com/tareqlive/newsworker/internal/telegram"
)

// App holds the wired worker.
type App struct {
	Pipeline  *Pipeline
	Runs      *Runs
	Scheduler *Scheduler
	Budget    *ratelimit.Budget

	closers []func() error
}

// New builds every component named by cfg.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close()
		}
	}()

	sources, err := rss.LoadSources(cfg.FeedsPath)
	if err != nil {
		return nil, fmt.Errorf("load feeds: %w", err)
	}
	logger.Info("Loaded feed sources", "total", len(sources), "enabled", len(rss.Enabled(sources)))

	var pg *storage.PostgresLedger
	if cfg.LedgerBackend == "postgres" || cfg.CacheBackend == "postgres" {
		pg, err = storage.NewPostgresLedger(ctx, cfg.DatabaseURL, cfg.LedgerTTL)
		if err != nil {
			return nil, err
		}
		pg.SetCacheTTL(cfg.CacheTTL)
		a.closers = append(a.closers, pg.Close)
	}

	ledger, err := newLedger(cfg, pg)
	if err != nil {
		return nil, err
	}

	rewriteCache, err := a.newCache(ctx, cfg, pg)
	if err != nil {
		return nil, err
	}

	completer, err := a.newCompleter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a.Budget = ratelimit.NewBudget(cfg.DailyLimit)
	temperature := float32(cfg.Temperature)
	rewriter := rewrite.New(completer, rewrite.Options{
		MaxTokens:   cfg.MaxTokens,
		Temperature: &temperature,
		Retry: retry.RetryConfig{
			MaxAttempts: cfg.RetryAttempts,
			Delay:       cfg.RetryDelay,
			Backoff:     true,
		},
		Cache:  rewriteCache,
		Budget: a.Budget,
	})

	httpClient, err := firestore.NewHTTPClient(ctx, firestore.Credentials{
		AccessToken: cfg.FirestoreAccessToken,
		ClientEmail: cfg.FirebaseClientEmail,
		PrivateKey:  cfg.FirebasePrivateKey,
	})
	if err != nil {
		return nil, err
	}
	store, err := firestore.NewWriter(httpClient, firestore.Config{
		BaseURL:   cfg.FirestoreBaseURL,
		ProjectID: cfg.FirebaseProjectID,
	})
	if err != nil {
		return nil, err
	}

	fetcher := rss.NewFetcher(nil, cfg.UserAgent, cfg.FetchTimeout)
	deps := Deps{
		Sources:    sources,
		Downloader: fetcher,
		Parser:     rss.NewParser(),
		Rewriter:   rewriter,
		Store:      store,
		Ledger:     ledger,
	}
	if cfg.Scrape {
		deps.Enricher = scraper.New(nil, cfg.UserAgent, cfg.ScrapeMinChars)
	}
	if cfg.TelegramEnabled() {
		deps.Notifier = telegram.NewSender(cfg.TelegramToken, cfg.TelegramChatID)
	}

	a.Pipeline = NewPipeline(deps, Options{
		BatchSize:   cfg.BatchSize,
		ItemTimeout: cfg.ItemTimeout,
		SiteURL:     cfg.SiteURL,
	})
	a.Runs = NewRuns(a.Pipeline, cfg.RunHistory)
	a.Scheduler = NewScheduler(a.Runs, cfg.ScheduleInterval)

	ok = true
	return a, nil
}

func newLedger(cfg *config.Config, pg *storage.PostgresLedger) (storage.Ledger, error) {
	switch cfg.LedgerBackend {
	case "postgres":
		return pg, nil
	case "none":
		return storage.Nop{}, nil
	default:
		fl := storage.NewFileLedger(cfg.LedgerPath, cfg.LedgerTTL)
		if err := fl.Load(); err != nil {
			return nil, err
		}
		return fl, nil
	}
}

func (a *App) newCache(ctx context.Context, cfg *config.Config, pg *storage.PostgresLedger) (cache.Cache, error) {
	switch cfg.CacheBackend {
	case "redis":
		rc, err := cache.NewRedis(ctx, cache.RedisConfig{URL: cfg.RedisURL}, cfg.CacheTTL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rc.Close)
		return rc, nil
	case "postgres":
		return pg, nil
	case "none":
		return nil, nil
	default:
		mc := cache.NewMemory(cfg.CacheTTL)
		a.closers = append(a.closers, func() error { mc.Stop(); return nil })
		return mc, nil
	}
}

func (a *App) newCompleter(ctx context.Context, cfg *config.Config) (rewrite.Completer, error) {
	switch cfg.LLMProvider {
	case "gemini":
		gc, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { gc.Close(); return nil })
		return gc, nil
	case "none":
		logger.Warn("No language model configured, articles are stored unrewritten")
		return nil, nil
	default:
		return groq.NewClient(cfg.GroqAPIKey, cfg.GroqBaseURL, cfg.GroqModel), nil
	}
}

// Close releases connections in reverse order of creation.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

var _ io.Closer = (*App)(nil)
