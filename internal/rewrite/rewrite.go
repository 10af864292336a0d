package rewrite

import (
	"context"
	"encoding/json"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/tareqlive/newsworker/internal/cache"
	"github.com/tareqlive/newsworker/internal/logger"
	"github.com/tareqlive/newsworker/internal/metrics"
	"github.com/tareqlive/newsworker/internal/news"
	"github.com/tareqlive/newsworker/internal/ratelimit"
	"github.com/tareqlive/newsworker/internal/retry"
	"github.com/tareqlive/newsworker/internal/rss"
)

const (
	DefaultMaxTokens   = 1024
	DefaultTemperature = 0.7
	fallbackSummaryLen = 150
)

// CompletionRequest is one chat-style request to a language model.
type CompletionRequest struct {
	Model       string
	System      string
	User        string
	MaxTokens   int
	Temperature float32
}

// Completer is implemented by every language-model backend.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Options tune a Rewriter. A nil Temperature means DefaultTemperature;
// a pointer to 0 asks for deterministic output.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature *float32
	Retry       retry.RetryConfig
	Cache       cache.Cache
	Budget      *ratelimit.Budget
}

// Rewriter turns feed items into publishable articles.
type Rewriter struct {
	completer   Completer
	opts        Options
	temperature float32
}

// New creates a Rewriter. A nil completer makes every rewrite a fallback.
func New(completer Completer, opts Options) *Rewriter {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	temperature := float32(DefaultTemperature)
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	if opts.Retry.MaxAttempts < 1 {
		opts.Retry.MaxAttempts = 1
	}
	if opts.Retry.Delay == 0 {
		opts.Retry.Delay = 2 * time.Second
	}
	return &Rewriter{completer: completer, opts: opts, temperature: temperature}
}

var errBudgetSpent = errors.New("completion budget spent")

// Rewrite never fails. It reports false when the article is the fallback
// built from the feed item itself.
func (r *Rewriter) Rewrite(ctx context.Context, item rss.Item) (news.Rewritten, bool) {
	key := cache.GenerateKey(item.Title, item.Link)
	if a, ok := r.cached(ctx, key); ok {
		metrics.Global.IncrementRewritesSucceeded()
		return a, true
	}

	a, err := r.complete(ctx, item)
	if err != nil {
		logger.Warn("Rewrite failed, using original item", "title", item.Title, "error", err)
		metrics.Global.IncrementRewritesFallback()
		return Fallback(item), false
	}

	r.store(ctx, key, a)
	metrics.Global.IncrementRewritesSucceeded()
	return a, true
}

func (r *Rewriter) complete(ctx context.Context, item rss.Item) (news.Rewritten, error) {
	if r.completer == nil {
		return news.Rewritten{}, errors.New("no language model configured")
	}
	if r.opts.Budget != nil && !r.opts.Budget.Allow() {
		return news.Rewritten{}, errBudgetSpent
	}

	req := CompletionRequest{
		Model:       r.opts.Model,
		System:      SystemPrompt(),
		User:        UserPrompt(item),
		MaxTokens:   r.opts.MaxTokens,
		Temperature: r.temperature,
	}

	var article news.Rewritten
	err := retry.WithRetry(ctx, r.opts.Retry, func() error {
		if r.opts.Budget != nil {
			if err := r.opts.Budget.Use(); err != nil {
				return err
			}
		}
		text, err := r.completer.Complete(ctx, req)
		if err != nil {
			return err
		}
		article, err = ParseCompletion(text)
		return err
	})
	return article, err
}

func (r *Rewriter) cached(ctx context.Context, key string) (news.Rewritten, bool) {
	if r.opts.Cache == nil {
		return news.Rewritten{}, false
	}
	data, ok := r.opts.Cache.Get(ctx, key)
	if !ok {
		return news.Rewritten{}, false
	}
	var a news.Rewritten
	if err := json.Unmarshal(data, &a); err != nil || a.Title == "" {
		return news.Rewritten{}, false
	}
	if r.opts.Budget != nil {
		r.opts.Budget.RecordCacheHit()
	}
	logger.Debug("Rewrite cache hit", "title", a.Title)
	return a, true
}

func (r *Rewriter) store(ctx context.Context, key string, a news.Rewritten) {
	if r.opts.Cache == nil {
		return
	}
	data, err := json.Marshal(a)
	if err != nil {
		return
	}
	r.opts.Cache.Set(ctx, key, data)
}

// Fallback builds an article straight from the feed item.
func Fallback(item rss.Item) news.Rewritten {
	return news.Rewritten{
		Title:       item.Title,
		Content:     item.Body(),
		Summary:     truncateRunes(item.Description, fallbackSummaryLen),
		Keywords:    []string{},
		Category:    news.DefaultCategory,
		ReadingTime: news.DefaultReadingTime,
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
