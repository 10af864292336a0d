package app

import (
	"context"
	"fmt"
	"time"

	"github.com/tareqlive/newsworker/internal/logger"
	"github.com/tareqlive/newsworker/internal/metrics"
	"github.com/tareqlive/newsworker/internal/news"
	"github.com/tareqlive/newsworker/internal/rss"
	"github.com/tareqlive/newsworker/internal/storage"
	"github.com/tareqlive/newsworker/internal/telegram"
)

const DefaultBatchSize = 8

// State is the stage a run is in.
type State string

const (
	StateIdle                   State = "idle"
	StateFetching               State = "fetching"
	StateParsing                State = "parsing"
	StateAggregating            State = "aggregating"
	StateRewritingAndPersisting State = "rewriting_and_persisting"
)

// Downloader fetches raw feed documents.
type Downloader interface {
	DownloadAll(ctx context.Context, sources []rss.Source) []rss.Document
}

// FeedParser turns documents into per-source item batches.
type FeedParser interface {
	ParseAll(docs []rss.Document) []rss.Batch
}

// Rewriter never fails; false means the article is a fallback.
type Rewriter interface {
	Rewrite(ctx context.Context, item rss.Item) (news.Rewritten, bool)
}

// ArticleStore persists one article and returns its document name.
type ArticleStore interface {
	Create(ctx context.Context, a news.Persisted) (string, error)
}

// Enricher may replace an item's content before it is rewritten.
type Enricher interface {
	Enrich(ctx context.Context, item rss.Item) rss.Item
}

// Notifier receives the digest of a run's articles.
type Notifier interface {
	SendMessage(ctx context.Context, text string) error
}

// Deps are the pipeline's collaborators. Ledger, Enricher and Notifier are
// optional.
type Deps struct {
	Sources    []rss.Source
	Downloader Downloader
	Parser     FeedParser
	Rewriter   Rewriter
	Store      ArticleStore
	Ledger     storage.Ledger
	Enricher   Enricher
	Notifier   Notifier
}

type Options struct {
	BatchSize   int
	ItemTimeout time.Duration
	SiteURL     string
}

// Report summarizes one run.
type Report struct {
	Fetched          int      `json:"fetched"`
	Unique           int      `json:"unique"`
	AlreadyPublished int      `json:"already_published"`
	Processed        int      `json:"processed"`
	Fallbacks        int      `json:"fallbacks"`
	Failed           int      `json:"failed"`
	Slugs            []string `json:"slugs,omitempty"`
}

// pruner is implemented by ledgers that can delete expired entries.
type pruner interface {
	Cleanup(ctx context.Context) error
}

// Pipeline runs fetch, parse, aggregate, rewrite and persist in order.
type Pipeline struct {
	deps Deps
	opts Options
	now  func() time.Time
}

func NewPipeline(deps Deps, opts Options) *Pipeline {
	if opts.BatchSize < 1 {
		opts.BatchSize = DefaultBatchSize
	}
	if deps.Ledger == nil {
		deps.Ledger = storage.Nop{}
	}
	return &Pipeline{deps: deps, opts: opts, now: time.Now}
}

// Run executes one pass. Per-source and per-item failures are logged and
// counted; only a cancelled context or a ledger write failure is returned.
// onState, if non-nil, is told about every stage change.
func (p *Pipeline) Run(ctx context.Context, onState func(State)) (Report, error) {
	start := p.now()
	metrics.Global.IncrementRunsStarted()
	setState := func(s State) {
		if onState != nil {
			onState(s)
		}
	}
	defer setState(StateIdle)

	var report Report

	setState(StateFetching)
	docs := p.deps.Downloader.DownloadAll(ctx, p.deps.Sources)
	if err := ctx.Err(); err != nil {
		return report, p.fail(fmt.Errorf("fetch stage: %w", err))
	}

	setState(StateParsing)
	batches := p.deps.Parser.ParseAll(docs)
	for _, b := range batches {
		report.Fetched += len(b.Items)
	}

	setState(StateAggregating)
	items := news.Aggregate(batches)
	report.Unique = len(items)
	items = p.unpublished(ctx, items, &report)
	if len(items) > p.opts.BatchSize {
		items = items[:p.opts.BatchSize]
	}
	logger.Info("Selected items for processing", "fetched", report.Fetched, "unique", report.Unique,
		"already_published", report.AlreadyPublished, "selected", len(items))

	setState(StateRewritingAndPersisting)
	var persisted []news.Persisted
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			p.finish(ctx, persisted)
			return report, p.fail(fmt.Errorf("processing stage: %w", err))
		}

		article, fallback, err := p.processItem(ctx, item)
		if fallback {
			report.Fallbacks++
		}
		if err != nil {
			report.Failed++
			metrics.Global.IncrementPersistFailures()
			logger.Error("Failed to persist article", "title", item.Title, "source", item.SourceName, "error", err)
			continue
		}

		report.Processed++
		report.Slugs = append(report.Slugs, article.Slug)
		persisted = append(persisted, article)
		metrics.Global.IncrementArticlesPersisted()

		if err := p.deps.Ledger.MarkPublished(ctx, storage.Entry{
			Key:      storage.Key(item.Title, item.Link),
			Title:    item.Title,
			Link:     item.Link,
			Slug:     article.Slug,
			Category: article.Category,
			Source:   item.SourceName,
		}); err != nil {
			logger.Warn("Failed to record published article", "title", item.Title, "error", err)
		}
	}

	if err := p.finish(ctx, persisted); err != nil {
		return report, p.fail(err)
	}

	metrics.Global.RecordProcessingTime(p.now().Sub(start))
	metrics.Global.SetLastRun()
	logger.Info("Run finished", "processed", report.Processed, "failed", report.Failed,
		"fallbacks", report.Fallbacks, "duration", p.now().Sub(start).String())
	return report, nil
}

// unpublished drops items the ledger already knows about.
func (p *Pipeline) unpublished(ctx context.Context, items []rss.Item, report *Report) []rss.Item {
	out := items[:0:0]
	for _, it := range items {
		if p.deps.Ledger.IsPublished(ctx, storage.Key(it.Title, it.Link)) || p.deps.Ledger.IsLinkPublished(ctx, it.Link) {
			report.AlreadyPublished++
			metrics.Global.IncrementAlreadyPublished()
			logger.Debug("Already published", "title", it.Title)
			continue
		}
		out = append(out, it)
	}
	return out
}

func (p *Pipeline) processItem(ctx context.Context, item rss.Item) (news.Persisted, bool, error) {
	if p.opts.ItemTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.ItemTimeout)
		defer cancel()
	}

	if p.deps.Enricher != nil {
		item = p.deps.Enricher.Enrich(ctx, item)
	}

	rewritten, ok := p.deps.Rewriter.Rewrite(ctx, item)
	article := news.NewPersisted(rewritten, news.OriginFor(item.Link, item.ImageURL), p.now())

	name, err := p.deps.Store.Create(ctx, article)
	if err != nil {
		return article, !ok, err
	}
	logger.Info("Article published", "slug", article.Slug, "document", name, "rewritten", ok)
	return article, !ok, nil
}

// finish saves and prunes the ledger, then sends the digest.
func (p *Pipeline) finish(ctx context.Context, persisted []news.Persisted) error {
	if err := p.deps.Ledger.Save(); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}

	if pr, ok := p.deps.Ledger.(pruner); ok && ctx.Err() == nil {
		if err := pr.Cleanup(ctx); err != nil {
			logger.Warn("Failed to prune ledger", "error", err)
		}
	}

	if p.deps.Notifier != nil && len(persisted) > 0 && ctx.Err() == nil {
		msg := telegram.FormatDigest(persisted, p.opts.SiteURL)
		if err := p.deps.Notifier.SendMessage(ctx, msg); err != nil {
			logger.Warn("Failed to send digest", "error", err)
		}
	}
	return nil
}

func (p *Pipeline) fail(err error) error {
	metrics.Global.SetError(err.Error())
	logger.Error("Run failed", "error", err)
	return err
}
