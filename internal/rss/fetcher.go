package rss

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tareqlive/newsworker/internal/logger"
	"github.com/tareqlive/newsworker/internal/metrics"
)

const (
	DefaultUserAgent = "TareqNewsBot/1.0"

	maxFeedBytes = 10 << 20
)

// Batch is the parsed output of one source.
type Batch struct {
	Source Source
	Items  []Item
}

// Fetcher downloads feeds one source at a time.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// NewFetcher builds a fetcher. A nil client gets an http.Client with the
// given timeout; zero means no client-side timeout.
func NewFetcher(client *http.Client, userAgent string, timeout time.Duration) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Fetcher{
		client:    client,
		userAgent: userAgent,
	}
}

// Document is the raw body of one source's feed.
type Document struct {
	Source Source
	Body   []byte
}

// Download fetches one feed body.
func (f *Fetcher) Download(ctx context.Context, src Source) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", src.Name, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", src.Name, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logger.Warn("Failed to close feed body", "source", src.Name, "error", closeErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", src.Name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src.Name, err)
	}
	return body, nil
}

// DownloadAll walks the enabled sources in order. Failing sources are
// logged and left out of the result; the remaining sources still run.
func (f *Fetcher) DownloadAll(ctx context.Context, sources []Source) []Document {
	enabled := Enabled(sources)
	docs := make([]Document, 0, len(enabled))

	for _, src := range enabled {
		if ctx.Err() != nil {
			logger.Warn("Fetch stage interrupted", "error", ctx.Err())
			break
		}

		body, err := f.Download(ctx, src)
		if err != nil {
			metrics.Global.IncrementFeedsFailed()
			logger.Error("Failed to fetch feed", "source", src.Name, "url", src.URL, "error", err)
			continue
		}
		docs = append(docs, Document{Source: src, Body: body})
	}

	logger.Info("Downloaded RSS feeds", "ok", len(docs), "total", len(enabled))
	return docs
}
