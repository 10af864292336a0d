package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Entry records one article written to the article store.
type Entry struct {
	Key         string    `json:"key"`
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Slug        string    `json:"slug"`
	Category    string    `json:"category"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
}

// Ledger remembers published items across runs.
type Ledger interface {
	IsPublished(ctx context.Context, key string) bool
	IsLinkPublished(ctx context.Context, link string) bool
	MarkPublished(ctx context.Context, e Entry) error
	Save() error
	Close() error
}

// Key creates a stable hash for a feed item: normalized title plus the
// link's host, so the same story re-published under a new path still
// matches.
func Key(title, link string) string {
	t := norm.NFKC.String(title)
	t = strings.ToLower(strings.Join(strings.Fields(t), " "))

	h := sha256.New()
	h.Write([]byte(t + "|" + extractDomain(link)))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// extractDomain extracts the lower-cased host without a "www." prefix.
func extractDomain(link string) string {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// Nop is used when cross-run dedup is disabled.
type Nop struct{}

func (Nop) IsPublished(context.Context, string) bool     { return false }
func (Nop) IsLinkPublished(context.Context, string) bool { return false }
func (Nop) MarkPublished(context.Context, Entry) error   { return nil }
func (Nop) Save() error                                  { return nil }
func (Nop) Close() error                                 { return nil }

var _ Ledger = Nop{}
