package rss

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/tareqlive/newsworker/internal/logger"
	"github.com/tareqlive/newsworker/internal/metrics"
)

// Parser turns raw feed bytes into Items.
type Parser struct {
	feed *gofeed.Parser
	now  func() time.Time
}

func NewParser() *Parser {
	return &Parser{
		feed: gofeed.NewParser(),
		now:  time.Now,
	}
}

// imageLookup finds an image for a feed item. rawBody is the item content
// (or description) before markup is stripped.
type imageLookup func(item *gofeed.Item, rawBody string) string

// imageLookups is consulted in order; the first non-empty URL wins.
var imageLookups = []imageLookup{
	mediaContentImage,
	enclosureImage,
	inlineImage,
}

// Parse parses a whole feed document. A document that cannot be parsed at
// all is an error; individual broken items are logged and skipped.
func (p *Parser) Parse(data []byte) ([]Item, error) {
	feed, err := p.feed.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	items := make([]Item, 0, len(feed.Items))
	for i, fi := range feed.Items {
		item, err := p.convert(fi)
		if errors.Is(err, errIncomplete) {
			continue
		}
		if err != nil {
			logger.Warn("Skipping feed item", "index", i, "error", err)
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// ParseAll parses each downloaded document. A document that cannot be
// parsed fails only its own source.
func (p *Parser) ParseAll(docs []Document) []Batch {
	batches := make([]Batch, 0, len(docs))
	for _, doc := range docs {
		items, err := p.Parse(doc.Body)
		if err != nil {
			metrics.Global.IncrementFeedsFailed()
			logger.Error("Failed to parse feed", "source", doc.Source.Name, "error", err)
			continue
		}

		metrics.Global.IncrementFeedsFetched()
		metrics.Global.AddItemsFetched(len(items))
		logger.Info("Loaded feed", "source", doc.Source.Name, "items", len(items))
		batches = append(batches, Batch{Source: doc.Source, Items: items})
	}
	return batches
}

var errIncomplete = errors.New("item has no title or link")

func (p *Parser) convert(fi *gofeed.Item) (Item, error) {
	if fi == nil {
		return Item{}, errors.New("nil item")
	}

	title := CleanHTML(fi.Title)
	link := strings.TrimSpace(fi.Link)
	if title == "" || link == "" {
		return Item{}, errIncomplete
	}
	if _, err := url.Parse(link); err != nil {
		return Item{}, fmt.Errorf("invalid link %q: %w", link, err)
	}

	rawBody := fi.Content
	if strings.TrimSpace(rawBody) == "" {
		rawBody = fi.Description
	}

	published, raw := p.publishedAt(fi)

	item := Item{
		Title:        title,
		Description:  CleanHTML(fi.Description),
		Link:         link,
		Published:    published,
		PublishedRaw: raw,
		Content:      CleanHTML(rawBody),
	}

	for _, lookup := range imageLookups {
		if u := lookup(fi, rawBody); u != "" {
			item.ImageURL = u
			break
		}
	}

	return item, nil
}

// publishedAt mirrors how the site treats dates: a missing date means "now",
// a present but unreadable one becomes the zero time so it sorts last.
func (p *Parser) publishedAt(fi *gofeed.Item) (time.Time, string) {
	switch {
	case fi.PublishedParsed != nil:
		return *fi.PublishedParsed, fi.Published
	case fi.Published != "":
		return time.Time{}, fi.Published
	case fi.UpdatedParsed != nil:
		return *fi.UpdatedParsed, fi.Updated
	case fi.Updated != "":
		return time.Time{}, fi.Updated
	default:
		now := p.now().UTC()
		return now, now.Format(time.RFC3339)
	}
}

func mediaContentImage(item *gofeed.Item, _ string) string {
	media, ok := item.Extensions["media"]
	if !ok {
		return ""
	}
	for _, c := range media["content"] {
		if u := strings.TrimSpace(c.Attrs["url"]); u != "" {
			return u
		}
	}
	for _, g := range media["group"] {
		for _, c := range g.Children["content"] {
			if u := strings.TrimSpace(c.Attrs["url"]); u != "" {
				return u
			}
		}
	}
	return ""
}

func enclosureImage(item *gofeed.Item, _ string) string {
	for _, enc := range item.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(enc.Type), "image") {
			return strings.TrimSpace(enc.URL)
		}
	}
	return ""
}

func inlineImage(_ *gofeed.Item, rawBody string) string {
	if !strings.Contains(strings.ToLower(rawBody), "<img") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawBody))
	if err != nil {
		logger.Debug("Could not parse item body for images", "error", err)
		return ""
	}
	src, _ := doc.Find("img[src]").First().Attr("src")
	return strings.TrimSpace(src)
}
