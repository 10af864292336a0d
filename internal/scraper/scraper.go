package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/tareqlive/newsworker/internal/logger"
	"github.com/tareqlive/newsworker/internal/rss"
)

const maxContentRunes = 6000

// Scraper fetches article pages for items whose feed text is too short.
type Scraper struct {
	client    *http.Client
	userAgent string
	minRunes  int
}

func New(client *http.Client, userAgent string, minRunes int) *Scraper {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if userAgent == "" {
		userAgent = rss.DefaultUserAgent
	}
	return &Scraper{client: client, userAgent: userAgent, minRunes: minRunes}
}

// Enrich replaces the item's content with the scraped article when the
// feed text is shorter than the threshold. Failures keep the item as is.
func (s *Scraper) Enrich(ctx context.Context, item rss.Item) rss.Item {
	if utf8.RuneCountInString(item.Body()) >= s.minRunes {
		return item
	}

	content, err := s.Extract(ctx, item.Link)
	if err != nil {
		logger.Debug("Can't get full article", "url", item.Link, "error", err)
		return item
	}
	if utf8.RuneCountInString(content) <= utf8.RuneCountInString(item.Body()) {
		return item
	}

	logger.Debug("Got full article", "url", item.Link, "chars", utf8.RuneCountInString(content))
	item.Content = content
	return item
}

// Extract gets the full text of the article at url.
func (s *Scraper) Extract(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("error loading page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error parsing HTML: %w", err)
	}

	content := cleanContent(extractContent(doc, url))
	if content == "" {
		return "", fmt.Errorf("can't get content")
	}

	return content, nil
}

// siteSelectors lists article-body selectors for known sources, tried
// before the generic ones.
var siteSelectors = []struct {
	host      string
	selectors []string
}{
	{"aljazeera.net", []string{".wysiwyg p", "#main-content-area p"}},
	{"bbc.com", []string{"main [data-component=text-block] p", "main p"}},
	{"skynewsarabia.com", []string{".article-body p", ".sna_content_body p"}},
	{"france24.com", []string{".t-content__body p", "article p"}},
}

var genericSelectors = []string{
	"article p",
	".article p",
	".article-body p",
	".content p",
	".post-content p",
	".entry-content p",
	"main p",
	"#content p",
	"p",
}

func extractContent(doc *goquery.Document, url string) string {
	selectors := genericSelectors
	for _, site := range siteSelectors {
		if strings.Contains(url, site.host) {
			selectors = append(append([]string{}, site.selectors...), genericSelectors...)
			break
		}
	}

	// The first selector yielding three paragraphs wins; otherwise the
	// selector with the most.
	var best []string
	for _, selector := range selectors {
		var paragraphs []string
		doc.Find(selector).Each(func(i int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if utf8.RuneCountInString(text) > 20 {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) > len(best) {
			best = paragraphs
		}
		if len(best) >= 3 {
			break
		}
	}

	return strings.Join(best, "\n\n")
}

// junkPrefixes mark paragraphs that are navigation or promotion, not story.
var junkPrefixes = []string{
	"اقرأ أيضا",
	"اقرأ أيضاً",
	"شاهد أيضا",
	"تابعونا",
	"Read more",
	"Follow us",
}

func cleanContent(content string) string {
	var kept []string
	for _, p := range strings.Split(content, "\n\n") {
		p = strings.Join(strings.Fields(p), " ")
		if p == "" || isJunk(p) {
			continue
		}
		kept = append(kept, p)
	}

	var b strings.Builder
	for _, p := range kept {
		if utf8.RuneCountInString(b.String())+utf8.RuneCountInString(p) > maxContentRunes && b.Len() > 0 {
			break
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(p)
	}
	return b.String()
}

func isJunk(p string) bool {
	for _, prefix := range junkPrefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}
