package rss

import (
	"regexp"
	"strings"
	"time"
)

// Item is one normalized feed entry. It only lives for the duration of a run.
type Item struct {
	Title       string
	Description string
	Link        string
	// Published is the zero time when the feed carried a date that could
	// not be parsed.
	Published    time.Time
	PublishedRaw string
	Content      string
	ImageURL     string

	SourcePriority int
	SourceName     string
}

// Body returns the content, or the description when the feed had none.
func (i Item) Body() string {
	if strings.TrimSpace(i.Content) != "" {
		return i.Content
	}
	return i.Description
}

var entityReplacer = strings.NewReplacer(
	"&nbsp;", " ",
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// CleanHTML drops complete markup tags, decodes the small entity set feeds
// actually use and trims the result. A lone '<' is kept as text. Other
// entities are left untouched.
func CleanHTML(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(entityReplacer.Replace(tagPattern.ReplaceAllString(s, "")))
}
