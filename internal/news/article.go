package news

import (
	"strings"
	"time"
	"unicode"
)

const (
	DefaultCategory    = "world-news"
	DefaultReadingTime = "3 min"
	DefaultReadingMins = 3
	StatusPublished    = "published"
)

// Categories lists the category slugs the site renders.
var Categories = []string{
	"world-news",
	"politics",
	"economy",
	"technology",
	"sports",
	"health",
	"culture",
	"science",
}

// Rewritten is the language-model output for one feed item.
type Rewritten struct {
	Title       string
	Content     string
	Summary     string
	Keywords    []string
	Category    string
	ReadingTime string
}

// Persisted is the document written to the article store.
type Persisted struct {
	Slug           string
	Title          string
	Content        string
	Summary        string
	Category       string
	Keywords       []string
	ImageURL       string
	ImageThumbnail string
	SourceLink     string
	OriginalURL    string
	ReadingMinutes int
	Status         string
	Views          int
	Likes          int
	Featured       bool
	Trending       bool
	PublishedAt    time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Origin carries what survives from the feed item into the stored article.
type Origin struct {
	Link           string
	ImageURL       string
	ImageThumbnail string
}

// NewPersisted builds a fresh, unpublished-counter document stamped with now.
func NewPersisted(r Rewritten, origin Origin, now time.Time) Persisted {
	now = now.UTC()
	keywords := r.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	return Persisted{
		Slug:           Slugify(r.Title),
		Title:          r.Title,
		Content:        r.Content,
		Summary:        r.Summary,
		Category:       NormalizeCategory(r.Category),
		Keywords:       keywords,
		ImageURL:       origin.ImageURL,
		ImageThumbnail: origin.ImageThumbnail,
		SourceLink:     origin.Link,
		OriginalURL:    origin.Link,
		ReadingMinutes: ReadingMinutes(r.ReadingTime),
		Status:         StatusPublished,
		PublishedAt:    now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// NormalizeCategory maps unknown or empty categories to DefaultCategory.
func NormalizeCategory(category string) string {
	c := strings.ToLower(strings.TrimSpace(category))
	for _, known := range Categories {
		if c == known {
			return c
		}
	}
	return DefaultCategory
}

// ReadingMinutes reads the leading integer of a label such as "4 min".
// Labels without a positive leading number give DefaultReadingMins.
func ReadingMinutes(label string) int {
	s := strings.TrimLeftFunc(label, unicode.IsSpace)
	n := 0
	digits := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
		digits++
		if digits > 4 {
			break
		}
	}
	if n <= 0 {
		return DefaultReadingMins
	}
	return n
}

const (
	DefaultImageURL     = "https://f.top4top.io/p_3704g9rel2.png"
	DefaultThumbnailURL = "https://e.top4top.io/p_3704c4i0l1.png"
)

// OriginFor picks the stored image pair for a feed item. Items without an
// image get the site logo and favicon.
func OriginFor(link, imageURL string) Origin {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return Origin{Link: link, ImageURL: DefaultImageURL, ImageThumbnail: DefaultThumbnailURL}
	}
	return Origin{Link: link, ImageURL: imageURL, ImageThumbnail: imageURL}
}
