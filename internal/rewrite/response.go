package rewrite

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tareqlive/newsworker/internal/news"
)

// readingTime accepts both "4 min" and 4.
type readingTime string

func (r *readingTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = readingTime(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("reading_time: %w", err)
	}
	*r = readingTime(n.String() + " min")
	return nil
}

type completion struct {
	Title       string      `json:"title"`
	Content     string      `json:"content"`
	Summary     string      `json:"summary"`
	Keywords    []string    `json:"keywords"`
	Category    string      `json:"category"`
	ReadingTime readingTime `json:"reading_time"`
}

var errMissingFields = errors.New("completion missing title, content or summary")

// stripFences removes markdown code-fence markers the model sometimes adds.
func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// ParseCompletion decodes model output into an article, applying defaults
// for optional fields.
func ParseCompletion(text string) (news.Rewritten, error) {
	var c completion
	if err := json.Unmarshal([]byte(stripFences(text)), &c); err != nil {
		return news.Rewritten{}, fmt.Errorf("decode completion: %w", err)
	}

	c.Title = strings.TrimSpace(c.Title)
	c.Content = strings.TrimSpace(c.Content)
	c.Summary = strings.TrimSpace(c.Summary)
	if c.Title == "" || c.Content == "" || c.Summary == "" {
		return news.Rewritten{}, errMissingFields
	}

	keywords := make([]string, 0, len(c.Keywords))
	for _, k := range c.Keywords {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}

	rt := strings.TrimSpace(string(c.ReadingTime))
	if rt == "" {
		rt = news.DefaultReadingTime
	}

	return news.Rewritten{
		Title:       c.Title,
		Content:     c.Content,
		Summary:     c.Summary,
		Keywords:    keywords,
		Category:    news.NormalizeCategory(c.Category),
		ReadingTime: rt,
	}, nil
}
