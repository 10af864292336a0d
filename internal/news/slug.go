package news

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/gosimple/slug"
)

const MaxSlugLength = 100

// Slugify lowercases the title, transliterates it, and collapses every run of
// punctuation or whitespace into one hyphen. The result is at most
// MaxSlugLength characters with no leading or trailing hyphen. Titles with
// nothing to transliterate get a stable hash-based slug instead of "".
func Slugify(title string) string {
	s := slug.Make(title)
	if len(s) > MaxSlugLength {
		s = strings.TrimRight(s[:MaxSlugLength], "-_")
	}
	if s != "" {
		return s
	}

	if strings.TrimSpace(title) == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(title))
	return "article-" + hex.EncodeToString(sum[:])[:12]
}
