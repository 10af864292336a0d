package rewrite

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tareqlive/newsworker/internal/rss"
)

const systemPrompt = `أنت محرر أخبار احترافي عربي متخصص بخبرة 20 سنة.

المهام:
1. أعد صياغة الخبر بأسلوب جذاب واحترافي
2. احتفظ بالمعنى الأصلي 100%
3. أضف تحليل بسيط (جملة واحدة)
4. تجنب الكلمات المكررة
5. استخدم اللغة العربية الفصحى
6. الطول المطلوب: 250-350 كلمة
7. أضف قيمة مضافة للقارئ

الخرج المطلوب بصيغة JSON فقط (بدون markdown):
{
  "title": "عنوان جذاب (50-60 حرف)",
  "content": "المحتوى المعاد صياغته",
  "summary": "ملخص قصير (50 كلمة)",
  "keywords": ["كلمة1", "كلمة2", "كلمة3"],
  "category": "category_slug",
  "reading_time": "X min"
}`

const maxPromptRunes = 6000

// SystemPrompt returns the fixed editor instructions sent with every request.
func SystemPrompt() string {
	return systemPrompt
}

// UserPrompt renders the per-item instruction.
func UserPrompt(item rss.Item) string {
	return fmt.Sprintf("أعد صياغة هذا الخبر:\n\nالعنوان: %s\nالمحتوى: %s\nالمصدر: %s",
		item.Title, limitRunes(item.Body(), maxPromptRunes), item.Link)
}

// limitRunes cuts s to at most n runes, preferring to end on a sentence.
func limitRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	trimmed := string([]rune(s)[:n])
	if idx := strings.LastIndex(trimmed, ". "); idx > n/5 {
		trimmed = trimmed[:idx+1]
	}
	return trimmed
}
