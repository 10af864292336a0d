package news

import (
	"sort"

	"github.com/tareqlive/newsworker/internal/logger"
	"github.com/tareqlive/newsworker/internal/metrics"
	"github.com/tareqlive/newsworker/internal/rss"
)

// Aggregate merges per-source batches into one ordered, title-unique list.
// Items are stamped with their source, ordered by priority then recency, and
// the first item seen for each title is kept.
func Aggregate(batches []rss.Batch) []rss.Item {
	var all []rss.Item
	for _, b := range batches {
		for _, it := range b.Items {
			it.SourcePriority = b.Source.Priority
			it.SourceName = b.Source.Name
			all = append(all, it)
		}
	}

	SortItems(all)
	unique := Dedupe(all)

	if dropped := len(all) - len(unique); dropped > 0 {
		metrics.Global.AddDuplicatesFiltered(dropped)
		logger.Info("Removed duplicate titles", "duplicates", dropped, "unique", len(unique))
	}
	return unique
}

// SortItems orders items by ascending SourcePriority, newest first within a
// priority. Items without a usable date go after every dated item of the
// same priority. The sort is stable.
func SortItems(items []rss.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.SourcePriority != b.SourcePriority {
			return a.SourcePriority < b.SourcePriority
		}
		switch {
		case a.Published.IsZero():
			return false
		case b.Published.IsZero():
			return true
		}
		return a.Published.After(b.Published)
	})
}

// Dedupe keeps the first item for every exact (case-sensitive) title.
func Dedupe(items []rss.Item) []rss.Item {
	seen := make(map[string]struct{}, len(items))
	out := make([]rss.Item, 0, len(items))
	for _, it := range items {
		if _, dup := seen[it.Title]; dup {
			logger.Debug("Duplicate title", "title", it.Title, "source", it.SourceName)
			continue
		}
		seen[it.Title] = struct{}{}
		out = append(out, it)
	}
	return out
}
