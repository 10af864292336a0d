package news

import (
	"reflect"
	"testing"
	"time"

	"github.com/tareqlive/newsworker/internal/rss"
)

func at(h int) time.Time {
	return time.Date(2024, 5, 1, h, 0, 0, 0, time.UTC)
}

func titles(items []rss.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Title
	}
	return out
}

func TestAggregate_TwoSourcesKeepsHigherPriority(t *testing.T) {
	batches := []rss.Batch{
		{
			Source: rss.Source{Name: "A", Priority: 1},
			Items: []rss.Item{
				{Title: "X", Link: "https://a.example/x", Published: at(9)},
				{Title: "Only A", Link: "https://a.example/y", Published: at(8)},
			},
		},
		{
			Source: rss.Source{Name: "B", Priority: 2},
			Items: []rss.Item{
				{Title: "X", Link: "https://b.example/x", Published: at(11)},
			},
		},
	}

	got := Aggregate(batches)
	if want := []string{"X", "Only A"}; !reflect.DeepEqual(titles(got), want) {
		t.Fatalf("titles = %v, want %v", titles(got), want)
	}
	if got[0].Link != "https://a.example/x" || got[0].SourceName != "A" || got[0].SourcePriority != 1 {
		t.Errorf("kept wrong copy of X: %+v", got[0])
	}
}

func TestSortItems_DateOrderWithinPriority(t *testing.T) {
	items := []rss.Item{
		{Title: "no-date", SourcePriority: 1},
		{Title: "older", SourcePriority: 1, Published: at(1)},
		{Title: "low-priority", SourcePriority: 3, Published: at(23)},
		{Title: "newer", SourcePriority: 1, Published: at(5)},
		{Title: "p2", SourcePriority: 2},
	}

	SortItems(items)
	want := []string{"newer", "older", "no-date", "p2", "low-priority"}
	if !reflect.DeepEqual(titles(items), want) {
		t.Errorf("order = %v, want %v", titles(items), want)
	}
}

func TestSortItems_StableForEqualKeys(t *testing.T) {
	items := []rss.Item{
		{Title: "first", SourcePriority: 1},
		{Title: "second", SourcePriority: 1},
		{Title: "third", SourcePriority: 1, Published: at(2)},
		{Title: "fourth", SourcePriority: 1, Published: at(2)},
	}

	SortItems(items)
	want := []string{"third", "fourth", "first", "second"}
	if !reflect.DeepEqual(titles(items), want) {
		t.Errorf("order = %v, want %v", titles(items), want)
	}
}

func TestDedupe(t *testing.T) {
	items := []rss.Item{
		{Title: "Same", Link: "1"},
		{Title: "same", Link: "2"},
		{Title: "Same", Link: "3"},
		{Title: "Other", Link: "4"},
	}

	once := Dedupe(items)
	if want := []string{"Same", "same", "Other"}; !reflect.DeepEqual(titles(once), want) {
		t.Fatalf("titles = %v, want %v", titles(once), want)
	}
	if once[0].Link != "1" {
		t.Errorf("first occurrence not kept: %q", once[0].Link)
	}

	twice := Dedupe(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("dedupe not idempotent: %v vs %v", titles(once), titles(twice))
	}
}

func TestAggregate_Empty(t *testing.T) {
	if got := Aggregate(nil); len(got) != 0 {
		t.Errorf("expected no items, got %d", len(got))
	}
}
