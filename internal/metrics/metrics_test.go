package metrics

import (
	"testing"
	"time"
)

func TestMetrics_CountersAndStats(t *testing.T) {
	m := New()
	m.IncrementRunsStarted()
	m.AddItemsFetched(12)
	m.AddDuplicatesFiltered(3)
	m.IncrementArticlesPersisted()
	m.IncrementArticlesPersisted()

	stats := m.GetStats()
	if stats["items_fetched"].(int64) != 12 {
		t.Errorf("items_fetched = %v, want 12", stats["items_fetched"])
	}
	if stats["duplicates_filtered"].(int64) != 3 {
		t.Errorf("duplicates_filtered = %v, want 3", stats["duplicates_filtered"])
	}
	if stats["articles_persisted"].(int64) != 2 {
		t.Errorf("articles_persisted = %v, want 2", stats["articles_persisted"])
	}
}

func TestMetrics_ErrorThenRunRestoresHealth(t *testing.T) {
	m := New()
	m.SetError("ledger unavailable")
	if m.Healthy() {
		t.Fatal("Healthy() = true after SetError")
	}
	m.SetLastRun()
	if !m.Healthy() {
		t.Error("Healthy() = false after SetLastRun")
	}
}

func TestMetrics_AverageProcessingTime(t *testing.T) {
	m := New()
	m.RecordProcessingTime(2 * time.Second)
	m.RecordProcessingTime(4 * time.Second)
	if m.AverageProcessingTime != 3*time.Second {
		t.Errorf("AverageProcessingTime = %v, want 3s", m.AverageProcessingTime)
	}
}
