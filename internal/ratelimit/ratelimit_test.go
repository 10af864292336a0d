package ratelimit

import (
	"testing"
	"time"
)

func TestBudget_Limit(t *testing.T) {
	b := NewBudget(2)

	for i := 0; i < 2; i++ {
		if !b.Allow() {
			t.Fatalf("request %d should be allowed", i)
		}
		if err := b.Use(); err != nil {
			t.Fatalf("Use %d: %v", i, err)
		}
	}
	if b.Allow() {
		t.Error("third request should not be allowed")
	}
	if err := b.Use(); err == nil {
		t.Error("expected error once budget is spent")
	}
}

func TestBudget_Unlimited(t *testing.T) {
	b := NewBudget(0)
	for i := 0; i < 100; i++ {
		if err := b.Use(); err != nil {
			t.Fatalf("Use %d: %v", i, err)
		}
	}
	if got := b.GetStats()["used"]; got != 100 {
		t.Errorf("used = %v, want 100", got)
	}
}

func TestBudget_ResetsAfterADay(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := newBudget(1, func() time.Time { return now })

	if err := b.Use(); err != nil {
		t.Fatal(err)
	}
	if b.Allow() {
		t.Fatal("budget should be spent")
	}

	now = now.Add(25 * time.Hour)
	if !b.Allow() {
		t.Error("budget should reset after a day")
	}
}

func TestBudget_CacheHitRate(t *testing.T) {
	b := NewBudget(0)
	_ = b.Use()
	b.RecordCacheHit()

	stats := b.GetStats()
	if stats["cache_hits"] != 1 || stats["cache_misses"] != 1 {
		t.Errorf("unexpected stats: %v", stats)
	}
	if rate := stats["cache_hit_rate"].(float64); rate != 50 {
		t.Errorf("hit rate = %v, want 50", rate)
	}
}
