package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"github.com/tareqlive/newsworker/internal/logger"
)

// Budget caps language-model requests per day across all completers.
// A limit of zero or less means unlimited.
type Budget struct {
	mu          sync.Mutex
	used        int
	limit       int
	resetTime   time.Time
	cacheHits   int
	cacheMisses int
	now         func() time.Time
}

// NewBudget creates a daily budget with the given limit.
func NewBudget(limit int) *Budget {
	return newBudget(limit, time.Now)
}

func newBudget(limit int, now func() time.Time) *Budget {
	return &Budget{
		limit:     limit,
		now:       now,
		resetTime: now().Add(24 * time.Hour),
	}
}

// Allow reports whether another request fits in today's budget.
func (b *Budget) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.checkReset()
	return b.limit <= 0 || b.used < b.limit
}

// Use records one request, failing when the budget is spent.
func (b *Budget) Use() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.checkReset()

	if b.limit > 0 && b.used >= b.limit {
		return fmt.Errorf("daily completion budget exceeded (%d/%d)", b.used, b.limit)
	}

	b.used++
	b.cacheMisses++
	logger.Debug("Completion budget", "used", b.used, "limit", b.limit)
	return nil
}

// RecordCacheHit records a rewrite served from cache.
func (b *Budget) RecordCacheHit() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cacheHits++
}

// GetStats returns current budget statistics.
func (b *Budget) GetStats() map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	hitRate := 0.0
	if total := b.cacheHits + b.cacheMisses; total > 0 {
		hitRate = float64(b.cacheHits) / float64(total) * 100
	}

	return map[string]interface{}{
		"used":           b.used,
		"limit":          b.limit,
		"cache_hits":     b.cacheHits,
		"cache_misses":   b.cacheMisses,
		"cache_hit_rate": hitRate,
		"reset_time":     b.resetTime,
	}
}

// checkReset resets counters once the day has passed. Caller holds mu.
func (b *Budget) checkReset() {
	now := b.now()
	if now.After(b.resetTime) {
		logger.Info("Resetting completion budget", "used", b.used, "limit", b.limit)
		b.used = 0
		b.cacheHits = 0
		b.cacheMisses = 0
		b.resetTime = now.Add(24 * time.Hour)
	}
}
