package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	RunsStarted        int64
	FeedsFetched       int64
	FeedsFailed        int64
	ItemsFetched       int64
	DuplicatesFiltered int64
	AlreadyPublished   int64
	RewritesSucceeded  int64
	RewritesFallback   int64
	ArticlesPersisted  int64
	PersistFailures    int64

	// Timings
	LastProcessingTime    time.Duration
	AverageProcessingTime time.Duration
	TotalProcessingTime   time.Duration
	ProcessingCount       int64

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = New()

func New() *Metrics {
	return &Metrics{IsHealthy: true}
}

func (m *Metrics) add(field *int64, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*field += int64(n)
}

func (m *Metrics) IncrementRunsStarted()       { m.add(&m.RunsStarted, 1) }
func (m *Metrics) IncrementFeedsFetched()      { m.add(&m.FeedsFetched, 1) }
func (m *Metrics) IncrementFeedsFailed()       { m.add(&m.FeedsFailed, 1) }
func (m *Metrics) AddItemsFetched(n int)       { m.add(&m.ItemsFetched, n) }
func (m *Metrics) AddDuplicatesFiltered(n int) { m.add(&m.DuplicatesFiltered, n) }
func (m *Metrics) IncrementAlreadyPublished()  { m.add(&m.AlreadyPublished, 1) }
func (m *Metrics) IncrementRewritesSucceeded() { m.add(&m.RewritesSucceeded, 1) }
func (m *Metrics) IncrementRewritesFallback()  { m.add(&m.RewritesFallback, 1) }
func (m *Metrics) IncrementArticlesPersisted() { m.add(&m.ArticlesPersisted, 1) }
func (m *Metrics) IncrementPersistFailures()   { m.add(&m.PersistFailures, 1) }

func (m *Metrics) RecordProcessingTime(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastProcessingTime = duration
	m.TotalProcessingTime += duration
	m.ProcessingCount++

	if m.ProcessingCount > 0 {
		m.AverageProcessingTime = m.TotalProcessingTime / time.Duration(m.ProcessingCount)
	}
}

func (m *Metrics) SetLastRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.IsHealthy
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"runs_started":               m.RunsStarted,
		"feeds_fetched":              m.FeedsFetched,
		"feeds_failed":               m.FeedsFailed,
		"items_fetched":              m.ItemsFetched,
		"duplicates_filtered":        m.DuplicatesFiltered,
		"already_published":          m.AlreadyPublished,
		"rewrites_succeeded":         m.RewritesSucceeded,
		"rewrites_fallback":          m.RewritesFallback,
		"articles_persisted":         m.ArticlesPersisted,
		"persist_failures":           m.PersistFailures,
		"last_processing_time_ms":    m.LastProcessingTime.Milliseconds(),
		"average_processing_time_ms": m.AverageProcessingTime.Milliseconds(),
		"last_run_time":              m.LastRunTime.Format(time.RFC3339),
		"last_error_time":            m.LastErrorTime.Format(time.RFC3339),
		"last_error":                 m.LastError,
		"is_healthy":                 m.IsHealthy,
	}
}
