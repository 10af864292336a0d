package app

import (
	"context"
	"sync"
	"time"

	"github.com/tareqlive/newsworker/internal/logger"
)

// Scheduler starts a run every interval until stopped.
type Scheduler struct {
	runs     *Runs
	interval time.Duration

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func NewScheduler(runs *Runs, interval time.Duration) *Scheduler {
	return &Scheduler{runs: runs, interval: interval}
}

// Start begins ticking. Runs inherit ctx, so cancelling it also cancels
// in-flight runs.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		logger.Info("Scheduler started", "interval", s.interval.String())
		for {
			select {
			case <-ctx.Done():
				logger.Info("Scheduler stopped")
				return
			case <-ticker.C:
				id := s.runs.Start(ctx, TriggerSchedule)
				logger.Info("Scheduled run dispatched", "run_id", id)
			}
		}
	}()
}

// Stop ends the ticker loop. It does not wait for dispatched runs.
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
			<-s.done
		}
	})
}
