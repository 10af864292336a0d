package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type stubRunner struct {
	mu      sync.Mutex
	calls   int
	err     error
	release chan struct{}
}

func (s *stubRunner) Run(ctx context.Context, onState func(State)) (Report, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	onState(StateFetching)
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return Report{}, ctx.Err()
		}
	}
	onState(StateIdle)
	return Report{Processed: 3}, s.err
}

func (s *stubRunner) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestRuns_StartTracksState(t *testing.T) {
	runner := &stubRunner{release: make(chan struct{})}
	runs := NewRuns(runner, 10)

	id := runs.Start(context.Background(), TriggerManual)
	if id == "" {
		t.Fatal("empty run id")
	}

	deadline := time.Now().Add(time.Second)
	for {
		run, ok := runs.Get(id)
		if !ok {
			t.Fatal("run not registered")
		}
		if run.State == StateFetching {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("run never reached fetching, state %q", run.State)
		}
		time.Sleep(time.Millisecond)
	}

	close(runner.release)
	runs.Wait()

	run, _ := runs.Get(id)
	if !run.Done || run.State != StateIdle || run.FinishedAt == nil {
		t.Errorf("run not finished: %+v", run)
	}
	if run.Trigger != TriggerManual || run.Report.Processed != 3 || run.Error != "" {
		t.Errorf("unexpected run: %+v", run)
	}
}

func TestRuns_RunNowRecordsError(t *testing.T) {
	runs := NewRuns(&stubRunner{err: errors.New("save ledger: disk full")}, 10)

	run, err := runs.RunNow(context.Background(), TriggerStartup)
	if err == nil {
		t.Fatal("expected error")
	}
	if run.Error != "save ledger: disk full" || !run.Done {
		t.Errorf("run = %+v", run)
	}
}

func TestRuns_EvictsOldestFinished(t *testing.T) {
	runner := &stubRunner{}
	runs := NewRuns(runner, 2)

	first, _ := runs.RunNow(context.Background(), TriggerManual)
	second, _ := runs.RunNow(context.Background(), TriggerManual)
	third, _ := runs.RunNow(context.Background(), TriggerManual)

	if _, ok := runs.Get(first.ID); ok {
		t.Error("oldest run should be evicted")
	}
	for _, id := range []string{second.ID, third.ID} {
		if _, ok := runs.Get(id); !ok {
			t.Errorf("run %s missing", id)
		}
	}
}

func TestRuns_OverlappingRunsAllowed(t *testing.T) {
	runner := &stubRunner{release: make(chan struct{})}
	runs := NewRuns(runner, 10)

	runs.Start(context.Background(), TriggerManual)
	runs.Start(context.Background(), TriggerManual)

	deadline := time.Now().Add(time.Second)
	for runner.count() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("calls = %d, want 2 concurrent runs", runner.count())
		}
		time.Sleep(time.Millisecond)
	}
	close(runner.release)
	runs.Wait()
}

func TestScheduler_DispatchesOnTick(t *testing.T) {
	runner := &stubRunner{}
	runs := NewRuns(runner, 10)
	s := NewScheduler(runs, 5*time.Millisecond)

	s.Start(context.Background())
	deadline := time.Now().Add(time.Second)
	for runner.count() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("scheduler dispatched %d runs", runner.count())
		}
		time.Sleep(time.Millisecond)
	}
	s.Stop()
	s.Stop()
	runs.Wait()
}
