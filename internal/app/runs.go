package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tareqlive/newsworker/internal/logger"
)

const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
	TriggerStartup  = "startup"
)

// Run is a snapshot of one pipeline execution.
type Run struct {
	ID         string     `json:"id"`
	Trigger    string     `json:"trigger"`
	State      State      `json:"state"`
	Done       bool       `json:"done"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Report     Report     `json:"report"`
	Error      string     `json:"error,omitempty"`
}

// Runner is the part of Pipeline the registry needs.
type Runner interface {
	Run(ctx context.Context, onState func(State)) (Report, error)
}

// Runs dispatches pipeline executions and remembers the most recent ones.
// Overlapping runs are not prevented.
type Runs struct {
	runner  Runner
	history int

	mu    sync.RWMutex
	runs  map[string]*Run
	order []string
	wg    sync.WaitGroup
}

func NewRuns(runner Runner, history int) *Runs {
	if history < 1 {
		history = 50
	}
	return &Runs{
		runner:  runner,
		history: history,
		runs:    make(map[string]*Run),
	}
}

// Start launches a run in the background and returns its id immediately.
func (r *Runs) Start(ctx context.Context, trigger string) string {
	run := r.register(trigger)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.execute(ctx, run.ID)
	}()
	return run.ID
}

// RunNow runs the pipeline in the calling goroutine.
func (r *Runs) RunNow(ctx context.Context, trigger string) (Run, error) {
	run := r.register(trigger)
	err := r.execute(ctx, run.ID)
	snapshot, _ := r.Get(run.ID)
	return snapshot, err
}

// Get returns a copy of the run with the given id.
func (r *Runs) Get(id string) (Run, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[id]
	if !ok {
		return Run{}, false
	}
	return *run, true
}

// Wait blocks until every background run has returned.
func (r *Runs) Wait() {
	r.wg.Wait()
}

func (r *Runs) register(trigger string) *Run {
	run := &Run{
		ID:        uuid.NewString(),
		Trigger:   trigger,
		State:     StateIdle,
		StartedAt: time.Now().UTC(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.runs[run.ID] = run
	r.order = append(r.order, run.ID)
	r.evict()
	return run
}

// evict drops the oldest finished runs beyond the history size. Caller
// holds mu.
func (r *Runs) evict() {
	for len(r.order) > r.history {
		evicted := false
		for i, id := range r.order {
			if r.runs[id].Done {
				delete(r.runs, id)
				r.order = append(r.order[:i], r.order[i+1:]...)
				evicted = true
				break
			}
		}
		if !evicted {
			return
		}
	}
}

func (r *Runs) execute(ctx context.Context, id string) error {
	logger.Info("Run started", "run_id", id)

	report, err := r.runner.Run(ctx, func(s State) {
		r.update(id, func(run *Run) { run.State = s })
	})

	r.update(id, func(run *Run) {
		now := time.Now().UTC()
		run.Done = true
		run.State = StateIdle
		run.FinishedAt = &now
		run.Report = report
		if err != nil {
			run.Error = err.Error()
		}
	})
	return err
}

func (r *Runs) update(id string, fn func(*Run)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if run, ok := r.runs[id]; ok {
		fn(run)
	}
}
