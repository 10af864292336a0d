package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/tareqlive/newsworker/internal/app"
	"github.com/tareqlive/newsworker/internal/ratelimit"
)

type fakeRuns struct {
	mu      sync.Mutex
	started []string
	runs    map[string]app.Run
}

func (f *fakeRuns) Start(_ context.Context, trigger string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, trigger)
	return "run-1"
}

func (f *fakeRuns) Get(id string) (app.Run, bool) {
	r, ok := f.runs[id]
	return r, ok
}

func newTestServer(secret string) (*fakeRuns, http.Handler) {
	runs := &fakeRuns{runs: map[string]app.Run{
		"run-1": {ID: "run-1", Trigger: app.TriggerManual, State: app.StateParsing},
	}}
	return runs, NewServer(NewHandler(context.Background(), runs, secret, "1.2.3"))
}

func do(h http.Handler, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestStatus(t *testing.T) {
	_, h := newTestServer("s3cret")
	w := do(h, http.MethodGet, "/", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	want := map[string]string{
		"status":  "active",
		"worker":  "Tareq News Automation",
		"version": "1.2.3",
		"message": "Worker is running. Articles are processed every hour.",
	}
	for k, v := range want {
		if body[k] != v {
			t.Errorf("%s = %q, want %q", k, body[k], v)
		}
	}
}

func TestTriggerRun_Unauthorized(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		auth   string
	}{
		{"no header", "s3cret", ""},
		{"wrong secret", "s3cret", "Bearer nope"},
		{"missing scheme", "s3cret", "s3cret"},
		{"wrong case scheme", "s3cret", "bearer s3cret"},
		{"empty secret configured", "", "Bearer "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, h := newTestServer(tt.secret)
			w := do(h, http.MethodPost, "/run", tt.auth)

			if w.Code != http.StatusUnauthorized || w.Body.String() != "Unauthorized" {
				t.Errorf("got %d %q", w.Code, w.Body.String())
			}
			if len(runs.started) != 0 {
				t.Error("unauthorized request started a run")
			}
			if w.Header().Get("X-Run-ID") != "" {
				t.Error("unauthorized response carries a run id")
			}
		})
	}
}

func TestTriggerRun_Authorized(t *testing.T) {
	runs, h := newTestServer("s3cret")
	w := do(h, http.MethodPost, "/run", "Bearer s3cret")

	if w.Code != http.StatusOK || w.Body.String() != "Worker started" {
		t.Fatalf("got %d %q", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Run-ID") != "run-1" {
		t.Errorf("X-Run-ID = %q", w.Header().Get("X-Run-ID"))
	}
	if len(runs.started) != 1 || runs.started[0] != app.TriggerManual {
		t.Errorf("started = %v", runs.started)
	}
}

func TestGetRun(t *testing.T) {
	_, h := newTestServer("s3cret")

	w := do(h, http.MethodGet, "/runs/run-1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var run app.Run
	if err := json.Unmarshal(w.Body.Bytes(), &run); err != nil {
		t.Fatal(err)
	}
	if run.ID != "run-1" || run.State != app.StateParsing {
		t.Errorf("run = %+v", run)
	}

	if w := do(h, http.MethodGet, "/runs/missing", ""); w.Code != http.StatusNotFound {
		t.Errorf("missing run status = %d", w.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	_, h := newTestServer("")

	w := do(h, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK && w.Code != http.StatusServiceUnavailable {
		t.Errorf("health status = %d", w.Code)
	}

	w = do(h, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", w.Code)
	}
	var stats map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if _, ok := stats["runs_started"]; !ok {
		t.Error("metrics missing runs_started")
	}
}

func TestMetrics_IncludesBudget(t *testing.T) {
	runs := &fakeRuns{}
	h := NewServer(NewHandler(context.Background(), runs, "", "1.0.0").WithBudget(ratelimit.NewBudget(10)))

	w := do(h, http.MethodGet, "/metrics", "")
	var stats map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if _, ok := stats["completion_budget"].(map[string]interface{}); !ok {
		t.Errorf("completion_budget missing: %v", stats)
	}
}

func TestGetOnRunIsNotAllowed(t *testing.T) {
	runs, h := newTestServer("s3cret")
	w := do(h, http.MethodGet, "/run", "Bearer s3cret")
	if w.Code == http.StatusOK {
		t.Errorf("GET /run should not start a run")
	}
	if len(runs.started) != 0 {
		t.Error("GET /run started a run")
	}
}
