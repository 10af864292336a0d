package groq

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tareqlive/newsworker/internal/rewrite"
)

func TestClient_Complete(t *testing.T) {
	var got struct {
		Model       string  `json:"model"`
		MaxTokens   int     `json:"max_tokens"`
		Temperature float32 `json:"temperature"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	var auth, path string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"  {\"title\":\"x\"}\n"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c := NewClient("secret", srv.URL+"/", "")
	text, err := c.Complete(context.Background(), rewrite.CompletionRequest{
		System:      "sys",
		User:        "usr",
		MaxTokens:   1024,
		Temperature: 0.7,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != `{"title":"x"}` {
		t.Errorf("text = %q", text)
	}

	if auth != "Bearer secret" {
		t.Errorf("auth = %q", auth)
	}
	if path != "/chat/completions" {
		t.Errorf("path = %q", path)
	}
	if got.Model != DefaultModel || got.MaxTokens != 1024 || got.Temperature != 0.7 {
		t.Errorf("unexpected request: %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[0].Content != "sys" ||
		got.Messages[1].Role != "user" || got.Messages[1].Content != "usr" {
		t.Errorf("messages = %+v", got.Messages)
	}
}

func TestClient_CompleteSendsZeroTemperature(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer srv.Close()

	c := NewClient("k", srv.URL, "")
	if _, err := c.Complete(context.Background(), rewrite.CompletionRequest{User: "u", Temperature: 0}); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	temp, ok := body["temperature"].(float64)
	if !ok {
		t.Fatalf("temperature omitted from request: %v", body)
	}
	if temp <= 0 || temp > 1e-30 {
		t.Errorf("temperature = %v, want a value indistinguishable from zero", temp)
	}
}

func TestClient_CompleteHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
	}))
	defer srv.Close()

	c := NewClient("k", srv.URL, "llama")
	if _, err := c.Complete(context.Background(), rewrite.CompletionRequest{User: "u"}); err == nil {
		t.Error("expected error for 429")
	}
}

func TestClient_CompleteNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","choices":[]}`))
	}))
	defer srv.Close()

	c := NewClient("k", srv.URL, "")
	if _, err := c.Complete(context.Background(), rewrite.CompletionRequest{User: "u"}); err == nil {
		t.Error("expected error for empty choices")
	}
}
