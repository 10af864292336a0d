package firestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tareqlive/newsworker/internal/logger"
	"github.com/tareqlive/newsworker/internal/news"
)

const (
	DefaultBaseURL    = "https://firestore.googleapis.com"
	DefaultCollection = "articles"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("firestore error: %d", e.StatusCode)
	}
	return fmt.Sprintf("firestore error: %d: %s", e.StatusCode, e.Body)
}

type Config struct {
	BaseURL    string
	ProjectID  string
	Collection string
}

// Writer creates article documents through the Firestore REST API.
type Writer struct {
	httpClient *http.Client
	endpoint   string
}

// NewWriter expects an httpClient that already authenticates requests,
// see NewHTTPClient.
func NewWriter(httpClient *http.Client, cfg Config) (*Writer, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("firestore project id is required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	collection := cfg.Collection
	if collection == "" {
		collection = DefaultCollection
	}

	endpoint := fmt.Sprintf("%s/v1/projects/%s/databases/(default)/documents/%s",
		base, url.PathEscape(cfg.ProjectID), url.PathEscape(collection))
	return &Writer{httpClient: httpClient, endpoint: endpoint}, nil
}

// Create stores the article as a new document and returns the document
// name assigned by the server.
func (w *Writer) Create(ctx context.Context, a news.Persisted) (string, error) {
	body, err := json.Marshal(ArticleDocument(a))
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("post document: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		logger.Warn("Failed to read Firestore response", "status", resp.StatusCode, "error", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	var created Document
	if err := json.Unmarshal(respBody, &created); err != nil {
		logger.Warn("Document created but response is unreadable", "slug", a.Slug, "error", err)
		return "", nil
	}
	return created.Name, nil
}
