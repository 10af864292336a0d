package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// FileLedger keeps published items in a JSON file.
type FileLedger struct {
	filePath string
	ttl      time.Duration
	items    map[string]Entry
	links    map[string]string
	mu       sync.RWMutex
	saveMu   sync.Mutex
	now      func() time.Time
}

// NewFileLedger creates a ledger backed by filePath. A ttl of zero keeps
// entries forever.
func NewFileLedger(filePath string, ttl time.Duration) *FileLedger {
	return &FileLedger{
		filePath: filePath,
		ttl:      ttl,
		items:    make(map[string]Entry),
		links:    make(map[string]string),
		now:      time.Now,
	}
}

// Load reads the file, dropping expired entries. A missing or empty file
// is an empty ledger.
func (fl *FileLedger) Load() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	data, err := os.ReadFile(fl.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read ledger file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("failed to unmarshal ledger: %w", err)
	}

	for _, e := range entries {
		if fl.live(e) {
			fl.items[e.Key] = e
			fl.links[e.Link] = e.Key
		}
	}
	return nil
}

// Save writes the ledger atomically through a temporary file. Concurrent
// saves are serialized and each uses its own temporary file.
func (fl *FileLedger) Save() error {
	fl.saveMu.Lock()
	defer fl.saveMu.Unlock()

	fl.mu.RLock()
	entries := make([]Entry, 0, len(fl.items))
	for _, e := range fl.items {
		if fl.live(e) {
			entries = append(entries, e)
		}
	}
	fl.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].PublishedAt.Before(entries[j].PublishedAt)
	})

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}

	dir := filepath.Dir(fl.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create ledger dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(fl.filePath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp ledger file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write ledger file: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod ledger file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close ledger file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fl.filePath); err != nil {
		return fmt.Errorf("failed to replace ledger file: %w", err)
	}
	return nil
}

func (fl *FileLedger) IsPublished(_ context.Context, key string) bool {
	fl.mu.RLock()
	defer fl.mu.RUnlock()

	e, ok := fl.items[key]
	return ok && fl.live(e)
}

func (fl *FileLedger) IsLinkPublished(_ context.Context, link string) bool {
	fl.mu.RLock()
	defer fl.mu.RUnlock()

	key, ok := fl.links[link]
	if !ok {
		return false
	}
	e, ok := fl.items[key]
	return ok && fl.live(e)
}

func (fl *FileLedger) MarkPublished(_ context.Context, e Entry) error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if e.PublishedAt.IsZero() {
		e.PublishedAt = fl.now().UTC()
	}
	fl.items[e.Key] = e
	fl.links[e.Link] = e.Key
	return nil
}

// Path returns the backing file.
func (fl *FileLedger) Path() string {
	return fl.filePath
}

// Len returns the number of stored entries.
func (fl *FileLedger) Len() int {
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	return len(fl.items)
}

func (fl *FileLedger) Close() error { return nil }

func (fl *FileLedger) live(e Entry) bool {
	return fl.ttl <= 0 || e.PublishedAt.After(fl.now().Add(-fl.ttl))
}

var _ Ledger = (*FileLedger)(nil)
