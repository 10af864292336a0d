package rss

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSources(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "feeds.yaml")
	content := `feeds:
  - name: BBC Arabic
    url: https://feeds.bbci.co.uk/arabic/rss.xml
    language: ar
    enabled: true
    priority: 1
  - name: Sky News
    url: https://feeds.skynews.com/feeds/rss/world.xml
    language: en
    enabled: false
    priority: 3
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	sources, err := LoadSources(path)
	if err != nil {
		t.Fatalf("LoadSources() error = %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("LoadSources() returned %d sources, want 2", len(sources))
	}
	if sources[0].Name != "BBC Arabic" || sources[0].Priority != 1 || !sources[0].Enabled {
		t.Errorf("unexpected first source: %+v", sources[0])
	}
	if sources[1].Language != "en" || sources[1].Enabled {
		t.Errorf("unexpected second source: %+v", sources[1])
	}

	enabled := Enabled(sources)
	if len(enabled) != 1 || enabled[0].Name != "BBC Arabic" {
		t.Errorf("Enabled() = %+v", enabled)
	}
}

func TestLoadSources_MissingFileUsesDefaults(t *testing.T) {
	sources, err := LoadSources(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadSources() error = %v", err)
	}
	if len(sources) != len(DefaultSources()) {
		t.Errorf("LoadSources() returned %d sources, want defaults (%d)", len(sources), len(DefaultSources()))
	}
}

func TestLoadSources_RejectsIncompleteEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feeds.yaml")
	if err := os.WriteFile(path, []byte("feeds:\n  - name: no url\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSources(path); err == nil {
		t.Error("LoadSources() expected error for entry without url")
	}
}

func TestLoadSources_UnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feeds.yaml")
	if err := os.WriteFile(path, []byte("feeds:\n  - name: a\n    url: b\n    weight: 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSources(path); err == nil {
		t.Error("LoadSources() expected error for unknown field")
	}
}
