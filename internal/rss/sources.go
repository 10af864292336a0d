package rss

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Source is one configured feed. Lower Priority wins when two sources carry
// the same story.
type Source struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Language string `yaml:"language"`
	Enabled  bool   `yaml:"enabled"`
	Priority int    `yaml:"priority"`
}

// SourcesConfig is the YAML layout of the feeds file:
//
//	feeds:
//	  - name: BBC Arabic
//	    url: https://...
//	    priority: 1
type SourcesConfig struct {
	Feeds []Source `yaml:"feeds"`
}

// DefaultSources is used when no feeds file exists.
func DefaultSources() []Source {
	return []Source{
		{Name: "BBC Arabic", URL: "https://feeds.bbci.co.uk/arabic/rss.xml", Language: "ar", Enabled: true, Priority: 1},
		{Name: "Al Jazeera", URL: "https://www.aljazeera.net/xml/rss/all.xml", Language: "ar", Enabled: true, Priority: 1},
		{Name: "Sky News Arabic", URL: "https://www.skynewsarabia.com/rss", Language: "ar", Enabled: true, Priority: 2},
		{Name: "France 24 Arabic", URL: "https://www.france24.com/ar/rss", Language: "ar", Enabled: true, Priority: 2},
	}
}

// LoadSources reads feed sources from a YAML file. A missing file yields
// DefaultSources; a malformed one is an error.
func LoadSources(path string) ([]Source, error) {
	if path == "" {
		return DefaultSources(), nil
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultSources(), nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg SourcesConfig
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode feeds file %s: %w", path, err)
	}

	for i, s := range cfg.Feeds {
		if strings.TrimSpace(s.Name) == "" || strings.TrimSpace(s.URL) == "" {
			return nil, fmt.Errorf("feed #%d in %s: name and url are required", i+1, path)
		}
	}
	return cfg.Feeds, nil
}

// Enabled filters out disabled sources, keeping order.
func Enabled(sources []Source) []Source {
	out := make([]Source, 0, len(sources))
	for _, s := range sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}
