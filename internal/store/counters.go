package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// AllowedMoods is the fixed counter vocabulary. Labels outside this set
// are never counted.
var AllowedMoods = []string{
	"Mutlu", "Üzgün", "Öfkeli", "Şaşkın", "Utangaç",
	"Endişeli", "Yorgun", "Gururlu", "Çaresiz", "Flörtöz",
}

// Counters keeps per-mood tallies backed by a single JSON file.
// All read-modify-write passes hold one mutex, so in-process writers
// cannot race each other on the file.
type Counters struct {
	path   string
	logger *slog.Logger

	mu     sync.Mutex
	counts map[string]int
}

func NewCounters(path string, logger *slog.Logger) *Counters {
	c := &Counters{path: path, logger: logger, counts: emptyCounts()}
	c.load()
	return c
}

func emptyCounts() map[string]int {
	m := make(map[string]int, len(AllowedMoods))
	for _, mood := range AllowedMoods {
		m[mood] = 0
	}
	return m
}

// load reads the counter file if present. Unknown keys and non-numeric
// values are ignored; a missing or unreadable file starts from zeros.
func (c *Counters) load() {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Warn("cannot read mood counter file", "path", c.path, "error", err)
		}
		return
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		c.logger.Warn("mood counter file is not valid JSON, starting fresh", "path", c.path, "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, mood := range AllowedMoods {
		if v, ok := raw[mood]; ok {
			if f, ok := v.(float64); ok && f >= 0 {
				c.counts[mood] = int(f)
			}
		}
	}
}

// Add increments the tally for mood. Labels outside the allowed set are
// silently skipped.
func (c *Counters) Add(mood string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.counts[mood]; ok {
		c.counts[mood]++
	}
}

// Snapshot returns a copy of the current tallies.
func (c *Counters) Snapshot() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

// Save persists the tallies as a 2-space-indented JSON object.
func (c *Counters) Save() error {
	c.mu.Lock()
	data, err := json.MarshalIndent(c.counts, "", "  ")
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshal mood counters: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	if err := os.WriteFile(c.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write mood counters: %w", err)
	}
	return nil
}
