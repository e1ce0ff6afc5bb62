package store

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestCounters_StartsFromZeros(t *testing.T) {
	c := NewCounters(filepath.Join(t.TempDir(), "mood_counter.txt"), testLogger())

	snap := c.Snapshot()
	if len(snap) != len(AllowedMoods) {
		t.Fatalf("expected %d moods, got %d", len(AllowedMoods), len(snap))
	}
	for mood, n := range snap {
		if n != 0 {
			t.Fatalf("fresh counter %s = %d, want 0", mood, n)
		}
	}
}

func TestCounters_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mood_counter.txt")

	c := NewCounters(path, testLogger())
	c.Add("Mutlu")
	c.Add("Mutlu")
	c.Add("Üzgün")
	if err := c.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	reopened := NewCounters(path, testLogger())
	snap := reopened.Snapshot()
	if snap["Mutlu"] != 2 || snap["Üzgün"] != 1 || snap["Öfkeli"] != 0 {
		t.Fatalf("round trip lost counts: %v", snap)
	}
}

func TestCounters_IgnoresUnknownMood(t *testing.T) {
	c := NewCounters(filepath.Join(t.TempDir(), "mood_counter.txt"), testLogger())

	c.Add("Keyifli")
	c.Add("happy")

	for mood, n := range c.Snapshot() {
		if n != 0 {
			t.Fatalf("unknown mood leaked into %s = %d", mood, n)
		}
	}
}

func TestCounters_LoadIgnoresUnknownKeysAndBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mood_counter.txt")
	handEdited := `{
  "Mutlu": 7,
  "Bilinmeyen": 99,
  "Üzgün": "bozuk",
  "Yorgun": 3
}`
	if err := os.WriteFile(path, []byte(handEdited), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	c := NewCounters(path, testLogger())
	snap := c.Snapshot()
	if snap["Mutlu"] != 7 {
		t.Fatalf("Mutlu = %d, want 7", snap["Mutlu"])
	}
	if snap["Yorgun"] != 3 {
		t.Fatalf("Yorgun = %d, want 3", snap["Yorgun"])
	}
	if snap["Üzgün"] != 0 {
		t.Fatalf("non-numeric value should be ignored, Üzgün = %d", snap["Üzgün"])
	}
	if _, ok := snap["Bilinmeyen"]; ok {
		t.Fatal("unknown key survived the load")
	}
}

func TestCounters_CorruptFileStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mood_counter.txt")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	c := NewCounters(path, testLogger())
	if c.Snapshot()["Mutlu"] != 0 {
		t.Fatal("corrupt file should start from zeros")
	}
}

func TestCounters_ConcurrentAdds(t *testing.T) {
	c := NewCounters(filepath.Join(t.TempDir(), "mood_counter.txt"), testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Add("Flörtöz")
			}
		}()
	}
	wg.Wait()

	if got := c.Snapshot()["Flörtöz"]; got != 1000 {
		t.Fatalf("concurrent adds lost updates: %d", got)
	}
}
