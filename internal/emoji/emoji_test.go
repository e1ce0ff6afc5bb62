package emoji

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"utangaç":     "Utanmış",
		"Utangaç":     "Utanmış",
		"UTANGAÇ":     "Utanmış",
		"mutlu":       "Mutlu",
		"  yorgun  ":  "Yorgun",
		"sorgulayıcı": "Sorgulayıcı",
		"Gururlu":     "Gururlu", // not in the display set, passes through
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPick_KnownMood(t *testing.T) {
	table := Load(filepath.Join(t.TempDir(), "missing.yaml"), testLogger())

	got := table.Pick("Sorgulayıcı")
	if got != "🤔" {
		t.Fatalf("expected 🤔 for single-option mood, got %q", got)
	}
}

func TestPick_NormalizesBeforeLookup(t *testing.T) {
	table := Load(filepath.Join(t.TempDir(), "missing.yaml"), testLogger())

	// Counter label Utangaç maps to display label Utanmış.
	got := table.Pick("utangaç")
	if got == "" {
		t.Fatal("expected an emoji for normalized mood")
	}
}

func TestPick_UnknownMoodReturnsEmpty(t *testing.T) {
	table := Load(filepath.Join(t.TempDir(), "missing.yaml"), testLogger())

	if got := table.Pick("Gururlu"); got != "" {
		t.Fatalf("expected empty for mood without table entry, got %q", got)
	}
	if got := table.Pick(""); got != "" {
		t.Fatalf("expected empty for empty mood, got %q", got)
	}
}

func TestPick_RandomAmongOptions(t *testing.T) {
	table := Load(filepath.Join(t.TempDir(), "missing.yaml"), testLogger())

	allowed := map[string]bool{"😀": true, "😄": true, "😊": true}
	for i := 0; i < 50; i++ {
		got := table.Pick("Mutlu")
		if !allowed[got] {
			t.Fatalf("pick returned emoji outside option list: %q", got)
		}
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mood_emojis.yaml")
	content := "Mutlu: [\"🎉\"]\nÜzgün: [\"💧\"]\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	table := Load(path, testLogger())
	if got := table.Pick("Mutlu"); got != "🎉" {
		t.Fatalf("expected file table to win, got %q", got)
	}
	// File table replaces the defaults entirely.
	if got := table.Pick("Yorgun"); got != "" {
		t.Fatalf("expected no entry for mood missing from file table, got %q", got)
	}
}

func TestLoad_BrokenFileFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mood_emojis.yaml")
	if err := os.WriteFile(path, []byte(":: not yaml ["), 0o644); err != nil {
		t.Fatal(err)
	}

	table := Load(path, testLogger())
	if got := table.Pick("Sorgulayıcı"); got != "🤔" {
		t.Fatalf("expected default table on parse failure, got %q", got)
	}
}
