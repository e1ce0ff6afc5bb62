package stats

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// seedEngine builds an engine over a seeded counter file and chat log.
// The log gets 3 classified Mutlu exchanges today and 2 yesterday; the
// all-time counter is seeded to reflect all 5.
func seedEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()

	counterPath := filepath.Join(dir, "mood_counter.txt")
	if err := os.WriteFile(counterPath, []byte(`{"Mutlu": 5}`), 0o644); err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	var lines []string
	line := func(ts time.Time) string {
		return fmt.Sprintf(
			`{"timestamp":"%s","user":"çok mutluyum","response":"{\"kullanici_ruh_hali\":\"Mutlu\",\"ilk_ruh_hali\":\"Endişeli\",\"ilk_cevap\":\"a\",\"ikinci_ruh_hali\":\"Bilinmeyen\",\"ikinci_cevap\":\"b\"}"}`,
			ts.Format("2006-01-02 15:04:05"))
	}
	for i := 0; i < 3; i++ {
		lines = append(lines, line(now))
	}
	for i := 0; i < 2; i++ {
		lines = append(lines, line(now.AddDate(0, 0, -1)))
	}
	// A free-form exchange from today must not affect any tally.
	lines = append(lines, fmt.Sprintf(`{"timestamp":"%s","user":"selam","response":"düz metin cevap"}`,
		now.Format("2006-01-02 15:04:05")))

	logPath := filepath.Join(dir, "chat_history.txt")
	if err := os.WriteFile(logPath, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	counters := store.NewCounters(counterPath, testLogger())
	chatLog := store.NewChatLog(logPath, testLogger())
	return New(counters, chatLog, testLogger())
}

func TestAnswer_TodayRescansLog(t *testing.T) {
	e := seedEngine(t)

	res := e.Answer("bugün kaç kez mutlu oldum")
	if res.Period != PeriodToday {
		t.Fatalf("period = %q, want today", res.Period)
	}
	if res.Mood != "Mutlu" {
		t.Fatalf("mood = %q, want Mutlu", res.Mood)
	}
	if res.Counts["Mutlu"] != 3 {
		t.Fatalf("today Mutlu = %d, want 3", res.Counts["Mutlu"])
	}
	if res.Summary != "Mutlu duygu 3 kez kaydedildi" {
		t.Fatalf("summary = %q", res.Summary)
	}
}

func TestAnswer_AllTimeReadsCounterFile(t *testing.T) {
	e := seedEngine(t)

	res := e.Answer("kaç kez mutlu oldum")
	if res.Period != PeriodAll {
		t.Fatalf("period = %q, want all", res.Period)
	}
	if res.Counts["Mutlu"] != 5 {
		t.Fatalf("all-time Mutlu = %d, want 5", res.Counts["Mutlu"])
	}
	if res.Summary != "Mutlu duygu 5 kez kaydedildi" {
		t.Fatalf("summary = %q", res.Summary)
	}
}

func TestAnswer_TodayTalliesAllThreeMoodFields(t *testing.T) {
	e := seedEngine(t)

	// Endişeli appears only as the first-response mood; the unknown
	// second mood must be ignored.
	res := e.Answer("bugün istatistik")
	if res.Counts["Endişeli"] != 3 {
		t.Fatalf("today Endişeli = %d, want 3", res.Counts["Endişeli"])
	}
	if _, ok := res.Counts["Bilinmeyen"]; ok {
		t.Fatal("unknown mood must not be tallied")
	}
	if res.Summary != "3 kez mutlu, 3 kez endişeli" {
		t.Fatalf("summary = %q", res.Summary)
	}
}

func TestAnswer_EmptyHistory(t *testing.T) {
	dir := t.TempDir()
	e := New(
		store.NewCounters(filepath.Join(dir, "mood_counter.txt"), testLogger()),
		store.NewChatLog(filepath.Join(dir, "chat_history.txt"), testLogger()),
		testLogger(),
	)

	res := e.Answer("istatistik göster")
	if res.Summary != "Henüz duygu kaydı yok" {
		t.Fatalf("summary = %q", res.Summary)
	}
}

func TestParseQuery_LiteralToolCall(t *testing.T) {
	cases := []struct {
		in         string
		wantPeriod string
		wantMood   string
	}{
		{`get_emotion_stats(emotion="mutlu", period="today")`, PeriodToday, "Mutlu"},
		{`get_emotion_stats(period="all", emotion="üzgün")`, PeriodAll, "Üzgün"},
		{`get_emotion_stats(period="today")`, PeriodToday, ""},
		{`cevap: get_emotion_stats(emotion="yorgun")`, PeriodAll, "Yorgun"},
	}
	for _, tc := range cases {
		period, mood := parseQuery(tc.in)
		if period != tc.wantPeriod || mood != tc.wantMood {
			t.Errorf("parseQuery(%q) = (%q, %q), want (%q, %q)",
				tc.in, period, mood, tc.wantPeriod, tc.wantMood)
		}
	}
}

func TestParseQuery_Keywords(t *testing.T) {
	cases := []struct {
		in         string
		wantPeriod string
		wantMood   string
	}{
		{"bugün kaç kez mutlu oldum", PeriodToday, "Mutlu"},
		{"günlük özet", PeriodToday, ""},
		{"toplam istatistik", PeriodAll, ""},
		{"kaç kere öfkeli oldum", PeriodAll, "Öfkeli"},
	}
	for _, tc := range cases {
		period, mood := parseQuery(tc.in)
		if period != tc.wantPeriod || mood != tc.wantMood {
			t.Errorf("parseQuery(%q) = (%q, %q), want (%q, %q)",
				tc.in, period, mood, tc.wantPeriod, tc.wantMood)
		}
	}
}
