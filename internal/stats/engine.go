// Package stats answers aggregate mood-count queries against the
// persisted counter store and the append-only chat history log.
package stats

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/domain"
	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/store"
)

const (
	PeriodToday = "today"
	PeriodAll   = "all"
)

// todayKeywords switch the window from all-time to the current day.
var todayKeywords = []string{"bugün", "today", "günlük"}

// The emotion model sometimes leaves a literal get_emotion_stats(...)
// call in its text output instead of answering. Both argument orders
// occur, so two patterns.
var (
	statsCallEmotionFirst = regexp.MustCompile(`(?i)get_emotion_stats\(\s*emotion\s*=\s*"([^"]+)"\s*(?:,\s*period\s*=\s*"(today|all)")?\s*\)`)
	statsCallPeriodFirst  = regexp.MustCompile(`(?i)get_emotion_stats\(\s*period\s*=\s*"(today|all)"\s*(?:,\s*emotion\s*=\s*"([^"]+)")?\s*\)`)
)

// moodKeys are the classification JSON fields re-tallied for "today"
// windows. Must match the emotion engine's output schema.
var moodKeys = []string{"kullanici_ruh_hali", "ilk_ruh_hali", "ikinci_ruh_hali"}

// Engine computes mood statistics. All-time counts come straight from
// the counter store; today counts are recomputed from the chat log so
// they always agree with what was actually recorded.
type Engine struct {
	counters domain.CounterStore
	chatLog  domain.ChatLogger
	logger   *slog.Logger

	now func() time.Time
}

func New(counters domain.CounterStore, chatLog domain.ChatLogger, logger *slog.Logger) *Engine {
	return &Engine{counters: counters, chatLog: chatLog, logger: logger, now: time.Now}
}

// Answer interprets a free-text statistics question and returns the
// summary. It never fails: internal errors become an apologetic summary.
func (e *Engine) Answer(message string) *domain.StatsResult {
	period, mood := parseQuery(message)
	return e.Compute(period, mood)
}

// Compute returns the stats for explicit parameters, skipping the
// free-text parse. Mood must already be a canonical label or empty.
func (e *Engine) Compute(period, mood string) *domain.StatsResult {
	if period != PeriodToday {
		period = PeriodAll
	}
	counts, err := e.compute(period)
	if err != nil {
		e.logger.Warn("statistics computation failed", "period", period, "error", err)
		return &domain.StatsResult{
			Summary: fmt.Sprintf("İstatistik hesaplanamadı: %v", err),
			Period:  period,
		}
	}
	result := &domain.StatsResult{Counts: counts, Period: period}
	if mood = normalizeMood(mood); mood != "" {
		result.Mood = mood
		result.Summary = fmt.Sprintf("%s duygu %d kez kaydedildi", mood, counts[mood])
		return result
	}
	result.Summary = summarize(counts)
	return result
}

func (e *Engine) compute(period string) (map[string]int, error) {
	if period == PeriodToday {
		return e.todayCounts()
	}
	return e.counters.Snapshot(), nil
}

// todayCounts rescans the full chat log rather than keeping an
// incremental daily counter, so the result is always consistent with
// the log at the cost of a linear read.
func (e *Engine) todayCounts() (map[string]int, error) {
	counts := make(map[string]int, len(store.AllowedMoods))
	for _, m := range store.AllowedMoods {
		counts[m] = 0
	}

	entries, err := e.chatLog.Entries()
	if err != nil {
		return nil, fmt.Errorf("read chat history: %w", err)
	}

	today := e.now().Format("2006-01-02")
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Timestamp, today) {
			continue
		}
		var data map[string]any
		if err := json.Unmarshal([]byte(entry.Response), &data); err != nil {
			// Free-form exchange, nothing to tally.
			continue
		}
		for _, key := range moodKeys {
			mood, _ := data[key].(string)
			mood = strings.TrimSpace(mood)
			if _, ok := counts[mood]; ok {
				counts[mood]++
			}
		}
	}
	return counts, nil
}

// parseQuery extracts the period and an optional mood filter from a
// free-text question.
func parseQuery(message string) (period, mood string) {
	t := strings.ToLower(message)

	period = PeriodAll
	for _, k := range todayKeywords {
		if strings.Contains(t, k) {
			period = PeriodToday
			break
		}
	}

	for _, m := range store.AllowedMoods {
		if strings.Contains(t, strings.ToLower(m)) {
			mood = m
			break
		}
	}

	// A literal tool-call left in model output overrides the keywords.
	if m := statsCallEmotionFirst.FindStringSubmatch(t); m != nil {
		if normalized := normalizeMood(m[1]); normalized != "" {
			mood = normalized
		}
		if m[2] != "" {
			period = m[2]
		}
	} else if m := statsCallPeriodFirst.FindStringSubmatch(t); m != nil {
		period = m[1]
		if normalized := normalizeMood(m[2]); normalized != "" {
			mood = normalized
		}
	}

	return period, mood
}

// normalizeMood folds a free-form label onto the allowed set, or "".
func normalizeMood(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, m := range store.AllowedMoods {
		if strings.ToLower(m) == n {
			return m
		}
	}
	return ""
}

// summarize renders non-zero counts as "{N} kez {mood}" clauses in the
// fixed label order.
func summarize(counts map[string]int) string {
	var parts []string
	for _, m := range orderedMoods(counts) {
		if counts[m] > 0 {
			parts = append(parts, fmt.Sprintf("%d kez %s", counts[m], strings.ToLower(m)))
		}
	}
	if len(parts) == 0 {
		return "Henüz duygu kaydı yok"
	}
	return strings.Join(parts, ", ")
}

// orderedMoods yields the allowed labels first, then any extra keys the
// counter snapshot carried, sorted for stable output.
func orderedMoods(counts map[string]int) []string {
	seen := make(map[string]bool, len(counts))
	out := make([]string, 0, len(counts))
	for _, m := range store.AllowedMoods {
		if _, ok := counts[m]; ok {
			out = append(out, m)
			seen[m] = true
		}
	}
	var extra []string
	for m := range counts {
		if !seen[m] {
			extra = append(extra, m)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}
