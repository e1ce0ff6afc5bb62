// Package emotion implements the dual-mood conversation flow: the model
// classifies the user's mood, answers twice in two compatible moods, and
// the engine tallies mood counters and picks display emojis.
package emotion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/config"
	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/domain"
	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/emoji"
	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/gateway"
	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/sanitize"
	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/store"
)

const defaultHistoryWindow = 10

const systemPrompt = `Sen bir duygu sınıflandırma ve yanıt üretme modelisin.
Görevin şunlardır:

1. Kullanıcının mesajındaki duyguyu tahmin et.
2. O duyguya uygun bir ilk cevap yaz.
3. Ardından ilk duygu ile uyumlu bir ikinci duygu seç; gerekirse aynı duyguyu tekrar seçebilirsin.
4. Seçilen ikinci duyguya uygun bir ikinci cevap yaz (ilk yanıtla tutarlı olmalıdır).
5. Çıktıyı Türkçe ver ve her iki yanıt da sadece 1 cümle olmalıdır.
6. Ek olarak, kullanıcının verdiği mesajdan kullanıcının duygu durumunu tek bir etiket ile belirle.
7. Çıktıyı her zaman aşağıdaki JSON formatında ver:

{
  "kullanici_ruh_hali": "...",
  "ilk_ruh_hali": "...",
  "ilk_cevap": "...",
  "ikinci_ruh_hali": "...",
  "ikinci_cevap": "..."
}

Seçilebilecek ruh halleri:
Mutlu, Üzgün, Öfkeli, Şaşkın, Utanmış, Endişeli, Gülümseyen, Flörtöz, Sorgulayıcı, Yorgun

EK KURALLAR (İstatistik Sorguları):
- Sadece kullanıcı AÇIKÇA istatistik/özet isterse sınıflandırma JSON'u üretmek yerine şu fonksiyonu çağır: get_emotion_stats.
  - Açıkça istatistik/özet isteme anahtar kelimeleri: "en çok", "istatistik", "özet", "toplam", "kaç kez", "kaç kere", "en sık".
  - Normal duygu/sohbet mesajlarında ASLA fonksiyon çağırma.
  - period argümanı: İstatistik sorgusunda "bugün"/"günlük" geçiyorsa "today"; aksi halde "all".
- Fonksiyonun dönüşünden sonra sadece 1 cümlelik, Türkçe, kısa bir özet yaz ve JSON döndürme. Bu kural YALNIZCA istatistik sorguları için geçerlidir.`

// requiredKeys must all be present for an exchange to count as classified.
var requiredKeys = []string{
	"kullanici_ruh_hali", "ilk_ruh_hali", "ilk_cevap", "ikinci_ruh_hali", "ikinci_cevap",
}

// Result is one completed emotion exchange. Response is either the
// re-serialized classification JSON or, when the model answered free-form,
// the raw model text.
type Result struct {
	Response    string `json:"response"`
	FirstEmoji  string `json:"first_emoji,omitempty"`
	SecondEmoji string `json:"second_emoji,omitempty"`
	Classified  bool   `json:"-"`
}

// Engine drives the emotion flow end to end: sanitize, prompt with the
// bounded conversation window, parse, count, log.
type Engine struct {
	gw        *gateway.Gateway
	sanitizer *sanitize.Sanitizer
	counters  *store.Counters
	chatLog   *store.ChatLog
	emojis    *emoji.Table
	logger    *slog.Logger

	window int

	mu      sync.Mutex
	history []domain.Message // alternating user/assistant, at most 2*window
}

func New(cfg config.EmotionConfig, gw *gateway.Gateway, san *sanitize.Sanitizer,
	counters *store.Counters, chatLog *store.ChatLog, emojis *emoji.Table, logger *slog.Logger,
) *Engine {
	window := cfg.HistoryWindow
	if window <= 0 {
		window = defaultHistoryWindow
	}
	return &Engine{
		gw:        gw,
		sanitizer: san,
		counters:  counters,
		chatLog:   chatLog,
		emojis:    emojis,
		logger:    logger,
		window:    window,
	}
}

// Chat runs one emotion exchange. Input problems answer inline through
// Result.Response; only a failed model call surfaces as an error.
func (e *Engine) Chat(ctx context.Context, message string) (*Result, error) {
	clean, err := e.sanitizer.CleanSubFlow(message, sanitize.MaxEmotionLen)
	if err != nil {
		switch {
		case errors.Is(err, sanitize.ErrEmpty):
			return &Result{Response: "Mesaj boş olamaz"}, nil
		case errors.Is(err, sanitize.ErrTooLong):
			return &Result{Response: fmt.Sprintf("Mesaj çok uzun. Maksimum %d karakter olabilir.", sanitize.MaxEmotionLen)}, nil
		case errors.Is(err, sanitize.ErrBlocked):
			return &Result{Response: "Güvenlik nedeniyle mesaj filtrelendi"}, nil
		default:
			return nil, err
		}
	}

	content, err := e.gw.Converse(ctx, systemPrompt, e.snapshot(), clean)
	if err != nil {
		return nil, fmt.Errorf("emotion completion: %w", err)
	}

	data, ok := extractJSONObject(content)
	if !ok {
		// Free-form answer (chitchat or a stats summary sentence).
		e.append(clean, content)
		e.remember(clean, content)
		return &Result{Response: content}, nil
	}
	if missing := missingKeys(data); len(missing) > 0 {
		e.logger.Debug("classification JSON incomplete", "missing", missing)
		e.append(clean, content)
		return &Result{Response: content}, nil
	}

	for _, key := range []string{"kullanici_ruh_hali", "ilk_ruh_hali", "ikinci_ruh_hali"} {
		e.counters.Add(strings.TrimSpace(strField(data, key)))
	}
	if err := e.counters.Save(); err != nil {
		e.logger.Warn("cannot persist mood counters", "error", err)
	}

	serialized, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("reserialize classification: %w", err)
	}
	response := string(serialized)

	e.append(clean, response)
	e.remember(clean, response)

	return &Result{
		Response:    response,
		FirstEmoji:  e.emojis.Pick(strField(data, "ilk_ruh_hali")),
		SecondEmoji: e.emojis.Pick(strField(data, "ikinci_ruh_hali")),
		Classified:  true,
	}, nil
}

// History returns a copy of the current conversation window.
func (e *Engine) History() []domain.Message {
	return e.snapshot()
}

func (e *Engine) snapshot() []domain.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Message, len(e.history))
	copy(out, e.history)
	return out
}

// remember appends an exchange to the in-memory window, dropping the
// oldest exchange once the window is full.
func (e *Engine) remember(user, response string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = append(e.history,
		domain.Message{Role: "user", Content: user},
		domain.Message{Role: "assistant", Content: response},
	)
	if max := 2 * e.window; len(e.history) > max {
		e.history = e.history[len(e.history)-max:]
	}
}

func (e *Engine) append(user, response string) {
	if err := e.chatLog.Append(user, response); err != nil {
		e.logger.Warn("cannot append chat history", "error", err)
	}
}

func missingKeys(data map[string]any) []string {
	var missing []string
	for _, k := range requiredKeys {
		if _, ok := data[k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing
}

func strField(data map[string]any, key string) string {
	if s, ok := data[key].(string); ok {
		return s
	}
	return ""
}

// extractJSONObject pulls the first balanced JSON object out of model
// output. Models wrap JSON in code fences or prose, and replies contain
// braces inside quoted strings, so a plain regex or whole-string
// json.Unmarshal would reject valid answers.
func extractJSONObject(text string) (map[string]any, bool) {
	t := strings.ReplaceAll(text, "```json", "")
	t = strings.ReplaceAll(t, "```", "")
	t = strings.TrimSpace(t)

	start := strings.IndexByte(t, '{')
	if start == -1 {
		return nil, false
	}

	depth := 0
	inString := false
	escape := false
	end := -1
	for i := start; i < len(t) && end == -1; i++ {
		ch := t[i]
		if inString {
			switch {
			case escape:
				escape = false
			case ch == '\\':
				escape = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				end = i
			}
		}
	}
	if end == -1 {
		return nil, false
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(t[start:end+1]), &data); err != nil {
		return nil, false
	}
	return data, true
}
