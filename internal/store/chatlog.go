package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/domain"
)

// chatTimeLayout is the timestamp format used in the history log. The
// statistics engine matches days by the first 10 bytes of this form.
const chatTimeLayout = "2006-01-02 15:04:05"

// ChatLog is the append-only JSONL history of completed exchanges.
// Lines are never rewritten; appends are mutex-serialized.
type ChatLog struct {
	path   string
	logger *slog.Logger

	mu sync.Mutex
}

func NewChatLog(path string, logger *slog.Logger) *ChatLog {
	return &ChatLog{path: path, logger: logger}
}

// Append writes one exchange line stamped with the current local time.
func (l *ChatLog) Append(user, response string) error {
	entry := domain.ChatExchange{
		Timestamp: time.Now().Format(chatTimeLayout),
		User:      user,
		Response:  response,
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal chat entry: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open chat history: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append chat history: %w", err)
	}
	return nil
}

// Entries parses the full log. Malformed lines are skipped, a missing
// file yields an empty history.
func (l *ChatLog) Entries() ([]domain.ChatExchange, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open chat history: %w", err)
	}
	defer f.Close()

	var entries []domain.ChatExchange
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var e domain.ChatExchange
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			l.logger.Debug("skipping malformed chat history line", "error", err)
			continue
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return entries, fmt.Errorf("scan chat history: %w", err)
	}
	return entries, nil
}
