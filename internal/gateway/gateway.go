package gateway

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/domain"
	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/sanitize"
)

const (
	classifyTemperature = 0.1
	classifyMaxTokens   = 15
	completeTemperature = 0.2
	toolTemperature     = 0.0

	// maxTokensPerRequest bounds classification cost. Messages estimated
	// above it never reach the model.
	maxTokensPerRequest = 1000
)

const classifySystemPrompt = `Kullanıcının mesajını analiz et ve şu akışlardan birini seç:

ÖNEMLİ KURALLAR:
1. Eğer kullanıcı BİLGİ istiyorsa (nedir, nasıl, açıkla, tanım, principle, concept, theory) → RAG
2. Eğer kullanıcı HAYVAN istiyorsa (köpek, kedi, tilki, ördek fotoğraf/bilgi) → ANIMAL
3. Eğer kullanıcı SOHBET/DUYGU istiyorsa (merhaba, nasılsın, üzgünüm, mutluyum) → EMOTION
4. Eğer kullanıcı İSTATİSTİK istiyorsa (kaç kez, istatistik, sayaç, bugün kaç) → STATS
5. Eğer kullanıcı YARDIM istiyorsa (yardım, komutlar, ne yapabilirsin) → HELP

Akışlar:
- ANIMAL: Köpek, kedi, tilki, ördek fotoğraf/bilgi isteği
- RAG: Python, Anayasa, Clean Architecture, teknik terimler, bilgi soruları, "nedir", "nasıl", "açıkla", "tanım", "principle", "concept"
- EMOTION: Duygu analizi, sohbet, normal konuşma
- STATS: Duygu istatistikleri, kayıt sayıları, "kaç kez" soruları
- HELP: Yardım, kullanım, komut listesi

Sadece şu yanıtlardan birini ver: ANIMAL, RAG, EMOTION, STATS, HELP`

// Gateway wraps a provider (usually the failover chain) with the three
// call shapes the flows need: label classification, plain completion and
// function calling.
type Gateway struct {
	provider domain.Provider
	overflow domain.Flow
	logger   *slog.Logger
}

// New builds a gateway. overflowFlow names the flow used when a message
// blows the token budget; anything other than EMOTION means HELP.
func New(provider domain.Provider, overflowFlow string, logger *slog.Logger) *Gateway {
	overflow := domain.FlowHelp
	if strings.EqualFold(overflowFlow, string(domain.FlowEmotion)) {
		overflow = domain.FlowEmotion
	}
	return &Gateway{provider: provider, overflow: overflow, logger: logger}
}

// Classify asks the model which flow should handle the message. It never
// returns an error: provider failure resolves to HELP so a broken vendor
// cannot take the router down.
func (g *Gateway) Classify(ctx context.Context, message string) domain.Flow {
	if tokens := sanitize.EstimateTokens(message); tokens > maxTokensPerRequest {
		g.logger.Warn("classification skipped, token budget exceeded",
			"estimated", tokens, "limit", maxTokensPerRequest, "flow", g.overflow)
		return g.overflow
	}

	resp, err := g.provider.Chat(ctx, domain.ChatRequest{
		Messages: []domain.Message{
			{Role: "system", Content: classifySystemPrompt},
			{Role: "user", Content: message},
		},
		MaxTokens:   classifyMaxTokens,
		Temperature: classifyTemperature,
	})
	if err != nil {
		g.logger.Warn("classification call failed, defaulting to HELP", "error", err)
		return domain.FlowHelp
	}

	flow := parseFlow(resp.Content)
	g.logger.Debug("flow classified", "flow", flow, "raw", resp.Content, "latency_ms", resp.LatencyMs)
	return flow
}

// parseFlow scans the reply for the first known label in priority order.
// Models wrap labels in prose ("Bu konuda ANIMAL akışını seçiyorum"), so
// an exact-match parse would reject most valid replies.
func parseFlow(reply string) domain.Flow {
	upper := strings.ToUpper(reply)
	for _, f := range domain.ClassifyOrder {
		if strings.Contains(upper, string(f)) {
			return f
		}
	}
	return domain.FlowHelp
}

// Complete runs a plain system+user completion.
func (g *Gateway) Complete(ctx context.Context, system, user string) (string, error) {
	return g.Converse(ctx, system, nil, user)
}

// Converse is Complete with prior exchange turns inserted between the
// system instruction and the new user message.
func (g *Gateway) Converse(ctx context.Context, system string, history []domain.Message, user string) (string, error) {
	msgs := make([]domain.Message, 0, len(history)+2)
	msgs = append(msgs, domain.Message{Role: "system", Content: system})
	msgs = append(msgs, history...)
	msgs = append(msgs, domain.Message{Role: "user", Content: user})

	resp, err := g.provider.Chat(ctx, domain.ChatRequest{
		Messages:    msgs,
		Temperature: completeTemperature,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// CompleteWithTools runs a single function-calling turn. Temperature is
// pinned to 0 so tool choice stays deterministic.
func (g *Gateway) CompleteWithTools(ctx context.Context, system, user string, tools []domain.ToolDefinition) (*domain.ChatResponse, error) {
	return g.provider.Chat(ctx, domain.ChatRequest{
		Messages: []domain.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Tools:       tools,
		Temperature: toolTemperature,
	})
}
