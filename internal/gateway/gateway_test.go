package gateway

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/domain"
)

type scriptedProvider struct {
	reply   string
	err     error
	lastReq domain.ChatRequest
	calls   int
}

func (s *scriptedProvider) Name() string                      { return "scripted" }
func (s *scriptedProvider) Healthy(ctx context.Context) error { return nil }

func (s *scriptedProvider) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	s.calls++
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &domain.ChatResponse{Content: s.reply, FinishReason: "stop"}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestClassify_ExactLabel(t *testing.T) {
	cases := map[string]domain.Flow{
		"ANIMAL":  domain.FlowAnimal,
		"RAG":     domain.FlowRAG,
		"EMOTION": domain.FlowEmotion,
		"STATS":   domain.FlowStats,
		"HELP":    domain.FlowHelp,
	}
	for reply, want := range cases {
		p := &scriptedProvider{reply: reply}
		g := New(p, "", testLogger())
		if got := g.Classify(context.Background(), "test mesajı"); got != want {
			t.Errorf("reply %q: expected %s, got %s", reply, want, got)
		}
	}
}

func TestClassify_LabelWrappedInProse(t *testing.T) {
	p := &scriptedProvider{reply: "Bu konuda ANIMAL akışını seçiyorum"}
	g := New(p, "", testLogger())

	if got := g.Classify(context.Background(), "köpek fotoğrafı"); got != domain.FlowAnimal {
		t.Fatalf("expected ANIMAL, got %s", got)
	}
}

func TestClassify_LowercaseLabel(t *testing.T) {
	p := &scriptedProvider{reply: "bence rag uygun"}
	g := New(p, "", testLogger())

	if got := g.Classify(context.Background(), "python nedir"); got != domain.FlowRAG {
		t.Fatalf("expected RAG, got %s", got)
	}
}

func TestClassify_PriorityOrderOnMultipleLabels(t *testing.T) {
	// ANIMAL is scanned before RAG, RAG before EMOTION.
	p := &scriptedProvider{reply: "RAG ya da ANIMAL olabilir"}
	g := New(p, "", testLogger())

	if got := g.Classify(context.Background(), "köpek nedir"); got != domain.FlowAnimal {
		t.Fatalf("expected ANIMAL by priority, got %s", got)
	}
}

func TestClassify_NoLabelDefaultsToHelp(t *testing.T) {
	p := &scriptedProvider{reply: "bilmiyorum, karar veremedim"}
	g := New(p, "", testLogger())

	if got := g.Classify(context.Background(), "asdf"); got != domain.FlowHelp {
		t.Fatalf("expected HELP, got %s", got)
	}
}

func TestClassify_ProviderErrorDefaultsToHelp(t *testing.T) {
	p := &scriptedProvider{err: errors.New("all providers in failover chain failed")}
	g := New(p, "", testLogger())

	if got := g.Classify(context.Background(), "merhaba"); got != domain.FlowHelp {
		t.Fatalf("expected HELP on provider error, got %s", got)
	}
}

func TestClassify_RequestParameters(t *testing.T) {
	p := &scriptedProvider{reply: "EMOTION"}
	g := New(p, "", testLogger())
	g.Classify(context.Background(), "bugün çok mutluyum")

	req := p.lastReq
	if req.MaxTokens != 15 {
		t.Fatalf("expected max tokens 15, got %d", req.MaxTokens)
	}
	if req.Temperature != 0.1 {
		t.Fatalf("expected temperature 0.1, got %v", req.Temperature)
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
		t.Fatalf("expected system+user messages, got %+v", req.Messages)
	}
	if !strings.Contains(req.Messages[0].Content, "ANIMAL, RAG, EMOTION, STATS, HELP") {
		t.Fatal("classification prompt should enumerate all five labels")
	}
}

func TestClassify_TokenBudgetSkipsModel(t *testing.T) {
	p := &scriptedProvider{reply: "RAG"}
	g := New(p, "", testLogger())

	// 4004 chars ≈ 1001 tokens, over the 1000 budget.
	long := strings.Repeat("a", 4004)
	if got := g.Classify(context.Background(), long); got != domain.FlowHelp {
		t.Fatalf("expected overflow default HELP, got %s", got)
	}
	if p.calls != 0 {
		t.Fatalf("model must not be called on overflow, got %d calls", p.calls)
	}
}

func TestClassify_TokenBudgetConfigurableOverflow(t *testing.T) {
	p := &scriptedProvider{reply: "RAG"}
	g := New(p, "EMOTION", testLogger())

	long := strings.Repeat("a", 4004)
	if got := g.Classify(context.Background(), long); got != domain.FlowEmotion {
		t.Fatalf("expected configured EMOTION overflow, got %s", got)
	}
}

func TestClassify_AtTokenBudgetStillCallsModel(t *testing.T) {
	p := &scriptedProvider{reply: "EMOTION"}
	g := New(p, "", testLogger())

	// Exactly 4000 chars = 1000 tokens, at the budget, not over.
	atLimit := strings.Repeat("a", 4000)
	if got := g.Classify(context.Background(), atLimit); got != domain.FlowEmotion {
		t.Fatalf("expected model classification at budget, got %s", got)
	}
	if p.calls != 1 {
		t.Fatalf("expected 1 model call, got %d", p.calls)
	}
}

func TestComplete(t *testing.T) {
	p := &scriptedProvider{reply: "Python yorumlamalı bir dildir."}
	g := New(p, "", testLogger())

	out, err := g.Complete(context.Background(), "Sen bir bilgi asistanısın.", "BAĞLAM:\n...\n\nSORU: python nedir\nYANIT:")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Python yorumlamalı bir dildir." {
		t.Fatalf("unexpected completion: %q", out)
	}
	if p.lastReq.Temperature != 0.2 {
		t.Fatalf("expected temperature 0.2, got %v", p.lastReq.Temperature)
	}
}

func TestConverse_InsertsHistoryBetweenSystemAndUser(t *testing.T) {
	p := &scriptedProvider{reply: "tamam"}
	g := New(p, "", testLogger())

	history := []domain.Message{
		{Role: "user", Content: "dün çok yorgundum"},
		{Role: "assistant", Content: `{"kullanici_ruh_hali":"Yorgun"}`},
	}
	if _, err := g.Converse(context.Background(), "sistem", history, "bugün daha iyiyim"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msgs := p.lastReq.Messages
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	if msgs[0].Role != "system" || msgs[1].Content != "dün çok yorgundum" ||
		msgs[2].Role != "assistant" || msgs[3].Content != "bugün daha iyiyim" {
		t.Fatalf("unexpected message order: %+v", msgs)
	}
	if p.lastReq.Temperature != 0.2 {
		t.Fatalf("expected temperature 0.2, got %v", p.lastReq.Temperature)
	}
}

func TestComplete_PropagatesError(t *testing.T) {
	p := &scriptedProvider{err: errors.New("boom")}
	g := New(p, "", testLogger())

	if _, err := g.Complete(context.Background(), "sys", "user"); err == nil {
		t.Fatal("expected error")
	}
}

func TestCompleteWithTools(t *testing.T) {
	p := &scriptedProvider{reply: ""}
	g := New(p, "", testLogger())

	tools := []domain.ToolDefinition{{Name: "dog_photo", Description: "Rastgele bir köpek fotoğrafı döndür"}}
	_, err := g.CompleteWithTools(context.Background(), "sistem", "köpek fotoğrafı", tools)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.lastReq.Temperature != 0 {
		t.Fatalf("expected temperature 0 for tool calling, got %v", p.lastReq.Temperature)
	}
	if len(p.lastReq.Tools) != 1 || p.lastReq.Tools[0].Name != "dog_photo" {
		t.Fatalf("tools not forwarded: %+v", p.lastReq.Tools)
	}
}
