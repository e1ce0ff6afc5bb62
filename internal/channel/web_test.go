package channel

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/config"
	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type routeFunc func(ctx context.Context, channel, message string) *domain.RouteResult

func (f routeFunc) Route(ctx context.Context, channel, message string) *domain.RouteResult {
	return f(ctx, channel, message)
}

func newTestWeb(t *testing.T, router domain.Router) *Web {
	t.Helper()
	w := NewWeb(config.WebConfig{}, config.MetricsConfig{}, testLogger())
	w.router = router
	return w
}

func TestWebHandleChat(t *testing.T) {
	var gotChannel, gotMessage string
	w := newTestWeb(t, routeFunc(func(ctx context.Context, channel, message string) *domain.RouteResult {
		gotChannel, gotMessage = channel, message
		return &domain.RouteResult{Flow: domain.FlowEmotion, Response: "Bugün harika görünüyorsun!", FirstEmoji: "😊"}
	}))

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"bugün çok mutluyum"}`))
	rec := httptest.NewRecorder()
	w.handleChat(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotChannel != "web" {
		t.Errorf("channel = %q, want web", gotChannel)
	}
	if gotMessage != "bugün çok mutluyum" {
		t.Errorf("message = %q", gotMessage)
	}

	var res domain.RouteResult
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.Response != "Bugün harika görünüyorsun!" || res.FirstEmoji != "😊" {
		t.Errorf("unexpected envelope: %+v", res)
	}
}

func TestWebHandleChatRouterError(t *testing.T) {
	w := newTestWeb(t, routeFunc(func(ctx context.Context, channel, message string) *domain.RouteResult {
		return &domain.RouteResult{Error: "Mesaj boş olamaz"}
	}))

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":""}`))
	rec := httptest.NewRecorder()
	w.handleChat(rec, req)

	// Routing errors travel inside the envelope; only malformed requests
	// change the status code.
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Mesaj boş olamaz") {
		t.Errorf("body = %q, want routing error in envelope", body)
	}
	if strings.Contains(body, `"flow"`) {
		t.Errorf("body = %q, empty flow should be omitted", body)
	}
}

func TestWebHandleChatBadJSON(t *testing.T) {
	called := false
	w := newTestWeb(t, routeFunc(func(ctx context.Context, channel, message string) *domain.RouteResult {
		called = true
		return &domain.RouteResult{}
	}))

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":`))
	rec := httptest.NewRecorder()
	w.handleChat(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if called {
		t.Error("router called for malformed request")
	}
	if !strings.Contains(rec.Body.String(), "Geçersiz istek gövdesi") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestWebHandleHealth(t *testing.T) {
	w := newTestWeb(t, routeFunc(func(ctx context.Context, channel, message string) *domain.RouteResult {
		return &domain.RouteResult{}
	}))

	rec := httptest.NewRecorder()
	w.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestWebHandleIndexEmbedded(t *testing.T) {
	w := newTestWeb(t, routeFunc(func(ctx context.Context, channel, message string) *domain.RouteResult {
		return &domain.RouteResult{}
	}))

	rec := httptest.NewRecorder()
	w.handleIndex(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "<html") {
		t.Error("index response does not look like HTML")
	}
}
