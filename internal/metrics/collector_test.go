package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/domain"
)

func TestCounterReuse(t *testing.T) {
	c := NewCollector()
	a := c.Counter("test_total", "help", "")
	b := c.Counter("test_total", "help", "")
	if a != b {
		t.Fatal("same name must return the same counter")
	}
	a.Inc()
	a.Add(2)
	if b.Value() != 3 {
		t.Fatalf("value = %d, want 3", b.Value())
	}
}

func TestLabeledCountersAreDistinct(t *testing.T) {
	c := NewCollector()
	rag := c.Counter("req_total", "h", `flow="RAG"`)
	help := c.Counter("req_total", "h", `flow="HELP"`)
	if rag == help {
		t.Fatal("different labels must not share a counter")
	}
	rag.Inc()
	if help.Value() != 0 {
		t.Fatal("label leak between counters")
	}
}

func TestHandlerExposition(t *testing.T) {
	c := NewCollector()
	c.Counter("chatbot_requests_total", "Routed requests by flow", `flow="RAG"`).Inc()
	c.Gauge("chatbot_ready", "Readiness flag", "").Set(1)

	rec := httptest.NewRecorder()
	c.Handler()(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		"chatbot_uptime_seconds",
		"# TYPE chatbot_requests_total counter",
		`chatbot_requests_total{flow="RAG"} 1`,
		"chatbot_ready 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q:\n%s", want, body)
		}
	}
}

func TestFlowRequests(t *testing.T) {
	before := FlowRequests(domain.FlowStats).Value()
	FlowRequests(domain.FlowStats).Inc()
	if got := FlowRequests(domain.FlowStats).Value(); got != before+1 {
		t.Fatalf("value = %d, want %d", got, before+1)
	}
}
