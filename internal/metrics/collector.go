// Package metrics is a small in-process collector with Prometheus text
// exposition, kept dependency-light on purpose: the handful of counters
// this service tracks does not justify client_golang.
package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/domain"
)

// Collector is the process-wide registry.
var Collector = NewCollector()

// MetricsCollector aggregates named counters and gauges.
type MetricsCollector struct {
	counters  sync.Map // name{labels} -> *Counter
	gauges    sync.Map // name{labels} -> *Gauge
	startTime time.Time
}

func NewCollector() *MetricsCollector {
	return &MetricsCollector{startTime: time.Now()}
}

// Uptime returns the time since the collector was created.
func (c *MetricsCollector) Uptime() time.Duration {
	return time.Since(c.startTime)
}

// Counter is a monotonically increasing counter.
type Counter struct {
	name   string
	help   string
	labels string
	value  atomic.Int64
}

func (c *Counter) Inc()         { c.value.Add(1) }
func (c *Counter) Add(n int64)  { c.value.Add(n) }
func (c *Counter) Value() int64 { return c.value.Load() }

// Gauge is a value that can go up and down.
type Gauge struct {
	name   string
	help   string
	labels string
	value  atomic.Int64
}

func (g *Gauge) Set(v int64)  { g.value.Store(v) }
func (g *Gauge) Inc()         { g.value.Add(1) }
func (g *Gauge) Dec()         { g.value.Add(-1) }
func (g *Gauge) Value() int64 { return g.value.Load() }

// Counter returns or creates a counter. labels is a raw Prometheus label
// string like `flow="RAG"`, or empty.
func (c *MetricsCollector) Counter(name, help, labels string) *Counter {
	key := name + "{" + labels + "}"
	if v, ok := c.counters.Load(key); ok {
		return v.(*Counter)
	}
	ctr := &Counter{name: name, help: help, labels: labels}
	actual, _ := c.counters.LoadOrStore(key, ctr)
	return actual.(*Counter)
}

// Gauge returns or creates a gauge.
func (c *MetricsCollector) Gauge(name, help, labels string) *Gauge {
	key := name + "{" + labels + "}"
	if v, ok := c.gauges.Load(key); ok {
		return v.(*Gauge)
	}
	g := &Gauge{name: name, help: help, labels: labels}
	actual, _ := c.gauges.LoadOrStore(key, g)
	return actual.(*Gauge)
}

// Handler renders the registry in Prometheus text exposition format.
func (c *MetricsCollector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

		var sb strings.Builder
		fmt.Fprintf(&sb, "# HELP chatbot_uptime_seconds Time since start in seconds\n")
		fmt.Fprintf(&sb, "# TYPE chatbot_uptime_seconds gauge\n")
		fmt.Fprintf(&sb, "chatbot_uptime_seconds %d\n", int64(c.Uptime().Seconds()))

		writeFamily(&sb, "counter", collect(&c.counters, func(ctr *Counter) sample {
			return sample{ctr.name, ctr.help, ctr.labels, ctr.Value()}
		}))
		writeFamily(&sb, "gauge", collect(&c.gauges, func(g *Gauge) sample {
			return sample{g.name, g.help, g.labels, g.Value()}
		}))

		fmt.Fprint(w, sb.String())
	}
}

type sample struct {
	name   string
	help   string
	labels string
	value  int64
}

func collect[T any](m *sync.Map, conv func(T) sample) []sample {
	var out []sample
	m.Range(func(_, value any) bool {
		out = append(out, conv(value.(T)))
		return true
	})
	// sync.Map iteration order is unstable; sort for a deterministic page.
	sort.Slice(out, func(i, j int) bool {
		if out[i].name != out[j].name {
			return out[i].name < out[j].name
		}
		return out[i].labels < out[j].labels
	})
	return out
}

func writeFamily(sb *strings.Builder, kind string, samples []sample) {
	helpWritten := make(map[string]bool)
	for _, s := range samples {
		if !helpWritten[s.name] {
			fmt.Fprintf(sb, "# HELP %s %s\n", s.name, s.help)
			fmt.Fprintf(sb, "# TYPE %s %s\n", s.name, kind)
			helpWritten[s.name] = true
		}
		if s.labels != "" {
			fmt.Fprintf(sb, "%s{%s} %d\n", s.name, s.labels, s.value)
		} else {
			fmt.Fprintf(sb, "%s %d\n", s.name, s.value)
		}
	}
}

// Pre-defined metrics used across the service.
var (
	InputRejected     = Collector.Counter("chatbot_input_rejected_total", "Messages rejected before any backend call", "")
	SanitizerBlocks   = Collector.Counter("chatbot_sanitizer_blocks_total", "Messages discarded by the denylist filter", "")
	ProviderFailovers = Collector.Counter("chatbot_provider_failovers_total", "Completions served by a non-primary provider", "")
	IndexQueries      = Collector.Counter("chatbot_index_queries_total", "Similarity queries against the document index", "")
)

// FlowRequests returns the per-flow request counter.
func FlowRequests(flow domain.Flow) *Counter {
	return Collector.Counter("chatbot_requests_total", "Routed requests by flow",
		fmt.Sprintf("flow=%q", string(flow)))
}
