// Package flow implements the two-stage orchestrator: a model-backed
// classification picks one of five flows, then the matching handler
// produces the response. Unsatisfiable RAG and ANIMAL results redirect
// to HELP instead of failing.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/animal"
	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/domain"
	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/emotion"
	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/metrics"
	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/sanitize"
)

const maxTokens = 1000

const ragSystemPrompt = "Sen bir bilgi asistanısın. Kullanıcının sorularını verilen bağlam bilgilerini kullanarak yanıtla. " +
	"Türkçe, kısa ve net yanıtlar ver. Bağlam bilgisini kullan ama gereksiz detay verme. " +
	"Eğer bağlamda yeterli bilgi yoksa bunu belirt. Yanıtını doğrudan metin olarak ver (JSON formatında değil). " +
	"Maksimum 5 cümle ile yanıtla. Özellikle Clean Architecture, Python, Anayasa konularında uzmanlaşmışsın."

const helpText = `Şunları yapabilirim:
🐾 Hayvanlar: köpek, kedi, tilki, ördek fotoğrafı veya bilgisi isteyebilirsin. Örnek: "kedi fotoğrafı istiyorum"
📚 Belgeler: Python, Anayasa ve Clean Architecture hakkında soru sorabilirsin. Örnek: "clean architecture nedir"
💬 Sohbet: benimle konuşabilirsin, ruh halini anlayıp ona göre yanıt veririm.
📊 İstatistik: duygu kayıtlarını sorabilirsin. Örnek: "bugün kaç kez mutlu oldum"`

const unavailableText = "Üzgünüm, şu anda sana yardımcı olamıyorum. Lütfen biraz sonra tekrar dener misin?"

// ragSource describes one indexed document the UI knows about.
type ragSource struct {
	File  string
	ID    string
	Emoji string
}

var ragSources = []ragSource{
	{File: "Learning_Python.pdf", ID: "pdf-python", Emoji: "🐍"},
	{File: "gerekceli_anayasa.pdf", ID: "pdf-anayasa", Emoji: "⚖️"},
	{File: "clean_architecture.pdf", ID: "pdf-clean", Emoji: "🏗️"},
}

// generalQuestionKeywords gate unscoped retrieval: a message naming no
// known source must at least look like a question about documents.
var generalQuestionKeywords = []string{
	"pdf", "belge", "doküman", "özetle", "açıkla", "nedir", "nasıl", "anlat", "tanım",
}

// cleanArchKeywords route to the clean_architecture source.
var cleanArchKeywords = []string{"acyclic", "dependency", "dependencies", "principle", "principles"}

// classifier is the slice of the gateway the router needs.
type classifier interface {
	Classify(ctx context.Context, message string) domain.Flow
	Complete(ctx context.Context, system, user string) (string, error)
}

// emotionEngine runs one dual-mood exchange.
type emotionEngine interface {
	Chat(ctx context.Context, message string) (*emotion.Result, error)
}

// animalRouter resolves animal-media requests; nil means not applicable.
type animalRouter interface {
	Route(ctx context.Context, message string) (*animal.Result, error)
}

// statsEngine answers aggregate mood queries.
type statsEngine interface {
	Answer(message string) *domain.StatsResult
}

// Router is the top-level dispatcher. It holds no per-request state.
type Router struct {
	sanitizer *sanitize.Sanitizer
	gw        classifier
	retriever domain.Retriever
	emotion   emotionEngine
	animal    animalRouter
	stats     statsEngine
	audit     domain.AuditStore
	logger    *slog.Logger
	topK      int
}

// Config wires the router's collaborators. Audit may be nil.
type Config struct {
	Sanitizer *sanitize.Sanitizer
	Gateway   classifier
	Retriever domain.Retriever
	Emotion   emotionEngine
	Animal    animalRouter
	Stats     statsEngine
	Audit     domain.AuditStore
	Logger    *slog.Logger
	TopK      int
}

func New(cfg Config) *Router {
	topK := cfg.TopK
	if topK <= 0 {
		topK = 4
	}
	return &Router{
		sanitizer: cfg.Sanitizer,
		gw:        cfg.Gateway,
		retriever: cfg.Retriever,
		emotion:   cfg.Emotion,
		animal:    cfg.Animal,
		stats:     cfg.Stats,
		audit:     cfg.Audit,
		logger:    cfg.Logger,
		topK:      topK,
	}
}

// Route handles one message start to finish. It never returns nil and
// never panics a request away: validation failures fill Error, backend
// failures degrade to HELP or a fixed apology.
func (r *Router) Route(ctx context.Context, channel, message string) *domain.RouteResult {
	clean, err := r.sanitizer.Clean(message, sanitize.MaxMessageLen)
	if err != nil {
		return r.rejected(ctx, channel, err)
	}
	if tokens := sanitize.EstimateTokens(clean); tokens > maxTokens {
		metrics.InputRejected.Inc()
		return &domain.RouteResult{
			Error: fmt.Sprintf("Çok fazla token. Maksimum %d token olabilir.", maxTokens),
		}
	}

	flow := r.gw.Classify(ctx, clean)
	r.logger.Info("flow decided", "flow", flow, "channel", channel)
	metrics.FlowRequests(flow).Inc()
	if r.audit != nil {
		r.audit.LogFlow(ctx, channel, flow, clean)
	}

	switch flow {
	case domain.FlowRAG:
		if res := r.routeRAG(ctx, clean); res != nil {
			return res
		}
		return r.help()
	case domain.FlowAnimal:
		if res := r.routeAnimal(ctx, clean); res != nil {
			return res
		}
		return r.help()
	case domain.FlowStats:
		return r.routeStats(clean)
	case domain.FlowEmotion:
		return r.routeEmotion(ctx, clean)
	default:
		return r.help()
	}
}

// rejected maps sanitizer errors onto the user-visible error envelope.
// No backend call has happened at this point.
func (r *Router) rejected(ctx context.Context, channel string, err error) *domain.RouteResult {
	metrics.InputRejected.Inc()
	switch {
	case errors.Is(err, sanitize.ErrEmpty):
		return &domain.RouteResult{Error: "Mesaj boş olamaz"}
	case errors.Is(err, sanitize.ErrTooLong):
		return &domain.RouteResult{
			Error: fmt.Sprintf("Mesaj çok uzun. Maksimum %d karakter olabilir.", sanitize.MaxMessageLen),
		}
	default:
		return &domain.RouteResult{Error: "Güvenlik nedeniyle mesaj filtrelendi"}
	}
}

// routeRAG answers from the document index, or nil when the message is
// not answerable there (no source match, no chunks, dead model).
func (r *Router) routeRAG(ctx context.Context, message string) *domain.RouteResult {
	query, err := r.sanitizer.CleanQuery(message, sanitize.MaxQueryLen)
	if err != nil {
		return nil
	}

	source, ok := pickSource(query)
	var chunks []domain.Chunk
	if ok {
		chunks = r.retriever.QueryBySource(ctx, query, source, r.topK)
	} else {
		if !containsAny(strings.ToLower(query), generalQuestionKeywords) {
			return nil
		}
		chunks = r.retriever.QueryTop(ctx, query, r.topK)
	}
	metrics.IndexQueries.Inc()
	if len(chunks) == 0 {
		r.logger.Debug("no chunks retrieved", "source", source)
		return nil
	}

	var sb strings.Builder
	for i, c := range chunks {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(c.Content)
	}
	prompt := fmt.Sprintf("BAĞLAM:\n%s\n\nSORU: %s\nYANIT:", sb.String(), query)

	answer, err := r.gw.Complete(ctx, ragSystemPrompt, prompt)
	if err != nil {
		r.logger.Warn("RAG completion failed", "error", err)
		return nil
	}

	result := &domain.RouteResult{Flow: domain.FlowRAG, Response: answer}
	if !ok {
		// Unscoped retrieval: surface the first known source among the
		// retrieved chunks as the UI hint.
		source = firstKnownSource(chunks)
	}
	if ui, found := sourceInfo(source); found {
		result.RAGSource = ui.ID
		result.RAGEmoji = ui.Emoji
	}
	return result
}

func (r *Router) routeAnimal(ctx context.Context, message string) *domain.RouteResult {
	res, err := r.animal.Route(ctx, message)
	if err != nil {
		r.logger.Warn("animal flow failed", "error", err)
		return &domain.RouteResult{Flow: domain.FlowAnimal, Response: unavailableText}
	}
	if res == nil {
		return nil
	}

	out := &domain.RouteResult{
		Flow:        domain.FlowAnimal,
		Animal:      res.Animal,
		AnimalEmoji: animal.Emoji(res.Animal),
	}
	if res.Type == animal.MediaImage {
		out.ImageURL = res.ImageURL
		out.Response = fmt.Sprintf("%s %s fotoğrafı hazır.", out.AnimalEmoji, capitalize(res.Animal))
	} else {
		out.Response = res.Text
	}
	return out
}

func (r *Router) routeEmotion(ctx context.Context, message string) *domain.RouteResult {
	res, err := r.emotion.Chat(ctx, message)
	if err != nil {
		r.logger.Warn("emotion flow failed", "error", err)
		return &domain.RouteResult{Flow: domain.FlowEmotion, Response: unavailableText}
	}
	return &domain.RouteResult{
		Flow:        domain.FlowEmotion,
		Response:    res.Response,
		FirstEmoji:  res.FirstEmoji,
		SecondEmoji: res.SecondEmoji,
	}
}

func (r *Router) routeStats(message string) *domain.RouteResult {
	res := r.stats.Answer(message)
	return &domain.RouteResult{
		Flow:     domain.FlowStats,
		Response: res.Summary,
		Stats:    res,
	}
}

func (r *Router) help() *domain.RouteResult {
	return &domain.RouteResult{Flow: domain.FlowHelp, Response: helpText}
}

// pickSource maps explicit topic keywords onto an indexed document.
func pickSource(query string) (string, bool) {
	t := strings.ToLower(query)
	switch {
	case strings.Contains(t, "anayasa"):
		return "gerekceli_anayasa.pdf", true
	case strings.Contains(t, "clean architecture"),
		strings.Contains(t, "clean_architecture"),
		strings.Contains(t, "clean") && strings.Contains(t, "architecture"),
		containsAny(t, cleanArchKeywords):
		return "clean_architecture.pdf", true
	case strings.Contains(t, "python"):
		return "Learning_Python.pdf", true
	default:
		return "", false
	}
}

func sourceInfo(file string) (ragSource, bool) {
	for _, s := range ragSources {
		if s.File == file {
			return s, true
		}
	}
	return ragSource{}, false
}

func firstKnownSource(chunks []domain.Chunk) string {
	for _, c := range chunks {
		if _, ok := sourceInfo(c.Source); ok {
			return c.Source
		}
	}
	return ""
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
