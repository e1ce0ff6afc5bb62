// Package channel holds the user-facing surfaces (web, CLI, Telegram,
// Discord). Channels own presentation; the flow router owns semantics.
package channel

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/config"
	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/domain"
	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/metrics"
)

const (
	maxChatBodySize = 16 << 10
	shutdownTimeout = 5 * time.Second
)

//go:embed static/*
var staticFS embed.FS

// Web serves the chat HTTP API and the bundled single-page UI.
type Web struct {
	host           string
	port           int
	allowedOrigins []string
	staticDir      string
	metricsCfg     config.MetricsConfig
	logger         *slog.Logger

	router domain.Router
	server *http.Server
}

func NewWeb(cfg config.WebConfig, metricsCfg config.MetricsConfig, logger *slog.Logger) *Web {
	host := cfg.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port == 0 {
		port = 8000
	}
	return &Web{
		host:           host,
		port:           port,
		allowedOrigins: cfg.AllowedOrigins,
		staticDir:      cfg.StaticDir,
		metricsCfg:     metricsCfg,
		logger:         logger,
	}
}

func (w *Web) Name() string { return "web" }

// Start serves until ctx is cancelled, then shuts down gracefully.
func (w *Web) Start(ctx context.Context, router domain.Router) error {
	w.router = router

	r := mux.NewRouter()
	r.HandleFunc("/chat", w.handleChat).Methods(http.MethodPost)
	r.HandleFunc("/healthz", w.handleHealth).Methods(http.MethodGet)
	if w.metricsCfg.Enabled {
		endpoint := w.metricsCfg.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.Handle(endpoint, metrics.Collector.Handler()).Methods(http.MethodGet)
	}
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(w.assets()))).Methods(http.MethodGet)
	r.HandleFunc("/", w.handleIndex).Methods(http.MethodGet)

	origins := w.allowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	handler := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(r)

	addr := fmt.Sprintf("%s:%d", w.host, w.port)
	w.server = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		w.server.Shutdown(shutdownCtx)
	}()

	w.logger.Info("web channel listening", "addr", "http://"+addr)
	if err := w.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (w *Web) Stop() error {
	if w.server != nil {
		return w.server.Close()
	}
	return nil
}

// assets returns the static asset filesystem: a configured directory
// overrides the embedded files.
func (w *Web) assets() http.FileSystem {
	if w.staticDir != "" {
		return http.Dir(w.staticDir)
	}
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// static/ is embedded at build time, Sub cannot fail on it.
		panic(err)
	}
	return http.FS(sub)
}

func (w *Web) handleIndex(rw http.ResponseWriter, r *http.Request) {
	f, err := w.assets().Open("index.html")
	if err != nil {
		http.Error(rw, "index sayfası bulunamadı", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	rw.Header().Set("Content-Type", "text/html; charset=utf-8")
	stat, _ := f.Stat()
	http.ServeContent(rw, r, "index.html", stat.ModTime(), f)
}

// handleChat is the one inbound API contract: {message} in, the routed
// result envelope out. Routing problems live inside the envelope, so
// the status is 200 unless the request itself is malformed.
func (w *Web) handleChat(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "application/json; charset=utf-8")

	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(rw, r.Body, maxChatBodySize)).Decode(&req); err != nil {
		rw.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(rw).Encode(map[string]string{"error": "Geçersiz istek gövdesi"})
		return
	}

	result := w.router.Route(r.Context(), "web", req.Message)
	json.NewEncoder(rw).Encode(result)
}

func (w *Web) handleHealth(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "application/json")
	json.NewEncoder(rw).Encode(map[string]string{"status": "ok"})
}
