package index

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
)

// loadWaitTimeout bounds how long a caller waits for an in-flight
// background load before loading the model itself.
const loadWaitTimeout = 30 * time.Second

// Embedder lazily initializes the embedding model. The first load includes
// a warm-up query so the serving side pulls the model into memory before
// any user query depends on it.
type Embedder struct {
	serverURL string
	model     string
	logger    *slog.Logger

	mu       sync.Mutex
	impl     *embeddings.EmbedderImpl
	inflight chan struct{} // non-nil while a load is running
}

func NewEmbedder(serverURL, model string, logger *slog.Logger) *Embedder {
	return &Embedder{
		serverURL: serverURL,
		model:     model,
		logger:    logger,
	}
}

// Preload starts loading the embedding model in the background so the
// first RAG query does not absorb the warm-up cost.
func (e *Embedder) Preload() {
	go func() {
		if _, err := e.Get(context.Background()); err != nil {
			e.logger.Warn("embedder preload failed", "error", err)
		}
	}()
}

// Get returns the ready embedder. When another goroutine is already
// loading, it waits up to loadWaitTimeout for that load to finish before
// loading synchronously itself. Concurrent callers share one load.
func (e *Embedder) Get(ctx context.Context) (*embeddings.EmbedderImpl, error) {
	e.mu.Lock()
	if e.impl != nil {
		impl := e.impl
		e.mu.Unlock()
		return impl, nil
	}
	if e.inflight != nil {
		ch := e.inflight
		e.mu.Unlock()

		select {
		case <-ch:
		case <-time.After(loadWaitTimeout):
			e.logger.Warn("embedder still loading after wait, forcing synchronous load")
			return e.loadAndStore(ctx)
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		e.mu.Lock()
		impl := e.impl
		e.mu.Unlock()
		if impl != nil {
			return impl, nil
		}
		// The in-flight load failed; make our own attempt.
		return e.loadAndStore(ctx)
	}

	ch := make(chan struct{})
	e.inflight = ch
	e.mu.Unlock()

	impl, err := e.load(ctx)

	e.mu.Lock()
	if err == nil {
		e.impl = impl
	}
	e.inflight = nil
	e.mu.Unlock()
	close(ch)

	return impl, err
}

func (e *Embedder) loadAndStore(ctx context.Context) (*embeddings.EmbedderImpl, error) {
	impl, err := e.load(ctx)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	if e.impl == nil {
		e.impl = impl
	} else {
		impl = e.impl
	}
	e.mu.Unlock()
	return impl, nil
}

func (e *Embedder) load(ctx context.Context) (*embeddings.EmbedderImpl, error) {
	e.logger.Info("loading embedding model", "model", e.model, "server", e.serverURL)

	llm, err := ollama.New(
		ollama.WithServerURL(e.serverURL),
		ollama.WithModel(e.model),
	)
	if err != nil {
		return nil, fmt.Errorf("init embedding client: %w", err)
	}
	impl, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	// Warm-up query; this is what actually loads the model server-side.
	if _, err := impl.EmbedQuery(ctx, "merhaba"); err != nil {
		return nil, fmt.Errorf("embedder warm-up: %w", err)
	}

	e.logger.Info("embedding model ready", "model", e.model)
	return impl, nil
}
