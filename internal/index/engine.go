// Package index owns the persistent vector index over the local documents
// directory and answers similarity queries for the RAG flow.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/config"
	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/domain"
)

const (
	addBatchSize = 1000
	subBatchSize = 500
)

// Engine implements domain.Retriever backed by a chromem collection.
type Engine struct {
	cfg      config.DocumentsConfig
	db       *chromem.DB
	col      *chromem.Collection
	embedder *Embedder
	logger   *slog.Logger

	initMu  sync.Mutex
	indexed bool
}

// IndexStats reports what an indexing pass did.
type IndexStats struct {
	Indexed int      `json:"indexed"`
	Skipped bool     `json:"skipped"`
	Files   []string `json:"files,omitempty"`
}

func New(cfg config.DocumentsConfig, logger *slog.Logger) (*Engine, error) {
	db, err := chromem.NewPersistentDB(cfg.StoragePath, false)
	if err != nil {
		return nil, fmt.Errorf("open vector store: %w", err)
	}

	e := &Engine{
		cfg:      cfg,
		db:       db,
		embedder: NewEmbedder(cfg.EmbedderURL, cfg.EmbedderModel, logger),
		logger:   logger,
	}

	col, err := db.GetOrCreateCollection(cfg.Collection, nil, e.embedFunc())
	if err != nil {
		return nil, fmt.Errorf("open collection %s: %w", cfg.Collection, err)
	}
	e.col = col
	return e, nil
}

// Preload warms the embedding model in the background.
func (e *Engine) Preload() { e.embedder.Preload() }

// Count returns the number of vectors currently in the collection.
func (e *Engine) Count() int { return e.col.Count() }

func (e *Engine) embedFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		impl, err := e.embedder.Get(ctx)
		if err != nil {
			return nil, err
		}
		return impl.EmbedQuery(ctx, text)
	}
}

// EnsureIndexed populates the collection from the documents dir once.
// Calls against an already-populated store are cheap no-ops.
func (e *Engine) EnsureIndexed(ctx context.Context) (IndexStats, error) {
	e.initMu.Lock()
	defer e.initMu.Unlock()

	if count := e.col.Count(); count > 0 {
		if !e.indexed {
			e.logger.Info("existing index found", "vectors", count)
			e.indexed = true
		}
		return IndexStats{Indexed: count, Skipped: true}, nil
	}
	return e.indexAll(ctx, nil)
}

// Rebuild drops the collection and indexes everything again. onFile, when
// non-nil, is called with each file name before it is processed.
func (e *Engine) Rebuild(ctx context.Context, onFile func(name string)) (IndexStats, error) {
	e.initMu.Lock()
	defer e.initMu.Unlock()

	if err := e.db.DeleteCollection(e.cfg.Collection); err != nil {
		return IndexStats{}, fmt.Errorf("drop collection: %w", err)
	}
	col, err := e.db.GetOrCreateCollection(e.cfg.Collection, nil, e.embedFunc())
	if err != nil {
		return IndexStats{}, fmt.Errorf("recreate collection: %w", err)
	}
	e.col = col
	e.indexed = false
	return e.indexAll(ctx, onFile)
}

func (e *Engine) indexAll(ctx context.Context, onFile func(name string)) (IndexStats, error) {
	files, err := newWalker(e.cfg.Include, e.cfg.Exclude).walk(e.cfg.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			e.logger.Warn("documents dir missing, nothing to index", "dir", e.cfg.Dir)
			return IndexStats{}, nil
		}
		return IndexStats{}, fmt.Errorf("scan documents dir: %w", err)
	}
	e.logger.Info("indexing documents", "files", len(files), "dir", e.cfg.Dir)

	var docs []chromem.Document
	var names []string
	for _, path := range files {
		if onFile != nil {
			onFile(filepath.Base(path))
		}
		text, err := extractText(path)
		if err != nil {
			e.logger.Warn("cannot extract document, skipping", "file", path, "err", err)
			continue
		}

		base := filepath.Base(path)
		chunks := chunkText(text, e.cfg.ChunkSize, e.cfg.ChunkOverlap)
		for i, chunk := range chunks {
			docs = append(docs, chromem.Document{
				ID:      fmt.Sprintf("%s::chunk_%d", base, i),
				Content: chunk,
				Metadata: map[string]string{
					"source":      base,
					"type":        docType(path),
					"chunk_index": strconv.Itoa(i),
				},
			})
		}
		if len(chunks) > 0 {
			names = append(names, base)
		}
		e.logger.Debug("document chunked", "file", base, "chunks", len(chunks))
	}

	if len(docs) == 0 {
		e.logger.Info("no document text to index", "dir", e.cfg.Dir)
		return IndexStats{Files: names}, nil
	}

	added := e.addBatched(ctx, docs)
	e.indexed = true
	e.logger.Info("index built", "chunks", added, "files", len(names))
	return IndexStats{Indexed: added, Files: names}, nil
}

// addBatched writes documents in batches; a failed batch is retried in
// smaller sub-batches, and a failed sub-batch is logged and skipped so one
// poisoned chunk cannot sink the whole index.
func (e *Engine) addBatched(ctx context.Context, docs []chromem.Document) int {
	added := 0
	for i := 0; i < len(docs); i += addBatchSize {
		end := min(i+addBatchSize, len(docs))
		batch := docs[i:end]

		err := e.col.AddDocuments(ctx, batch, runtime.NumCPU())
		if err == nil {
			added += len(batch)
			continue
		}
		e.logger.Warn("batch insert failed, retrying in sub-batches", "size", len(batch), "err", err)

		for j := 0; j < len(batch); j += subBatchSize {
			subEnd := min(j+subBatchSize, len(batch))
			sub := batch[j:subEnd]
			if err := e.col.AddDocuments(ctx, sub, runtime.NumCPU()); err != nil {
				e.logger.Warn("sub-batch insert failed, skipping", "size", len(sub), "err", err)
				continue
			}
			added += len(sub)
		}
	}
	return added
}

// QueryTop returns the k most similar chunks across all sources.
func (e *Engine) QueryTop(ctx context.Context, query string, k int) []domain.Chunk {
	return e.query(ctx, query, "", k)
}

// QueryBySource restricts the search to chunks from one source file.
func (e *Engine) QueryBySource(ctx context.Context, query, source string, k int) []domain.Chunk {
	return e.query(ctx, query, source, k)
}

// query degrades to an empty result on any store or embedder failure;
// the RAG flow treats empty as "not answerable here".
func (e *Engine) query(ctx context.Context, query, source string, k int) []domain.Chunk {
	if query == "" {
		return nil
	}
	if _, err := e.EnsureIndexed(ctx); err != nil {
		e.logger.Warn("index not available", "err", err)
		return nil
	}

	count := e.col.Count()
	if count == 0 {
		return nil
	}
	if k < 1 {
		k = 1
	}
	// chromem rejects nResults larger than the collection.
	if k > count {
		k = count
	}

	var where map[string]string
	if source != "" {
		where = map[string]string{"source": source}
	}

	results, err := e.col.Query(ctx, query, k, where, nil)
	if err != nil {
		e.logger.Warn("vector query failed", "err", err, "source", source)
		return nil
	}

	chunks := make([]domain.Chunk, 0, len(results))
	for _, r := range results {
		idx, _ := strconv.Atoi(r.Metadata["chunk_index"])
		chunks = append(chunks, domain.Chunk{
			ID:      r.ID,
			Source:  r.Metadata["source"],
			Content: r.Content,
			Index:   idx,
			Score:   r.Similarity,
		})
	}
	return chunks
}
