package domain

import "context"

// Chunk is one retrieved slice of an indexed document.
type Chunk struct {
	ID      string  `json:"id"`
	Source  string  `json:"source"`
	Content string  `json:"content"`
	Index   int     `json:"chunk_index"`
	Score   float32 `json:"score"`
}

// Retriever serves similarity queries over the document index. Lookups
// degrade to empty results rather than errors: a cold or broken index
// must never take the conversation down with it.
type Retriever interface {
	QueryTop(ctx context.Context, query string, k int) []Chunk
	QueryBySource(ctx context.Context, query, source string, k int) []Chunk
}
