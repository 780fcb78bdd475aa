package vectors

import (
	"context"

	"github.com/reliefworks/go-planner/graph"
)

// ChunkMatch is a content chunk scored against a query embedding.
// Score is cosine similarity, higher is closer.
type ChunkMatch struct {
	NodeID      string
	ChunkIndex  int
	TotalChunks int
	Content     string
	Score       float64
}

// ChunkStore answers nearest-chunk queries over content embeddings.
type ChunkStore interface {
	SimilarChunks(ctx context.Context, embedding []float32, limit int) ([]ChunkMatch, error)
}

// ChunkWriter is the load-time counterpart of ChunkStore, used by the
// snapshot loader and never by the query path.
type ChunkWriter interface {
	AddChunk(ctx context.Context, chunk graph.ContentChunk) error
}
