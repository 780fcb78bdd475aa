package vectors

import (
	"context"
	"sort"
	"sync"

	"github.com/reliefworks/go-planner/embeddings"
	"github.com/reliefworks/go-planner/graph"
)

// MemoryChunkStore keeps content chunks in process memory and answers
// similarity queries with an exact cosine scan. Ties are broken by
// insertion order so repeated queries rank identically.
type MemoryChunkStore struct {
	mu     sync.RWMutex
	chunks []graph.ContentChunk
}

func NewMemoryChunkStore() *MemoryChunkStore {
	return &MemoryChunkStore{}
}

func (s *MemoryChunkStore) AddChunk(_ context.Context, chunk graph.ContentChunk) error {
	if err := chunk.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, chunk)
	return nil
}

func (s *MemoryChunkStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

func (s *MemoryChunkStore) SimilarChunks(_ context.Context, embedding []float32, limit int) ([]ChunkMatch, error) {
	if limit <= 0 {
		limit = 5
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]ChunkMatch, 0, len(s.chunks))
	for _, chunk := range s.chunks {
		if len(chunk.ContentEmbedding) == 0 {
			continue
		}
		matches = append(matches, ChunkMatch{
			NodeID:      chunk.NodeID,
			ChunkIndex:  chunk.ChunkIndex,
			TotalChunks: chunk.TotalChunks,
			Content:     chunk.Content,
			Score:       embeddings.Cosine(embedding, chunk.ContentEmbedding),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

var (
	_ ChunkStore  = (*MemoryChunkStore)(nil)
	_ ChunkWriter = (*MemoryChunkStore)(nil)
)
