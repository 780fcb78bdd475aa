package vectors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reliefworks/go-planner/graph"
)

func TestMemoryChunkStoreRanksByCosine(t *testing.T) {
	store := NewMemoryChunkStore()
	ctx := context.Background()

	chunks := []graph.ContentChunk{
		{NodeID: "n1", ChunkIndex: 0, TotalChunks: 1, Content: "far", ContentEmbedding: []float32{0, 1}},
		{NodeID: "n2", ChunkIndex: 0, TotalChunks: 2, Content: "close", ContentEmbedding: []float32{1, 0.1}},
		{NodeID: "n2", ChunkIndex: 1, TotalChunks: 2, Content: "closer", ContentEmbedding: []float32{1, 0}},
	}
	for _, chunk := range chunks {
		require.NoError(t, store.AddChunk(ctx, chunk))
	}

	matches, err := store.SimilarChunks(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "closer", matches[0].Content)
	assert.Equal(t, "close", matches[1].Content)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestMemoryChunkStoreTiesKeepInsertionOrder(t *testing.T) {
	store := NewMemoryChunkStore()
	ctx := context.Background()

	require.NoError(t, store.AddChunk(ctx, graph.ContentChunk{NodeID: "first", ChunkIndex: 0, TotalChunks: 1, Content: "a", ContentEmbedding: []float32{1, 0}}))
	require.NoError(t, store.AddChunk(ctx, graph.ContentChunk{NodeID: "second", ChunkIndex: 0, TotalChunks: 1, Content: "b", ContentEmbedding: []float32{2, 0}}))

	matches, err := store.SimilarChunks(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "first", matches[0].NodeID)
	assert.Equal(t, "second", matches[1].NodeID)
}

func TestMemoryChunkStoreSkipsChunksWithoutEmbeddings(t *testing.T) {
	store := NewMemoryChunkStore()
	ctx := context.Background()

	require.NoError(t, store.AddChunk(ctx, graph.ContentChunk{NodeID: "n1", ChunkIndex: 0, TotalChunks: 1, Content: "no vector"}))

	matches, err := store.SimilarChunks(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestMemoryChunkStoreValidatesChunks(t *testing.T) {
	store := NewMemoryChunkStore()
	ctx := context.Background()

	assert.Error(t, store.AddChunk(ctx, graph.ContentChunk{NodeID: "", ChunkIndex: 0, TotalChunks: 1}))
	assert.Error(t, store.AddChunk(ctx, graph.ContentChunk{NodeID: "n", ChunkIndex: 2, TotalChunks: 2}))
	assert.Error(t, store.AddChunk(ctx, graph.ContentChunk{NodeID: "n", ChunkIndex: 0, TotalChunks: 0}))
}

func TestMemoryChunkStoreEmpty(t *testing.T) {
	store := NewMemoryChunkStore()

	matches, err := store.SimilarChunks(context.Background(), []float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, matches)
}
