package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reliefworks/go-planner/graph"
	"github.com/reliefworks/go-planner/vectors"
)

// expansionFixture: a supply section with a child very close to the query
// embedding, and an isolated section whose neighborhood carries no
// embeddings at all.
func expansionFixture(t *testing.T) *Engine {
	t.Helper()

	store := graph.NewMemoryStore()
	nodes := []graph.SectionNode{
		{ID: "doc-0", Title: "Logistics Annex", Level: 1, StartLine: 1, EndLine: 200, Summary: "Annex overview"},
		{ID: "doc-1", ParentID: "doc-0", Title: "Oxygen Supply", Level: 2, StartLine: 2, EndLine: 100, Summary: "Supply", SummaryEmbedding: []float32{0.7, 0.7, 0}},
		{ID: "doc-2", ParentID: "doc-1", Title: "Concentrator Detail", Level: 3, StartLine: 10, EndLine: 40, Summary: "Detail", SummaryEmbedding: []float32{1, 0, 0}},
		{ID: "doc-3", Title: "Orphan Topic", Level: 1, StartLine: 1, EndLine: 10, Summary: "Alone"},
	}
	for _, node := range nodes {
		require.NoError(t, store.AddNode(node))
	}

	embedder := &stubEmbedder{vectors: map[string][]float32{testQuery: {1, 0, 0}}}
	return newTestEngine(t, store, vectors.NewMemoryChunkStore(), embedder, testConfig())
}

func TestGraphExpansionBoostIsMonotonic(t *testing.T) {
	engine := expansionFixture(t)
	queryVec := []float32{1, 0, 0}

	primaries := []Result{
		{NodeID: "doc-1", Title: "Oxygen Supply", Score: 0.5},
		{NodeID: "doc-3", Title: "Orphan Topic", Score: 0.4},
	}

	boosted := engine.applyGraphExpansion(context.Background(), queryVec, primaries, 1)
	require.Len(t, boosted, 2)

	for _, result := range boosted {
		var unboosted float64
		for _, primary := range primaries {
			if primary.NodeID == result.NodeID {
				unboosted = primary.Score
			}
		}
		assert.GreaterOrEqual(t, result.Score, unboosted, "boost never subtracts")
	}

	supply := boosted[indexOf(boosted, "doc-1")]
	// doc-2's embedding matches the query exactly: boost = 0.3 * 1.0.
	assert.InDelta(t, 0.8, supply.Score, 1e-9)
	assert.Equal(t, []string{"doc-2"}, supply.Metadata.Contributors)
	assert.Equal(t, 1, supply.Metadata.RelatedCount)
}

func TestGraphExpansionWithoutEmbeddedNeighborsIsNoop(t *testing.T) {
	engine := expansionFixture(t)

	primaries := []Result{{NodeID: "doc-3", Title: "Orphan Topic", Score: 0.4}}
	boosted := engine.applyGraphExpansion(context.Background(), []float32{1, 0, 0}, primaries, 1)

	require.Len(t, boosted, 1)
	assert.Equal(t, 0.4, boosted[0].Score)
	assert.Empty(t, boosted[0].Metadata.Contributors)
	assert.Zero(t, boosted[0].Metadata.RelatedCount)
}

func TestGraphExpansionDepthTwoReachesGrandchildren(t *testing.T) {
	engine := expansionFixture(t)

	// From the annex root, doc-2 is two hops away.
	primaries := []Result{{NodeID: "doc-0", Title: "Logistics Annex", Score: 0.1}}

	shallow := engine.applyGraphExpansion(context.Background(), []float32{1, 0, 0}, primaries, 1)
	deep := engine.applyGraphExpansion(context.Background(), []float32{1, 0, 0}, primaries, 2)

	require.Len(t, shallow, 1)
	require.Len(t, deep, 1)
	assert.Greater(t, deep[0].Score, shallow[0].Score, "the exact-match grandchild only participates at depth 2")
	assert.Equal(t, 2, deep[0].Metadata.RelatedCount)
}

func TestHybridRetrieveWithGraphExpansionRanksBoostedFirst(t *testing.T) {
	engine := expansionFixture(t)

	plain, err := engine.HybridRetrieve(context.Background(), testQuery, 3, nil)
	require.NoError(t, err)
	expanded, err := engine.HybridRetrieveWithGraphExpansion(context.Background(), testQuery, 3, 1)
	require.NoError(t, err)
	require.NotEmpty(t, expanded)

	for _, result := range expanded {
		idx := indexOf(plain, result.NodeID)
		if idx == -1 {
			continue
		}
		assert.GreaterOrEqual(t, result.Score, plain[idx].Score)
	}

	again, err := engine.HybridRetrieveWithGraphExpansion(context.Background(), testQuery, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, expanded, again)
}
