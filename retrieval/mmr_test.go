package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mmrFixtureEngine(t *testing.T) (*Engine, []Result) {
	t.Helper()
	store, chunks, _ := fixture(t)

	// B and C are near-duplicates; A and D are distinct from everything.
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"text A": {1, 0, 0},
		"text B": {0, 1, 0},
		"text C": {0, 1, 0},
		"text D": {0, 0, 1},
	}}
	engine := newTestEngine(t, store, chunks, embedder, testConfig())

	candidates := []Result{
		{NodeID: "A", Text: "text A", Score: 0.9},
		{NodeID: "B", Text: "text B", Score: 0.8},
		{NodeID: "C", Text: "text C", Score: 0.75},
		{NodeID: "D", Text: "text D", Score: 0.5},
	}
	return engine, candidates
}

func TestMMRSuppressesNearDuplicates(t *testing.T) {
	engine, candidates := mmrFixtureEngine(t)

	selected := engine.applyMMR(context.Background(), candidates, 0.5, 3)
	require.Len(t, selected, 3)

	assert.Equal(t, "A", selected[0].NodeID, "most relevant candidate is picked first")
	assert.Equal(t, "B", selected[1].NodeID)
	assert.Equal(t, "D", selected[2].NodeID, "duplicate C loses to distinct D")

	for _, result := range selected {
		assert.NotEqual(t, "C", result.NodeID)
	}
}

func TestMMRDeterministic(t *testing.T) {
	engine, candidates := mmrFixtureEngine(t)

	first := engine.applyMMR(context.Background(), candidates, 0.5, 3)
	second := engine.applyMMR(context.Background(), candidates, 0.5, 3)
	assert.Equal(t, first, second)
}

func TestMMRExhaustsSmallPools(t *testing.T) {
	engine, candidates := mmrFixtureEngine(t)

	selected := engine.applyMMR(context.Background(), candidates[:2], 0.7, 5)
	assert.Len(t, selected, 2, "stop when the pool is exhausted")
}

func TestMMRRelevanceLeaningLambdaKeepsOrder(t *testing.T) {
	engine, candidates := mmrFixtureEngine(t)

	// λ=1 means pure relevance: original order survives untouched.
	selected := engine.applyMMR(context.Background(), candidates, 1.0, 4)
	require.Len(t, selected, 4)
	assert.Equal(t, "A", selected[0].NodeID)
	assert.Equal(t, "B", selected[1].NodeID)
	assert.Equal(t, "C", selected[2].NodeID)
	assert.Equal(t, "D", selected[3].NodeID)
}

func TestMMRSkippedWhenProviderFails(t *testing.T) {
	store, chunks, _ := fixture(t)
	embedder := &stubEmbedder{fail: true}
	engine := newTestEngine(t, store, chunks, embedder, testConfig())

	candidates := []Result{
		{NodeID: "A", Text: "text A", Score: 0.9},
		{NodeID: "B", Text: "text B", Score: 0.8},
		{NodeID: "C", Text: "text C", Score: 0.7},
	}

	selected := engine.applyMMR(context.Background(), candidates, 0.5, 2)
	require.Len(t, selected, 2, "relevance order survives a provider outage")
	assert.Equal(t, "A", selected[0].NodeID)
	assert.Equal(t, "B", selected[1].NodeID)
}
