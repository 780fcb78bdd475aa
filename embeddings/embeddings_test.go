package embeddings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reliefworks/go-planner/config"
)

func TestCosineSelfSimilarity(t *testing.T) {
	vec := []float32{0.3, -0.5, 0.8, 0.1}
	assert.InDelta(t, 1.0, Cosine(vec, vec), 1e-9)
}

func TestCosineBounds(t *testing.T) {
	cases := [][2][]float32{
		{{1, 0}, {0, 1}},
		{{1, 0}, {-1, 0}},
		{{0.5, 0.5}, {0.5, -0.5}},
		{{3, 4}, {4, 3}},
	}
	for _, pair := range cases {
		sim := Cosine(pair[0], pair[1])
		assert.GreaterOrEqual(t, sim, -1.0)
		assert.LessOrEqual(t, sim, 1.0)
	}
}

func TestCosineOppositeVectors(t *testing.T) {
	assert.InDelta(t, -1.0, Cosine([]float32{1, 2}, []float32{-1, -2}), 1e-9)
}

func TestCosineDegenerateInputs(t *testing.T) {
	assert.Equal(t, 0.0, Cosine([]float32{1, 2}, []float32{1, 2, 3}))
	assert.Equal(t, 0.0, Cosine(nil, nil))
	assert.Equal(t, 0.0, Cosine([]float32{0, 0}, []float32{1, 1}))
}

func TestNewEmbedderUnknownProvider(t *testing.T) {
	cfg := config.Config{}
	cfg.Embeddings.Provider = "duckdb"

	_, err := NewEmbedder(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown embedding provider")
}

func TestNewEmbedderOpenAIRequiresKey(t *testing.T) {
	cfg := config.Config{}
	cfg.Embeddings.Provider = config.ProviderOpenAI

	_, err := NewEmbedder(cfg)
	require.Error(t, err)
}
