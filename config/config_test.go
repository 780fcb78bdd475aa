package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ProviderOllama, cfg.Embeddings.Provider)
	assert.Equal(t, 768, cfg.Embeddings.Dimension)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)

	assert.True(t, cfg.Retrieval.UseRRF)
	assert.True(t, cfg.Retrieval.UseMMR)
	assert.Equal(t, 0.7, cfg.Retrieval.MMRLambda)
	assert.Equal(t, 60, cfg.Retrieval.RRFK)
	assert.Equal(t, 1, cfg.Retrieval.GraphExpansionDepth)
	assert.Equal(t, 0.3, cfg.Retrieval.GraphExpansionBoost)
	assert.Equal(t, 50, cfg.Retrieval.EmbeddingBatchSize)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("RAG_USE_RRF", "false")
	t.Setenv("RAG_MMR_LAMBDA", "0.4")
	t.Setenv("RAG_RRF_K", "30")
	t.Setenv("EMBEDDINGS_DIMENSION", "1536")
	t.Setenv("STORE_BACKEND", "database")

	cfg := Load()
	assert.False(t, cfg.Retrieval.UseRRF)
	assert.Equal(t, 0.4, cfg.Retrieval.MMRLambda)
	assert.Equal(t, 30, cfg.Retrieval.RRFK)
	assert.Equal(t, 1536, cfg.Embeddings.Dimension)
	assert.Equal(t, BackendDatabase, cfg.StoreBackend)
}

func TestLoadIgnoresUnparseableValues(t *testing.T) {
	t.Setenv("RAG_MMR_LAMBDA", "very diverse please")
	t.Setenv("RAG_RRF_K", "sixty")

	cfg := Load()
	assert.Equal(t, 0.7, cfg.Retrieval.MMRLambda)
	assert.Equal(t, 60, cfg.Retrieval.RRFK)
}

func TestValidateAcceptsDefaults(t *testing.T) {
	require.NoError(t, Load().Validate())
}

func TestValidateRejectsBadSettings(t *testing.T) {
	base := Load()

	cfg := base
	cfg.Embeddings.Dimension = 0
	assert.Error(t, cfg.Validate(), "zero dimension")

	cfg = base
	cfg.Retrieval.MMRLambda = -0.1
	assert.Error(t, cfg.Validate(), "lambda below range")

	cfg = base
	cfg.Retrieval.MMRLambda = 1.1
	assert.Error(t, cfg.Validate(), "lambda above range")

	cfg = base
	cfg.Retrieval.RRFK = 0
	assert.Error(t, cfg.Validate(), "non-positive rrf k")

	cfg = base
	cfg.Retrieval.GraphWeight = 0
	cfg.Retrieval.VectorWeight = 0
	assert.Error(t, cfg.Validate(), "weights with zero sum")

	cfg = base
	cfg.Retrieval.GraphWeight = -1
	assert.Error(t, cfg.Validate(), "negative weight")

	cfg = base
	cfg.Retrieval.GraphExpansionBoost = -0.5
	assert.Error(t, cfg.Validate(), "negative boost")

	cfg = base
	cfg.StoreBackend = "cloud"
	assert.Error(t, cfg.Validate(), "unknown backend")

	cfg = base
	cfg.Embeddings.Provider = ProviderOpenAI
	cfg.OpenAIAPIKey = ""
	assert.Error(t, cfg.Validate(), "openai without key")
}
