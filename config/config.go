package config

import (
	"fmt"
	"os"
	"strconv"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"

	BackendMemory   = "memory"
	BackendDatabase = "database"
)

type EmbeddingsConfig struct {
	Provider  string
	Model     string
	Dimension int
}

// RetrievalConfig carries the tuning surface of the hybrid retrieval engine.
// All values have working defaults; Validate rejects out-of-range settings
// at startup rather than at query time.
type RetrievalConfig struct {
	UseRRF              bool
	UseMMR              bool
	MMRLambda           float64
	RRFK                int
	GraphExpansionDepth int
	GraphExpansionBoost float64
	GraphWeight         float64
	VectorWeight        float64
	ShortQueryWords     int
	MediumQueryWords    int
	EmbeddingBatchSize  int
}

type Config struct {
	PostgresDSN string
	Neo4jURI    string
	Neo4jUser   string
	Neo4jPass   string

	OllamaHost    string
	OpenAIAPIKey  string
	OpenAIBaseURL string

	ListenAddr   string
	CorpusPath   string
	StoreBackend string

	Embeddings EmbeddingsConfig
	Retrieval  RetrievalConfig
}

func Load() Config {
	return Config{
		PostgresDSN: getEnv("POSTGRES_DSN", "postgres://localhost:5432/go-planner?sslmode=disable"),
		Neo4jURI:    getEnv("NEO4J_URI", "neo4j://localhost:7687"),
		Neo4jUser:   getEnv("NEO4J_USERNAME", "neo4j"),
		Neo4jPass:   getEnv("NEO4J_PASSWORD", "password"),

		OllamaHost:    getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),

		ListenAddr:   getEnv("LISTEN_ADDR", ":8080"),
		CorpusPath:   getEnv("CORPUS_PATH", "corpus.json"),
		StoreBackend: getEnv("STORE_BACKEND", BackendMemory),

		Embeddings: EmbeddingsConfig{
			Provider:  getEnv("EMBEDDINGS_PROVIDER", ProviderOllama),
			Model:     getEnv("EMBEDDINGS_MODEL", "nomic-embed-text"),
			Dimension: getEnvInt("EMBEDDINGS_DIMENSION", 768),
		},

		Retrieval: RetrievalConfig{
			UseRRF:              getEnvBool("RAG_USE_RRF", true),
			UseMMR:              getEnvBool("RAG_USE_MMR", true),
			MMRLambda:           getEnvFloat("RAG_MMR_LAMBDA", 0.7),
			RRFK:                getEnvInt("RAG_RRF_K", 60),
			GraphExpansionDepth: getEnvInt("RAG_GRAPH_EXPANSION_DEPTH", 1),
			GraphExpansionBoost: getEnvFloat("RAG_GRAPH_EXPANSION_BOOST", 0.3),
			GraphWeight:         getEnvFloat("RAG_GRAPH_WEIGHT", 0.4),
			VectorWeight:        getEnvFloat("RAG_VECTOR_WEIGHT", 0.6),
			ShortQueryWords:     getEnvInt("RAG_SHORT_QUERY_WORDS", 10),
			MediumQueryWords:    getEnvInt("RAG_MEDIUM_QUERY_WORDS", 15),
			EmbeddingBatchSize:  getEnvInt("EMBEDDINGS_BATCH_SIZE", 50),
		},
	}
}

// Validate fails fast on settings that would otherwise surface as silent
// scoring bugs deep inside a query.
func (c Config) Validate() error {
	if c.Embeddings.Dimension <= 0 {
		return fmt.Errorf("config: embedding dimension must be positive, got %d", c.Embeddings.Dimension)
	}
	if c.Embeddings.Provider == ProviderOpenAI && c.OpenAIAPIKey == "" {
		return fmt.Errorf("config: openai provider selected but OPENAI_API_KEY not set")
	}
	if c.StoreBackend != BackendMemory && c.StoreBackend != BackendDatabase {
		return fmt.Errorf("config: unknown store backend %q", c.StoreBackend)
	}
	return c.Retrieval.Validate()
}

func (r RetrievalConfig) Validate() error {
	if r.MMRLambda < 0 || r.MMRLambda > 1 {
		return fmt.Errorf("config: mmr lambda must be in [0,1], got %g", r.MMRLambda)
	}
	if r.RRFK <= 0 {
		return fmt.Errorf("config: rrf k must be positive, got %d", r.RRFK)
	}
	if r.GraphExpansionDepth < 0 {
		return fmt.Errorf("config: graph expansion depth must be non-negative, got %d", r.GraphExpansionDepth)
	}
	if r.GraphExpansionBoost < 0 {
		return fmt.Errorf("config: graph expansion boost must be non-negative, got %g", r.GraphExpansionBoost)
	}
	if r.GraphWeight < 0 || r.VectorWeight < 0 || r.GraphWeight+r.VectorWeight <= 0 {
		return fmt.Errorf("config: graph/vector weights must be non-negative with a positive sum, got %g/%g", r.GraphWeight, r.VectorWeight)
	}
	if r.ShortQueryWords <= 0 || r.MediumQueryWords < r.ShortQueryWords {
		return fmt.Errorf("config: query word thresholds must satisfy 0 < short <= medium, got %d/%d", r.ShortQueryWords, r.MediumQueryWords)
	}
	if r.EmbeddingBatchSize <= 0 {
		return fmt.Errorf("config: embedding batch size must be positive, got %d", r.EmbeddingBatchSize)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
