package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureChunkSchema creates the pgvector table holding content chunks.
// The vector column is sized to the configured embedding dimension; a
// dimension change requires a re-ingest, not a silent migration.
func EnsureChunkSchema(ctx context.Context, pool *pgxpool.Pool, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive")
	}

	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS corpus_chunks (
			node_id TEXT NOT NULL,
			chunk_index INT NOT NULL,
			total_chunks INT NOT NULL DEFAULT 1,
			content TEXT NOT NULL,
			embedding VECTOR(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (node_id, chunk_index)
		)`, dimension),
		"CREATE INDEX IF NOT EXISTS idx_corpus_chunks_node ON corpus_chunks(node_id)",
		"CREATE INDEX IF NOT EXISTS idx_corpus_chunks_embedding ON corpus_chunks USING ivfflat (embedding vector_cosine_ops)",
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}

	return nil
}
