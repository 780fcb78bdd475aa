package vectors

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/reliefworks/go-planner/graph"
)

// PostgresChunkStore serves content chunks from pgvector. The cosine
// distance operator keeps its scores on the same scale as the in-memory
// scan: similarity = 1 - distance.
type PostgresChunkStore struct {
	pool *pgxpool.Pool
}

func NewPostgresChunkStore(pool *pgxpool.Pool) *PostgresChunkStore {
	return &PostgresChunkStore{pool: pool}
}

func (s *PostgresChunkStore) SimilarChunks(ctx context.Context, embedding []float32, limit int) ([]ChunkMatch, error) {
	if s.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if len(embedding) == 0 {
		return nil, fmt.Errorf("embedding is empty")
	}
	if limit <= 0 {
		limit = 5
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	probes := limit * 10
	if probes < 10 {
		probes = 10
	}
	if _, err := conn.Exec(ctx, fmt.Sprintf("SET ivfflat.probes = %d", probes)); err != nil {
		return nil, fmt.Errorf("set ivfflat probes: %w", err)
	}

	rows, err := conn.Query(ctx, `
        SELECT
            node_id,
            chunk_index,
            total_chunks,
            content,
            (embedding <=> $1::vector) AS distance
        FROM corpus_chunks
        ORDER BY embedding <=> $1::vector, node_id, chunk_index
        LIMIT $2
    `, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("query similar chunks: %w", err)
	}
	defer rows.Close()

	results := make([]ChunkMatch, 0)
	for rows.Next() {
		var item ChunkMatch
		var distance float64
		if scanErr := rows.Scan(&item.NodeID, &item.ChunkIndex, &item.TotalChunks, &item.Content, &distance); scanErr != nil {
			return nil, fmt.Errorf("scan similar chunk: %w", scanErr)
		}
		item.Score = 1 - distance
		results = append(results, item)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return results, nil
}

func (s *PostgresChunkStore) AddChunk(ctx context.Context, chunk graph.ContentChunk) error {
	if s.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if err := chunk.Validate(); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx, `
        INSERT INTO corpus_chunks (node_id, chunk_index, total_chunks, content, embedding)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (node_id, chunk_index) DO UPDATE
        SET total_chunks = EXCLUDED.total_chunks,
            content = EXCLUDED.content,
            embedding = EXCLUDED.embedding,
            updated_at = NOW()
    `, chunk.NodeID, chunk.ChunkIndex, chunk.TotalChunks, chunk.Content, pgvector.NewVector(chunk.ContentEmbedding))
	if err != nil {
		return fmt.Errorf("upsert corpus chunk: %w", err)
	}
	return nil
}

var (
	_ ChunkStore  = (*PostgresChunkStore)(nil)
	_ ChunkWriter = (*PostgresChunkStore)(nil)
)
