package snapshot

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/reliefworks/go-planner/graph"
	"github.com/reliefworks/go-planner/vectors"
)

// Sync pushes the corpus into the durable stores: the section tree into
// Neo4j and the content chunks into pgvector. Individual chunk failures are
// logged and skipped so one bad row does not abort a corpus load, matching
// how a partial corpus still serves queries.
func (c *Corpus) Sync(ctx context.Context, graphStore *graph.Neo4jStore, chunks vectors.ChunkWriter, logger *logrus.Logger) error {
	if logger == nil {
		logger = logrus.New()
	}

	if err := graphStore.SyncNodes(ctx, c.Nodes); err != nil {
		return fmt.Errorf("sync section nodes: %w", err)
	}
	logger.WithFields(logrus.Fields{"corpus": c.Name, "nodes": len(c.Nodes)}).Info("synced section tree")

	failed := 0
	for _, chunk := range c.Chunks {
		if err := chunks.AddChunk(ctx, chunk); err != nil {
			failed++
			logger.WithError(err).WithFields(logrus.Fields{
				"node_id":     chunk.NodeID,
				"chunk_index": chunk.ChunkIndex,
			}).Warn("sync chunk failed")
		}
	}

	logger.WithFields(logrus.Fields{
		"corpus": c.Name,
		"chunks": len(c.Chunks) - failed,
		"failed": failed,
	}).Info("synced content chunks")

	if failed == len(c.Chunks) && failed > 0 {
		return fmt.Errorf("sync chunks: all %d chunks failed", failed)
	}
	return nil
}
