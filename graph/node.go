package graph

import "fmt"

// SectionNode is one heading/section in the hierarchical document graph.
// IDs are derived upstream from document name plus positional index and are
// stable across rebuilds. The summary embedding is optional: nodes are
// excluded from embedding-based retrieval until it is backfilled.
type SectionNode struct {
	ID               string    `json:"id"`
	ParentID         string    `json:"parent_id,omitempty"`
	Title            string    `json:"title"`
	Level            int       `json:"level"`
	StartLine        int       `json:"start_line"`
	EndLine          int       `json:"end_line"`
	Summary          string    `json:"summary"`
	SummaryEmbedding []float32 `json:"summary_embedding,omitempty"`
}

func (n SectionNode) HasEmbedding() bool {
	return len(n.SummaryEmbedding) > 0
}

func (n SectionNode) Validate() error {
	if n.ID == "" {
		return fmt.Errorf("section node has empty id")
	}
	if n.StartLine > n.EndLine {
		return fmt.Errorf("section node %s: start_line %d after end_line %d", n.ID, n.StartLine, n.EndLine)
	}
	return nil
}

// ContentChunk is a span of a section's raw text used for content-level
// retrieval. Sections over the token budget are split into several chunks
// with a fixed word overlap; a single-chunk section has index 0 of 1.
type ContentChunk struct {
	NodeID           string    `json:"node_id"`
	ChunkIndex       int       `json:"chunk_index"`
	TotalChunks      int       `json:"total_chunks"`
	Content          string    `json:"content"`
	ContentEmbedding []float32 `json:"content_embedding,omitempty"`
}

func (c ContentChunk) Validate() error {
	if c.NodeID == "" {
		return fmt.Errorf("content chunk has empty node id")
	}
	if c.TotalChunks < 1 || c.ChunkIndex < 0 || c.ChunkIndex >= c.TotalChunks {
		return fmt.Errorf("content chunk %s: index %d out of range for %d chunks", c.NodeID, c.ChunkIndex, c.TotalChunks)
	}
	return nil
}
