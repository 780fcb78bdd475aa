// Package snapshot loads a corpus snapshot produced by the ingestion
// pipeline: the section tree, chunked content and precomputed embeddings,
// serialized as one JSON document. The retrieval engine itself never
// writes the stores; this loader is the only writer in the repo.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/reliefworks/go-planner/graph"
	"github.com/reliefworks/go-planner/vectors"
)

type Corpus struct {
	Name   string               `json:"name"`
	Nodes  []graph.SectionNode  `json:"nodes"`
	Chunks []graph.ContentChunk `json:"chunks"`
}

func Load(path string) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus snapshot: %w", err)
	}
	defer f.Close()
	return LoadReader(f)
}

func LoadReader(r io.Reader) (*Corpus, error) {
	var corpus Corpus
	if err := json.NewDecoder(r).Decode(&corpus); err != nil {
		return nil, fmt.Errorf("decode corpus snapshot: %w", err)
	}
	if err := corpus.Validate(); err != nil {
		return nil, err
	}
	return &corpus, nil
}

// Validate checks the ingestion invariants the engine relies on: nodes come
// parents-first, ids are unique, line ranges are ordered, and every chunk
// belongs to a known node.
func (c *Corpus) Validate() error {
	seen := make(map[string]struct{}, len(c.Nodes))
	for _, node := range c.Nodes {
		if err := node.Validate(); err != nil {
			return fmt.Errorf("corpus %s: %w", c.Name, err)
		}
		if _, dup := seen[node.ID]; dup {
			return fmt.Errorf("corpus %s: duplicate node id %s", c.Name, node.ID)
		}
		if node.ParentID != "" {
			if _, ok := seen[node.ParentID]; !ok {
				return fmt.Errorf("corpus %s: node %s appears before its parent %s", c.Name, node.ID, node.ParentID)
			}
		}
		seen[node.ID] = struct{}{}
	}

	for _, chunk := range c.Chunks {
		if err := chunk.Validate(); err != nil {
			return fmt.Errorf("corpus %s: %w", c.Name, err)
		}
		if _, ok := seen[chunk.NodeID]; !ok {
			return fmt.Errorf("corpus %s: chunk references unknown node %s", c.Name, chunk.NodeID)
		}
	}

	return nil
}

// LoadMemory materializes the corpus into fresh in-memory stores.
func (c *Corpus) LoadMemory() (*graph.MemoryStore, *vectors.MemoryChunkStore, error) {
	store := graph.NewMemoryStore()
	for _, node := range c.Nodes {
		if err := store.AddNode(node); err != nil {
			return nil, nil, fmt.Errorf("load corpus node: %w", err)
		}
	}

	chunkStore := vectors.NewMemoryChunkStore()
	for _, chunk := range c.Chunks {
		if err := chunkStore.AddChunk(context.Background(), chunk); err != nil {
			return nil, nil, fmt.Errorf("load corpus chunk: %w", err)
		}
	}

	return store, chunkStore, nil
}
