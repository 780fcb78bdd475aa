package graph

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MemoryStore holds the section tree in process memory. It is the backend
// used in tests and for corpora small enough to load from a snapshot; all
// listings follow insertion order, which makes tie-breaks reproducible.
//
// The store is write-once in practice (populated by the snapshot loader,
// then only read), but the mutex keeps concurrent loads safe anyway.
type MemoryStore struct {
	mu       sync.RWMutex
	nodes    map[string]*SectionNode
	order    []string
	children map[string][]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes:    make(map[string]*SectionNode),
		children: make(map[string][]string),
	}
}

// AddNode inserts a node. Parents must be inserted before their children;
// a dangling parent reference is a construction error here, unlike on the
// read path where it is merely skipped.
func (s *MemoryStore) AddNode(node SectionNode) error {
	if err := node.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.nodes[node.ID]; exists {
		return fmt.Errorf("duplicate section node id %s", node.ID)
	}
	if node.ParentID != "" {
		if _, ok := s.nodes[node.ParentID]; !ok {
			return fmt.Errorf("section node %s references unknown parent %s", node.ID, node.ParentID)
		}
	}

	stored := node
	s.nodes[node.ID] = &stored
	s.order = append(s.order, node.ID)
	if node.ParentID != "" {
		s.children[node.ParentID] = append(s.children[node.ParentID], node.ID)
	}
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func (s *MemoryStore) Node(_ context.Context, id string) (*SectionNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node %s: %w", id, ErrNodeNotFound)
	}
	copied := *node
	return &copied, nil
}

func (s *MemoryStore) NodesWithEmbeddings(_ context.Context) ([]*SectionNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*SectionNode, 0, len(s.order))
	for _, id := range s.order {
		node := s.nodes[id]
		if !node.HasEmbedding() {
			continue
		}
		copied := *node
		results = append(results, &copied)
	}
	return results, nil
}

func (s *MemoryStore) Children(_ context.Context, id string) ([]*SectionNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.children[id]
	results := make([]*SectionNode, 0, len(ids))
	for _, childID := range ids {
		node, ok := s.nodes[childID]
		if !ok {
			continue
		}
		copied := *node
		results = append(results, &copied)
	}
	return results, nil
}

func (s *MemoryStore) Parent(_ context.Context, id string) (*SectionNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node %s: %w", id, ErrNodeNotFound)
	}
	if node.ParentID == "" {
		return nil, nil
	}
	parent, ok := s.nodes[node.ParentID]
	if !ok {
		// Dangling reference; treat as absent on the read path.
		return nil, nil
	}
	copied := *parent
	return &copied, nil
}

func (s *MemoryStore) SearchByKeyword(_ context.Context, terms []string) ([]*SectionNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*SectionNode, 0)
	for _, id := range s.order {
		node := s.nodes[id]
		title := strings.ToLower(node.Title)
		lowered := strings.ToLower(node.ID)
		for _, term := range terms {
			if term == "" {
				continue
			}
			if strings.Contains(title, term) || strings.Contains(lowered, term) {
				copied := *node
				results = append(results, &copied)
				break
			}
		}
	}
	return results, nil
}

var _ Store = (*MemoryStore)(nil)
