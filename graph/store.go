package graph

import (
	"context"
	"errors"
)

// ErrNodeNotFound is returned by Node when the id is unknown to the store.
var ErrNodeNotFound = errors.New("section node not found")

// Store is the read-only view of the document graph the retrieval engine
// queries. Implementations must return nodes in a stable creation order so
// that tie-breaks stay deterministic across calls.
type Store interface {
	// Node fetches a section node by id, or ErrNodeNotFound.
	Node(ctx context.Context, id string) (*SectionNode, error)

	// NodesWithEmbeddings lists nodes carrying a summary embedding, in
	// creation order.
	NodesWithEmbeddings(ctx context.Context) ([]*SectionNode, error)

	// Children returns a node's direct children in document order.
	Children(ctx context.Context, id string) ([]*SectionNode, error)

	// Parent returns a node's parent, or nil for a document root.
	Parent(ctx context.Context, id string) (*SectionNode, error)

	// SearchByKeyword returns nodes whose title or id contains any of the
	// given lowercase terms, in creation order.
	SearchByKeyword(ctx context.Context, terms []string) ([]*SectionNode, error)
}
