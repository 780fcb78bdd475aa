package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTree(t *testing.T) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()

	nodes := []SectionNode{
		{ID: "policy-0", Title: "Emergency Response Policy", Level: 1, StartLine: 1, EndLine: 400, Summary: "Overall policy", SummaryEmbedding: []float32{1, 0}},
		{ID: "policy-1", ParentID: "policy-0", Title: "Oxygen Supply", Level: 2, StartLine: 10, EndLine: 80, Summary: "Oxygen logistics", SummaryEmbedding: []float32{0.9, 0.1}},
		{ID: "policy-2", ParentID: "policy-0", Title: "Oxygen Triage", Level: 2, StartLine: 81, EndLine: 150, Summary: "Triage protocol"},
		{ID: "policy-3", ParentID: "policy-1", Title: "Concentrator Capacity", Level: 3, StartLine: 20, EndLine: 50, Summary: "Device capacity", SummaryEmbedding: []float32{0.8, 0.2}},
	}
	for _, node := range nodes {
		require.NoError(t, store.AddNode(node))
	}
	return store
}

func TestMemoryStoreNodeLookup(t *testing.T) {
	store := buildTree(t)

	node, err := store.Node(context.Background(), "policy-2")
	require.NoError(t, err)
	assert.Equal(t, "Oxygen Triage", node.Title)

	_, err = store.Node(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestMemoryStoreRejectsInvalidNodes(t *testing.T) {
	store := NewMemoryStore()

	err := store.AddNode(SectionNode{ID: "bad", StartLine: 10, EndLine: 5})
	assert.Error(t, err)

	err = store.AddNode(SectionNode{ID: "orphan", ParentID: "nowhere", StartLine: 1, EndLine: 2})
	assert.Error(t, err, "parents must be inserted first")

	require.NoError(t, store.AddNode(SectionNode{ID: "root", StartLine: 1, EndLine: 2}))
	err = store.AddNode(SectionNode{ID: "root", StartLine: 1, EndLine: 2})
	assert.Error(t, err, "duplicate ids are rejected")
}

func TestMemoryStoreNodesWithEmbeddingsKeepsInsertionOrder(t *testing.T) {
	store := buildTree(t)

	nodes, err := store.NodesWithEmbeddings(context.Background())
	require.NoError(t, err)

	ids := make([]string, len(nodes))
	for i, node := range nodes {
		ids[i] = node.ID
	}
	assert.Equal(t, []string{"policy-0", "policy-1", "policy-3"}, ids)
}

func TestMemoryStoreHierarchy(t *testing.T) {
	store := buildTree(t)

	children, err := store.Children(context.Background(), "policy-0")
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "policy-1", children[0].ID)
	assert.Equal(t, "policy-2", children[1].ID)

	parent, err := store.Parent(context.Background(), "policy-3")
	require.NoError(t, err)
	require.NotNil(t, parent)
	assert.Equal(t, "policy-1", parent.ID)

	root, err := store.Parent(context.Background(), "policy-0")
	require.NoError(t, err)
	assert.Nil(t, root, "document root has no parent")
}

func TestMemoryStoreSearchByKeyword(t *testing.T) {
	store := buildTree(t)

	nodes, err := store.SearchByKeyword(context.Background(), []string{"oxygen"})
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "policy-1", nodes[0].ID)
	assert.Equal(t, "policy-2", nodes[1].ID)

	nodes, err = store.SearchByKeyword(context.Background(), []string{"policy-3"})
	require.NoError(t, err)
	require.Len(t, nodes, 1, "ids are matched too")

	nodes, err = store.SearchByKeyword(context.Background(), []string{"ventilator"})
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestMemoryStoreEmpty(t *testing.T) {
	store := NewMemoryStore()

	nodes, err := store.NodesWithEmbeddings(context.Background())
	require.NoError(t, err)
	assert.Empty(t, nodes)

	nodes, err = store.SearchByKeyword(context.Background(), []string{"anything"})
	require.NoError(t, err)
	assert.Empty(t, nodes)
}
