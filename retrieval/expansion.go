package retrieval

import (
	"context"
	"sort"

	"github.com/reliefworks/go-planner/embeddings"
	"github.com/reliefworks/go-planner/graph"
)

// applyGraphExpansion boosts each result's score from its graph
// neighborhood: walk parent/child edges up to depth hops, take the best
// cosine similarity between the query and any reachable neighbor's summary
// embedding, and add boost·maxSimilarity. The boost never subtracts, so a
// boosted score is always >= the unboosted one; neighbors without
// embeddings simply do not participate.
//
// Traversal keeps a visited set, so a malformed (cyclic) graph degenerates
// into a bounded walk instead of a loop.
func (e *Engine) applyGraphExpansion(ctx context.Context, queryVec []float32, results []Result, depth int) []Result {
	if len(queryVec) == 0 || depth <= 0 || e.cfg.GraphExpansionBoost == 0 {
		return results
	}

	boosted := make([]Result, len(results))
	copy(boosted, results)

	for i := range boosted {
		neighbors := e.neighborhood(ctx, boosted[i].NodeID, depth)
		if len(neighbors) == 0 {
			continue
		}

		maxSim := 0.0
		contributors := []string{}
		withEmbeddings := 0
		for _, neighbor := range neighbors {
			if !neighbor.HasEmbedding() {
				continue
			}
			withEmbeddings++
			sim := embeddings.Cosine(queryVec, neighbor.SummaryEmbedding)
			switch {
			case sim > maxSim:
				maxSim = sim
				contributors = []string{neighbor.ID}
			case sim == maxSim && maxSim > 0:
				contributors = append(contributors, neighbor.ID)
			}
		}

		boosted[i].Metadata.RelatedCount = withEmbeddings
		if maxSim > 0 {
			boosted[i].Score += e.cfg.GraphExpansionBoost * maxSim
			boosted[i].Metadata.Contributors = contributors
		}
	}

	sort.SliceStable(boosted, func(i, j int) bool {
		return boosted[i].Score > boosted[j].Score
	})
	return boosted
}

// neighborhood collects the nodes reachable from id within depth hops over
// parent/child edges, excluding the origin. Store errors and dangling
// references are logged and skipped: graph corruption degrades the boost,
// never the query.
func (e *Engine) neighborhood(ctx context.Context, id string, depth int) []*graph.SectionNode {
	visited := map[string]struct{}{id: {}}
	frontier := []string{id}
	neighbors := make([]*graph.SectionNode, 0)

	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		next := make([]string, 0)
		for _, nodeID := range frontier {
			if parent, err := e.graph.Parent(ctx, nodeID); err != nil {
				e.logger.WithError(err).WithField("node_id", nodeID).Warn("graph expansion: parent lookup failed")
			} else if parent != nil {
				if _, seen := visited[parent.ID]; !seen {
					visited[parent.ID] = struct{}{}
					neighbors = append(neighbors, parent)
					next = append(next, parent.ID)
				}
			}

			children, err := e.graph.Children(ctx, nodeID)
			if err != nil {
				e.logger.WithError(err).WithField("node_id", nodeID).Warn("graph expansion: children lookup failed")
				continue
			}
			for _, child := range children {
				if _, seen := visited[child.ID]; seen {
					continue
				}
				visited[child.ID] = struct{}{}
				neighbors = append(neighbors, child)
				next = append(next, child.ID)
			}
		}
		frontier = next
	}

	return neighbors
}

// attachContext enriches results with their immediate parent and children
// under metadata. Ranking is untouched; this exists purely for downstream
// prompt assembly.
func (e *Engine) attachContext(ctx context.Context, results []Result, includeParent, includeChildren bool) {
	if !includeParent && !includeChildren {
		return
	}

	for i := range results {
		if includeParent {
			parent, err := e.graph.Parent(ctx, results[i].NodeID)
			if err != nil {
				e.logger.WithError(err).WithField("node_id", results[i].NodeID).Warn("context window: parent lookup failed")
			} else if parent != nil {
				results[i].Metadata.Parent = &NodeRef{ID: parent.ID, Title: parent.Title}
			}
		}

		if includeChildren {
			children, err := e.graph.Children(ctx, results[i].NodeID)
			if err != nil {
				e.logger.WithError(err).WithField("node_id", results[i].NodeID).Warn("context window: children lookup failed")
				continue
			}
			refs := make([]NodeRef, 0, len(children))
			for _, child := range children {
				refs = append(refs, NodeRef{ID: child.ID, Title: child.Title})
			}
			if len(refs) > 0 {
				results[i].Metadata.Children = refs
			}
		}
	}
}
