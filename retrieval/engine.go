package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/reliefworks/go-planner/config"
	"github.com/reliefworks/go-planner/embeddings"
	"github.com/reliefworks/go-planner/graph"
	"github.com/reliefworks/go-planner/vectors"
)

const (
	defaultTopK = 5

	// candidateMultiplier oversizes the fusion pool relative to topK so the
	// MMR re-ranker has something to choose diversity from.
	candidateMultiplier = 3
)

// Engine is the hybrid retrieval façade: the only surface the planning
// pipeline calls. It is stateless per query; the graph, the chunk store and
// the embedding cache carry all state and are never mutated here.
type Engine struct {
	graph    graph.Store
	chunks   vectors.ChunkStore
	embedder embeddings.Embedder
	cfg      config.RetrievalConfig
	logger   *logrus.Logger
}

// HybridOptions overrides the configured fusion behavior for one call.
type HybridOptions struct {
	UseRRF         bool
	UseMMR         bool
	IncludeContent bool
	GraphWeight    float64
	VectorWeight   float64
}

func NewEngine(graphStore graph.Store, chunkStore vectors.ChunkStore, embedder embeddings.Embedder, cfg config.RetrievalConfig, logger *logrus.Logger) (*Engine, error) {
	if graphStore == nil {
		return nil, fmt.Errorf("graph store is required")
	}
	if chunkStore == nil {
		return nil, fmt.Errorf("chunk store is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &Engine{
		graph:    graphStore,
		chunks:   chunkStore,
		embedder: embedder,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// Retrieve runs a single strategy and returns its raw results. Automatic
// mode is resolved into a concrete strategy before dispatch.
func (e *Engine) Retrieve(ctx context.Context, query string, mode Mode, topK int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if topK <= 0 {
		topK = defaultTopK
	}

	if mode == ModeAutomatic {
		mode = e.classifyMode(query)
		e.logger.WithFields(logrus.Fields{"query": query, "mode": mode}).Debug("automatic mode resolved")
	}

	switch mode {
	case ModeNodeName:
		return e.nodeNameResults(ctx, query, topK)
	case ModeSummary:
		results, _, err := e.summaryResults(ctx, query, topK)
		return results, err
	case ModeContent:
		results, _, err := e.contentResults(ctx, query, topK)
		return results, err
	default:
		return nil, fmt.Errorf("unknown retrieval mode: %q", mode)
	}
}

// HybridRetrieve fuses the node-name and summary strategies (plus content,
// when requested) into a single ranking, optionally re-ranked for diversity
// with MMR, and enriches the final results with their graph context.
//
// A failing embedding provider degrades the embedding lists to empty; the
// surviving keyword results come back flagged Degraded. If every strategy
// comes back empty, the call returns an empty list: no results is a valid
// outcome, not an error.
func (e *Engine) HybridRetrieve(ctx context.Context, query string, topK int, opts *HybridOptions) ([]Result, error) {
	return e.hybrid(ctx, query, topK, opts, 0)
}

// HybridRetrieveWithGraphExpansion is HybridRetrieve plus neighborhood
// boosting ahead of the final ranking.
func (e *Engine) HybridRetrieveWithGraphExpansion(ctx context.Context, query string, topK, expansionDepth int) ([]Result, error) {
	if expansionDepth <= 0 {
		expansionDepth = e.cfg.GraphExpansionDepth
	}
	return e.hybrid(ctx, query, topK, nil, expansionDepth)
}

func (e *Engine) hybrid(ctx context.Context, query string, topK int, opts *HybridOptions, expansionDepth int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if topK <= 0 {
		topK = defaultTopK
	}
	if opts == nil {
		opts = &HybridOptions{
			UseRRF:       e.cfg.UseRRF,
			UseMMR:       e.cfg.UseMMR,
			GraphWeight:  e.cfg.GraphWeight,
			VectorWeight: e.cfg.VectorWeight,
		}
	}

	candidateK := topK * candidateMultiplier

	keyword, err := e.nodeNameResults(ctx, query, candidateK)
	if err != nil {
		return nil, fmt.Errorf("node-name retrieval: %w", err)
	}

	summary, degraded, err := e.summaryResults(ctx, query, candidateK)
	if err != nil {
		return nil, fmt.Errorf("summary retrieval: %w", err)
	}

	lists := [][]Result{keyword, summary}
	if opts.IncludeContent {
		content, contentDegraded, err := e.contentResults(ctx, query, candidateK)
		if err != nil {
			return nil, fmt.Errorf("content retrieval: %w", err)
		}
		degraded = degraded || contentDegraded
		lists = append(lists, content)
	}

	total := 0
	for _, list := range lists {
		total += len(list)
	}
	if total == 0 {
		return []Result{}, nil
	}

	var combiner fuser
	if opts.UseRRF {
		combiner = rrfFuser{k: e.cfg.RRFK}
	} else {
		combiner = weightedFuser{graphWeight: opts.GraphWeight, vectorWeight: opts.VectorWeight}
	}
	fused := combiner.fuse(lists, candidateK)

	if expansionDepth > 0 && !degraded {
		queryVec, embedErr := e.embedQuery(ctx, query)
		if embedErr != nil {
			e.logDegraded("graph expansion", embedErr)
		} else {
			fused = e.applyGraphExpansion(ctx, queryVec, fused, expansionDepth)
		}
	}

	if opts.UseMMR && !degraded {
		fused = e.applyMMR(ctx, fused, e.cfg.MMRLambda, topK)
	} else if len(fused) > topK {
		fused = fused[:topK]
	}

	if degraded {
		for i := range fused {
			fused[i].Metadata.Degraded = true
		}
	}

	e.attachContext(ctx, fused, true, true)
	return fused, nil
}

// NodeContext returns a node's immediate neighborhood for prompt assembly.
func (e *Engine) NodeContext(ctx context.Context, nodeID string, includeParent, includeChildren bool) (*Context, error) {
	node, err := e.graph.Node(ctx, nodeID)
	if err != nil {
		return nil, err
	}

	nodeCtx := &Context{
		Node:    NodeRef{ID: node.ID, Title: node.Title},
		Summary: node.Summary,
	}

	if includeParent {
		parent, err := e.graph.Parent(ctx, nodeID)
		if err != nil {
			e.logger.WithError(err).WithField("node_id", nodeID).Warn("node context: parent lookup failed")
		} else if parent != nil {
			nodeCtx.Parent = &NodeRef{ID: parent.ID, Title: parent.Title}
		}
	}

	if includeChildren {
		children, err := e.graph.Children(ctx, nodeID)
		if err != nil {
			e.logger.WithError(err).WithField("node_id", nodeID).Warn("node context: children lookup failed")
		} else {
			for _, child := range children {
				nodeCtx.Children = append(nodeCtx.Children, NodeRef{ID: child.ID, Title: child.Title})
			}
		}
	}

	return nodeCtx, nil
}

func (e *Engine) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if strings.TrimSpace(query) == "" {
		return nil, embeddings.ErrEmptyInput
	}
	vecs, err := e.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("embedder returned no vectors: %w", embeddings.ErrProviderUnavailable)
	}
	return vecs[0], nil
}

func (e *Engine) logDegraded(strategy string, err error) {
	e.logger.WithError(err).WithField("strategy", strategy).Warn("embedding provider unavailable, degrading to keyword-only retrieval")
}
