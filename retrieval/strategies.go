package retrieval

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/reliefworks/go-planner/embeddings"
	"github.com/reliefworks/go-planner/graph"
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "for": {}, "from": {}, "has": {}, "have": {}, "how": {},
	"in": {}, "is": {}, "it": {}, "of": {}, "on": {}, "or": {}, "that": {},
	"the": {}, "to": {}, "was": {}, "what": {}, "when": {}, "where": {},
	"which": {}, "who": {}, "why": {}, "will": {}, "with": {},
}

// sectionKeywords mark queries that reference a document section by name,
// which the automatic classifier routes to node-name matching.
var sectionKeywords = []string{
	"section", "chapter", "part", "annex", "appendix", "overview",
	"introduction", "summary", "protocol", "guideline",
}

var questionPrefixes = []string{
	"what", "how", "why", "when", "where", "who", "which",
	"is", "are", "can", "should", "does", "do",
}

func significantWords(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	words := make([]string, 0, len(fields))
	for _, field := range fields {
		word := strings.Trim(field, ".,;:!?\"'()[]")
		if word == "" {
			continue
		}
		if _, ok := stopwords[word]; ok {
			continue
		}
		words = append(words, word)
	}
	return words
}

// classifyMode picks a concrete strategy for an automatic-mode query from
// its shape alone: short queries naming a section go to node-name matching,
// short-to-medium queries and direct questions to summary similarity,
// everything else to content similarity.
func (e *Engine) classifyMode(query string) Mode {
	lowered := strings.ToLower(strings.TrimSpace(query))
	wordCount := len(strings.Fields(lowered))

	if wordCount < e.cfg.ShortQueryWords {
		for _, keyword := range sectionKeywords {
			if strings.Contains(lowered, keyword) {
				return ModeNodeName
			}
		}
	}

	if wordCount < e.cfg.MediumQueryWords || isQuestion(lowered) {
		return ModeSummary
	}
	return ModeContent
}

func isQuestion(lowered string) bool {
	if strings.HasSuffix(lowered, "?") {
		return true
	}
	first, _, _ := strings.Cut(lowered, " ")
	for _, prefix := range questionPrefixes {
		if first == prefix {
			return true
		}
	}
	return false
}

// nodeNameResults matches the query's significant words against node titles
// and ids. Every match scores 1.0; order follows graph traversal order.
func (e *Engine) nodeNameResults(ctx context.Context, query string, topK int) ([]Result, error) {
	terms := significantWords(query)
	if len(terms) == 0 {
		return nil, nil
	}

	nodes, err := e.graph.SearchByKeyword(ctx, terms)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(nodes))
	for _, node := range nodes {
		if len(results) == topK {
			break
		}
		results = append(results, Result{
			NodeID: node.ID,
			Title:  node.Title,
			Text:   node.Summary,
			Score:  1.0,
			Mode:   ModeNodeName,
		})
	}
	return results, nil
}

// summaryResults ranks nodes by cosine similarity between the query
// embedding and each node's summary embedding. The degraded flag reports a
// provider failure, which yields an empty list rather than an error.
func (e *Engine) summaryResults(ctx context.Context, query string, topK int) ([]Result, bool, error) {
	queryVec, err := e.embedQuery(ctx, query)
	if err != nil {
		e.logDegraded("summary", err)
		return nil, true, nil
	}

	nodes, err := e.graph.NodesWithEmbeddings(ctx)
	if err != nil {
		return nil, false, err
	}

	results := make([]Result, 0, len(nodes))
	for _, node := range nodes {
		results = append(results, Result{
			NodeID: node.ID,
			Title:  node.Title,
			Text:   node.Summary,
			Score:  embeddings.Cosine(queryVec, node.SummaryEmbedding),
			Mode:   ModeSummary,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, false, nil
}

// contentResults is the chunk-level twin of summaryResults, answering with
// chunk text instead of section summaries.
func (e *Engine) contentResults(ctx context.Context, query string, topK int) ([]Result, bool, error) {
	queryVec, err := e.embedQuery(ctx, query)
	if err != nil {
		e.logDegraded("content", err)
		return nil, true, nil
	}

	matches, err := e.chunks.SimilarChunks(ctx, queryVec, topK)
	if err != nil {
		return nil, false, err
	}

	results := make([]Result, 0, len(matches))
	for _, match := range matches {
		title := ""
		node, nodeErr := e.graph.Node(ctx, match.NodeID)
		switch {
		case nodeErr == nil:
			title = node.Title
		case errors.Is(nodeErr, graph.ErrNodeNotFound):
			// Chunk pointing at a missing section: corrupt reference,
			// skip it on the read path.
			e.logger.WithField("node_id", match.NodeID).Warn("chunk references unknown section node, skipping")
			continue
		default:
			return nil, false, nodeErr
		}

		results = append(results, Result{
			NodeID: match.NodeID,
			Title:  title,
			Text:   match.Content,
			Score:  match.Score,
			Mode:   ModeContent,
		})
	}
	return results, false, nil
}
