package retrieval

import (
	"context"

	"github.com/reliefworks/go-planner/embeddings"
)

// applyMMR re-ranks a relevance-ordered candidate pool with Maximal
// Marginal Relevance: greedily pick the candidate maximizing
// λ·relevance − (1−λ)·maxSimilarity(candidate, selected). Candidate
// similarity reuses embedding cosine over the candidates' text. Ties break
// by original relevance rank, which also makes the first pick the most
// relevant candidate.
//
// If the provider cannot embed the candidate texts, MMR is skipped and the
// pool is returned truncated in relevance order.
func (e *Engine) applyMMR(ctx context.Context, candidates []Result, lambda float64, topK int) []Result {
	if len(candidates) <= 1 || topK <= 0 {
		if len(candidates) > topK {
			return candidates[:topK]
		}
		return candidates
	}

	texts := make([]string, len(candidates))
	for i, candidate := range candidates {
		text := candidate.Text
		if text == "" {
			text = candidate.Title
		}
		texts[i] = text
	}

	vecs, err := e.embedder.Embed(ctx, texts)
	if err != nil {
		e.logger.WithError(err).Warn("mmr: embedding candidates failed, keeping relevance order")
		if len(candidates) > topK {
			return candidates[:topK]
		}
		return candidates
	}

	selected := make([]Result, 0, topK)
	selectedVecs := make([][]float32, 0, topK)
	remaining := make([]int, len(candidates))
	for i := range remaining {
		remaining[i] = i
	}

	for len(selected) < topK && len(remaining) > 0 {
		bestPos := 0
		bestScore := mmrScore(candidates[remaining[0]].Score, vecs[remaining[0]], selectedVecs, lambda)
		for pos := 1; pos < len(remaining); pos++ {
			idx := remaining[pos]
			score := mmrScore(candidates[idx].Score, vecs[idx], selectedVecs, lambda)
			if score > bestScore {
				bestScore = score
				bestPos = pos
			}
		}

		idx := remaining[bestPos]
		selected = append(selected, candidates[idx])
		selectedVecs = append(selectedVecs, vecs[idx])
		remaining = append(remaining[:bestPos], remaining[bestPos+1:]...)
	}

	return selected
}

func mmrScore(relevance float64, vec []float32, selectedVecs [][]float32, lambda float64) float64 {
	maxSim := 0.0
	for _, selected := range selectedVecs {
		if sim := embeddings.Cosine(vec, selected); sim > maxSim {
			maxSim = sim
		}
	}
	return lambda*relevance - (1-lambda)*maxSim
}
