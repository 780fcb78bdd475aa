package retrieval

import "sort"

// fuser combines independently ranked result lists into one ranking.
// Both implementations key documents by node id, so a section reached via
// keyword match and via embedding similarity counts as one document.
type fuser interface {
	fuse(lists [][]Result, topK int) []Result
}

type fusedDoc struct {
	result   Result
	score    float64
	bestRank int
	seq      int
}

// rrfFuser implements Reciprocal Rank Fusion: each list contributes
// 1/(k + rank) for a document at 1-based rank, summed across lists. No
// score-scale calibration between lists is needed. Ties break by a
// document's best individual rank, then by first appearance.
type rrfFuser struct {
	k int
}

func (f rrfFuser) fuse(lists [][]Result, topK int) []Result {
	docs := make(map[string]*fusedDoc)
	seq := 0

	for _, list := range lists {
		for rank, result := range list {
			doc, ok := docs[result.NodeID]
			if !ok {
				doc = &fusedDoc{result: result, bestRank: rank + 1, seq: seq}
				docs[result.NodeID] = doc
				seq++
			}
			doc.score += 1.0 / float64(f.k+rank+1)
			if rank+1 < doc.bestRank {
				doc.bestRank = rank + 1
				doc.result = result
			}
		}
	}

	return rankFused(docs, topK)
}

// weightedFuser is the legacy linear combination kept behind use_rrf=false:
// graphWeight·keywordScore + vectorWeight·embeddingScore. By convention the
// first list is the keyword list and the rest are embedding lists. Weights
// that do not sum to 1 are normalized before combining.
type weightedFuser struct {
	graphWeight  float64
	vectorWeight float64
}

func (f weightedFuser) fuse(lists [][]Result, topK int) []Result {
	gw, vw := f.graphWeight, f.vectorWeight
	if total := gw + vw; total > 0 && total != 1 {
		gw /= total
		vw /= total
	}

	docs := make(map[string]*fusedDoc)
	keyword := make(map[string]float64)
	embedding := make(map[string]float64)
	seq := 0

	for listIdx, list := range lists {
		for rank, result := range list {
			doc, ok := docs[result.NodeID]
			if !ok {
				doc = &fusedDoc{result: result, bestRank: rank + 1, seq: seq}
				docs[result.NodeID] = doc
				seq++
			}
			if rank+1 < doc.bestRank {
				doc.bestRank = rank + 1
				doc.result = result
			}
			if listIdx == 0 {
				if result.Score > keyword[result.NodeID] {
					keyword[result.NodeID] = result.Score
				}
			} else if result.Score > embedding[result.NodeID] {
				// A document keeps its best embedding score across lists.
				embedding[result.NodeID] = result.Score
			}
		}
	}

	for id, doc := range docs {
		doc.score = gw*keyword[id] + vw*embedding[id]
	}

	return rankFused(docs, topK)
}

func rankFused(docs map[string]*fusedDoc, topK int) []Result {
	fused := make([]*fusedDoc, 0, len(docs))
	for _, doc := range docs {
		fused = append(fused, doc)
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].score != fused[j].score {
			return fused[i].score > fused[j].score
		}
		if fused[i].bestRank != fused[j].bestRank {
			return fused[i].bestRank < fused[j].bestRank
		}
		return fused[i].seq < fused[j].seq
	})

	if len(fused) > topK {
		fused = fused[:topK]
	}

	results := make([]Result, len(fused))
	for i, doc := range fused {
		result := doc.result
		result.Score = doc.score
		results[i] = result
	}
	return results
}
