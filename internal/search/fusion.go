package search

import (
	"fmt"
	"sort"

	"github.com/docstack/manualrag/internal/store"
)

// combine merges the two candidate lists into one deduplicated, normalized,
// ordered list.
//
// Each channel is normalized by its own maximum score so cosine similarity
// and raw BM25 magnitude occupy comparable [0,1] ranges. Dense results seed
// the list; a lexical hit on an already-seen chunk blends into the dense
// score (dense is the primary signal, lexical corroborates), an unseen
// lexical chunk joins at its normalized score. The channel weights apply
// only to the blend: single-channel results carry their own score.
func combine(dense, lexical []store.ScoredChunk, denseWeight, lexicalWeight float64) []Result {
	denseMax := maxScore(dense)
	lexicalMax := maxScore(lexical)

	results := make([]Result, 0, len(dense)+len(lexical))
	byID := make(map[string]int, len(dense))

	for _, sc := range dense {
		score := sc.Score / denseMax
		byID[sc.Chunk.ID] = len(results)
		results = append(results, Result{
			Chunk:       sc.Chunk,
			Score:       score,
			Explanation: fmt.Sprintf("Vector: %.3f", score),
		})
	}

	for _, sc := range lexical {
		score := sc.Score / lexicalMax
		if idx, seen := byID[sc.Chunk.ID]; seen {
			blended := denseWeight*results[idx].Score + lexicalWeight*score
			results[idx].Score = blended
			results[idx].Explanation = fmt.Sprintf("Hybrid: %.3f", blended)
			continue
		}
		byID[sc.Chunk.ID] = len(results)
		results = append(results, Result{
			Chunk:       sc.Chunk,
			Score:       score,
			Explanation: fmt.Sprintf("Lexical: %.3f", score),
		})
	}

	// Stable sort: exact ties keep encounter order (dense list first).
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// maxScore returns the channel's maximum score, defaulting to 1.0 for an
// empty channel so normalization never divides by zero.
func maxScore(list []store.ScoredChunk) float64 {
	max := 0.0
	for _, sc := range list {
		if sc.Score > max {
			max = sc.Score
		}
	}
	if max <= 0 {
		return 1.0
	}
	return max
}
