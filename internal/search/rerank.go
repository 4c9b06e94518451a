package search

import (
	"context"
	"fmt"
	"sort"
	"unicode/utf8"
)

// rerankPairMaxChars caps the content excerpt paired with the query for
// cross-encoder scoring.
const rerankPairMaxChars = 200

// rerankStage re-scores the fused list with the cross-encoder and blends the
// two signals. The cross-encoder dominates: it has seen the query and a
// content excerpt jointly, unlike the two independent channels.
//
// Returns new Result values; the fused input is left untouched so a fallback
// to fused order is always possible.
func (e *Engine) rerankStage(ctx context.Context, query string, fused []Result) ([]Result, error) {
	texts := make([]string, len(fused))
	for i, r := range fused {
		texts[i] = rerankPairText(r.Chunk.Title, r.Chunk.Content)
	}

	scores, err := e.submitScoring(ctx, query, texts)
	if err != nil {
		return nil, err
	}
	if len(scores) != len(fused) {
		return nil, fmt.Errorf("expected %d scores, got %d", len(fused), len(scores))
	}

	reranked := make([]Result, len(fused))
	for i, r := range fused {
		final := e.cfg.FusedWeight*r.Score + e.cfg.CrossWeight*scores[i]
		reranked[i] = Result{
			Chunk:       r.Chunk,
			Score:       final,
			Explanation: fmt.Sprintf("Reranked: %.3f", final),
		}
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Score > reranked[j].Score
	})
	return reranked, nil
}

// submitScoring runs the blocking cross-encoder call on the worker pool so
// it never stalls concurrent searches' network I/O. The caller's context
// still bounds the wait.
func (e *Engine) submitScoring(ctx context.Context, query string, texts []string) ([]float64, error) {
	if e.pool == nil {
		return e.scorer.Score(ctx, query, texts)
	}

	var (
		scores []float64
		err    error
	)
	done := make(chan struct{})

	if submitErr := e.pool.Submit(func() {
		defer close(done)
		scores, err = e.scorer.Score(ctx, query, texts)
	}); submitErr != nil {
		return nil, fmt.Errorf("submit scoring task: %w", submitErr)
	}

	select {
	case <-done:
		return scores, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// rerankPairText builds the candidate text for a scoring pair: the title
// plus the first 200 characters of content.
func rerankPairText(title, content string) string {
	excerpt := truncateRunes(content, rerankPairMaxChars)
	if title == "" {
		return excerpt
	}
	return title + ". " + excerpt
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
