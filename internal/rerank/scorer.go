// Package rerank provides cross-encoder relevance scoring for query/passage
// pairs. The production scorer talks to a local reranker service over HTTP;
// a no-op scorer stands in when reranking is disabled.
package rerank

import (
	"context"
)

// Scorer scores query/passage pairs with a cross-encoder model.
// Scores are model-native; callers blend them with retrieval scores.
type Scorer interface {
	// Score returns one relevance score per text, in input order.
	Score(ctx context.Context, query string, texts []string) ([]float64, error)

	// Available reports whether the scorer can currently serve requests.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// NoopScorer is used when reranking is disabled. Available always reports
// false so the engine skips the rerank stage entirely.
type NoopScorer struct{}

var _ Scorer = (*NoopScorer)(nil)

func (NoopScorer) Score(_ context.Context, _ string, texts []string) ([]float64, error) {
	return make([]float64, len(texts)), nil
}

func (NoopScorer) Available(_ context.Context) bool { return false }

func (NoopScorer) Close() error { return nil }
