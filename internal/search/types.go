// Package search implements the hybrid retrieval engine: query
// classification, concurrent dense+lexical candidate fetch, score fusion,
// cross-encoder reranking, section diversification, and the index lifecycle
// operations that keep both channels consistent.
package search

import (
	"github.com/docstack/manualrag/internal/config"
	"github.com/docstack/manualrag/internal/store"
	"github.com/docstack/manualrag/internal/telemetry"
)

// QueryType is the classified intent of a query. Derived from the query text
// only, never persisted.
type QueryType string

const (
	QueryTypeParameter QueryType = "PARAMETER"
	QueryTypeProcedure QueryType = "PROCEDURE"
	QueryTypeError     QueryType = "ERROR"
	QueryTypeGeneral   QueryType = "GENERAL"
)

// ParseQueryType converts a string to a QueryType, or false if unknown.
func ParseQueryType(s string) (QueryType, bool) {
	switch QueryType(s) {
	case QueryTypeParameter, QueryTypeProcedure, QueryTypeError, QueryTypeGeneral:
		return QueryType(s), true
	}
	return "", false
}

// Result pairs a chunk with a stage score and a human-readable explanation
// of which stage produced it ("Vector: 0.810", "Hybrid: 0.741", ...).
// Each pipeline stage returns new Result values; earlier stage outputs are
// never mutated.
type Result struct {
	Chunk       *store.Chunk `json:"chunk"`
	Score       float64      `json:"score"`
	Explanation string       `json:"explanation"`
}

// Options are the per-search parameters.
type Options struct {
	// TopK is the number of results to return. Zero uses the configured
	// default (KFinal).
	TopK int

	// Filters are passed through unchanged to both channels.
	Filters store.Filters

	// QueryType skips auto-classification when set.
	QueryType QueryType
}

// Stats aggregates both channel stats plus the retrieval configuration echo
// and query metrics.
type Stats struct {
	Dense     store.DenseStats       `json:"dense"`
	Lexical   store.LexicalStats     `json:"lexical"`
	Retrieval config.RetrievalConfig `json:"retrieval"`
	Queries   telemetry.Snapshot     `json:"queries"`
}
