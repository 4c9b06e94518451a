package rerank

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ragerr "github.com/docstack/manualrag/internal/errors"
)

func TestHTTPScorer_Score(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rerank", r.URL.Path)

		var req rerankRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "come impostare IVA", req.Query)
		require.Len(t, req.Documents, 2)

		scores := []float64{0.9, 0.1}
		_ = json.NewEncoder(w).Encode(rerankResponse{Scores: scores})
	}))
	defer srv.Close()

	s := NewHTTPScorer(Config{Endpoint: srv.URL})
	defer func() { _ = s.Close() }()

	scores, err := s.Score(context.Background(), "come impostare IVA",
		[]string{"Aliquota IVA. Testo.", "Stampa etichette. Testo."})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.9, 0.1}, scores)
}

func TestHTTPScorer_ScoreCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(rerankResponse{Scores: []float64{0.5}})
	}))
	defer srv.Close()

	s := NewHTTPScorer(Config{Endpoint: srv.URL})
	defer func() { _ = s.Close() }()

	_, err := s.Score(context.Background(), "q", []string{"a", "b"})
	require.Error(t, err)
	assert.Equal(t, ragerr.ErrCodeScoringFailed, ragerr.GetCode(err))
}

func TestHTTPScorer_CircuitOpensAfterFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewHTTPScorer(Config{Endpoint: srv.URL, MaxFailures: 2})
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := s.Score(ctx, "q", []string{"a"})
		require.Error(t, err)
	}

	// Breaker is open now; requests fail fast without hitting the server.
	assert.False(t, s.Available(ctx))
	_, err := s.Score(ctx, "q", []string{"a"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ragerr.ErrCircuitOpen)
}

func TestHTTPScorer_EmptyInput(t *testing.T) {
	s := NewHTTPScorer(Config{Endpoint: "http://localhost:1"})
	defer func() { _ = s.Close() }()

	scores, err := s.Score(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestNoopScorer(t *testing.T) {
	var s NoopScorer

	scores, err := s.Score(context.Background(), "q", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, scores)
	assert.False(t, s.Available(context.Background()))
}
