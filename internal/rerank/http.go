package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	ragerr "github.com/docstack/manualrag/internal/errors"
)

// Defaults for the HTTP scorer.
const (
	DefaultEndpoint = "http://localhost:9659"
	DefaultModel    = "bge-reranker-large"
	DefaultTimeout  = 30 * time.Second
)

// Config configures the HTTP cross-encoder client.
type Config struct {
	Endpoint string
	Model    string
	Timeout  time.Duration

	// Circuit breaker guarding the scoring service.
	MaxFailures  int
	ResetTimeout time.Duration
}

// HTTPScorer scores pairs against a reranker service speaking a simple JSON
// protocol on POST /rerank. A circuit breaker keeps a flapping service from
// stalling every search on a timeout.
type HTTPScorer struct {
	client  *http.Client
	config  Config
	breaker *ragerr.CircuitBreaker

	mu     sync.RWMutex
	closed bool
}

var _ Scorer = (*HTTPScorer)(nil)

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type rerankResponse struct {
	Scores []float64 `json:"scores"`
}

// NewHTTPScorer creates the HTTP cross-encoder client.
func NewHTTPScorer(cfg Config) *HTTPScorer {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &HTTPScorer{
		client:  &http.Client{},
		config:  cfg,
		breaker: ragerr.NewCircuitBreaker("reranker", cfg.MaxFailures, cfg.ResetTimeout),
	}
}

// Score returns one relevance score per text, in input order.
func (s *HTTPScorer) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ragerr.ScoringFailure(fmt.Errorf("scorer is closed"))
	}
	s.mu.RUnlock()

	if len(texts) == 0 {
		return []float64{}, nil
	}

	if !s.breaker.Allow() {
		return nil, ragerr.ScoringFailure(ragerr.ErrCircuitOpen)
	}

	scores, err := s.scoreOnce(ctx, query, texts)
	if err != nil {
		s.breaker.RecordFailure()
		return nil, ragerr.ScoringFailure(err)
	}

	s.breaker.RecordSuccess()
	return scores, nil
}

func (s *HTTPScorer) scoreOnce(ctx context.Context, query string, texts []string) ([]float64, error) {
	reqCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	body, err := json.Marshal(rerankRequest{
		Model:     s.config.Model,
		Query:     query,
		Documents: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, s.config.Endpoint+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("rerank request returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}

	if len(result.Scores) != len(texts) {
		return nil, fmt.Errorf("expected %d scores, got %d", len(texts), len(result.Scores))
	}
	return result.Scores, nil
}

// Available reports whether the breaker would admit a request.
func (s *HTTPScorer) Available(_ context.Context) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.closed && s.breaker.Allow()
}

// Close releases HTTP connections.
func (s *HTTPScorer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.client.CloseIdleConnections()
	return nil
}
