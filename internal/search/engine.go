package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"

	"github.com/docstack/manualrag/internal/config"
	ragerr "github.com/docstack/manualrag/internal/errors"
	"github.com/docstack/manualrag/internal/rerank"
	"github.com/docstack/manualrag/internal/store"
	"github.com/docstack/manualrag/internal/telemetry"
)

// Engine is the hybrid retrieval engine. It owns no backend state beyond
// the channel handles; all per-search state is local to the call, so
// concurrent searches share only read-only configuration.
type Engine struct {
	cfg     config.RetrievalConfig
	dense   store.DenseChannel
	lexical store.LexicalChannel
	scorer  rerank.Scorer
	pool    *ants.Pool
	logger  *slog.Logger
	metrics *telemetry.Collector
}

// EngineOptions configures NewEngine. Dense and Lexical are required.
type EngineOptions struct {
	Config  config.RetrievalConfig
	Dense   store.DenseChannel
	Lexical store.LexicalChannel

	// Scorer is the cross-encoder client. Nil disables reranking.
	Scorer rerank.Scorer

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Metrics is optional; nil records nothing.
	Metrics *telemetry.Collector
}

// NewEngine creates the retrieval engine and its scoring worker pool.
func NewEngine(opts EngineOptions) (*Engine, error) {
	if opts.Dense == nil || opts.Lexical == nil {
		return nil, fmt.Errorf("engine requires both a dense and a lexical channel")
	}
	if opts.Scorer == nil {
		opts.Scorer = rerank.NoopScorer{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	poolSize := opts.Config.WorkerPoolSize
	if poolSize <= 0 {
		poolSize = 4
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}

	return &Engine{
		cfg:     opts.Config,
		dense:   opts.Dense,
		lexical: opts.Lexical,
		scorer:  opts.Scorer,
		pool:    pool,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}, nil
}

// Search runs the full pipeline: classify, fetch both channels concurrently,
// fuse, rerank (conditional), diversify, truncate. An empty candidate set is
// not an error; it returns an empty slice.
func (e *Engine) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	started := time.Now()

	if strings.TrimSpace(query) == "" {
		return nil, ragerr.New(ragerr.ErrCodeQueryEmpty, "query is empty", nil)
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = e.cfg.KFinal
	}

	queryType := opts.QueryType
	if queryType == "" {
		queryType = Classify(query)
	}
	e.logger.Debug("query classified",
		slog.String("query_type", string(queryType)))

	dense, lexical, err := e.fetchCandidates(ctx, query, opts.Filters, queryType)
	if err != nil {
		return nil, err
	}

	fused := combine(dense, lexical, e.cfg.DenseWeight, e.cfg.LexicalWeight)

	ranked, degraded := e.maybeRerank(ctx, query, fused)

	final := diversify(ranked, e.cfg.MaxPerSection, topK)

	e.metrics.Record(telemetry.QueryEvent{
		QueryType:   string(queryType),
		ResultCount: len(final),
		Latency:     time.Since(started),
		Degraded:    degraded,
	})
	e.logger.Debug("search completed",
		slog.String("query_type", string(queryType)),
		slog.Int("dense_candidates", len(dense)),
		slog.Int("lexical_candidates", len(lexical)),
		slog.Int("results", len(final)),
		slog.Duration("latency", time.Since(started)))

	return final, nil
}

// fetchCandidates issues both channel calls concurrently with type-adapted
// fan-out sizes and boosts. This is a join, not a race: both must complete
// before fusion, and either channel's failure fails the fetch.
func (e *Engine) fetchCandidates(ctx context.Context, query string, filters store.Filters, queryType QueryType) ([]store.ScoredChunk, []store.ScoredChunk, error) {
	kDense, kLexical := adaptFanout(queryType, e.cfg.KDense, e.cfg.KLexical)
	boosts := adaptBoosts(queryType, store.Boosts{
		Title:       e.cfg.TitleBoost,
		Breadcrumbs: e.cfg.BreadcrumbsBoost,
		ParamName:   e.cfg.ParamNameBoost,
		ErrorCode:   e.cfg.ErrorCodeBoost,
	})

	var dense, lexical []store.ScoredChunk
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		cctx, cancel := e.stageContext(gctx)
		defer cancel()
		var err error
		dense, err = e.dense.Search(cctx, query, kDense, filters)
		if err != nil {
			return channelError("dense", cctx, err)
		}
		return nil
	})

	g.Go(func() error {
		cctx, cancel := e.stageContext(gctx)
		defer cancel()
		var err error
		// Synonym expansion is lexical-only; the dense channel handles
		// paraphrase on its own.
		lexical, err = e.lexical.Search(cctx, ExpandQuery(query), kLexical, filters, boosts)
		if err != nil {
			return channelError("lexical", cctx, err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return dense, lexical, nil
}

// stageContext bounds a single channel or scoring call.
func (e *Engine) stageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.cfg.SearchTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.cfg.SearchTimeout)
}

// channelError types a channel failure as timeout or unavailability.
func channelError(channel string, ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ragerr.ChannelTimeout(channel, err)
	}
	return ragerr.ChannelUnavailable(channel, err)
}

// maybeRerank applies the cross-encoder stage when it is worth invoking.
// Reranking is skipped for a single candidate or a list already at or below
// the final size, and on scorer failure the fused order is returned
// unchanged: an unranked-but-relevant result set beats a failed search.
func (e *Engine) maybeRerank(ctx context.Context, query string, fused []Result) (results []Result, degraded bool) {
	if len(fused) <= 1 || len(fused) <= e.cfg.KFinal {
		return fused, false
	}
	if !e.scorer.Available(ctx) {
		// An unreachable scorer degrades the search; the no-op scorer
		// only means reranking is switched off.
		_, disabled := e.scorer.(rerank.NoopScorer)
		return fused, !disabled
	}

	candidates := fused
	var tail []Result
	if e.cfg.KRerank > 0 && len(candidates) > e.cfg.KRerank {
		candidates = candidates[:e.cfg.KRerank]
		tail = fused[e.cfg.KRerank:]
	}

	sctx, cancel := e.stageContext(ctx)
	defer cancel()

	reranked, err := e.rerankStage(sctx, query, candidates)
	if err != nil {
		e.logger.Warn("rerank failed, keeping fused order",
			slog.String("error", err.Error()))
		return fused, true
	}
	// Candidates past the rerank window keep their fused order behind the
	// reranked head rather than being dropped.
	return append(reranked, tail...), false
}

// AddChunks indexes chunks into both channels with a replace-on-reingest
// policy: every source URL present in the batch is deleted from both
// channels before the new chunks go in, so stale chunks from a prior
// ingestion never coexist with the replacement. Callers that split one
// logical ingestion into several batches must delete the URLs themselves
// and use IndexChunks, or each batch wipes the previous one.
func (e *Engine) AddChunks(ctx context.Context, chunks []*store.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	urls := make(map[string]struct{})
	for _, ch := range chunks {
		if ch.SourceURL != "" {
			urls[ch.SourceURL] = struct{}{}
		}
	}

	for url := range urls {
		if _, _, err := e.DeleteChunksByURL(ctx, url); err != nil {
			return err
		}
	}
	return e.IndexChunks(ctx, chunks)
}

// IndexChunks indexes chunks into both channels without touching existing
// entries.
func (e *Engine) IndexChunks(ctx context.Context, chunks []*store.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := e.dense.AddChunks(gctx, chunks); err != nil {
			return ragerr.New(ragerr.ErrCodeIndexFailed, "dense channel indexing failed", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := e.lexical.AddChunks(gctx, chunks); err != nil {
			return ragerr.New(ragerr.ErrCodeIndexFailed, "lexical channel indexing failed", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	e.logger.Info("chunks indexed", slog.Int("count", len(chunks)))
	return nil
}

// DeleteChunksByURL removes every chunk for a source URL from both channels,
// returning per-channel deletion counts. A failure on one side after the
// other succeeded surfaces as an inconsistent-delete error; a repeated
// ingestion self-heals.
func (e *Engine) DeleteChunksByURL(ctx context.Context, sourceURL string) (denseDeleted, lexicalDeleted int, err error) {
	var denseErr, lexicalErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		denseDeleted, denseErr = e.dense.DeleteChunksByURL(gctx, sourceURL)
		return nil
	})
	g.Go(func() error {
		lexicalDeleted, lexicalErr = e.lexical.DeleteChunksByURL(gctx, sourceURL)
		return nil
	})
	_ = g.Wait()

	switch {
	case denseErr == nil && lexicalErr == nil:
		return denseDeleted, lexicalDeleted, nil
	case denseErr != nil && lexicalErr != nil:
		return 0, 0, ragerr.ChannelUnavailable("dense+lexical", errors.Join(denseErr, lexicalErr))
	case denseErr != nil:
		return denseDeleted, lexicalDeleted, ragerr.InconsistentDelete(sourceURL, denseErr).
			WithDetail("failed_channel", "dense")
	default:
		return denseDeleted, lexicalDeleted, ragerr.InconsistentDelete(sourceURL, lexicalErr).
			WithDetail("failed_channel", "lexical")
	}
}

// DeleteChunk removes a single chunk from both channels. Reports true only
// when both channels held it: a one-sided hit means the channels were
// already inconsistent for that ID.
func (e *Engine) DeleteChunk(ctx context.Context, id string) (bool, error) {
	denseOK, denseErr := e.dense.DeleteChunk(ctx, id)
	lexicalOK, lexicalErr := e.lexical.DeleteChunk(ctx, id)

	if denseErr != nil || lexicalErr != nil {
		return denseOK && lexicalOK, ragerr.ChannelUnavailable("delete", errors.Join(denseErr, lexicalErr)).
			WithDetail("chunk_id", id)
	}
	return denseOK && lexicalOK, nil
}

// GetChunkByID returns the chunk or nil when neither channel holds it.
// The dense channel is probed first; both channels are expected to hold the
// same chunk set, so the precedence is arbitrary.
func (e *Engine) GetChunkByID(ctx context.Context, id string) (*store.Chunk, error) {
	chunk, err := e.dense.GetChunkByID(ctx, id)
	if err != nil {
		return nil, ragerr.ChannelUnavailable("dense", err)
	}
	if chunk != nil {
		return chunk, nil
	}

	chunk, err = e.lexical.GetChunkByID(ctx, id)
	if err != nil {
		return nil, ragerr.ChannelUnavailable("lexical", err)
	}
	return chunk, nil
}

// Stats aggregates channel statistics, the retrieval configuration, and the
// query metrics snapshot.
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	denseStats, err := e.dense.Stats(ctx)
	if err != nil {
		return Stats{}, ragerr.ChannelUnavailable("dense", err)
	}
	lexicalStats, err := e.lexical.Stats(ctx)
	if err != nil {
		return Stats{}, ragerr.ChannelUnavailable("lexical", err)
	}

	return Stats{
		Dense:     denseStats,
		Lexical:   lexicalStats,
		Retrieval: e.cfg,
		Queries:   e.metrics.Snapshot(),
	}, nil
}

// Close releases the worker pool and the scorer. The channels are owned by
// the caller and closed separately.
func (e *Engine) Close() error {
	e.pool.Release()
	return e.scorer.Close()
}
