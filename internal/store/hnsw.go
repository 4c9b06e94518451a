package store

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"

	"github.com/docstack/manualrag/internal/embed"
)

// HNSWChannel implements DenseChannel with a pure Go HNSW graph and an
// embedder for query and chunk vectorization. No CGO.
type HNSWChannel struct {
	mu       sync.RWMutex
	graph    *hnsw.Graph[uint64]
	embedder embed.Embedder
	opts     HNSWOptions

	// Chunk IDs are stable strings; the graph wants numeric keys. The mapping
	// is monotonic so re-adding a chunk never reuses a key.
	idMap   map[string]uint64
	keyMap  map[uint64]string
	nextKey uint64

	chunks map[string]*Chunk
	dims   int

	closed bool
}

var _ DenseChannel = (*HNSWChannel)(nil)

// HNSWOptions configures the HNSW dense channel.
type HNSWOptions struct {
	// Path is the on-disk index file. Empty keeps the index in memory only.
	Path string

	M              int
	EfConstruction int
	EfSearch       int

	// Dimensions pins the vector dimension. Zero auto-detects from the
	// embedder on first insert.
	Dimensions int
}

// hnswMetadata is the gob-persisted sidecar next to the graph file.
type hnswMetadata struct {
	IDMap   map[string]uint64
	NextKey uint64
	Chunks  map[string]*Chunk
	Dims    int
}

// NewHNSWChannel creates the dense channel, loading a persisted index from
// opts.Path when one exists.
func NewHNSWChannel(embedder embed.Embedder, opts HNSWOptions) (*HNSWChannel, error) {
	if opts.M <= 0 {
		opts.M = 64
	}
	if opts.EfSearch <= 0 {
		opts.EfSearch = 64
	}

	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = opts.M
	graph.EfSearch = opts.EfSearch

	c := &HNSWChannel{
		graph:    graph,
		embedder: embedder,
		opts:     opts,
		idMap:    make(map[string]uint64),
		keyMap:   make(map[uint64]string),
		chunks:   make(map[string]*Chunk),
		dims:     opts.Dimensions,
	}

	if opts.Path != "" {
		if _, err := os.Stat(opts.Path); err == nil {
			if err := c.load(opts.Path); err != nil {
				return nil, fmt.Errorf("load dense index %s: %w", opts.Path, err)
			}
		}
	}

	return c, nil
}

// Search embeds the query and returns the topK most similar chunks that pass
// the filters, best first. Scores are cosine similarity in [0,1].
func (c *HNSWChannel) Search(ctx context.Context, query string, topK int, filters Filters) ([]ScoredChunk, error) {
	if topK <= 0 {
		return []ScoredChunk{}, nil
	}

	vec, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, fmt.Errorf("dense channel is closed")
	}
	if c.graph.Len() == 0 {
		return []ScoredChunk{}, nil
	}
	if c.dims != 0 && len(vec) != c.dims {
		return nil, ErrDimensionMismatch{Expected: c.dims, Got: len(vec)}
	}

	// Oversample to survive post-filtering and lazily deleted graph nodes.
	fetch := topK
	if len(filters) > 0 {
		fetch = topK * 4
	}
	if orphans := c.graph.Len() - len(c.idMap); orphans > 0 {
		fetch += orphans
	}

	nodes := c.graph.Search(vec, fetch)

	results := make([]ScoredChunk, 0, topK)
	for _, node := range nodes {
		id, ok := c.keyMap[node.Key]
		if !ok {
			// Lazily deleted node still present in the graph.
			continue
		}
		chunk, ok := c.chunks[id]
		if !ok {
			continue
		}
		if !MatchesFilters(chunk, filters) {
			continue
		}

		distance := c.graph.Distance(vec, node.Value)
		results = append(results, ScoredChunk{
			Chunk: chunk,
			Score: float64(1.0 - distance/2.0),
		})
		if len(results) >= topK {
			break
		}
	}

	return results, nil
}

// AddChunks embeds and indexes the chunks. Existing IDs are replaced.
func (c *HNSWChannel) AddChunks(ctx context.Context, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = embeddingText(ch)
	}

	vectors, err := c.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("expected %d vectors, got %d", len(chunks), len(vectors))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("dense channel is closed")
	}

	if c.dims == 0 && len(vectors) > 0 {
		c.dims = len(vectors[0])
	}
	for _, v := range vectors {
		if len(v) != c.dims {
			return ErrDimensionMismatch{Expected: c.dims, Got: len(v)}
		}
	}

	for i, ch := range chunks {
		// Lazy deletion on replace: orphan the old graph node instead of
		// removing it, which coder/hnsw handles badly for the last node.
		if oldKey, exists := c.idMap[ch.ID]; exists {
			delete(c.keyMap, oldKey)
		}

		key := c.nextKey
		c.nextKey++

		c.graph.Add(hnsw.MakeNode(key, vectors[i]))
		c.idMap[ch.ID] = key
		c.keyMap[key] = ch.ID
		c.chunks[ch.ID] = ch
	}

	return nil
}

// embeddingText builds the text that gets embedded for a chunk: title plus
// content, so a section heading contributes to its vector.
func embeddingText(ch *Chunk) string {
	if ch.Title == "" {
		return ch.Content
	}
	return ch.Title + "\n" + ch.Content
}

// DeleteChunksByURL removes all chunks whose SourceURL matches.
func (c *HNSWChannel) DeleteChunksByURL(ctx context.Context, sourceURL string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, fmt.Errorf("dense channel is closed")
	}

	deleted := 0
	for id, ch := range c.chunks {
		if ch.SourceURL != sourceURL {
			continue
		}
		c.deleteLocked(id)
		deleted++
	}
	return deleted, nil
}

// DeleteChunk removes a single chunk by ID.
func (c *HNSWChannel) DeleteChunk(ctx context.Context, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false, fmt.Errorf("dense channel is closed")
	}
	if _, exists := c.idMap[id]; !exists {
		return false, nil
	}
	c.deleteLocked(id)
	return true, nil
}

// deleteLocked removes mappings and chunk data. The graph node is orphaned
// (lazy deletion); Search skips unmapped keys.
func (c *HNSWChannel) deleteLocked(id string) {
	if key, exists := c.idMap[id]; exists {
		delete(c.keyMap, key)
		delete(c.idMap, id)
	}
	delete(c.chunks, id)
}

// GetChunkByID returns the chunk or nil when absent.
func (c *HNSWChannel) GetChunkByID(ctx context.Context, id string) (*Chunk, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, fmt.Errorf("dense channel is closed")
	}
	return c.chunks[id], nil
}

// Stats returns backend statistics.
func (c *HNSWChannel) Stats(ctx context.Context) (DenseStats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return DenseStats{}, fmt.Errorf("dense channel is closed")
	}
	return DenseStats{
		ChunkCount: len(c.chunks),
		Dimensions: c.dims,
		Backend:    "hnsw",
		Model:      c.embedder.ModelName(),
	}, nil
}

// Save persists the graph and metadata atomically (temp file + rename).
func (c *HNSWChannel) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return fmt.Errorf("dense channel is closed")
	}
	if c.opts.Path == "" {
		return nil
	}
	return c.saveLocked(c.opts.Path)
}

func (c *HNSWChannel) saveLocked(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	if err := c.graph.Export(file); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("export graph: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close index file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename index file: %w", err)
	}

	metaTmp := path + ".meta.tmp"
	metaFile, err := os.Create(metaTmp)
	if err != nil {
		return fmt.Errorf("create metadata file: %w", err)
	}
	meta := hnswMetadata{
		IDMap:   c.idMap,
		NextKey: c.nextKey,
		Chunks:  c.chunks,
		Dims:    c.dims,
	}
	if err := gob.NewEncoder(metaFile).Encode(meta); err != nil {
		_ = metaFile.Close()
		_ = os.Remove(metaTmp)
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := metaFile.Close(); err != nil {
		_ = os.Remove(metaTmp)
		return fmt.Errorf("close metadata file: %w", err)
	}
	return os.Rename(metaTmp, path+".meta")
}

func (c *HNSWChannel) load(path string) error {
	metaFile, err := os.Open(path + ".meta")
	if err != nil {
		return fmt.Errorf("open metadata file: %w", err)
	}
	defer func() { _ = metaFile.Close() }()

	var meta hnswMetadata
	if err := gob.NewDecoder(metaFile).Decode(&meta); err != nil {
		return fmt.Errorf("decode metadata: %w", err)
	}

	c.idMap = meta.IDMap
	c.nextKey = meta.NextKey
	c.chunks = meta.Chunks
	c.dims = meta.Dims
	c.keyMap = make(map[uint64]string, len(meta.IDMap))
	for id, key := range meta.IDMap {
		c.keyMap[key] = id
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open index file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// coder/hnsw Import requires an io.ByteReader.
	if err := c.graph.Import(bufio.NewReader(file)); err != nil {
		return fmt.Errorf("import graph: %w", err)
	}
	return nil
}

// Close persists the index when a path is configured, then releases resources.
func (c *HNSWChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	var saveErr error
	if c.opts.Path != "" {
		saveErr = c.saveLocked(c.opts.Path)
	}

	c.closed = true
	c.graph = nil
	return saveErr
}
