// Package store provides the chunk data model, the dense and lexical channel
// interfaces, and in-process reference backends (HNSW vectors, Bleve BM25,
// SQLite FTS5). This is the persistence layer for all indexed manual content.
package store

import (
	"context"
	"fmt"
	"time"
)

// ContentType classifies the kind of manual content a chunk holds.
type ContentType string

const (
	ContentTypeProcedure ContentType = "procedure"
	ContentTypeParameter ContentType = "parameter"
	ContentTypeConcept   ContentType = "concept"
	ContentTypeFAQ       ContentType = "faq"
	ContentTypeError     ContentType = "error"
	ContentTypeTable     ContentType = "table"
	ContentTypeFigure    ContentType = "figure"
)

// SourceFormat identifies the original document format of a chunk.
type SourceFormat string

const (
	SourceFormatHTML     SourceFormat = "html"
	SourceFormatPDF      SourceFormat = "pdf"
	SourceFormatMarkdown SourceFormat = "markdown"
)

// Chunk is the atomic unit of indexed, retrievable manual text.
// Chunks arrive pre-built from the ingestion pipeline and are treated as
// immutable by the retrieval engine. Parent/child references form a tree;
// children never reference an ancestor.
type Chunk struct {
	ID      string `json:"id"`
	Content string `json:"content"`

	// Structure
	Title        string   `json:"title"`
	Breadcrumbs  []string `json:"breadcrumbs,omitempty"`
	SectionLevel int      `json:"section_level"`
	SectionPath  string   `json:"section_path"`

	ContentType ContentType `json:"content_type"`

	// One version per manual, one module per section tree.
	Module  string `json:"module"`
	Version string `json:"version"`

	// Parameter- and error-specific fields (optional)
	ParamName string `json:"param_name,omitempty"`
	UIPath    string `json:"ui_path,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`

	// Source
	SourceURL    string       `json:"source_url"`
	SourceFormat SourceFormat `json:"source_format"`
	PageRange    []int        `json:"page_range,omitempty"`
	Anchor       string       `json:"anchor,omitempty"`

	// Quality and tracking
	Lang      string    `json:"lang"`
	Hash      string    `json:"hash"`
	UpdatedAt time.Time `json:"updated_at"`

	// Hierarchy
	ParentChunkID string   `json:"parent_chunk_id,omitempty"`
	ChildChunkIDs []string `json:"child_chunk_ids,omitempty"`
}

// ScoredChunk pairs a chunk with a channel-native relevance score.
// Dense channels report cosine similarity; lexical channels report raw BM25
// magnitude. Scores are only comparable after fusion normalizes them.
type ScoredChunk struct {
	Chunk *Chunk
	Score float64
}

// Filters is an open key→value map interpreted by the backend channels
// (module, version, content_type, section_level ranges). The engine passes
// filters through unchanged and does not validate their semantics.
type Filters map[string]any

// Boosts holds per-field weight multipliers for the lexical channel.
type Boosts struct {
	Title       float64
	Breadcrumbs float64
	ParamName   float64
	ErrorCode   float64
}

// DenseStats describes the state of a dense channel backend.
type DenseStats struct {
	ChunkCount int    `json:"chunk_count"`
	Dimensions int    `json:"dimensions"`
	Backend    string `json:"backend"`
	Model      string `json:"model,omitempty"`
}

// LexicalStats describes the state of a lexical channel backend.
type LexicalStats struct {
	ChunkCount int    `json:"chunk_count"`
	Backend    string `json:"backend"`
}

// DenseChannel is the vector-similarity retrieval backend.
// Implementations must be safe for concurrent use.
type DenseChannel interface {
	// Search returns up to topK chunks by embedding similarity, best first.
	Search(ctx context.Context, query string, topK int, filters Filters) ([]ScoredChunk, error)

	// AddChunks embeds and indexes the given chunks, replacing existing IDs.
	AddChunks(ctx context.Context, chunks []*Chunk) error

	// DeleteChunksByURL removes all chunks for a source URL, returning the count.
	DeleteChunksByURL(ctx context.Context, sourceURL string) (int, error)

	// DeleteChunk removes a single chunk. Returns false if the ID was absent.
	DeleteChunk(ctx context.Context, id string) (bool, error)

	// GetChunkByID returns the chunk or nil if not indexed.
	GetChunkByID(ctx context.Context, id string) (*Chunk, error)

	// Stats returns backend statistics.
	Stats(ctx context.Context) (DenseStats, error)

	Close() error
}

// LexicalChannel is the full-text/BM25 retrieval backend.
// Implementations must be safe for concurrent use.
type LexicalChannel interface {
	// Search returns up to topK chunks by BM25 relevance with the given
	// per-field boosts, best first.
	Search(ctx context.Context, query string, topK int, filters Filters, boosts Boosts) ([]ScoredChunk, error)

	AddChunks(ctx context.Context, chunks []*Chunk) error
	DeleteChunksByURL(ctx context.Context, sourceURL string) (int, error)
	DeleteChunk(ctx context.Context, id string) (bool, error)
	GetChunkByID(ctx context.Context, id string) (*Chunk, error)

	// Stats returns backend statistics.
	Stats(ctx context.Context) (LexicalStats, error)

	Close() error
}

// ErrDimensionMismatch indicates an embedding dimension mismatch between the
// embedder and the vectors already in the index.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d (reindex with the current embedder)", e.Expected, e.Got)
}
