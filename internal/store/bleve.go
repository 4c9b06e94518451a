package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/it"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
)

// BleveLexicalChannel implements LexicalChannel on Bleve v2 with per-field
// boosts applied at query time through a disjunction of match queries.
type BleveLexicalChannel struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

var _ LexicalChannel = (*BleveLexicalChannel)(nil)

// bleveChunkDoc is the indexed document shape. The full chunk travels in the
// stored-only data field; searchable text and filterable keywords are split
// out into their own fields.
type bleveChunkDoc struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	Breadcrumbs string `json:"breadcrumbs"`
	ParamName   string `json:"param_name"`
	ErrorCode   string `json:"error_code"`
	UIPath      string `json:"ui_path"`

	Module       string  `json:"module"`
	Version      string  `json:"version"`
	ContentType  string  `json:"content_type"`
	Lang         string  `json:"lang"`
	SourceFormat string  `json:"source_format"`
	SourceURL    string  `json:"source_url"`
	SectionLevel float64 `json:"section_level"`

	Data string `json:"data"`
}

// NewBleveLexicalChannel opens (or creates) the lexical index at path.
// An empty path creates an in-memory index.
func NewBleveLexicalChannel(path string) (*BleveLexicalChannel, error) {
	indexMapping, err := createChunkMapping()
	if err != nil {
		return nil, fmt.Errorf("create index mapping: %w", err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create index directory: %w", err)
		}
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open lexical index: %w", err)
	}

	return &BleveLexicalChannel{index: idx, path: path}, nil
}

// createChunkMapping builds the Bleve mapping: Italian-analyzed text fields,
// keyword fields for exact filters, and a stored-only data field.
func createChunkMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = it.AnalyzerName

	textField := func() *mapping.FieldMapping {
		f := bleve.NewTextFieldMapping()
		f.Analyzer = it.AnalyzerName
		f.Store = false
		return f
	}
	keywordField := func() *mapping.FieldMapping {
		f := bleve.NewTextFieldMapping()
		f.Analyzer = keyword.Name
		f.Store = false
		return f
	}

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("title", textField())
	doc.AddFieldMappingsAt("content", textField())
	doc.AddFieldMappingsAt("breadcrumbs", textField())
	doc.AddFieldMappingsAt("ui_path", textField())

	// Param names and error codes are identifiers, not prose.
	doc.AddFieldMappingsAt("param_name", keywordField())
	doc.AddFieldMappingsAt("error_code", keywordField())

	doc.AddFieldMappingsAt("module", keywordField())
	doc.AddFieldMappingsAt("version", keywordField())
	doc.AddFieldMappingsAt("content_type", keywordField())
	doc.AddFieldMappingsAt("lang", keywordField())
	doc.AddFieldMappingsAt("source_format", keywordField())
	doc.AddFieldMappingsAt("source_url", keywordField())

	levelField := bleve.NewNumericFieldMapping()
	levelField.Store = false
	doc.AddFieldMappingsAt("section_level", levelField)

	dataField := bleve.NewTextFieldMapping()
	dataField.Store = true
	dataField.Index = false
	dataField.IncludeInAll = false
	doc.AddFieldMappingsAt("data", dataField)

	indexMapping.DefaultMapping = doc
	return indexMapping, nil
}

// Search returns up to topK chunks by BM25 relevance, best first.
func (b *BleveLexicalChannel) Search(ctx context.Context, queryStr string, topK int, filters Filters, boosts Boosts) ([]ScoredChunk, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("lexical channel is closed")
	}
	if topK <= 0 || queryStr == "" {
		return []ScoredChunk{}, nil
	}

	fieldQuery := func(field string, boostVal float64) query.Query {
		mq := bleve.NewMatchQuery(queryStr)
		mq.SetField(field)
		mq.SetBoost(boost(boostVal))
		return mq
	}

	textQuery := bleve.NewDisjunctionQuery(
		fieldQuery("title", boosts.Title),
		fieldQuery("content", 1.0),
		fieldQuery("breadcrumbs", boosts.Breadcrumbs),
		fieldQuery("param_name", boosts.ParamName),
		fieldQuery("error_code", boosts.ErrorCode),
		fieldQuery("ui_path", 1.0),
	)

	finalQuery := applyBleveFilters(textQuery, filters)

	req := bleve.NewSearchRequest(finalQuery)
	req.Size = topK
	req.Fields = []string{"data"}

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("lexical search failed: %w", err)
	}

	results := make([]ScoredChunk, 0, len(result.Hits))
	for _, hit := range result.Hits {
		data, _ := hit.Fields["data"].(string)
		var chunk Chunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return nil, fmt.Errorf("decode chunk %s: %w", hit.ID, err)
		}
		results = append(results, ScoredChunk{Chunk: &chunk, Score: hit.Score})
	}
	return results, nil
}

// applyBleveFilters wraps the text query in a conjunction with exact-match
// term queries for recognized filter keys.
func applyBleveFilters(textQuery query.Query, filters Filters) query.Query {
	if len(filters) == 0 {
		return textQuery
	}

	conjuncts := []query.Query{textQuery}

	addTerm := func(field, key string) {
		if v, ok := filters[key]; ok {
			tq := bleve.NewTermQuery(asString(v))
			tq.SetField(field)
			conjuncts = append(conjuncts, tq)
		}
	}

	addTerm("module", FilterModule)
	addTerm("version", FilterVersion)
	addTerm("content_type", FilterContentType)
	addTerm("lang", FilterLang)
	addTerm("source_format", FilterSourceFormat)
	addTerm("error_code", FilterErrorCode)

	addLevelRange := func(minKey, maxKey string) {
		var minVal, maxVal *float64
		if raw, ok := filters[minKey]; ok {
			if v, ok := asInt(raw); ok {
				f := float64(v)
				minVal = &f
			}
		}
		if raw, ok := filters[maxKey]; ok {
			if v, ok := asInt(raw); ok {
				f := float64(v)
				maxVal = &f
			}
		}
		if minVal != nil || maxVal != nil {
			inclusive := true
			nrq := bleve.NewNumericRangeInclusiveQuery(minVal, maxVal, &inclusive, &inclusive)
			nrq.SetField("section_level")
			conjuncts = append(conjuncts, nrq)
		}
	}

	if raw, ok := filters[FilterSectionLevel]; ok {
		if v, ok := asInt(raw); ok {
			f := float64(v)
			inclusive := true
			nrq := bleve.NewNumericRangeInclusiveQuery(&f, &f, &inclusive, &inclusive)
			nrq.SetField("section_level")
			conjuncts = append(conjuncts, nrq)
		}
	}
	addLevelRange(FilterSectionLevelMin, FilterSectionLevelMax)

	if len(conjuncts) == 1 {
		return textQuery
	}
	return bleve.NewConjunctionQuery(conjuncts...)
}

// AddChunks indexes the chunks in a single batch. Existing IDs are replaced.
func (b *BleveLexicalChannel) AddChunks(ctx context.Context, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("lexical channel is closed")
	}

	batch := b.index.NewBatch()
	for _, ch := range chunks {
		data, err := json.Marshal(ch)
		if err != nil {
			return fmt.Errorf("encode chunk %s: %w", ch.ID, err)
		}
		doc := bleveChunkDoc{
			Title:        ch.Title,
			Content:      ch.Content,
			Breadcrumbs:  joinBreadcrumbs(ch.Breadcrumbs),
			ParamName:    ch.ParamName,
			ErrorCode:    ch.ErrorCode,
			UIPath:       ch.UIPath,
			Module:       ch.Module,
			Version:      ch.Version,
			ContentType:  string(ch.ContentType),
			Lang:         ch.Lang,
			SourceFormat: string(ch.SourceFormat),
			SourceURL:    ch.SourceURL,
			SectionLevel: float64(ch.SectionLevel),
			Data:         string(data),
		}
		if err := batch.Index(ch.ID, doc); err != nil {
			return fmt.Errorf("index chunk %s: %w", ch.ID, err)
		}
	}

	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("execute index batch: %w", err)
	}
	return nil
}

// DeleteChunksByURL removes all chunks whose SourceURL matches.
func (b *BleveLexicalChannel) DeleteChunksByURL(ctx context.Context, sourceURL string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, fmt.Errorf("lexical channel is closed")
	}

	tq := bleve.NewTermQuery(sourceURL)
	tq.SetField("source_url")

	docCount, _ := b.index.DocCount()
	req := bleve.NewSearchRequest(tq)
	req.Size = int(docCount)

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("find chunks for %s: %w", sourceURL, err)
	}

	batch := b.index.NewBatch()
	for _, hit := range result.Hits {
		batch.Delete(hit.ID)
	}
	if err := b.index.Batch(batch); err != nil {
		return 0, fmt.Errorf("delete chunks for %s: %w", sourceURL, err)
	}
	return len(result.Hits), nil
}

// DeleteChunk removes a single chunk by ID.
func (b *BleveLexicalChannel) DeleteChunk(ctx context.Context, id string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false, fmt.Errorf("lexical channel is closed")
	}

	doc, err := b.index.Document(id)
	if err != nil {
		return false, fmt.Errorf("lookup chunk %s: %w", id, err)
	}
	if doc == nil {
		return false, nil
	}
	if err := b.index.Delete(id); err != nil {
		return false, fmt.Errorf("delete chunk %s: %w", id, err)
	}
	return true, nil
}

// GetChunkByID returns the chunk or nil when absent.
func (b *BleveLexicalChannel) GetChunkByID(ctx context.Context, id string) (*Chunk, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("lexical channel is closed")
	}

	req := bleve.NewSearchRequest(bleve.NewDocIDQuery([]string{id}))
	req.Size = 1
	req.Fields = []string{"data"}

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("lookup chunk %s: %w", id, err)
	}
	if len(result.Hits) == 0 {
		return nil, nil
	}

	data, _ := result.Hits[0].Fields["data"].(string)
	var chunk Chunk
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return nil, fmt.Errorf("decode chunk %s: %w", id, err)
	}
	return &chunk, nil
}

// Stats returns backend statistics.
func (b *BleveLexicalChannel) Stats(ctx context.Context) (LexicalStats, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return LexicalStats{}, fmt.Errorf("lexical channel is closed")
	}

	docCount, err := b.index.DocCount()
	if err != nil {
		return LexicalStats{}, fmt.Errorf("count chunks: %w", err)
	}
	return LexicalStats{ChunkCount: int(docCount), Backend: "bleve"}, nil
}

// Close closes the index. Bleve persists disk-backed indexes automatically.
func (b *BleveLexicalChannel) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.index.Close()
}

func joinBreadcrumbs(crumbs []string) string {
	if len(crumbs) == 0 {
		return ""
	}
	out := crumbs[0]
	for _, c := range crumbs[1:] {
		out += " > " + c
	}
	return out
}
