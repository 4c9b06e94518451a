package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteFTSChannel implements LexicalChannel on SQLite FTS5 with the pure Go
// modernc.org/sqlite driver. Field boosts map to per-column bm25() weights.
type SQLiteFTSChannel struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

var _ LexicalChannel = (*SQLiteFTSChannel)(nil)

// queryTokenRegex extracts word tokens, including accented letters, from a
// raw query before it is turned into an FTS5 MATCH expression.
var queryTokenRegex = regexp.MustCompile(`[\p{L}\p{N}-]+`)

// NewSQLiteFTSChannel opens (or creates) the lexical index at path.
// An empty path creates an in-memory index.
func NewSQLiteFTSChannel(path string) (*SQLiteFTSChannel, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create index directory: %w", err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open lexical index: %w", err)
	}

	// Single writer avoids lock contention under modernc.org/sqlite.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// WAL must be set via PRAGMA; DSN params are ignored by modernc.org/sqlite.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -65536",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	c := &SQLiteFTSChannel{db: db, path: path}
	if err := c.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize lexical schema: %w", err)
	}
	return c, nil
}

// initSchema creates the FTS5 virtual table and the chunk metadata table.
// Column order in fts_chunks matters: bm25() weights are positional.
func (c *SQLiteFTSChannel) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE VIRTUAL TABLE IF NOT EXISTS fts_chunks USING fts5(
		chunk_id UNINDEXED,
		title,
		content,
		breadcrumbs,
		param_name,
		error_code,
		ui_path,
		tokenize='unicode61 remove_diacritics 2'
	);

	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		source_url TEXT NOT NULL,
		module TEXT,
		version TEXT,
		content_type TEXT,
		lang TEXT,
		source_format TEXT,
		error_code TEXT,
		section_level INTEGER,
		data TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_source_url ON chunks(source_url);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`
	_, err := c.db.Exec(schema)
	return err
}

// Search returns up to topK chunks by BM25 relevance with per-field boosts.
// FTS5 bm25() returns negative scores (lower is better); they are negated so
// higher means more relevant, matching the dense channel convention.
func (c *SQLiteFTSChannel) Search(ctx context.Context, query string, topK int, filters Filters, boosts Boosts) ([]ScoredChunk, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, fmt.Errorf("lexical channel is closed")
	}
	if topK <= 0 {
		return []ScoredChunk{}, nil
	}

	matchExpr := buildMatchExpression(query)
	if matchExpr == "" {
		return []ScoredChunk{}, nil
	}

	whereSQL, whereArgs := filterClauses(filters)

	// bm25() weights are positional per fts_chunks column declaration:
	// chunk_id, title, content, breadcrumbs, param_name, error_code, ui_path.
	sqlQuery := fmt.Sprintf(`
		SELECT chunks.data, bm25(fts_chunks, 0, ?, 1.0, ?, ?, ?, 1.0) AS score
		FROM fts_chunks
		JOIN chunks ON chunks.id = fts_chunks.chunk_id
		WHERE fts_chunks MATCH ?%s
		ORDER BY score
		LIMIT ?`, whereSQL)

	args := make([]any, 0, 6+len(whereArgs))
	args = append(args, boost(boosts.Title), boost(boosts.Breadcrumbs),
		boost(boosts.ParamName), boost(boosts.ErrorCode), matchExpr)
	args = append(args, whereArgs...)
	args = append(args, topK)

	rows, err := c.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		// FTS5 rejects some query shapes outright; treat that as no matches.
		if strings.Contains(err.Error(), "fts5") || strings.Contains(err.Error(), "syntax error") {
			return []ScoredChunk{}, nil
		}
		return nil, fmt.Errorf("lexical search failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []ScoredChunk
	for rows.Next() {
		var data string
		var score float64
		if err := rows.Scan(&data, &score); err != nil {
			return nil, fmt.Errorf("scan lexical result: %w", err)
		}
		var chunk Chunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return nil, fmt.Errorf("decode chunk: %w", err)
		}
		results = append(results, ScoredChunk{Chunk: &chunk, Score: -score})
	}
	if results == nil {
		results = []ScoredChunk{}
	}
	return results, rows.Err()
}

func boost(b float64) float64 {
	if b <= 0 {
		return 1.0
	}
	return b
}

// buildMatchExpression converts a natural-language query into an FTS5 OR
// expression with quoted terms. OR favors recall; fusion and reranking sort
// out precision downstream.
func buildMatchExpression(query string) string {
	tokens := queryTokenRegex.FindAllString(query, -1)
	if len(tokens) == 0 {
		return ""
	}
	quoted := make([]string, 0, len(tokens))
	for _, t := range tokens {
		quoted = append(quoted, `"`+strings.ReplaceAll(t, `"`, "")+`"`)
	}
	return strings.Join(quoted, " OR ")
}

// filterClauses builds SQL predicates on the chunks table for the supported
// filter keys. Unknown keys are ignored.
func filterClauses(filters Filters) (string, []any) {
	if len(filters) == 0 {
		return "", nil
	}

	var sb strings.Builder
	var args []any

	addEq := func(column string, key string) {
		if v, ok := filters[key]; ok {
			sb.WriteString(" AND chunks." + column + " = ?")
			args = append(args, fmt.Sprintf("%v", v))
		}
	}

	addLevel := func(op string, key string) {
		if raw, ok := filters[key]; ok {
			if v, ok := asInt(raw); ok {
				sb.WriteString(" AND chunks.section_level " + op + " ?")
				args = append(args, v)
			}
		}
	}

	addEq("module", FilterModule)
	addEq("version", FilterVersion)
	addEq("content_type", FilterContentType)
	addEq("lang", FilterLang)
	addEq("source_format", FilterSourceFormat)
	addEq("error_code", FilterErrorCode)
	addLevel("=", FilterSectionLevel)
	addLevel(">=", FilterSectionLevelMin)
	addLevel("<=", FilterSectionLevelMax)

	return sb.String(), args
}

// AddChunks indexes the chunks. Existing IDs are replaced; FTS5 virtual
// tables don't support REPLACE, so rows are deleted first.
func (c *SQLiteFTSChannel) AddChunks(ctx context.Context, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("lexical channel is closed")
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	deleteFTS, err := tx.PrepareContext(ctx, `DELETE FROM fts_chunks WHERE chunk_id = ?`)
	if err != nil {
		return fmt.Errorf("prepare fts delete: %w", err)
	}
	defer func() { _ = deleteFTS.Close() }()

	insertFTS, err := tx.PrepareContext(ctx, `
		INSERT INTO fts_chunks(chunk_id, title, content, breadcrumbs, param_name, error_code, ui_path)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare fts insert: %w", err)
	}
	defer func() { _ = insertFTS.Close() }()

	insertMeta, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO chunks(id, source_url, module, version, content_type, lang, source_format, error_code, section_level, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare chunk insert: %w", err)
	}
	defer func() { _ = insertMeta.Close() }()

	for _, ch := range chunks {
		data, err := json.Marshal(ch)
		if err != nil {
			return fmt.Errorf("encode chunk %s: %w", ch.ID, err)
		}

		if _, err := deleteFTS.ExecContext(ctx, ch.ID); err != nil {
			return fmt.Errorf("delete existing chunk %s: %w", ch.ID, err)
		}
		if _, err := insertFTS.ExecContext(ctx, ch.ID, ch.Title, ch.Content,
			strings.Join(ch.Breadcrumbs, " > "), ch.ParamName, ch.ErrorCode, ch.UIPath); err != nil {
			return fmt.Errorf("index chunk %s: %w", ch.ID, err)
		}
		if _, err := insertMeta.ExecContext(ctx, ch.ID, ch.SourceURL, ch.Module, ch.Version,
			string(ch.ContentType), ch.Lang, string(ch.SourceFormat), ch.ErrorCode,
			ch.SectionLevel, string(data)); err != nil {
			return fmt.Errorf("store chunk %s: %w", ch.ID, err)
		}
	}

	return tx.Commit()
}

// DeleteChunksByURL removes all chunks whose SourceURL matches.
func (c *SQLiteFTSChannel) DeleteChunksByURL(ctx context.Context, sourceURL string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, fmt.Errorf("lexical channel is closed")
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM fts_chunks WHERE chunk_id IN (SELECT id FROM chunks WHERE source_url = ?)`,
		sourceURL); err != nil {
		return 0, fmt.Errorf("delete fts rows: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE source_url = ?`, sourceURL)
	if err != nil {
		return 0, fmt.Errorf("delete chunk rows: %w", err)
	}
	deleted, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit delete: %w", err)
	}
	return int(deleted), nil
}

// DeleteChunk removes a single chunk by ID.
func (c *SQLiteFTSChannel) DeleteChunk(ctx context.Context, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false, fmt.Errorf("lexical channel is closed")
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM fts_chunks WHERE chunk_id = ?`, id); err != nil {
		return false, fmt.Errorf("delete fts row: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete chunk row: %w", err)
	}
	deleted, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit delete: %w", err)
	}
	return deleted > 0, nil
}

// GetChunkByID returns the chunk or nil when absent.
func (c *SQLiteFTSChannel) GetChunkByID(ctx context.Context, id string) (*Chunk, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, fmt.Errorf("lexical channel is closed")
	}

	var data string
	err := c.db.QueryRowContext(ctx, `SELECT data FROM chunks WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup chunk %s: %w", id, err)
	}

	var chunk Chunk
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return nil, fmt.Errorf("decode chunk %s: %w", id, err)
	}
	return &chunk, nil
}

// Stats returns backend statistics.
func (c *SQLiteFTSChannel) Stats(ctx context.Context) (LexicalStats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return LexicalStats{}, fmt.Errorf("lexical channel is closed")
	}

	var count int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count); err != nil {
		return LexicalStats{}, fmt.Errorf("count chunks: %w", err)
	}
	return LexicalStats{ChunkCount: count, Backend: "sqlite"}, nil
}

// Close checkpoints the WAL and closes the database.
func (c *SQLiteFTSChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.path != "" {
		_, _ = c.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	}
	return c.db.Close()
}
