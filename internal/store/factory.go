package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/docstack/manualrag/internal/embed"
	ragerr "github.com/docstack/manualrag/internal/errors"
)

// Options configures the channel pair opened by Open.
type Options struct {
	// DataDir is the index directory. Empty keeps both channels in memory
	// and skips locking.
	DataDir string

	// LexicalBackend selects "sqlite" (default) or "bleve".
	LexicalBackend string

	HNSW HNSWOptions
}

// Channels bundles the two retrieval backends plus the directory lock.
type Channels struct {
	Dense   DenseChannel
	Lexical LexicalChannel

	lock *flock.Flock
}

// Open creates the dense and lexical channels under opts.DataDir, holding an
// exclusive lock on the directory so two processes never write the same index.
func Open(embedder embed.Embedder, opts Options) (*Channels, error) {
	var lock *flock.Flock
	if opts.DataDir != "" {
		if err := os.MkdirAll(opts.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
		lock = flock.New(filepath.Join(opts.DataDir, "index.lock"))
		locked, err := lock.TryLock()
		if err != nil {
			return nil, ragerr.New(ragerr.ErrCodeIndexLocked,
				fmt.Sprintf("cannot lock index directory %s", opts.DataDir), err)
		}
		if !locked {
			return nil, ragerr.New(ragerr.ErrCodeIndexLocked,
				fmt.Sprintf("index directory %s is in use by another process", opts.DataDir), nil)
		}
	}

	fail := func(err error) (*Channels, error) {
		if lock != nil {
			_ = lock.Unlock()
		}
		return nil, err
	}

	hnswOpts := opts.HNSW
	if opts.DataDir != "" {
		hnswOpts.Path = filepath.Join(opts.DataDir, "vectors.hnsw")
	}
	dense, err := NewHNSWChannel(embedder, hnswOpts)
	if err != nil {
		return fail(ragerr.Wrap(ragerr.ErrCodeCorruptIndex, err))
	}

	var lexical LexicalChannel
	switch opts.LexicalBackend {
	case "", "sqlite":
		path := ""
		if opts.DataDir != "" {
			path = filepath.Join(opts.DataDir, "lexical.db")
		}
		lexical, err = NewSQLiteFTSChannel(path)
	case "bleve":
		path := ""
		if opts.DataDir != "" {
			path = filepath.Join(opts.DataDir, "lexical.bleve")
		}
		lexical, err = NewBleveLexicalChannel(path)
	default:
		err = fmt.Errorf("unknown lexical backend %q (valid: sqlite, bleve)", opts.LexicalBackend)
	}
	if err != nil {
		_ = dense.Close()
		return fail(err)
	}

	return &Channels{Dense: dense, Lexical: lexical, lock: lock}, nil
}

// Close closes both channels and releases the directory lock.
func (c *Channels) Close() error {
	var firstErr error
	if err := c.Dense.Close(); err != nil {
		firstErr = err
	}
	if err := c.Lexical.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if c.lock != nil {
		if err := c.lock.Unlock(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
