package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/docstack/manualrag/internal/store"
)

func newIngestCmd() *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "ingest <file.json|dir>...",
		Short: "Index manual chunk files",
		Long: `Index pre-chunked manual content into both retrieval channels.

Each input is a JSON file holding an array of chunks, or a directory of
such files. Chunks without an id are assigned one. Re-ingesting a source
URL replaces all of its previous chunks in both channels.

Examples:
  manualrag ingest chunks/fatturazione.json
  manualrag ingest chunks/ --batch-size 200`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context(), cmd, args, batchSize)
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch-size", 100, "Chunks indexed per batch")

	return cmd
}

func runIngest(ctx context.Context, cmd *cobra.Command, paths []string, batchSize int) error {
	if batchSize <= 0 {
		batchSize = 100
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	files, err := collectChunkFiles(paths)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no chunk files found in %v", paths)
	}

	type fileChunks struct {
		path   string
		chunks []*store.Chunk
	}

	loaded := make([]fileChunks, 0, len(files))
	urls := make(map[string]struct{})
	for _, file := range files {
		chunks, err := loadChunkFile(file)
		if err != nil {
			return err
		}
		for _, c := range chunks {
			if c.SourceURL != "" {
				urls[c.SourceURL] = struct{}{}
			}
		}
		loaded = append(loaded, fileChunks{path: file, chunks: chunks})
	}

	engine, cleanup, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	// Replace-on-reingest happens once per run: drop every source URL up
	// front so a later batch of the same URL does not wipe an earlier one.
	for url := range urls {
		if _, _, err := engine.DeleteChunksByURL(ctx, url); err != nil {
			return err
		}
	}

	total := 0
	for _, fc := range loaded {
		for start := 0; start < len(fc.chunks); start += batchSize {
			end := min(start+batchSize, len(fc.chunks))
			if err := engine.IndexChunks(ctx, fc.chunks[start:end]); err != nil {
				return fmt.Errorf("ingest %s: %w", fc.path, err)
			}
		}

		total += len(fc.chunks)
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d chunks\n", fc.path, len(fc.chunks))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d chunks from %d files\n", total, len(files))
	return nil
}

// collectChunkFiles expands directories into their .json files.
func collectChunkFiles(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
				continue
			}
			files = append(files, filepath.Join(path, entry.Name()))
		}
	}
	return files, nil
}

// loadChunkFile parses one chunk array, validating and assigning IDs.
func loadChunkFile(path string) ([]*store.Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var chunks []*store.Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	for i, c := range chunks {
		if c == nil {
			return nil, fmt.Errorf("%s: chunk %d is null", path, i)
		}
		if c.Content == "" {
			return nil, fmt.Errorf("%s: chunk %d has no content", path, i)
		}
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
	}
	return chunks, nil
}
