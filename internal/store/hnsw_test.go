package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docstack/manualrag/internal/embed"
)

func newTestDenseChannel(t *testing.T) *HNSWChannel {
	t.Helper()
	c, err := NewHNSWChannel(embed.NewStaticEmbedder(), HNSWOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func denseTestChunks() []*Chunk {
	return []*Chunk{
		{
			ID:          "c1",
			Title:       "Impostazione aliquota IVA",
			Content:     "Per impostare l'aliquota IVA predefinita aprire le impostazioni di fatturazione.",
			Module:      "fatturazione",
			SectionPath: "fatturazione/parametri",
			SourceURL:   "https://docs.example.com/fatturazione/iva",
		},
		{
			ID:          "c2",
			Title:       "Errore ERR-205 durante la stampa",
			Content:     "L'errore ERR-205 indica che la stampante fiscale non risponde.",
			Module:      "stampa",
			ErrorCode:   "ERR-205",
			SectionPath: "stampa/errori",
			SourceURL:   "https://docs.example.com/stampa/errori",
		},
		{
			ID:          "c3",
			Title:       "Creazione nota di credito",
			Content:     "Procedura per creare una nota di credito da una fattura esistente.",
			Module:      "fatturazione",
			SectionPath: "fatturazione/procedure",
			SourceURL:   "https://docs.example.com/fatturazione/note-credito",
		},
	}
}

func TestHNSWChannel_AddAndSearch(t *testing.T) {
	c := newTestDenseChannel(t)
	ctx := context.Background()

	require.NoError(t, c.AddChunks(ctx, denseTestChunks()))

	results, err := c.Search(ctx, "come impostare aliquota IVA predefinita", 2, nil)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Equal(t, "c1", results[0].Chunk.ID)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, 1.0)
	}
}

func TestHNSWChannel_SearchEmptyIndex(t *testing.T) {
	c := newTestDenseChannel(t)

	results, err := c.Search(context.Background(), "qualsiasi", 5, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHNSWChannel_FilterPostSearch(t *testing.T) {
	c := newTestDenseChannel(t)
	ctx := context.Background()
	require.NoError(t, c.AddChunks(ctx, denseTestChunks()))

	results, err := c.Search(ctx, "fattura", 10, Filters{FilterModule: "fatturazione"})
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, "fatturazione", r.Chunk.Module)
	}
}

func TestHNSWChannel_ReplaceExistingID(t *testing.T) {
	c := newTestDenseChannel(t)
	ctx := context.Background()
	require.NoError(t, c.AddChunks(ctx, denseTestChunks()))

	updated := &Chunk{
		ID:        "c1",
		Title:     "Impostazione aliquota IVA",
		Content:   "Contenuto aggiornato dopo la revisione del manuale.",
		SourceURL: "https://docs.example.com/fatturazione/iva",
	}
	require.NoError(t, c.AddChunks(ctx, []*Chunk{updated}))

	got, err := c.GetChunkByID(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Contenuto aggiornato dopo la revisione del manuale.", got.Content)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.ChunkCount)
}

func TestHNSWChannel_DeleteChunksByURL(t *testing.T) {
	c := newTestDenseChannel(t)
	ctx := context.Background()
	require.NoError(t, c.AddChunks(ctx, denseTestChunks()))

	deleted, err := c.DeleteChunksByURL(ctx, "https://docs.example.com/fatturazione/iva")
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	got, err := c.GetChunkByID(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Deleted chunks never come back from search.
	results, err := c.Search(ctx, "aliquota IVA predefinita impostazioni", 10, nil)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "c1", r.Chunk.ID)
	}
}

func TestHNSWChannel_DeleteChunk(t *testing.T) {
	c := newTestDenseChannel(t)
	ctx := context.Background()
	require.NoError(t, c.AddChunks(ctx, denseTestChunks()))

	ok, err := c.DeleteChunk(ctx, "c2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.DeleteChunk(ctx, "c2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHNSWChannel_PersistAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.hnsw")
	embedder := embed.NewStaticEmbedder()

	c, err := NewHNSWChannel(embedder, HNSWOptions{Path: path})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.AddChunks(ctx, denseTestChunks()))
	require.NoError(t, c.Close())

	reloaded, err := NewHNSWChannel(embedder, HNSWOptions{Path: path})
	require.NoError(t, err)
	defer func() { _ = reloaded.Close() }()

	stats, err := reloaded.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.ChunkCount)

	results, err := reloaded.Search(ctx, "errore ERR-205 stampante fiscale", 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c2", results[0].Chunk.ID)
}
