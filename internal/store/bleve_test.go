package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBleveChannel(t *testing.T) *BleveLexicalChannel {
	t.Helper()
	c, err := NewBleveLexicalChannel("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestBleve_AddAndSearch(t *testing.T) {
	c := newTestBleveChannel(t)
	ctx := context.Background()
	require.NoError(t, c.AddChunks(ctx, lexicalTestChunks()))

	results, err := c.Search(ctx, "fattura elettronica", 10, nil, defaultBoosts)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "l3", results[0].Chunk.ID)
}

func TestBleve_Filters(t *testing.T) {
	c := newTestBleveChannel(t)
	ctx := context.Background()
	require.NoError(t, c.AddChunks(ctx, lexicalTestChunks()))

	results, err := c.Search(ctx, "fattura", 10, Filters{FilterModule: "fatturazione"}, defaultBoosts)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.Equal(t, "fatturazione", r.Chunk.Module)
	}

	results, err = c.Search(ctx, "fattura", 10, Filters{FilterModule: "magazzino"}, defaultBoosts)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBleve_GetAndDelete(t *testing.T) {
	c := newTestBleveChannel(t)
	ctx := context.Background()
	require.NoError(t, c.AddChunks(ctx, lexicalTestChunks()))

	got, err := c.GetChunkByID(ctx, "l2")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "ERR-205", got.ErrorCode)

	ok, err := c.DeleteChunk(ctx, "l2")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err = c.GetChunkByID(ctx, "l2")
	require.NoError(t, err)
	assert.Nil(t, got)

	ok, err = c.DeleteChunk(ctx, "l2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBleve_DeleteChunksByURL(t *testing.T) {
	c := newTestBleveChannel(t)
	ctx := context.Background()
	require.NoError(t, c.AddChunks(ctx, lexicalTestChunks()))

	deleted, err := c.DeleteChunksByURL(ctx, "https://docs.example.com/fatturazione/iva")
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ChunkCount)
}
