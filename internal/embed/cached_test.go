package embed

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder wraps StaticEmbedder and counts inner calls.
type countingEmbedder struct {
	*StaticEmbedder

	mu         sync.Mutex
	embeds     int
	batchTexts int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.mu.Lock()
	c.embeds++
	c.mu.Unlock()
	return c.StaticEmbedder.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.mu.Lock()
	c.batchTexts += len(texts)
	c.mu.Unlock()
	return c.StaticEmbedder.EmbedBatch(ctx, texts)
}

func TestCachedEmbedder_HitAvoidsInnerCall(t *testing.T) {
	inner := &countingEmbedder{StaticEmbedder: NewStaticEmbedder()}
	cached := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	first, err := cached.Embed(ctx, "configurazione stampante fiscale")
	require.NoError(t, err)
	second, err := cached.Embed(ctx, "configurazione stampante fiscale")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.embeds)
}

func TestCachedEmbedder_BatchOnlyEmbedsMisses(t *testing.T) {
	inner := &countingEmbedder{StaticEmbedder: NewStaticEmbedder()}
	cached := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	_, err := cached.Embed(ctx, "testo a")
	require.NoError(t, err)

	vecs, err := cached.EmbedBatch(ctx, []string{"testo a", "testo b", "testo c"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)

	// "testo a" was already cached; only b and c hit the inner embedder.
	assert.Equal(t, 2, inner.batchTexts)
}

func TestCachedEmbedder_Passthrough(t *testing.T) {
	inner := NewStaticEmbedder()
	cached := NewCachedEmbedder(inner, 10)

	assert.Equal(t, StaticDimensions, cached.Dimensions())
	assert.Equal(t, "static", cached.ModelName())
	assert.True(t, cached.Available(context.Background()))
	assert.NoError(t, cached.Close())
}

func TestNew_Providers(t *testing.T) {
	e, err := New(Config{Provider: "static"})
	require.NoError(t, err)
	assert.Equal(t, "static", e.ModelName())

	e, err = New(Config{Provider: "ollama", Model: "bge-m3"})
	require.NoError(t, err)
	assert.Equal(t, "bge-m3", e.ModelName())

	_, err = New(Config{Provider: "bogus"})
	assert.Error(t, err)
}
