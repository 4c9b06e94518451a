package embed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticEmbedder_Deterministic(t *testing.T) {
	e := NewStaticEmbedder()
	defer func() { _ = e.Close() }()

	ctx := context.Background()
	a, err := e.Embed(ctx, "come impostare il parametro IVA")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "come impostare il parametro IVA")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, StaticDimensions)
}

func TestStaticEmbedder_UnitLength(t *testing.T) {
	e := NewStaticEmbedder()
	defer func() { _ = e.Close() }()

	vec, err := e.Embed(context.Background(), "fattura elettronica invio")
	require.NoError(t, err)

	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sumSquares), 1e-5)
}

func TestStaticEmbedder_EmptyText(t *testing.T) {
	e := NewStaticEmbedder()
	defer func() { _ = e.Close() }()

	vec, err := e.Embed(context.Background(), "   ")
	require.NoError(t, err)

	assert.Len(t, vec, StaticDimensions)
	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestStaticEmbedder_DifferentTextsDiffer(t *testing.T) {
	e := NewStaticEmbedder()
	defer func() { _ = e.Close() }()

	ctx := context.Background()
	a, err := e.Embed(ctx, "errore ERR-205 durante la stampa")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "configurazione aliquota predefinita")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestStaticEmbedder_EmbedBatch(t *testing.T) {
	e := NewStaticEmbedder()
	defer func() { _ = e.Close() }()

	ctx := context.Background()
	texts := []string{"primo testo", "secondo testo", "terzo testo"}
	vecs, err := e.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, vecs, 3)

	single, err := e.Embed(ctx, texts[1])
	require.NoError(t, err)
	assert.Equal(t, single, vecs[1])
}

func TestStaticEmbedder_Closed(t *testing.T) {
	e := NewStaticEmbedder()
	require.NoError(t, e.Close())

	_, err := e.Embed(context.Background(), "testo")
	assert.Error(t, err)
	assert.False(t, e.Available(context.Background()))
}

func TestTokenize_AccentedItalian(t *testing.T) {
	tokens := tokenize("Funzionalità di contabilità")
	assert.Contains(t, tokens, "funzionalità")
	assert.Contains(t, tokens, "contabilità")
}

func TestExtractNgrams(t *testing.T) {
	assert.Equal(t, []string{"fat", "att", "ttu", "tur", "ura"}, extractNgrams("fattura", 3))
	assert.Empty(t, extractNgrams("ab", 3))
}
