package embed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticEmbedderDeterministic(t *testing.T) {
	e := NewStaticEmbedder()
	ctx := context.Background()

	v1, err := e.Embed(ctx, "how to scale a milvus cluster")
	require.NoError(t, err)
	v2, err := e.Embed(ctx, "how to scale a milvus cluster")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Len(t, v1, StaticDimensions)
}

func TestStaticEmbedderUnitLength(t *testing.T) {
	e := NewStaticEmbedder()

	vec, err := e.Embed(context.Background(), "deployment configuration guide")
	require.NoError(t, err)

	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sumSquares), 1e-5)
}

func TestStaticEmbedderEmptyInput(t *testing.T) {
	e := NewStaticEmbedder()

	vec, err := e.Embed(context.Background(), "   \n\t  ")
	require.NoError(t, err)

	assert.Len(t, vec, StaticDimensions)
	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestStaticEmbedderSimilarTextsCloser(t *testing.T) {
	e := NewStaticEmbedder()
	ctx := context.Background()

	base, err := e.Embed(ctx, "install and configure the database cluster")
	require.NoError(t, err)
	similar, err := e.Embed(ctx, "installing and configuring a database cluster")
	require.NoError(t, err)
	unrelated, err := e.Embed(ctx, "zebra quantum xylophone weather")
	require.NoError(t, err)

	assert.Less(t, euclidean(base, similar), euclidean(base, unrelated))
}

func euclidean(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

func TestStaticEmbedderBatchMatchesSingle(t *testing.T) {
	e := NewStaticEmbedder()
	ctx := context.Background()
	texts := []string{"first text", "", "third text"}

	batch, err := e.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, batch, 3)

	single, err := e.Embed(ctx, "first text")
	require.NoError(t, err)
	assert.Equal(t, single, batch[0])
}

func TestStaticEmbedderClosed(t *testing.T) {
	e := NewStaticEmbedder()
	require.NoError(t, e.Close())

	_, err := e.Embed(context.Background(), "text")
	assert.Error(t, err)
}

func TestSplitCaseBoundaries(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"camelCase", []string{"camel", "Case"}},
		{"HTTPServer", []string{"HTTP", "Server"}},
		{"simple", []string{"simple"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, splitCaseBoundaries(tt.in), tt.in)
	}
}

func TestTokenizeDropsStopWords(t *testing.T) {
	tokens := tokenizeText("the cluster is distributed")

	assert.Contains(t, tokens, "cluster")
	assert.Contains(t, tokens, "distributed")
	assert.NotContains(t, tokens, "the")
	assert.NotContains(t, tokens, "is")
}
