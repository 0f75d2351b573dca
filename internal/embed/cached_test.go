package embed

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder wraps StaticEmbedder and counts provider calls.
type countingEmbedder struct {
	*StaticEmbedder
	calls atomic.Int64
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls.Add(1)
	return c.StaticEmbedder.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls.Add(int64(len(texts)))
	return c.StaticEmbedder.EmbedBatch(ctx, texts)
}

func TestCachedEmbedderHit(t *testing.T) {
	inner := &countingEmbedder{StaticEmbedder: NewStaticEmbedder()}
	cached, err := NewCachedEmbedder(inner, 10)
	require.NoError(t, err)
	ctx := context.Background()

	v1, err := cached.Embed(ctx, "repeated query")
	require.NoError(t, err)
	v2, err := cached.Embed(ctx, "repeated query")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Equal(t, int64(1), inner.calls.Load())
	assert.Equal(t, 1, cached.Len())
}

func TestCachedEmbedderBatchPartialHits(t *testing.T) {
	inner := &countingEmbedder{StaticEmbedder: NewStaticEmbedder()}
	cached, err := NewCachedEmbedder(inner, 10)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = cached.Embed(ctx, "already cached")
	require.NoError(t, err)
	inner.calls.Store(0)

	results, err := cached.EmbedBatch(ctx, []string{"already cached", "new one"})
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, int64(1), inner.calls.Load(), "only the miss hits the provider")
}

func TestCachedEmbedderEviction(t *testing.T) {
	inner := NewStaticEmbedder()
	cached, err := NewCachedEmbedder(inner, 2)
	require.NoError(t, err)
	ctx := context.Background()

	for _, text := range []string{"one", "two", "three"} {
		_, err := cached.Embed(ctx, text)
		require.NoError(t, err)
	}

	assert.Equal(t, 2, cached.Len())
}

func TestCachedEmbedderPassthroughMetadata(t *testing.T) {
	cached, err := NewCachedEmbedder(NewStaticEmbedder(), 10)
	require.NoError(t, err)

	assert.Equal(t, StaticDimensions, cached.Dimensions())
	assert.Equal(t, "static-hash", cached.ModelName())
	assert.True(t, cached.Available(context.Background()))
}
