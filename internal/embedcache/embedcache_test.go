package embedcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls   int
	batched [][]string
}

func (f *countingEmbedder) ModelName() string { return "fake-model" }

func (f *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	f.batched = append(f.batched, texts)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), float32(f.calls)}
	}
	return out, nil
}

func TestWrapLRUCachesRepeats(t *testing.T) {
	inner := &countingEmbedder{}
	e := WrapLRU(inner, 16, time.Minute)

	first, err := e.Embed(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, 1, inner.calls)

	second, err := e.Embed(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls, "full cache hit must not call the provider")
	assert.Equal(t, first, second)
}

func TestWrapLRUForwardsOnlyMisses(t *testing.T) {
	inner := &countingEmbedder{}
	e := WrapLRU(inner, 16, time.Minute)

	_, err := e.Embed(context.Background(), []string{"alpha"})
	require.NoError(t, err)

	out, err := e.Embed(context.Background(), []string{"alpha", "gamma", "alpha"})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, []string{"gamma"}, inner.batched[1])
	assert.Equal(t, out[0], out[2])
}

func TestWrapLRUDisabled(t *testing.T) {
	inner := &countingEmbedder{}
	assert.Equal(t, inner, WrapLRU(inner, 0, time.Minute))
	assert.Equal(t, inner, WrapLRU(inner, 10, 0))
}
