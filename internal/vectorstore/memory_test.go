package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/ragserve/internal/model"
	apperr "github.com/xxxsen/ragserve/internal/pkg/errors"
)

func newTestCollection(t *testing.T) Store {
	t.Helper()
	s := NewMemory()
	require.NoError(t, s.EnsureCollection(context.Background(), "docs", 3, DistanceCosine))
	return s
}

func TestEnsureCollectionIdempotent(t *testing.T) {
	s := newTestCollection(t)
	assert.NoError(t, s.EnsureCollection(context.Background(), "docs", 3, DistanceCosine))
}

func TestEnsureCollectionDimConflict(t *testing.T) {
	s := newTestCollection(t)
	err := s.EnsureCollection(context.Background(), "docs", 4, DistanceCosine)
	assert.ErrorIs(t, err, apperr.ErrSchemaMismatch)
}

func TestUpsertOverwritesByID(t *testing.T) {
	s := newTestCollection(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "docs", []model.Point{
		{ID: "p1", Vector: []float32{1, 0, 0}, Payload: map[string]interface{}{"text": "old"}},
	}))
	require.NoError(t, s.Upsert(ctx, "docs", []model.Point{
		{ID: "p1", Vector: []float32{0, 1, 0}, Payload: map[string]interface{}{"text": "new"}},
	}))

	page, err := s.Scroll(ctx, "docs", 10, "")
	require.NoError(t, err)
	require.Len(t, page.Points, 1, "overwrite must not duplicate")
	assert.Equal(t, "new", page.Points[0].Payload["text"])
}

func TestUpsertDimMismatchRejectsWholeBatch(t *testing.T) {
	s := newTestCollection(t)
	ctx := context.Background()

	err := s.Upsert(ctx, "docs", []model.Point{
		{ID: "ok", Vector: []float32{1, 0, 0}},
		{ID: "bad", Vector: []float32{1, 0}},
	})
	require.ErrorIs(t, err, apperr.ErrSchemaMismatch)

	page, err := s.Scroll(ctx, "docs", 10, "")
	require.NoError(t, err)
	assert.Empty(t, page.Points, "no partial write on batch failure")
}

func TestSearchOrdering(t *testing.T) {
	s := newTestCollection(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "docs", []model.Point{
		{ID: "exact", Vector: []float32{1, 0, 0}, Payload: map[string]interface{}{"text": "exact"}},
		{ID: "near", Vector: []float32{1, 1, 0}},
		{ID: "far", Vector: []float32{0, 0, 1}},
	}))

	results, err := s.Search(ctx, "docs", []float32{1, 0, 0}, 10, true)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "exact", results[0].ID)
	assert.Equal(t, "near", results[1].ID)
	assert.Equal(t, "far", results[2].ID)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score, "non-increasing similarity")
	}
	assert.Equal(t, "exact", results[0].Payload["text"])

	// Truncation to topK; never more points than exist.
	results, err = s.Search(ctx, "docs", []float32{1, 0, 0}, 2, false)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	results, err = s.Search(ctx, "docs", []float32{1, 0, 0}, 99, false)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestSearchWithoutPayload(t *testing.T) {
	s := newTestCollection(t)
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, "docs", []model.Point{
		{ID: "p", Vector: []float32{1, 0, 0}, Payload: map[string]interface{}{"text": "t"}},
	}))
	results, err := s.Search(ctx, "docs", []float32{1, 0, 0}, 1, false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Nil(t, results[0].Payload)
}

func TestScrollPagination(t *testing.T) {
	s := newTestCollection(t)
	ctx := context.Background()

	var points []model.Point
	for i := 0; i < 5; i++ {
		points = append(points, model.Point{
			ID:     string(rune('a' + i)),
			Vector: []float32{float32(i), 1, 0},
		})
	}
	require.NoError(t, s.Upsert(ctx, "docs", points))

	var seen []string
	cursor := ""
	for {
		page, err := s.Scroll(ctx, "docs", 2, cursor)
		require.NoError(t, err)
		for _, p := range page.Points {
			seen = append(seen, p.ID)
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, seen)
}

func TestUnknownCollection(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	_, err := s.Search(ctx, "missing", []float32{1}, 1, false)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	err = s.Upsert(ctx, "missing", nil)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
