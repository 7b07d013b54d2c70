package vectorindex

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalogmatch/backend/internal/domain"
)

func TestHNSWIndex_SearchOrdersBySimilarity(t *testing.T) {
	idx := NewHNSWIndex(HNSWConfig{Dimensions: 3})
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, "oak", []float32{1, 0, 0}))
	require.NoError(t, idx.Upsert(ctx, "walnut", []float32{0.8, 0.2, 0}))
	require.NoError(t, idx.Upsert(ctx, "tile", []float32{0, 0, 1}))

	hits, err := idx.Search(ctx, []float32{2, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "oak", hits[0].ID)
	assert.Equal(t, "walnut", hits[1].ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-5)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestHNSWIndex_UpsertReplaces(t *testing.T) {
	idx := NewHNSWIndex(HNSWConfig{})
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, "a", []float32{1, 0}))
	require.NoError(t, idx.Upsert(ctx, "b", []float32{0, 1}))
	require.NoError(t, idx.Upsert(ctx, "a", []float32{0, 1}))
	assert.Equal(t, 2, idx.Len())

	hits, err := idx.Search(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, h := range hits {
		assert.InDelta(t, 0.5, h.Score, 1e-5, "stale vector of %s leaked", h.ID)
	}
}

func TestHNSWIndex_Delete(t *testing.T) {
	idx := NewHNSWIndex(HNSWConfig{})
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, "a", []float32{1, 0}))
	require.NoError(t, idx.Upsert(ctx, "b", []float32{0.9, 0.1}))
	require.NoError(t, idx.Delete(ctx, "a"))
	require.NoError(t, idx.Delete(ctx, "unknown"))

	assert.False(t, idx.Contains("a"))
	hits, err := idx.Search(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b", hits[0].ID)
}

func TestHNSWIndex_DimensionMismatch(t *testing.T) {
	idx := NewHNSWIndex(HNSWConfig{})
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, "a", []float32{1, 0, 0}))

	err := idx.Upsert(ctx, "b", []float32{1, 0})
	assert.True(t, errors.Is(err, domain.ErrDimensionMismatch))

	_, err = idx.Search(ctx, []float32{1}, 1)
	assert.True(t, errors.Is(err, domain.ErrDimensionMismatch))

	assert.Error(t, idx.Upsert(ctx, "c", nil))
}

func TestHNSWIndex_EmptyAndNonPositiveK(t *testing.T) {
	idx := NewHNSWIndex(HNSWConfig{Dimensions: 2})
	ctx := context.Background()

	hits, err := idx.Search(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, hits)

	require.NoError(t, idx.Upsert(ctx, "a", []float32{1, 0}))
	hits, err = idx.Search(ctx, []float32{1, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestNormalizeInPlace(t *testing.T) {
	v := []float32{3, 4}
	normalizeInPlace(v)
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	zero := []float32{0, 0}
	normalizeInPlace(zero)
	assert.Equal(t, []float32{0, 0}, zero)
}
