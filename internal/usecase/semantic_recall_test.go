package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalogmatch/backend/internal/domain"
)

func TestSemanticRecall_Recall(t *testing.T) {
	oak := pricedItem("oak", 40)
	steel := pricedItem("steel", 90)
	stale := pricedItem("unembedded", 10)
	stale.Embedding = nil

	newRecall := func(embedder *MockEmbedder, index *MockVectorIndex, catalog *MockCatalogRepository) *SemanticRecall {
		return NewSemanticRecall(NewKeywordExpander(), embedder, index, catalog, 50*time.Millisecond, testLogger)
	}

	t.Run("hydrates hits in index order", func(t *testing.T) {
		index := NewMockVectorIndex()
		index.hits[1] = []domain.VectorHit{{ID: "steel", Score: 0.9}, {ID: "missing", Score: 0.8}, {ID: "unembedded", Score: 0.7}, {ID: "oak", Score: 0.6}}
		r := newRecall(NewMockEmbedder(), index, NewMockCatalogRepository(oak, steel, stale))

		got, err := r.Recall(context.Background(), "metal", 10)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "steel", got[0].Item.ID)
		assert.Equal(t, float32(0.9), got[0].Similarity)
		assert.Equal(t, "oak", got[1].Item.ID)
	})

	t.Run("embeds the expanded query", func(t *testing.T) {
		embedder := NewMockEmbedder()
		r := newRecall(embedder, NewMockVectorIndex(), NewMockCatalogRepository())

		_, err := r.Recall(context.Background(), "wood", 5)
		require.NoError(t, err)
		require.Len(t, embedder.calls, 1)
		assert.Contains(t, embedder.calls[0], "timber")
	})

	t.Run("embedder failure is recall unavailable", func(t *testing.T) {
		embedder := NewMockEmbedder()
		embedder.err = errors.New("quota exceeded")
		r := newRecall(embedder, NewMockVectorIndex(), NewMockCatalogRepository())

		_, err := r.Recall(context.Background(), "wood", 5)
		assert.ErrorIs(t, err, domain.ErrRecallUnavailable)
	})

	t.Run("embedder timeout is recall unavailable", func(t *testing.T) {
		embedder := NewMockEmbedder()
		embedder.delay = time.Second
		r := newRecall(embedder, NewMockVectorIndex(), NewMockCatalogRepository())

		_, err := r.Recall(context.Background(), "wood", 5)
		assert.ErrorIs(t, err, domain.ErrRecallUnavailable)
	})

	t.Run("index failure is recall unavailable", func(t *testing.T) {
		index := NewMockVectorIndex()
		index.searchErr = errors.New("connection refused")
		r := newRecall(NewMockEmbedder(), index, NewMockCatalogRepository())

		_, err := r.Recall(context.Background(), "wood", 5)
		assert.ErrorIs(t, err, domain.ErrRecallUnavailable)
	})

	t.Run("catalog failure is catalog unavailable", func(t *testing.T) {
		index := NewMockVectorIndex()
		index.hits[1] = []domain.VectorHit{{ID: "oak", Score: 1}}
		catalog := NewMockCatalogRepository(oak)
		catalog.readError = errors.New("disk gone")
		r := newRecall(NewMockEmbedder(), index, catalog)

		_, err := r.Recall(context.Background(), "wood", 5)
		assert.ErrorIs(t, err, domain.ErrCatalogUnavailable)
	})

	t.Run("non-positive k returns nothing", func(t *testing.T) {
		embedder := NewMockEmbedder()
		r := newRecall(embedder, NewMockVectorIndex(), NewMockCatalogRepository())

		got, err := r.Recall(context.Background(), "wood", 0)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.Empty(t, embedder.calls)
	})
}
