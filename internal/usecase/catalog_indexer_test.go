package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogIndexer_EnsureIndexed(t *testing.T) {
	embedded := pricedItem("embedded", 10)
	embedded.Embedding = []float32{0, 1, 0}
	fresh := pricedItem("fresh", 20)
	fresh.Embedding = nil
	broken := pricedItem("broken", 30)
	broken.Embedding = nil
	broken.Title = "broken"

	catalog := NewMockCatalogRepository(embedded, fresh, broken)
	embedder := NewMockEmbedder()
	embedder.failFor[broken.EmbeddingText()] = true
	index := NewMockVectorIndex()

	indexer := NewCatalogIndexer(catalog, embedder, index, time.Second, testLogger)
	stats, err := indexer.EnsureIndexed(context.Background())
	require.NoError(t, err)

	assert.Equal(t, IndexStats{Indexed: 1, Skipped: 1, Failed: 1}, stats)
	assert.Contains(t, catalog.embedded, "fresh")
	assert.NotContains(t, catalog.embedded, "embedded", "existing embeddings are not replaced")
	assert.Contains(t, index.vectors, "fresh")
}

func TestCatalogIndexer_ReindexReplacesEmbeddings(t *testing.T) {
	embedded := pricedItem("embedded", 10)
	embedded.Embedding = []float32{0, 1, 0}
	catalog := NewMockCatalogRepository(embedded)
	index := NewMockVectorIndex()

	indexer := NewCatalogIndexer(catalog, NewMockEmbedder(), index, time.Second, testLogger)
	stats, err := indexer.Reindex(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Indexed)
	assert.Equal(t, []float32{1, 0, 0}, catalog.embedded["embedded"])
}

func TestCatalogIndexer_Load(t *testing.T) {
	embedded := pricedItem("embedded", 10)
	bare := pricedItem("bare", 10)
	bare.Embedding = nil
	index := NewMockVectorIndex()

	indexer := NewCatalogIndexer(NewMockCatalogRepository(embedded, bare), NewMockEmbedder(), index, time.Second, testLogger)
	stats, err := indexer.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, IndexStats{Indexed: 1, Skipped: 1}, stats)
	assert.Len(t, index.vectors, 1)
}

func TestCatalogIndexer_CatalogFailure(t *testing.T) {
	catalog := NewMockCatalogRepository()
	catalog.readError = errors.New("offline")
	indexer := NewCatalogIndexer(catalog, NewMockEmbedder(), NewMockVectorIndex(), time.Second, testLogger)

	_, err := indexer.EnsureIndexed(context.Background())
	assert.Error(t, err)
}

func TestCatalogIndexer_IndexAndRemoveItem(t *testing.T) {
	item := pricedItem("tile", 5)
	item.Embedding = nil
	catalog := NewMockCatalogRepository(item)
	index := NewMockVectorIndex()
	indexer := NewCatalogIndexer(catalog, NewMockEmbedder(), index, time.Second, testLogger)

	require.NoError(t, indexer.IndexItem(context.Background(), item, false))
	assert.Contains(t, index.vectors, "tile")

	require.NoError(t, indexer.RemoveItem(context.Background(), "tile"))
	assert.NotContains(t, index.vectors, "tile")
}

type stalledEmbedder struct{}

func (stalledEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestCatalogIndexer_EmbeddingTimeout(t *testing.T) {
	bare := pricedItem("bare", 10)
	bare.Embedding = nil
	other := pricedItem("other", 20)
	other.Embedding = nil
	catalog := NewMockCatalogRepository(bare, other)

	indexer := NewCatalogIndexer(catalog, stalledEmbedder{}, NewMockVectorIndex(), 20*time.Millisecond, testLogger)

	start := time.Now()
	stats, err := indexer.EnsureIndexed(context.Background())
	require.NoError(t, err)

	assert.Equal(t, IndexStats{Failed: 2}, stats)
	assert.Less(t, time.Since(start), 2*time.Second, "a stalled provider must not block the run")
	assert.Empty(t, catalog.embedded)
}
