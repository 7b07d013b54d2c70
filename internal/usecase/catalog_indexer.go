package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/catalogmatch/backend/internal/domain"
)

// IndexStats summarizes an indexing run
type IndexStats struct {
	Indexed int
	Skipped int
	Failed  int
}

// CatalogIndexer enrolls catalog items in semantic search. Failures are
// per item and never abort a run.
type CatalogIndexer struct {
	catalog  domain.CatalogRepository
	embedder domain.Embedder
	index    domain.VectorIndex
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewCatalogIndexer creates an indexer; timeout bounds each embedding call
func NewCatalogIndexer(
	catalog domain.CatalogRepository,
	embedder domain.Embedder,
	index domain.VectorIndex,
	timeout time.Duration,
	logger zerolog.Logger,
) *CatalogIndexer {
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}
	return &CatalogIndexer{
		catalog:  catalog,
		embedder: embedder,
		index:    index,
		timeout:  timeout,
		logger:   logger.With().Str("component", "catalog_indexer").Logger(),
	}
}

// Load inserts items that already carry an embedding into the vector index
func (i *CatalogIndexer) Load(ctx context.Context) (IndexStats, error) {
	items, err := i.catalog.All(ctx)
	if err != nil {
		return IndexStats{}, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}

	var stats IndexStats
	for _, item := range items {
		if !item.HasEmbedding() {
			stats.Skipped++
			continue
		}
		if err := i.index.Upsert(ctx, item.ID, item.Embedding); err != nil {
			i.logger.Warn().Err(err).Str("item_id", item.ID).Msg("failed to load embedding into index")
			stats.Failed++
			continue
		}
		stats.Indexed++
	}
	return stats, nil
}

// EnsureIndexed embeds every item that has no embedding yet
func (i *CatalogIndexer) EnsureIndexed(ctx context.Context) (IndexStats, error) {
	return i.run(ctx, false)
}

// Reindex re-embeds every item, replacing existing embeddings
func (i *CatalogIndexer) Reindex(ctx context.Context) (IndexStats, error) {
	return i.run(ctx, true)
}

func (i *CatalogIndexer) run(ctx context.Context, force bool) (IndexStats, error) {
	items, err := i.catalog.All(ctx)
	if err != nil {
		return IndexStats{}, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}

	var stats IndexStats
	for _, item := range items {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		if item.HasEmbedding() && !force {
			stats.Skipped++
			continue
		}
		if err := i.embedAndStore(ctx, item); err != nil {
			i.logger.Warn().Err(err).Str("item_id", item.ID).Msg("failed to index item")
			stats.Failed++
			continue
		}
		stats.Indexed++
	}

	i.logger.Info().
		Int("indexed", stats.Indexed).
		Int("skipped", stats.Skipped).
		Int("failed", stats.Failed).
		Bool("full", force).
		Msg("catalog indexing finished")
	return stats, nil
}

// IndexItem embeds a single item. An existing embedding is kept unless force is set.
func (i *CatalogIndexer) IndexItem(ctx context.Context, item domain.CatalogItem, force bool) error {
	if item.HasEmbedding() && !force {
		return i.index.Upsert(ctx, item.ID, item.Embedding)
	}
	return i.embedAndStore(ctx, item)
}

// RemoveItem drops an item from the vector index
func (i *CatalogIndexer) RemoveItem(ctx context.Context, id string) error {
	return i.index.Delete(ctx, id)
}

func (i *CatalogIndexer) embedAndStore(ctx context.Context, item domain.CatalogItem) error {
	embedCtx, cancel := context.WithTimeout(ctx, i.timeout)
	vector, err := i.embedder.Embed(embedCtx, item.EmbeddingText())
	cancel()
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	if err := i.catalog.UpdateEmbedding(ctx, item.ID, vector); err != nil {
		return fmt.Errorf("store embedding: %w", err)
	}
	if err := i.index.Upsert(ctx, item.ID, vector); err != nil {
		return fmt.Errorf("index upsert: %w", err)
	}
	return nil
}
