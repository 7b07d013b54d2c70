package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/catalogmatch/backend/internal/domain"
)

// SemanticRecall retrieves the nearest catalog items for a free-text query
type SemanticRecall struct {
	expander *KeywordExpander
	embedder domain.Embedder
	index    domain.VectorIndex
	catalog  domain.CatalogRepository
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewSemanticRecall creates a recall component
func NewSemanticRecall(
	expander *KeywordExpander,
	embedder domain.Embedder,
	index domain.VectorIndex,
	catalog domain.CatalogRepository,
	timeout time.Duration,
	logger zerolog.Logger,
) *SemanticRecall {
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}
	return &SemanticRecall{
		expander: expander,
		embedder: embedder,
		index:    index,
		catalog:  catalog,
		timeout:  timeout,
		logger:   logger.With().Str("component", "semantic_recall").Logger(),
	}
}

// Recall returns up to k candidates in index order. Embedder and index failures
// wrap domain.ErrRecallUnavailable; catalog read failures wrap
// domain.ErrCatalogUnavailable.
func (r *SemanticRecall) Recall(ctx context.Context, query string, k int) ([]domain.Candidate, error) {
	if k <= 0 {
		return nil, nil
	}

	ctx, span := tracer.Start(ctx, "SemanticRecall.Recall")
	defer span.End()
	span.SetAttributes(attribute.Int("k", k))

	text := r.expander.ExpandQueryText(query)

	embedCtx, cancel := context.WithTimeout(ctx, r.timeout)
	vector, err := r.embedder.Embed(embedCtx, text)
	cancel()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embed failed")
		return nil, fmt.Errorf("%w: embed query: %v", domain.ErrRecallUnavailable, err)
	}

	searchCtx, cancel := context.WithTimeout(ctx, r.timeout)
	hits, err := r.index.Search(searchCtx, vector, k)
	cancel()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "index search failed")
		return nil, fmt.Errorf("%w: vector search: %v", domain.ErrRecallUnavailable, err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	items, err := r.catalog.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}

	byID := make(map[string]domain.CatalogItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	candidates := make([]domain.Candidate, 0, len(hits))
	for _, h := range hits {
		item, ok := byID[h.ID]
		if !ok || !item.HasEmbedding() {
			r.logger.Debug().Str("item_id", h.ID).Msg("skipping stale index entry")
			continue
		}
		candidates = append(candidates, domain.Candidate{Item: item, Similarity: h.Score})
	}
	span.SetAttributes(attribute.Int("candidates", len(candidates)))
	return candidates, nil
}
