package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/catalogmatch/backend/internal/domain"
)

// MaterialSearchConfig holds configuration for the material search service
type MaterialSearchConfig struct {
	DefaultTopK         int
	MaxTopK             int
	SubqueryConcurrency int
}

// MaterialSearchService answers free-text material queries with relevance
// filtering and price-tier comparison.
type MaterialSearchService struct {
	decomposer  *ItemDecomposer
	recall      *SemanticRecall
	filter      *RelevanceFilter
	comparator  *PriceComparator
	defaultTopK int
	maxTopK     int
	concurrency int
	logger      zerolog.Logger
}

// NewMaterialSearchService creates a new material search service with dependencies
func NewMaterialSearchService(
	decomposer *ItemDecomposer,
	recall *SemanticRecall,
	filter *RelevanceFilter,
	comparator *PriceComparator,
	config MaterialSearchConfig,
	logger zerolog.Logger,
) *MaterialSearchService {
	maxTopK := config.MaxTopK
	if maxTopK <= 0 {
		maxTopK = 50
	}
	topK := config.DefaultTopK
	if topK <= 0 {
		topK = 10
	}
	if topK > maxTopK {
		topK = maxTopK
	}
	concurrency := config.SubqueryConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	return &MaterialSearchService{
		decomposer:  decomposer,
		recall:      recall,
		filter:      filter,
		comparator:  comparator,
		defaultTopK: topK,
		maxTopK:     maxTopK,
		concurrency: concurrency,
		logger:      logger.With().Str("component", "material_search").Logger(),
	}
}

// Search runs the recall -> filter -> select -> compare pipeline once per item
// named in the query. Sub-queries share nothing and may run in parallel;
// results and notFound keep the decomposition order.
func (s *MaterialSearchService) Search(ctx context.Context, request *domain.SearchRequest) (*domain.SearchResponse, error) {
	if request == nil {
		return nil, domain.ErrInvalidRequest
	}
	if err := validateRequest(request); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "MaterialSearchService.Search")
	defer span.End()

	k := request.Limit
	if k <= 0 {
		k = s.defaultTopK
	}
	if k > s.maxTopK {
		k = s.maxTopK
	}

	decomposition := s.decomposer.Decompose(ctx, request.Query)
	span.SetAttributes(
		attribute.Bool("multiple", decomposition.IsMultiple),
		attribute.Int("items", len(decomposition.Items)),
	)

	if !decomposition.IsMultiple {
		result, err := s.searchOne(ctx, decomposition.Items[0], k)
		if err != nil {
			return nil, err
		}
		return &domain.SearchResponse{Result: result}, nil
	}

	slots := make([]*domain.MatchResult, len(decomposition.Items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, item := range decomposition.Items {
		g.Go(func() error {
			result, err := s.searchOne(gctx, item, k)
			if err != nil {
				return err
			}
			slots[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	resp := &domain.SearchResponse{
		IsMultiple: true,
		Results:    make([]*domain.MatchResult, 0, len(slots)),
		NotFound:   make([]string, 0),
	}
	for i, result := range slots {
		if result == nil {
			resp.NotFound = append(resp.NotFound, decomposition.Items[i])
			continue
		}
		resp.Results = append(resp.Results, result)
	}
	return resp, nil
}

// searchOne returns nil without error when nothing relevant was found.
// Only catalog read failures are returned as errors.
func (s *MaterialSearchService) searchOne(ctx context.Context, query string, k int) (*domain.MatchResult, error) {
	candidates, err := s.recall.Recall(ctx, query, k)
	if err != nil {
		if errors.Is(err, domain.ErrRecallUnavailable) {
			s.logger.Warn().Err(err).Str("query", query).Msg("recall unavailable, reporting no results")
			return nil, nil
		}
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	relevant := s.filter.Filter(ctx, query, candidates)
	if len(relevant) == 0 {
		s.logger.Debug().Str("query", query).Int("recalled", len(candidates)).Msg("no relevant candidates")
		return nil, nil
	}

	chosen := relevant[0]
	pool := make([]domain.CatalogItem, len(relevant))
	for i := range relevant {
		pool[i] = relevant[i].Item
	}
	cmp := s.comparator.Compare(&chosen.Item, pool)

	return &domain.MatchResult{
		Item:              chosen.Item,
		Query:             query,
		Score:             float64(chosen.Similarity),
		EffectivePrice:    cmp.EffectivePrice,
		Cheaper:           cmp.Cheaper,
		MoreExpensive:     cmp.MoreExpensive,
		OptionsComparison: cmp.OptionsComparison,
	}, nil
}
