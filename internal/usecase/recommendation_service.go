package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/catalogmatch/backend/internal/domain"
)

// RecommendationService matches a room, preferences and budget to the best
// design recommendation in the catalog.
type RecommendationService struct {
	catalog  domain.CatalogRepository
	expander *KeywordExpander
	selector *BudgetSelector
	logger   zerolog.Logger
}

// NewRecommendationService creates a new recommendation service with dependencies
func NewRecommendationService(
	catalog domain.CatalogRepository,
	expander *KeywordExpander,
	selector *BudgetSelector,
	logger zerolog.Logger,
) *RecommendationService {
	return &RecommendationService{
		catalog:  catalog,
		expander: expander,
		selector: selector,
		logger:   logger.With().Str("component", "recommendation_service").Logger(),
	}
}

// Match finds the best recommendation.
// Flow: validate -> load room candidates -> expand preferences -> primary pass -> cheaper fallback
func (s *RecommendationService) Match(
	ctx context.Context,
	request *domain.RecommendationRequest,
) (*domain.RecommendationResponse, error) {
	if request == nil {
		return nil, domain.ErrInvalidRequest
	}
	if err := validateRequest(request); err != nil {
		return nil, err
	}
	budget := *request.Budget

	ctx, span := tracer.Start(ctx, "RecommendationService.Match")
	defer span.End()
	span.SetAttributes(
		attribute.String("room_type", request.RoomType),
		attribute.Float64("budget", budget),
	)

	items, err := s.catalog.FindByCategory(ctx, request.RoomType)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}

	tokens := s.expander.ExpandSet(request.Preferences...)
	selection := s.selector.Select(items, tokens, budget)

	s.logger.Debug().
		Str("room_type", request.RoomType).
		Int("candidates", len(items)).
		Int("tokens", len(tokens)).
		Bool("matched", selection.Best != nil).
		Bool("cheaper_alternative", selection.IsCheaperAlternative).
		Msg("recommendation match")

	if selection.Best == nil {
		return &domain.RecommendationResponse{
			HasMatch: false,
			Message:  fmt.Sprintf("No %s recommendation is available at or below a budget of %.2f.", request.RoomType, budget),
		}, nil
	}

	best := selection.Best
	item := best.Item
	resp := &domain.RecommendationResponse{
		HasMatch:             true,
		IsCheaperAlternative: selection.IsCheaperAlternative,
		Recommendation:       &item,
		MatchScore:           best.Breakdown.Total,
		PreferenceMatches:    best.Breakdown.PreferenceMatches,
		TagMatches:           best.Breakdown.TagMatches,
		PartialMatches:       best.Breakdown.PartialMatches,
		BudgetCompatibility:  best.Breakdown.BudgetFit,
	}
	if selection.IsCheaperAlternative {
		resp.Message = fmt.Sprintf(
			"Nothing matches a budget of %.2f exactly; this is a cheaper alternative priced up to %.2f.",
			budget, item.MaxPrice())
	} else {
		resp.Message = fmt.Sprintf("Found a %s recommendation within your budget.", request.RoomType)
	}
	return resp, nil
}
