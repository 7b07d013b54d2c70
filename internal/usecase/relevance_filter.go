package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/catalogmatch/backend/internal/domain"
)

var tracer = otel.Tracer("catalogmatch/usecase")

// RelevanceFilterConfig holds configuration for the relevance filter
type RelevanceFilterConfig struct {
	Timeout    time.Duration
	FailClosed bool
}

// RelevanceFilter asks a judge which recalled candidates are clearly relevant
type RelevanceFilter struct {
	judge      domain.RelevanceJudge
	timeout    time.Duration
	failClosed bool
	logger     zerolog.Logger
}

// NewRelevanceFilter creates a filter over the given judge
func NewRelevanceFilter(judge domain.RelevanceJudge, config RelevanceFilterConfig, logger zerolog.Logger) *RelevanceFilter {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}
	return &RelevanceFilter{
		judge:      judge,
		timeout:    timeout,
		failClosed: config.FailClosed,
		logger:     logger.With().Str("component", "relevance_filter").Logger(),
	}
}

// Filter returns the candidates the judge selected, in the judge's order.
// Ids that were not offered, and repeats, are dropped. A judge failure keeps
// every candidate unless the filter is configured to fail closed.
func (f *RelevanceFilter) Filter(ctx context.Context, query string, candidates []domain.Candidate) []domain.Candidate {
	if len(candidates) == 0 {
		return nil
	}

	ctx, span := tracer.Start(ctx, "RelevanceFilter.Filter")
	defer span.End()
	span.SetAttributes(attribute.Int("candidates", len(candidates)))

	summaries := make([]domain.CandidateSummary, len(candidates))
	byID := make(map[string]domain.Candidate, len(candidates))
	for i := range candidates {
		summaries[i] = candidates[i].Item.Summary()
		byID[candidates[i].Item.ID] = candidates[i]
	}

	callCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	ids, err := f.judge.SelectRelevant(callCtx, query, summaries)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "judge failed")
		if f.failClosed {
			f.logger.Warn().Err(err).Str("query", query).Msg("relevance judge failed, dropping all candidates")
			return nil
		}
		f.logger.Warn().Err(err).Str("query", query).Msg("relevance judge failed, keeping all candidates")
		return candidates
	}

	kept := make([]domain.Candidate, 0, len(ids))
	for _, id := range ids {
		c, ok := byID[id]
		if !ok {
			f.logger.Debug().Str("item_id", id).Msg("judge returned unknown id")
			continue
		}
		kept = append(kept, c)
		delete(byID, id)
	}
	span.SetAttributes(attribute.Int("kept", len(kept)))
	return kept
}

// PassthroughJudge selects every candidate in recall order
type PassthroughJudge struct{}

// SelectRelevant implements domain.RelevanceJudge
func (PassthroughJudge) SelectRelevant(_ context.Context, _ string, candidates []domain.CandidateSummary) ([]string, error) {
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}
	return ids, nil
}
