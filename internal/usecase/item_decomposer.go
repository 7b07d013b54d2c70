package usecase

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/catalogmatch/backend/internal/domain"
)

const defaultProviderTimeout = 8 * time.Second

// ItemDecomposer splits a query that names several catalog items into sub-queries
type ItemDecomposer struct {
	classifier domain.ItemClassifier
	timeout    time.Duration
	logger     zerolog.Logger
}

// NewItemDecomposer creates a decomposer over the given classifier
func NewItemDecomposer(classifier domain.ItemClassifier, timeout time.Duration, logger zerolog.Logger) *ItemDecomposer {
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}
	return &ItemDecomposer{
		classifier: classifier,
		timeout:    timeout,
		logger:     logger.With().Str("component", "item_decomposer").Logger(),
	}
}

// Decompose never fails: a classifier error yields the query as a single item
func (d *ItemDecomposer) Decompose(ctx context.Context, query string) domain.Decomposition {
	query = strings.TrimSpace(query)
	single := domain.Decomposition{IsMultiple: false, Items: []string{query}}

	ctx, span := tracer.Start(ctx, "ItemDecomposer.Decompose")
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	answer, err := d.classifier.Classify(callCtx, query)
	if err != nil {
		span.RecordError(err)
		d.logger.Warn().Err(err).Str("query", query).Msg("classification failed, treating query as a single item")
		return single
	}
	if answer == nil || !answer.IsMultiple {
		return single
	}

	items := sanitizeItems(answer.Items)
	if len(items) < 2 {
		return single
	}
	span.SetAttributes(attribute.Int("items", len(items)))
	return domain.Decomposition{IsMultiple: true, Items: items}
}

// sanitizeItems trims, drops empties and removes case-insensitive repeats
func sanitizeItems(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		key := strings.ToLower(item)
		if item == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}

var itemSeparatorPattern = regexp.MustCompile(`(?i)\s*[,;&+]\s*|\s+and\s+|\s+or\s+`)

// PatternClassifier splits on list separators. It is the deterministic fallback
// when no language model is configured.
type PatternClassifier struct{}

// Classify implements domain.ItemClassifier
func (PatternClassifier) Classify(_ context.Context, query string) (*domain.Decomposition, error) {
	parts := sanitizeItems(itemSeparatorPattern.Split(query, -1))
	if len(parts) < 2 {
		return &domain.Decomposition{IsMultiple: false, Items: []string{strings.TrimSpace(query)}}, nil
	}
	return &domain.Decomposition{IsMultiple: true, Items: parts}, nil
}
