package usecase

import (
	"math"
	"sort"
	"strings"

	"github.com/catalogmatch/backend/internal/domain"
)

// Score weights
const (
	weightPreference = 5.0 // Exact preference keyword overlap
	weightTag        = 3.0 // Exact tag overlap
	weightPartial    = 1.0 // Substring overlap in either direction
	weightBudgetFit  = 2.0 // Closeness to the requested budget
	popularityScale  = 100.0
	partialTagFactor = 0.5 // Partial tag hits count half of partial preference hits
)

// BudgetFit scores how well an item sits around the requested budget.
// Range items score 1 at the range midpoint and fall off linearly towards the
// bounds; items whose range excludes the budget score 0. Scalar items use
// PriceCloseness.
func BudgetFit(item *domain.CatalogItem, budget float64) float64 {
	if item.PriceRange == nil {
		if item.Price > budget {
			return 0
		}
		return PriceCloseness(item.Price, budget)
	}

	r := item.PriceRange
	if !r.Contains(budget) {
		return 0
	}
	width := r.Max - r.Min
	if width <= 0 {
		return 1
	}
	return clamp01(1 - math.Abs(budget-r.Midpoint())/width)
}

// PriceCloseness rewards a price that is close to, but not above, the budget
func PriceCloseness(price, budget float64) float64 {
	if budget <= 0 {
		return 0
	}
	return clamp01(1 - (budget-price)/budget)
}

// Score computes the composite score of an item against expanded query tokens
// and a target budget.
func Score(item *domain.CatalogItem, tokens KeywordSet, budget float64) domain.ScoreBreakdown {
	return scoreWithFit(item, tokens, BudgetFit(item, budget))
}

func scoreWithFit(item *domain.CatalogItem, tokens KeywordSet, fit float64) domain.ScoreBreakdown {
	b := domain.ScoreBreakdown{
		PreferenceMatches: exactMatches(item.PreferenceKeywords, tokens),
		TagMatches:        exactMatches(item.Tags, tokens),
		PartialMatches: partialMatches(item.PreferenceKeywords, tokens) +
			partialTagFactor*partialMatches(item.Tags, tokens),
		BudgetFit:  fit,
		Popularity: item.Popularity,
	}
	b.Total = weightPreference*float64(b.PreferenceMatches) +
		weightTag*float64(b.TagMatches) +
		weightPartial*b.PartialMatches +
		weightBudgetFit*b.BudgetFit +
		float64(b.Popularity)/popularityScale
	return b
}

// RankCandidates filters, scores, sorts and limits in one pass.
// A non-positive limit keeps every candidate.
func RankCandidates(
	items []domain.CatalogItem,
	tokens KeywordSet,
	budget float64,
	keep func(*domain.CatalogItem) bool,
	limit int,
) []domain.ScoredItem {
	ranked := make([]domain.ScoredItem, 0, len(items))
	for i := range items {
		if keep != nil && !keep(&items[i]) {
			continue
		}
		ranked = append(ranked, domain.ScoredItem{
			Item:      items[i],
			Breakdown: Score(&items[i], tokens, budget),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return rankLess(ranked[i], ranked[j])
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// rankLess orders by total, preference hits, tag hits, budget fit, popularity,
// newest first, then id.
func rankLess(a, b domain.ScoredItem) bool {
	if a.Breakdown.Total != b.Breakdown.Total {
		return a.Breakdown.Total > b.Breakdown.Total
	}
	return tieBreakLess(a, b)
}

func tieBreakLess(a, b domain.ScoredItem) bool {
	if a.Breakdown.PreferenceMatches != b.Breakdown.PreferenceMatches {
		return a.Breakdown.PreferenceMatches > b.Breakdown.PreferenceMatches
	}
	if a.Breakdown.TagMatches != b.Breakdown.TagMatches {
		return a.Breakdown.TagMatches > b.Breakdown.TagMatches
	}
	if a.Breakdown.BudgetFit != b.Breakdown.BudgetFit {
		return a.Breakdown.BudgetFit > b.Breakdown.BudgetFit
	}
	if a.Breakdown.Popularity != b.Breakdown.Popularity {
		return a.Breakdown.Popularity > b.Breakdown.Popularity
	}
	if !a.Item.CreatedAt.Equal(b.Item.CreatedAt) {
		return a.Item.CreatedAt.After(b.Item.CreatedAt)
	}
	return a.Item.ID < b.Item.ID
}

// exactMatches counts distinct item terms present in the token set
func exactMatches(terms []string, tokens KeywordSet) int {
	seen := make(map[string]struct{}, len(terms))
	count := 0
	for _, term := range terms {
		term = normalizeToken(term)
		if _, dup := seen[term]; dup || term == "" {
			continue
		}
		seen[term] = struct{}{}
		if tokens.Has(term) {
			count++
		}
	}
	return count
}

// partialMatches counts item terms that contain, or are contained in, any token
func partialMatches(terms []string, tokens KeywordSet) float64 {
	count := 0
	for _, term := range terms {
		term = normalizeToken(term)
		if term == "" {
			continue
		}
		for token := range tokens {
			if strings.Contains(term, token) || strings.Contains(token, term) {
				count++
				break
			}
		}
	}
	return float64(count)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
