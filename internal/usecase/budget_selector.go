package usecase

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/catalogmatch/backend/internal/domain"
)

// Selection is the outcome of a budget-constrained pick
type Selection struct {
	Best                 *domain.ScoredItem
	Ranked               []domain.ScoredItem
	IsCheaperAlternative bool
}

// BudgetSelector picks the best candidate inside a budget and relaxes to a
// cheaper alternative when nothing fits.
type BudgetSelector struct {
	logger             zerolog.Logger
	enableDebugLogging bool
}

// NewBudgetSelector creates a selector
func NewBudgetSelector(logger zerolog.Logger, enableDebugLogging bool) *BudgetSelector {
	return &BudgetSelector{
		logger:             logger.With().Str("component", "budget_selector").Logger(),
		enableDebugLogging: enableDebugLogging,
	}
}

// Select runs the primary pass and, when it is empty and a budget was given,
// the cheaper-alternative pass.
func (s *BudgetSelector) Select(items []domain.CatalogItem, tokens KeywordSet, budget float64) Selection {
	primary := RankCandidates(items, tokens, budget, func(item *domain.CatalogItem) bool {
		return item.Fits(budget)
	}, 0)
	s.debugRanking("primary", primary)

	if len(primary) > 0 {
		return Selection{Best: &primary[0], Ranked: primary}
	}
	if budget <= 0 {
		return Selection{}
	}

	fallback := s.rankCheaper(items, tokens, budget)
	s.debugRanking("fallback", fallback)
	if len(fallback) == 0 {
		return Selection{}
	}
	return Selection{Best: &fallback[0], Ranked: fallback, IsCheaperAlternative: true}
}

// rankCheaper keeps candidates whose top price is strictly below the budget,
// substitutes closeness for budget fit and prefers the highest top price.
func (s *BudgetSelector) rankCheaper(items []domain.CatalogItem, tokens KeywordSet, budget float64) []domain.ScoredItem {
	ranked := make([]domain.ScoredItem, 0, len(items))
	for i := range items {
		maxPrice := items[i].MaxPrice()
		if maxPrice >= budget {
			continue
		}
		ranked = append(ranked, domain.ScoredItem{
			Item:      items[i],
			Breakdown: scoreWithFit(&items[i], tokens, PriceCloseness(maxPrice, budget)),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Breakdown.Total != b.Breakdown.Total {
			return a.Breakdown.Total > b.Breakdown.Total
		}
		if am, bm := a.Item.MaxPrice(), b.Item.MaxPrice(); am != bm {
			return am > bm
		}
		return tieBreakLess(a, b)
	})
	return ranked
}

func (s *BudgetSelector) debugRanking(pass string, ranked []domain.ScoredItem) {
	if !s.enableDebugLogging {
		return
	}
	for i, r := range ranked {
		s.logger.Debug().
			Str("pass", pass).
			Int("rank", i).
			Str("item_id", r.Item.ID).
			Float64("total", r.Breakdown.Total).
			Int("preference_matches", r.Breakdown.PreferenceMatches).
			Int("tag_matches", r.Breakdown.TagMatches).
			Float64("partial_matches", r.Breakdown.PartialMatches).
			Float64("budget_fit", r.Breakdown.BudgetFit).
			Msg("candidate scored")
	}
}
