package usecase

import (
	"math"
	"sort"

	"github.com/catalogmatch/backend/internal/domain"
)

// EffectivePrice is the base price plus the cheapest option delta
func EffectivePrice(item *domain.CatalogItem) float64 {
	base := item.BasePrice()
	if len(item.Options) == 0 {
		return base
	}
	minDelta := item.Options[0].PriceDelta
	for _, opt := range item.Options[1:] {
		if opt.PriceDelta < minDelta {
			minDelta = opt.PriceDelta
		}
	}
	return base + minDelta
}

// PercentDifference returns round((price-baseline)/baseline*100), or nil when
// the baseline is zero. Halves round toward positive infinity, so -12.5 is -12.
func PercentDifference(price, baseline float64) *int {
	if baseline == 0 {
		return nil
	}
	pct := int(math.Floor((price-baseline)/baseline*100 + 0.5))
	return &pct
}

// PriceComparison is the price-tier context of a chosen item
type PriceComparison struct {
	EffectivePrice    float64
	Cheaper           *domain.PriceComparison
	MoreExpensive     *domain.PriceComparison
	OptionsComparison []domain.OptionPrice
}

// PriceComparator finds neighbouring price tiers around a chosen item
type PriceComparator struct{}

// NewPriceComparator creates a comparator
func NewPriceComparator() *PriceComparator {
	return &PriceComparator{}
}

// Compare locates the nearest strictly cheaper and strictly more expensive
// siblings in the candidate pool. When neither exists and the item carries at
// least two options, it builds an options ladder instead.
func (p *PriceComparator) Compare(chosen *domain.CatalogItem, candidates []domain.CatalogItem) PriceComparison {
	chosenPrice := EffectivePrice(chosen)
	result := PriceComparison{EffectivePrice: chosenPrice}

	type priced struct {
		item  domain.CatalogItem
		price float64
	}

	seen := map[string]struct{}{chosen.ID: {}}
	pool := make([]priced, 0, len(candidates))
	for i := range candidates {
		if _, dup := seen[candidates[i].ID]; dup {
			continue
		}
		seen[candidates[i].ID] = struct{}{}
		pool = append(pool, priced{item: candidates[i], price: EffectivePrice(&candidates[i])})
	}
	sort.SliceStable(pool, func(i, j int) bool { return pool[i].price < pool[j].price })

	for i := range pool {
		if pool[i].price < chosenPrice {
			result.Cheaper = comparisonFor(pool[i].item, pool[i].price, chosenPrice)
			continue
		}
		if pool[i].price > chosenPrice {
			result.MoreExpensive = comparisonFor(pool[i].item, pool[i].price, chosenPrice)
			break
		}
	}

	if result.Cheaper == nil && result.MoreExpensive == nil && len(chosen.Options) >= 2 {
		result.OptionsComparison = optionsLadder(chosen)
	}
	return result
}

func comparisonFor(item domain.CatalogItem, price, baseline float64) *domain.PriceComparison {
	return &domain.PriceComparison{
		Item:              item,
		EffectivePrice:    price,
		PercentDifference: PercentDifference(price, baseline),
	}
}

// optionsLadder lists the total price of every option in catalog order
func optionsLadder(item *domain.CatalogItem) []domain.OptionPrice {
	base := item.BasePrice()
	ladder := make([]domain.OptionPrice, 0, len(item.Options))
	for _, opt := range item.Options {
		ladder = append(ladder, domain.OptionPrice{
			Kind:       opt.Kind,
			Label:      opt.Label,
			PriceDelta: opt.PriceDelta,
			TotalPrice: base + opt.PriceDelta,
		})
	}
	return ladder
}
