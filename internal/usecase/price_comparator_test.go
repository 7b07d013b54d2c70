package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalogmatch/backend/internal/domain"
)

func TestEffectivePrice(t *testing.T) {
	item := pricedItem("tile", 200)
	assert.Equal(t, 200.0, EffectivePrice(&item))

	item.Options = []domain.ItemOption{
		{Kind: domain.OptionKindColor, Label: "white", PriceDelta: 20},
		{Kind: domain.OptionKindColor, Label: "grey", PriceDelta: -15},
	}
	assert.Equal(t, 185.0, EffectivePrice(&item))

	ranged := rangeItem("r", "flooring", 40, 90)
	assert.Equal(t, 40.0, EffectivePrice(&ranged), "range items are based on the range minimum")
}

func TestPercentDifference(t *testing.T) {
	tests := []struct {
		name     string
		price    float64
		baseline float64
		want     *int
	}{
		{name: "zero baseline", price: 50, baseline: 0, want: nil},
		{name: "zero baseline and zero price", price: 0, baseline: 0, want: nil},
		{name: "cheaper", price: 80, baseline: 100, want: intPtr(-20)},
		{name: "dearer", price: 150, baseline: 100, want: intPtr(50)},
		{name: "negative half rounds up", price: 3, baseline: 8, want: intPtr(-62)},
		{name: "negative half from a cheaper sibling", price: 175, baseline: 200, want: intPtr(-12)},
		{name: "positive half rounds up", price: 225, baseline: 200, want: intPtr(13)},
		{name: "zero price against positive baseline", price: 0, baseline: 30, want: intPtr(-100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PercentDifference(tt.price, tt.baseline)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestPriceComparator_NearestSiblings(t *testing.T) {
	p := NewPriceComparator()
	chosen := pricedItem("chosen", 100)
	pool := []domain.CatalogItem{
		pricedItem("cheapest", 20),
		pricedItem("cheaper", 80),
		chosen,
		pricedItem("same", 100),
		pricedItem("dearer", 130),
		pricedItem("dearest", 400),
		pricedItem("cheaper", 80),
	}

	cmp := p.Compare(&chosen, pool)
	require.NotNil(t, cmp.Cheaper)
	require.NotNil(t, cmp.MoreExpensive)
	assert.Equal(t, "cheaper", cmp.Cheaper.Item.ID)
	assert.Equal(t, "dearer", cmp.MoreExpensive.Item.ID)
	assert.Equal(t, -20, *cmp.Cheaper.PercentDifference)
	assert.Equal(t, 30, *cmp.MoreExpensive.PercentDifference)
	assert.Empty(t, cmp.OptionsComparison)
}

func TestPriceComparator_ZeroPricedChosenHasNilPercent(t *testing.T) {
	p := NewPriceComparator()
	chosen := pricedItem("free-sample", 0)
	cmp := p.Compare(&chosen, []domain.CatalogItem{chosen, pricedItem("paid", 25)})

	require.NotNil(t, cmp.MoreExpensive)
	assert.Nil(t, cmp.MoreExpensive.PercentDifference)
	assert.Nil(t, cmp.Cheaper)
}

func TestPriceComparator_OptionsLadder(t *testing.T) {
	p := NewPriceComparator()
	chosen := pricedItem("quartz", 500)
	chosen.Options = []domain.ItemOption{
		{Kind: domain.OptionKindType, Label: "honed", PriceDelta: -50},
		{Kind: domain.OptionKindType, Label: "polished", PriceDelta: 0},
		{Kind: domain.OptionKindSize, Label: "slab", PriceDelta: 100},
	}

	cmp := p.Compare(&chosen, []domain.CatalogItem{chosen})
	assert.Nil(t, cmp.Cheaper)
	assert.Nil(t, cmp.MoreExpensive)
	require.Len(t, cmp.OptionsComparison, 3)
	for i, opt := range chosen.Options {
		assert.Equal(t, opt.Label, cmp.OptionsComparison[i].Label)
		assert.Equal(t, 500+opt.PriceDelta, cmp.OptionsComparison[i].TotalPrice)
	}
	assert.Equal(t, 450.0, cmp.EffectivePrice)
}

func TestPriceComparator_NoLadderWithSingleOption(t *testing.T) {
	p := NewPriceComparator()
	chosen := pricedItem("brick", 10)
	chosen.Options = []domain.ItemOption{{Kind: domain.OptionKindColor, Label: "red", PriceDelta: 1}}

	cmp := p.Compare(&chosen, nil)
	assert.Nil(t, cmp.OptionsComparison)
}

func TestPriceComparator_NoLadderWhenSiblingExists(t *testing.T) {
	p := NewPriceComparator()
	chosen := pricedItem("quartz", 500)
	chosen.Options = []domain.ItemOption{
		{Kind: domain.OptionKindType, Label: "a", PriceDelta: 0},
		{Kind: domain.OptionKindType, Label: "b", PriceDelta: 10},
	}

	cmp := p.Compare(&chosen, []domain.CatalogItem{chosen, pricedItem("granite", 300)})
	require.NotNil(t, cmp.Cheaper)
	assert.Nil(t, cmp.OptionsComparison)
}

func intPtr(v int) *int { return &v }
