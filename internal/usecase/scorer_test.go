package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalogmatch/backend/internal/domain"
)

func TestBudgetFit(t *testing.T) {
	tests := []struct {
		name   string
		item   domain.CatalogItem
		budget float64
		want   float64
	}{
		{
			name:   "range midpoint scores 1",
			item:   rangeItem("a", "Living Room", 50000, 80000),
			budget: 65000,
			want:   1,
		},
		{
			name:   "range bound scores 0.5",
			item:   rangeItem("a", "Living Room", 50000, 80000),
			budget: 80000,
			want:   0.5,
		},
		{
			name:   "budget outside range scores 0",
			item:   rangeItem("a", "Living Room", 50000, 80000),
			budget: 90000,
			want:   0,
		},
		{
			name:   "scalar at budget scores 1",
			item:   pricedItem("p", 100),
			budget: 100,
			want:   1,
		},
		{
			name:   "scalar below budget scores closeness",
			item:   pricedItem("p", 75),
			budget: 100,
			want:   0.75,
		},
		{
			name:   "scalar above budget scores 0",
			item:   pricedItem("p", 120),
			budget: 100,
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, BudgetFit(&tt.item, tt.budget), 1e-9)
		})
	}
}

func TestScore_Breakdown(t *testing.T) {
	e := NewKeywordExpander()
	item := rangeItem("rec-1", "Living Room", 50000, 80000)
	item.PreferenceKeywords = []string{"Modern", "minimalist living"}
	item.Tags = []string{"sofa", "wooden"}
	item.Popularity = 40

	tokens := e.ExpandSet("modern, wood")
	b := Score(&item, tokens, 65000)

	assert.Equal(t, 1, b.PreferenceMatches, "modern")
	assert.Equal(t, 1, b.TagMatches, "wooden is a synonym of wood")
	// modern matches exactly; wooden contains wood
	assert.InDelta(t, 1.0+0.5*1, b.PartialMatches, 1e-9)
	assert.InDelta(t, 1.0, b.BudgetFit, 1e-9)
	assert.InDelta(t, 5*1+3*1+1.5+2*1+0.4, b.Total, 1e-9)
}

func TestScore_MonotonicInFactors(t *testing.T) {
	e := NewKeywordExpander()
	tokens := e.ExpandSet("rustic", "cozy", "sofa", "rug")

	base := rangeItem("x", "Living Room", 100, 200)
	base.PreferenceKeywords = []string{"rustic"}
	base.Tags = []string{"sofa"}
	base.Popularity = 10

	morePrefs := base
	morePrefs.PreferenceKeywords = []string{"rustic", "cozy"}

	moreTags := base
	moreTags.Tags = []string{"sofa", "rug"}

	morePopular := base
	morePopular.Popularity = 90

	baseScore := Score(&base, tokens, 150).Total
	assert.GreaterOrEqual(t, Score(&morePrefs, tokens, 150).Total, baseScore)
	assert.GreaterOrEqual(t, Score(&moreTags, tokens, 150).Total, baseScore)
	assert.GreaterOrEqual(t, Score(&morePopular, tokens, 150).Total, baseScore)
}

func TestRankCandidates_TieBreakChain(t *testing.T) {
	created := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	tokens := NewKeywordSet([]string{"oak", "matte"})

	a := domain.CatalogItem{ID: "a", Price: 0, PreferenceKeywords: []string{"oak"}, CreatedAt: created}
	b := domain.CatalogItem{ID: "b", Price: 0, CreatedAt: created}

	t.Run("higher preference matches wins on equal total", func(t *testing.T) {
		sa := domain.ScoredItem{Item: a, Breakdown: domain.ScoreBreakdown{Total: 6, PreferenceMatches: 1}}
		sb := domain.ScoredItem{Item: b, Breakdown: domain.ScoreBreakdown{Total: 6, TagMatches: 2}}
		assert.True(t, rankLess(sa, sb))
		assert.False(t, rankLess(sb, sa))
	})

	t.Run("cascades through every factor", func(t *testing.T) {
		newer := created.Add(time.Hour)
		cases := []struct {
			name         string
			first, other domain.ScoredItem
		}{
			{
				name:  "tag matches",
				first: domain.ScoredItem{Item: a, Breakdown: domain.ScoreBreakdown{Total: 3, TagMatches: 1}},
				other: domain.ScoredItem{Item: b, Breakdown: domain.ScoreBreakdown{Total: 3}},
			},
			{
				name:  "budget fit",
				first: domain.ScoredItem{Item: b, Breakdown: domain.ScoreBreakdown{Total: 3, BudgetFit: 0.9}},
				other: domain.ScoredItem{Item: a, Breakdown: domain.ScoreBreakdown{Total: 3, BudgetFit: 0.5}},
			},
			{
				name:  "popularity",
				first: domain.ScoredItem{Item: b, Breakdown: domain.ScoreBreakdown{Total: 3, Popularity: 7}},
				other: domain.ScoredItem{Item: a, Breakdown: domain.ScoreBreakdown{Total: 3, Popularity: 2}},
			},
			{
				name:  "most recently created",
				first: domain.ScoredItem{Item: domain.CatalogItem{ID: "z", CreatedAt: newer}, Breakdown: domain.ScoreBreakdown{Total: 3}},
				other: domain.ScoredItem{Item: a, Breakdown: domain.ScoreBreakdown{Total: 3}},
			},
			{
				name:  "id when timestamps collide",
				first: domain.ScoredItem{Item: a, Breakdown: domain.ScoreBreakdown{Total: 3}},
				other: domain.ScoredItem{Item: b, Breakdown: domain.ScoreBreakdown{Total: 3}},
			},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				assert.True(t, rankLess(tc.first, tc.other))
				assert.False(t, rankLess(tc.other, tc.first))
			})
		}
	})

	t.Run("ranking is independent of input order", func(t *testing.T) {
		items := []domain.CatalogItem{
			{ID: "c", Tags: []string{"matte"}, CreatedAt: created},
			{ID: "a", PreferenceKeywords: []string{"oak"}, CreatedAt: created},
			{ID: "b", PreferenceKeywords: []string{"oak"}, CreatedAt: created.Add(time.Minute)},
		}
		reversed := []domain.CatalogItem{items[2], items[1], items[0]}

		first := RankCandidates(items, tokens, 0, nil, 0)
		second := RankCandidates(reversed, tokens, 0, nil, 0)
		require.Len(t, first, 3)
		for i := range first {
			assert.Equal(t, first[i].Item.ID, second[i].Item.ID)
		}
		assert.Equal(t, "b", first[0].Item.ID, "newer item wins the preference tie")
	})
}

func TestRankCandidates_FilterAndLimit(t *testing.T) {
	items := []domain.CatalogItem{
		pricedItem("cheap", 10),
		pricedItem("mid", 50),
		pricedItem("dear", 500),
	}

	ranked := RankCandidates(items, KeywordSet{}, 100, func(item *domain.CatalogItem) bool {
		return item.Fits(100)
	}, 1)

	require.Len(t, ranked, 1)
	assert.Equal(t, "mid", ranked[0].Item.ID, "closer to budget scores higher")
}
