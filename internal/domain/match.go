package domain

// ScoreBreakdown holds the individual factors of a composite match score
type ScoreBreakdown struct {
	PreferenceMatches int     `json:"preferenceMatches"`
	TagMatches        int     `json:"tagMatches"`
	PartialMatches    float64 `json:"partialMatches"`
	BudgetFit         float64 `json:"budgetCompatibility"`
	Popularity        int     `json:"popularity"`
	Total             float64 `json:"total"`
}

// ScoredItem is a catalog item paired with its score
type ScoredItem struct {
	Item      CatalogItem
	Breakdown ScoreBreakdown
}

// PriceComparison points at a sibling item in a different price tier
type PriceComparison struct {
	Item              CatalogItem `json:"item"`
	EffectivePrice    float64     `json:"effectivePrice"`
	PercentDifference *int        `json:"percentDifference"`
}

// OptionPrice is one rung of an in-item options price ladder
type OptionPrice struct {
	Kind       OptionKind `json:"kind"`
	Label      string     `json:"label"`
	PriceDelta float64    `json:"addToPrice"`
	TotalPrice float64    `json:"totalPrice"`
}

// MatchResult is the transient outcome of a single matching operation
type MatchResult struct {
	Item                 CatalogItem      `json:"item"`
	Query                string           `json:"query,omitempty"`
	Score                float64          `json:"score"`
	ScoreBreakdown       *ScoreBreakdown  `json:"scoreBreakdown,omitempty"`
	IsCheaperAlternative bool             `json:"isCheaperAlternative"`
	EffectivePrice       float64          `json:"effectivePrice"`
	Cheaper              *PriceComparison `json:"cheaper,omitempty"`
	MoreExpensive        *PriceComparison `json:"moreExpensive,omitempty"`
	OptionsComparison    []OptionPrice    `json:"optionsComparison,omitempty"`
}

// Decomposition is the answer of an item classifier
type Decomposition struct {
	IsMultiple bool     `json:"isMultiple"`
	Items      []string `json:"items"`
}

// RecommendationRequest asks for the best design recommendation for a room and budget
type RecommendationRequest struct {
	RoomType    string   `json:"roomType" validate:"required,nonblank"`
	Preferences Keywords `json:"preferences"`
	Budget      *float64 `json:"budget" validate:"required,gt=0"`
}

// RecommendationResponse is the result of a recommendation match
type RecommendationResponse struct {
	HasMatch             bool         `json:"hasMatch"`
	IsCheaperAlternative bool         `json:"isCheaperAlternative"`
	Message              string       `json:"message"`
	Recommendation       *CatalogItem `json:"recommendation"`
	MatchScore           float64      `json:"matchScore"`
	PreferenceMatches    int          `json:"preferenceMatches"`
	TagMatches           int          `json:"tagMatches"`
	PartialMatches       float64      `json:"partialMatches"`
	BudgetCompatibility  float64      `json:"budgetCompatibility"`
}

// SearchRequest is a free-text catalog search
type SearchRequest struct {
	Query string `json:"query" validate:"required,nonblank,max=500"`
	Limit int    `json:"limit,omitempty" validate:"omitempty,min=1,max=50"`
}

// SearchResponse carries either a single result or the multi-item aggregate
type SearchResponse struct {
	IsMultiple bool           `json:"-"`
	Result     *MatchResult   `json:"result,omitempty"`
	Results    []*MatchResult `json:"results,omitempty"`
	NotFound   []string       `json:"notFound,omitempty"`
}
