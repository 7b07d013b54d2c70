package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// OptionKind identifies the axis a catalog option varies on
type OptionKind string

const (
	OptionKindColor OptionKind = "color"
	OptionKindType  OptionKind = "type"
	OptionKindSize  OptionKind = "size"
)

// PriceRange is an inclusive budget window
type PriceRange struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Contains reports whether v lies inside the range (inclusive)
func (r PriceRange) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Midpoint returns the center of the range
func (r PriceRange) Midpoint() float64 {
	return (r.Min + r.Max) / 2
}

// ItemOption is a variant choice that adds to the base price
type ItemOption struct {
	Kind       OptionKind `json:"kind" yaml:"kind"`
	Label      string     `json:"label" yaml:"label"`
	PriceDelta float64    `json:"addToPrice" yaml:"addToPrice"`
}

// CatalogItem is a material or design recommendation in the catalog.
// Either Price or PriceRange carries the pricing; PriceRange wins when both are set.
type CatalogItem struct {
	ID                 string       `json:"id" yaml:"id"`
	Title              string       `json:"title" yaml:"title"`
	Category           string       `json:"category" yaml:"category"`
	Price              float64      `json:"price,omitempty" yaml:"price"`
	PriceRange         *PriceRange  `json:"priceRange,omitempty" yaml:"priceRange"`
	Tags               []string     `json:"tags" yaml:"tags"`
	PreferenceKeywords []string     `json:"preferenceKeywords" yaml:"preferenceKeywords"`
	Popularity         int          `json:"popularity" yaml:"popularity"`
	Options            []ItemOption `json:"options,omitempty" yaml:"options"`
	Embedding          []float32    `json:"-" yaml:"-"`
	CreatedAt          time.Time    `json:"createdAt" yaml:"createdAt"`
}

// HasRange reports whether the item is priced by a budget window
func (c *CatalogItem) HasRange() bool {
	return c.PriceRange != nil
}

// HasEmbedding reports whether the item is enrolled in semantic search
func (c *CatalogItem) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// MinPrice returns the lower bound of the item's price
func (c *CatalogItem) MinPrice() float64 {
	if c.PriceRange != nil {
		return c.PriceRange.Min
	}
	return c.Price
}

// MaxPrice returns the upper bound of the item's price
func (c *CatalogItem) MaxPrice() float64 {
	if c.PriceRange != nil {
		return c.PriceRange.Max
	}
	return c.Price
}

// BasePrice is the price options are added to
func (c *CatalogItem) BasePrice() float64 {
	if c.PriceRange != nil && c.Price == 0 {
		return c.PriceRange.Min
	}
	return c.Price
}

// Fits reports whether the item satisfies a target budget: range items must
// contain it, scalar items must not exceed it.
func (c *CatalogItem) Fits(budget float64) bool {
	if c.PriceRange != nil {
		return c.PriceRange.Contains(budget)
	}
	return c.Price <= budget
}

// Validate checks the item invariants
func (c *CatalogItem) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidCatalogItem)
	}
	if c.PriceRange != nil && c.PriceRange.Min >= c.PriceRange.Max {
		return fmt.Errorf("%w: %s: price range min %.2f must be below max %.2f",
			ErrInvalidCatalogItem, c.ID, c.PriceRange.Min, c.PriceRange.Max)
	}
	if c.Popularity < 0 {
		return fmt.Errorf("%w: %s: negative popularity", ErrInvalidCatalogItem, c.ID)
	}
	for _, opt := range c.Options {
		switch opt.Kind {
		case OptionKindColor, OptionKindType, OptionKindSize:
		default:
			return fmt.Errorf("%w: %s: unknown option kind %q", ErrInvalidCatalogItem, c.ID, opt.Kind)
		}
	}
	return nil
}

// EmbeddingText is the text an item is embedded from
func (c *CatalogItem) EmbeddingText() string {
	parts := []string{c.Title}
	if c.Category != "" {
		parts = append(parts, c.Category)
	}
	parts = append(parts, c.Tags...)
	parts = append(parts, c.PreferenceKeywords...)
	return strings.Join(parts, " ")
}

// Summary strips the item down to what may be sent to a language model
func (c *CatalogItem) Summary() CandidateSummary {
	return CandidateSummary{
		ID:                 c.ID,
		Title:              c.Title,
		Category:           c.Category,
		Tags:               c.Tags,
		PreferenceKeywords: c.PreferenceKeywords,
		Price:              c.BasePrice(),
	}
}

// CandidateSummary is the provider-safe view of a candidate (no vector payload)
type CandidateSummary struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title"`
	Category           string   `json:"category,omitempty"`
	Tags               []string `json:"tags,omitempty"`
	PreferenceKeywords []string `json:"keywords,omitempty"`
	Price              float64  `json:"price"`
}

// Candidate is a recalled item with its vector similarity
type Candidate struct {
	Item       CatalogItem
	Similarity float32
}

// Keywords accepts either a delimited string or a list of strings in JSON
type Keywords []string

// UnmarshalJSON implements json.Unmarshaler
func (k *Keywords) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if strings.TrimSpace(single) == "" {
			*k = nil
			return nil
		}
		*k = Keywords{single}
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("preferences must be a string or a list of strings: %w", err)
	}
	*k = list
	return nil
}
