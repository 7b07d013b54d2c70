package usecase

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Compiled regex patterns for keyword normalization
var (
	// Splits preference strings on , ; & + and the standalone word "and"
	keywordDelimiterPattern = regexp.MustCompile(`(?i)\s*[,;&+]\s*|\s+and\s+`)

	// Collapses runs of whitespace inside a token
	keywordSpacePattern = regexp.MustCompile(`\s+`)
)

// synonymGroups are disjoint sets of interchangeable style and material terms.
// Every member of a group expands to every other member, so a lookup is one hop.
// Sub-tokens of hyphenated members must not belong to any other group.
var synonymGroups = [][]string{
	{"modern", "contemporary", "current", "sleek", "modern-loft-style"},
	{"minimalist", "minimal", "simple", "clean", "uncluttered"},
	{"traditional", "classic", "timeless", "heritage"},
	{"rustic", "farmhouse", "country", "reclaimed"},
	{"industrial", "urban", "raw", "exposed-brick"},
	{"scandinavian", "nordic", "scandi", "hygge"},
	{"bohemian", "boho", "eclectic", "free-spirited"},
	{"luxury", "luxurious", "premium", "high-end", "upscale"},
	{"cozy", "warm", "snug", "inviting"},
	{"coastal", "beach", "nautical", "seaside"},
	{"wood", "wooden", "timber", "hardwood"},
	{"steel", "metal", "stainless", "iron"},
	{"marble", "stone", "granite"},
	{"budget", "affordable", "economical", "low-cost"},
	{"vintage", "retro", "antique", "mid-century"},
	{"bright", "airy", "light", "sunny"},
	{"dark", "moody", "dramatic"},
	{"natural", "organic", "earthy", "eco-friendly"},
	{"colorful", "vibrant", "bold"},
	{"elegant", "sophisticated", "refined", "chic"},
}

// defaultSynonyms is compiled once and never mutated
var defaultSynonyms = mustCompileSynonyms(synonymGroups)

// synonymTable maps a term to the other members of its group
type synonymTable map[string][]string

func mustCompileSynonyms(groups [][]string) synonymTable {
	table, err := compileSynonyms(groups)
	if err != nil {
		panic(err)
	}
	return table
}

// compileSynonyms builds the lookup and rejects overlapping groups, which would
// create multi-hop chains.
func compileSynonyms(groups [][]string) (synonymTable, error) {
	owner := make(map[string]int)
	for gi, group := range groups {
		for _, term := range group {
			term = normalizeToken(term)
			if prev, ok := owner[term]; ok && prev != gi {
				return nil, fmt.Errorf("synonym %q appears in groups %d and %d", term, prev, gi)
			}
			owner[term] = gi
		}
	}

	for gi, group := range groups {
		for _, term := range group {
			for _, part := range compoundParts(normalizeToken(term)) {
				if other, ok := owner[part]; ok && other != gi {
					return nil, fmt.Errorf("sub-token %q of %q belongs to group %d", part, term, other)
				}
			}
		}
	}

	table := make(synonymTable, len(owner))
	for _, group := range groups {
		for _, term := range group {
			term = normalizeToken(term)
			for _, other := range group {
				other = normalizeToken(other)
				if other != term {
					table[term] = append(table[term], other)
				}
			}
		}
	}
	return table, nil
}

// KeywordSet is a membership view over normalized keywords
type KeywordSet map[string]struct{}

// NewKeywordSet builds a set from already-normalized tokens
func NewKeywordSet(tokens []string) KeywordSet {
	set := make(KeywordSet, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// Has reports whether the token is in the set
func (s KeywordSet) Has(token string) bool {
	_, ok := s[token]
	return ok
}

// Sorted returns the members in lexical order
func (s KeywordSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// KeywordExpander normalizes preference input and expands it through the synonym table
type KeywordExpander struct {
	synonyms synonymTable
}

// NewKeywordExpander returns an expander over the built-in synonym groups
func NewKeywordExpander() *KeywordExpander {
	return &KeywordExpander{synonyms: defaultSynonyms}
}

// NewKeywordExpanderWithGroups returns an expander over custom synonym groups
func NewKeywordExpanderWithGroups(groups [][]string) (*KeywordExpander, error) {
	table, err := compileSynonyms(groups)
	if err != nil {
		return nil, err
	}
	return &KeywordExpander{synonyms: table}, nil
}

// Normalize splits every input on the delimiter pattern and returns the
// sorted, de-duplicated lower-case tokens without synonym expansion.
func (e *KeywordExpander) Normalize(inputs ...string) []string {
	set := make(KeywordSet)
	for _, input := range inputs {
		for _, raw := range keywordDelimiterPattern.Split(input, -1) {
			if token := normalizeToken(raw); token != "" {
				set[token] = struct{}{}
			}
		}
	}
	return set.Sorted()
}

// Expand normalizes the inputs and adds synonyms and compound sub-tokens.
// Re-expanding the output adds nothing new.
func (e *KeywordExpander) Expand(inputs ...string) []string {
	return e.ExpandSet(inputs...).Sorted()
}

// ExpandSet is Expand returning a membership set
func (e *KeywordExpander) ExpandSet(inputs ...string) KeywordSet {
	set := make(KeywordSet)
	for _, token := range e.Normalize(inputs...) {
		e.addExpanded(set, token)
		for _, part := range compoundParts(token) {
			e.addExpanded(set, part)
		}
	}
	return set
}

// ExpandQueryText appends synonym expansions of the query's words that are not
// already present in it.
func (e *KeywordExpander) ExpandQueryText(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return ""
	}

	words := strings.Fields(strings.ToLower(keywordDelimiterPattern.ReplaceAllString(query, " ")))
	present := NewKeywordSet(e.Normalize(words...))

	var extra []string
	for _, term := range e.Expand(words...) {
		if !present.Has(term) {
			extra = append(extra, term)
		}
	}
	if len(extra) == 0 {
		return query
	}
	return query + " " + strings.Join(extra, " ")
}

// addExpanded adds a token, its synonyms, and the sub-tokens of hyphenated synonyms
func (e *KeywordExpander) addExpanded(set KeywordSet, token string) {
	set[token] = struct{}{}
	for _, syn := range e.synonyms[token] {
		set[syn] = struct{}{}
		for _, part := range compoundParts(syn) {
			set[part] = struct{}{}
		}
	}
}

// normalizeToken trims, lower-cases, collapses whitespace and maps _ to -
func normalizeToken(raw string) string {
	token := strings.ToLower(strings.TrimSpace(raw))
	token = keywordSpacePattern.ReplaceAllString(token, " ")
	token = strings.ReplaceAll(token, "_", "-")
	return strings.Trim(token, "- ")
}

// compoundParts returns the non-empty sub-tokens of a hyphenated token, or nil
func compoundParts(token string) []string {
	if !strings.Contains(token, "-") {
		return nil
	}
	var parts []string
	for _, p := range strings.Split(token, "-") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
