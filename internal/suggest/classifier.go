// Package suggest proposes categories and follow-up actions for staged
// transactions from keyword heuristics and learned rules.
package suggest

import "strings"

// Classifier maps transaction text to candidate categories. The keyword
// table lives behind this capability so alternate classification
// strategies can be substituted without touching callers.
type Classifier interface {
	Classify(text string) []CategoryHit
}

// CategoryHit is one category candidate with its keyword hit count.
type CategoryHit struct {
	Category string
	Hits     int
}

// KeywordClassifier classifies by counting keyword occurrences.
type KeywordClassifier struct {
	table map[string][]string
}

// NewKeywordClassifier creates a classifier over the given
// category→keywords table. The table is read-only after construction.
func NewKeywordClassifier(table map[string][]string) *KeywordClassifier {
	return &KeywordClassifier{table: table}
}

// NewDefaultClassifier creates a classifier with the built-in table.
func NewDefaultClassifier() *KeywordClassifier {
	return NewKeywordClassifier(DefaultKeywordTable())
}

// Classify counts keyword hits per category over the lowercased text.
func (c *KeywordClassifier) Classify(text string) []CategoryHit {
	lowered := strings.ToLower(text)

	var hits []CategoryHit
	for category, keywords := range c.table {
		count := 0
		for _, kw := range keywords {
			if strings.Contains(lowered, kw) {
				count++
			}
		}
		if count > 0 {
			hits = append(hits, CategoryHit{Category: category, Hits: count})
		}
	}
	return hits
}

// DefaultKeywordTable returns the built-in category keyword table.
func DefaultKeywordTable() map[string][]string {
	return map[string][]string{
		"Restaurants": {
			"restaurant", "cafe", "coffee", "pizza", "sushi", "burger",
			"diner", "bistro", "grill", "bar ", "pub ", "bakery", "deli",
		},
		"Groceries": {
			"grocery", "supermarket", "market", "safeway", "loblaws",
			"costco", "walmart", "foods", "produce",
		},
		"Transportation": {
			"uber", "lyft", "taxi", "transit", "parking", "gas", "fuel",
			"shell", "esso", "petro",
		},
		"Entertainment": {
			"netflix", "spotify", "cinema", "theatre", "theater", "game",
			"steam", "concert",
		},
		"Shopping": {
			"amazon", "store", "shop", "retail", "boutique", "outlet",
		},
		"Utilities": {
			"hydro", "electric", "water", "internet", "telecom", "wireless",
			"utility",
		},
		"Health": {
			"pharmacy", "drug mart", "dental", "clinic", "medical", "optical",
		},
		"Travel": {
			"airline", "airways", "hotel", "motel", "airbnb", "flight",
		},
	}
}

// diningKeywords is the subset of restaurant keywords used by the
// shared-bill heuristics.
var diningKeywords = []string{
	"restaurant", "cafe", "coffee", "pizza", "sushi", "burger",
	"diner", "bistro", "grill", "bar", "pub", "bakery", "deli",
}

// IsDiningText reports whether the text matches a dining keyword.
func IsDiningText(text string) bool {
	lowered := strings.ToLower(text)
	for _, kw := range diningKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}
