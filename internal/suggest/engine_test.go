package suggest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pocketledger/tally/internal/model"
)

func amt(v float64) *float64 { return &v }

func categoryOf(suggestions []model.Suggestion, category string) *model.Suggestion {
	for i := range suggestions {
		if suggestions[i].Category == category {
			return &suggestions[i]
		}
	}
	return nil
}

func actionOf(suggestions []model.Suggestion, action string) *model.Suggestion {
	for i := range suggestions {
		if suggestions[i].Action == action {
			return &suggestions[i]
		}
	}
	return nil
}

func TestSuggestCategoryFromKeywords(t *testing.T) {
	engine := NewEngine(NewDefaultClassifier())

	suggestions := engine.Suggest(model.NormalizedTransaction{
		Merchant: "Blue Bottle Coffee Cafe",
		Amount:   amt(6.50),
	})

	restaurant := categoryOf(suggestions, "Restaurants")
	require.NotNil(t, restaurant)
	assert.InDelta(t, 0.9, restaurant.Confidence, 1e-9, "two keyword hits: 0.7 + 2*0.1")
}

func TestSuggestConfidenceCap(t *testing.T) {
	classifier := NewKeywordClassifier(map[string][]string{
		"Everything": {"a", "e", "i", "o", "u"},
	})
	engine := NewEngine(classifier)

	suggestions := engine.Suggest(model.NormalizedTransaction{Merchant: "aeiou"})
	require.Len(t, suggestions, 2, "category plus create-rule action")
	hit := categoryOf(suggestions, "Everything")
	require.NotNil(t, hit)
	assert.InDelta(t, 0.95, hit.Confidence, 1e-9)
}

func TestSuggestActions(t *testing.T) {
	engine := NewEngine(NewDefaultClassifier())

	tests := []struct {
		name    string
		tx      model.NormalizedTransaction
		want    []string
		notWant []string
	}{
		{
			name: "subscription-shaped amount",
			tx:   model.NormalizedTransaction{Merchant: "ACME SaaS", Amount: amt(129.99)},
			want: []string{model.ActionMarkRecurring, model.ActionCreateRule},
		},
		{
			name:    "round amount skips recurring",
			tx:      model.NormalizedTransaction{Merchant: "ACME SaaS", Amount: amt(120.00)},
			want:    []string{model.ActionCreateRule},
			notWant: []string{model.ActionMarkRecurring},
		},
		{
			name: "large dining bill",
			tx:   model.NormalizedTransaction{Merchant: "Harbour Grill", Amount: amt(84.00)},
			want: []string{model.ActionSplitBill, model.ActionCreateRule},
		},
		{
			name:    "short merchant gets no rule",
			tx:      model.NormalizedTransaction{Merchant: "abc", Amount: amt(12.00)},
			notWant: []string{model.ActionCreateRule},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			suggestions := engine.Suggest(tt.tx)
			for _, action := range tt.want {
				assert.NotNil(t, actionOf(suggestions, action), "expected %s", action)
			}
			for _, action := range tt.notWant {
				assert.Nil(t, actionOf(suggestions, action), "unexpected %s", action)
			}
		})
	}
}

func TestSuggestSortedAndTruncated(t *testing.T) {
	engine := NewEngineWithLimit(NewDefaultClassifier(), 2)

	suggestions := engine.Suggest(model.NormalizedTransaction{
		Merchant: "Harbour Grill Bar and Restaurant",
		Amount:   amt(84.99),
	})

	require.Len(t, suggestions, 2)
	assert.GreaterOrEqual(t, suggestions[0].Confidence, suggestions[1].Confidence)
}

func TestMergeSuggestionSets(t *testing.T) {
	primary := []model.Suggestion{
		{ID: "cat-restaurants", Category: "Restaurants", Confidence: 0.8},
		{ID: "act-create-rule", Action: model.ActionCreateRule, Confidence: 0.7},
	}
	secondary := []model.Suggestion{
		{ID: "cat-restaurants", Category: "Restaurants", Confidence: 0.95},
		{ID: "cat-groceries", Category: "Groceries", Confidence: 0.9},
		{ID: "act-split-bill", Action: model.ActionSplitBill, Confidence: 0.6},
	}

	merged := MergeSuggestionSets(primary, secondary, 3)

	require.Len(t, merged, 3)
	restaurant := categoryOf(merged, "Restaurants")
	require.NotNil(t, restaurant)
	assert.InDelta(t, 0.8, restaurant.Confidence, 1e-9, "primary entry wins the id collision")
	assert.Equal(t, "cat-groceries", merged[0].ID, "re-sorted by confidence")
	assert.Nil(t, actionOf(merged, model.ActionSplitBill), "truncated at max")
}

func TestIsDiningText(t *testing.T) {
	assert.True(t, IsDiningText("Harbour GRILL"))
	assert.True(t, IsDiningText("corner cafe"))
	assert.False(t, IsDiningText("Petro Canada"))
}
