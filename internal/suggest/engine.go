package suggest

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/pocketledger/tally/internal/model"
)

// DefaultMaxSuggestions bounds the suggestion list per transaction.
const DefaultMaxSuggestions = 5

// Action proposal confidences. Fixed values; actions are ranked among
// the category suggestions by these.
const (
	markRecurringConfidence = 0.6
	splitBillConfidence     = 0.6
	createRuleConfidence    = 0.7
)

// Engine builds suggestion lists. Pure: suggesting cannot fail.
type Engine struct {
	classifier Classifier
	max        int
}

// NewEngine creates a suggestion engine over the given classifier.
func NewEngine(classifier Classifier) *Engine {
	return NewEngineWithLimit(classifier, DefaultMaxSuggestions)
}

// NewEngineWithLimit creates an engine with a custom suggestion cap.
func NewEngineWithLimit(classifier Classifier, maxSuggestions int) *Engine {
	if maxSuggestions <= 0 {
		maxSuggestions = DefaultMaxSuggestions
	}
	return &Engine{classifier: classifier, max: maxSuggestions}
}

// Suggest proposes categories and actions for a transaction, sorted by
// confidence descending and truncated to the configured limit.
func (e *Engine) Suggest(tx model.NormalizedTransaction) []model.Suggestion {
	text := searchText(tx)

	var suggestions []model.Suggestion
	for _, hit := range e.classifier.Classify(text) {
		confidence := math.Min(0.7+0.1*float64(hit.Hits), 0.95)
		suggestions = append(suggestions, model.Suggestion{
			ID:         "cat-" + strings.ToLower(strings.ReplaceAll(hit.Category, " ", "-")),
			Type:       model.SuggestionCategory,
			Category:   hit.Category,
			Reason:     fmt.Sprintf("%d keyword match(es) for %s", hit.Hits, hit.Category),
			Confidence: confidence,
		})
	}

	suggestions = append(suggestions, e.actionSuggestions(tx, text)...)

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Confidence > suggestions[j].Confidence
	})
	if len(suggestions) > e.max {
		suggestions = suggestions[:e.max]
	}
	return suggestions
}

func (e *Engine) actionSuggestions(tx model.NormalizedTransaction, text string) []model.Suggestion {
	var actions []model.Suggestion

	amount := math.Abs(tx.AmountValue())
	cents := math.Round(amount*100) - math.Floor(amount)*100

	if tx.HasAmount() && amount > 100 && cents != 0 {
		actions = append(actions, model.Suggestion{
			ID:         "act-" + model.ActionMarkRecurring,
			Type:       model.SuggestionAction,
			Action:     model.ActionMarkRecurring,
			Reason:     "large amount with non-zero cents often indicates a billed subscription",
			Confidence: markRecurringConfidence,
		})
	}

	if tx.HasAmount() && amount > 50 && IsDiningText(text) {
		actions = append(actions, model.Suggestion{
			ID:         "act-" + model.ActionSplitBill,
			Type:       model.SuggestionAction,
			Action:     model.ActionSplitBill,
			Reason:     "large dining charge may be a shared bill",
			Confidence: splitBillConfidence,
		})
	}

	if len(strings.TrimSpace(tx.Merchant)) > 3 {
		actions = append(actions, model.Suggestion{
			ID:         "act-" + model.ActionCreateRule,
			Type:       model.SuggestionAction,
			Action:     model.ActionCreateRule,
			Reason:     fmt.Sprintf("create an auto-categorization rule for %s", tx.Merchant),
			Confidence: createRuleConfidence,
		})
	}

	return actions
}

// MergeSuggestionSets combines two suggestion lists, deduplicating by id
// with primary entries winning, then re-sorts by confidence and truncates
// to max.
func MergeSuggestionSets(primary, secondary []model.Suggestion, maxSuggestions int) []model.Suggestion {
	seen := make(map[string]bool, len(primary))
	merged := make([]model.Suggestion, 0, len(primary)+len(secondary))

	for _, s := range primary {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		merged = append(merged, s)
	}
	for _, s := range secondary {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		merged = append(merged, s)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Confidence > merged[j].Confidence
	})
	if maxSuggestions > 0 && len(merged) > maxSuggestions {
		merged = merged[:maxSuggestions]
	}
	return merged
}

// searchText concatenates merchant and line items for keyword matching.
func searchText(tx model.NormalizedTransaction) string {
	parts := append([]string{tx.Merchant}, tx.Items...)
	return strings.Join(parts, " ")
}
