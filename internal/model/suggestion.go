package model

// SuggestionType distinguishes category proposals from action proposals.
type SuggestionType string

// Suggestion types.
const (
	SuggestionCategory SuggestionType = "category"
	SuggestionAction   SuggestionType = "action"
)

// Action identifiers proposed by the suggestion engine.
const (
	ActionMarkRecurring = "mark-recurring"
	ActionSplitBill     = "split-bill"
	ActionCreateRule    = "create-rule"
)

// Suggestion is an advisory proposal attached to a pending transaction.
type Suggestion struct {
	ID         string
	Type       SuggestionType
	Category   string // set for category suggestions
	Action     string // set for action suggestions
	Reason     string
	Confidence float64
}

// SplitCandidate flags a transaction that may represent a shared bill.
type SplitCandidate struct {
	PendingID  string
	Merchant   string
	Reasons    []string
	Amount     float64
	Confidence float64
}
