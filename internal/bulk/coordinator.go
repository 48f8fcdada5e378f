// Package bulk computes eligibility and outcome of batch actions over a
// selection of records. It never performs the mutation itself; the
// caller executes effects and partial failure is the expected case.
package bulk

import (
	"context"
	"log/slog"
	"strings"
)

// Action is a batch operation type.
type Action string

// Supported batch actions.
const (
	ActionApprove       Action = "approve"
	ActionReject        Action = "reject"
	ActionCategorize    Action = "categorize"
	ActionMarkRecurring Action = "mark-recurring"
	ActionArchive       Action = "archive"
)

// State is the lifecycle state of a selected record.
type State string

// Record states.
const (
	StatePending   State = "pending"
	StateCommitted State = "committed"
)

// Item is one selected record.
type Item struct {
	ID       string
	Merchant string
	State    State
}

// Outcome partitions a selection into eligible and ineligible items.
type Outcome struct {
	Eligible   []Item
	Ineligible []Item
}

// Result summarizes a batch operation.
type Result struct {
	Total     int
	Succeeded int
	Failed    int
}

// Plan partitions the selection per the type-specific eligibility rule.
// Pure: an unknown action simply renders everything ineligible.
func Plan(action Action, items []Item) Outcome {
	var outcome Outcome
	for _, item := range items {
		if eligible(action, item) {
			outcome.Eligible = append(outcome.Eligible, item)
		} else {
			outcome.Ineligible = append(outcome.Ineligible, item)
		}
	}
	return outcome
}

// Counts folds an outcome into result counters: planned-ineligible items
// count as failed before anything executes.
func (o Outcome) Counts() Result {
	return Result{
		Total:     len(o.Eligible) + len(o.Ineligible),
		Succeeded: len(o.Eligible),
		Failed:    len(o.Ineligible),
	}
}

func eligible(action Action, item Item) bool {
	switch action {
	case ActionApprove, ActionReject:
		return item.State == StatePending
	case ActionArchive, ActionMarkRecurring:
		return item.State == StateCommitted
	case ActionCategorize:
		return strings.TrimSpace(item.Merchant) != ""
	default:
		return false
	}
}

// Execute runs op sequentially over the items, best-effort. A failed
// item is counted and logged; the remaining batch continues. There is no
// retry and no rollback.
func Execute(ctx context.Context, items []Item, op func(context.Context, Item) error) Result {
	result := Result{Total: len(items)}
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			result.Failed += result.Total - result.Succeeded - result.Failed
			return result
		}
		if err := op(ctx, item); err != nil {
			result.Failed++
			slog.Warn("Bulk operation item failed",
				"item_id", item.ID,
				"error", err)
			continue
		}
		result.Succeeded++
	}
	return result
}
