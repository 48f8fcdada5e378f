package bulk

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

var selection = []Item{
	{ID: "p1", Merchant: "Netflix", State: StatePending},
	{ID: "p2", Merchant: "", State: StatePending},
	{ID: "c1", Merchant: "Costco", State: StateCommitted},
	{ID: "c2", Merchant: "Safeway", State: StateCommitted},
}

func ids(items []Item) []string {
	if len(items) == 0 {
		return nil
	}
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}

func TestPlanEligibilityRules(t *testing.T) {
	tests := []struct {
		name           string
		action         Action
		wantEligible   []string
		wantIneligible []string
	}{
		{
			name:           "approve only pending",
			action:         ActionApprove,
			wantEligible:   []string{"p1", "p2"},
			wantIneligible: []string{"c1", "c2"},
		},
		{
			name:           "reject only pending",
			action:         ActionReject,
			wantEligible:   []string{"p1", "p2"},
			wantIneligible: []string{"c1", "c2"},
		},
		{
			name:           "archive only committed",
			action:         ActionArchive,
			wantEligible:   []string{"c1", "c2"},
			wantIneligible: []string{"p1", "p2"},
		},
		{
			name:           "mark recurring only committed",
			action:         ActionMarkRecurring,
			wantEligible:   []string{"c1", "c2"},
			wantIneligible: []string{"p1", "p2"},
		},
		{
			name:           "categorize needs a merchant",
			action:         ActionCategorize,
			wantEligible:   []string{"p1", "c1", "c2"},
			wantIneligible: []string{"p2"},
		},
		{
			name:           "unknown action",
			action:         Action("detonate"),
			wantIneligible: []string{"p1", "p2", "c1", "c2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := Plan(tt.action, selection)
			assert.Equal(t, tt.wantEligible, ids(outcome.Eligible))
			assert.Equal(t, tt.wantIneligible, ids(outcome.Ineligible))

			counts := outcome.Counts()
			assert.Equal(t, len(selection), counts.Total)
			assert.Equal(t, len(tt.wantEligible), counts.Succeeded)
			assert.Equal(t, len(tt.wantIneligible), counts.Failed)
		})
	}
}

func TestExecuteBestEffort(t *testing.T) {
	items := []Item{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	var attempted []string
	result := Execute(context.Background(), items, func(_ context.Context, item Item) error {
		attempted = append(attempted, item.ID)
		if item.ID == "b" {
			return errors.New("write endpoint unavailable")
		}
		return nil
	})

	assert.Equal(t, []string{"a", "b", "c"}, attempted, "a failure must not halt the batch")
	assert.Equal(t, Result{Total: 3, Succeeded: 2, Failed: 1}, result)
}

func TestExecuteCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := Execute(ctx, []Item{{ID: "a"}, {ID: "b"}}, func(context.Context, Item) error {
		t.Fatal("op must not run after cancellation")
		return nil
	})

	assert.Equal(t, Result{Total: 2, Succeeded: 0, Failed: 2}, result)
}

func TestExecuteEmptySelection(t *testing.T) {
	result := Execute(context.Background(), nil, func(context.Context, Item) error {
		return nil
	})
	assert.Equal(t, Result{}, result)
}
