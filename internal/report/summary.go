// Package report aggregates the committed ledger into per-category
// summaries and renders review progress for the terminal.
package report

import (
	"sort"

	"github.com/pocketledger/tally/internal/common"
	"github.com/pocketledger/tally/internal/model"
)

// Uncategorized is the bucket for ledger entries without a category.
const Uncategorized = "Uncategorized"

// CategorySummary aggregates spending for one category over a period.
type CategorySummary struct {
	Category string
	Total    float64
	Average  float64
	TrendPct float64 // percent change vs the prior period; 0 when no prior data
	Count    int
	HasTrend bool
}

// Summarize aggregates committed transactions by category, comparing
// against the prior equivalent period for trend. Amounts are summed as
// absolute values; a summary measures spend, not flow direction.
func Summarize(current, prior []model.CommittedTransaction) []CategorySummary {
	totals := aggregate(current)
	priorTotals := aggregate(prior)

	summaries := make([]CategorySummary, 0, len(totals))
	for category, agg := range totals {
		s := CategorySummary{
			Category: category,
			Total:    common.Round2(agg.total),
			Count:    agg.count,
			Average:  common.Round2(agg.total / float64(agg.count)),
		}
		if prev, ok := priorTotals[category]; ok && prev.total > 0 {
			s.TrendPct = common.Round2((agg.total - prev.total) / prev.total * 100)
			s.HasTrend = true
		}
		summaries = append(summaries, s)
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Total != summaries[j].Total {
			return summaries[i].Total > summaries[j].Total
		}
		return summaries[i].Category < summaries[j].Category
	})
	return summaries
}

type categoryAggregate struct {
	total float64
	count int
}

func aggregate(txns []model.CommittedTransaction) map[string]categoryAggregate {
	totals := make(map[string]categoryAggregate)
	for _, t := range txns {
		category := t.Category
		if category == "" {
			category = Uncategorized
		}
		agg := totals[category]
		agg.total += abs(t.Amount)
		agg.count++
		totals[category] = agg
	}
	return totals
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
