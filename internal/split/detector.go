// Package split flags transactions that may represent a shared bill.
package split

import (
	"math"
	"sort"

	"github.com/pocketledger/tally/internal/model"
	"github.com/pocketledger/tally/internal/suggest"
)

// Detection thresholds.
const (
	// emitThreshold is the accumulated confidence required to emit a
	// candidate.
	emitThreshold = 0.3
	// confidenceCap bounds the accumulated confidence.
	confidenceCap = 0.9
)

// Detector accumulates independent shared-bill heuristics per
// transaction. Pure: detection cannot fail.
type Detector struct{}

// NewDetector creates a split detector.
func NewDetector() *Detector {
	return &Detector{}
}

// Detect scans pending transactions and returns split candidates sorted
// by confidence descending.
func (d *Detector) Detect(pending []model.PendingTransaction) []model.SplitCandidate {
	var candidates []model.SplitCandidate
	for _, p := range pending {
		if candidate, ok := d.Evaluate(p); ok {
			candidates = append(candidates, candidate)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	return candidates
}

// Evaluate scores a single pending transaction. The second return is
// false when the accumulated confidence does not clear the threshold.
func (d *Detector) Evaluate(p model.PendingTransaction) (model.SplitCandidate, bool) {
	if !p.Data.HasAmount() {
		return model.SplitCandidate{}, false
	}

	amount := math.Abs(p.Data.AmountValue())
	cents := int(math.Round(amount*100)) % 100

	confidence := 0.0
	var reasons []string

	if cents != 0 && cents != 50 {
		confidence += 0.2
		reasons = append(reasons, "odd-cent amount")
	}
	if amount > 50 && suggest.IsDiningText(p.Data.Merchant) {
		confidence += 0.3
		reasons = append(reasons, "large dining charge")
	}
	if cents == 0 && evenlyDivisible(amount) {
		confidence += 0.2
		reasons = append(reasons, "round amount divides evenly across a small group")
	}

	if confidence <= emitThreshold {
		return model.SplitCandidate{}, false
	}
	if confidence > confidenceCap {
		confidence = confidenceCap
	}

	return model.SplitCandidate{
		PendingID:  p.ID,
		Merchant:   p.Data.Merchant,
		Amount:     p.Data.AmountValue(),
		Confidence: confidence,
		Reasons:    reasons,
	}, true
}

// evenlyDivisible reports whether a round amount in [30,200] divides by
// a small party size of 2-5 with at least $10 per person.
func evenlyDivisible(amount float64) bool {
	if amount < 30 || amount > 200 {
		return false
	}
	whole := int(math.Round(amount))
	for parties := 2; parties <= 5; parties++ {
		if whole%parties == 0 && whole/parties >= 10 {
			return true
		}
	}
	return false
}
