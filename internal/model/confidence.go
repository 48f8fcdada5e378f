package model

// ReviewThreshold is the overall confidence below which a pending
// transaction is flagged for manual review.
const ReviewThreshold = 0.75

// ConfidenceScores holds per-field and overall trust estimates for an
// extracted transaction. All values lie in [0,1], rounded to 2 decimals.
type ConfidenceScores struct {
	Overall  float64
	Merchant float64
	Amount   float64
	Date     float64
}

// NeedsReview reports whether the overall score falls below the review
// threshold.
func (c ConfidenceScores) NeedsReview() bool {
	return c.Overall < ReviewThreshold
}

// PossibleDuplicate points at a committed transaction resembling a
// pending one. Advisory only; nothing is ever merged automatically.
type PossibleDuplicate struct {
	TransactionID string
	Transaction   CommittedTransaction
	Similarity    float64 // 0-100
}
