// Package dedupe flags committed transactions that likely duplicate a
// staged candidate. Matches are advisory; nothing is ever auto-merged.
package dedupe

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/pocketledger/tally/internal/model"
	"github.com/pocketledger/tally/internal/service"
)

// MergePolicy decides which transaction to keep when completeness ties.
type MergePolicy int

// Tie-break policies for SuggestMerge.
const (
	// KeepExisting prefers the committed transaction on a tie.
	KeepExisting MergePolicy = iota
	// KeepIncoming prefers the staged candidate on a tie.
	KeepIncoming
)

// MergeSuggestion names the transaction SuggestMerge recommends keeping.
type MergeSuggestion string

// Merge recommendations.
const (
	MergeKeepExisting MergeSuggestion = "keep-existing"
	MergeKeepIncoming MergeSuggestion = "keep-incoming"
)

// Config holds the detection thresholds.
type Config struct {
	WindowDays          int
	AmountTolerance     float64
	SimilarityThreshold float64
	TieBreak            MergePolicy
}

// DefaultConfig returns the default detection thresholds.
func DefaultConfig() Config {
	return Config{
		WindowDays:          3,
		AmountTolerance:     0.5,
		SimilarityThreshold: 80,
		TieBreak:            KeepExisting,
	}
}

// Detector finds likely-duplicate committed transactions for a candidate.
type Detector struct {
	store  service.CommittedReader
	config Config
}

// NewDetector creates a detector over the given committed-transaction store.
func NewDetector(store service.CommittedReader) *Detector {
	return NewDetectorWithConfig(store, DefaultConfig())
}

// NewDetectorWithConfig creates a detector with custom thresholds.
func NewDetectorWithConfig(store service.CommittedReader, config Config) *Detector {
	return &Detector{store: store, config: config}
}

// FindDuplicates returns committed transactions resembling the candidate,
// sorted by similarity descending. Date, amount and merchant must all be
// present, otherwise the result is empty. A store failure degrades to an
// empty result: no duplicate flagged beats a false positive.
func (d *Detector) FindDuplicates(ctx context.Context, userID string, tx model.NormalizedTransaction) []model.PossibleDuplicate {
	if tx.Date == "" || tx.Merchant == "" || !tx.HasAmount() {
		return nil
	}

	date, err := time.Parse("2006-01-02", tx.Date)
	if err != nil {
		return nil
	}

	start := date.AddDate(0, 0, -d.config.WindowDays)
	end := date.AddDate(0, 0, d.config.WindowDays)

	committed, err := d.store.GetCommittedByDateRange(ctx, userID, start, end)
	if err != nil {
		slog.Warn("Duplicate lookup failed, returning no matches",
			"user_id", userID,
			"error", err)
		return nil
	}

	candidateMerchant := model.NormalizeMerchant(tx.Merchant)
	amount := tx.AmountValue()

	var matches []model.PossibleDuplicate
	for _, c := range committed {
		if math.Abs(c.Amount-amount) > d.config.AmountTolerance {
			continue
		}
		similarity := Similarity(candidateMerchant, model.NormalizeMerchant(c.MerchantName))
		if similarity < d.config.SimilarityThreshold {
			continue
		}
		matches = append(matches, model.PossibleDuplicate{
			TransactionID: c.ID,
			Transaction:   c,
			Similarity:    similarity,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	return matches
}

// SuggestMerge recommends which of two matching transactions to keep,
// preferring the one with more populated detail. Ties fall back to the
// configured policy.
func (d *Detector) SuggestMerge(incoming model.NormalizedTransaction, existing model.CommittedTransaction) MergeSuggestion {
	incomingDetail := incomingCompleteness(incoming)
	existingDetail := existingCompleteness(existing)

	switch {
	case incomingDetail > existingDetail:
		return MergeKeepIncoming
	case existingDetail > incomingDetail:
		return MergeKeepExisting
	case d.config.TieBreak == KeepIncoming:
		return MergeKeepIncoming
	default:
		return MergeKeepExisting
	}
}

func incomingCompleteness(tx model.NormalizedTransaction) int {
	score := 0
	if tx.Date != "" {
		score++
	}
	if tx.Merchant != "" {
		score++
	}
	if tx.HasAmount() {
		score++
	}
	if tx.Currency != "" {
		score++
	}
	if tx.DocID != "" {
		score++
	}
	score += len(tx.Items)
	return score
}

func existingCompleteness(tx model.CommittedTransaction) int {
	score := 0
	if !tx.PostedAt.IsZero() {
		score++
	}
	if tx.MerchantName != "" {
		score++
	}
	if tx.Amount != 0 {
		score++
	}
	if tx.Category != "" {
		score++
	}
	if tx.DocumentID != "" {
		score++
	}
	score += len(tx.Items)
	return score
}
