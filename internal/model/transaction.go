// Package model defines the core domain models used throughout the application.
package model

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// NormalizedTransaction is the machine-extracted view of a single
// transaction. It is produced by the extraction pipeline and is immutable
// once created; any field may be missing.
type NormalizedTransaction struct {
	Date     string // ISO YYYY-MM-DD when present
	Merchant string
	Currency string
	DocID    string
	Items    []string
	Amount   *float64 // signed; positive = credit
}

// HasAmount reports whether an amount was extracted.
func (t NormalizedTransaction) HasAmount() bool {
	return t.Amount != nil
}

// AmountValue returns the extracted amount, or 0 when missing.
func (t NormalizedTransaction) AmountValue() float64 {
	if t.Amount == nil {
		return 0
	}
	return *t.Amount
}

// PendingTransaction is a staged, unreviewed transaction carrying
// confidence and duplicate metadata. It is created on staging insert and
// destroyed by promotion or rejection.
type PendingTransaction struct {
	ParsedAt          time.Time
	PossibleDuplicate *PossibleDuplicate
	ID                string
	UserID            string
	ImportID          string
	Hash              string
	Suggestions       []Suggestion
	Data              NormalizedTransaction
	Confidence        ConfidenceScores
	SplitConfidence   float64
	NeedsReview       bool
}

// CommittedTransaction is a transaction accepted into the permanent ledger.
type CommittedTransaction struct {
	PostedAt     time.Time
	CreatedAt    time.Time
	ID           string
	UserID       string
	MerchantName string
	Category     string
	Subcategory  string
	ImportID     string
	DocumentID   string
	Hash         string
	Source       string
	Items        []string
	Amount       float64
	Confidence   float64
	Recurring    bool
}

// Locked reports whether the transaction is protected from automatic
// re-scoring. A manual promotion at full confidence is final.
func (t CommittedTransaction) Locked() bool {
	return t.Source == "manual" && t.Confidence == 1
}

// Import groups the staging rows produced by a single document parse.
type Import struct {
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CommittedAt    *time.Time
	ID             string
	UserID         string
	DocumentID     string
	Status         string
	CommittedCount int
}

// Import statuses.
const (
	ImportStatusParsed    = "parsed"
	ImportStatusCommitted = "committed"
)

var (
	digitsAndHash = regexp.MustCompile(`[0-9#]+`)
	multiSpace    = regexp.MustCompile(`\s+`)
)

// NormalizeMerchant canonicalizes a merchant string for matching:
// lowercase, store numbers and '#' markers stripped, whitespace collapsed.
func NormalizeMerchant(name string) string {
	s := strings.ToLower(name)
	s = digitsAndHash.ReplaceAllString(s, "")
	s = multiSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// StagingHash builds the deterministic hash used to deduplicate staging
// rows across repeated imports of the same document.
func StagingHash(tx NormalizedTransaction) string {
	amount := "0"
	if tx.Amount != nil {
		amount = strconv.FormatFloat(*tx.Amount, 'f', -1, 64)
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s-%s-%s", tx.Date, amount, tx.Merchant)))
	return fmt.Sprintf("%x", sum)
}
