// Package scoring estimates how trustworthy an extracted transaction is,
// per field and overall.
package scoring

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/pocketledger/tally/internal/common"
	"github.com/pocketledger/tally/internal/model"
)

// Component weights for the overall score.
const (
	merchantWeight = 0.4
	amountWeight   = 0.4
	dateWeight     = 0.2
)

var isoDateRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// defaultMerchantPatterns match merchants common enough that their
// presence alone raises trust in the extraction.
var defaultMerchantPatterns = []string{
	`STARBUCKS`,
	`TIM\s*HORTONS`,
	`MCDONALD`,
	`WAL[\s-]?MART`,
	`AMAZON`,
	`COSTCO`,
	`TARGET`,
	`SHELL`,
	`ESSO`,
	`NETFLIX`,
	`SPOTIFY`,
	`UBER`,
	`LYFT`,
	`SAFEWAY`,
	`LOBLAWS`,
	`SHOPPERS\s*DRUG\s*MART`,
	`7[\s-]?ELEVEN`,
	`HOME\s*DEPOT`,
	`IKEA`,
	`APPLE\.?COM`,
}

// Scorer scores normalized transactions. It is pure: scoring cannot fail
// and missing fields simply contribute nothing.
type Scorer struct {
	now              func() time.Time
	merchantPatterns []*regexp.Regexp
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithClock overrides the wall clock, used to pin the date recency check.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) { s.now = now }
}

// WithMerchantPatterns replaces the known-merchant pattern set.
func WithMerchantPatterns(patterns []string) Option {
	return func(s *Scorer) { s.merchantPatterns = compilePatterns(patterns) }
}

// NewScorer creates a scorer with the default known-merchant patterns.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		now:              time.Now,
		merchantPatterns: compilePatterns(defaultMerchantPatterns),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func compilePatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if !strings.HasPrefix(p, "(?i)") {
			p = "(?i)" + p
		}
		if re, err := regexp.Compile(p); err == nil {
			compiled = append(compiled, re)
		}
	}
	return compiled
}

// Score rates each extracted field and combines them into an overall
// trust estimate. rawText is the full OCR text the transaction was
// extracted from and may be empty.
func (s *Scorer) Score(tx model.NormalizedTransaction, rawText string) model.ConfidenceScores {
	merchant := common.Round2(s.scoreMerchant(tx.Merchant, rawText))
	amount := common.Round2(s.scoreAmount(tx, rawText))
	date := common.Round2(s.scoreDate(tx.Date, rawText))

	return model.ConfidenceScores{
		Merchant: merchant,
		Amount:   amount,
		Date:     date,
		Overall:  common.Round2(merchantWeight*merchant + amountWeight*amount + dateWeight*date),
	}
}

func (s *Scorer) scoreMerchant(merchant, rawText string) float64 {
	trimmed := strings.TrimSpace(merchant)
	if trimmed == "" {
		return 0
	}

	score := 0.0
	if len(trimmed) > 3 {
		score += 0.3
	}
	for _, re := range s.merchantPatterns {
		if re.MatchString(trimmed) {
			score += 0.4
			break
		}
	}
	if looksLikeName(trimmed) {
		score += 0.3
	}
	if rawText != "" && strings.Contains(rawText, trimmed) {
		score += 0.2
	}

	return common.Clamp01(score)
}

// looksLikeName accepts title-cased or all-caps strings longer than two
// characters; OCR noise rarely has consistent casing.
func looksLikeName(s string) bool {
	if len(s) <= 2 {
		return false
	}

	hasLetter := false
	allCaps := true
	for _, r := range s {
		if r >= 'a' && r <= 'z' {
			allCaps = false
		}
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			hasLetter = true
		}
	}
	if !hasLetter {
		return false
	}
	if allCaps {
		return true
	}

	for _, word := range strings.Fields(s) {
		first := rune(word[0])
		if first >= 'a' && first <= 'z' {
			return false
		}
	}
	return true
}

func (s *Scorer) scoreAmount(tx model.NormalizedTransaction, rawText string) float64 {
	if !tx.HasAmount() {
		return 0
	}

	amount := tx.AmountValue()
	abs := math.Abs(amount)
	score := 0.0

	// Currency-shaped: no more than 2 decimal places.
	if math.Abs(abs*100-math.Round(abs*100)) < 1e-9 {
		score += 0.5
	}
	if rawText != "" && amountInText(abs, rawText) {
		score += 0.3
	}
	if abs > 0 && abs < 100000 {
		score += 0.2
	}

	return common.Clamp01(score)
}

// amountInText looks for a currency-prefixed occurrence of the exact
// amount in the raw OCR text.
func amountInText(abs float64, rawText string) bool {
	formatted := fmt.Sprintf("%.2f", abs)
	for _, symbol := range []string{"$", "CA$", "C$", "US$", "€", "£"} {
		if strings.Contains(rawText, symbol+formatted) {
			return true
		}
	}
	return false
}

func (s *Scorer) scoreDate(date, rawText string) float64 {
	if date == "" {
		return 0
	}

	score := 0.0
	parsed, parseErr := time.Parse("2006-01-02", date)
	iso := isoDateRegex.MatchString(date) && parseErr == nil
	if iso {
		score += 0.4
	}

	if iso {
		now := s.now()
		if parsed.After(now.AddDate(-2, 0, 0)) && parsed.Before(now.AddDate(0, 0, 1)) {
			score += 0.3
		}
		if rawText != "" && dateInText(parsed, rawText) {
			score += 0.3
		}
	}

	return common.Clamp01(score)
}

// dateInText checks the raw text for common renderings of the date.
func dateInText(d time.Time, rawText string) bool {
	variants := []string{
		d.Format("2006-01-02"),
		d.Format("01/02/2006"),
		d.Format("02/01/2006"),
		d.Format("Jan 2, 2006"),
		d.Format("January 2, 2006"),
		d.Format("2 Jan 2006"),
		d.Format("01-02-2006"),
	}
	for _, v := range variants {
		if strings.Contains(rawText, v) {
			return true
		}
	}
	return false
}
