// Package recurring mines committed history for periodic merchant charges.
package recurring

import (
	"math"
	"sort"
	"strings"

	"github.com/pocketledger/tally/internal/common"
	"github.com/pocketledger/tally/internal/model"
)

// Config holds the pattern-mining thresholds.
type Config struct {
	// MinOccurrences is the minimum charge count before a merchant can
	// form a pattern.
	MinOccurrences int
	// MaxAmountCV rejects groups whose amount coefficient of variation
	// exceeds it.
	MaxAmountCV float64
	// MaxIntervalDeviationDays rejects groups whose mean absolute
	// interval deviation exceeds it.
	MaxIntervalDeviationDays float64
}

// DefaultConfig returns the default mining thresholds.
func DefaultConfig() Config {
	return Config{
		MinOccurrences:           3,
		MaxAmountCV:              0.2,
		MaxIntervalDeviationDays: 7,
	}
}

// Detector mines recurring patterns. It is pure: detection runs over an
// explicitly passed history snapshot and cannot fail.
type Detector struct {
	config Config
}

// NewDetector creates a detector with default thresholds.
func NewDetector() *Detector {
	return NewDetectorWithConfig(DefaultConfig())
}

// NewDetectorWithConfig creates a detector with custom thresholds.
func NewDetectorWithConfig(config Config) *Detector {
	if config.MinOccurrences < 2 {
		config.MinOccurrences = 2
	}
	return &Detector{config: config}
}

// Detect groups history by normalized merchant and emits a pattern for
// every group that charges a stable amount on a stable cadence. Output
// is sorted by occurrences descending.
func (d *Detector) Detect(history []model.CommittedTransaction) []model.RecurringPattern {
	groups := make(map[string][]model.CommittedTransaction)
	displayNames := make(map[string]string)
	for _, tx := range history {
		key := model.NormalizeMerchant(tx.MerchantName)
		if key == "" {
			continue
		}
		groups[key] = append(groups[key], tx)
		if _, ok := displayNames[key]; !ok {
			displayNames[key] = tx.MerchantName
		}
	}

	var patterns []model.RecurringPattern
	for key, txns := range groups {
		if len(txns) < d.config.MinOccurrences {
			continue
		}

		pattern, ok := d.analyzeGroup(txns)
		if !ok {
			continue
		}
		pattern.MerchantName = displayNames[key]
		patterns = append(patterns, pattern)
	}

	sort.SliceStable(patterns, func(i, j int) bool {
		return patterns[i].Occurrences > patterns[j].Occurrences
	})

	return patterns
}

func (d *Detector) analyzeGroup(txns []model.CommittedTransaction) (model.RecurringPattern, bool) {
	amounts := make([]float64, len(txns))
	for i, tx := range txns {
		amounts[i] = math.Abs(tx.Amount)
	}

	average := mean(amounts)
	stdDev := stddev(amounts, average)
	if average == 0 || stdDev/average > d.config.MaxAmountCV {
		return model.RecurringPattern{}, false
	}

	sorted := make([]model.CommittedTransaction, len(txns))
	copy(sorted, txns)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PostedAt.Before(sorted[j].PostedAt)
	})

	intervals := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		days := sorted[i].PostedAt.Sub(sorted[i-1].PostedAt).Hours() / 24
		intervals = append(intervals, days)
	}

	avgInterval := mean(intervals)
	if meanAbsDeviation(intervals, avgInterval) > d.config.MaxIntervalDeviationDays {
		return model.RecurringPattern{}, false
	}

	last := sorted[len(sorted)-1].PostedAt
	return model.RecurringPattern{
		AverageAmount:       common.Round2(average),
		StdDevAmount:        common.Round2(stdDev),
		AverageIntervalDays: avgInterval,
		Occurrences:         len(txns),
		Frequency:           labelFrequency(medianFloat(intervals)),
		NextEstimatedDate:   last.AddDate(0, 0, int(math.Round(avgInterval))),
	}, true
}

// IsLikelyRecurring reports whether a transaction matches a mined
// pattern: exact case-insensitive merchant match with the amount within
// two standard deviations of the pattern average.
func IsLikelyRecurring(tx model.NormalizedTransaction, patterns []model.RecurringPattern) bool {
	if tx.Merchant == "" || !tx.HasAmount() {
		return false
	}

	amount := math.Abs(tx.AmountValue())
	for _, p := range patterns {
		if !strings.EqualFold(tx.Merchant, p.MerchantName) {
			continue
		}
		if math.Abs(amount-p.AverageAmount) <= 2*p.StdDevAmount {
			return true
		}
	}
	return false
}

// labelFrequency names the cadence from the median interval in days.
func labelFrequency(medianInterval float64) model.Frequency {
	switch {
	case medianInterval >= 5 && medianInterval <= 9:
		return model.FrequencyWeekly
	case medianInterval >= 10 && medianInterval <= 18:
		return model.FrequencyBiweekly
	case medianInterval >= 26 && medianInterval <= 35:
		return model.FrequencyMonthly
	case medianInterval >= 85 && medianInterval <= 95:
		return model.FrequencyQuarterly
	default:
		return model.FrequencyUnknown
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddev(values []float64, avg float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += (v - avg) * (v - avg)
	}
	return math.Sqrt(sum / float64(len(values)))
}

func meanAbsDeviation(values []float64, center float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += math.Abs(v - center)
	}
	return sum / float64(len(values))
}

func medianFloat(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return sorted[len(sorted)/2]
}
