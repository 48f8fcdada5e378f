package model

import "time"

// Frequency labels a recurring cadence inferred from transaction history.
type Frequency string

// Recognized cadences.
const (
	FrequencyWeekly    Frequency = "weekly"
	FrequencyBiweekly  Frequency = "biweekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyUnknown   Frequency = "unknown"
)

// RecurringPattern is a statistically periodic merchant charge inferred
// from committed history.
type RecurringPattern struct {
	NextEstimatedDate   time.Time
	MerchantName        string
	Frequency           Frequency
	AverageAmount       float64
	StdDevAmount        float64
	AverageIntervalDays float64
	Occurrences         int
}
